package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/angelmondragon/acertamais-backend/pkg/breaker"
	"github.com/angelmondragon/acertamais-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/acertamais-backend/pkg/errors"
)

// Service exposes catalog reads with vendor enrichment.
type Service interface {
	ListSegments(ctx context.Context) ([]SegmentDTO, error)
	ListVendors(ctx context.Context, segmentID string) ([]VendorDTO, error)
	GetVendor(ctx context.Context, id string) (*VendorDTO, error)
	ListServices(ctx context.Context, vendorID string) ([]ServiceDTO, error)
	GetService(ctx context.Context, id string) (*ServiceDTO, error)
	VendorNames(ctx context.Context, ids []string) (map[string]string, error)
}

type service struct {
	reader Reader
}

func NewService(reader Reader) (Service, error) {
	if reader == nil {
		return nil, fmt.Errorf("catalog reader required")
	}
	return &service{reader: reader}, nil
}

func (s *service) ListSegments(ctx context.Context) ([]SegmentDTO, error) {
	rows, err := s.reader.ListSegments(ctx)
	if err != nil {
		return nil, fetchError(err, "list segments")
	}
	out := make([]SegmentDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, toSegmentDTO(row))
	}
	return out, nil
}

func (s *service) ListVendors(ctx context.Context, segmentID string) ([]VendorDTO, error) {
	rows, err := s.reader.ListVendors(ctx, strings.TrimSpace(segmentID))
	if err != nil {
		return nil, fetchError(err, "list vendors")
	}
	segments, err := s.segmentNames(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]VendorDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, toVendorDTO(row, segments))
	}
	return out, nil
}

func (s *service) GetVendor(ctx context.Context, id string) (*VendorDTO, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor id is required")
	}
	row, err := s.reader.GetVendor(ctx, id)
	if err != nil {
		return nil, fetchError(err, "load vendor")
	}
	segments, err := s.segmentNames(ctx)
	if err != nil {
		return nil, err
	}
	dto := toVendorDTO(*row, segments)
	return &dto, nil
}

// ListServices enriches each service with its vendor name and segment using
// one batched vendor lookup.
func (s *service) ListServices(ctx context.Context, vendorID string) ([]ServiceDTO, error) {
	rows, err := s.reader.ListServices(ctx, strings.TrimSpace(vendorID))
	if err != nil {
		return nil, fetchError(err, "list services")
	}
	if len(rows) == 0 {
		return []ServiceDTO{}, nil
	}

	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.VendorID)
	}
	vendors, err := s.vendorsByID(ctx, ids)
	if err != nil {
		return nil, err
	}
	segments, err := s.segmentNames(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]ServiceDTO, 0, len(rows))
	for _, row := range rows {
		var vendor *models.Vendor
		if v, ok := vendors[row.VendorID]; ok {
			vendor = &v
		}
		out = append(out, toServiceDTO(row, vendor, segments))
	}
	return out, nil
}

func (s *service) GetService(ctx context.Context, id string) (*ServiceDTO, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "service id is required")
	}
	row, err := s.reader.GetService(ctx, id)
	if err != nil {
		return nil, fetchError(err, "load service")
	}

	var vendor *models.Vendor
	v, err := s.reader.GetVendor(ctx, row.VendorID)
	switch {
	case err == nil:
		vendor = v
	case errors.Is(err, ErrNotFound):
	default:
		return nil, fetchError(err, "load vendor")
	}
	segments, err := s.segmentNames(ctx)
	if err != nil {
		return nil, err
	}
	dto := toServiceDTO(*row, vendor, segments)
	return &dto, nil
}

// VendorNames maps every id to its vendor name, using UnknownVendorName for
// vendors that no longer exist.
func (s *service) VendorNames(ctx context.Context, ids []string) (map[string]string, error) {
	vendors, err := s.vendorsByID(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(ids))
	for _, id := range ids {
		name := UnknownVendorName
		if v, ok := vendors[id]; ok && v.Name != "" {
			name = v.Name
		}
		out[id] = name
	}
	return out, nil
}

func (s *service) vendorsByID(ctx context.Context, ids []string) (map[string]models.Vendor, error) {
	unique := dedupe(ids)
	if len(unique) == 0 {
		return map[string]models.Vendor{}, nil
	}
	rows, err := s.reader.VendorsByIDs(ctx, unique)
	if err != nil {
		return nil, fetchError(err, "load vendors")
	}
	out := make(map[string]models.Vendor, len(rows))
	for _, row := range rows {
		out[row.ID] = row
	}
	return out, nil
}

func (s *service) segmentNames(ctx context.Context) (map[string]string, error) {
	rows, err := s.reader.ListSegments(ctx)
	if err != nil {
		return nil, fetchError(err, "list segments")
	}
	out := make(map[string]string, len(rows))
	for _, row := range rows {
		out[row.ID] = row.Name
	}
	return out, nil
}

func fetchError(err error, msg string) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, strings.TrimPrefix(msg, "load ")+" not found")
	case errors.Is(err, breaker.ErrOpen):
		return pkgerrors.Wrap(pkgerrors.CodeFetch, err, "catalog temporarily unavailable")
	default:
		return pkgerrors.Wrap(pkgerrors.CodeFetch, err, msg)
	}
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
