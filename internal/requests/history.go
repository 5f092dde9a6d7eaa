package requests

import (
	"context"
	"strings"

	"github.com/angelmondragon/acertamais-backend/pkg/db/models"
	"github.com/angelmondragon/acertamais-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/acertamais-backend/pkg/errors"
	"github.com/angelmondragon/acertamais-backend/pkg/pagination"
)

// DefaultHistoryStatus lists the services the client actually contracted.
const DefaultHistoryStatus = enums.RequestStatusConfirmed

// History pages the client's requests with the given status, newest first.
// Vendor names come from the current catalog when it is reachable.
func (s *service) History(ctx context.Context, clientID string, status enums.RequestStatus, params pagination.Params) (*HistoryPage, error) {
	if strings.TrimSpace(clientID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "client id is required")
	}
	if status == "" {
		status = DefaultHistoryStatus
	}
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	rows, err := s.repo.ListByStatus(ctx, clientID, status, cursor, pagination.LimitWithBuffer(params.Limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeFetch, err, "list requests")
	}
	total, err := s.repo.CountByStatus(ctx, clientID, status)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeFetch, err, "count requests")
	}

	page := pagination.Trim(rows, params.Limit, func(r models.ServiceRequest) pagination.Cursor {
		return pagination.Cursor{CreatedAt: r.CreatedAt, ID: r.ID}
	})

	vendorIDs := make([]string, 0, len(page.Items))
	for _, row := range page.Items {
		vendorIDs = append(vendorIDs, row.VendorID)
	}
	names := s.vendorNames(ctx, vendorIDs)

	items := make([]RequestView, 0, len(page.Items))
	for _, row := range page.Items {
		items = append(items, toView(row, names[row.VendorID]))
	}
	return &HistoryPage{Items: items, NextCursor: page.NextCursor, Total: total}, nil
}
