package catalog

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/angelmondragon/acertamais-backend/pkg/db/models"
)

// ErrNotFound is returned by every Reader when the record does not exist.
var ErrNotFound = errors.New("catalog record not found")

// Reader is the read-only surface every catalog backend provides.
type Reader interface {
	ListSegments(ctx context.Context) ([]models.Segment, error)
	ListVendors(ctx context.Context, segmentID string) ([]models.Vendor, error)
	GetVendor(ctx context.Context, id string) (*models.Vendor, error)
	VendorsByIDs(ctx context.Context, ids []string) ([]models.Vendor, error)
	ListServices(ctx context.Context, vendorID string) ([]models.Service, error)
	GetService(ctx context.Context, id string) (*models.Service, error)
}

// Repository reads the catalog tables from postgres.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) ListSegments(ctx context.Context) ([]models.Segment, error) {
	var rows []models.Segment
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListVendors returns every vendor, or only those of segmentID when set.
func (r *Repository) ListVendors(ctx context.Context, segmentID string) ([]models.Vendor, error) {
	q := r.db.WithContext(ctx).Model(&models.Vendor{})
	if segmentID != "" {
		q = q.Where("segment_id = ?", segmentID)
	}
	var rows []models.Vendor
	if err := q.Order("name ASC").Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *Repository) GetVendor(ctx context.Context, id string) (*models.Vendor, error) {
	var row models.Vendor
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		return nil, notFound(err)
	}
	return &row, nil
}

func (r *Repository) VendorsByIDs(ctx context.Context, ids []string) ([]models.Vendor, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []models.Vendor
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *Repository) ListServices(ctx context.Context, vendorID string) ([]models.Service, error) {
	q := r.db.WithContext(ctx).Model(&models.Service{})
	if vendorID != "" {
		q = q.Where("vendor_id = ?", vendorID)
	}
	var rows []models.Service
	if err := q.Order("name ASC").Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *Repository) GetService(ctx context.Context, id string) (*models.Service, error) {
	var row models.Service
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		return nil, notFound(err)
	}
	return &row, nil
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
