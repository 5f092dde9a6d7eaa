package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Segment is a vendor category ("saúde", "educação").
type Segment struct {
	ID        string    `gorm:"column:id;type:text;primaryKey"`
	Name      string    `gorm:"column:name;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// Vendor is an accredited business ("credenciado").
type Vendor struct {
	ID        string    `gorm:"column:id;type:text;primaryKey"`
	Name      string    `gorm:"column:name;not null"`
	Address   *string   `gorm:"column:address"`
	SegmentID *string   `gorm:"column:segment_id;type:text;index"`
	ImageURL  *string   `gorm:"column:image_url"`
	PlanID    *string   `gorm:"column:plan_id;type:text"`
	Phone     *string   `gorm:"column:phone"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// Service is a sellable offering of exactly one vendor.
type Service struct {
	ID              string              `gorm:"column:id;type:text;primaryKey"`
	VendorID        string              `gorm:"column:vendor_id;type:text;not null;index"`
	Name            string              `gorm:"column:name;not null"`
	Description     string              `gorm:"column:description;not null;default:''"`
	OriginalPrice   decimal.Decimal     `gorm:"column:original_price;type:numeric(12,2);not null"`
	DiscountedPrice decimal.NullDecimal `gorm:"column:discounted_price;type:numeric(12,2)"`
	ImageURL        *string             `gorm:"column:image_url"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
