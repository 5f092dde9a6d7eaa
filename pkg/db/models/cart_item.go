package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CartItem is one pending (user, service) selection. Name, price, image and
// vendor name are copied from the catalog when the item is added.
type CartItem struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	UserID      string          `gorm:"column:user_id;type:text;not null;index"`
	ServiceID   string          `gorm:"column:service_id;type:text;not null"`
	VendorID    string          `gorm:"column:vendor_id;type:text;not null"`
	Name        string          `gorm:"column:name;not null"`
	Description string          `gorm:"column:description;not null;default:''"`
	UnitPrice   decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	VendorName  string          `gorm:"column:vendor_name;not null"`
	ImageURL    *string         `gorm:"column:image_url"`
	Quantity    int             `gorm:"column:quantity;not null;default:1"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
