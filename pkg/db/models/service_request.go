package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/acertamais-backend/pkg/enums"
	"github.com/angelmondragon/acertamais-backend/pkg/types"
)

// ServiceRequest ("solicitação") is the immutable bundle created from a cart.
// Only Status, IsDeleted and CancelledAt change after insert.
type ServiceRequest struct {
	ID             uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	ClientID       string              `gorm:"column:client_id;type:text;not null;index:ix_service_requests_client_status,priority:1;uniqueIndex:ux_service_requests_idempotency,priority:1"`
	ClientName     string              `gorm:"column:client_name;not null"`
	VendorID       string              `gorm:"column:vendor_id;type:text;not null"`
	Lines          types.RequestLines  `gorm:"column:lines;type:jsonb;not null"`
	Total          decimal.Decimal     `gorm:"column:total;type:numeric(12,2);not null"`
	Status         enums.RequestStatus `gorm:"column:status;type:text;not null;default:'pending';index:ix_service_requests_client_status,priority:2"`
	ContactConsent bool                `gorm:"column:contact_consent;not null;default:true"`
	IsDeleted      bool                `gorm:"column:is_deleted;not null;default:false"`
	IdempotencyKey *string             `gorm:"column:idempotency_key;type:text;uniqueIndex:ux_service_requests_idempotency,priority:2"`
	CreatedAt      time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time           `gorm:"column:updated_at;autoUpdateTime"`
	CancelledAt    *time.Time          `gorm:"column:cancelled_at"`
}
