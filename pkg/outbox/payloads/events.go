package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RequestCreatedEvent tells vendor-facing systems a new request is waiting.
type RequestCreatedEvent struct {
	RequestID  uuid.UUID       `json:"request_id"`
	ClientID   string          `json:"client_id"`
	ClientName string          `json:"client_name"`
	VendorID   string          `json:"vendor_id"`
	Total      decimal.Decimal `json:"total"`
	LineCount  int             `json:"line_count"`
	CreatedAt  time.Time       `json:"created_at"`
}

// RequestCancelledEvent is emitted when a client withdraws a pending request.
type RequestCancelledEvent struct {
	RequestID   uuid.UUID `json:"request_id"`
	ClientID    string    `json:"client_id"`
	VendorID    string    `json:"vendor_id"`
	CancelledAt time.Time `json:"cancelled_at"`
}
