package requests

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/acertamais-backend/pkg/db/models"
	"github.com/angelmondragon/acertamais-backend/pkg/enums"
	"github.com/angelmondragon/acertamais-backend/pkg/types"
)

// RequestView is the client-facing shape of a service request.
type RequestView struct {
	ID             uuid.UUID           `json:"id"`
	ClientName     string              `json:"client_name"`
	VendorID       string              `json:"vendor_id"`
	VendorName     string              `json:"vendor_name"`
	Lines          types.RequestLines  `json:"lines"`
	Total          decimal.Decimal     `json:"total"`
	Status         enums.RequestStatus `json:"status"`
	ContactConsent bool                `json:"contact_consent"`
	CreatedAt      time.Time           `json:"created_at"`
	CancelledAt    *time.Time          `json:"cancelled_at,omitempty"`
}

// Snapshot is the full set of a client's pending requests at one instant.
type Snapshot struct {
	Requests []RequestView `json:"requests"`
	At       time.Time     `json:"at"`
}

type HistoryPage struct {
	Items      []RequestView `json:"items"`
	NextCursor string        `json:"next_cursor,omitempty"`
	Total      int64         `json:"total"`
}

// SubmitInput carries the caller identity explicitly; nothing is read from
// ambient state.
type SubmitInput struct {
	ClientID       string
	ClientName     string
	IdempotencyKey string
}

type SubmitResult struct {
	RequestID uuid.UUID           `json:"request_id"`
	Status    enums.RequestStatus `json:"status"`
	Total     decimal.Decimal     `json:"total"`
	Replayed  bool                `json:"replayed"`
}

// toView uses the vendor name frozen on the lines unless vendorName is set.
func toView(req models.ServiceRequest, vendorName string) RequestView {
	if vendorName == "" && len(req.Lines) > 0 {
		vendorName = req.Lines[0].VendorName
	}
	lines := req.Lines
	if lines == nil {
		lines = types.RequestLines{}
	}
	return RequestView{
		ID:             req.ID,
		ClientName:     req.ClientName,
		VendorID:       req.VendorID,
		VendorName:     vendorName,
		Lines:          lines,
		Total:          req.Total,
		Status:         req.Status,
		ContactConsent: req.ContactConsent,
		CreatedAt:      req.CreatedAt,
		CancelledAt:    req.CancelledAt,
	}
}
