package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// RequestLine is the frozen copy of one cart item inside a service request.
type RequestLine struct {
	ServiceID   string          `json:"service_id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    int             `json:"quantity"`
	LineTotal   decimal.Decimal `json:"line_total"`
	VendorName  string          `json:"vendor_name"`
	ImageURL    *string         `json:"image_url,omitempty"`
}

// RequestLines is stored as a JSON array column.
type RequestLines []RequestLine

// Value implements driver.Valuer.
func (l RequestLines) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	raw, err := json.Marshal(l)
	if err != nil {
		return nil, fmt.Errorf("request lines: %w", err)
	}
	return string(raw), nil
}

// Scan implements sql.Scanner.
func (l *RequestLines) Scan(value interface{}) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		*l = RequestLines{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("request lines: unsupported scan type %T", value)
	}
	var out RequestLines
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("request lines: %w", err)
	}
	*l = out
	return nil
}
