package cart

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/acertamais-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/acertamais-backend/pkg/errors"
)

// ErrVendorConflict is returned when a cart would hold services from more
// than one vendor.
var ErrVendorConflict = pkgerrors.New(pkgerrors.CodeVendorConflict, "cart already holds services from another vendor")

var ErrItemNotFound = pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")

// MaxQuantity keeps quantities inside the int4 column.
const MaxQuantity = 9999

// Aggregate is one user's cart. It never touches storage; the service loads
// it, asks it for decisions and persists the outcome.
type Aggregate struct {
	items []models.CartItem
}

func NewAggregate(items []models.CartItem) *Aggregate {
	cp := make([]models.CartItem, len(items))
	copy(cp, items)
	return &Aggregate{items: cp}
}

func (a *Aggregate) Items() []models.CartItem {
	out := make([]models.CartItem, len(a.items))
	copy(out, a.items)
	return out
}

func (a *Aggregate) IsEmpty() bool {
	return len(a.items) == 0
}

// VendorID returns the vendor of the first item, or "" for an empty cart.
func (a *Aggregate) VendorID() string {
	if len(a.items) == 0 {
		return ""
	}
	return a.items[0].VendorID
}

// CheckVendor fails with ErrVendorConflict when any item belongs to a vendor
// other than vendorID.
func (a *Aggregate) CheckVendor(vendorID string) error {
	for _, item := range a.items {
		if item.VendorID != vendorID {
			return ErrVendorConflict.WithDetails(map[string]any{
				"cart_vendor_id":      item.VendorID,
				"requested_vendor_id": vendorID,
			})
		}
	}
	return nil
}

// SingleVendor re-validates the whole cart and returns its vendor.
func (a *Aggregate) SingleVendor() (string, error) {
	vendorID := a.VendorID()
	if err := a.CheckVendor(vendorID); err != nil {
		return "", err
	}
	return vendorID, nil
}

// Add appends item after the vendor check. On conflict the cart is unchanged.
func (a *Aggregate) Add(item models.CartItem) error {
	if err := a.CheckVendor(item.VendorID); err != nil {
		return err
	}
	if item.Quantity < 1 {
		item.Quantity = 1
	}
	a.items = append(a.items, item)
	return nil
}

// SetQuantity returns the item after the change and whether it changed.
// n < 1 leaves the item as stored; n above MaxQuantity is rejected.
func (a *Aggregate) SetQuantity(itemID uuid.UUID, n int) (models.CartItem, bool, error) {
	if n > MaxQuantity {
		return models.CartItem{}, false, pkgerrors.New(pkgerrors.CodeValidation, "quantity exceeds maximum").
			WithDetails(map[string]any{"max": MaxQuantity})
	}
	for i := range a.items {
		if a.items[i].ID != itemID {
			continue
		}
		if n < 1 || a.items[i].Quantity == n {
			return a.items[i], false, nil
		}
		a.items[i].Quantity = n
		return a.items[i], true, nil
	}
	return models.CartItem{}, false, ErrItemNotFound
}

// Remove reports whether the item was in the cart.
func (a *Aggregate) Remove(itemID uuid.UUID) bool {
	for i := range a.items {
		if a.items[i].ID == itemID {
			a.items = append(a.items[:i], a.items[i+1:]...)
			return true
		}
	}
	return false
}

// Total is the sum of unit price times quantity, rounded to cents.
func (a *Aggregate) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range a.items {
		total = total.Add(LineTotal(item))
	}
	return total.Round(2)
}

func LineTotal(item models.CartItem) decimal.Decimal {
	return item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
}
