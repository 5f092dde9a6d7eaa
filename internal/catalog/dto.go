package catalog

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/acertamais-backend/pkg/db/models"
)

// UnknownVendorName is shown when a service points at a vendor that no longer exists.
const UnknownVendorName = "Empresa desconhecida"

type SegmentDTO struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type VendorDTO struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Address     *string `json:"address,omitempty"`
	SegmentID   *string `json:"segment_id,omitempty"`
	SegmentName string  `json:"segment_name,omitempty"`
	ImageURL    *string `json:"image_url,omitempty"`
	PlanID      *string `json:"plan_id,omitempty"`
	Phone       *string `json:"phone,omitempty"`
}

// ServiceDTO is a service enriched with the denormalized vendor fields the
// cart snapshots on add.
type ServiceDTO struct {
	ID              string           `json:"id"`
	VendorID        string           `json:"vendor_id"`
	VendorName      string           `json:"vendor_name"`
	SegmentName     string           `json:"segment_name,omitempty"`
	Name            string           `json:"name"`
	Description     string           `json:"description"`
	OriginalPrice   decimal.Decimal  `json:"original_price"`
	DiscountedPrice *decimal.Decimal `json:"discounted_price,omitempty"`
	Price           decimal.Decimal  `json:"price"`
	DiscountPercent int              `json:"discount_percent,omitempty"`
	ImageURL        *string          `json:"image_url,omitempty"`
}

// EffectivePrice is the discounted price when one is set and positive,
// otherwise the original price.
func EffectivePrice(svc models.Service) decimal.Decimal {
	if svc.DiscountedPrice.Valid && svc.DiscountedPrice.Decimal.IsPositive() {
		return svc.DiscountedPrice.Decimal
	}
	return svc.OriginalPrice
}

// DiscountPercent rounds the saving against the original price to a whole
// percent; zero when there is no real discount.
func DiscountPercent(svc models.Service) int {
	price := EffectivePrice(svc)
	if !svc.OriginalPrice.IsPositive() || !price.LessThan(svc.OriginalPrice) {
		return 0
	}
	pct := svc.OriginalPrice.Sub(price).Div(svc.OriginalPrice).Mul(decimal.NewFromInt(100)).Round(0)
	return int(pct.IntPart())
}

func toSegmentDTO(s models.Segment) SegmentDTO {
	return SegmentDTO{ID: s.ID, Name: s.Name}
}

func toVendorDTO(v models.Vendor, segments map[string]string) VendorDTO {
	dto := VendorDTO{
		ID:        v.ID,
		Name:      v.Name,
		Address:   v.Address,
		SegmentID: v.SegmentID,
		ImageURL:  v.ImageURL,
		PlanID:    v.PlanID,
		Phone:     v.Phone,
	}
	if v.SegmentID != nil {
		dto.SegmentName = segmentName(*v.SegmentID, segments)
	}
	return dto
}

func toServiceDTO(s models.Service, vendor *models.Vendor, segments map[string]string) ServiceDTO {
	dto := ServiceDTO{
		ID:              s.ID,
		VendorID:        s.VendorID,
		VendorName:      UnknownVendorName,
		Name:            s.Name,
		Description:     s.Description,
		OriginalPrice:   s.OriginalPrice,
		Price:           EffectivePrice(s),
		DiscountPercent: DiscountPercent(s),
		ImageURL:        s.ImageURL,
	}
	if s.DiscountedPrice.Valid {
		d := s.DiscountedPrice.Decimal
		dto.DiscountedPrice = &d
	}
	if vendor != nil {
		if vendor.Name != "" {
			dto.VendorName = vendor.Name
		}
		if vendor.SegmentID != nil {
			dto.SegmentName = segmentName(*vendor.SegmentID, segments)
		}
	}
	return dto
}

// segmentName resolves a segment reference. Legacy vendor documents sometimes
// store the segment name instead of its id, so unknown refs pass through.
func segmentName(ref string, segments map[string]string) string {
	if name, ok := segments[ref]; ok {
		return name
	}
	return ref
}
