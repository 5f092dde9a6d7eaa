package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/acertamais-backend/pkg/breaker"
	"github.com/angelmondragon/acertamais-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/acertamais-backend/pkg/errors"
)

type stubReader struct {
	segments []models.Segment
	vendors  map[string]models.Vendor
	services map[string]models.Service
	err      error
	calls    int
}

func (s *stubReader) ListSegments(context.Context) ([]models.Segment, error) {
	s.calls++
	return s.segments, s.err
}

func (s *stubReader) ListVendors(_ context.Context, segmentID string) ([]models.Vendor, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	var out []models.Vendor
	for _, v := range s.vendors {
		if segmentID == "" || (v.SegmentID != nil && *v.SegmentID == segmentID) {
			out = append(out, v)
		}
	}
	return out, nil
}

func (s *stubReader) GetVendor(_ context.Context, id string) (*models.Vendor, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	v, ok := s.vendors[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &v, nil
}

func (s *stubReader) VendorsByIDs(_ context.Context, ids []string) ([]models.Vendor, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	var out []models.Vendor
	for _, id := range ids {
		if v, ok := s.vendors[id]; ok {
			out = append(out, v)
		}
	}
	return out, nil
}

func (s *stubReader) ListServices(_ context.Context, vendorID string) ([]models.Service, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	var out []models.Service
	for _, id := range []string{"s1", "s2", "s3"} {
		if svc, ok := s.services[id]; ok && (vendorID == "" || svc.VendorID == vendorID) {
			out = append(out, svc)
		}
	}
	return out, nil
}

func (s *stubReader) GetService(_ context.Context, id string) (*models.Service, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	svc, ok := s.services[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &svc, nil
}

func newStubReader() *stubReader {
	return &stubReader{
		segments: []models.Segment{{ID: "saude", Name: "Saúde"}},
		vendors: map[string]models.Vendor{
			"v1": {ID: "v1", Name: "Clínica Vida", SegmentID: strPtr("saude")},
		},
		services: map[string]models.Service{
			"s1": {ID: "s1", VendorID: "v1", Name: "Consulta", OriginalPrice: decimal.RequireFromString("100"), DiscountedPrice: decimal.NewNullDecimal(decimal.RequireFromString("75"))},
			"s2": {ID: "s2", VendorID: "gone", Name: "Órfão", OriginalPrice: decimal.RequireFromString("40")},
		},
	}
}

func TestListServicesEnrichesVendorFields(t *testing.T) {
	svc, err := NewService(newStubReader())
	require.NoError(t, err)

	out, err := svc.ListServices(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, out, 2)

	assert.Equal(t, "Clínica Vida", out[0].VendorName)
	assert.Equal(t, "Saúde", out[0].SegmentName)
	assert.True(t, out[0].Price.Equal(decimal.RequireFromString("75")))
	assert.Equal(t, 25, out[0].DiscountPercent)

	assert.Equal(t, UnknownVendorName, out[1].VendorName)
	assert.True(t, out[1].Price.Equal(decimal.RequireFromString("40")))
	assert.Nil(t, out[1].DiscountedPrice)
}

func TestGetServiceMissingVendorFallsBack(t *testing.T) {
	svc, err := NewService(newStubReader())
	require.NoError(t, err)

	out, err := svc.GetService(context.Background(), "s2")
	require.NoError(t, err)
	require.Equal(t, UnknownVendorName, out.VendorName)
}

func TestGetServiceNotFound(t *testing.T) {
	svc, err := NewService(newStubReader())
	require.NoError(t, err)

	_, err = svc.GetService(context.Background(), "missing")
	require.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))

	_, err = svc.GetService(context.Background(), " ")
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}

func TestReadFailuresAreRetryableFetchErrors(t *testing.T) {
	reader := newStubReader()
	reader.err = errors.New("unavailable")
	svc, err := NewService(reader)
	require.NoError(t, err)

	_, err = svc.ListVendors(context.Background(), "")
	require.Equal(t, pkgerrors.CodeFetch, pkgerrors.CodeOf(err))
	require.True(t, pkgerrors.IsRetryable(err))

	reader.err = breaker.ErrOpen
	_, err = svc.ListSegments(context.Background())
	require.Equal(t, pkgerrors.CodeFetch, pkgerrors.CodeOf(err))
}

func TestVendorNamesFallsBackForUnknown(t *testing.T) {
	svc, err := NewService(newStubReader())
	require.NoError(t, err)

	names, err := svc.VendorNames(context.Background(), []string{"v1", "gone", "v1", ""})
	require.NoError(t, err)
	require.Equal(t, map[string]string{"v1": "Clínica Vida", "gone": UnknownVendorName}, names)
}

func TestEffectivePrice(t *testing.T) {
	original := models.Service{OriginalPrice: decimal.RequireFromString("20.00")}
	require.True(t, EffectivePrice(original).Equal(decimal.RequireFromString("20")))
	require.Zero(t, DiscountPercent(original))

	zeroDiscount := original
	zeroDiscount.DiscountedPrice = decimal.NewNullDecimal(decimal.Zero)
	require.True(t, EffectivePrice(zeroDiscount).Equal(decimal.RequireFromString("20")))

	discounted := original
	discounted.DiscountedPrice = decimal.NewNullDecimal(decimal.RequireFromString("15.00"))
	require.True(t, EffectivePrice(discounted).Equal(decimal.RequireFromString("15")))
}

func TestNewServiceRequiresReader(t *testing.T) {
	_, err := NewService(nil)
	require.Error(t, err)
}
