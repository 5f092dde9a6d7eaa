package catalog

import (
	"context"
	"errors"

	"github.com/angelmondragon/acertamais-backend/pkg/breaker"
	"github.com/angelmondragon/acertamais-backend/pkg/config"
	"github.com/angelmondragon/acertamais-backend/pkg/db/models"
	"github.com/angelmondragon/acertamais-backend/pkg/logger"
	"github.com/angelmondragon/acertamais-backend/pkg/metrics"
)

// GuardedReader runs every call of the wrapped Reader through a circuit
// breaker. Missing records and caller cancellation do not trip it.
type GuardedReader struct {
	next Reader
	cb   *breaker.Breaker
}

func NewGuardedReader(next Reader, cfg config.CatalogConfig, logg *logger.Logger, m *metrics.BreakerMetrics) *GuardedReader {
	cb := breaker.New(breaker.Settings{
		Name:         "catalog_" + cfg.Backend,
		MaxRequests:  cfg.BreakerMaxRequests,
		Interval:     cfg.BreakerInterval,
		Timeout:      cfg.BreakerTimeout,
		FailureRatio: cfg.BreakerFailureRatio,
		MinRequests:  cfg.BreakerMinRequests,
		IsSuccessful: func(err error) bool {
			return errors.Is(err, ErrNotFound) || errors.Is(err, context.Canceled)
		},
	}, logg, m)
	return &GuardedReader{next: next, cb: cb}
}

func (g *GuardedReader) ListSegments(ctx context.Context) ([]models.Segment, error) {
	return breaker.Call(g.cb, func() ([]models.Segment, error) {
		return g.next.ListSegments(ctx)
	})
}

func (g *GuardedReader) ListVendors(ctx context.Context, segmentID string) ([]models.Vendor, error) {
	return breaker.Call(g.cb, func() ([]models.Vendor, error) {
		return g.next.ListVendors(ctx, segmentID)
	})
}

func (g *GuardedReader) GetVendor(ctx context.Context, id string) (*models.Vendor, error) {
	return breaker.Call(g.cb, func() (*models.Vendor, error) {
		return g.next.GetVendor(ctx, id)
	})
}

func (g *GuardedReader) VendorsByIDs(ctx context.Context, ids []string) ([]models.Vendor, error) {
	return breaker.Call(g.cb, func() ([]models.Vendor, error) {
		return g.next.VendorsByIDs(ctx, ids)
	})
}

func (g *GuardedReader) ListServices(ctx context.Context, vendorID string) ([]models.Service, error) {
	return breaker.Call(g.cb, func() ([]models.Service, error) {
		return g.next.ListServices(ctx, vendorID)
	})
}

func (g *GuardedReader) GetService(ctx context.Context, id string) (*models.Service, error) {
	return breaker.Call(g.cb, func() (*models.Service, error) {
		return g.next.GetService(ctx, id)
	})
}
