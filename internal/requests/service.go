package requests

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/acertamais-backend/internal/cart"
	"github.com/angelmondragon/acertamais-backend/pkg/config"
	"github.com/angelmondragon/acertamais-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/acertamais-backend/pkg/errors"
	"github.com/angelmondragon/acertamais-backend/pkg/logger"
	"github.com/angelmondragon/acertamais-backend/pkg/metrics"
	"github.com/angelmondragon/acertamais-backend/pkg/outbox"
	"github.com/angelmondragon/acertamais-backend/pkg/pagination"
)

// ErrEmptyCart is returned when submitting a cart with no items.
var ErrEmptyCart = pkgerrors.New(pkgerrors.CodeEmptyCart, "cart is empty")

// MaxIdempotencyKeyLength bounds client supplied keys.
const MaxIdempotencyKeyLength = 255

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type locker interface {
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (string, error)
	ReleaseLock(ctx context.Context, key, token string) error
	LockKey(scope, id string) string
}

type vendorNamer interface {
	VendorNames(ctx context.Context, ids []string) (map[string]string, error)
}

// Service covers submission, the pending-request viewer and history.
type Service interface {
	Submit(ctx context.Context, in SubmitInput) (*SubmitResult, error)
	Cancel(ctx context.Context, clientID string, requestID uuid.UUID) (*RequestView, error)
	Get(ctx context.Context, clientID string, requestID uuid.UUID) (*RequestView, error)
	ListPending(ctx context.Context, clientID string) (*Snapshot, error)
	Subscribe(ctx context.Context, clientID string) (Stream, error)
	History(ctx context.Context, clientID string, status enums.RequestStatus, params pagination.Params) (*HistoryPage, error)
}

// Deps groups the collaborators of the request service.
type Deps struct {
	Requests RequestRepository
	Cart     cart.CartRepository
	Tx       txRunner
	Outbox   eventEmitter
	Locks    locker
	Feed     ChangeFeed
	Vendors  vendorNamer
	Config   config.SubmissionConfig
	Metrics  *metrics.RequestMetrics
	Logger   *logger.Logger
}

type service struct {
	repo    RequestRepository
	cart    cart.CartRepository
	tx      txRunner
	outbox  eventEmitter
	locks   locker
	feed    ChangeFeed
	vendors vendorNamer
	lockTTL time.Duration
	metrics *metrics.RequestMetrics
	logg    *logger.Logger
	now     func() time.Time
}

func NewService(deps Deps) (Service, error) {
	switch {
	case deps.Requests == nil:
		return nil, fmt.Errorf("request repository required")
	case deps.Cart == nil:
		return nil, fmt.Errorf("cart repository required")
	case deps.Tx == nil:
		return nil, fmt.Errorf("transaction runner required")
	case deps.Outbox == nil:
		return nil, fmt.Errorf("outbox emitter required")
	case deps.Locks == nil:
		return nil, fmt.Errorf("lock provider required")
	case deps.Feed == nil:
		return nil, fmt.Errorf("change feed required")
	case deps.Vendors == nil:
		return nil, fmt.Errorf("vendor namer required")
	}
	ttl := deps.Config.LockTTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &service{
		repo:    deps.Requests,
		cart:    deps.Cart,
		tx:      deps.Tx,
		outbox:  deps.Outbox,
		locks:   deps.Locks,
		feed:    deps.Feed,
		vendors: deps.Vendors,
		lockTTL: ttl,
		metrics: deps.Metrics,
		logg:    deps.Logger,
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

// notify publishes a change notice after a commit. The write already
// succeeded, so a failed notice is only logged.
func (s *service) notify(ctx context.Context, clientID string) {
	if err := s.feed.Notify(context.WithoutCancel(ctx), clientID); err != nil && s.logg != nil {
		s.logg.Warn(s.logg.WithField(s.logg.WithUserID(ctx, clientID), "error", err.Error()), "request change notice not published")
	}
}

// vendorNames resolves current vendor names. A catalog failure is logged and
// yields nil, so views fall back to the name snapshotted on the lines.
func (s *service) vendorNames(ctx context.Context, ids []string) map[string]string {
	names, err := s.vendors.VendorNames(ctx, ids)
	if err != nil {
		if s.logg != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "vendor names unavailable, using snapshot")
		}
		return nil
	}
	return names
}
