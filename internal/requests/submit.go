package requests

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/acertamais-backend/internal/cart"
	"github.com/angelmondragon/acertamais-backend/pkg/db"
	"github.com/angelmondragon/acertamais-backend/pkg/db/models"
	"github.com/angelmondragon/acertamais-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/acertamais-backend/pkg/errors"
	"github.com/angelmondragon/acertamais-backend/pkg/metrics"
	"github.com/angelmondragon/acertamais-backend/pkg/outbox"
	"github.com/angelmondragon/acertamais-backend/pkg/outbox/payloads"
	pkgredis "github.com/angelmondragon/acertamais-backend/pkg/redis"
	"github.com/angelmondragon/acertamais-backend/pkg/types"
)

const submitLockScope = "submit"

var errIdempotencyRace = errors.New("idempotency key inserted concurrently")

// Submit converts the client's cart into one pending request. Submissions of
// one client are serialized by a redis lock; creating the request, clearing
// the cart and queueing the event commit together. A repeated idempotency key
// returns the request created the first time.
func (s *service) Submit(ctx context.Context, in SubmitInput) (*SubmitResult, error) {
	start := time.Now()
	in.ClientID = strings.TrimSpace(in.ClientID)
	in.ClientName = strings.TrimSpace(in.ClientName)
	in.IdempotencyKey = strings.TrimSpace(in.IdempotencyKey)
	if in.ClientID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "client id is required")
	}
	if len(in.IdempotencyKey) > MaxIdempotencyKeyLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "idempotency key is too long")
	}

	res, err := s.submit(ctx, in)
	s.metrics.ObserveSubmission(submissionResult(res, err), time.Since(start))
	if err != nil {
		return nil, err
	}
	if !res.Replayed {
		s.notify(ctx, in.ClientID)
	}
	if s.logg != nil {
		logCtx := s.logg.WithFields(s.logg.WithUserID(ctx, in.ClientID), map[string]any{
			"request_id": res.RequestID.String(),
			"replayed":   res.Replayed,
		})
		s.logg.Info(logCtx, "service request submitted")
	}
	return res, nil
}

func (s *service) submit(ctx context.Context, in SubmitInput) (*SubmitResult, error) {
	if in.IdempotencyKey != "" {
		existing, err := s.findByKey(ctx, s.repo, in)
		if err != nil || existing != nil {
			return existing, err
		}
	}

	lockKey := s.locks.LockKey(submitLockScope, in.ClientID)
	token, err := s.locks.AcquireLock(ctx, lockKey, s.lockTTL)
	if err != nil {
		if errors.Is(err, pkgredis.ErrLockHeld) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "a submission for this cart is already in progress")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquire submission lock")
	}
	defer func() {
		if err := s.locks.ReleaseLock(context.WithoutCancel(ctx), lockKey, token); err != nil && s.logg != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "submission lock not released")
		}
	}()

	var result *SubmitResult
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if in.IdempotencyKey != "" {
			existing, err := s.findByKey(ctx, repo, in)
			if err != nil {
				return err
			}
			if existing != nil {
				result = existing
				return nil
			}
		}

		created, err := s.createFromCart(ctx, tx, repo, in)
		if err != nil {
			return err
		}
		result = &SubmitResult{RequestID: created.ID, Status: created.Status, Total: created.Total}
		return nil
	})
	if errors.Is(err, errIdempotencyRace) {
		existing, findErr := s.findByKey(ctx, s.repo, in)
		if findErr != nil {
			return nil, findErr
		}
		if existing != nil {
			return existing, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "retry the submission")
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) createFromCart(ctx context.Context, tx *gorm.DB, repo RequestRepository, in SubmitInput) (*models.ServiceRequest, error) {
	items := s.cart.WithTx(tx)
	if err := items.LockCart(ctx, in.ClientID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeFetch, err, "lock cart")
	}
	rows, err := items.ListByUser(ctx, in.ClientID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeFetch, err, "load cart")
	}
	agg := cart.NewAggregate(rows)
	if agg.IsEmpty() {
		return nil, ErrEmptyCart
	}
	vendorID, err := agg.SingleVendor()
	if err != nil {
		return nil, err
	}

	lines, total := SnapshotLines(agg.Items())
	req := &models.ServiceRequest{
		ID:             uuid.New(),
		ClientID:       in.ClientID,
		ClientName:     in.ClientName,
		VendorID:       vendorID,
		Lines:          lines,
		Total:          total,
		Status:         enums.RequestStatusPending,
		ContactConsent: true,
	}
	if in.IdempotencyKey != "" {
		key := in.IdempotencyKey
		req.IdempotencyKey = &key
	}
	if err := repo.Create(ctx, req); err != nil {
		if in.IdempotencyKey != "" && db.IsUniqueViolation(err, "") {
			return nil, errIdempotencyRace
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeWrite, err, "create service request")
	}

	ids := make([]uuid.UUID, 0, len(rows))
	for _, row := range agg.Items() {
		ids = append(ids, row.ID)
	}
	deleted, err := items.DeleteByIDs(ctx, in.ClientID, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeWrite, err, "clear cart")
	}
	if deleted != int64(len(ids)) {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "cart changed during submission")
	}

	err = s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventRequestCreated,
		AggregateType: enums.AggregateServiceRequest,
		AggregateID:   req.ID,
		Actor:         &outbox.ActorRef{UserID: in.ClientID},
		Data: payloads.RequestCreatedEvent{
			RequestID:  req.ID,
			ClientID:   req.ClientID,
			ClientName: req.ClientName,
			VendorID:   req.VendorID,
			Total:      req.Total,
			LineCount:  len(lines),
			CreatedAt:  req.CreatedAt,
		},
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeWrite, err, "queue request event")
	}
	return req, nil
}

func (s *service) findByKey(ctx context.Context, repo RequestRepository, in SubmitInput) (*SubmitResult, error) {
	existing, err := repo.FindByIdempotencyKey(ctx, in.ClientID, in.IdempotencyKey)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeFetch, err, "lookup idempotency key")
	}
	return &SubmitResult{
		RequestID: existing.ID,
		Status:    existing.Status,
		Total:     existing.Total,
		Replayed:  true,
	}, nil
}

// SnapshotLines freezes cart items into request lines. The grand total is the
// sum of the unrounded line totals, rounded to cents once.
func SnapshotLines(items []models.CartItem) (types.RequestLines, decimal.Decimal) {
	lines := make(types.RequestLines, 0, len(items))
	total := decimal.Zero
	for _, item := range items {
		lineTotal := cart.LineTotal(item)
		total = total.Add(lineTotal)
		lines = append(lines, types.RequestLine{
			ServiceID:   item.ServiceID,
			Name:        item.Name,
			Description: item.Description,
			UnitPrice:   item.UnitPrice,
			Quantity:    item.Quantity,
			LineTotal:   lineTotal.Round(2),
			VendorName:  item.VendorName,
			ImageURL:    item.ImageURL,
		})
	}
	return lines, total.Round(2)
}

func submissionResult(res *SubmitResult, err error) string {
	switch {
	case err == nil && res != nil && res.Replayed:
		return metrics.ResultReplayed
	case err == nil:
		return metrics.ResultCreated
	case errors.Is(err, ErrEmptyCart):
		return metrics.ResultEmptyCart
	case errors.Is(err, cart.ErrVendorConflict):
		return metrics.ResultVendorConflict
	case pkgerrors.CodeOf(err) == pkgerrors.CodeConflict:
		return metrics.ResultInFlight
	default:
		return metrics.ResultError
	}
}
