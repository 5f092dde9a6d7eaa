package requests

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/acertamais-backend/pkg/db/models"
	"github.com/angelmondragon/acertamais-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/acertamais-backend/pkg/errors"
	"github.com/angelmondragon/acertamais-backend/pkg/outbox"
	"github.com/angelmondragon/acertamais-backend/pkg/outbox/payloads"
)

// Cancel withdraws a pending request: status becomes cancelled and the
// soft-delete flag is set, the row itself is kept. Cancelling an already
// cancelled request returns it unchanged; a confirmed one is a state conflict.
func (s *service) Cancel(ctx context.Context, clientID string, requestID uuid.UUID) (*RequestView, error) {
	if err := validateRef(clientID, requestID); err != nil {
		return nil, err
	}

	var (
		out     models.ServiceRequest
		changed bool
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		req, err := repo.FindByIDForUpdate(ctx, clientID, requestID)
		if err != nil {
			return lookupError(err)
		}

		switch req.Status {
		case enums.RequestStatusCancelled:
			out = *req
			return nil
		case enums.RequestStatusPending:
		default:
			return pkgerrors.New(pkgerrors.CodeStateConflict, "request can no longer be cancelled").
				WithDetails(map[string]any{"status": req.Status})
		}

		now := s.now()
		ok, err := repo.MarkCancelled(ctx, clientID, requestID, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeWrite, err, "cancel request")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "request status changed concurrently")
		}

		err = s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventRequestCancelled,
			AggregateType: enums.AggregateServiceRequest,
			AggregateID:   req.ID,
			Actor:         &outbox.ActorRef{UserID: clientID},
			Data: payloads.RequestCancelledEvent{
				RequestID:   req.ID,
				ClientID:    req.ClientID,
				VendorID:    req.VendorID,
				CancelledAt: now,
			},
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeWrite, err, "queue cancel event")
		}

		req.Status = enums.RequestStatusCancelled
		req.IsDeleted = true
		req.CancelledAt = &now
		out = *req
		changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if changed {
		s.metrics.IncCancellation()
		s.notify(ctx, clientID)
		if s.logg != nil {
			s.logg.Info(s.logg.WithField(s.logg.WithUserID(ctx, clientID), "request_id", requestID.String()), "service request cancelled")
		}
	}
	view := toView(out, "")
	return &view, nil
}

func (s *service) Get(ctx context.Context, clientID string, requestID uuid.UUID) (*RequestView, error) {
	if err := validateRef(clientID, requestID); err != nil {
		return nil, err
	}
	req, err := s.repo.FindByID(ctx, clientID, requestID)
	if err != nil {
		return nil, lookupError(err)
	}
	names := s.vendorNames(ctx, []string{req.VendorID})
	view := toView(*req, names[req.VendorID])
	return &view, nil
}

// ListPending is the non-streaming form of the live pending view.
func (s *service) ListPending(ctx context.Context, clientID string) (*Snapshot, error) {
	if strings.TrimSpace(clientID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "client id is required")
	}
	return s.pendingSnapshot(ctx, clientID)
}

func (s *service) pendingSnapshot(ctx context.Context, clientID string) (*Snapshot, error) {
	rows, err := s.repo.ListPending(ctx, clientID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeFetch, err, "list pending requests")
	}
	views := make([]RequestView, 0, len(rows))
	for _, row := range rows {
		views = append(views, toView(row, ""))
	}
	return &Snapshot{Requests: views, At: s.now()}, nil
}

func validateRef(clientID string, requestID uuid.UUID) error {
	if strings.TrimSpace(clientID) == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "client id is required")
	}
	if requestID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "request id is required")
	}
	return nil
}

// lookupError hides whether a request exists for someone else.
func lookupError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "request not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeFetch, err, "load request")
}
