package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/acertamais-backend/internal/catalog"
	"github.com/angelmondragon/acertamais-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/acertamais-backend/pkg/errors"
	"github.com/angelmondragon/acertamais-backend/pkg/logger"
	"github.com/angelmondragon/acertamais-backend/pkg/metrics"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type serviceLoader interface {
	GetService(ctx context.Context, id string) (*catalog.ServiceDTO, error)
}

// View is the cart as returned to clients.
type View struct {
	Items    []models.CartItem `json:"items"`
	VendorID string            `json:"vendor_id,omitempty"`
	Total    decimal.Decimal   `json:"total"`
}

// Service exposes cart operations scoped to one user.
type Service interface {
	Load(ctx context.Context, userID string) (*View, error)
	Add(ctx context.Context, userID, serviceID string) (*models.CartItem, error)
	SetQuantity(ctx context.Context, userID string, itemID uuid.UUID, quantity int) (*models.CartItem, error)
	Remove(ctx context.Context, userID string, itemID uuid.UUID) error
}

type service struct {
	repo    CartRepository
	tx      txRunner
	catalog serviceLoader
	metrics *metrics.RequestMetrics
	logg    *logger.Logger
}

func NewService(repo CartRepository, tx txRunner, catalog serviceLoader, m *metrics.RequestMetrics, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("catalog loader required")
	}
	return &service{repo: repo, tx: tx, catalog: catalog, metrics: m, logg: logg}, nil
}

func (s *service) Load(ctx context.Context, userID string) (*View, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	items, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeFetch, err, "load cart")
	}
	return newView(NewAggregate(items)), nil
}

// Add snapshots the catalog service into a new item with quantity 1. The
// vendor check and the insert run under the cart lock in one transaction.
func (s *service) Add(ctx context.Context, userID, serviceID string) (*models.CartItem, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	serviceID = strings.TrimSpace(serviceID)
	if serviceID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "service id is required")
	}

	svc, err := s.catalog.GetService(ctx, serviceID)
	if err != nil {
		return nil, err
	}

	item := models.CartItem{
		ID:          uuid.New(),
		UserID:      userID,
		ServiceID:   svc.ID,
		VendorID:    svc.VendorID,
		Name:        svc.Name,
		Description: svc.Description,
		UnitPrice:   svc.Price,
		VendorName:  svc.VendorName,
		ImageURL:    svc.ImageURL,
		Quantity:    1,
	}

	err = s.inCart(ctx, userID, func(repo CartRepository, agg *Aggregate) error {
		if err := agg.Add(item); err != nil {
			return err
		}
		if err := repo.Create(ctx, &item); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeWrite, err, "add cart item")
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrVendorConflict) {
			s.metrics.IncCartRejection("vendor_conflict")
			if s.logg != nil {
				logCtx := s.logg.WithFields(ctx, map[string]any{"service_id": serviceID, "vendor_id": item.VendorID})
				s.logg.Warn(logCtx, "cart add rejected: vendor conflict")
			}
		}
		return nil, err
	}
	return &item, nil
}

// SetQuantity ignores n < 1 and returns the item unchanged.
func (s *service) SetQuantity(ctx context.Context, userID string, itemID uuid.UUID, quantity int) (*models.CartItem, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if itemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item id is required")
	}

	var item models.CartItem
	err := s.inCart(ctx, userID, func(repo CartRepository, agg *Aggregate) error {
		updated, changed, err := agg.SetQuantity(itemID, quantity)
		if err != nil {
			return err
		}
		item = updated
		if !changed {
			return nil
		}
		found, err := repo.UpdateQuantity(ctx, userID, itemID, updated.Quantity)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeWrite, err, "update cart item")
		}
		if !found {
			return ErrItemNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// Remove is idempotent; a missing item is not an error.
func (s *service) Remove(ctx context.Context, userID string, itemID uuid.UUID) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	if itemID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "item id is required")
	}
	return s.inCart(ctx, userID, func(repo CartRepository, agg *Aggregate) error {
		if !agg.Remove(itemID) {
			return nil
		}
		if err := repo.Delete(ctx, userID, itemID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeWrite, err, "remove cart item")
		}
		return nil
	})
}

// inCart locks the user's cart, loads it and hands fn the tx-bound repository.
func (s *service) inCart(ctx context.Context, userID string, fn func(CartRepository, *Aggregate) error) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.LockCart(ctx, userID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeFetch, err, "lock cart")
		}
		items, err := repo.ListByUser(ctx, userID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeFetch, err, "load cart")
		}
		return fn(repo, NewAggregate(items))
	})
}

func newView(agg *Aggregate) *View {
	return &View{
		Items:    agg.Items(),
		VendorID: agg.VendorID(),
		Total:    agg.Total(),
	}
}

func requireUser(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user id is required")
	}
	return nil
}
