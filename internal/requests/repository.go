package requests

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/acertamais-backend/pkg/db/models"
	"github.com/angelmondragon/acertamais-backend/pkg/enums"
	"github.com/angelmondragon/acertamais-backend/pkg/pagination"
)

// RequestRepository defines the persistence surface of service requests.
// Every lookup is scoped by client so a user never reaches another's rows.
type RequestRepository interface {
	WithTx(tx *gorm.DB) RequestRepository
	Create(ctx context.Context, req *models.ServiceRequest) error
	FindByID(ctx context.Context, clientID string, id uuid.UUID) (*models.ServiceRequest, error)
	FindByIDForUpdate(ctx context.Context, clientID string, id uuid.UUID) (*models.ServiceRequest, error)
	FindByIdempotencyKey(ctx context.Context, clientID, key string) (*models.ServiceRequest, error)
	ListPending(ctx context.Context, clientID string) ([]models.ServiceRequest, error)
	ListByStatus(ctx context.Context, clientID string, status enums.RequestStatus, cursor *pagination.Cursor, limit int) ([]models.ServiceRequest, error)
	CountByStatus(ctx context.Context, clientID string, status enums.RequestStatus) (int64, error)
	MarkCancelled(ctx context.Context, clientID string, id uuid.UUID, at time.Time) (bool, error)
}

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) RequestRepository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) Create(ctx context.Context, req *models.ServiceRequest) error {
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(req).Error
}

func (r *Repository) FindByID(ctx context.Context, clientID string, id uuid.UUID) (*models.ServiceRequest, error) {
	var row models.ServiceRequest
	err := r.db.WithContext(ctx).
		Where("id = ? AND client_id = ?", id, clientID).
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// FindByIDForUpdate row-locks the request for the rest of the transaction.
func (r *Repository) FindByIDForUpdate(ctx context.Context, clientID string, id uuid.UUID) (*models.ServiceRequest, error) {
	var row models.ServiceRequest
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND client_id = ?", id, clientID).
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *Repository) FindByIdempotencyKey(ctx context.Context, clientID, key string) (*models.ServiceRequest, error) {
	var row models.ServiceRequest
	err := r.db.WithContext(ctx).
		Where("client_id = ? AND idempotency_key = ?", clientID, key).
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// ListPending returns the client's outstanding requests, newest first.
func (r *Repository) ListPending(ctx context.Context, clientID string) ([]models.ServiceRequest, error) {
	var rows []models.ServiceRequest
	err := r.db.WithContext(ctx).
		Where("client_id = ? AND status = ? AND is_deleted = ?", clientID, enums.RequestStatusPending, false).
		Order("created_at DESC").
		Order("id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ListByStatus pages newest first using a (created_at, id) keyset. It returns
// up to limit rows; callers pass pagination.LimitWithBuffer to detect more.
func (r *Repository) ListByStatus(ctx context.Context, clientID string, status enums.RequestStatus, cursor *pagination.Cursor, limit int) ([]models.ServiceRequest, error) {
	q := r.db.WithContext(ctx).
		Where("client_id = ? AND status = ?", clientID, status)
	if cursor != nil {
		q = q.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}
	var rows []models.ServiceRequest
	err := q.Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *Repository) CountByStatus(ctx context.Context, clientID string, status enums.RequestStatus) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ServiceRequest{}).
		Where("client_id = ? AND status = ?", clientID, status).
		Count(&count).Error
	return count, err
}

// MarkCancelled moves a pending request to cancelled and soft-deletes it. It
// reports false when the request was not pending anymore.
func (r *Repository) MarkCancelled(ctx context.Context, clientID string, id uuid.UUID, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.ServiceRequest{}).
		Where("id = ? AND client_id = ? AND status = ?", id, clientID, enums.RequestStatusPending).
		Updates(map[string]any{
			"status":       enums.RequestStatusCancelled,
			"is_deleted":   true,
			"cancelled_at": at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
