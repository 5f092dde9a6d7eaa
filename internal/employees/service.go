package employees

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/angelmondragon/acertamais-backend/pkg/db/models"
	"github.com/angelmondragon/acertamais-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/acertamais-backend/pkg/errors"
	"github.com/angelmondragon/acertamais-backend/pkg/logger"
)

// DefaultDisplayName is used on requests when the employee has no name on file.
const DefaultDisplayName = "Cliente"

type repository interface {
	FindByID(ctx context.Context, id string) (*models.Employee, error)
	FindCompany(ctx context.Context, id string) (*models.Company, error)
	UpdateStatus(ctx context.Context, id string, status enums.EmployeeStatus) (bool, error)
}

// Profile is the employee view served on /me.
type Profile struct {
	ID          string               `json:"id"`
	Name        string               `json:"name"`
	CompanyID   *string              `json:"company_id,omitempty"`
	CompanyName string               `json:"company_name,omitempty"`
	Status      enums.EmployeeStatus `json:"status"`
}

type Service interface {
	Profile(ctx context.Context, userID string) (*Profile, error)
	DisplayName(ctx context.Context, userID string) (string, error)
	Status(ctx context.Context, userID string) (enums.EmployeeStatus, error)
	Disable(ctx context.Context, userID string) error
}

type service struct {
	repo repository
	logg *logger.Logger
}

func NewService(repo repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("employee repository required")
	}
	return &service{repo: repo, logg: logg}, nil
}

func (s *service) Profile(ctx context.Context, userID string) (*Profile, error) {
	emp, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if emp == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "employee not found")
	}

	profile := &Profile{
		ID:        emp.ID,
		Name:      emp.Name,
		CompanyID: emp.CompanyID,
		Status:    emp.Status,
	}
	if emp.CompanyID != nil && *emp.CompanyID != "" {
		company, err := s.repo.FindCompany(ctx, *emp.CompanyID)
		switch {
		case err == nil:
			profile.CompanyName = company.Name
		case errors.Is(err, gorm.ErrRecordNotFound):
		default:
			return nil, pkgerrors.Wrap(pkgerrors.CodeFetch, err, "load company")
		}
	}
	return profile, nil
}

// DisplayName never fails on a missing record; it falls back to DefaultDisplayName.
func (s *service) DisplayName(ctx context.Context, userID string) (string, error) {
	emp, err := s.load(ctx, userID)
	if err != nil {
		return "", err
	}
	if emp == nil || strings.TrimSpace(emp.Name) == "" {
		return DefaultDisplayName, nil
	}
	return strings.TrimSpace(emp.Name), nil
}

// Status treats users without an employee record as active.
func (s *service) Status(ctx context.Context, userID string) (enums.EmployeeStatus, error) {
	emp, err := s.load(ctx, userID)
	if err != nil {
		return "", err
	}
	if emp == nil {
		return enums.EmployeeStatusActive, nil
	}
	return emp.Status, nil
}

// Disable is idempotent.
func (s *service) Disable(ctx context.Context, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user id is required")
	}
	found, err := s.repo.UpdateStatus(ctx, userID, enums.EmployeeStatusDisabled)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeWrite, err, "disable employee")
	}
	if !found {
		return pkgerrors.New(pkgerrors.CodeNotFound, "employee not found")
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithUserID(ctx, userID), "employee account disabled")
	}
	return nil
}

// load returns nil without error when the employee does not exist.
func (s *service) load(ctx context.Context, userID string) (*models.Employee, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user id is required")
	}
	emp, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeFetch, err, "load employee")
	}
	return emp, nil
}
