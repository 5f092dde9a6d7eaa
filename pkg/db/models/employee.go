package models

import (
	"time"

	"github.com/angelmondragon/acertamais-backend/pkg/enums"
)

// Company is the partner employer ("empresa").
type Company struct {
	ID        string    `gorm:"column:id;type:text;primaryKey"`
	Name      string    `gorm:"column:name;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// Employee ("funcionário") is keyed by the identity provider's user id.
type Employee struct {
	ID        string               `gorm:"column:id;type:text;primaryKey"`
	Name      string               `gorm:"column:name;not null"`
	CompanyID *string              `gorm:"column:company_id;type:text;index"`
	Status    enums.EmployeeStatus `gorm:"column:status;type:text;not null;default:'active'"`
	CreatedAt time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
