package library

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MaterialDefinition struct {
	ID       uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	TenantID *uuid.UUID `gorm:"index;column:tenant_id" json:"tenant_id,omitempty"`

	Name                   string       `gorm:"not null;column:name" json:"name"`
	Code                   string       `gorm:"not null;column:code" json:"code"`
	Description            string       `gorm:"column:description" json:"description"`
	MaterialType           MaterialType `gorm:"not null;default:'OTHER';column:material_type" json:"material_type"`
	DefaultCarbonFootprint *float64     `gorm:"column:default_carbon_footprint" json:"default_carbon_footprint,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (MaterialDefinition) TableName() string { return "material_definition" }

func (d *MaterialDefinition) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

func (d *MaterialDefinition) IsSystem() bool { return d != nil && d.TenantID == nil }
