package library

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MaterialType string

const (
	MaterialNatural   MaterialType = "NATURAL"
	MaterialSynthetic MaterialType = "SYNTHETIC"
	MaterialRecycled  MaterialType = "RECYCLED"
	MaterialBlend     MaterialType = "BLEND"
	MaterialOther     MaterialType = "OTHER"
)

// Material is a reference-library entry. tenant_id NULL marks a System
// Global row: visible to every tenant, mutable by none.
type Material struct {
	ID       uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	TenantID *uuid.UUID `gorm:"index;column:tenant_id" json:"tenant_id,omitempty"`

	Name         string       `gorm:"not null;column:name" json:"name"`
	Code         string       `gorm:"not null;column:code" json:"code"`
	Description  string       `gorm:"column:description" json:"description"`
	MaterialType MaterialType `gorm:"not null;default:'OTHER';column:material_type" json:"material_type"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (Material) TableName() string { return "material" }

func (m *Material) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

func (m *Material) IsSystem() bool { return m != nil && m.TenantID == nil }
