package identity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TenantType string

const (
	TenantTypeBrand       TenantType = "BRAND"
	TenantTypeSupplier    TenantType = "SUPPLIER"
	TenantTypePersonal    TenantType = "PERSONAL"
	TenantTypeHybrid      TenantType = "HYBRID"
	TenantTypeSystemAdmin TenantType = "SYSTEM_ADMIN"
)

// CanSupply reports whether a tenant of this type may accept supplier
// invitations and appear in the supplier directory.
func (t TenantType) CanSupply() bool {
	return t == TenantTypeSupplier || t == TenantTypeHybrid
}

type TenantStatus string

const (
	TenantStatusActive    TenantStatus = "ACTIVE"
	TenantStatusSuspended TenantStatus = "SUSPENDED"
	TenantStatusArchived  TenantStatus = "ARCHIVED"
)

// Tenant is the unit of data isolation. Type is fixed at registration.
type Tenant struct {
	ID              uuid.UUID    `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Name            string       `gorm:"not null;column:name" json:"name"`
	Slug            string       `gorm:"uniqueIndex;not null;column:slug" json:"slug"`
	Type            TenantType   `gorm:"not null;column:type" json:"type"`
	Status          TenantStatus `gorm:"not null;default:'ACTIVE';column:status" json:"status"`
	LocationCountry string       `gorm:"column:location_country" json:"location_country"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Tenant) TableName() string { return "tenant" }

func (t *Tenant) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
