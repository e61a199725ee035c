package catalog

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tracebind/passport-backend/internal/domain/identity"
)

// Product is the immutable shell owned by a brand. Everything a consumer
// would call "the product" (name, category, composition, impact) lives on
// versions; the shell only pins identity and the current-version pointer.
type Product struct {
	ID       uuid.UUID        `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	TenantID uuid.UUID        `gorm:"not null;uniqueIndex:idx_product_tenant_sku;column:tenant_id" json:"tenant_id"`
	Tenant   *identity.Tenant `gorm:"constraint:OnDelete:CASCADE;foreignKey:TenantID;references:ID" json:"tenant,omitempty"`

	SKU  string `gorm:"not null;uniqueIndex:idx_product_tenant_sku;column:sku" json:"sku"`
	GTIN string `gorm:"column:gtin" json:"gtin"`

	CurrentVersionID *uuid.UUID `gorm:"column:current_version_id" json:"current_version_id,omitempty"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Product) TableName() string { return "product" }

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
