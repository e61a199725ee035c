package library

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CertificateCategory string

const (
	CertCategoryEnvironmental CertificateCategory = "ENVIRONMENTAL"
	CertCategorySocial        CertificateCategory = "SOCIAL"
	CertCategoryQuality       CertificateCategory = "QUALITY"
	CertCategorySafety        CertificateCategory = "SAFETY"
	CertCategoryOther         CertificateCategory = "OTHER"
)

type CertificateDefinition struct {
	ID       uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	TenantID *uuid.UUID `gorm:"index;column:tenant_id" json:"tenant_id,omitempty"`

	Name            string              `gorm:"not null;column:name" json:"name"`
	Code            string              `gorm:"not null;column:code" json:"code"`
	IssuerAuthority string              `gorm:"column:issuer_authority" json:"issuer_authority"`
	Category        CertificateCategory `gorm:"not null;default:'OTHER';column:category" json:"category"`
	Description     string              `gorm:"column:description" json:"description"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (CertificateDefinition) TableName() string { return "certificate_definition" }

func (d *CertificateDefinition) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

func (d *CertificateDefinition) IsSystem() bool { return d != nil && d.TenantID == nil }
