package catalog

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Version child collections. Library references (material_id,
// certification_id, supplier_profile_id) are nullable: suppliers may report
// lines that exist in no library via the unlisted_* free-text fields.
// source_definition_id records which MaterialDefinition a line was derived
// from and survives cloning, so definition deletes can find their dependents.

type VersionMaterial struct {
	ID        uuid.UUID       `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	VersionID uuid.UUID       `gorm:"not null;index;column:version_id" json:"version_id"`
	Version   *ProductVersion `gorm:"constraint:OnDelete:CASCADE;foreignKey:VersionID;references:ID" json:"-"`

	MaterialID           *uuid.UUID `gorm:"column:material_id" json:"material_id,omitempty"`
	SourceDefinitionID   *uuid.UUID `gorm:"column:source_definition_id" json:"source_definition_id,omitempty"`
	UnlistedMaterialName string     `gorm:"column:unlisted_material_name" json:"unlisted_material_name"`

	Percentage                float64  `gorm:"not null;column:percentage" json:"percentage"`
	OriginCountry             string   `gorm:"column:origin_country" json:"origin_country"`
	TransportMethod           string   `gorm:"column:transport_method" json:"transport_method"`
	MaterialCarbonFootprintKG *float64 `gorm:"column:material_carbon_footprint_kg" json:"material_carbon_footprint_kg,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (VersionMaterial) TableName() string { return "version_material" }

func (m *VersionMaterial) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

type VersionSupplier struct {
	ID        uuid.UUID       `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	VersionID uuid.UUID       `gorm:"not null;index;column:version_id" json:"version_id"`
	Version   *ProductVersion `gorm:"constraint:OnDelete:CASCADE;foreignKey:VersionID;references:ID" json:"-"`

	SupplierProfileID       *uuid.UUID `gorm:"column:supplier_profile_id" json:"supplier_profile_id,omitempty"`
	UnlistedSupplierName    string     `gorm:"column:unlisted_supplier_name" json:"unlisted_supplier_name"`
	UnlistedSupplierCountry string     `gorm:"column:unlisted_supplier_country" json:"unlisted_supplier_country"`

	Role string `gorm:"not null;column:role" json:"role"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (VersionSupplier) TableName() string { return "version_supplier" }

func (s *VersionSupplier) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

type VersionCertification struct {
	ID        uuid.UUID       `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	VersionID uuid.UUID       `gorm:"not null;index;column:version_id" json:"version_id"`
	Version   *ProductVersion `gorm:"constraint:OnDelete:CASCADE;foreignKey:VersionID;references:ID" json:"-"`

	CertificationID         *uuid.UUID `gorm:"column:certification_id" json:"certification_id,omitempty"`
	CertificateDefinitionID *uuid.UUID `gorm:"column:certificate_definition_id" json:"certificate_definition_id,omitempty"`

	DocumentURL string     `gorm:"column:document_url" json:"document_url"`
	ContentType string     `gorm:"column:content_type" json:"content_type"`
	ValidUntil  *time.Time `gorm:"column:valid_until" json:"valid_until,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (VersionCertification) TableName() string { return "version_certification" }

func (c *VersionCertification) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
