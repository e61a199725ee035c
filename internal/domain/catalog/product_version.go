package catalog

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type VersionStatus string

const (
	VersionWorkingDraft     VersionStatus = "WORKING_DRAFT"
	VersionSubmitted        VersionStatus = "SUBMITTED"
	VersionApproved         VersionStatus = "APPROVED"
	VersionRevisionRequired VersionStatus = "REVISION_REQUIRED"
	VersionRejected         VersionStatus = "REJECTED"
	VersionCancelled        VersionStatus = "CANCELLED"
)

// Editable reports whether a version in this status may still receive draft
// saves. Everything past SUBMITTED is frozen.
func (s VersionStatus) Editable() bool {
	return s == VersionWorkingDraft
}

// ProductVersion is an immutable-once-submitted snapshot of product data.
// VersionSequence groups re-assignment rounds; Revision increments inside a
// round each time a reviewer rejects and the snapshot is cloned.
type ProductVersion struct {
	ID                uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ProductID         uuid.UUID `gorm:"not null;index;uniqueIndex:idx_version_product_seq_rev;column:product_id" json:"product_id"`
	Product           *Product  `gorm:"constraint:OnDelete:CASCADE;foreignKey:ProductID;references:ID" json:"product,omitempty"`
	CreatedByTenantID uuid.UUID `gorm:"not null;column:created_by_tenant_id" json:"created_by_tenant_id"`

	VersionSequence int           `gorm:"not null;default:1;uniqueIndex:idx_version_product_seq_rev;column:version_sequence" json:"version_sequence"`
	Revision        int           `gorm:"not null;default:1;uniqueIndex:idx_version_product_seq_rev;column:revision" json:"revision"`
	VersionName     string        `gorm:"column:version_name" json:"version_name"`
	Status          VersionStatus `gorm:"not null;default:'WORKING_DRAFT';column:status" json:"status"`
	ParentVersionID *uuid.UUID    `gorm:"column:parent_version_id" json:"parent_version_id,omitempty"`

	// Presentation scalars.
	ProductName string `gorm:"column:product_name" json:"product_name"`
	Category    string `gorm:"column:category" json:"category"`
	Description string `gorm:"column:description" json:"description"`

	// Environmental scalars.
	ManufacturingCountry   string   `gorm:"column:manufacturing_country" json:"manufacturing_country"`
	TotalCarbonFootprintKG *float64 `gorm:"column:total_carbon_footprint_kg" json:"total_carbon_footprint_kg,omitempty"`
	TotalWaterUsageLiters  *float64 `gorm:"column:total_water_usage_liters" json:"total_water_usage_liters,omitempty"`
	TotalEnergyMJ          *float64 `gorm:"column:total_energy_mj" json:"total_energy_mj,omitempty"`
	RecyclingInstructions  string   `gorm:"column:recycling_instructions" json:"recycling_instructions"`
	RecyclabilityClass     string   `gorm:"column:recyclability_class" json:"recyclability_class"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (ProductVersion) TableName() string { return "product_version" }

func (v *ProductVersion) BeforeCreate(tx *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}
