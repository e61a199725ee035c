package workflow

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tracebind/passport-backend/internal/domain/catalog"
	"github.com/tracebind/passport-backend/internal/domain/identity"
	"github.com/tracebind/passport-backend/internal/domain/network"
)

type RequestStatus string

const (
	RequestSent             RequestStatus = "SENT"
	RequestInProgress       RequestStatus = "IN_PROGRESS"
	RequestSubmitted        RequestStatus = "SUBMITTED"
	RequestChangesRequested RequestStatus = "CHANGES_REQUESTED"
	RequestCompleted        RequestStatus = "COMPLETED"
	RequestDeclined         RequestStatus = "DECLINED"
	RequestCancelled        RequestStatus = "CANCELLED"
)

// Terminal reports whether a request has left the workflow for good.
func (s RequestStatus) Terminal() bool {
	switch s {
	case RequestCompleted, RequestDeclined, RequestCancelled:
		return true
	default:
		return false
	}
}

// SupplierEditable reports whether the supplier may still write draft data
// against the request's current version.
func (s RequestStatus) SupplierEditable() bool {
	switch s {
	case RequestSent, RequestInProgress, RequestChangesRequested:
		return true
	default:
		return false
	}
}

// Cancellable reports whether the brand may withdraw the request. Submitted
// work awaits review and completed/cancelled rounds stay closed.
func (s RequestStatus) Cancellable() bool {
	switch s {
	case RequestCompleted, RequestSubmitted, RequestCancelled:
		return false
	default:
		return true
	}
}

// NonTerminalStatuses is the set used for the one-open-request-per-
// (product, profile) guard.
func NonTerminalStatuses() []RequestStatus {
	return []RequestStatus{RequestSent, RequestInProgress, RequestSubmitted, RequestChangesRequested}
}

// DataContributionRequest drives the supplier contribution workflow.
// current_version_id follows the editable snapshot as rejection clones are
// minted; initial_version_id pins the round's origin forever.
type DataContributionRequest struct {
	ID uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`

	BrandTenantID     uuid.UUID                `gorm:"not null;index;column:brand_tenant_id" json:"brand_tenant_id"`
	BrandTenant       *identity.Tenant         `gorm:"foreignKey:BrandTenantID;references:ID" json:"brand_tenant,omitempty"`
	SupplierTenantID  uuid.UUID                `gorm:"not null;index;column:supplier_tenant_id" json:"supplier_tenant_id"`
	SupplierTenant    *identity.Tenant         `gorm:"foreignKey:SupplierTenantID;references:ID" json:"supplier_tenant,omitempty"`
	SupplierProfileID uuid.UUID                `gorm:"not null;index;column:supplier_profile_id" json:"supplier_profile_id"`
	SupplierProfile   *network.SupplierProfile `gorm:"foreignKey:SupplierProfileID;references:ID" json:"supplier_profile,omitempty"`

	ProductID uuid.UUID        `gorm:"not null;index;column:product_id" json:"product_id"`
	Product   *catalog.Product `gorm:"constraint:OnDelete:CASCADE;foreignKey:ProductID;references:ID" json:"product,omitempty"`

	CurrentVersionID uuid.UUID               `gorm:"not null;column:current_version_id" json:"current_version_id"`
	CurrentVersion   *catalog.ProductVersion `gorm:"foreignKey:CurrentVersionID;references:ID" json:"current_version,omitempty"`
	InitialVersionID uuid.UUID               `gorm:"not null;column:initial_version_id" json:"initial_version_id"`

	Status  RequestStatus `gorm:"not null;default:'SENT';column:status" json:"status"`
	DueDate *time.Time    `gorm:"column:due_date" json:"due_date,omitempty"`
	Note    string        `gorm:"column:note" json:"note"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (DataContributionRequest) TableName() string { return "data_contribution_request" }

func (r *DataContributionRequest) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
