package network

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tracebind/passport-backend/internal/domain/identity"
)

// SupplierProfile is the brand's address-book entry for one supplier
// relationship, 1:1 with a TenantConnection. Connection state is
// denormalized onto it so list screens never join; every connection
// transition must run SyncFromConnection in the same transaction.
type SupplierProfile struct {
	ID       uuid.UUID        `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	TenantID uuid.UUID        `gorm:"not null;uniqueIndex:idx_profile_tenant_name;column:tenant_id" json:"tenant_id"`
	Tenant   *identity.Tenant `gorm:"constraint:OnDelete:CASCADE;foreignKey:TenantID;references:ID" json:"tenant,omitempty"`

	ConnectionID uuid.UUID         `gorm:"not null;index;column:connection_id" json:"connection_id"`
	Connection   *TenantConnection `gorm:"constraint:OnDelete:CASCADE;foreignKey:ConnectionID;references:ID" json:"connection,omitempty"`

	Name            string `gorm:"not null;uniqueIndex:idx_profile_tenant_name;column:name" json:"name"`
	Description     string `gorm:"column:description" json:"description"`
	LocationCountry string `gorm:"column:location_country" json:"location_country"`
	ContactName     string `gorm:"column:contact_name" json:"contact_name"`
	ContactEmail    string `gorm:"column:contact_email" json:"contact_email"`
	IsFavorite      bool   `gorm:"not null;default:false;column:is_favorite" json:"is_favorite"`

	// Denormalized connection state, kept in lockstep with the connection row.
	SupplierTenantID *uuid.UUID       `gorm:"column:supplier_tenant_id" json:"supplier_tenant_id,omitempty"`
	ConnectionStatus ConnectionStatus `gorm:"not null;default:'PENDING';column:connection_status" json:"connection_status"`
	RetryCount       int              `gorm:"not null;default:0;column:retry_count" json:"retry_count"`
	SupplierSlug     string           `gorm:"column:supplier_slug" json:"supplier_slug"`
	InvitationEmail  string           `gorm:"column:invitation_email" json:"invitation_email"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (SupplierProfile) TableName() string { return "supplier_profile" }

func (p *SupplierProfile) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// SyncFromConnection copies the connection's live state onto the profile.
// supplierSlug is the resolved supplier tenant's handle, empty when the
// invitee has not registered yet.
func (p *SupplierProfile) SyncFromConnection(conn *TenantConnection, supplierSlug string) {
	if p == nil || conn == nil {
		return
	}
	p.SupplierTenantID = conn.SupplierTenantID
	p.ConnectionStatus = conn.Status
	p.RetryCount = conn.RetryCount
	p.SupplierSlug = supplierSlug
	p.InvitationEmail = conn.InvitationEmail
}

// CanBeAssigned reports whether contribution requests may target this
// profile: the relationship must be live and the counterparty must exist on
// the platform.
func (p *SupplierProfile) CanBeAssigned() bool {
	return p != nil && p.ConnectionStatus == ConnectionActive && p.SupplierTenantID != nil
}
