package network

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tracebind/passport-backend/internal/domain/identity"
)

type ConnectionStatus string

const (
	ConnectionPending      ConnectionStatus = "PENDING"
	ConnectionActive       ConnectionStatus = "ACTIVE"
	ConnectionRejected     ConnectionStatus = "REJECTED"
	ConnectionSuspended    ConnectionStatus = "SUSPENDED"
	ConnectionDisconnected ConnectionStatus = "DISCONNECTED"
)

// CanReinvite reports whether a connection in this status may be re-sent.
// The retry budget is checked separately.
func (s ConnectionStatus) CanReinvite() bool {
	return s == ConnectionPending || s == ConnectionRejected
}

// MaxInviteRetries bounds re-invitations per connection. The counter starts
// at 0 on the initial invite, so the third reinvite lands on 3 and the
// fourth is refused.
const MaxInviteRetries = 3

// TenantConnection is the brand↔supplier relationship record. The
// invitation token is single-use: present only while the invite is open,
// rotated on reinvite, and nulled the moment the invite is consumed or the
// relationship is severed.
type TenantConnection struct {
	ID                uuid.UUID        `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	RequesterTenantID uuid.UUID        `gorm:"not null;index;column:requester_tenant_id" json:"requester_tenant_id"`
	RequesterTenant   *identity.Tenant `gorm:"constraint:OnDelete:CASCADE;foreignKey:RequesterTenantID;references:ID" json:"requester_tenant,omitempty"`
	SupplierTenantID  *uuid.UUID       `gorm:"index;column:supplier_tenant_id" json:"supplier_tenant_id,omitempty"`
	SupplierTenant    *identity.Tenant `gorm:"foreignKey:SupplierTenantID;references:ID" json:"supplier_tenant,omitempty"`

	InvitationEmail string           `gorm:"column:invitation_email" json:"invitation_email"`
	InvitationToken *string          `gorm:"uniqueIndex;column:invitation_token" json:"-"`
	Status          ConnectionStatus `gorm:"not null;default:'PENDING';column:status" json:"status"`
	RetryCount      int              `gorm:"not null;default:0;column:retry_count" json:"retry_count"`
	RequestNote     string           `gorm:"column:request_note" json:"request_note"`
	RespondedAt     *time.Time       `gorm:"column:responded_at" json:"responded_at,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (TenantConnection) TableName() string { return "tenant_connection" }

// NewInvitationToken returns a crypto-random single-use invite token:
// 32 bytes, base64 URL-safe without padding.
func NewInvitationToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate invitation token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func (c *TenantConnection) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
