package workflow

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tracebind/passport-backend/internal/domain/identity"
)

// CollaborationComment is the request-scoped message thread. Rejection
// reasons are ordinary comments with is_rejection_reason set, so the review
// trail and the conversation render as one stream.
type CollaborationComment struct {
	ID        uuid.UUID                `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	RequestID uuid.UUID                `gorm:"not null;index;column:request_id" json:"request_id"`
	Request   *DataContributionRequest `gorm:"constraint:OnDelete:CASCADE;foreignKey:RequestID;references:ID" json:"-"`

	AuthorUserID   uuid.UUID        `gorm:"not null;column:author_user_id" json:"author_user_id"`
	AuthorUser     *identity.User   `gorm:"foreignKey:AuthorUserID;references:ID" json:"author_user,omitempty"`
	AuthorTenantID uuid.UUID        `gorm:"not null;column:author_tenant_id" json:"author_tenant_id"`
	AuthorTenant   *identity.Tenant `gorm:"foreignKey:AuthorTenantID;references:ID" json:"author_tenant,omitempty"`

	Body              string `gorm:"not null;column:body" json:"body"`
	IsRejectionReason bool   `gorm:"not null;default:false;column:is_rejection_reason" json:"is_rejection_reason"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (CollaborationComment) TableName() string { return "collaboration_comment" }

func (c *CollaborationComment) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
