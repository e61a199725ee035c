package auditlog

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Action string

const (
	ActionCreate Action = "CREATE"
	ActionUpdate Action = "UPDATE"
	ActionDelete Action = "DELETE"
)

// AuditLog rows are written fire-and-forget in their own transaction after
// the primary operation commits; a lost entry is logged, never surfaced.
type AuditLog struct {
	ID          uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	TenantID    uuid.UUID      `gorm:"not null;index;column:tenant_id" json:"tenant_id"`
	ActorUserID uuid.UUID      `gorm:"not null;column:actor_user_id" json:"actor_user_id"`
	EntityType  string         `gorm:"not null;index:idx_audit_entity;column:entity_type" json:"entity_type"`
	EntityID    uuid.UUID      `gorm:"not null;index:idx_audit_entity;column:entity_id" json:"entity_id"`
	Action      Action         `gorm:"not null;column:action" json:"action"`
	Changes     datatypes.JSON `gorm:"type:jsonb;column:changes" json:"changes,omitempty"`
	IPAddress   string         `gorm:"column:ip_address" json:"ip_address"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (AuditLog) TableName() string { return "audit_log" }

func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
