package library

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Certification struct {
	ID       uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	TenantID *uuid.UUID `gorm:"index;column:tenant_id" json:"tenant_id,omitempty"`

	Name   string `gorm:"not null;column:name" json:"name"`
	Code   string `gorm:"not null;column:code" json:"code"`
	Issuer string `gorm:"column:issuer" json:"issuer"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (Certification) TableName() string { return "certification" }

func (c *Certification) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

func (c *Certification) IsSystem() bool { return c != nil && c.TenantID == nil }
