package passport

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tracebind/passport-backend/internal/domain/catalog"
)

type PassportStatus string

const (
	PassportDraft     PassportStatus = "DRAFT"
	PassportPublished PassportStatus = "PUBLISHED"
	PassportArchived  PassportStatus = "ARCHIVED"
)

// ProductPassport is the public face of a product, 1:1 with the shell.
// public_uid is the stable identifier baked into QR labels; the published
// version pointer controls what the unauthenticated view renders.
type ProductPassport struct {
	ID        uuid.UUID        `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ProductID uuid.UUID        `gorm:"not null;uniqueIndex;column:product_id" json:"product_id"`
	Product   *catalog.Product `gorm:"constraint:OnDelete:CASCADE;foreignKey:ProductID;references:ID" json:"product,omitempty"`

	PublicUID          string         `gorm:"uniqueIndex;not null;column:public_uid" json:"public_uid"`
	Status             PassportStatus `gorm:"not null;default:'DRAFT';column:status" json:"status"`
	PublishedVersionID *uuid.UUID     `gorm:"column:published_version_id" json:"published_version_id,omitempty"`

	TargetURL    string `gorm:"column:target_url" json:"target_url"`
	QRLabelURL   string `gorm:"column:qr_label_url" json:"qr_label_url"`
	LabelVersion int    `gorm:"not null;default:0;column:label_version" json:"label_version"`

	PublishedAt *time.Time `gorm:"column:published_at" json:"published_at,omitempty"`
	CreatedAt   time.Time  `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"not null;default:now()" json:"updated_at"`
}

func (ProductPassport) TableName() string { return "product_passport" }

func (p *ProductPassport) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// NewPublicUID mints the identifier printed on QR labels: 96 bits of
// crypto-random, URL-safe without padding.
func NewPublicUID() (string, error) {
	buf := make([]byte, 12)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate public uid: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
