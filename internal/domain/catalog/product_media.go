package catalog

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ProductMedia struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ProductID uuid.UUID `gorm:"not null;index;column:product_id" json:"product_id"`
	Product   *Product  `gorm:"constraint:OnDelete:CASCADE;foreignKey:ProductID;references:ID" json:"-"`

	FileURL      string `gorm:"not null;column:file_url" json:"file_url"`
	ContentType  string `gorm:"column:content_type" json:"content_type"`
	IsMain       bool   `gorm:"not null;default:false;column:is_main" json:"is_main"`
	DisplayOrder int    `gorm:"not null;default:0;column:display_order" json:"display_order"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (ProductMedia) TableName() string { return "product_media" }

func (m *ProductMedia) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
