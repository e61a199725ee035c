package passport

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/tracebind/passport-backend/internal/domain"
	"github.com/tracebind/passport-backend/internal/platform/logger"
)

type PassportRepo interface {
	Create(ctx context.Context, tx *gorm.DB, passports []*types.ProductPassport) ([]*types.ProductPassport, error)
	GetByID(ctx context.Context, tx *gorm.DB, passportID uuid.UUID) (*types.ProductPassport, error)
	GetByProductID(ctx context.Context, tx *gorm.DB, productID uuid.UUID) (*types.ProductPassport, error)
	GetByPublicUID(ctx context.Context, tx *gorm.DB, publicUID string) (*types.ProductPassport, error)
	CountPublishedByTenant(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID) (int64, error)
	Save(ctx context.Context, tx *gorm.DB, passport *types.ProductPassport) error
}

type passportRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPassportRepo(db *gorm.DB, baseLog *logger.Logger) PassportRepo {
	return &passportRepo{db: db, log: baseLog.With("repo", "PassportRepo")}
}

func (r *passportRepo) Create(ctx context.Context, tx *gorm.DB, passports []*types.ProductPassport) ([]*types.ProductPassport, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(passports) == 0 {
		return []*types.ProductPassport{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&passports).Error; err != nil {
		return nil, err
	}
	return passports, nil
}

func (r *passportRepo) GetByID(ctx context.Context, tx *gorm.DB, passportID uuid.UUID) (*types.ProductPassport, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if passportID == uuid.Nil {
		return nil, nil
	}

	var row types.ProductPassport
	err := transaction.WithContext(ctx).
		Where("id = ?", passportID).
		First(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *passportRepo) GetByProductID(ctx context.Context, tx *gorm.DB, productID uuid.UUID) (*types.ProductPassport, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if productID == uuid.Nil {
		return nil, nil
	}

	var row types.ProductPassport
	err := transaction.WithContext(ctx).
		Where("product_id = ?", productID).
		First(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// GetByPublicUID serves the unauthenticated passport page, keyed by the UID
// printed on the QR label.
func (r *passportRepo) GetByPublicUID(ctx context.Context, tx *gorm.DB, publicUID string) (*types.ProductPassport, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	publicUID = strings.TrimSpace(publicUID)
	if publicUID == "" {
		return nil, nil
	}

	var row types.ProductPassport
	err := transaction.WithContext(ctx).
		Preload("Product").
		Where("public_uid = ?", publicUID).
		First(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *passportRepo) CountPublishedByTenant(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.ProductPassport{}).
		Joins("JOIN product ON product.id = product_passport.product_id").
		Where("product.tenant_id = ? AND product_passport.status = ?", tenantID, types.PassportPublished).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *passportRepo) Save(ctx context.Context, tx *gorm.DB, passport *types.ProductPassport) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if passport == nil {
		return nil
	}
	return transaction.WithContext(ctx).Save(passport).Error
}
