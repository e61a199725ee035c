package catalog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/tracebind/passport-backend/internal/domain"
	"github.com/tracebind/passport-backend/internal/platform/logger"
)

type MediaRepo interface {
	Create(ctx context.Context, tx *gorm.DB, media []*types.ProductMedia) ([]*types.ProductMedia, error)
	GetByID(ctx context.Context, tx *gorm.DB, mediaID uuid.UUID) (*types.ProductMedia, error)
	ListByProduct(ctx context.Context, tx *gorm.DB, productID uuid.UUID) ([]*types.ProductMedia, error)
	ListByProducts(ctx context.Context, tx *gorm.DB, productIDs []uuid.UUID) ([]*types.ProductMedia, error)
	ClearMainFlag(ctx context.Context, tx *gorm.DB, productID uuid.UUID) error
	Save(ctx context.Context, tx *gorm.DB, media *types.ProductMedia) error
	Delete(ctx context.Context, tx *gorm.DB, mediaID uuid.UUID) error
}

type mediaRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMediaRepo(db *gorm.DB, baseLog *logger.Logger) MediaRepo {
	return &mediaRepo{db: db, log: baseLog.With("repo", "MediaRepo")}
}

func (r *mediaRepo) Create(ctx context.Context, tx *gorm.DB, media []*types.ProductMedia) ([]*types.ProductMedia, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(media) == 0 {
		return []*types.ProductMedia{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&media).Error; err != nil {
		return nil, err
	}
	return media, nil
}

func (r *mediaRepo) GetByID(ctx context.Context, tx *gorm.DB, mediaID uuid.UUID) (*types.ProductMedia, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if mediaID == uuid.Nil {
		return nil, nil
	}

	var row types.ProductMedia
	err := transaction.WithContext(ctx).
		Where("id = ?", mediaID).
		First(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *mediaRepo) ListByProduct(ctx context.Context, tx *gorm.DB, productID uuid.UUID) ([]*types.ProductMedia, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if productID == uuid.Nil {
		return []*types.ProductMedia{}, nil
	}

	var results []*types.ProductMedia
	if err := transaction.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("is_main DESC").
		Order("display_order ASC").
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// ListByProducts fetches the media of many products in one query, ordered so
// the first row per product is the one a card thumbnail should show.
func (r *mediaRepo) ListByProducts(ctx context.Context, tx *gorm.DB, productIDs []uuid.UUID) ([]*types.ProductMedia, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(productIDs) == 0 {
		return []*types.ProductMedia{}, nil
	}

	var results []*types.ProductMedia
	if err := transaction.WithContext(ctx).
		Where("product_id IN ?", productIDs).
		Order("product_id").
		Order("is_main DESC").
		Order("display_order ASC").
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// ClearMainFlag drops is_main on every image of the product so a new main
// can be set without tripping the one-main partial index.
func (r *mediaRepo) ClearMainFlag(ctx context.Context, tx *gorm.DB, productID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if productID == uuid.Nil {
		return nil
	}
	return transaction.WithContext(ctx).
		Model(&types.ProductMedia{}).
		Where("product_id = ? AND is_main = ?", productID, true).
		Update("is_main", false).Error
}

func (r *mediaRepo) Save(ctx context.Context, tx *gorm.DB, media *types.ProductMedia) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if media == nil {
		return nil
	}
	return transaction.WithContext(ctx).Save(media).Error
}

func (r *mediaRepo) Delete(ctx context.Context, tx *gorm.DB, mediaID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if mediaID == uuid.Nil {
		return nil
	}
	return transaction.WithContext(ctx).
		Where("id = ?", mediaID).
		Delete(&types.ProductMedia{}).Error
}
