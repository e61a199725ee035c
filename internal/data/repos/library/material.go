package library

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/tracebind/passport-backend/internal/domain"
	"github.com/tracebind/passport-backend/internal/platform/logger"
)

// Library repos all answer against the visibility set of the acting tenant:
// System rows (tenant_id IS NULL) plus the tenant's own rows. Uniqueness
// probes span that same set so a tenant can neither shadow a System entry
// nor duplicate its own.

type MaterialRepo interface {
	Create(ctx context.Context, tx *gorm.DB, rows []*types.Material) ([]*types.Material, error)
	GetByID(ctx context.Context, tx *gorm.DB, materialID uuid.UUID) (*types.Material, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, materialIDs []uuid.UUID) ([]*types.Material, error)
	ListVisible(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, search string) ([]*types.Material, error)
	FindVisibleByNameOrCode(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, name, code string, excludeID uuid.UUID) (*types.Material, error)
	Save(ctx context.Context, tx *gorm.DB, row *types.Material) error
	Delete(ctx context.Context, tx *gorm.DB, materialID uuid.UUID) error
}

type materialRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMaterialRepo(db *gorm.DB, baseLog *logger.Logger) MaterialRepo {
	return &materialRepo{db: db, log: baseLog.With("repo", "MaterialRepo")}
}

func (r *materialRepo) Create(ctx context.Context, tx *gorm.DB, rows []*types.Material) ([]*types.Material, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(rows) == 0 {
		return []*types.Material{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *materialRepo) GetByID(ctx context.Context, tx *gorm.DB, materialID uuid.UUID) (*types.Material, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if materialID == uuid.Nil {
		return nil, nil
	}

	var row types.Material
	err := transaction.WithContext(ctx).
		Where("id = ?", materialID).
		First(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *materialRepo) GetByIDs(ctx context.Context, tx *gorm.DB, materialIDs []uuid.UUID) ([]*types.Material, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(materialIDs) == 0 {
		return []*types.Material{}, nil
	}

	var results []*types.Material
	if err := transaction.WithContext(ctx).
		Where("id IN ?", materialIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *materialRepo) ListVisible(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, search string) ([]*types.Material, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	q := transaction.WithContext(ctx).
		Where("tenant_id IS NULL OR tenant_id = ?", tenantID).
		Order("name ASC")

	search = strings.ToLower(strings.TrimSpace(search))
	if search != "" {
		pattern := "%" + search + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(code) LIKE ?", pattern, pattern)
	}

	var results []*types.Material
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *materialRepo) FindVisibleByNameOrCode(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, name, code string, excludeID uuid.UUID) (*types.Material, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	name = strings.ToLower(strings.TrimSpace(name))
	code = strings.ToLower(strings.TrimSpace(code))
	if name == "" && code == "" {
		return nil, nil
	}

	q := transaction.WithContext(ctx).
		Where("tenant_id IS NULL OR tenant_id = ?", tenantID).
		Where("LOWER(name) = ? OR LOWER(code) = ?", name, code)
	if excludeID != uuid.Nil {
		q = q.Where("id <> ?", excludeID)
	}

	var row types.Material
	err := q.First(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *materialRepo) Save(ctx context.Context, tx *gorm.DB, row *types.Material) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if row == nil {
		return nil
	}
	return transaction.WithContext(ctx).Save(row).Error
}

func (r *materialRepo) Delete(ctx context.Context, tx *gorm.DB, materialID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if materialID == uuid.Nil {
		return nil
	}
	return transaction.WithContext(ctx).
		Where("id = ?", materialID).
		Delete(&types.Material{}).Error
}
