package library

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/tracebind/passport-backend/internal/domain"
	"github.com/tracebind/passport-backend/internal/platform/logger"
)

type MaterialDefinitionRepo interface {
	Create(ctx context.Context, tx *gorm.DB, rows []*types.MaterialDefinition) ([]*types.MaterialDefinition, error)
	GetByID(ctx context.Context, tx *gorm.DB, definitionID uuid.UUID) (*types.MaterialDefinition, error)
	ListVisible(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, search string) ([]*types.MaterialDefinition, error)
	FindVisibleByNameOrCode(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, name, code string, excludeID uuid.UUID) (*types.MaterialDefinition, error)
	Save(ctx context.Context, tx *gorm.DB, row *types.MaterialDefinition) error
	Delete(ctx context.Context, tx *gorm.DB, definitionID uuid.UUID) error
}

type materialDefinitionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMaterialDefinitionRepo(db *gorm.DB, baseLog *logger.Logger) MaterialDefinitionRepo {
	return &materialDefinitionRepo{db: db, log: baseLog.With("repo", "MaterialDefinitionRepo")}
}

func (r *materialDefinitionRepo) Create(ctx context.Context, tx *gorm.DB, rows []*types.MaterialDefinition) ([]*types.MaterialDefinition, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(rows) == 0 {
		return []*types.MaterialDefinition{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *materialDefinitionRepo) GetByID(ctx context.Context, tx *gorm.DB, definitionID uuid.UUID) (*types.MaterialDefinition, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if definitionID == uuid.Nil {
		return nil, nil
	}

	var row types.MaterialDefinition
	err := transaction.WithContext(ctx).
		Where("id = ?", definitionID).
		First(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *materialDefinitionRepo) ListVisible(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, search string) ([]*types.MaterialDefinition, error) {
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

	var results []*types.MaterialDefinition
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *materialDefinitionRepo) FindVisibleByNameOrCode(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, name, code string, excludeID uuid.UUID) (*types.MaterialDefinition, error) {
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

	var row types.MaterialDefinition
	err := q.First(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *materialDefinitionRepo) Save(ctx context.Context, tx *gorm.DB, row *types.MaterialDefinition) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if row == nil {
		return nil
	}
	return transaction.WithContext(ctx).Save(row).Error
}

func (r *materialDefinitionRepo) Delete(ctx context.Context, tx *gorm.DB, definitionID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if definitionID == uuid.Nil {
		return nil
	}
	return transaction.WithContext(ctx).
		Where("id = ?", definitionID).
		Delete(&types.MaterialDefinition{}).Error
}
