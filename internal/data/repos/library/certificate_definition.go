package library

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/tracebind/passport-backend/internal/domain"
	"github.com/tracebind/passport-backend/internal/platform/logger"
)

type CertificateDefinitionRepo interface {
	Create(ctx context.Context, tx *gorm.DB, rows []*types.CertificateDefinition) ([]*types.CertificateDefinition, error)
	GetByID(ctx context.Context, tx *gorm.DB, definitionID uuid.UUID) (*types.CertificateDefinition, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, definitionIDs []uuid.UUID) ([]*types.CertificateDefinition, error)
	ListVisible(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, search string) ([]*types.CertificateDefinition, error)
	FindVisibleByNameOrCode(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, name, code string, excludeID uuid.UUID) (*types.CertificateDefinition, error)
	Save(ctx context.Context, tx *gorm.DB, row *types.CertificateDefinition) error
	Delete(ctx context.Context, tx *gorm.DB, definitionID uuid.UUID) error
}

type certificateDefinitionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCertificateDefinitionRepo(db *gorm.DB, baseLog *logger.Logger) CertificateDefinitionRepo {
	return &certificateDefinitionRepo{db: db, log: baseLog.With("repo", "CertificateDefinitionRepo")}
}

func (r *certificateDefinitionRepo) Create(ctx context.Context, tx *gorm.DB, rows []*types.CertificateDefinition) ([]*types.CertificateDefinition, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(rows) == 0 {
		return []*types.CertificateDefinition{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *certificateDefinitionRepo) GetByID(ctx context.Context, tx *gorm.DB, definitionID uuid.UUID) (*types.CertificateDefinition, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if definitionID == uuid.Nil {
		return nil, nil
	}

	var row types.CertificateDefinition
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

func (r *certificateDefinitionRepo) GetByIDs(ctx context.Context, tx *gorm.DB, definitionIDs []uuid.UUID) ([]*types.CertificateDefinition, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(definitionIDs) == 0 {
		return []*types.CertificateDefinition{}, nil
	}

	var results []*types.CertificateDefinition
	if err := transaction.WithContext(ctx).
		Where("id IN ?", definitionIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *certificateDefinitionRepo) ListVisible(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, search string) ([]*types.CertificateDefinition, error) {
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

	var results []*types.CertificateDefinition
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *certificateDefinitionRepo) FindVisibleByNameOrCode(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, name, code string, excludeID uuid.UUID) (*types.CertificateDefinition, error) {
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

	var row types.CertificateDefinition
	err := q.First(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *certificateDefinitionRepo) Save(ctx context.Context, tx *gorm.DB, row *types.CertificateDefinition) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if row == nil {
		return nil
	}
	return transaction.WithContext(ctx).Save(row).Error
}

func (r *certificateDefinitionRepo) Delete(ctx context.Context, tx *gorm.DB, definitionID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if definitionID == uuid.Nil {
		return nil
	}
	return transaction.WithContext(ctx).
		Where("id = ?", definitionID).
		Delete(&types.CertificateDefinition{}).Error
}
