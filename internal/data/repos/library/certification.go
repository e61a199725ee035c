package library

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/tracebind/passport-backend/internal/domain"
	"github.com/tracebind/passport-backend/internal/platform/logger"
)

type CertificationRepo interface {
	Create(ctx context.Context, tx *gorm.DB, rows []*types.Certification) ([]*types.Certification, error)
	GetByID(ctx context.Context, tx *gorm.DB, certificationID uuid.UUID) (*types.Certification, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, certificationIDs []uuid.UUID) ([]*types.Certification, error)
	ListVisible(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, search string) ([]*types.Certification, error)
	FindVisibleByNameOrCode(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, name, code string, excludeID uuid.UUID) (*types.Certification, error)
	Save(ctx context.Context, tx *gorm.DB, row *types.Certification) error
	Delete(ctx context.Context, tx *gorm.DB, certificationID uuid.UUID) error
}

type certificationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCertificationRepo(db *gorm.DB, baseLog *logger.Logger) CertificationRepo {
	return &certificationRepo{db: db, log: baseLog.With("repo", "CertificationRepo")}
}

func (r *certificationRepo) Create(ctx context.Context, tx *gorm.DB, rows []*types.Certification) ([]*types.Certification, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(rows) == 0 {
		return []*types.Certification{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *certificationRepo) GetByID(ctx context.Context, tx *gorm.DB, certificationID uuid.UUID) (*types.Certification, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if certificationID == uuid.Nil {
		return nil, nil
	}

	var row types.Certification
	err := transaction.WithContext(ctx).
		Where("id = ?", certificationID).
		First(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *certificationRepo) GetByIDs(ctx context.Context, tx *gorm.DB, certificationIDs []uuid.UUID) ([]*types.Certification, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(certificationIDs) == 0 {
		return []*types.Certification{}, nil
	}

	var results []*types.Certification
	if err := transaction.WithContext(ctx).
		Where("id IN ?", certificationIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *certificationRepo) ListVisible(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, search string) ([]*types.Certification, error) {
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

	var results []*types.Certification
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *certificationRepo) FindVisibleByNameOrCode(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, name, code string, excludeID uuid.UUID) (*types.Certification, error) {
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

	var row types.Certification
	err := q.First(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *certificationRepo) Save(ctx context.Context, tx *gorm.DB, row *types.Certification) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if row == nil {
		return nil
	}
	return transaction.WithContext(ctx).Save(row).Error
}

func (r *certificationRepo) Delete(ctx context.Context, tx *gorm.DB, certificationID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if certificationID == uuid.Nil {
		return nil
	}
	return transaction.WithContext(ctx).
		Where("id = ?", certificationID).
		Delete(&types.Certification{}).Error
}
