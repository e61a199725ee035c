package network

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/tracebind/passport-backend/internal/domain"
	"github.com/tracebind/passport-backend/internal/platform/logger"
)

type SupplierProfileRepo interface {
	Create(ctx context.Context, tx *gorm.DB, profiles []*types.SupplierProfile) ([]*types.SupplierProfile, error)
	GetByID(ctx context.Context, tx *gorm.DB, profileID uuid.UUID) (*types.SupplierProfile, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, profileIDs []uuid.UUID) ([]*types.SupplierProfile, error)
	GetByConnectionID(ctx context.Context, tx *gorm.DB, connID uuid.UUID) (*types.SupplierProfile, error)
	ListByTenant(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID) ([]*types.SupplierProfile, error)
	NameExists(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, name string, excludeID uuid.UUID) (bool, error)
	Save(ctx context.Context, tx *gorm.DB, profile *types.SupplierProfile) error
	HardDelete(ctx context.Context, tx *gorm.DB, profileID uuid.UUID) error
	CountByTenantAndStatus(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, status types.ConnectionStatus) (int64, error)
}

type supplierProfileRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSupplierProfileRepo(db *gorm.DB, baseLog *logger.Logger) SupplierProfileRepo {
	return &supplierProfileRepo{db: db, log: baseLog.With("repo", "SupplierProfileRepo")}
}

func (r *supplierProfileRepo) Create(ctx context.Context, tx *gorm.DB, profiles []*types.SupplierProfile) ([]*types.SupplierProfile, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(profiles) == 0 {
		return []*types.SupplierProfile{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&profiles).Error; err != nil {
		return nil, err
	}
	return profiles, nil
}

func (r *supplierProfileRepo) GetByID(ctx context.Context, tx *gorm.DB, profileID uuid.UUID) (*types.SupplierProfile, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if profileID == uuid.Nil {
		return nil, nil
	}

	var row types.SupplierProfile
	err := transaction.WithContext(ctx).
		Where("id = ?", profileID).
		First(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *supplierProfileRepo) GetByIDs(ctx context.Context, tx *gorm.DB, profileIDs []uuid.UUID) ([]*types.SupplierProfile, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(profileIDs) == 0 {
		return []*types.SupplierProfile{}, nil
	}

	var results []*types.SupplierProfile
	if err := transaction.WithContext(ctx).
		Where("id IN ?", profileIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *supplierProfileRepo) GetByConnectionID(ctx context.Context, tx *gorm.DB, connID uuid.UUID) (*types.SupplierProfile, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if connID == uuid.Nil {
		return nil, nil
	}

	var row types.SupplierProfile
	err := transaction.WithContext(ctx).
		Where("connection_id = ?", connID).
		First(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *supplierProfileRepo) ListByTenant(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID) ([]*types.SupplierProfile, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if tenantID == uuid.Nil {
		return nil, nil
	}

	var results []*types.SupplierProfile
	if err := transaction.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("is_favorite DESC, name ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *supplierProfileRepo) NameExists(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, name string, excludeID uuid.UUID) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	name = strings.TrimSpace(name)
	if name == "" || tenantID == uuid.Nil {
		return false, nil
	}

	q := transaction.WithContext(ctx).
		Model(&types.SupplierProfile{}).
		Where("tenant_id = ? AND LOWER(name) = LOWER(?)", tenantID, name)
	if excludeID != uuid.Nil {
		q = q.Where("id <> ?", excludeID)
	}

	var count int64
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *supplierProfileRepo) Save(ctx context.Context, tx *gorm.DB, profile *types.SupplierProfile) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if profile == nil {
		return nil
	}
	return transaction.WithContext(ctx).Save(profile).Error
}

// HardDelete removes the row for real; used when severing PENDING or
// already-DISCONNECTED relationships. Soft delete stays available through
// gorm's DeletedAt for everything else.
func (r *supplierProfileRepo) HardDelete(ctx context.Context, tx *gorm.DB, profileID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if profileID == uuid.Nil {
		return nil
	}
	return transaction.WithContext(ctx).
		Unscoped().
		Where("id = ?", profileID).
		Delete(&types.SupplierProfile{}).Error
}

func (r *supplierProfileRepo) CountByTenantAndStatus(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, status types.ConnectionStatus) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.SupplierProfile{}).
		Where("tenant_id = ? AND connection_status = ?", tenantID, status).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
