package workflow

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/tracebind/passport-backend/internal/domain"
	"github.com/tracebind/passport-backend/internal/platform/logger"
)

type RequestRepo interface {
	Create(ctx context.Context, tx *gorm.DB, requests []*types.DataContributionRequest) ([]*types.DataContributionRequest, error)
	GetByID(ctx context.Context, tx *gorm.DB, requestID uuid.UUID) (*types.DataContributionRequest, error)
	ListByBrandTenant(ctx context.Context, tx *gorm.DB, brandTenantID uuid.UUID, statuses []types.RequestStatus) ([]*types.DataContributionRequest, error)
	ListBySupplierTenant(ctx context.Context, tx *gorm.DB, supplierTenantID uuid.UUID, statuses []types.RequestStatus) ([]*types.DataContributionRequest, error)
	ListByProduct(ctx context.Context, tx *gorm.DB, productID uuid.UUID) ([]*types.DataContributionRequest, error)
	FindOpenByProductAndProfile(ctx context.Context, tx *gorm.DB, productID, profileID uuid.UUID) (*types.DataContributionRequest, error)
	CountForBrand(ctx context.Context, tx *gorm.DB, brandTenantID uuid.UUID, statuses []types.RequestStatus) (int64, error)
	CountForSupplier(ctx context.Context, tx *gorm.DB, supplierTenantID uuid.UUID, statuses []types.RequestStatus) (int64, error)
	CountDueBefore(ctx context.Context, tx *gorm.DB, supplierTenantID uuid.UUID, before time.Time) (int64, error)
	Save(ctx context.Context, tx *gorm.DB, request *types.DataContributionRequest) error
}

type requestRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRequestRepo(db *gorm.DB, baseLog *logger.Logger) RequestRepo {
	return &requestRepo{db: db, log: baseLog.With("repo", "RequestRepo")}
}

func (r *requestRepo) Create(ctx context.Context, tx *gorm.DB, requests []*types.DataContributionRequest) ([]*types.DataContributionRequest, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(requests) == 0 {
		return []*types.DataContributionRequest{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&requests).Error; err != nil {
		return nil, err
	}
	return requests, nil
}

func (r *requestRepo) GetByID(ctx context.Context, tx *gorm.DB, requestID uuid.UUID) (*types.DataContributionRequest, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if requestID == uuid.Nil {
		return nil, nil
	}

	var row types.DataContributionRequest
	err := transaction.WithContext(ctx).
		Preload("Product").
		Preload("SupplierProfile").
		Preload("BrandTenant").
		Where("id = ?", requestID).
		First(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *requestRepo) ListByBrandTenant(ctx context.Context, tx *gorm.DB, brandTenantID uuid.UUID, statuses []types.RequestStatus) ([]*types.DataContributionRequest, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if brandTenantID == uuid.Nil {
		return nil, nil
	}

	q := transaction.WithContext(ctx).
		Preload("Product").
		Preload("SupplierProfile").
		Where("brand_tenant_id = ?", brandTenantID).
		Order("created_at DESC")
	if len(statuses) > 0 {
		q = q.Where("status IN ?", statuses)
	}

	var results []*types.DataContributionRequest
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *requestRepo) ListBySupplierTenant(ctx context.Context, tx *gorm.DB, supplierTenantID uuid.UUID, statuses []types.RequestStatus) ([]*types.DataContributionRequest, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if supplierTenantID == uuid.Nil {
		return nil, nil
	}

	q := transaction.WithContext(ctx).
		Preload("Product").
		Preload("BrandTenant").
		Where("supplier_tenant_id = ?", supplierTenantID).
		Order("created_at DESC")
	if len(statuses) > 0 {
		q = q.Where("status IN ?", statuses)
	}

	var results []*types.DataContributionRequest
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *requestRepo) ListByProduct(ctx context.Context, tx *gorm.DB, productID uuid.UUID) ([]*types.DataContributionRequest, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if productID == uuid.Nil {
		return nil, nil
	}

	var results []*types.DataContributionRequest
	if err := transaction.WithContext(ctx).
		Preload("SupplierProfile").
		Where("product_id = ?", productID).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// FindOpenByProductAndProfile backs the one-open-request guard: at most one
// non-terminal request may exist per (product, supplier profile) pair.
func (r *requestRepo) FindOpenByProductAndProfile(ctx context.Context, tx *gorm.DB, productID, profileID uuid.UUID) (*types.DataContributionRequest, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if productID == uuid.Nil || profileID == uuid.Nil {
		return nil, nil
	}

	var row types.DataContributionRequest
	err := transaction.WithContext(ctx).
		Where("product_id = ? AND supplier_profile_id = ? AND status IN ?",
			productID, profileID, types.NonTerminalRequestStatuses()).
		First(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *requestRepo) CountForBrand(ctx context.Context, tx *gorm.DB, brandTenantID uuid.UUID, statuses []types.RequestStatus) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	q := transaction.WithContext(ctx).
		Model(&types.DataContributionRequest{}).
		Where("brand_tenant_id = ?", brandTenantID)
	if len(statuses) > 0 {
		q = q.Where("status IN ?", statuses)
	}

	var count int64
	if err := q.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *requestRepo) CountForSupplier(ctx context.Context, tx *gorm.DB, supplierTenantID uuid.UUID, statuses []types.RequestStatus) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	q := transaction.WithContext(ctx).
		Model(&types.DataContributionRequest{}).
		Where("supplier_tenant_id = ?", supplierTenantID)
	if len(statuses) > 0 {
		q = q.Where("status IN ?", statuses)
	}

	var count int64
	if err := q.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CountDueBefore counts still-open requests whose due date lands before the
// cutoff, the "due soon" tile on the supplier dashboard.
func (r *requestRepo) CountDueBefore(ctx context.Context, tx *gorm.DB, supplierTenantID uuid.UUID, before time.Time) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.DataContributionRequest{}).
		Where("supplier_tenant_id = ? AND status IN ? AND due_date IS NOT NULL AND due_date < ?",
			supplierTenantID, types.NonTerminalRequestStatuses(), before).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *requestRepo) Save(ctx context.Context, tx *gorm.DB, request *types.DataContributionRequest) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if request == nil {
		return nil
	}
	return transaction.WithContext(ctx).Save(request).Error
}
