package identity

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/tracebind/passport-backend/internal/domain"
	"github.com/tracebind/passport-backend/internal/platform/logger"
)

type TenantMemberRepo interface {
	Create(ctx context.Context, tx *gorm.DB, members []*types.TenantMember) ([]*types.TenantMember, error)
	GetActiveByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.TenantMember, error)
	GetByTenantID(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID) ([]*types.TenantMember, error)
}

type tenantMemberRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTenantMemberRepo(db *gorm.DB, baseLog *logger.Logger) TenantMemberRepo {
	return &tenantMemberRepo{db: db, log: baseLog.With("repo", "TenantMemberRepo")}
}

func (r *tenantMemberRepo) Create(ctx context.Context, tx *gorm.DB, members []*types.TenantMember) ([]*types.TenantMember, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(members) == 0 {
		return []*types.TenantMember{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&members).Error; err != nil {
		return nil, err
	}
	return members, nil
}

// GetActiveByUserID preloads each membership's tenant; the auth middleware
// resolves the acting tenant from the (single) ACTIVE row.
func (r *tenantMemberRepo) GetActiveByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.TenantMember, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if userID == uuid.Nil {
		return nil, nil
	}

	var results []*types.TenantMember
	if err := transaction.WithContext(ctx).
		Preload("Tenant").
		Where("user_id = ? AND status = ?", userID, types.MemberStatusActive).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *tenantMemberRepo) GetByTenantID(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID) ([]*types.TenantMember, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if tenantID == uuid.Nil {
		return nil, nil
	}

	var results []*types.TenantMember
	if err := transaction.WithContext(ctx).
		Preload("User").
		Where("tenant_id = ?", tenantID).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
