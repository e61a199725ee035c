package network

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/tracebind/passport-backend/internal/domain"
	"github.com/tracebind/passport-backend/internal/platform/logger"
)

type ConnectionRepo interface {
	Create(ctx context.Context, tx *gorm.DB, conns []*types.TenantConnection) ([]*types.TenantConnection, error)
	GetByID(ctx context.Context, tx *gorm.DB, connID uuid.UUID) (*types.TenantConnection, error)
	GetByToken(ctx context.Context, tx *gorm.DB, token string) (*types.TenantConnection, error)
	GetPendingByInvitationEmail(ctx context.Context, tx *gorm.DB, email string) ([]*types.TenantConnection, error)
	ListForSupplierTenant(ctx context.Context, tx *gorm.DB, supplierTenantID uuid.UUID, statuses []types.ConnectionStatus) ([]*types.TenantConnection, error)
	Save(ctx context.Context, tx *gorm.DB, conn *types.TenantConnection) error
	Delete(ctx context.Context, tx *gorm.DB, connID uuid.UUID) error
	CountForSupplierTenant(ctx context.Context, tx *gorm.DB, supplierTenantID uuid.UUID, status types.ConnectionStatus) (int64, error)
}

type connectionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewConnectionRepo(db *gorm.DB, baseLog *logger.Logger) ConnectionRepo {
	return &connectionRepo{db: db, log: baseLog.With("repo", "ConnectionRepo")}
}

func (r *connectionRepo) Create(ctx context.Context, tx *gorm.DB, conns []*types.TenantConnection) ([]*types.TenantConnection, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(conns) == 0 {
		return []*types.TenantConnection{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&conns).Error; err != nil {
		return nil, err
	}
	return conns, nil
}

func (r *connectionRepo) GetByID(ctx context.Context, tx *gorm.DB, connID uuid.UUID) (*types.TenantConnection, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if connID == uuid.Nil {
		return nil, nil
	}

	var row types.TenantConnection
	err := transaction.WithContext(ctx).
		Preload("RequesterTenant").
		Where("id = ?", connID).
		First(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// GetByToken matches the raw token string regardless of status; callers
// decide whether a non-PENDING hit counts as expired.
func (r *connectionRepo) GetByToken(ctx context.Context, tx *gorm.DB, token string) (*types.TenantConnection, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return nil, nil
	}

	var row types.TenantConnection
	err := transaction.WithContext(ctx).
		Preload("RequesterTenant").
		Where("invitation_token = ?", token).
		First(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *connectionRepo) GetPendingByInvitationEmail(ctx context.Context, tx *gorm.DB, email string) ([]*types.TenantConnection, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, nil
	}

	var results []*types.TenantConnection
	if err := transaction.WithContext(ctx).
		Where("LOWER(invitation_email) = ? AND status = ?", email, types.ConnectionPending).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *connectionRepo) ListForSupplierTenant(ctx context.Context, tx *gorm.DB, supplierTenantID uuid.UUID, statuses []types.ConnectionStatus) ([]*types.TenantConnection, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if supplierTenantID == uuid.Nil {
		return nil, nil
	}

	q := transaction.WithContext(ctx).
		Preload("RequesterTenant").
		Where("supplier_tenant_id = ?", supplierTenantID).
		Order("created_at DESC")
	if len(statuses) > 0 {
		q = q.Where("status IN ?", statuses)
	}

	var results []*types.TenantConnection
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *connectionRepo) Save(ctx context.Context, tx *gorm.DB, conn *types.TenantConnection) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if conn == nil {
		return nil
	}
	return transaction.WithContext(ctx).Save(conn).Error
}

func (r *connectionRepo) Delete(ctx context.Context, tx *gorm.DB, connID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if connID == uuid.Nil {
		return nil
	}
	return transaction.WithContext(ctx).
		Where("id = ?", connID).
		Delete(&types.TenantConnection{}).Error
}

func (r *connectionRepo) CountForSupplierTenant(ctx context.Context, tx *gorm.DB, supplierTenantID uuid.UUID, status types.ConnectionStatus) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.TenantConnection{}).
		Where("supplier_tenant_id = ? AND status = ?", supplierTenantID, status).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
