package workflow

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/tracebind/passport-backend/internal/domain"
	"github.com/tracebind/passport-backend/internal/platform/logger"
)

type CommentRepo interface {
	Create(ctx context.Context, tx *gorm.DB, comments []*types.CollaborationComment) ([]*types.CollaborationComment, error)
	ListByRequest(ctx context.Context, tx *gorm.DB, requestID uuid.UUID) ([]*types.CollaborationComment, error)
	LatestRejectionReason(ctx context.Context, tx *gorm.DB, requestID uuid.UUID) (*types.CollaborationComment, error)
}

type commentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCommentRepo(db *gorm.DB, baseLog *logger.Logger) CommentRepo {
	return &commentRepo{db: db, log: baseLog.With("repo", "CommentRepo")}
}

func (r *commentRepo) Create(ctx context.Context, tx *gorm.DB, comments []*types.CollaborationComment) ([]*types.CollaborationComment, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(comments) == 0 {
		return []*types.CollaborationComment{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&comments).Error; err != nil {
		return nil, err
	}
	return comments, nil
}

func (r *commentRepo) ListByRequest(ctx context.Context, tx *gorm.DB, requestID uuid.UUID) ([]*types.CollaborationComment, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if requestID == uuid.Nil {
		return []*types.CollaborationComment{}, nil
	}

	var results []*types.CollaborationComment
	if err := transaction.WithContext(ctx).
		Where("request_id = ?", requestID).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *commentRepo) LatestRejectionReason(ctx context.Context, tx *gorm.DB, requestID uuid.UUID) (*types.CollaborationComment, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if requestID == uuid.Nil {
		return nil, nil
	}

	var row types.CollaborationComment
	err := transaction.WithContext(ctx).
		Where("request_id = ? AND is_rejection_reason = ?", requestID, true).
		Order("created_at DESC").
		First(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}
