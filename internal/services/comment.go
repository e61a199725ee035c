package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tracebind/passport-backend/internal/data/repos"
	types "github.com/tracebind/passport-backend/internal/domain"
	"github.com/tracebind/passport-backend/internal/pkg/ctxutil"
	"github.com/tracebind/passport-backend/internal/platform/apierr"
	"github.com/tracebind/passport-backend/internal/platform/logger"
)

type AddCommentInput struct {
	Body string `json:"body"`
}

// CommentView decorates a comment with the author names the thread renders.
type CommentView struct {
	Comment    *types.CollaborationComment `json:"comment"`
	AuthorName string                      `json:"author_name"`
	TenantName string                      `json:"tenant_name"`
	Mine       bool                        `json:"mine"`
}

type CommentService interface {
	Add(ctx context.Context, actor ctxutil.Actor, requestID uuid.UUID, in AddCommentInput) (*types.CollaborationComment, error)
	ListForRequest(ctx context.Context, actor ctxutil.Actor, requestID uuid.UUID) ([]*CommentView, error)
	LatestRejection(ctx context.Context, actor ctxutil.Actor, requestID uuid.UUID) (*types.CollaborationComment, error)
}

type commentService struct {
	db  *gorm.DB
	log *logger.Logger

	comments repos.CommentRepo
	requests repos.RequestRepo
	users    repos.UserRepo
	tenants  repos.TenantRepo

	audit  AuditService
	notify Notifier
	async  *Dispatcher
}

func NewCommentService(
	db *gorm.DB,
	baseLog *logger.Logger,
	comments repos.CommentRepo,
	requests repos.RequestRepo,
	users repos.UserRepo,
	tenants repos.TenantRepo,
	audit AuditService,
	notify Notifier,
	async *Dispatcher,
) CommentService {
	return &commentService{
		db:       db,
		log:      baseLog.With("service", "CommentService"),
		comments: comments,
		requests: requests,
		users:    users,
		tenants:  tenants,
		audit:    audit,
		notify:   notify,
		async:    async,
	}
}

func (s *commentService) Add(ctx context.Context, actor ctxutil.Actor, requestID uuid.UUID, in AddCommentInput) (*types.CollaborationComment, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("comment service not configured")
	}
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	body := strings.TrimSpace(in.Body)
	if body == "" {
		return nil, apierr.Validation("comment body is required")
	}

	var req *types.DataContributionRequest
	var comment *types.CollaborationComment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		req, err = s.partyRequest(ctx, tx, actor, requestID)
		if err != nil {
			return err
		}

		comment = &types.CollaborationComment{
			RequestID:      req.ID,
			AuthorUserID:   actor.UserID,
			AuthorTenantID: actor.ActingTenantID,
			Body:           body,
		}
		_, err = s.comments.Create(ctx, tx, []*types.CollaborationComment{comment})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.async.Go("notify.comment", func(ctx context.Context) error {
		s.notify.CommentAdded(ctx, req, comment)
		return nil
	})
	s.async.Go("audit.comment", func(ctx context.Context) error {
		return s.audit.Record(ctx, AuditEntry{
			TenantID:    actor.ActingTenantID,
			ActorUserID: actor.UserID,
			EntityType:  EntityCollaborationComment,
			EntityID:    comment.ID,
			Action:      types.AuditCreate,
			Changes:     map[string]any{"request_id": req.ID.String()},
			IPAddress:   actor.IPAddress,
		})
	})
	return comment, nil
}

func (s *commentService) ListForRequest(ctx context.Context, actor ctxutil.Actor, requestID uuid.UUID) ([]*CommentView, error) {
	if s == nil || s.comments == nil {
		return nil, fmt.Errorf("comment service not configured")
	}
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	if _, err := s.partyRequest(ctx, nil, actor, requestID); err != nil {
		return nil, err
	}
	rows, err := s.comments.ListByRequest(ctx, nil, requestID)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return []*CommentView{}, nil
	}

	userIDs := make([]uuid.UUID, 0, len(rows))
	tenantIDs := make([]uuid.UUID, 0, len(rows))
	for _, c := range rows {
		userIDs = append(userIDs, c.AuthorUserID)
		tenantIDs = append(tenantIDs, c.AuthorTenantID)
	}
	userRows, err := s.users.GetByIDs(ctx, nil, userIDs)
	if err != nil {
		return nil, err
	}
	userByID := make(map[uuid.UUID]*types.User, len(userRows))
	for _, u := range userRows {
		userByID[u.ID] = u
	}
	tenantRows, err := s.tenants.GetByIDs(ctx, nil, tenantIDs)
	if err != nil {
		return nil, err
	}
	tenantByID := make(map[uuid.UUID]*types.Tenant, len(tenantRows))
	for _, t := range tenantRows {
		tenantByID[t.ID] = t
	}

	out := make([]*CommentView, 0, len(rows))
	for _, c := range rows {
		view := &CommentView{
			Comment: c,
			Mine:    c.AuthorTenantID == actor.ActingTenantID,
		}
		if u, ok := userByID[c.AuthorUserID]; ok {
			view.AuthorName = u.DisplayName()
		}
		if t, ok := tenantByID[c.AuthorTenantID]; ok {
			view.TenantName = t.Name
		}
		out = append(out, view)
	}
	return out, nil
}

func (s *commentService) LatestRejection(ctx context.Context, actor ctxutil.Actor, requestID uuid.UUID) (*types.CollaborationComment, error) {
	if s == nil || s.comments == nil {
		return nil, fmt.Errorf("comment service not configured")
	}
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	if _, err := s.partyRequest(ctx, nil, actor, requestID); err != nil {
		return nil, err
	}
	return s.comments.LatestRejectionReason(ctx, nil, requestID)
}

// partyRequest resolves a request for thread access. Only the two request
// parties can read or write the thread; everyone else reads absent.
func (s *commentService) partyRequest(ctx context.Context, tx *gorm.DB, actor ctxutil.Actor, requestID uuid.UUID) (*types.DataContributionRequest, error) {
	req, err := s.requests.GetByID(ctx, tx, requestID)
	if err != nil {
		return nil, err
	}
	if req == nil || (req.BrandTenantID != actor.ActingTenantID && req.SupplierTenantID != actor.ActingTenantID) {
		return nil, apierr.NotFound("request not found")
	}
	return req, nil
}
