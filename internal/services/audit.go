package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/tracebind/passport-backend/internal/data/repos"
	"github.com/tracebind/passport-backend/internal/data/repos/auditlog"
	types "github.com/tracebind/passport-backend/internal/domain"
	"github.com/tracebind/passport-backend/internal/pkg/ctxutil"
	"github.com/tracebind/passport-backend/internal/platform/apierr"
	"github.com/tracebind/passport-backend/internal/platform/logger"
)

// Entity type labels recorded on audit rows and accepted by trail filters.
const (
	EntityUser                  = "User"
	EntityTenant                = "Tenant"
	EntityTenantConnection      = "TenantConnection"
	EntitySupplierProfile       = "SupplierProfile"
	EntityProduct               = "Product"
	EntityProductVersion        = "ProductVersion"
	EntityContributionRequest   = "DataContributionRequest"
	EntityCollaborationComment  = "CollaborationComment"
	EntityMaterial              = "Material"
	EntityCertification         = "Certification"
	EntityCertificateDefinition = "CertificateDefinition"
	EntityMaterialDefinition    = "MaterialDefinition"
	EntityProductPassport       = "ProductPassport"
)

// AuditEntry is what callers hand to Record; marshalling and row assembly
// stay here so services never touch datatypes.JSON directly.
type AuditEntry struct {
	TenantID    uuid.UUID
	ActorUserID uuid.UUID
	EntityType  string
	EntityID    uuid.UUID
	Action      types.AuditAction
	Changes     map[string]any
	IPAddress   string
}

// AuditQuery narrows List; zero fields mean "any".
type AuditQuery struct {
	EntityType string
	EntityID   uuid.UUID
	Action     types.AuditAction
	Limit      int
	Offset     int
}

type AuditService interface {
	// Record writes one trail row in its own session. It is designed to run
	// post-commit on the effect dispatcher; callers never see its error.
	Record(ctx context.Context, e AuditEntry) error
	List(ctx context.Context, actor ctxutil.Actor, q AuditQuery) ([]*types.AuditLog, error)
	ListForEntity(ctx context.Context, actor ctxutil.Actor, entityType string, entityID uuid.UUID) ([]*types.AuditLog, error)
}

type auditService struct {
	db    *gorm.DB
	log   *logger.Logger
	audit repos.AuditRepo
}

func NewAuditService(db *gorm.DB, baseLog *logger.Logger, audit repos.AuditRepo) AuditService {
	return &auditService{
		db:    db,
		log:   baseLog.With("service", "AuditService"),
		audit: audit,
	}
}

func (s *auditService) Record(ctx context.Context, e AuditEntry) error {
	if s == nil || s.audit == nil {
		return fmt.Errorf("audit service not configured")
	}
	if e.TenantID == uuid.Nil || e.EntityType == "" || e.EntityID == uuid.Nil {
		return fmt.Errorf("audit entry missing tenant, entity type or entity id")
	}

	var changes datatypes.JSON
	if len(e.Changes) > 0 {
		raw, err := json.Marshal(e.Changes)
		if err != nil {
			return fmt.Errorf("marshal audit changes: %w", err)
		}
		changes = datatypes.JSON(raw)
	}

	row := &types.AuditLog{
		TenantID:    e.TenantID,
		ActorUserID: e.ActorUserID,
		EntityType:  e.EntityType,
		EntityID:    e.EntityID,
		Action:      e.Action,
		Changes:     changes,
		IPAddress:   e.IPAddress,
	}

	if _, err := s.audit.Create(ctx, nil, []*types.AuditLog{row}); err != nil {
		return fmt.Errorf("write audit row: %w", err)
	}
	return nil
}

func (s *auditService) List(ctx context.Context, actor ctxutil.Actor, q AuditQuery) ([]*types.AuditLog, error) {
	if s == nil || s.audit == nil {
		return nil, fmt.Errorf("audit service not configured")
	}
	if !actor.Valid() {
		return nil, apierr.Unauthorized("missing actor context")
	}

	rows, err := s.audit.ListByTenant(ctx, nil, actor.ActingTenantID, auditlog.Filter{
		EntityType: q.EntityType,
		EntityID:   q.EntityID,
		Action:     q.Action,
		Limit:      q.Limit,
		Offset:     q.Offset,
	})
	if err != nil {
		return nil, fmt.Errorf("list audit trail: %w", err)
	}
	return rows, nil
}

func (s *auditService) ListForEntity(ctx context.Context, actor ctxutil.Actor, entityType string, entityID uuid.UUID) ([]*types.AuditLog, error) {
	if s == nil || s.audit == nil {
		return nil, fmt.Errorf("audit service not configured")
	}
	if !actor.Valid() {
		return nil, apierr.Unauthorized("missing actor context")
	}

	rows, err := s.audit.ListByEntity(ctx, nil, entityType, entityID)
	if err != nil {
		return nil, fmt.Errorf("list audit trail: %w", err)
	}

	// The per-entity index is global; filter to the acting tenant's rows so
	// cross-tenant probes see nothing.
	out := make([]*types.AuditLog, 0, len(rows))
	for _, row := range rows {
		if row != nil && row.TenantID == actor.ActingTenantID {
			out = append(out, row)
		}
	}
	return out, nil
}
