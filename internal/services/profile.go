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

// ProfileUpdateInput is a merge-patch: nil fields keep their stored value.
// Country and invite identity are deliberately not editable; changing those
// means a different supplier, which is a new invite.
type ProfileUpdateInput struct {
	Name         *string `json:"name"`
	Description  *string `json:"description"`
	ContactName  *string `json:"contact_name"`
	ContactEmail *string `json:"contact_email"`
	IsFavorite   *bool   `json:"is_favorite"`
}

type ProfileService interface {
	List(ctx context.Context, actor ctxutil.Actor) ([]*types.SupplierProfile, error)
	Get(ctx context.Context, actor ctxutil.Actor, profileID uuid.UUID) (*types.SupplierProfile, error)
	Update(ctx context.Context, actor ctxutil.Actor, profileID uuid.UUID, in ProfileUpdateInput) (*types.SupplierProfile, error)
}

type profileService struct {
	db  *gorm.DB
	log *logger.Logger

	profiles repos.SupplierProfileRepo
	conns    repos.ConnectionRepo

	audit AuditService
	async *Dispatcher
}

func NewProfileService(
	db *gorm.DB,
	baseLog *logger.Logger,
	profiles repos.SupplierProfileRepo,
	conns repos.ConnectionRepo,
	audit AuditService,
	async *Dispatcher,
) ProfileService {
	return &profileService{
		db:       db,
		log:      baseLog.With("service", "ProfileService"),
		profiles: profiles,
		conns:    conns,
		audit:    audit,
		async:    async,
	}
}

// List returns the brand's address book. Connection state is denormalized
// onto the profile rows, so this is a single query with no joins.
func (s *profileService) List(ctx context.Context, actor ctxutil.Actor) ([]*types.SupplierProfile, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("profile service not configured")
	}
	if err := requireBrandActor(actor); err != nil {
		return nil, err
	}
	return s.profiles.ListByTenant(ctx, nil, actor.ActingTenantID)
}

func (s *profileService) Get(ctx context.Context, actor ctxutil.Actor, profileID uuid.UUID) (*types.SupplierProfile, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("profile service not configured")
	}
	if err := requireBrandActor(actor); err != nil {
		return nil, err
	}

	profile, err := s.profiles.GetByID(ctx, nil, profileID)
	if err != nil {
		return nil, err
	}
	if profile == nil || profile.TenantID != actor.ActingTenantID {
		return nil, apierr.NotFound("supplier profile not found")
	}

	conn, err := s.conns.GetByID(ctx, nil, profile.ConnectionID)
	if err != nil {
		return nil, err
	}
	profile.Connection = conn
	return profile, nil
}

func (s *profileService) Update(ctx context.Context, actor ctxutil.Actor, profileID uuid.UUID, in ProfileUpdateInput) (*types.SupplierProfile, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("profile service not configured")
	}
	if err := requireBrandActor(actor); err != nil {
		return nil, err
	}

	var (
		profile *types.SupplierProfile
		changes = map[string]any{}
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		profile, err = s.profiles.GetByID(ctx, tx, profileID)
		if err != nil {
			return err
		}
		if profile == nil || profile.TenantID != actor.ActingTenantID {
			return apierr.NotFound("supplier profile not found")
		}

		if in.Name != nil {
			name := strings.TrimSpace(*in.Name)
			if name == "" {
				return apierr.Validation("supplier name cannot be empty")
			}
			if name != profile.Name {
				taken, err := s.profiles.NameExists(ctx, tx, actor.ActingTenantID, name, profile.ID)
				if err != nil {
					return err
				}
				if taken {
					return apierr.Conflict("a supplier named %q already exists in your address book", name)
				}
				changes["name"] = map[string]any{"old": profile.Name, "new": name}
				profile.Name = name
			}
		}
		if in.Description != nil && *in.Description != profile.Description {
			changes["description"] = map[string]any{"old": profile.Description, "new": *in.Description}
			profile.Description = *in.Description
		}
		if in.ContactName != nil && *in.ContactName != profile.ContactName {
			changes["contact_name"] = map[string]any{"old": profile.ContactName, "new": *in.ContactName}
			profile.ContactName = *in.ContactName
		}
		if in.ContactEmail != nil && *in.ContactEmail != profile.ContactEmail {
			changes["contact_email"] = map[string]any{"old": profile.ContactEmail, "new": *in.ContactEmail}
			profile.ContactEmail = *in.ContactEmail
		}
		if in.IsFavorite != nil && *in.IsFavorite != profile.IsFavorite {
			changes["is_favorite"] = map[string]any{"old": profile.IsFavorite, "new": *in.IsFavorite}
			profile.IsFavorite = *in.IsFavorite
		}

		if len(changes) == 0 {
			return nil
		}
		return s.profiles.Save(ctx, tx, profile)
	})
	if err != nil {
		return nil, err
	}

	if len(changes) > 0 {
		s.async.Go("audit.profile_update", func(ctx context.Context) error {
			return s.audit.Record(ctx, AuditEntry{
				TenantID:    actor.ActingTenantID,
				ActorUserID: actor.UserID,
				EntityType:  EntitySupplierProfile,
				EntityID:    profile.ID,
				Action:      types.AuditUpdate,
				Changes:     changes,
				IPAddress:   actor.IPAddress,
			})
		})
		s.log.Info("Supplier profile updated", "profile_id", profile.ID, "fields", len(changes))
	}
	return profile, nil
}
