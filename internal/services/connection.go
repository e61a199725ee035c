package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tracebind/passport-backend/internal/data/graph"
	"github.com/tracebind/passport-backend/internal/data/repos"
	types "github.com/tracebind/passport-backend/internal/domain"
	"github.com/tracebind/passport-backend/internal/observability"
	"github.com/tracebind/passport-backend/internal/pkg/ctxutil"
	"github.com/tracebind/passport-backend/internal/platform/apierr"
	"github.com/tracebind/passport-backend/internal/platform/logger"
	"github.com/tracebind/passport-backend/internal/platform/neo4jdb"
)

type InviteSupplierInput struct {
	// Address-book display name for the new profile.
	Name string `json:"name"`

	// Exactly one of SupplierSlug (platform handle) or InvitationEmail.
	SupplierSlug    string `json:"supplier_slug"`
	InvitationEmail string `json:"invitation_email"`

	Note            string `json:"note"`
	Description     string `json:"description"`
	LocationCountry string `json:"location_country"`
	ContactName     string `json:"contact_name"`
	ContactEmail    string `json:"contact_email"`
}

type ReinviteInput struct {
	// Nil keeps the stored value.
	InvitationEmail *string `json:"invitation_email"`
	Note            *string `json:"note"`
}

// DisconnectOutcome tells the caller whether the address-book entry was
// removed outright or the live connection was suspended in place.
type DisconnectOutcome string

const (
	DisconnectRemoved   DisconnectOutcome = "REMOVED"
	DisconnectSuspended DisconnectOutcome = "SUSPENDED"
)

// InviteDetails is the public accept-landing-page payload for a pending
// invitation token.
type InviteDetails struct {
	InvitedEmail string `json:"invited_email"`
	RequestNote  string `json:"request_note"`

	BrandName string `json:"brand_name"`
	BrandSlug string `json:"brand_slug"`

	ProfileName     string `json:"profile_name"`
	ProfileCountry  string `json:"profile_country"`
	AlreadyResolved bool   `json:"already_resolved"`
}

type DirectoryEntry struct {
	Name            string           `json:"name"`
	Slug            string           `json:"slug"`
	Type            types.TenantType `json:"type"`
	LocationCountry string           `json:"location_country"`
}

// IncomingConnection is a supplier-side view of one invitation/relationship,
// enriched with the requesting brand's identity.
type IncomingConnection struct {
	Connection *types.TenantConnection `json:"connection"`
	BrandName  string                  `json:"brand_name"`
	BrandSlug  string                  `json:"brand_slug"`
}

type ConnectionService interface {
	Invite(ctx context.Context, actor ctxutil.Actor, in InviteSupplierInput) (*types.SupplierProfile, error)
	Reinvite(ctx context.Context, actor ctxutil.Actor, profileID uuid.UUID, in ReinviteInput) (*types.SupplierProfile, error)
	Respond(ctx context.Context, actor ctxutil.Actor, connectionID uuid.UUID, accept bool) (*types.TenantConnection, error)
	Disconnect(ctx context.Context, actor ctxutil.Actor, profileID uuid.UUID) (DisconnectOutcome, error)
	DisconnectAsSupplier(ctx context.Context, actor ctxutil.Actor, connectionID uuid.UUID) (*types.TenantConnection, error)
	ValidateToken(ctx context.Context, token string) (*InviteDetails, error)
	SearchDirectory(ctx context.Context, query string, limit int) ([]*DirectoryEntry, error)
	ListIncoming(ctx context.Context, actor ctxutil.Actor, statuses []types.ConnectionStatus) ([]*IncomingConnection, error)
}

type connectionService struct {
	db  *gorm.DB
	log *logger.Logger

	conns    repos.ConnectionRepo
	profiles repos.SupplierProfileRepo
	tenants  repos.TenantRepo

	audit    AuditService
	notify   Notifier
	async    *Dispatcher
	graphDB  *neo4jdb.Client
	graphLog *logger.Logger
	metrics  *observability.Metrics
}

func NewConnectionService(
	db *gorm.DB,
	baseLog *logger.Logger,
	conns repos.ConnectionRepo,
	profiles repos.SupplierProfileRepo,
	tenants repos.TenantRepo,
	audit AuditService,
	notify Notifier,
	async *Dispatcher,
	graphDB *neo4jdb.Client,
	metrics *observability.Metrics,
) ConnectionService {
	serviceLog := baseLog.With("service", "ConnectionService")
	return &connectionService{
		db:       db,
		log:      serviceLog,
		conns:    conns,
		profiles: profiles,
		tenants:  tenants,
		audit:    audit,
		notify:   notify,
		async:    async,
		graphDB:  graphDB,
		graphLog: serviceLog,
		metrics:  metrics,
	}
}

func (s *connectionService) Invite(ctx context.Context, actor ctxutil.Actor, in InviteSupplierInput) (*types.SupplierProfile, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("connection service not configured")
	}
	if err := requireBrandActor(actor); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(in.Name)
	slug := strings.TrimSpace(in.SupplierSlug)
	email := strings.ToLower(strings.TrimSpace(in.InvitationEmail))
	switch {
	case name == "":
		return nil, apierr.Validation("a display name for the supplier is required")
	case slug == "" && email == "":
		return nil, apierr.Validation("provide a platform handle or an invitation email")
	case slug != "" && email != "":
		return nil, apierr.Validation("provide either a platform handle or an invitation email, not both")
	case email != "" && !strings.Contains(email, "@"):
		return nil, apierr.Validation("invitation email is not valid")
	}

	var (
		profile *types.SupplierProfile
		conn    *types.TenantConnection
		brand   *types.Tenant
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		brands, err := s.tenants.GetByIDs(ctx, tx, []uuid.UUID{actor.ActingTenantID})
		if err != nil {
			return err
		}
		if len(brands) == 0 || brands[0] == nil {
			return apierr.NotFound("tenant not found")
		}
		brand = brands[0]

		var target *types.Tenant
		if slug != "" {
			target, err = s.tenants.GetBySlug(ctx, tx, slug)
			if err != nil {
				return err
			}
			if target == nil {
				return apierr.NotFound("company @%s not found", slug)
			}
			if target.ID == actor.ActingTenantID {
				return apierr.Validation("cannot invite your own organization")
			}
			if !target.Type.CanSupply() {
				return apierr.Validation("a brand can only invite supplier organizations")
			}
		}

		taken, err := s.profiles.NameExists(ctx, tx, actor.ActingTenantID, name, uuid.Nil)
		if err != nil {
			return err
		}
		if taken {
			return apierr.Conflict("a supplier named %q already exists in your address book", name)
		}

		token, err := types.NewInvitationToken()
		if err != nil {
			return err
		}

		conn = &types.TenantConnection{
			RequesterTenantID: actor.ActingTenantID,
			InvitationEmail:   email,
			InvitationToken:   &token,
			Status:            types.ConnectionPending,
			RequestNote:       strings.TrimSpace(in.Note),
		}
		var supplierSlug string
		if target != nil {
			conn.SupplierTenantID = &target.ID
			supplierSlug = target.Slug
		}
		if _, err := s.conns.Create(ctx, tx, []*types.TenantConnection{conn}); err != nil {
			return err
		}

		profile = &types.SupplierProfile{
			TenantID:        actor.ActingTenantID,
			ConnectionID:    conn.ID,
			Name:            name,
			Description:     strings.TrimSpace(in.Description),
			LocationCountry: strings.TrimSpace(in.LocationCountry),
			ContactName:     strings.TrimSpace(in.ContactName),
			ContactEmail:    strings.TrimSpace(in.ContactEmail),
		}
		profile.SyncFromConnection(conn, supplierSlug)
		if _, err := s.profiles.Create(ctx, tx, []*types.SupplierProfile{profile}); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterConnectionChange(actor, conn, types.AuditCreate, map[string]any{
		"profile_id":    profile.ID,
		"profile_name":  profile.Name,
		"supplier_slug": slug,
		"invite_email":  email,
	})
	s.async.Go("notify.connection_invited", func(ctx context.Context) error {
		s.notify.ConnectionInvited(ctx, conn, profile.Name)
		return nil
	})
	if conn.SupplierTenantID == nil && email != "" && conn.InvitationToken != nil {
		mail := InvitationEmail{
			ToEmail:   email,
			BrandName: brand.Name,
			Note:      conn.RequestNote,
			Token:     *conn.InvitationToken,
		}
		s.async.Go("mail.invitation", func(ctx context.Context) error {
			return s.notify.SendInvitationEmail(ctx, mail)
		})
	}

	s.log.Info("Supplier invited", "profile_id", profile.ID, "connection_id", conn.ID, "by_tenant", actor.ActingTenantID)
	profile.Connection = conn
	return profile, nil
}

func (s *connectionService) Reinvite(ctx context.Context, actor ctxutil.Actor, profileID uuid.UUID, in ReinviteInput) (*types.SupplierProfile, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("connection service not configured")
	}
	if err := requireBrandActor(actor); err != nil {
		return nil, err
	}

	var (
		profile *types.SupplierProfile
		conn    *types.TenantConnection
		brand   *types.Tenant
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		profile, conn, err = s.ownedProfile(ctx, tx, actor, profileID)
		if err != nil {
			return err
		}

		if !conn.Status.CanReinvite() {
			return apierr.InvalidState("connection is %s; only pending or rejected invitations can be re-sent", conn.Status)
		}
		if conn.RetryCount >= types.MaxInviteRetries {
			return apierr.LimitExceeded("invitation retry limit (%d) reached", types.MaxInviteRetries)
		}

		if in.InvitationEmail != nil {
			email := strings.ToLower(strings.TrimSpace(*in.InvitationEmail))
			if email == "" || !strings.Contains(email, "@") {
				return apierr.Validation("invitation email is not valid")
			}
			conn.InvitationEmail = email
		}
		if conn.InvitationEmail == "" && conn.SupplierTenantID == nil {
			return apierr.Validation("no delivery destination for this invitation")
		}
		if in.Note != nil {
			conn.RequestNote = strings.TrimSpace(*in.Note)
		}

		token, err := types.NewInvitationToken()
		if err != nil {
			return err
		}
		conn.InvitationToken = &token
		conn.Status = types.ConnectionPending
		conn.RetryCount++
		if err := s.conns.Save(ctx, tx, conn); err != nil {
			return err
		}

		profile.SyncFromConnection(conn, profile.SupplierSlug)
		if err := s.profiles.Save(ctx, tx, profile); err != nil {
			return err
		}

		brands, err := s.tenants.GetByIDs(ctx, tx, []uuid.UUID{actor.ActingTenantID})
		if err != nil {
			return err
		}
		if len(brands) > 0 {
			brand = brands[0]
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterConnectionChange(actor, conn, types.AuditUpdate, map[string]any{
		"action":      "reinvite",
		"retry_count": conn.RetryCount,
		"email":       conn.InvitationEmail,
	})
	s.async.Go("notify.connection_invited", func(ctx context.Context) error {
		s.notify.ConnectionInvited(ctx, conn, profile.Name)
		return nil
	})
	if conn.SupplierTenantID == nil && conn.InvitationEmail != "" && conn.InvitationToken != nil && brand != nil {
		mail := InvitationEmail{
			ToEmail:   conn.InvitationEmail,
			BrandName: brand.Name,
			Note:      conn.RequestNote,
			Token:     *conn.InvitationToken,
		}
		s.async.Go("mail.invitation", func(ctx context.Context) error {
			return s.notify.SendInvitationEmail(ctx, mail)
		})
	}

	s.log.Info("Supplier reinvited", "profile_id", profile.ID, "retry_count", conn.RetryCount)
	profile.Connection = conn
	return profile, nil
}

func (s *connectionService) Respond(ctx context.Context, actor ctxutil.Actor, connectionID uuid.UUID, accept bool) (*types.TenantConnection, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("connection service not configured")
	}
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	var conn *types.TenantConnection
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		conn, err = s.conns.GetByID(ctx, tx, connectionID)
		if err != nil {
			return err
		}
		// Absent and not-the-target read the same so connection ids cannot
		// be probed across tenants.
		if conn == nil || conn.SupplierTenantID == nil || *conn.SupplierTenantID != actor.ActingTenantID {
			return apierr.NotFound("connection request not found")
		}
		if conn.Status != types.ConnectionPending {
			return apierr.InvalidState("invitation is %s; only pending invitations can be answered", conn.Status)
		}

		now := time.Now().UTC()
		conn.RespondedAt = &now
		if accept {
			conn.Status = types.ConnectionActive
			conn.InvitationToken = nil
		} else {
			conn.Status = types.ConnectionRejected
		}
		if err := s.conns.Save(ctx, tx, conn); err != nil {
			return err
		}
		return s.syncProfile(ctx, tx, conn, actor.TenantSlug)
	})
	if err != nil {
		return nil, err
	}

	s.afterConnectionChange(actor, conn, types.AuditUpdate, map[string]any{
		"action":     "respond",
		"accepted":   accept,
		"new_status": conn.Status,
	})
	s.async.Go("notify.connection_responded", func(ctx context.Context) error {
		s.notify.ConnectionResponded(ctx, conn, accept)
		return nil
	})

	s.log.Info("Invitation answered", "connection_id", conn.ID, "accepted", accept, "by_tenant", actor.ActingTenantID)
	return conn, nil
}

func (s *connectionService) Disconnect(ctx context.Context, actor ctxutil.Actor, profileID uuid.UUID) (DisconnectOutcome, error) {
	if s == nil || s.db == nil {
		return "", fmt.Errorf("connection service not configured")
	}
	if err := requireBrandActor(actor); err != nil {
		return "", err
	}

	var (
		outcome DisconnectOutcome
		conn    *types.TenantConnection
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		profile, found, err := s.ownedProfileLoose(ctx, tx, actor, profileID)
		if err != nil {
			return err
		}
		conn = found

		// A dangling profile with no connection row is cleanup-only.
		if conn == nil {
			outcome = DisconnectRemoved
			return s.profiles.HardDelete(ctx, tx, profile.ID)
		}

		switch conn.Status {
		case types.ConnectionPending, types.ConnectionDisconnected:
			// Open or dead invites leave no trace: the address-book entry and
			// the handshake row are removed outright.
			outcome = DisconnectRemoved
			if err := s.profiles.HardDelete(ctx, tx, profile.ID); err != nil {
				return err
			}
			return s.conns.Delete(ctx, tx, conn.ID)
		case types.ConnectionActive, types.ConnectionRejected:
			// Rejected invites keep their row too: deleting it would reset
			// retry_count and reopen the reinvite cap.
			outcome = DisconnectSuspended
			conn.Status = types.ConnectionSuspended
			conn.InvitationToken = nil
			if err := s.conns.Save(ctx, tx, conn); err != nil {
				return err
			}
			profile.SyncFromConnection(conn, profile.SupplierSlug)
			return s.profiles.Save(ctx, tx, profile)
		default:
			return apierr.InvalidState("connection is already %s", conn.Status)
		}
	})
	if err != nil {
		return "", err
	}

	action := types.AuditUpdate
	if outcome == DisconnectRemoved {
		action = types.AuditDelete
	}
	s.afterConnectionChange(actor, conn, action, map[string]any{
		"action":     "disconnect",
		"outcome":    outcome,
		"profile_id": profileID,
	})
	if outcome == DisconnectSuspended {
		s.async.Go("notify.connection_disconnected", func(ctx context.Context) error {
			s.notify.ConnectionDisconnected(ctx, conn)
			return nil
		})
	}

	s.log.Info("Supplier disconnected", "profile_id", profileID, "outcome", outcome)
	return outcome, nil
}

func (s *connectionService) DisconnectAsSupplier(ctx context.Context, actor ctxutil.Actor, connectionID uuid.UUID) (*types.TenantConnection, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("connection service not configured")
	}
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	var conn *types.TenantConnection
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		conn, err = s.conns.GetByID(ctx, tx, connectionID)
		if err != nil {
			return err
		}
		if conn == nil || conn.SupplierTenantID == nil || *conn.SupplierTenantID != actor.ActingTenantID {
			return apierr.NotFound("connection not found")
		}
		if conn.Status != types.ConnectionActive && conn.Status != types.ConnectionSuspended {
			return apierr.InvalidState("connection is %s; only live connections can be disconnected", conn.Status)
		}

		conn.Status = types.ConnectionDisconnected
		conn.InvitationToken = nil
		if err := s.conns.Save(ctx, tx, conn); err != nil {
			return err
		}
		return s.syncProfile(ctx, tx, conn, actor.TenantSlug)
	})
	if err != nil {
		return nil, err
	}

	s.afterConnectionChange(actor, conn, types.AuditUpdate, map[string]any{
		"action":     "supplier_disconnect",
		"new_status": conn.Status,
	})
	s.async.Go("notify.connection_disconnected", func(ctx context.Context) error {
		s.notify.ConnectionDisconnected(ctx, conn)
		return nil
	})

	s.log.Info("Supplier severed connection", "connection_id", conn.ID, "by_tenant", actor.ActingTenantID)
	return conn, nil
}

func (s *connectionService) ValidateToken(ctx context.Context, token string) (*InviteDetails, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("connection service not configured")
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return nil, apierr.NotFound("invalid or expired invitation link")
	}

	conn, err := s.conns.GetByToken(ctx, nil, token)
	if err != nil {
		return nil, err
	}
	// Consumed, rejected, and never-issued tokens are indistinguishable.
	if conn == nil || conn.Status != types.ConnectionPending {
		return nil, apierr.NotFound("invalid or expired invitation link")
	}

	details := &InviteDetails{
		InvitedEmail:    conn.InvitationEmail,
		RequestNote:     conn.RequestNote,
		AlreadyResolved: conn.SupplierTenantID != nil,
	}

	brands, err := s.tenants.GetByIDs(ctx, nil, []uuid.UUID{conn.RequesterTenantID})
	if err != nil {
		return nil, err
	}
	if len(brands) > 0 && brands[0] != nil {
		details.BrandName = brands[0].Name
		details.BrandSlug = brands[0].Slug
	}

	profile, err := s.profiles.GetByConnectionID(ctx, nil, conn.ID)
	if err != nil {
		return nil, err
	}
	if profile != nil {
		details.ProfileName = profile.Name
		details.ProfileCountry = profile.LocationCountry
	}
	return details, nil
}

func (s *connectionService) SearchDirectory(ctx context.Context, query string, limit int) ([]*DirectoryEntry, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("connection service not configured")
	}

	query = strings.TrimSpace(query)
	if query == "" {
		return []*DirectoryEntry{}, nil
	}

	tenants, err := s.tenants.SearchSuppliers(ctx, nil, query, limit)
	if err != nil {
		return nil, err
	}
	entries := make([]*DirectoryEntry, 0, len(tenants))
	for _, t := range tenants {
		if t == nil {
			continue
		}
		entries = append(entries, &DirectoryEntry{
			Name:            t.Name,
			Slug:            t.Slug,
			Type:            t.Type,
			LocationCountry: t.LocationCountry,
		})
	}
	return entries, nil
}

func (s *connectionService) ListIncoming(ctx context.Context, actor ctxutil.Actor, statuses []types.ConnectionStatus) ([]*IncomingConnection, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("connection service not configured")
	}
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	conns, err := s.conns.ListForSupplierTenant(ctx, nil, actor.ActingTenantID, statuses)
	if err != nil {
		return nil, err
	}
	if len(conns) == 0 {
		return []*IncomingConnection{}, nil
	}

	brandIDs := make([]uuid.UUID, 0, len(conns))
	seen := map[uuid.UUID]bool{}
	for _, c := range conns {
		if c == nil || seen[c.RequesterTenantID] {
			continue
		}
		seen[c.RequesterTenantID] = true
		brandIDs = append(brandIDs, c.RequesterTenantID)
	}
	brands, err := s.tenants.GetByIDs(ctx, nil, brandIDs)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*types.Tenant, len(brands))
	for _, b := range brands {
		if b != nil {
			byID[b.ID] = b
		}
	}

	out := make([]*IncomingConnection, 0, len(conns))
	for _, c := range conns {
		if c == nil {
			continue
		}
		view := &IncomingConnection{Connection: c}
		if b := byID[c.RequesterTenantID]; b != nil {
			view.BrandName = b.Name
			view.BrandSlug = b.Slug
		}
		out = append(out, view)
	}
	return out, nil
}

// ownedProfile loads a profile scoped to the acting tenant together with its
// connection row; a missing connection is an integrity error for callers
// that mutate the handshake.
func (s *connectionService) ownedProfile(ctx context.Context, tx *gorm.DB, actor ctxutil.Actor, profileID uuid.UUID) (*types.SupplierProfile, *types.TenantConnection, error) {
	profile, conn, err := s.ownedProfileLoose(ctx, tx, actor, profileID)
	if err != nil {
		return nil, nil, err
	}
	if conn == nil {
		return nil, nil, apierr.NotFound("supplier connection not found")
	}
	return profile, conn, nil
}

func (s *connectionService) ownedProfileLoose(ctx context.Context, tx *gorm.DB, actor ctxutil.Actor, profileID uuid.UUID) (*types.SupplierProfile, *types.TenantConnection, error) {
	profile, err := s.profiles.GetByID(ctx, tx, profileID)
	if err != nil {
		return nil, nil, err
	}
	if profile == nil || profile.TenantID != actor.ActingTenantID {
		return nil, nil, apierr.NotFound("supplier profile not found")
	}
	conn, err := s.conns.GetByID(ctx, tx, profile.ConnectionID)
	if err != nil {
		return nil, nil, err
	}
	return profile, conn, nil
}

func (s *connectionService) syncProfile(ctx context.Context, tx *gorm.DB, conn *types.TenantConnection, supplierSlug string) error {
	profile, err := s.profiles.GetByConnectionID(ctx, tx, conn.ID)
	if err != nil {
		return err
	}
	if profile == nil {
		return nil
	}
	profile.SyncFromConnection(conn, supplierSlug)
	return s.profiles.Save(ctx, tx, profile)
}

// afterConnectionChange schedules the shared post-commit effects: audit row,
// domain metric, and the neo4j supply-network mirror.
func (s *connectionService) afterConnectionChange(actor ctxutil.Actor, conn *types.TenantConnection, action types.AuditAction, changes map[string]any) {
	if conn == nil {
		return
	}
	s.metrics.RecordConnectionEvent(strings.ToLower(string(conn.Status)))

	s.async.Go("audit.connection", func(ctx context.Context) error {
		return s.audit.Record(ctx, AuditEntry{
			TenantID:    actor.ActingTenantID,
			ActorUserID: actor.UserID,
			EntityType:  EntityTenantConnection,
			EntityID:    conn.ID,
			Action:      action,
			Changes:     changes,
			IPAddress:   actor.IPAddress,
		})
	})
	s.async.Go("graph.supply_network", func(ctx context.Context) error {
		return graph.UpsertSupplyNetwork(ctx, s.graphDB, s.graphLog, conn)
	})
}
