package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/tracebind/passport-backend/internal/data/repos"
	types "github.com/tracebind/passport-backend/internal/domain"
	"github.com/tracebind/passport-backend/internal/pkg/ctxutil"
	"github.com/tracebind/passport-backend/internal/platform/apierr"
	"github.com/tracebind/passport-backend/internal/platform/envutil"
	"github.com/tracebind/passport-backend/internal/platform/logger"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"

	minPasswordLen  = 8
	maxSlugAttempts = 50
)

type RegisterInput struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`

	CompanyName     string           `json:"company_name"`
	CompanyType     types.TenantType `json:"company_type"`
	LocationCountry string           `json:"location_country"`

	// Optional: pre-validates a pending connection invite and links it to
	// the new tenant inside the registration transaction.
	InvitationToken string `json:"invitation_token"`
}

type AuthTokens struct {
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token"`
	TokenType        string `json:"token_type"`
	ExpiresInSeconds int64  `json:"expires_in_seconds"`
}

type AuthSession struct {
	User   *types.User      `json:"user"`
	Tenant *types.Tenant    `json:"tenant"`
	Role   types.MemberRole `json:"role"`
	Tokens AuthTokens       `json:"tokens"`
}

type MeView struct {
	User   *types.User      `json:"user"`
	Tenant *types.Tenant    `json:"tenant"`
	Role   types.MemberRole `json:"role"`
}

type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*AuthSession, error)
	Login(ctx context.Context, email, password string) (*AuthSession, error)
	Refresh(ctx context.Context, refreshToken string) (*AuthTokens, error)
	Me(ctx context.Context, actor ctxutil.Actor) (*MeView, error)

	// ParseAccessToken validates a bearer token and returns the subject
	// user id. Used by the auth middleware on every request.
	ParseAccessToken(token string) (uuid.UUID, error)
	// ResolveActor loads the user's single ACTIVE membership and builds the
	// actor context the middleware injects downstream.
	ResolveActor(ctx context.Context, userID uuid.UUID) (ctxutil.Actor, error)
}

type authService struct {
	db  *gorm.DB
	log *logger.Logger

	users    repos.UserRepo
	tenants  repos.TenantRepo
	members  repos.TenantMemberRepo
	conns    repos.ConnectionRepo
	profiles repos.SupplierProfileRepo

	audit AuditService
	async *Dispatcher

	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewAuthService(
	db *gorm.DB,
	baseLog *logger.Logger,
	users repos.UserRepo,
	tenants repos.TenantRepo,
	members repos.TenantMemberRepo,
	conns repos.ConnectionRepo,
	profiles repos.SupplierProfileRepo,
	audit AuditService,
	async *Dispatcher,
) (AuthService, error) {
	secret := strings.TrimSpace(envutil.String("JWT_SECRET", ""))
	if secret == "" {
		return nil, fmt.Errorf("missing JWT_SECRET")
	}

	return &authService{
		db:         db,
		log:        baseLog.With("service", "AuthService"),
		users:      users,
		tenants:    tenants,
		members:    members,
		conns:      conns,
		profiles:   profiles,
		audit:      audit,
		async:      async,
		secret:     []byte(secret),
		accessTTL:  time.Duration(envutil.Int("JWT_ACCESS_TTL_MINUTES", 15)) * time.Minute,
		refreshTTL: time.Duration(envutil.Int("JWT_REFRESH_TTL_HOURS", 168)) * time.Hour,
	}, nil
}

func (s *authService) Register(ctx context.Context, in RegisterInput) (*AuthSession, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("auth service not configured")
	}

	email := strings.ToLower(strings.TrimSpace(in.Email))
	companyName := strings.TrimSpace(in.CompanyName)
	switch {
	case email == "" || !strings.Contains(email, "@"):
		return nil, apierr.Validation("a valid email is required")
	case len(in.Password) < minPasswordLen:
		return nil, apierr.Validation("password must be at least %d characters", minPasswordLen)
	case strings.TrimSpace(in.FirstName) == "" || strings.TrimSpace(in.LastName) == "":
		return nil, apierr.Validation("first and last name are required")
	case companyName == "":
		return nil, apierr.Validation("company name is required")
	case in.CompanyType != types.TenantTypeBrand && in.CompanyType != types.TenantTypeSupplier:
		return nil, apierr.Validation("company type must be BRAND or SUPPLIER")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	var (
		user   *types.User
		tenant *types.Tenant
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		emailTaken, err := s.users.EmailExists(ctx, tx, email)
		if err != nil {
			return err
		}
		if emailTaken {
			return apierr.Conflict("an account with this email already exists")
		}

		nameTaken, err := s.tenants.NameExists(ctx, tx, companyName)
		if err != nil {
			return err
		}
		if nameTaken {
			return apierr.Conflict("an organization with this company name already exists")
		}

		slug, err := s.allocateSlug(ctx, tx, companyName)
		if err != nil {
			return err
		}

		user = &types.User{
			Email:        email,
			PasswordHash: string(hash),
			FirstName:    strings.TrimSpace(in.FirstName),
			LastName:     strings.TrimSpace(in.LastName),
			IsActive:     true,
		}
		if _, err := s.users.Create(ctx, tx, []*types.User{user}); err != nil {
			return err
		}

		tenant = &types.Tenant{
			Name:            companyName,
			Slug:            slug,
			Type:            in.CompanyType,
			Status:          types.TenantStatusActive,
			LocationCountry: strings.TrimSpace(in.LocationCountry),
		}
		if _, err := s.tenants.Create(ctx, tx, []*types.Tenant{tenant}); err != nil {
			return err
		}

		member := &types.TenantMember{
			TenantID: tenant.ID,
			UserID:   user.ID,
			Role:     types.MemberRoleOwner,
			Status:   types.MemberStatusActive,
		}
		if _, err := s.members.Create(ctx, tx, []*types.TenantMember{member}); err != nil {
			return err
		}

		if token := strings.TrimSpace(in.InvitationToken); token != "" {
			if err := s.claimInvitationToken(ctx, tx, token, tenant); err != nil {
				return err
			}
		}

		return s.linkPendingInvitations(ctx, tx, email, tenant)
	})
	if err != nil {
		return nil, err
	}

	tokens, err := s.issueTokens(user.ID)
	if err != nil {
		return nil, err
	}

	s.async.Go("audit.register", func(ctx context.Context) error {
		return s.audit.Record(ctx, AuditEntry{
			TenantID:    tenant.ID,
			ActorUserID: user.ID,
			EntityType:  EntityTenant,
			EntityID:    tenant.ID,
			Action:      types.AuditCreate,
			Changes:     map[string]any{"name": tenant.Name, "slug": tenant.Slug, "type": tenant.Type},
		})
	})

	s.log.Info("Registration successful", "user_id", user.ID, "tenant_id", tenant.ID, "type", tenant.Type)
	return &AuthSession{User: user, Tenant: tenant, Role: types.MemberRoleOwner, Tokens: *tokens}, nil
}

// allocateSlug walks -1, -2... suffixes until the handle is free. Bounded so
// a pathological name cannot spin the transaction forever.
func (s *authService) allocateSlug(ctx context.Context, tx *gorm.DB, name string) (string, error) {
	base := types.Slugify(name)
	candidate := base
	for i := 1; i <= maxSlugAttempts; i++ {
		taken, err := s.tenants.SlugExists(ctx, tx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
	return "", apierr.Conflict("could not allocate a unique handle for %q", name)
}

// claimInvitationToken links the invite the registrant followed. The token
// must still resolve to an open invite and the new tenant must be able to
// act as a supplier.
func (s *authService) claimInvitationToken(ctx context.Context, tx *gorm.DB, token string, tenant *types.Tenant) error {
	conn, err := s.conns.GetByToken(ctx, tx, token)
	if err != nil {
		return err
	}
	if conn == nil || conn.Status != types.ConnectionPending {
		return apierr.Validation("invalid or expired invitation token")
	}
	if !tenant.Type.CanSupply() {
		return apierr.Validation("only supplier accounts can claim a supplier invitation")
	}

	conn.SupplierTenantID = &tenant.ID
	if err := s.conns.Save(ctx, tx, conn); err != nil {
		return err
	}
	return s.syncProfileForConnection(ctx, tx, conn, tenant.Slug)
}

// linkPendingInvitations attaches every open invite addressed to the new
// account's email. Status stays PENDING; the supplier still accepts
// explicitly.
func (s *authService) linkPendingInvitations(ctx context.Context, tx *gorm.DB, email string, tenant *types.Tenant) error {
	if !tenant.Type.CanSupply() {
		return nil
	}

	pending, err := s.conns.GetPendingByInvitationEmail(ctx, tx, email)
	if err != nil {
		return err
	}
	for _, conn := range pending {
		if conn == nil || conn.SupplierTenantID != nil {
			continue
		}
		conn.SupplierTenantID = &tenant.ID
		if err := s.conns.Save(ctx, tx, conn); err != nil {
			return err
		}
		if err := s.syncProfileForConnection(ctx, tx, conn, tenant.Slug); err != nil {
			return err
		}
		s.log.Info("Linked pending invitation", "connection_id", conn.ID, "tenant_id", tenant.ID)
	}
	return nil
}

func (s *authService) syncProfileForConnection(ctx context.Context, tx *gorm.DB, conn *types.TenantConnection, supplierSlug string) error {
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

func (s *authService) Login(ctx context.Context, email, password string) (*AuthSession, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("auth service not configured")
	}

	email = strings.ToLower(strings.TrimSpace(email))

	// Every credential failure returns the same opaque error so responses
	// cannot be used to enumerate accounts.
	user, err := s.users.GetByEmail(ctx, nil, email)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.IsActive {
		return nil, apierr.Unauthorized("invalid credentials")
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, apierr.Unauthorized("invalid credentials")
	}

	tenant, role, err := s.activeMembership(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	tokens, err := s.issueTokens(user.ID)
	if err != nil {
		return nil, err
	}
	return &AuthSession{User: user, Tenant: tenant, Role: role, Tokens: *tokens}, nil
}

func (s *authService) Refresh(ctx context.Context, refreshToken string) (*AuthTokens, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("auth service not configured")
	}

	userID, err := s.parseToken(refreshToken, tokenTypeRefresh)
	if err != nil {
		return nil, apierr.Unauthorized("invalid refresh token")
	}

	users, err := s.users.GetByIDs(ctx, nil, []uuid.UUID{userID})
	if err != nil {
		return nil, err
	}
	if len(users) == 0 || users[0] == nil || !users[0].IsActive {
		return nil, apierr.Unauthorized("invalid refresh token")
	}

	return s.issueTokens(userID)
}

func (s *authService) Me(ctx context.Context, actor ctxutil.Actor) (*MeView, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("auth service not configured")
	}
	if !actor.Valid() {
		return nil, apierr.Unauthorized("missing actor context")
	}

	users, err := s.users.GetByIDs(ctx, nil, []uuid.UUID{actor.UserID})
	if err != nil {
		return nil, err
	}
	if len(users) == 0 || users[0] == nil {
		return nil, apierr.NotFound("user not found")
	}

	tenants, err := s.tenants.GetByIDs(ctx, nil, []uuid.UUID{actor.ActingTenantID})
	if err != nil {
		return nil, err
	}
	if len(tenants) == 0 || tenants[0] == nil {
		return nil, apierr.NotFound("tenant not found")
	}

	return &MeView{User: users[0], Tenant: tenants[0], Role: actor.MemberRole}, nil
}

func (s *authService) ParseAccessToken(token string) (uuid.UUID, error) {
	userID, err := s.parseToken(token, tokenTypeAccess)
	if err != nil {
		return uuid.Nil, apierr.Unauthorized("invalid or expired token")
	}
	return userID, nil
}

func (s *authService) ResolveActor(ctx context.Context, userID uuid.UUID) (ctxutil.Actor, error) {
	if s == nil || s.db == nil {
		return ctxutil.Actor{}, fmt.Errorf("auth service not configured")
	}

	users, err := s.users.GetByIDs(ctx, nil, []uuid.UUID{userID})
	if err != nil {
		return ctxutil.Actor{}, err
	}
	if len(users) == 0 || users[0] == nil || !users[0].IsActive {
		return ctxutil.Actor{}, apierr.Unauthorized("invalid or expired token")
	}

	tenant, role, err := s.activeMembership(ctx, userID)
	if err != nil {
		return ctxutil.Actor{}, err
	}

	return ctxutil.Actor{
		UserID:         userID,
		ActingTenantID: tenant.ID,
		TenantType:     tenant.Type,
		TenantSlug:     tenant.Slug,
		MemberRole:     role,
	}, nil
}

// activeMembership resolves the single ACTIVE membership that defines the
// user's tenant context. Suspended tenants reject their members here.
func (s *authService) activeMembership(ctx context.Context, userID uuid.UUID) (*types.Tenant, types.MemberRole, error) {
	memberships, err := s.members.GetActiveByUserID(ctx, nil, userID)
	if err != nil {
		return nil, "", err
	}
	if len(memberships) == 0 || memberships[0] == nil {
		return nil, "", apierr.Forbidden("no active tenant membership")
	}
	member := memberships[0]

	tenants, err := s.tenants.GetByIDs(ctx, nil, []uuid.UUID{member.TenantID})
	if err != nil {
		return nil, "", err
	}
	if len(tenants) == 0 || tenants[0] == nil {
		return nil, "", apierr.Forbidden("no active tenant membership")
	}
	tenant := tenants[0]
	if tenant.Status != types.TenantStatusActive {
		return nil, "", apierr.Forbidden("tenant is not active")
	}

	return tenant, member.Role, nil
}

func (s *authService) issueTokens(userID uuid.UUID) (*AuthTokens, error) {
	access, err := s.signToken(userID, tokenTypeAccess, s.accessTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := s.signToken(userID, tokenTypeRefresh, s.refreshTTL)
	if err != nil {
		return nil, err
	}
	return &AuthTokens{
		AccessToken:      access,
		RefreshToken:     refresh,
		TokenType:        "bearer",
		ExpiresInSeconds: int64(s.accessTTL.Seconds()),
	}, nil
}

func (s *authService) signToken(userID uuid.UUID, tokenType string, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"sub":  userID.String(),
		"type": tokenType,
		"iat":  now.Unix(),
		"exp":  now.Add(ttl).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", tokenType, err)
	}
	return signed, nil
}

// parseToken enforces HS256 and the type claim so a refresh token can never
// pass as an access token and vice versa.
func (s *authService) parseToken(raw, wantType string) (uuid.UUID, error) {
	parsed, err := jwt.Parse(strings.TrimSpace(raw), func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !parsed.Valid {
		return uuid.Nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return uuid.Nil, fmt.Errorf("unexpected claims shape")
	}
	if tt, _ := claims["type"].(string); tt != wantType {
		return uuid.Nil, fmt.Errorf("unexpected token type %q", tt)
	}

	sub, _ := claims["sub"].(string)
	userID, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil, fmt.Errorf("parse token subject: %w", err)
	}
	return userID, nil
}
