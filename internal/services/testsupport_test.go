package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tracebind/passport-backend/internal/data/repos"
	"github.com/tracebind/passport-backend/internal/data/repos/testutil"
	types "github.com/tracebind/passport-backend/internal/domain"
	"github.com/tracebind/passport-backend/internal/pkg/ctxutil"
	"github.com/tracebind/passport-backend/internal/platform/apierr"
	"github.com/tracebind/passport-backend/internal/platform/logger"
)

// harness wires services against the shared test database. Service
// transactions commit for real, so each test seeds its own tenants and
// asserts only on rows it created.
type harness struct {
	db  *gorm.DB
	log *logger.Logger

	users        repos.UserRepo
	tenants      repos.TenantRepo
	members      repos.TenantMemberRepo
	conns        repos.ConnectionRepo
	profiles     repos.SupplierProfileRepo
	products     repos.ProductRepo
	versions     repos.VersionRepo
	media        repos.MediaRepo
	requests     repos.RequestRepo
	comments     repos.CommentRepo
	materials    repos.MaterialRepo
	certs        repos.CertificationRepo
	certDefs     repos.CertificateDefinitionRepo
	materialDefs repos.MaterialDefinitionRepo
	passports    repos.PassportRepo

	audit  AuditService
	notify Notifier
	async  *Dispatcher
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)

	h := &harness{
		db:           db,
		log:          log,
		users:        repos.NewUserRepo(db, log),
		tenants:      repos.NewTenantRepo(db, log),
		members:      repos.NewTenantMemberRepo(db, log),
		conns:        repos.NewConnectionRepo(db, log),
		profiles:     repos.NewSupplierProfileRepo(db, log),
		products:     repos.NewProductRepo(db, log),
		versions:     repos.NewVersionRepo(db, log),
		media:        repos.NewMediaRepo(db, log),
		requests:     repos.NewRequestRepo(db, log),
		comments:     repos.NewCommentRepo(db, log),
		materials:    repos.NewMaterialRepo(db, log),
		certs:        repos.NewCertificationRepo(db, log),
		certDefs:     repos.NewCertificateDefinitionRepo(db, log),
		materialDefs: repos.NewMaterialDefinitionRepo(db, log),
		passports:    repos.NewPassportRepo(db, log),
	}
	h.audit = NewAuditService(db, log, repos.NewAuditRepo(db, log))
	h.notify = NewNotifier(log, nil, nil)
	h.async = NewDispatcher(log, nil)
	t.Cleanup(h.async.Wait)
	return h
}

func (h *harness) connectionService() ConnectionService {
	return NewConnectionService(h.db, h.log, h.conns, h.profiles, h.tenants, h.audit, h.notify, h.async, nil, nil)
}

func (h *harness) contributionService() ContributionService {
	return NewContributionService(h.db, h.log, h.requests, h.comments, h.products, h.versions,
		h.profiles, h.tenants, h.materials, h.materialDefs, h.certs, h.certDefs,
		nil, h.audit, h.notify, h.async, nil, nil)
}

func (h *harness) productService() ProductService {
	return NewProductService(h.db, h.log, h.products, h.versions, h.media, h.profiles, h.passports,
		h.materials, h.materialDefs, h.certs, h.certDefs, nil, h.audit, h.async, nil, nil)
}

func (h *harness) libraryService() LibraryService {
	return NewLibraryService(h.db, h.log, h.materials, h.certs, h.certDefs, h.materialDefs, h.versions, h.audit, h.async)
}

func (h *harness) commentService() CommentService {
	return NewCommentService(h.db, h.log, h.comments, h.requests, h.users, h.tenants, h.audit, h.notify, h.async)
}

// seedActor creates a tenant of the given type plus an owner membership and
// returns the actor the HTTP layer would have resolved for it.
func (h *harness) seedActor(t *testing.T, ctx context.Context, name string, tenantType types.TenantType) (*types.Tenant, ctxutil.Actor) {
	t.Helper()
	user := testutil.SeedUser(t, ctx, h.db, fmt.Sprintf("%s@example.test", uuid.NewString()[:13]))
	tenant := testutil.SeedTenant(t, ctx, h.db, fmt.Sprintf("%s %s", name, uuid.NewString()[:8]), tenantType)
	testutil.SeedMember(t, ctx, h.db, tenant.ID, user.ID, types.MemberRoleOwner)
	return tenant, ctxutil.Actor{
		UserID:         user.ID,
		ActingTenantID: tenant.ID,
		TenantType:     tenant.Type,
		TenantSlug:     tenant.Slug,
		MemberRole:     types.MemberRoleOwner,
	}
}

// seedActivePair links a brand and a supplier with an ACTIVE connection and
// a synced address-book profile ready for assignment.
func (h *harness) seedActivePair(t *testing.T, ctx context.Context, brand, supplier *types.Tenant) (*types.TenantConnection, *types.SupplierProfile) {
	t.Helper()
	conn := testutil.SeedConnection(t, ctx, h.db, brand.ID, "", types.ConnectionActive)
	conn.SupplierTenantID = &supplier.ID
	if err := h.db.WithContext(ctx).Save(conn).Error; err != nil {
		t.Fatalf("bind connection supplier: %v", err)
	}
	profile := testutil.SeedProfile(t, ctx, h.db, brand.ID, conn.ID, fmt.Sprintf("Profile %s", uuid.NewString()[:8]))
	profile.SyncFromConnection(conn, supplier.Slug)
	if err := h.db.WithContext(ctx).Save(profile).Error; err != nil {
		t.Fatalf("sync profile: %v", err)
	}
	return conn, profile
}

func wantCode(t *testing.T, err error, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", code)
	}
	if !apierr.IsCode(err, code) {
		t.Fatalf("expected %s error, got %v", code, err)
	}
}

func ptr[T any](v T) *T { return &v }
