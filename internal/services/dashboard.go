package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/tracebind/passport-backend/internal/data/repos"
	"github.com/tracebind/passport-backend/internal/data/repos/catalog"
	types "github.com/tracebind/passport-backend/internal/domain"
	"github.com/tracebind/passport-backend/internal/pkg/ctxutil"
	"github.com/tracebind/passport-backend/internal/platform/logger"
)

// dueSoonWindow is how far ahead the supplier dashboard looks for deadline
// warnings.
const dueSoonWindow = 7 * 24 * time.Hour

type SupplierStatusCounts struct {
	Active    int64 `json:"active"`
	Pending   int64 `json:"pending"`
	Suspended int64 `json:"suspended"`
}

type BrandOverview struct {
	ProductCount           int64 `json:"product_count"`
	PublishedPassportCount int64 `json:"published_passport_count"`
	ActiveRequestCount     int64 `json:"active_request_count"`
	CompletedRequestCount  int64 `json:"completed_request_count"`

	SupplierCounts SupplierStatusCounts `json:"supplier_counts"`
}

// PendingInvite is one unanswered connection shown on the supplier's
// dashboard, flattened from the connection and the inviting brand.
type PendingInvite struct {
	ConnectionID uuid.UUID `json:"connection_id"`
	BrandName    string    `json:"brand_name"`
	BrandSlug    string    `json:"brand_slug"`
	Note         string    `json:"note"`
	InvitedAt    time.Time `json:"invited_at"`
}

// SupplierTask is one open contribution request with a rough completion
// meter so suppliers can see where to spend their time.
type SupplierTask struct {
	RequestID         uuid.UUID           `json:"request_id"`
	ProductName       string              `json:"product_name"`
	ProductSKU        string              `json:"product_sku"`
	BrandName         string              `json:"brand_name"`
	Status            types.RequestStatus `json:"status"`
	DueDate           *time.Time          `json:"due_date,omitempty"`
	CompletionPercent int                 `json:"completion_percent"`
}

type SupplierOverview struct {
	PendingInvites      []*PendingInvite `json:"pending_invites"`
	ConnectedBrandCount int64            `json:"connected_brand_count"`
	ActiveTaskCount     int64            `json:"active_task_count"`
	CompletedTaskCount  int64            `json:"completed_task_count"`
	DueSoonCount        int64            `json:"due_soon_count"`
	Tasks               []*SupplierTask  `json:"tasks"`
}

type DashboardService interface {
	BrandOverview(ctx context.Context, actor ctxutil.Actor) (*BrandOverview, error)
	SupplierOverview(ctx context.Context, actor ctxutil.Actor) (*SupplierOverview, error)
}

type dashboardService struct {
	db  *gorm.DB
	log *logger.Logger

	products  repos.ProductRepo
	versions  repos.VersionRepo
	passports repos.PassportRepo
	requests  repos.RequestRepo
	conns     repos.ConnectionRepo
	profiles  repos.SupplierProfileRepo
	tenants   repos.TenantRepo
}

func NewDashboardService(
	db *gorm.DB,
	baseLog *logger.Logger,
	products repos.ProductRepo,
	versions repos.VersionRepo,
	passports repos.PassportRepo,
	requests repos.RequestRepo,
	conns repos.ConnectionRepo,
	profiles repos.SupplierProfileRepo,
	tenants repos.TenantRepo,
) DashboardService {
	return &dashboardService{
		db:        db,
		log:       baseLog.With("service", "DashboardService"),
		products:  products,
		versions:  versions,
		passports: passports,
		requests:  requests,
		conns:     conns,
		profiles:  profiles,
		tenants:   tenants,
	}
}

// BrandOverview fans the brand KPIs out concurrently; every count is an
// independent read so a slow one never serializes the rest.
func (s *dashboardService) BrandOverview(ctx context.Context, actor ctxutil.Actor) (*BrandOverview, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("dashboard service not configured")
	}
	if err := requireBrandActor(actor); err != nil {
		return nil, err
	}

	tenantID := actor.ActingTenantID
	out := &BrandOverview{}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	g.Go(func() error {
		n, err := s.products.CountByTenant(gctx, nil, tenantID)
		out.ProductCount = n
		return err
	})
	g.Go(func() error {
		n, err := s.passports.CountPublishedByTenant(gctx, nil, tenantID)
		out.PublishedPassportCount = n
		return err
	})
	g.Go(func() error {
		n, err := s.requests.CountForBrand(gctx, nil, tenantID, types.NonTerminalRequestStatuses())
		out.ActiveRequestCount = n
		return err
	})
	g.Go(func() error {
		n, err := s.requests.CountForBrand(gctx, nil, tenantID, []types.RequestStatus{types.RequestCompleted})
		out.CompletedRequestCount = n
		return err
	})
	g.Go(func() error {
		n, err := s.profiles.CountByTenantAndStatus(gctx, nil, tenantID, types.ConnectionActive)
		out.SupplierCounts.Active = n
		return err
	})
	g.Go(func() error {
		n, err := s.profiles.CountByTenantAndStatus(gctx, nil, tenantID, types.ConnectionPending)
		out.SupplierCounts.Pending = n
		return err
	})
	g.Go(func() error {
		n, err := s.profiles.CountByTenantAndStatus(gctx, nil, tenantID, types.ConnectionSuspended)
		out.SupplierCounts.Suspended = n
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *dashboardService) SupplierOverview(ctx context.Context, actor ctxutil.Actor) (*SupplierOverview, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("dashboard service not configured")
	}
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	tenantID := actor.ActingTenantID
	out := &SupplierOverview{
		PendingInvites: []*PendingInvite{},
		Tasks:          []*SupplierTask{},
	}

	var openRequests []*types.DataContributionRequest
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	g.Go(func() error {
		conns, err := s.conns.ListForSupplierTenant(gctx, nil, tenantID, []types.ConnectionStatus{types.ConnectionPending})
		if err != nil {
			return err
		}
		for _, conn := range conns {
			invite := &PendingInvite{
				ConnectionID: conn.ID,
				Note:         conn.RequestNote,
				InvitedAt:    conn.CreatedAt,
			}
			if conn.RequesterTenant != nil {
				invite.BrandName = conn.RequesterTenant.Name
				invite.BrandSlug = conn.RequesterTenant.Slug
			}
			out.PendingInvites = append(out.PendingInvites, invite)
		}
		return nil
	})
	g.Go(func() error {
		conns, err := s.conns.ListForSupplierTenant(gctx, nil, tenantID, []types.ConnectionStatus{types.ConnectionActive})
		out.ConnectedBrandCount = int64(len(conns))
		return err
	})
	g.Go(func() error {
		n, err := s.requests.CountForSupplier(gctx, nil, tenantID, []types.RequestStatus{types.RequestCompleted})
		out.CompletedTaskCount = n
		return err
	})
	g.Go(func() error {
		n, err := s.requests.CountDueBefore(gctx, nil, tenantID, time.Now().Add(dueSoonWindow))
		out.DueSoonCount = n
		return err
	})
	g.Go(func() error {
		rows, err := s.requests.ListBySupplierTenant(gctx, nil, tenantID, []types.RequestStatus{
			types.RequestSent, types.RequestInProgress, types.RequestChangesRequested,
		})
		openRequests = rows
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out.ActiveTaskCount = int64(len(openRequests))
	tasks, err := s.supplierTasks(ctx, openRequests)
	if err != nil {
		return nil, err
	}
	out.Tasks = tasks
	return out, nil
}

// supplierTasks flattens open requests into dashboard rows with three
// batched lookups plus a bulk line count for the completion meters.
func (s *dashboardService) supplierTasks(ctx context.Context, rows []*types.DataContributionRequest) ([]*SupplierTask, error) {
	if len(rows) == 0 {
		return []*SupplierTask{}, nil
	}

	versionIDs := make([]uuid.UUID, 0, len(rows))
	productIDs := make([]uuid.UUID, 0, len(rows))
	brandIDs := make([]uuid.UUID, 0, len(rows))
	for _, r := range rows {
		versionIDs = append(versionIDs, r.CurrentVersionID)
		productIDs = append(productIDs, r.ProductID)
		brandIDs = append(brandIDs, r.BrandTenantID)
	}

	versionRows, err := s.versions.GetByIDs(ctx, nil, versionIDs)
	if err != nil {
		return nil, err
	}
	versionByID := make(map[uuid.UUID]*types.ProductVersion, len(versionRows))
	for _, v := range versionRows {
		versionByID[v.ID] = v
	}

	productRows, err := s.products.GetByIDs(ctx, nil, productIDs)
	if err != nil {
		return nil, err
	}
	productByID := make(map[uuid.UUID]*types.Product, len(productRows))
	for _, p := range productRows {
		productByID[p.ID] = p
	}

	brandRows, err := s.tenants.GetByIDs(ctx, nil, brandIDs)
	if err != nil {
		return nil, err
	}
	brandByID := make(map[uuid.UUID]*types.Tenant, len(brandRows))
	for _, t := range brandRows {
		brandByID[t.ID] = t
	}

	lineCounts, err := s.versions.CountLinesByVersions(ctx, nil, versionIDs)
	if err != nil {
		return nil, err
	}

	out := make([]*SupplierTask, 0, len(rows))
	for _, r := range rows {
		task := &SupplierTask{
			RequestID: r.ID,
			Status:    r.Status,
			DueDate:   r.DueDate,
		}
		if v, ok := versionByID[r.CurrentVersionID]; ok {
			task.ProductName = v.ProductName
			task.CompletionPercent = completionPercent(v, lineCounts[v.ID])
		}
		if p, ok := productByID[r.ProductID]; ok {
			task.ProductSKU = p.SKU
		}
		if t, ok := brandByID[r.BrandTenantID]; ok {
			task.BrandName = t.Name
		}
		out = append(out, task)
	}
	return out, nil
}

// completionPercent is a rough filled-checkpoint ratio over the version's
// impact scalars and child collections. It guides attention, nothing gates
// on it.
func completionPercent(v *types.ProductVersion, lines catalog.VersionLineCounts) int {
	if v == nil {
		return 0
	}
	const checkpoints = 9

	filled := 0
	if v.ManufacturingCountry != "" {
		filled++
	}
	if v.TotalCarbonFootprintKG != nil {
		filled++
	}
	if v.TotalWaterUsageLiters != nil {
		filled++
	}
	if v.TotalEnergyMJ != nil {
		filled++
	}
	if v.RecyclingInstructions != "" {
		filled++
	}
	if v.RecyclabilityClass != "" {
		filled++
	}
	if lines.Materials > 0 {
		filled++
	}
	if lines.Suppliers > 0 {
		filled++
	}
	if lines.Certifications > 0 {
		filled++
	}
	return filled * 100 / checkpoints
}
