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
	"github.com/tracebind/passport-backend/internal/platform/qrlabel"
	"github.com/tracebind/passport-backend/internal/platform/vault"
)

// PublicMaterial is one BOM line on the unauthenticated passport page.
type PublicMaterial struct {
	Name          string  `json:"name"`
	Percentage    float64 `json:"percentage"`
	OriginCountry string  `json:"origin_country,omitempty"`
}

type PublicCertification struct {
	Name        string     `json:"name,omitempty"`
	Issuer      string     `json:"issuer,omitempty"`
	DocumentURL string     `json:"document_url,omitempty"`
	ValidUntil  *time.Time `json:"valid_until,omitempty"`
}

type PublicImpact struct {
	ManufacturingCountry   string   `json:"manufacturing_country,omitempty"`
	TotalCarbonFootprintKG *float64 `json:"total_carbon_footprint_kg,omitempty"`
	TotalWaterUsageLiters  *float64 `json:"total_water_usage_liters,omitempty"`
	TotalEnergyMJ          *float64 `json:"total_energy_mj,omitempty"`
	RecyclingInstructions  string   `json:"recycling_instructions,omitempty"`
	RecyclabilityClass     string   `json:"recyclability_class,omitempty"`
}

// PublicPassportView is everything the QR landing page renders. It exposes
// no tenant IDs, no version plumbing and no supplier identities beyond the
// names the brand chose to publish.
type PublicPassportView struct {
	PublicUID   string     `json:"public_uid"`
	ProductName string     `json:"product_name"`
	Category    string     `json:"category,omitempty"`
	Description string     `json:"description,omitempty"`
	BrandName   string     `json:"brand_name,omitempty"`
	ImageURL    string     `json:"image_url,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`

	Materials      []PublicMaterial      `json:"materials"`
	Certifications []PublicCertification `json:"certifications"`
	Impact         PublicImpact          `json:"impact"`
}

type PassportService interface {
	// Publish points the product's passport at an approved version, minting
	// the passport and its public UID on first publish. versionID may be Nil
	// to publish the product's current version.
	Publish(ctx context.Context, actor ctxutil.Actor, productID, versionID uuid.UUID) (*types.ProductPassport, error)
	Archive(ctx context.Context, actor ctxutil.Actor, productID uuid.UUID) (*types.ProductPassport, error)
	Get(ctx context.Context, actor ctxutil.Actor, productID uuid.UUID) (*types.ProductPassport, error)

	// PublicView serves the QR landing page. No actor: this is the one
	// unauthenticated read in the system.
	PublicView(ctx context.Context, publicUID string) (*PublicPassportView, error)

	Chain(ctx context.Context, actor ctxutil.Actor, productID uuid.UUID) (*graph.ProductChainView, error)
}

type passportService struct {
	db  *gorm.DB
	log *logger.Logger

	passports repos.PassportRepo
	products  repos.ProductRepo
	versions  repos.VersionRepo
	media     repos.MediaRepo
	tenants   repos.TenantRepo
	materials repos.MaterialRepo
	certs     repos.CertificationRepo
	certDefs  repos.CertificateDefinitionRepo

	files   vault.FileVault
	labels  qrlabel.Renderer
	baseURL string

	audit   AuditService
	notify  Notifier
	async   *Dispatcher
	graphDB *neo4jdb.Client
	metrics *observability.Metrics
}

func NewPassportService(
	db *gorm.DB,
	baseLog *logger.Logger,
	passports repos.PassportRepo,
	products repos.ProductRepo,
	versions repos.VersionRepo,
	media repos.MediaRepo,
	tenants repos.TenantRepo,
	materials repos.MaterialRepo,
	certs repos.CertificationRepo,
	certDefs repos.CertificateDefinitionRepo,
	files vault.FileVault,
	labels qrlabel.Renderer,
	appBaseURL string,
	audit AuditService,
	notify Notifier,
	async *Dispatcher,
	graphDB *neo4jdb.Client,
	metrics *observability.Metrics,
) PassportService {
	return &passportService{
		db:        db,
		log:       baseLog.With("service", "PassportService"),
		passports: passports,
		products:  products,
		versions:  versions,
		media:     media,
		tenants:   tenants,
		materials: materials,
		certs:     certs,
		certDefs:  certDefs,
		files:     files,
		labels:    labels,
		baseURL:   strings.TrimRight(strings.TrimSpace(appBaseURL), "/"),
		audit:     audit,
		notify:    notify,
		async:     async,
		graphDB:   graphDB,
		metrics:   metrics,
	}
}

func (s *passportService) Publish(ctx context.Context, actor ctxutil.Actor, productID, versionID uuid.UUID) (*types.ProductPassport, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("passport service not configured")
	}
	if err := requireBrandActor(actor); err != nil {
		return nil, err
	}

	// Resolve everything needed to render the label before opening the
	// write transaction; the label upload must precede the commit.
	product, err := s.products.GetByID(ctx, nil, productID)
	if err != nil {
		return nil, err
	}
	if product == nil || product.TenantID != actor.ActingTenantID {
		return nil, apierr.NotFound("product not found")
	}

	if versionID == uuid.Nil {
		if product.CurrentVersionID == nil {
			return nil, apierr.InvalidState("product has no version to publish")
		}
		versionID = *product.CurrentVersionID
	}
	version, err := s.versions.GetByID(ctx, nil, versionID)
	if err != nil {
		return nil, err
	}
	if version == nil || version.ProductID != product.ID {
		return nil, apierr.NotFound("version not found")
	}
	if version.Status != types.VersionApproved {
		return nil, apierr.InvalidState("version is %s; only approved versions can be published", version.Status)
	}

	pp, err := s.passports.GetByProductID(ctx, nil, product.ID)
	if err != nil {
		return nil, err
	}
	created := pp == nil
	if created {
		uid, err := types.NewPublicUID()
		if err != nil {
			return nil, err
		}
		pp = &types.ProductPassport{
			ID:        uuid.New(),
			ProductID: product.ID,
			PublicUID: uid,
			Status:    types.PassportDraft,
		}
	}
	if pp.Status == types.PassportPublished && pp.PublishedVersionID != nil && *pp.PublishedVersionID == version.ID {
		return nil, apierr.Conflict("version is already published")
	}

	targetURL := s.publicURL(pp.PublicUID)
	labelURL, labelKey, err := s.renderLabel(ctx, pp, version, targetURL)
	if err != nil {
		return nil, err
	}

	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		pp.Status = types.PassportPublished
		pp.PublishedVersionID = &version.ID
		pp.TargetURL = targetURL
		pp.PublishedAt = &now
		if labelURL != "" {
			pp.QRLabelURL = labelURL
			pp.LabelVersion++
		}
		if created {
			_, err := s.passports.Create(ctx, tx, []*types.ProductPassport{pp})
			return err
		}
		return s.passports.Save(ctx, tx, pp)
	})
	if txErr != nil {
		if labelKey != "" && s.files != nil {
			if err := s.files.DeleteFile(ctx, vault.CategoryLabel, labelKey); err != nil {
				s.log.Warn("orphaned label cleanup failed", "key", labelKey, "error", err)
			}
		}
		return nil, txErr
	}

	s.metrics.RecordPassportEvent("passport_published")
	action := types.AuditUpdate
	if created {
		action = types.AuditCreate
	}
	s.async.Go("audit.passport", func(ctx context.Context) error {
		return s.audit.Record(ctx, AuditEntry{
			TenantID:    actor.ActingTenantID,
			ActorUserID: actor.UserID,
			EntityType:  EntityProductPassport,
			EntityID:    pp.ID,
			Action:      action,
			Changes: map[string]any{
				"status":               string(pp.Status),
				"published_version_id": version.ID.String(),
			},
			IPAddress: actor.IPAddress,
		})
	})
	tenantID := actor.ActingTenantID
	s.async.Go("notify.passport", func(ctx context.Context) error {
		s.notify.PassportPublished(ctx, tenantID, pp)
		return nil
	})

	s.log.Info("passport published",
		"passport_id", pp.ID,
		"product_id", product.ID,
		"version_id", version.ID,
		"public_uid", pp.PublicUID,
	)
	return pp, nil
}

// renderLabel composes and stores the QR label PNG. Skipped silently when no
// renderer or vault is wired; publishing works without printable labels.
func (s *passportService) renderLabel(ctx context.Context, pp *types.ProductPassport, version *types.ProductVersion, targetURL string) (string, string, error) {
	if s.labels == nil || s.files == nil {
		return "", "", nil
	}

	buf, err := s.labels.RenderLabel(targetURL, version.ProductName, pp.PublicUID)
	if err != nil {
		return "", "", fmt.Errorf("render passport label: %w", err)
	}

	key := fmt.Sprintf("passports/%s/label-v%d.png", pp.PublicUID, pp.LabelVersion+1)
	if err := s.files.UploadFile(ctx, vault.CategoryLabel, key, "image/png", &buf); err != nil {
		return "", "", fmt.Errorf("upload passport label: %w", err)
	}
	return s.files.GetPublicURL(vault.CategoryLabel, key), key, nil
}

func (s *passportService) publicURL(publicUID string) string {
	if s.baseURL == "" {
		return "/p/" + publicUID
	}
	return s.baseURL + "/p/" + publicUID
}

func (s *passportService) Archive(ctx context.Context, actor ctxutil.Actor, productID uuid.UUID) (*types.ProductPassport, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("passport service not configured")
	}
	if err := requireBrandActor(actor); err != nil {
		return nil, err
	}

	var pp *types.ProductPassport
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		product, err := s.products.GetByID(ctx, tx, productID)
		if err != nil {
			return err
		}
		if product == nil || product.TenantID != actor.ActingTenantID {
			return apierr.NotFound("product not found")
		}

		pp, err = s.passports.GetByProductID(ctx, tx, product.ID)
		if err != nil {
			return err
		}
		if pp == nil {
			return apierr.NotFound("passport not found")
		}
		if pp.Status != types.PassportPublished {
			return apierr.InvalidState("passport is %s; only published passports can be archived", pp.Status)
		}

		pp.Status = types.PassportArchived
		return s.passports.Save(ctx, tx, pp)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordPassportEvent("passport_archived")
	s.async.Go("audit.passport", func(ctx context.Context) error {
		return s.audit.Record(ctx, AuditEntry{
			TenantID:    actor.ActingTenantID,
			ActorUserID: actor.UserID,
			EntityType:  EntityProductPassport,
			EntityID:    pp.ID,
			Action:      types.AuditUpdate,
			Changes:     map[string]any{"status": string(pp.Status)},
			IPAddress:   actor.IPAddress,
		})
	})
	tenantID := actor.ActingTenantID
	s.async.Go("notify.passport", func(ctx context.Context) error {
		s.notify.PassportArchived(ctx, tenantID, pp)
		return nil
	})

	s.log.Info("passport archived", "passport_id", pp.ID, "product_id", productID)
	return pp, nil
}

func (s *passportService) Get(ctx context.Context, actor ctxutil.Actor, productID uuid.UUID) (*types.ProductPassport, error) {
	if s == nil || s.passports == nil {
		return nil, fmt.Errorf("passport service not configured")
	}
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	product, err := s.products.GetByID(ctx, nil, productID)
	if err != nil {
		return nil, err
	}
	if product == nil || product.TenantID != actor.ActingTenantID {
		return nil, apierr.NotFound("product not found")
	}

	pp, err := s.passports.GetByProductID(ctx, nil, product.ID)
	if err != nil {
		return nil, err
	}
	if pp == nil {
		return nil, apierr.NotFound("passport not found")
	}
	return pp, nil
}

func (s *passportService) PublicView(ctx context.Context, publicUID string) (*PublicPassportView, error) {
	if s == nil || s.passports == nil {
		return nil, fmt.Errorf("passport service not configured")
	}

	pp, err := s.passports.GetByPublicUID(ctx, nil, publicUID)
	if err != nil {
		return nil, err
	}
	// Draft and archived passports are invisible to the public, same as
	// passports that never existed.
	if pp == nil || pp.Status != types.PassportPublished || pp.PublishedVersionID == nil {
		return nil, apierr.NotFound("passport not found")
	}

	version, err := s.versions.GetByID(ctx, nil, *pp.PublishedVersionID)
	if err != nil {
		return nil, err
	}
	if version == nil {
		return nil, apierr.Internal(fmt.Errorf("passport %s points at a missing version", pp.ID))
	}

	view := &PublicPassportView{
		PublicUID:   pp.PublicUID,
		ProductName: version.ProductName,
		Category:    version.Category,
		Description: version.Description,
		PublishedAt: pp.PublishedAt,
		Impact: PublicImpact{
			ManufacturingCountry:   version.ManufacturingCountry,
			TotalCarbonFootprintKG: version.TotalCarbonFootprintKG,
			TotalWaterUsageLiters:  version.TotalWaterUsageLiters,
			TotalEnergyMJ:          version.TotalEnergyMJ,
			RecyclingInstructions:  version.RecyclingInstructions,
			RecyclabilityClass:     version.RecyclabilityClass,
		},
		Materials:      []PublicMaterial{},
		Certifications: []PublicCertification{},
	}

	if pp.Product != nil {
		brands, err := s.tenants.GetByIDs(ctx, nil, []uuid.UUID{pp.Product.TenantID})
		if err != nil {
			return nil, err
		}
		if len(brands) > 0 {
			view.BrandName = brands[0].Name
		}

		mediaRows, err := s.media.ListByProduct(ctx, nil, pp.Product.ID)
		if err != nil {
			return nil, err
		}
		for _, m := range mediaRows {
			if m.IsMain {
				view.ImageURL = m.FileURL
				break
			}
		}
		if view.ImageURL == "" && len(mediaRows) > 0 {
			view.ImageURL = mediaRows[0].FileURL
		}
	}

	if err := s.attachPublicLines(ctx, version.ID, view); err != nil {
		return nil, err
	}

	s.metrics.RecordPassportEvent("public_view")
	return view, nil
}

func (s *passportService) attachPublicLines(ctx context.Context, versionID uuid.UUID, view *PublicPassportView) error {
	materialLines, err := s.versions.ListMaterials(ctx, nil, versionID)
	if err != nil {
		return err
	}
	materialIDs := make([]uuid.UUID, 0, len(materialLines))
	for _, l := range materialLines {
		if l.MaterialID != nil {
			materialIDs = append(materialIDs, *l.MaterialID)
		}
	}
	materialRows, err := s.materials.GetByIDs(ctx, nil, materialIDs)
	if err != nil {
		return err
	}
	materialByID := make(map[uuid.UUID]*types.Material, len(materialRows))
	for _, m := range materialRows {
		materialByID[m.ID] = m
	}
	for _, l := range materialLines {
		pm := PublicMaterial{
			Name:          l.UnlistedMaterialName,
			Percentage:    l.Percentage,
			OriginCountry: l.OriginCountry,
		}
		if l.MaterialID != nil {
			if m, ok := materialByID[*l.MaterialID]; ok {
				pm.Name = m.Name
			}
		}
		view.Materials = append(view.Materials, pm)
	}

	certLines, err := s.versions.ListCertifications(ctx, nil, versionID)
	if err != nil {
		return err
	}
	certIDs := make([]uuid.UUID, 0, len(certLines))
	defIDs := make([]uuid.UUID, 0, len(certLines))
	for _, l := range certLines {
		if l.CertificationID != nil {
			certIDs = append(certIDs, *l.CertificationID)
		}
		if l.CertificateDefinitionID != nil {
			defIDs = append(defIDs, *l.CertificateDefinitionID)
		}
	}
	certRows, err := s.certs.GetByIDs(ctx, nil, certIDs)
	if err != nil {
		return err
	}
	certByID := make(map[uuid.UUID]*types.Certification, len(certRows))
	for _, c := range certRows {
		certByID[c.ID] = c
	}
	defRows, err := s.certDefs.GetByIDs(ctx, nil, defIDs)
	if err != nil {
		return err
	}
	defByID := make(map[uuid.UUID]*types.CertificateDefinition, len(defRows))
	for _, d := range defRows {
		defByID[d.ID] = d
	}
	for _, l := range certLines {
		pc := PublicCertification{
			DocumentURL: l.DocumentURL,
			ValidUntil:  l.ValidUntil,
		}
		if l.CertificationID != nil {
			if c, ok := certByID[*l.CertificationID]; ok {
				pc.Name = c.Name
				pc.Issuer = c.Issuer
			}
		}
		if pc.Name == "" && l.CertificateDefinitionID != nil {
			if d, ok := defByID[*l.CertificateDefinitionID]; ok {
				pc.Name = d.Name
				pc.Issuer = d.IssuerAuthority
			}
		}
		view.Certifications = append(view.Certifications, pc)
	}
	return nil
}

// Chain reads the projected supply chain back for the traceability screen.
// Returns an empty view when the graph database is not wired.
func (s *passportService) Chain(ctx context.Context, actor ctxutil.Actor, productID uuid.UUID) (*graph.ProductChainView, error) {
	if s == nil || s.products == nil {
		return nil, fmt.Errorf("passport service not configured")
	}
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	product, err := s.products.GetByID(ctx, nil, productID)
	if err != nil {
		return nil, err
	}
	if product == nil || product.TenantID != actor.ActingTenantID {
		return nil, apierr.NotFound("product not found")
	}

	versionID := uuid.Nil
	if pp, err := s.passports.GetByProductID(ctx, nil, product.ID); err != nil {
		return nil, err
	} else if pp != nil && pp.PublishedVersionID != nil {
		versionID = *pp.PublishedVersionID
	}
	if versionID == uuid.Nil && product.CurrentVersionID != nil {
		versionID = *product.CurrentVersionID
	}

	chain, err := graph.ProductChain(ctx, s.graphDB, product.ID, versionID)
	if err != nil {
		return nil, err
	}
	if chain == nil {
		chain = &graph.ProductChainView{
			ProductID: product.ID,
			VersionID: versionID,
			Materials: []graph.ChainMaterial{},
			Suppliers: []graph.ChainSupplier{},
		}
	}
	return chain, nil
}
