package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tracebind/passport-backend/internal/data/graph"
	"github.com/tracebind/passport-backend/internal/data/repos"
	types "github.com/tracebind/passport-backend/internal/domain"
	"github.com/tracebind/passport-backend/internal/observability"
	"github.com/tracebind/passport-backend/internal/pkg/contenttype"
	"github.com/tracebind/passport-backend/internal/pkg/ctxutil"
	"github.com/tracebind/passport-backend/internal/platform/apierr"
	"github.com/tracebind/passport-backend/internal/platform/logger"
	"github.com/tracebind/passport-backend/internal/platform/neo4jdb"
	"github.com/tracebind/passport-backend/internal/platform/vault"
)

const defaultVersionName = "Initial Version"

// ProductImageInput carries one image as a base64 payload. Data-URL prefixes
// ("data:image/png;base64,...") are accepted and stripped.
type ProductImageInput struct {
	Data         string `json:"data"`
	ContentType  string `json:"content_type"`
	IsMain       bool   `json:"is_main"`
	DisplayOrder int    `json:"display_order"`
}

type CreateProductInput struct {
	// Shell identity, immutable after create.
	SKU  string `json:"sku"`
	GTIN string `json:"gtin"`

	// Seeds version 1.
	Name        string `json:"name"`
	Category    string `json:"category"`
	Description string `json:"description"`
	VersionName string `json:"version_name"`

	Images []ProductImageInput `json:"images"`
}

// Nil keeps the stored value.
type VersionMetadataPatch struct {
	ProductName *string `json:"product_name"`
	Category    *string `json:"category"`
	Description *string `json:"description"`
	VersionName *string `json:"version_name"`
}

type VersionImpactPatch struct {
	ManufacturingCountry   *string  `json:"manufacturing_country"`
	TotalCarbonFootprintKG *float64 `json:"total_carbon_footprint_kg"`
	TotalWaterUsageLiters  *float64 `json:"total_water_usage_liters"`
	TotalEnergyMJ          *float64 `json:"total_energy_mj"`
	RecyclingInstructions  *string  `json:"recycling_instructions"`
	RecyclabilityClass     *string  `json:"recyclability_class"`
}

// MaterialLineInput links a BOM line to the material library, derives it from
// a material definition, or records it as unlisted free text, in that order
// of precedence.
type MaterialLineInput struct {
	MaterialID         *uuid.UUID `json:"material_id"`
	SourceDefinitionID *uuid.UUID `json:"source_definition_id"`
	Name               string     `json:"name"`

	Percentage        float64  `json:"percentage"`
	OriginCountry     string   `json:"origin_country"`
	TransportMethod   string   `json:"transport_method"`
	CarbonFootprintKG *float64 `json:"carbon_footprint_kg"`
}

type SupplierLineInput struct {
	SupplierProfileID *uuid.UUID `json:"supplier_profile_id"`
	Name              string     `json:"name"`
	Country           string     `json:"country"`
	Role              string     `json:"role"`
}

type CertificationLineInput struct {
	CertificationID         *uuid.UUID `json:"certification_id"`
	CertificateDefinitionID *uuid.UUID `json:"certificate_definition_id"`

	DocumentURL string     `json:"document_url"`
	ContentType string     `json:"content_type"`
	ValidUntil  *time.Time `json:"valid_until"`
}

// ProductSummary is the flattened card for list views: shell identity plus
// the presentation fields of the current version.
type ProductSummary struct {
	ID   uuid.UUID `json:"id"`
	SKU  string    `json:"sku"`
	GTIN string    `json:"gtin"`

	Name             string              `json:"name"`
	Category         string              `json:"category"`
	CurrentVersionID uuid.UUID           `json:"current_version_id"`
	Status           types.VersionStatus `json:"status"`
	ImageURL         string              `json:"image_url"`

	CreatedAt time.Time `json:"created_at"`
}

type VersionSummary struct {
	ID              uuid.UUID           `json:"id"`
	VersionName     string              `json:"version_name"`
	VersionSequence int                 `json:"version_sequence"`
	Revision        int                 `json:"revision"`
	Status          types.VersionStatus `json:"status"`
	CreatedAt       time.Time           `json:"created_at"`
}

// ProductDetail renders one product through the lens of one version: the
// requested one, or the current pointer by default. History powers the
// version-switcher dropdown.
type ProductDetail struct {
	Product       *types.Product `json:"product"`
	ActiveVersion *types.ProductVersion
	MainImageURL  string `json:"main_image_url"`

	Images         []*types.ProductMedia         `json:"images"`
	Materials      []*types.VersionMaterial      `json:"materials"`
	Suppliers      []*types.VersionSupplier      `json:"suppliers"`
	Certifications []*types.VersionCertification `json:"certifications"`

	History []VersionSummary `json:"history"`
}

type ProductService interface {
	Create(ctx context.Context, actor ctxutil.Actor, in CreateProductInput) (*ProductDetail, error)
	List(ctx context.Context, actor ctxutil.Actor, search string, limit, offset int) ([]*ProductSummary, error)
	Get(ctx context.Context, actor ctxutil.Actor, productID, versionID uuid.UUID) (*ProductDetail, error)
	Delete(ctx context.Context, actor ctxutil.Actor, productID uuid.UUID) error
	StartVersionRound(ctx context.Context, actor ctxutil.Actor, productID uuid.UUID) (*types.ProductVersion, error)

	UpdateVersionMetadata(ctx context.Context, actor ctxutil.Actor, versionID uuid.UUID, patch VersionMetadataPatch) (*types.ProductVersion, error)
	UpdateVersionImpact(ctx context.Context, actor ctxutil.Actor, versionID uuid.UUID, patch VersionImpactPatch) (*types.ProductVersion, error)

	AddMaterial(ctx context.Context, actor ctxutil.Actor, versionID uuid.UUID, in MaterialLineInput) (*types.VersionMaterial, error)
	RemoveMaterial(ctx context.Context, actor ctxutil.Actor, versionID, lineID uuid.UUID) error
	AddSupplier(ctx context.Context, actor ctxutil.Actor, versionID uuid.UUID, in SupplierLineInput) (*types.VersionSupplier, error)
	RemoveSupplier(ctx context.Context, actor ctxutil.Actor, versionID, lineID uuid.UUID) error
	AddCertification(ctx context.Context, actor ctxutil.Actor, versionID uuid.UUID, in CertificationLineInput) (*types.VersionCertification, error)
	RemoveCertification(ctx context.Context, actor ctxutil.Actor, versionID, lineID uuid.UUID) error

	AddMedia(ctx context.Context, actor ctxutil.Actor, productID uuid.UUID, in ProductImageInput) (*types.ProductMedia, error)
	SetMainMedia(ctx context.Context, actor ctxutil.Actor, productID, mediaID uuid.UUID) error
	DeleteMedia(ctx context.Context, actor ctxutil.Actor, productID, mediaID uuid.UUID) error
}

type productService struct {
	db  *gorm.DB
	log *logger.Logger

	products  repos.ProductRepo
	versions  repos.VersionRepo
	media     repos.MediaRepo
	profiles  repos.SupplierProfileRepo
	passports repos.PassportRepo

	materials    repos.MaterialRepo
	materialDefs repos.MaterialDefinitionRepo
	certs        repos.CertificationRepo
	certDefs     repos.CertificateDefinitionRepo

	files    vault.FileVault
	audit    AuditService
	async    *Dispatcher
	graphDB  *neo4jdb.Client
	graphLog *logger.Logger
	metrics  *observability.Metrics
}

func NewProductService(
	db *gorm.DB,
	baseLog *logger.Logger,
	products repos.ProductRepo,
	versions repos.VersionRepo,
	media repos.MediaRepo,
	profiles repos.SupplierProfileRepo,
	passports repos.PassportRepo,
	materials repos.MaterialRepo,
	materialDefs repos.MaterialDefinitionRepo,
	certs repos.CertificationRepo,
	certDefs repos.CertificateDefinitionRepo,
	files vault.FileVault,
	audit AuditService,
	async *Dispatcher,
	graphDB *neo4jdb.Client,
	metrics *observability.Metrics,
) ProductService {
	serviceLog := baseLog.With("service", "ProductService")
	return &productService{
		db:           db,
		log:          serviceLog,
		products:     products,
		versions:     versions,
		media:        media,
		profiles:     profiles,
		passports:    passports,
		materials:    materials,
		materialDefs: materialDefs,
		certs:        certs,
		certDefs:     certDefs,
		files:        files,
		audit:        audit,
		async:        async,
		graphDB:      graphDB,
		graphLog:     serviceLog,
		metrics:      metrics,
	}
}

type uploadedImage struct {
	key         string
	url         string
	contentType string
	isMain      bool
	order       int
}

func (s *productService) Create(ctx context.Context, actor ctxutil.Actor, in CreateProductInput) (*ProductDetail, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("product service not configured")
	}
	if err := requireBrandActor(actor); err != nil {
		return nil, err
	}

	in.SKU = strings.TrimSpace(in.SKU)
	in.Name = strings.TrimSpace(in.Name)
	in.Category = strings.TrimSpace(in.Category)
	in.VersionName = strings.TrimSpace(in.VersionName)
	switch {
	case len(in.SKU) < 2:
		return nil, apierr.Validation("sku must be at least 2 characters")
	case len(in.Name) < 2:
		return nil, apierr.Validation("product name must be at least 2 characters")
	case in.Category == "":
		return nil, apierr.Validation("category is required")
	}
	if in.VersionName == "" {
		in.VersionName = defaultVersionName
	}

	product := &types.Product{
		ID:       uuid.New(),
		TenantID: actor.ActingTenantID,
		SKU:      in.SKU,
		GTIN:     strings.TrimSpace(in.GTIN),
	}

	// Storage writes happen before the transaction so a rollback never
	// leaves DB rows pointing at objects that were cleaned up, only the
	// reverse. Orphaned uploads are deleted best-effort below.
	uploads := s.uploadImages(ctx, product.ID, in.Images)

	var version *types.ProductVersion
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		exists, err := s.products.SKUExists(ctx, tx, actor.ActingTenantID, in.SKU, uuid.Nil)
		if err != nil {
			return err
		}
		if exists {
			return apierr.Conflict("a product with SKU %q already exists", in.SKU)
		}

		if _, err := s.products.Create(ctx, tx, []*types.Product{product}); err != nil {
			return err
		}

		version = &types.ProductVersion{
			ID:                uuid.New(),
			ProductID:         product.ID,
			CreatedByTenantID: actor.ActingTenantID,
			VersionSequence:   1,
			Revision:          1,
			VersionName:       in.VersionName,
			Status:            types.VersionWorkingDraft,
			ProductName:       in.Name,
			Category:          in.Category,
			Description:       in.Description,
		}
		if _, err := s.versions.Create(ctx, tx, []*types.ProductVersion{version}); err != nil {
			return err
		}
		if err := s.products.SetCurrentVersion(ctx, tx, product.ID, version.ID); err != nil {
			return err
		}
		product.CurrentVersionID = &version.ID

		if len(uploads) > 0 {
			rows := make([]*types.ProductMedia, 0, len(uploads))
			for _, u := range uploads {
				rows = append(rows, &types.ProductMedia{
					ProductID:    product.ID,
					FileURL:      u.url,
					ContentType:  u.contentType,
					IsMain:       u.isMain,
					DisplayOrder: u.order,
				})
			}
			if _, err := s.media.Create(ctx, tx, rows); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.discardUploads(ctx, uploads)
		return nil, err
	}

	s.metrics.RecordPassportEvent("product_created")
	s.async.Go("audit.product", func(ctx context.Context) error {
		return s.audit.Record(ctx, AuditEntry{
			TenantID:    actor.ActingTenantID,
			ActorUserID: actor.UserID,
			EntityType:  EntityProduct,
			EntityID:    product.ID,
			Action:      types.AuditCreate,
			Changes: map[string]any{
				"sku":        product.SKU,
				"name":       version.ProductName,
				"version_id": version.ID.String(),
			},
			IPAddress: actor.IPAddress,
		})
	})
	s.mirrorChain(product, version)

	s.log.Info("product created",
		"product_id", product.ID,
		"tenant_id", actor.ActingTenantID,
		"sku", product.SKU,
		"images", len(uploads),
	)
	return s.detail(ctx, product, version.ID)
}

// uploadImages decodes and stores the create-payload images. A bad payload
// skips that image rather than failing the whole create.
func (s *productService) uploadImages(ctx context.Context, productID uuid.UUID, images []ProductImageInput) []uploadedImage {
	if s.files == nil || len(images) == 0 {
		return nil
	}

	uploads := make([]uploadedImage, 0, len(images))
	sawMain := false
	for i, img := range images {
		raw, declared, err := decodeBase64Payload(img.Data)
		if err != nil {
			s.log.Warn("skipping undecodable product image", "product_id", productID, "index", i, "error", err)
			continue
		}
		ct := contenttype.Resolve(img.ContentType, "")
		if ct == contenttype.Fallback && declared != "" {
			ct = contenttype.Resolve(declared, "")
		}
		ext := contenttype.ExtensionFor(ct)
		if ext == "" {
			ext = ".bin"
		}

		key := fmt.Sprintf("products/%s/%s%s", productID, uuid.NewString(), ext)
		if err := s.files.UploadFile(ctx, vault.CategoryMedia, key, ct, bytes.NewReader(raw)); err != nil {
			s.log.Warn("product image upload failed, skipping", "product_id", productID, "index", i, "error", err)
			continue
		}

		order := img.DisplayOrder
		if order == 0 {
			order = i
		}
		isMain := img.IsMain && !sawMain
		if isMain {
			sawMain = true
		}
		uploads = append(uploads, uploadedImage{
			key:         key,
			url:         s.files.GetPublicURL(vault.CategoryMedia, key),
			contentType: ct,
			isMain:      isMain,
			order:       order,
		})
	}
	if !sawMain && len(uploads) > 0 {
		uploads[0].isMain = true
	}
	return uploads
}

func (s *productService) discardUploads(ctx context.Context, uploads []uploadedImage) {
	if s.files == nil {
		return
	}
	for _, u := range uploads {
		if err := s.files.DeleteFile(ctx, vault.CategoryMedia, u.key); err != nil {
			s.log.Warn("orphaned upload cleanup failed", "key", u.key, "error", err)
		}
	}
}

func decodeBase64Payload(data string) ([]byte, string, error) {
	data = strings.TrimSpace(data)
	declared := ""
	if strings.HasPrefix(data, "data:") {
		meta, rest, ok := strings.Cut(data, ",")
		if !ok {
			return nil, "", fmt.Errorf("malformed data url")
		}
		declared = strings.TrimSuffix(strings.TrimPrefix(meta, "data:"), ";base64")
		data = rest
	}
	if data == "" {
		return nil, "", fmt.Errorf("empty payload")
	}

	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		raw, err = base64.RawStdEncoding.DecodeString(data)
	}
	if err != nil {
		return nil, "", fmt.Errorf("decode base64: %w", err)
	}
	return raw, declared, nil
}

func (s *productService) List(ctx context.Context, actor ctxutil.Actor, search string, limit, offset int) ([]*ProductSummary, error) {
	if s == nil || s.products == nil {
		return nil, fmt.Errorf("product service not configured")
	}
	if err := requireBrandActor(actor); err != nil {
		return nil, err
	}

	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	products, err := s.products.ListByTenant(ctx, nil, actor.ActingTenantID, strings.TrimSpace(search), limit, offset)
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return []*ProductSummary{}, nil
	}

	productIDs := make([]uuid.UUID, 0, len(products))
	versionIDs := make([]uuid.UUID, 0, len(products))
	for _, p := range products {
		productIDs = append(productIDs, p.ID)
		if p.CurrentVersionID != nil {
			versionIDs = append(versionIDs, *p.CurrentVersionID)
		}
	}

	versionRows, err := s.versions.GetByIDs(ctx, nil, versionIDs)
	if err != nil {
		return nil, err
	}
	versionByID := make(map[uuid.UUID]*types.ProductVersion, len(versionRows))
	for _, v := range versionRows {
		versionByID[v.ID] = v
	}

	mediaRows, err := s.media.ListByProducts(ctx, nil, productIDs)
	if err != nil {
		return nil, err
	}
	// Rows arrive main-first per product; keep the first one seen.
	thumbByProduct := make(map[uuid.UUID]string, len(products))
	for _, m := range mediaRows {
		if _, ok := thumbByProduct[m.ProductID]; !ok {
			thumbByProduct[m.ProductID] = m.FileURL
		}
	}

	out := make([]*ProductSummary, 0, len(products))
	for _, p := range products {
		summary := &ProductSummary{
			ID:        p.ID,
			SKU:       p.SKU,
			GTIN:      p.GTIN,
			ImageURL:  thumbByProduct[p.ID],
			CreatedAt: p.CreatedAt,
		}
		if p.CurrentVersionID != nil {
			if v, ok := versionByID[*p.CurrentVersionID]; ok {
				summary.Name = v.ProductName
				summary.Category = v.Category
				summary.CurrentVersionID = v.ID
				summary.Status = v.Status
			}
		}
		out = append(out, summary)
	}
	return out, nil
}

func (s *productService) Get(ctx context.Context, actor ctxutil.Actor, productID, versionID uuid.UUID) (*ProductDetail, error) {
	if s == nil || s.products == nil {
		return nil, fmt.Errorf("product service not configured")
	}
	if err := requireBrandActor(actor); err != nil {
		return nil, err
	}

	product, err := s.ownedProduct(ctx, nil, actor, productID)
	if err != nil {
		return nil, err
	}
	return s.detail(ctx, product, versionID)
}

// detail assembles the versioned view. versionID == uuid.Nil selects the
// current pointer, falling back to the newest version.
func (s *productService) detail(ctx context.Context, product *types.Product, versionID uuid.UUID) (*ProductDetail, error) {
	history, err := s.versions.ListByProductID(ctx, nil, product.ID)
	if err != nil {
		return nil, err
	}
	if len(history) == 0 {
		return nil, apierr.Internal(fmt.Errorf("product %s has no versions", product.ID))
	}

	var target *types.ProductVersion
	if versionID != uuid.Nil {
		for _, v := range history {
			if v.ID == versionID {
				target = v
				break
			}
		}
		if target == nil {
			return nil, apierr.NotFound("requested version not found")
		}
	} else {
		if product.CurrentVersionID != nil {
			for _, v := range history {
				if v.ID == *product.CurrentVersionID {
					target = v
					break
				}
			}
		}
		if target == nil {
			target = history[0]
		}
	}

	materials, err := s.versions.ListMaterials(ctx, nil, target.ID)
	if err != nil {
		return nil, err
	}
	suppliers, err := s.versions.ListSuppliers(ctx, nil, target.ID)
	if err != nil {
		return nil, err
	}
	certifications, err := s.versions.ListCertifications(ctx, nil, target.ID)
	if err != nil {
		return nil, err
	}
	images, err := s.media.ListByProduct(ctx, nil, product.ID)
	if err != nil {
		return nil, err
	}

	detail := &ProductDetail{
		Product:        product,
		ActiveVersion:  target,
		Images:         images,
		Materials:      materials,
		Suppliers:      suppliers,
		Certifications: certifications,
		History:        make([]VersionSummary, 0, len(history)),
	}
	// ListByProduct orders main-first.
	if len(images) > 0 {
		detail.MainImageURL = images[0].FileURL
	}
	for _, v := range history {
		detail.History = append(detail.History, VersionSummary{
			ID:              v.ID,
			VersionName:     v.VersionName,
			VersionSequence: v.VersionSequence,
			Revision:        v.Revision,
			Status:          v.Status,
			CreatedAt:       v.CreatedAt,
		})
	}
	return detail, nil
}

func (s *productService) Delete(ctx context.Context, actor ctxutil.Actor, productID uuid.UUID) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("product service not configured")
	}
	if err := requireBrandActor(actor); err != nil {
		return err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		product, err := s.ownedProduct(ctx, tx, actor, productID)
		if err != nil {
			return err
		}

		pp, err := s.passports.GetByProductID(ctx, tx, product.ID)
		if err != nil {
			return err
		}
		if pp != nil && pp.Status == types.PassportPublished {
			return apierr.Conflict("product has a published passport; archive it before deleting")
		}

		return s.products.Delete(ctx, tx, product.ID)
	})
	if err != nil {
		return err
	}

	s.metrics.RecordPassportEvent("product_deleted")
	s.async.Go("audit.product", func(ctx context.Context) error {
		return s.audit.Record(ctx, AuditEntry{
			TenantID:    actor.ActingTenantID,
			ActorUserID: actor.UserID,
			EntityType:  EntityProduct,
			EntityID:    productID,
			Action:      types.AuditDelete,
			IPAddress:   actor.IPAddress,
		})
	})
	s.log.Info("product deleted", "product_id", productID, "tenant_id", actor.ActingTenantID)
	return nil
}

// StartVersionRound reopens data collection on a product whose latest round
// has finished: the closing version is deep-copied into revision 1 of the
// next version_sequence, the product pointer moves to the new draft, and
// assignment works against it like any other working draft.
func (s *productService) StartVersionRound(ctx context.Context, actor ctxutil.Actor, productID uuid.UUID) (*types.ProductVersion, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("product service not configured")
	}
	if err := requireBrandActor(actor); err != nil {
		return nil, err
	}

	var product *types.Product
	var draft *types.ProductVersion
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		product, err = s.ownedProduct(ctx, tx, actor, productID)
		if err != nil {
			return err
		}

		latest, err := s.versions.GetLatestByProductID(ctx, tx, product.ID)
		if err != nil {
			return err
		}
		if latest == nil {
			return apierr.InvalidState("product has no version to carry forward")
		}
		switch latest.Status {
		case types.VersionWorkingDraft:
			return apierr.InvalidState("the current round still has an editable draft")
		case types.VersionSubmitted, types.VersionRevisionRequired:
			return apierr.InvalidState("the current round is still under review")
		}

		snap, err := s.versions.GetSnapshot(ctx, tx, latest.ID)
		if err != nil {
			return err
		}
		if snap == nil || snap.Version == nil {
			return apierr.Internal(fmt.Errorf("version %s has no snapshot to carry forward", latest.ID))
		}
		sequence, err := s.versions.NextSequence(ctx, tx, product.ID)
		if err != nil {
			return err
		}

		round := types.NewVersionRound(*snap, sequence)
		if err := s.versions.InsertSnapshot(ctx, tx, &round); err != nil {
			return err
		}
		draft = round.Version
		return s.products.SetCurrentVersion(ctx, tx, product.ID, draft.ID)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordPassportEvent("version_round_started")
	s.recordVersionAudit(actor, draft.ID, types.AuditCreate, map[string]any{
		"product_id":        product.ID.String(),
		"version_sequence":  draft.VersionSequence,
		"parent_version_id": draft.ParentVersionID.String(),
	})
	s.mirrorChain(product, draft)

	s.log.Info("version round started",
		"product_id", product.ID,
		"version_id", draft.ID,
		"sequence", draft.VersionSequence,
	)
	return draft, nil
}

func (s *productService) UpdateVersionMetadata(ctx context.Context, actor ctxutil.Actor, versionID uuid.UUID, patch VersionMetadataPatch) (*types.ProductVersion, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("product service not configured")
	}
	if err := requireBrandActor(actor); err != nil {
		return nil, err
	}

	var version *types.ProductVersion
	changes := map[string]any{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		version, _, err = s.editableVersion(ctx, tx, actor, versionID)
		if err != nil {
			return err
		}

		applyString(changes, "product_name", &version.ProductName, patch.ProductName)
		applyString(changes, "category", &version.Category, patch.Category)
		applyString(changes, "description", &version.Description, patch.Description)
		applyString(changes, "version_name", &version.VersionName, patch.VersionName)
		if len(changes) == 0 {
			return nil
		}
		return s.versions.Save(ctx, tx, version)
	})
	if err != nil {
		return nil, err
	}

	if len(changes) > 0 {
		s.recordVersionAudit(actor, version.ID, types.AuditUpdate, changes)
	}
	return version, nil
}

func (s *productService) UpdateVersionImpact(ctx context.Context, actor ctxutil.Actor, versionID uuid.UUID, patch VersionImpactPatch) (*types.ProductVersion, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("product service not configured")
	}
	if err := requireBrandActor(actor); err != nil {
		return nil, err
	}

	var version *types.ProductVersion
	changes := map[string]any{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		version, _, err = s.editableVersion(ctx, tx, actor, versionID)
		if err != nil {
			return err
		}

		applyString(changes, "manufacturing_country", &version.ManufacturingCountry, patch.ManufacturingCountry)
		applyFloat(changes, "total_carbon_footprint_kg", &version.TotalCarbonFootprintKG, patch.TotalCarbonFootprintKG)
		applyFloat(changes, "total_water_usage_liters", &version.TotalWaterUsageLiters, patch.TotalWaterUsageLiters)
		applyFloat(changes, "total_energy_mj", &version.TotalEnergyMJ, patch.TotalEnergyMJ)
		applyString(changes, "recycling_instructions", &version.RecyclingInstructions, patch.RecyclingInstructions)
		applyString(changes, "recyclability_class", &version.RecyclabilityClass, patch.RecyclabilityClass)
		if len(changes) == 0 {
			return nil
		}
		return s.versions.Save(ctx, tx, version)
	})
	if err != nil {
		return nil, err
	}

	if len(changes) > 0 {
		s.recordVersionAudit(actor, version.ID, types.AuditUpdate, changes)
	}
	return version, nil
}

func (s *productService) AddMaterial(ctx context.Context, actor ctxutil.Actor, versionID uuid.UUID, in MaterialLineInput) (*types.VersionMaterial, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("product service not configured")
	}
	if err := requireBrandActor(actor); err != nil {
		return nil, err
	}
	if in.Percentage <= 0 || in.Percentage > 100 {
		return nil, apierr.Validation("material percentage must be between 0 and 100")
	}

	var line *types.VersionMaterial
	var product *types.Product
	var version *types.ProductVersion
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		version, product, err = s.editableVersion(ctx, tx, actor, versionID)
		if err != nil {
			return err
		}

		line, err = resolveMaterialLine(ctx, tx, s.materials, s.materialDefs, version.ID, in, actor.ActingTenantID)
		if err != nil {
			return err
		}
		_, err = s.versions.AddMaterials(ctx, tx, []*types.VersionMaterial{line})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.recordVersionAudit(actor, version.ID, types.AuditUpdate, map[string]any{"material_line_added": line.ID.String()})
	s.mirrorChain(product, version)
	return line, nil
}

// resolveMaterialLine builds one BOM line, resolving the library linkage with
// precedence material > definition > unlisted free text. Shared with the
// contribution draft pipeline, which passes both request parties as visible
// tenants so supplier resubmissions can round-trip brand-owned references.
func resolveMaterialLine(
	ctx context.Context,
	tx *gorm.DB,
	materials repos.MaterialRepo,
	materialDefs repos.MaterialDefinitionRepo,
	versionID uuid.UUID,
	in MaterialLineInput,
	visibleTenants ...uuid.UUID,
) (*types.VersionMaterial, error) {
	line := &types.VersionMaterial{
		VersionID:                 versionID,
		Percentage:                in.Percentage,
		OriginCountry:             strings.TrimSpace(in.OriginCountry),
		TransportMethod:           strings.TrimSpace(in.TransportMethod),
		MaterialCarbonFootprintKG: in.CarbonFootprintKG,
	}
	if line.TransportMethod == "" {
		line.TransportMethod = "sea"
	}

	switch {
	case in.MaterialID != nil && *in.MaterialID != uuid.Nil:
		row, err := materials.GetByID(ctx, tx, *in.MaterialID)
		if err != nil {
			return nil, err
		}
		if row == nil || !visibleLibraryRow(row.TenantID, visibleTenants...) {
			return nil, apierr.NotFound("material not found")
		}
		line.MaterialID = &row.ID

	case in.SourceDefinitionID != nil && *in.SourceDefinitionID != uuid.Nil:
		def, err := materialDefs.GetByID(ctx, tx, *in.SourceDefinitionID)
		if err != nil {
			return nil, err
		}
		if def == nil || !visibleLibraryRow(def.TenantID, visibleTenants...) {
			return nil, apierr.NotFound("material definition not found")
		}
		line.SourceDefinitionID = &def.ID
		line.UnlistedMaterialName = def.Name
		if line.MaterialCarbonFootprintKG == nil && def.DefaultCarbonFootprint != nil {
			v := *def.DefaultCarbonFootprint
			line.MaterialCarbonFootprintKG = &v
		}

	default:
		name := strings.TrimSpace(in.Name)
		if name == "" {
			return nil, apierr.Validation("material name is required when no library reference is given")
		}
		line.UnlistedMaterialName = name
	}
	return line, nil
}

func (s *productService) RemoveMaterial(ctx context.Context, actor ctxutil.Actor, versionID, lineID uuid.UUID) error {
	return s.removeLine(ctx, actor, versionID, lineID, "material", s.versions.RemoveMaterial)
}

func (s *productService) AddSupplier(ctx context.Context, actor ctxutil.Actor, versionID uuid.UUID, in SupplierLineInput) (*types.VersionSupplier, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("product service not configured")
	}
	if err := requireBrandActor(actor); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Role) == "" {
		return nil, apierr.Validation("supplier role is required")
	}

	var line *types.VersionSupplier
	var product *types.Product
	var version *types.ProductVersion
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		version, product, err = s.editableVersion(ctx, tx, actor, versionID)
		if err != nil {
			return err
		}

		line = &types.VersionSupplier{
			VersionID: version.ID,
			Role:      strings.TrimSpace(in.Role),
		}
		if in.SupplierProfileID != nil && *in.SupplierProfileID != uuid.Nil {
			profile, err := s.profiles.GetByID(ctx, tx, *in.SupplierProfileID)
			if err != nil {
				return err
			}
			if profile == nil || profile.TenantID != actor.ActingTenantID {
				return apierr.NotFound("supplier profile not found")
			}
			line.SupplierProfileID = &profile.ID
		} else {
			name := strings.TrimSpace(in.Name)
			if name == "" {
				return apierr.Validation("supplier name is required when no profile is given")
			}
			line.UnlistedSupplierName = name
			line.UnlistedSupplierCountry = strings.TrimSpace(in.Country)
		}

		_, err = s.versions.AddSuppliers(ctx, tx, []*types.VersionSupplier{line})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.recordVersionAudit(actor, version.ID, types.AuditUpdate, map[string]any{"supplier_line_added": line.ID.String()})
	s.mirrorChain(product, version)
	return line, nil
}

func (s *productService) RemoveSupplier(ctx context.Context, actor ctxutil.Actor, versionID, lineID uuid.UUID) error {
	return s.removeLine(ctx, actor, versionID, lineID, "supplier", s.versions.RemoveSupplier)
}

func (s *productService) AddCertification(ctx context.Context, actor ctxutil.Actor, versionID uuid.UUID, in CertificationLineInput) (*types.VersionCertification, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("product service not configured")
	}
	if err := requireBrandActor(actor); err != nil {
		return nil, err
	}

	hasCert := in.CertificationID != nil && *in.CertificationID != uuid.Nil
	hasDef := in.CertificateDefinitionID != nil && *in.CertificateDefinitionID != uuid.Nil
	if !hasCert && !hasDef && strings.TrimSpace(in.DocumentURL) == "" {
		return nil, apierr.Validation("a certification reference or document is required")
	}

	var line *types.VersionCertification
	var version *types.ProductVersion
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		version, _, err = s.editableVersion(ctx, tx, actor, versionID)
		if err != nil {
			return err
		}

		line = &types.VersionCertification{
			VersionID:   version.ID,
			DocumentURL: strings.TrimSpace(in.DocumentURL),
			ValidUntil:  in.ValidUntil,
		}
		if line.DocumentURL != "" {
			line.ContentType = contenttype.Resolve(in.ContentType, line.DocumentURL)
		}
		if hasCert {
			row, err := s.certs.GetByID(ctx, tx, *in.CertificationID)
			if err != nil {
				return err
			}
			if row == nil || !visibleLibraryRow(row.TenantID, actor.ActingTenantID) {
				return apierr.NotFound("certification not found")
			}
			line.CertificationID = &row.ID
		}
		if hasDef {
			def, err := s.certDefs.GetByID(ctx, tx, *in.CertificateDefinitionID)
			if err != nil {
				return err
			}
			if def == nil || !visibleLibraryRow(def.TenantID, actor.ActingTenantID) {
				return apierr.NotFound("certificate definition not found")
			}
			line.CertificateDefinitionID = &def.ID
		}

		_, err = s.versions.AddCertifications(ctx, tx, []*types.VersionCertification{line})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.recordVersionAudit(actor, version.ID, types.AuditUpdate, map[string]any{"certification_line_added": line.ID.String()})
	return line, nil
}

func (s *productService) RemoveCertification(ctx context.Context, actor ctxutil.Actor, versionID, lineID uuid.UUID) error {
	return s.removeLine(ctx, actor, versionID, lineID, "certification", s.versions.RemoveCertification)
}

// removeLine handles the shared shape of the three line-removal operations.
// The delete is scoped to the version, so a line id from another version
// reads as absent.
func (s *productService) removeLine(
	ctx context.Context,
	actor ctxutil.Actor,
	versionID, lineID uuid.UUID,
	kind string,
	remove func(ctx context.Context, tx *gorm.DB, versionID, lineID uuid.UUID) (int64, error),
) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("product service not configured")
	}
	if err := requireBrandActor(actor); err != nil {
		return err
	}

	var product *types.Product
	var version *types.ProductVersion
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		version, product, err = s.editableVersion(ctx, tx, actor, versionID)
		if err != nil {
			return err
		}

		affected, err := remove(ctx, tx, version.ID, lineID)
		if err != nil {
			return err
		}
		if affected == 0 {
			return apierr.NotFound("%s line not found", kind)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.recordVersionAudit(actor, versionID, types.AuditUpdate, map[string]any{kind + "_line_removed": lineID.String()})
	if kind != "certification" {
		s.mirrorChain(product, version)
	}
	return nil
}

func (s *productService) AddMedia(ctx context.Context, actor ctxutil.Actor, productID uuid.UUID, in ProductImageInput) (*types.ProductMedia, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("product service not configured")
	}
	if err := requireBrandActor(actor); err != nil {
		return nil, err
	}
	if s.files == nil {
		return nil, apierr.Internal(fmt.Errorf("file storage is not configured"))
	}

	product, err := s.ownedProduct(ctx, nil, actor, productID)
	if err != nil {
		return nil, err
	}

	raw, declared, err := decodeBase64Payload(in.Data)
	if err != nil {
		return nil, apierr.Validation("image payload is not valid base64")
	}
	ct := contenttype.Resolve(in.ContentType, "")
	if ct == contenttype.Fallback && declared != "" {
		ct = contenttype.Resolve(declared, "")
	}
	ext := contenttype.ExtensionFor(ct)
	if ext == "" {
		ext = ".bin"
	}

	key := fmt.Sprintf("products/%s/%s%s", product.ID, uuid.NewString(), ext)
	if err := s.files.UploadFile(ctx, vault.CategoryMedia, key, ct, bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("upload product image: %w", err)
	}

	row := &types.ProductMedia{
		ProductID:    product.ID,
		FileURL:      s.files.GetPublicURL(vault.CategoryMedia, key),
		ContentType:  ct,
		IsMain:       in.IsMain,
		DisplayOrder: in.DisplayOrder,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if in.IsMain {
			if err := s.media.ClearMainFlag(ctx, tx, product.ID); err != nil {
				return err
			}
		}
		_, err := s.media.Create(ctx, tx, []*types.ProductMedia{row})
		return err
	})
	if err != nil {
		s.discardUploads(ctx, []uploadedImage{{key: key}})
		return nil, err
	}

	s.recordProductAudit(actor, product.ID, types.AuditUpdate, map[string]any{"media_added": row.ID.String()})
	return row, nil
}

func (s *productService) SetMainMedia(ctx context.Context, actor ctxutil.Actor, productID, mediaID uuid.UUID) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("product service not configured")
	}
	if err := requireBrandActor(actor); err != nil {
		return err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		product, err := s.ownedProduct(ctx, tx, actor, productID)
		if err != nil {
			return err
		}

		row, err := s.media.GetByID(ctx, tx, mediaID)
		if err != nil {
			return err
		}
		if row == nil || row.ProductID != product.ID {
			return apierr.NotFound("media not found")
		}
		if row.IsMain {
			return nil
		}

		if err := s.media.ClearMainFlag(ctx, tx, product.ID); err != nil {
			return err
		}
		row.IsMain = true
		return s.media.Save(ctx, tx, row)
	})
	if err != nil {
		return err
	}

	s.recordProductAudit(actor, productID, types.AuditUpdate, map[string]any{"main_media": mediaID.String()})
	return nil
}

// DeleteMedia soft-deletes the row only. The stored object stays: published
// passports may still render a URL captured before the delete.
func (s *productService) DeleteMedia(ctx context.Context, actor ctxutil.Actor, productID, mediaID uuid.UUID) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("product service not configured")
	}
	if err := requireBrandActor(actor); err != nil {
		return err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		product, err := s.ownedProduct(ctx, tx, actor, productID)
		if err != nil {
			return err
		}

		row, err := s.media.GetByID(ctx, tx, mediaID)
		if err != nil {
			return err
		}
		if row == nil || row.ProductID != product.ID {
			return apierr.NotFound("media not found")
		}
		return s.media.Delete(ctx, tx, row.ID)
	})
	if err != nil {
		return err
	}

	s.recordProductAudit(actor, productID, types.AuditUpdate, map[string]any{"media_removed": mediaID.String()})
	return nil
}

// ownedProduct resolves a product in the acting tenant's catalog. Absent and
// foreign rows read the same so product ids cannot be probed across tenants.
func (s *productService) ownedProduct(ctx context.Context, tx *gorm.DB, actor ctxutil.Actor, productID uuid.UUID) (*types.Product, error) {
	product, err := s.products.GetByID(ctx, tx, productID)
	if err != nil {
		return nil, err
	}
	if product == nil || product.TenantID != actor.ActingTenantID {
		return nil, apierr.NotFound("product not found")
	}
	return product, nil
}

// editableVersion resolves a version through its product's ownership and
// gates mutation on draft status.
func (s *productService) editableVersion(ctx context.Context, tx *gorm.DB, actor ctxutil.Actor, versionID uuid.UUID) (*types.ProductVersion, *types.Product, error) {
	version, err := s.versions.GetByID(ctx, tx, versionID)
	if err != nil {
		return nil, nil, err
	}
	if version == nil {
		return nil, nil, apierr.NotFound("version not found")
	}
	product, err := s.products.GetByID(ctx, tx, version.ProductID)
	if err != nil {
		return nil, nil, err
	}
	if product == nil || product.TenantID != actor.ActingTenantID {
		return nil, nil, apierr.NotFound("version not found")
	}
	if !version.Status.Editable() {
		return nil, nil, apierr.InvalidState("version is %s; only working drafts can be edited", version.Status)
	}
	return version, product, nil
}

// visibleLibraryRow mirrors the library resolver's read scope: System rows
// plus rows owned by any of the given tenants.
func visibleLibraryRow(rowTenantID *uuid.UUID, tenants ...uuid.UUID) bool {
	if rowTenantID == nil {
		return true
	}
	for _, t := range tenants {
		if *rowTenantID == t {
			return true
		}
	}
	return false
}

func applyString(changes map[string]any, field string, dst *string, src *string) {
	if src == nil {
		return
	}
	v := strings.TrimSpace(*src)
	if v == *dst {
		return
	}
	changes[field] = map[string]any{"old": *dst, "new": v}
	*dst = v
}

func applyFloat(changes map[string]any, field string, dst **float64, src *float64) {
	if src == nil {
		return
	}
	if *dst != nil && **dst == *src {
		return
	}
	var old any
	if *dst != nil {
		old = **dst
	}
	changes[field] = map[string]any{"old": old, "new": *src}
	v := *src
	*dst = &v
}

func (s *productService) recordProductAudit(actor ctxutil.Actor, productID uuid.UUID, action types.AuditAction, changes map[string]any) {
	s.async.Go("audit.product", func(ctx context.Context) error {
		return s.audit.Record(ctx, AuditEntry{
			TenantID:    actor.ActingTenantID,
			ActorUserID: actor.UserID,
			EntityType:  EntityProduct,
			EntityID:    productID,
			Action:      action,
			Changes:     changes,
			IPAddress:   actor.IPAddress,
		})
	})
}

func (s *productService) recordVersionAudit(actor ctxutil.Actor, versionID uuid.UUID, action types.AuditAction, changes map[string]any) {
	s.async.Go("audit.version", func(ctx context.Context) error {
		return s.audit.Record(ctx, AuditEntry{
			TenantID:    actor.ActingTenantID,
			ActorUserID: actor.UserID,
			EntityType:  EntityProductVersion,
			EntityID:    versionID,
			Action:      action,
			Changes:     changes,
			IPAddress:   actor.IPAddress,
		})
	})
}

// mirrorChain re-projects one version's BOM into the graph after commit.
// Library rows are fetched fresh inside the task so the mirror never holds
// the request transaction open.
func (s *productService) mirrorChain(product *types.Product, version *types.ProductVersion) {
	if product == nil || version == nil {
		return
	}
	s.async.Go("graph.product_chain", func(ctx context.Context) error {
		materialLines, err := s.versions.ListMaterials(ctx, nil, version.ID)
		if err != nil {
			return err
		}
		supplierLines, err := s.versions.ListSuppliers(ctx, nil, version.ID)
		if err != nil {
			return err
		}

		materialIDs := make([]uuid.UUID, 0, len(materialLines))
		for _, l := range materialLines {
			if l.MaterialID != nil {
				materialIDs = append(materialIDs, *l.MaterialID)
			}
		}
		profileIDs := make([]uuid.UUID, 0, len(supplierLines))
		for _, l := range supplierLines {
			if l.SupplierProfileID != nil {
				profileIDs = append(profileIDs, *l.SupplierProfileID)
			}
		}

		materialRows, err := s.materials.GetByIDs(ctx, nil, materialIDs)
		if err != nil {
			return err
		}
		profileRows, err := s.profiles.GetByIDs(ctx, nil, profileIDs)
		if err != nil {
			return err
		}

		return graph.UpsertProductChain(ctx, s.graphDB, s.graphLog, product, version, materialLines, materialRows, supplierLines, profileRows)
	})
}
