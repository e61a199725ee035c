package services

import (
	"bytes"
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
	"github.com/tracebind/passport-backend/internal/pkg/contenttype"
	"github.com/tracebind/passport-backend/internal/pkg/ctxutil"
	"github.com/tracebind/passport-backend/internal/platform/apierr"
	"github.com/tracebind/passport-backend/internal/platform/logger"
	"github.com/tracebind/passport-backend/internal/platform/neo4jdb"
	"github.com/tracebind/passport-backend/internal/platform/vault"
)

type AssignSupplierInput struct {
	SupplierProfileID uuid.UUID  `json:"supplier_profile_id"`
	DueDate           *time.Time `json:"due_date"`
	Note              string     `json:"note"`
}

// DraftCertificationInput is one entry of the full-replace certification
// list. FileData carries freshly uploaded bytes (base64); entries without it
// keep their existing DocumentURL.
type DraftCertificationInput struct {
	CertificationID         *uuid.UUID `json:"certification_id"`
	CertificateDefinitionID *uuid.UUID `json:"certificate_definition_id"`

	Name        string     `json:"name"`
	DocumentURL string     `json:"document_url"`
	FileData    string     `json:"file_data"`
	ContentType string     `json:"content_type"`
	ValidUntil  *time.Time `json:"valid_until"`
}

// DraftPayload is the supplier's save unit. Scalars are merge-patched (nil
// keeps the stored value). Child collections are full-replace: a nil slice
// leaves the collection untouched, a non-nil slice (empty included) deletes
// every existing row and inserts the given ones. There is no per-row diff.
type DraftPayload struct {
	ManufacturingCountry   *string  `json:"manufacturing_country"`
	TotalCarbonFootprintKG *float64 `json:"total_carbon_footprint_kg"`
	TotalWaterUsageLiters  *float64 `json:"total_water_usage_liters"`
	TotalEnergyMJ          *float64 `json:"total_energy_mj"`
	RecyclingInstructions  *string  `json:"recycling_instructions"`
	RecyclabilityClass     *string  `json:"recyclability_class"`

	Materials      []MaterialLineInput       `json:"materials"`
	Suppliers      []SupplierLineInput       `json:"suppliers"`
	Certifications []DraftCertificationInput `json:"certifications"`
}

// MaterialLineView pairs a BOM line with the library names the supplier page
// renders, resolved in one batched lookup.
type MaterialLineView struct {
	Line         *types.VersionMaterial `json:"line"`
	MaterialName string                 `json:"material_name"`
	MaterialCode string                 `json:"material_code"`
}

type RequestDetail struct {
	Request *types.DataContributionRequest `json:"request"`

	BrandName   string `json:"brand_name"`
	ProfileName string `json:"profile_name"`
	ProductName string `json:"product_name"`
	ProductSKU  string `json:"product_sku"`

	Version        *types.ProductVersion         `json:"version"`
	Materials      []*MaterialLineView           `json:"materials"`
	Suppliers      []*types.VersionSupplier      `json:"suppliers"`
	Certifications []*types.VersionCertification `json:"certifications"`
}

type RequestListItem struct {
	Request *types.DataContributionRequest `json:"request"`

	ProductName string `json:"product_name"`
	ProductSKU  string `json:"product_sku"`
	VersionName string `json:"version_name"`

	BrandName   string `json:"brand_name"`
	ProfileName string `json:"profile_name"`
}

type ContributionService interface {
	Assign(ctx context.Context, actor ctxutil.Actor, productID uuid.UUID, in AssignSupplierInput) (*types.DataContributionRequest, error)

	Accept(ctx context.Context, actor ctxutil.Actor, requestID uuid.UUID, note string) (*types.DataContributionRequest, error)
	Decline(ctx context.Context, actor ctxutil.Actor, requestID uuid.UUID, note string) (*types.DataContributionRequest, error)
	SaveDraft(ctx context.Context, actor ctxutil.Actor, requestID uuid.UUID, payload DraftPayload) (*types.DataContributionRequest, error)
	Submit(ctx context.Context, actor ctxutil.Actor, requestID uuid.UUID, note string) (*types.DataContributionRequest, error)

	Review(ctx context.Context, actor ctxutil.Actor, requestID uuid.UUID, approve bool, comment string) (*types.DataContributionRequest, error)
	Cancel(ctx context.Context, actor ctxutil.Actor, requestID uuid.UUID, reason string) (*types.DataContributionRequest, error)

	Get(ctx context.Context, actor ctxutil.Actor, requestID uuid.UUID) (*RequestDetail, error)
	ListForBrand(ctx context.Context, actor ctxutil.Actor, productID uuid.UUID) ([]*RequestListItem, error)
	ListForSupplier(ctx context.Context, actor ctxutil.Actor, statuses []types.RequestStatus) ([]*RequestListItem, error)
}

type contributionService struct {
	db  *gorm.DB
	log *logger.Logger

	requests repos.RequestRepo
	comments repos.CommentRepo
	products repos.ProductRepo
	versions repos.VersionRepo
	profiles repos.SupplierProfileRepo
	tenants  repos.TenantRepo

	materials    repos.MaterialRepo
	materialDefs repos.MaterialDefinitionRepo
	certs        repos.CertificationRepo
	certDefs     repos.CertificateDefinitionRepo

	files    vault.FileVault
	audit    AuditService
	notify   Notifier
	async    *Dispatcher
	graphDB  *neo4jdb.Client
	graphLog *logger.Logger
	metrics  *observability.Metrics
}

func NewContributionService(
	db *gorm.DB,
	baseLog *logger.Logger,
	requests repos.RequestRepo,
	comments repos.CommentRepo,
	products repos.ProductRepo,
	versions repos.VersionRepo,
	profiles repos.SupplierProfileRepo,
	tenants repos.TenantRepo,
	materials repos.MaterialRepo,
	materialDefs repos.MaterialDefinitionRepo,
	certs repos.CertificationRepo,
	certDefs repos.CertificateDefinitionRepo,
	files vault.FileVault,
	audit AuditService,
	notify Notifier,
	async *Dispatcher,
	graphDB *neo4jdb.Client,
	metrics *observability.Metrics,
) ContributionService {
	serviceLog := baseLog.With("service", "ContributionService")
	return &contributionService{
		db:           db,
		log:          serviceLog,
		requests:     requests,
		comments:     comments,
		products:     products,
		versions:     versions,
		profiles:     profiles,
		tenants:      tenants,
		materials:    materials,
		materialDefs: materialDefs,
		certs:        certs,
		certDefs:     certDefs,
		files:        files,
		audit:        audit,
		notify:       notify,
		async:        async,
		graphDB:      graphDB,
		graphLog:     serviceLog,
		metrics:      metrics,
	}
}

func (s *contributionService) Assign(ctx context.Context, actor ctxutil.Actor, productID uuid.UUID, in AssignSupplierInput) (*types.DataContributionRequest, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("contribution service not configured")
	}
	if err := requireBrandActor(actor); err != nil {
		return nil, err
	}

	var req *types.DataContributionRequest
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		product, err := s.products.GetByID(ctx, tx, productID)
		if err != nil {
			return err
		}
		if product == nil || product.TenantID != actor.ActingTenantID {
			return apierr.NotFound("product not found")
		}

		latest, err := s.versions.GetLatestByProductID(ctx, tx, product.ID)
		if err != nil {
			return err
		}
		if latest == nil {
			return apierr.InvalidState("product has no version to assign")
		}
		if latest.Status != types.VersionWorkingDraft {
			return apierr.InvalidState("latest version is %s; suppliers can only be assigned to a working draft", latest.Status)
		}

		profile, err := s.profiles.GetByID(ctx, tx, in.SupplierProfileID)
		if err != nil {
			return err
		}
		if profile == nil || profile.TenantID != actor.ActingTenantID {
			return apierr.NotFound("supplier profile not found")
		}
		if !profile.CanBeAssigned() {
			return apierr.InvalidState("supplier connection is not active or the supplier has not joined the platform")
		}

		open, err := s.requests.FindOpenByProductAndProfile(ctx, tx, product.ID, profile.ID)
		if err != nil {
			return err
		}
		if open != nil {
			return apierr.Conflict("an open contribution request (%s) already exists for this product and supplier", open.Status)
		}

		req = &types.DataContributionRequest{
			ID:                uuid.New(),
			BrandTenantID:     actor.ActingTenantID,
			SupplierTenantID:  *profile.SupplierTenantID,
			SupplierProfileID: profile.ID,
			ProductID:         product.ID,
			CurrentVersionID:  latest.ID,
			InitialVersionID:  latest.ID,
			Status:            types.RequestSent,
			DueDate:           in.DueDate,
			Note:              strings.TrimSpace(in.Note),
		}
		if _, err := s.requests.Create(ctx, tx, []*types.DataContributionRequest{req}); err != nil {
			return err
		}
		if req.Note != "" {
			return s.addComment(ctx, tx, actor, req.ID, req.Note, false)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterTransition(actor, req, "assigned", types.AuditCreate, map[string]any{
		"product_id":          req.ProductID.String(),
		"supplier_profile_id": req.SupplierProfileID.String(),
		"version_id":          req.CurrentVersionID.String(),
	})
	s.async.Go("notify.request", func(ctx context.Context) error {
		s.notify.RequestAssigned(ctx, req)
		return nil
	})

	s.log.Info("contribution request assigned",
		"request_id", req.ID,
		"product_id", req.ProductID,
		"supplier_tenant_id", req.SupplierTenantID,
	)
	return req, nil
}

func (s *contributionService) Accept(ctx context.Context, actor ctxutil.Actor, requestID uuid.UUID, note string) (*types.DataContributionRequest, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("contribution service not configured")
	}
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	var req *types.DataContributionRequest
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		req, err = s.supplierRequest(ctx, tx, actor, requestID)
		if err != nil {
			return err
		}
		if req.Status != types.RequestSent {
			return apierr.InvalidState("request is %s; only sent requests can be accepted", req.Status)
		}

		req.Status = types.RequestInProgress
		if err := s.requests.Save(ctx, tx, req); err != nil {
			return err
		}
		return s.addOptionalNote(ctx, tx, actor, req.ID, note)
	})
	if err != nil {
		return nil, err
	}

	s.afterTransition(actor, req, "accepted", types.AuditUpdate, map[string]any{"status": string(req.Status)})
	s.async.Go("notify.request", func(ctx context.Context) error {
		s.notify.RequestStarted(ctx, req)
		return nil
	})
	return req, nil
}

func (s *contributionService) Decline(ctx context.Context, actor ctxutil.Actor, requestID uuid.UUID, note string) (*types.DataContributionRequest, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("contribution service not configured")
	}
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	var req *types.DataContributionRequest
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		req, err = s.supplierRequest(ctx, tx, actor, requestID)
		if err != nil {
			return err
		}
		if req.Status != types.RequestSent {
			return apierr.InvalidState("request is %s; only sent requests can be declined", req.Status)
		}

		version, err := s.versions.GetByID(ctx, tx, req.CurrentVersionID)
		if err != nil {
			return err
		}
		if version != nil {
			version.Status = types.VersionRejected
			if err := s.versions.Save(ctx, tx, version); err != nil {
				return err
			}
		}

		req.Status = types.RequestDeclined
		if err := s.requests.Save(ctx, tx, req); err != nil {
			return err
		}
		return s.addOptionalNote(ctx, tx, actor, req.ID, note)
	})
	if err != nil {
		return nil, err
	}

	s.afterTransition(actor, req, "declined", types.AuditUpdate, map[string]any{"status": string(req.Status)})
	s.async.Go("notify.request", func(ctx context.Context) error {
		s.notify.RequestDeclined(ctx, req)
		return nil
	})
	return req, nil
}

func (s *contributionService) SaveDraft(ctx context.Context, actor ctxutil.Actor, requestID uuid.UUID, payload DraftPayload) (*types.DataContributionRequest, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("contribution service not configured")
	}
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	// Certificate uploads happen before the transaction: a rollback can
	// orphan an object (cleaned up best-effort) but never the reverse.
	uploadedKeys, uploadURLByIndex, err := s.uploadDraftCertificates(ctx, requestID, payload.Certifications)
	if err != nil {
		return nil, err
	}

	var req *types.DataContributionRequest
	var version *types.ProductVersion
	var product *types.Product
	started := false
	changes := map[string]any{}
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		req, err = s.supplierRequest(ctx, tx, actor, requestID)
		if err != nil {
			return err
		}
		if !req.Status.SupplierEditable() {
			return apierr.InvalidState("request is %s and locked for editing", req.Status)
		}

		version, err = s.versions.GetByID(ctx, tx, req.CurrentVersionID)
		if err != nil {
			return err
		}
		if version == nil {
			return apierr.Internal(fmt.Errorf("request %s points at a missing version", req.ID))
		}
		if !version.Status.Editable() {
			return apierr.InvalidState("version is %s and no longer editable", version.Status)
		}

		product, err = s.products.GetByID(ctx, tx, req.ProductID)
		if err != nil {
			return err
		}

		applyString(changes, "manufacturing_country", &version.ManufacturingCountry, payload.ManufacturingCountry)
		applyFloat(changes, "total_carbon_footprint_kg", &version.TotalCarbonFootprintKG, payload.TotalCarbonFootprintKG)
		applyFloat(changes, "total_water_usage_liters", &version.TotalWaterUsageLiters, payload.TotalWaterUsageLiters)
		applyFloat(changes, "total_energy_mj", &version.TotalEnergyMJ, payload.TotalEnergyMJ)
		applyString(changes, "recycling_instructions", &version.RecyclingInstructions, payload.RecyclingInstructions)
		applyString(changes, "recyclability_class", &version.RecyclabilityClass, payload.RecyclabilityClass)
		if err := s.versions.Save(ctx, tx, version); err != nil {
			return err
		}

		visible := []uuid.UUID{req.SupplierTenantID, req.BrandTenantID}

		if payload.Materials != nil {
			rows := make([]*types.VersionMaterial, 0, len(payload.Materials))
			for _, in := range payload.Materials {
				if in.Percentage <= 0 || in.Percentage > 100 {
					return apierr.Validation("material percentage must be between 0 and 100")
				}
				line, err := resolveMaterialLine(ctx, tx, s.materials, s.materialDefs, version.ID, in, visible...)
				if err != nil {
					return err
				}
				rows = append(rows, line)
			}
			if err := s.versions.ReplaceMaterials(ctx, tx, version.ID, rows); err != nil {
				return err
			}
			changes["materials_replaced"] = len(rows)
		}

		if payload.Suppliers != nil {
			rows := make([]*types.VersionSupplier, 0, len(payload.Suppliers))
			for _, in := range payload.Suppliers {
				line, err := s.resolveSupplierLine(ctx, tx, req, version.ID, in)
				if err != nil {
					return err
				}
				rows = append(rows, line)
			}
			if err := s.versions.ReplaceSuppliers(ctx, tx, version.ID, rows); err != nil {
				return err
			}
			changes["suppliers_replaced"] = len(rows)
		}

		if payload.Certifications != nil {
			rows := make([]*types.VersionCertification, 0, len(payload.Certifications))
			for i, in := range payload.Certifications {
				line, err := s.resolveCertificationLine(ctx, tx, version.ID, in, uploadURLByIndex[i], visible)
				if err != nil {
					return err
				}
				rows = append(rows, line)
			}
			if err := s.versions.ReplaceCertifications(ctx, tx, version.ID, rows); err != nil {
				return err
			}
			changes["certifications_replaced"] = len(rows)
		}

		if req.Status == types.RequestSent {
			req.Status = types.RequestInProgress
			started = true
			return s.requests.Save(ctx, tx, req)
		}
		return nil
	})
	if txErr != nil {
		s.discardDraftUploads(ctx, uploadedKeys)
		return nil, txErr
	}

	s.afterTransition(actor, req, "draft_saved", types.AuditUpdate, changes)
	if started {
		s.async.Go("notify.request", func(ctx context.Context) error {
			s.notify.RequestStarted(ctx, req)
			return nil
		})
	}
	s.mirrorRequestChain(product, version)

	s.log.Info("draft saved",
		"request_id", req.ID,
		"version_id", version.ID,
		"started", started,
	)
	return req, nil
}

// uploadDraftCertificates stores the payload's fresh files and returns the
// vault keys plus the public URL per payload index.
func (s *contributionService) uploadDraftCertificates(ctx context.Context, requestID uuid.UUID, entries []DraftCertificationInput) ([]string, map[int]string, error) {
	urlByIndex := make(map[int]string, len(entries))
	var keys []string
	for i, in := range entries {
		if strings.TrimSpace(in.FileData) == "" {
			continue
		}
		if s.files == nil {
			return nil, nil, apierr.Internal(fmt.Errorf("file storage is not configured"))
		}

		raw, declared, err := decodeBase64Payload(in.FileData)
		if err != nil {
			s.discardDraftUploads(ctx, keys)
			return nil, nil, apierr.Validation("certification file payload is not valid base64")
		}
		ct := contenttype.Resolve(in.ContentType, in.Name)
		if ct == contenttype.Fallback && declared != "" {
			ct = contenttype.Resolve(declared, in.Name)
		}
		ext := contenttype.ExtensionFor(ct)
		if ext == "" {
			ext = ".bin"
		}

		key := fmt.Sprintf("requests/%s/certs/%s%s", requestID, uuid.NewString(), ext)
		if err := s.files.UploadFile(ctx, vault.CategoryDocument, key, ct, bytes.NewReader(raw)); err != nil {
			s.discardDraftUploads(ctx, keys)
			return nil, nil, fmt.Errorf("upload certification document: %w", err)
		}
		keys = append(keys, key)
		urlByIndex[i] = s.files.GetPublicURL(vault.CategoryDocument, key)
	}
	return keys, urlByIndex, nil
}

func (s *contributionService) discardDraftUploads(ctx context.Context, keys []string) {
	if s.files == nil {
		return
	}
	for _, key := range keys {
		if err := s.files.DeleteFile(ctx, vault.CategoryDocument, key); err != nil {
			s.log.Warn("orphaned certification upload cleanup failed", "key", key, "error", err)
		}
	}
}

// resolveSupplierLine validates one supply-chain entry. Profile references
// resolve against the brand's address book, which the supplier can only
// round-trip from data it was already shown.
func (s *contributionService) resolveSupplierLine(ctx context.Context, tx *gorm.DB, req *types.DataContributionRequest, versionID uuid.UUID, in SupplierLineInput) (*types.VersionSupplier, error) {
	role := strings.TrimSpace(in.Role)
	if role == "" {
		return nil, apierr.Validation("supplier role is required")
	}

	line := &types.VersionSupplier{
		VersionID: versionID,
		Role:      role,
	}
	if in.SupplierProfileID != nil && *in.SupplierProfileID != uuid.Nil {
		profile, err := s.profiles.GetByID(ctx, tx, *in.SupplierProfileID)
		if err != nil {
			return nil, err
		}
		if profile == nil || profile.TenantID != req.BrandTenantID {
			return nil, apierr.NotFound("supplier profile not found")
		}
		line.SupplierProfileID = &profile.ID
		return line, nil
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apierr.Validation("supplier name is required when no profile is given")
	}
	line.UnlistedSupplierName = name
	line.UnlistedSupplierCountry = strings.TrimSpace(in.Country)
	return line, nil
}

func (s *contributionService) resolveCertificationLine(ctx context.Context, tx *gorm.DB, versionID uuid.UUID, in DraftCertificationInput, uploadedURL string, visible []uuid.UUID) (*types.VersionCertification, error) {
	line := &types.VersionCertification{
		VersionID:   versionID,
		DocumentURL: strings.TrimSpace(in.DocumentURL),
		ValidUntil:  in.ValidUntil,
	}
	if uploadedURL != "" {
		line.DocumentURL = uploadedURL
	}

	hasCert := in.CertificationID != nil && *in.CertificationID != uuid.Nil
	hasDef := in.CertificateDefinitionID != nil && *in.CertificateDefinitionID != uuid.Nil
	if !hasCert && !hasDef && line.DocumentURL == "" {
		return nil, apierr.Validation("certification entries need a library reference or a document")
	}

	if hasCert {
		row, err := s.certs.GetByID(ctx, tx, *in.CertificationID)
		if err != nil {
			return nil, err
		}
		if row == nil || !visibleLibraryRow(row.TenantID, visible...) {
			return nil, apierr.NotFound("certification not found")
		}
		line.CertificationID = &row.ID
	}
	if hasDef {
		def, err := s.certDefs.GetByID(ctx, tx, *in.CertificateDefinitionID)
		if err != nil {
			return nil, err
		}
		if def == nil || !visibleLibraryRow(def.TenantID, visible...) {
			return nil, apierr.NotFound("certificate definition not found")
		}
		line.CertificateDefinitionID = &def.ID
	}
	if line.DocumentURL != "" {
		line.ContentType = contenttype.Resolve(in.ContentType, line.DocumentURL)
	}
	return line, nil
}

func (s *contributionService) Submit(ctx context.Context, actor ctxutil.Actor, requestID uuid.UUID, note string) (*types.DataContributionRequest, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("contribution service not configured")
	}
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	var req *types.DataContributionRequest
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		req, err = s.supplierRequest(ctx, tx, actor, requestID)
		if err != nil {
			return err
		}
		if !req.Status.SupplierEditable() {
			return apierr.InvalidState("request is %s and cannot be submitted", req.Status)
		}

		version, err := s.versions.GetByID(ctx, tx, req.CurrentVersionID)
		if err != nil {
			return err
		}
		if version == nil {
			return apierr.Internal(fmt.Errorf("request %s points at a missing version", req.ID))
		}

		// Request and version lock together or not at all.
		version.Status = types.VersionSubmitted
		if err := s.versions.Save(ctx, tx, version); err != nil {
			return err
		}
		req.Status = types.RequestSubmitted
		if err := s.requests.Save(ctx, tx, req); err != nil {
			return err
		}
		return s.addOptionalNote(ctx, tx, actor, req.ID, note)
	})
	if err != nil {
		return nil, err
	}

	s.afterTransition(actor, req, "submitted", types.AuditUpdate, map[string]any{"status": string(req.Status)})
	s.async.Go("notify.request", func(ctx context.Context) error {
		s.notify.RequestSubmitted(ctx, req)
		return nil
	})
	return req, nil
}

func (s *contributionService) Review(ctx context.Context, actor ctxutil.Actor, requestID uuid.UUID, approve bool, comment string) (*types.DataContributionRequest, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("contribution service not configured")
	}
	if err := requireBrandActor(actor); err != nil {
		return nil, err
	}

	comment = strings.TrimSpace(comment)
	if !approve && comment == "" {
		return nil, apierr.Validation("a comment is required when requesting changes")
	}

	var req *types.DataContributionRequest
	var product *types.Product
	var newDraft *types.ProductVersion
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		req, err = s.brandRequest(ctx, tx, actor, requestID)
		if err != nil {
			return err
		}
		if req.Status != types.RequestSubmitted {
			return apierr.InvalidState("request is %s; only submitted requests can be reviewed", req.Status)
		}

		version, err := s.versions.GetByID(ctx, tx, req.CurrentVersionID)
		if err != nil {
			return err
		}
		if version == nil {
			return apierr.Internal(fmt.Errorf("request %s points at a missing version", req.ID))
		}
		product, err = s.products.GetByID(ctx, tx, req.ProductID)
		if err != nil {
			return err
		}

		if approve {
			version.Status = types.VersionApproved
			if err := s.versions.Save(ctx, tx, version); err != nil {
				return err
			}
			req.Status = types.RequestCompleted
			if err := s.requests.Save(ctx, tx, req); err != nil {
				return err
			}
			if comment != "" {
				return s.addComment(ctx, tx, actor, req.ID, comment, false)
			}
			return nil
		}

		// Reject: freeze the reviewed snapshot, clone a fresh draft, and
		// repoint the request at it.
		version.Status = types.VersionRevisionRequired
		if err := s.versions.Save(ctx, tx, version); err != nil {
			return err
		}

		snap, err := s.versions.GetSnapshot(ctx, tx, version.ID)
		if err != nil {
			return err
		}
		if snap == nil || snap.Version == nil {
			return apierr.Internal(fmt.Errorf("version %s has no snapshot to clone", version.ID))
		}
		clone := types.CloneVersion(*snap)
		if err := s.versions.InsertSnapshot(ctx, tx, &clone); err != nil {
			return err
		}
		newDraft = clone.Version

		req.CurrentVersionID = newDraft.ID
		req.Status = types.RequestChangesRequested
		if err := s.requests.Save(ctx, tx, req); err != nil {
			return err
		}
		return s.addComment(ctx, tx, actor, req.ID, comment, true)
	})
	if err != nil {
		return nil, err
	}

	if approve {
		s.afterTransition(actor, req, "approved", types.AuditUpdate, map[string]any{"status": string(req.Status)})
		s.async.Go("notify.request", func(ctx context.Context) error {
			s.notify.RequestApproved(ctx, req)
			return nil
		})
	} else {
		s.afterTransition(actor, req, "changes_requested", types.AuditUpdate, map[string]any{
			"status":         string(req.Status),
			"new_version_id": newDraft.ID.String(),
		})
		s.async.Go("notify.request", func(ctx context.Context) error {
			s.notify.RequestRejected(ctx, req, comment)
			return nil
		})
		s.mirrorRequestChain(product, newDraft)
	}

	s.log.Info("request reviewed",
		"request_id", req.ID,
		"approved", approve,
		"status", req.Status,
	)
	return req, nil
}

func (s *contributionService) Cancel(ctx context.Context, actor ctxutil.Actor, requestID uuid.UUID, reason string) (*types.DataContributionRequest, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("contribution service not configured")
	}
	if err := requireBrandActor(actor); err != nil {
		return nil, err
	}

	var req *types.DataContributionRequest
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		req, err = s.brandRequest(ctx, tx, actor, requestID)
		if err != nil {
			return err
		}
		if !req.Status.Cancellable() {
			return apierr.InvalidState("request is %s and cannot be cancelled", req.Status)
		}

		req.Status = types.RequestCancelled
		if err := s.requests.Save(ctx, tx, req); err != nil {
			return err
		}
		body := "Request Cancelled"
		if strings.TrimSpace(reason) != "" {
			body = fmt.Sprintf("Request Cancelled: %s", strings.TrimSpace(reason))
		}
		return s.addComment(ctx, tx, actor, req.ID, body, true)
	})
	if err != nil {
		return nil, err
	}

	s.afterTransition(actor, req, "cancelled", types.AuditUpdate, map[string]any{"status": string(req.Status)})
	s.async.Go("notify.request", func(ctx context.Context) error {
		s.notify.RequestCancelled(ctx, req)
		return nil
	})
	return req, nil
}

func (s *contributionService) Get(ctx context.Context, actor ctxutil.Actor, requestID uuid.UUID) (*RequestDetail, error) {
	if s == nil || s.requests == nil {
		return nil, fmt.Errorf("contribution service not configured")
	}
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	req, err := s.requests.GetByID(ctx, nil, requestID)
	if err != nil {
		return nil, err
	}
	// Non-parties read absent so request ids cannot be probed.
	if req == nil || (req.BrandTenantID != actor.ActingTenantID && req.SupplierTenantID != actor.ActingTenantID) {
		return nil, apierr.NotFound("request not found")
	}

	version, err := s.versions.GetByID(ctx, nil, req.CurrentVersionID)
	if err != nil {
		return nil, err
	}
	materialLines, err := s.versions.ListMaterials(ctx, nil, req.CurrentVersionID)
	if err != nil {
		return nil, err
	}
	suppliers, err := s.versions.ListSuppliers(ctx, nil, req.CurrentVersionID)
	if err != nil {
		return nil, err
	}
	certifications, err := s.versions.ListCertifications(ctx, nil, req.CurrentVersionID)
	if err != nil {
		return nil, err
	}

	materialIDs := make([]uuid.UUID, 0, len(materialLines))
	for _, l := range materialLines {
		if l.MaterialID != nil {
			materialIDs = append(materialIDs, *l.MaterialID)
		}
	}
	materialRows, err := s.materials.GetByIDs(ctx, nil, materialIDs)
	if err != nil {
		return nil, err
	}
	materialByID := make(map[uuid.UUID]*types.Material, len(materialRows))
	for _, m := range materialRows {
		materialByID[m.ID] = m
	}

	detail := &RequestDetail{
		Request:        req,
		Version:        version,
		Suppliers:      suppliers,
		Certifications: certifications,
		Materials:      make([]*MaterialLineView, 0, len(materialLines)),
	}
	for _, l := range materialLines {
		view := &MaterialLineView{Line: l, MaterialName: l.UnlistedMaterialName}
		if l.MaterialID != nil {
			if m, ok := materialByID[*l.MaterialID]; ok {
				view.MaterialName = m.Name
				view.MaterialCode = m.Code
			}
		}
		detail.Materials = append(detail.Materials, view)
	}

	if req.BrandTenant != nil {
		detail.BrandName = req.BrandTenant.Name
	}
	if req.SupplierProfile != nil {
		detail.ProfileName = req.SupplierProfile.Name
	}
	if req.Product != nil {
		detail.ProductSKU = req.Product.SKU
	}
	if version != nil {
		detail.ProductName = version.ProductName
	}
	return detail, nil
}

func (s *contributionService) ListForBrand(ctx context.Context, actor ctxutil.Actor, productID uuid.UUID) ([]*RequestListItem, error) {
	if s == nil || s.requests == nil {
		return nil, fmt.Errorf("contribution service not configured")
	}
	if err := requireBrandActor(actor); err != nil {
		return nil, err
	}

	var rows []*types.DataContributionRequest
	if productID != uuid.Nil {
		product, err := s.products.GetByID(ctx, nil, productID)
		if err != nil {
			return nil, err
		}
		if product == nil || product.TenantID != actor.ActingTenantID {
			return nil, apierr.NotFound("product not found")
		}
		rows, err = s.requests.ListByProduct(ctx, nil, product.ID)
		if err != nil {
			return nil, err
		}
	} else {
		var err error
		rows, err = s.requests.ListByBrandTenant(ctx, nil, actor.ActingTenantID, nil)
		if err != nil {
			return nil, err
		}
	}
	return s.listItems(ctx, rows)
}

func (s *contributionService) ListForSupplier(ctx context.Context, actor ctxutil.Actor, statuses []types.RequestStatus) ([]*RequestListItem, error) {
	if s == nil || s.requests == nil {
		return nil, fmt.Errorf("contribution service not configured")
	}
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	rows, err := s.requests.ListBySupplierTenant(ctx, nil, actor.ActingTenantID, statuses)
	if err != nil {
		return nil, err
	}
	return s.listItems(ctx, rows)
}

// listItems enriches request rows for list rendering with three batched
// lookups: current versions, products, and counterparty names.
func (s *contributionService) listItems(ctx context.Context, rows []*types.DataContributionRequest) ([]*RequestListItem, error) {
	if len(rows) == 0 {
		return []*RequestListItem{}, nil
	}

	versionIDs := make([]uuid.UUID, 0, len(rows))
	productIDs := make([]uuid.UUID, 0, len(rows))
	brandIDs := make([]uuid.UUID, 0, len(rows))
	profileIDs := make([]uuid.UUID, 0, len(rows))
	for _, r := range rows {
		versionIDs = append(versionIDs, r.CurrentVersionID)
		productIDs = append(productIDs, r.ProductID)
		brandIDs = append(brandIDs, r.BrandTenantID)
		profileIDs = append(profileIDs, r.SupplierProfileID)
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

	profileRows, err := s.profiles.GetByIDs(ctx, nil, profileIDs)
	if err != nil {
		return nil, err
	}
	profileByID := make(map[uuid.UUID]*types.SupplierProfile, len(profileRows))
	for _, p := range profileRows {
		profileByID[p.ID] = p
	}

	out := make([]*RequestListItem, 0, len(rows))
	for _, r := range rows {
		item := &RequestListItem{Request: r}
		if v, ok := versionByID[r.CurrentVersionID]; ok {
			item.ProductName = v.ProductName
			item.VersionName = v.VersionName
		}
		if p, ok := productByID[r.ProductID]; ok {
			item.ProductSKU = p.SKU
		}
		if t, ok := brandByID[r.BrandTenantID]; ok {
			item.BrandName = t.Name
		}
		if p, ok := profileByID[r.SupplierProfileID]; ok {
			item.ProfileName = p.Name
		}
		out = append(out, item)
	}
	return out, nil
}

// supplierRequest resolves a request for supplier-side writes: absent rows
// read NotFound, rows assigned to someone else read Forbidden.
func (s *contributionService) supplierRequest(ctx context.Context, tx *gorm.DB, actor ctxutil.Actor, requestID uuid.UUID) (*types.DataContributionRequest, error) {
	req, err := s.requests.GetByID(ctx, tx, requestID)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, apierr.NotFound("request not found")
	}
	if req.SupplierTenantID != actor.ActingTenantID {
		return nil, apierr.Forbidden("only the assigned supplier can modify this request")
	}
	return req, nil
}

// brandRequest resolves a request for brand-side writes. Non-owners read
// absent, same as any other cross-tenant probe.
func (s *contributionService) brandRequest(ctx context.Context, tx *gorm.DB, actor ctxutil.Actor, requestID uuid.UUID) (*types.DataContributionRequest, error) {
	req, err := s.requests.GetByID(ctx, tx, requestID)
	if err != nil {
		return nil, err
	}
	if req == nil || req.BrandTenantID != actor.ActingTenantID {
		return nil, apierr.NotFound("request not found")
	}
	return req, nil
}

func (s *contributionService) addComment(ctx context.Context, tx *gorm.DB, actor ctxutil.Actor, requestID uuid.UUID, body string, rejection bool) error {
	_, err := s.comments.Create(ctx, tx, []*types.CollaborationComment{{
		RequestID:         requestID,
		AuthorUserID:      actor.UserID,
		AuthorTenantID:    actor.ActingTenantID,
		Body:              body,
		IsRejectionReason: rejection,
	}})
	return err
}

func (s *contributionService) addOptionalNote(ctx context.Context, tx *gorm.DB, actor ctxutil.Actor, requestID uuid.UUID, note string) error {
	note = strings.TrimSpace(note)
	if note == "" {
		return nil
	}
	return s.addComment(ctx, tx, actor, requestID, note, false)
}

// afterTransition schedules the shared post-commit effects of a workflow
// move: the transition metric and the audit row.
func (s *contributionService) afterTransition(actor ctxutil.Actor, req *types.DataContributionRequest, transition string, action types.AuditAction, changes map[string]any) {
	if req == nil {
		return
	}
	s.metrics.RecordWorkflowTransition(transition)

	s.async.Go("audit.request", func(ctx context.Context) error {
		return s.audit.Record(ctx, AuditEntry{
			TenantID:    actor.ActingTenantID,
			ActorUserID: actor.UserID,
			EntityType:  EntityContributionRequest,
			EntityID:    req.ID,
			Action:      action,
			Changes:     changes,
			IPAddress:   actor.IPAddress,
		})
	})
}

// mirrorRequestChain re-projects the draft's BOM into the graph after a
// save or review clone.
func (s *contributionService) mirrorRequestChain(product *types.Product, version *types.ProductVersion) {
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
