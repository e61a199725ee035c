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

const (
	ownerSystemLibrary = "System Global Library"
	ownerCustomLibrary = "Your Custom Library"
)

type MaterialInput struct {
	Name         string             `json:"name"`
	Code         string             `json:"code"`
	Description  string             `json:"description"`
	MaterialType types.MaterialType `json:"material_type"`
}

// Patches are merge-patches: nil keeps the stored value. Codes are immutable
// after creation; a new code is a new library entry.
type MaterialPatch struct {
	Name         *string             `json:"name"`
	Description  *string             `json:"description"`
	MaterialType *types.MaterialType `json:"material_type"`
}

type CertificationInput struct {
	Name   string `json:"name"`
	Code   string `json:"code"`
	Issuer string `json:"issuer"`
}

type CertificationPatch struct {
	Name   *string `json:"name"`
	Issuer *string `json:"issuer"`
}

type CertificateDefinitionInput struct {
	Name            string                    `json:"name"`
	Code            string                    `json:"code"`
	IssuerAuthority string                    `json:"issuer_authority"`
	Category        types.CertificateCategory `json:"category"`
	Description     string                    `json:"description"`
}

type CertificateDefinitionPatch struct {
	Name            *string                    `json:"name"`
	IssuerAuthority *string                    `json:"issuer_authority"`
	Category        *types.CertificateCategory `json:"category"`
	Description     *string                    `json:"description"`
}

type MaterialDefinitionInput struct {
	Name                   string             `json:"name"`
	Code                   string             `json:"code"`
	Description            string             `json:"description"`
	MaterialType           types.MaterialType `json:"material_type"`
	DefaultCarbonFootprint *float64           `json:"default_carbon_footprint"`
}

type MaterialDefinitionPatch struct {
	Name                   *string             `json:"name"`
	Description            *string             `json:"description"`
	MaterialType           *types.MaterialType `json:"material_type"`
	DefaultCarbonFootprint *float64            `json:"default_carbon_footprint"`
}

// LibraryService is the ownership resolver shared by the four reference
// libraries. Every read answers against the visibility set (System rows plus
// the acting tenant's own); every write requires exact ownership, and System
// rows are immutable through this surface.
type LibraryService interface {
	ListMaterials(ctx context.Context, actor ctxutil.Actor, search string) ([]*types.Material, error)
	CreateMaterial(ctx context.Context, actor ctxutil.Actor, in MaterialInput) (*types.Material, error)
	UpdateMaterial(ctx context.Context, actor ctxutil.Actor, id uuid.UUID, in MaterialPatch) (*types.Material, error)
	DeleteMaterial(ctx context.Context, actor ctxutil.Actor, id uuid.UUID) error

	ListCertifications(ctx context.Context, actor ctxutil.Actor, search string) ([]*types.Certification, error)
	CreateCertification(ctx context.Context, actor ctxutil.Actor, in CertificationInput) (*types.Certification, error)
	UpdateCertification(ctx context.Context, actor ctxutil.Actor, id uuid.UUID, in CertificationPatch) (*types.Certification, error)
	DeleteCertification(ctx context.Context, actor ctxutil.Actor, id uuid.UUID) error

	ListCertificateDefinitions(ctx context.Context, actor ctxutil.Actor, search string) ([]*types.CertificateDefinition, error)
	CreateCertificateDefinition(ctx context.Context, actor ctxutil.Actor, in CertificateDefinitionInput) (*types.CertificateDefinition, error)
	UpdateCertificateDefinition(ctx context.Context, actor ctxutil.Actor, id uuid.UUID, in CertificateDefinitionPatch) (*types.CertificateDefinition, error)
	DeleteCertificateDefinition(ctx context.Context, actor ctxutil.Actor, id uuid.UUID) error

	ListMaterialDefinitions(ctx context.Context, actor ctxutil.Actor, search string) ([]*types.MaterialDefinition, error)
	CreateMaterialDefinition(ctx context.Context, actor ctxutil.Actor, in MaterialDefinitionInput) (*types.MaterialDefinition, error)
	UpdateMaterialDefinition(ctx context.Context, actor ctxutil.Actor, id uuid.UUID, in MaterialDefinitionPatch) (*types.MaterialDefinition, error)
	DeleteMaterialDefinition(ctx context.Context, actor ctxutil.Actor, id uuid.UUID) error
}

type libraryService struct {
	db  *gorm.DB
	log *logger.Logger

	materials    repos.MaterialRepo
	certs        repos.CertificationRepo
	certDefs     repos.CertificateDefinitionRepo
	materialDefs repos.MaterialDefinitionRepo
	versions     repos.VersionRepo

	audit AuditService
	async *Dispatcher
}

func NewLibraryService(
	db *gorm.DB,
	baseLog *logger.Logger,
	materials repos.MaterialRepo,
	certs repos.CertificationRepo,
	certDefs repos.CertificateDefinitionRepo,
	materialDefs repos.MaterialDefinitionRepo,
	versions repos.VersionRepo,
	audit AuditService,
	async *Dispatcher,
) LibraryService {
	return &libraryService{
		db:           db,
		log:          baseLog.With("service", "LibraryService"),
		materials:    materials,
		certs:        certs,
		certDefs:     certDefs,
		materialDefs: materialDefs,
		versions:     versions,
		audit:        audit,
		async:        async,
	}
}

// libraryConflict builds the Conflict error naming the colliding field and
// which library owns the existing row.
func libraryConflict(entity, field, value string, systemOwned bool) error {
	owner := ownerCustomLibrary
	if systemOwned {
		owner = ownerSystemLibrary
	}
	return apierr.Conflict("the %s %s %q already exists in %s", entity, field, value, owner)
}

func collidingField(existingName, existingCode, name string) (field, value string) {
	if strings.EqualFold(existingName, name) {
		return "name", existingName
	}
	return "code", existingCode
}

func (s *libraryService) recordLibraryAudit(actor ctxutil.Actor, entityType string, entityID uuid.UUID, action types.AuditAction, changes map[string]any) {
	s.async.Go("audit.library", func(ctx context.Context) error {
		return s.audit.Record(ctx, AuditEntry{
			TenantID:    actor.ActingTenantID,
			ActorUserID: actor.UserID,
			EntityType:  entityType,
			EntityID:    entityID,
			Action:      action,
			Changes:     changes,
			IPAddress:   actor.IPAddress,
		})
	})
}

// ---- Materials ----

func (s *libraryService) ListMaterials(ctx context.Context, actor ctxutil.Actor, search string) ([]*types.Material, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("library service not configured")
	}
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	return s.materials.ListVisible(ctx, nil, actor.ActingTenantID, search)
}

func (s *libraryService) CreateMaterial(ctx context.Context, actor ctxutil.Actor, in MaterialInput) (*types.Material, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("library service not configured")
	}
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(in.Name)
	code := strings.TrimSpace(in.Code)
	if name == "" || code == "" {
		return nil, apierr.Validation("material name and code are required")
	}
	materialType := in.MaterialType
	if materialType == "" {
		materialType = types.MaterialOther
	}

	var row *types.Material
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.materials.FindVisibleByNameOrCode(ctx, tx, actor.ActingTenantID, name, code, uuid.Nil)
		if err != nil {
			return err
		}
		if existing != nil {
			field, value := collidingField(existing.Name, existing.Code, name)
			return libraryConflict("material", field, value, existing.IsSystem())
		}

		tenantID := actor.ActingTenantID
		row = &types.Material{
			TenantID:     &tenantID,
			Name:         name,
			Code:         code,
			Description:  strings.TrimSpace(in.Description),
			MaterialType: materialType,
		}
		_, err = s.materials.Create(ctx, tx, []*types.Material{row})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.recordLibraryAudit(actor, EntityMaterial, row.ID, types.AuditCreate, map[string]any{"name": row.Name, "code": row.Code})
	return row, nil
}

// ownedMaterial resolves a material for mutation. System rows are visible
// but immutable (Forbidden); other tenants' private rows read as absent.
func (s *libraryService) ownedMaterial(ctx context.Context, tx *gorm.DB, actor ctxutil.Actor, id uuid.UUID) (*types.Material, error) {
	row, err := s.materials.GetByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, apierr.NotFound("material not found")
	}
	if row.IsSystem() {
		return nil, apierr.Forbidden("system library entries cannot be modified")
	}
	if *row.TenantID != actor.ActingTenantID {
		return nil, apierr.NotFound("material not found")
	}
	return row, nil
}

func (s *libraryService) UpdateMaterial(ctx context.Context, actor ctxutil.Actor, id uuid.UUID, in MaterialPatch) (*types.Material, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("library service not configured")
	}
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	var (
		row     *types.Material
		changes = map[string]any{}
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		row, err = s.ownedMaterial(ctx, tx, actor, id)
		if err != nil {
			return err
		}

		if in.Name != nil {
			name := strings.TrimSpace(*in.Name)
			if name == "" {
				return apierr.Validation("material name cannot be empty")
			}
			if !strings.EqualFold(name, row.Name) {
				existing, err := s.materials.FindVisibleByNameOrCode(ctx, tx, actor.ActingTenantID, name, "", row.ID)
				if err != nil {
					return err
				}
				if existing != nil {
					return libraryConflict("material", "name", name, existing.IsSystem())
				}
			}
			if name != row.Name {
				changes["name"] = map[string]any{"old": row.Name, "new": name}
				row.Name = name
			}
		}
		if in.Description != nil && *in.Description != row.Description {
			changes["description"] = map[string]any{"old": row.Description, "new": *in.Description}
			row.Description = *in.Description
		}
		if in.MaterialType != nil && *in.MaterialType != row.MaterialType {
			changes["material_type"] = map[string]any{"old": row.MaterialType, "new": *in.MaterialType}
			row.MaterialType = *in.MaterialType
		}

		if len(changes) == 0 {
			return nil
		}
		return s.materials.Save(ctx, tx, row)
	})
	if err != nil {
		return nil, err
	}

	if len(changes) > 0 {
		s.recordLibraryAudit(actor, EntityMaterial, row.ID, types.AuditUpdate, changes)
	}
	return row, nil
}

func (s *libraryService) DeleteMaterial(ctx context.Context, actor ctxutil.Actor, id uuid.UUID) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("library service not configured")
	}
	if err := requireActor(actor); err != nil {
		return err
	}

	var name string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, err := s.ownedMaterial(ctx, tx, actor, id)
		if err != nil {
			return err
		}
		name = row.Name

		refs, err := s.versions.CountMaterialReferences(ctx, tx, row.ID)
		if err != nil {
			return err
		}
		if refs > 0 {
			return apierr.Conflict("material %q is used by %d product version line(s)", row.Name, refs)
		}
		return s.materials.Delete(ctx, tx, row.ID)
	})
	if err != nil {
		return err
	}

	s.recordLibraryAudit(actor, EntityMaterial, id, types.AuditDelete, map[string]any{"name": name})
	return nil
}

// ---- Certifications ----

func (s *libraryService) ListCertifications(ctx context.Context, actor ctxutil.Actor, search string) ([]*types.Certification, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("library service not configured")
	}
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	return s.certs.ListVisible(ctx, nil, actor.ActingTenantID, search)
}

func (s *libraryService) CreateCertification(ctx context.Context, actor ctxutil.Actor, in CertificationInput) (*types.Certification, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("library service not configured")
	}
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(in.Name)
	code := strings.TrimSpace(in.Code)
	if name == "" || code == "" {
		return nil, apierr.Validation("certification name and code are required")
	}

	var row *types.Certification
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.certs.FindVisibleByNameOrCode(ctx, tx, actor.ActingTenantID, name, code, uuid.Nil)
		if err != nil {
			return err
		}
		if existing != nil {
			field, value := collidingField(existing.Name, existing.Code, name)
			return libraryConflict("certification", field, value, existing.IsSystem())
		}

		tenantID := actor.ActingTenantID
		row = &types.Certification{
			TenantID: &tenantID,
			Name:     name,
			Code:     code,
			Issuer:   strings.TrimSpace(in.Issuer),
		}
		_, err = s.certs.Create(ctx, tx, []*types.Certification{row})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.recordLibraryAudit(actor, EntityCertification, row.ID, types.AuditCreate, map[string]any{"name": row.Name, "code": row.Code})
	return row, nil
}

func (s *libraryService) ownedCertification(ctx context.Context, tx *gorm.DB, actor ctxutil.Actor, id uuid.UUID) (*types.Certification, error) {
	row, err := s.certs.GetByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, apierr.NotFound("certification not found")
	}
	if row.IsSystem() {
		return nil, apierr.Forbidden("system library entries cannot be modified")
	}
	if *row.TenantID != actor.ActingTenantID {
		return nil, apierr.NotFound("certification not found")
	}
	return row, nil
}

func (s *libraryService) UpdateCertification(ctx context.Context, actor ctxutil.Actor, id uuid.UUID, in CertificationPatch) (*types.Certification, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("library service not configured")
	}
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	var (
		row     *types.Certification
		changes = map[string]any{}
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		row, err = s.ownedCertification(ctx, tx, actor, id)
		if err != nil {
			return err
		}

		if in.Name != nil {
			name := strings.TrimSpace(*in.Name)
			if name == "" {
				return apierr.Validation("certification name cannot be empty")
			}
			if !strings.EqualFold(name, row.Name) {
				existing, err := s.certs.FindVisibleByNameOrCode(ctx, tx, actor.ActingTenantID, name, "", row.ID)
				if err != nil {
					return err
				}
				if existing != nil {
					return libraryConflict("certification", "name", name, existing.IsSystem())
				}
			}
			if name != row.Name {
				changes["name"] = map[string]any{"old": row.Name, "new": name}
				row.Name = name
			}
		}
		if in.Issuer != nil && *in.Issuer != row.Issuer {
			changes["issuer"] = map[string]any{"old": row.Issuer, "new": *in.Issuer}
			row.Issuer = *in.Issuer
		}

		if len(changes) == 0 {
			return nil
		}
		return s.certs.Save(ctx, tx, row)
	})
	if err != nil {
		return nil, err
	}

	if len(changes) > 0 {
		s.recordLibraryAudit(actor, EntityCertification, row.ID, types.AuditUpdate, changes)
	}
	return row, nil
}

func (s *libraryService) DeleteCertification(ctx context.Context, actor ctxutil.Actor, id uuid.UUID) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("library service not configured")
	}
	if err := requireActor(actor); err != nil {
		return err
	}

	var name string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, err := s.ownedCertification(ctx, tx, actor, id)
		if err != nil {
			return err
		}
		name = row.Name

		refs, err := s.versions.CountCertificationReferences(ctx, tx, row.ID)
		if err != nil {
			return err
		}
		if refs > 0 {
			return apierr.Conflict("certification %q is used by %d product version line(s)", row.Name, refs)
		}
		return s.certs.Delete(ctx, tx, row.ID)
	})
	if err != nil {
		return err
	}

	s.recordLibraryAudit(actor, EntityCertification, id, types.AuditDelete, map[string]any{"name": name})
	return nil
}

// ---- Certificate definitions ----

func (s *libraryService) ListCertificateDefinitions(ctx context.Context, actor ctxutil.Actor, search string) ([]*types.CertificateDefinition, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("library service not configured")
	}
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	return s.certDefs.ListVisible(ctx, nil, actor.ActingTenantID, search)
}

func (s *libraryService) CreateCertificateDefinition(ctx context.Context, actor ctxutil.Actor, in CertificateDefinitionInput) (*types.CertificateDefinition, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("library service not configured")
	}
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(in.Name)
	code := strings.TrimSpace(in.Code)
	if name == "" || code == "" {
		return nil, apierr.Validation("certificate definition name and code are required")
	}
	category := in.Category
	if category == "" {
		category = types.CertCategoryOther
	}

	var row *types.CertificateDefinition
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.certDefs.FindVisibleByNameOrCode(ctx, tx, actor.ActingTenantID, name, code, uuid.Nil)
		if err != nil {
			return err
		}
		if existing != nil {
			field, value := collidingField(existing.Name, existing.Code, name)
			return libraryConflict("certificate definition", field, value, existing.IsSystem())
		}

		tenantID := actor.ActingTenantID
		row = &types.CertificateDefinition{
			TenantID:        &tenantID,
			Name:            name,
			Code:            code,
			IssuerAuthority: strings.TrimSpace(in.IssuerAuthority),
			Category:        category,
			Description:     strings.TrimSpace(in.Description),
		}
		_, err = s.certDefs.Create(ctx, tx, []*types.CertificateDefinition{row})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.recordLibraryAudit(actor, EntityCertificateDefinition, row.ID, types.AuditCreate, map[string]any{"name": row.Name, "code": row.Code})
	return row, nil
}

func (s *libraryService) ownedCertificateDefinition(ctx context.Context, tx *gorm.DB, actor ctxutil.Actor, id uuid.UUID) (*types.CertificateDefinition, error) {
	row, err := s.certDefs.GetByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, apierr.NotFound("certificate definition not found")
	}
	if row.IsSystem() {
		return nil, apierr.Forbidden("system library entries cannot be modified")
	}
	if *row.TenantID != actor.ActingTenantID {
		return nil, apierr.NotFound("certificate definition not found")
	}
	return row, nil
}

func (s *libraryService) UpdateCertificateDefinition(ctx context.Context, actor ctxutil.Actor, id uuid.UUID, in CertificateDefinitionPatch) (*types.CertificateDefinition, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("library service not configured")
	}
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	var (
		row     *types.CertificateDefinition
		changes = map[string]any{}
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		row, err = s.ownedCertificateDefinition(ctx, tx, actor, id)
		if err != nil {
			return err
		}

		if in.Name != nil {
			name := strings.TrimSpace(*in.Name)
			if name == "" {
				return apierr.Validation("certificate definition name cannot be empty")
			}
			if !strings.EqualFold(name, row.Name) {
				existing, err := s.certDefs.FindVisibleByNameOrCode(ctx, tx, actor.ActingTenantID, name, "", row.ID)
				if err != nil {
					return err
				}
				if existing != nil {
					return libraryConflict("certificate definition", "name", name, existing.IsSystem())
				}
			}
			if name != row.Name {
				changes["name"] = map[string]any{"old": row.Name, "new": name}
				row.Name = name
			}
		}
		if in.IssuerAuthority != nil && *in.IssuerAuthority != row.IssuerAuthority {
			changes["issuer_authority"] = map[string]any{"old": row.IssuerAuthority, "new": *in.IssuerAuthority}
			row.IssuerAuthority = *in.IssuerAuthority
		}
		if in.Category != nil && *in.Category != row.Category {
			changes["category"] = map[string]any{"old": row.Category, "new": *in.Category}
			row.Category = *in.Category
		}
		if in.Description != nil && *in.Description != row.Description {
			changes["description"] = map[string]any{"old": row.Description, "new": *in.Description}
			row.Description = *in.Description
		}

		if len(changes) == 0 {
			return nil
		}
		return s.certDefs.Save(ctx, tx, row)
	})
	if err != nil {
		return nil, err
	}

	if len(changes) > 0 {
		s.recordLibraryAudit(actor, EntityCertificateDefinition, row.ID, types.AuditUpdate, changes)
	}
	return row, nil
}

// DeleteCertificateDefinition unlinks before deleting: referencing version
// certification rows keep their uploaded documents but lose the library
// pointer, and the audit record names exactly which links were touched.
func (s *libraryService) DeleteCertificateDefinition(ctx context.Context, actor ctxutil.Actor, id uuid.UUID) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("library service not configured")
	}
	if err := requireActor(actor); err != nil {
		return err
	}

	var (
		name     string
		unlinked []uuid.UUID
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, err := s.ownedCertificateDefinition(ctx, tx, actor, id)
		if err != nil {
			return err
		}
		name = row.Name

		unlinked, err = s.versions.ListCertificateDefinitionLinkIDs(ctx, tx, row.ID)
		if err != nil {
			return err
		}
		if len(unlinked) > 0 {
			if _, err := s.versions.NullifyCertificateDefinitionLinks(ctx, tx, row.ID); err != nil {
				return err
			}
		}
		return s.certDefs.Delete(ctx, tx, row.ID)
	})
	if err != nil {
		return err
	}

	changes := map[string]any{"name": name}
	if len(unlinked) > 0 {
		ids := make([]string, 0, len(unlinked))
		for _, linkID := range unlinked {
			ids = append(ids, linkID.String())
		}
		changes["unlinked_version_certification_ids"] = ids
	}
	s.recordLibraryAudit(actor, EntityCertificateDefinition, id, types.AuditDelete, changes)

	if len(unlinked) > 0 {
		s.log.Info("Certificate definition deleted with unlink", "definition_id", id, "unlinked", len(unlinked))
	}
	return nil
}

// ---- Material definitions ----

func (s *libraryService) ListMaterialDefinitions(ctx context.Context, actor ctxutil.Actor, search string) ([]*types.MaterialDefinition, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("library service not configured")
	}
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	return s.materialDefs.ListVisible(ctx, nil, actor.ActingTenantID, search)
}

func (s *libraryService) CreateMaterialDefinition(ctx context.Context, actor ctxutil.Actor, in MaterialDefinitionInput) (*types.MaterialDefinition, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("library service not configured")
	}
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(in.Name)
	code := strings.TrimSpace(in.Code)
	if name == "" || code == "" {
		return nil, apierr.Validation("material definition name and code are required")
	}
	materialType := in.MaterialType
	if materialType == "" {
		materialType = types.MaterialOther
	}

	var row *types.MaterialDefinition
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.materialDefs.FindVisibleByNameOrCode(ctx, tx, actor.ActingTenantID, name, code, uuid.Nil)
		if err != nil {
			return err
		}
		if existing != nil {
			field, value := collidingField(existing.Name, existing.Code, name)
			return libraryConflict("material definition", field, value, existing.IsSystem())
		}

		tenantID := actor.ActingTenantID
		row = &types.MaterialDefinition{
			TenantID:               &tenantID,
			Name:                   name,
			Code:                   code,
			Description:            strings.TrimSpace(in.Description),
			MaterialType:           materialType,
			DefaultCarbonFootprint: in.DefaultCarbonFootprint,
		}
		_, err = s.materialDefs.Create(ctx, tx, []*types.MaterialDefinition{row})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.recordLibraryAudit(actor, EntityMaterialDefinition, row.ID, types.AuditCreate, map[string]any{"name": row.Name, "code": row.Code})
	return row, nil
}

func (s *libraryService) ownedMaterialDefinition(ctx context.Context, tx *gorm.DB, actor ctxutil.Actor, id uuid.UUID) (*types.MaterialDefinition, error) {
	row, err := s.materialDefs.GetByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, apierr.NotFound("material definition not found")
	}
	if row.IsSystem() {
		return nil, apierr.Forbidden("system library entries cannot be modified")
	}
	if *row.TenantID != actor.ActingTenantID {
		return nil, apierr.NotFound("material definition not found")
	}
	return row, nil
}

func (s *libraryService) UpdateMaterialDefinition(ctx context.Context, actor ctxutil.Actor, id uuid.UUID, in MaterialDefinitionPatch) (*types.MaterialDefinition, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("library service not configured")
	}
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	var (
		row     *types.MaterialDefinition
		changes = map[string]any{}
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		row, err = s.ownedMaterialDefinition(ctx, tx, actor, id)
		if err != nil {
			return err
		}

		if in.Name != nil {
			name := strings.TrimSpace(*in.Name)
			if name == "" {
				return apierr.Validation("material definition name cannot be empty")
			}
			if !strings.EqualFold(name, row.Name) {
				existing, err := s.materialDefs.FindVisibleByNameOrCode(ctx, tx, actor.ActingTenantID, name, "", row.ID)
				if err != nil {
					return err
				}
				if existing != nil {
					return libraryConflict("material definition", "name", name, existing.IsSystem())
				}
			}
			if name != row.Name {
				changes["name"] = map[string]any{"old": row.Name, "new": name}
				row.Name = name
			}
		}
		if in.Description != nil && *in.Description != row.Description {
			changes["description"] = map[string]any{"old": row.Description, "new": *in.Description}
			row.Description = *in.Description
		}
		if in.MaterialType != nil && *in.MaterialType != row.MaterialType {
			changes["material_type"] = map[string]any{"old": row.MaterialType, "new": *in.MaterialType}
			row.MaterialType = *in.MaterialType
		}
		if in.DefaultCarbonFootprint != nil {
			changes["default_carbon_footprint"] = map[string]any{"old": row.DefaultCarbonFootprint, "new": *in.DefaultCarbonFootprint}
			row.DefaultCarbonFootprint = in.DefaultCarbonFootprint
		}

		if len(changes) == 0 {
			return nil
		}
		return s.materialDefs.Save(ctx, tx, row)
	})
	if err != nil {
		return nil, err
	}

	if len(changes) > 0 {
		s.recordLibraryAudit(actor, EntityMaterialDefinition, row.ID, types.AuditUpdate, changes)
	}
	return row, nil
}

func (s *libraryService) DeleteMaterialDefinition(ctx context.Context, actor ctxutil.Actor, id uuid.UUID) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("library service not configured")
	}
	if err := requireActor(actor); err != nil {
		return err
	}

	var name string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, err := s.ownedMaterialDefinition(ctx, tx, actor, id)
		if err != nil {
			return err
		}
		name = row.Name

		refs, err := s.versions.CountMaterialDefinitionReferences(ctx, tx, row.ID)
		if err != nil {
			return err
		}
		if refs > 0 {
			return apierr.Conflict("material definition %q is used by %d product version line(s)", row.Name, refs)
		}
		return s.materialDefs.Delete(ctx, tx, row.ID)
	})
	if err != nil {
		return err
	}

	s.recordLibraryAudit(actor, EntityMaterialDefinition, id, types.AuditDelete, map[string]any{"name": name})
	return nil
}
