package services

import (
	"context"
	"strings"
	"testing"

	"github.com/tracebind/passport-backend/internal/data/repos/testutil"
	types "github.com/tracebind/passport-backend/internal/domain"
	"github.com/tracebind/passport-backend/internal/platform/apierr"
)

func TestSystemLibraryRowsAreImmutable(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	svc := h.libraryService()
	_, actor := h.seedActor(t, ctx, "Brand", types.TenantTypeBrand)

	system := testutil.SeedMaterial(t, ctx, h.db, nil, "Organic Cotton", "COT-ORG")

	_, err := svc.UpdateMaterial(ctx, actor, system.ID, MaterialPatch{Name: ptr("Hijacked")})
	wantCode(t, err, apierr.CodeForbidden)

	err = svc.DeleteMaterial(ctx, actor, system.ID)
	wantCode(t, err, apierr.CodeForbidden)

	// But System rows are readable by every tenant.
	rows, err := svc.ListMaterials(ctx, actor, "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	found := false
	for _, r := range rows {
		if r.ID == system.ID {
			found = true
		}
	}
	if !found {
		t.Fatalf("system row missing from the visibility set")
	}
}

func TestCreateMaterialConflictNamesOwningLibrary(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	svc := h.libraryService()
	_, actor := h.seedActor(t, ctx, "Brand", types.TenantTypeBrand)

	testutil.SeedMaterial(t, ctx, h.db, nil, "Organic Cotton", "COT-ORG")

	t.Run("system collision", func(t *testing.T) {
		_, err := svc.CreateMaterial(ctx, actor, MaterialInput{Name: "Organic Cotton", Code: "NEW-1"})
		wantCode(t, err, apierr.CodeConflict)
		if !strings.Contains(err.Error(), "System Global Library") {
			t.Fatalf("conflict should name the system library, got %q", err.Error())
		}
	})

	t.Run("own collision", func(t *testing.T) {
		if _, err := svc.CreateMaterial(ctx, actor, MaterialInput{Name: "House Blend", Code: "HB-1"}); err != nil {
			t.Fatalf("create: %v", err)
		}
		_, err := svc.CreateMaterial(ctx, actor, MaterialInput{Name: "Other Name", Code: "HB-1"})
		wantCode(t, err, apierr.CodeConflict)
		if !strings.Contains(err.Error(), "Your Custom Library") {
			t.Fatalf("conflict should name the custom library, got %q", err.Error())
		}
	})

	t.Run("another tenant's private row does not collide", func(t *testing.T) {
		_, other := h.seedActor(t, ctx, "Other Brand", types.TenantTypeBrand)
		if _, err := svc.CreateMaterial(ctx, other, MaterialInput{Name: "House Blend", Code: "HB-1"}); err != nil {
			t.Fatalf("create for other tenant: %v", err)
		}
	})
}

func TestTenantRowsInvisibleAcrossTenants(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	svc := h.libraryService()
	_, owner := h.seedActor(t, ctx, "Brand", types.TenantTypeBrand)
	_, intruder := h.seedActor(t, ctx, "Other Brand", types.TenantTypeBrand)

	row, err := svc.CreateMaterial(ctx, owner, MaterialInput{Name: "House Blend", Code: "HB-1"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Foreign private rows read as absent, not forbidden.
	_, err = svc.UpdateMaterial(ctx, intruder, row.ID, MaterialPatch{Name: ptr("Taken")})
	wantCode(t, err, apierr.CodeNotFound)
	err = svc.DeleteMaterial(ctx, intruder, row.ID)
	wantCode(t, err, apierr.CodeNotFound)

	rows, err := svc.ListMaterials(ctx, intruder, "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for _, r := range rows {
		if r.ID == row.ID {
			t.Fatalf("private row leaked into another tenant's visibility set")
		}
	}
}

func TestUpdateMaterialMergePatch(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	svc := h.libraryService()
	_, actor := h.seedActor(t, ctx, "Brand", types.TenantTypeBrand)

	row, err := svc.CreateMaterial(ctx, actor, MaterialInput{
		Name:         "House Blend",
		Code:         "HB-1",
		Description:  "initial",
		MaterialType: types.MaterialBlend,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	updated, err := svc.UpdateMaterial(ctx, actor, row.ID, MaterialPatch{Description: ptr("updated")})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Description != "updated" {
		t.Fatalf("description = %q", updated.Description)
	}
	// Nil fields keep their stored values; the code never changes.
	if updated.Name != "House Blend" || updated.Code != "HB-1" || updated.MaterialType != types.MaterialBlend {
		t.Fatalf("merge patch touched untargeted fields: %+v", updated)
	}

	t.Run("rename into an existing name conflicts", func(t *testing.T) {
		testutil.SeedMaterial(t, ctx, h.db, nil, "Organic Cotton", "COT-ORG")
		_, err := svc.UpdateMaterial(ctx, actor, row.ID, MaterialPatch{Name: ptr("Organic Cotton")})
		wantCode(t, err, apierr.CodeConflict)
	})
}

func TestDeleteMaterialInUseConflicts(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	svc := h.libraryService()
	brandTenant, actor := h.seedActor(t, ctx, "Brand", types.TenantTypeBrand)

	row, err := svc.CreateMaterial(ctx, actor, MaterialInput{Name: "House Blend", Code: "HB-1"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	product := testutil.SeedProduct(t, ctx, h.db, brandTenant.ID, "SKU-LIB")
	version := testutil.SeedVersion(t, ctx, h.db, product.ID, brandTenant.ID, 1, 1, types.VersionWorkingDraft)
	line := &types.VersionMaterial{VersionID: version.ID, MaterialID: &row.ID, Percentage: 100}
	if err := h.db.WithContext(ctx).Create(line).Error; err != nil {
		t.Fatalf("seed line: %v", err)
	}

	err = svc.DeleteMaterial(ctx, actor, row.ID)
	wantCode(t, err, apierr.CodeConflict)

	// Unreferenced rows delete cleanly.
	if err := h.db.WithContext(ctx).Delete(line).Error; err != nil {
		t.Fatalf("remove line: %v", err)
	}
	if err := svc.DeleteMaterial(ctx, actor, row.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
}

func TestDeleteCertificateDefinitionUnlinksReferences(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	svc := h.libraryService()
	brandTenant, actor := h.seedActor(t, ctx, "Brand", types.TenantTypeBrand)

	def, err := svc.CreateCertificateDefinition(ctx, actor, CertificateDefinitionInput{
		Name:     "GOTS Scope Certificate",
		Code:     "GOTS-SC",
		Category: types.CertCategoryEnvironmental,
	})
	if err != nil {
		t.Fatalf("create definition: %v", err)
	}

	product := testutil.SeedProduct(t, ctx, h.db, brandTenant.ID, "SKU-CERT")
	version := testutil.SeedVersion(t, ctx, h.db, product.ID, brandTenant.ID, 1, 1, types.VersionWorkingDraft)
	link := &types.VersionCertification{
		VersionID:               version.ID,
		CertificateDefinitionID: &def.ID,
		DocumentURL:             "https://files.test/cert.pdf",
	}
	if err := h.db.WithContext(ctx).Create(link).Error; err != nil {
		t.Fatalf("seed link: %v", err)
	}

	// Unlike material deletes, definition deletes unlink instead of refusing.
	if err := svc.DeleteCertificateDefinition(ctx, actor, def.ID); err != nil {
		t.Fatalf("delete definition: %v", err)
	}

	var reloaded types.VersionCertification
	if err := h.db.WithContext(ctx).First(&reloaded, "id = ?", link.ID).Error; err != nil {
		t.Fatalf("reload link: %v", err)
	}
	if reloaded.CertificateDefinitionID != nil {
		t.Fatalf("link still points at the deleted definition")
	}
	if reloaded.DocumentURL != "https://files.test/cert.pdf" {
		t.Fatalf("unlink must keep the uploaded document")
	}
}

func TestCertificationLibraryOwnership(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	svc := h.libraryService()
	_, actor := h.seedActor(t, ctx, "Brand", types.TenantTypeBrand)

	row, err := svc.CreateCertification(ctx, actor, CertificationInput{Name: "Mill Cert", Code: "MC-1", Issuer: "Internal"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	updated, err := svc.UpdateCertification(ctx, actor, row.ID, CertificationPatch{Issuer: ptr("External")})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Issuer != "External" || updated.Name != "Mill Cert" {
		t.Fatalf("patch mishandled: %+v", updated)
	}
	if err := svc.DeleteCertification(ctx, actor, row.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	_, err = svc.UpdateCertification(ctx, actor, row.ID, CertificationPatch{Issuer: ptr("x")})
	wantCode(t, err, apierr.CodeNotFound)
}
