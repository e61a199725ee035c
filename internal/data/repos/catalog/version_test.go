package catalog

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/tracebind/passport-backend/internal/data/repos/testutil"
	types "github.com/tracebind/passport-backend/internal/domain"
)

func TestVersionRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	repo := NewVersionRepo(db, testutil.Logger(t))

	brand := testutil.SeedTenant(t, ctx, tx, "Loomline", types.TenantTypeBrand)
	product := testutil.SeedProduct(t, ctx, tx, brand.ID, "SKU-100")

	v1 := testutil.SeedVersion(t, ctx, tx, product.ID, brand.ID, 1, 1, types.VersionApproved)
	v2 := testutil.SeedVersion(t, ctx, tx, product.ID, brand.ID, 1, 2, types.VersionWorkingDraft)

	latest, err := repo.GetLatestByProductID(ctx, tx, product.ID)
	if err != nil {
		t.Fatalf("GetLatestByProductID: %v", err)
	}
	if latest == nil || latest.ID != v2.ID {
		t.Fatalf("GetLatestByProductID: expected rev 2, got %+v", latest)
	}

	next, err := repo.NextSequence(ctx, tx, product.ID)
	if err != nil || next != 2 {
		t.Fatalf("NextSequence: err=%v next=%d", err, next)
	}

	listed, err := repo.ListByProductID(ctx, tx, product.ID)
	if err != nil || len(listed) != 2 {
		t.Fatalf("ListByProductID: err=%v len=%d", err, len(listed))
	}
	if listed[0].ID != v2.ID || listed[1].ID != v1.ID {
		t.Fatalf("ListByProductID: wrong order")
	}

	materialID := uuid.New()
	definitionID := uuid.New()
	first := []*types.VersionMaterial{
		{MaterialID: &materialID, SourceDefinitionID: &definitionID, Percentage: 60, OriginCountry: "PT"},
		{UnlistedMaterialName: "mystery blend", Percentage: 40, OriginCountry: "IN"},
	}
	if err := repo.ReplaceMaterials(ctx, tx, v2.ID, first); err != nil {
		t.Fatalf("ReplaceMaterials: %v", err)
	}

	// Replace is a full swap, not a merge.
	second := []*types.VersionMaterial{
		{MaterialID: &materialID, SourceDefinitionID: &definitionID, Percentage: 100, OriginCountry: "PT"},
	}
	if err := repo.ReplaceMaterials(ctx, tx, v2.ID, second); err != nil {
		t.Fatalf("ReplaceMaterials swap: %v", err)
	}
	mats, err := repo.ListMaterials(ctx, tx, v2.ID)
	if err != nil {
		t.Fatalf("ListMaterials: %v", err)
	}
	if len(mats) != 1 || mats[0].Percentage != 100 {
		t.Fatalf("ListMaterials: expected single replaced row, got %+v", mats)
	}

	certDefID := uuid.New()
	certs := []*types.VersionCertification{
		{CertificateDefinitionID: &certDefID, DocumentURL: "https://files.example/cert.pdf", ContentType: "application/pdf"},
	}
	if err := repo.ReplaceCertifications(ctx, tx, v2.ID, certs); err != nil {
		t.Fatalf("ReplaceCertifications: %v", err)
	}
	sups := []*types.VersionSupplier{
		{UnlistedSupplierName: "Ghost Mill", UnlistedSupplierCountry: "BD", Role: "CMT"},
	}
	if err := repo.ReplaceSuppliers(ctx, tx, v2.ID, sups); err != nil {
		t.Fatalf("ReplaceSuppliers: %v", err)
	}

	snap, err := repo.GetSnapshot(ctx, tx, v2.ID)
	if err != nil {
		t.Fatalf("GetSnapshot: %v", err)
	}
	if snap == nil || len(snap.Materials) != 1 || len(snap.Suppliers) != 1 || len(snap.Certifications) != 1 {
		t.Fatalf("GetSnapshot: incomplete snapshot %+v", snap)
	}

	clone := types.CloneVersion(*snap)
	if err := repo.InsertSnapshot(ctx, tx, &clone); err != nil {
		t.Fatalf("InsertSnapshot: %v", err)
	}
	cloned, err := repo.GetSnapshot(ctx, tx, clone.Version.ID)
	if err != nil {
		t.Fatalf("GetSnapshot clone: %v", err)
	}
	if cloned.Version.Revision != v2.Revision+1 || cloned.Version.Status != types.VersionWorkingDraft {
		t.Fatalf("clone: wrong revision/status %+v", cloned.Version)
	}
	if cloned.Version.ParentVersionID == nil || *cloned.Version.ParentVersionID != v2.ID {
		t.Fatalf("clone: parent pointer not set")
	}
	if len(cloned.Materials) != 1 || cloned.Materials[0].SourceDefinitionID == nil || *cloned.Materials[0].SourceDefinitionID != definitionID {
		t.Fatalf("clone: material lineage lost")
	}

	// Line removal is scoped to its version.
	if n, err := repo.RemoveMaterial(ctx, tx, v1.ID, mats[0].ID); err != nil || n != 0 {
		t.Fatalf("RemoveMaterial cross-version: err=%v n=%d", err, n)
	}
	if n, err := repo.RemoveMaterial(ctx, tx, v2.ID, mats[0].ID); err != nil || n != 1 {
		t.Fatalf("RemoveMaterial: err=%v n=%d", err, n)
	}

	// Clone still references the library rows.
	if n, err := repo.CountMaterialReferences(ctx, tx, materialID); err != nil || n != 1 {
		t.Fatalf("CountMaterialReferences: err=%v n=%d", err, n)
	}
	if n, err := repo.CountMaterialDefinitionReferences(ctx, tx, definitionID); err != nil || n != 1 {
		t.Fatalf("CountMaterialDefinitionReferences: err=%v n=%d", err, n)
	}
	if n, err := repo.CountCertificationReferences(ctx, tx, uuid.New()); err != nil || n != 0 {
		t.Fatalf("CountCertificationReferences: err=%v n=%d", err, n)
	}

	linkIDs, err := repo.ListCertificateDefinitionLinkIDs(ctx, tx, certDefID)
	if err != nil {
		t.Fatalf("ListCertificateDefinitionLinkIDs: %v", err)
	}
	if len(linkIDs) != 2 {
		t.Fatalf("ListCertificateDefinitionLinkIDs: expected original + clone, got %d", len(linkIDs))
	}
	unlinked, err := repo.NullifyCertificateDefinitionLinks(ctx, tx, certDefID)
	if err != nil || unlinked != 2 {
		t.Fatalf("NullifyCertificateDefinitionLinks: err=%v n=%d", err, unlinked)
	}
	if after, err := repo.ListCertificateDefinitionLinkIDs(ctx, tx, certDefID); err != nil || len(after) != 0 {
		t.Fatalf("links after nullify: err=%v len=%d", err, len(after))
	}
}
