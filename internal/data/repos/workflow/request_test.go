package workflow

import (
	"context"
	"testing"
	"time"

	"github.com/tracebind/passport-backend/internal/data/repos/testutil"
	types "github.com/tracebind/passport-backend/internal/domain"
)

func TestRequestRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	repo := NewRequestRepo(db, testutil.Logger(t))

	brand := testutil.SeedTenant(t, ctx, tx, "Nordwind", types.TenantTypeBrand)
	supplier := testutil.SeedTenant(t, ctx, tx, "Seam Supply", types.TenantTypeSupplier)
	conn := testutil.SeedConnection(t, ctx, tx, brand.ID, "hello@seam.example", types.ConnectionActive)
	profile := testutil.SeedProfile(t, ctx, tx, brand.ID, conn.ID, "Seam Supply")
	product := testutil.SeedProduct(t, ctx, tx, brand.ID, "SKU-REQ-1")
	version := testutil.SeedVersion(t, ctx, tx, product.ID, brand.ID, 1, 1, types.VersionWorkingDraft)

	req := testutil.SeedRequest(t, ctx, tx, brand.ID, supplier.ID, profile.ID, product.ID, version.ID, types.RequestSent)

	got, err := repo.GetByID(ctx, tx, req.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got == nil || got.Product == nil || got.SupplierProfile == nil {
		t.Fatalf("GetByID: relations not preloaded: %+v", got)
	}

	open, err := repo.FindOpenByProductAndProfile(ctx, tx, product.ID, profile.ID)
	if err != nil {
		t.Fatalf("FindOpenByProductAndProfile: %v", err)
	}
	if open == nil || open.ID != req.ID {
		t.Fatalf("FindOpenByProductAndProfile: expected open request, got %+v", open)
	}

	// A terminal request stops blocking the pair.
	req.Status = types.RequestCancelled
	if err := repo.Save(ctx, tx, req); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if open, err := repo.FindOpenByProductAndProfile(ctx, tx, product.ID, profile.ID); err != nil || open != nil {
		t.Fatalf("FindOpenByProductAndProfile after cancel: err=%v row=%+v", err, open)
	}

	soon := time.Now().UTC().Add(24 * time.Hour)
	overdueVersion := testutil.SeedVersion(t, ctx, tx, product.ID, brand.ID, 2, 1, types.VersionWorkingDraft)
	overdue := testutil.SeedRequest(t, ctx, tx, brand.ID, supplier.ID, profile.ID, product.ID, overdueVersion.ID, types.RequestInProgress)
	overdue.DueDate = testutil.PtrTime(time.Now().UTC().Add(-1 * time.Hour))
	if err := repo.Save(ctx, tx, overdue); err != nil {
		t.Fatalf("Save overdue: %v", err)
	}

	due, err := repo.CountDueBefore(ctx, tx, supplier.ID, soon)
	if err != nil || due != 1 {
		t.Fatalf("CountDueBefore: err=%v due=%d", err, due)
	}

	forSupplier, err := repo.ListBySupplierTenant(ctx, tx, supplier.ID, []types.RequestStatus{types.RequestInProgress})
	if err != nil || len(forSupplier) != 1 {
		t.Fatalf("ListBySupplierTenant: err=%v len=%d", err, len(forSupplier))
	}
	if forSupplier[0].BrandTenant == nil || forSupplier[0].BrandTenant.Name != "Nordwind" {
		t.Fatalf("ListBySupplierTenant: brand tenant not preloaded")
	}

	forBrand, err := repo.ListByBrandTenant(ctx, tx, brand.ID, nil)
	if err != nil || len(forBrand) != 2 {
		t.Fatalf("ListByBrandTenant: err=%v len=%d", err, len(forBrand))
	}

	count, err := repo.CountForBrand(ctx, tx, brand.ID, types.NonTerminalRequestStatuses())
	if err != nil || count != 1 {
		t.Fatalf("CountForBrand: err=%v count=%d", err, count)
	}
	count, err = repo.CountForSupplier(ctx, tx, supplier.ID, []types.RequestStatus{types.RequestCancelled})
	if err != nil || count != 1 {
		t.Fatalf("CountForSupplier: err=%v count=%d", err, count)
	}

	byProduct, err := repo.ListByProduct(ctx, tx, product.ID)
	if err != nil || len(byProduct) != 2 {
		t.Fatalf("ListByProduct: err=%v len=%d", err, len(byProduct))
	}
}
