package identity

import (
	"context"
	"testing"

	"github.com/tracebind/passport-backend/internal/data/repos/testutil"
	types "github.com/tracebind/passport-backend/internal/domain"
)

func TestTenantRepoSearchSuppliers(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	repo := NewTenantRepo(db, testutil.Logger(t))

	mill := testutil.SeedTenant(t, ctx, tx, "Harbor Mill", types.TenantTypeSupplier)
	testutil.SeedTenant(t, ctx, tx, "Harbor Brand", types.TenantTypeBrand)
	hybrid := testutil.SeedTenant(t, ctx, tx, "Harbor Hybrid Works", types.TenantTypeHybrid)

	suspended := testutil.SeedTenant(t, ctx, tx, "Harbor Suspended", types.TenantTypeSupplier)
	suspended.Status = types.TenantStatusSuspended
	if err := tx.WithContext(ctx).Save(suspended).Error; err != nil {
		t.Fatalf("suspend tenant: %v", err)
	}

	// Only ACTIVE supplier-capable tenants surface in the directory.
	results, err := repo.SearchSuppliers(ctx, tx, "harbor", 10)
	if err != nil {
		t.Fatalf("SearchSuppliers: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("SearchSuppliers: expected supplier+hybrid, got %d", len(results))
	}
	found := map[string]bool{}
	for _, row := range results {
		found[row.Name] = true
	}
	if !found[mill.Name] || !found[hybrid.Name] {
		t.Fatalf("SearchSuppliers: wrong rows %+v", found)
	}

	bySlug, err := repo.GetBySlug(ctx, tx, mill.Slug)
	if err != nil || bySlug == nil || bySlug.ID != mill.ID {
		t.Fatalf("GetBySlug: err=%v row=%+v", err, bySlug)
	}

	exists, err := repo.SlugExists(ctx, tx, mill.Slug)
	if err != nil || !exists {
		t.Fatalf("SlugExists: err=%v exists=%v", err, exists)
	}
	exists, err = repo.NameExists(ctx, tx, "harbor MILL")
	if err != nil || !exists {
		t.Fatalf("NameExists: err=%v exists=%v", err, exists)
	}
}
