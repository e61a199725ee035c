package library

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/tracebind/passport-backend/internal/data/repos/testutil"
	types "github.com/tracebind/passport-backend/internal/domain"
)

func TestMaterialRepoVisibility(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	repo := NewMaterialRepo(db, testutil.Logger(t))

	tenantA := testutil.SeedTenant(t, ctx, tx, "Brand A", types.TenantTypeBrand)
	tenantB := testutil.SeedTenant(t, ctx, tx, "Brand B", types.TenantTypeBrand)

	system := testutil.SeedMaterial(t, ctx, tx, nil, "Organic Cotton", "OC-01")
	ownA := testutil.SeedMaterial(t, ctx, tx, &tenantA.ID, "House Linen", "HL-01")
	testutil.SeedMaterial(t, ctx, tx, &tenantB.ID, "Rival Wool", "RW-01")

	// Tenant A sees System rows plus its own, never B's.
	visible, err := repo.ListVisible(ctx, tx, tenantA.ID, "")
	if err != nil {
		t.Fatalf("ListVisible: %v", err)
	}
	seen := map[uuid.UUID]bool{}
	for _, m := range visible {
		seen[m.ID] = true
	}
	if !seen[system.ID] || !seen[ownA.ID] {
		t.Fatalf("ListVisible: missing system or own row")
	}
	for _, m := range visible {
		if m.TenantID != nil && *m.TenantID == tenantB.ID {
			t.Fatalf("ListVisible: leaked another tenant's row")
		}
	}

	filtered, err := repo.ListVisible(ctx, tx, tenantA.ID, "linen")
	if err != nil || len(filtered) != 1 || filtered[0].ID != ownA.ID {
		t.Fatalf("ListVisible search: err=%v rows=%+v", err, filtered)
	}

	// A tenant cannot shadow a System name.
	hit, err := repo.FindVisibleByNameOrCode(ctx, tx, tenantA.ID, "organic cotton", "NEW-01", uuid.Nil)
	if err != nil {
		t.Fatalf("FindVisibleByNameOrCode: %v", err)
	}
	if hit == nil || hit.ID != system.ID {
		t.Fatalf("FindVisibleByNameOrCode: expected system collision, got %+v", hit)
	}

	// B's rows don't collide for A.
	hit, err = repo.FindVisibleByNameOrCode(ctx, tx, tenantA.ID, "Rival Wool", "RW-01", uuid.Nil)
	if err != nil || hit != nil {
		t.Fatalf("FindVisibleByNameOrCode cross-tenant: err=%v hit=%+v", err, hit)
	}

	// Self-exclusion for updates.
	hit, err = repo.FindVisibleByNameOrCode(ctx, tx, tenantA.ID, "House Linen", "HL-01", ownA.ID)
	if err != nil || hit != nil {
		t.Fatalf("FindVisibleByNameOrCode excluding self: err=%v hit=%+v", err, hit)
	}

	ownA.Description = "updated"
	if err := repo.Save(ctx, tx, ownA); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if err := repo.Delete(ctx, tx, ownA.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if gone, err := repo.GetByID(ctx, tx, ownA.ID); err != nil || gone != nil {
		t.Fatalf("GetByID after delete: err=%v row=%+v", err, gone)
	}
}
