package network

import (
	"context"
	"testing"

	"github.com/tracebind/passport-backend/internal/data/repos/testutil"
	types "github.com/tracebind/passport-backend/internal/domain"
)

func TestSupplierProfileRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	repo := NewSupplierProfileRepo(db, testutil.Logger(t))

	brand := testutil.SeedTenant(t, ctx, tx, "Atelier Nord", types.TenantTypeBrand)
	connA := testutil.SeedConnection(t, ctx, tx, brand.ID, "a@suppliers.example", types.ConnectionPending)
	connB := testutil.SeedConnection(t, ctx, tx, brand.ID, "b@suppliers.example", types.ConnectionPending)

	profileA := &types.SupplierProfile{
		TenantID:         brand.ID,
		ConnectionID:     connA.ID,
		Name:             "Alpha Textiles",
		ConnectionStatus: types.ConnectionPending,
	}
	profileB := &types.SupplierProfile{
		TenantID:         brand.ID,
		ConnectionID:     connB.ID,
		Name:             "Beta Dyeworks",
		ConnectionStatus: types.ConnectionPending,
		IsFavorite:       true,
	}
	if _, err := repo.Create(ctx, tx, []*types.SupplierProfile{profileA, profileB}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	byConn, err := repo.GetByConnectionID(ctx, tx, connA.ID)
	if err != nil {
		t.Fatalf("GetByConnectionID: %v", err)
	}
	if byConn == nil || byConn.ID != profileA.ID {
		t.Fatalf("GetByConnectionID: expected %s, got %+v", profileA.ID, byConn)
	}

	// Favorites list first.
	listed, err := repo.ListByTenant(ctx, tx, brand.ID)
	if err != nil {
		t.Fatalf("ListByTenant: %v", err)
	}
	if len(listed) != 2 || listed[0].ID != profileB.ID {
		t.Fatalf("ListByTenant: expected favorite first, got %+v", listed)
	}

	exists, err := repo.NameExists(ctx, tx, brand.ID, "alpha TEXTILES", profileB.ID)
	if err != nil || !exists {
		t.Fatalf("NameExists: err=%v exists=%v", err, exists)
	}
	exists, err = repo.NameExists(ctx, tx, brand.ID, "Alpha Textiles", profileA.ID)
	if err != nil || exists {
		t.Fatalf("NameExists excluding self: err=%v exists=%v", err, exists)
	}

	// Denormalized columns track the connection.
	connA.Status = types.ConnectionActive
	supplier := testutil.SeedTenant(t, ctx, tx, "Alpha Textiles Co", types.TenantTypeSupplier)
	connA.SupplierTenantID = &supplier.ID
	profileA.SyncFromConnection(connA, supplier.Slug)
	if err := repo.Save(ctx, tx, profileA); err != nil {
		t.Fatalf("Save: %v", err)
	}
	saved, err := repo.GetByID(ctx, tx, profileA.ID)
	if err != nil || saved == nil {
		t.Fatalf("GetByID: err=%v row=%+v", err, saved)
	}
	if saved.ConnectionStatus != types.ConnectionActive || saved.SupplierTenantID == nil || *saved.SupplierTenantID != supplier.ID {
		t.Fatalf("GetByID: denormalized state not synced: %+v", saved)
	}

	count, err := repo.CountByTenantAndStatus(ctx, tx, brand.ID, types.ConnectionActive)
	if err != nil || count != 1 {
		t.Fatalf("CountByTenantAndStatus: err=%v count=%d", err, count)
	}

	if err := repo.HardDelete(ctx, tx, profileB.ID); err != nil {
		t.Fatalf("HardDelete: %v", err)
	}
	if gone, err := repo.GetByID(ctx, tx, profileB.ID); err != nil || gone != nil {
		t.Fatalf("GetByID after hard delete: err=%v row=%+v", err, gone)
	}
}
