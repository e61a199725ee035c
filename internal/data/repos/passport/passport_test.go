package passport

import (
	"context"
	"testing"
	"time"

	"github.com/tracebind/passport-backend/internal/data/repos/testutil"
	types "github.com/tracebind/passport-backend/internal/domain"
)

func TestPassportRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	repo := NewPassportRepo(db, testutil.Logger(t))

	brand := testutil.SeedTenant(t, ctx, tx, "Fjord Gear", types.TenantTypeBrand)
	product := testutil.SeedProduct(t, ctx, tx, brand.ID, "SKU-PASS-1")
	version := testutil.SeedVersion(t, ctx, tx, product.ID, brand.ID, 1, 1, types.VersionApproved)

	pp := &types.ProductPassport{
		ProductID:          product.ID,
		PublicUID:          "pp_demo123",
		Status:             types.PassportPublished,
		PublishedVersionID: &version.ID,
		TargetURL:          "https://pass.example/p/pp_demo123",
		PublishedAt:        testutil.PtrTime(time.Now().UTC()),
	}
	if _, err := repo.Create(ctx, tx, []*types.ProductPassport{pp}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	byProduct, err := repo.GetByProductID(ctx, tx, product.ID)
	if err != nil || byProduct == nil || byProduct.ID != pp.ID {
		t.Fatalf("GetByProductID: err=%v row=%+v", err, byProduct)
	}

	byUID, err := repo.GetByPublicUID(ctx, tx, "pp_demo123")
	if err != nil {
		t.Fatalf("GetByPublicUID: %v", err)
	}
	if byUID == nil || byUID.Product == nil || byUID.Product.ID != product.ID {
		t.Fatalf("GetByPublicUID: product not preloaded: %+v", byUID)
	}
	if miss, err := repo.GetByPublicUID(ctx, tx, "pp_nope"); err != nil || miss != nil {
		t.Fatalf("GetByPublicUID miss: err=%v row=%+v", err, miss)
	}

	count, err := repo.CountPublishedByTenant(ctx, tx, brand.ID)
	if err != nil || count != 1 {
		t.Fatalf("CountPublishedByTenant: err=%v count=%d", err, count)
	}

	pp.Status = types.PassportArchived
	if err := repo.Save(ctx, tx, pp); err != nil {
		t.Fatalf("Save: %v", err)
	}
	count, err = repo.CountPublishedByTenant(ctx, tx, brand.ID)
	if err != nil || count != 0 {
		t.Fatalf("CountPublishedByTenant after archive: err=%v count=%d", err, count)
	}
}
