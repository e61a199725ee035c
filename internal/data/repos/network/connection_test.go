package network

import (
	"context"
	"testing"
	"time"

	"github.com/tracebind/passport-backend/internal/data/repos/testutil"
	types "github.com/tracebind/passport-backend/internal/domain"
)

func TestConnectionRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	repo := NewConnectionRepo(db, testutil.Logger(t))

	brand := testutil.SeedTenant(t, ctx, tx, "Velo Brand", types.TenantTypeBrand)
	supplier := testutil.SeedTenant(t, ctx, tx, "Mill Works", types.TenantTypeSupplier)

	token := "tok-" + brand.ID.String()
	conn := &types.TenantConnection{
		RequesterTenantID: brand.ID,
		InvitationEmail:   "ops@millworks.example",
		InvitationToken:   &token,
		Status:            types.ConnectionPending,
		RequestNote:       "please join",
	}
	created, err := repo.Create(ctx, tx, []*types.TenantConnection{conn})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(created) != 1 {
		t.Fatalf("Create: expected 1 row, got %d", len(created))
	}

	got, err := repo.GetByID(ctx, tx, conn.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got == nil || got.RequesterTenantID != brand.ID {
		t.Fatalf("GetByID: wrong row %+v", got)
	}
	if got.RequesterTenant == nil || got.RequesterTenant.Name != "Velo Brand" {
		t.Fatalf("GetByID: requester tenant not preloaded")
	}

	byToken, err := repo.GetByToken(ctx, tx, token)
	if err != nil {
		t.Fatalf("GetByToken: %v", err)
	}
	if byToken == nil || byToken.ID != conn.ID {
		t.Fatalf("GetByToken: expected %s, got %+v", conn.ID, byToken)
	}
	if miss, err := repo.GetByToken(ctx, tx, "no-such-token"); err != nil || miss != nil {
		t.Fatalf("GetByToken miss: err=%v row=%+v", err, miss)
	}

	// Email matching is case-insensitive and only PENDING rows count.
	pending, err := repo.GetPendingByInvitationEmail(ctx, tx, "OPS@MillWorks.example")
	if err != nil {
		t.Fatalf("GetPendingByInvitationEmail: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != conn.ID {
		t.Fatalf("GetPendingByInvitationEmail: expected 1 pending row, got %d", len(pending))
	}

	now := time.Now().UTC()
	conn.SupplierTenantID = &supplier.ID
	conn.Status = types.ConnectionActive
	conn.InvitationToken = nil
	conn.RespondedAt = &now
	if err := repo.Save(ctx, tx, conn); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if rows, err := repo.GetPendingByInvitationEmail(ctx, tx, "ops@millworks.example"); err != nil || len(rows) != 0 {
		t.Fatalf("GetPendingByInvitationEmail after accept: err=%v len=%d", err, len(rows))
	}

	listed, err := repo.ListForSupplierTenant(ctx, tx, supplier.ID, nil)
	if err != nil {
		t.Fatalf("ListForSupplierTenant: %v", err)
	}
	if len(listed) != 1 || listed[0].Status != types.ConnectionActive {
		t.Fatalf("ListForSupplierTenant: got %d rows", len(listed))
	}
	if filtered, err := repo.ListForSupplierTenant(ctx, tx, supplier.ID, []types.ConnectionStatus{types.ConnectionPending}); err != nil || len(filtered) != 0 {
		t.Fatalf("ListForSupplierTenant filtered: err=%v len=%d", err, len(filtered))
	}

	count, err := repo.CountForSupplierTenant(ctx, tx, supplier.ID, types.ConnectionActive)
	if err != nil || count != 1 {
		t.Fatalf("CountForSupplierTenant: err=%v count=%d", err, count)
	}

	if err := repo.Delete(ctx, tx, conn.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if gone, err := repo.GetByID(ctx, tx, conn.ID); err != nil || gone != nil {
		t.Fatalf("GetByID after delete: err=%v row=%+v", err, gone)
	}
}
