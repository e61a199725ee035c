package services

import (
	"context"
	"testing"

	"github.com/tracebind/passport-backend/internal/data/repos/testutil"
	types "github.com/tracebind/passport-backend/internal/domain"
	"github.com/tracebind/passport-backend/internal/platform/apierr"
)

func TestStartVersionRoundReopensFinishedProduct(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	svc := h.productService()
	brandTenant, brand := h.seedActor(t, ctx, "Brand", types.TenantTypeBrand)
	supplierTenant, _ := h.seedActor(t, ctx, "Mill", types.TenantTypeSupplier)

	product := testutil.SeedProduct(t, ctx, h.db, brandTenant.ID, "SKU-ROUND")
	approved := testutil.SeedVersion(t, ctx, h.db, product.ID, brandTenant.ID, 1, 2, types.VersionApproved)
	line := &types.VersionMaterial{VersionID: approved.ID, UnlistedMaterialName: "Organic Cotton", Percentage: 100}
	if err := h.db.WithContext(ctx).Create(line).Error; err != nil {
		t.Fatalf("seed line: %v", err)
	}

	draft, err := svc.StartVersionRound(ctx, brand, product.ID)
	if err != nil {
		t.Fatalf("start round: %v", err)
	}
	if draft.VersionSequence != 2 || draft.Revision != 1 {
		t.Fatalf("round numbering: seq=%d rev=%d, want 2/1", draft.VersionSequence, draft.Revision)
	}
	if draft.Status != types.VersionWorkingDraft {
		t.Fatalf("round status = %s, want WORKING_DRAFT", draft.Status)
	}
	if draft.ParentVersionID == nil || *draft.ParentVersionID != approved.ID {
		t.Fatalf("round must point back at the approved version")
	}

	// Previous round's data is the new draft's starting point; the approved
	// version itself stays untouched.
	carried, err := h.versions.ListMaterials(ctx, nil, draft.ID)
	if err != nil {
		t.Fatalf("list materials: %v", err)
	}
	if len(carried) != 1 || carried[0].UnlistedMaterialName != "Organic Cotton" {
		t.Fatalf("materials not carried forward: %+v", carried)
	}
	prev, err := h.versions.GetByID(ctx, nil, approved.ID)
	if err != nil || prev == nil {
		t.Fatalf("reload approved version: %v", err)
	}
	if prev.Status != types.VersionApproved {
		t.Fatalf("approved version mutated to %s", prev.Status)
	}

	reloaded, err := h.products.GetByID(ctx, nil, product.ID)
	if err != nil || reloaded == nil {
		t.Fatalf("reload product: %v", err)
	}
	if reloaded.CurrentVersionID == nil || *reloaded.CurrentVersionID != draft.ID {
		t.Fatalf("product pointer must move to the new round's draft")
	}

	// The new draft is assignable like any first-round draft.
	_, profile := h.seedActivePair(t, ctx, brandTenant, supplierTenant)
	req, err := h.contributionService().Assign(ctx, brand, product.ID, AssignSupplierInput{SupplierProfileID: profile.ID})
	if err != nil {
		t.Fatalf("assign after round start: %v", err)
	}
	if req.CurrentVersionID != draft.ID || req.InitialVersionID != draft.ID {
		t.Fatalf("assignment must pin the new round's draft")
	}
}

func TestStartVersionRoundStateGates(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	svc := h.productService()
	brandTenant, brand := h.seedActor(t, ctx, "Brand", types.TenantTypeBrand)

	t.Run("open draft blocks a new round", func(t *testing.T) {
		product := testutil.SeedProduct(t, ctx, h.db, brandTenant.ID, "SKU-DRAFT")
		testutil.SeedVersion(t, ctx, h.db, product.ID, brandTenant.ID, 1, 1, types.VersionWorkingDraft)
		_, err := svc.StartVersionRound(ctx, brand, product.ID)
		wantCode(t, err, apierr.CodeInvalidState)
	})

	t.Run("round under review blocks a new round", func(t *testing.T) {
		product := testutil.SeedProduct(t, ctx, h.db, brandTenant.ID, "SKU-REVIEW")
		testutil.SeedVersion(t, ctx, h.db, product.ID, brandTenant.ID, 1, 1, types.VersionSubmitted)
		_, err := svc.StartVersionRound(ctx, brand, product.ID)
		wantCode(t, err, apierr.CodeInvalidState)
	})

	t.Run("foreign product reads absent", func(t *testing.T) {
		otherTenant, _ := h.seedActor(t, ctx, "Other Brand", types.TenantTypeBrand)
		product := testutil.SeedProduct(t, ctx, h.db, otherTenant.ID, "SKU-FOREIGN")
		testutil.SeedVersion(t, ctx, h.db, product.ID, otherTenant.ID, 1, 1, types.VersionApproved)
		_, err := svc.StartVersionRound(ctx, brand, product.ID)
		wantCode(t, err, apierr.CodeNotFound)
	})

	t.Run("supplier actors cannot open rounds", func(t *testing.T) {
		_, supplier := h.seedActor(t, ctx, "Mill", types.TenantTypeSupplier)
		product := testutil.SeedProduct(t, ctx, h.db, brandTenant.ID, "SKU-SUPP")
		testutil.SeedVersion(t, ctx, h.db, product.ID, brandTenant.ID, 1, 1, types.VersionApproved)
		_, err := svc.StartVersionRound(ctx, supplier, product.ID)
		wantCode(t, err, apierr.CodeForbidden)
	})
}
