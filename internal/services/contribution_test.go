package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/tracebind/passport-backend/internal/data/repos/testutil"
	types "github.com/tracebind/passport-backend/internal/domain"
	"github.com/tracebind/passport-backend/internal/pkg/ctxutil"
	"github.com/tracebind/passport-backend/internal/platform/apierr"
)

type contributionFixture struct {
	brandTenant    *types.Tenant
	supplierTenant *types.Tenant
	brand          ctxutil.Actor
	supplier       ctxutil.Actor

	profile *types.SupplierProfile
	product *types.Product
	version *types.ProductVersion
}

// seedContributionRound builds a connected brand/supplier pair with one
// product on a working draft, ready for assignment.
func seedContributionRound(t *testing.T, ctx context.Context, h *harness) contributionFixture {
	t.Helper()
	brandTenant, brand := h.seedActor(t, ctx, "Brand", types.TenantTypeBrand)
	supplierTenant, supplier := h.seedActor(t, ctx, "Mill", types.TenantTypeSupplier)
	_, profile := h.seedActivePair(t, ctx, brandTenant, supplierTenant)

	product := testutil.SeedProduct(t, ctx, h.db, brandTenant.ID, fmt.Sprintf("SKU-%s", profile.ID.String()[:8]))
	version := testutil.SeedVersion(t, ctx, h.db, product.ID, brandTenant.ID, 1, 1, types.VersionWorkingDraft)

	return contributionFixture{
		brandTenant:    brandTenant,
		supplierTenant: supplierTenant,
		brand:          brand,
		supplier:       supplier,
		profile:        profile,
		product:        product,
		version:        version,
	}
}

func TestAssignCreatesRequest(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	svc := h.contributionService()
	fx := seedContributionRound(t, ctx, h)

	req, err := svc.Assign(ctx, fx.brand, fx.product.ID, AssignSupplierInput{
		SupplierProfileID: fx.profile.ID,
		Note:              "please fill in the BOM",
	})
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if req.Status != types.RequestSent {
		t.Fatalf("status = %s, want SENT", req.Status)
	}
	if req.CurrentVersionID != fx.version.ID || req.InitialVersionID != fx.version.ID {
		t.Fatalf("request must pin the latest working draft")
	}
	if req.SupplierTenantID != fx.supplierTenant.ID {
		t.Fatalf("supplier tenant not resolved from the profile")
	}

	// The optional note lands as the first comment on the thread.
	comments, err := h.comments.ListByRequest(ctx, nil, req.ID)
	if err != nil || len(comments) != 1 {
		t.Fatalf("comments = %d (%v), want 1", len(comments), err)
	}

	t.Run("no parallel open request", func(t *testing.T) {
		_, err := svc.Assign(ctx, fx.brand, fx.product.ID, AssignSupplierInput{SupplierProfileID: fx.profile.ID})
		wantCode(t, err, apierr.CodeConflict)
	})
	t.Run("supplier cannot assign", func(t *testing.T) {
		_, err := svc.Assign(ctx, fx.supplier, fx.product.ID, AssignSupplierInput{SupplierProfileID: fx.profile.ID})
		wantCode(t, err, apierr.CodeForbidden)
	})
}

func TestAssignRequiresWorkingDraftAndActiveConnection(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	svc := h.contributionService()
	fx := seedContributionRound(t, ctx, h)

	t.Run("locked version", func(t *testing.T) {
		fx.version.Status = types.VersionSubmitted
		if err := h.db.WithContext(ctx).Save(fx.version).Error; err != nil {
			t.Fatalf("lock version: %v", err)
		}
		_, err := svc.Assign(ctx, fx.brand, fx.product.ID, AssignSupplierInput{SupplierProfileID: fx.profile.ID})
		wantCode(t, err, apierr.CodeInvalidState)

		fx.version.Status = types.VersionWorkingDraft
		if err := h.db.WithContext(ctx).Save(fx.version).Error; err != nil {
			t.Fatalf("unlock version: %v", err)
		}
	})

	t.Run("inactive connection", func(t *testing.T) {
		fx.profile.ConnectionStatus = types.ConnectionSuspended
		if err := h.db.WithContext(ctx).Save(fx.profile).Error; err != nil {
			t.Fatalf("suspend profile: %v", err)
		}
		_, err := svc.Assign(ctx, fx.brand, fx.product.ID, AssignSupplierInput{SupplierProfileID: fx.profile.ID})
		wantCode(t, err, apierr.CodeInvalidState)
	})

	t.Run("foreign product", func(t *testing.T) {
		otherTenant, _ := h.seedActor(t, ctx, "Other Brand", types.TenantTypeBrand)
		foreign := testutil.SeedProduct(t, ctx, h.db, otherTenant.ID, "SKU-FOREIGN")
		_, err := svc.Assign(ctx, fx.brand, foreign.ID, AssignSupplierInput{SupplierProfileID: fx.profile.ID})
		wantCode(t, err, apierr.CodeNotFound)
	})
}

func TestAcceptAndDecline(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	svc := h.contributionService()

	t.Run("accept moves to in progress", func(t *testing.T) {
		fx := seedContributionRound(t, ctx, h)
		req, err := svc.Assign(ctx, fx.brand, fx.product.ID, AssignSupplierInput{SupplierProfileID: fx.profile.ID})
		if err != nil {
			t.Fatalf("assign: %v", err)
		}

		accepted, err := svc.Accept(ctx, fx.supplier, req.ID, "on it")
		if err != nil {
			t.Fatalf("accept: %v", err)
		}
		if accepted.Status != types.RequestInProgress {
			t.Fatalf("status = %s, want IN_PROGRESS", accepted.Status)
		}

		_, err = svc.Accept(ctx, fx.supplier, req.ID, "")
		wantCode(t, err, apierr.CodeInvalidState)
	})

	t.Run("decline rejects the version", func(t *testing.T) {
		fx := seedContributionRound(t, ctx, h)
		req, err := svc.Assign(ctx, fx.brand, fx.product.ID, AssignSupplierInput{SupplierProfileID: fx.profile.ID})
		if err != nil {
			t.Fatalf("assign: %v", err)
		}

		declined, err := svc.Decline(ctx, fx.supplier, req.ID, "wrong mill")
		if err != nil {
			t.Fatalf("decline: %v", err)
		}
		if declined.Status != types.RequestDeclined {
			t.Fatalf("status = %s, want DECLINED", declined.Status)
		}
		version, err := h.versions.GetByID(ctx, nil, req.CurrentVersionID)
		if err != nil || version == nil {
			t.Fatalf("load version: %v", err)
		}
		if version.Status != types.VersionRejected {
			t.Fatalf("version status = %s, want REJECTED", version.Status)
		}
	})

	t.Run("only the assigned supplier sees the request", func(t *testing.T) {
		fx := seedContributionRound(t, ctx, h)
		req, err := svc.Assign(ctx, fx.brand, fx.product.ID, AssignSupplierInput{SupplierProfileID: fx.profile.ID})
		if err != nil {
			t.Fatalf("assign: %v", err)
		}
		_, bystander := h.seedActor(t, ctx, "Other Mill", types.TenantTypeSupplier)
		_, err = svc.Accept(ctx, bystander, req.ID, "")
		wantCode(t, err, apierr.CodeNotFound)
	})
}

func TestSaveDraftFullReplace(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	svc := h.contributionService()
	fx := seedContributionRound(t, ctx, h)

	systemCotton := testutil.SeedMaterial(t, ctx, h.db, nil, "Organic Cotton", "COT-ORG")
	systemElastane := testutil.SeedMaterial(t, ctx, h.db, nil, "Elastane", "ELA-STD")

	req, err := svc.Assign(ctx, fx.brand, fx.product.ID, AssignSupplierInput{SupplierProfileID: fx.profile.ID})
	if err != nil {
		t.Fatalf("assign: %v", err)
	}

	saved, err := svc.SaveDraft(ctx, fx.supplier, req.ID, DraftPayload{
		ManufacturingCountry:   ptr("PT"),
		TotalCarbonFootprintKG: ptr(12.5),
		Materials: []MaterialLineInput{
			{MaterialID: &systemCotton.ID, Percentage: 95, OriginCountry: "IN"},
			{MaterialID: &systemElastane.ID, Percentage: 5},
		},
	})
	if err != nil {
		t.Fatalf("save draft: %v", err)
	}
	// First save auto-starts a SENT request.
	if saved.Status != types.RequestInProgress {
		t.Fatalf("status = %s, want IN_PROGRESS", saved.Status)
	}

	version, err := h.versions.GetByID(ctx, nil, req.CurrentVersionID)
	if err != nil || version == nil {
		t.Fatalf("load version: %v", err)
	}
	if version.ManufacturingCountry != "PT" {
		t.Fatalf("manufacturing country = %q", version.ManufacturingCountry)
	}
	if version.TotalCarbonFootprintKG == nil || *version.TotalCarbonFootprintKG != 12.5 {
		t.Fatalf("carbon footprint not applied")
	}
	lines, err := h.versions.ListMaterials(ctx, nil, version.ID)
	if err != nil || len(lines) != 2 {
		t.Fatalf("materials = %d (%v), want 2", len(lines), err)
	}

	t.Run("non-nil slice replaces wholesale", func(t *testing.T) {
		_, err := svc.SaveDraft(ctx, fx.supplier, req.ID, DraftPayload{
			Materials: []MaterialLineInput{
				{MaterialID: &systemCotton.ID, Percentage: 100},
			},
		})
		if err != nil {
			t.Fatalf("save draft: %v", err)
		}
		lines, err := h.versions.ListMaterials(ctx, nil, version.ID)
		if err != nil || len(lines) != 1 {
			t.Fatalf("materials = %d (%v), want 1", len(lines), err)
		}
	})

	t.Run("nil slice leaves collection untouched", func(t *testing.T) {
		_, err := svc.SaveDraft(ctx, fx.supplier, req.ID, DraftPayload{RecyclabilityClass: ptr("B")})
		if err != nil {
			t.Fatalf("save draft: %v", err)
		}
		lines, err := h.versions.ListMaterials(ctx, nil, version.ID)
		if err != nil || len(lines) != 1 {
			t.Fatalf("materials = %d (%v), want 1", len(lines), err)
		}
	})

	t.Run("empty slice clears collection", func(t *testing.T) {
		_, err := svc.SaveDraft(ctx, fx.supplier, req.ID, DraftPayload{Materials: []MaterialLineInput{}})
		if err != nil {
			t.Fatalf("save draft: %v", err)
		}
		lines, err := h.versions.ListMaterials(ctx, nil, version.ID)
		if err != nil || len(lines) != 0 {
			t.Fatalf("materials = %d (%v), want 0", len(lines), err)
		}
	})

	t.Run("percentage bounds", func(t *testing.T) {
		_, err := svc.SaveDraft(ctx, fx.supplier, req.ID, DraftPayload{
			Materials: []MaterialLineInput{{MaterialID: &systemCotton.ID, Percentage: 150}},
		})
		wantCode(t, err, apierr.CodeValidation)
	})
}

func TestSubmitLocksEditing(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	svc := h.contributionService()
	fx := seedContributionRound(t, ctx, h)

	req, err := svc.Assign(ctx, fx.brand, fx.product.ID, AssignSupplierInput{SupplierProfileID: fx.profile.ID})
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if _, err := svc.Accept(ctx, fx.supplier, req.ID, ""); err != nil {
		t.Fatalf("accept: %v", err)
	}

	submitted, err := svc.Submit(ctx, fx.supplier, req.ID, "done")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if submitted.Status != types.RequestSubmitted {
		t.Fatalf("status = %s, want SUBMITTED", submitted.Status)
	}
	version, err := h.versions.GetByID(ctx, nil, req.CurrentVersionID)
	if err != nil || version == nil {
		t.Fatalf("load version: %v", err)
	}
	if version.Status != types.VersionSubmitted {
		t.Fatalf("version status = %s, want SUBMITTED", version.Status)
	}

	// Submitted data is frozen until the brand reviews it.
	_, err = svc.SaveDraft(ctx, fx.supplier, req.ID, DraftPayload{ManufacturingCountry: ptr("VN")})
	wantCode(t, err, apierr.CodeInvalidState)
	_, err = svc.Submit(ctx, fx.supplier, req.ID, "")
	wantCode(t, err, apierr.CodeInvalidState)
	// And the brand cannot cancel out from under the review.
	_, err = svc.Cancel(ctx, fx.brand, req.ID, "")
	wantCode(t, err, apierr.CodeInvalidState)
}

func TestReviewApproveCompletesRound(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	svc := h.contributionService()
	fx := seedContributionRound(t, ctx, h)

	req, err := svc.Assign(ctx, fx.brand, fx.product.ID, AssignSupplierInput{SupplierProfileID: fx.profile.ID})
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if _, err := svc.Submit(ctx, fx.supplier, req.ID, ""); err != nil {
		t.Fatalf("submit: %v", err)
	}

	reviewed, err := svc.Review(ctx, fx.brand, req.ID, true, "looks complete")
	if err != nil {
		t.Fatalf("review: %v", err)
	}
	if reviewed.Status != types.RequestCompleted {
		t.Fatalf("status = %s, want COMPLETED", reviewed.Status)
	}
	if reviewed.CurrentVersionID != fx.version.ID {
		t.Fatalf("approval must not repoint the version")
	}
	version, err := h.versions.GetByID(ctx, nil, fx.version.ID)
	if err != nil || version == nil {
		t.Fatalf("load version: %v", err)
	}
	if version.Status != types.VersionApproved {
		t.Fatalf("version status = %s, want APPROVED", version.Status)
	}
}

func TestReviewRejectClonesNextRevision(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	svc := h.contributionService()
	fx := seedContributionRound(t, ctx, h)
	cotton := testutil.SeedMaterial(t, ctx, h.db, nil, "Organic Cotton", "COT-ORG")

	req, err := svc.Assign(ctx, fx.brand, fx.product.ID, AssignSupplierInput{SupplierProfileID: fx.profile.ID})
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if _, err := svc.SaveDraft(ctx, fx.supplier, req.ID, DraftPayload{
		ManufacturingCountry: ptr("PT"),
		Materials:            []MaterialLineInput{{MaterialID: &cotton.ID, Percentage: 100}},
	}); err != nil {
		t.Fatalf("save draft: %v", err)
	}
	if _, err := svc.Submit(ctx, fx.supplier, req.ID, ""); err != nil {
		t.Fatalf("submit: %v", err)
	}

	t.Run("comment is mandatory", func(t *testing.T) {
		_, err := svc.Review(ctx, fx.brand, req.ID, false, "   ")
		wantCode(t, err, apierr.CodeValidation)
	})

	reviewed, err := svc.Review(ctx, fx.brand, req.ID, false, "percentage source missing")
	if err != nil {
		t.Fatalf("review: %v", err)
	}
	if reviewed.Status != types.RequestChangesRequested {
		t.Fatalf("status = %s, want CHANGES_REQUESTED", reviewed.Status)
	}
	if reviewed.CurrentVersionID == fx.version.ID {
		t.Fatalf("rejection must repoint the request at a fresh draft")
	}
	if reviewed.InitialVersionID != fx.version.ID {
		t.Fatalf("initial version must stay pinned to the round's origin")
	}

	// The reviewed snapshot is frozen, history intact.
	old, err := h.versions.GetByID(ctx, nil, fx.version.ID)
	if err != nil || old == nil {
		t.Fatalf("load old version: %v", err)
	}
	if old.Status != types.VersionRevisionRequired {
		t.Fatalf("old version status = %s, want REVISION_REQUIRED", old.Status)
	}
	if old.ManufacturingCountry != "PT" {
		t.Fatalf("frozen snapshot lost its data")
	}

	// The clone is the next revision of the same sequence, data carried over.
	clone, err := h.versions.GetByID(ctx, nil, reviewed.CurrentVersionID)
	if err != nil || clone == nil {
		t.Fatalf("load clone: %v", err)
	}
	if clone.Status != types.VersionWorkingDraft {
		t.Fatalf("clone status = %s, want WORKING_DRAFT", clone.Status)
	}
	if clone.VersionSequence != old.VersionSequence || clone.Revision != old.Revision+1 {
		t.Fatalf("clone seq/rev = %d/%d, want %d/%d", clone.VersionSequence, clone.Revision, old.VersionSequence, old.Revision+1)
	}
	if clone.ParentVersionID == nil || *clone.ParentVersionID != old.ID {
		t.Fatalf("clone must point back at the reviewed version")
	}
	if clone.ManufacturingCountry != "PT" {
		t.Fatalf("clone lost the submitted data")
	}
	cloneLines, err := h.versions.ListMaterials(ctx, nil, clone.ID)
	if err != nil || len(cloneLines) != 1 {
		t.Fatalf("clone materials = %d (%v), want 1", len(cloneLines), err)
	}
	oldLines, err := h.versions.ListMaterials(ctx, nil, old.ID)
	if err != nil || len(oldLines) != 1 {
		t.Fatalf("old materials = %d (%v), want 1", len(oldLines), err)
	}

	// The rejection comment anchors the feedback loop.
	latest, err := h.commentService().LatestRejection(ctx, fx.supplier, req.ID)
	if err != nil || latest == nil {
		t.Fatalf("latest rejection: %v", err)
	}

	// The supplier edits the clone and resubmits; another rejection clones
	// revision 3.
	if _, err := svc.SaveDraft(ctx, fx.supplier, req.ID, DraftPayload{ManufacturingCountry: ptr("VN")}); err != nil {
		t.Fatalf("edit clone: %v", err)
	}
	if _, err := svc.Submit(ctx, fx.supplier, req.ID, ""); err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	again, err := svc.Review(ctx, fx.brand, req.ID, false, "still missing the source")
	if err != nil {
		t.Fatalf("second review: %v", err)
	}
	third, err := h.versions.GetByID(ctx, nil, again.CurrentVersionID)
	if err != nil || third == nil {
		t.Fatalf("load third version: %v", err)
	}
	if third.Revision != 3 {
		t.Fatalf("revision = %d, want 3", third.Revision)
	}
}

func TestCancelRequest(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	svc := h.contributionService()
	fx := seedContributionRound(t, ctx, h)

	req, err := svc.Assign(ctx, fx.brand, fx.product.ID, AssignSupplierInput{SupplierProfileID: fx.profile.ID})
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if _, err := svc.Accept(ctx, fx.supplier, req.ID, ""); err != nil {
		t.Fatalf("accept: %v", err)
	}

	cancelled, err := svc.Cancel(ctx, fx.brand, req.ID, "product discontinued")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != types.RequestCancelled {
		t.Fatalf("status = %s, want CANCELLED", cancelled.Status)
	}

	_, err = svc.Cancel(ctx, fx.brand, req.ID, "")
	wantCode(t, err, apierr.CodeInvalidState)
	_, err = svc.SaveDraft(ctx, fx.supplier, req.ID, DraftPayload{ManufacturingCountry: ptr("PT")})
	wantCode(t, err, apierr.CodeInvalidState)
}

func TestListForSupplierFiltersByStatus(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	svc := h.contributionService()
	fx := seedContributionRound(t, ctx, h)

	req, err := svc.Assign(ctx, fx.brand, fx.product.ID, AssignSupplierInput{SupplierProfileID: fx.profile.ID})
	if err != nil {
		t.Fatalf("assign: %v", err)
	}

	sent, err := svc.ListForSupplier(ctx, fx.supplier, []types.RequestStatus{types.RequestSent})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(sent) != 1 || sent[0].Request.ID != req.ID {
		t.Fatalf("sent list = %d, want the assigned request", len(sent))
	}
	if sent[0].BrandName == "" || sent[0].ProductSKU == "" {
		t.Fatalf("list item must carry brand and product context")
	}

	inProgress, err := svc.ListForSupplier(ctx, fx.supplier, []types.RequestStatus{types.RequestInProgress})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(inProgress) != 0 {
		t.Fatalf("in-progress list = %d, want 0", len(inProgress))
	}
}
