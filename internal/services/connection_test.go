package services

import (
	"context"
	"testing"

	types "github.com/tracebind/passport-backend/internal/domain"
	"github.com/tracebind/passport-backend/internal/platform/apierr"
)

func TestInviteByEmailCreatesPendingProfile(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	svc := h.connectionService()
	_, brand := h.seedActor(t, ctx, "Brand", types.TenantTypeBrand)

	profile, err := svc.Invite(ctx, brand, InviteSupplierInput{
		Name:            "Dye House North",
		InvitationEmail: "ops@dyehouse.test",
		Note:            "please join for the spring line",
	})
	if err != nil {
		t.Fatalf("invite: %v", err)
	}
	if profile.ConnectionStatus != types.ConnectionPending {
		t.Fatalf("profile status = %s, want PENDING", profile.ConnectionStatus)
	}
	if profile.SupplierTenantID != nil {
		t.Fatalf("email invite should not resolve a supplier tenant yet")
	}

	conn, err := h.conns.GetByID(ctx, nil, profile.ConnectionID)
	if err != nil || conn == nil {
		t.Fatalf("load connection: %v", err)
	}
	if conn.Status != types.ConnectionPending || conn.RetryCount != 0 {
		t.Fatalf("connection = %s retry=%d, want PENDING retry=0", conn.Status, conn.RetryCount)
	}
	if conn.InvitationToken == nil || *conn.InvitationToken == "" {
		t.Fatalf("pending invite must carry a token")
	}
}

func TestInviteBySlugBindsSupplierTenant(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	svc := h.connectionService()
	_, brand := h.seedActor(t, ctx, "Brand", types.TenantTypeBrand)
	supplierTenant, _ := h.seedActor(t, ctx, "Mill", types.TenantTypeSupplier)

	profile, err := svc.Invite(ctx, brand, InviteSupplierInput{
		Name:         "Mill Partner",
		SupplierSlug: supplierTenant.Slug,
	})
	if err != nil {
		t.Fatalf("invite: %v", err)
	}
	if profile.SupplierTenantID == nil || *profile.SupplierTenantID != supplierTenant.ID {
		t.Fatalf("slug invite should bind the supplier tenant immediately")
	}
	if profile.SupplierSlug != supplierTenant.Slug {
		t.Fatalf("profile slug = %q, want %q", profile.SupplierSlug, supplierTenant.Slug)
	}
}

func TestInviteValidation(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	svc := h.connectionService()
	brandTenant, brand := h.seedActor(t, ctx, "Brand", types.TenantTypeBrand)
	otherBrand, _ := h.seedActor(t, ctx, "Other Brand", types.TenantTypeBrand)
	_, supplier := h.seedActor(t, ctx, "Mill", types.TenantTypeSupplier)

	tests := []struct {
		name string
		in   InviteSupplierInput
		code string
	}{
		{"missing name", InviteSupplierInput{InvitationEmail: "a@b.test"}, apierr.CodeValidation},
		{"no destination", InviteSupplierInput{Name: "X"}, apierr.CodeValidation},
		{"both destinations", InviteSupplierInput{Name: "X", SupplierSlug: "slug", InvitationEmail: "a@b.test"}, apierr.CodeValidation},
		{"bad email", InviteSupplierInput{Name: "X", InvitationEmail: "not-an-email"}, apierr.CodeValidation},
		{"self invite", InviteSupplierInput{Name: "X", SupplierSlug: brandTenant.Slug}, apierr.CodeValidation},
		{"brand target", InviteSupplierInput{Name: "X", SupplierSlug: otherBrand.Slug}, apierr.CodeValidation},
		{"unknown slug", InviteSupplierInput{Name: "X", SupplierSlug: "no-such-company"}, apierr.CodeNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Invite(ctx, brand, tc.in)
			wantCode(t, err, tc.code)
		})
	}

	t.Run("supplier cannot invite", func(t *testing.T) {
		_, err := svc.Invite(ctx, supplier, InviteSupplierInput{Name: "X", InvitationEmail: "a@b.test"})
		wantCode(t, err, apierr.CodeForbidden)
	})

	t.Run("duplicate address book name", func(t *testing.T) {
		if _, err := svc.Invite(ctx, brand, InviteSupplierInput{Name: "Dupe", InvitationEmail: "one@b.test"}); err != nil {
			t.Fatalf("first invite: %v", err)
		}
		_, err := svc.Invite(ctx, brand, InviteSupplierInput{Name: "Dupe", InvitationEmail: "two@b.test"})
		wantCode(t, err, apierr.CodeConflict)
	})
}

func TestReinviteRetryLimit(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	svc := h.connectionService()
	_, brand := h.seedActor(t, ctx, "Brand", types.TenantTypeBrand)

	profile, err := svc.Invite(ctx, brand, InviteSupplierInput{Name: "Slow Mill", InvitationEmail: "mill@b.test"})
	if err != nil {
		t.Fatalf("invite: %v", err)
	}

	var lastToken string
	for i := 1; i <= types.MaxInviteRetries; i++ {
		updated, err := svc.Reinvite(ctx, brand, profile.ID, ReinviteInput{})
		if err != nil {
			t.Fatalf("reinvite %d: %v", i, err)
		}
		if updated.RetryCount != i {
			t.Fatalf("retry count after reinvite %d = %d", i, updated.RetryCount)
		}
		conn, err := h.conns.GetByID(ctx, nil, profile.ConnectionID)
		if err != nil || conn == nil || conn.InvitationToken == nil {
			t.Fatalf("load connection after reinvite %d: %v", i, err)
		}
		if *conn.InvitationToken == lastToken {
			t.Fatalf("reinvite %d did not rotate the token", i)
		}
		lastToken = *conn.InvitationToken
	}

	_, err = svc.Reinvite(ctx, brand, profile.ID, ReinviteInput{})
	wantCode(t, err, apierr.CodeLimitExceeded)
}

func TestReinviteRequiresOpenInvitation(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	svc := h.connectionService()
	brandTenant, brand := h.seedActor(t, ctx, "Brand", types.TenantTypeBrand)
	supplierTenant, _ := h.seedActor(t, ctx, "Mill", types.TenantTypeSupplier)
	_, profile := h.seedActivePair(t, ctx, brandTenant, supplierTenant)

	_, err := svc.Reinvite(ctx, brand, profile.ID, ReinviteInput{})
	wantCode(t, err, apierr.CodeInvalidState)
}

func TestRespondAcceptConsumesToken(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	svc := h.connectionService()
	_, brand := h.seedActor(t, ctx, "Brand", types.TenantTypeBrand)
	supplierTenant, supplier := h.seedActor(t, ctx, "Mill", types.TenantTypeSupplier)

	profile, err := svc.Invite(ctx, brand, InviteSupplierInput{Name: "Mill Partner", SupplierSlug: supplierTenant.Slug})
	if err != nil {
		t.Fatalf("invite: %v", err)
	}
	pending, err := h.conns.GetByID(ctx, nil, profile.ConnectionID)
	if err != nil || pending == nil || pending.InvitationToken == nil {
		t.Fatalf("load pending connection: %v", err)
	}
	token := *pending.InvitationToken

	if _, err := svc.ValidateToken(ctx, token); err != nil {
		t.Fatalf("open token should validate: %v", err)
	}

	conn, err := svc.Respond(ctx, supplier, profile.ConnectionID, true)
	if err != nil {
		t.Fatalf("respond: %v", err)
	}
	if conn.Status != types.ConnectionActive {
		t.Fatalf("status = %s, want ACTIVE", conn.Status)
	}
	if conn.InvitationToken != nil {
		t.Fatalf("accept must consume the invitation token")
	}

	// The consumed token reads like it never existed.
	_, err = svc.ValidateToken(ctx, token)
	wantCode(t, err, apierr.CodeNotFound)

	// And the invitation cannot be answered twice.
	_, err = svc.Respond(ctx, supplier, profile.ConnectionID, false)
	wantCode(t, err, apierr.CodeInvalidState)

	synced, err := h.profiles.GetByID(ctx, nil, profile.ID)
	if err != nil || synced == nil {
		t.Fatalf("load profile: %v", err)
	}
	if synced.ConnectionStatus != types.ConnectionActive {
		t.Fatalf("profile not synced: %s", synced.ConnectionStatus)
	}
}

func TestRespondDecline(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	svc := h.connectionService()
	_, brand := h.seedActor(t, ctx, "Brand", types.TenantTypeBrand)
	supplierTenant, supplier := h.seedActor(t, ctx, "Mill", types.TenantTypeSupplier)

	profile, err := svc.Invite(ctx, brand, InviteSupplierInput{Name: "Mill Partner", SupplierSlug: supplierTenant.Slug})
	if err != nil {
		t.Fatalf("invite: %v", err)
	}
	conn, err := svc.Respond(ctx, supplier, profile.ConnectionID, false)
	if err != nil {
		t.Fatalf("respond: %v", err)
	}
	if conn.Status != types.ConnectionRejected {
		t.Fatalf("status = %s, want REJECTED", conn.Status)
	}

	// A rejected invitation can be re-sent by the brand.
	if _, err := svc.Reinvite(ctx, brand, profile.ID, ReinviteInput{}); err != nil {
		t.Fatalf("reinvite after rejection: %v", err)
	}
}

func TestRespondOnlyByInvitedTenant(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	svc := h.connectionService()
	_, brand := h.seedActor(t, ctx, "Brand", types.TenantTypeBrand)
	supplierTenant, _ := h.seedActor(t, ctx, "Mill", types.TenantTypeSupplier)
	_, bystander := h.seedActor(t, ctx, "Other Mill", types.TenantTypeSupplier)

	profile, err := svc.Invite(ctx, brand, InviteSupplierInput{Name: "Mill Partner", SupplierSlug: supplierTenant.Slug})
	if err != nil {
		t.Fatalf("invite: %v", err)
	}
	_, err = svc.Respond(ctx, bystander, profile.ConnectionID, true)
	wantCode(t, err, apierr.CodeNotFound)
}

func TestDisconnectPolicy(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	svc := h.connectionService()
	brandTenant, brand := h.seedActor(t, ctx, "Brand", types.TenantTypeBrand)
	supplierTenant, supplier := h.seedActor(t, ctx, "Mill", types.TenantTypeSupplier)

	t.Run("pending invite removed outright", func(t *testing.T) {
		profile, err := svc.Invite(ctx, brand, InviteSupplierInput{Name: "Open Invite", InvitationEmail: "open@b.test"})
		if err != nil {
			t.Fatalf("invite: %v", err)
		}
		outcome, err := svc.Disconnect(ctx, brand, profile.ID)
		if err != nil {
			t.Fatalf("disconnect: %v", err)
		}
		if outcome != DisconnectRemoved {
			t.Fatalf("outcome = %s, want REMOVED", outcome)
		}
		gone, err := h.profiles.GetByID(ctx, nil, profile.ID)
		if err != nil {
			t.Fatalf("load profile: %v", err)
		}
		if gone != nil {
			t.Fatalf("pending profile should be deleted")
		}
		conn, err := h.conns.GetByID(ctx, nil, profile.ConnectionID)
		if err != nil {
			t.Fatalf("load connection: %v", err)
		}
		if conn != nil {
			t.Fatalf("pending connection should be deleted")
		}
	})

	t.Run("active connection suspended in place", func(t *testing.T) {
		conn, profile := h.seedActivePair(t, ctx, brandTenant, supplierTenant)
		outcome, err := svc.Disconnect(ctx, brand, profile.ID)
		if err != nil {
			t.Fatalf("disconnect: %v", err)
		}
		if outcome != DisconnectSuspended {
			t.Fatalf("outcome = %s, want SUSPENDED", outcome)
		}
		reloaded, err := h.conns.GetByID(ctx, nil, conn.ID)
		if err != nil || reloaded == nil {
			t.Fatalf("load connection: %v", err)
		}
		if reloaded.Status != types.ConnectionSuspended {
			t.Fatalf("status = %s, want SUSPENDED", reloaded.Status)
		}
		if reloaded.InvitationToken != nil {
			t.Fatalf("suspension must null the token")
		}

		// Suspended twice is a state error.
		_, err = svc.Disconnect(ctx, brand, profile.ID)
		wantCode(t, err, apierr.CodeInvalidState)
	})

	t.Run("rejected invite suspended, retry history kept", func(t *testing.T) {
		profile, err := svc.Invite(ctx, brand, InviteSupplierInput{Name: "Declined Mill", SupplierSlug: supplierTenant.Slug})
		if err != nil {
			t.Fatalf("invite: %v", err)
		}
		if _, err := svc.Reinvite(ctx, brand, profile.ID, ReinviteInput{}); err != nil {
			t.Fatalf("reinvite: %v", err)
		}
		if _, err := svc.Respond(ctx, supplier, profile.ConnectionID, false); err != nil {
			t.Fatalf("respond: %v", err)
		}

		outcome, err := svc.Disconnect(ctx, brand, profile.ID)
		if err != nil {
			t.Fatalf("disconnect: %v", err)
		}
		if outcome != DisconnectSuspended {
			t.Fatalf("outcome = %s, want SUSPENDED", outcome)
		}

		// The row survives with its reinvite count, so removing a declined
		// invite cannot reset the retry cap.
		reloaded, err := h.conns.GetByID(ctx, nil, profile.ConnectionID)
		if err != nil || reloaded == nil {
			t.Fatalf("load connection: %v", err)
		}
		if reloaded.Status != types.ConnectionSuspended {
			t.Fatalf("status = %s, want SUSPENDED", reloaded.Status)
		}
		if reloaded.RetryCount != 1 {
			t.Fatalf("retry count = %d, want 1", reloaded.RetryCount)
		}
		_, err = svc.Reinvite(ctx, brand, profile.ID, ReinviteInput{})
		wantCode(t, err, apierr.CodeInvalidState)
	})
}

func TestDisconnectAsSupplier(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	svc := h.connectionService()
	brandTenant, _ := h.seedActor(t, ctx, "Brand", types.TenantTypeBrand)
	supplierTenant, supplier := h.seedActor(t, ctx, "Mill", types.TenantTypeSupplier)
	conn, _ := h.seedActivePair(t, ctx, brandTenant, supplierTenant)

	updated, err := svc.DisconnectAsSupplier(ctx, supplier, conn.ID)
	if err != nil {
		t.Fatalf("disconnect: %v", err)
	}
	if updated.Status != types.ConnectionDisconnected {
		t.Fatalf("status = %s, want DISCONNECTED", updated.Status)
	}

	_, err = svc.DisconnectAsSupplier(ctx, supplier, conn.ID)
	wantCode(t, err, apierr.CodeInvalidState)
}

func TestListIncomingFiltersByStatus(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	svc := h.connectionService()
	brandTenant, brand := h.seedActor(t, ctx, "Brand", types.TenantTypeBrand)
	supplierTenant, supplier := h.seedActor(t, ctx, "Mill", types.TenantTypeSupplier)

	h.seedActivePair(t, ctx, brandTenant, supplierTenant)
	if _, err := svc.Invite(ctx, brand, InviteSupplierInput{Name: "Second Invite", SupplierSlug: supplierTenant.Slug}); err != nil {
		t.Fatalf("invite: %v", err)
	}

	pending, err := svc.ListIncoming(ctx, supplier, []types.ConnectionStatus{types.ConnectionPending})
	if err != nil {
		t.Fatalf("list incoming: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("pending = %d, want 1", len(pending))
	}
	if pending[0].BrandName == "" || pending[0].BrandSlug == "" {
		t.Fatalf("incoming row must carry the brand identity")
	}

	all, err := svc.ListIncoming(ctx, supplier, nil)
	if err != nil {
		t.Fatalf("list incoming: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("all = %d, want 2", len(all))
	}
}

func TestValidateTokenDetails(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	svc := h.connectionService()
	brandTenant, brand := h.seedActor(t, ctx, "Brand", types.TenantTypeBrand)

	profile, err := svc.Invite(ctx, brand, InviteSupplierInput{
		Name:            "Weaving Works",
		InvitationEmail: "join@weaving.test",
		Note:            "spring capsule",
		LocationCountry: "PT",
	})
	if err != nil {
		t.Fatalf("invite: %v", err)
	}
	conn, err := h.conns.GetByID(ctx, nil, profile.ConnectionID)
	if err != nil || conn == nil || conn.InvitationToken == nil {
		t.Fatalf("load connection: %v", err)
	}

	details, err := svc.ValidateToken(ctx, *conn.InvitationToken)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if details.BrandName != brandTenant.Name {
		t.Fatalf("brand name = %q, want %q", details.BrandName, brandTenant.Name)
	}
	if details.InvitedEmail != "join@weaving.test" || details.ProfileName != "Weaving Works" {
		t.Fatalf("unexpected details: %+v", details)
	}
	if details.AlreadyResolved {
		t.Fatalf("email invite should not be resolved yet")
	}

	_, err = svc.ValidateToken(ctx, "bogus-token")
	wantCode(t, err, apierr.CodeNotFound)
}
