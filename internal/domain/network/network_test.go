package network

import (
	"testing"

	"github.com/google/uuid"
)

func TestSyncFromConnectionCopiesLiveState(t *testing.T) {
	supplierID := uuid.New()
	conn := &TenantConnection{
		SupplierTenantID: &supplierID,
		Status:           ConnectionActive,
		RetryCount:       2,
		InvitationEmail:  "ops@mill.example",
	}
	p := &SupplierProfile{ConnectionStatus: ConnectionPending}
	p.SyncFromConnection(conn, "thread-mill")

	if p.ConnectionStatus != ConnectionActive {
		t.Fatalf("status not synced: %s", p.ConnectionStatus)
	}
	if p.SupplierTenantID == nil || *p.SupplierTenantID != supplierID {
		t.Fatalf("supplier tenant not synced: %v", p.SupplierTenantID)
	}
	if p.RetryCount != 2 {
		t.Fatalf("retry count not synced: %d", p.RetryCount)
	}
	if p.SupplierSlug != "thread-mill" {
		t.Fatalf("slug not synced: %q", p.SupplierSlug)
	}
	if p.InvitationEmail != "ops@mill.example" {
		t.Fatalf("invitation email not synced: %q", p.InvitationEmail)
	}
}

func TestSyncFromConnectionNilSafe(t *testing.T) {
	var p *SupplierProfile
	p.SyncFromConnection(&TenantConnection{}, "")

	q := &SupplierProfile{RetryCount: 1}
	q.SyncFromConnection(nil, "x")
	if q.RetryCount != 1 {
		t.Fatalf("nil connection must not mutate the profile")
	}
}

func TestConnectionStatusCanReinvite(t *testing.T) {
	cases := []struct {
		status ConnectionStatus
		want   bool
	}{
		{ConnectionPending, true},
		{ConnectionRejected, true},
		{ConnectionActive, false},
		{ConnectionSuspended, false},
		{ConnectionDisconnected, false},
	}
	for _, tc := range cases {
		if got := tc.status.CanReinvite(); got != tc.want {
			t.Fatalf("%s.CanReinvite(): got=%v want=%v", tc.status, got, tc.want)
		}
	}
}

func TestCanBeAssigned(t *testing.T) {
	supplierID := uuid.New()
	cases := []struct {
		name    string
		profile *SupplierProfile
		want    bool
	}{
		{name: "active and resolved", profile: &SupplierProfile{ConnectionStatus: ConnectionActive, SupplierTenantID: &supplierID}, want: true},
		{name: "active but unresolved", profile: &SupplierProfile{ConnectionStatus: ConnectionActive}, want: false},
		{name: "pending", profile: &SupplierProfile{ConnectionStatus: ConnectionPending, SupplierTenantID: &supplierID}, want: false},
		{name: "nil", profile: nil, want: false},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.profile.CanBeAssigned(); got != tc.want {
				t.Fatalf("got=%v want=%v", got, tc.want)
			}
		})
	}
}
