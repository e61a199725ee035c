package workflow

import "testing"

func TestRequestStatusPredicates(t *testing.T) {
	cases := []struct {
		status      RequestStatus
		terminal    bool
		editable    bool
		cancellable bool
	}{
		{RequestSent, false, true, true},
		{RequestInProgress, false, true, true},
		{RequestSubmitted, false, false, false},
		{RequestChangesRequested, false, true, true},
		{RequestCompleted, true, false, false},
		{RequestDeclined, true, false, true},
		{RequestCancelled, true, false, false},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(string(tc.status), func(t *testing.T) {
			if got := tc.status.Terminal(); got != tc.terminal {
				t.Fatalf("Terminal: got=%v want=%v", got, tc.terminal)
			}
			if got := tc.status.SupplierEditable(); got != tc.editable {
				t.Fatalf("SupplierEditable: got=%v want=%v", got, tc.editable)
			}
			if got := tc.status.Cancellable(); got != tc.cancellable {
				t.Fatalf("Cancellable: got=%v want=%v", got, tc.cancellable)
			}
		})
	}
}

func TestNonTerminalStatusesMatchPredicate(t *testing.T) {
	for _, s := range NonTerminalStatuses() {
		if s.Terminal() {
			t.Fatalf("%s listed non-terminal but Terminal()==true", s)
		}
	}
	if len(NonTerminalStatuses()) != 4 {
		t.Fatalf("expected 4 non-terminal statuses, got %d", len(NonTerminalStatuses()))
	}
}
