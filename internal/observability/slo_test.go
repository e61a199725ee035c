package observability

import (
	"math"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRollingSumEvictsOldTicks(t *testing.T) {
	r := newRollingSum(3)
	for _, v := range []float64{1, 2, 3} {
		r.add(v)
	}
	if r.total != 6 {
		t.Fatalf("total = %v, want 6", r.total)
	}
	r.add(4)
	if r.total != 9 {
		t.Fatalf("total after eviction = %v, want 9 (the 1 must drop out)", r.total)
	}
}

func TestEvaluatePublishesComplianceAndBurn(t *testing.T) {
	m := NewMetrics()
	e := newSLOEvaluator(m, nil)

	for i := 0; i < 90; i++ {
		m.ObserveRequest("GET", "/api/products", 200, time.Millisecond)
	}
	for i := 0; i < 10; i++ {
		m.ObserveRequest("GET", "/api/products", 500, time.Millisecond)
	}
	for i := 0; i < 49; i++ {
		m.RecordAsyncSuccess()
	}
	m.RecordAsyncFailure("notify.request")

	e.evaluate()

	gauge := func(vec, name string) float64 {
		t.Helper()
		switch vec {
		case "compliance":
			return testutil.ToFloat64(m.sloCompliance.WithLabelValues(name, e.windowLabel))
		case "burn":
			return testutil.ToFloat64(m.sloBurn.WithLabelValues(name, e.windowLabel))
		default:
			return testutil.ToFloat64(m.sloBudget.WithLabelValues(name, e.windowLabel))
		}
	}

	// 10 of 100 requests failed: SLI 0.9 against a 0.995 target burns at 20x.
	if got := gauge("compliance", "api_availability"); math.Abs(got-0.9) > 1e-9 {
		t.Fatalf("availability SLI = %v, want 0.9", got)
	}
	if got := gauge("burn", "api_availability"); math.Abs(got-20) > 1e-6 {
		t.Fatalf("availability burn = %v, want 20", got)
	}
	if got := gauge("budget", "api_availability"); got != 0 {
		t.Fatalf("availability budget = %v, want 0 (clamped)", got)
	}

	// The 10 errors also missed the latency budget: SLI 0.9 against 0.95.
	if got := gauge("burn", "api_latency"); math.Abs(got-2) > 1e-6 {
		t.Fatalf("latency burn = %v, want 2", got)
	}

	// 1 of 50 post-commit effects failed: SLI 0.98 against a 0.99 target.
	if got := gauge("compliance", "effect_delivery"); math.Abs(got-0.98) > 1e-9 {
		t.Fatalf("delivery SLI = %v, want 0.98", got)
	}
	if got := gauge("burn", "effect_delivery"); math.Abs(got-2) > 1e-6 {
		t.Fatalf("delivery burn = %v, want 2", got)
	}
}

func TestEvaluateQuietWindowIsCompliant(t *testing.T) {
	m := NewMetrics()
	e := newSLOEvaluator(m, nil)
	e.evaluate()

	for _, name := range []string{"api_availability", "api_latency", "effect_delivery"} {
		if got := testutil.ToFloat64(m.sloCompliance.WithLabelValues(name, e.windowLabel)); got != 1 {
			t.Fatalf("%s compliance = %v, want 1 with no traffic", name, got)
		}
		if got := testutil.ToFloat64(m.sloBurn.WithLabelValues(name, e.windowLabel)); got != 0 {
			t.Fatalf("%s burn = %v, want 0 with no traffic", name, got)
		}
	}
}

func TestFormatWindowLabel(t *testing.T) {
	cases := []struct {
		window time.Duration
		want   string
	}{
		{720 * time.Hour, "30d"},
		{24 * time.Hour, "1d"},
		{6 * time.Hour, "6h"},
		{30 * time.Minute, "30m"},
	}
	for _, tc := range cases {
		if got := formatWindowLabel(tc.window); got != tc.want {
			t.Fatalf("formatWindowLabel(%s) = %q, want %q", tc.window, got, tc.want)
		}
	}
}
