package observability

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns its registry so tests can build isolated instances without
// duplicate-registration panics on the global default.
type Metrics struct {
	registry *prometheus.Registry

	apiRequests *prometheus.CounterVec
	apiLatency  *prometheus.HistogramVec
	apiInflight prometheus.Gauge

	workflowTransitions *prometheus.CounterVec
	connectionEvents    *prometheus.CounterVec
	passportEvents      *prometheus.CounterVec
	asyncFailures       *prometheus.CounterVec

	sloCompliance *prometheus.GaugeVec
	sloBudget     *prometheus.GaugeVec
	sloBurn       *prometheus.GaugeVec

	// Plain totals feeding the SLO evaluator; the vectors above serve
	// scrapes, these serve the in-process rolling windows.
	apiReqTotal   atomicCounter
	apiReqError   atomicCounter
	apiReqGood    atomicCounter
	effectsTotal  atomicCounter
	effectsFailed atomicCounter

	latencyBudget time.Duration
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	m := &Metrics{
		registry: registry,
		apiRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "passport_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		apiLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "passport_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		apiInflight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "passport_http_inflight_requests",
			Help: "In-flight HTTP requests",
		}),
		workflowTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "passport_workflow_transitions_total",
			Help: "Contribution request state transitions",
		}, []string{"transition"}),
		connectionEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "passport_connection_events_total",
			Help: "Brand-supplier connection lifecycle events",
		}, []string{"event"}),
		passportEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "passport_passport_events_total",
			Help: "Passport publish/archive/view events",
		}, []string{"event"}),
		asyncFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "passport_async_failures_total",
			Help: "Failed fire-and-forget side effects by kind",
		}, []string{"kind"}),
		sloCompliance: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "passport_slo_compliance_ratio",
			Help: "Measured SLI over the rolling window",
		}, []string{"slo", "window"}),
		sloBudget: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "passport_slo_error_budget_remaining",
			Help: "Remaining error budget fraction over the rolling window",
		}, []string{"slo", "window"}),
		sloBurn: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "passport_slo_burn_rate",
			Help: "Error budget burn rate over the rolling window",
		}, []string{"slo", "window"}),
		latencyBudget: parseDurationMillis("API_LATENCY_BUDGET_MS", 500),
	}
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveRequest(method, route string, status int, dur time.Duration) {
	if m == nil {
		return
	}
	m.apiRequests.WithLabelValues(method, route, statusLabel(status)).Inc()
	m.apiLatency.WithLabelValues(method, route).Observe(dur.Seconds())

	m.apiReqTotal.Inc()
	if status >= 500 {
		m.apiReqError.Inc()
	} else if dur <= m.latencyBudget {
		m.apiReqGood.Inc()
	}
}

func (m *Metrics) InflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) InflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

func (m *Metrics) RecordWorkflowTransition(transition string) {
	if m == nil || transition == "" {
		return
	}
	m.workflowTransitions.WithLabelValues(transition).Inc()
}

func (m *Metrics) RecordConnectionEvent(event string) {
	if m == nil || event == "" {
		return
	}
	m.connectionEvents.WithLabelValues(event).Inc()
}

func (m *Metrics) RecordPassportEvent(event string) {
	if m == nil || event == "" {
		return
	}
	m.passportEvents.WithLabelValues(event).Inc()
}

func (m *Metrics) RecordAsyncFailure(kind string) {
	if m == nil || kind == "" {
		return
	}
	m.asyncFailures.WithLabelValues(kind).Inc()
	m.effectsTotal.Inc()
	m.effectsFailed.Inc()
}

// RecordAsyncSuccess feeds the delivery SLO's rolling totals; successes have
// no per-kind counter because only failures are worth alerting on.
func (m *Metrics) RecordAsyncSuccess() {
	if m == nil {
		return
	}
	m.effectsTotal.Inc()
}

type atomicCounter struct {
	v atomic.Uint64
}

func (c *atomicCounter) Inc() {
	c.v.Add(1)
}

func (c *atomicCounter) Value() float64 {
	return float64(c.v.Load())
}

func statusLabel(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}

func parseDurationMillis(key string, def int) time.Duration {
	raw := getEnv(key)
	if raw == "" {
		return time.Duration(def) * time.Millisecond
	}
	if v, err := strconvParseFloat(raw); err == nil && v > 0 {
		return time.Duration(v * float64(time.Millisecond))
	}
	return time.Duration(def) * time.Millisecond
}
