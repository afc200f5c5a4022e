package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Module fetch outcomes
const (
	OutcomeOK          = "ok"
	OutcomeUnavailable = "unavailable"
	OutcomeError       = "error"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Backend module metrics
	ModuleFetches  *prometheus.CounterVec
	ModuleDuration *prometheus.HistogramVec
	ContextBytes   prometheus.Histogram

	// Upstream metrics
	UpstreamResponses *prometheus.CounterVec
	ActiveStreams     prometheus.Gauge
	RelayedBytes      prometheus.Counter
}

// NewMetrics creates a metrics collector on its own registry, so several
// servers (or tests) can coexist in one process.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aquachat_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "aquachat_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds, including streamed bodies",
				Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"method", "path"},
		),

		ModuleFetches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aquachat_backend_module_fetches_total",
				Help: "Backend module fetches by outcome",
			},
			[]string{"module", "outcome"},
		),
		ModuleDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "aquachat_backend_module_duration_seconds",
				Help:    "Backend module fetch duration in seconds",
				Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 15},
			},
			[]string{"module"},
		),
		ContextBytes: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "aquachat_context_bytes",
				Help:    "Size of the aggregated backend context block",
				Buckets: prometheus.ExponentialBuckets(256, 4, 8),
			},
		),

		UpstreamResponses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aquachat_upstream_responses_total",
				Help: "Upstream completions responses by status code",
			},
			[]string{"status"},
		),
		ActiveStreams: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "aquachat_active_streams",
				Help: "Number of event streams currently being relayed",
			},
		),
		RelayedBytes: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "aquachat_relayed_bytes_total",
				Help: "Event-stream bytes relayed to callers",
			},
		),
	}
}

// Handler serves the registry in Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry (tests gather from it)
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordModuleFetch records one backend module fetch
func (m *Metrics) RecordModuleFetch(module, outcome string, duration time.Duration) {
	m.ModuleFetches.WithLabelValues(module, outcome).Inc()
	m.ModuleDuration.WithLabelValues(module).Observe(duration.Seconds())
}

// RecordContextSize records the aggregated context block size
func (m *Metrics) RecordContextSize(n int) {
	m.ContextBytes.Observe(float64(n))
}

// RecordUpstreamStatus records an upstream response status
func (m *Metrics) RecordUpstreamStatus(status string) {
	m.UpstreamResponses.WithLabelValues(status).Inc()
}

// StreamStarted marks a relay as active and returns its completion hook
func (m *Metrics) StreamStarted() func(relayed int64) {
	m.ActiveStreams.Inc()
	return func(relayed int64) {
		m.ActiveStreams.Dec()
		m.RelayedBytes.Add(float64(relayed))
	}
}
