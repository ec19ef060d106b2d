// Package monitoring collects Prometheus metrics for the ingestion path, the
// live channel, and the external collaborators.
package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics.
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Ingestion metrics
	SpansObserved  prometheus.Counter
	SpansRejected  prometheus.Counter
	BaselineKeys   prometheus.Gauge
	RecomputeRuns  *prometheus.CounterVec
	RecomputeTime  prometheus.Histogram
	AnomaliesTotal *prometheus.CounterVec

	// Live channel metrics
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec
	WSDropped     prometheus.Counter

	// Collaborator metrics
	LLMCalls    *prometheus.CounterVec
	LLMDuration prometheus.Histogram

	// System metrics
	Uptime    prometheus.Gauge
	startTime time.Time
}

// NewMetrics creates a new metrics collector.
func NewMetrics() *Metrics {
	m := &Metrics{
		startTime: time.Now(),

		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tracepulse_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tracepulse_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),

		SpansObserved: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "tracepulse_spans_observed_total",
				Help: "Total number of spans fed into the statistics engine",
			},
		),
		SpansRejected: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "tracepulse_spans_rejected_total",
				Help: "Total number of malformed spans rejected at ingestion",
			},
		),
		BaselineKeys: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "tracepulse_baseline_keys",
				Help: "Number of span keys with learned baselines",
			},
		),
		RecomputeRuns: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tracepulse_recompute_runs_total",
				Help: "Total number of baseline recompute runs",
			},
			[]string{"status"},
		),
		RecomputeTime: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "tracepulse_recompute_duration_seconds",
				Help:    "Baseline recompute duration in seconds",
				Buckets: []float64{.1, .5, 1, 5, 10, 30, 60, 120},
			},
		),
		AnomaliesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tracepulse_anomalies_total",
				Help: "Total number of anomalies detected",
			},
			[]string{"severity"},
		),

		WSConnections: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "tracepulse_ws_connections",
				Help: "Number of active live-channel connections",
			},
		),
		WSMessages: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tracepulse_ws_messages_total",
				Help: "Total number of live-channel messages sent",
			},
			[]string{"type"},
		),
		WSDropped: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "tracepulse_ws_dropped_total",
				Help: "Total number of live-channel messages dropped on backpressure",
			},
		),

		LLMCalls: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tracepulse_llm_calls_total",
				Help: "Total number of LLM inference calls",
			},
			[]string{"status"},
		),
		LLMDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "tracepulse_llm_duration_seconds",
				Help:    "LLM inference call duration in seconds",
				Buckets: []float64{.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
		),

		Uptime: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "tracepulse_uptime_seconds",
				Help: "Backend uptime in seconds",
			},
		),
	}

	go m.updateUptime()

	return m
}

func (m *Metrics) updateUptime() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for range ticker.C {
		m.Uptime.Set(time.Since(m.startTime).Seconds())
	}
}

// RecordHTTPRequest records an HTTP request.
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordAnomaly records a detected anomaly by severity name.
func (m *Metrics) RecordAnomaly(severityName string) {
	m.AnomaliesTotal.WithLabelValues(severityName).Inc()
}

// RecordLLMCall records one inference call outcome.
func (m *Metrics) RecordLLMCall(status string, duration time.Duration) {
	m.LLMCalls.WithLabelValues(status).Inc()
	m.LLMDuration.Observe(duration.Seconds())
}
