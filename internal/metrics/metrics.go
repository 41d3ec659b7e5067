// Package metrics exports Prometheus metrics for the audit pipeline.
// All recording methods are safe to call on a nil *Metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "schema_auditor"

// Metrics holds the auditor's Prometheus collectors.
type Metrics struct {
	registry *prometheus.Registry

	// Crawl metrics
	PagesFetched  *prometheus.CounterVec
	FetchErrors   prometheus.Counter
	FetchRetries  prometheus.Counter
	FetchDuration prometheus.Histogram
	RobotsDenied  prometheus.Counter

	// Analysis metrics
	SchemaInstances *prometheus.CounterVec
	IssuesRaised    *prometheus.CounterVec

	// Job metrics
	AuditsFinished *prometheus.CounterVec
	AuditsRunning  prometheus.Gauge
	AuditDuration  prometheus.Histogram
}

// New registers every collector on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	factory := promauto.With(reg)
	m := &Metrics{registry: reg}
	initCrawlMetrics(m, factory)
	initAnalysisMetrics(m, factory)
	initJobMetrics(m, factory)
	return m
}

func initCrawlMetrics(m *Metrics, f promauto.Factory) {
	m.PagesFetched = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "pages_fetched_total",
		Help:      "Pages fetched, by HTTP status class",
	}, []string{"status_class"})

	m.FetchErrors = f.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "fetch_errors_total",
		Help:      "Fetches that failed after all retries",
	})

	m.FetchRetries = f.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "fetch_retries_total",
		Help:      "Fetch attempts repeated after a transient failure",
	})

	m.FetchDuration = f.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "fetch_duration_seconds",
		Help:      "Time to fetch one page including redirects",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
	})

	m.RobotsDenied = f.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "robots_denied_total",
		Help:      "Discovered URLs not enqueued because robots.txt disallows them",
	})
}

func initAnalysisMetrics(m *Metrics, f promauto.Factory) {
	m.SchemaInstances = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "schema_instances_total",
		Help:      "Structured-data instances extracted, by format",
	}, []string{"format"})

	m.IssuesRaised = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "issues_raised_total",
		Help:      "Issues recorded before deduplication, by category",
	}, []string{"category"})
}

func initJobMetrics(m *Metrics, f promauto.Factory) {
	m.AuditsFinished = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audits_finished_total",
		Help:      "Audits that reached a terminal status",
	}, []string{"status"})

	m.AuditsRunning = f.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "audits_running",
		Help:      "Audits currently running",
	})

	m.AuditDuration = f.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "audit_duration_seconds",
		Help:      "Wall-clock duration of finished audits",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
	})
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordFetch counts a fetched page and its duration.
func (m *Metrics) RecordFetch(statusCode int, d time.Duration) {
	if m == nil {
		return
	}
	m.PagesFetched.WithLabelValues(StatusClass(statusCode)).Inc()
	m.FetchDuration.Observe(d.Seconds())
}

// RecordFetchError counts a fetch that exhausted its retries.
func (m *Metrics) RecordFetchError() {
	if m == nil {
		return
	}
	m.FetchErrors.Inc()
}

// RecordRetry counts one retried attempt.
func (m *Metrics) RecordRetry() {
	if m == nil {
		return
	}
	m.FetchRetries.Inc()
}

// RecordRobotsDenied counts a URL skipped because of robots.txt.
func (m *Metrics) RecordRobotsDenied() {
	if m == nil {
		return
	}
	m.RobotsDenied.Inc()
}

// RecordSchemaInstance counts an extracted structured-data block.
func (m *Metrics) RecordSchemaInstance(format string) {
	if m == nil {
		return
	}
	m.SchemaInstances.WithLabelValues(format).Inc()
}

// RecordIssue counts an issue submitted to a registry.
func (m *Metrics) RecordIssue(category string) {
	if m == nil {
		return
	}
	m.IssuesRaised.WithLabelValues(category).Inc()
}

// AuditStarted increments the running gauge.
func (m *Metrics) AuditStarted() {
	if m == nil {
		return
	}
	m.AuditsRunning.Inc()
}

// AuditFinished records a terminal status and the job's duration.
func (m *Metrics) AuditFinished(status string, d time.Duration) {
	if m == nil {
		return
	}
	m.AuditsRunning.Dec()
	m.AuditsFinished.WithLabelValues(status).Inc()
	m.AuditDuration.Observe(d.Seconds())
}

// StatusClass maps 204 to "2xx". Zero and out-of-range codes map to "error".
func StatusClass(code int) string {
	if code < 100 || code > 599 {
		return "error"
	}
	return strconv.Itoa(code/100) + "xx"
}
