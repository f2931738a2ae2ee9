package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the reporting API. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	// Report metrics
	ReportRequests *prometheus.CounterVec
	ReportLatency  *prometheus.HistogramVec
	ReportRows     *prometheus.HistogramVec
	SnapshotLoad   prometheus.Histogram

	// Attribution metrics
	UnattributedSales prometheus.Counter
	UnattributedValue prometheus.Counter

	// Cache metrics
	CacheLookups *prometheus.CounterVec

	// HTTP metrics
	HTTPRequests  *prometheus.CounterVec
	HTTPLatency   *prometheus.HistogramVec
	RateLimitHits *prometheus.CounterVec

	// System metrics
	DBConnections *prometheus.GaugeVec
}

// NewMetrics creates all metrics and registers them with reg.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ReportRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "report_requests_total",
				Help:      "Report computations by kind, level and outcome",
			},
			[]string{"kind", "level", "status"},
		),
		ReportLatency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "report_latency_seconds",
				Help:      "Report computation latency in seconds, snapshot load included",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
			},
			[]string{"kind"},
		),
		ReportRows: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "report_rows",
				Help:      "Ranked rows produced per report before top-K",
				Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
			},
			[]string{"kind", "level"},
		),
		SnapshotLoad: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "snapshot_load_seconds",
				Help:      "Time to load every collection a report needs",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
		),

		UnattributedSales: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "unattributed_sales_total",
				Help:      "Delivered sales dropped from campaign attribution because their creative is orphaned",
			},
		),
		UnattributedValue: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "unattributed_sales_value_total",
				Help:      "Value of delivered sales dropped from campaign attribution",
			},
		),

		CacheLookups: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "report_cache_lookups_total",
				Help:      "Report cache lookups by result",
			},
			[]string{"result"},
		),

		HTTPRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests by route and status code",
			},
			[]string{"method", "route", "status"},
		),
		HTTPLatency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		RateLimitHits: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limit_hits_total",
				Help:      "Requests rejected by the rate limiter",
			},
			[]string{"endpoint"},
		),

		DBConnections: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "db_connections",
				Help:      "PostgreSQL pool connections by state",
			},
			[]string{"state"},
		),
	}
}

// Handler returns the Prometheus metrics HTTP handler for g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// RecordReport records one report computation.
func (m *Metrics) RecordReport(kind, level string, err error, latency time.Duration) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.ReportRequests.WithLabelValues(kind, level, status).Inc()
	m.ReportLatency.WithLabelValues(kind).Observe(latency.Seconds())
}

// RecordReportRows records the number of ranked rows a report produced.
func (m *Metrics) RecordReportRows(kind, level string, rows int) {
	if m == nil {
		return
	}
	m.ReportRows.WithLabelValues(kind, level).Observe(float64(rows))
}

// RecordSnapshotLoad records how long loading a snapshot took.
func (m *Metrics) RecordSnapshotLoad(latency time.Duration) {
	if m == nil {
		return
	}
	m.SnapshotLoad.Observe(latency.Seconds())
}

// RecordUnattributed records delivered sales that could not be rolled up to a
// campaign.
func (m *Metrics) RecordUnattributed(count int, value float64) {
	if m == nil || count == 0 {
		return
	}
	m.UnattributedSales.Add(float64(count))
	m.UnattributedValue.Add(value)
}

// RecordCacheLookup records a cache hit, miss or error.
func (m *Metrics) RecordCacheLookup(result string) {
	if m == nil {
		return
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}

// RecordHTTPRequest records a served request.
func (m *Metrics) RecordHTTPRequest(method, route string, status int, latency time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPLatency.WithLabelValues(method, route).Observe(latency.Seconds())
}

// RecordRateLimitHit records a rate limit hit.
func (m *Metrics) RecordRateLimitHit(endpoint string) {
	if m == nil {
		return
	}
	m.RateLimitHits.WithLabelValues(endpoint).Inc()
}

// UpdateDBStats updates database connection metrics.
func (m *Metrics) UpdateDBStats(idle, inUse, total int) {
	if m == nil {
		return
	}
	m.DBConnections.WithLabelValues("idle").Set(float64(idle))
	m.DBConnections.WithLabelValues("in_use").Set(float64(inUse))
	m.DBConnections.WithLabelValues("total").Set(float64(total))
}
