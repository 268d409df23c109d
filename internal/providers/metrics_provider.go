package providers

import (
	"publishd/internal/structures"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type MetricsProviderInterface interface {
	IncRequestsTotal(endpoint string, status int)
	ObserveRequestDuration(endpoint string, duration time.Duration)
	IncCacheHits()
	IncCacheMisses()
	IncBakes(kind string, success bool)
	ObserveBakeDuration(kind string, duration time.Duration)
	IncDeployAlerts()
	SetQueueDepth(count int)
	ObserveArchivalDuration(duration time.Duration)
	AddArchivedVersions(kind string, count int)
	AddArchivalFailures(kind string, count int)
}

type MetricsProvider struct {
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	cacheHits        prometheus.Counter
	cacheMisses      prometheus.Counter
	bakesTotal       *prometheus.CounterVec
	bakeDuration     *prometheus.HistogramVec
	deployAlerts     prometheus.Counter
	queueDepth       prometheus.Gauge
	archivalDuration prometheus.Histogram
	archivedVersions *prometheus.CounterVec
	archivalFailures *prometheus.CounterVec
}

func (m *MetricsProvider) IncRequestsTotal(endpoint string, status int) {
	m.requestsTotal.WithLabelValues(endpoint, httpStatusBucket(status)).Inc()
}

func (m *MetricsProvider) ObserveRequestDuration(endpoint string, duration time.Duration) {
	m.requestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

func (m *MetricsProvider) IncCacheHits() {
	m.cacheHits.Inc()
}

func (m *MetricsProvider) IncCacheMisses() {
	m.cacheMisses.Inc()
}

func (m *MetricsProvider) IncBakes(kind string, success bool) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	m.bakesTotal.WithLabelValues(kind, outcome).Inc()
}

func (m *MetricsProvider) ObserveBakeDuration(kind string, duration time.Duration) {
	m.bakeDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

func (m *MetricsProvider) IncDeployAlerts() {
	m.deployAlerts.Inc()
}

func (m *MetricsProvider) SetQueueDepth(count int) {
	m.queueDepth.Set(float64(count))
}

func (m *MetricsProvider) ObserveArchivalDuration(duration time.Duration) {
	m.archivalDuration.Observe(duration.Seconds())
}

func (m *MetricsProvider) AddArchivedVersions(kind string, count int) {
	m.archivedVersions.WithLabelValues(kind).Add(float64(count))
}

func (m *MetricsProvider) AddArchivalFailures(kind string, count int) {
	m.archivalFailures.WithLabelValues(kind).Add(float64(count))
}

func httpStatusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}

// bakeBuckets span a lightning bake of a few seconds up to a full site bake.
var bakeBuckets = []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200, 2400}

func NewMetricsProvider(conf *structures.Config) MetricsProviderInterface {
	if !conf.Metrics.Enabled {
		return &noopMetrics{}
	}

	return &MetricsProvider{
		requestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "publishd_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"endpoint", "status"}),

		requestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "publishd_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),

		cacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "publishd_cache_hits_total",
			Help: "Total number of cache hits",
		}),

		cacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "publishd_cache_misses_total",
			Help: "Total number of cache misses",
		}),

		bakesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "publishd_bakes_total",
			Help: "Bake attempts by kind and outcome",
		}, []string{"kind", "outcome"}),

		bakeDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "publishd_bake_duration_seconds",
			Help:    "Duration of bake attempts in seconds",
			Buckets: bakeBuckets,
		}, []string{"kind"}),

		deployAlerts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "publishd_deploy_alerts_total",
			Help: "Number of times the deploy loop gave up after successive failures",
		}),

		queueDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "publishd_deploy_queue_depth",
			Help: "Changes consumed by the most recent deploy attempt",
		}),

		archivalDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "publishd_archival_duration_seconds",
			Help:    "Duration of archival runs in seconds",
			Buckets: prometheus.DefBuckets,
		}),

		archivedVersions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "publishd_archived_versions_total",
			Help: "Archived versions written, by entity kind",
		}, []string{"kind"}),

		archivalFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "publishd_archival_failures_total",
			Help: "Entities skipped during archival because of errors, by kind",
		}, []string{"kind"}),
	}
}

// noopMetrics is used when metrics are disabled.
type noopMetrics struct{}

func (n *noopMetrics) IncRequestsTotal(_ string, _ int)                 {}
func (n *noopMetrics) ObserveRequestDuration(_ string, _ time.Duration) {}
func (n *noopMetrics) IncCacheHits()                                    {}
func (n *noopMetrics) IncCacheMisses()                                  {}
func (n *noopMetrics) IncBakes(_ string, _ bool)                        {}
func (n *noopMetrics) ObserveBakeDuration(_ string, _ time.Duration)    {}
func (n *noopMetrics) IncDeployAlerts()                                 {}
func (n *noopMetrics) SetQueueDepth(_ int)                              {}
func (n *noopMetrics) ObserveArchivalDuration(_ time.Duration)          {}
func (n *noopMetrics) AddArchivedVersions(_ string, _ int)              {}
func (n *noopMetrics) AddArchivalFailures(_ string, _ int)              {}
