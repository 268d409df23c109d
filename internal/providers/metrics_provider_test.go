package providers

import (
	"publishd/internal/structures"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withIsolatedRegistry(t *testing.T) {
	t.Helper()
	prevReg := prometheus.DefaultRegisterer
	prevGat := prometheus.DefaultGatherer
	reg := prometheus.NewRegistry()
	prometheus.DefaultRegisterer = reg
	prometheus.DefaultGatherer = reg
	t.Cleanup(func() {
		prometheus.DefaultRegisterer = prevReg
		prometheus.DefaultGatherer = prevGat
	})
}

func TestNoopMetrics_WhenDisabled(t *testing.T) {
	conf := &structures.Config{
		Metrics: structures.MetricsConfig{Enabled: false},
	}
	m := NewMetricsProvider(conf)
	_, ok := m.(*noopMetrics)
	assert.True(t, ok, "should return noopMetrics when disabled")

	m.IncRequestsTotal("/test", 200)
	m.ObserveRequestDuration("/test", time.Millisecond)
	m.IncCacheHits()
	m.IncCacheMisses()
	m.IncBakes("full", true)
	m.ObserveBakeDuration("full", time.Second)
	m.IncDeployAlerts()
	m.SetQueueDepth(3)
	m.ObserveArchivalDuration(time.Second)
	m.AddArchivedVersions("chart", 2)
	m.AddArchivalFailures("chart", 1)
}

func TestMetricsProvider_WhenEnabled(t *testing.T) {
	withIsolatedRegistry(t)

	conf := &structures.Config{
		Metrics: structures.MetricsConfig{Enabled: true},
	}
	m := NewMetricsProvider(conf)
	_, ok := m.(*MetricsProvider)
	assert.True(t, ok, "should return MetricsProvider when enabled")
}

func TestMetricsProvider_CountsBakesAndArchival(t *testing.T) {
	withIsolatedRegistry(t)

	m := NewMetricsProvider(&structures.Config{Metrics: structures.MetricsConfig{Enabled: true}})
	mp, ok := m.(*MetricsProvider)
	require.True(t, ok)

	m.IncBakes("lightning", true)
	m.IncBakes("full", false)
	m.IncBakes("full", false)
	m.IncDeployAlerts()
	m.SetQueueDepth(7)
	m.AddArchivedVersions("chart", 3)
	m.AddArchivedVersions("explorer", 1)
	m.AddArchivalFailures("multidim", 2)

	assert.Equal(t, 1.0, testutil.ToFloat64(mp.bakesTotal.WithLabelValues("lightning", "success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(mp.bakesTotal.WithLabelValues("full", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(mp.deployAlerts))
	assert.Equal(t, 7.0, testutil.ToFloat64(mp.queueDepth))
	assert.Equal(t, 3.0, testutil.ToFloat64(mp.archivedVersions.WithLabelValues("chart")))
	assert.Equal(t, 2.0, testutil.ToFloat64(mp.archivalFailures.WithLabelValues("multidim")))
}

func TestMetricsProvider_HttpCounters(t *testing.T) {
	withIsolatedRegistry(t)

	m := NewMetricsProvider(&structures.Config{Metrics: structures.MetricsConfig{Enabled: true}})
	mp := m.(*MetricsProvider)

	m.IncRequestsTotal("/deploy/changes", 202)
	m.IncRequestsTotal("/deploy/changes", 400)
	m.ObserveRequestDuration("/deploy/changes", 5*time.Millisecond)
	m.IncCacheHits()
	m.IncCacheMisses()

	assert.Equal(t, 1.0, testutil.ToFloat64(mp.requestsTotal.WithLabelValues("/deploy/changes", "2xx")))
	assert.Equal(t, 1.0, testutil.ToFloat64(mp.requestsTotal.WithLabelValues("/deploy/changes", "4xx")))
	assert.Equal(t, 1.0, testutil.ToFloat64(mp.cacheHits))
}

func TestHttpStatusBucket(t *testing.T) {
	tests := []struct {
		code     int
		expected string
	}{
		{100, "1xx"},
		{200, "2xx"},
		{202, "2xx"},
		{301, "3xx"},
		{400, "4xx"},
		{409, "4xx"},
		{500, "5xx"},
		{503, "5xx"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, httpStatusBucket(tt.code))
	}
}
