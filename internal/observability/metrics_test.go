package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetricsForTesting_Independent(t *testing.T) {
	a := NewMetricsForTesting()
	b := NewMetricsForTesting()

	a.Resolutions.WithLabelValues("places").Inc()

	assert.InDelta(t, 1.0, testutil.ToFloat64(a.Resolutions.WithLabelValues("places")), 1e-9)
	assert.InDelta(t, 0.0, testutil.ToFloat64(b.Resolutions.WithLabelValues("places")), 1e-9)
}

func TestMetrics_RegisterOnFreshRegistry(t *testing.T) {
	m := NewMetricsForTesting()
	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(m.ProxyRequests))
	require.NoError(t, reg.Register(m.LiveMarkers))

	m.ProxyRequests.WithLabelValues("success").Add(2)
	m.LiveMarkers.Set(3)

	assert.InDelta(t, 2.0, testutil.ToFloat64(m.ProxyRequests.WithLabelValues("success")), 1e-9)
	assert.InDelta(t, 3.0, testutil.ToFloat64(m.LiveMarkers), 1e-9)
}
