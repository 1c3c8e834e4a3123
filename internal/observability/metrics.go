package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "venue_map"

// Metrics holds the Prometheus collectors for the proxy and the map surface.
type Metrics struct {
	// Places proxy.
	ProxyRequests       *prometheus.CounterVec // labels: outcome={success,bad_request,unavailable,provider_error,network_error}
	ProviderAPIDuration prometheus.Histogram
	ProviderConfigured  prometheus.Gauge

	// Discovery.
	Resolutions        *prometheus.CounterVec // labels: source={places,venues,none}
	Fallbacks          *prometheus.CounterVec // labels: reason={provider_error,provider_empty}
	ResolutionDuration prometheus.Histogram
	MalformedRecords   prometheus.Counter

	// Map surface.
	LiveMarkers prometheus.Gauge
	DetailLoads *prometheus.CounterVec // labels: outcome={loaded,error,stale}
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.ProxyRequests,
		m.ProviderAPIDuration,
		m.ProviderConfigured,
		m.Resolutions,
		m.Fallbacks,
		m.ResolutionDuration,
		m.MalformedRecords,
		m.LiveMarkers,
		m.DetailLoads,
	)
	return m
}

// NewMetricsForTesting creates Metrics that are not registered anywhere, to
// avoid "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		ProxyRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "proxy_requests_total",
			Help:      "Geo-search requests handled by the places proxy, by outcome.",
		}, []string{"outcome"}),
		ProviderAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_api_duration_seconds",
			Help:      "Upstream places provider request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		ProviderConfigured: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "provider_credential_configured",
			Help:      "1 when the places provider credential is present, 0 otherwise.",
		}),
		Resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolutions_total",
			Help:      "Completed resolution cycles by winning source.",
		}, []string{"source"}),
		Fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallbacks_total",
			Help:      "Resolutions that fell back to the local venue store, by reason.",
		}, []string{"reason"}),
		ResolutionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "resolution_duration_seconds",
			Help:      "Duration of a full resolution including fallback.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		MalformedRecords: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "malformed_records_total",
			Help:      "Records skipped for missing or invalid coordinates.",
		}),
		LiveMarkers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "live_markers",
			Help:      "Markers currently held by mounted map surfaces.",
		}),
		DetailLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "detail_loads_total",
			Help:      "Lazy popup detail loads by outcome.",
		}, []string{"outcome"}),
	}
}
