package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated Prometheus registry for the service.
	Registry = prometheus.NewRegistry()

	// HTTPRequests counts requests by method, path, and status.
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
	// HTTPDuration records request durations in seconds.
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "path", "status"},
	)

	// MapSessions gauges how many render pipelines are currently ready.
	MapSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "map_sessions_active", Help: "Map render pipelines currently ready."},
	)
	// MapRebuilds counts wholesale marker layer rebuilds.
	MapRebuilds = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "map_rebuilds_total", Help: "Marker layer rebuilds."},
	)
	// MarkersRendered tracks the working-set size per rebuild.
	MarkersRendered = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "map_markers_rendered", Help: "Markers materialized per rebuild.", Buckets: []float64{1, 5, 10, 25, 50, 100}},
	)
	// BrokerEvents counts record-change events by channel and outcome.
	BrokerEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "broker_events_total", Help: "Record-change events by channel and outcome."},
		[]string{"channel", "outcome"},
	)
)

// RegisterDefault registers collectors to the dedicated registry.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(HTTPRequests)
		Registry.MustRegister(HTTPDuration)
		Registry.MustRegister(MapSessions)
		Registry.MustRegister(MapRebuilds)
		Registry.MustRegister(MarkersRendered)
		Registry.MustRegister(BrokerEvents)
		// Go/process collectors on our registry
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

var regOnce sync.Once
