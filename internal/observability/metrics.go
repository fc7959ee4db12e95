package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "station_monitor"

// Metrics holds the Prometheus counters, histograms, and gauges for the monitor.
type Metrics struct {
	SimulationTicks prometheus.Counter
	StationsOnline  prometheus.Gauge

	// Alert metrics.
	AlertsGenerated *prometheus.CounterVec // labels: type={weather,error,offline}, source={generator,manual}
	AlertsResolved  prometheus.Counter
	AlertsPending   prometheus.Gauge

	// History cache metrics.
	HistoryCache  *prometheus.CounterVec // labels: result={hit,miss}
	HistoryPurges prometheus.Counter

	// Scheduler metrics.
	TaskDuration   *prometheus.HistogramVec // labels: task
	SchedulerAlive prometheus.Gauge

	// Event fan-out metrics.
	SSEClients      prometheus.Gauge
	EventsPublished *prometheus.CounterVec // labels: sink={sse,kafka}, outcome={success,error,dropped}

	// Geocoding metrics.
	GeocodeRequests    *prometheus.CounterVec   // labels: method=reverse, outcome={success,error,empty}
	GeocodeAPIDuration *prometheus.HistogramVec // labels: method
	GeocodeEnabled     prometheus.Gauge
}

// NewMetrics creates and registers all monitor metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	m := newMetrics()
	prometheus.NewRegistry().MustRegister(m.collectors()...)
	return m
}

func newMetrics() *Metrics {
	return &Metrics{
		SimulationTicks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "simulation_ticks_total",
			Help:      "Total sensor simulation passes over the station registry.",
		}),
		StationsOnline: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stations_online",
			Help:      "Stations currently reporting status online.",
		}),
		AlertsGenerated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_generated_total",
			Help:      "Alerts raised by type and source.",
		}, []string{"type", "source"}),
		AlertsResolved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_resolved_total",
			Help:      "Alerts transitioned from pending to resolved.",
		}),
		AlertsPending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "alerts_pending",
			Help:      "Alerts currently pending.",
		}),
		HistoryCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "history_cache_total",
			Help:      "Historical series cache lookups by result.",
		}, []string{"result"}),
		HistoryPurges: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "history_cache_purges_total",
			Help:      "Scheduled purges of the historical series cache.",
		}),
		TaskDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "task_duration_seconds",
			Help:      "Duration of a single scheduled task run.",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}, []string{"task"}),
		SchedulerAlive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "scheduler_running",
			Help:      "1 when the scheduler is active, 0 when shut down.",
		}),
		SSEClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sse_clients",
			Help:      "Connected server-sent event clients.",
		}),
		EventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Events handed to a sink by sink and outcome.",
		}, []string{"sink", "outcome"}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_requests_total",
			Help:      "Geocoding API requests by method and outcome.",
		}, []string{"method", "outcome"}),
		GeocodeAPIDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "geocode_api_duration_seconds",
			Help:      "Mapbox API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"method"}),
		GeocodeEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "geocode_enabled",
			Help:      "1 when station address lookup is enabled, 0 otherwise.",
		}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.SimulationTicks,
		m.StationsOnline,
		m.AlertsGenerated,
		m.AlertsResolved,
		m.AlertsPending,
		m.HistoryCache,
		m.HistoryPurges,
		m.TaskDuration,
		m.SchedulerAlive,
		m.SSEClients,
		m.EventsPublished,
		m.GeocodeRequests,
		m.GeocodeAPIDuration,
		m.GeocodeEnabled,
	}
}
