package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "migrant_map"

// Metrics holds the Prometheus counters, histograms, and gauges for the map service.
type Metrics struct {
	// Loading metrics.
	RowsLoaded   prometheus.Counter
	RowDefects   *prometheus.CounterVec   // labels: field={coordinates,severity,date}
	LoadDuration *prometheus.HistogramVec // labels: source={dataset,topology}
	LoadFailures *prometheus.CounterVec   // labels: source={dataset,topology}
	LoadersReady prometheus.Gauge

	// Selection and derivation metrics.
	SelectionUpdates *prometheus.CounterVec // labels: kind={set,clear}
	Recomputations   *prometheus.CounterVec // labels: stage={buckets,filter,bubbles,base}
	ActiveRecords    prometheus.Gauge

	// Rendering metrics.
	RenderDuration *prometheus.HistogramVec // labels: view={map,histogram,view,page}
	RenderCache    *prometheus.CounterVec   // labels: result={hit,miss}

	// Selection event stream metrics.
	SelectionEventsPublished prometheus.Counter
	SelectionEventsFailed    prometheus.Counter
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer)
}

// NewMetricsWith creates all metrics and registers them with reg.
func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	m := newMetrics()
	reg.MustRegister(
		m.RowsLoaded,
		m.RowDefects,
		m.LoadDuration,
		m.LoadFailures,
		m.LoadersReady,
		m.SelectionUpdates,
		m.Recomputations,
		m.ActiveRecords,
		m.RenderDuration,
		m.RenderCache,
		m.SelectionEventsPublished,
		m.SelectionEventsFailed,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		RowsLoaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_loaded_total",
			Help:      "Dataset rows accepted after normalization.",
		}),
		RowDefects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "row_defects_total",
			Help:      "Dataset rows dropped, by the first defective field.",
		}, []string{"field"}),
		LoadDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "load_duration_seconds",
			Help:      "Time to fetch and decode a source.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"source"}),
		LoadFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "load_failures_total",
			Help:      "Source fetches that failed.",
		}, []string{"source"}),
		LoadersReady: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "loaders_ready",
			Help:      "1 once both the dataset and the topology are loaded.",
		}),
		SelectionUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "selection_updates_total",
			Help:      "Selection writes by kind.",
		}, []string{"kind"}),
		Recomputations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recomputations_total",
			Help:      "Derived values recomputed after an input changed.",
		}, []string{"stage"}),
		ActiveRecords: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_records",
			Help:      "Records in the current filtered subset.",
		}),
		RenderDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "render_duration_seconds",
			Help:      "SVG and page render duration.",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"view"}),
		RenderCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "render_cache_total",
			Help:      "Bubble layer cache lookups by result.",
		}, []string{"result"}),
		SelectionEventsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "selection_events_published_total",
			Help:      "Selection events written to Kafka.",
		}),
		SelectionEventsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "selection_events_failed_total",
			Help:      "Selection events that could not be written.",
		}),
	}
}
