package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the scheduling engine.
// Tracks materialization throughput, mutation outcomes, and the data
// integrity warnings the engine skips over.
type Metrics struct {
	OccurrencesMaterialized prometheus.Counter
	MaterializeDuration     prometheus.Histogram
	IntegrityWarnings       prometheus.Counter
	DanglingDependencies    prometheus.Counter
	CompletionsRecorded     prometheus.Counter
	CompletionConflicts     prometheus.Counter
	StaleViewsServed        prometheus.Counter
	OccurrencesDuration     prometheus.Histogram
}

// New creates a new Metrics instance with all schedule module metrics registered.
func New() *Metrics {
	return &Metrics{
		OccurrencesMaterialized: promauto.NewCounter(prometheus.CounterOpts{
			Name: "stride_occurrences_materialized_total",
			Help: "Total number of occurrences produced by materialization runs",
		}),
		MaterializeDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "stride_materialize_duration_seconds",
			Help:    "Duration of a full aggregate/resolve/sort pipeline run",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		IntegrityWarnings: promauto.NewCounter(prometheus.CounterOpts{
			Name: "stride_integrity_warnings_total",
			Help: "Total number of malformed routines skipped during materialization",
		}),
		DanglingDependencies: promauto.NewCounter(prometheus.CounterOpts{
			Name: "stride_dangling_dependencies_total",
			Help: "Total number of dependency references to tasks absent from the snapshot",
		}),
		CompletionsRecorded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "stride_completions_recorded_total",
			Help: "Total number of completion mutations persisted",
		}),
		CompletionConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "stride_completion_conflicts_total",
			Help: "Total number of version conflicts hit while persisting completions",
		}),
		StaleViewsServed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "stride_stale_views_served_total",
			Help: "Total number of worklist reads answered from a retained snapshot after a fetch failure",
		}),
		OccurrencesDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "stride_occurrences_duration_seconds",
			Help:    "Duration of Occurrences requests including repository fetches",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
	}
}

// ObserveMaterialize records the duration of one pipeline run.
// Call with time.Now() at the start of the run.
func (m *Metrics) ObserveMaterialize(start time.Time) {
	m.MaterializeDuration.Observe(time.Since(start).Seconds())
}

// ObserveOccurrences records the duration of an Occurrences request.
func (m *Metrics) ObserveOccurrences(start time.Time) {
	m.OccurrencesDuration.Observe(time.Since(start).Seconds())
}
