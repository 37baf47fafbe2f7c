package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OccurrenceComputeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "schedule_occurrence_compute_duration_seconds",
			Help:    "Time spent expanding a schedule into concrete occurrences",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 12),
		},
		[]string{"frequency"},
	)

	CompletionsRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "completions_recorded_total",
			Help: "Total number of routine completions recorded",
		},
		[]string{"result"}, // result: recorded, duplicate, failed
	)

	DispositionsApplied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "review_dispositions_applied_total",
			Help: "Total number of review disposition actions applied",
		},
		[]string{"action", "result"}, // action: completed, pushed, missed, archived
	)

	SessionsClosed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "review_sessions_closed_total",
			Help: "Total number of review sessions closed",
		},
	)

	PersistenceFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_persistence_failures_total",
			Help: "Total number of document store write failures",
		},
		[]string{"collection"},
	)

	RemindersPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reminders_published_total",
			Help: "Total number of collaborator reminders published",
		},
		[]string{"status"}, // status: sent, deduplicated, failed
	)

	SweepDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "planner_sweep_duration_seconds",
			Help:    "Duration of planner due-item sweeps",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"sweep"}, // sweep: routines, tasks, goal_reviews
	)

	DueEventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "due_events_published_total",
			Help: "Total number of due events published by the planner",
		},
		[]string{"routing_key"},
	)

	SlowQueries = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "store_slow_query_duration_seconds",
			Help:    "Duration of document store queries over the slow threshold",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 8),
		},
	)
)

// RecordOccurrenceCompute records how long one schedule expansion took.
func RecordOccurrenceCompute(frequency string, duration time.Duration) {
	OccurrenceComputeDuration.WithLabelValues(frequency).Observe(duration.Seconds())
}

// RecordSweep records the duration of one planner sweep.
func RecordSweep(sweep string, duration time.Duration) {
	SweepDuration.WithLabelValues(sweep).Observe(duration.Seconds())
}

// IncrementDisposition increments the disposition counter.
func IncrementDisposition(action, result string) {
	DispositionsApplied.WithLabelValues(action, result).Inc()
}

// IncrementPersistenceFailure increments the persistence failure counter.
func IncrementPersistenceFailure(collection string) {
	PersistenceFailures.WithLabelValues(collection).Inc()
}

// IncrementSlowQuery records one query that exceeded the slow threshold.
func IncrementSlowQuery(duration time.Duration) {
	SlowQueries.Observe(duration.Seconds())
}
