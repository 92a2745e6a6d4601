package metrics

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// BusinessMetricsRegistry tracks scheduling-domain business metrics: queue
// generations, scheduler invocations by technique, and feedback
// submit/commit/stage volume. Grounded on the teacher's
// BusinessMetricsRegistry shape (one CounterVec/GaugeVec per concern,
// registered once at construction, mutex-guarded recording methods).
type BusinessMetricsRegistry struct {
	// Queue generation
	queueGenerations      *prometheus.CounterVec
	queueEntriesGenerated *prometheus.CounterVec
	activeQueueSize       *prometheus.GaugeVec

	// Scheduler invocations
	schedulerInvocations *prometheus.CounterVec
	schedulerFailures    *prometheus.CounterVec

	// Feedback pipeline
	feedbackCommitted    prometheus.Counter
	feedbackStaged       prometheus.Counter
	feedbackCleared      prometheus.Counter
	feedbackPerTuneErrors *prometheus.CounterVec

	registry *prometheus.Registry
	mu       sync.RWMutex
}

// NewBusinessMetricsRegistry creates and registers all business metrics.
func NewBusinessMetricsRegistry() *BusinessMetricsRegistry {
	registry := prometheus.NewRegistry()

	b := &BusinessMetricsRegistry{
		registry: registry,
	}

	b.registerMetrics()
	return b
}

// registerMetrics registers all business metric collectors
func (b *BusinessMetricsRegistry) registerMetrics() {
	// Queue generation counter: tracks get_queue/refill_queue invocations by
	// mode ("generate", "force_regen", "refill").
	b.queueGenerations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tunetrees_queue_generations_total",
			Help: "Total queue generation invocations by mode",
		},
		[]string{"mode"},
	)
	b.registry.MustRegister(b.queueGenerations)

	// Queue entries generated counter: tracks candidates placed, by bucket.
	b.queueEntriesGenerated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tunetrees_queue_entries_generated_total",
			Help: "Total queue entries generated, by bucket",
		},
		[]string{"bucket"},
	)
	b.registry.MustRegister(b.queueEntriesGenerated)

	// Active queue size gauge: current active daily_practice_queue rows per
	// playlist.
	b.activeQueueSize = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tunetrees_active_queue_size",
			Help: "Current active queue size by playlist",
		},
		[]string{"playlist_ref"},
	)
	b.registry.MustRegister(b.activeQueueSize)

	// Scheduler invocation counter: tracks Review calls by technique
	// (sm2/fsrs).
	b.schedulerInvocations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tunetrees_scheduler_invocations_total",
			Help: "Total scheduler invocations by technique",
		},
		[]string{"technique"},
	)
	b.registry.MustRegister(b.schedulerInvocations)

	// Scheduler failure counter: algorithm errors, fatal for that tune only
	// (spec §7 Algorithm error kind).
	b.schedulerFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tunetrees_scheduler_failures_total",
			Help: "Total scheduler invocation failures by technique",
		},
		[]string{"technique"},
	)
	b.registry.MustRegister(b.schedulerFailures)

	b.feedbackCommitted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tunetrees_feedback_committed_total",
		Help: "Total tunes committed via submit_feedback",
	})
	b.registry.MustRegister(b.feedbackCommitted)

	b.feedbackStaged = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tunetrees_feedback_staged_total",
		Help: "Total tunes staged via submit_feedback",
	})
	b.registry.MustRegister(b.feedbackStaged)

	b.feedbackCleared = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tunetrees_feedback_cleared_total",
		Help: "Total staged tunes cleared via a clear-label submit",
	})
	b.registry.MustRegister(b.feedbackCleared)

	b.feedbackPerTuneErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tunetrees_feedback_per_tune_errors_total",
			Help: "Total per-tune errors from submit_feedback, by reason",
		},
		[]string{"reason"},
	)
	b.registry.MustRegister(b.feedbackPerTuneErrors)
}

// RecordQueueGeneration records one get_queue/refill_queue invocation and
// the bucket distribution of the entries it produced.
func (b *BusinessMetricsRegistry) RecordQueueGeneration(mode string, entriesByBucket map[int]int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.queueGenerations.WithLabelValues(mode).Inc()
	for bucket, count := range entriesByBucket {
		b.queueEntriesGenerated.WithLabelValues(strconv.Itoa(bucket)).Add(float64(count))
	}
}

// SetActiveQueueSize records the current active queue row count for a
// playlist.
func (b *BusinessMetricsRegistry) SetActiveQueueSize(playlistRef int64, size int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.activeQueueSize.WithLabelValues(strconv.FormatInt(playlistRef, 10)).Set(float64(size))
}

// RecordSchedulerInvocation records one Scheduler Facade call and whether
// it failed.
func (b *BusinessMetricsRegistry) RecordSchedulerInvocation(technique string, failed bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.schedulerInvocations.WithLabelValues(technique).Inc()
	if failed {
		b.schedulerFailures.WithLabelValues(technique).Inc()
	}
}

// RecordFeedbackOutcome records one Submit call's result counts.
func (b *BusinessMetricsRegistry) RecordFeedbackOutcome(committed, staged, cleared int, perTuneErrorReasons []string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.feedbackCommitted.Add(float64(committed))
	b.feedbackStaged.Add(float64(staged))
	b.feedbackCleared.Add(float64(cleared))
	for _, reason := range perTuneErrorReasons {
		b.feedbackPerTuneErrors.WithLabelValues(reason).Inc()
	}
}

// GetPrometheusRegistry returns the underlying prometheus.Registry.
func (b *BusinessMetricsRegistry) GetPrometheusRegistry() *prometheus.Registry {
	return b.registry
}
