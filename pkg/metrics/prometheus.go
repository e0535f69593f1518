// Package metrics provides Prometheus metrics for the collection pipeline.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Manager owns all Prometheus collectors for one pipeline process.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         *prometheus.Registry

	// Collection metrics
	sourcesAttempted prometheus.Counter
	sourcesSucceeded prometheus.Counter
	sourcesFailed    prometheus.Counter
	sourceRetries    prometheus.Counter
	sourceDuration   *prometheus.HistogramVec
	eventsCollected  prometheus.Counter

	// Consolidation metrics
	eventsNormalized  prometheus.Counter
	eventsDropped     *prometheus.CounterVec
	categoryUnknown   prometheus.Counter
	variantsLearned   prometheus.Counter
	duplicatesMerged  prometheus.Counter
	quietRemovals     *prometheus.CounterVec
	pipelineDuration  prometheus.Histogram
	scheduleEventsOut prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithRegistry(customRegistry))
}

// NewManager creates a metrics manager with the given options.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "gridfeed",
		subsystem:        "pipeline",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(m)
	}

	factory := promauto.With(m.registry)

	m.sourcesAttempted = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "sources_attempted_total", Help: "Source adapters invoked.",
	})
	m.sourcesSucceeded = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "sources_succeeded_total", Help: "Source adapters that returned events.",
	})
	m.sourcesFailed = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "sources_failed_total", Help: "Source adapters that exhausted retries or were cancelled.",
	})
	m.sourceRetries = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "source_retries_total", Help: "Retry attempts across all sources.",
	})
	m.sourceDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "source_duration_seconds", Help: "Wall-clock duration per source collection.",
		Buckets: m.histogramBuckets,
	}, []string{"source"})
	m.eventsCollected = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "events_collected_total", Help: "Raw events returned by sources.",
	})

	m.eventsNormalized = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "events_normalized_total", Help: "Raw events that passed normalization.",
	})
	m.eventsDropped = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "events_dropped_total", Help: "Events dropped, by reason.",
	}, []string{"reason"})
	m.categoryUnknown = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "category_unknown_total", Help: "Events whose category could not be detected.",
	})
	m.variantsLearned = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "category_variants_learned_total", Help: "Variants added to the category knowledge base.",
	})
	m.duplicatesMerged = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "duplicates_merged_total", Help: "Events collapsed into a canonical record.",
	})
	m.quietRemovals = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "quiet_window_removals_total", Help: "Events removed by quiet windows, by window name.",
	}, []string{"window"})
	m.pipelineDuration = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "run_duration_seconds", Help: "End-to-end pipeline run duration.",
		Buckets: m.histogramBuckets,
	})
	m.scheduleEventsOut = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "schedule_events", Help: "Events in the final exported schedule.",
	})

	return m
}

// Handler exposes the global registry over HTTP.
func Handler() http.Handler {
	return promhttp.HandlerFor(customRegistry, promhttp.HandlerOpts{})
}

// Package-level record helpers acting on the global manager.

func RecordSourceAttempt()  { globalManager.sourcesAttempted.Inc() }
func RecordSourceSuccess()  { globalManager.sourcesSucceeded.Inc() }
func RecordSourceFailure()  { globalManager.sourcesFailed.Inc() }
func RecordSourceRetry()    { globalManager.sourceRetries.Inc() }
func RecordCategoryMiss()   { globalManager.categoryUnknown.Inc() }
func RecordVariantLearned() { globalManager.variantsLearned.Inc() }

func RecordSourceDuration(source string, seconds float64) {
	globalManager.sourceDuration.WithLabelValues(source).Observe(seconds)
}

func RecordEventsCollected(n int) {
	globalManager.eventsCollected.Add(float64(n))
}

func RecordEventNormalized() { globalManager.eventsNormalized.Inc() }

func RecordEventDropped(reason string) {
	globalManager.eventsDropped.WithLabelValues(reason).Inc()
}

func RecordDuplicatesMerged(n int) {
	globalManager.duplicatesMerged.Add(float64(n))
}

func RecordQuietRemoval(window string) {
	globalManager.quietRemovals.WithLabelValues(window).Inc()
}

func RecordRunDuration(seconds float64) {
	globalManager.pipelineDuration.Observe(seconds)
}

func UpdateScheduleEvents(n int) {
	globalManager.scheduleEventsOut.Set(float64(n))
}
