// Package metrics provides Prometheus metrics for the scoreboard.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every collector the scoreboard records into.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Contest lifecycle
	contestsStarted prometheus.Counter
	scoreUpdates    prometheus.Counter
	contestsEnded   prometheus.Counter
	contestsActive  prometheus.Gauge

	// Summary cache
	summaryRebuilds        prometheus.Counter
	summaryCacheHits       prometheus.Counter
	summaryRebuildDuration prometheus.Histogram

	// Facade operations
	operationLatency *prometheus.HistogramVec
	errorsByKind     *prometheus.CounterVec

	// Feed
	feedPublished  prometheus.Counter
	feedDuplicates prometheus.Counter
	feedRejected   *prometheus.CounterVec

	// Queue
	queueSize          *prometheus.GaugeVec
	queueCapacity      prometheus.Gauge
	queueEnqueued      prometheus.Counter
	queueDequeued      prometheus.Counter
	queueEnqueueErrors *prometheus.CounterVec

	// Workers
	workerCount             prometheus.Gauge
	workerApplied           *prometheus.CounterVec
	workerErrors            *prometheus.CounterVec
	workerProcessingLatency prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Private registry so the scoreboard never collides with the default one.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "scoreboard",
		subsystem:        "live",
		histogramBuckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 50},
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      name,
		Help:      help,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      name,
		Help:      help,
	}
}

func (m *Manager) histogramOpts(name, help string) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      name,
		Help:      help,
		Buckets:   m.histogramBuckets,
	}
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	m.contestsStarted = auto.NewCounter(m.counterOpts("contests_started_total", "Total number of contests started"))
	m.scoreUpdates = auto.NewCounter(m.counterOpts("score_updates_total", "Total number of accepted score updates"))
	m.contestsEnded = auto.NewCounter(m.counterOpts("contests_ended_total", "Total number of contests ended"))
	m.contestsActive = auto.NewGauge(m.gaugeOpts("contests_active", "Number of contests currently in progress"))

	m.summaryRebuilds = auto.NewCounter(m.counterOpts("summary_rebuilds_total", "Total number of summary re-renders"))
	m.summaryCacheHits = auto.NewCounter(m.counterOpts("summary_cache_hits_total", "Total number of summary reads served from a published snapshot"))
	m.summaryRebuildDuration = auto.NewHistogram(m.histogramOpts(
		"summary_rebuild_duration_milliseconds", "Summary re-render duration in milliseconds"))

	m.operationLatency = auto.NewHistogramVec(
		m.histogramOpts("operation_latency_milliseconds", "Scoreboard operation latency in milliseconds"),
		[]string{"operation"},
	)
	m.errorsByKind = auto.NewCounterVec(
		m.counterOpts("errors_total", "Total number of rejected operations by operation and error kind"),
		[]string{"operation", "kind"},
	)

	m.feedPublished = auto.NewCounter(m.counterOpts("feed_published_total", "Total number of feed events accepted for processing"))
	m.feedDuplicates = auto.NewCounter(m.counterOpts("feed_duplicates_total", "Total number of duplicate feed events dropped"))
	m.feedRejected = auto.NewCounterVec(
		m.counterOpts("feed_rejected_total", "Total number of feed events rejected before queueing"),
		[]string{"reason"},
	)

	m.queueSize = auto.NewGaugeVec(m.gaugeOpts("queue_size", "Current number of queued feed events"), []string{"partition"})
	m.queueCapacity = auto.NewGauge(m.gaugeOpts("queue_capacity", "Capacity of each feed partition queue"))
	m.queueEnqueued = auto.NewCounter(m.counterOpts("queue_enqueue_total", "Total number of events enqueued"))
	m.queueDequeued = auto.NewCounter(m.counterOpts("queue_dequeue_total", "Total number of events dequeued"))
	m.queueEnqueueErrors = auto.NewCounterVec(
		m.counterOpts("queue_enqueue_errors_total", "Total number of failed enqueues by reason"),
		[]string{"reason"},
	)

	m.workerCount = auto.NewGauge(m.gaugeOpts("worker_count", "Number of feed workers"))
	m.workerApplied = auto.NewCounterVec(
		m.counterOpts("worker_applied_total", "Total number of feed events applied by kind"),
		[]string{"kind"},
	)
	m.workerErrors = auto.NewCounterVec(
		m.counterOpts("worker_errors_total", "Total number of feed events that failed to apply by kind"),
		[]string{"kind"},
	)
	m.workerProcessingLatency = auto.NewHistogram(m.histogramOpts(
		"worker_processing_latency_milliseconds", "Feed event apply latency in milliseconds"))
}

// RecordContestStarted increments the started contests counter.
func RecordContestStarted() {
	globalManager.contestsStarted.Inc()
}

// RecordScoreUpdated increments the score updates counter.
func RecordScoreUpdated() {
	globalManager.scoreUpdates.Inc()
}

// RecordContestEnded increments the ended contests counter.
func RecordContestEnded() {
	globalManager.contestsEnded.Inc()
}

// AddActiveContests moves the in-progress gauge by delta. Every registry in
// the process contributes to the same gauge.
func AddActiveContests(delta int) {
	globalManager.contestsActive.Add(float64(delta))
}

// RecordSummaryRebuild counts a summary re-render and its duration.
func RecordSummaryRebuild(durationMs float64) {
	globalManager.summaryRebuilds.Inc()
	globalManager.summaryRebuildDuration.Observe(durationMs)
}

// RecordSummaryCacheHit counts a summary read served from a published snapshot.
func RecordSummaryCacheHit() {
	globalManager.summaryCacheHits.Inc()
}

// RecordOperationLatency records the latency of a facade operation.
func RecordOperationLatency(operation string, latencyMs float64) {
	globalManager.operationLatency.WithLabelValues(operation).Observe(latencyMs)
}

// RecordError counts a rejected operation.
func RecordError(operation, kind string) {
	globalManager.errorsByKind.WithLabelValues(operation, kind).Inc()
}

// RecordFeedPublished counts an accepted feed event.
func RecordFeedPublished() {
	globalManager.feedPublished.Inc()
}

// RecordFeedDuplicate counts a dropped duplicate feed event.
func RecordFeedDuplicate() {
	globalManager.feedDuplicates.Inc()
}

// RecordFeedRejected counts a feed event rejected before queueing.
func RecordFeedRejected(reason string) {
	globalManager.feedRejected.WithLabelValues(reason).Inc()
}

// UpdateQueueSize sets the current size of a partition queue.
func UpdateQueueSize(partition string, size int) {
	globalManager.queueSize.WithLabelValues(partition).Set(float64(size))
}

// UpdateQueueCapacity sets the per-partition queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueued.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeued.Inc()
}

// RecordQueueEnqueueError counts a failed enqueue.
func RecordQueueEnqueueError(reason string) {
	globalManager.queueEnqueueErrors.WithLabelValues(reason).Inc()
}

// UpdateWorkerCount sets the number of feed workers.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// RecordWorkerApplied counts an applied feed event.
func RecordWorkerApplied(kind string) {
	globalManager.workerApplied.WithLabelValues(kind).Inc()
}

// RecordWorkerError counts a feed event that failed to apply.
func RecordWorkerError(kind string) {
	globalManager.workerErrors.WithLabelValues(kind).Inc()
}

// RecordWorkerProcessingLatency records feed event apply latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// GetRegistry returns the registry the global manager records into.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
