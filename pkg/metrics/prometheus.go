// Package metrics provides Prometheus metrics for the quotient service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Lookup sources.
const (
	SourceCache    = "cache"
	SourceUpstream = "upstream"
)

// Manager manages all Prometheus metrics for the quotient service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Ranking
	lookups        *prometheus.CounterVec
	ranked         *prometheus.CounterVec
	spamVerdicts   *prometheus.CounterVec
	scoringLatency prometheus.Histogram

	// Upstream (Neynar)
	upstreamRequests *prometheus.CounterVec
	upstreamLatency  *prometheus.HistogramVec

	// Cache
	cacheHits   prometheus.Counter
	cacheMisses prometheus.Counter
	cacheErrors *prometheus.CounterVec

	// Check-in and share gate
	checkIns     *prometheus.CounterVec
	shareToggles *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Leaderboard repository
	leaderboardUpdates      prometheus.Counter
	repositoryRecordsTotal  prometheus.Gauge
	repositoryUpdateLatency prometheus.Histogram
	repositoryQueryLatency  prometheus.Histogram

	// Refresh queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueUtilization   prometheus.Gauge
	queueEnqueueRate   prometheus.Counter
	queueDequeueRate   prometheus.Counter
	queueEnqueueErrors prometheus.Counter

	// Refresh workers
	workerCount             prometheus.Gauge
	workerActiveCount       prometheus.Gauge
	workerIdleCount         prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrorRate         prometheus.Counter

	// Errors
	errorRateByComponent *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "quotient",
		subsystem:        "engine",
		histogramBuckets: prometheus.DefBuckets,
		customLabels:     make(map[string]string),
		metricPrefix:     "",
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// name applies the optional metric prefix.
func (m *Manager) name(n string) string {
	if m.metricPrefix == "" {
		return n
	}
	return m.metricPrefix + "_" + n
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.customLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.customLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.customLabels,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		Buckets:     buckets,
		ConstLabels: m.customLabels,
	})
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		Buckets:     m.histogramBuckets,
		ConstLabels: m.customLabels,
	}, labels)
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	// Ranking
	m.lookups = m.counterVec("profile_lookups_total", "Profile lookups by source (cache or upstream)", "source")
	m.ranked = m.counterVec("ranked_total", "Quotient computations by resulting tier", "tier")
	m.spamVerdicts = m.counterVec("spam_verdicts_total", "Spam verdicts by confidence", "confidence")
	m.scoringLatency = m.histogram("scoring_latency_milliseconds", "Time spent in the ranking engine in milliseconds", m.histogramBuckets)

	// Upstream
	m.upstreamRequests = m.counterVec("upstream_requests_total", "Neynar requests by endpoint and outcome", "endpoint", "outcome")
	m.upstreamLatency = m.histogramVec("upstream_latency_milliseconds", "Neynar request latency in milliseconds", "endpoint")

	// Cache
	m.cacheHits = m.counter("cache_hits_total", "Profile cache hits")
	m.cacheMisses = m.counter("cache_misses_total", "Profile cache misses")
	m.cacheErrors = m.counterVec("cache_errors_total", "Profile cache failures by operation", "operation")

	// Check-in and share gate
	m.checkIns = m.counterVec("checkins_total", "Advisory check-in operations by outcome", "outcome")
	m.shareToggles = m.counterVec("share_toggles_total", "Public share preference changes", "enabled")

	// HTTP
	m.httpRequests = m.counterVec("http_requests_total", "Total number of HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration in milliseconds", "endpoint", "method", "status_code")

	// Leaderboard repository
	m.leaderboardUpdates = m.counter("leaderboard_updates_total", "Total number of leaderboard upserts")
	m.repositoryRecordsTotal = m.gauge("repository_records_total", "Number of profiles on the leaderboard")
	m.repositoryUpdateLatency = m.histogram("repository_update_latency_milliseconds", "Leaderboard update latency in milliseconds", m.histogramBuckets)
	m.repositoryQueryLatency = m.histogram("repository_query_latency_milliseconds", "Leaderboard query latency in milliseconds", m.histogramBuckets)

	// Refresh queue
	m.queueSize = m.gauge("queue_size", "Current size of the refresh queue")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum refresh queue capacity")
	m.queueUtilization = m.gauge("queue_utilization_ratio", "Refresh queue utilization ratio (size / capacity)")
	m.queueEnqueueRate = m.counter("queue_enqueue_total", "Total number of refresh requests enqueued")
	m.queueDequeueRate = m.counter("queue_dequeue_total", "Total number of refresh requests dequeued")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Refresh requests rejected by backpressure")

	// Refresh workers
	m.workerCount = m.gauge("worker_count", "Configured number of refresh workers")
	m.workerActiveCount = m.gauge("worker_active_count", "Number of workers processing a request")
	m.workerIdleCount = m.gauge("worker_idle_count", "Number of idle workers")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds", "Refresh processing latency in milliseconds", m.histogramBuckets)
	m.workerErrorRate = m.counter("worker_errors_total", "Total number of failed refreshes")

	// Errors
	m.errorRateByComponent = m.counterVec("errors_by_component_total", "Total number of errors by component", "component", "error_type")
	m.errorRateByEndpoint = m.counterVec("errors_by_endpoint_total", "Total number of errors by endpoint", "endpoint", "method", "error_type")

	// System
	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "System memory usage in bytes")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_time_milliseconds", "GC pause time in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000})
}

// RecordLookup counts a profile lookup served from source.
func RecordLookup(source string) {
	globalManager.lookups.WithLabelValues(source).Inc()
}

// RecordRanked counts a ranking result for tier.
func RecordRanked(tier string) {
	globalManager.ranked.WithLabelValues(tier).Inc()
}

// RecordSpamVerdict counts a spam verdict.
func RecordSpamVerdict(confidence string) {
	globalManager.spamVerdicts.WithLabelValues(confidence).Inc()
}

// RecordScoringLatency records scoring latency in milliseconds.
func RecordScoringLatency(latencyMs float64) {
	globalManager.scoringLatency.Observe(latencyMs)
}

// RecordUpstreamRequest records one Neynar call.
func RecordUpstreamRequest(endpoint, outcome string, latencyMs float64) {
	globalManager.upstreamRequests.WithLabelValues(endpoint, outcome).Inc()
	globalManager.upstreamLatency.WithLabelValues(endpoint).Observe(latencyMs)
}

// RecordCacheHit increments the cache hit counter.
func RecordCacheHit() {
	globalManager.cacheHits.Inc()
}

// RecordCacheMiss increments the cache miss counter.
func RecordCacheMiss() {
	globalManager.cacheMisses.Inc()
}

// RecordCacheError counts a failed cache operation.
func RecordCacheError(operation string) {
	globalManager.cacheErrors.WithLabelValues(operation).Inc()
}

// RecordCheckIn counts a check-in operation (recorded, already, cleared).
func RecordCheckIn(outcome string) {
	globalManager.checkIns.WithLabelValues(outcome).Inc()
}

// RecordShareToggle counts a change to the public share preference.
func RecordShareToggle(enabled bool) {
	v := "false"
	if enabled {
		v = "true"
	}
	globalManager.shareToggles.WithLabelValues(v).Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// Repository Metrics Functions.

// RecordLeaderboardUpdate increments the leaderboard updates counter.
func RecordLeaderboardUpdate() {
	globalManager.leaderboardUpdates.Inc()
}

// UpdateRepositoryRecordsTotal sets the number of ranked profiles.
func UpdateRepositoryRecordsTotal(count int) {
	globalManager.repositoryRecordsTotal.Set(float64(count))
}

// RecordRepositoryUpdateLatency records repository update operation latency.
func RecordRepositoryUpdateLatency(latencyMs float64) {
	globalManager.repositoryUpdateLatency.Observe(latencyMs)
}

// RecordRepositoryQueryLatency records repository query operation latency.
func RecordRepositoryQueryLatency(latencyMs float64) {
	globalManager.repositoryQueryLatency.Observe(latencyMs)
}

// Queue Metrics Functions.

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtilization.Set(utilization)
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueueRate.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeueRate.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// Worker Metrics Functions.

// UpdateWorkerCount sets the configured worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// UpdateWorkerActiveCount sets the number of active workers.
func UpdateWorkerActiveCount(count int) {
	globalManager.workerActiveCount.Set(float64(count))
}

// UpdateWorkerIdleCount sets the number of idle workers.
func UpdateWorkerIdleCount(count int) {
	globalManager.workerIdleCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrorRate.Inc()
}

// Error Metrics Functions.

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// System Performance Metrics Functions.

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
