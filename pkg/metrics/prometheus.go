// Package metrics provides Prometheus metrics for the trustgate triage service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// scoreBuckets cover the [0,1] trust score range.
var scoreBuckets = []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0} //nolint:gochecknoglobals // fixed bucket layout

// Manager manages all Prometheus metrics for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Ingestion
	itemsReceived  prometheus.Counter
	itemsDuplicate prometheus.Counter
	itemsMalformed prometheus.Counter
	dispositions   *prometheus.CounterVec
	itemFailures   *prometheus.CounterVec
	batchLatency   prometheus.Histogram

	// Reasoning service
	reasoningLatency   prometheus.Histogram
	reasoningRequests  *prometheus.CounterVec
	reasoningFallbacks *prometheus.CounterVec
	ruleHits           *prometheus.CounterVec

	// Trust scoring
	recalculations      *prometheus.CounterVec
	recalculationErrors prometheus.Counter
	recalcLatency       prometheus.Histogram
	trustScores         prometheus.Histogram
	ratings             *prometheus.CounterVec
	totalEntries        prometheus.Gauge

	// Audit
	auditWrites      *prometheus.CounterVec
	auditWriteErrors prometheus.Counter

	// Dedupe cache
	dedupeCacheSize prometheus.Gauge

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Queue
	queueSize              prometheus.Gauge
	queueCapacity          prometheus.Gauge
	queueUtilization       prometheus.Gauge
	queueEnqueueRate       prometheus.Counter
	queueDequeueRate       prometheus.Counter
	queueEnqueueErrors     prometheus.Counter
	queueProcessingLatency prometheus.Histogram

	// Workers
	workerCount             prometheus.Gauge
	workerActiveCount       prometheus.Gauge
	workerMessagesPerSecond prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrorRate         prometheus.Counter

	// Errors
	errorRateByComponent *prometheus.CounterVec
	errorRateByType      *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec
	errorLatency         *prometheus.HistogramVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "trustgate",
		subsystem:        "triage",
		histogramBuckets: prometheus.DefBuckets,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

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
	m.itemsReceived = m.counter("items_received_total", "Total number of candidate items received")
	m.itemsDuplicate = m.counter("items_duplicate_total", "Total number of candidate items dropped as duplicates")
	m.itemsMalformed = m.counter("items_malformed_total", "Total number of candidate items dropped as malformed")
	m.dispositions = m.counterVec("dispositions_total", "Triage outcomes by disposition", "disposition")
	m.itemFailures = m.counterVec("item_failures_total", "Items that could not be processed, by reason", "reason")
	m.batchLatency = m.histogram("batch_latency_milliseconds", "End-to-end batch processing latency in milliseconds",
		[]float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000, 60000})

	m.reasoningLatency = m.histogram("reasoning_latency_milliseconds", "Reasoning service call latency in milliseconds",
		[]float64{100, 250, 500, 1000, 2000, 4000, 8000, 15000, 30000})
	m.reasoningRequests = m.counterVec("reasoning_requests_total", "Reasoning service calls by HTTP status", "status")
	m.reasoningFallbacks = m.counterVec("reasoning_fallbacks_total", "Conservative fallbacks by cause", "reason")
	m.ruleHits = m.counterVec("safety_rule_hits_total", "Safety rules that raised a flag", "rule")

	m.recalculations = m.counterVec("recalculations_total", "Trust score recalculations by trigger", "reason")
	m.recalculationErrors = m.counter("recalculation_errors_total", "Trust score recalculations that failed")
	m.recalcLatency = m.histogram("recalculation_latency_milliseconds", "Trust score recalculation latency in milliseconds", m.histogramBuckets)
	m.trustScores = m.histogram("trust_score", "Distribution of recalculated trust scores", scoreBuckets)
	m.ratings = m.counterVec("ratings_total", "Community ratings by outcome", "outcome")
	m.totalEntries = m.gauge("knowledge_entries", "Number of knowledge entries")

	m.auditWrites = m.counterVec("audit_writes_total", "Audit entries written by operation", "operation")
	m.auditWriteErrors = m.counter("audit_write_errors_total", "Audit writes that failed and aborted their operation")

	m.dedupeCacheSize = m.gauge("dedupe_cache_size", "Fingerprints currently held in the dedupe window")

	m.httpRequests = m.counterVec("http_requests_total", "Total number of HTTP requests by endpoint and method",
		"endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration in milliseconds",
		"endpoint", "method", "status_code")

	m.queueSize = m.gauge("queue_size", "Current size of the recalculation queue")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum queue capacity")
	m.queueUtilization = m.gauge("queue_utilization_ratio", "Queue utilization ratio (current size / capacity)")
	m.queueEnqueueRate = m.counter("queue_enqueue_total", "Total number of jobs enqueued")
	m.queueDequeueRate = m.counter("queue_dequeue_total", "Total number of jobs dequeued")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Total number of enqueue errors")
	m.queueProcessingLatency = m.histogram("queue_processing_latency_milliseconds", "Queue enqueue latency in milliseconds", m.histogramBuckets)

	m.workerCount = m.gauge("worker_count", "Configured number of recalculation workers")
	m.workerActiveCount = m.gauge("worker_active_count", "Number of running workers")
	m.workerMessagesPerSecond = m.gauge("worker_messages_per_second", "Average jobs processed per second by workers")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds", "Worker job latency in milliseconds", m.histogramBuckets)
	m.workerErrorRate = m.counter("worker_errors_total", "Total number of worker errors")

	m.errorRateByComponent = m.counterVec("errors_by_component_total", "Total number of errors by component", "component", "error_type")
	m.errorRateByType = m.counterVec("errors_by_type_total", "Total number of errors by type", "error_type", "severity")
	m.errorRateByEndpoint = m.counterVec("errors_by_endpoint_total", "Total number of errors by endpoint", "endpoint", "method", "error_type")
	m.errorLatency = m.histogramVec("error_latency_milliseconds", "Latency of operations that resulted in errors", "component", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "System memory usage in bytes")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_time_milliseconds", "GC pause time in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000})
}

// Ingestion.

// RecordItemsReceived adds n candidate items to the received counter.
func RecordItemsReceived(n int) {
	globalManager.itemsReceived.Add(float64(n))
}

// RecordItemDuplicate increments the duplicate counter.
func RecordItemDuplicate() {
	globalManager.itemsDuplicate.Inc()
}

// RecordItemMalformed increments the malformed counter.
func RecordItemMalformed() {
	globalManager.itemsMalformed.Inc()
}

// RecordDisposition counts a triage outcome.
func RecordDisposition(disposition string) {
	globalManager.dispositions.WithLabelValues(disposition).Inc()
}

// RecordItemFailure counts an item that failed processing.
func RecordItemFailure(reason string) {
	globalManager.itemFailures.WithLabelValues(reason).Inc()
}

// RecordBatchLatency records end-to-end batch latency.
func RecordBatchLatency(latencyMs float64) {
	globalManager.batchLatency.Observe(latencyMs)
}

// Reasoning service.

// RecordReasoningLatency records a reasoning call latency.
func RecordReasoningLatency(latencyMs float64) {
	globalManager.reasoningLatency.Observe(latencyMs)
}

// RecordReasoningRequest counts a reasoning call by status ("200", "timeout", ...).
func RecordReasoningRequest(status string) {
	globalManager.reasoningRequests.WithLabelValues(status).Inc()
}

// RecordReasoningFallback counts a conservative fallback by cause.
func RecordReasoningFallback(reason string) {
	globalManager.reasoningFallbacks.WithLabelValues(reason).Inc()
}

// RecordRuleHit counts a safety rule that raised its flag.
func RecordRuleHit(rule string) {
	globalManager.ruleHits.WithLabelValues(rule).Inc()
}

// Trust scoring.

// RecordRecalculation counts a successful recalculation and its resulting score.
func RecordRecalculation(reason string, score float64) {
	globalManager.recalculations.WithLabelValues(reason).Inc()
	globalManager.trustScores.Observe(score)
}

// RecordRecalculationError counts a failed recalculation.
func RecordRecalculationError() {
	globalManager.recalculationErrors.Inc()
}

// RecordRecalculationLatency records recalculation latency.
func RecordRecalculationLatency(latencyMs float64) {
	globalManager.recalcLatency.Observe(latencyMs)
}

// RecordRating counts a rating attempt by outcome.
func RecordRating(outcome string) {
	globalManager.ratings.WithLabelValues(outcome).Inc()
}

// UpdateTotalEntries sets the knowledge entry gauge.
func UpdateTotalEntries(count int) {
	globalManager.totalEntries.Set(float64(count))
}

// Audit.

// RecordAuditWrite counts an appended audit entry.
func RecordAuditWrite(operation string) {
	globalManager.auditWrites.WithLabelValues(operation).Inc()
}

// RecordAuditWriteError counts a failed audit append.
func RecordAuditWriteError() {
	globalManager.auditWriteErrors.Inc()
}

// UpdateDedupeCacheSize sets the dedupe window gauge.
func UpdateDedupeCacheSize(size int) {
	globalManager.dedupeCacheSize.Set(float64(size))
}

// HTTP.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// Queue.

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

// RecordQueueProcessingLatency records queue processing latency.
func RecordQueueProcessingLatency(latencyMs float64) {
	globalManager.queueProcessingLatency.Observe(latencyMs)
}

// Workers.

// UpdateWorkerCount sets the configured worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// UpdateWorkerActiveCount sets the number of running workers.
func UpdateWorkerActiveCount(count int) {
	globalManager.workerActiveCount.Set(float64(count))
}

// UpdateWorkerMessagesPerSecond sets the average jobs processed per second.
func UpdateWorkerMessagesPerSecond(rate float64) {
	globalManager.workerMessagesPerSecond.Set(rate)
}

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrorRate.Inc()
}

// Errors.

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordErrorLatency records the latency of an operation that resulted in an error.
func RecordErrorLatency(component, errorType string, latencyMs float64) {
	globalManager.errorLatency.WithLabelValues(component, errorType).Observe(latencyMs)
}

// System.

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
