// Package metrics provides Prometheus metrics for the time-attack league service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector of the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Polling loops
	ticks        *prometheus.CounterVec
	tickErrors   *prometheus.CounterVec
	tickDuration *prometheus.HistogramVec

	// Ingestion
	resultFiles  *prometheus.CounterVec
	lapsIngested prometheus.Counter
	lapsDup      prometheus.Counter
	lapsDropped  *prometheus.GaugeVec
	dedupeSize   prometheus.Gauge
	queueSize    prometheus.Gauge
	queueRejects *prometheus.CounterVec
	fileDecode   prometheus.Histogram

	// Artifacts
	artifactSaves      *prometheus.CounterVec
	leaderboardDrivers prometheus.Gauge
	standingsDrivers   prometheus.Gauge
	activeEvent        *prometheus.GaugeVec

	// Publishing
	publishOutcomes *prometheus.CounterVec
	channelRequests *prometheus.CounterVec
	channelLatency  *prometheus.HistogramVec
	breakerState    *prometheus.GaugeVec
	breakerChanges  *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpErrors          *prometheus.CounterVec

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

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "timeattack",
		subsystem:        "league",
		histogramBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
		Buckets: m.histogramBuckets, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.ticks = m.counterVec("loop_ticks_total", "Completed polling ticks by loop", "loop")
	m.tickErrors = m.counterVec("loop_tick_errors_total", "Failed polling ticks by loop and error kind", "loop", "kind")
	m.tickDuration = m.histogramVec("loop_tick_duration_milliseconds", "Polling tick duration in milliseconds", "loop")

	m.resultFiles = m.counterVec("result_files_total", "Result files handled by outcome", "outcome")
	m.lapsIngested = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: m.constLabels,
		Name: "laps_ingested_total", Help: "Lap records appended to the lap store",
	})
	m.lapsDup = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: m.constLabels,
		Name: "laps_duplicate_total", Help: "Lap records skipped because they were already stored",
	})
	m.lapsDropped = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: m.constLabels,
		Name: "leaderboard_laps_dropped", Help: "Laps excluded from the active leaderboard by reason",
	}, []string{"reason"})
	m.dedupeSize = m.gauge("dedupe_entries", "Lap keys held by the ingestion deduper")
	m.queueSize = m.gauge("ingest_queue_jobs", "Result files waiting to be decoded")
	m.queueRejects = m.counterVec("ingest_queue_rejected_total", "Result files the decode queue refused by reason", "reason")
	m.fileDecode = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: m.constLabels,
		Name: "result_file_decode_duration_milliseconds", Help: "Time to read and decode one result file",
		Buckets: m.histogramBuckets,
	})

	m.artifactSaves = m.counterVec("artifact_saves_total", "Artifact save attempts by artifact and outcome", "artifact", "outcome")
	m.leaderboardDrivers = m.gauge("leaderboard_drivers", "Drivers on the active event leaderboard")
	m.standingsDrivers = m.gauge("standings_drivers", "Drivers in the current season standings")
	m.activeEvent = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: m.constLabels,
		Name: "active_event_info", Help: "Currently active event (value is always 1)",
	}, []string{"event_id"})

	m.publishOutcomes = m.counterVec("publish_outcomes_total", "Publish cycles by target kind and outcome", "target", "outcome")
	m.channelRequests = m.counterVec("channel_requests_total", "Channel API requests by operation and status", "op", "status")
	m.channelLatency = m.histogramVec("channel_request_duration_milliseconds", "Channel API latency in milliseconds", "op")
	m.breakerState = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: m.constLabels,
		Name: "circuit_breaker_state", Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
	}, []string{"name"})
	m.breakerChanges = m.counterVec("circuit_breaker_transitions_total", "Circuit breaker state transitions", "name", "from", "to")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint, method and status", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration in milliseconds", "endpoint", "method", "status_code")
	m.httpErrors = m.counterVec("http_errors_total", "HTTP error responses by endpoint and error type", "endpoint", "method", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_bytes", "Heap bytes allocated")
	m.systemGoroutineCount = m.gauge("system_goroutines", "Number of goroutines")
	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: m.constLabels,
		Name: "system_gc_pause_milliseconds", Help: "Average GC pause in milliseconds",
		Buckets: prometheus.DefBuckets,
	})
}

// Loop Metrics Functions.

// RecordTick records a completed tick of a polling loop.
func RecordTick(loop string, durationMs float64) {
	globalManager.ticks.WithLabelValues(loop).Inc()
	globalManager.tickDuration.WithLabelValues(loop).Observe(durationMs)
}

// RecordTickError records a failed tick with its error kind.
func RecordTickError(loop, kind string) {
	globalManager.tickErrors.WithLabelValues(loop, kind).Inc()
}

// Ingestion Metrics Functions.

// RecordResultFile records a result file outcome: processed, skipped or failed.
func RecordResultFile(outcome string) {
	globalManager.resultFiles.WithLabelValues(outcome).Inc()
}

// RecordLapsIngested adds n stored laps.
func RecordLapsIngested(n int) {
	globalManager.lapsIngested.Add(float64(n))
}

// RecordLapsDuplicate adds n laps that were already stored.
func RecordLapsDuplicate(n int) {
	globalManager.lapsDup.Add(float64(n))
}

// UpdateLapsDropped replaces the per-reason counts of laps excluded from
// the latest leaderboard aggregation.
func UpdateLapsDropped(byReason map[string]int) {
	globalManager.lapsDropped.Reset()
	for reason, n := range byReason {
		globalManager.lapsDropped.WithLabelValues(reason).Set(float64(n))
	}
}

// UpdateDedupeSize sets the number of tracked lap keys.
func UpdateDedupeSize(n int64) {
	globalManager.dedupeSize.Set(float64(n))
}

// UpdateIngestQueueSize sets the number of queued result files.
func UpdateIngestQueueSize(n int) {
	globalManager.queueSize.Set(float64(n))
}

// RecordIngestQueueRejected records a result file the decode queue refused.
func RecordIngestQueueRejected(reason string) {
	globalManager.queueRejects.WithLabelValues(reason).Inc()
}

// RecordFileDecode records how long one result file took to decode.
func RecordFileDecode(durationMs float64) {
	globalManager.fileDecode.Observe(durationMs)
}

// Artifact Metrics Functions.

// RecordArtifactSave records a save of artifact with outcome written or unchanged.
func RecordArtifactSave(artifact, outcome string) {
	globalManager.artifactSaves.WithLabelValues(artifact, outcome).Inc()
}

// UpdateLeaderboardDrivers sets the driver count of the active leaderboard.
func UpdateLeaderboardDrivers(n int) {
	globalManager.leaderboardDrivers.Set(float64(n))
}

// UpdateStandingsDrivers sets the driver count of the season standings.
func UpdateStandingsDrivers(n int) {
	globalManager.standingsDrivers.Set(float64(n))
}

// UpdateActiveEvent marks eventID as the only active event.
func UpdateActiveEvent(eventID string) {
	globalManager.activeEvent.Reset()
	globalManager.activeEvent.WithLabelValues(eventID).Set(1)
}

// Publishing Metrics Functions.

// RecordPublish records a publish cycle outcome for a target kind.
func RecordPublish(target, outcome string) {
	globalManager.publishOutcomes.WithLabelValues(target, outcome).Inc()
}

// RecordChannelRequest records one channel API call.
func RecordChannelRequest(op, status string, durationMs float64) {
	globalManager.channelRequests.WithLabelValues(op, status).Inc()
	globalManager.channelLatency.WithLabelValues(op).Observe(durationMs)
}

// UpdateBreakerState sets the numeric state of a circuit breaker.
func UpdateBreakerState(name string, state float64) {
	globalManager.breakerState.WithLabelValues(name).Set(state)
}

// RecordBreakerTransition records a circuit breaker state change.
func RecordBreakerTransition(name, from, to string) {
	globalManager.breakerChanges.WithLabelValues(name, from, to).Inc()
}

// HTTP Metrics Functions.

// RecordHTTPRequest records an HTTP request with its duration.
func RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// RecordHTTPError records an error response.
func RecordHTTPError(endpoint, method, errorType string) {
	globalManager.httpErrors.WithLabelValues(endpoint, method, errorType).Inc()
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
