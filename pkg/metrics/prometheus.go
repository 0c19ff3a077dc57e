package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome label values shared by store and challenge metrics.
const (
	OutcomeOK       = "ok"
	OutcomeConflict = "conflict"
	OutcomeError    = "error"
	OutcomeNotFound = "not_found"
)

// Manager owns every Prometheus collector of the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      map[string]string
	registry         prometheus.Registerer

	// Store
	storeOperations *prometheus.CounterVec
	storeLatency    *prometheus.HistogramVec
	saveConflicts   *prometheus.CounterVec
	transactRetries *prometheus.CounterVec

	// Domain
	challengeTransitions *prometheus.CounterVec
	leaderboardBuilds    prometheus.Counter
	leaderboardLatency   prometheus.Histogram
	leaderboardTeams     prometheus.Gauge

	// Activity pipeline
	activityPublished  prometheus.Counter
	activityDropped    *prometheus.CounterVec
	activityPersisted  prometheus.Counter
	activityDuplicates prometheus.Counter

	// Live updates
	liveClients    prometheus.Gauge
	liveBroadcasts prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpErrors          *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // singleton used by the package-level helpers

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // keeps default Go collectors out

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "ladder",
		subsystem:        "tournament",
		histogramBuckets: []float64{0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000},
		constLabels:      map[string]string{},
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
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) histogramOpts(name, help string) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
		ConstLabels: m.constLabels, Buckets: m.histogramBuckets,
	}
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	m.storeOperations = auto.NewCounterVec(
		m.counterOpts("store_operations_total", "Document store operations by backend, operation and outcome"),
		[]string{"backend", "op", "outcome"},
	)
	m.storeLatency = auto.NewHistogramVec(
		m.histogramOpts("store_latency_milliseconds", "Document store latency in milliseconds"),
		[]string{"backend", "op"},
	)
	m.saveConflicts = auto.NewCounterVec(
		m.counterOpts("save_conflicts_total", "Guarded saves rejected because of a stale version"),
		[]string{"collection"},
	)
	m.transactRetries = auto.NewCounterVec(
		m.counterOpts("transact_retries_total", "Transaction attempts repeated after contention"),
		[]string{"backend"},
	)

	m.challengeTransitions = auto.NewCounterVec(
		m.counterOpts("challenge_transitions_total", "Challenge workflow calls by action and outcome"),
		[]string{"action", "outcome"},
	)
	m.leaderboardBuilds = auto.NewCounter(
		m.counterOpts("leaderboard_builds_total", "Leaderboards computed"),
	)
	m.leaderboardLatency = auto.NewHistogram(
		m.histogramOpts("leaderboard_build_milliseconds", "Leaderboard build latency in milliseconds"),
	)
	m.leaderboardTeams = auto.NewGauge(
		m.gaugeOpts("leaderboard_teams", "Teams on the last computed leaderboard"),
	)

	m.activityPublished = auto.NewCounter(
		m.counterOpts("activity_published_total", "Activity entries handed to the queue"),
	)
	m.activityDropped = auto.NewCounterVec(
		m.counterOpts("activity_dropped_total", "Activity entries lost by stage"),
		[]string{"stage"},
	)
	m.activityPersisted = auto.NewCounter(
		m.counterOpts("activity_persisted_total", "Activity entries appended to the activity log"),
	)
	m.activityDuplicates = auto.NewCounter(
		m.counterOpts("activity_duplicates_total", "Redelivered activity messages skipped"),
	)

	m.liveClients = auto.NewGauge(
		m.gaugeOpts("live_clients", "Connected websocket clients"),
	)
	m.liveBroadcasts = auto.NewCounter(
		m.counterOpts("live_broadcasts_total", "Events fanned out to websocket clients"),
	)

	m.httpRequests = auto.NewCounterVec(
		m.counterOpts("http_requests_total", "HTTP requests by endpoint, method and status"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpErrors = auto.NewCounterVec(
		m.counterOpts("http_errors_total", "HTTP error responses by endpoint, method and error type"),
		[]string{"endpoint", "method", "error_type"},
	)

	m.systemMemoryUsage = auto.NewGauge(
		m.gaugeOpts("system_memory_bytes", "Heap bytes in use"),
	)
	m.systemGoroutineCount = auto.NewGauge(
		m.gaugeOpts("system_goroutines", "Number of goroutines"),
	)
	m.systemGCPauseTime = auto.NewHistogram(
		m.histogramOpts("system_gc_pause_milliseconds", "Most recent GC pause in milliseconds"),
	)
}

func ms(d time.Duration) float64 { return float64(d) / float64(time.Millisecond) }

// RecordStoreOperation counts one store call and observes its latency.
func RecordStoreOperation(backend, op, outcome string, took time.Duration) {
	globalManager.storeOperations.WithLabelValues(backend, op, outcome).Inc()
	globalManager.storeLatency.WithLabelValues(backend, op).Observe(ms(took))
}

// RecordSaveConflict counts a stale-version rejection for a collection.
func RecordSaveConflict(collection string) {
	globalManager.saveConflicts.WithLabelValues(collection).Inc()
}

// RecordTransactRetry counts a repeated transaction attempt.
func RecordTransactRetry(backend string) {
	globalManager.transactRetries.WithLabelValues(backend).Inc()
}

// RecordChallengeTransition counts a challenge workflow call.
func RecordChallengeTransition(action, outcome string) {
	globalManager.challengeTransitions.WithLabelValues(action, outcome).Inc()
}

// RecordLeaderboardBuild records a leaderboard computation.
func RecordLeaderboardBuild(teams int, took time.Duration) {
	globalManager.leaderboardBuilds.Inc()
	globalManager.leaderboardLatency.Observe(ms(took))
	globalManager.leaderboardTeams.Set(float64(teams))
}

// RecordActivityPublished counts an activity entry handed to the queue.
func RecordActivityPublished() { globalManager.activityPublished.Inc() }

// RecordActivityDropped counts an activity entry lost at the given stage.
func RecordActivityDropped(stage string) {
	globalManager.activityDropped.WithLabelValues(stage).Inc()
}

// RecordActivityPersisted counts an entry appended to the activity log.
func RecordActivityPersisted() { globalManager.activityPersisted.Inc() }

// RecordActivityDuplicate counts a redelivered message that was skipped.
func RecordActivityDuplicate() { globalManager.activityDuplicates.Inc() }

// UpdateLiveClients sets the number of connected websocket clients.
func UpdateLiveClients(count int) { globalManager.liveClients.Set(float64(count)) }

// RecordLiveBroadcast counts an event fanned out to websocket clients.
func RecordLiveBroadcast() { globalManager.liveBroadcasts.Inc() }

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordHTTPError records an error response.
func RecordHTTPError(endpoint, method, errorType string) {
	globalManager.httpErrors.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the heap usage in bytes.
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
