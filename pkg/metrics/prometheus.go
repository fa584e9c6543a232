// Package metrics provides Prometheus metrics for the pre-warning pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the pipeline.
type Manager struct {
	namespace        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Punch source metrics
	punchesFetched   prometheus.Counter
	punchesDelivered prometheus.Counter
	punchesFiltered  prometheus.Counter
	punchesDuplicate prometheus.Counter
	fetchErrors      prometheus.Counter
	fetchLatency     prometheus.Histogram

	// Cursor metrics
	cursorPersistErrors prometheus.Counter
	cursorExternalEdits prometheus.Counter

	// Roster metrics
	rosterReloads      prometheus.Counter
	rosterReloadErrors prometheus.Counter
	rosterLookupMisses prometheus.Counter
	rosterSize         prometheus.Gauge

	// Stage metrics
	preWarnings     prometheus.Counter
	punchesDropped  prometheus.Counter
	announcements   prometheus.Counter
	introCues       prometheus.Counter
	playbackErrors  prometheus.Counter
	queueSize       *prometheus.GaugeVec
	queueEnqueueErr *prometheus.CounterVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "prewarn",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.punchesFetched = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "punches_fetched_total",
		Help:      "Total number of punches returned by source polls",
	})

	m.punchesDelivered = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "punches_delivered_total",
		Help:      "Total number of punches delivered to listeners",
	})

	m.punchesFiltered = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "punches_filtered_total",
		Help:      "Total number of punches skipped for irrelevant control codes",
	})

	m.punchesDuplicate = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "punches_duplicate_total",
		Help:      "Total number of punches skipped as already delivered",
	})

	m.fetchErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "fetch_errors_total",
		Help:      "Total number of failed source polls",
	})

	m.fetchLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      "fetch_latency_milliseconds",
		Help:      "Histogram of source poll latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.cursorPersistErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "cursor_persist_errors_total",
		Help:      "Total number of failed cursor writes",
	})

	m.cursorExternalEdits = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "cursor_external_edits_total",
		Help:      "Total number of cursor values accepted from external configuration edits",
	})

	m.rosterReloads = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "roster_reloads_total",
		Help:      "Total number of roster reloads",
	})

	m.rosterReloadErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "roster_reload_errors_total",
		Help:      "Total number of failed roster reloads",
	})

	m.rosterLookupMisses = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "roster_lookup_misses_total",
		Help:      "Total number of card numbers not found in the roster",
	})

	m.rosterSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Name:      "roster_size",
		Help:      "Number of runners in the current roster snapshot",
	})

	m.preWarnings = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "pre_warnings_total",
		Help:      "Total number of pre-warning records emitted to the display",
	})

	m.punchesDropped = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "punches_dropped_total",
		Help:      "Total number of punches dropped for missing roster data",
	})

	m.announcements = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "announcements_total",
		Help:      "Total number of audio announcements issued",
	})

	m.introCues = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "intro_cues_total",
		Help:      "Total number of intro cues played before announcements",
	})

	m.playbackErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "playback_errors_total",
		Help:      "Total number of failed audio playbacks",
	})

	m.queueSize = auto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: m.namespace,
			Name:      "queue_size",
			Help:      "Current size of a stage queue",
		},
		[]string{"queue"},
	)

	m.queueEnqueueErr = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Name:      "queue_enqueue_errors_total",
			Help:      "Total number of rejected enqueues per stage queue",
		},
		[]string{"queue"},
	)
}

// GetRegistry returns the Prometheus registry used by the global manager.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// Package-level recording functions backed by the global manager.

func RecordPunchesFetched(n int) {
	globalManager.punchesFetched.Add(float64(n))
}

func RecordPunchDelivered() {
	globalManager.punchesDelivered.Inc()
}

func RecordPunchFiltered() {
	globalManager.punchesFiltered.Inc()
}

func RecordPunchDuplicate() {
	globalManager.punchesDuplicate.Inc()
}

func RecordFetchError() {
	globalManager.fetchErrors.Inc()
}

func RecordFetchLatency(latencyMs float64) {
	globalManager.fetchLatency.Observe(latencyMs)
}

func RecordCursorPersistError() {
	globalManager.cursorPersistErrors.Inc()
}

func RecordCursorExternalEdit() {
	globalManager.cursorExternalEdits.Inc()
}

func RecordRosterReload() {
	globalManager.rosterReloads.Inc()
}

func RecordRosterReloadError() {
	globalManager.rosterReloadErrors.Inc()
}

func RecordRosterLookupMiss() {
	globalManager.rosterLookupMisses.Inc()
}

func UpdateRosterSize(size int) {
	globalManager.rosterSize.Set(float64(size))
}

func RecordPreWarning() {
	globalManager.preWarnings.Inc()
}

func RecordPunchDropped() {
	globalManager.punchesDropped.Inc()
}

func RecordAnnouncement() {
	globalManager.announcements.Inc()
}

func RecordIntroCue() {
	globalManager.introCues.Inc()
}

func RecordPlaybackError() {
	globalManager.playbackErrors.Inc()
}

func UpdateQueueSize(queue string, size int) {
	globalManager.queueSize.WithLabelValues(queue).Set(float64(size))
}

func RecordQueueEnqueueError(queue string) {
	globalManager.queueEnqueueErr.WithLabelValues(queue).Inc()
}
