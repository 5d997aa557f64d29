package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for the portal.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration    *prometheus.HistogramVec
	storeErrors        *prometheus.CounterVec
	cacheHits          *prometheus.CounterVec
	cacheMisses        *prometheus.CounterVec
	tasksCreated       *prometheus.CounterVec
	notificationsSent  prometheus.Counter
	auctionTransitions *prometheus.CounterVec
	documentsGenerated prometheus.Counter
	duplicatesIgnored  *prometheus.CounterVec
	leadsCaptured      *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. A private registry avoids "duplicate collector"
// panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "portal_operation_duration_seconds",
				Help:    "Duration of service operations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		storeErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portal_store_errors_total",
				Help: "Total errors returned by the data store.",
			},
			[]string{"operation"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portal_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portal_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		tasksCreated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portal_tasks_created_total",
				Help: "Tasks created by assignment mode.",
			},
			[]string{"mode"},
		),
		notificationsSent: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "portal_notifications_created_total",
				Help: "Notifications written to user inboxes.",
			},
		),
		auctionTransitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portal_auction_transitions_total",
				Help: "Persisted auction status changes by target status.",
			},
			[]string{"to"},
		),
		documentsGenerated: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "portal_award_documents_total",
				Help: "Autos de arrematação rendered.",
			},
		),
		duplicatesIgnored: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portal_duplicates_ignored_total",
				Help: "Uniqueness violations treated as no-ops.",
			},
			[]string{"kind"},
		),
		leadsCaptured: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portal_leads_captured_total",
				Help: "Leads created by source.",
			},
			[]string{"source"},
		),
	}
}

// RecordDuration records the duration of an operation.
func (m *Metrics) RecordDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrStoreError increments the store error counter.
func (m *Metrics) IncrStoreError(operation string) {
	m.storeErrors.WithLabelValues(operation).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// AddTasksCreated counts tasks created in one batch.
func (m *Metrics) AddTasksCreated(mode string, n int) {
	m.tasksCreated.WithLabelValues(mode).Add(float64(n))
}

// AddNotifications counts notifications written.
func (m *Metrics) AddNotifications(n int) {
	m.notificationsSent.Add(float64(n))
}

// IncrAuctionTransition counts a persisted status change.
func (m *Metrics) IncrAuctionTransition(to string) {
	m.auctionTransitions.WithLabelValues(to).Inc()
}

// IncrDocument counts a rendered award document.
func (m *Metrics) IncrDocument() {
	m.documentsGenerated.Inc()
}

// IncrDuplicateIgnored counts a benign uniqueness violation.
func (m *Metrics) IncrDuplicateIgnored(kind string) {
	m.duplicatesIgnored.WithLabelValues(kind).Inc()
}

// IncrLeadCaptured counts a created lead.
func (m *Metrics) IncrLeadCaptured(source string) {
	m.leadsCaptured.WithLabelValues(source).Inc()
}

// Snapshot is a point-in-time view of the workflow counters.
type Snapshot struct {
	TasksCreated       float64 `json:"tasks_created"`
	Notifications      float64 `json:"notifications_created"`
	AwardDocuments     float64 `json:"award_documents"`
	DuplicatesIgnored  float64 `json:"duplicates_ignored"`
	ProfileCacheHitPct float64 `json:"profile_cache_hit_rate"`
}

// GetSnapshot returns the workflow counters for the ops endpoint.
func (m *Metrics) GetSnapshot() *Snapshot {
	tasks := 0.0
	for _, mode := range []string{"single", "multiple", "franchise"} {
		tasks += getCounterValue(m.tasksCreated.WithLabelValues(mode))
	}
	dups := getCounterValue(m.duplicatesIgnored.WithLabelValues("training_completion")) +
		getCounterValue(m.duplicatesIgnored.WithLabelValues("legal_process"))
	hits := getCounterValue(m.cacheHits.WithLabelValues("profile"))
	misses := getCounterValue(m.cacheMisses.WithLabelValues("profile"))

	hitRate := 0.0
	if hits+misses > 0 {
		hitRate = hits / (hits + misses)
	}

	return &Snapshot{
		TasksCreated:       tasks,
		Notifications:      getCounterValue(m.notificationsSent),
		AwardDocuments:     getCounterValue(m.documentsGenerated),
		DuplicatesIgnored:  dups,
		ProfileCacheHitPct: hitRate,
	}
}

// getCounterValue extracts the current float64 value from a counter.
func getCounterValue(c prometheus.Counter) float64 {
	m := &dto.Metric{}
	if err := c.Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
