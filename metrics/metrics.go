// Package metrics defines the Prometheus collectors of the curator service.
package metrics

import (
	"database/sql"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "curator"

// Ingest outcomes.
const (
	OutcomeCreated    = "created"
	OutcomeDuplicate  = "duplicate"
	OutcomeInvalid    = "invalid"
	OutcomeFetchError = "fetch_error"
	OutcomeInProgress = "in_progress"
	OutcomeError      = "error"
)

// Best-effort components that can fall back.
const (
	ComponentScoring = "scoring"
	ComponentNovelty = "novelty"
	ComponentIndex   = "index_upsert"
	ComponentProfile = "profile"
	ComponentLock    = "ingest_lock"
)

// Metrics holds the service collectors. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	IngestTotal     *prometheus.CounterVec
	IngestDuration  prometheus.Histogram
	FallbackTotal   *prometheus.CounterVec
	ListTotal       *prometheus.CounterVec
	SearchTotal     prometheus.Counter
	EmbedCacheTotal *prometheus.CounterVec

	dbOpen  prometheus.Gauge
	dbInUse prometheus.Gauge
	dbIdle  prometheus.Gauge
	dbWait  prometheus.Gauge
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		IngestTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_total",
			Help:      "Ingestion requests by outcome.",
		}, []string{"outcome"}),
		IngestDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ingest_duration_seconds",
			Help:      "Duration of ingestion runs.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 60},
		}),
		FallbackTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallback_total",
			Help:      "Best-effort component failures replaced by a fallback value.",
		}, []string{"component"}),
		ListTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "list_requests_total",
			Help:      "Listing requests by view.",
		}, []string{"view"}),
		SearchTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_requests_total",
			Help:      "Semantic search requests.",
		}),
		EmbedCacheTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "query_embedding_cache_total",
			Help:      "Search query embedding cache lookups by result.",
		}, []string{"result"}),
		dbOpen: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "db", Name: "open_connections",
			Help: "Open database connections.",
		}),
		dbInUse: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "db", Name: "in_use_connections",
			Help: "Database connections in use.",
		}),
		dbIdle: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "db", Name: "idle_connections",
			Help: "Idle database connections.",
		}),
		dbWait: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "db", Name: "wait_count",
			Help: "Total connections waited for.",
		}),
	}
}

// ObserveIngest records one ingestion outcome.
func (m *Metrics) ObserveIngest(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.IngestTotal.WithLabelValues(outcome).Inc()
	m.IngestDuration.Observe(d.Seconds())
}

// Fallback records a best-effort component falling back.
func (m *Metrics) Fallback(component string) {
	if m == nil {
		return
	}
	m.FallbackTotal.WithLabelValues(component).Inc()
}

// ListRequest records a listing of view.
func (m *Metrics) ListRequest(view string) {
	if m == nil {
		return
	}
	m.ListTotal.WithLabelValues(view).Inc()
}

// SearchRequest records a semantic search.
func (m *Metrics) SearchRequest() {
	if m == nil {
		return
	}
	m.SearchTotal.Inc()
}

// EmbedCache records a query embedding cache hit or miss.
func (m *Metrics) EmbedCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.EmbedCacheTotal.WithLabelValues(result).Inc()
}

// UpdateDBStats copies the connection pool statistics into gauges.
func (m *Metrics) UpdateDBStats(db *sql.DB) {
	if m == nil || db == nil {
		return
	}
	s := db.Stats()
	m.dbOpen.Set(float64(s.OpenConnections))
	m.dbInUse.Set(float64(s.InUse))
	m.dbIdle.Set(float64(s.Idle))
	m.dbWait.Set(float64(s.WaitCount))
}
