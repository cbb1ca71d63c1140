// Package metrics exposes Prometheus collectors for the accounting core.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics contains all Prometheus metrics for the application. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	EntriesPosted       prometheus.Counter
	PostedAmount        prometheus.Counter
	EntriesRejected     *prometheus.CounterVec
	EventsPublished     prometheus.Counter
	EventsFailed        prometheus.Counter
	EventsDropped       prometheus.Counter
	DepreciationRuns    *prometheus.CounterVec
	DepreciationAmount  prometheus.Counter
	AccountsCreated     prometheus.Counter
	TreeCacheHits       prometheus.Counter
	TreeCacheMisses     prometheus.Counter
	ReportDuration      *prometheus.HistogramVec
	AutopostedMovements *prometheus.CounterVec
}

// New initializes and registers Prometheus metrics with the default registry.
func New() *Metrics {
	return NewWithRegistry(nil)
}

// NewWithRegistry initializes and registers Prometheus metrics with a custom registry.
func NewWithRegistry(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	return &Metrics{
		EntriesPosted: factory.NewCounter(prometheus.CounterOpts{
			Name: "erpledger_journal_entries_posted_total",
			Help: "The total number of journal entries committed",
		}),
		PostedAmount: factory.NewCounter(prometheus.CounterOpts{
			Name: "erpledger_journal_posted_amount_total",
			Help: "The sum of debit totals of committed journal entries",
		}),
		EntriesRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "erpledger_journal_entries_rejected_total",
			Help: "The total number of rejected journal entries by reason",
		}, []string{"reason"}),
		EventsPublished: factory.NewCounter(prometheus.CounterOpts{
			Name: "erpledger_events_published_total",
			Help: "The total number of notifications delivered to the publisher",
		}),
		EventsFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "erpledger_events_failed_total",
			Help: "The total number of notifications whose publish failed",
		}),
		EventsDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "erpledger_events_dropped_total",
			Help: "The total number of notifications dropped because the buffer was full",
		}),
		DepreciationRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "erpledger_depreciation_runs_total",
			Help: "The total number of depreciation runs by outcome",
		}, []string{"outcome"}),
		DepreciationAmount: factory.NewCounter(prometheus.CounterOpts{
			Name: "erpledger_depreciation_amount_total",
			Help: "The sum of depreciation amounts posted",
		}),
		AccountsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "erpledger_accounts_created_total",
			Help: "The total number of accounts created",
		}),
		TreeCacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "erpledger_account_tree_cache_hits_total",
			Help: "Chart-of-accounts tree cache hits",
		}),
		TreeCacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "erpledger_account_tree_cache_misses_total",
			Help: "Chart-of-accounts tree cache misses",
		}),
		ReportDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "erpledger_report_duration_seconds",
			Help:    "Time spent generating financial statements",
			Buckets: prometheus.DefBuckets,
		}, []string{"report"}),
		AutopostedMovements: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "erpledger_autoposted_movements_total",
			Help: "Inventory movements turned into journal entries by movement type",
		}, []string{"type"}),
	}
}

// Handler serves everything registered with g in the Prometheus exposition
// format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// Posted records a committed entry with the given debit total.
func (m *Metrics) Posted(amount float64) {
	if m == nil {
		return
	}
	m.EntriesPosted.Inc()
	m.PostedAmount.Add(amount)
}

// Rejected records a rejected entry.
func (m *Metrics) Rejected(reason string) {
	if m == nil {
		return
	}
	m.EntriesRejected.WithLabelValues(reason).Inc()
}

// EventPublished records a publish outcome.
func (m *Metrics) EventPublished(err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.EventsFailed.Inc()
		return
	}
	m.EventsPublished.Inc()
}

// EventDropped records a notification dropped on a full buffer.
func (m *Metrics) EventDropped() {
	if m == nil {
		return
	}
	m.EventsDropped.Inc()
}

// Depreciated records a depreciation run outcome.
func (m *Metrics) Depreciated(outcome string, amount float64) {
	if m == nil {
		return
	}
	m.DepreciationRuns.WithLabelValues(outcome).Inc()
	if amount > 0 {
		m.DepreciationAmount.Add(amount)
	}
}

// AccountCreated records a new account.
func (m *Metrics) AccountCreated() {
	if m == nil {
		return
	}
	m.AccountsCreated.Inc()
}

// TreeCache records a tree cache lookup.
func (m *Metrics) TreeCache(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.TreeCacheHits.Inc()
		return
	}
	m.TreeCacheMisses.Inc()
}

// ObserveReport records how long a report took.
func (m *Metrics) ObserveReport(report string, seconds float64) {
	if m == nil {
		return
	}
	m.ReportDuration.WithLabelValues(report).Observe(seconds)
}

// Autoposted records an inventory movement turned into an entry.
func (m *Metrics) Autoposted(movementType string) {
	if m == nil {
		return
	}
	m.AutopostedMovements.WithLabelValues(movementType).Inc()
}
