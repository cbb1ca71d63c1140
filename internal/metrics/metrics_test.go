package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := NewWithRegistry(prometheus.NewRegistry())

	m.Posted(100)
	m.Posted(50)
	m.Rejected("unbalanced")
	m.EventPublished(nil)
	m.EventPublished(errors.New("broker down"))
	m.EventDropped()
	m.Depreciated("posted", 200)
	m.TreeCache(true)
	m.TreeCache(false)
	m.TreeCache(false)

	assert.InDelta(t, 2, testutil.ToFloat64(m.EntriesPosted), 0.001)
	assert.InDelta(t, 150, testutil.ToFloat64(m.PostedAmount), 0.001)
	assert.InDelta(t, 1, testutil.ToFloat64(m.EntriesRejected.WithLabelValues("unbalanced")), 0.001)
	assert.InDelta(t, 1, testutil.ToFloat64(m.EventsPublished), 0.001)
	assert.InDelta(t, 1, testutil.ToFloat64(m.EventsFailed), 0.001)
	assert.InDelta(t, 1, testutil.ToFloat64(m.EventsDropped), 0.001)
	assert.InDelta(t, 200, testutil.ToFloat64(m.DepreciationAmount), 0.001)
	assert.InDelta(t, 1, testutil.ToFloat64(m.TreeCacheHits), 0.001)
	assert.InDelta(t, 2, testutil.ToFloat64(m.TreeCacheMisses), 0.001)
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Posted(1)
		m.Rejected("x")
		m.EventPublished(nil)
		m.EventDropped()
		m.Depreciated("posted", 1)
		m.AccountCreated()
		m.TreeCache(true)
		m.ObserveReport("trial_balance", 0.1)
		m.Autoposted("IN_RECEIPT")
	})
}

func TestHandlerServesRegistry(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewWithRegistry(registry)
	m.Posted(150)

	rec := httptest.NewRecorder()
	Handler(registry).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "erpledger_journal_entries_posted_total 1")
	assert.Contains(t, rec.Body.String(), "erpledger_journal_posted_amount_total 150")
}
