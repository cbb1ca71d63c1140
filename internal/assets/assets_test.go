package assets

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"

	"github.com/erpledger/erpledger/internal/accounts"
	"github.com/erpledger/erpledger/internal/apperr"
	"github.com/erpledger/erpledger/internal/journal"
	"github.com/erpledger/erpledger/internal/metrics"
	"github.com/erpledger/erpledger/internal/model"
	"github.com/erpledger/erpledger/internal/reports"
	"github.com/erpledger/erpledger/internal/store"
	"github.com/erpledger/erpledger/internal/store/storetest"
)

const tenant = "acme"

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func date(y, m, d int) time.Time { return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC) }

type fixture struct {
	db      *gorm.DB
	svc     *Service
	metrics *metrics.Metrics
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	db := storetest.New(t)
	_, err := accounts.NewRegistry(db).Seed(context.Background(), tenant)
	require.NoError(t, err)

	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	svc := NewService(db, journal.NewPoster(db),
		WithMetrics(m),
		WithLogger(zaptest.NewLogger(t)),
		WithClock(func() time.Time { return date(2025, 6, 30) }),
	)
	return fixture{db: db, svc: svc, metrics: m}
}

func machine(cost, salvage string, years int) RegisterParams {
	return RegisterParams{
		Code:             "FA-001",
		Name:             "CNC Machine",
		PurchaseDate:     date(2025, 1, 1),
		Cost:             dec(cost),
		SalvageValue:     dec(salvage),
		UsefulLifeYears:  years,
		AssetAccount:     "1210",
		ExpenseAccount:   "5300",
		AccumDeprAccount: "1290",
	}
}

func (f fixture) register(t *testing.T, p RegisterParams) model.FixedAsset {
	t.Helper()
	a, err := f.svc.Register(context.Background(), tenant, p)
	require.NoError(t, err)
	return a
}

func TestRegister(t *testing.T) {
	f := newFixture(t)
	a := f.register(t, machine("12000", "1200", 3))

	assert.NotZero(t, a.ID)
	assert.Equal(t, model.AssetStatusActive, a.Status)
	assert.True(t, a.DepreciatedTotal.IsZero())

	got, err := f.svc.Get(context.Background(), tenant, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "CNC Machine", got.Name)
	assert.True(t, dec("10800").Equal(got.DepreciableBase()))

	_, err = f.svc.Get(context.Background(), "other", a.ID)
	assert.ErrorIs(t, err, apperr.ErrAssetNotFound)
}

func TestRegisterRejects(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name   string
		mutate func(p *RegisterParams)
		want   error
	}{
		{"zero cost", func(p *RegisterParams) { p.Cost = decimal.Zero }, apperr.ErrInvalidInput},
		{"negative salvage", func(p *RegisterParams) { p.SalvageValue = dec("-1") }, apperr.ErrInvalidInput},
		{"salvage above cost", func(p *RegisterParams) { p.SalvageValue = dec("12001") }, apperr.ErrInvalidInput},
		{"zero life", func(p *RegisterParams) { p.UsefulLifeYears = 0 }, apperr.ErrInvalidInput},
		{"missing name", func(p *RegisterParams) { p.Name = "" }, apperr.ErrInvalidInput},
		{"unknown account", func(p *RegisterParams) { p.ExpenseAccount = "9999" }, apperr.ErrAccountNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := machine("12000", "0", 5)
			tt.mutate(&p)
			_, err := f.svc.Register(context.Background(), tenant, p)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	all, err := f.svc.List(context.Background(), tenant, "")
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestMonthlyAmount(t *testing.T) {
	a := model.FixedAsset{Cost: dec("12000000"), SalvageValue: decimal.Zero, UsefulLifeYears: 5}
	assert.True(t, dec("200000").Equal(MonthlyAmount(a)))

	a = model.FixedAsset{Cost: dec("1000"), SalvageValue: decimal.Zero, UsefulLifeYears: 1}
	assert.True(t, dec("83.33").Equal(MonthlyAmount(a)))
}

func TestPeriodAmountFinalPeriodTakesRemainder(t *testing.T) {
	a := model.FixedAsset{Cost: dec("1000"), SalvageValue: decimal.Zero, UsefulLifeYears: 1, DepreciatedTotal: decimal.Zero}
	for i := int64(0); i < 12; i++ {
		amt := periodAmount(a, i)
		if i < 11 {
			assert.True(t, dec("83.33").Equal(amt), "period %d", i)
		} else {
			assert.True(t, dec("83.37").Equal(amt), "final period")
		}
		a.DepreciatedTotal = a.DepreciatedTotal.Add(amt)
	}
	assert.True(t, dec("1000").Equal(a.DepreciatedTotal))
}

func TestRunDepreciationFullLife(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.register(t, machine("12000000", "0", 5))

	total := decimal.Zero
	prev := decimal.Zero
	for i := 0; i < 60; i++ {
		res, err := f.svc.RunDepreciation(ctx, tenant, a.ID, date(2025, 1, 31).AddDate(0, i, 0))
		require.NoError(t, err, "run %d", i+1)
		assert.Equal(t, StatusPosted, res.Status)
		assert.True(t, dec("200000").Equal(res.Amount), "run %d", i+1)
		assert.NotZero(t, res.JournalEntryID)

		total = total.Add(res.Amount)
		got, err := f.svc.Get(ctx, tenant, a.ID)
		require.NoError(t, err)
		assert.True(t, got.DepreciatedTotal.GreaterThan(prev))
		assert.True(t, got.DepreciatedTotal.LessThanOrEqual(got.DepreciableBase()))
		prev = got.DepreciatedTotal
	}

	got, err := f.svc.Get(ctx, tenant, a.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AssetStatusFullyDepreciated, got.Status)
	assert.True(t, dec("12000000").Equal(total))

	res, err := f.svc.RunDepreciation(ctx, tenant, a.ID, date(2030, 2, 28))
	require.NoError(t, err)
	assert.Equal(t, StatusFullyDepreciated, res.Status)
	assert.True(t, res.Amount.IsZero())
	assert.Zero(t, res.JournalEntryID)

	hist, err := f.svc.History(ctx, tenant, a.ID)
	require.NoError(t, err)
	assert.Len(t, hist, 60)

	bs, err := reports.New(f.db).BalanceSheet(ctx, tenant, date(2031, 1, 1))
	require.NoError(t, err)
	assert.True(t, bs.IsBalanced)
	assert.True(t, dec("-12000000").Equal(bs.RetainedEarnings))
}

func TestRunDepreciationUnevenLife(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.register(t, machine("1100", "100", 1))

	for i := 0; i < 12; i++ {
		_, err := f.svc.RunDepreciation(ctx, tenant, a.ID, time.Time{})
		require.NoError(t, err)
	}
	got, err := f.svc.Get(ctx, tenant, a.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AssetStatusFullyDepreciated, got.Status)
	assert.True(t, dec("1000").Equal(got.DepreciatedTotal))
	assert.True(t, dec("100").Equal(got.BookValue()))
}

func TestRunDepreciationJournalEntry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.register(t, machine("6000", "0", 5))

	res, err := f.svc.RunDepreciation(ctx, tenant, a.ID, time.Time{})
	require.NoError(t, err)

	entry, err := journal.NewPoster(f.db).Get(ctx, tenant, res.JournalEntryID)
	require.NoError(t, err)
	assert.Equal(t, "Depreciation - CNC Machine - 2025-06", entry.Description)
	assert.Equal(t, ReferenceType, entry.ReferenceType)
	assert.Equal(t, date(2025, 6, 30), entry.Date)
	require.Len(t, entry.Lines, 2)
	assert.Equal(t, "5300", entry.Lines[0].AccountCode)
	assert.True(t, dec("100").Equal(entry.Lines[0].Debit))
	assert.Equal(t, "1290", entry.Lines[1].AccountCode)
	assert.True(t, dec("100").Equal(entry.Lines[1].Credit))

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.DepreciationRuns.WithLabelValues(StatusPosted)))
}

func TestRunDepreciationRejects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.RunDepreciation(ctx, tenant, 404, time.Time{})
	assert.ErrorIs(t, err, apperr.ErrAssetNotFound)

	p := machine("500", "0", 1)
	p.ExpenseAccount = ""
	unlinked := f.register(t, p)
	_, err = f.svc.RunDepreciation(ctx, tenant, unlinked.ID, time.Time{})
	assert.ErrorIs(t, err, apperr.ErrMissingAccountLinks)

	sold := f.register(t, machine("500", "0", 1))
	require.NoError(t, f.db.Model(&store.AssetRecord{}).Where("id = ?", sold.ID).Update("status", string(model.AssetStatusSold)).Error)
	_, err = f.svc.RunDepreciation(ctx, tenant, sold.ID, time.Time{})
	assert.ErrorIs(t, err, apperr.ErrInvalidState)

	var entries int64
	require.NoError(t, f.db.Model(&store.EntryRecord{}).Count(&entries).Error)
	assert.Zero(t, entries)
}

func TestRunDepreciationZeroBaseFlipsStatus(t *testing.T) {
	f := newFixture(t)
	a := f.register(t, machine("500", "500", 2))

	res, err := f.svc.RunDepreciation(context.Background(), tenant, a.ID, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, StatusFullyDepreciated, res.Status)

	got, err := f.svc.Get(context.Background(), tenant, a.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AssetStatusFullyDepreciated, got.Status)
}

func TestRunDepreciationStaleVersionConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.register(t, machine("1200", "0", 1))

	stale, err := loadAsset(f.db, tenant, a.ID)
	require.NoError(t, err)

	_, err = f.svc.RunDepreciation(ctx, tenant, a.ID, date(2025, 1, 31))
	require.NoError(t, err)

	err = store.Transact(ctx, f.db, func(tx *gorm.DB) error {
		_, _, err := f.svc.run(tx, stale, date(2025, 1, 31))
		return err
	})
	assert.ErrorIs(t, err, apperr.ErrConcurrentUpdate)
	assert.True(t, apperr.IsRetryable(err))

	hist, err := f.svc.History(ctx, tenant, a.ID)
	require.NoError(t, err)
	assert.Len(t, hist, 1, "losing run must not leave a history row")

	var entries int64
	require.NoError(t, f.db.Model(&store.EntryRecord{}).Count(&entries).Error)
	assert.Equal(t, int64(1), entries, "losing run must not leave a journal entry")

	got, err := f.svc.Get(ctx, tenant, a.ID)
	require.NoError(t, err)
	assert.True(t, dec("100").Equal(got.DepreciatedTotal))
	assert.Equal(t, 1, got.Version)
}

func TestRunAll(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := f.register(t, machine("1200", "0", 1))
	p := machine("600", "0", 1)
	p.AccumDeprAccount = ""
	broken := f.register(t, p)
	done := f.register(t, machine("10", "10", 1))
	_, err := f.svc.RunDepreciation(ctx, tenant, done.ID, time.Time{})
	require.NoError(t, err)

	results, err := f.svc.RunAll(ctx, tenant, date(2025, 1, 31))
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, first.ID, results[0].AssetID)
	require.NoError(t, results[0].Err)
	assert.True(t, dec("100").Equal(results[0].Result.Amount))

	assert.Equal(t, broken.ID, results[1].AssetID)
	assert.ErrorIs(t, results[1].Err, apperr.ErrMissingAccountLinks)
}
