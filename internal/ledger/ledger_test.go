package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erpledger/erpledger/internal/accounts"
	"github.com/erpledger/erpledger/internal/apperr"
	"github.com/erpledger/erpledger/internal/journal"
	"github.com/erpledger/erpledger/internal/store/storetest"
)

const tenant = "acme"

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func date(y, m, d int) time.Time { return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC) }

func setup(t *testing.T) (*Ledger, *journal.Poster) {
	t.Helper()
	db := storetest.New(t)
	_, err := accounts.NewRegistry(db).Seed(context.Background(), tenant)
	require.NoError(t, err)
	return New(db), journal.NewPoster(db)
}

func post(t *testing.T, p *journal.Poster, d time.Time, debitAcct, creditAcct, amount string) {
	t.Helper()
	_, err := p.Post(context.Background(), tenant, journal.PostParams{
		Date: d,
		Lines: []journal.Line{
			{AccountCode: debitAcct, Debit: dec(amount)},
			{AccountCode: creditAcct, Credit: dec(amount)},
		},
	})
	require.NoError(t, err)
}

func TestQueryRunningBalance(t *testing.T) {
	l, p := setup(t)
	ctx := context.Background()

	post(t, p, date(2025, 1, 5), "1110", "3100", "1000")
	post(t, p, date(2025, 1, 3), "1110", "4100", "200")
	post(t, p, date(2025, 1, 10), "5200", "1110", "300")

	rows, err := l.Query(ctx, tenant, "1110", time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, date(2025, 1, 3), rows[0].Date)
	assert.True(t, dec("200").Equal(rows[0].RunningBalance))
	assert.True(t, dec("1200").Equal(rows[1].RunningBalance))
	assert.True(t, dec("900").Equal(rows[2].RunningBalance))
	assert.Equal(t, "JE-2025-01-000002", rows[0].EntryNumber)

	prev := decimal.Zero
	for _, r := range rows {
		assert.True(t, prev.Add(r.Debit).Sub(r.Credit).Equal(r.RunningBalance))
		prev = r.RunningBalance
	}
}

func TestQueryCreditNormal(t *testing.T) {
	l, p := setup(t)
	ctx := context.Background()

	post(t, p, date(2025, 1, 1), "1110", "4100", "500")
	post(t, p, date(2025, 1, 2), "4100", "1110", "50")

	rows, err := l.Query(ctx, tenant, "4100", time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.True(t, dec("500").Equal(rows[0].RunningBalance))
	assert.True(t, dec("450").Equal(rows[1].RunningBalance))
}

func TestQuerySameDateOrdersByEntry(t *testing.T) {
	l, p := setup(t)

	post(t, p, date(2025, 1, 1), "1110", "4100", "1")
	post(t, p, date(2025, 1, 1), "1110", "4100", "2")
	post(t, p, date(2025, 1, 1), "1110", "4100", "3")

	rows, err := l.Query(context.Background(), tenant, "1110", time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	for i := 1; i < len(rows); i++ {
		assert.Less(t, rows[i-1].EntryID, rows[i].EntryID)
	}
	assert.True(t, dec("6").Equal(rows[2].RunningBalance))
}

func TestQueryWindow(t *testing.T) {
	l, p := setup(t)

	post(t, p, date(2024, 12, 31), "1110", "4100", "100")
	post(t, p, date(2025, 1, 1), "1110", "4100", "10")
	post(t, p, date(2025, 1, 31), "1110", "4100", "20")
	post(t, p, date(2025, 2, 1), "1110", "4100", "40")

	rows, err := l.Query(context.Background(), tenant, "1110", date(2025, 1, 1), date(2025, 1, 31))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.True(t, dec("10").Equal(rows[0].RunningBalance), "window starts from zero")
	assert.True(t, dec("30").Equal(rows[1].RunningBalance))
}

func TestQueryEmptyAndUnknown(t *testing.T) {
	l, _ := setup(t)
	ctx := context.Background()

	rows, err := l.Query(ctx, tenant, "1120", time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Empty(t, rows)

	_, err = l.Query(ctx, tenant, "9999", time.Time{}, time.Time{})
	assert.ErrorIs(t, err, apperr.ErrAccountNotFound)

	_, err = l.Query(ctx, "other", "1110", time.Time{}, time.Time{})
	assert.ErrorIs(t, err, apperr.ErrAccountNotFound)
}

func TestBalance(t *testing.T) {
	l, p := setup(t)
	ctx := context.Background()

	post(t, p, date(2025, 1, 1), "1110", "3100", "1000")
	post(t, p, date(2025, 3, 1), "5200", "1110", "250")

	bal, err := l.Balance(ctx, tenant, "1110", time.Time{})
	require.NoError(t, err)
	assert.True(t, dec("750").Equal(bal))

	bal, err = l.Balance(ctx, tenant, "1110", date(2025, 2, 1))
	require.NoError(t, err)
	assert.True(t, dec("1000").Equal(bal))

	bal, err = l.Balance(ctx, tenant, "1120", time.Time{})
	require.NoError(t, err)
	assert.True(t, bal.IsZero())

	_, err = l.Balance(ctx, tenant, "9999", time.Time{})
	assert.ErrorIs(t, err, apperr.ErrAccountNotFound)
}
