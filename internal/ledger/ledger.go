// Package ledger answers per-account activity questions over posted lines.
package ledger

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/erpledger/erpledger/internal/apperr"
	"github.com/erpledger/erpledger/internal/id"
	"github.com/erpledger/erpledger/internal/model"
	"github.com/erpledger/erpledger/internal/store"
)

// Row is one posted line of an account with the balance after it.
type Row struct {
	Date           time.Time
	EntryID        uint
	EntryNumber    string
	Description    string
	Reference      string
	Debit          decimal.Decimal
	Credit         decimal.Decimal
	RunningBalance decimal.Decimal
}

// Ledger reads account activity.
type Ledger struct {
	db *gorm.DB
}

// New creates a Ledger over db.
func New(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

// Query returns the lines posted to code within [from, to], ordered by
// entry date, entry id and line id. Zero bounds are open. The running
// balance starts at zero at the first returned row and follows the
// account's normal side.
func (l *Ledger) Query(ctx context.Context, tenantID, code string, from, to time.Time) ([]Row, error) {
	acct, err := l.account(ctx, tenantID, code)
	if err != nil {
		return nil, err
	}

	lines, err := store.PostedLines(ctx, l.db, tenantID, store.LineFilter{AccountCode: code, From: from, To: to})
	if err != nil {
		return nil, err
	}

	rows := make([]Row, len(lines))
	balance := decimal.Zero
	for i, pl := range lines {
		balance = balance.Add(acct.Type.SignedBalance(pl.Debit, pl.Credit))
		rows[i] = Row{
			Date:           pl.Date,
			EntryID:        pl.EntryID,
			EntryNumber:    id.FormatEntryNumber(pl.Date, pl.EntryID),
			Description:    pl.Description,
			Reference:      pl.Reference,
			Debit:          pl.Debit,
			Credit:         pl.Credit,
			RunningBalance: balance,
		}
	}
	return rows, nil
}

// Balance returns the account's balance over everything posted up to and
// including asOf. A zero asOf means all time.
func (l *Ledger) Balance(ctx context.Context, tenantID, code string, asOf time.Time) (decimal.Decimal, error) {
	acct, err := l.account(ctx, tenantID, code)
	if err != nil {
		return decimal.Zero, err
	}

	lines, err := store.PostedLines(ctx, l.db, tenantID, store.LineFilter{AccountCode: code, To: asOf})
	if err != nil {
		return decimal.Zero, err
	}
	s := store.SumByAccount(lines)[code]
	return acct.Type.SignedBalance(s.Debit, s.Credit), nil
}

func (l *Ledger) account(ctx context.Context, tenantID, code string) (model.Account, error) {
	var rec store.AccountRecord
	err := l.db.WithContext(ctx).Where("tenant_id = ? AND code = ?", tenantID, code).Limit(1).Find(&rec).Error
	if err != nil {
		return model.Account{}, err
	}
	if rec.ID == 0 {
		return model.Account{}, apperr.NotFound(apperr.ErrAccountNotFound, code)
	}
	return rec.ToAccount(), nil
}
