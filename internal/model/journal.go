package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// BalanceTolerance is the largest debit/credit difference treated as equal.
var BalanceTolerance = decimal.New(1, -2)

// JournalEntry is a posted, balanced financial transaction. Entries are
// immutable; a mistake is corrected by posting an offsetting entry.
type JournalEntry struct {
	ID            uint
	TenantID      string
	Number        string // display number, e.g. "JE-2025-01-000042"
	Date          time.Time
	Description   string
	Reference     string // originating document, e.g. "PO-1001"
	ReferenceType string
	Lines         []JournalLine
	CreatedAt     time.Time
}

// JournalLine is one side of a journal entry against a single account.
type JournalLine struct {
	ID          uint
	EntryID     uint
	AccountCode string
	Debit       decimal.Decimal
	Credit      decimal.Decimal
}

// Totals returns the summed debit and credit sides of the entry.
func (e JournalEntry) Totals() (debit, credit decimal.Decimal) {
	debit, credit = decimal.Zero, decimal.Zero
	for _, l := range e.Lines {
		debit = debit.Add(l.Debit)
		credit = credit.Add(l.Credit)
	}
	return debit, credit
}
