package store

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PostedLine is a journal line joined with its entry header.
type PostedLine struct {
	LineID      uint            `gorm:"column:line_id"`
	EntryID     uint            `gorm:"column:entry_id"`
	Date        time.Time       `gorm:"column:date"`
	Description string          `gorm:"column:description"`
	Reference   string          `gorm:"column:reference"`
	AccountCode string          `gorm:"column:account_code"`
	Debit       decimal.Decimal `gorm:"column:debit"`
	Credit      decimal.Decimal `gorm:"column:credit"`
}

// LineFilter restricts a PostedLines scan. Zero times are open bounds; both
// bounds are inclusive and compared in UTC, the zone entries are stored in.
type LineFilter struct {
	AccountCode string
	From        time.Time
	To          time.Time
}

// PostedLines returns committed lines for a tenant ordered by entry date,
// entry id and line id. Entry and lines are written in one transaction, so a
// reader never sees an entry without all of its lines.
func PostedLines(ctx context.Context, db *gorm.DB, tenantID string, f LineFilter) ([]PostedLine, error) {
	q := db.WithContext(ctx).
		Table("journal_lines AS l").
		Select("l.id AS line_id, l.entry_id, e.date, e.description, e.reference, l.account_code, l.debit, l.credit").
		Joins("JOIN journal_entries AS e ON e.id = l.entry_id").
		Where("l.tenant_id = ?", tenantID)

	if f.AccountCode != "" {
		q = q.Where("l.account_code = ?", f.AccountCode)
	}
	if !f.From.IsZero() {
		q = q.Where("e.date >= ?", f.From.UTC())
	}
	if !f.To.IsZero() {
		q = q.Where("e.date <= ?", f.To.UTC())
	}

	var rows []PostedLine
	if err := q.Order("e.date ASC, e.id ASC, l.id ASC").Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// AccountSums is the debit and credit activity of one account.
type AccountSums struct {
	Debit  decimal.Decimal
	Credit decimal.Decimal
}

// SumByAccount aggregates lines per account code in decimal arithmetic.
func SumByAccount(lines []PostedLine) map[string]AccountSums {
	sums := make(map[string]AccountSums)
	for _, l := range lines {
		s, ok := sums[l.AccountCode]
		if !ok {
			s = AccountSums{Debit: decimal.Zero, Credit: decimal.Zero}
		}
		s.Debit = s.Debit.Add(l.Debit)
		s.Credit = s.Credit.Add(l.Credit)
		sums[l.AccountCode] = s
	}
	return sums
}
