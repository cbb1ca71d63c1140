// Package importer turns bank statement exports into journal entries.
package importer

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/erpledger/erpledger/internal/journal"
	"github.com/erpledger/erpledger/internal/logging"
)

// ReferenceType tags journal entries created from bank statements.
const ReferenceType = "BankStatement"

// Transaction is one row of a bank statement.
type Transaction struct {
	Date        time.Time
	Description string
	Amount      decimal.Decimal // negative = money out, positive = money in
	Reference   string          // stable per row; used to skip re-imports
	Type        string          // bank transaction type (ACH_DEBIT, etc.)
}

// Parser converts a bank CSV file into Transactions.
type Parser interface {
	Parse(r io.Reader) ([]Transaction, error)
	Format() string
}

// Registry holds named parsers.
type Registry struct {
	parsers map[string]Parser
}

// NewRegistry creates an empty parser registry.
func NewRegistry() *Registry {
	return &Registry{parsers: make(map[string]Parser)}
}

// Register adds a parser. Panics on duplicate format.
func (r *Registry) Register(p Parser) {
	key := strings.ToLower(p.Format())
	if _, ok := r.parsers[key]; ok {
		panic("duplicate parser format: " + key)
	}
	r.parsers[key] = p
}

// Get returns the parser for format, or nil.
func (r *Registry) Get(format string) Parser {
	return r.parsers[strings.ToLower(format)]
}

// DefaultRegistry returns a registry with all built-in parsers.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(&ChaseParser{})
	r.Register(&GenericParser{})
	return r
}

// Importer posts statement rows against a bank account and an offset account.
type Importer struct {
	poster *journal.Poster
	logger *zap.Logger
}

// New creates an Importer.
func New(poster *journal.Poster, l *zap.Logger) *Importer {
	return &Importer{poster: poster, logger: logging.OrNop(l)}
}

// Accounts names the two sides of every imported entry. Money in debits
// Bank and credits Offset; money out does the reverse.
type Accounts struct {
	Bank   string
	Offset string
}

// Summary counts the outcome of an import.
type Summary struct {
	Posted  int
	Skipped int
}

// Import posts one journal entry per transaction. Rows whose reference was
// already imported and zero-amount rows are skipped. Each entry commits on
// its own; the first failure stops the import and is returned with the
// counts so far.
func (im *Importer) Import(ctx context.Context, tenantID string, txns []Transaction, accts Accounts) (Summary, error) {
	var sum Summary
	for _, txn := range txns {
		if txn.Amount.IsZero() {
			sum.Skipped++
			continue
		}
		seen, err := im.imported(ctx, tenantID, txn.Reference)
		if err != nil {
			return sum, err
		}
		if seen {
			sum.Skipped++
			continue
		}

		amount := txn.Amount.Abs()
		debit, credit := accts.Bank, accts.Offset
		if txn.Amount.IsNegative() {
			debit, credit = accts.Offset, accts.Bank
		}
		if _, err := im.poster.Post(ctx, tenantID, journal.PostParams{
			Date:          txn.Date,
			Description:   txn.Description,
			Reference:     txn.Reference,
			ReferenceType: ReferenceType,
			Lines: []journal.Line{
				{AccountCode: debit, Debit: amount},
				{AccountCode: credit, Credit: amount},
			},
		}); err != nil {
			return sum, fmt.Errorf("importing %s: %w", txn.Reference, err)
		}
		sum.Posted++
	}

	im.logger.Info("bank statement imported",
		zap.String("tenant", tenantID),
		zap.Int("posted", sum.Posted),
		zap.Int("skipped", sum.Skipped),
	)
	return sum, nil
}

func (im *Importer) imported(ctx context.Context, tenantID, ref string) (bool, error) {
	entries, err := im.poster.List(ctx, tenantID, journal.ListFilter{Reference: ref})
	if err != nil {
		return false, err
	}
	for _, e := range entries {
		if e.ReferenceType == ReferenceType {
			return true, nil
		}
	}
	return false, nil
}
