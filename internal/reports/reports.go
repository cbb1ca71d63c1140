// Package reports derives financial statements from posted lines. Every
// statement reads the chart and the relevant lines once and aggregates in
// memory with decimal arithmetic.
package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/erpledger/erpledger/internal/logging"
	"github.com/erpledger/erpledger/internal/metrics"
	"github.com/erpledger/erpledger/internal/model"
	"github.com/erpledger/erpledger/internal/store"
)

// RetainedEarningsName labels the synthesized equity line.
const RetainedEarningsName = "Retained Earnings (Net Income)"

// Generator builds statements for a tenant.
type Generator struct {
	db      *gorm.DB
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// Option configures a Generator.
type Option func(*Generator)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(g *Generator) { g.logger = logging.OrNop(l) }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Generator) { g.metrics = m }
}

// New creates a Generator over db.
func New(db *gorm.DB, opts ...Option) *Generator {
	g := &Generator{db: db, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Line is one account on a statement.
type Line struct {
	Code   string
	Name   string
	Amount decimal.Decimal
}

// TrialBalanceLine is the lifetime activity of one account.
type TrialBalanceLine struct {
	Code   string
	Name   string
	Type   model.AccountType
	Debit  decimal.Decimal
	Credit decimal.Decimal
	Net    decimal.Decimal // debit - credit
}

// TrialBalance lists every account with activity.
type TrialBalance struct {
	Lines       []TrialBalanceLine
	TotalDebit  decimal.Decimal
	TotalCredit decimal.Decimal
	IsBalanced  bool
}

// ProfitAndLoss is income and expense activity over a window.
type ProfitAndLoss struct {
	From          time.Time
	To            time.Time
	Revenue       []Line
	Expenses      []Line
	TotalRevenue  decimal.Decimal
	TotalExpenses decimal.Decimal
	NetIncome     decimal.Decimal
}

// BalanceSheet is the position of the tenant at AsOf.
type BalanceSheet struct {
	AsOf               time.Time
	Assets             []Line
	Liabilities        []Line
	Equity             []Line // ends with the retained earnings line
	TotalAssets        decimal.Decimal
	TotalLiabilities   decimal.Decimal
	TotalEquity        decimal.Decimal
	TotalLiabAndEquity decimal.Decimal
	RetainedEarnings   decimal.Decimal
	IsBalanced         bool
}

// snapshot is the chart plus per-account sums for one line filter.
type snapshot struct {
	accounts []model.Account
	sums     map[string]store.AccountSums
}

func (g *Generator) load(ctx context.Context, tenantID string, f store.LineFilter) (snapshot, error) {
	var recs []store.AccountRecord
	if err := g.db.WithContext(ctx).Where("tenant_id = ?", tenantID).Order("code ASC").Find(&recs).Error; err != nil {
		return snapshot{}, fmt.Errorf("loading accounts: %w", err)
	}
	lines, err := store.PostedLines(ctx, g.db, tenantID, f)
	if err != nil {
		return snapshot{}, fmt.Errorf("loading lines: %w", err)
	}

	s := snapshot{accounts: make([]model.Account, len(recs)), sums: store.SumByAccount(lines)}
	for i, r := range recs {
		s.accounts[i] = r.ToAccount()
	}
	return s, nil
}

func (g *Generator) observe(report, tenantID string, start time.Time) {
	elapsed := time.Since(start)
	g.metrics.ObserveReport(report, elapsed.Seconds())
	g.logger.Debug("report generated",
		zap.String("report", report),
		zap.String("tenant", tenantID),
		zap.Duration("elapsed", elapsed),
	)
}

func withinTolerance(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(model.BalanceTolerance)
}

// TrialBalance sums all debits and credits ever posted, per account.
func (g *Generator) TrialBalance(ctx context.Context, tenantID string) (TrialBalance, error) {
	defer g.observe("trial_balance", tenantID, time.Now())

	s, err := g.load(ctx, tenantID, store.LineFilter{})
	if err != nil {
		return TrialBalance{}, err
	}

	tb := TrialBalance{TotalDebit: decimal.Zero, TotalCredit: decimal.Zero}
	for _, a := range s.accounts {
		sum, ok := s.sums[a.Code]
		if !ok || (sum.Debit.IsZero() && sum.Credit.IsZero()) {
			continue
		}
		tb.Lines = append(tb.Lines, TrialBalanceLine{
			Code:   a.Code,
			Name:   a.Name,
			Type:   a.Type,
			Debit:  sum.Debit,
			Credit: sum.Credit,
			Net:    sum.Debit.Sub(sum.Credit),
		})
		tb.TotalDebit = tb.TotalDebit.Add(sum.Debit)
		tb.TotalCredit = tb.TotalCredit.Add(sum.Credit)
	}
	tb.IsBalanced = withinTolerance(tb.TotalDebit, tb.TotalCredit)
	return tb, nil
}

// ProfitAndLoss reports income and expenses dated within [from, to].
func (g *Generator) ProfitAndLoss(ctx context.Context, tenantID string, from, to time.Time) (ProfitAndLoss, error) {
	defer g.observe("profit_and_loss", tenantID, time.Now())

	s, err := g.load(ctx, tenantID, store.LineFilter{From: from, To: to})
	if err != nil {
		return ProfitAndLoss{}, err
	}

	pl := ProfitAndLoss{From: from, To: to}
	pl.Revenue, pl.TotalRevenue = s.section(model.AccountTypeIncome)
	pl.Expenses, pl.TotalExpenses = s.section(model.AccountTypeExpense)
	pl.NetIncome = pl.TotalRevenue.Sub(pl.TotalExpenses)
	return pl, nil
}

// BalanceSheet reports balances of everything dated on or before asOf.
// Cumulative net income is appended to equity as retained earnings.
func (g *Generator) BalanceSheet(ctx context.Context, tenantID string, asOf time.Time) (BalanceSheet, error) {
	defer g.observe("balance_sheet", tenantID, time.Now())

	s, err := g.load(ctx, tenantID, store.LineFilter{To: asOf})
	if err != nil {
		return BalanceSheet{}, err
	}

	bs := BalanceSheet{AsOf: asOf}
	bs.Assets, bs.TotalAssets = s.section(model.AccountTypeAsset)
	bs.Liabilities, bs.TotalLiabilities = s.section(model.AccountTypeLiability)
	bs.Equity, bs.TotalEquity = s.section(model.AccountTypeEquity)

	_, income := s.section(model.AccountTypeIncome)
	_, expense := s.section(model.AccountTypeExpense)
	bs.RetainedEarnings = income.Sub(expense)
	bs.Equity = append(bs.Equity, Line{Name: RetainedEarningsName, Amount: bs.RetainedEarnings})
	bs.TotalEquity = bs.TotalEquity.Add(bs.RetainedEarnings)

	bs.TotalLiabAndEquity = bs.TotalLiabilities.Add(bs.TotalEquity)
	bs.IsBalanced = withinTolerance(bs.TotalAssets, bs.TotalLiabAndEquity)
	return bs, nil
}

// section returns the non-zero balances of every account of type t in code
// order, signed by the type's normal side, and their total.
func (s snapshot) section(t model.AccountType) ([]Line, decimal.Decimal) {
	var lines []Line
	total := decimal.Zero
	for _, a := range s.accounts {
		if a.Type != t {
			continue
		}
		sum := s.sums[a.Code]
		amount := t.SignedBalance(sum.Debit, sum.Credit)
		if amount.IsZero() {
			continue
		}
		lines = append(lines, Line{Code: a.Code, Name: a.Name, Amount: amount})
		total = total.Add(amount)
	}
	return lines, total
}
