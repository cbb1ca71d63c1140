// Package journal posts balanced journal entries and reads them back.
package journal

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/erpledger/erpledger/internal/apperr"
	"github.com/erpledger/erpledger/internal/events"
	"github.com/erpledger/erpledger/internal/logging"
	"github.com/erpledger/erpledger/internal/metrics"
	"github.com/erpledger/erpledger/internal/model"
	"github.com/erpledger/erpledger/internal/store"
)

// Poster is the only write path into the ledger.
type Poster struct {
	db       *gorm.DB
	notifier events.Notifier
	logger   *zap.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

// Option configures a Poster.
type Option func(*Poster)

// WithNotifier sets where journal.posted events go.
func WithNotifier(n events.Notifier) Option {
	return func(p *Poster) {
		if n != nil {
			p.notifier = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Poster) { p.logger = logging.OrNop(l) }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Poster) { p.metrics = m }
}

// WithClock sets the clock used for entries posted without a date.
func WithClock(now func() time.Time) Option {
	return func(p *Poster) { p.now = now }
}

// NewPoster creates a Poster over db.
func NewPoster(db *gorm.DB, opts ...Option) *Poster {
	p := &Poster{
		db:       db,
		notifier: events.Nop{},
		logger:   zap.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// PostParams holds a journal entry to post. A zero Date means today.
type PostParams struct {
	Date          time.Time
	Description   string
	Reference     string
	ReferenceType string
	Lines         []Line
}

// Post validates and persists an entry with all of its lines in one
// transaction, then raises journal.posted. Notification failures never
// reach the caller.
func (p *Poster) Post(ctx context.Context, tenantID string, params PostParams) (model.JournalEntry, error) {
	var (
		entry model.JournalEntry
		ev    events.Event
	)
	err := store.Transact(ctx, p.db, func(tx *gorm.DB) error {
		var err error
		entry, ev, err = p.PostTx(tx, tenantID, params)
		return err
	})
	if err != nil {
		return model.JournalEntry{}, err
	}

	p.Committed(ctx, ev)
	return entry, nil
}

// PostTx posts inside the caller's transaction. The returned event must be
// passed to Committed once the transaction commits.
func (p *Poster) PostTx(tx *gorm.DB, tenantID string, params PostParams) (model.JournalEntry, events.Event, error) {
	entry, err := p.postTx(tx, tenantID, params)
	if err != nil {
		p.metrics.Rejected(rejectReason(err))
		p.logger.Info("journal entry rejected",
			zap.String("tenant", tenantID),
			zap.String("reference", params.Reference),
			zap.Error(err),
		)
		return model.JournalEntry{}, events.Event{}, err
	}
	return entry, events.JournalPosted(entry), nil
}

func (p *Poster) postTx(tx *gorm.DB, tenantID string, params PostParams) (model.JournalEntry, error) {
	if tenantID == "" {
		return model.JournalEntry{}, apperr.Validation(apperr.ErrInvalidInput, "tenant", "tenant is required")
	}
	if err := ValidateLines(params.Lines); err != nil {
		return model.JournalEntry{}, err
	}

	accts, err := loadAccounts(tx, tenantID, params.Lines)
	if err != nil {
		return model.JournalEntry{}, err
	}
	if err := checkAccounts(params.Lines, accts); err != nil {
		return model.JournalEntry{}, err
	}

	date := params.Date
	if date.IsZero() {
		date = p.now()
	}

	rec := store.EntryRecord{
		TenantID:      tenantID,
		Date:          date.UTC(),
		Description:   params.Description,
		Reference:     params.Reference,
		ReferenceType: params.ReferenceType,
		Lines:         make([]store.LineRecord, len(params.Lines)),
	}
	for i, l := range params.Lines {
		rec.Lines[i] = store.LineRecord{
			TenantID:    tenantID,
			AccountCode: l.AccountCode,
			Debit:       l.Debit,
			Credit:      l.Credit,
		}
	}
	if err := tx.Create(&rec).Error; err != nil {
		return model.JournalEntry{}, fmt.Errorf("inserting journal entry: %w", err)
	}
	return rec.ToEntry(), nil
}

func loadAccounts(tx *gorm.DB, tenantID string, lines []Line) (map[string]model.Account, error) {
	codes := make([]string, 0, len(lines))
	for _, l := range lines {
		if !slices.Contains(codes, l.AccountCode) {
			codes = append(codes, l.AccountCode)
		}
	}

	var recs []store.AccountRecord
	if err := tx.Where("tenant_id = ? AND code IN ?", tenantID, codes).Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("loading accounts: %w", err)
	}
	out := make(map[string]model.Account, len(recs))
	for _, r := range recs {
		out[r.Code] = r.ToAccount()
	}
	return out, nil
}

// Committed records a committed entry and hands its event to the notifier.
func (p *Poster) Committed(ctx context.Context, ev events.Event) {
	p.metrics.Posted(ev.TotalAmount.InexactFloat64())
	p.logger.Info("journal entry posted",
		zap.String("tenant", ev.TenantID),
		zap.Uint("entry_id", ev.EntryID),
		zap.String("number", ev.EntryNumber),
		zap.String("total", ev.TotalAmount.String()),
		zap.String("reference", ev.Reference),
	)
	p.notifier.Notify(ctx, ev)
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, apperr.ErrEmptyEntry):
		return "empty"
	case errors.Is(err, apperr.ErrUnbalanced):
		return "unbalanced"
	case errors.Is(err, apperr.ErrNegativeAmount):
		return "negative_amount"
	case errors.Is(err, apperr.ErrAccountNotFound):
		return "account_not_found"
	case errors.Is(err, apperr.ErrAccountInactive):
		return "account_inactive"
	case apperr.IsValidation(err):
		return "invalid"
	}
	return "storage"
}

// Get returns a posted entry with its lines.
func (p *Poster) Get(ctx context.Context, tenantID string, entryID uint) (model.JournalEntry, error) {
	var rec store.EntryRecord
	err := p.db.WithContext(ctx).
		Preload("Lines", orderLines).
		Where("tenant_id = ? AND id = ?", tenantID, entryID).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.JournalEntry{}, apperr.NotFound(apperr.ErrEntryNotFound, fmt.Sprint(entryID))
	}
	if err != nil {
		return model.JournalEntry{}, fmt.Errorf("loading journal entry %d: %w", entryID, err)
	}
	return rec.ToEntry(), nil
}

// ListFilter restricts List. Zero dates are open bounds; both are inclusive.
type ListFilter struct {
	From      time.Time
	To        time.Time
	Reference string
}

// List returns entries ordered by date then id.
func (p *Poster) List(ctx context.Context, tenantID string, f ListFilter) ([]model.JournalEntry, error) {
	q := p.db.WithContext(ctx).Preload("Lines", orderLines).Where("tenant_id = ?", tenantID)
	if !f.From.IsZero() {
		q = q.Where("date >= ?", f.From.UTC())
	}
	if !f.To.IsZero() {
		q = q.Where("date <= ?", f.To.UTC())
	}
	if f.Reference != "" {
		q = q.Where("reference = ?", f.Reference)
	}

	var recs []store.EntryRecord
	if err := q.Order("date ASC, id ASC").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("listing journal entries: %w", err)
	}
	out := make([]model.JournalEntry, len(recs))
	for i, r := range recs {
		out[i] = r.ToEntry()
	}
	return out, nil
}

func orderLines(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }

// ReferenceTypeReversal marks entries produced by Reverse.
const ReferenceTypeReversal = "Reversal"

// Reverse posts an entry that offsets entryID line by line. A zero date
// means today.
func (p *Poster) Reverse(ctx context.Context, tenantID string, entryID uint, date time.Time) (model.JournalEntry, error) {
	orig, err := p.Get(ctx, tenantID, entryID)
	if err != nil {
		return model.JournalEntry{}, err
	}

	lines := make([]Line, len(orig.Lines))
	for i, l := range orig.Lines {
		lines[i] = Line{AccountCode: l.AccountCode, Debit: l.Credit, Credit: l.Debit}
	}
	return p.Post(ctx, tenantID, PostParams{
		Date:          date,
		Description:   "Reversal of " + orig.Number,
		Reference:     orig.Number,
		ReferenceType: ReferenceTypeReversal,
		Lines:         lines,
	})
}
