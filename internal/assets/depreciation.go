package assets

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/erpledger/erpledger/internal/apperr"
	"github.com/erpledger/erpledger/internal/events"
	"github.com/erpledger/erpledger/internal/journal"
	"github.com/erpledger/erpledger/internal/model"
	"github.com/erpledger/erpledger/internal/store"
)

// Run outcomes.
const (
	StatusPosted           = "Posted"
	StatusFullyDepreciated = "FullyDepreciated"
)

// Result is the outcome of one depreciation run.
type Result struct {
	Status         string
	Amount         decimal.Decimal
	JournalEntryID uint
}

// MonthlyAmount is the straight-line charge per month rounded to cents.
func MonthlyAmount(a model.FixedAsset) decimal.Decimal {
	months := int64(a.UsefulLifeYears) * 12
	if months <= 0 {
		return decimal.Zero
	}
	return a.DepreciableBase().Div(decimal.NewFromInt(months)).Round(2)
}

// periodAmount is the charge for the run following `posted` earlier runs.
// The last scheduled period takes whatever remains so the asset lands
// exactly on its salvage value.
func periodAmount(a model.FixedAsset, posted int64) decimal.Decimal {
	remaining := a.Remaining()
	amount := MonthlyAmount(a)
	if posted >= int64(a.UsefulLifeYears)*12-1 || amount.IsZero() || amount.GreaterThan(remaining) {
		return remaining
	}
	return amount
}

// RunDepreciation posts one month of depreciation for an asset dated asOf
// (zero means now). The journal entry, the history row and the asset update
// commit together. Concurrent runs on one asset are serialized; the loser
// gets ErrConcurrentUpdate and posts nothing.
func (s *Service) RunDepreciation(ctx context.Context, tenantID string, assetID uint, asOf time.Time) (Result, error) {
	if asOf.IsZero() {
		asOf = s.now()
	}

	var (
		res Result
		ev  events.Event
	)
	err := store.Transact(ctx, s.db, func(tx *gorm.DB) error {
		rec, err := loadAsset(store.ForUpdate(tx), tenantID, assetID)
		if err != nil {
			return err
		}
		res, ev, err = s.run(tx, rec, asOf.UTC())
		return err
	})
	if err != nil {
		outcome := "error"
		if apperr.IsRetryable(err) {
			outcome = "conflict"
		}
		s.metrics.Depreciated(outcome, 0)
		s.logger.Warn("depreciation run failed",
			zap.String("tenant", tenantID),
			zap.Uint("asset_id", assetID),
			zap.Error(err),
		)
		return Result{}, err
	}

	s.metrics.Depreciated(res.Status, res.Amount.InexactFloat64())
	if res.Status == StatusPosted {
		s.poster.Committed(ctx, ev)
	}
	s.logger.Info("depreciation run",
		zap.String("tenant", tenantID),
		zap.Uint("asset_id", assetID),
		zap.String("status", res.Status),
		zap.String("amount", res.Amount.String()),
		zap.Uint("entry_id", res.JournalEntryID),
	)
	return res, nil
}

func (s *Service) run(tx *gorm.DB, rec store.AssetRecord, date time.Time) (Result, events.Event, error) {
	asset := rec.ToAsset()
	idStr := strconv.FormatUint(uint64(asset.ID), 10)
	exhausted := Result{Status: StatusFullyDepreciated, Amount: decimal.Zero}

	switch asset.Status {
	case model.AssetStatusActive:
	case model.AssetStatusFullyDepreciated:
		return exhausted, events.Event{}, nil
	default:
		return Result{}, events.Event{}, apperr.State(apperr.ErrInvalidState, idStr, "asset is %s", asset.Status)
	}

	if !asset.Remaining().IsPositive() {
		err := casUpdate(tx, asset, asset.DepreciatedTotal, model.AssetStatusFullyDepreciated)
		return exhausted, events.Event{}, err
	}
	if asset.ExpenseAccount == "" || asset.AccumDeprAccount == "" {
		return Result{}, events.Event{}, apperr.State(apperr.ErrMissingAccountLinks, idStr, "")
	}

	var posted int64
	if err := tx.Model(&store.DepreciationRecord{}).Where("asset_id = ?", asset.ID).Count(&posted).Error; err != nil {
		return Result{}, events.Event{}, fmt.Errorf("counting depreciation runs: %w", err)
	}
	amount := periodAmount(asset, posted)

	entry, ev, err := s.poster.PostTx(tx, asset.TenantID, journal.PostParams{
		Date:          date,
		Description:   fmt.Sprintf("Depreciation - %s - %s", asset.Name, date.Format("2006-01")),
		Reference:     idStr,
		ReferenceType: ReferenceType,
		Lines: []journal.Line{
			{AccountCode: asset.ExpenseAccount, Debit: amount},
			{AccountCode: asset.AccumDeprAccount, Credit: amount},
		},
	})
	if err != nil {
		return Result{}, events.Event{}, err
	}

	hist := store.DepreciationRecord{
		TenantID:       asset.TenantID,
		AssetID:        asset.ID,
		Date:           date,
		Amount:         amount,
		JournalEntryID: entry.ID,
	}
	if err := tx.Create(&hist).Error; err != nil {
		return Result{}, events.Event{}, fmt.Errorf("recording depreciation: %w", err)
	}

	total := asset.DepreciatedTotal.Add(amount)
	status := model.AssetStatusActive
	if total.GreaterThanOrEqual(asset.DepreciableBase()) {
		status = model.AssetStatusFullyDepreciated
	}
	if err := casUpdate(tx, asset, total, status); err != nil {
		return Result{}, events.Event{}, err
	}

	return Result{Status: StatusPosted, Amount: amount, JournalEntryID: entry.ID}, ev, nil
}

// casUpdate writes the new total and status only if nobody else has
// updated the asset since it was read.
func casUpdate(tx *gorm.DB, asset model.FixedAsset, total decimal.Decimal, status model.AssetStatus) error {
	res := tx.Model(&store.AssetRecord{}).
		Where("id = ? AND version = ?", asset.ID, asset.Version).
		Updates(map[string]any{
			"depreciated_total": total,
			"status":            string(status),
			"version":           asset.Version + 1,
		})
	if res.Error != nil {
		return fmt.Errorf("updating asset %d: %w", asset.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.Conflict(apperr.ErrConcurrentUpdate, strconv.FormatUint(uint64(asset.ID), 10))
	}
	return nil
}

// BatchResult is the outcome of one asset in RunAll.
type BatchResult struct {
	AssetID uint
	Result  Result
	Err     error
}

// RunAll runs depreciation for every Active asset of the tenant. Each asset
// commits independently; failures are reported per asset.
func (s *Service) RunAll(ctx context.Context, tenantID string, asOf time.Time) ([]BatchResult, error) {
	active, err := s.List(ctx, tenantID, model.AssetStatusActive)
	if err != nil {
		return nil, err
	}

	out := make([]BatchResult, 0, len(active))
	for _, a := range active {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		res, err := s.RunDepreciation(ctx, tenantID, a.ID, asOf)
		out = append(out, BatchResult{AssetID: a.ID, Result: res, Err: err})
	}
	return out, nil
}
