// Package assets registers fixed assets and posts their straight-line
// depreciation into the journal.
package assets

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/erpledger/erpledger/internal/apperr"
	"github.com/erpledger/erpledger/internal/journal"
	"github.com/erpledger/erpledger/internal/logging"
	"github.com/erpledger/erpledger/internal/metrics"
	"github.com/erpledger/erpledger/internal/model"
	"github.com/erpledger/erpledger/internal/store"
)

// ReferenceType tags journal entries posted by depreciation runs.
const ReferenceType = "FixedAsset"

// Service manages fixed assets.
type Service struct {
	db       *gorm.DB
	poster   *journal.Poster
	logger   *zap.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
	validate *validator.Validate
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = logging.OrNop(l) }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock sets the clock used when no run date is given.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a Service. Depreciation entries are posted through
// poster.
func NewService(db *gorm.DB, poster *journal.Poster, opts ...Option) *Service {
	s := &Service{
		db:       db,
		poster:   poster,
		logger:   zap.NewNop(),
		now:      time.Now,
		validate: validator.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterParams describes a new asset. The account links are optional at
// registration but required before the first depreciation run.
type RegisterParams struct {
	Code             string `validate:"max=32"`
	Name             string `validate:"required,max=200"`
	PurchaseDate     time.Time
	Cost             decimal.Decimal
	SalvageValue     decimal.Decimal
	UsefulLifeYears  int `validate:"gte=1,lte=100"`
	AssetAccount     string
	ExpenseAccount   string
	AccumDeprAccount string
}

// Register stores a new Active asset.
func (s *Service) Register(ctx context.Context, tenantID string, p RegisterParams) (model.FixedAsset, error) {
	if err := s.checkParams(tenantID, p); err != nil {
		return model.FixedAsset{}, err
	}

	var asset model.FixedAsset
	err := store.Transact(ctx, s.db, func(tx *gorm.DB) error {
		for _, code := range []string{p.AssetAccount, p.ExpenseAccount, p.AccumDeprAccount} {
			if code == "" {
				continue
			}
			var n int64
			if err := tx.Model(&store.AccountRecord{}).Where("tenant_id = ? AND code = ?", tenantID, code).Count(&n).Error; err != nil {
				return fmt.Errorf("looking up account %s: %w", code, err)
			}
			if n == 0 {
				return apperr.NotFound(apperr.ErrAccountNotFound, code)
			}
		}

		rec := store.AssetRecord{
			TenantID:         tenantID,
			Code:             p.Code,
			Name:             p.Name,
			PurchaseDate:     p.PurchaseDate.UTC(),
			Cost:             p.Cost,
			SalvageValue:     p.SalvageValue,
			UsefulLifeYears:  p.UsefulLifeYears,
			Status:           string(model.AssetStatusActive),
			AssetAccount:     p.AssetAccount,
			ExpenseAccount:   p.ExpenseAccount,
			AccumDeprAccount: p.AccumDeprAccount,
			DepreciatedTotal: decimal.Zero,
		}
		if err := tx.Create(&rec).Error; err != nil {
			return fmt.Errorf("inserting asset: %w", err)
		}
		asset = rec.ToAsset()
		return nil
	})
	if err != nil {
		return model.FixedAsset{}, err
	}

	s.logger.Info("asset registered",
		zap.String("tenant", tenantID),
		zap.Uint("asset_id", asset.ID),
		zap.String("name", asset.Name),
		zap.String("cost", asset.Cost.String()),
	)
	return asset, nil
}

func (s *Service) checkParams(tenantID string, p RegisterParams) error {
	if strings.TrimSpace(tenantID) == "" {
		return apperr.Validation(apperr.ErrInvalidInput, "tenant", "tenant is required")
	}
	if err := s.validate.Struct(p); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return apperr.Validation(apperr.ErrInvalidInput, fe.Field(), "%s failed %q validation", fe.Field(), fe.Tag())
		}
		return apperr.Validation(apperr.ErrInvalidInput, "", "%v", err)
	}
	if !p.Cost.IsPositive() {
		return apperr.Validation(apperr.ErrInvalidInput, p.Cost.String(), "cost must be positive")
	}
	if p.SalvageValue.IsNegative() || p.SalvageValue.GreaterThan(p.Cost) {
		return apperr.Validation(apperr.ErrInvalidInput, p.SalvageValue.String(), "salvage value must be between 0 and cost")
	}
	return nil
}

// Get returns an asset by id.
func (s *Service) Get(ctx context.Context, tenantID string, assetID uint) (model.FixedAsset, error) {
	rec, err := loadAsset(s.db.WithContext(ctx), tenantID, assetID)
	if err != nil {
		return model.FixedAsset{}, err
	}
	return rec.ToAsset(), nil
}

func loadAsset(tx *gorm.DB, tenantID string, assetID uint) (store.AssetRecord, error) {
	var rec store.AssetRecord
	err := tx.Where("tenant_id = ? AND id = ?", tenantID, assetID).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return store.AssetRecord{}, apperr.NotFound(apperr.ErrAssetNotFound, strconv.FormatUint(uint64(assetID), 10))
	}
	if err != nil {
		return store.AssetRecord{}, fmt.Errorf("loading asset %d: %w", assetID, err)
	}
	return rec, nil
}

// List returns a tenant's assets ordered by id. An empty status lists all.
func (s *Service) List(ctx context.Context, tenantID string, status model.AssetStatus) ([]model.FixedAsset, error) {
	q := s.db.WithContext(ctx).Where("tenant_id = ?", tenantID)
	if status != "" {
		q = q.Where("status = ?", string(status))
	}
	var recs []store.AssetRecord
	if err := q.Order("id ASC").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("listing assets: %w", err)
	}
	out := make([]model.FixedAsset, len(recs))
	for i, r := range recs {
		out[i] = r.ToAsset()
	}
	return out, nil
}

// History returns the depreciation postings of an asset in date order.
func (s *Service) History(ctx context.Context, tenantID string, assetID uint) ([]model.DepreciationEntry, error) {
	if _, err := loadAsset(s.db.WithContext(ctx), tenantID, assetID); err != nil {
		return nil, err
	}
	var recs []store.DepreciationRecord
	err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND asset_id = ?", tenantID, assetID).
		Order("date ASC, id ASC").
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("loading depreciation history: %w", err)
	}
	out := make([]model.DepreciationEntry, len(recs))
	for i, r := range recs {
		out[i] = r.ToDepreciation()
	}
	return out, nil
}
