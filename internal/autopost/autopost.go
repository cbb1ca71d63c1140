// Package autopost books inventory movements into the journal.
package autopost

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/erpledger/erpledger/internal/apperr"
	"github.com/erpledger/erpledger/internal/config"
	"github.com/erpledger/erpledger/internal/events"
	"github.com/erpledger/erpledger/internal/journal"
	"github.com/erpledger/erpledger/internal/logging"
	"github.com/erpledger/erpledger/internal/metrics"
	"github.com/erpledger/erpledger/internal/model"
)

// Movement types.
const (
	TypeReceipt  = "IN_RECEIPT"
	TypeDelivery = "OUT_DELIVERY"
)

// ReferenceType tags entries posted from inventory movements.
const ReferenceType = "Inventory"

// Mapping names the accounts a movement is booked against.
type Mapping struct {
	Inventory   string
	GRNClearing string
	COGS        string
	UnitCost    decimal.Decimal
}

// MappingFromConfig builds a Mapping from configuration.
func MappingFromConfig(cfg config.AutopostConfig) (Mapping, error) {
	cost, err := decimal.NewFromString(cfg.UnitCost)
	if err != nil {
		return Mapping{}, fmt.Errorf("parsing unit cost %q: %w", cfg.UnitCost, err)
	}
	return Mapping{
		Inventory:   cfg.InventoryAccount,
		GRNClearing: cfg.GRNClearingAccount,
		COGS:        cfg.COGSAccount,
		UnitCost:    cost,
	}, nil
}

// Handler posts journal entries for stock movements.
type Handler struct {
	poster  *journal.Poster
	mapping Mapping
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewHandler creates a Handler.
func NewHandler(poster *journal.Poster, mapping Mapping, l *zap.Logger, m *metrics.Metrics) *Handler {
	return &Handler{poster: poster, mapping: mapping, logger: logging.OrNop(l), metrics: m}
}

// Post books m and returns the entry. Goods receipts debit inventory
// against GRN clearing; deliveries debit cost of goods sold against
// inventory. The value is |quantity| at the movement's unit cost, or the
// standard cost when none is given. Other movement types return nil.
func (h *Handler) Post(ctx context.Context, tenantID string, m events.Movement) (*model.JournalEntry, error) {
	var debit, credit, desc string
	switch m.Type {
	case TypeReceipt:
		debit, credit = h.mapping.Inventory, h.mapping.GRNClearing
		desc = "Auto-Post: Goods Receipt " + m.RefID
	case TypeDelivery:
		debit, credit = h.mapping.COGS, h.mapping.Inventory
		desc = "Auto-Post: Delivery " + m.RefID
	default:
		h.logger.Debug("movement ignored", zap.String("type", m.Type), zap.String("ref", m.RefID))
		return nil, nil
	}

	cost := m.UnitCost
	if cost.IsZero() {
		cost = h.mapping.UnitCost
	}
	if cost.IsNegative() {
		return nil, apperr.Validation(apperr.ErrNegativeAmount, cost.String(), "unit cost is negative")
	}
	value := m.Quantity.Abs().Mul(cost)

	entry, err := h.poster.Post(ctx, tenantID, journal.PostParams{
		Description:   desc,
		Reference:     m.RefID,
		ReferenceType: ReferenceType,
		Lines: []journal.Line{
			{AccountCode: debit, Debit: value},
			{AccountCode: credit, Credit: value},
		},
	})
	if err != nil {
		return nil, err
	}

	h.metrics.Autoposted(m.Type)
	h.logger.Info("movement posted",
		zap.String("tenant", tenantID),
		zap.String("type", m.Type),
		zap.String("ref", m.RefID),
		zap.String("value", value.String()),
		zap.Uint("entry_id", entry.ID),
	)
	return &entry, nil
}

// HandleMovement implements events.MovementHandler.
func (h *Handler) HandleMovement(ctx context.Context, tenantID string, m events.Movement) error {
	_, err := h.Post(ctx, tenantID, m)
	return err
}
