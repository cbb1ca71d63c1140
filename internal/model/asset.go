package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// AssetStatus is the lifecycle state of a fixed asset.
type AssetStatus string

const (
	AssetStatusActive           AssetStatus = "Active"
	AssetStatusFullyDepreciated AssetStatus = "FullyDepreciated"
	AssetStatusSold             AssetStatus = "Sold"
	AssetStatusScrapped         AssetStatus = "Scrapped"
)

// FixedAsset is a depreciable asset linked to three GL accounts.
type FixedAsset struct {
	ID               uint
	TenantID         string
	Code             string
	Name             string
	PurchaseDate     time.Time
	Cost             decimal.Decimal
	SalvageValue     decimal.Decimal
	UsefulLifeYears  int
	Status           AssetStatus
	AssetAccount     string
	ExpenseAccount   string
	AccumDeprAccount string
	DepreciatedTotal decimal.Decimal
	Version          int
}

// DepreciableBase is cost minus salvage value.
func (a FixedAsset) DepreciableBase() decimal.Decimal {
	return a.Cost.Sub(a.SalvageValue)
}

// Remaining is the part of the depreciable base not yet expensed.
func (a FixedAsset) Remaining() decimal.Decimal {
	return a.DepreciableBase().Sub(a.DepreciatedTotal)
}

// BookValue is cost less accumulated depreciation.
func (a FixedAsset) BookValue() decimal.Decimal {
	return a.Cost.Sub(a.DepreciatedTotal)
}

// DepreciationEntry records one depreciation posting for an asset.
type DepreciationEntry struct {
	ID             uint
	AssetID        uint
	Date           time.Time
	Amount         decimal.Decimal
	JournalEntryID uint
}
