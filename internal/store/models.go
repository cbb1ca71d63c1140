package store

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/erpledger/erpledger/internal/id"
	"github.com/erpledger/erpledger/internal/model"
)

// AccountRecord is a row in the accounts table.
type AccountRecord struct {
	ID          uint   `gorm:"primaryKey"`
	TenantID    string `gorm:"column:tenant_id;not null;uniqueIndex:idx_accounts_tenant_code"`
	Code        string `gorm:"column:code;not null;uniqueIndex:idx_accounts_tenant_code"`
	Name        string `gorm:"column:name;not null"`
	Type        string `gorm:"column:type;not null"`
	ParentCode  string `gorm:"column:parent_code;index"`
	Description string `gorm:"column:description"`
	Active      bool   `gorm:"column:active;not null"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (AccountRecord) TableName() string { return "accounts" }

// EntryRecord is a row in the journal_entries table.
type EntryRecord struct {
	ID            uint      `gorm:"primaryKey"`
	TenantID      string    `gorm:"column:tenant_id;not null;index:idx_entries_tenant_date"`
	Date          time.Time `gorm:"column:date;not null;index:idx_entries_tenant_date"`
	Description   string    `gorm:"column:description"`
	Reference     string    `gorm:"column:reference;index"`
	ReferenceType string    `gorm:"column:reference_type"`
	CreatedAt     time.Time
	Lines         []LineRecord `gorm:"foreignKey:EntryID"`
}

func (EntryRecord) TableName() string { return "journal_entries" }

// LineRecord is a row in the journal_lines table. Amounts are stored as text
// so sqlite keeps them exact; sums are computed with decimal arithmetic.
type LineRecord struct {
	ID          uint            `gorm:"primaryKey"`
	TenantID    string          `gorm:"column:tenant_id;not null;index:idx_lines_tenant_account"`
	EntryID     uint            `gorm:"column:entry_id;not null;index"`
	AccountCode string          `gorm:"column:account_code;not null;index:idx_lines_tenant_account"`
	Debit       decimal.Decimal `gorm:"column:debit;type:varchar(78);not null"`
	Credit      decimal.Decimal `gorm:"column:credit;type:varchar(78);not null"`
}

func (LineRecord) TableName() string { return "journal_lines" }

// AssetRecord is a row in the fixed_assets table.
type AssetRecord struct {
	ID               uint            `gorm:"primaryKey"`
	TenantID         string          `gorm:"column:tenant_id;not null;index"`
	Code             string          `gorm:"column:code;index"`
	Name             string          `gorm:"column:name;not null"`
	PurchaseDate     time.Time       `gorm:"column:purchase_date"`
	Cost             decimal.Decimal `gorm:"column:cost;type:varchar(78);not null"`
	SalvageValue     decimal.Decimal `gorm:"column:salvage_value;type:varchar(78);not null"`
	UsefulLifeYears  int             `gorm:"column:useful_life_years;not null"`
	Status           string          `gorm:"column:status;not null"`
	AssetAccount     string          `gorm:"column:asset_account"`
	ExpenseAccount   string          `gorm:"column:expense_account"`
	AccumDeprAccount string          `gorm:"column:accdepr_account"`
	DepreciatedTotal decimal.Decimal `gorm:"column:depreciated_total;type:varchar(78);not null"`
	Version          int             `gorm:"column:version;not null"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (AssetRecord) TableName() string { return "fixed_assets" }

// DepreciationRecord is a row in the depreciation_entries table.
type DepreciationRecord struct {
	ID             uint            `gorm:"primaryKey"`
	TenantID       string          `gorm:"column:tenant_id;not null"`
	AssetID        uint            `gorm:"column:asset_id;not null;index"`
	Date           time.Time       `gorm:"column:date;not null"`
	Amount         decimal.Decimal `gorm:"column:amount;type:varchar(78);not null"`
	JournalEntryID uint            `gorm:"column:journal_entry_id;not null"`
}

func (DepreciationRecord) TableName() string { return "depreciation_entries" }

// ToAccount converts a record into the domain type.
func (r AccountRecord) ToAccount() model.Account {
	return model.Account{
		TenantID:    r.TenantID,
		Code:        r.Code,
		Name:        r.Name,
		Type:        model.AccountType(r.Type),
		ParentCode:  r.ParentCode,
		Description: r.Description,
		Active:      r.Active,
	}
}

// FromAccount converts a domain account into a record.
func FromAccount(a model.Account) AccountRecord {
	return AccountRecord{
		TenantID:    a.TenantID,
		Code:        a.Code,
		Name:        a.Name,
		Type:        string(a.Type),
		ParentCode:  a.ParentCode,
		Description: a.Description,
		Active:      a.Active,
	}
}

// ToEntry converts a record (with preloaded lines) into the domain type.
func (r EntryRecord) ToEntry() model.JournalEntry {
	lines := make([]model.JournalLine, len(r.Lines))
	for i, l := range r.Lines {
		lines[i] = model.JournalLine{
			ID:          l.ID,
			EntryID:     l.EntryID,
			AccountCode: l.AccountCode,
			Debit:       l.Debit,
			Credit:      l.Credit,
		}
	}
	return model.JournalEntry{
		ID:            r.ID,
		TenantID:      r.TenantID,
		Number:        id.FormatEntryNumber(r.Date, r.ID),
		Date:          r.Date,
		Description:   r.Description,
		Reference:     r.Reference,
		ReferenceType: r.ReferenceType,
		Lines:         lines,
		CreatedAt:     r.CreatedAt,
	}
}

// ToAsset converts a record into the domain type.
func (r AssetRecord) ToAsset() model.FixedAsset {
	return model.FixedAsset{
		ID:               r.ID,
		TenantID:         r.TenantID,
		Code:             r.Code,
		Name:             r.Name,
		PurchaseDate:     r.PurchaseDate,
		Cost:             r.Cost,
		SalvageValue:     r.SalvageValue,
		UsefulLifeYears:  r.UsefulLifeYears,
		Status:           model.AssetStatus(r.Status),
		AssetAccount:     r.AssetAccount,
		ExpenseAccount:   r.ExpenseAccount,
		AccumDeprAccount: r.AccumDeprAccount,
		DepreciatedTotal: r.DepreciatedTotal,
		Version:          r.Version,
	}
}

// ToDepreciation converts a record into the domain type.
func (r DepreciationRecord) ToDepreciation() model.DepreciationEntry {
	return model.DepreciationEntry{
		ID:             r.ID,
		AssetID:        r.AssetID,
		Date:           r.Date,
		Amount:         r.Amount,
		JournalEntryID: r.JournalEntryID,
	}
}
