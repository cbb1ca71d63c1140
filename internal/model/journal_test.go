package model

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestEntryTotals(t *testing.T) {
	e := JournalEntry{Lines: []JournalLine{
		{AccountCode: "5100", Debit: decimal.RequireFromString("60.00")},
		{AccountCode: "5200", Debit: decimal.RequireFromString("40.00")},
		{AccountCode: "1110", Credit: decimal.RequireFromString("100.00")},
	}}
	d, c := e.Totals()
	assert.True(t, d.Equal(decimal.NewFromInt(100)))
	assert.True(t, c.Equal(decimal.NewFromInt(100)))

	d, c = JournalEntry{}.Totals()
	assert.True(t, d.IsZero())
	assert.True(t, c.IsZero())
}

func TestSignedBalance(t *testing.T) {
	debit := decimal.NewFromInt(100)
	credit := decimal.NewFromInt(30)
	tests := []struct {
		typ  AccountType
		want int64
	}{
		{AccountTypeAsset, 70},
		{AccountTypeExpense, 70},
		{AccountTypeLiability, -70},
		{AccountTypeEquity, -70},
		{AccountTypeIncome, -70},
	}
	for _, tt := range tests {
		got := tt.typ.SignedBalance(debit, credit)
		assert.True(t, got.Equal(decimal.NewFromInt(tt.want)), "%s: got %s", tt.typ, got)
	}
}

func TestParseAccountType(t *testing.T) {
	tests := []struct {
		in   string
		want AccountType
		ok   bool
	}{
		{"Asset", AccountTypeAsset, true},
		{"liability", AccountTypeLiability, true},
		{"EQUITY", AccountTypeEquity, true},
		{"revenue", AccountTypeIncome, true},
		{"Income", AccountTypeIncome, true},
		{"expense", AccountTypeExpense, true},
		{"contra", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseAccountType(tt.in)
		assert.Equal(t, tt.ok, ok, "ParseAccountType(%q)", tt.in)
		assert.Equal(t, tt.want, got, "ParseAccountType(%q)", tt.in)
	}
	assert.False(t, AccountType("Contra").Valid())
}

func TestAssetAmounts(t *testing.T) {
	a := FixedAsset{
		Cost:             decimal.NewFromInt(12000),
		SalvageValue:     decimal.NewFromInt(2000),
		DepreciatedTotal: decimal.NewFromInt(4000),
	}
	assert.True(t, a.DepreciableBase().Equal(decimal.NewFromInt(10000)))
	assert.True(t, a.Remaining().Equal(decimal.NewFromInt(6000)))
	assert.True(t, a.BookValue().Equal(decimal.NewFromInt(8000)))
}
