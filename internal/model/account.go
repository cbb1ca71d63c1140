package model

import (
	"strings"

	"github.com/shopspring/decimal"
)

// AccountType classifies accounts in the chart of accounts.
type AccountType string

const (
	AccountTypeAsset     AccountType = "Asset"
	AccountTypeLiability AccountType = "Liability"
	AccountTypeEquity    AccountType = "Equity"
	AccountTypeIncome    AccountType = "Income"
	AccountTypeExpense   AccountType = "Expense"
)

// AccountTypes lists every type in statement order.
var AccountTypes = []AccountType{
	AccountTypeAsset,
	AccountTypeLiability,
	AccountTypeEquity,
	AccountTypeIncome,
	AccountTypeExpense,
}

// Valid reports whether t is one of the five account types.
func (t AccountType) Valid() bool {
	switch t {
	case AccountTypeAsset, AccountTypeLiability, AccountTypeEquity, AccountTypeIncome, AccountTypeExpense:
		return true
	}
	return false
}

// DebitNormal reports whether debits increase the account's balance.
// Asset and Expense accounts are debit-normal; the rest are credit-normal.
func (t AccountType) DebitNormal() bool {
	return t == AccountTypeAsset || t == AccountTypeExpense
}

// SignedBalance returns the balance effect of a debit/credit pair for the type.
func (t AccountType) SignedBalance(debit, credit decimal.Decimal) decimal.Decimal {
	if t.DebitNormal() {
		return debit.Sub(credit)
	}
	return credit.Sub(debit)
}

// ParseAccountType accepts the canonical names case-insensitively, plus
// "revenue" as an alias for Income.
func ParseAccountType(s string) (AccountType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "asset":
		return AccountTypeAsset, true
	case "liability":
		return AccountTypeLiability, true
	case "equity":
		return AccountTypeEquity, true
	case "income", "revenue":
		return AccountTypeIncome, true
	case "expense":
		return AccountTypeExpense, true
	}
	return "", false
}

// Account is a node in a tenant's chart of accounts.
type Account struct {
	TenantID    string
	Code        string
	Name        string
	Type        AccountType
	ParentCode  string // "" = top-level
	Description string
	Active      bool
}
