package accounts

import "github.com/erpledger/erpledger/internal/model"

// DefaultChart returns the standard chart of accounts seeded for new tenants.
func DefaultChart() []model.Account {
	return []model.Account{
		{Code: "1000", Name: "ASSETS", Type: model.AccountTypeAsset},
		{Code: "1100", Name: "Current Assets", Type: model.AccountTypeAsset, ParentCode: "1000"},
		{Code: "1110", Name: "Cash & Bank", Type: model.AccountTypeAsset, ParentCode: "1100"},
		{Code: "1120", Name: "Accounts Receivable", Type: model.AccountTypeAsset, ParentCode: "1100"},
		{Code: "1130", Name: "Inventory", Type: model.AccountTypeAsset, ParentCode: "1100"},
		{Code: "1200", Name: "Fixed Assets", Type: model.AccountTypeAsset, ParentCode: "1000"},
		{Code: "1210", Name: "Equipment", Type: model.AccountTypeAsset, ParentCode: "1200"},
		{Code: "1290", Name: "Accumulated Depreciation", Type: model.AccountTypeAsset, ParentCode: "1200", Description: "Contra-asset; carries a credit balance"},
		{Code: "2000", Name: "LIABILITIES", Type: model.AccountTypeLiability},
		{Code: "2100", Name: "Accounts Payable", Type: model.AccountTypeLiability, ParentCode: "2000", Description: "Also used as goods-received clearing"},
		{Code: "3000", Name: "EQUITY", Type: model.AccountTypeEquity},
		{Code: "3100", Name: "Capital", Type: model.AccountTypeEquity, ParentCode: "3000"},
		{Code: "4000", Name: "REVENUE", Type: model.AccountTypeIncome},
		{Code: "4100", Name: "Sales Revenue", Type: model.AccountTypeIncome, ParentCode: "4000"},
		{Code: "5000", Name: "EXPENSES", Type: model.AccountTypeExpense},
		{Code: "5100", Name: "COGS", Type: model.AccountTypeExpense, ParentCode: "5000"},
		{Code: "5200", Name: "Operating Expenses", Type: model.AccountTypeExpense, ParentCode: "5000"},
		{Code: "5300", Name: "Depreciation Expense", Type: model.AccountTypeExpense, ParentCode: "5000"},
	}
}
