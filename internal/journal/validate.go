package journal

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/erpledger/erpledger/internal/apperr"
	"github.com/erpledger/erpledger/internal/model"
)

// Line is one side of an entry before it is posted.
type Line struct {
	AccountCode string
	Debit       decimal.Decimal
	Credit      decimal.Decimal
}

// Totals returns the summed debit and credit sides of lines.
func Totals(lines []Line) (debit, credit decimal.Decimal) {
	debit, credit = decimal.Zero, decimal.Zero
	for _, l := range lines {
		debit = debit.Add(l.Debit)
		credit = credit.Add(l.Credit)
	}
	return debit, credit
}

// ValidateLines checks the shape of an entry without touching the store.
// It returns the first violation found.
func ValidateLines(lines []Line) error {
	if len(lines) == 0 {
		return apperr.Validation(apperr.ErrEmptyEntry, "", "")
	}

	for i, l := range lines {
		if strings.TrimSpace(l.AccountCode) == "" {
			return apperr.Validation(apperr.ErrInvalidInput, fmt.Sprintf("line %d", i+1), "line %d has no account", i+1)
		}
		if l.Debit.IsNegative() {
			return apperr.Validation(apperr.ErrNegativeAmount, l.Debit.String(), "line %d debit is negative", i+1)
		}
		if l.Credit.IsNegative() {
			return apperr.Validation(apperr.ErrNegativeAmount, l.Credit.String(), "line %d credit is negative", i+1)
		}
	}

	debit, credit := Totals(lines)
	if diff := debit.Sub(credit).Abs(); diff.GreaterThan(model.BalanceTolerance) {
		return apperr.Validation(apperr.ErrUnbalanced, diff.String(),
			"debits (%s) != credits (%s)", debit.StringFixed(2), credit.StringFixed(2))
	}
	return nil
}

// checkAccounts verifies that every line references a known, active account.
func checkAccounts(lines []Line, accts map[string]model.Account) error {
	for _, l := range lines {
		a, ok := accts[l.AccountCode]
		if !ok {
			return apperr.NotFound(apperr.ErrAccountNotFound, l.AccountCode)
		}
		if !a.Active {
			return apperr.State(apperr.ErrAccountInactive, l.AccountCode, "")
		}
	}
	return nil
}
