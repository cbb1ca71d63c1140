package accounts

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erpledger/erpledger/internal/model"
)

func TestRoundTrip(t *testing.T) {
	accounts := []model.Account{
		{Code: "1110", Name: "Cash & Bank", Type: model.AccountTypeAsset, ParentCode: "1100", Description: "Operating, payroll", Active: true},
		{Code: "5900", Name: "Legacy", Type: model.AccountTypeExpense, Active: false},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteAccounts(&buf, accounts))

	got, err := ReadAccounts(&buf)
	require.NoError(t, err)
	assert.Equal(t, accounts, got)
}

func TestReadTestdata(t *testing.T) {
	f, err := os.Open("../../testdata/chart-of-accounts.csv")
	require.NoError(t, err)
	defer f.Close()

	accounts, err := ReadAccounts(f)
	require.NoError(t, err)
	require.Len(t, accounts, 14)

	byCode := make(map[string]model.Account)
	for _, a := range accounts {
		byCode[a.Code] = a
	}
	assert.Equal(t, model.AccountTypeIncome, byCode["4000"].Type, "revenue is an alias for Income")
	assert.True(t, byCode["4100"].Active, "empty active column means active")
	assert.False(t, byCode["5900"].Active)
	assert.Equal(t, "1100", byCode["1110"].ParentCode)
}

func TestReadAccountsByHeaderName(t *testing.T) {
	in := "Type,Code,Name\nAsset,1000,Assets\nexpense,5000,Expenses\n"
	got, err := ReadAccounts(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, []model.Account{
		{Code: "1000", Name: "Assets", Type: model.AccountTypeAsset, Active: true},
		{Code: "5000", Name: "Expenses", Type: model.AccountTypeExpense, Active: true},
	}, got)

	_, err = ReadAccounts(strings.NewReader("code,name\n1000,Assets\n"))
	assert.ErrorContains(t, err, "missing type column")

	_, err = ReadAccounts(strings.NewReader("code,name,type\n1000,Assets\n"))
	assert.Error(t, err)
}

func TestUnmarshalAccountErrors(t *testing.T) {
	tests := []struct {
		name string
		row  []string
	}{
		{"short row", []string{"1000", "Assets"}},
		{"empty code", []string{" ", "Assets", "Asset", "", "", "true"}},
		{"bad type", []string{"1000", "Assets", "Stuff", "", "", "true"}},
		{"bad active", []string{"1000", "Assets", "Asset", "", "", "maybe"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := UnmarshalAccount(tt.row)
			assert.Error(t, err)
		})
	}
}

func TestDefaultChartRoundTrip(t *testing.T) {
	chart := DefaultChart()
	for i := range chart {
		chart[i].Active = true
	}

	var buf bytes.Buffer
	require.NoError(t, WriteAccounts(&buf, chart))

	got, err := ReadAccounts(&buf)
	require.NoError(t, err)
	assert.Equal(t, chart, got)
}

func TestDefaultChartIsWellFormed(t *testing.T) {
	chart := DefaultChart()
	seen := make(map[string]model.Account)
	for _, a := range chart {
		assert.NotContains(t, seen, a.Code, "duplicate code %s", a.Code)
		assert.True(t, a.Type.Valid(), "account %s", a.Code)
		if a.ParentCode != "" {
			parent, ok := seen[a.ParentCode]
			require.True(t, ok, "parent of %s must precede it", a.Code)
			assert.Equal(t, parent.Type, a.Type, "account %s type differs from parent", a.Code)
		}
		seen[a.Code] = a
	}
	for _, code := range []string{"1130", "2100", "5100", "1210", "1290", "5300"} {
		assert.Contains(t, seen, code)
	}
}
