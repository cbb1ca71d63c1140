package accounts

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/erpledger/erpledger/internal/model"
)

// Header is the CSV header for a chart-of-accounts file.
const Header = "code,name,type,parent_code,description,active"

const (
	numFields = 6
	colCode   = 0
	colName   = 1
	colType   = 2
	colParent = 3
	colDesc   = 4
	colActive = 5
)

// ReadAccounts reads a chart-of-accounts CSV. Columns are matched by header
// name in any order; code, name and type are required, the rest optional.
func ReadAccounts(r io.Reader) ([]model.Account, error) {
	cr := csv.NewReader(r)

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading accounts CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	layout, err := columnLayout(records[0])
	if err != nil {
		return nil, err
	}

	var accounts []model.Account
	for i, rec := range records[1:] {
		row := make([]string, numFields)
		for col, src := range layout {
			if src >= 0 {
				row[col] = rec[src]
			}
		}
		acct, err := UnmarshalAccount(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		accounts = append(accounts, acct)
	}
	return accounts, nil
}

// columnLayout maps each canonical column to its index in header, or -1.
func columnLayout(header []string) ([numFields]int, error) {
	var layout [numFields]int
	names := strings.Split(Header, ",")
	for col, name := range names {
		layout[col] = -1
		for i, h := range header {
			if strings.EqualFold(strings.TrimSpace(h), name) {
				layout[col] = i
				break
			}
		}
	}
	for _, col := range []int{colCode, colName, colType} {
		if layout[col] < 0 {
			return layout, fmt.Errorf("accounts CSV: missing %s column", names[col])
		}
	}
	return layout, nil
}

// WriteAccounts writes a chart-of-accounts CSV.
func WriteAccounts(w io.Writer, accounts []model.Account) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(strings.Split(Header, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, acct := range accounts {
		if err := cw.Write(MarshalAccount(acct)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// MarshalAccount converts an Account to a CSV row.
func MarshalAccount(acct model.Account) []string {
	row := make([]string, numFields)
	row[colCode] = acct.Code
	row[colName] = acct.Name
	row[colType] = string(acct.Type)
	row[colParent] = acct.ParentCode
	row[colDesc] = acct.Description
	row[colActive] = strconv.FormatBool(acct.Active)
	return row
}

// UnmarshalAccount converts a CSV row to an Account. An empty active column
// means active.
func UnmarshalAccount(record []string) (model.Account, error) {
	if len(record) != numFields {
		return model.Account{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	code := strings.TrimSpace(record[colCode])
	if code == "" {
		return model.Account{}, fmt.Errorf("empty account code")
	}

	typ, ok := model.ParseAccountType(record[colType])
	if !ok {
		return model.Account{}, fmt.Errorf("parsing type %q: unknown account type", record[colType])
	}

	active := true
	if v := strings.TrimSpace(record[colActive]); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return model.Account{}, fmt.Errorf("parsing active %q: %w", v, err)
		}
		active = b
	}

	return model.Account{
		Code:        code,
		Name:        record[colName],
		Type:        typ,
		ParentCode:  strings.TrimSpace(record[colParent]),
		Description: record[colDesc],
		Active:      active,
	}, nil
}
