package journal

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/erpledger/erpledger/internal/model"
)

// Header is the CSV header for a journal export. Each row is one line.
const Header = "entry_number,entry_id,date,description,reference,reference_type,account_code,debit,credit"

const (
	numFields  = 9
	dateFormat = "2006-01-02"
	colNumber  = 0
	colEntryID = 1
	colDate    = 2
	colDesc    = 3
	colRef     = 4
	colRefType = 5
	colAcct    = 6
	colDebit   = 7
	colCredit  = 8
)

// WriteEntries writes entries as CSV, one row per line, including a header.
func WriteEntries(w io.Writer, entries []model.JournalEntry) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(strings.Split(Header, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	row := 1
	for _, e := range entries {
		for _, l := range e.Lines {
			row++
			if err := cw.Write(MarshalLine(e, l)); err != nil {
				return fmt.Errorf("writing row %d: %w", row, err)
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// MarshalLine converts one line of an entry to a CSV row.
func MarshalLine(e model.JournalEntry, l model.JournalLine) []string {
	row := make([]string, numFields)
	row[colNumber] = e.Number
	row[colEntryID] = strconv.FormatUint(uint64(e.ID), 10)
	row[colDate] = e.Date.Format(dateFormat)
	row[colDesc] = e.Description
	row[colRef] = e.Reference
	row[colRefType] = e.ReferenceType
	row[colAcct] = l.AccountCode

	if !l.Debit.IsZero() {
		row[colDebit] = l.Debit.StringFixed(2)
	}
	if !l.Credit.IsZero() {
		row[colCredit] = l.Credit.StringFixed(2)
	}
	return row
}

// ReadLines reads the account, debit and credit columns of a journal CSV
// (as written by WriteEntries or hand-made with the same header) into lines
// for a single entry.
func ReadLines(r io.Reader) ([]Line, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading journal CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	var lines []Line
	for i, rec := range records[1:] {
		l, err := UnmarshalLine(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		lines = append(lines, l)
	}
	return lines, nil
}

// UnmarshalLine converts a CSV row to a Line. Empty amounts are zero.
func UnmarshalLine(record []string) (Line, error) {
	if len(record) != numFields {
		return Line{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	var debit, credit decimal.Decimal
	var err error
	if record[colDebit] != "" {
		debit, err = decimal.NewFromString(record[colDebit])
		if err != nil {
			return Line{}, fmt.Errorf("parsing debit %q: %w", record[colDebit], err)
		}
	}
	if record[colCredit] != "" {
		credit, err = decimal.NewFromString(record[colCredit])
		if err != nil {
			return Line{}, fmt.Errorf("parsing credit %q: %w", record[colCredit], err)
		}
	}

	return Line{
		AccountCode: strings.TrimSpace(record[colAcct]),
		Debit:       debit,
		Credit:      credit,
	}, nil
}
