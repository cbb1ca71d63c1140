package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ChaseParser parses Chase bank checking CSV exports.
type ChaseParser struct{}

const (
	chaseDateFormat = "01/02/2006"
	chaseNumFields  = 7
	chaseColDate    = 1
	chaseColDesc    = 2
	chaseColAmount  = 3
	chaseColType    = 4
)

// Format returns the parser name.
func (p *ChaseParser) Format() string { return "chase" }

// Parse reads a Chase CSV and returns Transactions.
func (p *ChaseParser) Parse(r io.Reader) ([]Transaction, error) {
	records, err := readRecords(r, chaseNumFields)
	if err != nil {
		return nil, fmt.Errorf("reading chase CSV: %w", err)
	}

	refs := newRefSet("chase")
	var txns []Transaction
	for i, rec := range records {
		date, err := time.Parse(chaseDateFormat, rec[chaseColDate])
		if err != nil {
			return nil, fmt.Errorf("row %d: parsing date %q: %w", i+2, rec[chaseColDate], err)
		}
		amount, err := decimal.NewFromString(rec[chaseColAmount])
		if err != nil {
			return nil, fmt.Errorf("row %d: parsing amount %q: %w", i+2, rec[chaseColAmount], err)
		}
		desc := strings.TrimSpace(rec[chaseColDesc])
		txns = append(txns, Transaction{
			Date:        date,
			Description: desc,
			Amount:      amount,
			Reference:   refs.next(date, desc),
			Type:        rec[chaseColType],
		})
	}
	return txns, nil
}

// GenericParser reads "date,description,amount,reference" with ISO dates.
// An empty reference is derived from the date and description.
type GenericParser struct{}

const genericNumFields = 4

// Format returns the parser name.
func (p *GenericParser) Format() string { return "generic" }

// Parse reads a generic statement CSV.
func (p *GenericParser) Parse(r io.Reader) ([]Transaction, error) {
	records, err := readRecords(r, genericNumFields)
	if err != nil {
		return nil, fmt.Errorf("reading statement CSV: %w", err)
	}

	refs := newRefSet("bank")
	var txns []Transaction
	for i, rec := range records {
		date, err := time.Parse(time.DateOnly, strings.TrimSpace(rec[0]))
		if err != nil {
			return nil, fmt.Errorf("row %d: parsing date %q: %w", i+2, rec[0], err)
		}
		amount, err := decimal.NewFromString(strings.TrimSpace(rec[2]))
		if err != nil {
			return nil, fmt.Errorf("row %d: parsing amount %q: %w", i+2, rec[2], err)
		}
		desc := strings.TrimSpace(rec[1])
		ref := strings.TrimSpace(rec[3])
		if ref == "" {
			ref = refs.next(date, desc)
		}
		txns = append(txns, Transaction{Date: date, Description: desc, Amount: amount, Reference: ref})
	}
	return txns, nil
}

// readRecords returns the data rows of a CSV with a header line.
func readRecords(r io.Reader, fields int) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = fields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) <= 1 {
		return nil, nil
	}
	return records[1:], nil
}

// refSet derives references like chase_20250103_GITHUBPRO, suffixing
// repeats within one file so each row stays distinct.
type refSet struct {
	prefix string
	seen   map[string]int
}

func newRefSet(prefix string) *refSet {
	return &refSet{prefix: prefix, seen: make(map[string]int)}
}

func (s *refSet) next(date time.Time, desc string) string {
	word := strings.Map(func(r rune) rune {
		if r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, desc)
	if len(word) > 10 {
		word = word[:10]
	}
	ref := fmt.Sprintf("%s_%s_%s", s.prefix, date.Format("20060102"), word)
	s.seen[ref]++
	if n := s.seen[ref]; n > 1 {
		ref = fmt.Sprintf("%s_%d", ref, n)
	}
	return ref
}
