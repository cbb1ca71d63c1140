package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/shopspring/decimal"

	"github.com/erpledger/erpledger/internal/journal"
)

// newTable returns a table mirrored to w. Rendering is left to the caller.
func newTable(w io.Writer, header ...any) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	if len(header) > 0 {
		t.AppendHeader(table.Row(header))
	}
	return t
}

// alignRight right-aligns the given 1-based columns, used for amounts.
func alignRight(t table.Writer, columns ...int) {
	configs := make([]table.ColumnConfig, 0, len(columns))
	for _, n := range columns {
		configs = append(configs, table.ColumnConfig{Number: n, Align: text.AlignRight})
	}
	t.SetColumnConfigs(configs)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// blankZero prints an empty cell for a zero amount, as ledgers do for the
// unused side of a line.
func blankZero(d decimal.Decimal) string {
	if d.IsZero() {
		return ""
	}
	return money(d)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.DateOnly)
}

// parseDateFlag parses an optional date flag. An empty value is the zero time.
func parseDateFlag(name, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := journal.ParseDate(value)
	if err != nil {
		return time.Time{}, fmt.Errorf("--%s: %w", name, err)
	}
	return t, nil
}

// parseAsOfFlag parses an as-of date. A bare date covers the whole day.
func parseAsOfFlag(name, value string) (time.Time, error) {
	t, err := parseDateFlag(name, value)
	if err != nil || t.IsZero() {
		return t, err
	}
	if t.Equal(t.Truncate(24 * time.Hour)) {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, nil
}
