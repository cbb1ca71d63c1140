package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/erpledger/erpledger/internal/id"
	"github.com/erpledger/erpledger/internal/importer"
	"github.com/erpledger/erpledger/internal/journal"
	"github.com/erpledger/erpledger/internal/model"
)

func newJournalCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "journal",
		Aliases: []string{"je"},
		Short:   "Post and inspect journal entries",
	}
	cmd.AddCommand(
		newJournalPostCommand(opts),
		newJournalShowCommand(opts),
		newJournalListCommand(opts),
		newJournalReverseCommand(opts),
		newJournalExportCommand(opts),
		newJournalImportCommand(opts),
	)
	return cmd
}

func newJournalPostCommand(opts *rootOptions) *cobra.Command {
	var (
		date, description, reference, refType, file string
		lines                                       []string
	)

	cmd := &cobra.Command{
		Use:   "post",
		Short: "Post a balanced journal entry",
		Long: `Post a balanced journal entry. Lines come from repeated --line
flags in the form CODE:DEBIT:CREDIT, or from --file holding a JSON request
or a journal CSV. Flags override the description, reference and date of a
JSON request.`,
		Example: `  erpledger journal post --description "Cash sale" \
    --line 1110:150.00:0 --line 4000:0:150.00`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := buildPostParams(file, lines)
			if err != nil {
				return err
			}
			if description != "" {
				params.Description = description
			}
			if reference != "" {
				params.Reference = reference
			}
			if refType != "" {
				params.ReferenceType = refType
			}
			if date != "" {
				if params.Date, err = parseDateFlag("date", date); err != nil {
					return err
				}
			}

			return withApp(cmd, opts, func(a *app) error {
				entry, err := a.poster.Post(cmd.Context(), a.tenant, params)
				if err != nil {
					return err
				}
				debit, _ := entry.Totals()
				fmt.Fprintf(cmd.OutOrStdout(), "Posted %s (%d lines, %s)\n", entry.Number, len(entry.Lines), money(debit))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "entry date YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&description, "description", "", "entry description")
	cmd.Flags().StringVar(&reference, "reference", "", "originating document reference")
	cmd.Flags().StringVar(&refType, "reference-type", "", "kind of originating document")
	cmd.Flags().StringArrayVar(&lines, "line", nil, "CODE:DEBIT:CREDIT (repeatable)")
	cmd.Flags().StringVarP(&file, "file", "f", "", "JSON request or journal CSV")
	cmd.MarkFlagsMutuallyExclusive("line", "file")

	return cmd
}

func buildPostParams(file string, lines []string) (journal.PostParams, error) {
	if file == "" {
		parsed, err := parseLineFlags(lines)
		return journal.PostParams{Lines: parsed}, err
	}

	f, err := os.Open(file)
	if err != nil {
		return journal.PostParams{}, fmt.Errorf("opening %s: %w", file, err)
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(file), ".csv") {
		parsed, err := journal.ReadLines(f)
		return journal.PostParams{Lines: parsed}, err
	}
	return journal.DecodeRequest(f)
}

func parseLineFlags(specs []string) ([]journal.Line, error) {
	out := make([]journal.Line, 0, len(specs))
	for _, s := range specs {
		parts := strings.Split(s, ":")
		if len(parts) != 3 {
			return nil, fmt.Errorf("--line %q: expected CODE:DEBIT:CREDIT", s)
		}
		debit, err := parseAmount(parts[1])
		if err != nil {
			return nil, fmt.Errorf("--line %q: debit: %w", s, err)
		}
		credit, err := parseAmount(parts[2])
		if err != nil {
			return nil, fmt.Errorf("--line %q: credit: %w", s, err)
		}
		out = append(out, journal.Line{AccountCode: strings.TrimSpace(parts[0]), Debit: debit, Credit: credit})
	}
	return out, nil
}

func parseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

// parseEntryRef accepts an entry id or a display number like JE-2025-01-000042.
func parseEntryRef(s string) (uint, error) {
	_, _, entryID, err := id.ParseEntryNumber(s)
	if err != nil {
		return 0, err
	}
	return entryID, nil
}

func newJournalShowCommand(opts *rootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <entry>",
		Short: "Show one entry by id or number",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entryID, err := parseEntryRef(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, opts, func(a *app) error {
				entry, err := a.poster.Get(cmd.Context(), a.tenant, entryID)
				if err != nil {
					return err
				}
				if asJSON {
					return printJSON(cmd.OutOrStdout(), entry)
				}
				return printEntry(cmd.OutOrStdout(), entry)
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func printEntry(w io.Writer, e model.JournalEntry) error {
	fmt.Fprintf(w, "%s  %s  %s\n", e.Number, formatDate(e.Date), e.Description)
	if e.Reference != "" {
		fmt.Fprintf(w, "Reference: %s %s\n", e.ReferenceType, e.Reference)
	}

	t := newTable(w, "Account", "Debit", "Credit")
	alignRight(t, 2, 3)
	for _, l := range e.Lines {
		t.AppendRow(table.Row{l.AccountCode, blankZero(l.Debit), blankZero(l.Credit)})
	}
	debit, credit := e.Totals()
	t.AppendSeparator()
	t.AppendRow(table.Row{"Total", money(debit), money(credit)})
	t.Render()
	return nil
}

func newJournalListCommand(opts *rootOptions) *cobra.Command {
	var from, to, reference string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List entries ordered by date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := listFilter(from, to, reference)
			if err != nil {
				return err
			}
			return withApp(cmd, opts, func(a *app) error {
				entries, err := a.poster.List(cmd.Context(), a.tenant, f)
				if err != nil {
					return err
				}
				t := newTable(cmd.OutOrStdout(), "Number", "Date", "Description", "Reference", "Amount")
				alignRight(t, 5)
				for _, e := range entries {
					debit, _ := e.Totals()
					t.AppendRow(table.Row{e.Number, formatDate(e.Date), e.Description, e.Reference, money(debit)})
				}
				t.Render()
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "first date (inclusive)")
	cmd.Flags().StringVar(&to, "to", "", "last date (inclusive)")
	cmd.Flags().StringVar(&reference, "reference", "", "only entries with this reference")
	return cmd
}

func listFilter(from, to, reference string) (journal.ListFilter, error) {
	f := journal.ListFilter{Reference: reference}
	var err error
	if f.From, err = parseDateFlag("from", from); err != nil {
		return f, err
	}
	if f.To, err = parseAsOfFlag("to", to); err != nil {
		return f, err
	}
	return f, nil
}

func newJournalReverseCommand(opts *rootOptions) *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "reverse <entry>",
		Short: "Post an entry that offsets an existing one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entryID, err := parseEntryRef(args[0])
			if err != nil {
				return err
			}
			when, err := parseDateFlag("date", date)
			if err != nil {
				return err
			}
			return withApp(cmd, opts, func(a *app) error {
				entry, err := a.poster.Reverse(cmd.Context(), a.tenant, entryID, when)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Posted %s reversing %s\n", entry.Number, entry.Reference)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "reversal date (default today)")
	return cmd
}

func newJournalExportCommand(opts *rootOptions) *cobra.Command {
	var from, to, reference, output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write entries as CSV, one row per line",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := listFilter(from, to, reference)
			if err != nil {
				return err
			}
			return withApp(cmd, opts, func(a *app) error {
				entries, err := a.poster.List(cmd.Context(), a.tenant, f)
				if err != nil {
					return err
				}
				if output == "" {
					return journal.WriteEntries(cmd.OutOrStdout(), entries)
				}
				file, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("creating %s: %w", output, err)
				}
				if err := journal.WriteEntries(file, entries); err != nil {
					file.Close()
					return err
				}
				return file.Close()
			})
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "first date (inclusive)")
	cmd.Flags().StringVar(&to, "to", "", "last date (inclusive)")
	cmd.Flags().StringVar(&reference, "reference", "", "only entries with this reference")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	return cmd
}

func newJournalImportCommand(opts *rootOptions) *cobra.Command {
	var format string
	var accts importer.Accounts

	cmd := &cobra.Command{
		Use:   "import <statement.csv>",
		Short: "Post one entry per bank statement row",
		Long: `Post one journal entry per bank statement row. Money in debits the
bank account and credits the offset account; money out does the reverse.
Rows imported before are skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parser := importer.DefaultRegistry().Get(format)
			if parser == nil {
				return fmt.Errorf("unknown statement format %q", format)
			}
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("opening %s: %w", args[0], err)
			}
			defer f.Close()

			txns, err := parser.Parse(f)
			if err != nil {
				return err
			}
			return withApp(cmd, opts, func(a *app) error {
				sum, err := importer.New(a.poster, a.logger).Import(cmd.Context(), a.tenant, txns, accts)
				fmt.Fprintf(cmd.OutOrStdout(), "Posted %d entries, skipped %d\n", sum.Posted, sum.Skipped)
				return err
			})
		},
	}

	cmd.Flags().StringVar(&format, "format", "chase", "statement format (chase, generic)")
	cmd.Flags().StringVar(&accts.Bank, "bank", "1110", "bank account code")
	cmd.Flags().StringVar(&accts.Offset, "offset", "", "offset account code (required)")
	_ = cmd.MarkFlagRequired("offset")
	return cmd
}
