package commands

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newLedgerCommand(opts *rootOptions) *cobra.Command {
	var from, to string

	cmd := &cobra.Command{
		Use:   "ledger <account-code>",
		Short: "Show an account's lines with a running balance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			start, err := parseDateFlag("from", from)
			if err != nil {
				return err
			}
			end, err := parseAsOfFlag("to", to)
			if err != nil {
				return err
			}
			return withApp(cmd, opts, func(a *app) error {
				rows, err := a.ledger.Query(cmd.Context(), a.tenant, args[0], start, end)
				if err != nil {
					return err
				}
				t := newTable(cmd.OutOrStdout(), "Date", "Entry", "Description", "Debit", "Credit", "Balance")
				alignRight(t, 4, 5, 6)
				for _, r := range rows {
					t.AppendRow(table.Row{formatDate(r.Date), r.EntryNumber, r.Description,
						blankZero(r.Debit), blankZero(r.Credit), money(r.RunningBalance)})
				}
				t.Render()
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "first date (inclusive)")
	cmd.Flags().StringVar(&to, "to", "", "last date (inclusive)")
	return cmd
}
