package commands

import (
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/erpledger/erpledger/internal/reports"
)

func newReportCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Financial statements",
	}
	cmd.PersistentFlags().Bool("json", false, "print JSON")
	cmd.AddCommand(
		newTrialBalanceCommand(opts),
		newProfitAndLossCommand(opts),
		newBalanceSheetCommand(opts),
		newRollupCommand(opts),
	)
	return cmd
}

func jsonFlag(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("json")
	return v
}

func balancedLabel(ok bool) string {
	if ok {
		return "balanced"
	}
	return "OUT OF BALANCE"
}

func newTrialBalanceCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "trial-balance",
		Aliases: []string{"tb"},
		Short:   "Lifetime debits and credits per account",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(a *app) error {
				tb, err := a.reports.TrialBalance(cmd.Context(), a.tenant)
				if err != nil {
					return err
				}
				if jsonFlag(cmd) {
					return printJSON(cmd.OutOrStdout(), tb)
				}

				t := newTable(cmd.OutOrStdout(), "Code", "Name", "Type", "Debit", "Credit")
				alignRight(t, 4, 5)
				for _, l := range tb.Lines {
					t.AppendRow(table.Row{l.Code, l.Name, l.Type, money(l.Debit), money(l.Credit)})
				}
				t.AppendSeparator()
				t.AppendRow(table.Row{"", "Total", balancedLabel(tb.IsBalanced), money(tb.TotalDebit), money(tb.TotalCredit)})
				t.Render()
				return nil
			})
		},
	}
}

func newProfitAndLossCommand(opts *rootOptions) *cobra.Command {
	var from, to string

	cmd := &cobra.Command{
		Use:     "pl",
		Aliases: []string{"profit-and-loss", "income-statement"},
		Short:   "Income and expenses over a date window",
		Args:    cobra.NoArgs,
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
				pl, err := a.reports.ProfitAndLoss(cmd.Context(), a.tenant, start, end)
				if err != nil {
					return err
				}
				if jsonFlag(cmd) {
					return printJSON(cmd.OutOrStdout(), pl)
				}

				t := newTable(cmd.OutOrStdout())
				alignRight(t, 3)
				appendSection(t, "Revenue", pl.Revenue, pl.TotalRevenue)
				appendSection(t, "Expenses", pl.Expenses, pl.TotalExpenses)
				t.AppendRow(table.Row{"", "Net Income", money(pl.NetIncome)})
				t.Render()
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "first date (inclusive)")
	cmd.Flags().StringVar(&to, "to", "", "last date (inclusive)")
	return cmd
}

func newBalanceSheetCommand(opts *rootOptions) *cobra.Command {
	var asOf string

	cmd := &cobra.Command{
		Use:     "balance-sheet",
		Aliases: []string{"bs"},
		Short:   "Assets, liabilities and equity as of a date",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			when, err := parseAsOfFlag("as-of", asOf)
			if err != nil {
				return err
			}
			return withApp(cmd, opts, func(a *app) error {
				bs, err := a.reports.BalanceSheet(cmd.Context(), a.tenant, when)
				if err != nil {
					return err
				}
				if jsonFlag(cmd) {
					return printJSON(cmd.OutOrStdout(), bs)
				}

				t := newTable(cmd.OutOrStdout())
				alignRight(t, 3)
				appendSection(t, "Assets", bs.Assets, bs.TotalAssets)
				appendSection(t, "Liabilities", bs.Liabilities, bs.TotalLiabilities)
				appendSection(t, "Equity", bs.Equity, bs.TotalEquity)
				t.AppendRow(table.Row{"", "Liabilities + Equity", money(bs.TotalLiabAndEquity)})
				t.AppendRow(table.Row{"", balancedLabel(bs.IsBalanced), ""})
				t.Render()
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&asOf, "as-of", "", "balance date (default all postings)")
	return cmd
}

func appendSection(t table.Writer, title string, lines []reports.Line, total decimal.Decimal) {
	t.AppendRow(table.Row{title, "", ""})
	for _, l := range lines {
		t.AppendRow(table.Row{"  " + l.Code, l.Name, money(l.Amount)})
	}
	t.AppendRow(table.Row{"", "Total " + strings.ToLower(title), money(total)})
	t.AppendSeparator()
}

func newRollupCommand(opts *rootOptions) *cobra.Command {
	var asOf string

	cmd := &cobra.Command{
		Use:   "rollup",
		Short: "Balances aggregated up the account hierarchy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			when, err := parseAsOfFlag("as-of", asOf)
			if err != nil {
				return err
			}
			return withApp(cmd, opts, func(a *app) error {
				roots, err := a.reports.Rollup(cmd.Context(), a.tenant, when)
				if err != nil {
					return err
				}
				if jsonFlag(cmd) {
					return printJSON(cmd.OutOrStdout(), roots)
				}

				t := newTable(cmd.OutOrStdout(), "Account", "Balance", "Total")
				alignRight(t, 2, 3)
				var walk func(nodes []*reports.RollupNode, depth int)
				walk = func(nodes []*reports.RollupNode, depth int) {
					for _, n := range nodes {
						t.AppendRow(table.Row{strings.Repeat("  ", depth) + n.Code + " " + n.Name, money(n.Balance), money(n.Total)})
						walk(n.Children, depth+1)
					}
				}
				walk(roots, 0)
				t.Render()
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&asOf, "as-of", "", "balance date (default all postings)")
	return cmd
}
