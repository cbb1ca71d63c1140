package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	accts "github.com/erpledger/erpledger/internal/accounts"
	"github.com/erpledger/erpledger/internal/model"
)

func newAccountsCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "accounts",
		Aliases: []string{"account", "coa"},
		Short:   "Manage the chart of accounts",
	}
	cmd.AddCommand(
		newAccountsCreateCommand(opts),
		newAccountsListCommand(opts),
		newAccountsTreeCommand(opts),
		newAccountsMoveCommand(opts),
		newAccountsDeactivateCommand(opts),
		newAccountsImportCommand(opts),
		newAccountsExportCommand(opts),
		newAccountsSeedCommand(opts),
	)
	return cmd
}

func newAccountsCreateCommand(opts *rootOptions) *cobra.Command {
	var p accts.CreateParams
	var typeName string

	cmd := &cobra.Command{
		Use:   "create <code> <name>",
		Short: "Create an account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, ok := model.ParseAccountType(typeName)
			if !ok {
				return fmt.Errorf("invalid account type %q", typeName)
			}
			p.Code, p.Name, p.Type = args[0], args[1], t

			return withApp(cmd, opts, func(a *app) error {
				acct, err := a.accounts.Create(cmd.Context(), a.tenant, p)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created %s %s (%s)\n", acct.Code, acct.Name, acct.Type)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&typeName, "type", "", "Asset, Liability, Equity, Income or Expense (required)")
	_ = cmd.MarkFlagRequired("type")
	cmd.Flags().StringVar(&p.ParentCode, "parent", "", "parent account code")
	cmd.Flags().StringVar(&p.Description, "description", "", "description")

	return cmd
}

func newAccountsListCommand(opts *rootOptions) *cobra.Command {
	var typeName string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List accounts ordered by code",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(a *app) error {
				var (
					list []model.Account
					err  error
				)
				if typeName != "" {
					t, ok := model.ParseAccountType(typeName)
					if !ok {
						return fmt.Errorf("invalid account type %q", typeName)
					}
					list, err = a.accounts.ByType(cmd.Context(), a.tenant, t)
				} else {
					list, err = a.accounts.List(cmd.Context(), a.tenant)
				}
				if err != nil {
					return err
				}
				if asJSON {
					return printJSON(cmd.OutOrStdout(), list)
				}

				t := newTable(cmd.OutOrStdout(), "Code", "Name", "Type", "Parent", "Active")
				for _, acct := range list {
					t.AppendRow(table.Row{acct.Code, acct.Name, acct.Type, acct.ParentCode, acct.Active})
				}
				t.Render()
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&typeName, "type", "", "only accounts of this type")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func newAccountsTreeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tree",
		Short: "Print the account hierarchy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(a *app) error {
				roots, err := a.accounts.Tree(cmd.Context(), a.tenant)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				accts.Walk(roots, func(n *accts.Node, depth int) {
					marker := ""
					if !n.Active {
						marker = " (inactive)"
					}
					fmt.Fprintf(out, "%s%s %s%s\n", strings.Repeat("  ", depth), n.Code, n.Name, marker)
				})
				return nil
			})
		},
	}
}

func newAccountsMoveCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "move <code> [new-parent]",
		Short: "Re-parent an account; omit the parent to make it top-level",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			parent := ""
			if len(args) == 2 {
				parent = args[1]
			}
			return withApp(cmd, opts, func(a *app) error {
				acct, err := a.accounts.Move(cmd.Context(), a.tenant, args[0], parent)
				if err != nil {
					return err
				}
				if acct.ParentCode == "" {
					fmt.Fprintf(cmd.OutOrStdout(), "Moved %s to top level\n", acct.Code)
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "Moved %s under %s\n", acct.Code, acct.ParentCode)
				}
				return nil
			})
		},
	}
}

func newAccountsDeactivateCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "deactivate <code>",
		Short: "Stop an account from accepting new postings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(a *app) error {
				if err := a.accounts.Deactivate(cmd.Context(), a.tenant, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deactivated %s\n", args[0])
				return nil
			})
		},
	}
}

func newAccountsImportCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Import accounts from CSV; existing codes are skipped",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("opening %s: %w", args[0], err)
			}
			defer f.Close()

			list, err := accts.ReadAccounts(f)
			if err != nil {
				return err
			}
			return withApp(cmd, opts, func(a *app) error {
				n, err := a.accounts.Import(cmd.Context(), a.tenant, list)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %d of %d accounts\n", n, len(list))
				return nil
			})
		},
	}
}

func newAccountsExportCommand(opts *rootOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the chart of accounts as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(a *app) error {
				list, err := a.accounts.List(cmd.Context(), a.tenant)
				if err != nil {
					return err
				}
				if output == "" {
					return accts.WriteAccounts(cmd.OutOrStdout(), list)
				}
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("creating %s: %w", output, err)
				}
				if err := accts.WriteAccounts(f, list); err != nil {
					f.Close()
					return err
				}
				return f.Close()
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	return cmd
}

func newAccountsSeedCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create the default chart of accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(a *app) error {
				n, err := a.accounts.Seed(cmd.Context(), a.tenant)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d accounts\n", n)
				return nil
			})
		},
	}
}
