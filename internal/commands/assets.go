package commands

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/erpledger/erpledger/internal/assets"
	"github.com/erpledger/erpledger/internal/model"
)

func newAssetsCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "assets",
		Aliases: []string{"asset"},
		Short:   "Register fixed assets and run depreciation",
	}
	cmd.AddCommand(
		newAssetsRegisterCommand(opts),
		newAssetsListCommand(opts),
		newAssetsDepreciateCommand(opts),
		newAssetsDepreciateAllCommand(opts),
		newAssetsHistoryCommand(opts),
	)
	return cmd
}

func newAssetsRegisterCommand(opts *rootOptions) *cobra.Command {
	var (
		p                        assets.RegisterParams
		purchased, cost, salvage string
	)

	cmd := &cobra.Command{
		Use:   "register <name>",
		Short: "Register a fixed asset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p.Name = args[0]
			var err error
			if p.PurchaseDate, err = parseDateFlag("purchased", purchased); err != nil {
				return err
			}
			if p.Cost, err = decimal.NewFromString(cost); err != nil {
				return fmt.Errorf("--cost: %w", err)
			}
			if p.SalvageValue, err = parseAmount(salvage); err != nil {
				return fmt.Errorf("--salvage: %w", err)
			}

			return withApp(cmd, opts, func(a *app) error {
				asset, err := a.assets.Register(cmd.Context(), a.tenant, p)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Registered asset %d %s (monthly %s)\n",
					asset.ID, asset.Name, money(assets.MonthlyAmount(asset)))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&p.Code, "code", "", "asset tag")
	cmd.Flags().StringVar(&purchased, "purchased", "", "purchase date")
	cmd.Flags().StringVar(&cost, "cost", "", "purchase cost (required)")
	_ = cmd.MarkFlagRequired("cost")
	cmd.Flags().StringVar(&salvage, "salvage", "0", "salvage value")
	cmd.Flags().IntVar(&p.UsefulLifeYears, "life", 0, "useful life in years (required)")
	_ = cmd.MarkFlagRequired("life")
	cmd.Flags().StringVar(&p.AssetAccount, "asset-account", "", "fixed asset account code")
	cmd.Flags().StringVar(&p.ExpenseAccount, "expense-account", "", "depreciation expense account code")
	cmd.Flags().StringVar(&p.AccumDeprAccount, "accum-account", "", "accumulated depreciation account code")

	return cmd
}

func newAssetsListCommand(opts *rootOptions) *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List fixed assets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(a *app) error {
				list, err := a.assets.List(cmd.Context(), a.tenant, model.AssetStatus(status))
				if err != nil {
					return err
				}
				t := newTable(cmd.OutOrStdout(), "ID", "Code", "Name", "Status", "Cost", "Depreciated", "Book Value")
				alignRight(t, 5, 6, 7)
				for _, as := range list {
					t.AppendRow(table.Row{as.ID, as.Code, as.Name, as.Status,
						money(as.Cost), money(as.DepreciatedTotal), money(as.BookValue())})
				}
				t.Render()
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "Active, FullyDepreciated, Sold or Scrapped")
	return cmd
}

func parseAssetID(s string) (uint, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid asset id %q", s)
	}
	return uint(n), nil
}

func newAssetsDepreciateCommand(opts *rootOptions) *cobra.Command {
	var asOf string

	cmd := &cobra.Command{
		Use:   "depreciate <asset-id>",
		Short: "Post one month of depreciation for an asset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			assetID, err := parseAssetID(args[0])
			if err != nil {
				return err
			}
			when, err := parseDateFlag("date", asOf)
			if err != nil {
				return err
			}
			return withApp(cmd, opts, func(a *app) error {
				res, err := a.assets.RunDepreciation(cmd.Context(), a.tenant, assetID, when)
				if err != nil {
					return err
				}
				printResult(cmd, assetID, res)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&asOf, "date", "", "depreciation date (default today)")
	return cmd
}

func printResult(cmd *cobra.Command, assetID uint, res assets.Result) {
	if res.Status == assets.StatusFullyDepreciated {
		fmt.Fprintf(cmd.OutOrStdout(), "Asset %d: fully depreciated\n", assetID)
		return
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Asset %d: posted %s (entry %d)\n", assetID, money(res.Amount), res.JournalEntryID)
}

func newAssetsDepreciateAllCommand(opts *rootOptions) *cobra.Command {
	var asOf string

	cmd := &cobra.Command{
		Use:   "depreciate-all",
		Short: "Run depreciation for every active asset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			when, err := parseDateFlag("date", asOf)
			if err != nil {
				return err
			}
			return withApp(cmd, opts, func(a *app) error {
				results, err := a.assets.RunAll(cmd.Context(), a.tenant, when)
				if err != nil {
					return err
				}
				var errs []error
				for _, r := range results {
					if r.Err != nil {
						fmt.Fprintf(cmd.OutOrStdout(), "Asset %d: %v\n", r.AssetID, r.Err)
						errs = append(errs, fmt.Errorf("asset %d: %w", r.AssetID, r.Err))
						continue
					}
					printResult(cmd, r.AssetID, r.Result)
				}
				return errors.Join(errs...)
			})
		},
	}

	cmd.Flags().StringVar(&asOf, "date", "", "depreciation date (default today)")
	return cmd
}

func newAssetsHistoryCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "history <asset-id>",
		Short: "List the depreciation postings of an asset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			assetID, err := parseAssetID(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, opts, func(a *app) error {
				hist, err := a.assets.History(cmd.Context(), a.tenant, assetID)
				if err != nil {
					return err
				}
				t := newTable(cmd.OutOrStdout(), "Date", "Amount", "Entry")
				alignRight(t, 2)
				for _, h := range hist {
					t.AppendRow(table.Row{formatDate(h.Date), money(h.Amount), h.JournalEntryID})
				}
				t.Render()
				return nil
			})
		},
	}
}
