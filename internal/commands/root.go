package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/erpledger/erpledger/internal/buildinfo"
)

// rootOptions are the persistent flags shared by every subcommand.
type rootOptions struct {
	configPath string
	tenant     string
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:     "erpledger",
		Short:   "Multi-tenant double-entry accounting core",
		Version: buildinfo.String(),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "erpledger.yaml", "config file")
	rootCmd.PersistentFlags().StringVar(&opts.tenant, "tenant", "", "tenant id (defaults to the configured tenant)")

	rootCmd.AddCommand(
		newInitCommand(opts),
		newAccountsCommand(opts),
		newJournalCommand(opts),
		newLedgerCommand(opts),
		newReportCommand(opts),
		newAssetsCommand(opts),
		newConsumeCommand(opts),
	)

	return rootCmd
}

// withApp opens the application for one command and closes it afterwards.
func withApp(cmd *cobra.Command, opts *rootOptions, fn func(a *app) error) error {
	a, err := openApp(opts)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := fn(a); err != nil {
		return fmt.Errorf("%s: %w", cmd.CommandPath(), err)
	}
	return nil
}
