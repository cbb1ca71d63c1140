package commands

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/erpledger/erpledger/internal/config"
)

func newInitCommand(opts *rootOptions) *cobra.Command {
	var (
		dbName string
		noSeed bool
		force  bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file, create the schema and seed the default chart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd, opts, dbName, noSeed, force)
		},
	}

	cmd.Flags().StringVar(&dbName, "db", "erpledger.db", "sqlite database file")
	cmd.Flags().BoolVar(&noSeed, "no-seed", false, "skip seeding the default chart of accounts")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")

	return cmd
}

func runInit(cmd *cobra.Command, opts *rootOptions, dbName string, noSeed, force bool) error {
	if _, err := os.Stat(opts.configPath); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", opts.configPath)
	} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("checking config: %w", err)
	}

	tenant := opts.tenant
	if tenant == "" {
		tenant = "default"
	}
	cfg := config.Default(tenant, dbName)
	if err := config.Save(opts.configPath, cfg); err != nil {
		return err
	}

	a, err := newApp(cfg, tenant)
	if err != nil {
		return err
	}
	defer a.Close()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Wrote %s (tenant %s, database %s)\n", opts.configPath, tenant, dbName)
	if noSeed {
		return nil
	}

	n, err := a.accounts.Seed(cmd.Context(), tenant)
	if err != nil {
		return fmt.Errorf("seeding chart of accounts: %w", err)
	}
	fmt.Fprintf(out, "Seeded %d accounts\n", n)
	return nil
}
