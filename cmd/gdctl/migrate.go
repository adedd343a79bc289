package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gd-practice/gd-coach/config"
	"github.com/gd-practice/gd-coach/internal/app"
	"github.com/gd-practice/gd-coach/internal/infrastructure/persistence/postgres"
)

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATE
// ══════════════════════════════════════════════════════════════════════════════

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	migrate := &cobra.Command{Use: "migrate", Short: "Manage the postgres blob schema"}

	migrate.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "List migrations and when they were applied",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, opts, func(ctx context.Context, m *postgres.Migrator) error {
				migrations, err := m.Status(ctx)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				for _, mig := range migrations {
					applied := "pending"
					if mig.IsApplied {
						applied = mig.AppliedAt.Format("2006-01-02 15:04:05")
					}
					_, _ = fmt.Fprintf(out, "%3d  %-28s %s\n", mig.Version, mig.Name, applied)
				}
				return nil
			})
		},
	})

	migrate.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, opts, func(ctx context.Context, m *postgres.Migrator) error {
				if err := m.Migrate(ctx); err != nil {
					return err
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
				return nil
			})
		},
	})

	migrate.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Revert the most recent migration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, opts, func(ctx context.Context, m *postgres.Migrator) error {
				if err := m.Rollback(ctx); err != nil {
					return err
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "rolled back one migration")
				return nil
			})
		},
	})

	return migrate
}

// withMigrator connects straight to postgres. It does not build the app,
// since opening the store would migrate up first.
func withMigrator(cmd *cobra.Command, opts *rootOptions, fn func(ctx context.Context, m *postgres.Migrator) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if opts.driver != "" {
		cfg.Storage.Driver = opts.driver
	}
	if cfg.Storage.Driver != config.DriverPostgres {
		return fmt.Errorf("migrate needs the postgres driver, got %q", cfg.Storage.Driver)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	conn, err := app.ConnectPostgres(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer conn.Close()
	return fn(ctx, postgres.NewMigrator(conn))
}
