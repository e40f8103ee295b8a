package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"specboard/internal/config"
	"specboard/internal/repository/postgres"
)

var (
	prefixOverride string
	forceReset     bool
)

var rootCmd = &cobra.Command{
	Use:          "migrate",
	Short:        "Manage the specboard database schema",
	Long:         "Apply, roll back, and inspect the embedded schema migrations for one environment's table prefix.",
	SilenceUsage: true,
}

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrator(cmd.Context(), func(ctx context.Context, m *postgres.Migrator) error {
			if err := m.Up(ctx); err != nil {
				return err
			}
			return printVersion(ctx, cmd, m)
		})
	},
}

var downCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back the most recent migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrator(cmd.Context(), func(ctx context.Context, m *postgres.Migrator) error {
			if err := m.Down(ctx); err != nil {
				return err
			}
			return printVersion(ctx, cmd, m)
		})
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show applied and pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrator(cmd.Context(), func(ctx context.Context, m *postgres.Migrator) error {
			return m.Status(ctx)
		})
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the current schema version",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrator(cmd.Context(), func(ctx context.Context, m *postgres.Migrator) error {
			return printVersion(ctx, cmd, m)
		})
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Drop all tables for the prefix and re-apply every migration",
	Long:  "Drop all tables for the prefix and re-apply every migration. Refused in prod; requires --force.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		if cfg.Environment == "prod" {
			return fmt.Errorf("reset is not allowed in the prod environment")
		}
		if !forceReset {
			return fmt.Errorf("reset drops all %q tables; pass --force to continue", resolvePrefix(cfg))
		}
		return withMigrator(cmd.Context(), func(ctx context.Context, m *postgres.Migrator) error {
			if err := m.DropAll(ctx); err != nil {
				return err
			}
			if err := m.Up(ctx); err != nil {
				return err
			}
			return printVersion(ctx, cmd, m)
		})
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&prefixOverride, "prefix", "",
		"Table prefix (overrides ENVIRONMENT and TABLE_PREFIX)")
	resetCmd.Flags().BoolVar(&forceReset, "force", false, "Confirm dropping all tables")

	rootCmd.AddCommand(upCmd, downCmd, statusCmd, versionCmd, resetCmd)
}

func main() {
	_ = godotenv.Load()

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func resolvePrefix(cfg *config.Config) string {
	if prefixOverride != "" {
		return prefixOverride
	}
	return cfg.TablePrefix
}

// withMigrator opens a pool and migrator for the configured database and
// prefix, runs fn, and closes both.
func withMigrator(ctx context.Context, fn func(context.Context, *postgres.Migrator) error) error {
	cfg := config.Load()
	if cfg.SupabaseDBURL == "" {
		return fmt.Errorf("SUPABASE_DB_URL is required")
	}

	logger, logCloser, err := config.NewLogger(cfg)
	if err != nil {
		return err
	}
	defer logCloser.Close()

	pool, err := postgres.CreateConnectionPool(ctx, cfg.SupabaseDBURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	prefix := resolvePrefix(cfg)
	migrator, err := postgres.NewMigrator(pool, prefix, logger)
	if err != nil {
		return err
	}
	defer migrator.Close()

	logger.Info("migrating", "environment", cfg.Environment, "table_prefix", prefix)
	return fn(ctx, migrator)
}

func printVersion(ctx context.Context, cmd *cobra.Command, m *postgres.Migrator) error {
	version, err := m.Version(ctx)
	if err != nil {
		return err
	}
	cmd.Printf("schema version: %d\n", version)
	return nil
}
