package app

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/webspark/catalog-sync/database"
)

func newMigrateUpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply pending database migrations",
		Long: `Apply all pending database migrations to bring the schema up to date.
The database connection parameters are read from the configuration file.`,
		RunE: runMigrateUp,
	}
}

func runMigrateUp(cmd *cobra.Command, _ []string) error {
	yes, err := cmd.Flags().GetBool("yes")
	if err != nil {
		return fmt.Errorf("failed to get yes flag: %w", err)
	}

	cfg, m, err := setupMigration(cmd)
	if err != nil {
		return err
	}
	defer closeMigrator(m)

	if !yes {
		prompt := fmt.Sprintf("About to apply migrations to database %s@%s:%d/%s. Continue?",
			cfg.Database.User, cfg.Database.Host, cfg.Database.Port, cfg.Database.Database)
		if !confirm(cmd, prompt) {
			slog.Info("Migration cancelled by user")
			return nil
		}
	}

	slog.Info("Applying database migrations")
	if err := database.MigrateUp(m); err != nil {
		return err
	}

	displayMigrationVersion(m, false)
	return nil
}
