package app

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/webspark/catalog-sync/database"
	"github.com/webspark/catalog-sync/internal/config"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration tool",
		Long:  `Database migration tool for managing schema versions. Use with 'up' or 'down' subcommands.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Usage()
		},
	}

	cmd.PersistentFlags().BoolP("yes", "y", false, "Answer yes to all questions")
	cmd.PersistentFlags().UintP("num-steps", "n", 0, "Number of steps to migrate down (0 = all)")

	cmd.AddCommand(newMigrateUpCmd())
	cmd.AddCommand(newMigrateDownCmd())
	return cmd
}

// setupMigration loads the configuration and opens a migrator for its database
func setupMigration(cmd *cobra.Command) (*config.Config, database.Migrator, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Database == nil {
		return nil, nil, fmt.Errorf("database configuration is required")
	}

	connString, err := cfg.Database.GetConnectionString()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build connection string: %w", err)
	}

	m, err := database.NewFromConnectionString(connString)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create migrator: %w", err)
	}
	return cfg, m, nil
}

func closeMigrator(m database.Migrator) {
	srcErr, dbErr := m.Close()
	if srcErr != nil {
		slog.Error("Error closing migration source", "error", srcErr)
	}
	if dbErr != nil {
		slog.Error("Error closing database connection", "error", dbErr)
	}
}

// confirm asks a yes/no question on the command's input. A non-interactive
// stdin never confirms; pass --yes instead.
func confirm(cmd *cobra.Command, prompt string) bool {
	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok && !term.IsTerminal(int(f.Fd())) {
		slog.Warn("Standard input is not a terminal, refusing to prompt", "hint", "use --yes")
		return false
	}
	return confirmFrom(in, cmd.ErrOrStderr(), prompt)
}

func confirmFrom(in io.Reader, out io.Writer, prompt string) bool {
	_, _ = fmt.Fprintf(out, "%s (yes/no): ", prompt)
	response, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && response == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(response)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

func displayMigrationVersion(m database.Migrator, removedAll bool) {
	version, dirty, err := m.Version()
	if err != nil {
		if removedAll {
			slog.Info("Database schema has been completely removed")
		} else {
			slog.Warn("Failed to get migration version", "error", err)
		}
		return
	}

	if dirty {
		slog.Warn("Migration version is dirty, manual intervention may be required", "version", version)
	} else {
		slog.Info("Current migration version", "version", version)
	}
}
