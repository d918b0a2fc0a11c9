// Package app provides the commands of the catalog-sync binary.
package app

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/webspark/catalog-sync/internal/config"
	"github.com/webspark/catalog-sync/internal/versions"
)

// NewRootCmd creates the root command with all subcommands
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:               "catalog-sync",
		DisableAutoGenTag: true,
		SilenceUsage:      true,
		Short:             "Keeps a product catalog in sync with a remote product feed",
		Long: `catalog-sync periodically downloads a JSON product feed, creates or updates
the matching catalog entries by SKU and evicts entries the feed no longer carries.`,
		Run: func(cmd *cobra.Command, _ []string) {
			if err := cmd.Help(); err != nil {
				slog.Error("Error displaying help", "error", err)
			}
		},
	}

	rootCmd.PersistentFlags().String("config", "", "Path to configuration file (YAML format)")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newSyncCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newActivateCmd())
	rootCmd.AddCommand(newDeactivateCmd())
	rootCmd.AddCommand(newMigrateCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := versions.GetVersionInfo()
			format, err := cmd.Flags().GetString("format")
			if err != nil {
				return fmt.Errorf("failed to get format flag: %w", err)
			}

			if format == "json" {
				return writeJSON(cmd.OutOrStdout(), info)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), info.String())
			return err
		},
	}
	cmd.Flags().String("format", "", "Output format (json)")
	return cmd
}

// loadConfig reads the --config file. Without one every setting takes its default.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	// Flag also searches persistent flags of the command and its parents,
	// which Flags() only holds once the command has been executed
	configFlag := cmd.Flag("config")
	if configFlag == nil {
		return nil, fmt.Errorf("failed to get config flag: not defined on %q", cmd.Name())
	}
	path := configFlag.Value.String()
	if path == "" {
		slog.Info("No configuration file given, using defaults")
		return &config.Config{}, nil
	}

	cfg, err := config.LoadConfig(config.WithConfigPath(path))
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	slog.Info("Loaded configuration", "path", path, "storage", cfg.GetStorageType(), "job", cfg.GetJobName())
	return cfg, nil
}

// syncFlags maps command-line flags to configuration keys
var syncFlags = map[string]string{
	"feed-url":         config.KeyFeedURL,
	"max-records":      config.KeyMaxRecords,
	"interval-minutes": config.KeyIntervalMinutes,
	"fetch-timeout":    config.KeyFetchTimeout,
}

// addSyncFlags registers the flags that override the sync options
func addSyncFlags(flags *pflag.FlagSet) {
	flags.String("feed-url", "", "Product feed URL")
	flags.Int("max-records", config.DefaultMaxRecords, "Number of feed records processed per cycle")
	flags.Int("interval-minutes", config.DefaultIntervalMinutes, "Sync interval and staleness window in minutes")
	flags.String("fetch-timeout", "", "Timeout of one feed download (e.g. 30s)")
}

// newOverrides builds the key-value store read at the start of every cycle.
// Changed flags win over CATALOG_SYNC_* environment variables, which win
// over the configuration file.
func newOverrides(flags *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(config.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for name, key := range syncFlags {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
		if flag := flags.Lookup(name); flag != nil {
			if err := v.BindPFlag(key, flag); err != nil {
				return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
			}
		}
	}
	return v, nil
}

func writeJSON(w io.Writer, v any) error {
	output, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(output))
	return err
}
