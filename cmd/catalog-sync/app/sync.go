package app

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/webspark/catalog-sync/internal/app"
	"github.com/webspark/catalog-sync/internal/config"
	pkgsync "github.com/webspark/catalog-sync/internal/sync"
)

// cycleSummary is the output of the sync command
type cycleSummary struct {
	Hash            string               `json:"hash,omitempty"`
	Total           int                  `json:"total"`
	Fetched         int                  `json:"fetched"`
	Skipped         int                  `json:"skipped"`
	Filtered        int                  `json:"filtered"`
	Created         int                  `json:"created"`
	Updated         int                  `json:"updated"`
	Failed          int                  `json:"failed"`
	Evicted         int                  `json:"evicted"`
	EvictFailed     int                  `json:"evictFailed"`
	EvictionSkipped bool                 `json:"evictionSkipped"`
	EvictCutoff     *time.Time           `json:"evictCutoff,omitempty"`
	Duration        string               `json:"duration"`
	Errors          []summaryRecordError `json:"errors,omitempty"`
}

type summaryRecordError struct {
	pkgsync.RecordError
	Message string `json:"message"`
}

func newCycleSummary(r *pkgsync.Result) cycleSummary {
	s := cycleSummary{
		Hash:            r.Hash,
		Total:           r.Total,
		Fetched:         r.Fetched,
		Skipped:         r.Skipped,
		Filtered:        r.Filtered,
		Created:         r.Created,
		Updated:         r.Updated,
		Failed:          r.Failed,
		Evicted:         r.Evicted,
		EvictFailed:     r.EvictFailed,
		EvictionSkipped: r.EvictionSkipped,
		Duration:        r.Duration().String(),
	}
	if !r.EvictCutoff.IsZero() {
		cutoff := r.EvictCutoff.UTC()
		s.EvictCutoff = &cutoff
	}
	for _, e := range r.Errors {
		msg := ""
		if e.Err != nil {
			msg = e.Err.Error()
		}
		s.Errors = append(s.Errors, summaryRecordError{RecordError: e, Message: msg})
	}
	return s
}

func newSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run one sync cycle now",
		Long: `Run a single sync cycle in the foreground and print its outcome as JSON.
The cycle is refused when another cycle holds the run lock.`,
		RunE: runSync,
	}
	cmd.Flags().Bool("migrate", false, "Apply pending database migrations first")
	addSyncFlags(cmd.Flags())
	return cmd
}

func runSync(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	syncApp, _, err := buildOneShotApp(cmd)
	if err != nil {
		return err
	}
	defer syncApp.Close()

	result, runErr := syncApp.Components().SyncCoordinator.RunNow(ctx)
	if result != nil {
		if err := writeJSON(cmd.OutOrStdout(), newCycleSummary(result)); err != nil {
			return err
		}
	}
	if runErr != nil {
		return fmt.Errorf("sync failed: %w", runErr)
	}
	return nil
}

// buildOneShotApp assembles the components for commands that do not serve HTTP
func buildOneShotApp(cmd *cobra.Command) (*app.SyncApp, config.Store, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	overrides, err := newOverrides(cmd.Flags())
	if err != nil {
		return nil, nil, err
	}

	migrate := false
	if cmd.Flags().Lookup("migrate") != nil {
		if migrate, err = cmd.Flags().GetBool("migrate"); err != nil {
			return nil, nil, fmt.Errorf("failed to get migrate flag: %w", err)
		}
	}

	syncApp, err := app.NewSyncApp(cmd.Context(), app.WithConfig(cfg), app.WithOverrides(overrides), app.WithMigrations(migrate))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build application: %w", err)
	}
	return syncApp, overrides, nil
}
