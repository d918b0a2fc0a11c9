package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/webspark/catalog-sync/internal/app"
	"github.com/webspark/catalog-sync/internal/config"
)

func newActivateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "activate",
		Short: "Schedule the recurring sync job",
		Long: `Register the recurring trigger of the sync job. Activation is idempotent: an
existing trigger is kept. The trigger is aligned to the last interval boundary at
or before now, so the first run is due as soon as the server polls for it.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			syncApp, overrides, err := buildOneShotApp(cmd)
			if err != nil {
				return err
			}
			defer syncApp.Close()
			return activateJob(cmd.Context(), syncApp, overrides)
		},
	}
	addSyncFlags(cmd.Flags())
	return cmd
}

func newDeactivateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deactivate",
		Short: "Remove every trigger of the sync job",
		RunE: func(cmd *cobra.Command, _ []string) error {
			syncApp, _, err := buildOneShotApp(cmd)
			if err != nil {
				return err
			}
			defer syncApp.Close()

			removed, err := syncApp.Components().Binding.Deactivate(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to deactivate: %w", err)
			}
			if removed == 0 {
				slog.Info("Sync job was not active")
				return nil
			}
			slog.Info("Sync job deactivated", "triggers_removed", removed)
			return nil
		},
	}
	return cmd
}

// activateJob schedules the trigger using the interval resolved from the
// configuration and overrides
func activateJob(ctx context.Context, syncApp *app.SyncApp, overrides config.Store) error {
	sc, err := config.ResolveSyncConfig(syncApp.GetConfig(), overrides)
	if err != nil {
		return fmt.Errorf("invalid sync configuration: %w", err)
	}

	binding := syncApp.Components().Binding
	trigger, created, err := binding.Activate(ctx, sc.Interval())
	if err != nil {
		return fmt.Errorf("failed to activate: %w", err)
	}
	if created {
		slog.Info("Sync job activated", "job", binding.Name(), "interval", sc.Interval(), "next_run", trigger.NextRun)
	} else {
		slog.Info("Sync job already active", "job", binding.Name(), "next_run", trigger.NextRun)
	}
	return nil
}
