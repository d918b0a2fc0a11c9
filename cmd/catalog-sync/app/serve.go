package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/webspark/catalog-sync/internal/app"
	"github.com/webspark/catalog-sync/internal/telemetry"
	"github.com/webspark/catalog-sync/internal/versions"
)

const defaultGracefulTimeout = 30 * time.Second // Kubernetes-friendly shutdown time

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the sync service and its HTTP API",
		Long: `Start the catalog sync service. The service polls the trigger store and runs
a sync cycle whenever the recurring job is due, and serves the status and
product API.

Without --config the service keeps the catalog in memory and its state under ./data.`,
		RunE: runServe,
	}

	cmd.Flags().String("address", ":8080", "Address to listen on")
	cmd.Flags().Bool("migrate", false, "Apply pending database migrations before starting")
	cmd.Flags().Bool("activate", false, "Activate the recurring sync job on startup")
	addSyncFlags(cmd.Flags())

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	overrides, err := newOverrides(cmd.Flags())
	if err != nil {
		return err
	}

	address, err := cmd.Flags().GetString("address")
	if err != nil {
		return fmt.Errorf("failed to get address flag: %w", err)
	}
	migrate, err := cmd.Flags().GetBool("migrate")
	if err != nil {
		return fmt.Errorf("failed to get migrate flag: %w", err)
	}
	activate, err := cmd.Flags().GetBool("activate")
	if err != nil {
		return fmt.Errorf("failed to get activate flag: %w", err)
	}

	info := versions.GetVersionInfo()
	slog.Info("Starting catalog sync service", "version", info.Version, "commit", info.Commit, "address", address)

	tel, err := telemetry.New(ctx,
		telemetry.WithTelemetryConfig(cfg.Telemetry),
		telemetry.WithJobName(cfg.GetJobName()),
		telemetry.WithBuildVersion(info.Version),
	)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultGracefulTimeout)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			slog.Error("Failed to shut down telemetry", "error", err)
		}
	}()

	syncApp, err := app.NewSyncApp(
		ctx,
		app.WithConfig(cfg),
		app.WithOverrides(overrides),
		app.WithAddress(address),
		app.WithMigrations(migrate),
		app.WithMeterProvider(tel.MeterProvider()),
		app.WithTracerProvider(tel.TracerProvider()),
		app.WithMetricsHandler(tel.MetricsHandler()),
	)
	if err != nil {
		return fmt.Errorf("failed to build application: %w", err)
	}

	if activate {
		if err := activateJob(ctx, syncApp, overrides); err != nil {
			syncApp.Close()
			return err
		}
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- syncApp.Start()
	}()

	select {
	case <-ctx.Done():
		slog.Info("Shutting down")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			_ = syncApp.Stop(defaultGracefulTimeout)
			return fmt.Errorf("service failed: %w", err)
		}
	}

	if err := syncApp.Stop(defaultGracefulTimeout); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	slog.Info("Service stopped")
	return nil
}
