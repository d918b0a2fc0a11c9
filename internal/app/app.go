// Package app wires the catalog sync service together and manages its lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/webspark/catalog-sync/internal/config"
)

// SyncApp encapsulates all components needed to run the sync service.
// It provides lifecycle management and graceful shutdown capabilities.
type SyncApp struct {
	config     *config.Config
	components *AppComponents
	httpServer *http.Server

	// Lifecycle management
	ctx        context.Context
	cancelFunc context.CancelFunc
}

// Start runs the sync coordinator and the HTTP server.
// It blocks until both have stopped and returns the first failure.
func (app *SyncApp) Start() error {
	g, gctx := errgroup.WithContext(app.ctx)

	g.Go(func() error {
		if err := app.components.SyncCoordinator.Start(gctx); err != nil {
			return fmt.Errorf("sync coordinator failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		slog.Info("Server listening", "address", app.httpServer.Addr)
		if err := app.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// Stop gracefully stops the application with the given timeout.
// It stops the sync coordinator first and then shuts down the HTTP server.
func (app *SyncApp) Stop(timeout time.Duration) error {
	slog.Info("Shutting down server...")

	if err := app.components.SyncCoordinator.Stop(); err != nil {
		slog.Error("Failed to stop sync coordinator", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	err := app.httpServer.Shutdown(shutdownCtx)

	// Releases storage once nothing can use it anymore
	if app.cancelFunc != nil {
		app.cancelFunc()
	}

	if err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	slog.Info("Server shutdown complete")
	return nil
}

// Close releases storage resources of an app that was never started
func (app *SyncApp) Close() {
	if app.cancelFunc != nil {
		app.cancelFunc()
	}
}

// GetConfig returns the application configuration
func (app *SyncApp) GetConfig() *config.Config {
	return app.config
}

// GetHTTPServer returns the HTTP server
func (app *SyncApp) GetHTTPServer() *http.Server {
	return app.httpServer
}

// Components returns the wired components, for commands that skip the server
func (app *SyncApp) Components() *AppComponents {
	return app.components
}
