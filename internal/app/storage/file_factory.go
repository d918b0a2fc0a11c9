package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/webspark/catalog-sync/internal/catalog"
	"github.com/webspark/catalog-sync/internal/catalog/inmemory"
	"github.com/webspark/catalog-sync/internal/config"
	"github.com/webspark/catalog-sync/internal/scheduler"
	"github.com/webspark/catalog-sync/internal/status"
)

const (
	catalogSnapshotFile = "catalog.json"
	statusDir           = "status"
)

// FileFactory creates file-based storage components.
// The catalog lives in memory and is snapshotted to baseDir/catalog.json.
type FileFactory struct {
	baseDir string

	// Created once and shared by every caller
	catalogOnce sync.Once
	catalog     *inmemory.Store
	catalogErr  error
}

var _ Factory = (*FileFactory)(nil)

// NewFileFactory creates a new file-based storage factory and ensures the base directory exists
func NewFileFactory(cfg *config.Config) (*FileFactory, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	baseDir := cfg.GetFileStorageBaseDir()
	if err := os.MkdirAll(baseDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create data directory %s: %w", baseDir, err)
	}

	slog.Info("Creating file-based storage factory", "base_dir", baseDir)
	return &FileFactory{baseDir: baseDir}, nil
}

// CreateCatalog returns the in-memory catalog, loading the snapshot on first use
func (f *FileFactory) CreateCatalog(_ context.Context) (catalog.Repository, error) {
	f.catalogOnce.Do(func() {
		slog.Debug("Creating in-memory catalog", "snapshot", filepath.Join(f.baseDir, catalogSnapshotFile))
		f.catalog, f.catalogErr = inmemory.New(
			inmemory.WithSnapshotFile(filepath.Join(f.baseDir, catalogSnapshotFile)),
		)
	})
	if f.catalogErr != nil {
		return nil, fmt.Errorf("failed to create catalog: %w", f.catalogErr)
	}
	return f.catalog, nil
}

// CreateTriggerStore returns a trigger store backed by baseDir/triggers.json
func (f *FileFactory) CreateTriggerStore(_ context.Context) (scheduler.Store, error) {
	slog.Debug("Creating file-based trigger store")
	store, err := scheduler.NewFileStore(f.baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create trigger store: %w", err)
	}
	return store, nil
}

// CreateStatusPersistence returns status files under baseDir/status
func (f *FileFactory) CreateStatusPersistence(_ context.Context) (status.StatusPersistence, error) {
	slog.Debug("Creating file-based status persistence")
	return status.NewFileStatusPersistence(filepath.Join(f.baseDir, statusDir)), nil
}

// LockDir returns the base directory
func (f *FileFactory) LockDir() string {
	return f.baseDir
}

// Cleanup is a no-op: the catalog snapshot is written on every change
func (*FileFactory) Cleanup() {
	slog.Debug("Cleaning up file storage factory (no-op)")
}
