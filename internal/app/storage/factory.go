// Package storage creates the storage-dependent components of the service as a family.
// A factory either keeps everything on the local filesystem or everything in PostgreSQL.
package storage

import (
	"context"
	"fmt"

	"github.com/webspark/catalog-sync/internal/catalog"
	"github.com/webspark/catalog-sync/internal/config"
	"github.com/webspark/catalog-sync/internal/scheduler"
	"github.com/webspark/catalog-sync/internal/status"
)

//go:generate mockgen -destination=mocks/mock_factory.go -package=mocks -source=factory.go Factory

// Factory creates storage-dependent components.
// Implementations ensure all components share one backend.
type Factory interface {
	// CreateCatalog returns the product catalog the sync engine writes to
	CreateCatalog(ctx context.Context) (catalog.Repository, error)

	// CreateTriggerStore returns the store holding the recurring job's triggers
	CreateTriggerStore(ctx context.Context) (scheduler.Store, error)

	// CreateStatusPersistence returns where the job status is kept
	CreateStatusPersistence(ctx context.Context) (status.StatusPersistence, error)

	// LockDir is the directory of the cross-process run lock, empty to disable it
	LockDir() string

	// Cleanup releases any resources held by this factory.
	// Should be called when the application shuts down.
	Cleanup()
}

// NewStorageFactory creates a storage factory based on the configured storage type
func NewStorageFactory(ctx context.Context, cfg *config.Config, opts ...DatabaseFactoryOption) (Factory, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	switch cfg.GetStorageType() {
	case config.StorageTypeDatabase:
		return NewDatabaseFactory(ctx, cfg, opts...)
	case config.StorageTypeFile:
		return NewFileFactory(cfg)
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.GetStorageType())
	}
}
