package app

import (
	"github.com/webspark/catalog-sync/internal/catalog"
	"github.com/webspark/catalog-sync/internal/scheduler"
	"github.com/webspark/catalog-sync/internal/service"
	"github.com/webspark/catalog-sync/internal/sync/coordinator"
)

// AppComponents groups all application components
//
//nolint:revive // This name is fine
type AppComponents struct {
	// SyncCoordinator runs the job when its trigger is due
	SyncCoordinator coordinator.Coordinator

	// SyncService backs the HTTP API
	SyncService service.SyncService

	// Binding activates and deactivates the recurring job
	Binding *scheduler.Binding

	// Catalog is the product store the job writes to
	Catalog catalog.Repository
}
