// Package service provides the operations behind the catalog-sync HTTP API
package service

import (
	"context"
	"errors"

	"github.com/webspark/catalog-sync/internal/catalog"
	"github.com/webspark/catalog-sync/internal/status"
)

var (
	// ErrProductNotFound is returned when no catalog entry has the requested SKU
	ErrProductNotFound = errors.New("product not found")
	// ErrSyncInProgress is returned when a sync is requested while one is running
	ErrSyncInProgress = errors.New("sync already in progress")
	// ErrInvalidRequest wraps errors caused by bad list options or cursors
	ErrInvalidRequest = errors.New("invalid request")
)

const (
	// DefaultLimit is the page size when none is requested
	DefaultLimit = 50
	// MaxLimit caps the page size
	MaxLimit = 1000
)

//go:generate mockgen -destination=mocks/mock_service.go -package=mocks -source=service.go SyncService

// SyncService defines the operations exposed over HTTP
type SyncService interface {
	// CheckReadiness reports whether the catalog backend answers
	CheckReadiness(ctx context.Context) error

	// GetStatus returns the state of the recurring sync job
	GetStatus(ctx context.Context) (*status.SyncStatus, error)

	// TriggerSync starts a cycle in the background
	TriggerSync(ctx context.Context) error

	// ListProducts returns one page of the catalog ordered by SKU
	ListProducts(ctx context.Context, opts ...Option) (*ProductPage, error)

	// GetProduct returns the entry with the given SKU
	GetProduct(ctx context.Context, sku string) (*catalog.Entry, error)
}

// ProductPage is one page of catalog entries
type ProductPage struct {
	Products   []catalog.Entry `json:"products"`
	Count      int             `json:"count"`
	NextCursor string          `json:"nextCursor,omitempty"`
}
