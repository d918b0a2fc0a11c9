// Package catalog defines the product catalog the sync engine writes to.
//
// A Repository stores one Entry per SKU. The catalog owns entry identifiers
// and the LastModified timestamp, which it refreshes on every create and
// update. Implementations live in the inmemory and db subpackages.
package catalog

import (
	"context"
	"time"

	"github.com/webspark/catalog-sync/internal/product"
)

// Entry is a persisted product
type Entry struct {
	ID  string `json:"id"`
	SKU string `json:"sku"`
	product.Attributes
	CreatedAt    time.Time `json:"createdAt"`
	LastModified time.Time `json:"lastModified"`
}

//go:generate mockgen -destination=mocks/mock_repository.go -package=mocks github.com/webspark/catalog-sync/internal/catalog Repository

// Repository is the product store
type Repository interface {
	// FindBySKU returns the entry with the given SKU or ErrNotFound
	FindBySKU(ctx context.Context, sku string) (*Entry, error)

	// Create stores a new entry. It fails with *CreateError wrapping
	// ErrDuplicateSKU when the SKU is taken.
	Create(ctx context.Context, sku string, attrs product.Attributes) (*Entry, error)

	// Update overwrites the mutable fields of an entry. The SKU is kept.
	// It fails with *NotFoundError when the entry is gone.
	Update(ctx context.Context, id string, attrs product.Attributes) (*Entry, error)

	// Delete removes an entry. Deleting a missing entry is not an error.
	Delete(ctx context.Context, id string) error

	// ListAll returns every entry exactly once
	ListAll(ctx context.Context) ([]Entry, error)

	// Ping reports whether the backend is available
	Ping(ctx context.Context) error
}

// StaleLister is implemented by repositories that can filter by age themselves
type StaleLister interface {
	// ListModifiedBefore returns entries whose LastModified is strictly before cutoff
	ListModifiedBefore(ctx context.Context, cutoff time.Time) ([]Entry, error)
}

// Clock is implemented by repositories whose timestamps come from their own clock
type Clock interface {
	Now(ctx context.Context) (time.Time, error)
}

// Now returns the repository's current time, or fallback() when it has no clock
func Now(ctx context.Context, repo Repository, fallback func() time.Time) (time.Time, error) {
	if c, ok := repo.(Clock); ok {
		return c.Now(ctx)
	}
	return fallback(), nil
}

// ListStale returns the entries last modified strictly before cutoff
func ListStale(ctx context.Context, repo Repository, cutoff time.Time) ([]Entry, error) {
	if sl, ok := repo.(StaleLister); ok {
		return sl.ListModifiedBefore(ctx, cutoff)
	}

	all, err := repo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	stale := make([]Entry, 0, len(all))
	for _, e := range all {
		if e.LastModified.Before(cutoff) {
			stale = append(stale, e)
		}
	}
	return stale, nil
}
