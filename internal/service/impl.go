package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/webspark/catalog-sync/internal/catalog"
	"github.com/webspark/catalog-sync/internal/status"
	"github.com/webspark/catalog-sync/internal/sync/coordinator"
)

// syncSvc implements SyncService on top of the coordinator and the catalog
type syncSvc struct {
	coord coordinator.Coordinator
	repo  catalog.Repository
}

var _ SyncService = (*syncSvc)(nil)

// New creates a SyncService
func New(coord coordinator.Coordinator, repo catalog.Repository) (SyncService, error) {
	if coord == nil {
		return nil, fmt.Errorf("coordinator is required")
	}
	if repo == nil {
		return nil, fmt.Errorf("catalog repository is required")
	}
	return &syncSvc{coord: coord, repo: repo}, nil
}

func (s *syncSvc) CheckReadiness(ctx context.Context) error {
	if err := s.repo.Ping(ctx); err != nil {
		return fmt.Errorf("catalog unavailable: %w", err)
	}
	return nil
}

func (s *syncSvc) GetStatus(ctx context.Context) (*status.SyncStatus, error) {
	return s.coord.Status(ctx)
}

func (s *syncSvc) TriggerSync(ctx context.Context) error {
	err := s.coord.RunAsync(ctx)
	if errors.Is(err, coordinator.ErrAlreadyRunning) {
		return ErrSyncInProgress
	}
	return err
}

func (s *syncSvc) ListProducts(ctx context.Context, opts ...Option) (*ProductPage, error) {
	options := &ListProductsOptions{Limit: DefaultLimit}
	for _, opt := range opts {
		if err := opt(options); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
		}
	}

	after, err := DecodeCursor(options.Cursor)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	entries, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	slices.SortFunc(entries, func(a, b catalog.Entry) int {
		return strings.Compare(a.SKU, b.SKU)
	})

	search := strings.ToLower(options.Search)
	page := &ProductPage{Products: []catalog.Entry{}}
	for _, e := range entries {
		if after != "" && e.SKU <= after {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(e.SKU), search) &&
			!strings.Contains(strings.ToLower(e.Name), search) {
			continue
		}
		if len(page.Products) == options.Limit {
			page.NextCursor = EncodeCursor(page.Products[len(page.Products)-1].SKU)
			break
		}
		page.Products = append(page.Products, e)
	}
	page.Count = len(page.Products)
	return page, nil
}

func (s *syncSvc) GetProduct(ctx context.Context, sku string) (*catalog.Entry, error) {
	entry, err := s.repo.FindBySKU(ctx, sku)
	if errors.Is(err, catalog.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrProductNotFound, sku)
	}
	if err != nil {
		return nil, err
	}
	return entry, nil
}
