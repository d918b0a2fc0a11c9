package db

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webspark/catalog-sync/database/dbtest"
	"github.com/webspark/catalog-sync/internal/catalog"
	"github.com/webspark/catalog-sync/internal/product"
)

func newTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	pool, cleanup := dbtest.SetupTestDB(t, context.Background())
	t.Cleanup(cleanup)

	s, err := New(pool, opts...)
	require.NoError(t, err)
	return s
}

func lamp(price string) product.Attributes {
	return product.Attributes{
		Name:        "Lamp",
		Description: "Desk lamp",
		Price:       decimal.RequireFromString(price),
		StockStatus: product.StockInStock,
	}
}

func TestNew_RequiresPool(t *testing.T) {
	t.Parallel()

	_, err := New(nil)
	require.Error(t, err)
}

func TestStore_CRUD(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Ping(ctx))

	_, err := s.FindBySKU(ctx, "SKU-1")
	require.ErrorIs(t, err, catalog.ErrNotFound)

	created, err := s.Create(ctx, "SKU-1", lamp("19.99"))
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, created.CreatedAt, created.LastModified)
	assert.True(t, created.Price.Equal(decimal.RequireFromString("19.99")))

	found, err := s.FindBySKU(ctx, "SKU-1")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
	assert.Equal(t, "Desk lamp", found.Description)

	_, err = s.FindBySKU(ctx, "sku-1")
	require.ErrorIs(t, err, catalog.ErrNotFound)

	updated, err := s.Update(ctx, created.ID, product.Attributes{
		Name:        "Lamp v2",
		Price:       decimal.RequireFromString("21"),
		StockStatus: product.StockOutOfStock,
	})
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "SKU-1", updated.SKU)
	assert.Empty(t, updated.Description)
	assert.Equal(t, product.StockOutOfStock, updated.StockStatus)
	assert.True(t, updated.LastModified.After(created.LastModified))

	require.NoError(t, s.Delete(ctx, created.ID))
	require.NoError(t, s.Delete(ctx, created.ID))
	require.NoError(t, s.Delete(ctx, "not-a-uuid"))

	_, err = s.Update(ctx, created.ID, lamp("1"))
	var nf *catalog.NotFoundError
	require.True(t, errors.As(err, &nf))
}

func TestStore_CreateRejections(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Create(ctx, "DUP", lamp("1"))
	require.NoError(t, err)

	_, err = s.Create(ctx, "DUP", lamp("2"))
	var createErr *catalog.CreateError
	require.True(t, errors.As(err, &createErr))
	assert.ErrorIs(t, err, catalog.ErrDuplicateSKU)

	_, err = s.Create(ctx, "", lamp("1"))
	require.True(t, errors.As(err, &createErr))
	assert.NotErrorIs(t, err, catalog.ErrDuplicateSKU)

	_, err = s.Create(ctx, "NEG", lamp("-1"))
	require.True(t, errors.As(err, &createErr))
}

func TestStore_ListAllPaginates(t *testing.T) {
	t.Parallel()

	s := newTestStore(t, WithPageSize(7))
	ctx := context.Background()

	const n = 30
	for i := 0; i < n; i++ {
		_, err := s.Create(ctx, fmt.Sprintf("SKU-%02d", i), lamp("1"))
		require.NoError(t, err)
	}

	all, err := s.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, n)

	seen := make(map[string]bool, n)
	for _, e := range all {
		assert.False(t, seen[e.SKU], "duplicate %s", e.SKU)
		seen[e.SKU] = true
	}
}

func TestStore_ListModifiedBefore(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	old, err := s.Create(ctx, "OLD", lamp("1"))
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)
	cutoff, err := s.Now(ctx)
	require.NoError(t, err)
	time.Sleep(10 * time.Millisecond)

	_, err = s.Create(ctx, "NEW", lamp("1"))
	require.NoError(t, err)

	stale, err := catalog.ListStale(ctx, s, cutoff)
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, old.ID, stale[0].ID)
}
