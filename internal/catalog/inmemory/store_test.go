package inmemory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webspark/catalog-sync/internal/catalog"
	"github.com/webspark/catalog-sync/internal/product"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func attrs(name string, price string) product.Attributes {
	return product.Attributes{
		Name:        name,
		Price:       decimal.RequireFromString(price),
		StockStatus: product.StockInStock,
	}
}

func TestStore_CreateAndFind(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)}
	s, err := New(WithClock(clock.Now))
	require.NoError(t, err)
	ctx := context.Background()

	created, err := s.Create(ctx, "SKU-1", attrs("Lamp", "9.99"))
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, clock.Now(), created.CreatedAt)
	assert.Equal(t, clock.Now(), created.LastModified)

	found, err := s.FindBySKU(ctx, "SKU-1")
	require.NoError(t, err)
	assert.Equal(t, created, found)

	_, err = s.FindBySKU(ctx, "sku-1")
	assert.ErrorIs(t, err, catalog.ErrNotFound, "sku lookup is case-sensitive")
}

func TestStore_CreateDuplicate(t *testing.T) {
	t.Parallel()

	s, err := New()
	require.NoError(t, err)
	ctx := context.Background()

	_, err = s.Create(ctx, "SKU-1", attrs("Lamp", "1"))
	require.NoError(t, err)

	_, err = s.Create(ctx, "SKU-1", attrs("Other", "2"))
	var createErr *catalog.CreateError
	require.True(t, errors.As(err, &createErr))
	assert.Equal(t, "SKU-1", createErr.SKU)
	assert.ErrorIs(t, err, catalog.ErrDuplicateSKU)
	assert.Equal(t, 1, s.Len())

	_, err = s.Create(ctx, "", attrs("Blank", "1"))
	require.Error(t, err)
}

func TestStore_UpdateKeepsIdentity(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)}
	s, err := New(WithClock(clock.Now))
	require.NoError(t, err)
	ctx := context.Background()

	created, err := s.Create(ctx, "SKU-1", attrs("Lamp", "9.99"))
	require.NoError(t, err)

	clock.Advance(time.Minute)
	updated, err := s.Update(ctx, created.ID, attrs("Desk Lamp", "12.00"))
	require.NoError(t, err)

	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "SKU-1", updated.SKU)
	assert.Equal(t, "Desk Lamp", updated.Name)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)
	assert.Equal(t, created.LastModified.Add(time.Minute), updated.LastModified)

	_, err = s.Update(ctx, "missing", attrs("x", "1"))
	var nf *catalog.NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestStore_ReturnedEntriesAreCopies(t *testing.T) {
	t.Parallel()

	s, err := New()
	require.NoError(t, err)
	ctx := context.Background()

	created, err := s.Create(ctx, "SKU-1", attrs("Lamp", "1"))
	require.NoError(t, err)
	created.Name = "mutated"

	found, err := s.FindBySKU(ctx, "SKU-1")
	require.NoError(t, err)
	assert.Equal(t, "Lamp", found.Name)
}

func TestStore_DeleteIsIdempotent(t *testing.T) {
	t.Parallel()

	s, err := New()
	require.NoError(t, err)
	ctx := context.Background()

	e, err := s.Create(ctx, "SKU-1", attrs("Lamp", "1"))
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, e.ID))
	require.NoError(t, s.Delete(ctx, e.ID))

	_, err = s.FindBySKU(ctx, "SKU-1")
	assert.ErrorIs(t, err, catalog.ErrNotFound)

	// the SKU is free again
	_, err = s.Create(ctx, "SKU-1", attrs("Lamp", "1"))
	require.NoError(t, err)
}

func TestStore_ListAllAndStale(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)}
	s, err := New(WithClock(clock.Now))
	require.NoError(t, err)
	ctx := context.Background()

	_, err = s.Create(ctx, "B", attrs("b", "1"))
	require.NoError(t, err)
	clock.Advance(time.Hour)
	_, err = s.Create(ctx, "A", attrs("a", "1"))
	require.NoError(t, err)

	all, err := s.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "A", all[0].SKU)
	assert.Equal(t, "B", all[1].SKU)

	stale, err := catalog.ListStale(ctx, s, clock.Now())
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, "B", stale[0].SKU)

	now, err := catalog.Now(ctx, s, time.Now)
	require.NoError(t, err)
	assert.Equal(t, clock.Now(), now)
}

func TestStore_Snapshot(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "catalog", "catalog.json")
	ctx := context.Background()

	s, err := New(WithSnapshotFile(path))
	require.NoError(t, err)
	a, err := s.Create(ctx, "A", attrs("a", "1.50"))
	require.NoError(t, err)
	b, err := s.Create(ctx, "B", attrs("b", "2"))
	require.NoError(t, err)
	require.NoError(t, s.Delete(ctx, b.ID))

	restored, err := New(WithSnapshotFile(path))
	require.NoError(t, err)
	assert.Equal(t, 1, restored.Len())

	found, err := restored.FindBySKU(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, a.ID, found.ID)
	assert.True(t, found.Price.Equal(decimal.RequireFromString("1.5")))
}

func TestNew_BadSnapshot(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
	}{
		{name: "invalid json", content: "{"},
		{name: "missing id", content: `[{"sku":"A"}]`},
		{name: "duplicate sku", content: `[{"id":"1","sku":"A"},{"id":"2","sku":"A"}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			path := filepath.Join(t.TempDir(), "catalog.json")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0600))

			_, err := New(WithSnapshotFile(path))
			require.Error(t, err)
		})
	}
}

func TestStore_FailedSnapshotWriteLeavesCatalogUnchanged(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "catalog")
	path := filepath.Join(dir, "catalog.json")

	s, err := New(WithSnapshotFile(path))
	require.NoError(t, err)
	kept, err := s.Create(ctx, "KEEP", attrs("kept", "3"))
	require.NoError(t, err)

	// Replace the snapshot directory with a file so every write fails
	require.NoError(t, os.RemoveAll(dir))
	require.NoError(t, os.WriteFile(dir, []byte("blocked"), 0600))

	_, err = s.Create(ctx, "NEW", attrs("new", "1"))
	require.Error(t, err)
	_, err = s.FindBySKU(ctx, "NEW")
	assert.ErrorIs(t, err, catalog.ErrNotFound)

	_, err = s.Update(ctx, kept.ID, attrs("renamed", "9"))
	require.Error(t, err)
	found, err := s.FindBySKU(ctx, "KEEP")
	require.NoError(t, err)
	assert.Equal(t, "kept", found.Name)
	assert.True(t, found.Price.Equal(decimal.RequireFromString("3")))
	assert.Equal(t, kept.LastModified, found.LastModified)

	require.Error(t, s.Delete(ctx, kept.ID))
	_, err = s.FindBySKU(ctx, "KEEP")
	require.NoError(t, err)
	assert.Equal(t, 1, s.Len())

	// Once the directory is back the same SKU can be created
	require.NoError(t, os.Remove(dir))
	created, err := s.Create(ctx, "NEW", attrs("new", "1"))
	require.NoError(t, err)
	assert.Equal(t, "NEW", created.SKU)
	assert.Equal(t, 2, s.Len())
}

func TestStore_ConcurrentCreates(t *testing.T) {
	t.Parallel()

	s, err := New()
	require.NoError(t, err)
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	var succeeded int
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Create(ctx, "SAME", attrs("x", "1")); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, s.Len())
}
