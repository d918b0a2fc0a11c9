package sync

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	gosync "sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/webspark/catalog-sync/internal/catalog"
	"github.com/webspark/catalog-sync/internal/catalog/inmemory"
	catalogmocks "github.com/webspark/catalog-sync/internal/catalog/mocks"
	"github.com/webspark/catalog-sync/internal/config"
	"github.com/webspark/catalog-sync/internal/feed"
	feedmocks "github.com/webspark/catalog-sync/internal/feed/mocks"
	"github.com/webspark/catalog-sync/internal/httpclient"
	"github.com/webspark/catalog-sync/internal/product"
)

const testFeedURL = "https://feed.example.com/products.json"

type testClock struct {
	mu  gosync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func syncConfig(maxRecords int) *config.SyncConfig {
	return &config.SyncConfig{
		FeedURL:         testFeedURL,
		MaxRecords:      maxRecords,
		IntervalMinutes: 60,
		FetchTimeout:    5 * time.Second,
	}
}

func rec(sku, name, price string) feed.Record {
	return feed.Record{
		SKU: sku,
		Attributes: product.Attributes{
			Name:        name,
			Description: name + " description",
			Price:       decimal.RequireFromString(price),
			StockStatus: product.StockInStock,
		},
	}
}

func fetched(records ...feed.Record) *feed.FetchResult {
	return &feed.FetchResult{Records: records, Total: len(records), Hash: "hash"}
}

func newStore(t *testing.T, clock *testClock) *inmemory.Store {
	t.Helper()
	s, err := inmemory.New(inmemory.WithClock(clock.Now))
	require.NoError(t, err)
	return s
}

func seed(t *testing.T, store *inmemory.Store, clock *testClock, age time.Duration, sku string) *catalog.Entry {
	t.Helper()
	clock.Advance(-age)
	defer clock.Advance(age)
	e, err := store.Create(context.Background(), sku, rec(sku, sku, "1").Attributes)
	require.NoError(t, err)
	return e
}

func TestPerformSync_CreatesNewProducts(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	clock := newTestClock()
	store := newStore(t, clock)
	feedClient := feedmocks.NewMockClient(ctrl)

	lamp := rec("LAMP-1", "Lamp", "19.99")
	feedClient.EXPECT().Fetch(gomock.Any(), testFeedURL, 100).Return(fetched(lamp), nil)

	manager := NewDefaultSyncManager(feedClient, store, WithClock(clock.Now))
	result, syncErr := manager.PerformSync(context.Background(), syncConfig(100))

	require.Nil(t, syncErr)
	assert.Equal(t, 1, result.Created)
	assert.Equal(t, 0, result.Updated)
	assert.Equal(t, 1, store.Len())

	entry, err := store.FindBySKU(context.Background(), "LAMP-1")
	require.NoError(t, err)
	assert.True(t, entry.Attributes.Equal(lamp.Attributes))
	assert.Equal(t, clock.Now(), entry.LastModified)
}

func TestPerformSync_UpdatePreservesID(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	clock := newTestClock()
	store := newStore(t, clock)
	original := seed(t, store, clock, 10*time.Minute, "LAMP-1")

	feedClient := feedmocks.NewMockClient(ctrl)
	changed := feed.Record{
		SKU: "LAMP-1",
		Attributes: product.Attributes{
			Name:        "Lamp v2",
			Description: "",
			Price:       decimal.RequireFromString("25.00"),
			StockStatus: product.StockOutOfStock,
		},
	}
	feedClient.EXPECT().Fetch(gomock.Any(), testFeedURL, 100).Return(fetched(changed), nil)

	manager := NewDefaultSyncManager(feedClient, store, WithClock(clock.Now))
	result, syncErr := manager.PerformSync(context.Background(), syncConfig(100))

	require.Nil(t, syncErr)
	assert.Equal(t, 0, result.Created)
	assert.Equal(t, 1, result.Updated)

	entry, err := store.FindBySKU(context.Background(), "LAMP-1")
	require.NoError(t, err)
	assert.Equal(t, original.ID, entry.ID)
	assert.True(t, entry.Attributes.Equal(changed.Attributes), "all mutable fields are overwritten")
	assert.Equal(t, clock.Now(), entry.LastModified)
}

func TestPerformSync_Idempotent(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	clock := newTestClock()
	store := newStore(t, clock)
	feedClient := feedmocks.NewMockClient(ctrl)

	records := fetched(rec("A", "a", "1"), rec("B", "b", "2"), rec("C", "c", "3"))
	feedClient.EXPECT().Fetch(gomock.Any(), testFeedURL, 100).Return(records, nil).Times(2)

	manager := NewDefaultSyncManager(feedClient, store, WithClock(clock.Now))

	first, syncErr := manager.PerformSync(context.Background(), syncConfig(100))
	require.Nil(t, syncErr)
	assert.Equal(t, 3, first.Created)

	before, err := store.ListAll(context.Background())
	require.NoError(t, err)

	clock.Advance(time.Hour)
	second, syncErr := manager.PerformSync(context.Background(), syncConfig(100))
	require.Nil(t, syncErr)
	assert.Equal(t, 0, second.Created)
	assert.Equal(t, 3, second.Updated)
	assert.Equal(t, 0, second.Evicted)

	after, err := store.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, after, len(before))
	for i := range before {
		assert.Equal(t, before[i].ID, after[i].ID)
		assert.Equal(t, before[i].SKU, after[i].SKU)
		assert.True(t, before[i].Attributes.Equal(after[i].Attributes))
		assert.Equal(t, before[i].CreatedAt, after[i].CreatedAt)
		assert.True(t, after[i].LastModified.After(before[i].LastModified), "lastModified is refreshed")
	}
}

func TestPerformSync_TruncatesToMaxRecords(t *testing.T) {
	t.Parallel()

	items := make([]string, 500)
	for i := range items {
		items[i] = fmt.Sprintf(`{"sku":"SKU-%03d","name":"n%d","price":1}`, i, i)
	}
	body := "[" + strings.Join(items, ",") + "]"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(body))
	}))
	defer server.Close()

	clock := newTestClock()
	store := newStore(t, clock)
	feedClient := feed.NewClient(httpclient.NewDefaultClient(5 * time.Second))

	cfg := syncConfig(100)
	cfg.FeedURL = server.URL
	manager := NewDefaultSyncManager(feedClient, store, WithClock(clock.Now))
	result, syncErr := manager.PerformSync(context.Background(), cfg)

	require.Nil(t, syncErr)
	assert.Equal(t, 500, result.Total)
	assert.Equal(t, 100, result.Fetched)
	assert.Equal(t, 100, result.Created)
	assert.Equal(t, 100, store.Len())

	for i := 0; i < 500; i++ {
		_, err := store.FindBySKU(context.Background(), fmt.Sprintf("SKU-%03d", i))
		if i < 100 {
			assert.NoError(t, err, "record %d should be processed", i)
		} else {
			assert.ErrorIs(t, err, catalog.ErrNotFound, "record %d should be untouched", i)
		}
	}
}

func TestPerformSync_FetchFailureNeverEvicts(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		fetchErr   error
		wantReason string
	}{
		{
			name:       "network failure",
			fetchErr:   &feed.FetchError{URL: testFeedURL, Err: errors.New("connection refused")},
			wantReason: ReasonFetchFailed,
		},
		{
			name:       "server error",
			fetchErr:   &feed.FetchError{URL: testFeedURL, StatusCode: 500, Err: errors.New("HTTP 500")},
			wantReason: ReasonFetchFailed,
		},
		{
			name:       "malformed payload",
			fetchErr:   &feed.ParseError{Reason: "invalid JSON"},
			wantReason: ReasonParseFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			clock := newTestClock()
			store := newStore(t, clock)
			seed(t, store, clock, 48*time.Hour, "ANCIENT-1")
			seed(t, store, clock, 72*time.Hour, "ANCIENT-2")

			feedClient := feedmocks.NewMockClient(ctrl)
			feedClient.EXPECT().Fetch(gomock.Any(), testFeedURL, 100).Return(nil, tt.fetchErr)

			manager := NewDefaultSyncManager(feedClient, store, WithClock(clock.Now))
			result, syncErr := manager.PerformSync(context.Background(), syncConfig(100))

			require.NotNil(t, syncErr)
			assert.Equal(t, tt.wantReason, syncErr.ConditionReason)
			assert.ErrorIs(t, syncErr, tt.fetchErr)
			require.NotNil(t, result)
			assert.True(t, result.EvictionSkipped)
			assert.Equal(t, 0, result.Evicted)
			assert.Equal(t, 2, store.Len())
		})
	}
}

func TestPerformSync_FetchFailureTouchesNothing(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	feedClient := feedmocks.NewMockClient(ctrl)
	repo := catalogmocks.NewMockRepository(ctrl)

	feedClient.EXPECT().Fetch(gomock.Any(), testFeedURL, 100).
		Return(nil, &feed.FetchError{URL: testFeedURL, Err: context.DeadlineExceeded})
	// any other catalog call fails the test

	manager := NewDefaultSyncManager(feedClient, repo)
	_, syncErr := manager.PerformSync(context.Background(), syncConfig(100))
	require.NotNil(t, syncErr)
	assert.Equal(t, ReasonFetchFailed, syncErr.ConditionReason)
}

func TestPerformSync_EvictsStaleEntries(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	clock := newTestClock()
	store := newStore(t, clock)
	seed(t, store, clock, 61*time.Minute, "STALE")
	seed(t, store, clock, 30*time.Minute, "RECENT")
	seed(t, store, clock, 60*time.Minute, "EXACTLY-ONE-INTERVAL")

	feedClient := feedmocks.NewMockClient(ctrl)
	feedClient.EXPECT().Fetch(gomock.Any(), testFeedURL, 100).Return(fetched(rec("FRESH", "f", "5")), nil)

	manager := NewDefaultSyncManager(feedClient, store, WithClock(clock.Now))
	result, syncErr := manager.PerformSync(context.Background(), syncConfig(100))

	require.Nil(t, syncErr)
	assert.False(t, result.EvictionSkipped)
	assert.Equal(t, 1, result.Evicted)
	assert.Equal(t, clock.Now().Add(-time.Hour), result.EvictCutoff)

	ctx := context.Background()
	_, err := store.FindBySKU(ctx, "STALE")
	assert.ErrorIs(t, err, catalog.ErrNotFound)
	_, err = store.FindBySKU(ctx, "RECENT")
	assert.NoError(t, err)
	_, err = store.FindBySKU(ctx, "EXACTLY-ONE-INTERVAL")
	assert.NoError(t, err, "an entry exactly one interval old is not strictly older than the cutoff")
	_, err = store.FindBySKU(ctx, "FRESH")
	assert.NoError(t, err)
}

func TestPerformSync_SlowCycleKeepsRefreshedEntries(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	clock := newTestClock()
	store := newStore(t, clock)
	seed(t, store, clock, 2*time.Hour, "STALE")

	// every write takes 30 minutes, so the four writes outlast the interval
	slow := &hookRepo{Repository: store, afterWrite: func() { clock.Advance(30 * time.Minute) }}

	feedClient := feedmocks.NewMockClient(ctrl)
	feedClient.EXPECT().Fetch(gomock.Any(), testFeedURL, 100).
		Return(fetched(rec("A", "a", "1"), rec("B", "b", "1"), rec("C", "c", "1"), rec("D", "d", "1")), nil)

	start := clock.Now()
	manager := NewDefaultSyncManager(feedClient, slow, WithClock(clock.Now))
	result, syncErr := manager.PerformSync(context.Background(), syncConfig(100))

	require.Nil(t, syncErr)
	assert.Equal(t, 4, result.Created)
	assert.Equal(t, start, result.EvictCutoff, "cutoff never passes the cycle start")
	assert.Equal(t, 1, result.Evicted)
	assert.Equal(t, 4, store.Len())
}

func TestPerformSync_PartialFailure(t *testing.T) {
	t.Parallel()

	items := make([]string, 10)
	for i := range items {
		if i == 4 {
			items[i] = `{"name":"record five has no sku","price":5}`
			continue
		}
		items[i] = fmt.Sprintf(`{"sku":"SKU-%d","name":"n","price":1}`, i+1)
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("[" + strings.Join(items, ",") + "]"))
	}))
	defer server.Close()

	clock := newTestClock()
	store := newStore(t, clock)
	cfg := syncConfig(100)
	cfg.FeedURL = server.URL

	manager := NewDefaultSyncManager(feed.NewClient(httpclient.NewDefaultClient(5*time.Second)), store, WithClock(clock.Now))
	result, syncErr := manager.PerformSync(context.Background(), cfg)

	require.Nil(t, syncErr)
	assert.Equal(t, 9, result.Upserted())
	assert.Equal(t, 1, result.Skipped)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, OpParse, result.Errors[0].Op)
	assert.Equal(t, 4, result.Errors[0].Index)
	assert.Equal(t, 9, store.Len())
}

func TestPerformSync_CatalogFailuresAreRecordErrors(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	feedClient := feedmocks.NewMockClient(ctrl)
	repo := catalogmocks.NewMockRepository(ctrl)
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	feedClient.EXPECT().Fetch(gomock.Any(), testFeedURL, 100).
		Return(fetched(rec("NEW", "n", "1"), rec("DUP", "d", "1"), rec("GONE", "g", "1"), rec("DOWN", "x", "1")), nil)

	repo.EXPECT().FindBySKU(gomock.Any(), "NEW").Return(nil, catalog.ErrNotFound)
	repo.EXPECT().Create(gomock.Any(), "NEW", gomock.Any()).Return(&catalog.Entry{ID: "1", SKU: "NEW"}, nil)

	repo.EXPECT().FindBySKU(gomock.Any(), "DUP").Return(nil, catalog.ErrNotFound)
	repo.EXPECT().Create(gomock.Any(), "DUP", gomock.Any()).
		Return(nil, &catalog.CreateError{SKU: "DUP", Err: catalog.ErrDuplicateSKU})

	repo.EXPECT().FindBySKU(gomock.Any(), "GONE").Return(&catalog.Entry{ID: "g1", SKU: "GONE"}, nil)
	repo.EXPECT().Update(gomock.Any(), "g1", gomock.Any()).Return(nil, &catalog.NotFoundError{ID: "g1"})

	repo.EXPECT().FindBySKU(gomock.Any(), "DOWN").Return(nil, errors.New("connection reset"))

	repo.EXPECT().ListAll(gomock.Any()).Return([]catalog.Entry{
		{ID: "old", SKU: "OLD", LastModified: now.Add(-2 * time.Hour)},
		{ID: "1", SKU: "NEW", LastModified: now},
	}, nil)
	repo.EXPECT().Delete(gomock.Any(), "old").Return(errors.New("locked"))

	manager := NewDefaultSyncManager(feedClient, repo, WithClock(func() time.Time { return now }))
	result, syncErr := manager.PerformSync(context.Background(), syncConfig(100))

	require.Nil(t, syncErr)
	assert.Equal(t, 1, result.Created)
	assert.Equal(t, 3, result.Failed)
	assert.Equal(t, 1, result.EvictFailed)
	require.Len(t, result.Errors, 4)

	assert.Equal(t, OpCreate, result.Errors[0].Op)
	assert.ErrorIs(t, &result.Errors[0], catalog.ErrDuplicateSKU)
	assert.Equal(t, OpUpdate, result.Errors[1].Op)
	assert.ErrorIs(t, &result.Errors[1], catalog.ErrNotFound)
	assert.Equal(t, OpLookup, result.Errors[2].Op)
	assert.Equal(t, OpDelete, result.Errors[3].Op)
	assert.Equal(t, "old", result.Errors[3].ID)
}

func TestPerformSync_NothingStoredSkipsEviction(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		result *feed.FetchResult
	}{
		{name: "empty feed", result: &feed.FetchResult{}},
		{name: "only malformed records", result: &feed.FetchResult{
			Skipped: []feed.SkippedRecord{{Index: 0, Reason: "missing sku"}},
			Total:   1,
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			clock := newTestClock()
			store := newStore(t, clock)
			seed(t, store, clock, 5*time.Hour, "OLD")

			feedClient := feedmocks.NewMockClient(ctrl)
			feedClient.EXPECT().Fetch(gomock.Any(), testFeedURL, 100).Return(tt.result, nil)

			manager := NewDefaultSyncManager(feedClient, store, WithClock(clock.Now))
			result, syncErr := manager.PerformSync(context.Background(), syncConfig(100))

			require.Nil(t, syncErr)
			assert.True(t, result.EvictionSkipped)
			assert.Equal(t, 1, store.Len())
		})
	}
}

func TestPerformSync_AllUpsertsFailSkipsEviction(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	feedClient := feedmocks.NewMockClient(ctrl)
	repo := catalogmocks.NewMockRepository(ctrl)

	feedClient.EXPECT().Fetch(gomock.Any(), testFeedURL, 100).Return(fetched(rec("A", "a", "1")), nil)
	repo.EXPECT().FindBySKU(gomock.Any(), "A").Return(nil, errors.New("timeout"))

	manager := NewDefaultSyncManager(feedClient, repo)
	result, syncErr := manager.PerformSync(context.Background(), syncConfig(100))

	require.Nil(t, syncErr)
	assert.True(t, result.EvictionSkipped)
	assert.Equal(t, 1, result.Failed)
}

func TestPerformSync_CancellationBetweenRecords(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	clock := newTestClock()
	store := newStore(t, clock)
	seed(t, store, clock, 5*time.Hour, "OLD")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var writes int
	var inFlightErr error
	repo := &hookRepo{Repository: store}
	repo.afterWriteCtx = func(opCtx context.Context) {
		writes++
		if writes == 2 {
			cancel()
			inFlightErr = opCtx.Err()
		}
	}

	feedClient := feedmocks.NewMockClient(ctrl)
	feedClient.EXPECT().Fetch(gomock.Any(), testFeedURL, 100).
		Return(fetched(rec("A", "a", "1"), rec("B", "b", "1"), rec("C", "c", "1"), rec("D", "d", "1")), nil)

	manager := NewDefaultSyncManager(feedClient, repo, WithClock(clock.Now))
	result, syncErr := manager.PerformSync(ctx, syncConfig(100))

	require.NotNil(t, syncErr)
	assert.Equal(t, ReasonInterrupted, syncErr.ConditionReason)
	assert.ErrorIs(t, syncErr, context.Canceled)
	assert.True(t, result.Interrupted)
	assert.True(t, result.EvictionSkipped)
	assert.Equal(t, 2, result.Created, "the in-flight write completes and no further record starts")
	assert.NoError(t, inFlightErr, "in-flight catalog calls are not cancelled")

	_, err := store.FindBySKU(context.Background(), "OLD")
	assert.NoError(t, err, "a cancelled cycle never evicts")
	assert.Equal(t, 3, store.Len())
}

func TestPerformSync_EvictionListingFails(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	feedClient := feedmocks.NewMockClient(ctrl)
	repo := catalogmocks.NewMockRepository(ctrl)

	feedClient.EXPECT().Fetch(gomock.Any(), testFeedURL, 100).Return(fetched(rec("A", "a", "1")), nil)
	repo.EXPECT().FindBySKU(gomock.Any(), "A").Return(nil, catalog.ErrNotFound)
	repo.EXPECT().Create(gomock.Any(), "A", gomock.Any()).Return(&catalog.Entry{ID: "1", SKU: "A"}, nil)
	repo.EXPECT().ListAll(gomock.Any()).Return(nil, errors.New("too many connections"))

	manager := NewDefaultSyncManager(feedClient, repo)
	result, syncErr := manager.PerformSync(context.Background(), syncConfig(100))

	require.NotNil(t, syncErr)
	assert.Equal(t, ReasonEvictionFailed, syncErr.ConditionReason)
	assert.Equal(t, 1, result.Created, "upsert results survive an eviction failure")
	assert.False(t, result.FinishedAt.IsZero())
}

func TestPerformSync_CatalogClockFailure(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	feedClient := feedmocks.NewMockClient(ctrl)
	repo := &clockRepo{
		MockRepository: catalogmocks.NewMockRepository(ctrl),
		err:            errors.New("db down"),
	}

	manager := NewDefaultSyncManager(feedClient, repo)
	result, syncErr := manager.PerformSync(context.Background(), syncConfig(100))

	require.NotNil(t, syncErr)
	assert.Equal(t, ReasonCatalogUnavailable, syncErr.ConditionReason)
	assert.True(t, result.EvictionSkipped)
}

func TestPerformSync_ReportsPhases(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	clock := newTestClock()
	store := newStore(t, clock)
	feedClient := feedmocks.NewMockClient(ctrl)
	feedClient.EXPECT().Fetch(gomock.Any(), testFeedURL, 100).Return(fetched(rec("A", "a", "1")), nil)

	var phases []Phase
	manager := NewDefaultSyncManager(feedClient, store,
		WithClock(clock.Now),
		WithPhaseObserver(func(p Phase) { phases = append(phases, p) }),
	)
	_, syncErr := manager.PerformSync(context.Background(), syncConfig(100))

	require.Nil(t, syncErr)
	assert.Equal(t, []Phase{PhaseFetching, PhaseUpserting, PhaseEvicting, PhaseIdle}, phases)
}

func TestPerformSync_DuplicateSKUInFeedLastWins(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	clock := newTestClock()
	store := newStore(t, clock)
	feedClient := feedmocks.NewMockClient(ctrl)
	feedClient.EXPECT().Fetch(gomock.Any(), testFeedURL, 100).
		Return(fetched(rec("A", "first", "1"), rec("A", "second", "2")), nil)

	manager := NewDefaultSyncManager(feedClient, store, WithClock(clock.Now))
	result, syncErr := manager.PerformSync(context.Background(), syncConfig(100))

	require.Nil(t, syncErr)
	assert.Equal(t, 1, result.Created)
	assert.Equal(t, 1, result.Updated)

	entry, err := store.FindBySKU(context.Background(), "A")
	require.NoError(t, err)
	assert.Equal(t, "second", entry.Name)
}

// hookRepo calls back after every successful create or update
type hookRepo struct {
	catalog.Repository
	afterWrite    func()
	afterWriteCtx func(context.Context)
}

func (h *hookRepo) Create(ctx context.Context, sku string, attrs product.Attributes) (*catalog.Entry, error) {
	e, err := h.Repository.Create(ctx, sku, attrs)
	h.hook(ctx)
	return e, err
}

func (h *hookRepo) Update(ctx context.Context, id string, attrs product.Attributes) (*catalog.Entry, error) {
	e, err := h.Repository.Update(ctx, id, attrs)
	h.hook(ctx)
	return e, err
}

func (h *hookRepo) hook(ctx context.Context) {
	if h.afterWrite != nil {
		h.afterWrite()
	}
	if h.afterWriteCtx != nil {
		h.afterWriteCtx(ctx)
	}
}

// clockRepo is a repository whose clock fails
type clockRepo struct {
	*catalogmocks.MockRepository
	err error
}

func (c *clockRepo) Now(context.Context) (time.Time, error) {
	return time.Time{}, c.err
}

func TestPerformSync_FilterExcludesRecords(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	clock := newTestClock()
	store := newStore(t, clock)
	seed(t, store, clock, 2*time.Hour, "BAG-OLD")

	soldOut := rec("SHOE-2", "Boot", "80")
	soldOut.StockStatus = product.StockOutOfStock

	feedClient := feedmocks.NewMockClient(ctrl)
	feedClient.EXPECT().Fetch(gomock.Any(), testFeedURL, 100).Return(
		fetched(rec("SHOE-1", "Sneaker", "60"), soldOut, rec("HAT-1", "Cap", "12")), nil)

	cfg := syncConfig(100)
	cfg.Filter = &config.FilterConfig{
		SKU:   &config.IncludeExclude{Include: []string{"SHOE-*"}},
		Stock: &config.IncludeExclude{Exclude: []string{"outofstock"}},
	}

	manager := NewDefaultSyncManager(feedClient, store, WithClock(clock.Now))
	result, syncErr := manager.PerformSync(context.Background(), cfg)

	require.Nil(t, syncErr)
	assert.Equal(t, 3, result.Fetched)
	assert.Equal(t, 2, result.Filtered)
	assert.Equal(t, 1, result.Created)
	assert.Equal(t, 1, result.Evicted)
	assert.Empty(t, result.Errors)

	entries, err := store.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "SHOE-1", entries[0].SKU)
}

func TestPerformSync_EverythingFilteredSkipsEviction(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	clock := newTestClock()
	store := newStore(t, clock)
	seed(t, store, clock, 2*time.Hour, "OLD")

	feedClient := feedmocks.NewMockClient(ctrl)
	feedClient.EXPECT().Fetch(gomock.Any(), testFeedURL, 100).Return(fetched(rec("A", "a", "1")), nil)

	cfg := syncConfig(100)
	cfg.Filter = &config.FilterConfig{SKU: &config.IncludeExclude{Exclude: []string{"*"}}}

	manager := NewDefaultSyncManager(feedClient, store, WithClock(clock.Now))
	result, syncErr := manager.PerformSync(context.Background(), cfg)

	require.Nil(t, syncErr)
	assert.Equal(t, 1, result.Filtered)
	assert.True(t, result.EvictionSkipped)
	assert.Equal(t, 1, store.Len())
}
