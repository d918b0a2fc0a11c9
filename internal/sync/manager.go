package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/webspark/catalog-sync/internal/catalog"
	"github.com/webspark/catalog-sync/internal/config"
	"github.com/webspark/catalog-sync/internal/feed"
	"github.com/webspark/catalog-sync/internal/filtering"
	"github.com/webspark/catalog-sync/internal/otel"
)

// Manager runs sync cycles
//
//go:generate mockgen -destination=mocks/mock_manager.go -package=mocks github.com/webspark/catalog-sync/internal/sync Manager
type Manager interface {
	// PerformSync runs one cycle with the given configuration snapshot.
	// The Result is never nil, even when an *Error is returned.
	PerformSync(ctx context.Context, cfg *config.SyncConfig) (*Result, *Error)
}

// PhaseObserver is notified whenever a cycle moves to another phase
type PhaseObserver func(Phase)

// Option configures the default Manager
type Option func(*defaultSyncManager)

// WithPhaseObserver registers a phase observer
func WithPhaseObserver(observer PhaseObserver) Option {
	return func(s *defaultSyncManager) {
		s.observer = observer
	}
}

// WithTracer enables cycle spans
func WithTracer(tracer trace.Tracer) Option {
	return func(s *defaultSyncManager) {
		s.tracer = tracer
	}
}

// WithFilterService replaces the default SKU and stock filters
func WithFilterService(fs filtering.FilterService) Option {
	return func(s *defaultSyncManager) {
		s.filter = fs
	}
}

// WithClock replaces time.Now for cycle timestamps and for catalogs without a clock
func WithClock(now func() time.Time) Option {
	return func(s *defaultSyncManager) {
		s.now = now
	}
}

// defaultSyncManager is the default implementation of Manager
type defaultSyncManager struct {
	feedClient feed.Client
	repo       catalog.Repository
	filter     filtering.FilterService
	observer   PhaseObserver
	tracer     trace.Tracer
	now        func() time.Time
}

// NewDefaultSyncManager creates a Manager reading from feedClient and writing to repo
func NewDefaultSyncManager(feedClient feed.Client, repo catalog.Repository, opts ...Option) Manager {
	s := &defaultSyncManager{
		feedClient: feedClient,
		repo:       repo,
		filter:     filtering.NewDefaultFilterService(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PerformSync implements Manager
func (s *defaultSyncManager) PerformSync(ctx context.Context, cfg *config.SyncConfig) (*Result, *Error) {
	result := &Result{StartedAt: s.now()}

	ctx, span := otel.StartSpan(ctx, s.tracer, "sync.PerformSync",
		trace.WithAttributes(
			otel.AttrFeedURL.String(cfg.FeedURL),
			otel.AttrMaxRecords.Int(cfg.MaxRecords),
		),
	)

	syncErr := s.run(ctx, cfg, result)

	result.FinishedAt = s.now()
	s.setPhase(PhaseIdle)

	span.SetAttributes(
		otel.AttrCreated.Int(result.Created),
		otel.AttrUpdated.Int(result.Updated),
		otel.AttrFailed.Int(result.Failed),
		otel.AttrSkipped.Int(result.Skipped),
		otel.AttrEvicted.Int(result.Evicted),
		otel.AttrInterrupted.Bool(result.Interrupted),
	)
	if syncErr != nil {
		otel.RecordError(span, syncErr)
	}
	span.End()

	return result, syncErr
}

func (s *defaultSyncManager) run(ctx context.Context, cfg *config.SyncConfig, result *Result) *Error {
	// Entries written during this cycle carry timestamps at or after cycleStart.
	cycleStart, err := catalog.Now(ctx, s.repo, s.now)
	if err != nil {
		slog.ErrorContext(ctx, "Catalog clock unavailable", "error", err)
		result.EvictionSkipped = true
		return &Error{
			Err:             err,
			Message:         fmt.Sprintf("Catalog unavailable: %v", err),
			ConditionType:   ConditionCatalogAvailable,
			ConditionReason: ReasonCatalogUnavailable,
		}
	}

	fetched, syncErr := s.fetch(ctx, cfg, result)
	if syncErr != nil {
		result.EvictionSkipped = true
		return syncErr
	}

	records, excluded := s.filter.ApplyFilters(ctx, fetched.Records, cfg.Filter)
	result.Filtered = len(excluded)

	s.setPhase(PhaseUpserting)
	s.upsertAll(ctx, records, result)

	if result.Interrupted {
		result.EvictionSkipped = true
		slog.WarnContext(ctx, "Sync interrupted during upsert, eviction skipped",
			"created", result.Created,
			"updated", result.Updated,
			"remaining", result.Fetched-result.Filtered-result.Upserted()-result.Failed)
		return interruptedError(ctx, "Sync interrupted before all records were processed")
	}

	if result.Upserted() == 0 {
		result.EvictionSkipped = true
		slog.InfoContext(ctx, "No records stored, eviction skipped",
			"fetched", result.Fetched,
			"skipped", result.Skipped,
			"filtered", result.Filtered,
			"failed", result.Failed)
		return nil
	}

	s.setPhase(PhaseEvicting)
	return s.evict(ctx, cfg.Interval(), cycleStart, result)
}

func (s *defaultSyncManager) fetch(ctx context.Context, cfg *config.SyncConfig, result *Result) (*feed.FetchResult, *Error) {
	s.setPhase(PhaseFetching)

	fetchCtx := ctx
	if cfg.FetchTimeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, cfg.FetchTimeout)
		defer cancel()
	}

	fetched, err := s.feedClient.Fetch(fetchCtx, cfg.FeedURL, cfg.MaxRecords)
	if err != nil {
		var parseErr *feed.ParseError
		if errors.As(err, &parseErr) {
			slog.ErrorContext(ctx, "Feed payload is malformed", "url", cfg.FeedURL, "error", err)
			return nil, &Error{
				Err:             err,
				Message:         fmt.Sprintf("Parse failed: %v", err),
				ConditionType:   ConditionSourceAvailable,
				ConditionReason: ReasonParseFailed,
			}
		}
		slog.ErrorContext(ctx, "Fetch operation failed", "url", cfg.FeedURL, "error", err)
		return nil, &Error{
			Err:             err,
			Message:         fmt.Sprintf("Fetch failed: %v", err),
			ConditionType:   ConditionSourceAvailable,
			ConditionReason: ReasonFetchFailed,
		}
	}

	result.Hash = fetched.Hash
	result.Total = fetched.Total
	result.Fetched = len(fetched.Records)
	result.Skipped = len(fetched.Skipped)
	for _, sk := range fetched.Skipped {
		result.Errors = append(result.Errors, RecordError{
			Index: sk.Index,
			SKU:   sk.SKU,
			Op:    OpParse,
			Err:   errors.New(sk.Reason),
		})
	}

	slog.InfoContext(ctx, "Feed fetched",
		"url", cfg.FeedURL,
		"total", fetched.Total,
		"records", result.Fetched,
		"skipped", result.Skipped,
		"hash", fetched.Hash)

	return fetched, nil
}

// upsertAll writes records in feed order. It stops early, setting
// result.Interrupted, when ctx is cancelled.
func (s *defaultSyncManager) upsertAll(ctx context.Context, records []feed.Record, result *Result) {
	for i, rec := range records {
		if ctx.Err() != nil {
			result.Interrupted = true
			return
		}

		created, op, err := s.upsert(ctx, rec)
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, RecordError{Index: i, SKU: rec.SKU, Op: op, Err: err})
			slog.WarnContext(ctx, "Failed to store product", "sku", rec.SKU, "op", op, "error", err)
			continue
		}
		if created {
			result.Created++
		} else {
			result.Updated++
		}
	}
}

// upsert matches rec by SKU and updates or creates it. The catalog calls run
// detached from ctx cancellation so a started write is never cut in half.
func (s *defaultSyncManager) upsert(ctx context.Context, rec feed.Record) (created bool, op Op, err error) {
	opCtx := context.WithoutCancel(ctx)

	existing, err := s.repo.FindBySKU(opCtx, rec.SKU)
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		if _, err := s.repo.Create(opCtx, rec.SKU, rec.Attributes); err != nil {
			return false, OpCreate, err
		}
		return true, OpCreate, nil
	case err != nil:
		return false, OpLookup, err
	}

	if _, err := s.repo.Update(opCtx, existing.ID, rec.Attributes); err != nil {
		return false, OpUpdate, err
	}
	return false, OpUpdate, nil
}

// evict deletes entries whose LastModified is before the cutoff. The cutoff
// is one interval before now, but never later than the cycle start, so an
// entry refreshed by this cycle survives even when the cycle outlasts the
// interval.
func (s *defaultSyncManager) evict(
	ctx context.Context, interval time.Duration, cycleStart time.Time, result *Result,
) *Error {
	if ctx.Err() != nil {
		result.Interrupted = true
		result.EvictionSkipped = true
		return interruptedError(ctx, "Sync interrupted before eviction")
	}

	now, err := catalog.Now(ctx, s.repo, s.now)
	if err != nil {
		return evictionError(ctx, err)
	}
	cutoff := now.Add(-interval)
	if cycleStart.Before(cutoff) {
		cutoff = cycleStart
	}
	result.EvictCutoff = cutoff

	stale, err := catalog.ListStale(ctx, s.repo, cutoff)
	if err != nil {
		return evictionError(ctx, err)
	}

	for _, e := range stale {
		if ctx.Err() != nil {
			result.Interrupted = true
			break
		}
		if err := s.repo.Delete(context.WithoutCancel(ctx), e.ID); err != nil {
			result.EvictFailed++
			result.Errors = append(result.Errors, RecordError{Index: -1, SKU: e.SKU, ID: e.ID, Op: OpDelete, Err: err})
			slog.WarnContext(ctx, "Failed to evict product", "sku", e.SKU, "id", e.ID, "error", err)
			continue
		}
		result.Evicted++
	}

	slog.InfoContext(ctx, "Eviction finished",
		"cutoff", cutoff,
		"stale", len(stale),
		"evicted", result.Evicted,
		"failed", result.EvictFailed)

	if result.Interrupted {
		return interruptedError(ctx, "Sync interrupted during eviction")
	}
	return nil
}

func interruptedError(ctx context.Context, msg string) *Error {
	return &Error{
		Err:             ctx.Err(),
		Message:         msg,
		ConditionType:   ConditionSyncSuccessful,
		ConditionReason: ReasonInterrupted,
	}
}

func evictionError(ctx context.Context, err error) *Error {
	slog.ErrorContext(ctx, "Eviction failed", "error", err)
	return &Error{
		Err:             err,
		Message:         fmt.Sprintf("Eviction failed: %v", err),
		ConditionType:   ConditionSyncSuccessful,
		ConditionReason: ReasonEvictionFailed,
	}
}

func (s *defaultSyncManager) setPhase(p Phase) {
	if s.observer != nil {
		s.observer(p)
	}
}
