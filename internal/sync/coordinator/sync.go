package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	gosync "sync"

	"github.com/webspark/catalog-sync/internal/config"
	"github.com/webspark/catalog-sync/internal/status"
	pkgsync "github.com/webspark/catalog-sync/internal/sync"
	"github.com/webspark/catalog-sync/internal/telemetry"
)

// ReasonInvalidConfiguration is reported when the sync options do not validate
const ReasonInvalidConfiguration = "InvalidConfiguration"

// PhaseTracker remembers the phase of the running cycle. Its Observe method
// is meant to be passed to sync.WithPhaseObserver.
type PhaseTracker struct {
	mu    gosync.RWMutex
	phase pkgsync.Phase
}

// NewPhaseTracker creates an idle tracker
func NewPhaseTracker() *PhaseTracker {
	return &PhaseTracker{phase: pkgsync.PhaseIdle}
}

// Observe records the phase
func (p *PhaseTracker) Observe(phase pkgsync.Phase) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.phase = phase
}

// Current returns the last observed phase
func (p *PhaseTracker) Current() pkgsync.Phase {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.phase
}

// performSync runs one cycle and persists its outcome. The caller holds the run lock.
func (c *defaultCoordinator) performSync(ctx context.Context) (*pkgsync.Result, *pkgsync.Error) {
	syncStatus, err := c.persistence.LoadStatus(ctx, c.job)
	if err != nil {
		slog.WarnContext(ctx, "Failed to load previous sync status", "job", c.job, "error", err)
		syncStatus = &status.SyncStatus{}
	}

	// Persist a failure unless the cycle gets far enough to replace it
	final := *syncStatus
	final.Phase = status.SyncPhaseFailed
	final.Message = fmt.Sprintf("Unexpected failure while syncing job %s", c.job)
	defer func() {
		// Saved even when the cycle was interrupted by shutdown
		if err := c.persistence.SaveStatus(context.WithoutCancel(ctx), c.job, &final); err != nil {
			slog.ErrorContext(ctx, "Error updating sync status", "job", c.job, "error", err)
		}
	}()

	now := c.now()
	syncStatus.Phase = status.SyncPhaseSyncing
	syncStatus.CyclePhase = ""
	syncStatus.Message = "Sync in progress"
	syncStatus.ConditionReason = ""
	syncStatus.LastAttempt = &now
	syncStatus.AttemptCount++
	if err := c.persistence.SaveStatus(ctx, c.job, syncStatus); err != nil {
		slog.WarnContext(ctx, "Failed to persist syncing status", "job", c.job, "error", err)
	}
	final = *syncStatus
	final.Phase = status.SyncPhaseFailed

	syncCfg, err := config.ResolveSyncConfig(c.config, c.overrides)
	if err != nil {
		final.Message = fmt.Sprintf("Invalid sync configuration: %v", err)
		final.ConditionReason = ReasonInvalidConfiguration
		slog.ErrorContext(ctx, "Sync skipped, invalid configuration", "job", c.job, "error", err)
		c.syncMetrics.RecordCycleDuration(ctx, c.job, 0, ReasonInvalidConfiguration)
		return &pkgsync.Result{}, &pkgsync.Error{
			Err:             err,
			Message:         final.Message,
			ConditionType:   pkgsync.ConditionSyncSuccessful,
			ConditionReason: ReasonInvalidConfiguration,
		}
	}

	slog.InfoContext(ctx, "Starting sync operation",
		"job", c.job,
		"attempt", syncStatus.AttemptCount,
		"feed_url", syncCfg.FeedURL,
		"max_records", syncCfg.MaxRecords,
		"interval_minutes", syncCfg.IntervalMinutes)

	result, syncErr := c.manager.PerformSync(ctx, syncCfg)
	if result == nil {
		result = &pkgsync.Result{}
	}

	applyResult(&final, result, syncCfg)
	c.recordMetrics(ctx, result, syncErr)

	if syncErr != nil {
		final.Message = syncErr.Message
		final.ConditionReason = syncErr.ConditionReason
		slog.ErrorContext(ctx, "Sync failed",
			"job", c.job,
			"reason", syncErr.ConditionReason,
			"error", syncErr.Message)
		return result, syncErr
	}

	finished := result.FinishedAt
	if finished.IsZero() {
		finished = c.now()
	}
	final.Phase = status.SyncPhaseComplete
	final.Message = summary(result)
	final.LastSyncTime = &finished
	final.LastSyncHash = result.Hash
	final.AttemptCount = 0

	hashPreview := result.Hash
	if len(hashPreview) > 8 {
		hashPreview = hashPreview[:8]
	}
	slog.InfoContext(ctx, "Sync completed successfully",
		"job", c.job,
		"created", result.Created,
		"updated", result.Updated,
		"failed", result.Failed,
		"skipped", result.Skipped,
		"filtered", result.Filtered,
		"evicted", result.Evicted,
		"eviction_skipped", result.EvictionSkipped,
		"hash", hashPreview,
		"duration", result.Duration().String())

	return result, nil
}

// applyResult copies the cycle counts into the status
func applyResult(s *status.SyncStatus, result *pkgsync.Result, syncCfg *config.SyncConfig) {
	s.CyclePhase = ""
	s.IntervalMinutes = syncCfg.IntervalMinutes
	s.LastDuration = result.Duration().String()
	s.Counts = status.Counts{
		Total:           result.Total,
		Fetched:         result.Fetched,
		Skipped:         result.Skipped,
		Filtered:        result.Filtered,
		Created:         result.Created,
		Updated:         result.Updated,
		Failed:          result.Failed,
		Evicted:         result.Evicted,
		EvictFailed:     result.EvictFailed,
		EvictionSkipped: result.EvictionSkipped,
		Interrupted:     result.Interrupted,
	}

	s.RecordErrors = nil
	for i := range result.Errors {
		if len(s.RecordErrors) == status.MaxRecordErrors {
			s.RecordErrors = append(s.RecordErrors,
				fmt.Sprintf("... and %d more", len(result.Errors)-status.MaxRecordErrors))
			break
		}
		s.RecordErrors = append(s.RecordErrors, result.Errors[i].Error())
	}
}

func summary(result *pkgsync.Result) string {
	msg := fmt.Sprintf("Synced %d of %d records (%d created, %d updated, %d failed, %d skipped)",
		result.Upserted(), result.Fetched+result.Skipped, result.Created, result.Updated, result.Failed, result.Skipped)
	if result.Filtered > 0 {
		msg = fmt.Sprintf("%s, %d filtered", msg, result.Filtered)
	}
	if result.EvictionSkipped {
		return msg + ", eviction skipped"
	}
	return fmt.Sprintf("%s, %d evicted", msg, result.Evicted)
}

func (c *defaultCoordinator) recordMetrics(ctx context.Context, result *pkgsync.Result, syncErr *pkgsync.Error) {
	reason := ""
	if syncErr != nil {
		reason = syncErr.ConditionReason
	}
	c.syncMetrics.RecordCycleDuration(ctx, c.job, result.Duration(), reason)
	c.syncMetrics.RecordRecords(ctx, c.job, telemetry.OutcomeCreated, result.Created)
	c.syncMetrics.RecordRecords(ctx, c.job, telemetry.OutcomeUpdated, result.Updated)
	c.syncMetrics.RecordRecords(ctx, c.job, telemetry.OutcomeFailed, result.Failed)
	c.syncMetrics.RecordRecords(ctx, c.job, telemetry.OutcomeSkipped, result.Skipped)
	c.syncMetrics.RecordRecords(ctx, c.job, telemetry.OutcomeFiltered, result.Filtered)
	c.syncMetrics.RecordEvictions(ctx, c.job, result.Evicted)

	if reason != pkgsync.ReasonFetchFailed && reason != pkgsync.ReasonParseFailed {
		c.syncMetrics.RecordFeedSize(ctx, c.job, result.Fetched)
	}
}
