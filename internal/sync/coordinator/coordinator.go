package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	gosync "sync"
	"time"

	"github.com/webspark/catalog-sync/internal/config"
	"github.com/webspark/catalog-sync/internal/scheduler"
	"github.com/webspark/catalog-sync/internal/status"
	pkgsync "github.com/webspark/catalog-sync/internal/sync"
	"github.com/webspark/catalog-sync/internal/telemetry"
)

//go:generate mockgen -destination=mocks/mock_coordinator.go -package=mocks -source=coordinator.go Coordinator

// Coordinator runs the sync job whenever its trigger is due
type Coordinator interface {
	// Start polls the trigger store and runs due cycles.
	// Blocks until the context is cancelled or Stop is called.
	Start(ctx context.Context) error

	// Stop gracefully stops the coordinator. An in-flight cycle finishes the
	// record it is on and then returns.
	Stop() error

	// RunNow performs one cycle immediately
	RunNow(ctx context.Context) (*pkgsync.Result, error)

	// RunAsync takes the run lock and performs one cycle in the background.
	// It returns ErrAlreadyRunning right away when a cycle is in flight.
	RunAsync(ctx context.Context) error

	// Status returns the last persisted status, with the live cycle phase
	// while a cycle is running
	Status(ctx context.Context) (*status.SyncStatus, error)
}

// defaultCoordinator is the default implementation of Coordinator
type defaultCoordinator struct {
	manager     pkgsync.Manager
	triggers    scheduler.Store
	persistence status.StatusPersistence
	config      *config.Config
	overrides   config.Store

	job          string
	pollInterval time.Duration
	lockDir      string
	lock         *runLock
	phases       *PhaseTracker
	now          func() time.Time

	// Lifecycle management
	mu         gosync.Mutex
	cancelFunc context.CancelFunc
	done       chan struct{}
	background context.Context
	stopAll    context.CancelFunc
	inflight   gosync.WaitGroup

	syncMetrics *telemetry.SyncMetrics
}

// Option is a function that configures the coordinator
type Option func(*defaultCoordinator)

// WithSyncMetrics sets the sync metrics for the coordinator
func WithSyncMetrics(metrics *telemetry.SyncMetrics) Option {
	return func(c *defaultCoordinator) {
		c.syncMetrics = metrics
	}
}

// WithOverrides sets the key-value store read on top of the file
// configuration at the start of every cycle
func WithOverrides(store config.Store) Option {
	return func(c *defaultCoordinator) {
		c.overrides = store
	}
}

// WithLockDir enables the cross-process run lock in dir
func WithLockDir(dir string) Option {
	return func(c *defaultCoordinator) {
		c.lockDir = dir
	}
}

// WithPhaseTracker reports the live cycle phase in Status
func WithPhaseTracker(tracker *PhaseTracker) Option {
	return func(c *defaultCoordinator) {
		c.phases = tracker
	}
}

// WithPollInterval overrides the configured poll interval
func WithPollInterval(d time.Duration) Option {
	return func(c *defaultCoordinator) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

// WithClock overrides the time source used for trigger decisions
func WithClock(now func() time.Time) Option {
	return func(c *defaultCoordinator) {
		c.now = now
	}
}

// New creates a new coordinator with injected dependencies
func New(
	manager pkgsync.Manager,
	triggers scheduler.Store,
	persistence status.StatusPersistence,
	cfg *config.Config,
	opts ...Option,
) (Coordinator, error) {
	if cfg == nil {
		cfg = &config.Config{}
	}

	c := &defaultCoordinator{
		manager:      manager,
		triggers:     triggers,
		persistence:  persistence,
		config:       cfg,
		job:          cfg.GetJobName(),
		pollInterval: cfg.GetPollInterval(),
		now:          time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	lock, err := newRunLock(c.lockDir, c.job)
	if err != nil {
		return nil, err
	}
	c.lock = lock
	c.background, c.stopAll = context.WithCancel(context.Background())

	return c, nil
}

// Start begins polling for due triggers
func (c *defaultCoordinator) Start(ctx context.Context) error {
	coordCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	c.mu.Lock()
	if c.cancelFunc != nil {
		c.mu.Unlock()
		cancel()
		return fmt.Errorf("coordinator already started")
	}
	c.cancelFunc = cancel
	c.done = done
	c.mu.Unlock()

	defer func() {
		close(done)
		slog.Info("Background sync coordinator shutting down", "job", c.job)
	}()

	interval := pollingInterval(c.pollInterval)
	slog.Info("Starting background sync coordinator",
		"job", c.job,
		"base_interval", c.pollInterval,
		"actual_interval", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Check right away so an overdue trigger does not wait a full poll
	c.processDueTrigger(coordCtx)

	for {
		select {
		case <-ticker.C:
			c.processDueTrigger(coordCtx)

			// Recalculate interval with new jitter for next iteration
			ticker.Reset(pollingInterval(c.pollInterval))
		case <-coordCtx.Done():
			slog.Info("Sync coordinator stopping", "job", c.job)
			return nil
		}
	}
}

// Stop gracefully stops the coordinator and waits for background cycles
func (c *defaultCoordinator) Stop() error {
	c.mu.Lock()
	cancel, done := c.cancelFunc, c.done
	c.mu.Unlock()

	if cancel != nil {
		slog.Info("Stopping sync coordinator", "job", c.job)
		cancel()
		<-done
	}
	c.stopAll()
	c.inflight.Wait()
	return nil
}

// RunNow performs one cycle under the run lock
func (c *defaultCoordinator) RunNow(ctx context.Context) (*pkgsync.Result, error) {
	if err := c.lock.tryLock(); err != nil {
		return nil, err
	}
	defer c.lock.unlock()

	result, syncErr := c.performSync(ctx)
	if syncErr != nil {
		return result, syncErr
	}
	return result, nil
}

// RunAsync implements Coordinator. The cycle outlives ctx and is cancelled by Stop.
func (c *defaultCoordinator) RunAsync(ctx context.Context) error {
	if c.background.Err() != nil {
		return fmt.Errorf("coordinator stopped")
	}
	if err := c.lock.tryLock(); err != nil {
		return err
	}

	slog.InfoContext(ctx, "Sync requested", "job", c.job)
	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()
		defer c.lock.unlock()

		if _, syncErr := c.performSync(c.background); syncErr != nil {
			slog.WarnContext(c.background, "Requested sync failed", "job", c.job, "reason", syncErr.ConditionReason)
		}
	}()
	return nil
}

// Status implements Coordinator
func (c *defaultCoordinator) Status(ctx context.Context) (*status.SyncStatus, error) {
	s, err := c.persistence.LoadStatus(ctx, c.job)
	if err != nil {
		return nil, err
	}
	if s.Phase == status.SyncPhaseSyncing && c.phases != nil {
		s.CyclePhase = string(c.phases.Current())
	}
	return s, nil
}

// processDueTrigger runs one cycle if the job's earliest trigger is due
func (c *defaultCoordinator) processDueTrigger(ctx context.Context) {
	triggers, err := c.triggers.List(ctx, c.job)
	if err != nil {
		slog.ErrorContext(ctx, "Error loading triggers", "job", c.job, "error", err)
		return
	}
	if len(triggers) == 0 {
		slog.DebugContext(ctx, "Sync job is not activated", "job", c.job)
		return
	}

	now := c.now()
	if !triggers[0].Due(now) {
		slog.DebugContext(ctx, "Sync job not due yet", "job", c.job, "next_run", triggers[0].NextRun)
		return
	}

	c.periodDrifted(ctx, triggers[0])

	// Triggers only move when a cycle actually ran
	_, err = c.RunNow(ctx)
	switch {
	case errors.Is(err, ErrAlreadyRunning):
		slog.InfoContext(ctx, "Skipping due trigger, a cycle is already running", "job", c.job)
		return
	case errors.Is(err, ErrLockUnavailable):
		slog.ErrorContext(ctx, "Skipping due trigger, run lock unavailable", "job", c.job, "error", err)
		return
	}

	// The cycle's own outcome is in the status; the trigger moves on regardless
	c.advance(ctx, triggers)
}

// periodDrifted reports whether the trigger was registered with another
// period than the configured interval. Eviction always uses the configured
// interval; the trigger keeps its period until the job is re-activated.
func (c *defaultCoordinator) periodDrifted(ctx context.Context, t scheduler.Trigger) bool {
	syncCfg, err := config.ResolveSyncConfig(c.config, c.overrides)
	if err != nil || syncCfg.Interval() == t.Period {
		return false
	}
	slog.WarnContext(ctx, "Trigger period differs from the configured interval, re-activate the job to apply it",
		"job", c.job,
		"trigger_period", t.Period,
		"interval", syncCfg.Interval())
	return true
}

// advance moves every due trigger to its first boundary after now
func (c *defaultCoordinator) advance(ctx context.Context, triggers []scheduler.Trigger) {
	now := c.now()
	for _, t := range triggers {
		if !t.Due(now) {
			continue
		}
		next := t.Following(now)
		if err := c.triggers.Reschedule(ctx, t.ID, next); err != nil {
			if errors.Is(err, scheduler.ErrTriggerNotFound) {
				// Deactivated while the cycle ran
				continue
			}
			slog.ErrorContext(ctx, "Error rescheduling trigger", "job", c.job, "trigger", t.ID, "error", err)
			continue
		}
		slog.DebugContext(ctx, "Trigger rescheduled", "job", c.job, "trigger", t.ID, "next_run", next)
	}
}
