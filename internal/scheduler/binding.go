package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// ErrCatalogUnavailable is returned by Activate when the product catalog
// does not answer. Activation must not proceed without it.
var ErrCatalogUnavailable = errors.New("product catalog is unavailable")

const (
	defaultProbeAttempts = 3
	defaultProbeInterval = 500 * time.Millisecond

	// maxDeactivateRounds stops Deactivate from spinning on a store that never empties
	maxDeactivateRounds = 10000
)

// Pinger checks that a dependency is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// Binding registers and removes the recurring trigger of one job
type Binding struct {
	name          string
	store         Store
	catalog       Pinger
	now           func() time.Time
	probeAttempts uint
	probeInterval time.Duration

	// serializes Activate within the process; the store guards across processes
	mu sync.Mutex
}

// BindingOption configures a Binding
type BindingOption func(*Binding)

// WithClock overrides the time source
func WithClock(now func() time.Time) BindingOption {
	return func(b *Binding) {
		b.now = now
	}
}

// WithProbe sets how often and how fast the catalog is probed on activation
func WithProbe(attempts uint, interval time.Duration) BindingOption {
	return func(b *Binding) {
		if attempts > 0 {
			b.probeAttempts = attempts
		}
		if interval > 0 {
			b.probeInterval = interval
		}
	}
}

// NewBinding creates a Binding for the job called name
func NewBinding(name string, store Store, catalog Pinger, opts ...BindingOption) *Binding {
	b := &Binding{
		name:          name,
		store:         store,
		catalog:       catalog,
		now:           time.Now,
		probeAttempts: defaultProbeAttempts,
		probeInterval: defaultProbeInterval,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Name returns the job name
func (b *Binding) Name() string {
	return b.name
}

// Activate registers the recurring trigger with the given interval. The first
// run is aligned to the interval boundary and therefore due at once. Calling
// Activate while a trigger exists leaves it untouched, period included.
func (b *Binding) Activate(ctx context.Context, interval time.Duration) (Trigger, bool, error) {
	if interval <= 0 {
		return Trigger{}, false, fmt.Errorf("interval must be positive, got %s", interval)
	}

	if err := b.probe(ctx); err != nil {
		return Trigger{}, false, fmt.Errorf("%w: %w", ErrCatalogUnavailable, err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	trigger, created, err := b.store.Schedule(ctx, Trigger{
		Name:    b.name,
		Period:  interval,
		NextRun: AlignedStart(b.now(), interval),
	})
	if err != nil {
		return Trigger{}, false, fmt.Errorf("failed to schedule job '%s': %w", b.name, err)
	}

	if created {
		slog.InfoContext(ctx, "Sync job activated",
			"job", b.name,
			"interval", interval.String(),
			"next_run", trigger.NextRun)
	} else {
		slog.InfoContext(ctx, "Sync job already active",
			"job", b.name,
			"interval", trigger.Period.String(),
			"next_run", trigger.NextRun)
	}
	return trigger, created, nil
}

// Deactivate removes every trigger registered for the job, including stacked
// ones, and returns how many were removed
func (b *Binding) Deactivate(ctx context.Context) (int, error) {
	removed := 0
	for range maxDeactivateRounds {
		ok, err := b.store.Unschedule(ctx, b.name)
		if err != nil {
			return removed, fmt.Errorf("failed to unschedule job '%s': %w", b.name, err)
		}
		if !ok {
			slog.InfoContext(ctx, "Sync job deactivated", "job", b.name, "removed", removed)
			return removed, nil
		}
		removed++
	}
	return removed, fmt.Errorf("job '%s' still scheduled after removing %d triggers", b.name, removed)
}

// Active reports whether at least one trigger is registered
func (b *Binding) Active(ctx context.Context) (bool, error) {
	triggers, err := b.store.List(ctx, b.name)
	if err != nil {
		return false, err
	}
	return len(triggers) > 0, nil
}

func (b *Binding) probe(ctx context.Context) error {
	if b.catalog == nil {
		return errors.New("no catalog configured")
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = b.probeInterval

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		if err := b.catalog.Ping(ctx); err != nil {
			slog.WarnContext(ctx, "Catalog not reachable", "job", b.name, "error", err)
			return struct{}{}, err
		}
		return struct{}{}, nil
	},
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(b.probeAttempts),
	)
	return err
}
