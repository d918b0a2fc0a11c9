// Package scheduler keeps the named recurring triggers that start sync cycles
// and binds them to the sync job.
package scheduler

import (
	"context"
	"errors"
	"time"
)

//go:generate mockgen -destination=mocks/mock_store.go -package=mocks -source=trigger.go Store

// ErrTriggerNotFound is returned when a trigger was removed before it could be updated
var ErrTriggerNotFound = errors.New("trigger not found")

// Trigger is one registration of a recurring job
type Trigger struct {
	ID      int64
	Name    string
	Period  time.Duration
	NextRun time.Time
}

// Due reports whether the trigger should fire at now
func (t Trigger) Due(now time.Time) bool {
	return !now.Before(t.NextRun)
}

// Following returns the first run boundary strictly after now.
// Missed boundaries collapse into that single next run.
func (t Trigger) Following(now time.Time) time.Time {
	if t.Period <= 0 || t.NextRun.After(now) {
		return t.NextRun
	}
	missed := now.Sub(t.NextRun)/t.Period + 1
	return t.NextRun.Add(missed * t.Period)
}

// Store persists triggers. Several triggers may share a name.
type Store interface {
	// List returns the triggers registered under name, earliest NextRun first
	List(ctx context.Context, name string) ([]Trigger, error)

	// Schedule registers t unless a trigger with the same name exists.
	// It returns the stored trigger and whether it was newly created.
	Schedule(ctx context.Context, t Trigger) (Trigger, bool, error)

	// Unschedule removes one trigger registered under name.
	// It returns false when there was none left.
	Unschedule(ctx context.Context, name string) (bool, error)

	// Reschedule moves a trigger to nextRun
	Reschedule(ctx context.Context, id int64, nextRun time.Time) error
}

// AlignedStart returns the interval boundary at or before now, counted from
// the Unix epoch. A trigger registered with it is due immediately.
func AlignedStart(now time.Time, interval time.Duration) time.Time {
	if interval <= 0 {
		return now
	}
	since := time.Duration(now.UnixNano())
	return time.Unix(0, int64(since-since%interval)).In(now.Location())
}
