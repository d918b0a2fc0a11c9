package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	listTriggersQuery = `SELECT id, name, period_seconds, next_run FROM scheduled_job
WHERE name = $1 ORDER BY next_run, id`

	lockJobQuery = `SELECT pg_advisory_xact_lock(hashtext($1))`

	insertTriggerQuery = `INSERT INTO scheduled_job (name, period_seconds, next_run)
VALUES ($1, $2, $3) RETURNING id`

	unscheduleQuery = `DELETE FROM scheduled_job
WHERE id = (SELECT id FROM scheduled_job WHERE name = $1 ORDER BY id LIMIT 1)
RETURNING id`

	rescheduleQuery = `UPDATE scheduled_job SET next_run = $2 WHERE id = $1`
)

// DBStore keeps triggers in the scheduled_job table
type DBStore struct {
	pool *pgxpool.Pool
}

var _ Store = (*DBStore)(nil)

// NewDBStore creates a database-backed trigger store
func NewDBStore(pool *pgxpool.Pool) *DBStore {
	return &DBStore{pool: pool}
}

// List implements Store
func (s *DBStore) List(ctx context.Context, name string) ([]Trigger, error) {
	rows, err := s.pool.Query(ctx, listTriggersQuery, name)
	if err != nil {
		return nil, fmt.Errorf("failed to list triggers: %w", err)
	}
	return scanTriggers(rows)
}

// Schedule implements Store. Concurrent callers are serialized per name
// with a transaction-scoped advisory lock.
func (s *DBStore) Schedule(ctx context.Context, t Trigger) (Trigger, bool, error) {
	if t.Name == "" {
		return Trigger{}, false, fmt.Errorf("trigger name is required")
	}
	if t.Period < time.Second {
		return Trigger{}, false, fmt.Errorf("trigger period must be at least one second, got %s", t.Period)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Trigger{}, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, lockJobQuery, t.Name); err != nil {
		return Trigger{}, false, fmt.Errorf("failed to lock job '%s': %w", t.Name, err)
	}

	rows, err := tx.Query(ctx, listTriggersQuery, t.Name)
	if err != nil {
		return Trigger{}, false, fmt.Errorf("failed to list triggers: %w", err)
	}
	existing, err := scanTriggers(rows)
	if err != nil {
		return Trigger{}, false, err
	}
	if len(existing) > 0 {
		return existing[0], false, nil
	}

	t.NextRun = t.NextRun.UTC()
	err = tx.QueryRow(ctx, insertTriggerQuery, t.Name, int64(t.Period/time.Second), t.NextRun).Scan(&t.ID)
	if err != nil {
		return Trigger{}, false, fmt.Errorf("failed to insert trigger: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Trigger{}, false, fmt.Errorf("failed to commit trigger: %w", err)
	}
	return t, true, nil
}

// Unschedule implements Store
func (s *DBStore) Unschedule(ctx context.Context, name string) (bool, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, lockJobQuery, name); err != nil {
		return false, fmt.Errorf("failed to lock job '%s': %w", name, err)
	}

	var id int64
	err = tx.QueryRow(ctx, unscheduleQuery, name).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to unschedule job '%s': %w", name, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to commit unschedule: %w", err)
	}
	return true, nil
}

// Reschedule implements Store
func (s *DBStore) Reschedule(ctx context.Context, id int64, nextRun time.Time) error {
	tag, err := s.pool.Exec(ctx, rescheduleQuery, id, nextRun.UTC())
	if err != nil {
		return fmt.Errorf("failed to reschedule trigger %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("trigger %d: %w", id, ErrTriggerNotFound)
	}
	return nil
}

func scanTriggers(rows pgx.Rows) ([]Trigger, error) {
	defer rows.Close()

	var out []Trigger
	for rows.Next() {
		var (
			t      Trigger
			period int64
		)
		if err := rows.Scan(&t.ID, &t.Name, &period, &t.NextRun); err != nil {
			return nil, fmt.Errorf("failed to scan trigger: %w", err)
		}
		t.Period = time.Duration(period) * time.Second
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read triggers: %w", err)
	}
	return out, nil
}
