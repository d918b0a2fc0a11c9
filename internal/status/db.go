package status

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	upsertStatusQuery = `INSERT INTO sync_status (job_name, phase, status, updated_at)
VALUES ($1, $2, $3::jsonb, clock_timestamp())
ON CONFLICT (job_name) DO UPDATE
SET phase = EXCLUDED.phase, status = EXCLUDED.status, updated_at = EXCLUDED.updated_at`

	selectStatusQuery = `SELECT status FROM sync_status WHERE job_name = $1`

	selectAllStatusQuery = `SELECT job_name, status FROM sync_status ORDER BY job_name`
)

// dbStatusPersistence implements StatusPersistence on the sync_status table
type dbStatusPersistence struct {
	pool *pgxpool.Pool
}

// NewDBStatusPersistence creates a database-backed status persistence
func NewDBStatusPersistence(pool *pgxpool.Pool) StatusPersistence {
	return &dbStatusPersistence{pool: pool}
}

// SaveStatus upserts the status row of a job
func (d *dbStatusPersistence) SaveStatus(ctx context.Context, jobName string, status *SyncStatus) error {
	data, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("failed to marshal status data for job '%s': %w", jobName, err)
	}

	if _, err := d.pool.Exec(ctx, upsertStatusQuery, jobName, string(status.Phase), data); err != nil {
		return fmt.Errorf("failed to save status for job '%s': %w", jobName, err)
	}
	return nil
}

// LoadStatus returns an empty SyncStatus when the job has no row yet
func (d *dbStatusPersistence) LoadStatus(ctx context.Context, jobName string) (*SyncStatus, error) {
	var data []byte
	err := d.pool.QueryRow(ctx, selectStatusQuery, jobName).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &SyncStatus{}, nil
		}
		return nil, fmt.Errorf("failed to load status for job '%s': %w", jobName, err)
	}

	var status SyncStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, fmt.Errorf("failed to unmarshal status data for job '%s': %w", jobName, err)
	}
	return &status, nil
}

// LoadAllStatus loads every status row
func (d *dbStatusPersistence) LoadAllStatus(ctx context.Context) (map[string]*SyncStatus, error) {
	rows, err := d.pool.Query(ctx, selectAllStatusQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to list sync status: %w", err)
	}
	defer rows.Close()

	result := make(map[string]*SyncStatus)
	for rows.Next() {
		var (
			jobName string
			data    []byte
		)
		if err := rows.Scan(&jobName, &data); err != nil {
			return nil, fmt.Errorf("failed to scan sync status: %w", err)
		}
		var status SyncStatus
		if err := json.Unmarshal(data, &status); err != nil {
			return nil, fmt.Errorf("failed to unmarshal status data for job '%s': %w", jobName, err)
		}
		result[jobName] = &status
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list sync status: %w", err)
	}
	return result, nil
}
