// Package status records the outcome of sync cycles per job.
package status

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/webspark/catalog-sync/internal/validators"
)

//go:generate mockgen -destination=mocks/mock_status_persistence.go -package=mocks -source=persistence.go StatusPersistence

// StatusFileName is the file holding a job's status inside its directory
const StatusFileName = "status.json"

// StatusPersistence stores one SyncStatus per job
//
//nolint:revive // This name is fine
type StatusPersistence interface {
	// SaveStatus replaces the status of a job
	SaveStatus(ctx context.Context, jobName string, status *SyncStatus) error

	// LoadStatus returns the status of a job, or an empty SyncStatus before
	// the first cycle
	LoadStatus(ctx context.Context, jobName string) (*SyncStatus, error)

	// LoadAllStatus returns the status of every job that has one
	LoadAllStatus(ctx context.Context) (map[string]*SyncStatus, error)
}

// fileStatusPersistence keeps <basePath>/<job>/status.json per job
type fileStatusPersistence struct {
	basePath string
}

// NewFileStatusPersistence stores status files under basePath
func NewFileStatusPersistence(basePath string) StatusPersistence {
	return &fileStatusPersistence{basePath: basePath}
}

func (f *fileStatusPersistence) statusPath(jobName string) (string, error) {
	if err := validators.ValidateJobName(jobName); err != nil {
		return "", err
	}
	return filepath.Join(f.basePath, jobName, StatusFileName), nil
}

// SaveStatus writes the status through a temp file and a rename so a reader
// never sees a partial document
func (f *fileStatusPersistence) SaveStatus(_ context.Context, jobName string, status *SyncStatus) error {
	path, err := f.statusPath(jobName)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("failed to create status directory for job '%s': %w", jobName, err)
	}

	data, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal status for job '%s': %w", jobName, err)
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write status for job '%s': %w", jobName, err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to replace status for job '%s': %w", jobName, err)
	}
	return nil
}

// LoadStatus implements StatusPersistence
func (f *fileStatusPersistence) LoadStatus(_ context.Context, jobName string) (*SyncStatus, error) {
	path, err := f.statusPath(jobName)
	if err != nil {
		return nil, err
	}

	// #nosec G304 -- the job name is validated above
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &SyncStatus{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read status for job '%s': %w", jobName, err)
	}

	var status SyncStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, fmt.Errorf("failed to decode status for job '%s': %w", jobName, err)
	}
	return &status, nil
}

// LoadAllStatus scans the job directories. Unreadable or foreign entries are
// logged and skipped so one corrupt file cannot hide the others.
func (f *fileStatusPersistence) LoadAllStatus(ctx context.Context) (map[string]*SyncStatus, error) {
	result := make(map[string]*SyncStatus)

	entries, err := os.ReadDir(f.basePath)
	if errors.Is(err, fs.ErrNotExist) {
		return result, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read status directory: %w", err)
	}

	for _, entry := range entries {
		if !entry.IsDir() || validators.ValidateJobName(entry.Name()) != nil {
			continue
		}
		status, err := f.LoadStatus(ctx, entry.Name())
		if err != nil {
			slog.WarnContext(ctx, "Skipping unreadable sync status", "job", entry.Name(), "error", err)
			continue
		}
		result[entry.Name()] = status
	}
	return result, nil
}
