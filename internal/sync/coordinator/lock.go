package coordinator

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
)

// ErrAlreadyRunning is returned when a cycle of the same job is in flight
var ErrAlreadyRunning = errors.New("sync cycle already running")

// ErrLockUnavailable is returned when the file lock cannot be checked. No
// cycle ran.
var ErrLockUnavailable = errors.New("run lock unavailable")

// runLock allows one cycle per job: a mutex for this process and an
// optional file lock for other processes sharing the directory
type runLock struct {
	mu   sync.Mutex
	file *flock.Flock
}

func newRunLock(dir, job string) (*runLock, error) {
	l := &runLock{}
	if dir == "" {
		return l, nil
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}
	l.file = flock.New(filepath.Join(dir, job+".lock"))
	return l, nil
}

// tryLock returns ErrAlreadyRunning instead of waiting, or ErrLockUnavailable
// when the lock file cannot be used
func (l *runLock) tryLock() error {
	if !l.mu.TryLock() {
		return ErrAlreadyRunning
	}
	if l.file == nil {
		return nil
	}

	locked, err := l.file.TryLock()
	if err != nil {
		l.mu.Unlock()
		return fmt.Errorf("%w: %w", ErrLockUnavailable, err)
	}
	if !locked {
		l.mu.Unlock()
		return ErrAlreadyRunning
	}
	return nil
}

func (l *runLock) unlock() {
	if l.file != nil {
		_ = l.file.Unlock()
	}
	l.mu.Unlock()
}
