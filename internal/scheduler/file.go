package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

const (
	// TriggerFileName is the file holding all triggers of a FileStore
	TriggerFileName = "triggers.json"

	lockRetryDelay = 50 * time.Millisecond
)

type fileTrigger struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	PeriodSeconds int64     `json:"periodSeconds"`
	NextRun       time.Time `json:"nextRun"`
}

type triggerFile struct {
	LastID   int64         `json:"lastId"`
	Triggers []fileTrigger `json:"triggers"`
}

// FileStore keeps triggers in a JSON file. Every change is an atomic
// rewrite done under a file lock, so several processes may share the file.
type FileStore struct {
	path string
	lock *flock.Flock
	mu   sync.Mutex
}

var _ Store = (*FileStore)(nil)

// NewFileStore creates a store writing to baseDir/triggers.json
func NewFileStore(baseDir string) (*FileStore, error) {
	if err := os.MkdirAll(baseDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create trigger directory: %w", err)
	}
	path := filepath.Join(baseDir, TriggerFileName)
	return &FileStore{
		path: path,
		lock: flock.New(path + ".lock"),
	}, nil
}

// List implements Store
func (s *FileStore) List(ctx context.Context, name string) ([]Trigger, error) {
	var out []Trigger
	err := s.withFile(ctx, false, func(f *triggerFile) error {
		for _, ft := range f.Triggers {
			if ft.Name == name {
				out = append(out, ft.toTrigger())
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(out, func(a, b Trigger) int {
		return a.NextRun.Compare(b.NextRun)
	})
	return out, nil
}

// Schedule implements Store
func (s *FileStore) Schedule(ctx context.Context, t Trigger) (Trigger, bool, error) {
	if t.Name == "" {
		return Trigger{}, false, fmt.Errorf("trigger name is required")
	}
	if t.Period < time.Second {
		return Trigger{}, false, fmt.Errorf("trigger period must be at least one second, got %s", t.Period)
	}

	var (
		stored  Trigger
		created bool
	)
	err := s.withFile(ctx, true, func(f *triggerFile) error {
		for _, ft := range f.Triggers {
			if ft.Name == t.Name {
				stored = ft.toTrigger()
				return nil
			}
		}
		f.LastID++
		t.ID = f.LastID
		f.Triggers = append(f.Triggers, toFileTrigger(t))
		stored = t
		created = true
		return nil
	})
	if err != nil {
		return Trigger{}, false, err
	}
	return stored, created, nil
}

// Unschedule implements Store
func (s *FileStore) Unschedule(ctx context.Context, name string) (bool, error) {
	removed := false
	err := s.withFile(ctx, true, func(f *triggerFile) error {
		i := slices.IndexFunc(f.Triggers, func(ft fileTrigger) bool { return ft.Name == name })
		if i < 0 {
			return nil
		}
		f.Triggers = slices.Delete(f.Triggers, i, i+1)
		removed = true
		return nil
	})
	return removed, err
}

// Reschedule implements Store
func (s *FileStore) Reschedule(ctx context.Context, id int64, nextRun time.Time) error {
	return s.withFile(ctx, true, func(f *triggerFile) error {
		for i := range f.Triggers {
			if f.Triggers[i].ID == id {
				f.Triggers[i].NextRun = nextRun.UTC()
				return nil
			}
		}
		return fmt.Errorf("trigger %d: %w", id, ErrTriggerNotFound)
	})
}

// withFile runs fn on the decoded file while holding both locks and writes
// the result back when write is set and fn succeeded
func (s *FileStore) withFile(ctx context.Context, write bool, fn func(*triggerFile) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	locked, err := s.lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("failed to lock trigger file: %w", err)
	}
	if !locked {
		return fmt.Errorf("failed to lock trigger file %s", s.path)
	}
	defer func() { _ = s.lock.Unlock() }()

	f, err := s.load()
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		return err
	}
	if !write {
		return nil
	}
	return s.save(f)
}

func (s *FileStore) load() (*triggerFile, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &triggerFile{}, nil
		}
		return nil, fmt.Errorf("failed to read trigger file: %w", err)
	}

	var f triggerFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to unmarshal trigger file: %w", err)
	}
	return &f, nil
}

func (s *FileStore) save(f *triggerFile) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal trigger file: %w", err)
	}

	tempPath := s.path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temporary trigger file: %w", err)
	}
	if err := os.Rename(tempPath, s.path); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to rename trigger file: %w", err)
	}
	return nil
}

func (ft fileTrigger) toTrigger() Trigger {
	return Trigger{
		ID:      ft.ID,
		Name:    ft.Name,
		Period:  time.Duration(ft.PeriodSeconds) * time.Second,
		NextRun: ft.NextRun,
	}
}

func toFileTrigger(t Trigger) fileTrigger {
	return fileTrigger{
		ID:            t.ID,
		Name:          t.Name,
		PeriodSeconds: int64(t.Period / time.Second),
		NextRun:       t.NextRun.UTC(),
	}
}
