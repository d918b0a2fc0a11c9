// Package inmemory provides a map-backed catalog, optionally snapshotted to a JSON file.
package inmemory

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/webspark/catalog-sync/internal/catalog"
	"github.com/webspark/catalog-sync/internal/product"
)

// Store is an in-memory catalog.Repository
type Store struct {
	mu       sync.RWMutex
	byID     map[string]*catalog.Entry
	idBySKU  map[string]string
	now      func() time.Time
	snapshot string
}

var (
	_ catalog.Repository = (*Store)(nil)
	_ catalog.Clock      = (*Store)(nil)
)

// Option configures a Store
type Option func(*Store)

// WithClock replaces time.Now as the source of timestamps
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithSnapshotFile keeps the catalog in path. Existing content is loaded by
// New and every mutation rewrites the file. A mutation whose write fails is
// undone in memory.
func WithSnapshotFile(path string) Option {
	return func(s *Store) {
		s.snapshot = path
	}
}

// New creates an empty store, or one restored from its snapshot file
func New(opts ...Option) (*Store, error) {
	s := &Store{
		byID:    make(map[string]*catalog.Entry),
		idBySKU: make(map[string]string),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.snapshot != "" {
		if err := s.load(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// FindBySKU implements catalog.Repository
func (s *Store) FindBySKU(_ context.Context, sku string) (*catalog.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.idBySKU[sku]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	e := *s.byID[id]
	return &e, nil
}

// Create implements catalog.Repository
func (s *Store) Create(_ context.Context, sku string, attrs product.Attributes) (*catalog.Entry, error) {
	if sku == "" {
		return nil, &catalog.CreateError{SKU: sku, Err: fmt.Errorf("sku is required")}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.idBySKU[sku]; ok {
		return nil, &catalog.CreateError{SKU: sku, Err: catalog.ErrDuplicateSKU}
	}

	now := s.now()
	e := &catalog.Entry{
		ID:           uuid.NewString(),
		SKU:          sku,
		Attributes:   attrs,
		CreatedAt:    now,
		LastModified: now,
	}
	s.byID[e.ID] = e
	s.idBySKU[sku] = e.ID

	if err := s.persistLocked(); err != nil {
		delete(s.idBySKU, sku)
		delete(s.byID, e.ID)
		return nil, err
	}
	out := *e
	return &out, nil
}

// Update implements catalog.Repository
func (s *Store) Update(_ context.Context, id string, attrs product.Attributes) (*catalog.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.byID[id]
	if !ok {
		return nil, &catalog.NotFoundError{ID: id}
	}
	prev := *e
	e.Attributes = attrs
	e.LastModified = s.now()

	if err := s.persistLocked(); err != nil {
		*e = prev
		return nil, err
	}
	out := *e
	return &out, nil
}

// Delete implements catalog.Repository
func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.byID[id]
	if !ok {
		return nil
	}
	delete(s.idBySKU, e.SKU)
	delete(s.byID, id)

	if err := s.persistLocked(); err != nil {
		s.byID[id] = e
		s.idBySKU[e.SKU] = id
		return err
	}
	return nil
}

// ListAll implements catalog.Repository. Entries are ordered by SKU.
func (s *Store) ListAll(_ context.Context) ([]catalog.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.sortedLocked(), nil
}

// Ping implements catalog.Repository
func (*Store) Ping(context.Context) error {
	return nil
}

// Now implements catalog.Clock
func (s *Store) Now(context.Context) (time.Time, error) {
	return s.now(), nil
}

// Len returns the number of entries
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

func (s *Store) sortedLocked() []catalog.Entry {
	out := make([]catalog.Entry, 0, len(s.byID))
	for _, e := range s.byID {
		out = append(out, *e)
	}
	slices.SortFunc(out, func(a, b catalog.Entry) int {
		return cmp.Compare(a.SKU, b.SKU)
	})
	return out
}

func (s *Store) persistLocked() error {
	if s.snapshot == "" {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(s.snapshot), 0750); err != nil {
		return fmt.Errorf("failed to create catalog directory: %w", err)
	}

	data, err := json.MarshalIndent(s.sortedLocked(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal catalog: %w", err)
	}

	tempPath := s.snapshot + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temporary catalog file: %w", err)
	}
	if err := os.Rename(tempPath, s.snapshot); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to rename catalog file: %w", err)
	}
	return nil
}

func (s *Store) load() error {
	// #nosec G304 -- path comes from configuration
	data, err := os.ReadFile(s.snapshot)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read catalog file: %w", err)
	}

	var entries []catalog.Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("failed to unmarshal catalog file %s: %w", s.snapshot, err)
	}

	for i := range entries {
		e := entries[i]
		if e.ID == "" || e.SKU == "" {
			return fmt.Errorf("catalog file %s: entry %d has no id or sku", s.snapshot, i)
		}
		if _, dup := s.idBySKU[e.SKU]; dup {
			return fmt.Errorf("catalog file %s: duplicate sku %q", s.snapshot, e.SKU)
		}
		s.byID[e.ID] = &e
		s.idBySKU[e.SKU] = e.ID
	}
	return nil
}
