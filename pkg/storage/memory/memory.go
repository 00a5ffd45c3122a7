// Package memory provides an in-memory implementation of storage.CatalogStore
// for testing and lightweight deployments. Catalogs are lost when the
// process restarts.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rhuss/enginehub/pkg/api"
	"github.com/rhuss/enginehub/pkg/storage"
)

// entry holds a stored catalog and its update time.
type entry struct {
	models    *api.ModelsList
	updatedAt time.Time
}

// Store is an in-memory CatalogStore. Catalogs are deep-copied on the way
// in and out so callers can never alias stored data.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*entry
	now     func() time.Time
}

// Ensure Store implements storage.CatalogStore at compile time.
var _ storage.CatalogStore = (*Store)(nil)

// New creates a new, empty in-memory store.
func New() *Store {
	return &Store{
		entries: make(map[string]*entry),
		now:     time.Now,
	}
}

// SaveModels replaces the catalog of engine.
func (s *Store) SaveModels(_ context.Context, engine string, models *api.ModelsList) error {
	if models == nil {
		return storage.ErrNoCatalog
	}

	cp := models.Clone()
	cp.Normalize()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[engine] = &entry{models: cp, updatedAt: s.now().UTC()}
	return nil
}

// GetModels returns a copy of the catalog of engine.
func (s *Store) GetModels(_ context.Context, engine string) (*storage.Catalog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[engine]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &storage.Catalog{
		Engine:    engine,
		Models:    e.models.Clone(),
		UpdatedAt: e.updatedAt,
	}, nil
}

// ListEngines returns the engines with a stored catalog in sorted order.
func (s *Store) ListEngines(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.entries))
	for name := range s.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// HealthCheck always succeeds for the in-memory store.
func (s *Store) HealthCheck(_ context.Context) error {
	return nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error {
	return nil
}
