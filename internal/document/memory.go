package document

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryStore is an in-memory RecordStore for tests and ephemeral runs.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*Record
}

var _ RecordStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory record store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*Record)}
}

// Create stores a new record.
func (s *MemoryStore) Create(ctx context.Context, rec *Record) error {
	if rec.ID == "" {
		return fmt.Errorf("record ID is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[rec.ID]; ok {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, rec.ID)
	}

	c := rec.Clone()
	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	if c.Status == "" {
		c.Status = StatusUploaded
	}
	s.records[rec.ID] = c
	return nil
}

// Get returns a copy of the record.
func (s *MemoryStore) Get(ctx context.Context, id string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return rec.Clone(), nil
}

// Update applies fields atomically under the store lock.
func (s *MemoryStore) Update(ctx context.Context, id string, fields UpdateFields) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	updated := rec.Clone()
	if err := applyUpdate(updated, fields, time.Now().UTC()); err != nil {
		return nil, err
	}
	s.records[id] = updated
	return updated.Clone(), nil
}

// Delete removes the record.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(s.records, id)
	return nil
}

// List returns copies of all records.
func (s *MemoryStore) List(ctx context.Context) ([]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Record, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec.Clone())
	}
	return out, nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error {
	return nil
}
