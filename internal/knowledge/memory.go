package knowledge

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store for tests and single-process use.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]*Entry)}
}

// Create stores a new entry.
func (s *MemoryStore) Create(ctx context.Context, entry *Entry) error {
	if err := entry.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[entry.ID]; ok {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, entry.ID)
	}

	c := *entry
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	s.entries[entry.ID] = &c
	return nil
}

// Get returns the entry with the given ID.
func (s *MemoryStore) Get(ctx context.Context, id string) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	c := *entry
	return &c, nil
}

// List returns all entries, newest first.
func (s *MemoryStore) List(ctx context.Context, userID string) ([]*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Entry, 0, len(s.entries))
	for _, entry := range s.entries {
		if userID != "" && entry.UserID != userID {
			continue
		}
		c := *entry
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}
