package knowledge

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"
)

// entryKeyPrefix namespaces knowledge entries in the shared Badger DB.
var entryKeyPrefix = []byte("knowledge:")

// BadgerStore is a Badger-backed Store. Entries are stored as JSON under
// the "knowledge:" key prefix and can share a database with document
// records.
type BadgerStore struct {
	db     *badger.DB
	logger *zap.Logger
}

var _ Store = (*BadgerStore)(nil)

// NewBadgerStore creates a Store over an open Badger database. The store
// does not own the database; callers close it.
func NewBadgerStore(db *badger.DB, logger *zap.Logger) (*BadgerStore, error) {
	if db == nil {
		return nil, fmt.Errorf("badger database is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BadgerStore{db: db, logger: logger}, nil
}

func entryKey(id string) []byte {
	return append(append([]byte{}, entryKeyPrefix...), id...)
}

// Create stores a new entry.
func (s *BadgerStore) Create(ctx context.Context, entry *Entry) error {
	if err := entry.Validate(); err != nil {
		return err
	}

	c := *entry
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}

	return s.db.Update(func(txn *badger.Txn) error {
		key := entryKey(c.ID)
		if _, err := txn.Get(key); err == nil {
			return fmt.Errorf("%w: %s", ErrAlreadyExists, c.ID)
		} else if err != badger.ErrKeyNotFound {
			return err
		}

		val, err := json.Marshal(&c)
		if err != nil {
			return fmt.Errorf("encoding entry: %w", err)
		}
		return txn.Set(key, val)
	})
}

// Get returns the entry with the given ID.
func (s *BadgerStore) Get(ctx context.Context, id string) (*Entry, error) {
	var entry *Entry
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(entryKey(id))
		if err == badger.ErrKeyNotFound {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		} else if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			var e Entry
			if err := json.Unmarshal(val, &e); err != nil {
				return fmt.Errorf("decoding entry: %w", err)
			}
			entry = &e
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// List returns all entries, newest first.
func (s *BadgerStore) List(ctx context.Context, userID string) ([]*Entry, error) {
	var out []*Entry
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = entryKeyPrefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(entryKeyPrefix); it.ValidForPrefix(entryKeyPrefix); it.Next() {
			if err := it.Item().Value(func(val []byte) error {
				var e Entry
				if err := json.Unmarshal(val, &e); err != nil {
					return fmt.Errorf("decoding entry: %w", err)
				}
				if userID != "" && e.UserID != userID {
					return nil
				}
				out = append(out, &e)
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// Close is a no-op; the underlying database is owned by the caller.
func (s *BadgerStore) Close() error {
	return nil
}
