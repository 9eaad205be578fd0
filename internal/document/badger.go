package document

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"
)

// recordKeyPrefix namespaces document records in the shared Badger DB.
var recordKeyPrefix = []byte("doc:")

// BadgerStore is a Badger-backed RecordStore. Records are stored as JSON
// under the "doc:" key prefix; updates run inside a single read-modify-
// write transaction so transition enforcement is atomic.
type BadgerStore struct {
	db     *badger.DB
	logger *zap.Logger
}

var _ RecordStore = (*BadgerStore)(nil)

// badgerLogger adapts zap to badger.Logger.
type badgerLogger struct {
	logger *zap.SugaredLogger
}

var _ badger.Logger = (*badgerLogger)(nil)

func (l *badgerLogger) Errorf(msg string, args ...interface{})   { l.logger.Errorf(msg, args...) }
func (l *badgerLogger) Warningf(msg string, args ...interface{}) { l.logger.Warnf(msg, args...) }
func (l *badgerLogger) Infof(msg string, args ...interface{})    { l.logger.Debugf(msg, args...) }
func (l *badgerLogger) Debugf(msg string, args ...interface{})   { l.logger.Debugf(msg, args...) }

// OpenBadger opens a Badger database at path. An empty path opens an
// in-memory database.
func OpenBadger(path string, logger *zap.Logger) (*badger.DB, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var opts badger.Options
	if path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(path)
	}
	opts.Logger = &badgerLogger{logger: logger.Named("badger").Sugar()}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening badger database: %w", err)
	}
	return db, nil
}

// NewBadgerStore creates a RecordStore over an open Badger database.
// The store does not own the database; callers close it.
func NewBadgerStore(db *badger.DB, logger *zap.Logger) (*BadgerStore, error) {
	if db == nil {
		return nil, fmt.Errorf("badger database is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BadgerStore{db: db, logger: logger}, nil
}

func recordKey(id string) []byte {
	return append(append([]byte{}, recordKeyPrefix...), id...)
}

func decodeRecord(val []byte) (*Record, error) {
	var rec Record
	if err := json.Unmarshal(val, &rec); err != nil {
		return nil, fmt.Errorf("decoding record: %w", err)
	}
	return &rec, nil
}

// Create stores a new record.
func (s *BadgerStore) Create(ctx context.Context, rec *Record) error {
	if rec.ID == "" {
		return fmt.Errorf("record ID is required")
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

	return s.db.Update(func(txn *badger.Txn) error {
		key := recordKey(c.ID)
		if _, err := txn.Get(key); err == nil {
			return fmt.Errorf("%w: %s", ErrAlreadyExists, c.ID)
		} else if err != badger.ErrKeyNotFound {
			return err
		}

		val, err := json.Marshal(c)
		if err != nil {
			return fmt.Errorf("encoding record: %w", err)
		}
		return txn.Set(key, val)
	})
}

// Get returns the record with the given ID.
func (s *BadgerStore) Get(ctx context.Context, id string) (*Record, error) {
	var rec *Record
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(recordKey(id))
		if err == badger.ErrKeyNotFound {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		} else if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			rec, err = decodeRecord(val)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Update applies fields inside one transaction.
func (s *BadgerStore) Update(ctx context.Context, id string, fields UpdateFields) (*Record, error) {
	var updated *Record
	err := s.db.Update(func(txn *badger.Txn) error {
		key := recordKey(id)
		item, err := txn.Get(key)
		if err == badger.ErrKeyNotFound {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		} else if err != nil {
			return err
		}

		var rec *Record
		if err := item.Value(func(val []byte) error {
			rec, err = decodeRecord(val)
			return err
		}); err != nil {
			return err
		}

		if err := applyUpdate(rec, fields, time.Now().UTC()); err != nil {
			return err
		}

		val, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encoding record: %w", err)
		}
		if err := txn.Set(key, val); err != nil {
			return err
		}
		updated = rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes the record.
func (s *BadgerStore) Delete(ctx context.Context, id string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		key := recordKey(id)
		if _, err := txn.Get(key); err == badger.ErrKeyNotFound {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		} else if err != nil {
			return err
		}
		return txn.Delete(key)
	})
}

// List returns all records under the record prefix.
func (s *BadgerStore) List(ctx context.Context) ([]*Record, error) {
	var out []*Record
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = recordKeyPrefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(recordKeyPrefix); it.ValidForPrefix(recordKeyPrefix); it.Next() {
			item := it.Item()
			if !bytes.HasPrefix(item.Key(), recordKeyPrefix) {
				continue
			}
			if err := item.Value(func(val []byte) error {
				rec, err := decodeRecord(val)
				if err != nil {
					return err
				}
				out = append(out, rec)
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
	return out, nil
}

// Close is a no-op; the underlying database is owned by the caller.
func (s *BadgerStore) Close() error {
	return nil
}
