package document

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// storeFactory builds a fresh store per subtest so both implementations
// run the same contract suite.
func storeFactories(t *testing.T) map[string]func(t *testing.T) RecordStore {
	return map[string]func(t *testing.T) RecordStore{
		"memory": func(t *testing.T) RecordStore {
			return NewMemoryStore()
		},
		"badger": func(t *testing.T) RecordStore {
			db, err := OpenBadger("", zap.NewNop())
			require.NoError(t, err)
			t.Cleanup(func() { db.Close() })
			store, err := NewBadgerStore(db, zap.NewNop())
			require.NoError(t, err)
			return store
		},
	}
}

func TestRecordStore_CreateGet(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			store := factory(t)
			ctx := context.Background()

			rec := &Record{ID: "d1", Filename: "report.pdf", Path: "/tmp/report.pdf", UserID: "u1"}
			require.NoError(t, store.Create(ctx, rec))

			got, err := store.Get(ctx, "d1")
			require.NoError(t, err)
			assert.Equal(t, StatusUploaded, got.Status)
			assert.Equal(t, "report.pdf", got.Filename)
			assert.False(t, got.CreatedAt.IsZero())

			err = store.Create(ctx, rec)
			assert.ErrorIs(t, err, ErrAlreadyExists)

			_, err = store.Get(ctx, "nope")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestRecordStore_UpdateEnforcesTransitions(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			store := factory(t)
			ctx := context.Background()

			require.NoError(t, store.Create(ctx, &Record{ID: "d1"}))

			got, err := store.Update(ctx, "d1", UpdateFields{Status: Ptr(StatusQueued)})
			require.NoError(t, err)
			assert.Equal(t, StatusQueued, got.Status)

			// Illegal: QUEUED -> COMPLETED. Record must be unchanged.
			_, err = store.Update(ctx, "d1", UpdateFields{Status: Ptr(StatusCompleted)})
			require.ErrorIs(t, err, ErrInvalidTransition)

			got, err = store.Get(ctx, "d1")
			require.NoError(t, err)
			assert.Equal(t, StatusQueued, got.Status)

			_, err = store.Update(ctx, "missing", UpdateFields{Status: Ptr(StatusQueued)})
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestRecordStore_DeleteList(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			store := factory(t)
			ctx := context.Background()

			require.NoError(t, store.Create(ctx, &Record{ID: "d1"}))
			require.NoError(t, store.Create(ctx, &Record{ID: "d2"}))

			recs, err := store.List(ctx)
			require.NoError(t, err)
			assert.Len(t, recs, 2)

			require.NoError(t, store.Delete(ctx, "d1"))
			assert.ErrorIs(t, store.Delete(ctx, "d1"), ErrNotFound)

			recs, err = store.List(ctx)
			require.NoError(t, err)
			require.Len(t, recs, 1)
			assert.Equal(t, "d2", recs[0].ID)
		})
	}
}

func TestBadgerStore_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	db, err := OpenBadger(dir, zap.NewNop())
	require.NoError(t, err)
	store, err := NewBadgerStore(db, zap.NewNop())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, store.Create(ctx, &Record{ID: "d1", Filename: "notes.md"}))
	_, err = store.Update(ctx, "d1", UpdateFields{Status: Ptr(StatusQueued)})
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = OpenBadger(dir, zap.NewNop())
	require.NoError(t, err)
	defer db.Close()
	store, err = NewBadgerStore(db, zap.NewNop())
	require.NoError(t, err)

	got, err := store.Get(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, StatusQueued, got.Status)
	assert.Equal(t, "notes.md", got.Filename)
}

func TestMemoryStore_ConcurrentUpdates(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Create(ctx, &Record{ID: "d1"}))
	_, err := store.Update(ctx, "d1", UpdateFields{Status: Ptr(StatusQueued)})
	require.NoError(t, err)

	// Concurrent same-status progress writes must not race or regress.
	_, err = store.Update(ctx, "d1", UpdateFields{Status: Ptr(StatusProcessing)})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			store.Update(ctx, "d1", UpdateFields{Progress: Ptr(10)}) //nolint:errcheck
		}(i)
	}
	wg.Wait()

	got, err := store.Get(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, 10, got.Progress)
}
