package pipeline

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskRegistry_SingleInFlightPerID(t *testing.T) {
	r := newTaskRegistry()
	_, cancel := context.WithCancel(context.Background())
	defer cancel()

	handle, ok := r.acquire("d1", cancel)
	require.True(t, ok)
	require.NotNil(t, handle)

	_, ok = r.acquire("d1", cancel)
	assert.False(t, ok, "second acquire for same id must fail")

	_, ok = r.acquire("d2", cancel)
	assert.True(t, ok, "different id is independent")
	assert.Equal(t, 2, r.active())

	r.release("d1")
	assert.False(t, r.contains("d1"))

	_, ok = r.acquire("d1", cancel)
	assert.True(t, ok, "released id can be reacquired")
}

func TestTaskRegistry_ReleaseClosesDone(t *testing.T) {
	r := newTaskRegistry()
	_, cancel := context.WithCancel(context.Background())
	defer cancel()

	handle, ok := r.acquire("d1", cancel)
	require.True(t, ok)

	select {
	case <-handle.done:
		t.Fatal("done closed before release")
	default:
	}

	r.release("d1")

	select {
	case <-handle.done:
	default:
		t.Fatal("done not closed after release")
	}

	// Releasing an unknown id is a no-op.
	r.release("ghost")
}

func TestTaskRegistry_CancelAll(t *testing.T) {
	r := newTaskRegistry()

	ctx1, cancel1 := context.WithCancel(context.Background())
	ctx2, cancel2 := context.WithCancel(context.Background())
	_, ok := r.acquire("d1", cancel1)
	require.True(t, ok)
	_, ok = r.acquire("d2", cancel2)
	require.True(t, ok)

	r.cancelAll()

	assert.Error(t, ctx1.Err())
	assert.Error(t, ctx2.Err())
	// Handles stay registered; tasks deregister themselves on exit.
	assert.Equal(t, 2, r.active())
}

func TestTaskRegistry_ConcurrentAcquire(t *testing.T) {
	r := newTaskRegistry()
	_, cancel := context.WithCancel(context.Background())
	defer cancel()

	const racers = 32
	var wins int
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok := r.acquire("d1", cancel); ok {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, 1, r.active())
}
