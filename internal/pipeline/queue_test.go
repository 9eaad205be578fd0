package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue_FIFO(t *testing.T) {
	q := newQueue()
	require.True(t, q.push("a"))
	require.True(t, q.push("b"))
	require.True(t, q.push("c"))
	assert.Equal(t, 3, q.len())

	ctx := context.Background()
	for _, want := range []string{"a", "b", "c"} {
		id, ok := q.dequeue(ctx)
		require.True(t, ok)
		assert.Equal(t, want, id)
	}
	assert.Equal(t, 0, q.len())
}

func TestQueue_DequeueBlocksUntilPush(t *testing.T) {
	q := newQueue()
	got := make(chan string, 1)

	go func() {
		id, ok := q.dequeue(context.Background())
		if ok {
			got <- id
		}
	}()

	time.Sleep(10 * time.Millisecond)
	require.True(t, q.push("a"))

	select {
	case id := <-got:
		assert.Equal(t, "a", id)
	case <-time.After(time.Second):
		t.Fatal("dequeue never woke up")
	}
}

func TestQueue_DequeueRespectsContext(t *testing.T) {
	q := newQueue()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, ok := q.dequeue(ctx)
	assert.False(t, ok)
}

func TestQueue_CloseStopsIntakeButDrains(t *testing.T) {
	q := newQueue()
	require.True(t, q.push("a"))
	q.close()

	assert.False(t, q.push("b"))

	id, ok := q.dequeue(context.Background())
	require.True(t, ok)
	assert.Equal(t, "a", id)

	_, ok = q.dequeue(context.Background())
	assert.False(t, ok)
}

func TestQueue_CloseWakesBlockedWorkers(t *testing.T) {
	q := newQueue()
	done := make(chan struct{})

	go func() {
		_, ok := q.dequeue(context.Background())
		assert.False(t, ok)
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	q.close()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("blocked worker never woke up on close")
	}
}

func TestQueue_MultipleWorkersDrainEverything(t *testing.T) {
	q := newQueue()
	const items = 50
	for i := 0; i < items; i++ {
		require.True(t, q.push("id"))
	}
	q.close()

	got := make(chan string, items)
	for w := 0; w < 4; w++ {
		go func() {
			for {
				id, ok := q.dequeue(context.Background())
				if !ok {
					return
				}
				got <- id
			}
		}()
	}

	for i := 0; i < items; i++ {
		select {
		case <-got:
		case <-time.After(2 * time.Second):
			t.Fatalf("drained only %d of %d items", i, items)
		}
	}
}
