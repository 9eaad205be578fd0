package pipeline

import (
	"context"
	"sync"
)

// queue is an unbounded FIFO of document IDs. Push never blocks; workers
// block in dequeue until an item arrives, the queue closes, or their
// context ends.
type queue struct {
	mu     sync.Mutex
	items  []string
	closed bool

	signal chan struct{} // buffered wakeup, coalesced
	done   chan struct{} // closed on close()
}

func newQueue() *queue {
	return &queue{
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// push appends id. Returns false if the queue is closed.
func (q *queue) push(id string) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	q.items = append(q.items, id)
	q.mu.Unlock()

	q.wake()
	return true
}

func (q *queue) wake() {
	select {
	case q.signal <- struct{}{}:
	default:
	}
}

// dequeue removes the oldest id. ok is false once the queue is closed
// and drained, or when ctx ends.
func (q *queue) dequeue(ctx context.Context) (id string, ok bool) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			id = q.items[0]
			q.items = q.items[1:]
			remaining := len(q.items)
			q.mu.Unlock()
			if remaining > 0 {
				// Wakeups are coalesced; re-signal for sibling workers.
				q.wake()
			}
			return id, true
		}
		closed := q.closed
		q.mu.Unlock()

		if closed {
			return "", false
		}

		select {
		case <-ctx.Done():
			return "", false
		case <-q.done:
		case <-q.signal:
		}
	}
}

// close stops intake. Queued items remain dequeueable until drained.
func (q *queue) close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.mu.Unlock()

	close(q.done)
}

// len returns the number of queued items.
func (q *queue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
