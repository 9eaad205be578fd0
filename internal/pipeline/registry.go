package pipeline

import (
	"context"
	"sync"
)

// taskHandle tracks one in-flight document task. The cancel function
// aborts the task context; done closes when the task has fully exited.
type taskHandle struct {
	id     string
	cancel context.CancelFunc
	done   chan struct{}
}

// taskRegistry enforces at most one in-flight task per document ID.
// Membership is the single source of truth for "is processing".
type taskRegistry struct {
	mu    sync.Mutex
	tasks map[string]*taskHandle
}

func newTaskRegistry() *taskRegistry {
	return &taskRegistry{tasks: make(map[string]*taskHandle)}
}

// acquire registers a handle for id. ok is false when id already has an
// in-flight task.
func (r *taskRegistry) acquire(id string, cancel context.CancelFunc) (*taskHandle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tasks[id]; exists {
		return nil, false
	}
	handle := &taskHandle{
		id:     id,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	r.tasks[id] = handle
	return handle, true
}

// release removes the handle for id and signals task exit.
func (r *taskRegistry) release(id string) {
	r.mu.Lock()
	handle, ok := r.tasks[id]
	delete(r.tasks, id)
	r.mu.Unlock()

	if ok {
		close(handle.done)
	}
}

// get returns the in-flight handle for id, if any.
func (r *taskRegistry) get(id string) (*taskHandle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	handle, ok := r.tasks[id]
	return handle, ok
}

// contains reports whether id has an in-flight task.
func (r *taskRegistry) contains(id string) bool {
	_, ok := r.get(id)
	return ok
}

// active returns the number of in-flight tasks.
func (r *taskRegistry) active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tasks)
}

// cancelAll cancels every in-flight task context.
func (r *taskRegistry) cancelAll() {
	r.mu.Lock()
	handles := make([]*taskHandle, 0, len(r.tasks))
	for _, h := range r.tasks {
		handles = append(handles, h)
	}
	r.mu.Unlock()

	for _, h := range handles {
		h.cancel()
	}
}
