package pipeline

import (
	"context"
	"fmt"

	"github.com/panjf2000/ants/v2"
)

// executor runs blocking stage work (extraction, embedding) on a bounded
// ants pool so task goroutines can observe cancellation while the call
// is in flight. The submitted function always runs to completion; a
// canceled wait discards its result.
type executor struct {
	pool *ants.Pool
}

func newExecutor(size int) (*executor, error) {
	if size < 1 {
		size = 1
	}
	pool, err := ants.NewPool(size)
	if err != nil {
		return nil, fmt.Errorf("creating executor pool: %w", err)
	}
	return &executor{pool: pool}, nil
}

// run submits fn to the pool and waits for it or for ctx.
func (e *executor) run(ctx context.Context, fn func() error) error {
	result := make(chan error, 1)
	if err := e.pool.Submit(func() {
		result <- fn()
	}); err != nil {
		return fmt.Errorf("submitting to executor pool: %w", err)
	}

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// release shuts down the pool. Pending tasks are abandoned.
func (e *executor) release() {
	e.pool.Release()
}
