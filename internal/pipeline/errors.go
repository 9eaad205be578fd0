package pipeline

import (
	"context"
	"errors"
)

// Stage failure sentinels. The orchestrator wraps stage errors with one
// of these so the worker loop can classify an outcome without inspecting
// backend error types.
var (
	// ErrExtraction indicates document extraction or chunking failed.
	ErrExtraction = errors.New("extraction error")

	// ErrEmbedding indicates embedding generation failed.
	ErrEmbedding = errors.New("embedding error")

	// ErrStore indicates the vector store rejected a write.
	ErrStore = errors.New("store error")

	// ErrNoContent indicates extraction produced zero chunks.
	ErrNoContent = errors.New("no content extracted from document")

	// ErrNotRunning indicates an operation on a stopped processor.
	ErrNotRunning = errors.New("processor is not running")
)

// recoverable reports whether a task failure is eligible for a retry.
// Cancellation is never retried; everything wrapped in a stage sentinel
// is transient by contract.
func recoverable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return errors.Is(err, ErrExtraction) ||
		errors.Is(err, ErrEmbedding) ||
		errors.Is(err, ErrStore) ||
		errors.Is(err, ErrNoContent)
}

// canceled reports whether a task failure is a cooperative cancellation.
func canceled(err error) bool {
	return errors.Is(err, context.Canceled)
}
