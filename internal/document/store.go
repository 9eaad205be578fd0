package document

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for record store operations.
var (
	// ErrNotFound is returned when a document record does not exist.
	ErrNotFound = errors.New("document record not found")

	// ErrAlreadyExists is returned when creating a record with a taken ID.
	ErrAlreadyExists = errors.New("document record already exists")

	// ErrInvalidTransition is returned when an update requests an illegal
	// status transition.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrProgressRegression is returned when an update would decrease
	// progress outside a fresh QUEUED run.
	ErrProgressRegression = errors.New("progress cannot decrease")
)

// UpdateFields carries optional record mutations. Nil fields are left
// untouched; a non-nil Status and RetryCount in the same update are
// applied atomically.
type UpdateFields struct {
	Status     *Status
	Progress   *int
	Error      *string // pointer to empty string clears the error
	RetryCount *int
}

// RecordStore persists document processing records. All status and
// progress writes flow through Update, which enforces the transition
// table and progress monotonicity.
type RecordStore interface {
	// Create stores a new record. The record must carry an ID.
	Create(ctx context.Context, rec *Record) error

	// Get returns a copy of the record, or ErrNotFound.
	Get(ctx context.Context, id string) (*Record, error)

	// Update applies fields to the record atomically. Illegal transitions
	// fail with ErrInvalidTransition; the record is left unchanged.
	Update(ctx context.Context, id string, fields UpdateFields) (*Record, error)

	// Delete removes the record, or returns ErrNotFound.
	Delete(ctx context.Context, id string) error

	// List returns copies of all records.
	List(ctx context.Context) ([]*Record, error)

	// Close releases store resources.
	Close() error
}

// applyUpdate mutates rec in place per fields, enforcing the state
// machine. Shared by all store implementations so they agree on the
// semantics. Timestamps:
//   - StartedAt is set on the first PROCESSING transition of a run
//   - CompletedAt is set on any terminal transition
//   - QUEUED resets progress to 0, clears the error, and clears
//     StartedAt/CompletedAt so a fresh run restarts the scale
func applyUpdate(rec *Record, fields UpdateFields, now time.Time) error {
	if fields.Status != nil && *fields.Status != rec.Status {
		next := *fields.Status
		if !next.Valid() {
			return fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, next)
		}
		if !rec.Status.CanTransitionTo(next) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, rec.Status, next)
		}
		rec.Status = next

		switch {
		case next == StatusQueued:
			rec.Progress = 0
			rec.Error = ""
			rec.StartedAt = nil
			rec.CompletedAt = nil
		case next == StatusProcessing && rec.StartedAt == nil:
			t := now
			rec.StartedAt = &t
		case next.Terminal():
			t := now
			rec.CompletedAt = &t
		}
	}

	if fields.Progress != nil {
		if *fields.Progress < rec.Progress {
			return fmt.Errorf("%w: %d -> %d", ErrProgressRegression, rec.Progress, *fields.Progress)
		}
		rec.Progress = *fields.Progress
	}

	if fields.Error != nil {
		rec.Error = *fields.Error
	}

	if fields.RetryCount != nil {
		rec.RetryCount = *fields.RetryCount
	}

	rec.UpdatedAt = now
	return nil
}

// Ptr is a convenience for building UpdateFields literals.
func Ptr[T any](v T) *T {
	return &v
}
