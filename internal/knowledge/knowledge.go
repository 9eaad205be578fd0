// Package knowledge records knowledge entries produced by completed
// document runs. An entry summarizes what a document contributed to the
// vector store (chunk count, total content length) without storing the
// content itself.
package knowledge

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound indicates the entry does not exist.
	ErrNotFound = errors.New("knowledge entry not found")

	// ErrAlreadyExists indicates an entry with the same ID exists.
	ErrAlreadyExists = errors.New("knowledge entry already exists")

	// ErrInvalidEntry indicates a malformed entry.
	ErrInvalidEntry = errors.New("invalid knowledge entry")
)

// Entry is a single knowledge record for a processed document.
type Entry struct {
	ID            string    `json:"id"`
	DocumentID    string    `json:"document_id"`
	UserID        string    `json:"user_id,omitempty"`
	Name          string    `json:"name"`
	Description   string    `json:"description,omitempty"`
	ChunkCount    int       `json:"chunk_count"`
	ContentLength int       `json:"content_length"`
	CreatedAt     time.Time `json:"created_at"`
}

// Validate checks the entry for required fields.
func (e *Entry) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("%w: id required", ErrInvalidEntry)
	}
	if e.DocumentID == "" {
		return fmt.Errorf("%w: document_id required", ErrInvalidEntry)
	}
	if e.Name == "" {
		return fmt.Errorf("%w: name required", ErrInvalidEntry)
	}
	if e.ChunkCount < 0 {
		return fmt.Errorf("%w: chunk_count must be non-negative", ErrInvalidEntry)
	}
	return nil
}

// Store persists knowledge entries.
type Store interface {
	// Create stores a new entry. Returns ErrAlreadyExists if the ID is
	// taken.
	Create(ctx context.Context, entry *Entry) error

	// Get returns the entry with the given ID.
	Get(ctx context.Context, id string) (*Entry, error)

	// List returns all entries, newest first. A non-empty userID
	// restricts results to that user.
	List(ctx context.Context, userID string) ([]*Entry, error)

	// Close releases store resources.
	Close() error
}
