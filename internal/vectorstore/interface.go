// Package vectorstore provides vector storage backends for document chunks.
//
// Two implementations are available: an embedded chromem-go store that
// persists to local gob files and needs no external service, and a Qdrant
// store backed by langchaingo for deployments with a dedicated vector
// database. Both are selected through the factory in New.
package vectorstore

import (
	"context"
	"errors"
)

var (
	// ErrInvalidConfig indicates invalid configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrEmptyDocuments indicates empty or nil documents.
	ErrEmptyDocuments = errors.New("empty or nil documents")

	// ErrStoreFailed indicates the backend rejected a write or query.
	ErrStoreFailed = errors.New("vector store operation failed")
)

// Document is a single embedded chunk ready for storage.
type Document struct {
	// ID uniquely identifies the chunk. Callers must provide it.
	ID string

	// Content is the chunk text.
	Content string

	// Metadata carries chunk provenance (source document, page, ordinal).
	Metadata map[string]any

	// Embedding is the precomputed vector for Content. Backends that
	// embed internally may ignore it.
	Embedding []float32
}

// SearchResult is a single similarity search hit.
type SearchResult struct {
	ID       string
	Content  string
	Metadata map[string]any
	Score    float32
}

// Store is the vector storage contract used by the pipeline.
type Store interface {
	// AddDocuments stores the given documents and returns their IDs.
	AddDocuments(ctx context.Context, docs []Document) ([]string, error)

	// Search returns up to k documents similar to query, best first.
	Search(ctx context.Context, query string, k int) ([]SearchResult, error)

	// Close releases backend resources.
	Close() error
}
