// Package extraction turns uploaded files into bounded text chunks ready
// for vectorization. Loading and splitting are delegated to langchaingo's
// document loaders and text splitters.
package extraction

import (
	"context"
	"errors"
)

// Sentinel errors for extraction operations.
var (
	// ErrUnsupportedType is returned for file types with no loader.
	ErrUnsupportedType = errors.New("unsupported document type")

	// ErrInvalidConfig indicates invalid configuration.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// ChunkMetadata locates a chunk within its source document.
type ChunkMetadata struct {
	// Source is the path the chunk was extracted from.
	Source string `json:"source"`

	// Page is the zero-based page index within the source, when the
	// loader provides one.
	Page int `json:"page"`

	// Ordinal is the chunk's position within one extraction run.
	// Ordinals are contiguous starting at 0.
	Ordinal int `json:"ordinal"`
}

// Chunk is a bounded span of extracted text, the unit of vectorization.
// Chunks are transient pipeline artifacts and are never persisted here.
type Chunk struct {
	Content  string        `json:"content"`
	Metadata ChunkMetadata `json:"metadata"`
}

// Extractor extracts and chunks a document.
type Extractor interface {
	// Extract loads the file at path and returns its chunks in order.
	// A readable file with no extractable text yields an empty slice and
	// no error; classifying that as a failure is the caller's concern.
	Extract(ctx context.Context, path string) ([]Chunk, error)
}
