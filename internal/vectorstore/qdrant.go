package vectorstore

import (
	"context"
	"fmt"
	"net/url"

	lcembeddings "github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/vectorstores"
	"github.com/tmc/langchaingo/vectorstores/qdrant"
	"go.uber.org/zap"
)

// QdrantConfig holds configuration for the Qdrant-backed store.
type QdrantConfig struct {
	// URL is the Qdrant server URL (e.g. http://localhost:6333).
	URL string

	// Collection is the Qdrant collection name.
	Collection string
}

// Validate validates the configuration.
func (c QdrantConfig) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("%w: URL required", ErrInvalidConfig)
	}
	if c.Collection == "" {
		return fmt.Errorf("%w: collection name required", ErrInvalidConfig)
	}
	return nil
}

// QdrantStore implements Store against an external Qdrant server via
// langchaingo. langchaingo embeds documents itself, so precomputed
// Document.Embedding vectors are ignored on this backend.
type QdrantStore struct {
	store  vectorstores.VectorStore
	config QdrantConfig
	logger *zap.Logger
}

// NewQdrantStore creates a QdrantStore. Collections are created on the
// server automatically if they do not exist.
func NewQdrantStore(config QdrantConfig, embedder lcembeddings.Embedder, logger *zap.Logger) (*QdrantStore, error) {
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedder is required", ErrInvalidConfig)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	qdrantURL, err := url.Parse(config.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing Qdrant URL: %w", err)
	}

	store, err := qdrant.New(
		qdrant.WithURL(*qdrantURL),
		qdrant.WithCollectionName(config.Collection),
		qdrant.WithEmbedder(embedder),
	)
	if err != nil {
		return nil, fmt.Errorf("creating Qdrant store: %w", err)
	}

	logger.Info("qdrant store initialized",
		zap.String("url", config.URL),
		zap.String("collection", config.Collection),
	)

	return &QdrantStore{
		store:  store,
		config: config,
		logger: logger,
	}, nil
}

// AddDocuments stores the given documents in the configured collection.
func (s *QdrantStore) AddDocuments(ctx context.Context, docs []Document) ([]string, error) {
	if len(docs) == 0 {
		return nil, ErrEmptyDocuments
	}

	schemaDocs := make([]schema.Document, len(docs))
	for i, doc := range docs {
		metadata := make(map[string]any, len(doc.Metadata)+1)
		for k, v := range doc.Metadata {
			metadata[k] = v
		}
		// The chunk ID rides along in metadata so search results can
		// be traced back to their source.
		metadata["id"] = doc.ID
		schemaDocs[i] = schema.Document{
			PageContent: doc.Content,
			Metadata:    metadata,
		}
	}

	ids, err := s.store.AddDocuments(ctx, schemaDocs)
	if err != nil {
		return nil, fmt.Errorf("%w: adding documents: %v", ErrStoreFailed, err)
	}

	s.logger.Debug("added documents to qdrant",
		zap.String("collection", s.config.Collection),
		zap.Int("count", len(docs)),
	)

	return ids, nil
}

// Search performs similarity search in the configured collection.
func (s *QdrantStore) Search(ctx context.Context, query string, k int) ([]SearchResult, error) {
	if query == "" {
		return nil, fmt.Errorf("%w: query cannot be empty", ErrInvalidConfig)
	}
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", ErrInvalidConfig, k)
	}

	docs, err := s.store.SimilaritySearch(ctx, query, k)
	if err != nil {
		return nil, fmt.Errorf("%w: similarity search: %v", ErrStoreFailed, err)
	}

	results := make([]SearchResult, len(docs))
	for i, doc := range docs {
		result := SearchResult{
			Content:  doc.PageContent,
			Metadata: doc.Metadata,
			Score:    doc.Score,
		}
		if id, ok := doc.Metadata["id"].(string); ok {
			result.ID = id
		}
		results[i] = result
	}
	return results, nil
}

// Close releases nothing; the HTTP client has no persistent resources.
func (s *QdrantStore) Close() error {
	return nil
}
