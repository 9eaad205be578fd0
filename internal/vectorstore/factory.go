package vectorstore

import (
	"fmt"

	lcembeddings "github.com/tmc/langchaingo/embeddings"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ingestd/internal/config"
)

// Embedder is the combined embedding surface the factory needs: query
// embedding for chromem and the langchaingo embedder for Qdrant.
type Embedder interface {
	QueryEmbedder
	Embedder() lcembeddings.Embedder
}

// New constructs the Store selected by cfg.Provider.
func New(cfg config.VectorStoreConfig, embedder Embedder, logger *zap.Logger) (Store, error) {
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedder is required", ErrInvalidConfig)
	}

	switch cfg.Provider {
	case "chromem":
		return NewChromemStore(ChromemConfig{
			Path:       cfg.Chromem.Path,
			Compress:   cfg.Chromem.Compress,
			Collection: cfg.Collection,
			VectorSize: cfg.VectorSize,
		}, embedder, logger)
	case "qdrant":
		return NewQdrantStore(QdrantConfig{
			URL:        cfg.Qdrant.URL,
			Collection: cfg.Collection,
		}, embedder.Embedder(), logger)
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrInvalidConfig, cfg.Provider)
	}
}
