// Package config provides configuration loading for ingestd.
package config

import (
	"fmt"
	"time"

	"github.com/fyrsmithlabs/ingestd/internal/logging"
)

// Config is the root configuration for the ingestd daemon.
type Config struct {
	Server      ServerConfig      `koanf:"server"`
	Logging     logging.Config    `koanf:"logging"`
	Pipeline    PipelineConfig    `koanf:"pipeline"`
	Storage     StorageConfig     `koanf:"storage"`
	Extraction  ExtractionConfig  `koanf:"extraction"`
	Embeddings  EmbeddingsConfig  `koanf:"embeddings"`
	VectorStore VectorStoreConfig `koanf:"vectorstore"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string   `koanf:"host"`
	Port            int      `koanf:"port"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
}

// PipelineConfig holds document processing pipeline configuration.
type PipelineConfig struct {
	// Workers is the number of worker goroutines draining the queue.
	// The default of 1 preserves strict dequeue-order processing.
	Workers int `koanf:"workers"`

	// ExecutorSize bounds the pool running blocking extraction and
	// embedding calls.
	ExecutorSize int `koanf:"executor_size"`

	// MaxRetries is the retry budget before a document is marked FAILED.
	MaxRetries int `koanf:"max_retries"`

	// BaseDelay is the base retry backoff; the delay grows linearly with
	// the attempt number.
	BaseDelay Duration `koanf:"base_delay"`

	// WorkerBackoff is the pause after an unexpected worker-loop failure.
	WorkerBackoff Duration `koanf:"worker_backoff"`
}

// StorageConfig selects the document/knowledge record persistence backend.
type StorageConfig struct {
	// Provider is "badger" (durable) or "memory" (ephemeral).
	Provider string `koanf:"provider"`

	// Path is the Badger database directory.
	Path string `koanf:"path"`
}

// ExtractionConfig holds text extraction and chunking configuration.
type ExtractionConfig struct {
	ChunkSize    int `koanf:"chunk_size"`
	ChunkOverlap int `koanf:"chunk_overlap"`
}

// EmbeddingsConfig holds embedding provider configuration.
type EmbeddingsConfig struct {
	// BaseURL is an OpenAI-compatible endpoint (OpenAI or a TEI gateway).
	BaseURL string `koanf:"base_url"`
	Model   string `koanf:"model"`
	APIKey  Secret `koanf:"api_key"`
}

// VectorStoreConfig selects and configures the vector store backend.
type VectorStoreConfig struct {
	// Provider is "chromem" (embedded, default) or "qdrant" (external).
	Provider   string        `koanf:"provider"`
	Collection string        `koanf:"collection"`
	VectorSize int           `koanf:"vector_size"`
	Chromem    ChromemConfig `koanf:"chromem"`
	Qdrant     QdrantConfig  `koanf:"qdrant"`
}

// ChromemConfig configures the embedded chromem-go store.
type ChromemConfig struct {
	Path     string `koanf:"path"`
	Compress bool   `koanf:"compress"`
}

// QdrantConfig configures the external Qdrant store.
type QdrantConfig struct {
	URL string `koanf:"url"`
}

// applyDefaults sets default values for missing configuration fields.
func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 9180
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = Duration(10 * time.Second)
	}

	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Fields == nil {
		cfg.Logging.Fields = map[string]string{"service": "ingestd"}
	}

	if cfg.Pipeline.Workers == 0 {
		cfg.Pipeline.Workers = 1
	}
	if cfg.Pipeline.ExecutorSize == 0 {
		cfg.Pipeline.ExecutorSize = 4
	}
	if cfg.Pipeline.MaxRetries == 0 {
		cfg.Pipeline.MaxRetries = 3
	}
	if cfg.Pipeline.BaseDelay == 0 {
		cfg.Pipeline.BaseDelay = Duration(60 * time.Second)
	}
	if cfg.Pipeline.WorkerBackoff == 0 {
		cfg.Pipeline.WorkerBackoff = Duration(5 * time.Second)
	}

	if cfg.Storage.Provider == "" {
		cfg.Storage.Provider = "badger"
	}
	if cfg.Storage.Path == "" {
		cfg.Storage.Path = "~/.config/ingestd/records"
	}

	if cfg.Extraction.ChunkSize == 0 {
		cfg.Extraction.ChunkSize = 1024
	}
	if cfg.Extraction.ChunkOverlap == 0 {
		cfg.Extraction.ChunkOverlap = 128
	}

	if cfg.Embeddings.BaseURL == "" {
		cfg.Embeddings.BaseURL = "http://localhost:8080/v1"
	}
	if cfg.Embeddings.Model == "" {
		cfg.Embeddings.Model = "BAAI/bge-small-en-v1.5"
	}

	if cfg.VectorStore.Provider == "" {
		cfg.VectorStore.Provider = "chromem"
	}
	if cfg.VectorStore.Collection == "" {
		cfg.VectorStore.Collection = "ingestd_documents"
	}
	if cfg.VectorStore.VectorSize == 0 {
		cfg.VectorStore.VectorSize = 384 // bge-small-en-v1.5 dimensions
	}
	if cfg.VectorStore.Chromem.Path == "" {
		cfg.VectorStore.Chromem.Path = "~/.config/ingestd/vectorstore"
	}
	if cfg.VectorStore.Qdrant.URL == "" {
		cfg.VectorStore.Qdrant.URL = "http://localhost:6333"
	}
}

// Validate checks configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be in 1..65535, got %d", c.Server.Port)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	if c.Pipeline.Workers < 1 {
		return fmt.Errorf("pipeline workers must be >= 1, got %d", c.Pipeline.Workers)
	}
	if c.Pipeline.ExecutorSize < 1 {
		return fmt.Errorf("pipeline executor_size must be >= 1, got %d", c.Pipeline.ExecutorSize)
	}
	if c.Pipeline.MaxRetries < 0 {
		return fmt.Errorf("pipeline max_retries must be >= 0, got %d", c.Pipeline.MaxRetries)
	}
	if c.Pipeline.BaseDelay.Duration() <= 0 {
		return fmt.Errorf("pipeline base_delay must be > 0")
	}
	switch c.Storage.Provider {
	case "badger", "memory":
	default:
		return fmt.Errorf("storage provider must be 'badger' or 'memory', got %q", c.Storage.Provider)
	}
	if c.Extraction.ChunkSize < 1 {
		return fmt.Errorf("extraction chunk_size must be >= 1, got %d", c.Extraction.ChunkSize)
	}
	if c.Extraction.ChunkOverlap < 0 || c.Extraction.ChunkOverlap >= c.Extraction.ChunkSize {
		return fmt.Errorf("extraction chunk_overlap must be in 0..chunk_size-1, got %d", c.Extraction.ChunkOverlap)
	}
	switch c.VectorStore.Provider {
	case "chromem", "qdrant":
	default:
		return fmt.Errorf("vectorstore provider must be 'chromem' or 'qdrant', got %q", c.VectorStore.Provider)
	}
	if c.VectorStore.VectorSize < 1 {
		return fmt.Errorf("vectorstore vector_size must be >= 1, got %d", c.VectorStore.VectorSize)
	}
	return nil
}
