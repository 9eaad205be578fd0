package extraction

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tmc/langchaingo/documentloaders"
	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/textsplitter"
	"go.uber.org/zap"
)

// Config holds chunking configuration for the loader extractor.
type Config struct {
	// ChunkSize is the maximum chunk length in characters.
	ChunkSize int

	// ChunkOverlap is the character overlap between adjacent chunks.
	ChunkOverlap int
}

// Validate validates the configuration.
func (c Config) Validate() error {
	if c.ChunkSize < 1 {
		return fmt.Errorf("%w: chunk size must be >= 1", ErrInvalidConfig)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: chunk overlap must be in 0..chunk_size-1", ErrInvalidConfig)
	}
	return nil
}

// LoaderExtractor extracts text with langchaingo document loaders and
// splits it with a recursive character splitter. The loader is selected
// by file extension.
type LoaderExtractor struct {
	config   Config
	splitter textsplitter.RecursiveCharacter
	logger   *zap.Logger
}

var _ Extractor = (*LoaderExtractor)(nil)

// NewLoaderExtractor creates an extractor with the given chunking config.
func NewLoaderExtractor(config Config, logger *zap.Logger) (*LoaderExtractor, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(config.ChunkSize),
		textsplitter.WithChunkOverlap(config.ChunkOverlap),
	)

	return &LoaderExtractor{
		config:   config,
		splitter: splitter,
		logger:   logger,
	}, nil
}

// Extract loads the file, splits each loaded page, and assigns contiguous
// chunk ordinals.
func (e *LoaderExtractor) Extract(ctx context.Context, path string) ([]Chunk, error) {
	docs, err := e.load(ctx, path)
	if err != nil {
		return nil, err
	}

	chunks := make([]Chunk, 0, len(docs))
	for pageIdx, doc := range docs {
		parts, err := e.splitter.SplitText(doc.PageContent)
		if err != nil {
			return nil, fmt.Errorf("splitting text from %s: %w", path, err)
		}
		page := pageFromMetadata(doc.Metadata, pageIdx)
		for _, part := range parts {
			if strings.TrimSpace(part) == "" {
				continue
			}
			chunks = append(chunks, Chunk{
				Content: part,
				Metadata: ChunkMetadata{
					Source:  path,
					Page:    page,
					Ordinal: len(chunks),
				},
			})
		}
	}

	e.logger.Debug("extracted chunks",
		zap.String("path", path),
		zap.Int("pages", len(docs)),
		zap.Int("chunks", len(chunks)),
	)

	return chunks, nil
}

// load opens the file and runs the loader matching its extension.
func (e *LoaderExtractor) load(ctx context.Context, path string) ([]schema.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".txt", ".md", ".text", ".log":
		return documentloaders.NewText(f).Load(ctx)
	case ".html", ".htm":
		return documentloaders.NewHTML(f).Load(ctx)
	case ".csv":
		return documentloaders.NewCSV(f).Load(ctx)
	case ".pdf":
		info, err := f.Stat()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", path, err)
		}
		return documentloaders.NewPDF(f, info.Size()).Load(ctx)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, ext)
	}
}

// pageFromMetadata pulls a page index out of loader metadata, falling
// back to the document's position in the load order. langchaingo loaders
// are inconsistent about the value type.
func pageFromMetadata(meta map[string]any, fallback int) int {
	v, ok := meta["page"]
	if !ok {
		return fallback
	}
	switch p := v.(type) {
	case int:
		return p
	case float64:
		return int(p)
	default:
		return fallback
	}
}
