package extraction

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, Config{ChunkSize: 100, ChunkOverlap: 10}.Validate())
	assert.ErrorIs(t, Config{ChunkSize: 0}.Validate(), ErrInvalidConfig)
	assert.ErrorIs(t, Config{ChunkSize: 10, ChunkOverlap: 10}.Validate(), ErrInvalidConfig)
	assert.ErrorIs(t, Config{ChunkSize: 10, ChunkOverlap: -1}.Validate(), ErrInvalidConfig)
}

func TestLoaderExtractor_TextFile(t *testing.T) {
	extractor, err := NewLoaderExtractor(Config{ChunkSize: 64, ChunkOverlap: 8}, zap.NewNop())
	require.NoError(t, err)

	content := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 20)
	path := writeFile(t, "doc.txt", content)

	chunks, err := extractor.Extract(context.Background(), path)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	for i, chunk := range chunks {
		assert.Equal(t, i, chunk.Metadata.Ordinal, "ordinals must be contiguous from 0")
		assert.Equal(t, path, chunk.Metadata.Source)
		assert.NotEmpty(t, strings.TrimSpace(chunk.Content))
		assert.LessOrEqual(t, len(chunk.Content), 64+8)
	}
}

func TestLoaderExtractor_MarkdownAndHTML(t *testing.T) {
	extractor, err := NewLoaderExtractor(Config{ChunkSize: 512, ChunkOverlap: 0}, zap.NewNop())
	require.NoError(t, err)
	ctx := context.Background()

	md := writeFile(t, "notes.md", "# Heading\n\nSome markdown body text.\n")
	chunks, err := extractor.Extract(ctx, md)
	require.NoError(t, err)
	assert.NotEmpty(t, chunks)

	html := writeFile(t, "page.html", "<html><body><p>Rendered paragraph text.</p></body></html>")
	chunks, err = extractor.Extract(ctx, html)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	assert.Contains(t, chunks[0].Content, "Rendered paragraph text")
}

func TestLoaderExtractor_EmptyFileYieldsNoChunks(t *testing.T) {
	extractor, err := NewLoaderExtractor(Config{ChunkSize: 64, ChunkOverlap: 0}, zap.NewNop())
	require.NoError(t, err)

	path := writeFile(t, "empty.txt", "   \n\n  ")
	chunks, err := extractor.Extract(context.Background(), path)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestLoaderExtractor_UnsupportedType(t *testing.T) {
	extractor, err := NewLoaderExtractor(Config{ChunkSize: 64, ChunkOverlap: 0}, zap.NewNop())
	require.NoError(t, err)

	path := writeFile(t, "binary.exe", "MZ")
	_, err = extractor.Extract(context.Background(), path)
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestLoaderExtractor_MissingFile(t *testing.T) {
	extractor, err := NewLoaderExtractor(Config{ChunkSize: 64, ChunkOverlap: 0}, zap.NewNop())
	require.NoError(t, err)

	_, err = extractor.Extract(context.Background(), filepath.Join(t.TempDir(), "gone.txt"))
	assert.Error(t, err)
}

func TestPageFromMetadata(t *testing.T) {
	assert.Equal(t, 3, pageFromMetadata(map[string]any{"page": 3}, 0))
	assert.Equal(t, 2, pageFromMetadata(map[string]any{"page": float64(2)}, 0))
	assert.Equal(t, 7, pageFromMetadata(map[string]any{}, 7))
	assert.Equal(t, 7, pageFromMetadata(map[string]any{"page": "x"}, 7))
}
