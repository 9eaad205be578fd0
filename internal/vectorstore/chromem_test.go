package vectorstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// stubEmbedder returns fixed vectors keyed by text so tests run without a
// real embedding service.
type stubEmbedder struct {
	vectors map[string][]float32
	def     []float32
}

func (e *stubEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	if v, ok := e.vectors[text]; ok {
		return v, nil
	}
	return e.def, nil
}

func newStubEmbedder() *stubEmbedder {
	return &stubEmbedder{
		vectors: map[string][]float32{
			"alpha": {1, 0, 0},
			"beta":  {0, 1, 0},
		},
		def: []float32{0, 0, 1},
	}
}

func newTestStore(t *testing.T) *ChromemStore {
	t.Helper()
	store, err := NewChromemStore(ChromemConfig{VectorSize: 3}, newStubEmbedder(), zap.NewNop())
	require.NoError(t, err)
	return store
}

func TestNewChromemStore_RequiresEmbedder(t *testing.T) {
	_, err := NewChromemStore(ChromemConfig{}, nil, zap.NewNop())
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestChromemStore_AddDocuments(t *testing.T) {
	store := newTestStore(t)

	ids, err := store.AddDocuments(context.Background(), []Document{
		{ID: "c1", Content: "alpha", Embedding: []float32{1, 0, 0}, Metadata: map[string]any{"source": "a.txt", "ordinal": 0}},
		{ID: "c2", Content: "beta", Embedding: []float32{0, 1, 0}, Metadata: map[string]any{"source": "a.txt", "ordinal": 1}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"c1", "c2"}, ids)
}

func TestChromemStore_AddDocuments_Empty(t *testing.T) {
	store := newTestStore(t)

	_, err := store.AddDocuments(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptyDocuments)
}

func TestChromemStore_AddDocuments_MissingID(t *testing.T) {
	store := newTestStore(t)

	_, err := store.AddDocuments(context.Background(), []Document{
		{Content: "alpha", Embedding: []float32{1, 0, 0}},
	})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestChromemStore_Search(t *testing.T) {
	store := newTestStore(t)

	_, err := store.AddDocuments(context.Background(), []Document{
		{ID: "c1", Content: "alpha", Embedding: []float32{1, 0, 0}, Metadata: map[string]any{"source": "a.txt"}},
		{ID: "c2", Content: "beta", Embedding: []float32{0, 1, 0}},
	})
	require.NoError(t, err)

	results, err := store.Search(context.Background(), "alpha", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "c1", results[0].ID)
	assert.Equal(t, "alpha", results[0].Content)
	assert.Equal(t, "a.txt", results[0].Metadata["source"])
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestChromemStore_Search_CapsKToCollectionSize(t *testing.T) {
	store := newTestStore(t)

	_, err := store.AddDocuments(context.Background(), []Document{
		{ID: "c1", Content: "alpha", Embedding: []float32{1, 0, 0}},
	})
	require.NoError(t, err)

	results, err := store.Search(context.Background(), "alpha", 10)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestChromemStore_Search_EmptyCollection(t *testing.T) {
	store := newTestStore(t)

	results, err := store.Search(context.Background(), "alpha", 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestChromemStore_Search_InvalidArgs(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Search(context.Background(), "", 5)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = store.Search(context.Background(), "alpha", 0)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestChromemStore_Persistence(t *testing.T) {
	dir := t.TempDir()

	store, err := NewChromemStore(ChromemConfig{Path: dir, VectorSize: 3}, newStubEmbedder(), zap.NewNop())
	require.NoError(t, err)

	_, err = store.AddDocuments(context.Background(), []Document{
		{ID: "c1", Content: "alpha", Embedding: []float32{1, 0, 0}},
	})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := NewChromemStore(ChromemConfig{Path: dir, VectorSize: 3}, newStubEmbedder(), zap.NewNop())
	require.NoError(t, err)

	results, err := reopened.Search(context.Background(), "alpha", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "c1", results[0].ID)
}

func TestQdrantConfig_Validate(t *testing.T) {
	assert.ErrorIs(t, QdrantConfig{}.Validate(), ErrInvalidConfig)
	assert.ErrorIs(t, QdrantConfig{URL: "http://localhost:6333"}.Validate(), ErrInvalidConfig)
	assert.NoError(t, QdrantConfig{URL: "http://localhost:6333", Collection: "c"}.Validate())
}
