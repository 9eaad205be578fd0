package pipeline

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/fyrsmithlabs/ingestd/internal/extraction"
	"github.com/fyrsmithlabs/ingestd/internal/knowledge"
	"github.com/fyrsmithlabs/ingestd/internal/vectorstore"
)

// mockExtractor returns canned chunks or an error. An optional gate
// channel blocks Extract until released so tests can hold a task
// in flight deterministically.
type mockExtractor struct {
	mu     sync.Mutex
	chunks []extraction.Chunk
	err    error
	gate   chan struct{}
	calls  atomic.Int64
}

func (m *mockExtractor) Extract(ctx context.Context, path string) ([]extraction.Chunk, error) {
	m.calls.Add(1)
	m.mu.Lock()
	gate := m.gate
	chunks, err := m.chunks, m.err
	m.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	return chunks, nil
}

func (m *mockExtractor) set(chunks []extraction.Chunk, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chunks = chunks
	m.err = err
}

func someChunks(n int) []extraction.Chunk {
	chunks := make([]extraction.Chunk, n)
	for i := range chunks {
		chunks[i] = extraction.Chunk{
			Content:  fmt.Sprintf("chunk %d", i),
			Metadata: extraction.ChunkMetadata{Source: "test.txt", Ordinal: i},
		}
	}
	return chunks
}

type mockEmbedder struct {
	err   error
	calls atomic.Int64
}

func (m *mockEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	m.calls.Add(1)
	if m.err != nil {
		return nil, m.err
	}
	vectors := make([][]float32, len(texts))
	for i := range vectors {
		vectors[i] = []float32{1, 0, 0}
	}
	return vectors, nil
}

type mockVectorWriter struct {
	mu    sync.Mutex
	err   error
	added [][]vectorstore.Document
}

func (m *mockVectorWriter) AddDocuments(ctx context.Context, docs []vectorstore.Document) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	m.added = append(m.added, docs)
	ids := make([]string, len(docs))
	for i, doc := range docs {
		ids[i] = doc.ID
	}
	return ids, nil
}

func (m *mockVectorWriter) batches() [][]vectorstore.Document {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]vectorstore.Document, len(m.added))
	copy(out, m.added)
	return out
}

type mockKnowledgeWriter struct {
	mu      sync.Mutex
	err     error
	entries []*knowledge.Entry
}

func (m *mockKnowledgeWriter) Create(ctx context.Context, entry *knowledge.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockKnowledgeWriter) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
