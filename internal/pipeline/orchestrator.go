package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ingestd/internal/document"
	"github.com/fyrsmithlabs/ingestd/internal/extraction"
	"github.com/fyrsmithlabs/ingestd/internal/knowledge"
	"github.com/fyrsmithlabs/ingestd/internal/vectorstore"
)

// Progress checkpoints per stage. The scale resets to 0 when a document
// is re-queued.
const (
	progressProcessing  = 10
	progressChunking    = 30
	progressVectorizing = 60
	progressPersisted   = 80
	progressCompleted   = 100
)

// Extractor produces chunks from a document file.
type Extractor interface {
	Extract(ctx context.Context, path string) ([]extraction.Chunk, error)
}

// Embedder turns chunk texts into vectors.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorWriter persists embedded chunks.
type VectorWriter interface {
	AddDocuments(ctx context.Context, docs []vectorstore.Document) ([]string, error)
}

// KnowledgeWriter records knowledge entries for completed documents.
type KnowledgeWriter interface {
	Create(ctx context.Context, entry *knowledge.Entry) error
}

// orchestrator runs a single document task through its stages, writing
// status and progress checkpoints to the record store. Blocking stage
// work runs on the executor; cancellation is checked at every stage
// boundary, so an in-flight extract or embed call finishes before a
// cancel takes effect.
type orchestrator struct {
	records   document.RecordStore
	extractor Extractor
	embedder  Embedder
	vectors   VectorWriter
	knowledge KnowledgeWriter // optional, best effort
	executor  *executor
	logger    *zap.Logger
	metrics   *Metrics
}

// run executes the pipeline for rec. It returns nil on completion, a
// context error when cancelled at a checkpoint, or a stage sentinel
// error otherwise. Final failure states are written by the caller.
func (o *orchestrator) run(ctx context.Context, rec *document.Record) error {
	log := o.logger.With(zap.String("document_id", rec.ID))

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := o.checkpoint(ctx, rec.ID, document.StatusProcessing, progressProcessing); err != nil {
		return err
	}

	// Extract and chunk.
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := o.checkpoint(ctx, rec.ID, document.StatusChunking, progressChunking); err != nil {
		return err
	}

	start := time.Now()
	var chunks []extraction.Chunk
	err := o.executor.run(ctx, func() error {
		var extractErr error
		chunks, extractErr = o.extractor.Extract(context.Background(), rec.Path)
		return extractErr
	})
	o.metrics.RecordStage(ctx, "extract", time.Since(start))
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", ErrExtraction, err)
	}
	if len(chunks) == 0 {
		return fmt.Errorf("%w: %s", ErrNoContent, rec.Filename)
	}
	log.Debug("document chunked", zap.Int("chunks", len(chunks)))

	// Embed.
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := o.checkpoint(ctx, rec.ID, document.StatusVectorizing, progressVectorizing); err != nil {
		return err
	}

	texts := make([]string, len(chunks))
	contentLength := 0
	for i, chunk := range chunks {
		texts[i] = chunk.Content
		contentLength += len(chunk.Content)
	}

	start = time.Now()
	var vectors [][]float32
	err = o.executor.run(ctx, func() error {
		var embedErr error
		vectors, embedErr = o.embedder.EmbedDocuments(context.Background(), texts)
		return embedErr
	})
	o.metrics.RecordStage(ctx, "embed", time.Since(start))
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", ErrEmbedding, err)
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("%w: got %d vectors for %d chunks", ErrEmbedding, len(vectors), len(chunks))
	}

	// Persist vectors.
	if err := ctx.Err(); err != nil {
		return err
	}
	start = time.Now()
	docs := make([]vectorstore.Document, len(chunks))
	for i, chunk := range chunks {
		docs[i] = vectorstore.Document{
			ID:      fmt.Sprintf("%s_chunk_%d", rec.ID, chunk.Metadata.Ordinal),
			Content: chunk.Content,
			Metadata: map[string]any{
				"document_id": rec.ID,
				"source":      chunk.Metadata.Source,
				"page":        chunk.Metadata.Page,
				"ordinal":     chunk.Metadata.Ordinal,
				"user_id":     rec.UserID,
			},
			Embedding: vectors[i],
		}
	}
	if _, err := o.vectors.AddDocuments(ctx, docs); err != nil {
		o.metrics.RecordStage(ctx, "persist", time.Since(start))
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", ErrStore, err)
	}
	o.metrics.RecordStage(ctx, "persist", time.Since(start))

	if err := o.progress(ctx, rec.ID, progressPersisted); err != nil {
		return err
	}

	// Knowledge entry is best effort; its failure never fails the run.
	o.recordKnowledge(ctx, rec, len(chunks), contentLength, log)

	if err := ctx.Err(); err != nil {
		return err
	}
	completed := document.StatusCompleted
	if _, err := o.records.Update(ctx, rec.ID, document.UpdateFields{
		Status:     &completed,
		Progress:   document.Ptr(progressCompleted),
		Error:      document.Ptr(""),
		RetryCount: document.Ptr(0),
	}); err != nil {
		return fmt.Errorf("recording completion: %w", err)
	}

	log.Info("document processing completed", zap.Int("chunks", len(chunks)))
	return nil
}

// checkpoint writes a status transition plus its progress value. A
// failed write aborts the run; the record may have been cancelled
// underneath the task.
func (o *orchestrator) checkpoint(ctx context.Context, id string, status document.Status, progress int) error {
	if _, err := o.records.Update(ctx, id, document.UpdateFields{
		Status:   &status,
		Progress: document.Ptr(progress),
	}); err != nil {
		return fmt.Errorf("checkpoint %s: %w", status, err)
	}
	return nil
}

func (o *orchestrator) progress(ctx context.Context, id string, progress int) error {
	if _, err := o.records.Update(ctx, id, document.UpdateFields{
		Progress: document.Ptr(progress),
	}); err != nil {
		return fmt.Errorf("recording progress %d: %w", progress, err)
	}
	return nil
}

func (o *orchestrator) recordKnowledge(ctx context.Context, rec *document.Record, chunkCount, contentLength int, log *zap.Logger) {
	if o.knowledge == nil {
		return
	}

	entry := &knowledge.Entry{
		ID:            uuid.NewString(),
		DocumentID:    rec.ID,
		UserID:        rec.UserID,
		Name:          rec.Filename,
		Description:   fmt.Sprintf("Document %s processed into %d chunks", rec.Filename, chunkCount),
		ChunkCount:    chunkCount,
		ContentLength: contentLength,
	}
	if err := o.knowledge.Create(ctx, entry); err != nil {
		log.Warn("knowledge entry creation failed",
			zap.String("entry_id", entry.ID),
			zap.Error(err),
		)
	}
}
