package main

import (
	"context"
	"errors"
	"fmt"
	nethttp "net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ingestd/internal/config"
	"github.com/fyrsmithlabs/ingestd/internal/document"
	"github.com/fyrsmithlabs/ingestd/internal/embeddings"
	"github.com/fyrsmithlabs/ingestd/internal/extraction"
	"github.com/fyrsmithlabs/ingestd/internal/http"
	"github.com/fyrsmithlabs/ingestd/internal/knowledge"
	"github.com/fyrsmithlabs/ingestd/internal/logging"
	"github.com/fyrsmithlabs/ingestd/internal/pipeline"
	"github.com/fyrsmithlabs/ingestd/internal/vectorstore"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the ingestd daemon",
	Long: `Run the ingestd daemon: the document pipeline plus its HTTP API.

Configuration is read from the --config file (YAML) with INGESTD_*
environment variables taking precedence.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger, err := logging.NewLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("initializing logging: %w", err)
	}
	defer logger.Sync() //nolint:errcheck
	zlog := logger.Underlying()

	// Record and knowledge persistence.
	var (
		records        document.RecordStore
		knowledgeStore knowledge.Store
	)
	switch cfg.Storage.Provider {
	case "memory":
		records = document.NewMemoryStore()
		knowledgeStore = knowledge.NewMemoryStore()
	default:
		path, err := config.ExpandPath(cfg.Storage.Path)
		if err != nil {
			return fmt.Errorf("expanding storage path: %w", err)
		}
		db, err := document.OpenBadger(path, zlog)
		if err != nil {
			return fmt.Errorf("opening record database: %w", err)
		}
		defer db.Close() //nolint:errcheck

		if records, err = document.NewBadgerStore(db, zlog); err != nil {
			return fmt.Errorf("creating record store: %w", err)
		}
		if knowledgeStore, err = knowledge.NewBadgerStore(db, zlog); err != nil {
			return fmt.Errorf("creating knowledge store: %w", err)
		}
	}

	extractor, err := extraction.NewLoaderExtractor(extraction.Config{
		ChunkSize:    cfg.Extraction.ChunkSize,
		ChunkOverlap: cfg.Extraction.ChunkOverlap,
	}, zlog)
	if err != nil {
		return fmt.Errorf("creating extractor: %w", err)
	}

	embedder, err := embeddings.NewService(embeddings.Config{
		BaseURL: cfg.Embeddings.BaseURL,
		Model:   cfg.Embeddings.Model,
		APIKey:  cfg.Embeddings.APIKey.Value(),
	}, zlog)
	if err != nil {
		return fmt.Errorf("creating embedding service: %w", err)
	}

	vectors, err := vectorstore.New(cfg.VectorStore, embedder, zlog)
	if err != nil {
		return fmt.Errorf("creating vector store: %w", err)
	}
	defer vectors.Close() //nolint:errcheck

	processor, err := pipeline.New(pipeline.Config{
		Workers:       cfg.Pipeline.Workers,
		ExecutorSize:  cfg.Pipeline.ExecutorSize,
		MaxRetries:    cfg.Pipeline.MaxRetries,
		BaseDelay:     cfg.Pipeline.BaseDelay.Duration(),
		WorkerBackoff: cfg.Pipeline.WorkerBackoff.Duration(),
	}, pipeline.Deps{
		Records:   records,
		Extractor: extractor,
		Embedder:  embedder,
		Vectors:   vectors,
		Knowledge: knowledgeStore,
		Logger:    zlog,
	})
	if err != nil {
		return fmt.Errorf("creating pipeline: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := processor.Start(ctx); err != nil {
		return fmt.Errorf("starting pipeline: %w", err)
	}

	server, err := http.NewServer(processor, records, knowledgeStore, zlog, http.Config{
		Host: cfg.Server.Host,
		Port: cfg.Server.Port,
	})
	if err != nil {
		return fmt.Errorf("creating http server: %w", err)
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		zlog.Info("shutdown signal received")
	case err := <-serverErr:
		zlog.Error("http server failed", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration())
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Warn("http shutdown incomplete", zap.Error(err))
	}
	if err := processor.Stop(shutdownCtx); err != nil {
		zlog.Warn("pipeline shutdown incomplete", zap.Error(err))
	}

	zlog.Info("ingestd stopped")
	return nil
}
