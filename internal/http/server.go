// Package http provides the REST API for ingestd.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ingestd/internal/document"
	"github.com/fyrsmithlabs/ingestd/internal/knowledge"
	"github.com/fyrsmithlabs/ingestd/internal/pipeline"
)

// DocumentProcessor is the pipeline surface the API exposes.
type DocumentProcessor interface {
	Enqueue(ctx context.Context, id string) bool
	GetStatus(ctx context.Context, id string) (*pipeline.StatusReport, error)
	Cancel(ctx context.Context, id string) bool
	Retry(ctx context.Context, id string) bool
}

// KnowledgeReader lists knowledge entries.
type KnowledgeReader interface {
	List(ctx context.Context, userID string) ([]*knowledge.Entry, error)
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int
}

// Server provides HTTP endpoints over the document pipeline.
type Server struct {
	echo      *echo.Echo
	processor DocumentProcessor
	records   document.RecordStore
	knowledge KnowledgeReader
	logger    *zap.Logger
	config    Config
}

// NewServer creates a new HTTP server. The knowledge reader is optional;
// without it the knowledge route returns an empty list.
func NewServer(processor DocumentProcessor, records document.RecordStore, knowledgeStore KnowledgeReader, logger *zap.Logger, cfg Config) (*Server, error) {
	if processor == nil {
		return nil, fmt.Errorf("processor cannot be nil")
	}
	if records == nil {
		return nil, fmt.Errorf("record store cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 8080
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			duration := time.Since(start)

			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", duration),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)

			return err
		}
	})

	s := &Server{
		echo:      e,
		processor: processor,
		records:   records,
		knowledge: knowledgeStore,
		logger:    logger,
		config:    cfg,
	}

	s.registerRoutes()

	return s, nil
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)

	v1 := s.echo.Group("/api/v1")
	v1.POST("/documents", s.handleCreateDocument)
	v1.GET("/documents", s.handleListDocuments)
	v1.GET("/documents/:id/status", s.handleStatus)
	v1.POST("/documents/:id/process", s.handleProcess)
	v1.POST("/documents/:id/cancel", s.handleCancel)
	v1.POST("/documents/:id/retry", s.handleRetry)
	v1.GET("/knowledge", s.handleListKnowledge)
}

// CreateDocumentRequest is the request body for POST /api/v1/documents.
type CreateDocumentRequest struct {
	Filename string `json:"filename"`
	Path     string `json:"path"`
	UserID   string `json:"user_id"`
}

// CreateDocumentResponse is the response body for POST /api/v1/documents.
type CreateDocumentResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// ActionResponse reports whether a pipeline operation was accepted.
type ActionResponse struct {
	ID       string `json:"id"`
	Accepted bool   `json:"accepted"`
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// handleCreateDocument registers an uploaded file and returns its ID.
// Processing starts only on an explicit process request.
func (s *Server) handleCreateDocument(c echo.Context) error {
	var req CreateDocumentRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid document request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Filename == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "filename field is required")
	}
	if req.Path == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "path field is required")
	}

	rec := &document.Record{
		ID:       uuid.NewString(),
		Filename: req.Filename,
		Path:     req.Path,
		UserID:   req.UserID,
	}
	if err := s.records.Create(c.Request().Context(), rec); err != nil {
		s.logger.Error("document registration failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to register document")
	}

	return c.JSON(http.StatusCreated, CreateDocumentResponse{
		ID:     rec.ID,
		Status: string(document.StatusUploaded),
	})
}

func (s *Server) handleListDocuments(c echo.Context) error {
	records, err := s.records.List(c.Request().Context())
	if err != nil {
		s.logger.Error("document listing failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list documents")
	}
	return c.JSON(http.StatusOK, records)
}

func (s *Server) handleStatus(c echo.Context) error {
	report, err := s.processor.GetStatus(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, document.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "document not found")
		}
		s.logger.Error("status lookup failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to read status")
	}
	return c.JSON(http.StatusOK, report)
}

func (s *Server) handleProcess(c echo.Context) error {
	id := c.Param("id")
	if s.processor.Enqueue(c.Request().Context(), id) {
		return c.JSON(http.StatusAccepted, ActionResponse{ID: id, Accepted: true})
	}
	return c.JSON(http.StatusConflict, ActionResponse{ID: id, Accepted: false})
}

func (s *Server) handleCancel(c echo.Context) error {
	id := c.Param("id")
	if s.processor.Cancel(c.Request().Context(), id) {
		return c.JSON(http.StatusOK, ActionResponse{ID: id, Accepted: true})
	}
	return c.JSON(http.StatusConflict, ActionResponse{ID: id, Accepted: false})
}

func (s *Server) handleRetry(c echo.Context) error {
	id := c.Param("id")
	if s.processor.Retry(c.Request().Context(), id) {
		return c.JSON(http.StatusAccepted, ActionResponse{ID: id, Accepted: true})
	}
	return c.JSON(http.StatusConflict, ActionResponse{ID: id, Accepted: false})
}

func (s *Server) handleListKnowledge(c echo.Context) error {
	if s.knowledge == nil {
		return c.JSON(http.StatusOK, []*knowledge.Entry{})
	}
	entries, err := s.knowledge.List(c.Request().Context(), c.QueryParam("user_id"))
	if err != nil {
		s.logger.Error("knowledge listing failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list knowledge entries")
	}
	return c.JSON(http.StatusOK, entries)
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}
