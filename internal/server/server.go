// Package server provides the HTTP API for chunking, reranking and answer evaluation.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hyperjump/chunkrank/internal/config"
	"github.com/hyperjump/chunkrank/internal/evaluation"
	"github.com/hyperjump/chunkrank/internal/indexer"
	"github.com/hyperjump/chunkrank/internal/ranking"
	"go.uber.org/zap"
)

// MaxUploadMemory is the part of a multipart upload kept in memory; the rest spills to disk.
const MaxUploadMemory = 32 << 20

// Server is the HTTP server for the chunkrank API.
type Server struct {
	indexer   *indexer.Indexer
	ranker    *ranking.Ranker
	evaluator *evaluation.Scorer
	config    *config.ServerConfig
	logger    *zap.Logger
	server    *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(
	idx *indexer.Indexer,
	ranker *ranking.Ranker,
	evaluator *evaluation.Scorer,
	cfg *config.ServerConfig,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		indexer:   idx,
		ranker:    ranker,
		evaluator: evaluator,
		config:    cfg,
		logger:    logger,
	}
}

// Handler returns the API router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/documents/chunk", s.handleChunkDocument)
		r.Post("/documents/upload", s.handleUploadDocument)
		r.Post("/rerank", s.handleRerank)
		r.Post("/rerank/explain", s.handleExplain)
		r.Post("/evaluate", s.handleEvaluate)
	})
	r.Get("/health", s.handleHealth)
	return r
}

// Start starts the HTTP server and blocks until it stops. A graceful Stop returns nil.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
