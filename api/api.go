// Package api provides an HTTP API server for driving extraction, backfill,
// and retrieval against the conversation memory store.
package api

import (
	"sync/atomic"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/storylore/chronicle/pkg/backfill"
	"github.com/storylore/chronicle/pkg/extract"
	"github.com/storylore/chronicle/pkg/recall"
	"github.com/storylore/chronicle/pkg/storage"
)

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8090")
	ListenAddr string
}

// Server is the API server for the chronicle memory pipeline.
type Server struct {
	config    Config
	store     storage.Driver
	extractor *extract.Orchestrator
	scheduler *backfill.Scheduler
	retriever *recall.Retriever
	logger    *zap.Logger
	app       *fiber.App

	// status holds the most recent pipeline lifecycle state. Informational
	// only; it does not serialize operations.
	status atomic.Value
}

// NewServer creates a new API server. The pipeline components are injected
// so the CLI and server share one wiring path.
func NewServer(config Config, store storage.Driver, extractor *extract.Orchestrator, scheduler *backfill.Scheduler, retriever *recall.Retriever, logger *zap.Logger) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		config:    config,
		store:     store,
		extractor: extractor,
		scheduler: scheduler,
		retriever: retriever,
		logger:    logger,
		app:       app,
	}
	s.status.Store(extract.StatusReady)

	app.Get("/ping", s.handlePing)
	app.Get("/status", s.handleStatus)
	app.Get("/sessions", s.handleListSessions)
	app.Get("/sessions/:id/memories", s.handleListMemories)
	app.Post("/sessions/:id/extract", s.handleExtract)
	app.Post("/sessions/:id/backfill", s.handleBackfill)
	app.Post("/sessions/:id/recall", s.handleRecall)
	app.Put("/sessions/:id/settings", s.handleUpdateSettings)
	app.Delete("/sessions/:id", s.handleDeleteSession)

	return s
}

// SetStatus records a pipeline status transition. Wired as the pipeline's
// StatusFunc sink.
func (s *Server) SetStatus(status extract.Status) {
	s.status.Store(status)
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server",
		zap.String("listen", s.config.ListenAddr),
	)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// App exposes the fiber app for tests.
func (s *Server) App() *fiber.App {
	return s.app
}
