// Package server sets up the HTTP server, router, and all route definitions.
//
// This is the composition root of the HTTP surface: handlers, middleware and
// routes are wired here and nowhere else. The caller builds the executor and
// opens the database, so the CLI commands can share them.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/codesphere/internal/auth"
	"github.com/sakif/codesphere/internal/executor"
	"github.com/sakif/codesphere/internal/handler"
	"github.com/sakif/codesphere/internal/language"
	"github.com/sakif/codesphere/internal/middleware"
	"github.com/sakif/codesphere/internal/repository"
	"github.com/sakif/codesphere/internal/service"
)

// Config holds server configuration.
type Config struct {
	Port int
	// TokenSecret enables bearer token checks on /api. Empty leaves the API
	// open.
	TokenSecret string
	// ExecTimeout is the longest a single run may take. It sizes the write
	// timeout so a slow program is not cut off by the HTTP layer.
	ExecTimeout time.Duration
}

// Storage is what the server needs from the database.
type Storage interface {
	repository.SnippetRepository
	repository.RunRepository
}

// Server represents the HTTP server and all its dependencies.
type Server struct {
	router  *chi.Mux
	config  Config
	logger  *slog.Logger
	execSvc *service.ExecutionService
}

// New wires the services and routes.
//
// Each layer only receives what it needs: services get repository
// interfaces, handlers get services.
func New(cfg Config, logger *slog.Logger, exec executor.Executor, store Storage, toolchains *language.Registry) (*Server, error) {
	var tokens *auth.TokenService
	if cfg.TokenSecret != "" {
		var err error
		tokens, err = auth.NewTokenService(cfg.TokenSecret)
		if err != nil {
			return nil, fmt.Errorf("configuring API tokens: %w", err)
		}
	} else {
		logger.Warn("auth.token_secret not set; the API is open to anyone who can reach it")
	}

	s := &Server{
		router:  chi.NewRouter(),
		config:  cfg,
		logger:  logger,
		execSvc: service.NewExecutionService(exec, store, logger),
	}
	s.setupRoutes(tokens, service.NewSnippetService(store, logger), toolchains)
	return s, nil
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
// GET    /healthz               → liveness probe (no auth)
// POST   /api/execute           → run code, wait for the report
// GET    /api/languages         → toolchains and starter templates
// GET    /api/ws                → WebSocket execution channel
// GET    /api/runs              → run history
// POST   /api/runs              → queue a run (202)
// GET    /api/runs/{id}         → poll one run
// GET    /api/snippets          → list snippets
// POST   /api/snippets          → create snippet
// GET    /api/snippets/{id}     → get snippet
// PUT    /api/snippets/{id}     → update snippet
// DELETE /api/snippets/{id}     → delete snippet
//
// Middleware order: RequestID first so the logger can print it, Recoverer
// last so a panic is still logged as a 500.
func (s *Server) setupRoutes(tokens *auth.TokenService, snippets *service.SnippetService, toolchains *language.Registry) {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	executeHandler := handler.NewExecuteHandler(s.execSvc, s.logger)
	runsHandler := handler.NewRunsHandler(s.execSvc, s.logger)
	wsHandler := handler.NewWebSocketHandler(s.execSvc, s.logger)
	snippetHandler := handler.NewSnippetHandler(snippets, s.logger)
	languagesHandler := handler.NewLanguagesHandler(toolchains)

	s.router.Route("/api", func(r chi.Router) {
		r.Use(auth.RequireToken(tokens))

		r.Post("/execute", executeHandler.HandleExecute)
		r.Get("/languages", languagesHandler.HandleList)
		r.Get("/ws", wsHandler.HandleWebSocket)

		r.Get("/runs", runsHandler.HandleList)
		r.Post("/runs", runsHandler.HandleSubmit)
		r.Get("/runs/{id}", runsHandler.HandleGet)

		r.Get("/snippets", snippetHandler.HandleList)
		r.Post("/snippets", snippetHandler.HandleCreate)
		r.Get("/snippets/{id}", snippetHandler.HandleGet)
		r.Put("/snippets/{id}", snippetHandler.HandleUpdate)
		r.Delete("/snippets/{id}", snippetHandler.HandleDelete)
	})
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled, then shuts down gracefully:
//  1. stop accepting connections
//  2. wait up to 30s for in-flight requests
//  3. cancel queued runs and wait for their records to be written
func (s *Server) Start(ctx context.Context) error {
	defer s.execSvc.Close()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      s.config.ExecTimeout + 15*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.Duration("exec_timeout", s.config.ExecTimeout),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case <-ctx.Done():
		s.logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
