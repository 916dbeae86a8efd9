package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/satgraffin/satgraffin/internal/core/ports/driven"
	"github.com/satgraffin/satgraffin/internal/core/ports/driving"
)

// Pinger is a simple health check interface
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	router     *http.ServeMux
	version    string
	logger     *slog.Logger

	// Services
	queryService    driving.QueryService
	indexingService driving.IndexingService
	authService     driving.AuthService // nil disables the admin routes

	// Infrastructure
	taskQueue driven.TaskQueue // optional, reported by admin status
	checks    map[string]Pinger
}

// Config holds server configuration
type Config struct {
	Host           string
	Port           int
	Version        string
	AllowedOrigins []string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Host:           "0.0.0.0",
		Port:           8000,
		Version:        "dev",
		AllowedOrigins: []string{"http://localhost:5173", "http://127.0.0.1:5173"},
	}
}

// NewServer creates a new HTTP server.
// checks are named component health checks reported by /health.
func NewServer(
	cfg Config,
	queryService driving.QueryService,
	indexingService driving.IndexingService,
	authService driving.AuthService, // can be nil
	taskQueue driven.TaskQueue, // can be nil
	checks map[string]Pinger,
	logger *slog.Logger,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		router:          http.NewServeMux(),
		version:         cfg.Version,
		logger:          logger,
		queryService:    queryService,
		indexingService: indexingService,
		authService:     authService,
		taskQueue:       taskQueue,
		checks:          checks,
	}

	s.setupRoutes()

	handler := NewRecoveryMiddleware(logger).Handler(
		NewLoggingMiddleware(logger).Handler(
			NewCORSMiddleware(cfg.AllowedOrigins).Handler(s.router)))

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute, // synchronous indexing runs inside the request
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	s.router.HandleFunc("GET /{$}", s.handleRoot)

	// Health endpoints (no auth)
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /ready", s.handleReady)
	s.router.HandleFunc("GET /version", s.handleVersion)

	// Query endpoints (public); /api/query is the path the web frontend calls
	s.router.HandleFunc("POST /query", s.handleQuery)
	s.router.HandleFunc("POST /api/query", s.handleQuery)

	if s.authService == nil {
		return
	}

	// Admin endpoints
	authMiddleware := NewAuthMiddleware(s.authService)
	admin := func(h http.HandlerFunc) http.Handler {
		return authMiddleware.Authenticate(authMiddleware.RequireAdmin(h))
	}

	s.router.HandleFunc("POST /api/v1/admin/login", s.handleLogin)
	s.router.Handle("POST /api/v1/admin/index", admin(s.handleIndexPage))
	s.router.Handle("POST /api/v1/admin/rebuild", admin(s.handleRebuild))
	s.router.Handle("GET /api/v1/admin/links", admin(s.handleListLinks))
	s.router.Handle("GET /api/v1/admin/status", admin(s.handleStatus))
}

// Handler returns the fully wrapped HTTP handler
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.logger.Info("server stopped")
	return nil
}

// Stop stops the server
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
