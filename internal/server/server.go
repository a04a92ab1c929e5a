package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/linkpulse/linkpulse/internal/auth"
	"github.com/linkpulse/linkpulse/internal/config"
	"github.com/linkpulse/linkpulse/internal/httpx"
	"github.com/linkpulse/linkpulse/internal/links"
	"github.com/linkpulse/linkpulse/internal/metrics"
)

// Server represents the HTTP server with all dependencies.
type Server struct {
	config      *config.Config
	logger      *slog.Logger
	linkHandler *links.Handler
	authHandler *auth.Handler
	tokens      *auth.TokenManager
	limiter     httpx.KeyLimiter
	server      *http.Server
}

// Config holds the dependencies the server routes over.
type Config struct {
	Config      *config.Config
	Logger      *slog.Logger
	LinkHandler *links.Handler
	AuthHandler *auth.Handler
	Tokens      *auth.TokenManager
	Limiter     httpx.KeyLimiter
}

// New creates a new Server instance.
func New(cfg Config) *Server {
	return &Server{
		config:      cfg.Config,
		logger:      cfg.Logger,
		linkHandler: cfg.LinkHandler,
		authHandler: cfg.AuthHandler,
		tokens:      cfg.Tokens,
		limiter:     cfg.Limiter,
	}
}

// Start starts the HTTP server and blocks until shutdown.
func (s *Server) Start(ctx context.Context) error {
	mux := s.setupRoutes()
	handler := s.applyMiddleware(mux)
	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%s", s.config.Server.Host, s.config.Server.Port),
		Handler:      handler,
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
		IdleTimeout:  s.config.Server.IdleTimeout,
	}

	// Listen for errors from the server
	serverErrors := make(chan error, 1)

	// Start server in a goroutine
	go func() {
		s.logger.Info("starting http server",
			"addr", s.server.Addr,
			"env", s.config.App.Environment,
		)
		serverErrors <- s.server.ListenAndServe()
	}()

	// Listen for interrupt signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		s.logger.Info("received shutdown signal", "signal", sig.String())

		// Create context with timeout for shutdown
		ctx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
		defer cancel()

		// Attempt graceful shutdown
		if err := s.server.Shutdown(ctx); err != nil {
			// Force close if graceful shutdown fails
			if closeErr := s.server.Close(); closeErr != nil {
				return fmt.Errorf("failed to close server: %w", closeErr)
			}
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}

		s.logger.Info("server stopped gracefully")
		return nil
	}
}

// Handler builds the full route table with middleware applied. Exposed
// so tests can drive the server through httptest without binding a port.
func (s *Server) Handler() http.Handler {
	return s.applyMiddleware(s.setupRoutes())
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	requireUser := auth.RequireUser(s.tokens, s.logger)
	optionalUser := auth.OptionalUser(s.tokens)

	// Operational endpoints, outside the suffix namespace
	mux.HandleFunc("GET /x/health", s.healthCheckHandler)
	mux.HandleFunc("GET /x/metrics", metrics.Handler)

	// Accounts
	mux.HandleFunc("POST /api/auth/register", s.authHandler.Register)
	mux.HandleFunc("POST /api/auth/login", s.authHandler.Login)

	// Links. Creation accepts anonymous requests; everything that reads
	// or mutates a user's own links requires a session.
	mux.Handle("POST /api/links", optionalUser(http.HandlerFunc(s.linkHandler.CreateLink)))
	mux.Handle("GET /api/links", requireUser(http.HandlerFunc(s.linkHandler.ListLinks)))
	mux.Handle("GET /api/links/top-countries", requireUser(http.HandlerFunc(s.linkHandler.TopCountries)))
	mux.Handle("GET /api/links/{linkID}/stats", requireUser(http.HandlerFunc(s.linkHandler.LinkStats)))
	mux.Handle("PATCH /api/links/{linkID}", requireUser(http.HandlerFunc(s.linkHandler.UpdateSuffix)))

	// Public click reporting and resolution for clients that handle the
	// redirect themselves.
	mux.HandleFunc("PATCH /api/links/click", s.linkHandler.RecordClick)
	mux.HandleFunc("GET /api/links/public/{suffix}", s.linkHandler.PublicResolve)

	mux.Handle("GET /api/users/stats", requireUser(http.HandlerFunc(s.linkHandler.UserStats)))

	// Short URL resolution, last so static routes win.
	mux.HandleFunc("GET /{suffix}", s.linkHandler.Redirect)

	return mux
}

// applyMiddleware wraps the handler with middleware in the correct order.
func (s *Server) applyMiddleware(handler http.Handler) http.Handler {
	return httpx.Chain(
		httpx.Recovery(s.logger), // Outermost: catch panics
		httpx.RequestID,          // Add request ID
		httpx.Logger(s.logger),   // Log requests
		httpx.CORS(nil),          // CORS headers (allow all in dev)
		httpx.RateLimit(s.limiter, s.logger, func() { metrics.RateLimited.Inc() }),
	)(handler)
}

// healthCheckHandler handles health check requests.
func (s *Server) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": s.config.Observability.ServiceName,
		"version": s.config.Observability.ServiceVersion,
	})
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}

	s.logger.Info("shutting down server")

	if err := s.server.Shutdown(ctx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			s.logger.Warn("shutdown timeout exceeded, forcing close")
			return s.server.Close()
		}
		return err
	}

	return nil
}
