package web

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/kozaktomas/face-animator/internal/config"
	"github.com/kozaktomas/face-animator/internal/engine"
	"github.com/kozaktomas/face-animator/internal/expressionlog"
	"github.com/kozaktomas/face-animator/internal/imagestore"
	"github.com/kozaktomas/face-animator/internal/session"
	"github.com/kozaktomas/face-animator/internal/web/gateway"
	"github.com/kozaktomas/face-animator/internal/web/middleware"
)

// Deps are the runtime components the server exposes.
type Deps struct {
	Engine   *engine.Engine
	Sessions *session.Manager
	Gateway  *gateway.Hub
	Images   *imagestore.Store
	Logs     *expressionlog.Service
}

// Server represents the web server
type Server struct {
	config     *config.Config
	deps       Deps
	origins    *middleware.OriginPolicy
	router     *chi.Mux
	httpServer *http.Server
}

// NewServer creates a new web server
func NewServer(cfg *config.Config, deps Deps, origins *middleware.OriginPolicy) *Server {
	r := chi.NewRouter()

	s := &Server{
		config:  cfg,
		deps:    deps,
		origins: origins,
		router:  r,
	}

	// Set up middleware stack
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.CORS(origins))

	s.setupRoutes()

	// WriteTimeout stays zero: hijacked websocket connections manage their own deadlines
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return s
}

// Start starts the HTTP server
func (s *Server) Start() error {
	log.Printf("Starting web server on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down web server...")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}

// Router returns the chi router for testing
func (s *Server) Router() *chi.Mux {
	return s.router
}
