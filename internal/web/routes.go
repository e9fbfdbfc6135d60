package web

import (
	"io"
	"mime"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/kozaktomas/face-animator/internal/web/handlers"
	"github.com/kozaktomas/face-animator/internal/web/middleware"
	"github.com/kozaktomas/face-animator/internal/web/static"
)

func (s *Server) setupRoutes() {
	// Create handlers
	animateHandler := handlers.NewAnimateHandler(s.deps.Engine)
	imagesHandler := handlers.NewImagesHandler(s.deps.Images)
	detectionHandler := handlers.NewDetectionHandler(s.deps.Logs)
	statusHandler := handlers.NewStatusHandler(s.deps.Sessions, s.deps.Gateway, s.deps.Logs)

	// Animation socket, outside the request timeout
	s.router.Get("/ws", s.deps.Gateway.ServeHTTP)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(chiMiddleware.Timeout(time.Minute))

		r.Get("/health", handlers.HealthCheck)
		r.Get("/ping", statusHandler.Ping)
		r.Get("/status", statusHandler.Status)

		// One-shot animation
		r.Post("/animate", animateHandler.Animate)

		// Stills
		r.Post("/images", imagesHandler.Upload)
		r.Get("/images/{id}", imagesHandler.Get)

		// Expression logs
		r.Post("/start-session", detectionHandler.StartSession)
		r.Post("/detect-expression", detectionHandler.DetectExpression)
		r.Get("/session/{sessionId}", detectionHandler.GetSession)
		r.Post("/end-session", detectionHandler.EndSession)
	})

	// Serve static files for frontend (SPA)
	s.router.With(middleware.SecurityHeaders()).Get("/*", s.serveSPA)
}

// serveSPA serves the embedded client
func (s *Server) serveSPA(w http.ResponseWriter, r *http.Request) {
	fs := static.GetFileSystem()
	p := r.URL.Path
	if p == "/" {
		p = "/index.html"
	}

	if f, err := fs.Open(p); err == nil {
		defer f.Close()
		if stat, err := f.Stat(); err == nil && !stat.IsDir() {
			contentType := mime.TypeByExtension(path.Ext(p))
			if contentType == "" {
				contentType = "application/octet-stream"
			}
			w.Header().Set("Content-Type", contentType)
			if strings.HasPrefix(p, "/assets/") {
				w.Header().Set("Cache-Control", "public, max-age=3600")
			}
			w.WriteHeader(http.StatusOK)
			io.Copy(w, f)
			return
		}
	}

	// Unknown asset paths are real 404s; everything else is client routing
	if strings.HasPrefix(p, "/assets/") {
		http.NotFound(w, r)
		return
	}

	index, err := fs.Open("/index.html")
	if err != nil {
		http.Error(w, "client not built", http.StatusNotFound)
		return
	}
	defer index.Close()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	io.Copy(w, index)
}
