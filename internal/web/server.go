// Package web provides the HTTP server and handlers for the classification UI.
package web

import (
	"context"
	"embed"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/JonMunkholm/RareDx/internal/classifier"
	"github.com/JonMunkholm/RareDx/internal/config"
	"github.com/JonMunkholm/RareDx/internal/core"
	"github.com/JonMunkholm/RareDx/internal/session"
	"github.com/JonMunkholm/RareDx/internal/web/middleware"
)

//go:embed static
var staticFiles embed.FS

// catalogTTL is how long the disease catalogue is cached between fetches.
const catalogTTL = 5 * time.Minute

// PreviewSource serves the bytes behind a preview token.
type PreviewSource interface {
	Open(token string) (core.PreviewData, error)
}

// StatusReporter exposes the classifier's health for /healthz.
type StatusReporter interface {
	Status() classifier.Status
}

// Deps are the collaborators the server is built from.
type Deps struct {
	Sessions *session.Manager
	Previews PreviewSource
	Catalog  core.DiseaseCatalog
	Health   StatusReporter
	Logger   *slog.Logger
}

// Server is the HTTP server for the classification application.
type Server struct {
	cfg      *config.Config
	sessions *session.Manager
	previews PreviewSource
	catalog  core.DiseaseCatalog
	health   StatusReporter
	logger   *slog.Logger

	catalogCache *expirable.LRU[string, []string]

	router *chi.Mux
	server *http.Server

	stop     chan struct{}
	stopOnce sync.Once
}

// NewServer creates a new Server instance.
func NewServer(cfg *config.Config, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		cfg:          cfg,
		sessions:     deps.Sessions,
		previews:     deps.Previews,
		catalog:      deps.Catalog,
		health:       deps.Health,
		logger:       logger,
		catalogCache: expirable.NewLRU[string, []string](1, nil, catalogTTL),
		router:       chi.NewRouter(),
		stop:         make(chan struct{}),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(middleware.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	s.router.Use(chimw.Timeout(s.cfg.Server.RequestTimeout))
	s.router.Use(securityHeaders(s.cfg.Security.EnableCSP))

	if s.cfg.Rate.Enabled {
		limiter := newRateLimiter(s.cfg.Rate.RequestsPerMinute, s.stop)
		s.router.Use(limiter.middleware(s))
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(err)
	}
	s.router.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))
	s.router.Get("/healthz", s.handleHealth)
	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.respondError(w, r, errNotFound, http.StatusNotFound)
	})

	s.router.Group(func(r chi.Router) {
		r.Use(s.sessionMiddleware)

		r.Get("/", s.handlePage)
		r.Get("/diseases", s.handleDiseasesPage)
		r.Get("/preview/{token}", s.handlePreview)
		r.Post("/select", s.handleSelect)
		r.Post("/cards/{index}/toggle", s.handleToggle)

		r.Group(func(r chi.Router) {
			if s.cfg.Rate.Enabled {
				r.Use(newRateLimiter(s.cfg.Rate.SubmitLimit, s.stop).middleware(s))
			}
			r.Post("/submit", s.handleSubmit)
		})

		r.Route("/api", func(r chi.Router) {
			r.Get("/state", s.handleState)
			r.Get("/diseases", s.handleDiseases)
		})
	})
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	s.logger.Info("starting server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server and its background loops.
func (s *Server) Shutdown(ctx context.Context) error {
	s.stopOnce.Do(func() { close(s.stop) })
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses.
func securityHeaders(enableCSP bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

			// Inline styles are allowed for the server-rendered markup; previews
			// are same-origin images.
			if enableCSP {
				w.Header().Set("Content-Security-Policy",
					"default-src 'self'; script-src 'self'; style-src 'self' 'unsafe-inline'; img-src 'self' data:")
			}

			next.ServeHTTP(w, r)
		})
	}
}
