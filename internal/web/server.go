// Package web provides the HTTP server: the dashboard, the ingestion and
// query API, the PDF download and the metrics endpoint.
package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/postventa/internal/config"
	"github.com/JonMunkholm/postventa/internal/ingest"
	"github.com/JonMunkholm/postventa/internal/report"
	"github.com/JonMunkholm/postventa/internal/store"
	"github.com/JonMunkholm/postventa/internal/telemetry"
	"github.com/JonMunkholm/postventa/internal/web/middleware"
)

// Deps are the collaborators of the server.
type Deps struct {
	Store    store.Store
	Ingest   *ingest.Service
	Renderer *report.Renderer

	// Metrics is optional; nil disables /metrics and request metrics.
	Metrics *telemetry.Metrics
}

// Server is the HTTP server for postventa.
type Server struct {
	cfg      *config.Config
	store    store.Store
	ingest   *ingest.Service
	renderer *report.Renderer
	metrics  *telemetry.Metrics
	router   *chi.Mux
	server   *http.Server
}

// NewServer creates a new Server instance.
func NewServer(cfg *config.Config, deps Deps) *Server {
	renderer := deps.Renderer
	if renderer == nil {
		renderer = report.NewRenderer(report.Options{Title: cfg.Report.Title})
	}

	s := &Server{
		cfg:      cfg,
		store:    deps.Store,
		ingest:   deps.Ingest,
		renderer: renderer,
		metrics:  deps.Metrics,
		router:   chi.NewRouter(),
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
	s.router.Use(middleware.Metrics(s.metrics))
	s.router.Use(chimw.Recoverer)
	s.router.Use(securityHeaders(s.cfg.Security.EnableCSP))
}

// setupRoutes configures all HTTP routes.
// Ingestion carries its own deadline (UPLOAD_TIMEOUT); everything else uses
// the request timeout.
func (s *Server) setupRoutes() {
	s.router.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(s.cfg.Server.RequestTimeout))

		r.Get("/", s.handleDashboard)
		r.Get("/healthz", s.handleHealth)
		r.Get("/report.pdf", s.handleReportPDF)
		if s.metrics != nil {
			r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
		}

		r.Get("/api/summary", s.handleSummary)
		r.Get("/api/records", s.handleRecords)
		r.Get("/api/columns", s.handleColumns)
		r.Get("/api/counts/{dimension}", s.handleCounts)
		r.Post("/api/preview", s.handlePreview)
	})

	s.router.Group(func(r chi.Router) {
		if s.cfg.Security.RequireAPIKey {
			r.Use(middleware.APIKeyAuth(s.cfg.Security.APIKeys))
		}
		r.Post("/api/ingest", s.handleIngest)
	})

	// Browsers cannot send X-API-Key, so the form exists only without auth.
	if !s.cfg.Security.RequireAPIKey {
		s.router.Post("/upload", s.handleUploadForm)
	}
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:        s.cfg.Server.Addr(),
		Handler:     s.router,
		ReadTimeout: s.cfg.Server.ReadTimeout,
		// Long enough for an ingestion response
		WriteTimeout: max(s.cfg.Server.WriteTimeout, s.cfg.Upload.Timeout),
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	slog.Info("starting server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
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
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")

			// Inline styles only; the dashboard runs no scripts
			if enableCSP {
				h.Set("Content-Security-Policy",
					"default-src 'self'; script-src 'none'; style-src 'self' 'unsafe-inline'; img-src 'self' data:; form-action 'self'")
			}

			next.ServeHTTP(w, r)
		})
	}
}

// writeJSON encodes v as JSON with status 200.
func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

// writeJSONStatus encodes v as JSON with the given status.
// Encoding errors are only logged since headers are already sent.
func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
