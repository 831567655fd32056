// Package server exposes the planner over a JSON HTTP API.
package server

import (
	"context"
	"log/slog"
	"net/http"

	"middag/internal/app"
	"middag/internal/i18n"
	"middag/internal/metrics"
	"middag/internal/storage"
)

const maxBodyBytes = 1 << 20

// UsageReader returns aggregated generation metrics.
type UsageReader interface {
	GetDailyUsage(ctx context.Context, days int) ([]metrics.DailyUsage, error)
}

// Server routes API requests to the planner and the session store.
type Server struct {
	planner  *app.Planner
	sessions *app.Sessions
	blobs    storage.BlobStore
	usage    UsageReader
	tr       *i18n.Translator
	logger   *slog.Logger

	dataPath        string
	publicBaseURL   string
	defaultLanguage string

	mux *http.ServeMux
}

// Option configures a Server.
type Option func(*Server)

// WithUsage enables the metrics endpoint. dataPath is measured for the
// health report.
func WithUsage(u UsageReader, dataPath string) Option {
	return func(s *Server) {
		s.usage = u
		s.dataPath = dataPath
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithPublicBaseURL makes created plans carry an absolute link.
func WithPublicBaseURL(u string) Option {
	return func(s *Server) { s.publicBaseURL = u }
}

// WithDefaultLanguage sets the language of error messages when the request names none.
func WithDefaultLanguage(lang string) Option {
	return func(s *Server) { s.defaultLanguage = i18n.Normalize(lang) }
}

// New creates a Server. blobs backs POST /api/recipe and is
// normally the same store the sessions use.
func New(p *app.Planner, sessions *app.Sessions, blobs storage.BlobStore, opts ...Option) *Server {
	s := &Server{
		planner:         p,
		sessions:        sessions,
		blobs:           blobs,
		tr:              i18n.Default(),
		logger:          slog.Default(),
		defaultLanguage: i18n.DefaultLanguage,
		mux:             http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/menu", s.handleMenu)
	s.mux.HandleFunc("POST /api/plan", s.handleGenerate)

	s.mux.HandleFunc("POST /api/plans", s.handleCreatePlan)
	s.mux.HandleFunc("GET /api/plans/{id}", s.handleGetPlan)
	s.mux.HandleFunc("PUT /api/plans/{id}", s.handleReplacePlan)
	s.mux.HandleFunc("POST /api/plans/{id}/generate", s.handleRegenerate)
	s.mux.HandleFunc("POST /api/plans/{id}/slots/{slot}/lock", s.handleToggleLock)
	s.mux.HandleFunc("PUT /api/plans/{id}/slots/{slot}", s.handleEditDish)
	s.mux.HandleFunc("POST /api/plans/{id}/reorder", s.handleReorder)
	s.mux.HandleFunc("PUT /api/plans/{id}/language", s.handleSetLanguage)
	s.mux.HandleFunc("PUT /api/plans/{id}/policy", s.handleSetPolicy)
	s.mux.HandleFunc("PUT /api/plans/{id}/categories", s.handleSetCategories)
	s.mux.HandleFunc("POST /api/plans/{id}/categories/{category}/toggle", s.handleToggleCategory)
	s.mux.HandleFunc("GET /api/plans/{id}/text", s.handleText)

	s.mux.HandleFunc("POST /api/recipe", s.handleCreateBlob)
	s.mux.HandleFunc("GET /api/recipe", s.handleGetBlob)
	s.mux.HandleFunc("PUT /api/recipe", s.handlePutBlob)

	s.mux.HandleFunc("GET /api/metrics", s.handleMetrics)
}

// Handle mounts an extra handler, such as a bot webhook.
func (s *Server) Handle(pattern string, h http.Handler) {
	s.mux.Handle(pattern, h)
}

// Handler returns the routes wrapped in request logging.
func (s *Server) Handler() http.Handler {
	return requestLogger(s.logger, s.mux)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}
