// Package api exposes the admin HTTP surface: querying and searching the
// chunk index, processing filing directories, and managing the company
// registry.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"filingrag/internal/answer"
	"filingrag/internal/config"
	"filingrag/internal/index"
	"filingrag/internal/pipeline"
	"filingrag/internal/registry"
)

// Searcher is the index surface the handlers need.
type Searcher interface {
	Search(ctx context.Context, vector []float32, topK int, company, year string) ([]index.Match, error)
	Stats(ctx context.Context) (index.Stats, error)
}

// Answerer embeds queries and generates grounded answers.
type Answerer interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	Answer(ctx context.Context, question string, matches []index.Match) (answer.Result, error)
}

// Server is the admin HTTP server.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	store        Searcher
	answers      Answerer
	log          *slog.Logger
	cfg          config.Config

	regMu sync.Mutex
	reg   registry.Registry
}

// NewServer creates and configures the HTTP server.
func NewServer(orch *pipeline.Orchestrator, store Searcher, answers Answerer, reg registry.Registry, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		orchestrator: orch,
		store:        store,
		answers:      answers,
		reg:          reg,
		log:          log,
		cfg:          cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.APIKey, s.log))

		r.Post("/api/query", s.handleQuery)
		r.Post("/api/search", s.handleSearch)
		r.Get("/api/stats", s.handleStats)

		r.Post("/api/process", s.handleProcess)
		r.Get("/api/process/{jobID}/status", s.handleProcessStatus)

		r.Get("/api/companies", s.handleListCompanies)
		r.Post("/api/companies", s.handleAddCompany)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
