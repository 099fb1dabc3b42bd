// Package http serves a read-only inspector for stored flow chart documents.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aretw0/nodegraph"
	"github.com/aretw0/nodegraph/pkg/domain"
	"github.com/aretw0/nodegraph/pkg/format"
	"github.com/aretw0/nodegraph/pkg/registry"
	"github.com/aretw0/nodegraph/pkg/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Inspector is the read-only document surface served over HTTP.
type Inspector interface {
	Documents(ctx context.Context) ([]string, error)
	Document(ctx context.Context, name string) (format.FlowChartRecord, error)
	Validate(ctx context.Context, name string) error
	Mermaid(ctx context.Context, name string) (string, error)
	Types() []registry.NodeType
}

// Server handles the inspector routes.
type Server struct {
	Inspector Inspector
	Gatherer  prometheus.Gatherer
	Logger    *slog.Logger
}

// Option configures the handler.
type Option func(*Server)

// WithGatherer exposes g on GET /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.Gatherer = g
	}
}

// WithLogger sets the logger for request failures.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.Logger = logger
	}
}

// NewHandler creates a new HTTP handler for the inspector.
func NewHandler(inspector Inspector, opts ...Option) http.Handler {
	s := &Server{Inspector: inspector}
	for _, opt := range opts {
		opt(s)
	}
	if s.Logger == nil {
		s.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Get("/types", s.GetTypes)
	r.Route("/documents", func(r chi.Router) {
		r.Get("/", s.ListDocuments)
		r.Get("/{name}", s.GetDocument)
		r.Get("/{name}/validate", s.ValidateDocument)
		r.Get("/{name}/mermaid", s.GetMermaid)
	})
	if s.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.Gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

// GetHealth handles the GET /healthz request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":     "nodegraph-inspector",
		"version": strings.TrimSpace(nodegraph.Version),
	})
}

// ListDocuments handles the GET /documents request.
func (s *Server) ListDocuments(w http.ResponseWriter, r *http.Request) {
	names, err := s.Inspector.Documents(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if names == nil {
		names = []string{}
	}
	s.writeJSON(w, http.StatusOK, map[string][]string{"documents": names})
}

// GetDocument handles the GET /documents/{name} request.
func (s *Server) GetDocument(w http.ResponseWriter, r *http.Request) {
	rec, err := s.Inspector.Document(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, rec)
}

// ValidateDocument handles the GET /documents/{name}/validate request.
func (s *Server) ValidateDocument(w http.ResponseWriter, r *http.Request) {
	if err := s.Inspector.Validate(r.Context(), chi.URLParam(r, "name")); err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"valid": true})
}

// GetMermaid handles the GET /documents/{name}/mermaid request.
func (s *Server) GetMermaid(w http.ResponseWriter, r *http.Request) {
	diagram, err := s.Inspector.Mermaid(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, diagram)
}

// GetTypes handles the GET /types request.
func (s *Server) GetTypes(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string][]registry.TypeDescription{"types": registry.Describe(s.Inspector.Types())})
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, store.ErrDocumentNotFound):
		status = http.StatusNotFound
	case errors.Is(err, store.ErrInvalidName):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrMalformed), errors.Is(err, domain.ErrUnknownType), errors.Is(err, domain.ErrInvalidReference):
		status = http.StatusUnprocessableEntity
	}
	if status == http.StatusInternalServerError {
		s.Logger.Error("inspector request failed", "path", r.URL.Path, "error", err)
	}
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.Logger.Error("inspector response encode failed", "error", err)
	}
}
