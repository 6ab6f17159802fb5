// Package server exposes the practice session lifecycle over HTTP.
//
// The API is a thin JSON layer over [session.Manager]: one route per session
// operation, plus a WebSocket ingest endpoint for streaming attempt signals
// from the browser, Prometheus metrics, and health probes. All routes except
// /metrics, /healthz and /readyz are wrapped in [observe.Middleware].
package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kalini-labs/lexio/internal/health"
	"github.com/kalini-labs/lexio/internal/observe"
	"github.com/kalini-labs/lexio/internal/session"
	"github.com/kalini-labs/lexio/pkg/wordstore"
)

// Server routes HTTP requests to the session manager.
type Server struct {
	manager *session.Manager
	metrics *observe.Metrics
	log     *slog.Logger
	health  *health.Handler
}

// Option customises a [Server].
type Option func(*Server)

// WithLogger sets the request logger. Default: slog.Default.
func WithLogger(log *slog.Logger) Option {
	return func(s *Server) { s.log = log }
}

// WithMetrics sets the metrics instruments. Default: [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithHealth sets the health handler serving /healthz and /readyz. Default: a
// handler with no readiness checks.
func WithHealth(h *health.Handler) Option {
	return func(s *Server) { s.health = h }
}

// New creates a server for the given session manager.
func New(manager *session.Manager, opts ...Option) *Server {
	s := &Server{manager: manager}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	if s.health == nil {
		s.health = health.New()
	}
	return s
}

// Handler returns the full route table:
//
//	POST   /v1/sessions                            — open a session
//	GET    /v1/sessions/{user}/plan                — plan today's practice
//	POST   /v1/sessions/{user}/passage             — generate a passage
//	POST   /v1/sessions/{user}/attempts            — score one word attempt
//	POST   /v1/sessions/{user}/advance             — advance to the next sentence
//	POST   /v1/sessions/{user}/lessons/{word}/complete — finish a micro-lesson
//	DELETE /v1/sessions/{user}                     — close and flush
//	GET    /v1/sessions/{user}/stream              — WebSocket signal ingest
//	GET    /metrics                                — Prometheus scrape
//	GET    /healthz, /readyz                       — probes
func (s *Server) Handler() http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("POST /v1/sessions", s.handleOpen)
	api.HandleFunc("GET /v1/sessions/{user}/plan", s.handlePlan)
	api.HandleFunc("POST /v1/sessions/{user}/passage", s.handlePassage)
	api.HandleFunc("POST /v1/sessions/{user}/attempts", s.handleAttempt)
	api.HandleFunc("POST /v1/sessions/{user}/advance", s.handleAdvance)
	api.HandleFunc("POST /v1/sessions/{user}/lessons/{word}/complete", s.handleLessonComplete)
	api.HandleFunc("DELETE /v1/sessions/{user}", s.handleClose)
	api.HandleFunc("GET /v1/sessions/{user}/stream", s.handleStream)

	root := http.NewServeMux()
	root.Handle("/v1/", observe.Middleware(s.metrics)(api))
	root.Handle("GET /metrics", promhttp.Handler())
	s.health.Register(root)
	return root
}

// writeJSON encodes v with the given status. Encoding failures are logged,
// not surfaced; the status line has already been written.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Warn("response encode failed", "err", err)
	}
}

// writeError maps domain errors onto HTTP statuses.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, session.ErrNoSession):
		status = http.StatusNotFound
	case errors.Is(err, session.ErrSessionActive), errors.Is(err, session.ErrClosed):
		status = http.StatusConflict
	case errors.Is(err, session.ErrUnknownLanguage):
		status = http.StatusBadRequest
	case errors.Is(err, wordstore.ErrUnavailable):
		status = http.StatusServiceUnavailable
	}
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}

type errorResponse struct {
	Error string `json:"error"`
}
