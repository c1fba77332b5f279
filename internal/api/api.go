// Package api exposes the assessment HTTP surface.
//
// Routes:
//
//	GET  /healthz                liveness
//	GET  /readyz                 readiness
//	POST /v1/assessments         assess a recorded session
//	GET  /v1/assessments         list recent reports
//	GET  /v1/assessments/{id}    fetch a stored report
//	GET  /metrics                Prometheus scrape (when configured)
//
// A submission carries the reference text and the recognizer's recorded
// detailed results. The recording is replayed through a normal assessment
// session, so the HTTP path and live sessions share one code path.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/MrWong99/lectio/internal/assess"
	"github.com/MrWong99/lectio/internal/health"
	"github.com/MrWong99/lectio/internal/observe"
	"github.com/MrWong99/lectio/internal/store"
)

const (
	defaultMaxBody   = 8 << 20
	defaultTimeout   = 2 * time.Minute
	defaultListLimit = 20
	maxListLimit     = 200
)

// Option is a functional option for configuring a [Server].
type Option func(*Server)

// WithStore sets the report store. Default: [store.NewMemory].
func WithStore(s store.Store) Option {
	return func(srv *Server) {
		if s != nil {
			srv.store = s
		}
	}
}

// WithHealth sets the probe handler. Default: a handler without checkers.
func WithHealth(h *health.Handler) Option {
	return func(srv *Server) {
		if h != nil {
			srv.health = h
		}
	}
}

// WithMetricsHandler mounts h at /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(srv *Server) {
		srv.metricsHandler = h
	}
}

// WithMetrics sets the metrics used by the request middleware. Default:
// [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(srv *Server) {
		srv.metrics = m
	}
}

// WithMaxBodyBytes caps the submission size. Default: 8 MiB.
func WithMaxBodyBytes(n int64) Option {
	return func(srv *Server) {
		if n > 0 {
			srv.maxBody = n
		}
	}
}

// WithTimeout bounds one assessment. Default: 2m.
func WithTimeout(d time.Duration) Option {
	return func(srv *Server) {
		if d > 0 {
			srv.timeout = d
		}
	}
}

// Server routes assessment requests. The assessor may be swapped at runtime
// with [Server.SetAssessor]; in-flight requests keep the one they started
// with.
type Server struct {
	assessor       atomic.Pointer[assess.Assessor]
	store          store.Store
	health         *health.Handler
	metricsHandler http.Handler
	metrics        *observe.Metrics
	maxBody        int64
	timeout        time.Duration
}

// New creates a [Server] that assesses submissions with a.
func New(a *assess.Assessor, opts ...Option) *Server {
	s := &Server{
		store:   store.NewMemory(),
		health:  health.New(),
		maxBody: defaultMaxBody,
		timeout: defaultTimeout,
	}
	s.assessor.Store(a)
	for _, o := range opts {
		o(s)
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	return s
}

// SetAssessor replaces the assessor used for new submissions.
func (s *Server) SetAssessor(a *assess.Assessor) {
	if a != nil {
		s.assessor.Store(a)
	}
}

// Health returns the probe handler, e.g. to mark the server as draining.
func (s *Server) Health() *health.Handler { return s.health }

// Handler returns the routed, instrumented HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.health.Register(mux)
	mux.HandleFunc("POST /v1/assessments", s.handleCreate)
	mux.HandleFunc("GET /v1/assessments", s.handleList)
	mux.HandleFunc("GET /v1/assessments/{id}", s.handleGet)
	if s.metricsHandler != nil {
		mux.Handle("GET /metrics", s.metricsHandler)
	}
	return observe.Middleware(s.metrics)(mux)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	rep, err := s.store.Get(r.Context(), id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case err != nil:
		observe.Logger(r.Context()).Error("api: get report failed", "id", id, "err", err)
		writeError(w, http.StatusInternalServerError, err)
	default:
		writeJSON(w, http.StatusOK, rep)
	}
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, errors.New("limit must be a positive integer"))
			return
		}
		limit = min(n, maxListLimit)
	}
	sums, err := s.store.ListRecent(r.Context(), limit)
	if err != nil {
		observe.Logger(r.Context()).Error("api: list reports failed", "err", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"assessments": sums})
}

type errorBody struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorBody{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
