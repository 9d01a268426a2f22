package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/state"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// maxBody bounds the size of a state write request.
const maxBody = 1 << 20

// Engine is what the server needs from an arbor.Engine.
type Engine interface {
	RootID() string
	Current() *domain.Generation
	States() []state.Entry
	Handles() []domain.ScopeHandle
	Write(pos domain.Position, value any) error
	Invalidate()
	Halted() error
}

var _ Engine = (*arbor.Engine)(nil)

// Server exposes an engine for inspection and state writes.
type Server struct {
	Engine  Engine
	Streams *StreamManager

	gatherer prometheus.Gatherer
	logger   *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithMetrics serves g on GET /metrics.
func WithMetrics(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// WithLogger sets the server's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a server for engine.
func NewServer(engine Engine, opts ...Option) *Server {
	s := &Server{
		Engine:  engine,
		Streams: NewStreamManager(),
		logger:  slog.New(slog.NewJSONHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Streams.logger = s.logger
	return s
}

// NewHandler creates a new HTTP handler for the engine.
func NewHandler(engine Engine, opts ...Option) http.Handler {
	return NewServer(engine, opts...).Handler()
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(enableCORS)

	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Get("/tree", s.GetTree)
	r.Get("/tree/*", s.GetNode)
	r.Get("/handles", s.GetHandles)
	r.Get("/states", s.GetStates)
	r.Post("/state", s.PostState)
	r.Post("/rebuild", s.PostRebuild)
	r.Get("/events", s.SubscribeEvents)
	if s.gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// TreeResponse is the body of GET /tree.
type TreeResponse struct {
	RootID     string                `json:"root_id"`
	Generation uint64                `json:"generation"`
	Trigger    domain.BuildTrigger   `json:"trigger"`
	Nodes      int                   `json:"nodes"`
	Root       *domain.ComponentNode `json:"root"`
}

// WriteRequest is the body of POST /state.
type WriteRequest struct {
	Position domain.Position `json:"position"`
	Value    any             `json:"value"`
}

// GetHealth handles GET /health. A halted engine is reported as unavailable.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.Engine.Halted(); err != nil {
		s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "halted", "error": err.Error()})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":     "arbor-http",
		"version": strings.TrimSpace(arbor.Version),
		"root_id": s.Engine.RootID(),
	})
}

// GetTree handles GET /tree.
func (s *Server) GetTree(w http.ResponseWriter, r *http.Request) {
	gen := s.Engine.Current()
	if gen == nil {
		http.Error(w, "no tree has been built yet", http.StatusNotFound)
		return
	}
	s.writeJSON(w, http.StatusOK, TreeResponse{
		RootID:     s.Engine.RootID(),
		Generation: gen.Number,
		Trigger:    gen.Trigger,
		Nodes:      len(gen.Nodes),
		Root:       gen.Root,
	})
}

// GetNode handles GET /tree/{position}, e.g. /tree/Root@0/Counter@0.
func (s *Server) GetNode(w http.ResponseWriter, r *http.Request) {
	pos := domain.Position("/" + chi.URLParam(r, "*"))
	node, ok := s.Engine.Current().At(pos)
	if !ok {
		http.Error(w, fmt.Sprintf("no component at %s", pos), http.StatusNotFound)
		return
	}
	s.writeJSON(w, http.StatusOK, node)
}

// GetHandles handles GET /handles.
func (s *Server) GetHandles(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.Engine.Handles())
}

// GetStates handles GET /states.
func (s *Server) GetStates(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.Engine.States())
}

// PostState handles POST /state. The write is queued; it is applied on the
// next rebuild, so the response is 202.
func (s *Server) PostState(w http.ResponseWriter, r *http.Request) {
	var body WriteRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBody)).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("PostState: invalid request body", "err", err)
		return
	}
	if body.Position == "" {
		http.Error(w, "position is required", http.StatusBadRequest)
		return
	}

	if err := s.Engine.Write(body.Position, body.Value); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, domain.ErrInvalidAccess) {
			status = http.StatusNotFound
		}
		http.Error(w, err.Error(), status)
		s.logger.Warn("PostState: write rejected", "position", body.Position, "err", err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

// PostRebuild handles POST /rebuild.
func (s *Server) PostRebuild(w http.ResponseWriter, r *http.Request) {
	s.Engine.Invalidate()
	s.writeJSON(w, http.StatusAccepted, map[string]string{"status": "scheduled"})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "err", err)
	}
}
