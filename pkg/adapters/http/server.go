// Package http exposes the support workflow as a JSON API.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ritotombe/supportflow"
	"github.com/ritotombe/supportflow/internal/logging"
	"github.com/ritotombe/supportflow/internal/presentation/graph"
	"github.com/ritotombe/supportflow/pkg/domain"
	"github.com/ritotombe/supportflow/pkg/ports"
)

// Engine is the part of supportflow.Engine the API needs.
type Engine interface {
	Handle(ctx context.Context, req supportflow.Request) (domain.State, error)
	Thread(ctx context.Context, threadID string) (*ports.Thread, error)
	Inspect() []domain.Node
}

// Server serves the API routes.
type Server struct {
	Engine  Engine
	Streams *StreamManager

	metrics http.Handler
	version string
	logger  *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithMetrics mounts h on /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithVersion is reported by /health.
func WithVersion(v string) Option {
	return func(s *Server) {
		s.version = v
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// MessageRequest is the body of POST /threads/{threadID}/messages.
type MessageRequest struct {
	Message       string   `json:"message"`
	AccountID     string   `json:"account_id,omitempty"`
	UserID        string   `json:"user_id,omitempty"`
	TicketID      string   `json:"ticket_id,omitempty"`
	ExperienceID  string   `json:"experience_id,omitempty"`
	ReservationID string   `json:"reservation_id,omitempty"`
	MinConfidence *float64 `json:"min_confidence,omitempty"`
}

// TurnResponse is the outcome of one message.
type TurnResponse struct {
	ThreadID string        `json:"thread_id"`
	Intent   domain.Intent `json:"intent"`
	Replies  []string      `json:"replies"`
	State    domain.State  `json:"state"`
}

// NewHandler creates the HTTP handler for the engine.
func NewHandler(engine Engine, opts ...Option) http.Handler {
	s := &Server{
		Engine:  engine,
		Streams: NewStreamManager(),
		version: "dev",
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(enableCORS)

	r.Get("/health", s.GetHealth)
	r.Get("/graph", s.GetGraph)
	r.Post("/threads", s.PostMessage)
	r.Route("/threads/{threadID}", func(r chi.Router) {
		r.Get("/", s.GetThread)
		r.Post("/messages", s.PostMessage)
		r.Get("/events", s.SubscribeEvents)
	})
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
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

// PostMessage handles POST /threads and POST /threads/{threadID}/messages.
// Without a thread ID a new thread is started.
func (s *Server) PostMessage(w http.ResponseWriter, r *http.Request) {
	var body MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		s.logger.Warn("PostMessage: invalid request body", "err", err)
		return
	}

	state, err := s.Engine.Handle(r.Context(), supportflow.Request{
		ThreadID:      chi.URLParam(r, "threadID"),
		Message:       body.Message,
		AccountID:     body.AccountID,
		UserID:        body.UserID,
		TicketID:      body.TicketID,
		ExperienceID:  body.ExperienceID,
		ReservationID: body.ReservationID,
		MinConfidence: body.MinConfidence,
	})
	if err != nil {
		switch {
		case errors.Is(err, supportflow.ErrInputTooLarge),
			errors.Is(err, supportflow.ErrInvalidUTF8),
			errors.Is(err, supportflow.ErrEmptyMessage),
			errors.Is(err, supportflow.ErrInvalidConfidence):
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid input: %v", err))
			s.logger.Warn("PostMessage: input rejected", "err", err, "size", len(body.Message))
		default:
			writeError(w, http.StatusInternalServerError, "failed to handle message")
			s.logger.Error("PostMessage failed", "err", err)
		}
		return
	}

	resp := TurnResponse{
		ThreadID: state.ThreadID,
		Intent:   state.Intent,
		Replies:  domain.LatestReplies(state.Messages),
		State:    state,
	}
	if b, err := json.Marshal(resp); err == nil {
		s.Streams.Broadcast(state.ThreadID, string(b))
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetThread handles GET /threads/{threadID}.
func (s *Server) GetThread(w http.ResponseWriter, r *http.Request) {
	threadID := chi.URLParam(r, "threadID")
	thread, err := s.Engine.Thread(r.Context(), threadID)
	if err != nil {
		if errors.Is(err, domain.ErrThreadNotFound) {
			writeError(w, http.StatusNotFound, "thread not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load thread")
		s.logger.Error("GetThread failed", "thread_id", threadID, "err", err)
		return
	}
	writeJSON(w, http.StatusOK, thread)
}

// GetGraph handles GET /graph: mermaid text, or the node list with ?format=json.
func (s *Server) GetGraph(w http.ResponseWriter, r *http.Request) {
	nodes := s.Engine.Inspect()
	if r.URL.Query().Get("format") == "json" {
		writeJSON(w, http.StatusOK, nodes)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, graph.GenerateMermaid(nodes, nil))
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": s.version})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("response encode failed", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
