package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httplog"

	"portal-agent/internal/application/port/input"
	"portal-agent/internal/application/port/output"
	"portal-agent/internal/domain/entity"
	"portal-agent/internal/usecase/planner"
)

// Server exposes the agent over HTTP: run requests from the voice
// frontend and page snapshots pushed by the browser bridge extension.
type Server struct {
	runner input.PlanRunner
	source output.SnapshotSource
	logger output.LoggerPort
}

func NewServer(runner input.PlanRunner, source output.SnapshotSource, logger output.LoggerPort) *Server {
	return &Server{runner: runner, source: source, logger: logger}
}

// Router wires the routes with request logging and panic recovery.
func (s *Server) Router(serviceName string) http.Handler {
	requestLogger := httplog.NewLogger(serviceName, httplog.Options{
		JSON:    true,
		Concise: true,
	})

	r := chi.NewRouter()
	r.Use(httplog.RequestLogger(requestLogger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))

	r.Get("/health", s.handleHealth)
	r.Post("/agent/run", s.handleRun)
	r.Post("/bridge/snapshot", s.handleSnapshot)
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	var req input.RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Goal == "" && req.UserReply == "" {
		writeError(w, http.StatusBadRequest, "goal is required")
		return
	}

	result, err := s.runner.Run(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, planner.ErrBadToolCall):
			writeError(w, http.StatusUnprocessableEntity, err.Error())
		case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
			writeError(w, http.StatusGatewayTimeout, err.Error())
		default:
			s.logger.Error("run failed", "error", err.Error())
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleSnapshot accepts the freshest page state from the bridge. The
// body is the snapshot object itself, not an envelope.
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "cannot read body")
		return
	}
	snap := entity.ParseSnapshot(body)
	s.source.Publish(snap)
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "url": snap.URL})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
