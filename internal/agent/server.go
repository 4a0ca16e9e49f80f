// Package agent serves the dockyard RPC surface over HTTP. Lifecycle
// operations are plain JSON request/response; logs and stats stream
// newline-delimited JSON; exec upgrades the connection to a duplex
// NDJSON stream driven by a relay.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/poridhioss/dockyard/internal/engine"
)

// Server is the agent's HTTP API server.
type Server struct {
	addr      string
	eng       engine.Engine
	log       *slog.Logger
	workers   *semaphore.Weighted
	server    *http.Server
	listener  net.Listener
	startedAt time.Time
}

// NewServer creates an agent server. token enables bearer
// authentication when non-empty; maxWorkers bounds the number of
// concurrent streaming calls.
func NewServer(addr string, eng engine.Engine, logger *slog.Logger, token string, maxWorkers int) *Server {
	if maxWorkers <= 0 {
		maxWorkers = 1
	}
	s := &Server{
		addr:      addr,
		eng:       eng,
		log:       logger,
		workers:   semaphore.NewWeighted(int64(maxWorkers)),
		startedAt: time.Now(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/health", s.handleHealth)
	mux.HandleFunc("POST /v1/containers", s.handleLaunch)
	mux.HandleFunc("GET /v1/containers", s.handleList)
	mux.HandleFunc("GET /v1/containers/{name}/json", s.handleInspect)
	mux.HandleFunc("POST /v1/containers/{name}/stop", s.handleStop)
	mux.HandleFunc("DELETE /v1/containers/{name}", s.handleRemove)
	mux.HandleFunc("POST /v1/containers/{name}/logs", s.handleLogs)
	mux.HandleFunc("POST /v1/exec", s.handleExec)
	mux.HandleFunc("POST /v1/stats", s.handleStats)

	s.server = &http.Server{
		Handler:           bearerAuth(token, logger, mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler exposes the configured handler chain, for tests.
func (s *Server) Handler() http.Handler { return s.server.Handler }

// Start begins listening on the configured TCP address.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.listener = listener
	s.log.Info("agent listening", "addr", listener.Addr().String())
	go func() { _ = s.server.Serve(listener) }()
	return nil
}

// Addr returns the bound listen address, useful when port 0 was asked.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.addr
	}
	return s.listener.Addr().String()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// acquireWorker takes a slot from the bounded pool, blocking until one
// frees up or the client goes away.
func (s *Server) acquireWorker(ctx context.Context) error {
	return s.workers.Acquire(ctx, 1)
}

func (s *Server) releaseWorker() {
	s.workers.Release(1)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	eng := "ok"
	if err := s.eng.Ping(r.Context()); err != nil {
		eng = err.Error()
	}
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Engine:    eng,
		StartedAt: s.startedAt.Format(time.RFC3339),
	})
}

func (s *Server) handleLaunch(w http.ResponseWriter, r *http.Request) {
	var req LaunchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Image == "" {
		writeError(w, http.StatusBadRequest, "image is required")
		return
	}

	id, name, err := s.eng.Launch(r.Context(), engine.LaunchSpec{
		Image:   req.Image,
		Name:    req.Name,
		Command: req.Command,
		Env:     req.Env,
		Ports:   req.Ports,
		Volumes: req.Volumes,
	})
	if err != nil {
		s.log.Error("launch failed", "image", req.Image, "error", err)
		writeEngineError(w, err)
		return
	}
	s.log.Info("container launched", "id", id, "name", name, "image", req.Image)
	writeJSON(w, http.StatusCreated, LaunchResponse{ID: id, Name: name})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	all := r.URL.Query().Get("all") == "true"
	containers, err := s.eng.List(r.Context(), all)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	infos := make([]ContainerInfo, len(containers))
	for i, c := range containers {
		infos[i] = ContainerInfo{
			ID:      c.ID,
			Image:   c.Image,
			Command: c.Command,
			Created: c.Created.Unix(),
			Status:  c.Status,
			Ports:   c.Ports,
			Name:    c.Name,
		}
	}
	writeJSON(w, http.StatusOK, infos)
}

func (s *Server) handleInspect(w http.ResponseWriter, r *http.Request) {
	raw, err := s.eng.InspectRaw(r.Context(), r.PathValue("name"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raw)
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	// An empty body means default stop behavior.
	var req StopRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	timeout := time.Duration(req.Timeout) * time.Second
	if err := s.eng.Stop(r.Context(), name, req.Force, timeout); err != nil {
		s.log.Error("stop failed", "container", name, "error", err)
		writeEngineError(w, err)
		return
	}
	s.log.Info("container stopped", "container", name, "force", req.Force)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRemove(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	force := r.URL.Query().Get("force") == "true"
	volumes := r.URL.Query().Get("volumes") == "true"

	removed, err := s.eng.Remove(r.Context(), name, force, volumes)
	if err != nil {
		s.log.Error("remove failed", "container", name, "error", err)
		writeEngineError(w, err)
		return
	}
	s.log.Info("container removed", "container", removed)
	writeJSON(w, http.StatusOK, RemoveResponse{Removed: removed})
}

// writeEngineError maps runtime lookup failures onto HTTP statuses.
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, engine.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, engine.ErrNotRunning):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// writeJSON marshals v as JSON and writes it to w with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
