package agent

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/poridhioss/dockyard/internal/id"
	"github.com/poridhioss/dockyard/internal/relay"
	"github.com/poridhioss/dockyard/internal/session"
)

// statsInterval is how often a streaming stats call samples the engine.
const statsInterval = time.Second

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	// An empty body means default filter (both streams, no follow).
	var req LogsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	if err := s.acquireWorker(r.Context()); err != nil {
		return
	}
	defer s.releaseWorker()

	logger := s.log.With("call", id.New("tail"), "container", name)
	sess, err := session.OpenLogs(r.Context(), s.eng, name, req.filter())
	if err != nil {
		logger.Warn("logs open failed", "error", err)
		writeEngineError(w, err)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	enc := json.NewEncoder(w)
	var sendErr error
	for ev := range relay.Run(ctx, logger, sess, nil) {
		var msg LogMessage
		switch e := ev.(type) {
		case relay.Output:
			msg.Log = outputChunk(e.Chunk)
		case relay.Status:
			msg.Status = statusBody(e)
		}
		if sendErr != nil {
			continue
		}
		if sendErr = enc.Encode(msg); sendErr != nil {
			cancel()
			continue
		}
		flusher.Flush()
	}
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	var req StatsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Container == "" {
		writeError(w, http.StatusBadRequest, "container is required")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	if err := s.acquireWorker(r.Context()); err != nil {
		return
	}
	defer s.releaseWorker()

	ctx := r.Context()
	ref, err := s.eng.Resolve(ctx, req.Container)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	enc := json.NewEncoder(w)
	ticker := time.NewTicker(statsInterval)
	defer ticker.Stop()
	for {
		sample, err := s.eng.Stats(ctx, ref.ID)
		if err != nil {
			s.log.Warn("stats sampling failed", "container", req.Container, "error", err)
			_ = enc.Encode(StatsMessage{Status: failedStatus(err.Error())})
			flusher.Flush()
			return
		}
		if err := enc.Encode(StatsMessage{Stats: &sample}); err != nil {
			return
		}
		flusher.Flush()

		if !req.Stream {
			_ = enc.Encode(StatsMessage{Status: &StatusBody{Success: true, Finished: true}})
			flusher.Flush()
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
