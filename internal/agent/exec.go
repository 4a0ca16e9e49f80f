package agent

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/poridhioss/dockyard/internal/id"
	"github.com/poridhioss/dockyard/internal/relay"
	"github.com/poridhioss/dockyard/internal/session"
)

// handleExec upgrades the connection and bridges it to a relay. The
// client speaks NDJSON envelopes: a start request first, then input
// chunks; the server answers with output chunks and a single finished
// status, whatever happens in between.
func (s *Server) handleExec(w http.ResponseWriter, r *http.Request) {
	if err := s.acquireWorker(r.Context()); err != nil {
		return
	}
	defer s.releaseWorker()

	hj, ok := w.(http.Hijacker)
	if !ok {
		writeError(w, http.StatusInternalServerError, "connection cannot be upgraded")
		return
	}
	conn, bufrw, err := hj.Hijack()
	if err != nil {
		s.log.Error("hijack failed", "error", err)
		return
	}
	defer conn.Close()

	_, _ = bufrw.WriteString("HTTP/1.1 101 UPGRADED\r\nContent-Type: application/vnd.dockyard.stream+json\r\nConnection: Upgrade\r\nUpgrade: tcp\r\n\r\n")
	_ = bufrw.Flush()

	// The request context dies with the handler's HTTP machinery once
	// the connection is hijacked, so the call gets its own.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dec := json.NewDecoder(bufrw.Reader)
	send := func(msg ServerMessage) error {
		if err := json.NewEncoder(bufrw.Writer).Encode(msg); err != nil {
			return err
		}
		return bufrw.Flush()
	}

	var first ClientMessage
	if err := dec.Decode(&first); err != nil || first.Start == nil {
		_ = send(ServerMessage{Status: failedStatus("first message must be a start request")})
		return
	}
	start := *first.Start
	if start.Container == "" || len(start.Command) == 0 {
		_ = send(ServerMessage{Status: failedStatus("container and command are required")})
		return
	}

	logger := s.log.With("call", id.New("exec"), "container", start.Container)

	sess, err := session.Open(ctx, s.eng, start.Container, start.spec())
	if err != nil {
		logger.Warn("exec open failed", "error", err)
		_ = send(ServerMessage{Status: failedStatus(err.Error())})
		return
	}

	logger.Info("exec started", "command", start.Command, "interactive", start.Interactive)

	// Input pump feed: decode client envelopes until the client half
	// closes or the connection breaks. Input outside interactive mode
	// is ignored; this protocol attaches stdin only to interactive
	// execs.
	input := make(chan []byte)
	go func() {
		defer close(input)
		for {
			var msg ClientMessage
			if err := dec.Decode(&msg); err != nil {
				if !errors.Is(err, io.EOF) {
					logger.Debug("client stream ended", "error", err)
					cancel()
				}
				return
			}
			if msg.Input == nil {
				continue
			}
			if !start.Interactive {
				logger.Debug("ignoring input for non-interactive exec")
				continue
			}
			select {
			case input <- msg.Input.Data:
			case <-ctx.Done():
				return
			}
		}
	}()

	var sendErr error
	for ev := range relay.Run(ctx, logger, sess, input) {
		var msg ServerMessage
		switch e := ev.(type) {
		case relay.Output:
			msg.Output = outputChunk(e.Chunk)
		case relay.Status:
			msg.Status = statusBody(e)
			logger.Info("exec finished", "success", e.Success, "exitCode", e.ExitCode)
		}
		if sendErr != nil {
			continue // client is gone; drain so the relay can wind down
		}
		if sendErr = send(msg); sendErr != nil {
			logger.Debug("client write failed", "error", sendErr)
			cancel()
		}
	}
}
