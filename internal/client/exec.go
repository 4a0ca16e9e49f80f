package client

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/poridhioss/dockyard/internal/agent"
)

// ExecResult is the terminal outcome of an exec call.
type ExecResult struct {
	Success  bool
	ExitCode int
	Message  string
}

// ErrInterrupted is returned when the exec stream ends because ctx was
// canceled.
var ErrInterrupted = errors.New("exec interrupted")

// Exec runs a command in a remote container over the upgraded duplex
// stream. stdin is only consumed in interactive mode; output lands on
// stdout/stderr by stream kind. Cancelling ctx tears the stream down.
func (c *Client) Exec(ctx context.Context, start agent.StartRequest, stdin io.Reader, stdout, stderr io.Writer) (ExecResult, error) {
	conn, err := net.DialTimeout("tcp", c.addr, c.timeout)
	if err != nil {
		return ExecResult{}, fmt.Errorf("agent at %s unreachable: %w", c.addr, err)
	}
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	var req strings.Builder
	req.WriteString("POST /v1/exec HTTP/1.1\r\n")
	req.WriteString("Host: " + c.addr + "\r\n")
	if c.token != "" {
		req.WriteString("Authorization: Bearer " + c.token + "\r\n")
	}
	req.WriteString("Connection: Upgrade\r\nUpgrade: tcp\r\n\r\n")
	if _, err := conn.Write([]byte(req.String())); err != nil {
		return ExecResult{}, fmt.Errorf("sending upgrade request: %w", err)
	}

	br := bufio.NewReader(conn)
	resp, err := http.ReadResponse(br, nil)
	if err != nil {
		return ExecResult{}, fmt.Errorf("reading upgrade response: %w", err)
	}
	if resp.StatusCode != http.StatusSwitchingProtocols {
		defer resp.Body.Close()
		return ExecResult{}, apiError(resp)
	}

	enc := json.NewEncoder(conn)
	if err := enc.Encode(agent.ClientMessage{Start: &start}); err != nil {
		return ExecResult{}, fmt.Errorf("sending start request: %w", err)
	}

	if start.Interactive && stdin != nil {
		go c.pumpStdin(enc, conn, stdin)
	} else {
		// Nothing to send after start; let the agent see input EOF.
		halfClose(conn)
	}

	dec := json.NewDecoder(br)
	for {
		var msg agent.ServerMessage
		if err := dec.Decode(&msg); err != nil {
			if ctx.Err() != nil {
				return ExecResult{}, ErrInterrupted
			}
			return ExecResult{}, fmt.Errorf("stream ended without a status: %w", err)
		}
		switch {
		case msg.Output != nil:
			w := stdout
			if msg.Output.Stream == "stderr" {
				w = stderr
			}
			if _, err := w.Write(msg.Output.Data); err != nil {
				return ExecResult{}, fmt.Errorf("writing output: %w", err)
			}
		case msg.Status != nil && msg.Status.Finished:
			result := ExecResult{
				Success: msg.Status.Success,
				Message: msg.Status.Message,
			}
			result.ExitCode = -1
			if msg.Status.ExitCode != nil {
				result.ExitCode = *msg.Status.ExitCode
			}
			return result, nil
		}
	}
}

// pumpStdin forwards local stdin as input chunks, then half-closes the
// write side so the remote process sees end of input.
func (c *Client) pumpStdin(enc *json.Encoder, conn net.Conn, stdin io.Reader) {
	defer halfClose(conn)
	buf := make([]byte, 4096)
	for {
		n, err := stdin.Read(buf)
		if n > 0 {
			data := make([]byte, n)
			copy(data, buf[:n])
			if encErr := enc.Encode(agent.ClientMessage{Input: &agent.InputChunk{Data: data}}); encErr != nil {
				return
			}
		}
		if err != nil {
			return
		}
	}
}

func halfClose(conn net.Conn) {
	type closeWriter interface {
		CloseWrite() error
	}
	if cw, ok := conn.(closeWriter); ok {
		_ = cw.CloseWrite()
	}
}
