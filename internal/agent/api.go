package agent

import (
	"github.com/poridhioss/dockyard/internal/demux"
	"github.com/poridhioss/dockyard/internal/engine"
	"github.com/poridhioss/dockyard/internal/relay"
	"github.com/poridhioss/dockyard/internal/session"
)

// Wire types for the agent's HTTP surface. Streaming endpoints carry
// newline-delimited JSON; the exec stream carries one envelope per
// line in both directions over the upgraded connection.

// HealthResponse reports agent liveness.
type HealthResponse struct {
	Status    string `json:"status"`
	Engine    string `json:"engine"`
	StartedAt string `json:"startedAt"`
}

// ErrorResponse is the body of every non-2xx unary response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// LaunchRequest asks the agent to create and start a container.
type LaunchRequest struct {
	Image   string   `json:"image"`
	Name    string   `json:"name,omitempty"`
	Command []string `json:"command,omitempty"`
	Env     []string `json:"env,omitempty"`
	Ports   []string `json:"ports,omitempty"`
	Volumes []string `json:"volumes,omitempty"`
}

// LaunchResponse identifies the started container.
type LaunchResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// StopRequest controls how a container is stopped.
type StopRequest struct {
	Force   bool `json:"force,omitempty"`
	Timeout int  `json:"timeout,omitempty"` // seconds; 0 = engine default
}

// ContainerInfo is one row of a listing.
type ContainerInfo struct {
	ID      string `json:"id"`
	Image   string `json:"image"`
	Command string `json:"command"`
	Created int64  `json:"created"` // unix seconds
	Status  string `json:"status"`
	Ports   string `json:"ports"`
	Name    string `json:"name"`
}

// RemoveResponse names the container that was removed.
type RemoveResponse struct {
	Removed string `json:"removed"`
}

// LogsRequest is the filter for a log stream.
type LogsRequest struct {
	Follow     bool   `json:"follow,omitempty"`
	Tail       uint   `json:"tail,omitempty"`
	Since      string `json:"since,omitempty"`
	Timestamps bool   `json:"timestamps,omitempty"`
	Stdout     bool   `json:"stdout,omitempty"`
	Stderr     bool   `json:"stderr,omitempty"`
}

func (r LogsRequest) filter() session.LogFilter {
	return session.LogFilter{
		Follow:     r.Follow,
		Tail:       r.Tail,
		Since:      r.Since,
		Timestamps: r.Timestamps,
		Stdout:     r.Stdout,
		Stderr:     r.Stderr,
	}
}

// StatsRequest selects a container to sample.
type StatsRequest struct {
	Container string `json:"container"`
	Stream    bool   `json:"stream,omitempty"`
}

// StartRequest is the mandatory first client message of an exec call.
type StartRequest struct {
	Container   string            `json:"container"`
	Command     []string          `json:"command"`
	Interactive bool              `json:"interactive,omitempty"`
	User        string            `json:"user,omitempty"`
	WorkingDir  string            `json:"workingDir,omitempty"`
	Environment map[string]string `json:"environment,omitempty"`
}

func (r StartRequest) spec() engine.ExecSpec {
	return engine.ExecSpec{
		Command:     r.Command,
		TTY:         r.Interactive,
		Stdin:       r.Interactive,
		User:        r.User,
		WorkingDir:  r.WorkingDir,
		Environment: r.Environment,
	}
}

// InputChunk carries stdin bytes. Data is base64 on the wire.
type InputChunk struct {
	Data []byte `json:"data"`
}

// ClientMessage is one inbound exec envelope; exactly one field is set.
type ClientMessage struct {
	Start *StartRequest `json:"start,omitempty"`
	Input *InputChunk   `json:"input,omitempty"`
}

// OutputChunk carries one classified unit of process or log output.
type OutputChunk struct {
	Data   []byte `json:"data"`
	Stream string `json:"stream"` // "stdout" or "stderr"
}

// StatusBody reports how a call ended. Finished marks the last message
// of the stream.
type StatusBody struct {
	Success  bool   `json:"success"`
	Message  string `json:"message,omitempty"`
	ExitCode *int   `json:"exitCode,omitempty"`
	Finished bool   `json:"finished"`
}

// ServerMessage is one outbound envelope of the exec stream.
type ServerMessage struct {
	Output *OutputChunk `json:"output,omitempty"`
	Status *StatusBody  `json:"status,omitempty"`
}

// LogMessage is one outbound envelope of a log stream.
type LogMessage struct {
	Log    *OutputChunk `json:"log,omitempty"`
	Status *StatusBody  `json:"status,omitempty"`
}

// StatsMessage is one outbound envelope of a stats stream.
type StatsMessage struct {
	Stats  *engine.StatsSample `json:"stats,omitempty"`
	Status *StatusBody         `json:"status,omitempty"`
}

func outputChunk(c demux.Chunk) *OutputChunk {
	return &OutputChunk{Data: c.Data, Stream: c.Kind.String()}
}

func statusBody(s relay.Status) *StatusBody {
	body := &StatusBody{
		Success:  s.Success,
		Message:  s.Message,
		Finished: s.Finished,
	}
	if s.HasCode {
		code := s.ExitCode
		body.ExitCode = &code
	}
	return body
}

// failedStatus shapes a terminal error status for calls that never got
// a relay running.
func failedStatus(msg string) *StatusBody {
	return &StatusBody{Success: false, Message: msg, Finished: true}
}
