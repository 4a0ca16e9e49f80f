// Package session owns the lifecycle of a single exec or log operation
// against the container engine: opening the duplex byte channel,
// tracking state transitions, and resolving the exit status exactly
// once. The raw channel never leaves the Session; relays pump bytes
// through it but close and inspect only via Session methods.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/poridhioss/dockyard/internal/engine"
)

// State is a Session's lifecycle phase.
type State int

const (
	StateCreated State = iota
	StateRunning
	StateDraining
	StateFinished
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateFinished:
		return "finished"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ErrEmptyCommand is returned when an exec is opened with no command.
var ErrEmptyCommand = errors.New("command must not be empty")

// ErrInputClosed is returned by SendInput once the session has reached
// a terminal state. Callers log it and move on; it is never fatal.
var ErrInputClosed = errors.New("session no longer accepts input")

// exitPollInterval paces ExecInspect while waiting for the process to
// be reaped after its stream ends.
const exitPollInterval = 100 * time.Millisecond

type kind int

const (
	kindExec kind = iota
	kindLogs
)

// Session wraps one exec instance or one log stream. It is created by
// Open or OpenLogs, driven by a relay, and closed exactly once.
type Session struct {
	eng  engine.Engine
	kind kind
	id   string

	interactive bool
	multiplexed bool
	conn        engine.ExecConn

	mu       sync.Mutex
	state    State
	exitCode int
	hasExit  bool

	closeOnce sync.Once
	closeErr  error
}

// Open creates an exec session inside a running container and attaches
// to its stream. The target may be a container name or ID.
func Open(ctx context.Context, eng engine.Engine, target string, spec engine.ExecSpec) (*Session, error) {
	if len(spec.Command) == 0 {
		return nil, ErrEmptyCommand
	}

	ref, err := eng.Resolve(ctx, target)
	if err != nil {
		return nil, err
	}
	if !ref.Running {
		return nil, fmt.Errorf("container %s: %w", target, engine.ErrNotRunning)
	}

	id, err := eng.ExecCreate(ctx, ref.ID, spec)
	if err != nil {
		return nil, fmt.Errorf("creating exec: %w", err)
	}
	conn, err := eng.ExecAttach(ctx, id, spec.TTY)
	if err != nil {
		return nil, fmt.Errorf("attaching exec: %w", err)
	}

	return &Session{
		eng:         eng,
		kind:        kindExec,
		id:          id,
		interactive: spec.TTY,
		multiplexed: !spec.TTY,
		conn:        conn,
		state:       StateRunning,
	}, nil
}

// OpenLogs opens a log stream for a container. Unlike exec, the
// container does not have to be running.
func OpenLogs(ctx context.Context, eng engine.Engine, target string, filter LogFilter) (*Session, error) {
	filter = filter.Normalize()

	ref, err := eng.Resolve(ctx, target)
	if err != nil {
		return nil, err
	}

	rc, err := eng.OpenLogs(ctx, ref.ID, filter.options())
	if err != nil {
		return nil, fmt.Errorf("opening logs: %w", err)
	}

	// The engine frames log output only when both streams share the
	// byte channel and no TTY was allocated.
	return &Session{
		eng:         eng,
		kind:        kindLogs,
		id:          ref.ID,
		multiplexed: filter.Stdout && filter.Stderr && !ref.TTY,
		conn:        logConn{rc},
		state:       StateRunning,
	}, nil
}

// ID returns the engine-assigned exec or container identifier.
func (s *Session) ID() string { return s.id }

// Interactive reports whether a pseudo-terminal was allocated.
func (s *Session) Interactive() bool { return s.interactive }

// Multiplexed reports whether the output stream carries framed
// stdout/stderr records that need demultiplexing.
func (s *Session) Multiplexed() bool { return s.multiplexed }

// State returns the current lifecycle phase.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Exit returns the exit code and whether it has been resolved yet.
func (s *Session) Exit() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exitCode, s.hasExit
}

// Read pulls raw bytes from the session's channel. Only the output
// pump calls this.
func (s *Session) Read(p []byte) (int, error) {
	return s.conn.Read(p)
}

// SendInput appends bytes to the process's stdin, preserving arrival
// order. Rejected once the session is terminal.
func (s *Session) SendInput(p []byte) error {
	s.mu.Lock()
	ok := s.state == StateRunning || s.state == StateDraining
	s.mu.Unlock()
	if !ok {
		return ErrInputClosed
	}
	if _, err := s.conn.Write(p); err != nil {
		return fmt.Errorf("writing stdin: %w", err)
	}
	return nil
}

// HalfClose shuts the write side of the channel after the client's
// input is exhausted. Output may still be draining, so the read side
// stays open.
func (s *Session) HalfClose() {
	s.mu.Lock()
	if s.state == StateRunning {
		s.state = StateDraining
	}
	s.mu.Unlock()
	_ = s.conn.CloseWrite()
}

// AwaitExit blocks until the engine reports the process terminated and
// returns its exit code. A lost engine connection or cancellation
// synthesizes exit code -1 and marks the session Failed.
func (s *Session) AwaitExit(ctx context.Context) int {
	if code, ok := s.Exit(); ok {
		return code
	}
	if s.kind == kindLogs {
		s.resolve(0, StateFinished)
		return 0
	}

	ticker := time.NewTicker(exitPollInterval)
	defer ticker.Stop()
	for {
		st, err := s.eng.ExecInspect(ctx, s.id)
		if err != nil {
			s.resolve(-1, StateFailed)
			return -1
		}
		if !st.Running {
			s.resolve(st.ExitCode, StateFinished)
			return st.ExitCode
		}
		select {
		case <-ctx.Done():
			s.resolve(-1, StateFailed)
			return -1
		case <-ticker.C:
		}
	}
}

// Fail forces the session into the Failed state with the given code.
// Used when a pump dies before an exit status could be obtained.
func (s *Session) Fail(code int) {
	s.resolve(code, StateFailed)
}

// resolve records the exit code. The first resolution wins; later
// calls are no-ops so the code is set exactly once.
func (s *Session) resolve(code int, terminal State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hasExit {
		return
	}
	s.exitCode = code
	s.hasExit = true
	s.state = terminal
}

// Close releases the underlying channel. Safe to call from any path,
// any number of times.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.conn.Close()
	})
	return s.closeErr
}

// logConn adapts a read-only log stream to the duplex channel shape.
type logConn struct {
	rc io.ReadCloser
}

func (c logConn) Read(p []byte) (int, error)  { return c.rc.Read(p) }
func (c logConn) Write(p []byte) (int, error) { return 0, errors.New("log stream is read-only") }
func (c logConn) CloseWrite() error           { return nil }
func (c logConn) Close() error                { return c.rc.Close() }
