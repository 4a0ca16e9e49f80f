// Package engine abstracts the container runtime the agent sits next to.
// The only implementation is Docker, reached over its control socket; the
// interface exists so the protocol layer can be exercised against fakes.
package engine

import (
	"context"
	"errors"
	"io"
	"time"
)

// Sentinel errors for runtime lookup failures. Implementations wrap
// these so callers can classify with errors.Is.
var (
	// ErrNotFound means the target does not resolve to a known container.
	ErrNotFound = errors.New("container not found")
	// ErrNotRunning means the target exists but is not in a running state.
	ErrNotRunning = errors.New("container not running")
)

// ContainerRef identifies a resolved container.
type ContainerRef struct {
	ID      string // full runtime ID
	Name    string
	Running bool
	TTY     bool // created with a TTY; output is never multiplexed
}

// LaunchSpec describes a container to create and start.
type LaunchSpec struct {
	Image   string
	Name    string // generated when empty
	Command []string
	Env     []string // KEY=VALUE
	Ports   []string // "8080:80" or "127.0.0.1:8080:80/tcp"
	Volumes []string // bind specs, "host:container[:ro]"
}

// ContainerSummary is one row of a container listing.
type ContainerSummary struct {
	ID      string // short ID
	Image   string
	Command string
	Created time.Time
	Status  string
	Ports   string
	Name    string
}

// ExecSpec describes an exec instance to create inside a container.
type ExecSpec struct {
	Command     []string
	TTY         bool
	Stdin       bool
	User        string
	WorkingDir  string
	Environment map[string]string
}

// ExecConn is the duplex byte channel to a started exec instance.
// CloseWrite half-closes the input side while output may still drain.
type ExecConn interface {
	io.Reader
	io.Writer
	CloseWrite() error
	Close() error
}

// ExecStatus reports an exec instance's termination state.
type ExecStatus struct {
	Running  bool
	ExitCode int
}

// LogOptions selects which container log data to return.
type LogOptions struct {
	Follow     bool
	Tail       uint   // lines from the end; 0 = all
	Since      string // absolute time, RFC3339; empty = no lower bound
	Timestamps bool
	Stdout     bool
	Stderr     bool
}

// StatsSample is one resource-usage reading for a container.
type StatsSample struct {
	ID            string
	Name          string
	CPUPercent    float64
	MemoryUsage   uint64
	MemoryLimit   uint64
	MemoryPercent float64
	NetworkRx     uint64
	NetworkTx     uint64
	BlockRead     uint64
	BlockWrite    uint64
	PIDs          uint64
}

// Engine is the runtime surface the agent consumes. A single Engine is
// shared by all calls; implementations must be safe for concurrent use.
type Engine interface {
	// Ping verifies the runtime is reachable.
	Ping(ctx context.Context) error

	// Launch pulls the image if needed, then creates and starts a
	// container. Returns the short ID and the resolved name.
	Launch(ctx context.Context, spec LaunchSpec) (id, name string, err error)

	// Stop stops a running container, killing it when force is set.
	Stop(ctx context.Context, target string, force bool, timeout time.Duration) error

	// List returns containers, including stopped ones when all is set.
	List(ctx context.Context, all bool) ([]ContainerSummary, error)

	// InspectRaw returns the runtime's inspect document as raw JSON.
	InspectRaw(ctx context.Context, target string) ([]byte, error)

	// Remove deletes a container; running containers require force.
	Remove(ctx context.Context, target string, force, volumes bool) (string, error)

	// Resolve looks up a container by name or ID.
	Resolve(ctx context.Context, target string) (ContainerRef, error)

	// ExecCreate allocates an exec instance and returns its ID.
	ExecCreate(ctx context.Context, containerID string, spec ExecSpec) (string, error)

	// ExecAttach starts the exec instance and returns its byte channel.
	ExecAttach(ctx context.Context, execID string, tty bool) (ExecConn, error)

	// ExecInspect reports whether the exec instance is still running and
	// its exit code once it is not.
	ExecInspect(ctx context.Context, execID string) (ExecStatus, error)

	// Stats takes one resource-usage reading for a container.
	Stats(ctx context.Context, target string) (StatsSample, error)

	// OpenLogs returns the container's log stream. The stream is
	// multiplexed in the engine frame format when the container has no
	// TTY and both stdout and stderr are requested.
	OpenLogs(ctx context.Context, containerID string, opts LogOptions) (io.ReadCloser, error)

	// Close releases the runtime connection.
	Close() error
}
