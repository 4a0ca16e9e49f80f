// Package enginetest provides a scriptable Engine fake for exercising
// the protocol layer without a Docker daemon.
package enginetest

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/poridhioss/dockyard/internal/engine"
)

// Fake implements engine.Engine with per-method hooks. Unset hooks
// return zero values, so tests only script what they exercise.
type Fake struct {
	PingFunc        func(ctx context.Context) error
	LaunchFunc      func(ctx context.Context, spec engine.LaunchSpec) (string, string, error)
	StopFunc        func(ctx context.Context, target string, force bool, timeout time.Duration) error
	ListFunc        func(ctx context.Context, all bool) ([]engine.ContainerSummary, error)
	InspectRawFunc  func(ctx context.Context, target string) ([]byte, error)
	RemoveFunc      func(ctx context.Context, target string, force, volumes bool) (string, error)
	ResolveFunc     func(ctx context.Context, target string) (engine.ContainerRef, error)
	ExecCreateFunc  func(ctx context.Context, containerID string, spec engine.ExecSpec) (string, error)
	ExecAttachFunc  func(ctx context.Context, execID string, tty bool) (engine.ExecConn, error)
	ExecInspectFunc func(ctx context.Context, execID string) (engine.ExecStatus, error)
	StatsFunc       func(ctx context.Context, target string) (engine.StatsSample, error)
	OpenLogsFunc    func(ctx context.Context, containerID string, opts engine.LogOptions) (io.ReadCloser, error)
	CloseFunc       func() error
}

var _ engine.Engine = (*Fake)(nil)

func (f *Fake) Ping(ctx context.Context) error {
	if f.PingFunc != nil {
		return f.PingFunc(ctx)
	}
	return nil
}

func (f *Fake) Launch(ctx context.Context, spec engine.LaunchSpec) (string, string, error) {
	if f.LaunchFunc != nil {
		return f.LaunchFunc(ctx, spec)
	}
	return "", "", nil
}

func (f *Fake) Stop(ctx context.Context, target string, force bool, timeout time.Duration) error {
	if f.StopFunc != nil {
		return f.StopFunc(ctx, target, force, timeout)
	}
	return nil
}

func (f *Fake) List(ctx context.Context, all bool) ([]engine.ContainerSummary, error) {
	if f.ListFunc != nil {
		return f.ListFunc(ctx, all)
	}
	return nil, nil
}

func (f *Fake) InspectRaw(ctx context.Context, target string) ([]byte, error) {
	if f.InspectRawFunc != nil {
		return f.InspectRawFunc(ctx, target)
	}
	return []byte("{}"), nil
}

func (f *Fake) Remove(ctx context.Context, target string, force, volumes bool) (string, error) {
	if f.RemoveFunc != nil {
		return f.RemoveFunc(ctx, target, force, volumes)
	}
	return target, nil
}

func (f *Fake) Resolve(ctx context.Context, target string) (engine.ContainerRef, error) {
	if f.ResolveFunc != nil {
		return f.ResolveFunc(ctx, target)
	}
	return engine.ContainerRef{ID: target, Name: target, Running: true}, nil
}

func (f *Fake) ExecCreate(ctx context.Context, containerID string, spec engine.ExecSpec) (string, error) {
	if f.ExecCreateFunc != nil {
		return f.ExecCreateFunc(ctx, containerID, spec)
	}
	return "exec-1", nil
}

func (f *Fake) ExecAttach(ctx context.Context, execID string, tty bool) (engine.ExecConn, error) {
	if f.ExecAttachFunc != nil {
		return f.ExecAttachFunc(ctx, execID, tty)
	}
	return NewConn(nil), nil
}

func (f *Fake) ExecInspect(ctx context.Context, execID string) (engine.ExecStatus, error) {
	if f.ExecInspectFunc != nil {
		return f.ExecInspectFunc(ctx, execID)
	}
	return engine.ExecStatus{Running: false, ExitCode: 0}, nil
}

func (f *Fake) Stats(ctx context.Context, target string) (engine.StatsSample, error) {
	if f.StatsFunc != nil {
		return f.StatsFunc(ctx, target)
	}
	return engine.StatsSample{}, nil
}

func (f *Fake) OpenLogs(ctx context.Context, containerID string, opts engine.LogOptions) (io.ReadCloser, error) {
	if f.OpenLogsFunc != nil {
		return f.OpenLogsFunc(ctx, containerID, opts)
	}
	return io.NopCloser(bytes.NewReader(nil)), nil
}

func (f *Fake) Close() error {
	if f.CloseFunc != nil {
		return f.CloseFunc()
	}
	return nil
}

// Conn is an in-memory ExecConn. Reads drain the scripted output;
// writes accumulate into Stdin.
type Conn struct {
	mu         sync.Mutex
	out        *bytes.Reader
	Stdin      bytes.Buffer
	ReadErr    error // returned after the scripted output drains
	halfClosed bool
	closed     bool
}

// NewConn returns a Conn whose reads yield output and then io.EOF.
func NewConn(output []byte) *Conn {
	return &Conn{out: bytes.NewReader(output)}
}

func (c *Conn) Read(p []byte) (int, error) {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return 0, io.ErrClosedPipe
	}
	n, err := c.out.Read(p)
	if errors.Is(err, io.EOF) && c.ReadErr != nil {
		return n, c.ReadErr
	}
	return n, err
}

func (c *Conn) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.halfClosed {
		return 0, io.ErrClosedPipe
	}
	return c.Stdin.Write(p)
}

func (c *Conn) CloseWrite() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.halfClosed = true
	return nil
}

func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// HalfClosed reports whether CloseWrite was called.
func (c *Conn) HalfClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.halfClosed
}

// Closed reports whether Close was called.
func (c *Conn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
