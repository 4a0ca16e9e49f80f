package session

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poridhioss/dockyard/internal/engine"
	"github.com/poridhioss/dockyard/internal/engine/enginetest"
)

func TestOpenEmptyCommand(t *testing.T) {
	_, err := Open(context.Background(), &enginetest.Fake{}, "web", engine.ExecSpec{})
	assert.ErrorIs(t, err, ErrEmptyCommand)
}

func TestOpenNotFound(t *testing.T) {
	eng := &enginetest.Fake{
		ResolveFunc: func(ctx context.Context, target string) (engine.ContainerRef, error) {
			return engine.ContainerRef{}, engine.ErrNotFound
		},
	}
	_, err := Open(context.Background(), eng, "ghost", engine.ExecSpec{Command: []string{"ls"}})
	assert.ErrorIs(t, err, engine.ErrNotFound)
}

func TestOpenNotRunning(t *testing.T) {
	eng := &enginetest.Fake{
		ResolveFunc: func(ctx context.Context, target string) (engine.ContainerRef, error) {
			return engine.ContainerRef{ID: "abc", Name: target, Running: false}, nil
		},
	}
	_, err := Open(context.Background(), eng, "stopped", engine.ExecSpec{Command: []string{"ls"}})
	assert.ErrorIs(t, err, engine.ErrNotRunning)
}

func TestOpenRunning(t *testing.T) {
	conn := enginetest.NewConn([]byte("out"))
	eng := &enginetest.Fake{
		ExecAttachFunc: func(ctx context.Context, execID string, tty bool) (engine.ExecConn, error) {
			return conn, nil
		},
	}

	sess, err := Open(context.Background(), eng, "web", engine.ExecSpec{Command: []string{"ls"}})
	require.NoError(t, err)
	assert.Equal(t, StateRunning, sess.State())
	assert.True(t, sess.Multiplexed())
	assert.False(t, sess.Interactive())

	_, ok := sess.Exit()
	assert.False(t, ok)
}

func TestInteractiveSkipsMultiplexing(t *testing.T) {
	sess, err := Open(context.Background(), &enginetest.Fake{}, "web",
		engine.ExecSpec{Command: []string{"sh"}, TTY: true, Stdin: true})
	require.NoError(t, err)
	assert.True(t, sess.Interactive())
	assert.False(t, sess.Multiplexed())
}

func TestSendInputOrderAndGating(t *testing.T) {
	conn := enginetest.NewConn(nil)
	eng := &enginetest.Fake{
		ExecAttachFunc: func(ctx context.Context, execID string, tty bool) (engine.ExecConn, error) {
			return conn, nil
		},
	}
	sess, err := Open(context.Background(), eng, "web", engine.ExecSpec{Command: []string{"cat"}, Stdin: true})
	require.NoError(t, err)

	require.NoError(t, sess.SendInput([]byte("one ")))
	require.NoError(t, sess.SendInput([]byte("two")))
	assert.Equal(t, "one two", conn.Stdin.String())

	// draining still accepts input
	sess.HalfClose()
	assert.Equal(t, StateDraining, sess.State())

	sess.Fail(-1)
	assert.ErrorIs(t, sess.SendInput([]byte("late")), ErrInputClosed)
}

func TestAwaitExitPollsUntilDone(t *testing.T) {
	calls := 0
	eng := &enginetest.Fake{
		ExecInspectFunc: func(ctx context.Context, execID string) (engine.ExecStatus, error) {
			calls++
			if calls < 3 {
				return engine.ExecStatus{Running: true}, nil
			}
			return engine.ExecStatus{Running: false, ExitCode: 7}, nil
		},
	}
	sess, err := Open(context.Background(), eng, "web", engine.ExecSpec{Command: []string{"sh"}})
	require.NoError(t, err)

	code := sess.AwaitExit(context.Background())
	assert.Equal(t, 7, code)
	assert.Equal(t, StateFinished, sess.State())
	assert.GreaterOrEqual(t, calls, 3)
}

func TestAwaitExitLostConnection(t *testing.T) {
	eng := &enginetest.Fake{
		ExecInspectFunc: func(ctx context.Context, execID string) (engine.ExecStatus, error) {
			return engine.ExecStatus{}, errors.New("connection reset")
		},
	}
	sess, err := Open(context.Background(), eng, "web", engine.ExecSpec{Command: []string{"sh"}})
	require.NoError(t, err)

	assert.Equal(t, -1, sess.AwaitExit(context.Background()))
	assert.Equal(t, StateFailed, sess.State())
}

func TestAwaitExitCanceled(t *testing.T) {
	eng := &enginetest.Fake{
		ExecInspectFunc: func(ctx context.Context, execID string) (engine.ExecStatus, error) {
			return engine.ExecStatus{Running: true}, nil
		},
	}
	sess, err := Open(context.Background(), eng, "web", engine.ExecSpec{Command: []string{"sleep"}})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Equal(t, -1, sess.AwaitExit(ctx))
	assert.Equal(t, StateFailed, sess.State())
}

func TestExitCodeSetOnce(t *testing.T) {
	sess, err := Open(context.Background(), &enginetest.Fake{}, "web", engine.ExecSpec{Command: []string{"sh"}})
	require.NoError(t, err)

	code := sess.AwaitExit(context.Background())
	assert.Equal(t, 0, code)

	// a later failure must not overwrite the resolved code
	sess.Fail(-1)
	got, ok := sess.Exit()
	assert.True(t, ok)
	assert.Equal(t, 0, got)
	assert.Equal(t, StateFinished, sess.State())

	// and AwaitExit returns the cached value without polling again
	assert.Equal(t, 0, sess.AwaitExit(context.Background()))
}

func TestCloseIdempotent(t *testing.T) {
	conn := enginetest.NewConn(nil)
	eng := &enginetest.Fake{
		ExecAttachFunc: func(ctx context.Context, execID string, tty bool) (engine.ExecConn, error) {
			return conn, nil
		},
	}
	sess, err := Open(context.Background(), eng, "web", engine.ExecSpec{Command: []string{"sh"}})
	require.NoError(t, err)

	require.NoError(t, sess.Close())
	require.NoError(t, sess.Close())
	assert.True(t, conn.Closed())
}

func TestOpenLogsToleratesStopped(t *testing.T) {
	var gotOpts engine.LogOptions
	eng := &enginetest.Fake{
		ResolveFunc: func(ctx context.Context, target string) (engine.ContainerRef, error) {
			return engine.ContainerRef{ID: "abc", Name: target, Running: false}, nil
		},
		OpenLogsFunc: func(ctx context.Context, containerID string, opts engine.LogOptions) (io.ReadCloser, error) {
			gotOpts = opts
			return io.NopCloser(nil), nil
		},
	}

	sess, err := OpenLogs(context.Background(), eng, "stopped", LogFilter{Tail: 50})
	require.NoError(t, err)
	assert.True(t, sess.Multiplexed())
	assert.Equal(t, uint(50), gotOpts.Tail)
	// neither stream requested means both
	assert.True(t, gotOpts.Stdout)
	assert.True(t, gotOpts.Stderr)

	assert.Equal(t, 0, sess.AwaitExit(context.Background()))
	assert.Equal(t, StateFinished, sess.State())
}

func TestOpenLogsSingleStreamNotMultiplexed(t *testing.T) {
	sess, err := OpenLogs(context.Background(), &enginetest.Fake{}, "web", LogFilter{Stdout: true})
	require.NoError(t, err)
	assert.False(t, sess.Multiplexed())
}

func TestOpenLogsTTYNotMultiplexed(t *testing.T) {
	eng := &enginetest.Fake{
		ResolveFunc: func(ctx context.Context, target string) (engine.ContainerRef, error) {
			return engine.ContainerRef{ID: "abc", Name: target, Running: true, TTY: true}, nil
		},
	}
	sess, err := OpenLogs(context.Background(), eng, "web", LogFilter{Stdout: true, Stderr: true})
	require.NoError(t, err)
	assert.False(t, sess.Multiplexed())
}

func TestNormalize(t *testing.T) {
	f := LogFilter{}.Normalize()
	assert.True(t, f.Stdout)
	assert.True(t, f.Stderr)

	f = LogFilter{Stderr: true}.Normalize()
	assert.False(t, f.Stdout)
	assert.True(t, f.Stderr)
}

func TestParseSince(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		in   string
		want time.Time
	}{
		{"10s", now.Add(-10 * time.Second)},
		{"30m", now.Add(-30 * time.Minute)},
		{"1h", now.Add(-time.Hour)},
		{"7d", now.Add(-7 * 24 * time.Hour)},
		{"2025-05-01T00:00:00Z", time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)},
		{"", time.Time{}},
		{"abc", time.Time{}},
		{"-5h", time.Time{}},
		{"h", time.Time{}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseSince(tt.in, now), "input %q", tt.in)
	}
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "running", StateRunning.String())
	assert.Equal(t, "failed", StateFailed.String())
}
