// Package relay pumps bytes between a client's message stream and a
// Session: one goroutine forwards inbound input to the process's
// stdin, another reads and demultiplexes process output into events.
// Every run ends with exactly one finished status event, whatever the
// failure path.
package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/poridhioss/dockyard/internal/demux"
	"github.com/poridhioss/dockyard/internal/session"
)

// Event is one outbound message of a relay run: either an Output chunk
// or a terminal Status.
type Event interface {
	event()
}

// Output carries one classified unit of process output.
type Output struct {
	Chunk demux.Chunk
}

// Status reports how the run ended. Exactly one Status with Finished
// set is delivered per run, always last.
type Status struct {
	Success  bool
	Message  string
	ExitCode int
	HasCode  bool
	Finished bool
}

func (Output) event() {}
func (Status) event() {}

const (
	// outBuffer bounds the outbound queue so a slow client applies
	// backpressure to the output pump instead of growing memory.
	outBuffer = 64

	readBufSize = 4096
)

// Relay drives one session's pumps.
type Relay struct {
	sess  *session.Session
	log   *slog.Logger
	input <-chan []byte
	out   chan Event
}

// Run starts the pumps over sess and returns the outbound event
// stream. The channel is closed after the terminal status. A nil input
// stream skips the input pump entirely, which is how log tailing runs.
// Cancelling ctx closes the session so a blocked read unblocks.
func Run(ctx context.Context, logger *slog.Logger, sess *session.Session, input <-chan []byte) <-chan Event {
	r := &Relay{
		sess:  sess,
		log:   logger,
		input: input,
		out:   make(chan Event, outBuffer),
	}

	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			r.sess.Close()
		case <-done:
		}
	}()

	if input != nil {
		go r.inputPump(ctx)
	}
	go func() {
		defer close(r.out)
		defer close(done)
		defer r.sess.Close()
		r.outputPump(ctx)
	}()
	return r.out
}

// inputPump forwards client input to stdin in arrival order, then
// half-closes the write side when the inbound stream ends. It never
// ends the relay on its own; output may outlive input by a long way.
func (r *Relay) inputPump(ctx context.Context) {
	defer func() {
		if p := recover(); p != nil {
			r.log.Error("input pump panicked", "panic", p)
		}
	}()
	defer r.sess.HalfClose()

	for {
		select {
		case data, ok := <-r.input:
			if !ok {
				return
			}
			if err := r.sess.SendInput(data); err != nil {
				if errors.Is(err, session.ErrInputClosed) {
					r.log.Debug("dropping input after session end")
				} else {
					r.log.Warn("stdin write failed", "error", err)
				}
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// outputPump drains the session, publishes chunks, resolves the exit
// status and emits the single terminal event. Faults are contained
// here and folded into the status rather than crashing the worker.
func (r *Relay) outputPump(ctx context.Context) {
	var pumpErr error
	func() {
		defer func() {
			if p := recover(); p != nil {
				r.log.Error("output pump panicked", "panic", p)
				pumpErr = fmt.Errorf("output pump: %v", p)
			}
		}()
		pumpErr = r.drain(ctx)
	}()

	status := r.finalStatus(ctx, pumpErr)
	select {
	case r.out <- status:
	case <-ctx.Done():
	}
}

// drain reads until end-of-stream. A trailing partial frame is carried
// into the next read and flushed raw when the stream ends.
func (r *Relay) drain(ctx context.Context) error {
	buf := make([]byte, readBufSize)
	var carry []byte
	for {
		n, err := r.sess.Read(buf)
		if n > 0 {
			data := make([]byte, 0, len(carry)+n)
			data = append(data, carry...)
			data = append(data, buf[:n]...)

			var chunks []demux.Chunk
			if r.sess.Multiplexed() {
				chunks, carry = demux.Demux(data, false)
			} else {
				chunks, carry = []demux.Chunk{{Kind: demux.Stdout, Data: data}}, nil
			}
			if sendErr := r.publish(ctx, chunks); sendErr != nil {
				return sendErr
			}
		}
		if err != nil {
			if len(carry) > 0 {
				chunks, _ := demux.Demux(carry, true)
				if sendErr := r.publish(ctx, chunks); sendErr != nil {
					return sendErr
				}
			}
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("reading output: %w", err)
		}
	}
}

func (r *Relay) publish(ctx context.Context, chunks []demux.Chunk) error {
	for _, c := range chunks {
		if len(c.Data) == 0 {
			continue
		}
		select {
		case r.out <- Output{Chunk: c}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// finalStatus resolves the exit code and shapes the terminal event. A
// pump fault or lost engine connection surfaces as a failed status
// with exit code -1, never as a truncated stream.
func (r *Relay) finalStatus(ctx context.Context, pumpErr error) Status {
	if pumpErr != nil {
		r.sess.Fail(-1)
	}
	code := r.sess.AwaitExit(ctx)

	if r.sess.State() == session.StateFailed {
		msg := "session interrupted before exit status was obtained"
		if pumpErr != nil {
			msg = pumpErr.Error()
		}
		return Status{Message: msg, ExitCode: code, HasCode: true, Finished: true}
	}
	return Status{Success: true, ExitCode: code, HasCode: true, Finished: true}
}
