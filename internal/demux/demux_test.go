package demux

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/docker/docker/pkg/stdcopy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// frame builds one multiplexed frame the way the engine does.
func frame(tag byte, payload []byte) []byte {
	buf := make([]byte, 8+len(payload))
	buf[0] = tag
	binary.BigEndian.PutUint32(buf[4:8], uint32(len(payload)))
	copy(buf[8:], payload)
	return buf
}

func TestDemuxSingleFrame(t *testing.T) {
	chunks, rest := Demux(frame(1, []byte("hello\n")), false)

	require.Len(t, chunks, 1)
	assert.Equal(t, Stdout, chunks[0].Kind)
	assert.Equal(t, []byte("hello\n"), chunks[0].Data)
	assert.Empty(t, rest)
}

func TestDemuxInterleavedFrames(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(frame(1, []byte("out1")))
	buf.Write(frame(2, []byte("err1")))
	buf.Write(frame(1, []byte("out2")))

	chunks, rest := Demux(buf.Bytes(), false)

	require.Len(t, chunks, 3)
	assert.Equal(t, Stdout, chunks[0].Kind)
	assert.Equal(t, []byte("out1"), chunks[0].Data)
	assert.Equal(t, Stderr, chunks[1].Kind)
	assert.Equal(t, []byte("err1"), chunks[1].Data)
	assert.Equal(t, Stdout, chunks[2].Kind)
	assert.Equal(t, []byte("out2"), chunks[2].Data)
	assert.Empty(t, rest)
}

// The engine's own stdcopy writer must round-trip through the parser.
func TestDemuxMatchesStdcopyWriter(t *testing.T) {
	var buf bytes.Buffer
	outW := stdcopy.NewStdWriter(&buf, stdcopy.Stdout)
	errW := stdcopy.NewStdWriter(&buf, stdcopy.Stderr)

	_, err := outW.Write([]byte("to stdout\n"))
	require.NoError(t, err)
	_, err = errW.Write([]byte("to stderr\n"))
	require.NoError(t, err)

	chunks, rest := Demux(buf.Bytes(), true)

	require.Len(t, chunks, 2)
	assert.Equal(t, Stdout, chunks[0].Kind)
	assert.Equal(t, []byte("to stdout\n"), chunks[0].Data)
	assert.Equal(t, Stderr, chunks[1].Kind)
	assert.Equal(t, []byte("to stderr\n"), chunks[1].Data)
	assert.Empty(t, rest)
}

func TestDemuxZeroLengthFrameDropped(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(frame(1, nil))
	buf.Write(frame(2, []byte("x")))

	chunks, rest := Demux(buf.Bytes(), false)

	require.Len(t, chunks, 1)
	assert.Equal(t, Stderr, chunks[0].Kind)
	assert.Empty(t, rest)
}

func TestDemuxTruncatedFrameCarriedWhileLive(t *testing.T) {
	full := frame(2, []byte("partial payload"))
	first, second := full[:12], full[12:]

	chunks, rest := Demux(first, false)
	assert.Empty(t, chunks)
	require.Equal(t, first, rest)

	chunks, rest = Demux(append(rest, second...), false)
	require.Len(t, chunks, 1)
	assert.Equal(t, Stderr, chunks[0].Kind)
	assert.Equal(t, []byte("partial payload"), chunks[0].Data)
	assert.Empty(t, rest)
}

func TestDemuxTruncatedFrameFlushedAtEOF(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(frame(1, []byte("complete")))
	truncated := frame(2, []byte("never finishes"))[:10]
	buf.Write(truncated)

	chunks, rest := Demux(buf.Bytes(), true)

	require.Len(t, chunks, 2)
	assert.Equal(t, Stdout, chunks[0].Kind)
	assert.Equal(t, []byte("complete"), chunks[0].Data)
	// The remainder that can never complete comes back verbatim as stdout.
	assert.Equal(t, Stdout, chunks[1].Kind)
	assert.Equal(t, truncated, chunks[1].Data)
	assert.Empty(t, rest)
}

func TestDemuxInvalidTagFailsOpen(t *testing.T) {
	raw := []byte{0, 'r', 'a', 'w', ' ', 't', 't', 'y', ' ', 'b', 'y', 't', 'e', 's'}

	chunks, rest := Demux(raw, false)

	require.Len(t, chunks, 1)
	assert.Equal(t, Stdout, chunks[0].Kind)
	assert.Equal(t, raw, chunks[0].Data)
	assert.Empty(t, rest)
}

func TestDemuxInvalidTagAfterValidFrames(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(frame(1, []byte("framed")))
	garbage := []byte{9, 9, 9, 9, 9, 9, 9, 9, 9}
	buf.Write(garbage)

	chunks, rest := Demux(buf.Bytes(), false)

	require.Len(t, chunks, 2)
	assert.Equal(t, []byte("framed"), chunks[0].Data)
	assert.Equal(t, Stdout, chunks[1].Kind)
	assert.Equal(t, garbage, chunks[1].Data)
	assert.Empty(t, rest)
}

func TestDemuxPartialHeaderAtEOF(t *testing.T) {
	short := []byte{1, 0, 0}

	chunks, rest := Demux(short, true)

	require.Len(t, chunks, 1)
	assert.Equal(t, Stdout, chunks[0].Kind)
	assert.Equal(t, short, chunks[0].Data)
	assert.Empty(t, rest)
}

func TestDemuxEmptyBuffer(t *testing.T) {
	chunks, rest := Demux(nil, true)
	assert.Empty(t, chunks)
	assert.Empty(t, rest)
}

func TestStreamKindString(t *testing.T) {
	assert.Equal(t, "stdout", Stdout.String())
	assert.Equal(t, "stderr", Stderr.String())
}
