// Package demux parses the Docker engine's multiplexed stream format.
//
// When a container (or exec instance) runs without a TTY, the engine
// interleaves stdout and stderr on one connection using 8-byte frame
// headers: a stream tag, three reserved bytes, and a big-endian payload
// length. With a TTY there is a single raw stream and no framing.
package demux

import "encoding/binary"

// StreamKind classifies a chunk's origin stream.
type StreamKind int

const (
	// Stdout marks data from the process's standard output, and is also
	// the fallback classification for unframed bytes.
	Stdout StreamKind = iota
	// Stderr marks data from the process's standard error.
	Stderr
)

// String returns the wire name of the stream kind.
func (k StreamKind) String() string {
	if k == Stderr {
		return "stderr"
	}
	return "stdout"
}

// Chunk is one classified unit of demultiplexed output.
type Chunk struct {
	Kind StreamKind
	Data []byte
}

const (
	headerLen = 8

	tagStdout = 1
	tagStderr = 2
)

// Demux splits buf into chunks along frame boundaries, in the manner of
// a bufio.SplitFunc: while the stream is still live (atEOF false), bytes
// that may belong to a frame whose payload has not fully arrived are
// returned as the remainder for the caller to prepend onto the next
// read. Once the stream has ended (atEOF true) nothing further can
// arrive, so a trailing partial frame is flushed instead of carried.
//
// The parser is deliberately fail-open. An unrecognized tag byte means
// the stream is not framed at all (the engine emits raw bytes in TTY
// mode), and at end of stream a frame that never completed is equally
// unframeable; in both cases the entire remaining buffer is emitted as
// a single stdout chunk rather than dropped or rejected. No attempt is
// made to re-synchronize. Zero-length frames are dropped.
func Demux(buf []byte, atEOF bool) ([]Chunk, []byte) {
	var chunks []Chunk
	for len(buf) > 0 {
		if len(buf) >= headerLen {
			if kind, ok := tagKind(buf[0]); ok {
				payloadLen := int(binary.BigEndian.Uint32(buf[4:8]))
				if payloadLen <= len(buf)-headerLen {
					if payloadLen > 0 {
						chunks = append(chunks, Chunk{Kind: kind, Data: buf[headerLen : headerLen+payloadLen]})
					}
					buf = buf[headerLen+payloadLen:]
					continue
				}
				// Declared payload exceeds what we have: truncated frame.
				if !atEOF {
					return chunks, buf
				}
			}
			// Unrecognized tag, or truncated frame at end of stream.
			chunks = append(chunks, Chunk{Kind: Stdout, Data: buf})
			return chunks, nil
		}
		// Possibly a partial header.
		if !atEOF {
			return chunks, buf
		}
		chunks = append(chunks, Chunk{Kind: Stdout, Data: buf})
		return chunks, nil
	}
	return chunks, nil
}

func tagKind(b byte) (StreamKind, bool) {
	switch b {
	case tagStdout:
		return Stdout, true
	case tagStderr:
		return Stderr, true
	default:
		return 0, false
	}
}
