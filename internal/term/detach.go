// Package term provides terminal utilities for interactive exec
// sessions: raw mode handling and detach-key detection.
package term

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrDetached is returned by a DetachProxy read when the detach key
// sequence is typed. The remote process keeps running.
var ErrDetached = errors.New("detached from session")

// DefaultDetachKeys is Ctrl-P Ctrl-Q.
var DefaultDetachKeys = []byte{0x10, 0x11}

// ParseDetachKeys parses a key sequence spec like "ctrl-p,ctrl-q" or
// "ctrl-],q" into raw bytes.
func ParseDetachKeys(spec string) ([]byte, error) {
	if spec == "" {
		return DefaultDetachKeys, nil
	}
	var keys []byte
	for _, token := range strings.Split(spec, ",") {
		if ctrl, ok := strings.CutPrefix(token, "ctrl-"); ok {
			if len(ctrl) != 1 {
				return nil, fmt.Errorf("invalid detach key %q", token)
			}
			c := ctrl[0]
			if c >= 'a' && c <= 'z' {
				c -= 'a' - 'A'
			}
			if c < '@' || c > '_' {
				return nil, fmt.Errorf("invalid detach key %q", token)
			}
			keys = append(keys, c&0x1f)
			continue
		}
		if len(token) != 1 {
			return nil, fmt.Errorf("invalid detach key %q", token)
		}
		keys = append(keys, token[0])
	}
	return keys, nil
}

// DetachProxy wraps an interactive session's stdin and watches for the
// detach sequence. Bytes that start to match are withheld; if the
// match breaks they are replayed in order, so a lone Ctrl-P still
// reaches the remote process.
type DetachProxy struct {
	r    io.Reader
	keys []byte
	pos  int    // bytes of the sequence matched so far
	buf  []byte // withheld output that did not fit the caller's buffer
}

// NewDetachProxy wraps r, detaching on keys (DefaultDetachKeys when
// nil).
func NewDetachProxy(r io.Reader, keys []byte) *DetachProxy {
	if len(keys) == 0 {
		keys = DefaultDetachKeys
	}
	return &DetachProxy{r: r, keys: keys}
}

// Read implements io.Reader. It returns ErrDetached once the full
// sequence has been typed; any bytes read before the sequence in the
// same read are delivered alongside the error.
func (d *DetachProxy) Read(p []byte) (int, error) {
	if len(d.buf) > 0 {
		n := copy(p, d.buf)
		d.buf = d.buf[n:]
		return n, nil
	}

	raw := make([]byte, len(p))
	n, err := d.r.Read(raw)

	var out []byte
	for _, b := range raw[:n] {
		if b == d.keys[d.pos] {
			d.pos++
			if d.pos == len(d.keys) {
				d.pos = 0
				return d.deliver(p, out, ErrDetached)
			}
			continue
		}
		if d.pos > 0 {
			out = append(out, d.keys[:d.pos]...)
			d.pos = 0
			if b == d.keys[0] {
				d.pos = 1
				continue
			}
		}
		out = append(out, b)
	}

	// End of input: a dangling partial match can never complete.
	if err != nil && d.pos > 0 {
		out = append(out, d.keys[:d.pos]...)
		d.pos = 0
	}
	return d.deliver(p, out, err)
}

// deliver copies out into p, buffering any overflow for the next read.
func (d *DetachProxy) deliver(p, out []byte, err error) (int, error) {
	n := copy(p, out)
	if n < len(out) {
		d.buf = append(d.buf, out[n:]...)
	}
	return n, err
}
