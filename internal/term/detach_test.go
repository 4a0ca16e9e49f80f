package term

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

// readAll drains the proxy, returning collected bytes and the first
// non-nil error.
func readAll(p *DetachProxy) ([]byte, error) {
	var out bytes.Buffer
	buf := make([]byte, 8)
	for {
		n, err := p.Read(buf)
		out.Write(buf[:n])
		if err != nil {
			return out.Bytes(), err
		}
	}
}

func TestDetachProxy_PassThrough(t *testing.T) {
	p := NewDetachProxy(bytes.NewReader([]byte("hello world")), nil)
	got, err := readAll(p)
	if !errors.Is(err, io.EOF) {
		t.Fatalf("expected EOF, got %v", err)
	}
	if string(got) != "hello world" {
		t.Errorf("got %q", got)
	}
}

func TestDetachProxy_DetachSequence(t *testing.T) {
	p := NewDetachProxy(bytes.NewReader([]byte("ab\x10\x11cd")), nil)
	got, err := readAll(p)
	if !errors.Is(err, ErrDetached) {
		t.Fatalf("expected ErrDetached, got %v", err)
	}
	if string(got) != "ab" {
		t.Errorf("expected bytes before the sequence only, got %q", got)
	}
}

func TestDetachProxy_BrokenMatchReplays(t *testing.T) {
	// Ctrl-P followed by a normal byte must reach the remote side.
	p := NewDetachProxy(bytes.NewReader([]byte("a\x10bc")), nil)
	got, err := readAll(p)
	if !errors.Is(err, io.EOF) {
		t.Fatalf("expected EOF, got %v", err)
	}
	if string(got) != "a\x10bc" {
		t.Errorf("got %q", got)
	}
}

func TestDetachProxy_SequenceSplitAcrossReads(t *testing.T) {
	p := NewDetachProxy(io.MultiReader(
		bytes.NewReader([]byte("x\x10")),
		bytes.NewReader([]byte("\x11y")),
	), nil)
	got, err := readAll(p)
	if !errors.Is(err, ErrDetached) {
		t.Fatalf("expected ErrDetached, got %v", err)
	}
	if string(got) != "x" {
		t.Errorf("got %q", got)
	}
}

func TestDetachProxy_DanglingPrefixFlushedAtEOF(t *testing.T) {
	p := NewDetachProxy(bytes.NewReader([]byte("a\x10")), nil)
	got, err := readAll(p)
	if !errors.Is(err, io.EOF) {
		t.Fatalf("expected EOF, got %v", err)
	}
	if string(got) != "a\x10" {
		t.Errorf("got %q", got)
	}
}

func TestDetachProxy_RestartedMatch(t *testing.T) {
	// Ctrl-P Ctrl-P Ctrl-Q: the second Ctrl-P restarts the match, so
	// the first is replayed and the sequence still fires.
	p := NewDetachProxy(bytes.NewReader([]byte("\x10\x10\x11")), nil)
	got, err := readAll(p)
	if !errors.Is(err, ErrDetached) {
		t.Fatalf("expected ErrDetached, got %v", err)
	}
	if string(got) != "\x10" {
		t.Errorf("got %q", got)
	}
}

func TestParseDetachKeys(t *testing.T) {
	tests := []struct {
		spec    string
		want    []byte
		wantErr bool
	}{
		{"", DefaultDetachKeys, false},
		{"ctrl-p,ctrl-q", []byte{0x10, 0x11}, false},
		{"ctrl-],q", []byte{0x1d, 'q'}, false},
		{"ctrl-", nil, true},
		{"ctrl-pq", nil, true},
		{"pq", nil, true},
	}
	for _, tt := range tests {
		got, err := ParseDetachKeys(tt.spec)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseDetachKeys(%q): expected error", tt.spec)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseDetachKeys(%q): %v", tt.spec, err)
			continue
		}
		if !bytes.Equal(got, tt.want) {
			t.Errorf("ParseDetachKeys(%q) = %v, want %v", tt.spec, got, tt.want)
		}
	}
}
