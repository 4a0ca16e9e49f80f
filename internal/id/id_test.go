package id

import (
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	got := New("exec")
	if !strings.HasPrefix(got, "exec_") {
		t.Fatalf("missing prefix: %q", got)
	}
	if len(got) != len("exec_")+10 {
		t.Fatalf("unexpected length: %q", got)
	}
}

func TestNewUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		got := New("tail")
		if seen[got] {
			t.Fatalf("duplicate id %q", got)
		}
		seen[got] = true
	}
}
