package log

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestInitLevels(t *testing.T) {
	var buf bytes.Buffer
	if err := Init(Options{Level: "warn", Stderr: &buf}); err != nil {
		t.Fatalf("Init: %v", err)
	}

	Debug("hidden debug")
	Info("hidden info")
	Warn("visible warning")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("below-threshold records were emitted: %q", out)
	}
	if !strings.Contains(out, "visible warning") {
		t.Errorf("warning not emitted: %q", out)
	}
}

func TestInitUnknownLevel(t *testing.T) {
	if err := Init(Options{Level: "chatty"}); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestInitJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	if err := Init(Options{Level: "info", JSONFormat: true, Stderr: &buf}); err != nil {
		t.Fatalf("Init: %v", err)
	}

	Info("structured", "key", "value")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if record["msg"] != "structured" || record["key"] != "value" {
		t.Errorf("unexpected record: %v", record)
	}
}

func TestFileHandlerGetsDebugRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agent.log")
	var buf bytes.Buffer
	if err := Init(Options{Level: "error", File: path, Stderr: &buf}); err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer Close()

	Debug("file only")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(data), "file only") {
		t.Errorf("debug record missing from file: %q", data)
	}
	if buf.Len() != 0 {
		t.Errorf("debug record leaked to stderr: %q", buf.String())
	}
}
