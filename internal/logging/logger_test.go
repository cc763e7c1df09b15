package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func readEntries(t *testing.T, path string) []map[string]any {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}

	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("unmarshal log line %q: %v", line, err)
		}
		entries = append(entries, entry)
	}
	return entries
}

func TestNewLogger_WritesJSONToSessionDir(t *testing.T) {
	dir := t.TempDir()

	logger, err := NewLogger(dir, LevelInfo)
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}

	logger.Info("broadcast accepted", "broadcast_id", "bc-1")
	if err := logger.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	entries := readEntries(t, filepath.Join(dir, "governance.log"))
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0]["msg"] != "broadcast accepted" {
		t.Errorf("msg = %v", entries[0]["msg"])
	}
	if entries[0]["broadcast_id"] != "bc-1" {
		t.Errorf("broadcast_id = %v", entries[0]["broadcast_id"])
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	dir := t.TempDir()

	logger, err := NewLogger(dir, LevelWarn)
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}

	logger.Debug("hidden")
	logger.Info("hidden too")
	logger.Warn("visible")
	_ = logger.Close()

	entries := readEntries(t, filepath.Join(dir, "governance.log"))
	if len(entries) != 1 {
		t.Fatalf("expected only WARN entry, got %d entries", len(entries))
	}
}

func TestLogger_ChildAttributes(t *testing.T) {
	dir := t.TempDir()

	logger, err := NewLogger(dir, LevelDebug)
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}

	child := logger.WithSession("sess-1").WithComponent("workspace").WithTurn(3)
	child.Info("vote staged")

	// Parent logger must not inherit child attributes.
	logger.Info("plain")
	_ = logger.Close()

	entries := readEntries(t, filepath.Join(dir, "governance.log"))
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}

	if entries[0]["session_id"] != "sess-1" || entries[0]["component"] != "workspace" {
		t.Errorf("child entry missing attrs: %v", entries[0])
	}
	if entries[0]["turn"] != float64(3) {
		t.Errorf("turn = %v", entries[0]["turn"])
	}
	if _, ok := entries[1]["session_id"]; ok {
		t.Error("parent entry should not carry child session_id")
	}
}

func TestNopLogger(t *testing.T) {
	logger := NopLogger()
	logger.Info("discarded")
	if err := logger.Close(); err != nil {
		t.Errorf("Close() on nop logger error = %v", err)
	}
}
