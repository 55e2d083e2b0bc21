package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type testStringer string

func (s testStringer) String() string { return string(s) }

func TestInitAndLoggingToFile(t *testing.T) {
	tempDir := t.TempDir()
	logPath := filepath.Join(tempDir, "nested", "recallbench.log")

	if err := Init(logPath, "debug"); err != nil {
		t.Fatalf("Init error: %v", err)
	}
	t.Cleanup(func() {
		_ = Close()
	})

	LogEvent("hello %s", "world")
	LogWarn("batch %d degraded", 3)
	_ = Close()

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, "hello world") {
		t.Fatalf("expected LogEvent content, got: %s", content)
	}
	if !strings.Contains(content, "batch 3 degraded") || !strings.Contains(content, `"level":"warn"`) {
		t.Fatalf("expected LogWarn content, got: %s", content)
	}
}

func TestInitRejectsUnknownLevel(t *testing.T) {
	if err := Init("", "loud"); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestLogRequestWritesDebugEntry(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	SetLogger(zap.New(core))
	t.Cleanup(func() { SetLogger(nil) })

	LogRequest("bench->provider", "http://localhost", "bench-1", "recall", map[string]any{"query": "q"})

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected one entry, got %d", len(entries))
	}
	if entries[0].Level != zap.DebugLevel {
		t.Fatalf("expected debug level, got %s", entries[0].Level)
	}
	if !strings.Contains(entries[0].Message, "op=recall") {
		t.Fatalf("unexpected message: %s", entries[0].Message)
	}
}

func TestBuildRequestMessageDefaults(t *testing.T) {
	msg := buildRequestMessage(" in ", " ", "", " store ", map[string]any{"ok": true})
	if !strings.Contains(msg, "[IN]") {
		t.Fatalf("expected uppercased direction, got: %s", msg)
	}
	if !strings.Contains(msg, "host=unknown") {
		t.Fatalf("expected default host, got: %s", msg)
	}
	if !strings.Contains(msg, "instance=unknown") {
		t.Fatalf("expected default instance, got: %s", msg)
	}
	if !strings.Contains(msg, "op=store") {
		t.Fatalf("expected operation name, got: %s", msg)
	}
	if !strings.Contains(msg, "payload={\"ok\":true}") {
		t.Fatalf("expected payload json, got: %s", msg)
	}
}

func TestFormatPayloadVariants(t *testing.T) {
	cases := []struct {
		name    string
		payload any
		want    string
	}{
		{"nil", nil, "null"},
		{"blank string", "  ", `""`},
		{"empty bytes", []byte{}, "[]"},
		{"bytes", []byte("raw"), "raw"},
		{"stringer", testStringer("custom"), "custom"},
	}
	for _, tc := range cases {
		if got := formatPayload(tc.payload); got != tc.want {
			t.Fatalf("%s: got %q want %q", tc.name, got, tc.want)
		}
	}
}
