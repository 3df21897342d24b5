package logging_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"glow/internal/logging"
)

func TestNewConsoleWritesComponentLine(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console.log")

	logger, err := logging.New(logging.Options{
		Format:           "console",
		Level:            "info",
		OutputPaths:      []string{logPath},
		ErrorOutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	engine := logging.NewComponentLogger(logger, "engine")
	engine.Info("animation selected", logging.String(logging.FieldAnimation, "nova"))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := string(content)
	if !strings.Contains(line, " INFO engine: animation selected") {
		t.Fatalf("unexpected console line %q", line)
	}
	if !strings.Contains(line, "animation=nova") {
		t.Fatalf("expected animation attribute in %q", line)
	}
	if strings.Contains(line, "component=") {
		t.Fatalf("component should render as prefix, not attribute: %q", line)
	}
}

func TestConsoleLoggerOmitsCallerForInfo(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-info.log")

	logger, err := logging.New(logging.Options{
		Format:           "console",
		Level:            "info",
		OutputPaths:      []string{logPath},
		ErrorOutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("message without caller")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if strings.Contains(string(content), ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", content)
	}
}

func TestConsoleLoggerIncludesCallerForDebug(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-debug.log")

	logger, err := logging.New(logging.Options{
		Format:           "console",
		Level:            "debug",
		OutputPaths:      []string{logPath},
		ErrorOutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("message with caller")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), ".go:") {
		t.Fatalf("expected caller information in debug logs, got %q", content)
	}
}

func TestNewJSONLogger(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "glowd.json")

	logger, err := logging.New(logging.Options{
		Format:      "json",
		Level:       "info",
		OutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("json message", logging.String("transport", "udp"))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(string(content))), &entry); err != nil {
		t.Fatalf("unmarshal log line: %v", err)
	}
	if entry["level"] != "info" {
		t.Fatalf("level = %v, want info", entry["level"])
	}
	if entry["msg"] != "json message" {
		t.Fatalf("msg = %v, want json message", entry["msg"])
	}
	if entry["transport"] != "udp" {
		t.Fatalf("transport = %v, want udp", entry["transport"])
	}
	ts, ok := entry["ts"].(string)
	if !ok {
		t.Fatalf("ts missing from %v", entry)
	}
	if _, err := time.Parse(time.RFC3339, ts); err != nil {
		t.Fatalf("ts %q not RFC3339: %v", ts, err)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestNewInvalidLevelDefaultsToInfo(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "level.log")

	logger, err := logging.New(logging.Options{
		Format:      "console",
		Level:       "chatty",
		OutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Debug("hidden")
	logger.Info("shown")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if strings.Contains(string(content), "hidden") {
		t.Fatalf("debug line should be suppressed at info level: %q", content)
	}
	if !strings.Contains(string(content), "shown") {
		t.Fatalf("info line missing from %q", content)
	}
}

func TestNewPublishesToStreamHub(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "stream.log")
	hub := logging.NewStreamHub(16)

	logger, err := logging.New(logging.Options{
		Format:      "console",
		Level:       "info",
		OutputPaths: []string{logPath},
		Stream:      hub,
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	gateway := logging.NewComponentLogger(logger, "gateway")
	gateway.Info("client connected", logging.String(logging.FieldClient, "c-1"))

	events, _ := hub.Tail(10)
	if len(events) != 1 {
		t.Fatalf("expected 1 streamed event, got %d", len(events))
	}
	evt := events[0]
	if evt.Component != "gateway" {
		t.Fatalf("component = %q, want gateway", evt.Component)
	}
	if evt.Message != "client connected" {
		t.Fatalf("message = %q", evt.Message)
	}
	if evt.Fields[logging.FieldClient] != "c-1" {
		t.Fatalf("client field missing: %v", evt.Fields)
	}
}

func TestWarnWithContextEnforcesFields(t *testing.T) {
	hub := logging.NewStreamHub(16)
	logger, err := logging.New(logging.Options{
		Format:      "json",
		Level:       "info",
		OutputPaths: []string{filepath.Join(t.TempDir(), "warn.log")},
		Stream:      hub,
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logging.WarnWithContext(logger, "send retry exhausted", "send_failed",
		logging.String(logging.FieldTransport, "udp"))

	events, _ := hub.Tail(1)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	evt := events[0]
	if evt.Fields[logging.FieldEventType] != "send_failed" {
		t.Fatalf("event_type missing: %v", evt.Fields)
	}
	if evt.Fields[logging.FieldErrorHint] == "" {
		t.Fatalf("error_hint missing: %v", evt.Fields)
	}
	if evt.Fields[logging.FieldImpact] == "" {
		t.Fatalf("impact missing: %v", evt.Fields)
	}
	if evt.Transport != "udp" {
		t.Fatalf("transport = %q, want udp", evt.Transport)
	}
}

func TestNewNopDiscards(t *testing.T) {
	logger := logging.NewNop()
	if logger == nil {
		t.Fatal("expected logger instance")
	}
	logger.Info("goes nowhere")
	logger.Error("also nowhere")
}

func TestCleanupOldLogs(t *testing.T) {
	dir := t.TempDir()
	oldPath := filepath.Join(dir, "glowd-2026-01-01.log")
	freshPath := filepath.Join(dir, "glowd-today.log")
	activePath := filepath.Join(dir, "glowd.log")

	for _, p := range []string{oldPath, freshPath, activePath} {
		if err := os.WriteFile(p, []byte("x\n"), 0o644); err != nil {
			t.Fatalf("write %s: %v", p, err)
		}
	}
	stale := time.Now().AddDate(0, 0, -30)
	for _, p := range []string{oldPath, activePath} {
		if err := os.Chtimes(p, stale, stale); err != nil {
			t.Fatalf("chtimes %s: %v", p, err)
		}
	}

	logging.CleanupOldLogs(logging.NewNop(), 7, logging.RetentionTarget{
		Dir:     dir,
		Pattern: "*.log",
		Exclude: []string{activePath},
	})

	if _, err := os.Stat(oldPath); !os.IsNotExist(err) {
		t.Fatalf("expected %s to be pruned", oldPath)
	}
	if _, err := os.Stat(freshPath); err != nil {
		t.Fatalf("fresh log should remain: %v", err)
	}
	if _, err := os.Stat(activePath); err != nil {
		t.Fatalf("excluded log should remain: %v", err)
	}
}

func TestCleanupOldLogsDisabled(t *testing.T) {
	dir := t.TempDir()
	oldPath := filepath.Join(dir, "glowd-old.log")
	if err := os.WriteFile(oldPath, []byte("x\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	stale := time.Now().AddDate(0, 0, -30)
	if err := os.Chtimes(oldPath, stale, stale); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	logging.CleanupOldLogs(logging.NewNop(), 0, logging.RetentionTarget{Dir: dir, Pattern: "*.log"})

	if _, err := os.Stat(oldPath); err != nil {
		t.Fatalf("retention disabled, file should remain: %v", err)
	}
}
