package observe

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

// TestLogger_WithComponent verifies that component loggers carry the
// component attribute on every entry.
func TestLogger_WithComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf)

	cacheLogger := logger.WithComponent("cache")
	cacheLogger.Info(context.Background(), "state refreshed")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse log output as JSON: %v\nOutput: %s", err, buf.String())
	}

	if v, ok := entry["component"].(string); !ok || v != "cache" {
		t.Errorf("expected component='cache', got %v", entry["component"])
	}
	if v, ok := entry["msg"].(string); !ok || v != "state refreshed" {
		t.Errorf("expected msg='state refreshed', got %v", entry["msg"])
	}
	if v, ok := entry["level"].(string); !ok || v != "info" {
		t.Errorf("expected level='info', got %v", entry["level"])
	}
}

// TestLogger_LevelFiltering verifies entries below the configured level
// are dropped.
func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("warn", &buf)
	ctx := context.Background()

	logger.Debug(ctx, "debug message")
	logger.Info(ctx, "info message")
	logger.Warn(ctx, "warn message")
	logger.Error(ctx, "error message")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 entries at warn level, got %d:\n%s", len(lines), buf.String())
	}
	if !strings.Contains(lines[0], "warn message") {
		t.Errorf("expected first entry to be the warn message, got: %s", lines[0])
	}
	if !strings.Contains(lines[1], "error message") {
		t.Errorf("expected second entry to be the error message, got: %s", lines[1])
	}
}

// TestLogger_RedactsSensitiveFields verifies that secret-bearing fields
// are replaced with a redaction marker.
func TestLogger_RedactsSensitiveFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf)

	logger.Info(context.Background(), "refresh authorized",
		Field{Key: "authorization", Value: "Bearer topsecret"},
		Field{Key: "token", Value: "abc123"},
		Field{Key: "event_key", Value: "2026-03-28T06:20:52Z|21.682|96.121|7.7|10"},
	)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse log output as JSON: %v", err)
	}

	if entry["authorization"] != "[REDACTED]" {
		t.Errorf("expected authorization to be redacted, got %v", entry["authorization"])
	}
	if entry["token"] != "[REDACTED]" {
		t.Errorf("expected token to be redacted, got %v", entry["token"])
	}
	if entry["event_key"] != "2026-03-28T06:20:52Z|21.682|96.121|7.7|10" {
		t.Errorf("expected event_key to pass through, got %v", entry["event_key"])
	}
	if strings.Contains(buf.String(), "topsecret") {
		t.Error("raw secret leaked into log output")
	}
}

// TestParseLogLevel verifies level parsing with fallback to info.
func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
	}{
		{"debug", LevelDebug},
		{"info", LevelInfo},
		{"warn", LevelWarn},
		{"error", LevelError},
		{"", LevelInfo},
		{"shouting", LevelInfo},
	}

	for _, tt := range tests {
		if got := ParseLogLevel(tt.in); got != tt.want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
