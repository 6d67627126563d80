package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"WARNING", slog.LevelWarn},
		{"error", slog.LevelError},
		{"unknown", slog.LevelInfo}, // Default
		{"", slog.LevelInfo},        // Default
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.input); got != tt.expected {
			t.Errorf("ParseLevel(%q) = %v, expected %v", tt.input, got, tt.expected)
		}
	}
}

func TestNew_Text(t *testing.T) {
	var buf bytes.Buffer
	log := New("warn", "text", &buf)

	log.Info("hidden")
	log.Warn("shown", "page", 3)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info message should be filtered at warn level")
	}
	if !strings.Contains(out, "msg=shown") || !strings.Contains(out, "page=3") {
		t.Errorf("unexpected output: %q", out)
	}
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	log := New("debug", "JSON", &buf)

	log.Debug("loaded", "bytes", 42)

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("output is not JSON: %v: %q", err, buf.String())
	}
	if rec["msg"] != "loaded" || rec["bytes"] != float64(42) {
		t.Errorf("unexpected record: %v", rec)
	}
}

func TestComponent(t *testing.T) {
	var buf bytes.Buffer
	log := Component(New("info", "text", &buf), "filecache")
	log.Info("evict")

	if !strings.Contains(buf.String(), "component=filecache") {
		t.Errorf("missing component tag: %q", buf.String())
	}

	// A nil logger is tolerated.
	Component(nil, "x").Info("dropped")
}
