package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"":      zerolog.InfoLevel,
		"DEBUG": zerolog.DebugLevel,
		"warn":  zerolog.WarnLevel,
		"error": zerolog.ErrorLevel,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Errorf("ParseLevel(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestConsoleTagsComponent(t *testing.T) {
	var buf bytes.Buffer
	log, closer, err := New(Options{Level: "info", Console: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer closer.Close()

	mindLog := Component(log, "mind")
	mindLog.Info().Msg("mood decayed")
	mindLog.Debug().Msg("hidden")

	out := buf.String()
	if !strings.Contains(out, "[MIND]") || !strings.Contains(out, "mood decayed") {
		t.Fatalf("console output = %q", out)
	}
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug line leaked at info level: %q", out)
	}
}

func TestFileSinkWritesJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "companion.log")
	var buf bytes.Buffer
	log, closer, err := New(Options{Level: "debug", File: path, Console: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	streamLog := Component(log, "stream")
	streamLog.Warn().Str("url", "ws://x").Msg("reconnecting")
	if err := closer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	var line map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(data), &line); err != nil {
		t.Fatalf("file line is not JSON: %v (%q)", err, data)
	}
	if line["component"] != "stream" || line["message"] != "reconnecting" || line["level"] != "warn" {
		t.Fatalf("line = %v", line)
	}
}
