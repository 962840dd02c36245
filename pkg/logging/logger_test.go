package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Level != LevelInfo {
		t.Errorf("Expected default level to be Info, got %s", cfg.Level)
	}
	if cfg.Pretty {
		t.Error("Expected default pretty to be false")
	}
	if cfg.Output == nil {
		t.Error("Expected default output to be set")
	}
}

func TestSetup_FiltersByLevel(t *testing.T) {
	tests := []struct {
		name      string
		level     LogLevel
		logFunc   func(zerolog.Logger)
		wantEmpty bool
	}{
		{
			name:    "info passes at info",
			level:   LevelInfo,
			logFunc: func(l zerolog.Logger) { l.Info().Msg("visible") },
		},
		{
			name:      "debug dropped at info",
			level:     LevelInfo,
			logFunc:   func(l zerolog.Logger) { l.Debug().Msg("hidden") },
			wantEmpty: true,
		},
		{
			name:      "warn dropped at error",
			level:     LevelError,
			logFunc:   func(l zerolog.Logger) { l.Warn().Msg("hidden") },
			wantEmpty: true,
		},
		{
			name:    "debug passes at debug",
			level:   LevelDebug,
			logFunc: func(l zerolog.Logger) { l.Debug().Msg("visible") },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := Setup(Config{Level: tt.level, Output: &buf})
			tt.logFunc(logger)

			if tt.wantEmpty && buf.Len() != 0 {
				t.Errorf("expected no output, got %s", buf.String())
			}
			if !tt.wantEmpty && !strings.Contains(buf.String(), "visible") {
				t.Errorf("expected message, got %q", buf.String())
			}
		})
	}

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

func TestSetup_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	Setup(Config{Level: LevelInfo, Output: &buf})

	logger := NewLogger("refresh")
	logger.Info().Int64("job_id", 42).Msg("Refreshed pipeline")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v (%s)", err, buf.String())
	}
	if entry["component"] != "refresh" {
		t.Errorf("component = %v", entry["component"])
	}
	if entry["job_id"] != float64(42) {
		t.Errorf("job_id = %v", entry["job_id"])
	}
	if _, ok := entry["time"]; !ok {
		t.Error("expected timestamp field")
	}
}

func TestSetup_Pretty(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup(Config{Level: LevelInfo, Pretty: true, Output: &buf})
	logger.Info().Msg("pretty message")

	out := buf.String()
	if !strings.Contains(out, "pretty message") {
		t.Errorf("output = %q", out)
	}
	if strings.HasPrefix(strings.TrimSpace(out), "{") {
		t.Errorf("pretty output should not be JSON: %q", out)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"INFO", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
		{"warning", zerolog.WarnLevel},
		{" error ", zerolog.ErrorLevel},
		{"off", zerolog.Disabled},
		{"verbose", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
