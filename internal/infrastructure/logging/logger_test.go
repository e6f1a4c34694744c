package logging

import (
	"log/slog"
	"testing"

	"github.com/noriffik/wirehome-core/internal/infrastructure/config"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"unknown", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := parseLevel(tt.input); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestNewDoesNotPanic(t *testing.T) {
	cfgs := []config.LoggingConfig{
		{Level: "debug", Format: "json", Output: "stdout"},
		{Level: "info", Format: "text", Output: "stderr"},
		{Level: "bogus", Format: "bogus", Output: "bogus"},
	}
	for _, cfg := range cfgs {
		logger := New(cfg, "test")
		if logger == nil {
			t.Fatalf("New(%+v) returned nil", cfg)
		}
	}
}

func TestWithReturnsNewLogger(t *testing.T) {
	base := Default()
	child := base.With("component", "test")
	if child == base {
		t.Error("With() returned the same logger instance")
	}
	if child.Logger == nil {
		t.Error("With() returned logger with nil slog.Logger")
	}
}
