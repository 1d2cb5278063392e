package logging

import (
	"log/slog"
	"path/filepath"
	"testing"

	"certwatch/internal/config"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	cases := []struct {
		value string
		want  slog.Level
	}{
		{value: "debug", want: slog.LevelDebug},
		{value: "info", want: slog.LevelInfo},
		{value: " WARN ", want: slog.LevelWarn},
		{value: "error", want: slog.LevelError},
	}
	for _, tc := range cases {
		got, err := parseLevel(tc.value)
		if err != nil {
			t.Fatalf("parseLevel(%q) failed: %v", tc.value, err)
		}
		if got != tc.want {
			t.Fatalf("parseLevel(%q) = %v, want %v", tc.value, got, tc.want)
		}
	}

	if _, err := parseLevel("verbose"); err == nil {
		t.Fatalf("expected error for unsupported level")
	}
}

func TestNewRequiresOneEnabledSink(t *testing.T) {
	t.Parallel()

	if _, _, err := New(config.LogConfig{}); err == nil {
		t.Fatalf("expected error when no sinks are enabled")
	}
}

func TestNewFileSinkCreatesParentDir(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "logs", "certwatch.log")
	logger, closeFn, err := New(config.LogConfig{
		File: config.LogSinkConfig{Enabled: true, Level: "info", Format: "json", Path: path},
	})
	if err != nil {
		t.Fatalf("build logger: %v", err)
	}
	defer closeFn()

	logger.Info("startup", "component", "test")
}

func TestLevelColorMapsRenderedLines(t *testing.T) {
	t.Parallel()

	if got := levelColor("time=x level=ERROR msg=boom"); got != ansiRed {
		t.Fatalf("expected red for error line, got %q", got)
	}
	if got := levelColor("plain text"); got != "" {
		t.Fatalf("expected no color for unleveled line, got %q", got)
	}
}
