package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	testCases := []struct {
		input string
		level slog.Level
		ok    bool
	}{
		{"debug", slog.LevelDebug, true},
		{"INFO", slog.LevelInfo, true},
		{" warn ", slog.LevelWarn, true},
		{"error", slog.LevelError, true},
		{"verbose", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
	}
	for _, tc := range testCases {
		level, ok := ParseLevel(tc.input)
		if level != tc.level || ok != tc.ok {
			t.Errorf("ParseLevel(%q): expected %v/%v, but got %v/%v", tc.input, tc.level, tc.ok, level, ok)
		}
	}
}

func TestSetup(t *testing.T) {
	previous := slog.Default()
	t.Cleanup(func() { slog.SetDefault(previous) })

	var buf bytes.Buffer
	logger := Setup(&buf, "warn")
	logger.Info("hidden")
	slog.Warn("shown", "key", "value")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("Expected info messages to be filtered out")
	}
	if !strings.Contains(out, "msg=shown") || !strings.Contains(out, "key=value") {
		t.Errorf("Expected the warning through the default logger, but got %q", out)
	}
}

func TestSetupInvalidLevel(t *testing.T) {
	previous := slog.Default()
	t.Cleanup(func() { slog.SetDefault(previous) })

	var buf bytes.Buffer
	Setup(&buf, "loud")
	if !strings.Contains(buf.String(), "configured_level=loud") {
		t.Errorf("Expected a warning about the level, but got %q", buf.String())
	}
}
