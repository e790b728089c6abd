package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestNewSlogAdapter_WithNil(t *testing.T) {
	adapter := NewSlogAdapter(nil)
	if adapter == nil || adapter.logger == nil {
		t.Fatal("NewSlogAdapter(nil) should fall back to slog.Default()")
	}
}

func TestSlogAdapter_Levels(t *testing.T) {
	var buf bytes.Buffer
	adapter := NewSlogAdapter(NewLogger(&buf, true, "text"))

	adapter.Debug("d", "key", "value")
	adapter.Info("i")
	adapter.Warn("w")
	adapter.Error("e")

	out := buf.String()
	for _, want := range []string{"level=DEBUG", "level=INFO", "level=WARN", "level=ERROR", "key=value"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
}

func TestSlogAdapter_With(t *testing.T) {
	var buf bytes.Buffer
	adapter := NewSlogAdapter(NewLogger(&buf, false, "text")).With(RunID("r1"))
	adapter.Info("hello")
	if !strings.Contains(buf.String(), "run_id=r1") {
		t.Errorf("With() attributes missing from %q", buf.String())
	}
}

func TestSlogAdapter_Logger(t *testing.T) {
	logger := slog.Default()
	if NewSlogAdapter(logger).Logger() != logger {
		t.Error("Logger() should return the underlying logger")
	}
}

func TestDiscard(t *testing.T) {
	// Should not panic
	Discard().Info("dropped")
}

func TestLoggerInterface(t *testing.T) {
	var _ Logger = (*SlogAdapter)(nil)
}
