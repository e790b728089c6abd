package logging

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name      string
		debug     bool
		format    string
		wantDebug bool
		wantJSON  bool
	}{
		{name: "text info", format: "text"},
		{name: "json debug", debug: true, format: "json", wantDebug: true, wantJSON: true},
		{name: "unknown format falls back to text", format: "yaml"},
		{name: "format is case insensitive", format: "JSON", wantJSON: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewLogger(&buf, tt.debug, tt.format)
			logger.Debug("debug line")
			logger.Info("info line", Operation("test"))

			out := buf.String()
			if got := strings.Contains(out, "debug line"); got != tt.wantDebug {
				t.Errorf("debug line present = %v, want %v", got, tt.wantDebug)
			}
			if got := strings.HasPrefix(out, "{"); got != tt.wantJSON {
				t.Errorf("json output = %v, want %v (output %q)", got, tt.wantJSON, out)
			}
		})
	}
}

func TestWithHelpers(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, false, "text")

	WithSource(WithRun(WithOperation(logger, "triage.run"), "run-1"), "demo").Info("done")

	out := buf.String()
	for _, want := range []string{"operation=triage.run", "run_id=run-1", "source=demo"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
}

func TestAttrs(t *testing.T) {
	tests := []struct {
		name    string
		attr    slog.Attr
		wantKey string
		wantVal string
	}{
		{"operation", Operation("archive.cluster"), KeyOperation, "archive.cluster"},
		{"source", Source("imap"), KeySource, "imap"},
		{"run id", RunID("abc"), KeyRunID, "abc"},
		{"cluster", Cluster(3), KeyCluster, "3"},
		{"message id", MessageID("m-1"), KeyMessageID, "m-1"},
		{"tool", Tool("triage_archive_cluster"), KeyTool, "triage_archive_cluster"},
		{"status", Status(StatusSuccess), KeyStatus, "success"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.attr.Key != tt.wantKey {
				t.Errorf("key = %q, want %q", tt.attr.Key, tt.wantKey)
			}
			if tt.attr.Value.String() != tt.wantVal {
				t.Errorf("value = %q, want %q", tt.attr.Value.String(), tt.wantVal)
			}
		})
	}
}

func TestErr(t *testing.T) {
	attr := Err(errors.New("test error"))
	if attr.Key != KeyError {
		t.Errorf("Err key = %q, want %q", attr.Key, KeyError)
	}
	if attr.Value.String() != "test error" {
		t.Errorf("Err value = %q, want %q", attr.Value.String(), "test error")
	}

	// Empty Group has empty key and is omitted by slog
	attr = Err(nil)
	if attr.Key != "" {
		t.Errorf("Err(nil) key = %q, want empty string (empty group)", attr.Key)
	}
}

func TestAnonymizeEmail(t *testing.T) {
	tests := []struct {
		email    string
		wantLen  int
		hasValue bool
	}{
		{"jane@example.com", 23, true}, // "sender:" + 16 hex chars
		{"news@shop.example", 23, true},
		{"", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			result := AnonymizeEmail(tt.email)
			if !tt.hasValue {
				if result != "" {
					t.Errorf("AnonymizeEmail(%q) = %q, want empty string", tt.email, result)
				}
				return
			}
			if len(result) != tt.wantLen {
				t.Errorf("AnonymizeEmail(%q) length = %d, want %d", tt.email, len(result), tt.wantLen)
			}
			if !strings.HasPrefix(result, "sender:") {
				t.Errorf("AnonymizeEmail(%q) should start with 'sender:', got %q", tt.email, result)
			}
		})
	}

	if AnonymizeEmail("Test@Example.com") != AnonymizeEmail("test@example.com") {
		t.Error("AnonymizeEmail should ignore case")
	}
	if AnonymizeEmail("test@example.com") == AnonymizeEmail("other@example.com") {
		t.Error("Different emails should produce different hashes")
	}
}

func TestSenderHash(t *testing.T) {
	attr := SenderHash("jane@example.com")
	if attr.Key != KeySenderHash {
		t.Errorf("SenderHash key = %q, want %q", attr.Key, KeySenderHash)
	}
}

func TestSanitizeSecret(t *testing.T) {
	tests := []struct {
		secret   string
		expected string
	}{
		{"", "<empty>"},
		{"abc123", "[secret:6 chars]"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := SanitizeSecret(tt.secret); got != tt.expected {
				t.Errorf("SanitizeSecret(%q) = %q, want %q", tt.secret, got, tt.expected)
			}
		})
	}
}

func TestExtractDomain(t *testing.T) {
	tests := []struct {
		email    string
		expected string
	}{
		{"jane@example.com", "example.com"},
		{"invalid", ""},
		{"", ""},
		{"user@", ""},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			if got := ExtractDomain(tt.email); got != tt.expected {
				t.Errorf("ExtractDomain(%q) = %q, want %q", tt.email, got, tt.expected)
			}
		})
	}
}
