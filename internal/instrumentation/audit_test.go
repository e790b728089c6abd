package instrumentation

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func newBufferLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestArchiveAudit_Status(t *testing.T) {
	tests := []struct {
		name                                 string
		total, succeeded, failed, notStarted int
		want                                 string
	}{
		{"all archived", 5, 5, 0, 0, StatusSuccess},
		{"partial failure", 5, 4, 1, 0, StatusError},
		{"cancelled", 5, 2, 0, 3, StatusError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewArchiveAudit(context.Background(), "run", 1, "Marketing & Newsletters").
				Complete(tt.total, tt.succeeded, tt.failed, tt.notStarted)
			if got := a.Status(); got != tt.want {
				t.Errorf("Status() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAuditLogger_LogArchive(t *testing.T) {
	var buf bytes.Buffer
	al := NewAuditLogger(newBufferLogger(&buf), AuditLoggingConfig{Enabled: true})

	a := NewArchiveAudit(context.Background(), "run-7", 2, "Team Communication").
		WithSession("imap", "me@example.com").
		Complete(5, 4, 1, 0)
	al.LogArchive(a)

	out := buf.String()
	if !strings.Contains(out, "cluster_archive_incomplete") {
		t.Errorf("expected incomplete record, got %q", out)
	}
	if strings.Contains(out, "me@example.com") {
		t.Error("account must be hashed unless IncludeAccount is set")
	}
	if !strings.Contains(out, "account_hash=") {
		t.Error("expected account_hash attribute")
	}
}

func TestAuditLogger_IncludeAccount(t *testing.T) {
	var buf bytes.Buffer
	al := NewAuditLogger(newBufferLogger(&buf), AuditLoggingConfig{Enabled: true, IncludeAccount: true})

	al.LogArchive(NewArchiveAudit(context.Background(), "run", 1, "x").
		WithSession("gmail", "work").
		Complete(1, 1, 0, 0))

	out := buf.String()
	if !strings.Contains(out, "cluster_archived") || !strings.Contains(out, "account=work") {
		t.Errorf("unexpected output %q", out)
	}
}

func TestAuditLogger_Disabled(t *testing.T) {
	var buf bytes.Buffer
	al := NewAuditLogger(newBufferLogger(&buf), AuditLoggingConfig{Enabled: false})

	al.LogArchive(NewArchiveAudit(context.Background(), "run", 1, "x").Complete(1, 1, 0, 0))
	al.LogToolInvocation(NewToolInvocation(context.Background(), "t").Complete(true, nil))

	if buf.Len() != 0 {
		t.Errorf("disabled audit logger wrote %q", buf.String())
	}

	var nilLogger *AuditLogger
	nilLogger.LogArchive(nil)
}

func TestAuditLogger_LogToolInvocation(t *testing.T) {
	var buf bytes.Buffer
	al := NewAuditLogger(newBufferLogger(&buf), AuditLoggingConfig{Enabled: true})

	ti := NewToolInvocation(context.Background(), "triage_archive_cluster")
	ti.RunID = "run-1"
	ti.Complete(false, errors.New("unknown cluster"))
	al.LogToolInvocation(ti)

	out := buf.String()
	for _, want := range []string{"tool_failed", "tool=triage_archive_cluster", "run_id=run-1", "unknown cluster"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q: %q", want, out)
		}
	}
	if ti.Status() != StatusError {
		t.Errorf("Status() = %q, want %q", ti.Status(), StatusError)
	}
}
