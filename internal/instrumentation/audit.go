package instrumentation

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"time"
)

// ArchiveAudit captures one cluster-archive request for the audit trail.
// Archiving is the only mutating operation inboxtriage performs, so every
// request is recorded whether it succeeded, partially failed or was cancelled.
type ArchiveAudit struct {
	RunID        string
	ClusterID    int
	ClusterLabel string
	Source       string
	Account      string

	Total        int
	Succeeded    int
	Failed       int
	NotAttempted int

	StartTime time.Time
	Duration  time.Duration
	TraceID   string
}

// NewArchiveAudit starts an audit record for archiving one cluster.
func NewArchiveAudit(ctx context.Context, runID string, clusterID int, label string) *ArchiveAudit {
	return &ArchiveAudit{
		RunID:        runID,
		ClusterID:    clusterID,
		ClusterLabel: label,
		StartTime:    time.Now(),
		TraceID:      GetTraceID(ctx),
	}
}

// WithSession records which session source and account the archive ran against.
func (a *ArchiveAudit) WithSession(source, account string) *ArchiveAudit {
	a.Source = source
	a.Account = account
	return a
}

// Complete stores the outcome counts and the elapsed time.
func (a *ArchiveAudit) Complete(total, succeeded, failed, notAttempted int) *ArchiveAudit {
	a.Total = total
	a.Succeeded = succeeded
	a.Failed = failed
	a.NotAttempted = notAttempted
	a.Duration = time.Since(a.StartTime)
	return a
}

// Status is "success" only when every message in the cluster was archived.
func (a *ArchiveAudit) Status() string {
	if a.Failed == 0 && a.NotAttempted == 0 {
		return StatusSuccess
	}
	return StatusError
}

// LogAttrs returns the slog attributes for the record. The account is hashed
// unless includeAccount is set.
func (a *ArchiveAudit) LogAttrs(includeAccount bool) []slog.Attr {
	attrs := []slog.Attr{
		slog.String("run_id", a.RunID),
		slog.Int("cluster", a.ClusterID),
		slog.String("label", a.ClusterLabel),
		slog.Int("total", a.Total),
		slog.Int("succeeded", a.Succeeded),
		slog.Int("failed", a.Failed),
		slog.Duration("duration", a.Duration),
		slog.String("status", a.Status()),
	}
	if a.NotAttempted > 0 {
		attrs = append(attrs, slog.Int("not_attempted", a.NotAttempted))
	}
	if a.Source != "" {
		attrs = append(attrs, slog.String("source", a.Source))
	}
	if a.Account != "" {
		if includeAccount {
			attrs = append(attrs, slog.String("account", a.Account))
		} else {
			attrs = append(attrs, slog.String("account_hash", hashAccount(a.Account)))
		}
	}
	if a.TraceID != "" {
		attrs = append(attrs, slog.String("trace_id", a.TraceID))
	}
	return attrs
}

func hashAccount(account string) string {
	sum := sha256.Sum256([]byte(account))
	return hex.EncodeToString(sum[:8])
}

// ToolInvocation captures one MCP tool call for audit logging.
type ToolInvocation struct {
	Tool      string
	RunID     string
	StartTime time.Time
	Duration  time.Duration
	Success   bool
	Error     string
	TraceID   string
}

// NewToolInvocation creates a new ToolInvocation with timing started.
func NewToolInvocation(ctx context.Context, tool string) *ToolInvocation {
	return &ToolInvocation{
		Tool:      tool,
		StartTime: time.Now(),
		TraceID:   GetTraceID(ctx),
	}
}

// Complete marks the invocation as completed and calculates duration.
func (ti *ToolInvocation) Complete(success bool, err error) *ToolInvocation {
	ti.Duration = time.Since(ti.StartTime)
	ti.Success = success
	if err != nil {
		ti.Error = err.Error()
	}
	return ti
}

// Status returns "success" or "error" based on the Success field.
func (ti *ToolInvocation) Status() string {
	if ti.Success {
		return StatusSuccess
	}
	return StatusError
}

// AuditLogger writes archive and tool audit records.
type AuditLogger struct {
	logger         *slog.Logger
	enabled        bool
	includeAccount bool
}

// NewAuditLogger creates a new AuditLogger. A nil logger uses slog.Default().
func NewAuditLogger(logger *slog.Logger, config AuditLoggingConfig) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{
		logger:         logger,
		enabled:        config.Enabled,
		includeAccount: config.IncludeAccount,
	}
}

// LogArchive writes an archive audit record. Partial failures log at warn level.
func (al *AuditLogger) LogArchive(a *ArchiveAudit) {
	if al == nil || !al.enabled || a == nil {
		return
	}
	args := attrsToArgs(a.LogAttrs(al.includeAccount))
	if a.Status() == StatusSuccess {
		al.logger.Info("cluster_archived", args...)
	} else {
		al.logger.Warn("cluster_archive_incomplete", args...)
	}
}

// LogToolInvocation writes a tool invocation record.
func (al *AuditLogger) LogToolInvocation(ti *ToolInvocation) {
	if al == nil || !al.enabled || ti == nil {
		return
	}
	attrs := []slog.Attr{
		slog.String("tool", ti.Tool),
		slog.Duration("duration", ti.Duration),
		slog.Bool("success", ti.Success),
	}
	if ti.RunID != "" {
		attrs = append(attrs, slog.String("run_id", ti.RunID))
	}
	if ti.TraceID != "" {
		attrs = append(attrs, slog.String("trace_id", ti.TraceID))
	}
	if ti.Error != "" {
		attrs = append(attrs, slog.String("error", ti.Error))
	}

	if ti.Success {
		al.logger.Info("tool_executed", attrsToArgs(attrs)...)
	} else {
		al.logger.Warn("tool_failed", attrsToArgs(attrs)...)
	}
}

func attrsToArgs(attrs []slog.Attr) []any {
	args := make([]any, len(attrs))
	for i, attr := range attrs {
		args[i] = attr
	}
	return args
}
