package instrumentation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys
const (
	attrStatus    = "status"
	attrSource    = "source"
	attrStage     = "stage"
	attrConverged = "converged"
	attrTool      = "tool"
)

// Metrics provides methods for recording observability metrics.
// A zero Metrics (or a nil *Metrics) records nothing.
type Metrics struct {
	// Triage pipeline
	runsTotal         metric.Int64Counter
	stageDuration     metric.Float64Histogram
	messagesFetched   metric.Int64Histogram
	clustersProduced  metric.Int64Histogram
	clusterIterations metric.Int64Histogram

	// Archive coordinator
	archiveMessagesTotal metric.Int64Counter
	archiveCallDuration  metric.Float64Histogram
	archiveRetriesTotal  metric.Int64Counter

	// MCP tools
	toolInvocationsTotal metric.Int64Counter
	toolDuration         metric.Float64Histogram
}

// NewMetrics creates a new Metrics instance with all instruments initialized.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	m.runsTotal, err = meter.Int64Counter(
		"triage_runs_total",
		metric.WithDescription("Total number of triage pipeline runs"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create triage_runs_total counter: %w", err)
	}

	m.stageDuration, err = meter.Float64Histogram(
		"triage_stage_duration_seconds",
		metric.WithDescription("Duration of each triage pipeline stage in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.01, 0.05, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create triage_stage_duration_seconds histogram: %w", err)
	}

	m.messagesFetched, err = meter.Int64Histogram(
		"triage_messages_fetched",
		metric.WithDescription("Number of messages in the working set of a run"),
		metric.WithUnit("{message}"),
		metric.WithExplicitBucketBoundaries(0, 10, 50, 100, 200, 500, 1000),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create triage_messages_fetched histogram: %w", err)
	}

	m.clustersProduced, err = meter.Int64Histogram(
		"triage_clusters_produced",
		metric.WithDescription("Number of clusters produced by a run"),
		metric.WithUnit("{cluster}"),
		metric.WithExplicitBucketBoundaries(0, 1, 2, 3, 5, 7, 10, 20),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create triage_clusters_produced histogram: %w", err)
	}

	m.clusterIterations, err = meter.Int64Histogram(
		"triage_cluster_iterations",
		metric.WithDescription("Refinement iterations used by the clustering engine"),
		metric.WithUnit("{iteration}"),
		metric.WithExplicitBucketBoundaries(1, 2, 5, 10, 20, 50, 100),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create triage_cluster_iterations histogram: %w", err)
	}

	m.archiveMessagesTotal, err = meter.Int64Counter(
		"archive_messages_total",
		metric.WithDescription("Total number of per-message archive outcomes"),
		metric.WithUnit("{message}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create archive_messages_total counter: %w", err)
	}

	m.archiveCallDuration, err = meter.Float64Histogram(
		"archive_call_duration_seconds",
		metric.WithDescription("Per-message archive latency in seconds, retries included"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create archive_call_duration_seconds histogram: %w", err)
	}

	m.archiveRetriesTotal, err = meter.Int64Counter(
		"archive_retries_total",
		metric.WithDescription("Total number of retried archive calls"),
		metric.WithUnit("{retry}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create archive_retries_total counter: %w", err)
	}

	m.toolInvocationsTotal, err = meter.Int64Counter(
		"mcp_tool_invocations_total",
		metric.WithDescription("Total number of MCP tool invocations"),
		metric.WithUnit("{invocation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_tool_invocations_total counter: %w", err)
	}

	m.toolDuration, err = meter.Float64Histogram(
		"mcp_tool_duration_seconds",
		metric.WithDescription("MCP tool execution duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_tool_duration_seconds histogram: %w", err)
	}

	return m, nil
}

// RecordRun records the outcome of one pipeline run.
func (m *Metrics) RecordRun(ctx context.Context, source, status string) {
	if m == nil || m.runsTotal == nil {
		return
	}
	m.runsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrSource, NormalizeSource(source)),
		attribute.String(attrStatus, status),
	))
}

// RecordStage records the duration of one pipeline stage.
func (m *Metrics) RecordStage(ctx context.Context, stage string, duration time.Duration) {
	if m == nil || m.stageDuration == nil {
		return
	}
	m.stageDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String(attrStage, NormalizeStage(stage)),
	))
}

// RecordWorkingSet records the working set size and the number of clusters produced.
func (m *Metrics) RecordWorkingSet(ctx context.Context, messages, clusters int) {
	if m == nil || m.messagesFetched == nil || m.clustersProduced == nil {
		return
	}
	m.messagesFetched.Record(ctx, int64(messages))
	m.clustersProduced.Record(ctx, int64(clusters))
}

// RecordClustering records how many iterations clustering took and whether it converged.
func (m *Metrics) RecordClustering(ctx context.Context, iterations int, converged bool) {
	if m == nil || m.clusterIterations == nil {
		return
	}
	m.clusterIterations.Record(ctx, int64(iterations), metric.WithAttributes(
		attribute.String(attrConverged, strconv.FormatBool(converged)),
	))
}

// RecordArchiveCall records the outcome of archiving one message.
// attempts counts every call issued for the message, so attempts-1 are retries.
func (m *Metrics) RecordArchiveCall(ctx context.Context, status string, attempts int, duration time.Duration) {
	if m == nil || m.archiveMessagesTotal == nil || m.archiveCallDuration == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String(attrStatus, status))
	m.archiveMessagesTotal.Add(ctx, 1, attrs)
	m.archiveCallDuration.Record(ctx, duration.Seconds(), attrs)
	if attempts > 1 && m.archiveRetriesTotal != nil {
		m.archiveRetriesTotal.Add(ctx, int64(attempts-1))
	}
}

// RecordToolInvocation records an MCP tool invocation with tool name, status, and duration.
func (m *Metrics) RecordToolInvocation(ctx context.Context, toolName, status string, duration time.Duration) {
	if m == nil || m.toolInvocationsTotal == nil || m.toolDuration == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String(attrTool, toolName),
		attribute.String(attrStatus, status),
	)
	m.toolInvocationsTotal.Add(ctx, 1, attrs)
	m.toolDuration.Record(ctx, duration.Seconds(), attrs)
}
