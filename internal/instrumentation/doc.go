// Package instrumentation provides OpenTelemetry metrics, tracing and audit
// logging for inboxtriage.
//
// # Metrics
//
// Triage pipeline:
//   - triage_runs_total: Counter of pipeline runs by source and status
//   - triage_stage_duration_seconds: Histogram of fetch/extract/cluster/label durations
//   - triage_messages_fetched: Histogram of working set sizes
//   - triage_clusters_produced: Histogram of cluster counts per run
//   - triage_cluster_iterations: Histogram of clustering iterations by convergence
//
// Archive coordinator:
//   - archive_messages_total: Counter of per-message archive outcomes by status
//   - archive_call_duration_seconds: Histogram of per-message archive latency
//   - archive_retries_total: Counter of retried archive calls
//
// MCP tools:
//   - mcp_tool_invocations_total: Counter of tool invocations by tool and status
//   - mcp_tool_duration_seconds: Histogram of tool execution durations
//
// # Tracing
//
// Spans are created for the run (triage.run), each pipeline stage
// (triage.fetch, triage.extract, triage.cluster, triage.label), each
// cluster archive request (archive.cluster) and each archive call
// (archive.message).
//
// # Configuration
//
// Instrumentation is configured via environment variables:
//   - INSTRUMENTATION_ENABLED: Enable/disable instrumentation (default: true)
//   - METRICS_EXPORTER: prometheus, otlp or stdout (default: prometheus)
//   - TRACING_EXPORTER: otlp, stdout or none (default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint for traces/metrics
//   - OTEL_TRACES_SAMPLER_ARG: Sampling rate (0.0 to 1.0, default: 0.1)
//   - OTEL_SERVICE_NAME: Service name (default: inboxtriage)
//   - AUDIT_LOGGING_ENABLED: Emit archive audit records (default: true)
//
// # Example Usage
//
//	provider, err := instrumentation.NewProvider(ctx, instrumentation.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	provider.Metrics().RecordStage(ctx, instrumentation.StageCluster, time.Since(start))
package instrumentation
