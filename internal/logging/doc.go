// Package logging provides structured logging utilities for inboxtriage.
//
// All components log through log/slog. This package keeps attribute names
// consistent across the pipeline, the archive coordinator and the MCP tools,
// and makes sure sender addresses never reach a log line in clear text.
//
// # Usage Patterns
//
// Create a logger scoped to one triage run:
//
//	logger := logging.WithRun(slog.Default(), runID)
//	logger.Info("clustered working set",
//	    logging.Operation("triage.cluster"),
//	    slog.Int("clusters", n))
//
// Sanitize senders before logging:
//
//	logger.Debug("skipping message", logging.SenderHash(msg.From))
//
// # Security Considerations
//
//   - Sender addresses are hashed so log entries can be correlated without PII
//   - Tokens and passwords are never logged directly
package logging
