// Package server holds the state shared by the MCP tools and the HTTP
// endpoints that run next to them.
//
// ServerContext owns the mailbox session, the archive coordinator and a
// small registry of recent triage runs keyed by run id, so a client can
// cluster the inbox in one call and archive a cluster in a later one.
//
// HealthChecker serves /healthz, /readyz and /healthz/detailed for the
// streamable HTTP transport. MetricsServer exposes Prometheus metrics on a
// dedicated port.
package server
