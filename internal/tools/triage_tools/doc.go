// Package triage_tools exposes inbox clustering and cluster archiving as
// MCP tools.
//
// Available tools:
//   - triage_cluster_inbox: fetch the recent window and group it into named clusters
//   - triage_show_cluster: list the messages of one cluster
//   - triage_archive_cluster: archive every message of a cluster (write)
//   - triage_archive_messages: archive messages by id (write)
//
// Write tools are only registered when the server runs with --yolo.
// Clusters are addressed by the run id returned from triage_cluster_inbox;
// the server keeps the most recent runs in memory.
package triage_tools
