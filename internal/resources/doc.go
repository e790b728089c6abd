// Package resources exposes stored triage runs as MCP resources.
//
//   - triage://runs/latest: the most recent run
//   - triage://runs/{runId}: a run by id
package resources
