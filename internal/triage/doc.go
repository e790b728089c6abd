// Package triage runs one triage pass over a mail session: fetch a bounded
// window of recent messages, extract features, cluster them and name each
// cluster.
//
// The session is always passed in explicitly. A run keeps no state beyond
// the Result it returns, and nothing is cached between runs.
package triage
