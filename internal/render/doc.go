// Package render prints triage results and archive reports for terminals
// and runs the interactive cluster picker.
package render
