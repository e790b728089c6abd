package archive

import (
	"encoding/json"
	"fmt"
	"time"
)

// Result statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Result is the outcome of archiving one message.
type Result struct {
	ID       string        `json:"id"`
	Status   string        `json:"status"`
	Attempts int           `json:"attempts"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration_ns"`

	Err error `json:"-"`
}

// OK reports whether the message was archived.
func (r Result) OK() bool {
	return r.Status == StatusSuccess
}

// Report lists the outcome of one archive request. Results follow the order
// of the request; Total equals len(Results) plus len(NotAttempted).
type Report struct {
	Total        int      `json:"total"`
	Succeeded    int      `json:"succeeded"`
	Failed       int      `json:"failed"`
	Results      []Result `json:"results"`
	NotAttempted []string `json:"not_attempted,omitempty"`
}

// Complete reports whether every requested message was archived.
func (r *Report) Complete() bool {
	return r.Failed == 0 && len(r.NotAttempted) == 0
}

// FailedIDs returns the identifiers whose archive call failed, in request
// order.
func (r *Report) FailedIDs() []string {
	var ids []string
	for _, res := range r.Results {
		if !res.OK() {
			ids = append(ids, res.ID)
		}
	}
	return ids
}

// RetryIDs returns the failed identifiers followed by those never attempted.
func (r *Report) RetryIDs() []string {
	return append(r.FailedIDs(), r.NotAttempted...)
}

// Summary is a one-line human readable outcome.
func (r *Report) Summary() string {
	s := fmt.Sprintf("archived %d of %d messages", r.Succeeded, r.Total)
	if r.Failed > 0 {
		s += fmt.Sprintf(", %d failed", r.Failed)
	}
	if n := len(r.NotAttempted); n > 0 {
		s += fmt.Sprintf(", %d not attempted", n)
	}
	return s
}

// JSON renders the report as indented JSON.
func (r *Report) JSON() string {
	b, _ := json.MarshalIndent(r, "", "  ")
	return string(b)
}

func (r *Report) add(res Result) {
	r.Results = append(r.Results, res)
	if res.OK() {
		r.Succeeded++
	} else {
		r.Failed++
	}
}
