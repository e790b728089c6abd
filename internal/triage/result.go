package triage

import (
	"errors"
	"fmt"
	"time"

	"github.com/teemow/inboxtriage/internal/archive"
	"github.com/teemow/inboxtriage/internal/mail"
)

// ErrUnknownCluster is returned when a cluster id is not part of a Result.
var ErrUnknownCluster = errors.New("unknown cluster")

// Cluster is one named group of the working set.
type Cluster struct {
	// ID is 1-based; clusters are numbered largest first.
	ID             int
	Label          string
	Description    string
	Keywords       []string
	DominantDomain string
	// Messages are in fetch order, most recent first.
	Messages []mail.Message
	// Medoid is the id of the most representative message.
	Medoid string
	// Cost is the summed distance of the members to the medoid.
	Cost float64
}

// Size returns the number of messages in the cluster.
func (c *Cluster) Size() int {
	return len(c.Messages)
}

// IDs returns the message identifiers in fetch order.
func (c *Cluster) IDs() []string {
	ids := make([]string, len(c.Messages))
	for i, m := range c.Messages {
		ids[i] = m.ID
	}
	return ids
}

// TopSenders returns up to n sender domains ordered by frequency, ties
// alphabetically.
func (c *Cluster) TopSenders(n int) []string {
	counts := make(map[string]int)
	var order []string
	for _, m := range c.Messages {
		d := m.SenderDomain()
		if d == "" {
			continue
		}
		if counts[d] == 0 {
			order = append(order, d)
		}
		counts[d]++
	}
	sortByCount(order, counts)
	if len(order) > n {
		order = order[:n]
	}
	return order
}

// Result is the outcome of one triage run.
type Result struct {
	RunID     string
	Source    string
	CreatedAt time.Time
	// Fetched is the size of the working set.
	Fetched  int
	Clusters []Cluster
	// Converged is false when clustering hit its iteration bound; the
	// clusters are then a best-effort partition.
	Converged  bool
	Iterations int
	Warnings   []string
}

// Empty reports whether the run had nothing to triage.
func (r *Result) Empty() bool {
	return r.Fetched == 0
}

// Cluster returns the cluster with the given id.
func (r *Result) Cluster(id int) (*Cluster, error) {
	for i := range r.Clusters {
		if r.Clusters[i].ID == id {
			return &r.Clusters[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %d (run has %d clusters)", ErrUnknownCluster, id, len(r.Clusters))
}

// ArchiveRequest builds the archive request for cluster id. account is only
// recorded in the audit log.
func (r *Result) ArchiveRequest(id int, account string) (archive.Request, error) {
	c, err := r.Cluster(id)
	if err != nil {
		return archive.Request{}, err
	}
	return archive.Request{
		IDs:       c.IDs(),
		RunID:     r.RunID,
		ClusterID: c.ID,
		Label:     c.Label,
		Source:    r.Source,
		Account:   account,
	}, nil
}
