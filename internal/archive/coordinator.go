package archive

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/teemow/inboxtriage/internal/instrumentation"
	"github.com/teemow/inboxtriage/internal/logging"
	"github.com/teemow/inboxtriage/internal/mail"
)

// Defaults for Config.
const (
	DefaultWorkers        = 4
	DefaultMaxAttempts    = 3
	DefaultInitialBackoff = 200 * time.Millisecond

	maxBackoff = 5 * time.Second
)

// ErrNoArchiver is returned when a Coordinator has no session to archive
// through.
var ErrNoArchiver = errors.New("no archiver configured")

// Config bounds concurrency and retries.
type Config struct {
	Workers        int           `yaml:"workers"`
	MaxAttempts    int           `yaml:"max_attempts"`
	InitialBackoff time.Duration `yaml:"initial_backoff"`
}

func (c Config) withDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = DefaultInitialBackoff
	}
	return c
}

// Request names the messages to archive and the cluster they came from.
// RunID, ClusterID, Label, Source and Account only feed logs and the audit
// record.
type Request struct {
	IDs []string

	RunID     string
	ClusterID int
	Label     string
	Source    string
	Account   string
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the logger. The default discards records.
func WithLogger(l logging.Logger) Option {
	return func(c *Coordinator) { c.logger = l }
}

// WithMetrics records per-message outcomes.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(c *Coordinator) { c.metrics = m }
}

// WithAudit writes one audit record per request.
func WithAudit(a *instrumentation.AuditLogger) Option {
	return func(c *Coordinator) { c.audit = a }
}

// Coordinator archives clusters through a mail.Archiver.
type Coordinator struct {
	archiver mail.Archiver
	cfg      Config
	logger   logging.Logger
	metrics  *instrumentation.Metrics
	audit    *instrumentation.AuditLogger
}

// NewCoordinator returns a Coordinator archiving through a.
func NewCoordinator(a mail.Archiver, cfg Config, opts ...Option) *Coordinator {
	c := &Coordinator{
		archiver: a,
		cfg:      cfg.withDefaults(),
		logger:   logging.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Config returns the effective configuration.
func (c *Coordinator) Config() Config {
	return c.cfg
}

// Archive dispatches every distinct id of req once and waits for all issued
// calls. The returned error is non-nil only when the Coordinator cannot
// archive at all; per-message failures and cancellation are in the Report.
func (c *Coordinator) Archive(ctx context.Context, req Request) (*Report, error) {
	if c == nil || c.archiver == nil {
		return nil, ErrNoArchiver
	}

	ids := dedupe(req.IDs)
	ctx, span := instrumentation.StartSpan(ctx, "archive.cluster",
		attribute.String(instrumentation.SpanAttrRunID, req.RunID),
		attribute.Int(instrumentation.SpanAttrClusterID, req.ClusterID),
		attribute.Int(instrumentation.SpanAttrMessages, len(ids)),
	)
	defer span.End()

	audit := instrumentation.NewArchiveAudit(ctx, req.RunID, req.ClusterID, req.Label).
		WithSession(req.Source, req.Account)
	c.logger.Info("archiving cluster",
		logging.RunID(req.RunID), logging.Cluster(req.ClusterID), "messages", len(ids), "workers", c.cfg.Workers)

	results := make([]Result, len(ids))
	issued := make([]bool, len(ids))

	var g errgroup.Group
	g.SetLimit(c.cfg.Workers)
	for i, id := range ids {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			// A slot may free up only after cancellation.
			if ctx.Err() != nil {
				return nil
			}
			issued[i] = true
			results[i] = c.archiveOne(ctx, id)
			return nil
		})
	}
	_ = g.Wait()

	report := &Report{Total: len(ids)}
	for i, id := range ids {
		if issued[i] {
			report.add(results[i])
		} else {
			report.NotAttempted = append(report.NotAttempted, id)
		}
	}

	c.audit.LogArchive(audit.Complete(report.Total, report.Succeeded, report.Failed, len(report.NotAttempted)))
	if report.Complete() {
		instrumentation.SetSpanSuccess(span)
	} else {
		span.SetAttributes(attribute.Int("archive.failed", report.Failed),
			attribute.Int("archive.not_attempted", len(report.NotAttempted)))
	}
	c.logger.Info("cluster archive finished",
		logging.RunID(req.RunID), logging.Cluster(req.ClusterID),
		"succeeded", report.Succeeded, "failed", report.Failed, "not_attempted", len(report.NotAttempted))

	return report, nil
}

// archiveOne archives id, retrying temporary transport errors.
func (c *Coordinator) archiveOne(ctx context.Context, id string) Result {
	ctx, span := instrumentation.StartArchiveSpan(ctx, id)
	defer span.End()

	start := time.Now()
	attempts := 0
	op := func() (struct{}, error) {
		attempts++
		err := c.archiver.ArchiveOne(ctx, id)
		if err == nil || mail.IsTemporary(err) {
			return struct{}{}, err
		}
		return struct{}{}, backoff.Permanent(err)
	}

	_, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(c.newBackOff()),
		backoff.WithMaxTries(uint(c.cfg.MaxAttempts)),
		backoff.WithNotify(func(err error, next time.Duration) {
			c.logger.Debug("retrying archive call",
				logging.MessageID(id), "attempt", attempts, "next", next, logging.Err(err))
		}),
	)

	res := Result{ID: id, Attempts: attempts, Duration: time.Since(start)}
	if err != nil {
		res.Status = StatusError
		res.Err = err
		res.Error = err.Error()
		instrumentation.SetSpanError(span, err)
		c.logger.Warn("archive call failed", logging.MessageID(id), "attempts", attempts, logging.Err(err))
	} else {
		res.Status = StatusSuccess
		instrumentation.SetSpanSuccess(span)
	}
	c.metrics.RecordArchiveCall(ctx, res.Status, attempts, res.Duration)
	return res
}

func (c *Coordinator) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.cfg.InitialBackoff
	b.MaxInterval = maxBackoff
	return b
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
