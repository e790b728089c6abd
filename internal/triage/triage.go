package triage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/teemow/inboxtriage/internal/cluster"
	"github.com/teemow/inboxtriage/internal/features"
	"github.com/teemow/inboxtriage/internal/instrumentation"
	"github.com/teemow/inboxtriage/internal/label"
	"github.com/teemow/inboxtriage/internal/logging"
	"github.com/teemow/inboxtriage/internal/mail"
	"github.com/teemow/inboxtriage/internal/similarity"
)

// Defaults for Options.
const (
	DefaultClusters = 5
	DefaultCount    = 200
)

// ErrNoSession is returned when Run is called without a mail session.
var ErrNoSession = errors.New("no mail session")

// Options configures a run. Zero values take the package defaults.
type Options struct {
	Clusters       int
	Count          int
	Seed           uint64
	MaxIterations  int
	MinClusterSize int
	Weights        similarity.Weights
	Features       features.Config
	Label          label.Config

	// Source names the session kind for logs and metrics.
	Source  string
	Logger  logging.Logger
	Metrics *instrumentation.Metrics
}

func (o Options) withDefaults() Options {
	if o.Clusters <= 0 {
		o.Clusters = DefaultClusters
	}
	if o.Count <= 0 {
		o.Count = DefaultCount
	}
	if o.Weights == (similarity.Weights{}) {
		o.Weights = similarity.DefaultWeights()
	}
	if o.Logger == nil {
		o.Logger = logging.Discard()
	}
	return o
}

// Run fetches at most opts.Count recent messages from session and clusters
// them into at most opts.Clusters named clusters. A fetch failure aborts the
// run; an empty mailbox is not an error and yields an empty Result.
func Run(ctx context.Context, session mail.Session, opts Options) (*Result, error) {
	if session == nil {
		return nil, ErrNoSession
	}
	opts = opts.withDefaults()
	if err := opts.Weights.Validate(); err != nil {
		return nil, err
	}

	r := &run{
		opts: opts,
		result: &Result{
			RunID:     uuid.NewString(),
			Source:    opts.Source,
			CreatedAt: time.Now(),
			Converged: true,
		},
	}
	r.logger = opts.Logger

	ctx, span := instrumentation.StartSpan(ctx, "triage.run",
		attribute.String(instrumentation.SpanAttrRunID, r.result.RunID),
		attribute.String(instrumentation.SpanAttrSource, opts.Source),
	)
	defer span.End()

	if err := r.execute(ctx, session); err != nil {
		instrumentation.SetSpanError(span, err)
		opts.Metrics.RecordRun(ctx, opts.Source, instrumentation.StatusError)
		r.logger.Error("triage run failed", logging.RunID(r.result.RunID), logging.Err(err))
		return nil, err
	}

	span.SetAttributes(
		attribute.Int(instrumentation.SpanAttrMessages, r.result.Fetched),
		attribute.Int(instrumentation.SpanAttrClusters, len(r.result.Clusters)),
	)
	instrumentation.SetSpanSuccess(span)
	opts.Metrics.RecordRun(ctx, opts.Source, instrumentation.StatusSuccess)
	opts.Metrics.RecordWorkingSet(ctx, r.result.Fetched, len(r.result.Clusters))
	r.logger.Info("triage run finished",
		logging.RunID(r.result.RunID), logging.Source(opts.Source),
		"messages", r.result.Fetched, "clusters", len(r.result.Clusters), "converged", r.result.Converged)
	return r.result, nil
}

type run struct {
	opts   Options
	logger logging.Logger
	result *Result

	messages []mail.Message
	vectors  []features.FeatureVector
	groups   cluster.Partition
}

func (r *run) execute(ctx context.Context, session mail.Session) error {
	err := r.stage(ctx, instrumentation.StageFetch, func(ctx context.Context) error {
		msgs, err := session.FetchRecent(ctx, r.opts.Count)
		if err != nil {
			return fmt.Errorf("fetch recent messages: %w", err)
		}
		if len(msgs) > r.opts.Count {
			msgs = msgs[:r.opts.Count]
		}
		r.messages = msgs
		return nil
	})
	if err != nil {
		return err
	}

	r.result.Fetched = len(r.messages)
	if len(r.messages) == 0 {
		r.logger.Info("nothing to triage", logging.RunID(r.result.RunID))
		return nil
	}

	_ = r.stage(ctx, instrumentation.StageExtract, func(context.Context) error {
		r.vectors = features.NewExtractor(r.opts.Features).ExtractAll(r.messages)
		return nil
	})

	err = r.stage(ctx, instrumentation.StageCluster, func(ctx context.Context) error {
		p, err := cluster.Vectors(r.vectors, similarity.NewEngine(r.opts.Weights), cluster.Options{
			K:              r.opts.Clusters,
			MaxIterations:  r.opts.MaxIterations,
			Seed:           r.opts.Seed,
			MinClusterSize: r.opts.MinClusterSize,
		})
		if err != nil {
			return fmt.Errorf("cluster messages: %w", err)
		}
		r.groups = p
		r.opts.Metrics.RecordClustering(ctx, p.Iterations, p.Converged)
		return nil
	})
	if err != nil {
		return err
	}

	r.result.Converged = r.groups.Converged
	r.result.Iterations = r.groups.Iterations
	if !r.groups.Converged {
		w := fmt.Sprintf("clustering did not converge within %d iterations; cluster boundaries are best effort", r.groups.Iterations)
		r.result.Warnings = append(r.result.Warnings, w)
		r.logger.Warn("clustering did not converge", logging.RunID(r.result.RunID), "iterations", r.groups.Iterations)
	}

	_ = r.stage(ctx, instrumentation.StageLabel, func(context.Context) error {
		r.result.Clusters = r.label()
		return nil
	})
	return nil
}

// stage runs fn inside a span and records its duration.
func (r *run) stage(ctx context.Context, name string, fn func(context.Context) error) error {
	ctx, span := instrumentation.StartStageSpan(ctx, name,
		attribute.String(instrumentation.SpanAttrRunID, r.result.RunID))
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	d := time.Since(start)
	r.opts.Metrics.RecordStage(ctx, name, d)
	r.logger.Debug("stage finished", logging.RunID(r.result.RunID), logging.Operation(name), "duration", d)

	if err != nil {
		instrumentation.SetSpanError(span, err)
		return err
	}
	instrumentation.SetSpanSuccess(span)
	return nil
}

type labelled struct {
	first int
	c     Cluster
}

func (r *run) label() []Cluster {
	gen := label.NewGenerator(r.opts.Label)

	out := make([]labelled, 0, len(r.groups.Groups))
	for _, g := range r.groups.Groups {
		msgs := make([]mail.Message, len(g.Members))
		vecs := make([]features.FeatureVector, len(g.Members))
		for i, idx := range g.Members {
			msgs[i] = r.messages[idx]
			vecs[i] = r.vectors[idx]
		}
		info := gen.Label(msgs, vecs)
		out = append(out, labelled{first: g.Members[0], c: Cluster{
			Label:          info.Label,
			Description:    info.Description,
			Keywords:       info.Keywords,
			DominantDomain: info.DominantDomain,
			Messages:       msgs,
			Medoid:         r.messages[g.Medoid].ID,
			Cost:           g.Cost,
		}})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if a, b := out[i].c.Size(), out[j].c.Size(); a != b {
			return a > b
		}
		return out[i].first < out[j].first
	})

	clusters := make([]Cluster, len(out))
	for i, l := range out {
		l.c.ID = i + 1
		clusters[i] = l.c
	}
	return clusters
}

// sortByCount orders keys by descending count, then alphabetically.
func sortByCount(keys []string, counts map[string]int) {
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
}
