package server

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/teemow/inboxtriage/internal/archive"
	"github.com/teemow/inboxtriage/internal/instrumentation"
	"github.com/teemow/inboxtriage/internal/logging"
	"github.com/teemow/inboxtriage/internal/mail"
	"github.com/teemow/inboxtriage/internal/triage"
)

// DefaultMaxRuns is how many triage runs are kept for later archive calls.
const DefaultMaxRuns = 8

var (
	// ErrUnknownRun is returned for a run id that was never stored or has
	// been evicted.
	ErrUnknownRun = errors.New("unknown triage run")
	// ErrNoRuns is returned when the latest run is requested before any
	// triage has happened.
	ErrNoRuns = errors.New("no triage run yet; cluster the inbox first")
	// ErrShutdown is returned by operations on a closed context.
	ErrShutdown = errors.New("server is shutting down")
)

// ServerContext holds the context for the MCP server
type ServerContext struct {
	ctx         context.Context
	cancel      context.CancelFunc
	session     mail.Session
	account     string
	options     triage.Options
	coordinator *archive.Coordinator

	logger  logging.Logger
	metrics *instrumentation.Metrics
	audit   *instrumentation.AuditLogger

	mu       sync.RWMutex
	runs     map[string]*triage.Result
	order    []string
	maxRuns  int
	shutdown bool
}

// Option configures a ServerContext.
type Option func(*ServerContext)

// WithLogger sets the logger used by the server and its coordinator.
func WithLogger(l logging.Logger) Option {
	return func(sc *ServerContext) { sc.logger = l }
}

// WithMetrics enables metric recording.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(sc *ServerContext) { sc.metrics = m }
}

// WithAuditLogger enables audit records for tools and archive requests.
func WithAuditLogger(a *instrumentation.AuditLogger) Option {
	return func(sc *ServerContext) { sc.audit = a }
}

// WithAccount records the account name the session belongs to.
func WithAccount(account string) Option {
	return func(sc *ServerContext) { sc.account = account }
}

// WithMaxRuns bounds the run registry.
func WithMaxRuns(n int) Option {
	return func(sc *ServerContext) {
		if n > 0 {
			sc.maxRuns = n
		}
	}
}

// NewServerContext creates a new server context around one mailbox session.
func NewServerContext(ctx context.Context, session mail.Session, opts triage.Options, archiveCfg archive.Config, options ...Option) (*ServerContext, error) {
	if session == nil {
		return nil, triage.ErrNoSession
	}
	shutdownCtx, cancel := context.WithCancel(ctx)

	sc := &ServerContext{
		ctx:     shutdownCtx,
		cancel:  cancel,
		session: session,
		options: opts,
		logger:  logging.Discard(),
		runs:    make(map[string]*triage.Result),
		maxRuns: DefaultMaxRuns,
	}
	for _, o := range options {
		o(sc)
	}
	if sc.options.Logger == nil {
		sc.options.Logger = sc.logger
	}
	if sc.options.Metrics == nil {
		sc.options.Metrics = sc.metrics
	}
	sc.coordinator = archive.NewCoordinator(session, archiveCfg,
		archive.WithLogger(sc.logger),
		archive.WithMetrics(sc.metrics),
		archive.WithAudit(sc.audit),
	)
	return sc, nil
}

// Context returns the server context
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

func (sc *ServerContext) Session() mail.Session {
	return sc.session
}

func (sc *ServerContext) Coordinator() *archive.Coordinator {
	return sc.coordinator
}

// Source names the mailbox backend, e.g. "gmail" or "mbox".
func (sc *ServerContext) Source() string {
	return sc.options.Source
}

func (sc *ServerContext) Account() string {
	return sc.account
}

// TriageOptions returns a copy of the configured triage options.
func (sc *ServerContext) TriageOptions() triage.Options {
	return sc.options
}

func (sc *ServerContext) Logger() logging.Logger {
	return sc.logger
}

// Metrics returns the metrics recorder, which may be nil.
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	return sc.metrics
}

// AuditLogger returns the audit logger, which may be nil.
func (sc *ServerContext) AuditLogger() *instrumentation.AuditLogger {
	return sc.audit
}

// Triage runs the pipeline with the configured options, overriding the
// cluster count and fetch window when they are positive, and stores the
// result for later archive calls.
func (sc *ServerContext) Triage(ctx context.Context, clusters, count int) (*triage.Result, error) {
	if sc.IsShutdown() {
		return nil, ErrShutdown
	}
	opts := sc.options
	if clusters > 0 {
		opts.Clusters = clusters
	}
	if count > 0 {
		opts.Count = count
	}
	res, err := triage.Run(ctx, sc.session, opts)
	if err != nil {
		return nil, err
	}
	sc.StoreRun(res)
	return res, nil
}

// StoreRun adds a result to the registry, evicting the oldest run when the
// registry is full.
func (sc *ServerContext) StoreRun(res *triage.Result) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if _, ok := sc.runs[res.RunID]; !ok {
		sc.order = append(sc.order, res.RunID)
	}
	sc.runs[res.RunID] = res
	for len(sc.order) > sc.maxRuns {
		delete(sc.runs, sc.order[0])
		sc.order = sc.order[1:]
	}
}

// Run returns a stored result. An empty id selects the most recent run.
func (sc *ServerContext) Run(id string) (*triage.Result, error) {
	sc.mu.RLock()
	defer sc.mu.RUnlock()

	if id == "" {
		if len(sc.order) == 0 {
			return nil, ErrNoRuns
		}
		id = sc.order[len(sc.order)-1]
	}
	res, ok := sc.runs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRun, id)
	}
	return res, nil
}

// RunCount returns how many runs are held.
func (sc *ServerContext) RunCount() int {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return len(sc.runs)
}

// IsShutdown returns whether the server has been shutdown
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown cancels the server context and closes the session when it holds
// a connection.
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}

	sc.shutdown = true
	sc.cancel()
	if c, ok := sc.session.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
