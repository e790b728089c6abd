// Package mbox implements a mail session over a local mbox file.
//
// The mbox file is never rewritten. Archiving appends the message id to a
// JSON Lines journal next to it, and journaled messages are left out of
// later fetches.
package mbox

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
	"time"

	gombox "github.com/emersion/go-mbox"

	"github.com/teemow/inboxtriage/internal/logging"
	"github.com/teemow/inboxtriage/internal/mail"
)

// JournalSuffix is appended to the mbox path to name the default journal.
const JournalSuffix = ".archived.jsonl"

// Config locates the mbox file and its archive journal.
type Config struct {
	Path      string `yaml:"path"`
	StatePath string `yaml:"state_path"`
}

type journalEntry struct {
	ID         string    `json:"id"`
	ArchivedAt time.Time `json:"archived_at"`
}

// Session reads messages from an mbox file. It is safe for concurrent use.
type Session struct {
	path      string
	statePath string
	logger    logging.Logger

	mu       sync.Mutex
	archived map[string]bool
	loaded   bool
	known    map[string]bool
}

var _ mail.Session = (*Session)(nil)

// NewSession returns a session for cfg.Path. A nil logger discards records.
func NewSession(cfg Config, logger logging.Logger) (*Session, error) {
	if cfg.Path == "" {
		return nil, errors.New("mbox path is required")
	}
	if cfg.StatePath == "" {
		cfg.StatePath = cfg.Path + JournalSuffix
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Session{
		path:      cfg.Path,
		statePath: cfg.StatePath,
		logger:    logger,
		known:     make(map[string]bool),
	}, nil
}

// StatePath returns the journal path.
func (s *Session) StatePath() string {
	return s.statePath
}

// FetchRecent returns up to limit unarchived messages ordered by Date, most
// recent first. Messages later in the file win ties.
func (s *Session) FetchRecent(ctx context.Context, limit int) ([]mail.Message, error) {
	if limit <= 0 {
		return nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadJournal(); err != nil {
		return nil, mail.NewTransportError("fetch", err)
	}
	msgs, err := s.readAll(ctx)
	if err != nil {
		return nil, mail.NewTransportError("fetch", err)
	}

	type positioned struct {
		pos int
		m   mail.Message
	}
	var live []positioned
	for i, m := range msgs {
		if !s.archived[m.ID] {
			live = append(live, positioned{i, m})
		}
	}
	sort.SliceStable(live, func(i, j int) bool {
		a, b := live[i], live[j]
		if !a.m.Received.Equal(b.m.Received) {
			return a.m.Received.After(b.m.Received)
		}
		return a.pos > b.pos
	})

	out := make([]mail.Message, 0, min(limit, len(live)))
	for _, p := range live {
		if len(out) == limit {
			break
		}
		out = append(out, p.m)
	}
	return out, nil
}

// readAll parses every message in the file. Unparseable messages are logged
// and skipped. Duplicate ids keep their first occurrence.
func (s *Session) readAll(ctx context.Context) ([]mail.Message, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	var msgs []mail.Message
	known := make(map[string]bool)
	r := gombox.NewReader(bufio.NewReader(f))
	for n := 0; ; n++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		mr, err := r.NextMessage()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read message %d: %w", n, err)
		}
		raw, err := io.ReadAll(mr)
		if err != nil {
			return nil, fmt.Errorf("read message %d: %w", n, err)
		}
		m, err := mail.ParseRaw(raw, mail.ParseOptions{})
		if err != nil {
			s.logger.Warn("skipping unparseable message", "position", n, logging.Err(err))
			continue
		}
		if known[m.ID] {
			continue
		}
		known[m.ID] = true
		msgs = append(msgs, m)
	}
	s.known = known
	return msgs, nil
}

func (s *Session) loadJournal() error {
	if s.loaded {
		return nil
	}
	archived := make(map[string]bool)
	f, err := os.Open(s.statePath)
	if errors.Is(err, os.ErrNotExist) {
		s.archived, s.loaded = archived, true
		return nil
	}
	if err != nil {
		return fmt.Errorf("open archive journal: %w", err)
	}
	defer func() { _ = f.Close() }()

	sc := bufio.NewScanner(f)
	for line := 1; sc.Scan(); line++ {
		if len(sc.Bytes()) == 0 {
			continue
		}
		var e journalEntry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			return fmt.Errorf("archive journal line %d: %w", line, err)
		}
		archived[e.ID] = true
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read archive journal: %w", err)
	}
	s.archived, s.loaded = archived, true
	return nil
}

// ArchiveOne journals id. Archiving a journaled id succeeds without writing.
func (s *Session) ArchiveOne(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadJournal(); err != nil {
		return mail.NewTransportError("archive", err)
	}
	if s.archived[id] {
		return nil
	}
	if !s.known[id] {
		if _, err := s.readAll(ctx); err != nil {
			return mail.NewTransportError("archive", err)
		}
		if !s.known[id] {
			return fmt.Errorf("%w: %s", mail.ErrNotFound, id)
		}
	}

	line, err := json.Marshal(journalEntry{ID: id, ArchivedAt: time.Now().UTC()})
	if err != nil {
		return err
	}
	f, err := os.OpenFile(s.statePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return mail.NewTransportError("archive", err)
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		_ = f.Close()
		return mail.NewTransportError("archive", err)
	}
	if err := f.Close(); err != nil {
		return mail.NewTransportError("archive", err)
	}
	s.archived[id] = true
	s.logger.Debug("message journaled", logging.MessageID(id))
	return nil
}
