// Package imap implements a mail session over IMAP, including Gmail's IMAP
// endpoint.
package imap

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"sort"
	"strconv"
	"sync"
	"time"

	imapv2 "github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"

	"github.com/teemow/inboxtriage/internal/logging"
	"github.com/teemow/inboxtriage/internal/mail"
)

// Defaults for Config.
const (
	DefaultMailbox        = "INBOX"
	DefaultArchiveMailbox = "Archive"

	// textPreview is how much of the message text is fetched per message.
	textPreview = 4096
)

// Config describes the IMAP account.
type Config struct {
	// Address is host or host:port; the port defaults to 993, or 143 when
	// Insecure is set.
	Address        string `yaml:"address"`
	Username       string `yaml:"username"`
	Password       string `yaml:"-"`
	Insecure       bool   `yaml:"insecure"`
	Mailbox        string `yaml:"mailbox"`
	ArchiveMailbox string `yaml:"archive_mailbox"`
}

func (c Config) withDefaults() Config {
	if c.Mailbox == "" {
		c.Mailbox = DefaultMailbox
	}
	if c.ArchiveMailbox == "" {
		c.ArchiveMailbox = DefaultArchiveMailbox
	}
	if _, _, err := net.SplitHostPort(c.Address); err != nil && c.Address != "" {
		port := "993"
		if c.Insecure {
			port = "143"
		}
		c.Address = net.JoinHostPort(c.Address, port)
	}
	return c
}

// Session is a mail.Session backed by one IMAP connection. The connection
// is opened lazily and reopened after transport failures. Commands are
// serialized.
type Session struct {
	cfg    Config
	logger logging.Logger

	mu       sync.Mutex
	client   *imapclient.Client
	selected bool
}

var _ mail.Session = (*Session)(nil)

// NewSession validates cfg and returns an unconnected session.
func NewSession(cfg Config, logger logging.Logger) (*Session, error) {
	if cfg.Address == "" {
		return nil, errors.New("imap address is required")
	}
	if cfg.Username == "" {
		return nil, errors.New("imap username is required")
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Session{cfg: cfg.withDefaults(), logger: logger}, nil
}

func (s *Session) connect() error {
	if s.client != nil {
		return nil
	}

	host, _, _ := net.SplitHostPort(s.cfg.Address)
	var (
		client *imapclient.Client
		err    error
	)
	if s.cfg.Insecure {
		client, err = imapclient.DialInsecure(s.cfg.Address, &imapclient.Options{})
	} else {
		client, err = imapclient.DialTLS(s.cfg.Address, &imapclient.Options{
			TLSConfig: &tls.Config{ServerName: host},
		})
	}
	if err != nil {
		return mail.NewTemporaryError("connect", fmt.Errorf("dial imap %s: %w", s.cfg.Address, err))
	}

	if err := client.Login(s.cfg.Username, s.cfg.Password).Wait(); err != nil {
		_ = client.Close()
		return mail.NewTransportError("login", fmt.Errorf("imap login failed: %w", err))
	}

	s.logger.Debug("imap connection established", "address", s.cfg.Address, logging.SenderHash(s.cfg.Username))
	s.client = client
	s.selected = false
	return nil
}

func (s *Session) selectMailbox() (*imapv2.SelectData, error) {
	data, err := s.client.Select(s.cfg.Mailbox, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", s.cfg.Mailbox, err)
	}
	s.selected = true
	return data, nil
}

// reset drops the connection after a failure that may have broken it.
func (s *Session) reset() {
	if s.client != nil {
		_ = s.client.Close()
	}
	s.client = nil
	s.selected = false
}

// watch closes the connection when ctx is cancelled, unblocking the pending
// command. The returned function stops watching.
func (s *Session) watch(ctx context.Context) func() bool {
	client := s.client
	return context.AfterFunc(ctx, func() { _ = client.Close() })
}

// FetchRecent returns the newest limit messages of the mailbox, most recent
// first. Each message carries its full header and the first few KiB of its
// text. Message ids are UIDs.
func (s *Session) FetchRecent(ctx context.Context, limit int) ([]mail.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.connect(); err != nil {
		return nil, err
	}
	stop := s.watch(ctx)
	defer stop()

	data, err := s.selectMailbox()
	if err != nil {
		return nil, s.fail(ctx, "fetch", err)
	}
	from, to, ok := seqRange(data.NumMessages, limit)
	if !ok {
		return nil, nil
	}

	header := &imapv2.FetchItemBodySection{Specifier: imapv2.PartSpecifierHeader, Peek: true}
	text := &imapv2.FetchItemBodySection{
		Specifier: imapv2.PartSpecifierText,
		Peek:      true,
		Partial:   &imapv2.SectionPartial{Offset: 0, Size: textPreview},
	}
	var seqSet imapv2.SeqSet
	seqSet.AddRange(from, to)

	bufs, err := s.client.Fetch(seqSet, &imapv2.FetchOptions{
		UID:          true,
		InternalDate: true,
		BodySection:  []*imapv2.FetchItemBodySection{header, text},
	}).Collect()
	if err != nil {
		return nil, s.fail(ctx, "fetch", err)
	}

	sort.Slice(bufs, func(i, j int) bool { return bufs[i].SeqNum > bufs[j].SeqNum })
	msgs := make([]mail.Message, 0, len(bufs))
	for _, b := range bufs {
		m, err := toMessage(b.UID, b.InternalDate, b.FindBodySection(header), b.FindBodySection(text))
		if err != nil {
			s.logger.Warn("skipping unparseable message", "uid", uint32(b.UID), logging.Err(err))
			continue
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}

// ArchiveOne moves the message with the given UID to the archive mailbox.
// Moving a UID that is no longer in the mailbox is a no-op on the server, so
// repeated calls succeed.
func (s *Session) ArchiveOne(ctx context.Context, id string) error {
	uid, err := strconv.ParseUint(id, 10, 32)
	if err != nil || uid == 0 {
		return fmt.Errorf("%w: %q is not an IMAP UID", mail.ErrNotFound, id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.connect(); err != nil {
		return err
	}
	stop := s.watch(ctx)
	defer stop()

	if !s.selected {
		if _, err := s.selectMailbox(); err != nil {
			return s.fail(ctx, "archive", err)
		}
	}
	if _, err := s.client.Move(imapv2.UIDSetNum(imapv2.UID(uid)), s.cfg.ArchiveMailbox).Wait(); err != nil {
		return s.fail(ctx, "archive", fmt.Errorf("move uid %d to %s: %w", uid, s.cfg.ArchiveMailbox, err))
	}
	return nil
}

// Close logs out and closes the connection.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client == nil {
		return nil
	}
	if err := s.client.Logout().Wait(); err != nil {
		s.logger.Debug("imap logout failed", logging.Err(err))
	}
	err := s.client.Close()
	s.client = nil
	return err
}

// fail classifies err as a TransportError. Server responses keep the
// connection; anything else drops it so the next call reconnects.
func (s *Session) fail(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		s.reset()
		return ctxErr
	}
	var respErr *imapv2.Error
	if errors.As(err, &respErr) {
		switch respErr.Code {
		case imapv2.ResponseCodeInUse, imapv2.ResponseCodeLimit, imapv2.ResponseCodeUnavailable:
			return mail.NewTemporaryError(op, err)
		}
		return mail.NewTransportError(op, err)
	}
	s.reset()
	return mail.NewTemporaryError(op, err)
}

// seqRange returns the sequence range holding the newest limit of total
// messages.
func seqRange(total uint32, limit int) (from, to uint32, ok bool) {
	if total == 0 || limit <= 0 {
		return 0, 0, false
	}
	from = 1
	if uint64(total) > uint64(limit) {
		from = total - uint32(limit) + 1
	}
	return from, total, true
}

func toMessage(uid imapv2.UID, internalDate time.Time, header, text []byte) (mail.Message, error) {
	if len(header) == 0 {
		return mail.Message{}, errors.New("empty header section")
	}
	raw := make([]byte, 0, len(header)+len(text))
	raw = append(raw, header...)
	raw = append(raw, text...)
	return mail.ParseRaw(raw, mail.ParseOptions{
		ID:       strconv.FormatUint(uint64(uid), 10),
		Received: internalDate,
	})
}
