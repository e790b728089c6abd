package gmail

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/teemow/inboxtriage/internal/google"
	"github.com/teemow/inboxtriage/internal/logging"
	"github.com/teemow/inboxtriage/internal/mail"
)

const (
	user       = "me"
	inboxLabel = "INBOX"

	// maxPageSize is the largest page Gmail returns from messages.list.
	maxPageSize = 500

	// DefaultFetchWorkers bounds concurrent metadata requests.
	DefaultFetchWorkers = 8
)

// metadataHeaders are the headers requested for each message.
var metadataHeaders = []string{
	"From", "Subject", "Date", "Message-Id",
	"List-Unsubscribe", "List-Id", "Precedence", "Auto-Submitted", "X-Mailer",
}

// Session is a mail.Session for one Gmail account.
type Session struct {
	svc     *gmailapi.Service
	account string
	workers int
	logger  logging.Logger
}

var _ mail.Session = (*Session)(nil)

// NewSessionForAccount builds a Session from the stored token of account.
func NewSessionForAccount(ctx context.Context, account string, logger logging.Logger) (*Session, error) {
	client, err := google.HTTPClientForAccount(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("no valid Google OAuth token found for account %s: %w", account, err)
	}
	s, err := NewSession(ctx, logger, option.WithHTTPClient(client))
	if err != nil {
		return nil, err
	}
	s.account = account
	return s, nil
}

// NewSession builds a Session from Google API client options. A nil logger
// discards records.
func NewSession(ctx context.Context, logger logging.Logger, opts ...option.ClientOption) (*Session, error) {
	svc, err := gmailapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Session{svc: svc, workers: DefaultFetchWorkers, logger: logger}, nil
}

// Account returns the account name the session was created for.
func (s *Session) Account() string {
	return s.account
}

// SetFetchWorkers bounds concurrent metadata requests. Values below one are
// ignored.
func (s *Session) SetFetchWorkers(n int) {
	if n > 0 {
		s.workers = n
	}
}

// FetchRecent returns up to limit INBOX messages, most recent first.
func (s *Session) FetchRecent(ctx context.Context, limit int) ([]mail.Message, error) {
	if limit <= 0 {
		return nil, nil
	}
	ids, err := s.listInbox(ctx, limit)
	if err != nil {
		return nil, err
	}

	msgs := make([]mail.Message, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, id := range ids {
		g.Go(func() error {
			m, err := s.svc.Users.Messages.Get(user, id).
				Format("metadata").
				MetadataHeaders(metadataHeaders...).
				Context(gctx).
				Do()
			if err != nil {
				return classify("fetch", err)
			}
			msgs[i] = toMessage(m)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	s.logger.Debug("fetched gmail metadata", "messages", len(msgs), "workers", s.workers)
	return msgs, nil
}

func (s *Session) listInbox(ctx context.Context, limit int) ([]string, error) {
	var ids []string
	pageToken := ""
	for len(ids) < limit {
		req := s.svc.Users.Messages.List(user).
			LabelIds(inboxLabel).
			MaxResults(int64(min(limit-len(ids), maxPageSize))).
			Context(ctx)
		if pageToken != "" {
			req = req.PageToken(pageToken)
		}
		res, err := req.Do()
		if err != nil {
			return nil, classify("fetch", err)
		}
		for _, m := range res.Messages {
			ids = append(ids, m.Id)
		}
		if res.NextPageToken == "" {
			break
		}
		pageToken = res.NextPageToken
	}
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

// ArchiveOne removes the INBOX label from the message.
func (s *Session) ArchiveOne(ctx context.Context, id string) error {
	_, err := s.svc.Users.Messages.Modify(user, id, &gmailapi.ModifyMessageRequest{
		RemoveLabelIds: []string{inboxLabel},
	}).Context(ctx).Do()
	if err != nil {
		return classify("archive", err)
	}
	return nil
}

func toMessage(m *gmailapi.Message) mail.Message {
	var pairs []string
	if m.Payload != nil {
		for _, h := range m.Payload.Headers {
			pairs = append(pairs, h.Name, h.Value)
		}
	}
	headers := mail.NewHeaders(pairs...)

	msg := mail.Message{
		ID:       m.Id,
		From:     headers["From"],
		Subject:  headers["Subject"],
		Excerpt:  html.UnescapeString(m.Snippet),
		Received: time.UnixMilli(m.InternalDate),
		Headers:  headers,
	}
	return msg
}

// classify maps Google API errors to TransportErrors. Rate limits, server
// errors and network failures are temporary; a missing message wraps
// mail.ErrNotFound.
func classify(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return mail.NewTemporaryError(op, err)
	}
	switch {
	case apiErr.Code == http.StatusNotFound:
		return mail.NewTransportError(op, fmt.Errorf("%w: %v", mail.ErrNotFound, err))
	case apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= 500:
		return mail.NewTemporaryError(op, err)
	default:
		return mail.NewTransportError(op, err)
	}
}
