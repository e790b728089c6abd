package mail

import (
	"context"
	"net/textproto"
	"strings"
	"time"

	gomail "github.com/emersion/go-message/mail"
)

// Message is one fetched email. It is immutable once returned by a Session
// and lives for a single triage run.
type Message struct {
	// ID is opaque and stable for the lifetime of the session.
	ID      string
	From    string
	Subject string
	// Excerpt is a short plain-text preview of the body.
	Excerpt  string
	Received time.Time
	// Headers holds auxiliary header fields keyed by canonical MIME name.
	Headers map[string]string
}

// Header returns the value of the named header, ignoring case.
func (m Message) Header(name string) string {
	if m.Headers == nil {
		return ""
	}
	return m.Headers[textproto.CanonicalMIMEHeaderKey(name)]
}

// SenderAddress returns the bare address of From, lower-cased.
func (m Message) SenderAddress() string {
	return ExtractAddress(m.From)
}

// SenderDomain returns the domain part of the sender address, or "".
func (m Message) SenderDomain() string {
	addr := m.SenderAddress()
	at := strings.LastIndexByte(addr, '@')
	if at < 0 || at == len(addr)-1 {
		return ""
	}
	return addr[at+1:]
}

// Session is the capability the triage core needs from a mailbox.
type Session interface {
	// FetchRecent returns at most limit messages, most recent first.
	// Authentication or connectivity failures are reported as *TransportError.
	FetchRecent(ctx context.Context, limit int) ([]Message, error)

	// ArchiveOne archives a single message. Archiving an already archived
	// message succeeds.
	ArchiveOne(ctx context.Context, id string) error
}

// Archiver is the subset of Session used by the archive coordinator.
type Archiver interface {
	ArchiveOne(ctx context.Context, id string) error
}

// NewHeaders builds a canonical header map from name/value pairs. Later
// duplicates are ignored so the first occurrence wins, as in RFC 5322 parsers.
func NewHeaders(pairs ...string) map[string]string {
	h := make(map[string]string, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		key := textproto.CanonicalMIMEHeaderKey(pairs[i])
		if _, ok := h[key]; ok {
			continue
		}
		h[key] = pairs[i+1]
	}
	return h
}

// ExtractAddress returns the lower-cased address part of a From value such
// as `"Jane" <jane@example.com>` or `jane@example.com (Jane)`. Values that do
// not parse as an address are returned trimmed, without angle brackets or a
// trailing comment.
func ExtractAddress(from string) string {
	from = strings.TrimSpace(from)
	if from == "" {
		return ""
	}
	if addr, err := gomail.ParseAddress(from); err == nil && addr.Address != "" {
		return strings.ToLower(addr.Address)
	}
	if i := strings.IndexByte(from, '('); i > 0 && !strings.ContainsRune(from, '<') {
		from = from[:i]
	}
	if lt := strings.LastIndexByte(from, '<'); lt >= 0 {
		if gt := strings.IndexByte(from[lt:], '>'); gt > 0 {
			from = from[lt+1 : lt+gt]
		}
	}
	return strings.ToLower(strings.TrimSpace(from))
}

func canonicalKey(name string) string {
	return textproto.CanonicalMIMEHeaderKey(name)
}
