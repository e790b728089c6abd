package imap

import (
	"context"
	"testing"
	"time"

	imapv2 "github.com/emersion/go-imap/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/inboxtriage/internal/mail"
)

func TestSeqRange(t *testing.T) {
	tests := []struct {
		name     string
		total    uint32
		limit    int
		from, to uint32
		ok       bool
	}{
		{"empty mailbox", 0, 10, 0, 0, false},
		{"zero limit", 10, 0, 0, 0, false},
		{"window smaller than mailbox", 500, 200, 301, 500, true},
		{"window larger than mailbox", 50, 200, 1, 50, true},
		{"exact", 200, 200, 1, 200, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			from, to, ok := seqRange(tt.total, tt.limit)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.from, from)
			assert.Equal(t, tt.to, to)
		})
	}
}

func TestToMessage(t *testing.T) {
	header := []byte("From: GitHub <notifications@github.com>\r\n" +
		"Subject: [acme/api] Build failed\r\n" +
		"List-Id: <api.acme.github.com>\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n\r\n")
	// Partial fetches may cut the text anywhere.
	text := []byte("The workflow run failed for commit abc on main. View the lo")
	internal := time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC)

	m, err := toMessage(imapv2.UID(4711), internal, header, text)
	require.NoError(t, err)
	assert.Equal(t, "4711", m.ID)
	assert.Equal(t, "github.com", m.SenderDomain())
	assert.Equal(t, "[acme/api] Build failed", m.Subject)
	assert.Equal(t, "<api.acme.github.com>", m.Header("List-Id"))
	assert.Equal(t, internal, m.Received, "internal date is used without a Date header")
	assert.Contains(t, m.Excerpt, "workflow run failed")

	_, err = toMessage(1, internal, nil, text)
	assert.Error(t, err)
}

func TestConfig_Defaults(t *testing.T) {
	cfg := Config{Address: "imap.gmail.com"}.withDefaults()
	assert.Equal(t, "imap.gmail.com:993", cfg.Address)
	assert.Equal(t, DefaultMailbox, cfg.Mailbox)
	assert.Equal(t, DefaultArchiveMailbox, cfg.ArchiveMailbox)

	cfg = Config{Address: "localhost", Insecure: true}.withDefaults()
	assert.Equal(t, "localhost:143", cfg.Address)

	cfg = Config{Address: "mail.example.com:1993", ArchiveMailbox: "[Gmail]/All Mail"}.withDefaults()
	assert.Equal(t, "mail.example.com:1993", cfg.Address)
	assert.Equal(t, "[Gmail]/All Mail", cfg.ArchiveMailbox)
}

func TestNewSession_Validation(t *testing.T) {
	_, err := NewSession(Config{Username: "me"}, nil)
	assert.Error(t, err)
	_, err = NewSession(Config{Address: "imap.example.com"}, nil)
	assert.Error(t, err)
}

func TestArchiveOne_RejectsNonUIDs(t *testing.T) {
	s, err := NewSession(Config{Address: "127.0.0.1:1", Username: "me"}, nil)
	require.NoError(t, err)

	for _, id := range []string{"", "abc", "0", "<id@example.com>"} {
		err := s.ArchiveOne(context.Background(), id)
		assert.ErrorIs(t, err, mail.ErrNotFound, "id %q", id)
	}
}

func TestFetchRecent_DialFailureIsTemporary(t *testing.T) {
	s, err := NewSession(Config{Address: "127.0.0.1:1", Username: "me", Insecure: true}, nil)
	require.NoError(t, err)

	_, err = s.FetchRecent(context.Background(), 10)
	require.Error(t, err)
	assert.True(t, mail.IsTemporary(err))
}
