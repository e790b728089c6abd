package mbox

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	gombox "github.com/emersion/go-mbox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/inboxtriage/internal/mail"
)

type fixture struct {
	from, subject, date, messageID, body string
}

func writeMbox(t *testing.T, msgs []fixture) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "inbox.mbox")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	w := gombox.NewWriter(f)
	for _, m := range msgs {
		mw, err := w.CreateMessage(mail.ExtractAddress(m.from), time.Now())
		require.NoError(t, err)

		var b strings.Builder
		b.WriteString("From: " + m.from + "\r\n")
		b.WriteString("Subject: " + m.subject + "\r\n")
		if m.date != "" {
			b.WriteString("Date: " + m.date + "\r\n")
		}
		if m.messageID != "" {
			b.WriteString("Message-Id: <" + m.messageID + ">\r\n")
		}
		b.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
		b.WriteString(m.body + "\r\n")
		_, err = mw.Write([]byte(b.String()))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return path
}

var sample = []fixture{
	{"Ann <ann@example.com>", "Oldest", "Mon, 03 Mar 2025 09:00:00 +0000", "old@example.com", "first"},
	{"Bob <bob@example.org>", "Newest", "Wed, 05 Mar 2025 09:00:00 +0000", "new@example.org", "second"},
	{"Cy <cy@example.net>", "Middle", "Tue, 04 Mar 2025 09:00:00 +0000", "", "no message id"},
}

func TestFetchRecent_OrderedNewestFirst(t *testing.T) {
	s, err := NewSession(Config{Path: writeMbox(t, sample)}, nil)
	require.NoError(t, err)

	msgs, err := s.FetchRecent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, msgs, 3)

	assert.Equal(t, "new@example.org", msgs[0].ID)
	assert.Equal(t, "Middle", msgs[1].Subject)
	assert.True(t, strings.HasPrefix(msgs[1].ID, "sha256:"), "missing Message-Id falls back to a content hash")
	assert.Equal(t, "old@example.com", msgs[2].ID)
	assert.Equal(t, "first", msgs[2].Excerpt)

	limited, err := s.FetchRecent(context.Background(), 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestFetchRecent_NonPositiveLimit(t *testing.T) {
	s, err := NewSession(Config{Path: writeMbox(t, sample)}, nil)
	require.NoError(t, err)

	for _, limit := range []int{0, -1} {
		msgs, err := s.FetchRecent(context.Background(), limit)
		require.NoError(t, err)
		assert.Empty(t, msgs, "limit %d", limit)
	}
}

func TestFetchRecent_LaterPositionWinsTies(t *testing.T) {
	same := "Thu, 06 Mar 2025 12:00:00 +0000"
	s, err := NewSession(Config{Path: writeMbox(t, []fixture{
		{"a@example.com", "one", same, "one@x", "a"},
		{"b@example.com", "two", same, "two@x", "b"},
	})}, nil)
	require.NoError(t, err)

	msgs, err := s.FetchRecent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "two@x", msgs[0].ID)
}

func TestArchiveOne_JournalsAndHides(t *testing.T) {
	ctx := context.Background()
	path := writeMbox(t, sample)
	s, err := NewSession(Config{Path: path}, nil)
	require.NoError(t, err)
	assert.Equal(t, path+JournalSuffix, s.StatePath())

	require.NoError(t, s.ArchiveOne(ctx, "old@example.com"))
	require.NoError(t, s.ArchiveOne(ctx, "old@example.com"), "archiving twice succeeds")

	journal, err := os.ReadFile(s.StatePath())
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(journal), "\n"), "one journal line per archived message")

	msgs, err := s.FetchRecent(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, msgs, 2)

	// A fresh session reads the journal back.
	reopened, err := NewSession(Config{Path: path}, nil)
	require.NoError(t, err)
	msgs, err = reopened.FetchRecent(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, msgs, 2)
	require.NoError(t, reopened.ArchiveOne(ctx, "old@example.com"))
}

func TestArchiveOne_UnknownID(t *testing.T) {
	s, err := NewSession(Config{Path: writeMbox(t, sample)}, nil)
	require.NoError(t, err)

	err = s.ArchiveOne(context.Background(), "missing@example.com")
	assert.ErrorIs(t, err, mail.ErrNotFound)
}

func TestSession_MissingFile(t *testing.T) {
	s, err := NewSession(Config{Path: filepath.Join(t.TempDir(), "absent.mbox")}, nil)
	require.NoError(t, err)

	_, err = s.FetchRecent(context.Background(), 10)
	require.Error(t, err)
	assert.True(t, mail.IsTransport(err))
	assert.False(t, mail.IsTemporary(err))
}

func TestNewSession_RequiresPath(t *testing.T) {
	_, err := NewSession(Config{}, nil)
	assert.Error(t, err)
}
