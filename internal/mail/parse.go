package mail

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	gomail "github.com/emersion/go-message/mail"
)

// DefaultExcerptLength is the number of runes kept from a message body.
const DefaultExcerptLength = 500

// maxBodyRead bounds how much of a text part is read before truncation.
const maxBodyRead = 16 << 10

var htmlTag = regexp.MustCompile(`<[^>]*>`)

// ParseOptions controls ParseRaw.
type ParseOptions struct {
	// ID overrides the message identifier. When empty the Message-Id header
	// is used, falling back to a content hash.
	ID string
	// Received is used when the message carries no parseable Date header.
	Received time.Time
	// ExcerptLength caps the body excerpt in runes (default DefaultExcerptLength).
	ExcerptLength int
}

// ParseRaw parses an RFC 5322 message into a Message. Truncated bodies are
// tolerated: whatever text was read before the truncation becomes the excerpt.
func ParseRaw(raw []byte, opts ParseOptions) (Message, error) {
	mr, err := gomail.CreateReader(strings.NewReader(string(raw)))
	if err != nil && !message.IsUnknownCharset(err) {
		return Message{}, fmt.Errorf("failed to parse message header: %w", err)
	}

	msg := Message{
		ID:       opts.ID,
		Received: opts.Received,
		Headers:  make(map[string]string),
	}

	fields := mr.Header.Fields()
	for fields.Next() {
		value, err := fields.Text()
		if err != nil {
			value = fields.Value()
		}
		key := canonicalKey(fields.Key())
		if _, seen := msg.Headers[key]; !seen {
			msg.Headers[key] = value
		}
	}

	if subject, err := mr.Header.Subject(); err == nil {
		msg.Subject = subject
	} else {
		msg.Subject = mr.Header.Get("Subject")
	}

	if from, err := mr.Header.AddressList("From"); err == nil && len(from) > 0 {
		msg.From = from[0].String()
	} else {
		msg.From = mr.Header.Get("From")
	}

	if date, err := mr.Header.Date(); err == nil && !date.IsZero() {
		msg.Received = date
	}

	if msg.ID == "" {
		if id, err := mr.Header.MessageID(); err == nil && id != "" {
			msg.ID = id
		} else {
			sum := sha256.Sum256(raw)
			msg.ID = "sha256:" + hex.EncodeToString(sum[:12])
		}
	}

	limit := opts.ExcerptLength
	if limit <= 0 {
		limit = DefaultExcerptLength
	}
	msg.Excerpt = Truncate(readBodyText(mr), limit)

	return msg, nil
}

// readBodyText returns the first text/plain part, or the first text/html
// part with tags removed when no plain part exists.
func readBodyText(mr *gomail.Reader) string {
	var plain, html string
	for {
		part, err := mr.NextPart()
		if err != nil {
			// io.EOF ends the message; anything else is a truncated or
			// malformed part, which still leaves earlier parts usable.
			break
		}

		h, ok := part.Header.(*gomail.InlineHeader)
		if !ok {
			continue
		}
		contentType, _, _ := h.ContentType()
		if contentType == "" {
			contentType = "text/plain"
		}

		switch {
		case strings.HasPrefix(contentType, "text/plain") && plain == "":
			plain = readLimited(part.Body)
		case strings.HasPrefix(contentType, "text/html") && html == "":
			html = htmlTag.ReplaceAllString(readLimited(part.Body), " ")
		}
		if plain != "" {
			break
		}
	}
	if plain != "" {
		return plain
	}
	return html
}

func readLimited(r io.Reader) string {
	b, err := io.ReadAll(io.LimitReader(r, maxBodyRead))
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && len(b) == 0 {
		return ""
	}
	return strings.ReplaceAll(string(b), "\r\n", "\n")
}

// Truncate trims s and cuts it to at most n runes.
func Truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if n <= 0 {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return strings.TrimSpace(s[:i])
		}
		count++
	}
	return s
}
