package mail

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractAddress(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`"Jane Doe" <Jane@Example.com>`, "jane@example.com"},
		{"noreply@github.com", "noreply@github.com"},
		{"  <bare@host.io>  ", "bare@host.io"},
		{"Broken <missing", "broken <missing"},
		{"jane@example.com (Jane)", "jane@example.com"},
		{"Jane@Example.com (Jane", "jane@example.com"},
		{"=?UTF-8?Q?J=C3=BCrgen?= <juergen@example.de>", "juergen@example.de"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractAddress(tt.in))
		})
	}
}

func TestMessage_SenderDomain(t *testing.T) {
	tests := []struct {
		from string
		want string
	}{
		{"GitHub <notifications@github.com>", "github.com"},
		{"news@mail.shop.example", "mail.shop.example"},
		{"jane@example.com (Jane)", "example.com"},
		{"nobody", ""},
		{"trailing@", ""},
	}

	for _, tt := range tests {
		t.Run(tt.from, func(t *testing.T) {
			assert.Equal(t, tt.want, Message{From: tt.from}.SenderDomain())
		})
	}
}

func TestMessage_Header(t *testing.T) {
	m := Message{Headers: NewHeaders("list-unsubscribe", "<mailto:x@y>", "LIST-UNSUBSCRIBE", "<ignored>")}
	assert.Equal(t, "<mailto:x@y>", m.Header("List-Unsubscribe"))
	assert.Equal(t, "<mailto:x@y>", m.Header("list-unsubscribe"))
	assert.Equal(t, "", m.Header("Precedence"))
	assert.Equal(t, "", Message{}.Header("Anything"))
}

func TestTransportError(t *testing.T) {
	base := errors.New("connection refused")

	permanent := NewTransportError("fetch", base)
	assert.True(t, IsTransport(permanent))
	assert.False(t, IsTemporary(permanent))
	assert.ErrorIs(t, permanent, base)
	assert.Contains(t, permanent.Error(), "fetch")

	wrapped := fmt.Errorf("archive m-3: %w", NewTemporaryError("archive", base))
	assert.True(t, IsTransport(wrapped))
	assert.True(t, IsTemporary(wrapped))

	assert.False(t, IsTransport(base))
	assert.False(t, IsTemporary(nil))
}
