package features

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeSubject(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Re: Re: Fwd: Quarterly   report", "Quarterly report"},
		{"RE[2]: budget", "budget"},
		{"AW: Termin", "Termin"},
		{"Regarding the plan", "Regarding the plan"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeSubject(tt.in))
		})
	}
}

func TestStripQuoted(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "gmail reply header",
			body: "Sounds good, ship it.\n\nOn Mon, Jan 2, 2006 at 3:04 PM Jane <jane@example.com> wrote:\n> Can we ship?\n> Thanks",
			want: "Sounds good, ship it.",
		},
		{
			name: "quoted lines inline",
			body: "> old text\nnew text\n> more old",
			want: "new text",
		},
		{
			name: "signature delimiter",
			body: "Meeting moved to 3pm.\n-- \nJohn Smith\nACME Corp",
			want: "Meeting moved to 3pm.",
		},
		{
			name: "outlook original message",
			body: "Approved.\n-----Original Message-----\nFrom: Bob\nSubject: PO",
			want: "Approved.",
		},
		{
			name: "outlook header block",
			body: "See below.\n\nFrom: Bob <bob@example.com>\nSent: Monday",
			want: "See below.",
		},
		{
			name: "mobile signature",
			body: "ok\nSent from my iPhone",
			want: "ok",
		},
		{
			name: "empty",
			body: "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripQuoted(tt.body))
		})
	}
}

func TestTokenize(t *testing.T) {
	stop := buildStopSet([]string{"Acme"})
	got := tokenize("Your ACME invoice #2024 is READY, über-fast!", stop)
	assert.Equal(t, []string{"invoice", "ready", "über", "fast"}, got)
}

func TestIsStopWord(t *testing.T) {
	assert.True(t, IsStopWord("The"))
	assert.False(t, IsStopWord("invoice"))
}
