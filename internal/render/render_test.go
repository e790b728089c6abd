package render

import (
	"bytes"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/inboxtriage/internal/archive"
	"github.com/teemow/inboxtriage/internal/mail"
	"github.com/teemow/inboxtriage/internal/triage"
)

func msg(id, from, subject string) mail.Message {
	return mail.Message{ID: id, From: from, Subject: subject}
}

func sampleResult() *triage.Result {
	return &triage.Result{
		RunID:   "run-1",
		Fetched: 4,
		Clusters: []triage.Cluster{
			{
				ID: 1, Label: "GitHub Notifications", Description: "2 messages, mostly from github.com",
				Messages: []mail.Message{
					msg("a", "notifications@github.com", "[repo] PR #1"),
					msg("b", "notifications@github.com", "[repo] PR #2"),
				},
			},
			{
				ID: 2, Label: "日本語のニュースレター", Description: "1 message from example.jp",
				Messages: []mail.Message{msg("c", "news@example.jp", "")},
			},
			{
				ID: 3, Label: "Mixed (1 messages)", Description: "1 message from x.org",
				Messages: []mail.Message{msg("d", "a@x.org", "hello")},
			},
		},
		Converged: true,
	}
}

func TestClusters(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Clusters(&buf, sampleResult()))
	out := buf.String()

	assert.Contains(t, out, "4 messages in 3 clusters (run run-1)")
	assert.Contains(t, out, "GitHub Notifications")
	assert.Contains(t, out, "github.com")
	assert.NotContains(t, out, "warning:")

	lines := strings.Split(strings.TrimSpace(out), "\n")
	header := lines[2]
	wide := lines[4]
	require.True(t, strings.HasPrefix(header, "ID"))
	// The SIZE column starts at the same cell for double-width labels.
	i := strings.Index(wide, "  1 ")
	require.Positive(t, i)
	assert.Equal(t, strings.Index(header, "SIZE"), runewidth.StringWidth(wide[:i+2]))
}

func TestTable_Styles(t *testing.T) {
	rows := [][]string{{"MESSAGE", "ERROR"}, {"m2", "timeout"}}

	var plain bytes.Buffer
	st := stylesFor(&plain)
	require.NoError(t, table(&plain, st.header, st.failure, rows))
	assert.Equal(t, "MESSAGE  ERROR\nm2       timeout\n", plain.String(), "buffers get no escape codes")

	var colored bytes.Buffer
	r := lipgloss.NewRenderer(&colored)
	r.SetColorProfile(termenv.ANSI256)
	st = newStyles(r)
	require.NoError(t, table(&colored, st.header, st.failure, rows))
	lines := strings.Split(strings.TrimSuffix(colored.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, st.header.Render("MESSAGE  ERROR"), lines[0])
	assert.Equal(t, st.failure.Render("m2       timeout"), lines[1])
	assert.Contains(t, lines[1], "\x1b[")
}

func TestClusters_Warnings(t *testing.T) {
	r := sampleResult()
	r.Warnings = []string{"clustering did not converge"}
	var buf bytes.Buffer
	require.NoError(t, Clusters(&buf, r))
	assert.Contains(t, buf.String(), "warning: clustering did not converge")
}

func TestSamples(t *testing.T) {
	r := sampleResult()
	var buf bytes.Buffer
	require.NoError(t, Samples(&buf, &r.Clusters[0], 1))
	out := buf.String()
	assert.Contains(t, out, "[1] GitHub Notifications: 2 messages, mostly from github.com")
	assert.Contains(t, out, "- [repo] PR #1 (github.com)")
	assert.Contains(t, out, "... and 1 more")

	buf.Reset()
	require.NoError(t, Samples(&buf, &r.Clusters[1], 5))
	assert.Contains(t, buf.String(), "(no subject)")
}

func TestReport(t *testing.T) {
	rep := &archive.Report{
		Total: 4, Succeeded: 1, Failed: 1,
		Results: []archive.Result{
			{ID: "m1", Status: archive.StatusSuccess, Attempts: 1},
			{ID: "m2", Status: archive.StatusError, Attempts: 3, Error: "fetch: timeout"},
		},
		NotAttempted: []string{"m3", "m4"},
	}
	var buf bytes.Buffer
	require.NoError(t, Report(&buf, rep))
	out := buf.String()
	assert.Contains(t, out, "archived 1 of 4 messages, 1 failed, 2 not attempted")
	assert.Contains(t, out, "Failed:")
	assert.Contains(t, out, "m2")
	assert.Contains(t, out, "fetch: timeout")
	assert.NotContains(t, out, "m1 ")
	assert.Contains(t, out, "Not attempted (interrupted): m3, m4")
}

func TestReport_Complete(t *testing.T) {
	rep := &archive.Report{Total: 1, Succeeded: 1, Results: []archive.Result{{ID: "m1", Status: archive.StatusSuccess}}}
	var buf bytes.Buffer
	require.NoError(t, Report(&buf, rep))
	assert.Equal(t, "archived 1 of 1 messages\n", buf.String())
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
		{"yes", true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			var out bytes.Buffer
			ok, err := Confirm(strings.NewReader(tt.input), &out, "Archive?")
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
			assert.Equal(t, "Archive? [y/N] ", out.String())
		})
	}
}

func TestPicker(t *testing.T) {
	tests := []struct {
		name string
		keys []tea.KeyMsg
		want int
	}{
		{
			name: "enter selects first",
			keys: []tea.KeyMsg{{Type: tea.KeyEnter}},
			want: 1,
		},
		{
			name: "down then enter",
			keys: []tea.KeyMsg{{Type: tea.KeyDown}, {Type: tea.KeyDown}, {Type: tea.KeyEnter}},
			want: 3,
		},
		{
			name: "q cancels",
			keys: []tea.KeyMsg{{Type: tea.KeyDown}, {Type: tea.KeyRunes, Runes: []rune("q")}},
			want: 0,
		},
		{
			name: "esc cancels",
			keys: []tea.KeyMsg{{Type: tea.KeyEsc}},
			want: 0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var m tea.Model = newPicker(sampleResult())
			var cmd tea.Cmd
			for _, k := range tt.keys {
				m, cmd = m.Update(k)
			}
			require.NotNil(t, cmd)
			assert.Equal(t, tt.want, m.(pickerModel).choice)
		})
	}
}

func TestPicker_View(t *testing.T) {
	m := newPicker(sampleResult())
	view := m.View()
	assert.Contains(t, view, "1. GitHub Notifications (2)")
}
