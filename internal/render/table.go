package render

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/teemow/inboxtriage/internal/archive"
	"github.com/teemow/inboxtriage/internal/triage"
)

const (
	maxLabelWidth   = 36
	maxSendersWidth = 48
	maxSubjectWidth = 72
	topSenders      = 3
)

// IsTerminal reports whether f is a character device.
func IsTerminal(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

// styles colour the output. They are bound to a renderer for the target
// writer, so pipes and buffers get plain text.
type styles struct {
	header  lipgloss.Style
	body    lipgloss.Style
	failure lipgloss.Style
	warning lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		header:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		body:    r.NewStyle(),
		failure: r.NewStyle().Foreground(lipgloss.Color("196")),
		warning: r.NewStyle().Foreground(lipgloss.Color("214")),
	}
}

func stylesFor(w io.Writer) styles {
	return newStyles(lipgloss.NewRenderer(w))
}

// table writes rows with columns padded to their widest cell. Widths are
// measured in terminal cells so wide runes line up. The first row is the
// header; the rest are rendered with body.
func table(w io.Writer, header, body lipgloss.Style, rows [][]string) error {
	if len(rows) == 0 {
		return nil
	}
	widths := make([]int, len(rows[0]))
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], runewidth.StringWidth(cell))
		}
	}

	var sb strings.Builder
	for r, row := range rows {
		var line strings.Builder
		for i, cell := range row {
			line.WriteString(cell)
			if i == len(row)-1 {
				break
			}
			line.WriteString(strings.Repeat(" ", widths[i]-runewidth.StringWidth(cell)+2))
		}
		style := body
		if r == 0 {
			style = header
		}
		sb.WriteString(style.Render(line.String()))
		sb.WriteString("\n")
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

func truncate(s string, width int) string {
	return runewidth.Truncate(s, width, "…")
}

// Clusters prints one row per cluster followed by any warnings.
func Clusters(w io.Writer, r *triage.Result) error {
	rows := [][]string{{"ID", "LABEL", "SIZE", "TOP SENDERS"}}
	for i := range r.Clusters {
		c := &r.Clusters[i]
		rows = append(rows, []string{
			fmt.Sprintf("%d", c.ID),
			truncate(c.Label, maxLabelWidth),
			fmt.Sprintf("%d", c.Size()),
			truncate(strings.Join(c.TopSenders(topSenders), ", "), maxSendersWidth),
		})
	}
	if _, err := fmt.Fprintf(w, "%d messages in %d clusters (run %s)\n\n", r.Fetched, len(r.Clusters), r.RunID); err != nil {
		return err
	}
	st := stylesFor(w)
	if err := table(w, st.header, st.body, rows); err != nil {
		return err
	}
	for _, warning := range r.Warnings {
		if _, err := fmt.Fprintf(w, "\n%s\n", st.warning.Render("warning: "+warning)); err != nil {
			return err
		}
	}
	return nil
}

// Samples prints the description and up to n subjects of a cluster.
func Samples(w io.Writer, c *triage.Cluster, n int) error {
	if _, err := fmt.Fprintf(w, "\n[%d] %s: %s\n", c.ID, c.Label, c.Description); err != nil {
		return err
	}
	for i, m := range c.Messages {
		if i == n {
			if _, err := fmt.Fprintf(w, "    ... and %d more\n", c.Size()-n); err != nil {
				return err
			}
			break
		}
		subject := m.Subject
		if subject == "" {
			subject = "(no subject)"
		}
		if _, err := fmt.Fprintf(w, "    - %s (%s)\n", truncate(subject, maxSubjectWidth), m.SenderDomain()); err != nil {
			return err
		}
	}
	return nil
}

// Report prints the outcome of an archive request and lists every message
// that still needs action.
func Report(w io.Writer, rep *archive.Report) error {
	if _, err := fmt.Fprintln(w, rep.Summary()); err != nil {
		return err
	}
	if rep.Failed > 0 {
		rows := [][]string{{"MESSAGE", "ATTEMPTS", "ERROR"}}
		for _, res := range rep.Results {
			if !res.OK() {
				rows = append(rows, []string{res.ID, fmt.Sprintf("%d", res.Attempts), res.Error})
			}
		}
		if _, err := fmt.Fprintln(w, "\nFailed:"); err != nil {
			return err
		}
		st := stylesFor(w)
		if err := table(w, st.header, st.failure, rows); err != nil {
			return err
		}
	}
	if len(rep.NotAttempted) > 0 {
		if _, err := fmt.Fprintf(w, "\nNot attempted (interrupted): %s\n", strings.Join(rep.NotAttempted, ", ")); err != nil {
			return err
		}
	}
	return nil
}

// Confirm asks a yes/no question on out and reads the answer from in. Only
// "y" and "yes" count as yes.
func Confirm(in io.Reader, out io.Writer, question string) (bool, error) {
	if _, err := fmt.Fprintf(out, "%s [y/N] ", question); err != nil {
		return false, err
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}
