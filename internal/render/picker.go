package render

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/teemow/inboxtriage/internal/triage"
)

type clusterItem struct {
	id          int
	title       string
	description string
}

func (i clusterItem) Title() string       { return i.title }
func (i clusterItem) Description() string { return i.description }
func (i clusterItem) FilterValue() string { return i.title }

type pickerModel struct {
	list   list.Model
	choice int
}

func newPicker(r *triage.Result) pickerModel {
	items := make([]list.Item, len(r.Clusters))
	for i := range r.Clusters {
		c := &r.Clusters[i]
		items[i] = clusterItem{
			id:          c.ID,
			title:       fmt.Sprintf("%d. %s (%d)", c.ID, c.Label, c.Size()),
			description: c.Description,
		}
	}

	l := list.New(items, list.NewDefaultDelegate(), 80, 24)
	l.Title = "Archive which cluster? (enter to select, q to cancel)"
	l.SetFilteringEnabled(false)
	l.KeyMap.Quit.SetKeys()
	return pickerModel{list: l}
}

func (m pickerModel) Init() tea.Cmd {
	return nil
}

func (m pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.list.SetSize(msg.Width, msg.Height-1)
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "enter":
			if item, ok := m.list.SelectedItem().(clusterItem); ok {
				m.choice = item.id
			}
			return m, tea.Quit
		case "q", "esc", "ctrl+c":
			m.choice = 0
			return m, tea.Quit
		}
	}
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m pickerModel) View() string {
	return m.list.View()
}

// Pick lets the user choose a cluster. It returns the chosen cluster id, or
// 0 when the user cancelled.
func Pick(ctx context.Context, r *triage.Result, in io.Reader, out io.Writer) (int, error) {
	if len(r.Clusters) == 0 {
		return 0, nil
	}
	p := tea.NewProgram(newPicker(r), tea.WithContext(ctx), tea.WithInput(in), tea.WithOutput(out))
	final, err := p.Run()
	if err != nil {
		return 0, fmt.Errorf("cluster picker: %w", err)
	}
	return final.(pickerModel).choice, nil
}
