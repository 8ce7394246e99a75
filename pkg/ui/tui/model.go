package tui

import (
	"fmt"

	"bookdl/pkg/ui"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
)

const (
	defaultBarWidth = 40
	// room for the label, percentage and counts around the bar
	chromeWidth = 30
)

// startMsg (re)starts rendering at current out of total
type startMsg struct {
	Total   int
	Current int
}

// updateMsg moves the bar to current
type updateMsg struct {
	Current int
}

// stopMsg draws the final frame and quits the program
type stopMsg struct{}

// Model renders one job's progress as a single line
type Model struct {
	progress progress.Model
	label    string
	maxWidth int

	total   int
	current int
	stopped bool
}

// NewModel creates a model with a bar of at most width cells
func NewModel(label string, width int) Model {
	if width <= 0 {
		width = defaultBarWidth
	}
	p := progress.New(
		progress.WithGradient(string(neonCyan), string(neonGreen)),
		progress.WithoutPercentage(),
		progress.WithWidth(width),
	)

	return Model{
		progress: p,
		label:    label,
		maxWidth: width,
	}
}

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		width := msg.Width - chromeWidth
		if width > m.maxWidth {
			width = m.maxWidth
		}
		if width < 10 {
			width = 10
		}
		m.progress.Width = width
		return m, nil

	case startMsg:
		m.total = msg.Total
		m.current = msg.Current
		m.stopped = false
		return m, nil

	case updateMsg:
		m.current = msg.Current
		return m, nil

	case stopMsg:
		m.stopped = true
		return m, tea.Quit
	}

	return m, nil
}

// View implements tea.Model
func (m Model) View() string {
	label := labelStyle.Render(m.label)
	if m.stopped && m.current >= m.total {
		label = doneStyle.Render(m.label)
	}

	return fmt.Sprintf("%s %s %s %s",
		label,
		m.progress.ViewAs(ui.Ratio(m.current, m.total)),
		percentStyle.Render(fmt.Sprintf("%d%%", ui.Percent(m.current, m.total))),
		countStyle.Render(fmt.Sprintf("| %d/%d", m.current, m.total)),
	)
}
