// Package console is the operator's terminal view of the kiosk: the page
// tabs, what the selected page shows, and a command line that accepts the
// same commands as the event pipe.
package console

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"badger/page"
)

var (
	primaryColor = lipgloss.Color("#7C3AED")
	errorColor   = lipgloss.Color("#EF4444")
	mutedColor   = lipgloss.Color("#6B7280")
	fgColor      = lipgloss.Color("#F9FAFB")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			Padding(0, 1)

	tabStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Padding(0, 2)

	selectedTabStyle = lipgloss.NewStyle().
				Background(primaryColor).
				Foreground(fgColor).
				Bold(true).
				Padding(0, 2)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(mutedColor).
			Padding(0, 1)

	errorStyle = lipgloss.NewStyle().Foreground(errorColor)

	helpStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Italic(true)
)

// Snapshot is a copy of what the kiosk shows. It is taken on the controller
// loop so the UI never touches the pages directly.
type Snapshot struct {
	Tabs     []string
	Selected int
	Lines    []string // fields of the selected page
	Last     string   // summary of the last outcome
}

// Take copies the book's current state.
func Take(b *page.Book, last string) Snapshot {
	s := Snapshot{Last: last}
	sel := b.Selected()
	for i, p := range b.Pages() {
		s.Tabs = append(s.Tabs, p.Name())
		if p == sel {
			s.Selected = i
		}
	}
	s.Lines = describe(sel)
	return s
}

func describe(p page.Page) []string {
	switch p := p.(type) {
	case *page.LabelPage:
		c := p.Content()
		if c.Text != "" || (c.Name == "" && c.Comment == "") {
			return []string{"Text:    " + c.Text}
		}
		return []string{"Name:    " + c.Name, "Comment: " + c.Comment}
	case *page.EditPage:
		t, name, comment := p.Fields()
		tg := "-"
		if !t.IsZero() {
			tg = t.String()
		}
		return []string{"Tag:     " + tg, "Name:    " + name, "Comment: " + comment}
	default:
		return nil
	}
}

// SnapshotMsg delivers a new Snapshot to the running program.
type SnapshotMsg Snapshot

type resultMsg struct {
	line string
	err  error
}

// Model is the bubbletea model for the console.
type Model struct {
	snap    Snapshot
	input   textinput.Model
	submit  func(line string) error
	message string
	failed  bool
	width   int
}

// New creates the console model. submit receives every entered line. It is
// called from a command, never from Update, so it may block.
func New(submit func(line string) error) *Model {
	ti := textinput.New()
	ti.Placeholder = "tag <hex> [button] | save <hex> <name>|<comment> | general <text> | print | reset"
	ti.Focus()
	ti.CharLimit = 256
	ti.Width = 80

	return &Model{input: ti, submit: submit}
}

// Init implements tea.Model
func (m *Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit

		case "enter":
			line := strings.TrimSpace(m.input.Value())
			m.input.Reset()
			if line == "" {
				return m, nil
			}
			return m, m.run(line)

		case "left", "right":
			// Arrows move between tabs unless the operator is typing.
			if m.input.Value() == "" {
				if msg.String() == "left" {
					return m, m.run("prev")
				}
				return m, m.run("next")
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.input.Width = max(20, msg.Width-6)
		return m, nil

	case SnapshotMsg:
		m.snap = Snapshot(msg)
		return m, nil

	case resultMsg:
		if msg.err != nil {
			m.message = msg.err.Error()
			m.failed = true
		} else {
			m.message = "> " + msg.line
			m.failed = false
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) run(line string) tea.Cmd {
	return func() tea.Msg {
		return resultMsg{line: line, err: m.submit(line)}
	}
}

// View implements tea.Model
func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("badger"))
	b.WriteString("\n")

	tabs := make([]string, len(m.snap.Tabs))
	for i, name := range m.snap.Tabs {
		if i == m.snap.Selected {
			tabs[i] = selectedTabStyle.Render(name)
		} else {
			tabs[i] = tabStyle.Render(name)
		}
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, tabs...))
	b.WriteString("\n")

	body := strings.Join(m.snap.Lines, "\n")
	if body == "" {
		body = "waiting for the kiosk..."
	}
	b.WriteString(panelStyle.Render(body))
	b.WriteString("\n")

	if m.snap.Last != "" {
		b.WriteString(fmt.Sprintf("last: %s\n", m.snap.Last))
	}
	if m.message != "" {
		if m.failed {
			b.WriteString(errorStyle.Render(m.message))
		} else {
			b.WriteString(m.message)
		}
		b.WriteString("\n")
	}

	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("←/→ change page · enter run command · esc quit"))
	return b.String()
}
