// Package tui implements the interactive checkpoint browser.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"convctl/internal/session"
)

// view identifies the active screen.
type view int

const (
	viewList view = iota
	viewDetail
)

// checkpointsLoadedMsg is sent after (re)loading the store.
type checkpointsLoadedMsg struct {
	checkpoints []*session.Checkpoint
	err         error
}

// Model is the bubbletea model for the checkpoint browser.
type Model struct {
	store       *session.Store
	checkpoints []*session.Checkpoint
	cursor      int
	view        view
	help        help.Model
	width       int
	height      int
	statusMsg   string
	err         string
}

// NewModel creates the browser model over a checkpoint store.
func NewModel(store *session.Store) Model {
	return Model{
		store: store,
		help:  help.New(),
	}
}

// Run starts the checkpoint browser.
func Run(store *session.Store) error {
	p := tea.NewProgram(NewModel(store), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func (m Model) loadCmd() tea.Cmd {
	store := m.store
	return func() tea.Msg {
		cps, err := store.List()
		return checkpointsLoadedMsg{checkpoints: cps, err: err}
	}
}

func (m Model) Init() tea.Cmd {
	return m.loadCmd()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case checkpointsLoadedMsg:
		if msg.err != nil {
			m.err = msg.err.Error()
			return m, nil
		}
		m.err = ""
		m.checkpoints = msg.checkpoints
		if m.cursor >= len(m.checkpoints) {
			m.cursor = max(0, len(m.checkpoints)-1)
		}
		return m, nil

	case tea.KeyMsg:
		return m.updateKeys(msg)
	}
	return m, nil
}

func (m Model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, keys.Escape):
		if m.view == viewDetail {
			m.view = viewList
		}
		return m, nil

	case key.Matches(msg, keys.Down):
		if m.view == viewList && m.cursor < len(m.checkpoints)-1 {
			m.cursor++
		}
		return m, nil

	case key.Matches(msg, keys.Up):
		if m.view == viewList && m.cursor > 0 {
			m.cursor--
		}
		return m, nil

	case key.Matches(msg, keys.Enter):
		if m.view == viewList && m.cursor < len(m.checkpoints) {
			m.view = viewDetail
		}
		return m, nil

	case key.Matches(msg, keys.Delete):
		if m.view == viewList && m.cursor < len(m.checkpoints) {
			name := m.checkpoints[m.cursor].Name
			store := m.store
			m.statusMsg = fmt.Sprintf("deleted %s", name)
			return m, func() tea.Msg {
				store.Delete(name)
				cps, err := store.List()
				return checkpointsLoadedMsg{checkpoints: cps, err: err}
			}
		}
		return m, nil

	case key.Matches(msg, keys.Refresh):
		m.statusMsg = ""
		return m, m.loadCmd()
	}
	return m, nil
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("convctl checkpoints"))
	b.WriteString("\n\n")

	if m.err != "" {
		b.WriteString(statusFailedStyle.Render("error: "+m.err) + "\n")
	}

	switch m.view {
	case viewDetail:
		b.WriteString(m.renderDetail())
	default:
		b.WriteString(m.renderList())
	}

	if m.statusMsg != "" {
		b.WriteString("\n" + hintStyle.Render(m.statusMsg))
	}
	b.WriteString(helpStyle.Render("\n" + m.help.View(keys)))
	return appStyle.Render(b.String())
}

func (m Model) renderList() string {
	if len(m.checkpoints) == 0 {
		return hintStyle.Render("No checkpoints saved. Press 'r' to refresh.")
	}

	var b strings.Builder
	for i, cp := range m.checkpoints {
		prefix := "  "
		line := fmt.Sprintf("%-24s %-10s step %d", cp.Name, cp.State.Status, cp.State.StepIndex)
		if i == m.cursor {
			prefix = "▸ "
			line = detailLabelStyle.Render(line)
		}
		b.WriteString(prefix + line + "  " + statusStyle(cp.State.Status).Render(cp.CreatedAt) + "\n")
		if cp.PauseMessage != "" {
			b.WriteString(hintStyle.Render("    pause: "+cp.PauseMessage) + "\n")
		}
	}
	return b.String()
}

func (m Model) renderDetail() string {
	cp := m.checkpoints[m.cursor]

	var b strings.Builder
	b.WriteString(detailLabelStyle.Render(cp.Name) + "\n\n")
	b.WriteString(row("created", cp.CreatedAt))
	b.WriteString(row("status", cp.State.Status.String()))
	b.WriteString(row("next step", fmt.Sprintf("%d", cp.State.StepIndex)))
	if cp.State.CycleNumber > 1 {
		b.WriteString(row("cycle", fmt.Sprintf("%d", cp.State.CycleNumber)))
	}
	if cp.PauseMessage != "" {
		b.WriteString(row("pause", cp.PauseMessage))
	}
	if cp.Source != "" {
		b.WriteString(row("source", cp.Source))
	}
	if cp.Conversation != nil && cp.Conversation.Title != "" {
		b.WriteString(row("workflow", cp.Conversation.Title))
	}
	b.WriteString(row("messages", fmt.Sprintf("%d", len(cp.State.Messages))))

	if n := len(cp.State.Messages); n > 0 {
		last := cp.State.Messages[n-1]
		content := last.Content
		if len(content) > 400 {
			content = content[:400] + "…"
		}
		b.WriteString("\n" + detailLabelStyle.Render("last "+last.Role+" message") + "\n")
		b.WriteString(detailValueStyle.Render(content) + "\n")
	}

	b.WriteString("\n" + hintStyle.Render("resume with: convctl resume "+cp.Name))
	return detailBorderStyle.Render(b.String())
}

func row(label, value string) string {
	return detailLabelStyle.Render(label+": ") + detailValueStyle.Render(value) + "\n"
}

func statusStyle(s session.Status) interface{ Render(...string) string } {
	switch s {
	case session.StatusPaused:
		return statusPausedStyle
	case session.StatusFailed:
		return statusFailedStyle
	default:
		return statusCompletedStyle
	}
}
