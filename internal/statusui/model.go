// Package statusui is the terminal status indicator: current session state,
// last transcript, last error, and a key to toggle recording by hand.
package statusui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"murmur/internal/domain"
)

const (
	keyToggle = " "
	keyQuit   = "q"
	keyCtrlC  = "ctrl+c"
)

// Model is the bubbletea model for the status indicator.
type Model struct {
	toggle func() error

	state  domain.SessionState
	reason domain.SessionStateReason

	lastCommit *domain.Commit
	lastError  string
	commits    int

	width int
}

// NewModel returns an idle model. toggle is invoked on the toggle key and may
// be nil to disable it.
func NewModel(toggle func() error) Model {
	return Model{
		toggle: toggle,
		state:  domain.SessionStateIdle,
		reason: domain.SessionReasonReady,
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case tea.KeyMsg:
		return m.handleKey(msg)
	case StateMsg:
		m.state = msg.State
		m.reason = msg.Reason
		if msg.State == domain.SessionStateRecording {
			m.lastError = ""
		}
	case CommitMsg:
		commit := msg.Commit
		m.lastCommit = &commit
		m.commits++
	case ErrorMsg:
		m.lastError = ErrorMessage(msg.Code, msg.Detail)
		if msg.Detail != "" && m.lastError != msg.Detail {
			m.lastError += ": " + msg.Detail
		}
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case keyQuit, keyCtrlC:
		return m, tea.Quit
	case keyToggle:
		if m.toggle == nil {
			return m, nil
		}
		toggle := m.toggle
		return m, func() tea.Msg {
			if err := toggle(); err != nil {
				return ErrorMsg{Code: domain.ErrorCodeTrigger, Detail: err.Error()}
			}
			return nil
		}
	}
	return m, nil
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("murmur"))
	b.WriteString("  ")
	b.WriteString(m.stateLine())
	b.WriteString("\n")

	if m.lastCommit != nil {
		text := m.lastCommit.Final
		if text == "" {
			text = "(empty)"
		}
		if m.width > 12 {
			text = truncate(text, m.width-10)
		}
		fmt.Fprintf(&b, "last: %s\n", transcriptStyle.Render(text))
	}
	if m.lastError != "" {
		b.WriteString(errorStyle.Render("error: " + m.lastError))
		b.WriteString("\n")
	}

	footer := fmt.Sprintf("[space] toggle  [q] quit  commits: %d", m.commits)
	b.WriteString(footerStyle.Render(footer))
	b.WriteString("\n")
	return b.String()
}

func (m Model) stateLine() string {
	glyph, style := indicator(m.state)
	line := glyph + " " + string(m.state)
	if text := ReasonMessage(m.reason); text != "" {
		line += " · " + text
	}
	return style.Render(line)
}

func indicator(state domain.SessionState) (string, lipgloss.Style) {
	switch state {
	case domain.SessionStateRecording:
		return "🔴", recordingStyle
	case domain.SessionStateAwaitingResult:
		return "⏳", awaitingStyle
	case domain.SessionStateCommitted:
		return "✅", committedStyle
	default:
		return "🎤", idleStyle
	}
}

func truncate(s string, width int) string {
	if lipgloss.Width(s) <= width {
		return s
	}
	runes := []rune(s)
	for len(runes) > 0 && lipgloss.Width(string(runes)) > width-1 {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "…"
}
