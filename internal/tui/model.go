// Package tui is the interactive terminal chat client for the KLU Agent.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/0xcro3dile/kluagent/internal/domain/entities"
)

// ChatPort is the TUI-facing subset of the session store.
type ChatPort interface {
	AppendTurn(ctx context.Context, sessionID, text string) entities.ChatResult
}

type entry struct {
	role    entities.Role
	content string
	sources []entities.Citation
	elapsed float64
}

type answerMsg struct {
	result entities.ChatResult
}

// Model is the Bubble Tea model for the chat screen.
type Model struct {
	ctx       context.Context
	chat      ChatPort
	input     textinput.Model
	viewport  viewport.Model
	sessionID string
	entries   []entry
	status    string
	waiting   bool
	ready     bool
}

// New creates a chat model. An empty sessionID starts a new session on the first question.
func New(ctx context.Context, chat ChatPort, sessionID string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask about KL University and press Enter"
	ti.Focus()
	ti.CharLimit = 2000
	vp := viewport.New(0, 0)
	return Model{
		ctx:       ctx,
		chat:      chat,
		input:     ti,
		viewport:  vp,
		sessionID: sessionID,
		status:    "Ready. Ctrl+L starts a new chat, Esc quits.",
	}
}

// SessionID returns the current session.
func (m Model) SessionID() string { return m.sessionID }

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key, window and answer events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, fh := transcriptStyle.GetFrameSize()
		_, qh := inputStyle.GetFrameSize()
		reserved := 2 + qh + 1 + fh // header, status, input line, frames
		m.viewport.Width = max(20, msg.Width-2)
		m.viewport.Height = max(3, msg.Height-reserved-1)
		m.refresh()
		return m, nil

	case answerMsg:
		m.waiting = false
		m.sessionID = msg.result.SessionID
		m.entries = append(m.entries, entry{
			role:    entities.RoleAssistant,
			content: msg.result.Answer,
			sources: msg.result.Sources,
			elapsed: msg.result.ElapsedSeconds,
		})
		m.status = fmt.Sprintf("Answered in %.2fs", msg.result.ElapsedSeconds)
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyCtrlD, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyCtrlL:
			if !m.waiting {
				m.entries = nil
				m.sessionID = ""
				m.status = "New chat."
				m.refresh()
			}
			return m, nil
		case tea.KeyEnter:
			q := strings.TrimSpace(m.input.Value())
			if q == "" || m.waiting {
				return m, nil
			}
			m.input.SetValue("")
			m.entries = append(m.entries, entry{role: entities.RoleUser, content: q})
			m.waiting = true
			m.status = "Thinking..."
			m.refresh()
			return m, m.ask(q)
		case tea.KeyPgUp, tea.KeyPgDown:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) ask(q string) tea.Cmd {
	ctx, chat, id := m.ctx, m.chat, m.sessionID
	return func() tea.Msg {
		return answerMsg{result: chat.AppendTurn(ctx, id, q)}
	}
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}

// View renders the chat layout.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := headerStyle.Render("KLU Agent")
	if m.sessionID != "" {
		header += dimStyle.Render("  session " + m.sessionID)
	}
	transcript := transcriptStyle.Render(m.viewport.View())
	input := inputStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	return header + "\n" + transcript + "\n" + input + "\n" + status
}

func (m Model) renderTranscript() string {
	if len(m.entries) == 0 {
		return dimStyle.Render("Ask about admissions, courses, faculty, events, hostel rules or policies.")
	}
	width := max(10, m.viewport.Width-2)
	wrap := lipgloss.NewStyle().Width(width)

	var b strings.Builder
	for i, e := range m.entries {
		if i > 0 {
			b.WriteString("\n\n")
		}
		switch e.role {
		case entities.RoleUser:
			b.WriteString(userStyle.Render("You: "))
			b.WriteString(wrap.Render(e.content))
		default:
			b.WriteString(agentStyle.Render("KLU Agent:"))
			b.WriteString(dimStyle.Render(fmt.Sprintf(" %.2fs", e.elapsed)))
			b.WriteString("\n")
			b.WriteString(wrap.Render(e.content))
			for _, c := range e.sources {
				b.WriteString("\n")
				b.WriteString(dimStyle.Render(fmt.Sprintf("  [%s] %s", c.Type, c.Name)))
			}
		}
	}
	return b.String()
}

var (
	headerStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	transcriptStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	statusStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	userStyle       = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11"))
	agentStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	dimStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)
