// Package tui is the terminal team chat.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/goodaideas/goodaideas/internal/domain"
	domainerrors "github.com/goodaideas/goodaideas/internal/errors"
	"github.com/goodaideas/goodaideas/internal/realtime"
)

// Sender posts messages to the open team.
type Sender interface {
	TeamID() string
	Send(ctx context.Context, content string) (*domain.TeamMessage, error)
}

// MessagesMsg carries the team's current message list.
type MessagesMsg struct {
	Messages []domain.TeamMessage
}

// SentMsg reports the outcome of a send.
type SentMsg struct {
	Err error
}

// keyMap defines the keyboard shortcuts
type keyMap struct {
	Send key.Binding
	Quit key.Binding
}

var keys = keyMap{
	Send: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "send"),
	),
	Quit: key.NewBinding(
		key.WithKeys("ctrl+c", "esc"),
		key.WithHelp("esc", "quit"),
	),
}

const sendTimeout = 10 * time.Second

// ChatModel is the bubbletea model for one team's chat.
type ChatModel struct {
	chat     Sender
	userID   string
	messages []domain.TeamMessage

	input    textinput.Model
	viewport viewport.Model

	sending  bool
	lastErr  string
	ready    bool
	quitting bool
	width    int

	styles Styles
}

// NewChatModel creates a chat model. userID marks the viewer's own
// messages.
func NewChatModel(chat Sender, userID string, styles Styles) ChatModel {
	in := textinput.New()
	in.Placeholder = "Write a message..."
	in.CharLimit = realtime.MaxMessageLength
	in.Focus()

	return ChatModel{
		chat:     chat,
		userID:   userID,
		input:    in,
		viewport: viewport.New(80, 20),
		styles:   styles,
	}
}

// Init initializes the TUI model (required by Bubble Tea)
func (m ChatModel) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages and updates the model state (required by Bubble Tea)
func (m ChatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, keys.Send):
			return m.submit()
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.viewport.Width = msg.Width
		// Title, input and help lines.
		m.viewport.Height = max(msg.Height-5, 1)
		m.input.Width = max(msg.Width-4, 10)
		m.ready = true
		m.refresh()
		return m, nil

	case MessagesMsg:
		m.messages = msg.Messages
		m.refresh()
		return m, nil

	case SentMsg:
		m.sending = false
		m.lastErr = ""
		if msg.Err != nil {
			m.lastErr = domainerrors.UserMessage(msg.Err)
		}
		return m, nil
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m ChatModel) submit() (tea.Model, tea.Cmd) {
	content := strings.TrimSpace(m.input.Value())
	if content == "" || m.sending {
		return m, nil
	}
	m.sending = true
	m.input.Reset()

	chat := m.chat
	return m, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()
		_, err := chat.Send(ctx, content)
		return SentMsg{Err: err}
	}
}

func (m *ChatModel) refresh() {
	m.viewport.SetContent(m.renderMessages())
	m.viewport.GotoBottom()
}

// View renders the TUI (required by Bubble Tea)
func (m ChatModel) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Initializing..."
	}

	var b strings.Builder
	b.WriteString(m.styles.Title.Render("Team " + m.chat.TeamID()))
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	switch {
	case m.lastErr != "":
		b.WriteString(m.styles.Error.Render(m.lastErr))
	case m.sending:
		b.WriteString(m.styles.Status.Render("Sending..."))
	default:
		b.WriteString(m.renderHelpLine())
	}
	return b.String()
}

func (m ChatModel) renderMessages() string {
	if len(m.messages) == 0 {
		return m.styles.Muted.Render("No messages yet. Say hello!")
	}

	lines := make([]string, 0, len(m.messages))
	for _, msg := range m.messages {
		name := "unknown"
		if msg.Author != nil && msg.Author.Username != "" {
			name = msg.Author.Username
		}
		nameStyle := m.styles.Author
		if msg.UserID == m.userID {
			nameStyle = m.styles.Self
		}
		lines = append(lines, fmt.Sprintf("%s %s %s",
			m.styles.Muted.Render(msg.CreatedAt.Local().Format("15:04")),
			nameStyle.Render(name+":"),
			m.styles.Body.Render(msg.Content)))
	}
	return strings.Join(lines, "\n")
}

func (m ChatModel) renderHelpLine() string {
	help := []string{
		m.styles.Key.Render(keys.Send.Help().Key) + " " + m.styles.KeyDesc.Render(keys.Send.Help().Desc),
		m.styles.Key.Render(keys.Quit.Help().Key) + " " + m.styles.KeyDesc.Render(keys.Quit.Help().Desc),
	}
	return strings.Join(help, "  ")
}
