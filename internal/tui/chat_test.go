package tui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goodaideas/goodaideas/internal/domain"
	domainerrors "github.com/goodaideas/goodaideas/internal/errors"
)

type fakeSender struct {
	sent []string
	err  error
}

func (f *fakeSender) TeamID() string { return "t1" }

func (f *fakeSender) Send(_ context.Context, content string) (*domain.TeamMessage, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.sent = append(f.sent, content)
	return &domain.TeamMessage{ID: "m", TeamID: "t1", Content: content}, nil
}

func newTestModel(s Sender) ChatModel {
	m := NewChatModel(s, "u1", stylesFor(darkPalette))
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	return updated.(ChatModel)
}

func typeText(m ChatModel, text string) ChatModel {
	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
	return updated.(ChatModel)
}

func TestChatModel_RendersMessages(t *testing.T) {
	m := newTestModel(&fakeSender{})
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.Local)

	updated, _ := m.Update(MessagesMsg{Messages: []domain.TeamMessage{
		{ID: "1", UserID: "u2", Content: "morning", CreatedAt: at, Author: &domain.Author{Username: "bob"}},
		{ID: "2", UserID: "u1", Content: "hi bob", CreatedAt: at, Author: &domain.Author{Username: "alice"}},
		{ID: "3", UserID: "u3", Content: "who am I", CreatedAt: at},
	}})
	view := updated.(ChatModel).View()

	assert.Contains(t, view, "Team t1")
	assert.Contains(t, view, "bob:")
	assert.Contains(t, view, "hi bob")
	assert.Contains(t, view, "unknown:")
	assert.Contains(t, view, "09:00")
}

func TestChatModel_EmptyState(t *testing.T) {
	m := newTestModel(&fakeSender{})

	assert.Contains(t, m.View(), "No messages yet")
}

func TestChatModel_NotReadyBeforeSize(t *testing.T) {
	m := NewChatModel(&fakeSender{}, "u1", stylesFor(darkPalette))

	assert.Equal(t, "Initializing...", m.View())
}

func TestChatModel_SendsTrimmedInput(t *testing.T) {
	sender := &fakeSender{}
	m := typeText(newTestModel(sender), "  hello team  ")

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(ChatModel)
	require.NotNil(t, cmd)
	assert.True(t, m.sending)
	assert.Empty(t, m.input.Value())
	assert.Contains(t, m.View(), "Sending...")

	result := cmd()
	assert.Equal(t, SentMsg{}, result)
	assert.Equal(t, []string{"hello team"}, sender.sent)

	updated, _ = m.Update(result)
	assert.False(t, updated.(ChatModel).sending)
}

func TestChatModel_IgnoresBlankInput(t *testing.T) {
	m := typeText(newTestModel(&fakeSender{}), "   ")

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	assert.Nil(t, cmd)
}

func TestChatModel_ShowsSendError(t *testing.T) {
	m := newTestModel(&fakeSender{})

	updated, _ := m.Update(SentMsg{Err: domainerrors.Validation("Message cannot be empty")})
	assert.Contains(t, updated.(ChatModel).View(), "Message cannot be empty")

	updated, _ = m.Update(SentMsg{Err: errors.New("socket closed")})
	view := updated.(ChatModel).View()
	assert.NotContains(t, view, "socket closed")
	assert.True(t, strings.Contains(view, "unexpected"), view)
}

func TestChatModel_Quit(t *testing.T) {
	m := newTestModel(&fakeSender{})

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})

	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
	assert.Empty(t, updated.(ChatModel).View())
}

func TestThemeStyles(t *testing.T) {
	dark := ThemeStyles(domain.ThemeDark)
	light := ThemeStyles(domain.ThemeLight)

	assert.Equal(t, darkPalette.accent, dark.Title.GetForeground())
	assert.Equal(t, lightPalette.accent, light.Title.GetForeground())
}

func TestSettingsStyles_HighContrast(t *testing.T) {
	settings := domain.DefaultSettings()
	settings.Theme = domain.ThemeDark
	assert.Equal(t, ThemeStyles(domain.ThemeDark).Title.GetForeground(), SettingsStyles(settings).Title.GetForeground())

	settings.Accessibility.HighContrast = true
	assert.Equal(t, highContrastDark.accent, SettingsStyles(settings).Title.GetForeground())

	settings.Theme = domain.ThemeLight
	assert.Equal(t, highContrastLight.text, SettingsStyles(settings).Body.GetForeground())
}
