package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/goodaideas/goodaideas/internal/domain"
	"github.com/goodaideas/goodaideas/internal/realtime"
)

// RunChat opens the team chat in the terminal until the user quits or ctx
// ends. The chat must already be open.
func RunChat(ctx context.Context, chat *realtime.TeamChat, userID string, settings domain.Settings, opts ...tea.ProgramOption) error {
	model := NewChatModel(chat, userID, SettingsStyles(settings))
	model.messages = chat.Messages()

	opts = append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, opts...)
	p := tea.NewProgram(model, opts...)

	// OnChange runs under the chat's lock; Update never calls back into the
	// chat synchronously, so handing the list to the program is safe.
	chat.OnChange(func(msgs []domain.TeamMessage) {
		p.Send(MessagesMsg{Messages: msgs})
	})
	defer chat.OnChange(nil)

	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("run chat: %w", err)
	}
	return nil
}
