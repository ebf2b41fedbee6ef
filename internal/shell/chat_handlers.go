package shell

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/goodaideas/goodaideas/internal/domain"
)

func (s *Server) registerChatRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "openChat",
		Method:      http.MethodPut,
		Path:        "/api/v1/chat",
		Summary:     "Open team chat",
		Description: "Loads the team's recent history and follows new messages. Opening another team replaces the current one.",
		Tags:        []string{"Chat"},
	}, s.handleOpenChat)

	huma.Register(s.api, huma.Operation{
		OperationID: "listChatMessages",
		Method:      http.MethodGet,
		Path:        "/api/v1/chat/messages",
		Summary:     "List chat messages",
		Tags:        []string{"Chat"},
	}, s.handleListChatMessages)

	huma.Register(s.api, huma.Operation{
		OperationID:   "sendChatMessage",
		Method:        http.MethodPost,
		Path:          "/api/v1/chat/messages",
		Summary:       "Send chat message",
		Tags:          []string{"Chat"},
		DefaultStatus: http.StatusCreated,
	}, s.handleSendChatMessage)
}

// === DTOs ===

// OpenChatInput names the team to open.
type OpenChatInput struct {
	Body struct {
		TeamID string `json:"team_id" minLength:"1" doc:"Team ID"`
	}
}

// ChatOutput wraps the open team's messages for Huma.
type ChatOutput struct {
	Body struct {
		TeamID   string               `json:"team_id"`
		Messages []domain.TeamMessage `json:"messages"`
	}
}

// SendChatInput carries a chat message.
type SendChatInput struct {
	Body struct {
		Content string `json:"content" doc:"Message text"`
	}
}

// ChatMessageOutput wraps a sent message for Huma.
type ChatMessageOutput struct {
	Body *domain.TeamMessage
}

// === Handlers ===

func (s *Server) handleOpenChat(ctx context.Context, input *OpenChatInput) (*ChatOutput, error) {
	// The live channel outlives the request; it ends on the next Open or
	// when the chat is closed at shutdown.
	if err := s.services.Chat.Open(context.WithoutCancel(ctx), input.Body.TeamID); err != nil {
		return nil, apiError(err)
	}
	return s.chatOutput(), nil
}

func (s *Server) handleListChatMessages(_ context.Context, _ *struct{}) (*ChatOutput, error) {
	return s.chatOutput(), nil
}

func (s *Server) chatOutput() *ChatOutput {
	out := &ChatOutput{}
	out.Body.TeamID = s.services.Chat.TeamID()
	out.Body.Messages = s.services.Chat.Messages()
	if out.Body.Messages == nil {
		out.Body.Messages = []domain.TeamMessage{}
	}
	return out
}

func (s *Server) handleSendChatMessage(ctx context.Context, input *SendChatInput) (*ChatMessageOutput, error) {
	msg, err := s.services.Chat.Send(ctx, input.Body.Content)
	if err != nil {
		return nil, apiError(err)
	}
	return &ChatMessageOutput{Body: msg}, nil
}
