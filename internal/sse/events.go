// Package sse streams store and team chat changes to the web view layer.
package sse

import (
	"time"

	"github.com/goodaideas/goodaideas/internal/domain"
)

// The shell is request/response for everything a view asks for; SSE only
// carries changes the view did not ask for.

// EventType represents the type of SSE Event.
type EventType string

const (
	// EventConnected is the first event on every stream.
	EventConnected EventType = "connected"
	// EventHeartbeat represents a connection keepalive event.
	EventHeartbeat EventType = "heartbeat"

	// EventStateChanged is sent after every store mutation.
	EventStateChanged EventType = "state.changed"
	// EventNotification carries a newly added notification.
	EventNotification EventType = "notification"

	// EventChatMessage carries a message new to the open team chat.
	EventChatMessage EventType = "chat.message"
)

// Event represents an SSE event to be sent to clients.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
	Type      EventType `json:"type"`

	// UserID limits delivery to clients of that user. Empty means everyone.
	UserID string `json:"-"`
}

// StateChangedEventData is the data payload for state.changed events. Views
// refetch GET /api/v1/state when the version moves past what they hold.
type StateChangedEventData struct {
	Version       uint64 `json:"version"`
	Generation    uint64 `json:"generation"`
	Authenticated bool   `json:"authenticated"`
	Unread        int    `json:"unread"`
}

// ChatMessageEventData is the data payload for chat.message events.
type ChatMessageEventData struct {
	TeamID  string             `json:"team_id"`
	Message domain.TeamMessage `json:"message"`
}

// HeartbeatEventData is the data payload for heartbeat events.
type HeartbeatEventData struct {
	ServerTime time.Time `json:"server_time"`
}

// NewStateChangedEvent creates a state.changed event.
func NewStateChangedEvent(data StateChangedEventData) Event {
	return Event{
		Type:      EventStateChanged,
		Data:      data,
		Timestamp: time.Now(),
	}
}

// NewNotificationEvent creates a notification event.
func NewNotificationEvent(n domain.Notification) Event {
	return Event{
		Type:      EventNotification,
		Data:      n,
		Timestamp: time.Now(),
	}
}

// NewChatMessageEvent creates a chat.message event.
func NewChatMessageEvent(teamID string, msg domain.TeamMessage) Event {
	return Event{
		Type:      EventChatMessage,
		Data:      ChatMessageEventData{TeamID: teamID, Message: msg},
		Timestamp: time.Now(),
	}
}

// NewHeartbeatEvent creates a heartbeat event.
func NewHeartbeatEvent() Event {
	return Event{
		Type: EventHeartbeat,
		Data: HeartbeatEventData{
			ServerTime: time.Now(),
		},
		Timestamp: time.Now(),
	}
}
