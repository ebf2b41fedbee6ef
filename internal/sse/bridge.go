package sse

import (
	"sync"

	"github.com/goodaideas/goodaideas/internal/domain"
	"github.com/goodaideas/goodaideas/internal/realtime"
	"github.com/goodaideas/goodaideas/internal/state"
)

// FollowStore emits state.changed after every store change, and a
// notification event for each notification added since the last one seen.
// The returned func stops following.
func FollowStore(store *state.Store, m *Manager) (stop func()) {
	var mu sync.Mutex
	var newest string
	if items := store.Snapshot().Notifications.Items; len(items) > 0 {
		newest = items[0].ID
	}

	return store.Subscribe(func(s state.Snapshot) {
		m.Emit(NewStateChangedEvent(StateChangedEventData{
			Version:       s.Version,
			Generation:    s.Generation,
			Authenticated: s.Authenticated(),
			Unread:        s.Notifications.Unread,
		}))

		mu.Lock()
		defer mu.Unlock()
		items := s.Notifications.Items
		var fresh []domain.Notification
		for _, n := range items {
			if n.ID == newest {
				break
			}
			fresh = append(fresh, n)
		}
		if len(items) > 0 {
			newest = items[0].ID
		}
		// Oldest first, matching the order they were added.
		for i := len(fresh) - 1; i >= 0; i-- {
			m.Emit(NewNotificationEvent(fresh[i]))
		}
	})
}

// FollowChat emits a chat.message event for every message the chat has not
// shown before. Opening another team starts over.
func FollowChat(chat *realtime.TeamChat, m *Manager) {
	seen := make(map[string]struct{})
	chat.OnChange(func(msgs []domain.TeamMessage) {
		if len(msgs) == 0 {
			clear(seen)
			return
		}
		for _, msg := range msgs {
			if _, ok := seen[msg.Key()]; ok {
				continue
			}
			seen[msg.Key()] = struct{}{}
			m.Emit(NewChatMessageEvent(msg.TeamID, msg))
		}
	})
}
