package sse

import (
	"bufio"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goodaideas/goodaideas/internal/backend"
	"github.com/goodaideas/goodaideas/internal/backend/backendtest"
	"github.com/goodaideas/goodaideas/internal/domain"
	"github.com/goodaideas/goodaideas/internal/realtime"
	"github.com/goodaideas/goodaideas/internal/state"
)

func setupManager(t *testing.T) *Manager {
	t.Helper()
	m := NewManager(slog.New(slog.DiscardHandler))
	m.heartbeatInterval = time.Hour
	ctx, cancel := context.WithCancel(context.Background())
	go m.Start(ctx)
	t.Cleanup(cancel)
	return m
}

func next(t *testing.T, c *Client) Event {
	t.Helper()
	select {
	case ev := <-c.EventChan:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("no event delivered")
		return Event{}
	}
}

func nextOfType(t *testing.T, c *Client, typ EventType) Event {
	t.Helper()
	for {
		if ev := next(t, c); ev.Type == typ {
			return ev
		}
	}
}

func TestManager_DeliversAndFiltersByUser(t *testing.T) {
	m := setupManager(t)
	alice, err := m.Connect("alice")
	require.NoError(t, err)
	bob, err := m.Connect("bob")
	require.NoError(t, err)
	assert.Equal(t, 2, m.ClientCount())

	m.EmitToUser("bob", NewNotificationEvent(domain.Notification{ID: "n1", Message: "for bob"}))
	m.Emit(NewHeartbeatEvent())

	assert.Equal(t, EventNotification, next(t, bob).Type)
	assert.Equal(t, EventHeartbeat, next(t, bob).Type)
	assert.Equal(t, EventHeartbeat, next(t, alice).Type)
}

func TestManager_SlowClientDoesNotBlock(t *testing.T) {
	m := setupManager(t)
	slow, err := m.Connect("")
	require.NoError(t, err)
	fast, err := m.Connect("")
	require.NoError(t, err)

	// Overflow the slow client while the fast one keeps up.
	for range cap(slow.EventChan) + 10 {
		m.Emit(NewHeartbeatEvent())
		assert.Equal(t, EventHeartbeat, next(t, fast).Type)
	}
	m.Emit(NewNotificationEvent(domain.Notification{ID: "last"}))

	assert.Equal(t, EventNotification, next(t, fast).Type)
	assert.Len(t, slow.EventChan, cap(slow.EventChan))
	assert.Equal(t, EventHeartbeat, next(t, slow).Type)
}

func TestManager_DisconnectAndShutdown(t *testing.T) {
	m := setupManager(t)
	c, err := m.Connect("")
	require.NoError(t, err)

	m.Disconnect(c.ID)
	m.Disconnect(c.ID)
	assert.Zero(t, m.ClientCount())
	_, open := <-c.Done
	assert.False(t, open)

	other, err := m.Connect("")
	require.NoError(t, err)
	require.NoError(t, m.Shutdown(context.Background()))
	require.NoError(t, m.Shutdown(context.Background()))
	m.Emit(NewHeartbeatEvent())

	assert.Zero(t, m.ClientCount())
	_, open = <-other.Done
	assert.False(t, open)
}

func TestFollowStore(t *testing.T) {
	m := setupManager(t)
	c, err := m.Connect("")
	require.NoError(t, err)
	store := state.New(state.Options{})
	stop := FollowStore(store, m)
	defer stop()

	store.AddNotification(domain.NotifyInfo, "first")
	store.AddNotification(domain.NotifySuccess, "second")

	changed := nextOfType(t, c, EventStateChanged)
	data, ok := changed.Data.(StateChangedEventData)
	require.True(t, ok)
	assert.False(t, data.Authenticated)
	assert.Equal(t, 1, data.Unread)

	n := nextOfType(t, c, EventNotification)
	assert.Equal(t, "first", n.Data.(domain.Notification).Message)
	n = nextOfType(t, c, EventNotification)
	assert.Equal(t, "second", n.Data.(domain.Notification).Message)

	// Reading does not re-announce anything.
	store.MarkAllNotificationsRead()
	changed = nextOfType(t, c, EventStateChanged)
	assert.Zero(t, changed.Data.(StateChangedEventData).Unread)
	select {
	case ev := <-c.EventChan:
		assert.NotEqual(t, EventNotification, ev.Type)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestFollowChat(t *testing.T) {
	m := setupManager(t)
	c, err := m.Connect("")
	require.NoError(t, err)

	fake := backendtest.New()
	fake.Seed(realtime.TableTeamMessages, backend.Row{
		"id": "m1", "team_id": "t1", "user_id": "u1", "content": "hi", "created_at": "2026-03-01T09:00:00Z",
	})
	chat := realtime.NewTeamChat(realtime.ChatDeps{
		Rows:    fake,
		Adapter: realtime.NewAdapter(fake, nil, realtime.Options{}),
		UserID:  func() string { return "u1" },
	})
	t.Cleanup(chat.Close)
	FollowChat(chat, m)

	require.NoError(t, chat.Open(context.Background(), "t1"))

	ev := nextOfType(t, c, EventChatMessage)
	data := ev.Data.(ChatMessageEventData)
	assert.Equal(t, "t1", data.TeamID)
	assert.Equal(t, "m1", data.Message.ID)
}

func TestHandler_StreamsEvents(t *testing.T) {
	m := setupManager(t)
	h := NewHandler(m, func(r *http.Request) string { return r.URL.Query().Get("user") }, slog.New(slog.DiscardHandler))
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"?user=alice", nil)
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := bufio.NewScanner(resp.Body)
	readEvent := func() string {
		for lines.Scan() {
			if name, ok := strings.CutPrefix(lines.Text(), "event: "); ok {
				return name
			}
		}
		return ""
	}
	require.Equal(t, string(EventConnected), readEvent())

	require.Eventually(t, func() bool { return m.ClientCount() == 1 }, time.Second, 10*time.Millisecond)
	m.EmitToUser("bob", NewHeartbeatEvent())
	m.EmitToUser("alice", NewNotificationEvent(domain.Notification{ID: "n1"}))
	assert.Equal(t, string(EventNotification), readEvent())
}

func TestHandler_RejectsPost(t *testing.T) {
	h := NewHandler(NewManager(slog.New(slog.DiscardHandler)), nil, slog.New(slog.DiscardHandler))
	w := httptest.NewRecorder()

	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/stream", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code, w.Body.String())
}
