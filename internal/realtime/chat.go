package realtime

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/goodaideas/goodaideas/internal/backend"
	"github.com/goodaideas/goodaideas/internal/domain"
	domainerrors "github.com/goodaideas/goodaideas/internal/errors"
	"github.com/goodaideas/goodaideas/internal/wire"
)

// Chat tables and limits.
const (
	TableTeamMessages = "team_messages"
	HistoryLimit      = 50
	MaxMessageLength  = 2000
)

const authorLookupTimeout = 5 * time.Second

// ContentFilter screens and cleans user-written text before it is sent.
type ContentFilter interface {
	Clean(content string) (string, error)
}

// ChatDeps are the collaborators a TeamChat needs.
type ChatDeps struct {
	Rows    backend.Rows
	Adapter *Adapter
	Filter  ContentFilter
	// UserID returns the signed-in user's id, or "".
	UserID func() string
	Logger *slog.Logger
}

// TeamChat is the message list of one team workspace, kept live.
type TeamChat struct {
	deps   ChatDeps
	mirror *Mirror[domain.TeamMessage]

	mu      sync.Mutex
	teamID  string
	ctx     context.Context
	authors map[string]*domain.Author
}

// NewTeamChat returns a chat with no team open.
func NewTeamChat(deps ChatDeps) *TeamChat {
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.DiscardHandler)
	}
	return &TeamChat{
		deps:    deps,
		mirror:  NewMirror(domain.TeamMessage.Key),
		authors: make(map[string]*domain.Author),
	}
}

// OnChange registers fn to receive the message list after every change.
func (c *TeamChat) OnChange(fn func([]domain.TeamMessage)) { c.mirror.OnChange(fn) }

// Messages returns the messages oldest first.
func (c *TeamChat) Messages() []domain.TeamMessage { return c.mirror.Items() }

// TeamID returns the open team, or "".
func (c *TeamChat) TeamID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.teamID
}

// Open switches the chat to teamID: the previous team's channel is torn
// down, the new channel subscribed, and the latest history loaded. Live
// messages that arrive while history loads are kept.
func (c *TeamChat) Open(ctx context.Context, teamID string) error {
	teamID = strings.TrimSpace(teamID)
	if teamID == "" {
		return domainerrors.Validation("Team id is required")
	}

	c.mu.Lock()
	c.teamID = teamID
	c.ctx = ctx
	c.mu.Unlock()
	c.mirror.Reset()

	filter := backend.Eq("team_id", teamID)
	c.deps.Adapter.Switch(ctx, Scope{
		Key:    "team:" + teamID,
		Filter: backend.ChangeFilter{Table: TableTeamMessages, Filter: &filter, Event: backend.EventInsert},
	}, c.onChange)

	history, err := c.history(ctx, teamID)
	if err != nil {
		c.deps.Logger.Error("failed to load team messages", "team_id", teamID, "error", err)
		return err
	}
	if c.TeamID() == teamID {
		c.mirror.Seed(history)
	}
	return nil
}

// Close tears down the live channel.
func (c *TeamChat) Close() {
	c.deps.Adapter.Close()
	c.mu.Lock()
	c.teamID = ""
	c.mu.Unlock()
}

func (c *TeamChat) history(ctx context.Context, teamID string) ([]domain.TeamMessage, error) {
	rows, err := c.deps.Rows.Select(ctx, backend.Query{
		Table:   TableTeamMessages,
		Filters: []backend.Filter{backend.Eq("team_id", teamID)},
		Order:   []backend.Order{{Column: "created_at", Desc: true}},
		Limit:   HistoryLimit,
	})
	if err != nil {
		return nil, err
	}
	msgs := wire.DecodeList(c.deps.Logger, TableTeamMessages, rows, wire.DecodeMessage)
	slices.Reverse(msgs)

	if err := c.loadAuthors(ctx, msgs); err != nil {
		c.deps.Logger.Warn("failed to load message authors", "team_id", teamID, "error", err)
	}
	for i := range msgs {
		if msgs[i].Author == nil {
			msgs[i].Author = c.author(msgs[i].UserID)
		}
	}
	return msgs, nil
}

func (c *TeamChat) loadAuthors(ctx context.Context, msgs []domain.TeamMessage) error {
	var missing []string
	c.mu.Lock()
	for _, m := range msgs {
		if _, ok := c.authors[m.UserID]; !ok && m.UserID != "" && !slices.Contains(missing, m.UserID) {
			missing = append(missing, m.UserID)
		}
	}
	c.mu.Unlock()
	if len(missing) == 0 {
		return nil
	}

	rows, err := c.deps.Rows.Select(ctx, backend.Query{
		Table:   "users",
		Columns: []string{"id", "username", "avatar_url"},
		Filters: []backend.Filter{{Column: "id", Op: backend.OpIn, Value: missing}},
	})
	if err != nil {
		return err
	}
	profiles := wire.DecodeList(c.deps.Logger, "users", rows, wire.DecodeProfile)

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range profiles {
		c.authors[p.ID] = &domain.Author{Username: p.Username, AvatarURL: p.AvatarURL}
	}
	return nil
}

func (c *TeamChat) author(userID string) *domain.Author {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.authors[userID]
}

func (c *TeamChat) onChange(ch backend.Change) {
	msg, err := wire.DecodeMessage(ch.New)
	if err != nil {
		c.deps.Logger.Warn("dropping malformed realtime message", "channel", TableTeamMessages, "error", err)
		return
	}
	if msg.TeamID != c.TeamID() {
		return
	}

	if msg.Author == nil {
		msg.Author = c.author(msg.UserID)
	}
	if msg.Author == nil {
		c.mu.Lock()
		ctx := c.ctx
		c.mu.Unlock()
		ctx, cancel := context.WithTimeout(ctx, authorLookupTimeout)
		if err := c.loadAuthors(ctx, []domain.TeamMessage{*msg}); err == nil {
			msg.Author = c.author(msg.UserID)
		}
		cancel()
	}

	if !c.mirror.Apply(*msg) {
		c.deps.Logger.Debug("duplicate realtime message", "id", msg.ID)
	}
}

// Send posts content to the open team. The message reaches the list via
// the change feed; a duplicate echo is ignored.
func (c *TeamChat) Send(ctx context.Context, content string) (*domain.TeamMessage, error) {
	teamID := c.TeamID()
	if teamID == "" {
		return nil, domainerrors.Validation("No team is open")
	}
	userID := ""
	if c.deps.UserID != nil {
		userID = c.deps.UserID()
	}
	if userID == "" {
		return nil, domainerrors.Unauthorized("Sign in to send messages")
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, domainerrors.Validation("Message cannot be empty")
	}
	if len([]rune(content)) > MaxMessageLength {
		return nil, domainerrors.Validationf("Message must not exceed %d characters", MaxMessageLength)
	}
	if c.deps.Filter != nil {
		cleaned, err := c.deps.Filter.Clean(content)
		if err != nil {
			return nil, err
		}
		content = cleaned
	}

	rows, err := c.deps.Rows.Insert(ctx, TableTeamMessages, []backend.Row{{
		"team_id": teamID,
		"user_id": userID,
		"content": content,
	}})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, domainerrors.Internal("insert returned no row")
	}
	msg, err := wire.DecodeMessage(rows[0])
	if err != nil {
		return nil, err
	}
	msg.Author = c.author(userID)
	c.mirror.Apply(*msg)
	return msg, nil
}
