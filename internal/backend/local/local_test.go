package local_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goodaideas/goodaideas/internal/backend"
	"github.com/goodaideas/goodaideas/internal/backend/local"
	"github.com/goodaideas/goodaideas/internal/domain"
	domainerrors "github.com/goodaideas/goodaideas/internal/errors"
	"github.com/goodaideas/goodaideas/internal/persist"
	"github.com/goodaideas/goodaideas/internal/ratelimit"
	"github.com/goodaideas/goodaideas/internal/wire"
)

const testKey = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	backend  *local.Backend
	path     string
	clock    *clock
	sessions *persist.SessionStore
}

func setup(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		path:     filepath.Join(t.TempDir(), "backend.db"),
		clock:    &clock{now: time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)},
		sessions: persist.NewSessionStore(persist.NewMemory(), ""),
	}
	f.backend = f.open(t)
	return f
}

func (f *fixture) open(t *testing.T) *local.Backend {
	t.Helper()
	b, err := local.Open(context.Background(), local.Options{
		Path:           f.path,
		TokenKey:       testKey,
		AccessTTL:      time.Hour,
		RefreshTTL:     24 * time.Hour,
		Sessions:       f.sessions,
		Clock:          f.clock.Now,
		SignInAttempts: ratelimit.New(0, 1),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func TestSignUp_CreatesProfileAndSession(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	var events []domain.SessionEventKind
	f.backend.OnSessionChange(func(ev domain.SessionEvent) { events = append(events, ev.Kind) })

	sess, err := f.backend.SignUp(ctx, "Alice@Example.com", "hunter22", backend.ProfileHints{Username: "alice"})
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", sess.User.Email)
	assert.Equal(t, f.clock.Now().Add(time.Hour), sess.ExpiresAt)
	assert.Equal(t, []domain.SessionEventKind{domain.SessionSignedIn}, events)

	row, err := f.backend.SelectOne(ctx, backend.Query{Table: "users", Filters: []backend.Filter{backend.Eq("id", sess.User.ID)}})
	require.NoError(t, err)
	profile, err := wire.DecodeProfile(row)
	require.NoError(t, err)
	assert.Equal(t, "alice", profile.Username)
	assert.Equal(t, 0, profile.Points)

	got, err := f.backend.GetSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, sess, got)
}

func TestSignUp_Rejects(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.backend.SignUp(ctx, "not-an-email", "hunter22", backend.ProfileHints{})
	assert.True(t, domainerrors.Is(err, domainerrors.ErrValidation))

	_, err = f.backend.SignUp(ctx, "a@example.com", "123", backend.ProfileHints{})
	assert.True(t, domainerrors.Is(err, domainerrors.ErrValidation))

	_, err = f.backend.SignUp(ctx, "a@example.com", "hunter22", backend.ProfileHints{})
	require.NoError(t, err)
	_, err = f.backend.SignUp(ctx, "A@example.com", "hunter22", backend.ProfileHints{})
	assert.True(t, domainerrors.Is(err, domainerrors.ErrConflict))
}

func TestSignIn(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.backend.SignUp(ctx, "bob@example.com", "correct-horse", backend.ProfileHints{Username: "bob"})
	require.NoError(t, err)
	require.NoError(t, f.backend.SignOut(ctx))

	got, err := f.backend.GetSession(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = f.backend.SignInWithPassword(ctx, "bob@example.com", "wrong")
	assert.True(t, domainerrors.Is(err, domainerrors.ErrInvalidCredentials))
	assert.Equal(t, "Invalid login credentials", domainerrors.UserMessage(err))

	_, err = f.backend.SignInWithPassword(ctx, "nobody@example.com", "correct-horse")
	assert.True(t, domainerrors.Is(err, domainerrors.ErrInvalidCredentials))

	sess, err := f.backend.SignInWithPassword(ctx, "BOB@example.com", "correct-horse")
	require.NoError(t, err)
	assert.NotEmpty(t, sess.AccessToken)
}

func TestSignIn_Throttled(t *testing.T) {
	ctx := context.Background()
	b, err := local.Open(ctx, local.Options{
		Path:           filepath.Join(t.TempDir(), "backend.db"),
		TokenKey:       testKey,
		SignInAttempts: ratelimit.New(0.001, 2),
	})
	require.NoError(t, err)
	defer b.Close()

	for range 2 {
		_, err = b.SignInWithPassword(ctx, "x@example.com", "nope")
		assert.True(t, domainerrors.Is(err, domainerrors.ErrInvalidCredentials))
	}
	_, err = b.SignInWithPassword(ctx, "x@example.com", "nope")
	assert.True(t, domainerrors.Is(err, domainerrors.ErrTransient))
}

func TestGetSession_RefreshesExpiredToken(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	first, err := f.backend.SignUp(ctx, "c@example.com", "hunter22", backend.ProfileHints{})
	require.NoError(t, err)

	var kinds []domain.SessionEventKind
	f.backend.OnSessionChange(func(ev domain.SessionEvent) { kinds = append(kinds, ev.Kind) })

	f.clock.Advance(2 * time.Hour)
	next, err := f.backend.GetSession(ctx)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, first.User.ID, next.User.ID)
	assert.NotEqual(t, first.RefreshToken, next.RefreshToken)
	assert.Equal(t, []domain.SessionEventKind{domain.SessionRefreshed}, kinds)

	f.clock.Advance(48 * time.Hour)
	gone, err := f.backend.GetSession(ctx)
	require.NoError(t, err)
	assert.Nil(t, gone)
	assert.Equal(t, domain.SessionSignedOut, kinds[len(kinds)-1])
}

func TestSession_SurvivesReopen(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	sess, err := f.backend.SignUp(ctx, "d@example.com", "hunter22", backend.ProfileHints{})
	require.NoError(t, err)
	require.NoError(t, f.backend.Close())

	reopened := f.open(t)
	got, err := reopened.GetSession(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, sess.User.ID, got.User.ID)
}

func TestRows_CRUD(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	b := f.backend

	inserted, err := b.Insert(ctx, "ideas", []backend.Row{
		{"title": "One", "category": "a", "tags": []string{"x", "y"}, "rating": 3},
		{"title": "Two", "category": "b", "tags": []string{"y"}, "rating": 5},
		{"title": "Three", "category": "a", "tags": []string{"z"}, "rating": 4},
	})
	require.NoError(t, err)
	require.Len(t, inserted, 3)
	for _, r := range inserted {
		assert.NotEmpty(t, r["id"])
		assert.NotEmpty(t, r["created_at"])
	}

	rows, err := b.Select(ctx, backend.Query{
		Table:   "ideas",
		Filters: []backend.Filter{backend.Eq("category", "a")},
		Order:   []backend.Order{{Column: "rating", Desc: true}},
	})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Three", rows[0]["title"])

	rows, err = b.Select(ctx, backend.Query{
		Table:   "ideas",
		Filters: []backend.Filter{{Column: "tags", Op: backend.OpContains, Value: []string{"y"}}},
		Limit:   1,
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "One", rows[0]["title"])

	_, err = b.SelectOne(ctx, backend.Query{Table: "ideas", Filters: []backend.Filter{backend.Eq("title", "Nope")}})
	assert.True(t, domainerrors.Is(err, domainerrors.ErrNotFound))

	_, err = b.Insert(ctx, "ideas", []backend.Row{{"id": inserted[0]["id"], "title": "dup"}})
	assert.True(t, domainerrors.Is(err, domainerrors.ErrConflict))

	require.NoError(t, b.Delete(ctx, "ideas", []backend.Filter{backend.Eq("category", "a")}))
	rows, err = b.Select(ctx, backend.Query{Table: "ideas"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Two", rows[0]["title"])
}

func TestRows_UpsertOnCompositeKey(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	first, err := f.backend.Upsert(ctx, "idea_ratings", backend.Row{"idea_id": "i1", "user_id": "u1", "rating": 2}, "idea_id,user_id")
	require.NoError(t, err)

	second, err := f.backend.Upsert(ctx, "idea_ratings", backend.Row{"idea_id": "i1", "user_id": "u1", "rating": 5}, "idea_id,user_id")
	require.NoError(t, err)
	assert.Equal(t, first["id"], second["id"])

	rows, err := f.backend.Select(ctx, backend.Query{Table: "idea_ratings"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	rating, err := wire.DecodeRating(rows[0])
	require.NoError(t, err)
	assert.Equal(t, 5, rating.Score)
}

func TestSubscribe_DeliversMatchingChangesInOrder(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	got := make(chan backend.Change, 10)
	sub, err := f.backend.Subscribe(ctx, backend.ChangeFilter{
		Table:  "team_messages",
		Filter: &backend.Filter{Column: "team_id", Op: backend.OpEq, Value: "t1"},
		Event:  backend.EventInsert,
	}, func(c backend.Change) { got <- c })
	require.NoError(t, err)
	defer sub.Close()

	for _, team := range []string{"t1", "t2", "t1"} {
		_, err := f.backend.Insert(ctx, "team_messages", []backend.Row{{"team_id": team, "content": team}})
		require.NoError(t, err)
	}
	_, err = f.backend.Upsert(ctx, "team_messages", backend.Row{"team_id": "t1", "content": "edit"}, "team_id")
	require.NoError(t, err)

	for range 2 {
		select {
		case c := <-got:
			assert.Equal(t, backend.EventInsert, c.Type)
			assert.Equal(t, "t1", c.New["team_id"])
		case <-time.After(2 * time.Second):
			t.Fatal("change not delivered")
		}
	}
	select {
	case c := <-got:
		t.Fatalf("unexpected change %+v", c)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSubscribe_RejectsNonEqualityFilter(t *testing.T) {
	f := setup(t)
	_, err := f.backend.Subscribe(context.Background(), backend.ChangeFilter{
		Table:  "ideas",
		Filter: &backend.Filter{Column: "rating", Op: backend.OpGte, Value: 3},
	}, func(backend.Change) {})
	assert.True(t, domainerrors.Is(err, domainerrors.ErrValidation))
}

func TestSimulateDisconnect(t *testing.T) {
	f := setup(t)

	sub, err := f.backend.Subscribe(context.Background(), backend.ChangeFilter{Table: "team_messages"}, func(backend.Change) {})
	require.NoError(t, err)
	assert.Equal(t, 1, f.backend.Subscribers("team_messages"))

	assert.Equal(t, 1, f.backend.SimulateDisconnect("team_messages"))

	err, ok := <-sub.Err()
	require.True(t, ok)
	assert.True(t, domainerrors.Is(err, domainerrors.ErrTransient))
	_, ok = <-sub.Err()
	assert.False(t, ok)
	assert.Equal(t, 0, f.backend.Subscribers("team_messages"))

	assert.NoError(t, sub.Close())
}
