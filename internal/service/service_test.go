package service

import (
	"log/slog"
	"testing"
	"time"

	"github.com/goodaideas/goodaideas/internal/backend"
	"github.com/goodaideas/goodaideas/internal/backend/backendtest"
	"github.com/goodaideas/goodaideas/internal/domain"
	"github.com/goodaideas/goodaideas/internal/id"
	"github.com/goodaideas/goodaideas/internal/moderation"
	"github.com/goodaideas/goodaideas/internal/search"
	"github.com/goodaideas/goodaideas/internal/state"
	"github.com/goodaideas/goodaideas/internal/wire"
	"github.com/stretchr/testify/require"
)

// testNow is a fixed afternoon so challenge dates never straddle midnight.
var testNow = time.Date(2026, 3, 1, 14, 30, 0, 0, time.UTC)

type fixture struct {
	fake   *backendtest.Fake
	store  *state.Store
	logger *slog.Logger

	challenges   *ChallengeService
	achievements *AchievementService
	search       *SearchService
	ideas        *IdeaService
	comments     *CommentService
}

// setupTest wires every feature service to a fresh fake collaborator.
func setupTest(t *testing.T) *fixture {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)
	fake := backendtest.New()
	store := state.New(state.Options{Backend: fake, Logger: logger, Clock: func() time.Time { return testNow }})

	index, err := search.Open(search.Options{Logger: logger})
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })

	f := &fixture{fake: fake, store: store, logger: logger}
	f.challenges = NewChallengeService(fake, store, logger)
	f.achievements = NewAchievementService(fake, store, logger)
	f.achievements.now = func() time.Time { return testNow }
	f.search = NewSearchService(index, fake, logger)
	f.ideas = NewIdeaService(fake, store, moderation.New(), f.challenges, f.achievements, f.search, logger)
	f.ideas.now = func() time.Time { return testNow }
	f.comments = NewCommentService(fake, store, moderation.New(), f.challenges, f.achievements, logger)
	f.comments.now = func() time.Time { return testNow }
	return f
}

// signIn establishes a session for a new user with a users row.
func (f *fixture) signIn(t *testing.T, username string, points int) string {
	t.Helper()
	uid := id.NewUUID()
	f.fake.Seed(state.TableUsers, backend.Row{"id": uid, "username": username, "points": points})
	f.store.SetSession(&domain.Session{AccessToken: "tok", User: domain.SessionUser{ID: uid}})
	f.store.SetProfile(&domain.Profile{ID: uid, Username: username, Points: points})
	return uid
}

// seedIdea stores an idea row and returns its id.
func (f *fixture) seedIdea(t *testing.T, userID, title string, extra backend.Row) string {
	t.Helper()
	ideaID := id.NewUUID()
	row := backend.Row{
		"id":              ideaID,
		"user_id":         userID,
		"title":           title,
		"description":     "about " + title,
		"category":        "Productivity",
		"tags":            []any{"ai"},
		"rating":          0,
		"favorites_count": 0,
		"created_at":      wire.Timestamp(testNow),
	}
	for k, v := range extra {
		row[k] = v
	}
	f.fake.Seed(TableIdeas, row)
	return ideaID
}

func (f *fixture) points(t *testing.T, uid string) int {
	t.Helper()
	for _, r := range f.fake.Rows(state.TableUsers) {
		if r["id"] == uid {
			p, err := wire.DecodeProfile(r)
			require.NoError(t, err)
			return p.Points
		}
	}
	t.Fatalf("no users row for %s", uid)
	return 0
}

func lastNotification(store *state.Store) domain.Notification {
	items := store.Snapshot().Notifications.Items
	if len(items) == 0 {
		return domain.Notification{}
	}
	return items[0]
}
