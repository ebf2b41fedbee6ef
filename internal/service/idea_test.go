package service

import (
	"context"
	"testing"

	"github.com/goodaideas/goodaideas/internal/backend"
	"github.com/goodaideas/goodaideas/internal/domain"
	domainerrors "github.com/goodaideas/goodaideas/internal/errors"
	"github.com/goodaideas/goodaideas/internal/id"
	"github.com/goodaideas/goodaideas/internal/search"
	"github.com/goodaideas/goodaideas/internal/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ideaTitles(ideas []domain.Idea) []string {
	out := make([]string, len(ideas))
	for i, idea := range ideas {
		out[i] = idea.Title
	}
	return out
}

func TestIdeaService_ListSorts(t *testing.T) {
	f := setupTest(t)
	author := id.NewUUID()
	f.fake.Seed(state.TableUsers, backend.Row{"id": author, "username": "bob", "points": 0})
	f.seedIdea(t, author, "Quiet", backend.Row{"favorites_count": 1, "rating": 4.5, "created_at": "2026-02-01T00:00:00Z"})
	f.seedIdea(t, author, "Loud", backend.Row{"favorites_count": 9, "rating": 3.0, "created_at": "2026-02-02T00:00:00Z"})
	f.seedIdea(t, author, "Fresh", backend.Row{"favorites_count": 4, "rating": 1.0, "created_at": "2026-02-03T00:00:00Z"})
	ctx := context.Background()

	tests := []struct {
		sort domain.IdeaSort
		want []string
	}{
		{"", []string{"Fresh", "Loud", "Quiet"}},
		{domain.SortRecent, []string{"Fresh", "Loud", "Quiet"}},
		{domain.SortPopular, []string{"Loud", "Fresh", "Quiet"}},
		{domain.SortRating, []string{"Quiet", "Loud", "Fresh"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.sort), func(t *testing.T) {
			ideas, err := f.ideas.List(ctx, domain.IdeaFilter{Sort: tt.sort})
			require.NoError(t, err)
			assert.Equal(t, tt.want, ideaTitles(ideas))
			require.NotNil(t, ideas[0].Author)
			assert.Equal(t, "bob", ideas[0].Author.Username)
		})
	}
}

func TestIdeaService_ListFilters(t *testing.T) {
	f := setupTest(t)
	author := id.NewUUID()
	f.seedIdea(t, author, "Agent", backend.Row{"category": "Automation", "tags": []any{"ai", "agents"}})
	f.seedIdea(t, author, "Journal", backend.Row{"category": "Productivity", "tags": []any{"writing"}})
	ctx := context.Background()

	ideas, err := f.ideas.List(ctx, domain.IdeaFilter{Category: "All"})
	require.NoError(t, err)
	assert.Len(t, ideas, 2)

	ideas, err = f.ideas.List(ctx, domain.IdeaFilter{Category: "Automation"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Agent"}, ideaTitles(ideas))

	ideas, err = f.ideas.List(ctx, domain.IdeaFilter{Tags: []string{" Agents "}})
	require.NoError(t, err)
	assert.Equal(t, []string{"Agent"}, ideaTitles(ideas))
}

func TestIdeaService_ListLimitAndSort(t *testing.T) {
	f := setupTest(t)
	ctx := context.Background()

	_, err := f.ideas.List(ctx, domain.IdeaFilter{Limit: 500})
	require.NoError(t, err)
	calls := f.fake.Calls()
	assert.Equal(t, MaxIdeaLimit, calls[len(calls)-1].Query.Limit)

	_, err = f.ideas.List(ctx, domain.IdeaFilter{Sort: "random"})
	require.ErrorIs(t, err, domainerrors.ErrValidation)
}

func TestIdeaService_ListSupersededIsStale(t *testing.T) {
	f := setupTest(t)
	f.seedIdea(t, id.NewUUID(), "Only", nil)
	ctx := context.Background()

	var newer []domain.Idea
	f.fake.OnResolve("select:"+TableIdeas, func() {
		var err error
		newer, err = f.ideas.List(ctx, domain.IdeaFilter{})
		require.NoError(t, err)
	})

	_, err := f.ideas.List(ctx, domain.IdeaFilter{})

	require.ErrorIs(t, err, domainerrors.ErrStale)
	assert.Len(t, newer, 1)
}

func TestIdeaService_Get(t *testing.T) {
	f := setupTest(t)
	author := id.NewUUID()
	ideaID := f.seedIdea(t, author, "Agent", nil)
	f.fake.Seed(TableRatings,
		backend.Row{"idea_id": ideaID, "user_id": id.NewUUID(), "rating": 4},
		backend.Row{"idea_id": ideaID, "user_id": id.NewUUID(), "rating": 5},
	)
	f.fake.Seed(TableComments,
		backend.Row{"id": id.NewUUID(), "idea_id": ideaID, "user_id": author, "content": "one"},
		backend.Row{"id": id.NewUUID(), "idea_id": ideaID, "user_id": author, "content": "two"},
	)
	ctx := context.Background()

	t.Run("anonymous", func(t *testing.T) {
		detail, err := f.ideas.Get(ctx, ideaID)
		require.NoError(t, err)
		assert.Equal(t, "Agent", detail.Title)
		assert.InDelta(t, 4.5, detail.AverageRating, 0.001)
		assert.Equal(t, 2, detail.RatingCount)
		assert.Equal(t, 2, detail.CommentCount)
		assert.False(t, detail.IsFavorite)
		assert.Empty(t, f.fake.Rows(TableViews))
	})

	t.Run("signed in", func(t *testing.T) {
		uid := f.signIn(t, "alice", 0)
		f.fake.Seed(TableFavorites, backend.Row{"idea_id": ideaID, "user_id": uid})
		f.fake.Seed(TableRatings, backend.Row{"idea_id": ideaID, "user_id": uid, "rating": 3})

		detail, err := f.ideas.Get(ctx, ideaID)
		require.NoError(t, err)
		assert.True(t, detail.IsFavorite)
		assert.Equal(t, 3, detail.UserRating)
		assert.InDelta(t, 4.0, detail.AverageRating, 0.001)

		views := f.fake.Rows(TableViews)
		require.Len(t, views, 1)
		assert.Equal(t, uid, views[0]["user_id"])
	})

	t.Run("invalid id", func(t *testing.T) {
		_, err := f.ideas.Get(ctx, "not-a-uuid")
		require.ErrorIs(t, err, domainerrors.ErrValidation)
		assert.Equal(t, "Invalid ID format", domainerrors.UserMessage(err))
	})

	t.Run("missing", func(t *testing.T) {
		_, err := f.ideas.Get(ctx, id.NewUUID())
		require.ErrorIs(t, err, domainerrors.ErrNotFound)
		assert.Equal(t, "Idea not found", domainerrors.UserMessage(err))
	})
}

func TestIdeaService_RecordViewFailureIsSwallowed(t *testing.T) {
	f := setupTest(t)
	ideaID := f.seedIdea(t, id.NewUUID(), "Agent", nil)
	f.signIn(t, "alice", 0)
	f.fake.Fail("insert:"+TableViews, domainerrors.Transient("offline"))

	_, err := f.ideas.Get(context.Background(), ideaID)

	require.NoError(t, err)
}

func TestIdeaService_Create(t *testing.T) {
	f := setupTest(t)
	uid := f.signIn(t, "alice", 0)
	ctx := context.Background()

	idea, err := f.ideas.Create(ctx, CreateIdeaInput{
		Title:       "  Meeting summarizer ",
		Description: `<p>Summarize calls</p><script>alert(1)</script>`,
		Category:    "Productivity",
		Tags:        []string{"AI", "Deep Work", "ai"},
	})
	require.NoError(t, err)

	assert.Equal(t, "Meeting summarizer", idea.Title)
	assert.Equal(t, uid, idea.UserID)
	assert.Equal(t, []string{"ai", "deep-work"}, idea.Tags)
	assert.Contains(t, idea.Description, "Summarize calls")
	assert.NotContains(t, idea.Description, "<script")
	require.NotNil(t, idea.Author)
	assert.Equal(t, "alice", idea.Author.Username)
	assert.Len(t, f.fake.Rows(TableIdeas), 1)

	var messages []string
	for _, n := range f.store.Snapshot().Notifications.Items {
		messages = append(messages, n.Message)
	}
	assert.Contains(t, messages, "Your idea was shared successfully!")
	assert.Contains(t, messages, "Challenge completed: Share an Idea! +100 points")
	assert.Contains(t, messages, "Achievement unlocked: First Idea")
	assert.Equal(t, 110, f.points(t, uid))
	assert.Equal(t, 110, f.store.Snapshot().Profile.Points)

	res, err := f.search.Search(ctx, search.Params{Query: "summarizer", Limit: 5})
	require.NoError(t, err)
	require.NotEmpty(t, res.Hits)
	assert.Equal(t, idea.ID, res.Hits[0].ID)
}

func TestIdeaService_CreateRejects(t *testing.T) {
	ctx := context.Background()

	t.Run("signed out", func(t *testing.T) {
		f := setupTest(t)
		_, err := f.ideas.Create(ctx, CreateIdeaInput{Title: "Meeting summarizer"})
		require.ErrorIs(t, err, domainerrors.ErrUnauthorized)
		assert.Equal(t, "Please log in to share an idea", domainerrors.UserMessage(err))
	})

	tests := []struct {
		name string
		in   CreateIdeaInput
	}{
		{"short title", CreateIdeaInput{Title: "AI"}},
		{"blank title", CreateIdeaInput{Title: "     "}},
		{"too many tags", CreateIdeaInput{Title: "Meeting summarizer", Tags: []string{"a", "b", "c", "d", "e", "f"}}},
		{"flagged", CreateIdeaInput{Title: "Something offensive"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setupTest(t)
			f.signIn(t, "alice", 0)

			_, err := f.ideas.Create(ctx, tt.in)

			require.ErrorIs(t, err, domainerrors.ErrValidation)
			assert.Zero(t, f.fake.CallCount("insert", TableIdeas))
		})
	}
}

func TestIdeaService_CreateInsertFailure(t *testing.T) {
	f := setupTest(t)
	f.signIn(t, "alice", 0)
	f.fake.Fail("insert:"+TableIdeas, domainerrors.Transient("offline"))

	_, err := f.ideas.Create(context.Background(), CreateIdeaInput{Title: "Meeting summarizer"})

	require.ErrorIs(t, err, domainerrors.ErrTransient)
	n := lastNotification(f.store)
	assert.Equal(t, domain.NotifyError, n.Type)
	assert.Equal(t, "Connection problem. Please try again.", n.Message)
}

func TestIdeaService_Rate(t *testing.T) {
	f := setupTest(t)
	ideaID := f.seedIdea(t, id.NewUUID(), "Agent", nil)
	f.fake.Seed(TableRatings, backend.Row{"idea_id": ideaID, "user_id": id.NewUUID(), "rating": 2})
	uid := f.signIn(t, "alice", 0)
	ctx := context.Background()

	avg, err := f.ideas.Rate(ctx, ideaID, 4)
	require.NoError(t, err)
	assert.InDelta(t, 3.0, avg, 0.001)

	avg, err = f.ideas.Rate(ctx, ideaID, 5)
	require.NoError(t, err)
	assert.InDelta(t, 3.5, avg, 0.001)

	var mine []backend.Row
	for _, r := range f.fake.Rows(TableRatings) {
		if r["user_id"] == uid {
			mine = append(mine, r)
		}
	}
	require.Len(t, mine, 1)
	assert.Equal(t, 5, mine[0]["rating"])

	today, err := f.challenges.Today(ctx, testNow)
	require.NoError(t, err)
	assert.Equal(t, 1, today[0].Progress, "re-rating must not advance the challenge")
}

func TestIdeaService_RateRejects(t *testing.T) {
	f := setupTest(t)
	ideaID := f.seedIdea(t, id.NewUUID(), "Agent", nil)
	ctx := context.Background()

	_, err := f.ideas.Rate(ctx, ideaID, 4)
	require.ErrorIs(t, err, domainerrors.ErrUnauthorized)

	f.signIn(t, "alice", 0)
	for _, score := range []int{0, 6} {
		_, err := f.ideas.Rate(ctx, ideaID, score)
		require.ErrorIs(t, err, domainerrors.ErrValidation)
	}
	assert.Zero(t, f.fake.CallCount("upsert", TableRatings))
}

func TestIdeaService_ToggleFavorite(t *testing.T) {
	f := setupTest(t)
	ideaID := f.seedIdea(t, id.NewUUID(), "Agent", nil)
	f.signIn(t, "alice", 0)
	ctx := context.Background()

	fav, err := f.ideas.ToggleFavorite(ctx, ideaID)
	require.NoError(t, err)
	assert.True(t, fav)
	assert.Len(t, f.fake.Rows(TableFavorites), 1)

	fav, err = f.ideas.ToggleFavorite(ctx, ideaID)
	require.NoError(t, err)
	assert.False(t, fav)
	assert.Empty(t, f.fake.Rows(TableFavorites))
}

func TestIdeaService_ShareText(t *testing.T) {
	f := setupTest(t)
	ideaID := f.seedIdea(t, id.NewUUID(), "Agent", backend.Row{"description": "<p>Books meetings</p>"})

	share, err := f.ideas.ShareText(context.Background(), ideaID, "https://goodaideas.app/")
	require.NoError(t, err)

	assert.Equal(t, `Check out "Agent" - Books meetings`, share.Text)
	assert.Contains(t, share.Markdown, "https://goodaideas.app/ideas/"+ideaID)
	assert.Contains(t, share.Twitter, "twitter.com/intent/tweet")
}
