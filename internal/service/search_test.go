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

func TestSearchService_WarmsEmptyIndex(t *testing.T) {
	f := setupTest(t)
	author := id.NewUUID()
	f.fake.Seed(state.TableUsers, backend.Row{"id": author, "username": "grace", "points": 0})
	agent := f.seedIdea(t, author, "Calendar agent", backend.Row{"category": "Automation"})
	f.seedIdea(t, author, "Recipe planner", backend.Row{"category": "Food"})
	ctx := context.Background()

	res, err := f.search.Search(ctx, search.Params{Query: "  calendar ", Limit: 10})
	require.NoError(t, err)
	require.Len(t, res.Hits, 1)
	assert.Equal(t, agent, res.Hits[0].ID)
	assert.Equal(t, "calendar", res.Query)

	res, err = f.search.Search(ctx, search.Params{Query: "grace", Limit: 10})
	require.NoError(t, err)
	assert.Len(t, res.Hits, 2)

	// A populated index is not reloaded.
	_, err = f.search.Search(ctx, search.Params{Query: "recipe"})
	require.NoError(t, err)
	assert.Equal(t, 1, f.fake.CallCount("select", TableIdeas))
}

func TestSearchService_WarmFailureStillSearches(t *testing.T) {
	f := setupTest(t)
	f.fake.Fail("select:"+TableIdeas, domainerrors.Transient("offline"))

	res, err := f.search.Search(context.Background(), search.Params{Query: "anything"})

	require.NoError(t, err)
	assert.Empty(t, res.Hits)
}

func TestSearchService_IndexAndRemove(t *testing.T) {
	f := setupTest(t)
	ctx := context.Background()
	idea := domain.Idea{ID: id.NewUUID(), UserID: id.NewUUID(), Title: "Inbox triage bot"}

	f.search.IndexIdeas([]domain.Idea{idea})
	res, err := f.search.Search(ctx, search.Params{Query: "triage"})
	require.NoError(t, err)
	require.Len(t, res.Hits, 1)

	f.search.Remove(idea.ID)
	f.search.IndexIdeas([]domain.Idea{{ID: id.NewUUID(), UserID: idea.UserID, Title: "Placeholder"}})
	res, err = f.search.Search(ctx, search.Params{Query: "triage"})
	require.NoError(t, err)
	assert.Empty(t, res.Hits)
}
