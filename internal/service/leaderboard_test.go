package service

import (
	"context"
	"testing"

	"github.com/goodaideas/goodaideas/internal/backend"
	"github.com/goodaideas/goodaideas/internal/domain"
	"github.com/goodaideas/goodaideas/internal/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLeaderboardService_Top(t *testing.T) {
	f := setupTest(t)
	f.fake.Seed(state.TableUsers,
		backend.Row{"id": "u-carol", "username": "carol", "points": 300},
		backend.Row{"id": "u-bob", "username": "bob", "points": 500},
		backend.Row{"id": "u-alice", "username": "alice", "points": 300},
		backend.Row{"id": "u-dave", "username": "dave", "points": 10},
	)
	f.seedIdea(t, "u-bob", "One", nil)
	f.seedIdea(t, "u-bob", "Two", nil)
	f.seedIdea(t, "u-alice", "Three", nil)
	svc := NewLeaderboardService(f.fake, f.logger)
	ctx := context.Background()

	top, err := svc.Top(ctx, 3)
	require.NoError(t, err)

	require.Len(t, top, 3)
	assert.Equal(t, []string{"bob", "alice", "carol"}, []string{top[0].Username, top[1].Username, top[2].Username})
	assert.Equal(t, []int{1, 2, 3}, []int{top[0].Rank, top[1].Rank, top[2].Rank})
	assert.Equal(t, 2, top[0].IdeasCount)
	assert.Equal(t, 1, top[1].IdeasCount)
	assert.Zero(t, top[2].IdeasCount)
	for _, e := range top {
		assert.Zero(t, e.RankChange)
	}
}

func TestLeaderboardService_RankChange(t *testing.T) {
	f := setupTest(t)
	f.fake.Seed(state.TableUsers,
		backend.Row{"id": "u-bob", "username": "bob", "points": 500},
		backend.Row{"id": "u-alice", "username": "alice", "points": 300},
	)
	svc := NewLeaderboardService(f.fake, f.logger)
	ctx := context.Background()

	_, err := svc.Top(ctx, 10)
	require.NoError(t, err)

	_, err = f.fake.Upsert(ctx, state.TableUsers, backend.Row{"id": "u-alice", "points": 900}, "id")
	require.NoError(t, err)

	top, err := svc.Top(ctx, 10)
	require.NoError(t, err)
	byName := make(map[string]domain.LeaderboardEntry, len(top))
	for _, e := range top {
		byName[e.Username] = e
	}
	assert.Equal(t, 1, byName["alice"].Rank)
	assert.Equal(t, 1, byName["alice"].RankChange)
	assert.Equal(t, -1, byName["bob"].RankChange)
}
