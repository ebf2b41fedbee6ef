package service

import (
	"context"
	"testing"
	"time"

	"github.com/goodaideas/goodaideas/internal/domain"
	domainerrors "github.com/goodaideas/goodaideas/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChallengeService_TodayDefaults(t *testing.T) {
	f := setupTest(t)
	uid := f.signIn(t, "alice", 0)

	today, err := f.challenges.Today(context.Background(), testNow)
	require.NoError(t, err)

	require.Len(t, today, 3)
	for _, c := range today {
		assert.Equal(t, uid, c.UserID)
		assert.Equal(t, "2026-03-01", c.Date)
		assert.Zero(t, c.Progress)
	}
	assert.Equal(t, []int{50, 100, 75}, []int{today[0].Points, today[1].Points, today[2].Points})
}

func TestChallengeService_RequiresSession(t *testing.T) {
	f := setupTest(t)

	_, err := f.challenges.Today(context.Background(), testNow)

	require.ErrorIs(t, err, domainerrors.ErrUnauthorized)
}

func TestChallengeService_ProgressAwardsOnce(t *testing.T) {
	f := setupTest(t)
	uid := f.signIn(t, "alice", 20)
	ctx := context.Background()

	var c domain.Challenge
	var err error
	for range 4 {
		c, err = f.challenges.Progress(ctx, domain.ChallengeComment, testNow)
		require.NoError(t, err)
	}
	assert.Equal(t, 4, c.Progress)
	assert.False(t, c.Completed)
	assert.Equal(t, 20, f.points(t, uid))
	assert.Len(t, f.fake.Rows(TableChallenges), 1)

	c, err = f.challenges.Progress(ctx, domain.ChallengeComment, testNow)
	require.NoError(t, err)
	assert.True(t, c.Completed)
	assert.Equal(t, 95, f.points(t, uid))
	assert.Equal(t, 95, f.store.Snapshot().Profile.Points)
	n := lastNotification(f.store)
	assert.Equal(t, domain.NotifyChallenge, n.Type)
	assert.Equal(t, "Challenge completed: Comment on Ideas! +75 points", n.Message)

	c, err = f.challenges.Progress(ctx, domain.ChallengeComment, testNow)
	require.NoError(t, err)
	assert.Equal(t, 5, c.Progress)
	assert.Equal(t, 95, f.points(t, uid))
}

func TestChallengeService_NewDayStartsFresh(t *testing.T) {
	f := setupTest(t)
	f.signIn(t, "alice", 0)
	ctx := context.Background()

	_, err := f.challenges.Progress(ctx, domain.ChallengeRate, testNow)
	require.NoError(t, err)

	tomorrow, err := f.challenges.Today(ctx, testNow.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Zero(t, tomorrow[0].Progress)
	assert.Equal(t, "2026-03-02", tomorrow[0].Date)
}

func TestChallengeService_SaveFailure(t *testing.T) {
	f := setupTest(t)
	f.signIn(t, "alice", 0)
	f.fake.Fail("insert:"+TableChallenges, domainerrors.Transient("offline"))

	c, err := f.challenges.Progress(context.Background(), domain.ChallengeShare, testNow)

	require.ErrorIs(t, err, domainerrors.ErrTransient)
	assert.Zero(t, c.Progress)
	assert.False(t, c.Completed)
}

func TestChallengeService_UnknownKind(t *testing.T) {
	f := setupTest(t)
	f.signIn(t, "alice", 0)

	_, err := f.challenges.Progress(context.Background(), "juggle", testNow)

	require.ErrorIs(t, err, domainerrors.ErrValidation)
}

func TestChallengeService_TimeUntilReset(t *testing.T) {
	f := setupTest(t)
	assert.Equal(t, "09:30:00", f.challenges.TimeUntilReset(testNow))
}
