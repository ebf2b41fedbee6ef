package service

import (
	"context"
	"testing"

	domainerrors "github.com/goodaideas/goodaideas/internal/errors"
	"github.com/goodaideas/goodaideas/internal/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectionService_CreateAndAdd(t *testing.T) {
	f := setupTest(t)
	svc := NewCollectionService(f.fake, f.store, f.logger)
	uid := f.signIn(t, "alice", 0)
	ctx := context.Background()

	c, err := svc.Create(ctx, "  Reading list ")
	require.NoError(t, err)
	assert.Equal(t, "Reading list", c.Name)
	assert.Equal(t, uid, c.UserID)

	c, err = svc.Add(ctx, c.ID, "idea-1")
	require.NoError(t, err)
	c, err = svc.Add(ctx, c.ID, "idea-2")
	require.NoError(t, err)
	c, err = svc.Add(ctx, c.ID, "idea-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"idea-1", "idea-2"}, c.IdeaIDs)

	rows := f.fake.Rows(state.TableCollections)
	require.Len(t, rows, 1)
	assert.Equal(t, []any{"idea-1", "idea-2"}, rows[0]["idea_ids"])
	// The duplicate add changed nothing, so it was never sent.
	assert.Equal(t, 3, f.fake.CallCount("upsert", state.TableCollections))
}

func TestCollectionService_RequiresSession(t *testing.T) {
	f := setupTest(t)
	svc := NewCollectionService(f.fake, f.store, f.logger)

	_, err := svc.Create(context.Background(), "Later")

	require.ErrorIs(t, err, domainerrors.ErrUnauthorized)
	assert.Empty(t, f.store.Snapshot().Collections)
}

func TestCollectionService_CreateFailureRollsBack(t *testing.T) {
	f := setupTest(t)
	svc := NewCollectionService(f.fake, f.store, f.logger)
	f.signIn(t, "alice", 0)
	f.fake.Fail("upsert:"+state.TableCollections, domainerrors.Transient("offline"))

	_, err := svc.Create(context.Background(), "Reading list")

	require.ErrorIs(t, err, domainerrors.ErrTransient)
	assert.Empty(t, f.store.Snapshot().Collections)
	assert.Equal(t, "Failed to update collection", lastNotification(f.store).Message)
}

func TestCollectionService_AddFailureRollsBack(t *testing.T) {
	f := setupTest(t)
	svc := NewCollectionService(f.fake, f.store, f.logger)
	f.signIn(t, "alice", 0)
	ctx := context.Background()
	c, err := svc.Create(ctx, "Reading list")
	require.NoError(t, err)

	f.fake.Fail("upsert:"+state.TableCollections, domainerrors.Transient("offline"))
	_, err = svc.Add(ctx, c.ID, "idea-1")

	require.Error(t, err)
	got, ok := f.store.Snapshot().Collection(c.ID)
	require.True(t, ok)
	assert.Empty(t, got.IdeaIDs)
}

func TestCollectionService_RemoveAndDelete(t *testing.T) {
	f := setupTest(t)
	svc := NewCollectionService(f.fake, f.store, f.logger)
	f.signIn(t, "alice", 0)
	ctx := context.Background()
	c, err := svc.Create(ctx, "Reading list")
	require.NoError(t, err)
	_, err = svc.Add(ctx, c.ID, "idea-1")
	require.NoError(t, err)

	c, err = svc.Remove(ctx, c.ID, "idea-1")
	require.NoError(t, err)
	assert.Empty(t, c.IdeaIDs)

	require.NoError(t, svc.Delete(ctx, c.ID))
	assert.Empty(t, svc.List())
	assert.Empty(t, f.fake.Rows(state.TableCollections))
}

func TestCollectionService_DeleteFailureRestores(t *testing.T) {
	f := setupTest(t)
	svc := NewCollectionService(f.fake, f.store, f.logger)
	f.signIn(t, "alice", 0)
	ctx := context.Background()
	c, err := svc.Create(ctx, "Reading list")
	require.NoError(t, err)
	f.fake.Fail("delete:"+state.TableCollections, domainerrors.Transient("offline"))

	err = svc.Delete(ctx, c.ID)

	require.Error(t, err)
	_, ok := f.store.Snapshot().Collection(c.ID)
	assert.True(t, ok)
}

func TestCollectionService_UnknownCollection(t *testing.T) {
	f := setupTest(t)
	svc := NewCollectionService(f.fake, f.store, f.logger)
	f.signIn(t, "alice", 0)

	_, err := svc.Add(context.Background(), "missing", "idea-1")

	require.ErrorIs(t, err, domainerrors.ErrNotFound)
}
