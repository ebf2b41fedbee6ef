// Package service implements the app's features on top of the collaborator
// and the store: session bootstrap, settings sync, ideas, comments,
// ratings, version history, collections, daily challenges, achievements,
// the activity feed, the leaderboard and offline search.
package service

import (
	"context"
	"slices"

	"github.com/goodaideas/goodaideas/internal/backend"
	"github.com/goodaideas/goodaideas/internal/domain"
	domainerrors "github.com/goodaideas/goodaideas/internal/errors"
	"github.com/goodaideas/goodaideas/internal/state"
	"github.com/goodaideas/goodaideas/internal/wire"
)

// Feature tables.
const (
	TableIdeas        = "ideas"
	TableComments     = "comments"
	TableRatings      = "idea_ratings"
	TableFavorites    = "favorites"
	TableViews        = "idea_views"
	TableChallenges   = "daily_challenges"
	TableAchievements = "user_achievements"
	TableActivity     = "activity_feed"
	TableVersions     = "idea_versions"
)

// requireUser returns the signed-in user's id.
func requireUser(store *state.Store, msg string) (string, error) {
	uid := store.Snapshot().Session.UserID()
	if uid == "" {
		if msg == "" {
			msg = "Please log in to continue"
		}
		return "", domainerrors.Unauthorized(msg)
	}
	return uid, nil
}

// lookupAuthors loads the author summary of each distinct user id.
func lookupAuthors(ctx context.Context, rows backend.Rows, userIDs []string) (map[string]*domain.Author, error) {
	ids := make([]string, 0, len(userIDs))
	for _, uid := range userIDs {
		if uid != "" && !slices.Contains(ids, uid) {
			ids = append(ids, uid)
		}
	}
	out := make(map[string]*domain.Author, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	res, err := rows.Select(ctx, backend.Query{
		Table:   state.TableUsers,
		Columns: []string{"id", "username", "avatar_url"},
		Filters: []backend.Filter{{Column: "id", Op: backend.OpIn, Value: ids}},
	})
	if err != nil {
		return nil, err
	}
	for _, p := range wire.DecodeList(nil, state.TableUsers, res, wire.DecodeProfile) {
		out[p.ID] = &domain.Author{Username: p.Username, AvatarURL: p.AvatarURL}
	}
	return out, nil
}

// count returns how many rows of table match filters.
func count(ctx context.Context, rows backend.Rows, table string, filters ...backend.Filter) (int, error) {
	res, err := rows.Select(ctx, backend.Query{Table: table, Columns: []string{"id"}, Filters: filters})
	if err != nil {
		return 0, err
	}
	return len(res), nil
}
