package service

import (
	"context"

	"github.com/goodaideas/goodaideas/internal/backend"
	"github.com/goodaideas/goodaideas/internal/domain"
	domainerrors "github.com/goodaideas/goodaideas/internal/errors"
	"github.com/goodaideas/goodaideas/internal/state"
	"github.com/goodaideas/goodaideas/internal/wire"
)

// awardPoints adds points to the user's profile row. The store's profile
// follows when uid is still the signed-in user.
func awardPoints(ctx context.Context, rows backend.Rows, store *state.Store, uid string, points int) (*domain.Profile, error) {
	row, err := rows.SelectOne(ctx, backend.Query{
		Table:   state.TableUsers,
		Filters: []backend.Filter{backend.Eq("id", uid)},
	})
	var current *domain.Profile
	switch {
	case err == nil:
		if current, err = wire.DecodeProfile(row); err != nil {
			return nil, err
		}
	case domainerrors.Is(err, domainerrors.ErrNotFound):
		current = &domain.Profile{ID: uid}
	default:
		return nil, err
	}

	next := *current
	next.Points += points
	update := backend.Row{"id": uid, "points": next.Points}
	if next.Username != "" {
		update["username"] = next.Username
	}
	if _, err := rows.Upsert(ctx, state.TableUsers, update, "id"); err != nil {
		return nil, err
	}

	if store.Snapshot().Session.UserID() == uid {
		store.SetProfile(&next)
	}
	return &next, nil
}
