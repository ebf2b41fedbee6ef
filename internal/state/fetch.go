package state

import (
	"context"
	"time"

	"github.com/goodaideas/goodaideas/internal/backend"
	"github.com/goodaideas/goodaideas/internal/domain"
	domainerrors "github.com/goodaideas/goodaideas/internal/errors"
	"github.com/goodaideas/goodaideas/internal/wire"
)

// Tables read by FetchUserData.
const (
	TableUsers       = "users"
	TableSettings    = "user_settings"
	TableRoutines    = "daily_routines"
	TableGoals       = "goals"
	TableCollections = "collections"
)

// userData is everything FetchUserData gathers before touching state.
type userData struct {
	profile     *domain.Profile
	settings    *domain.RemoteSettings
	routines    []domain.DailyRoutine
	goals       []domain.Goal
	collections []domain.Collection
}

// FetchUserData refreshes the profile, remote settings, routines, goals and
// collections of the current session. It does nothing without a session.
//
// Missing profile or settings rows are not errors. Any other failure is
// returned and state is left untouched. If the session changed while the
// requests were in flight the results are discarded and ErrStale returned.
func (s *Store) FetchUserData(ctx context.Context) error {
	before := s.Snapshot()
	uid := before.Session.UserID()
	if uid == "" {
		return nil
	}

	data, err := s.gather(ctx, uid)
	if err != nil {
		s.logger.Error("fetch user data failed", "user_id", uid, "error", err)
		return err
	}

	var stale bool
	s.mutate("fetch_user_data", func(st *Snapshot) bool {
		if st.Generation != before.Generation {
			stale = true
			return false
		}
		if data.profile != nil {
			st.Profile = data.profile
		}
		if rs := data.settings; rs != nil && s.remoteWins(rs.UpdatedAt) {
			if merged, err := st.Settings.Merge(rs.Patch); err == nil {
				st.Settings = merged
			}
		}
		st.Routines = data.routines
		st.Goals = data.goals
		st.Collections = data.collections
		return true
	})
	if stale {
		s.metrics.ObserveStale("fetch_user_data")
		s.logger.Debug("discarding stale user data", "user_id", uid)
		return domainerrors.ErrStale
	}
	return nil
}

// remoteWins reports whether a remote settings row should override local
// settings. Must be called with mu held.
func (s *Store) remoteWins(updatedAt time.Time) bool {
	return s.settingsTouched.IsZero() || updatedAt.IsZero() || updatedAt.After(s.settingsTouched)
}

func (s *Store) gather(ctx context.Context, uid string) (*userData, error) {
	var out userData

	row, err := s.backend.SelectOne(ctx, backend.Query{
		Table:   TableUsers,
		Filters: []backend.Filter{backend.Eq("id", uid)},
	})
	switch {
	case domainerrors.Is(err, domainerrors.ErrNotFound):
	case err != nil:
		return nil, err
	default:
		if out.profile, err = wire.DecodeProfile(row); err != nil {
			return nil, err
		}
	}

	row, err = s.backend.SelectOne(ctx, backend.Query{
		Table:   TableSettings,
		Filters: []backend.Filter{backend.Eq("user_id", uid)},
	})
	switch {
	case domainerrors.Is(err, domainerrors.ErrNotFound):
	case err != nil:
		return nil, err
	default:
		if out.settings, err = wire.DecodeRemoteSettings(row); err != nil {
			return nil, err
		}
	}

	byUser := []backend.Filter{backend.Eq("user_id", uid)}

	rows, err := s.backend.Select(ctx, backend.Query{Table: TableRoutines, Filters: byUser})
	if err != nil {
		return nil, err
	}
	out.routines = wire.DecodeList(s.logger, TableRoutines, rows, wire.DecodeRoutine)

	rows, err = s.backend.Select(ctx, backend.Query{Table: TableGoals, Filters: byUser})
	if err != nil {
		return nil, err
	}
	out.goals = wire.DecodeList(s.logger, TableGoals, rows, wire.DecodeGoal)

	rows, err = s.backend.Select(ctx, backend.Query{
		Table:   TableCollections,
		Filters: byUser,
		Order:   []backend.Order{{Column: "created_at"}},
	})
	if err != nil {
		return nil, err
	}
	out.collections = wire.DecodeList(s.logger, TableCollections, rows, wire.DecodeCollection)

	return &out, nil
}
