package service

import (
	"context"
	"log/slog"
	"sync"

	"github.com/goodaideas/goodaideas/internal/backend"
	"github.com/goodaideas/goodaideas/internal/domain"
	"github.com/goodaideas/goodaideas/internal/state"
	"github.com/goodaideas/goodaideas/internal/wire"
)

// Leaderboard sizes.
const (
	DefaultLeaderboardLimit = 10
	MaxLeaderboardLimit     = 100
)

// LeaderboardService ranks users by points.
type LeaderboardService struct {
	rows   backend.Rows
	logger *slog.Logger

	mu       sync.Mutex
	previous map[string]int // user id -> rank at the last fetch
}

// NewLeaderboardService creates a leaderboard service.
func NewLeaderboardService(rows backend.Rows, logger *slog.Logger) *LeaderboardService {
	return &LeaderboardService{
		rows:     rows,
		logger:   logger,
		previous: make(map[string]int),
	}
}

// Top returns the highest scoring users, ties broken by username. Rank
// change compares with the previous call; users new to the board show no
// change.
func (s *LeaderboardService) Top(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	switch {
	case limit <= 0:
		limit = DefaultLeaderboardLimit
	case limit > MaxLeaderboardLimit:
		limit = MaxLeaderboardLimit
	}

	rows, err := s.rows.Select(ctx, backend.Query{
		Table:   state.TableUsers,
		Columns: []string{"id", "username", "avatar_url", "points"},
		Order:   []backend.Order{{Column: "points", Desc: true}, {Column: "username"}},
		Limit:   limit,
	})
	if err != nil {
		return nil, err
	}
	entries := wire.DecodeList(s.logger, state.TableUsers, rows, wire.DecodeLeaderboardEntry)

	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.UserID
	}
	counts, err := s.ideaCounts(ctx, ids)
	if err != nil {
		s.logger.Warn("failed to count ideas for leaderboard", "error", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	next := make(map[string]int, len(entries))
	for i := range entries {
		e := &entries[i]
		e.Rank = i + 1
		e.IdeasCount = counts[e.UserID]
		if prev, ok := s.previous[e.UserID]; ok {
			e.RankChange = prev - e.Rank
		}
		next[e.UserID] = e.Rank
	}
	s.previous = next
	return entries, nil
}

func (s *LeaderboardService) ideaCounts(ctx context.Context, userIDs []string) (map[string]int, error) {
	out := make(map[string]int, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}
	rows, err := s.rows.Select(ctx, backend.Query{
		Table:   TableIdeas,
		Columns: []string{"user_id"},
		Filters: []backend.Filter{{Column: "user_id", Op: backend.OpIn, Value: userIDs}},
	})
	if err != nil {
		return out, err
	}
	for _, r := range rows {
		if uid, ok := r["user_id"].(string); ok {
			out[uid]++
		}
	}
	return out, nil
}
