package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/goodaideas/goodaideas/internal/backend"
	"github.com/goodaideas/goodaideas/internal/domain"
	domainerrors "github.com/goodaideas/goodaideas/internal/errors"
	"github.com/goodaideas/goodaideas/internal/state"
	"github.com/goodaideas/goodaideas/internal/wire"
)

// ChallengeService tracks the signed-in user's daily challenges.
type ChallengeService struct {
	rows   backend.Rows
	store  *state.Store
	logger *slog.Logger

	// mu serializes progress so concurrent actions cannot both insert the
	// day's first row for a challenge.
	mu sync.Mutex
}

// NewChallengeService creates a challenge service.
func NewChallengeService(rows backend.Rows, store *state.Store, logger *slog.Logger) *ChallengeService {
	return &ChallengeService{
		rows:   rows,
		store:  store,
		logger: logger,
	}
}

// Today returns the challenges for now's date. Challenges with no stored
// progress yet come from the defaults.
func (s *ChallengeService) Today(ctx context.Context, now time.Time) ([]domain.Challenge, error) {
	uid, err := requireUser(s.store, "")
	if err != nil {
		return nil, err
	}
	date := domain.ChallengeDate(now)

	rows, err := s.rows.Select(ctx, backend.Query{
		Table:   TableChallenges,
		Filters: []backend.Filter{backend.Eq("user_id", uid), backend.Eq("date", date)},
	})
	if err != nil {
		return nil, err
	}
	stored := wire.DecodeList(s.logger, TableChallenges, rows, wire.DecodeChallenge)

	out := domain.DefaultChallenges(date)
	for i := range out {
		j := slices.IndexFunc(stored, func(c domain.Challenge) bool { return c.Kind == out[i].Kind })
		if j >= 0 {
			out[i] = stored[j]
			continue
		}
		out[i].UserID = uid
	}
	return out, nil
}

// Progress advances today's challenge of kind by one step. The step that
// completes it awards the challenge's points exactly once.
func (s *ChallengeService) Progress(ctx context.Context, kind domain.ChallengeKind, now time.Time) (domain.Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	today, err := s.Today(ctx, now)
	if err != nil {
		return domain.Challenge{}, err
	}
	i := slices.IndexFunc(today, func(c domain.Challenge) bool { return c.Kind == kind })
	if i < 0 {
		return domain.Challenge{}, domainerrors.Validationf("unknown challenge %q", kind)
	}

	cur := today[i]
	next, completed := cur.Advance()
	if next == cur {
		return cur, nil
	}

	row := wire.EncodeChallenge(next)
	var saved backend.Row
	if cur.ID == string(cur.Kind) {
		delete(row, "id")
		var out []backend.Row
		out, err = s.rows.Insert(ctx, TableChallenges, []backend.Row{row})
		if len(out) > 0 {
			saved = out[0]
		}
	} else {
		saved, err = s.rows.Upsert(ctx, TableChallenges, row, "id")
	}
	if err != nil {
		s.logger.Error("failed to save challenge progress", "kind", kind, "error", err)
		return cur, err
	}
	if saved != nil {
		if c, derr := wire.DecodeChallenge(saved); derr == nil {
			next = *c
		}
	}

	if completed {
		if _, err := awardPoints(ctx, s.rows, s.store, next.UserID, next.Points); err != nil {
			s.logger.Error("failed to award challenge points", "kind", kind, "points", next.Points, "error", err)
			return next, err
		}
		s.store.AddNotification(domain.NotifyChallenge,
			fmt.Sprintf("Challenge completed: %s! +%d points", next.Title, next.Points))
		s.logger.Info("challenge completed", "kind", kind, "user_id", next.UserID)
	}
	return next, nil
}

// TimeUntilReset formats the time left until the challenges reset.
func (s *ChallengeService) TimeUntilReset(now time.Time) string {
	return domain.UntilReset(now)
}
