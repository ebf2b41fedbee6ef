package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/goodaideas/goodaideas/internal/backend"
	"github.com/goodaideas/goodaideas/internal/domain"
	domainerrors "github.com/goodaideas/goodaideas/internal/errors"
	"github.com/goodaideas/goodaideas/internal/state"
	"github.com/goodaideas/goodaideas/internal/wire"
)

type activity struct {
	ideas    int
	comments int
	points   int
}

type achievementRule struct {
	key         string
	title       string
	description string
	points      int
	met         func(activity) bool
}

var achievementRules = []achievementRule{
	{"first_idea", "First Idea", "Share your first idea", 10, func(a activity) bool { return a.ideas >= 1 }},
	{"prolific_thinker", "Prolific Thinker", "Share 10 ideas", 50, func(a activity) bool { return a.ideas >= 10 }},
	{"point_collector", "Point Collector", "Earn 1,000 points", 100, func(a activity) bool { return a.points >= 1000 }},
	{"conversation_starter", "Conversation Starter", "Comment on 5 ideas", 25, func(a activity) bool { return a.comments >= 5 }},
}

// AchievementService unlocks one-time milestones.
type AchievementService struct {
	rows   backend.Rows
	store  *state.Store
	logger *slog.Logger
	now    func() time.Time
}

// NewAchievementService creates an achievement service.
func NewAchievementService(rows backend.Rows, store *state.Store, logger *slog.Logger) *AchievementService {
	return &AchievementService{
		rows:   rows,
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// List returns the signed-in user's unlocked achievements.
func (s *AchievementService) List(ctx context.Context) ([]domain.Achievement, error) {
	uid, err := requireUser(s.store, "")
	if err != nil {
		return nil, err
	}
	rows, err := s.rows.Select(ctx, backend.Query{
		Table:   TableAchievements,
		Filters: []backend.Filter{backend.Eq("user_id", uid)},
		Order:   []backend.Order{{Column: "unlocked_at"}},
	})
	if err != nil {
		return nil, err
	}
	return wire.DecodeList(s.logger, TableAchievements, rows, wire.DecodeAchievement), nil
}

// Evaluate checks the user's activity against every milestone and
// unlocks the ones newly reached, returning them.
func (s *AchievementService) Evaluate(ctx context.Context) ([]domain.Achievement, error) {
	uid, err := requireUser(s.store, "")
	if err != nil {
		return nil, err
	}

	have, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	unlocked := make(map[string]bool, len(have))
	for _, a := range have {
		unlocked[a.Key] = true
	}

	var act activity
	if act.ideas, err = count(ctx, s.rows, TableIdeas, backend.Eq("user_id", uid)); err != nil {
		return nil, err
	}
	if act.comments, err = count(ctx, s.rows, TableComments, backend.Eq("user_id", uid)); err != nil {
		return nil, err
	}
	if p := s.store.Snapshot().Profile; p != nil {
		act.points = p.Points
	}

	var out []domain.Achievement
	for _, rule := range achievementRules {
		if unlocked[rule.key] || !rule.met(act) {
			continue
		}
		a := domain.Achievement{
			UserID:      uid,
			Key:         rule.key,
			Title:       rule.title,
			Description: rule.description,
			Points:      rule.points,
			UnlockedAt:  s.now(),
		}
		saved, err := s.rows.Insert(ctx, TableAchievements, []backend.Row{{
			"user_id":     a.UserID,
			"achievement": a.Key,
			"title":       a.Title,
			"description": a.Description,
			"points":      a.Points,
			"unlocked_at": wire.Timestamp(a.UnlockedAt),
		}})
		if domainerrors.Is(err, domainerrors.ErrConflict) {
			continue
		}
		if err != nil {
			return out, err
		}
		if len(saved) > 0 {
			a.ID, _ = saved[0]["id"].(string)
		}

		if _, err := awardPoints(ctx, s.rows, s.store, uid, a.Points); err != nil {
			s.logger.Warn("failed to award achievement points", "achievement", a.Key, "error", err)
		}
		s.store.AddNotification(domain.NotifyAchievement, "Achievement unlocked: "+a.Title)
		s.logger.Info("achievement unlocked", "achievement", a.Key, "user_id", uid)
		out = append(out, a)
	}
	return out, nil
}
