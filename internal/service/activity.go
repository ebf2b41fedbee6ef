package service

import (
	"context"
	"log/slog"

	"github.com/goodaideas/goodaideas/internal/backend"
	"github.com/goodaideas/goodaideas/internal/domain"
	"github.com/goodaideas/goodaideas/internal/state"
	"github.com/goodaideas/goodaideas/internal/wire"
)

// Activity feed sizes.
const (
	DefaultActivityLimit = 20
	MaxActivityLimit     = 100
)

// ActivityService reads the community activity feed. Entries are written
// by the collaborator as people post, comment and rate.
type ActivityService struct {
	rows   backend.Rows
	store  *state.Store
	logger *slog.Logger
}

// NewActivityService creates an activity service.
func NewActivityService(rows backend.Rows, store *state.Store, logger *slog.Logger) *ActivityService {
	return &ActivityService{rows: rows, store: store, logger: logger}
}

// Recent returns the newest feed entries with their authors. The feed is
// only shown to signed-in users.
func (s *ActivityService) Recent(ctx context.Context, limit int) ([]domain.Activity, error) {
	if _, err := requireUser(s.store, "Please log in to see recent activity"); err != nil {
		return nil, err
	}
	switch {
	case limit <= 0:
		limit = DefaultActivityLimit
	case limit > MaxActivityLimit:
		limit = MaxActivityLimit
	}

	rows, err := s.rows.Select(ctx, backend.Query{
		Table: TableActivity,
		Order: []backend.Order{{Column: "created_at", Desc: true}},
		Limit: limit,
	})
	if err != nil {
		s.logger.Error("failed to load activity", "error", err)
		return nil, err
	}
	items := wire.DecodeList(s.logger, TableActivity, rows, wire.DecodeActivity)

	userIDs := make([]string, 0, len(items))
	for _, a := range items {
		if a.Author == nil {
			userIDs = append(userIDs, a.UserID)
		}
	}
	authors, err := lookupAuthors(ctx, s.rows, userIDs)
	if err != nil {
		s.logger.Warn("failed to load activity authors", "error", err)
		return items, nil
	}
	for i := range items {
		if items[i].Author == nil {
			items[i].Author = authors[items[i].UserID]
		}
	}
	return items, nil
}
