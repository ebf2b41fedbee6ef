package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/goodaideas/goodaideas/internal/backend"
	"github.com/goodaideas/goodaideas/internal/domain"
	"github.com/goodaideas/goodaideas/internal/state"
	"github.com/goodaideas/goodaideas/internal/wire"
)

// SettingsService applies settings changes locally at once and mirrors
// them to the signed-in user's settings row.
type SettingsService struct {
	rows   backend.Rows
	store  *state.Store
	logger *slog.Logger
	now    func() time.Time
}

// NewSettingsService creates a new settings service.
func NewSettingsService(rows backend.Rows, store *state.Store, logger *slog.Logger) *SettingsService {
	return &SettingsService{
		rows:   rows,
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// Save merges patch into the settings. When signed in the complete
// settings are upserted remotely; if that fails the previous settings are
// restored, an error notice is raised and the error returned.
func (s *SettingsService) Save(ctx context.Context, patch domain.SettingsPatch) (domain.Settings, error) {
	prev := s.store.Snapshot().Settings
	next, err := s.store.UpdateSettings(patch)
	if err != nil {
		return prev, err
	}

	uid := s.store.Snapshot().Session.UserID()
	if uid == "" || next == prev {
		return next, nil
	}

	if _, err := s.rows.Upsert(ctx, state.TableSettings, wire.EncodeRemoteSettings(uid, next, s.now()), "user_id"); err != nil {
		s.logger.Error("failed to save settings", "user_id", uid, "error", err)
		if rerr := s.store.RestoreSettings(prev); rerr != nil {
			s.logger.Error("failed to restore settings", "error", rerr)
		}
		s.store.AddNotification(domain.NotifyError, "Failed to save settings")
		return prev, err
	}
	return next, nil
}
