package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/goodaideas/goodaideas/internal/logger"
	"github.com/goodaideas/goodaideas/internal/moderation"
	"github.com/goodaideas/goodaideas/internal/service"
	"github.com/goodaideas/goodaideas/internal/state"
)

// SessionServiceHandle wraps the session service with shutdown capability.
type SessionServiceHandle struct {
	*service.SessionService
}

// Shutdown implements do.Shutdownable.
func (h *SessionServiceHandle) Shutdown() error {
	h.Close()
	return nil
}

// ProvideSessionService restores the saved session and follows session
// changes from the backend.
func ProvideSessionService(i do.Injector) (*SessionServiceHandle, error) {
	b := do.MustInvoke[*BackendHandle](i)
	store := do.MustInvoke[*state.Store](i)
	log := do.MustInvoke[*logger.Logger](i)

	svc := service.NewSessionService(b.Client, store, log.Logger)
	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()
	if err := svc.Start(ctx); err != nil {
		return nil, err
	}

	return &SessionServiceHandle{SessionService: svc}, nil
}

// ProvideSettingsService provides the settings service.
func ProvideSettingsService(i do.Injector) (*service.SettingsService, error) {
	b := do.MustInvoke[*BackendHandle](i)
	store := do.MustInvoke[*state.Store](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewSettingsService(b.Client, store, log.Logger), nil
}

// ProvideModerator provides the content moderator.
func ProvideModerator(_ do.Injector) (*moderation.Moderator, error) {
	return moderation.New(), nil
}

// ProvideChallengeService provides the daily challenge service.
func ProvideChallengeService(i do.Injector) (*service.ChallengeService, error) {
	b := do.MustInvoke[*BackendHandle](i)
	store := do.MustInvoke[*state.Store](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewChallengeService(b.Client, store, log.Logger), nil
}

// ProvideAchievementService provides the achievement service.
func ProvideAchievementService(i do.Injector) (*service.AchievementService, error) {
	b := do.MustInvoke[*BackendHandle](i)
	store := do.MustInvoke[*state.Store](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewAchievementService(b.Client, store, log.Logger), nil
}

// ProvideIdeaService provides the idea service.
func ProvideIdeaService(i do.Injector) (*service.IdeaService, error) {
	b := do.MustInvoke[*BackendHandle](i)
	store := do.MustInvoke[*state.Store](i)
	moderator := do.MustInvoke[*moderation.Moderator](i)
	challenges := do.MustInvoke[*service.ChallengeService](i)
	achievements := do.MustInvoke[*service.AchievementService](i)
	searchService := do.MustInvoke[*service.SearchService](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewIdeaService(
		b.Client,
		store,
		moderator,
		challenges,
		achievements,
		searchService,
		log.Logger,
	), nil
}

// ProvideCommentService provides the comment service.
func ProvideCommentService(i do.Injector) (*service.CommentService, error) {
	b := do.MustInvoke[*BackendHandle](i)
	store := do.MustInvoke[*state.Store](i)
	moderator := do.MustInvoke[*moderation.Moderator](i)
	challenges := do.MustInvoke[*service.ChallengeService](i)
	achievements := do.MustInvoke[*service.AchievementService](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewCommentService(b.Client, store, moderator, challenges, achievements, log.Logger), nil
}

// ProvideCollectionService provides the collection service.
func ProvideCollectionService(i do.Injector) (*service.CollectionService, error) {
	b := do.MustInvoke[*BackendHandle](i)
	store := do.MustInvoke[*state.Store](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewCollectionService(b.Client, store, log.Logger), nil
}

// ProvideLeaderboardService provides the leaderboard service.
func ProvideLeaderboardService(i do.Injector) (*service.LeaderboardService, error) {
	b := do.MustInvoke[*BackendHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewLeaderboardService(b.Client, log.Logger), nil
}

// ProvideActivityService provides the activity feed service.
func ProvideActivityService(i do.Injector) (*service.ActivityService, error) {
	b := do.MustInvoke[*BackendHandle](i)
	store := do.MustInvoke[*state.Store](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewActivityService(b.Client, store, log.Logger), nil
}
