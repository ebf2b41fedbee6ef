// Package di provides dependency injection configuration for the goodaideas client.
package di

import (
	"github.com/samber/do/v2"

	"github.com/goodaideas/goodaideas/internal/config"
	"github.com/goodaideas/goodaideas/internal/di/providers"
)

// NewContainer creates and configures the DI container with all providers.
// Everything is lazy: a command only opens what it invokes.
func NewContainer(cfg *config.Config) *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.ProvideValue(injector, cfg)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideMetrics)

	// Storage layer
	do.Provide(injector, providers.ProvideStorage)
	do.Provide(injector, providers.ProvideSessionStore)

	// Backend layer
	do.Provide(injector, providers.ProvideTokenKey)
	do.Provide(injector, providers.ProvideBackend)
	do.Provide(injector, providers.ProvideStore)

	// Search layer
	do.Provide(injector, providers.ProvideSearchIndex)
	do.Provide(injector, providers.ProvideSearchService)

	// Feature services
	do.Provide(injector, providers.ProvideModerator)
	do.Provide(injector, providers.ProvideSessionService)
	do.Provide(injector, providers.ProvideSettingsService)
	do.Provide(injector, providers.ProvideChallengeService)
	do.Provide(injector, providers.ProvideAchievementService)
	do.Provide(injector, providers.ProvideIdeaService)
	do.Provide(injector, providers.ProvideCommentService)
	do.Provide(injector, providers.ProvideCollectionService)
	do.Provide(injector, providers.ProvideLeaderboardService)
	do.Provide(injector, providers.ProvideActivityService)

	// Realtime
	do.Provide(injector, providers.ProvideTeamChat)

	// Workers
	do.Provide(injector, providers.ProvideSettingsWatcher)

	// Server
	do.Provide(injector, providers.ProvideSSEManager)
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap restores the session and starts the background workers every
// command shares.
func Bootstrap(injector *do.RootScope) error {
	if _, err := do.Invoke[*providers.SessionServiceHandle](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*providers.SettingsWatcherHandle](injector); err != nil {
		return err
	}
	return nil
}

// Shutdown stops every service the container started. The report is
// returned only when a service failed to stop.
func Shutdown(injector *do.RootScope) error {
	if report := injector.Shutdown(); report != nil && len(report.Errors) > 0 {
		return report
	}
	return nil
}

// Serve starts the app shell.
func Serve(injector *do.RootScope) (*providers.HTTPServerHandle, error) {
	return do.Invoke[*providers.HTTPServerHandle](injector)
}
