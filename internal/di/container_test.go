package di

import (
	"path/filepath"
	"testing"

	"github.com/samber/do/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goodaideas/goodaideas/internal/config"
	"github.com/goodaideas/goodaideas/internal/di/providers"
	"github.com/goodaideas/goodaideas/internal/domain"
	"github.com/goodaideas/goodaideas/internal/state"
)

func loadConfig(t *testing.T, dir, driver string) *config.Config {
	t.Helper()
	cfg, err := config.Load(config.Flags{
		Env:         "development",
		LogLevel:    "error",
		BackendMode: config.BackendLocal,
		StateDir:    dir,
		StateDriver: driver,
		EnvFile:     filepath.Join(dir, "missing.env"),
	})
	require.NoError(t, err)
	return cfg
}

func TestBootstrap_LocalBackend(t *testing.T) {
	for _, driver := range []string{config.DriverFile, config.DriverBadger} {
		t.Run(driver, func(t *testing.T) {
			injector := NewContainer(loadConfig(t, t.TempDir(), driver))
			require.NoError(t, Bootstrap(injector))

			store := do.MustInvoke[*state.Store](injector)
			snap := store.Snapshot()
			assert.False(t, snap.Authenticated())
			assert.Equal(t, domain.DefaultSettings(), snap.Settings)

			storage := do.MustInvoke[*providers.StorageHandle](injector)
			assert.Equal(t, driver, storage.Driver)

			assert.NoError(t, Shutdown(injector))
		})
	}
}

func TestSettingsSurviveRestart(t *testing.T) {
	dir := t.TempDir()

	injector := NewContainer(loadConfig(t, dir, config.DriverFile))
	require.NoError(t, Bootstrap(injector))
	store := do.MustInvoke[*state.Store](injector)
	dark := domain.ThemeDark
	_, err := store.UpdateSettings(domain.SettingsPatch{Theme: &dark})
	require.NoError(t, err)
	assert.NoError(t, Shutdown(injector))

	injector = NewContainer(loadConfig(t, dir, config.DriverFile))
	require.NoError(t, Bootstrap(injector))
	defer func() { _ = Shutdown(injector) }()

	store = do.MustInvoke[*state.Store](injector)
	assert.Equal(t, domain.ThemeDark, store.Snapshot().Settings.Theme)
}
