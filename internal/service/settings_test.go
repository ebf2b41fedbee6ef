package service

import (
	"context"
	"testing"

	"github.com/goodaideas/goodaideas/internal/domain"
	domainerrors "github.com/goodaideas/goodaideas/internal/errors"
	"github.com/goodaideas/goodaideas/internal/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettingsService_SaveSignedOutStaysLocal(t *testing.T) {
	f := setupTest(t)
	svc := NewSettingsService(f.fake, f.store, f.logger)

	got, err := svc.Save(context.Background(), domain.SettingsPatch{FontSize: domain.Ptr(domain.FontLarge)})
	require.NoError(t, err)

	assert.Equal(t, domain.FontLarge, got.FontSize)
	assert.Equal(t, domain.ThemeSystem, got.Theme)
	assert.Zero(t, f.fake.CallCount("upsert", state.TableSettings))
}

func TestSettingsService_SaveUpsertsFullSettings(t *testing.T) {
	f := setupTest(t)
	svc := NewSettingsService(f.fake, f.store, f.logger)
	uid := f.signIn(t, "alice", 0)

	_, err := svc.Save(context.Background(), domain.SettingsPatch{Theme: domain.Ptr(domain.ThemeDark)})
	require.NoError(t, err)

	rows := f.fake.Rows(state.TableSettings)
	require.Len(t, rows, 1)
	assert.Equal(t, uid, rows[0]["user_id"])
	assert.Equal(t, "dark", rows[0]["theme"])
	assert.Equal(t, "medium", rows[0]["font_size"])
	assert.Contains(t, rows[0], "notifications")

	_, err = svc.Save(context.Background(), domain.SettingsPatch{FontSize: domain.Ptr(domain.FontSmall)})
	require.NoError(t, err)
	rows = f.fake.Rows(state.TableSettings)
	require.Len(t, rows, 1)
	assert.Equal(t, "small", rows[0]["font_size"])
	assert.Equal(t, "dark", rows[0]["theme"])
}

func TestSettingsService_SaveUnchangedSkipsUpsert(t *testing.T) {
	f := setupTest(t)
	svc := NewSettingsService(f.fake, f.store, f.logger)
	f.signIn(t, "alice", 0)

	_, err := svc.Save(context.Background(), domain.SettingsPatch{Theme: domain.Ptr(domain.ThemeSystem)})
	require.NoError(t, err)

	assert.Zero(t, f.fake.CallCount("upsert", state.TableSettings))
}

func TestSettingsService_SaveFailureRollsBack(t *testing.T) {
	f := setupTest(t)
	svc := NewSettingsService(f.fake, f.store, f.logger)
	f.signIn(t, "alice", 0)
	f.fake.Fail("upsert:"+state.TableSettings, domainerrors.Transient("offline"))

	got, err := svc.Save(context.Background(), domain.SettingsPatch{Theme: domain.Ptr(domain.ThemeDark)})

	require.ErrorIs(t, err, domainerrors.ErrTransient)
	assert.Equal(t, domain.ThemeSystem, got.Theme)
	assert.Equal(t, domain.ThemeSystem, f.store.Snapshot().Settings.Theme)

	n := lastNotification(f.store)
	assert.Equal(t, domain.NotifyError, n.Type)
	assert.Equal(t, "Failed to save settings", n.Message)
}

func TestSettingsService_SaveRejectsUnknownTheme(t *testing.T) {
	f := setupTest(t)
	svc := NewSettingsService(f.fake, f.store, f.logger)
	f.signIn(t, "alice", 0)

	_, err := svc.Save(context.Background(), domain.SettingsPatch{Theme: domain.Ptr(domain.Theme("neon"))})

	require.ErrorIs(t, err, domainerrors.ErrValidation)
	assert.Zero(t, f.fake.CallCount("upsert", state.TableSettings))
}
