package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/goodaideas/goodaideas/internal/errors"
)

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings()

	assert.Equal(t, ThemeSystem, s.Theme)
	assert.Equal(t, FontMedium, s.FontSize)
	assert.Equal(t, NotificationChannels{Email: true, Push: true, InApp: true}, s.Channels)
	assert.Equal(t, Accessibility{}, s.Accessibility)
	assert.NoError(t, s.Validate())
}

func TestSettings_MergeFontSizeKeepsTheRest(t *testing.T) {
	got, err := DefaultSettings().Merge(SettingsPatch{FontSize: Ptr(FontLarge)})
	require.NoError(t, err)

	assert.Equal(t, FontLarge, got.FontSize)
	assert.Equal(t, ThemeSystem, got.Theme)
	assert.True(t, got.Channels.Email)
	assert.True(t, got.Channels.Push)
	assert.True(t, got.Channels.InApp)
}

func TestSettings_MergeNestedPartial(t *testing.T) {
	got, err := DefaultSettings().Merge(SettingsPatch{
		Channels:      &NotificationChannelsPatch{Push: Ptr(false)},
		Accessibility: &AccessibilityPatch{HighContrast: Ptr(true)},
	})
	require.NoError(t, err)

	assert.Equal(t, NotificationChannels{Email: true, Push: false, InApp: true}, got.Channels)
	assert.Equal(t, Accessibility{ReduceMotion: false, HighContrast: true}, got.Accessibility)
}

func TestSettings_MergeRejectsUnknownValues(t *testing.T) {
	start := DefaultSettings()

	got, err := start.Merge(SettingsPatch{Theme: Ptr(Theme("sepia")), FontSize: Ptr(FontSmall)})
	require.Error(t, err)
	assert.True(t, domainerrors.Is(err, domainerrors.ErrValidation))
	assert.Equal(t, start, got)

	_, err = start.Merge(SettingsPatch{FontSize: Ptr(FontSize("huge"))})
	assert.Error(t, err)
}

func TestSettings_MergeSequenceStaysComplete(t *testing.T) {
	patches := []SettingsPatch{
		{Theme: Ptr(ThemeDark)},
		{},
		{Channels: &NotificationChannelsPatch{}},
		{Accessibility: &AccessibilityPatch{ReduceMotion: Ptr(true)}},
		{FontSize: Ptr(FontSmall), Channels: &NotificationChannelsPatch{Email: Ptr(false)}},
		{Theme: Ptr(ThemeLight)},
	}

	s := DefaultSettings()
	for _, p := range patches {
		var err error
		s, err = s.Merge(p)
		require.NoError(t, err)
		require.NoError(t, s.Validate())
	}

	assert.Equal(t, Settings{
		Theme:         ThemeLight,
		FontSize:      FontSmall,
		Channels:      NotificationChannels{Email: false, Push: true, InApp: true},
		Accessibility: Accessibility{ReduceMotion: true},
	}, s)
}

func TestSettings_PatchRoundTrip(t *testing.T) {
	want := Settings{Theme: ThemeDark, FontSize: FontLarge, Accessibility: Accessibility{HighContrast: true}}

	got, err := DefaultSettings().Merge(want.Patch())
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSettingsPatch_IsEmpty(t *testing.T) {
	assert.True(t, SettingsPatch{}.IsEmpty())
	assert.True(t, SettingsPatch{Channels: &NotificationChannelsPatch{}}.IsEmpty())
	assert.False(t, SettingsPatch{Accessibility: &AccessibilityPatch{ReduceMotion: Ptr(false)}}.IsEmpty())
}
