package domain

import (
	"time"

	domainerrors "github.com/goodaideas/goodaideas/internal/errors"
)

// Theme is the colour scheme preference.
type Theme string

// Themes.
const (
	ThemeLight  Theme = "light"
	ThemeDark   Theme = "dark"
	ThemeSystem Theme = "system"
)

// Valid reports whether t is a known theme.
func (t Theme) Valid() bool {
	return t == ThemeLight || t == ThemeDark || t == ThemeSystem
}

// FontSize is the text size preference.
type FontSize string

// Font sizes.
const (
	FontSmall  FontSize = "small"
	FontMedium FontSize = "medium"
	FontLarge  FontSize = "large"
)

// Valid reports whether f is a known font size.
func (f FontSize) Valid() bool {
	return f == FontSmall || f == FontMedium || f == FontLarge
}

// NotificationChannels toggles delivery per channel.
type NotificationChannels struct {
	Email bool `json:"email"`
	Push  bool `json:"push"`
	InApp bool `json:"inApp"`
}

// Accessibility holds display accommodations.
type Accessibility struct {
	ReduceMotion bool `json:"reduceMotion"`
	HighContrast bool `json:"highContrast"`
}

// Settings are the user's display and notification preferences.
// Every field always holds a value; partial input goes through SettingsPatch.
type Settings struct {
	Theme         Theme                `json:"theme"`
	FontSize      FontSize             `json:"fontSize"`
	Channels      NotificationChannels `json:"notifications"`
	Accessibility Accessibility        `json:"accessibility"`
}

// DefaultSettings returns the settings of a fresh install.
func DefaultSettings() Settings {
	return Settings{
		Theme:    ThemeSystem,
		FontSize: FontMedium,
		Channels: NotificationChannels{Email: true, Push: true, InApp: true},
	}
}

// Validate rejects settings holding unknown enum values.
func (s Settings) Validate() error {
	if !s.Theme.Valid() {
		return domainerrors.Validationf("unknown theme %q", s.Theme)
	}
	if !s.FontSize.Valid() {
		return domainerrors.Validationf("unknown font size %q", s.FontSize)
	}
	return nil
}

// SettingsPatch is a partial settings update. Nil fields are left untouched,
// including inside the nested groups.
type SettingsPatch struct {
	Theme         *Theme                     `json:"theme,omitempty"`
	FontSize      *FontSize                  `json:"fontSize,omitempty"`
	Channels      *NotificationChannelsPatch `json:"notifications,omitempty"`
	Accessibility *AccessibilityPatch        `json:"accessibility,omitempty"`
}

// NotificationChannelsPatch is a partial NotificationChannels.
type NotificationChannelsPatch struct {
	Email *bool `json:"email,omitempty"`
	Push  *bool `json:"push,omitempty"`
	InApp *bool `json:"inApp,omitempty"`
}

// AccessibilityPatch is a partial Accessibility.
type AccessibilityPatch struct {
	ReduceMotion *bool `json:"reduceMotion,omitempty"`
	HighContrast *bool `json:"highContrast,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p SettingsPatch) IsEmpty() bool {
	return p.Theme == nil && p.FontSize == nil &&
		(p.Channels == nil || (p.Channels.Email == nil && p.Channels.Push == nil && p.Channels.InApp == nil)) &&
		(p.Accessibility == nil || (p.Accessibility.ReduceMotion == nil && p.Accessibility.HighContrast == nil))
}

// Merge deep-merges p into s. Invalid enum values reject the whole patch,
// leaving s as it was.
func (s Settings) Merge(p SettingsPatch) (Settings, error) {
	next := s

	if p.Theme != nil {
		if !p.Theme.Valid() {
			return s, domainerrors.Validationf("unknown theme %q", *p.Theme)
		}
		next.Theme = *p.Theme
	}
	if p.FontSize != nil {
		if !p.FontSize.Valid() {
			return s, domainerrors.Validationf("unknown font size %q", *p.FontSize)
		}
		next.FontSize = *p.FontSize
	}
	if c := p.Channels; c != nil {
		setIf(&next.Channels.Email, c.Email)
		setIf(&next.Channels.Push, c.Push)
		setIf(&next.Channels.InApp, c.InApp)
	}
	if a := p.Accessibility; a != nil {
		setIf(&next.Accessibility.ReduceMotion, a.ReduceMotion)
		setIf(&next.Accessibility.HighContrast, a.HighContrast)
	}

	return next, nil
}

// Patch returns the patch that turns any settings value into s.
func (s Settings) Patch() SettingsPatch {
	return SettingsPatch{
		Theme:    Ptr(s.Theme),
		FontSize: Ptr(s.FontSize),
		Channels: &NotificationChannelsPatch{
			Email: Ptr(s.Channels.Email),
			Push:  Ptr(s.Channels.Push),
			InApp: Ptr(s.Channels.InApp),
		},
		Accessibility: &AccessibilityPatch{
			ReduceMotion: Ptr(s.Accessibility.ReduceMotion),
			HighContrast: Ptr(s.Accessibility.HighContrast),
		},
	}
}

// RemoteSettings is the user_settings row kept by the collaborator.
// Any subset of the groups may be missing.
type RemoteSettings struct {
	UserID    string
	Patch     SettingsPatch
	UpdatedAt time.Time
}

func setIf[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

// Ptr returns a pointer to v. Handy for building patches.
func Ptr[T any](v T) *T {
	return &v
}
