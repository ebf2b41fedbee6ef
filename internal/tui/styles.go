package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/goodaideas/goodaideas/internal/domain"
)

// Styles contains lipgloss styles for the TUI
type Styles struct {
	Title   lipgloss.Style
	Muted   lipgloss.Style
	Author  lipgloss.Style
	Self    lipgloss.Style
	Body    lipgloss.Style
	Error   lipgloss.Style
	Status  lipgloss.Style
	Border  lipgloss.Style
	Key     lipgloss.Style
	KeyDesc lipgloss.Style
}

type palette struct {
	accent, muted, text, self, err, ok lipgloss.Color
}

var (
	darkPalette = palette{
		accent: "63",  // Purple
		muted:  "241", // Gray
		text:   "252",
		self:   "86", // Cyan
		err:    "196",
		ok:     "46",
	}
	lightPalette = palette{
		accent: "57",
		muted:  "245",
		text:   "235",
		self:   "30",
		err:    "160",
		ok:     "28",
	}
	highContrastDark = palette{
		accent: "15",
		muted:  "15",
		text:   "15",
		self:   "14",
		err:    "9",
		ok:     "10",
	}
	highContrastLight = palette{
		accent: "0",
		muted:  "0",
		text:   "0",
		self:   "4",
		err:    "1",
		ok:     "2",
	}
)

// ThemeStyles returns the styles for a settings theme. The system theme
// follows the terminal background.
func ThemeStyles(theme domain.Theme) Styles {
	if isDark(theme) {
		return stylesFor(darkPalette)
	}
	return stylesFor(lightPalette)
}

// SettingsStyles returns the styles for the user's settings. High contrast
// replaces the theme's palette with plain terminal colours.
func SettingsStyles(s domain.Settings) Styles {
	if !s.Accessibility.HighContrast {
		return ThemeStyles(s.Theme)
	}
	if isDark(s.Theme) {
		return stylesFor(highContrastDark)
	}
	return stylesFor(highContrastLight)
}

func isDark(theme domain.Theme) bool {
	switch theme {
	case domain.ThemeLight:
		return false
	case domain.ThemeSystem:
		return lipgloss.HasDarkBackground()
	default:
		return true
	}
}

func stylesFor(p palette) Styles {
	return Styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(p.accent),
		Muted: lipgloss.NewStyle().
			Foreground(p.muted),
		Author: lipgloss.NewStyle().
			Bold(true).
			Foreground(p.accent),
		Self: lipgloss.NewStyle().
			Bold(true).
			Foreground(p.self),
		Body: lipgloss.NewStyle().
			Foreground(p.text),
		Error: lipgloss.NewStyle().
			Bold(true).
			Foreground(p.err),
		Status: lipgloss.NewStyle().
			Foreground(p.ok),
		Border: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(p.accent).
			Padding(0, 1),
		Key: lipgloss.NewStyle().
			Bold(true).
			Foreground(p.accent),
		KeyDesc: lipgloss.NewStyle().
			Foreground(p.muted),
	}
}
