package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/goodaideas/goodaideas/internal/domain"
	"github.com/goodaideas/goodaideas/internal/service"
)

func newSettingsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change display and notification settings",
	}
	cmd.AddCommand(newSettingsShowCommand(a), newSettingsSetCommand(a))
	return cmd
}

func newSettingsShowCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the current settings",
		Args:  cobra.NoArgs,
		RunE: a.run(func(_ *cobra.Command, _ []string) error {
			store, err := a.store()
			if err != nil {
				return err
			}
			return a.renderSettings(store.Snapshot().Settings)
		}),
	}
}

func newSettingsSetCommand(a *app) *cobra.Command {
	var (
		theme, fontSize            string
		email, push, inApp         bool
		reduceMotion, highContrast bool
	)

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Change settings",
		Long: `Change one or more settings. Only the flags given are changed.

Examples:
  goodaideas settings set --theme dark
  goodaideas settings set --font-size large --reduce-motion
  goodaideas settings set --email-notifications=false`,
		Args: cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, _ []string) error {
			flags := cmd.Flags()
			var patch domain.SettingsPatch
			if flags.Changed("theme") {
				t := domain.Theme(theme)
				patch.Theme = &t
			}
			if flags.Changed("font-size") {
				f := domain.FontSize(fontSize)
				patch.FontSize = &f
			}
			channels := domain.NotificationChannelsPatch{}
			if flags.Changed("email-notifications") {
				channels.Email = &email
			}
			if flags.Changed("push-notifications") {
				channels.Push = &push
			}
			if flags.Changed("in-app-notifications") {
				channels.InApp = &inApp
			}
			patch.Channels = &channels
			access := domain.AccessibilityPatch{}
			if flags.Changed("reduce-motion") {
				access.ReduceMotion = &reduceMotion
			}
			if flags.Changed("high-contrast") {
				access.HighContrast = &highContrast
			}
			patch.Accessibility = &access

			if patch.IsEmpty() {
				return fmt.Errorf("nothing to change; see 'goodaideas settings set --help'")
			}

			settings, err := invoke[*service.SettingsService](a)
			if err != nil {
				return err
			}
			ctx, cancel := requestContext(cmd.Context())
			defer cancel()
			saved, err := settings.Save(ctx, patch)
			if err != nil {
				return err
			}
			return a.renderSettings(saved)
		}),
	}

	flags := cmd.Flags()
	flags.StringVar(&theme, "theme", "", "theme: light, dark or system")
	flags.StringVar(&fontSize, "font-size", "", "font size: small, medium or large")
	flags.BoolVar(&email, "email-notifications", true, "deliver notifications by email")
	flags.BoolVar(&push, "push-notifications", true, "deliver push notifications")
	flags.BoolVar(&inApp, "in-app-notifications", true, "show notifications in the app")
	flags.BoolVar(&reduceMotion, "reduce-motion", true, "reduce animations")
	flags.BoolVar(&highContrast, "high-contrast", true, "use high contrast colours")
	return cmd
}

func (a *app) renderSettings(s domain.Settings) error {
	return a.render(s, Table{
		Title: "Settings",
		Rows: [][]string{
			{"Theme", string(s.Theme)},
			{"Font size", string(s.FontSize)},
			{"Email notifications", onOff(s.Channels.Email)},
			{"Push notifications", onOff(s.Channels.Push)},
			{"In-app notifications", onOff(s.Channels.InApp)},
			{"Reduce motion", onOff(s.Accessibility.ReduceMotion)},
			{"High contrast", onOff(s.Accessibility.HighContrast)},
		},
	})
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func formatRating(r float64) string {
	return strconv.FormatFloat(r, 'f', 1, 64)
}
