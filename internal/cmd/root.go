// Package cmd implements the goodaideas command line.
package cmd

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/spf13/cobra"

	domainerrors "github.com/goodaideas/goodaideas/internal/errors"
)

// NewRootCommand builds the command tree writing to out and errOut.
func NewRootCommand(out, errOut io.Writer) *cobra.Command {
	return newRootCommand(newApp(out, errOut))
}

func newRootCommand(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "goodaideas",
		Short: "Share, rate and discuss ideas",
		Long: `goodaideas is the client for the goodaideas community. It keeps your
session, settings and notifications in a local state directory, talks to
the remote backend (or a self-contained local one), and can serve the app
shell over HTTP.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetOut(a.out)
	rootCmd.SetErr(a.errOut)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.flags.Env, "env", "", "environment: development, staging or production")
	flags.StringVar(&a.flags.LogLevel, "log-level", "", "log level: debug, info, warn or error")
	flags.StringVar(&a.flags.LogFormat, "log-format", "", "log format: text or json")
	flags.StringVar(&a.flags.BackendMode, "backend", "", "backend mode: remote or local")
	flags.StringVar(&a.flags.BackendURL, "backend-url", "", "remote backend URL")
	flags.StringVar(&a.flags.AnonKey, "anon-key", "", "remote backend anonymous key")
	flags.StringVar(&a.flags.StateDir, "state-dir", "", "directory holding local state")
	flags.StringVar(&a.flags.StateDriver, "state-driver", "", "state storage: badger or file")
	flags.StringVar(&a.flags.EnvFile, "env-file", "", "dotenv file to read (default .env)")
	flags.StringVarP(&a.output, "output", "o", FormatTable, "output format: table, json or yaml")

	rootCmd.AddCommand(
		newLoginCommand(a),
		newSignupCommand(a),
		newLogoutCommand(a),
		newWhoamiCommand(a),
		newSettingsCommand(a),
		newNotificationsCommand(a),
		newIdeasCommand(a),
		newCommentsCommand(a),
		newCollectionsCommand(a),
		newLeaderboardCommand(a),
		newChallengesCommand(a),
		newAchievementsCommand(a),
		newActivityCommand(a),
		newSearchCommand(a),
		newRouteCommand(a),
		newChatCommand(a),
		newServeCommand(a),
	)

	return rootCmd
}

// ExecuteContext runs the command line with ctx.
func ExecuteContext(ctx context.Context) error {
	return NewRootCommand(os.Stdout, os.Stderr).ExecuteContext(ctx)
}

// Execute runs the command line.
func Execute() error {
	return ExecuteContext(context.Background())
}

// ErrorMessage returns the text to show for err. Coded errors use their
// user-facing message; anything else, such as a bad flag, is shown as is.
func ErrorMessage(err error) string {
	var e *domainerrors.Error
	if errors.As(err, &e) {
		return domainerrors.UserMessage(err)
	}
	return err.Error()
}
