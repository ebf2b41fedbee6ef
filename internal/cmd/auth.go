package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/goodaideas/goodaideas/internal/di/providers"
	"github.com/goodaideas/goodaideas/internal/domain"
	"github.com/goodaideas/goodaideas/internal/service"
	"github.com/goodaideas/goodaideas/internal/tui"
)

func newLoginCommand(a *app) *cobra.Command {
	var (
		creds    tui.CredentialsPrompt
		provider string
		code     string
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password or an identity provider",
		Long: `Sign in and keep the session in the state directory.

Missing credentials are asked for interactively. With --provider the sign-in
page is printed and the code it hands back is asked for.

Examples:
  goodaideas login
  goodaideas login --email ada@example.com --password s3cret
  goodaideas login --provider github`,
		Args: cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, _ []string) error {
			if provider != "" {
				return a.loginWithProvider(cmd, provider, code)
			}
			if creds.Missing() {
				if err := a.prompt(&creds); err != nil {
					return err
				}
			}
			sessions, err := invoke[*providers.SessionServiceHandle](a)
			if err != nil {
				return err
			}

			ctx, cancel := requestContext(cmd.Context())
			defer cancel()
			sess, err := sessions.SignIn(ctx, creds.Email, creds.Password)
			if err != nil {
				return err
			}
			return a.renderSession(sess, "Signed in")
		}),
	}
	cmd.Flags().StringVar(&creds.Email, "email", "", "account email")
	cmd.Flags().StringVar(&creds.Password, "password", "", "account password")
	cmd.Flags().StringVar(&provider, "provider", "", "sign in with an identity provider (e.g. github, google)")
	cmd.Flags().StringVar(&code, "code", "", "code from the provider sign-in page")
	cmd.MarkFlagsMutuallyExclusive("provider", "email")
	return cmd
}

func (a *app) loginWithProvider(cmd *cobra.Command, provider, code string) error {
	sessions, err := invoke[*providers.SessionServiceHandle](a)
	if err != nil {
		return err
	}
	url, err := sessions.ProviderURL(provider)
	if err != nil {
		return err
	}
	if code == "" {
		fmt.Fprintf(a.errOut, "Open this page to sign in:\n  %s\n", url)
		if code, err = a.readCode(); err != nil {
			return err
		}
	}

	ctx, cancel := requestContext(cmd.Context())
	defer cancel()
	sess, err := sessions.CompleteProviderSignIn(ctx, code)
	if err != nil {
		return err
	}
	return a.renderSession(sess, "Signed in")
}

func newSignupCommand(a *app) *cobra.Command {
	creds := tui.CredentialsPrompt{AskUsername: true}

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account",
		Long: `Create an account and sign in.

When the backend requires email confirmation no session is started and a
notification asks you to check your inbox.

Examples:
  goodaideas signup
  goodaideas signup --email ada@example.com --password s3cret --username ada`,
		Args: cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, _ []string) error {
			if creds.Missing() {
				if err := a.prompt(&creds); err != nil {
					return err
				}
			}
			sessions, err := invoke[*providers.SessionServiceHandle](a)
			if err != nil {
				return err
			}

			ctx, cancel := requestContext(cmd.Context())
			defer cancel()
			sess, err := sessions.SignUp(ctx, service.SignUpInput{
				Email:    creds.Email,
				Password: creds.Password,
				Username: creds.Username,
			})
			if err != nil {
				return err
			}
			if sess == nil {
				return a.render(map[string]any{"confirmation_required": true}, Table{
					Empty: "Check your email to confirm your account.",
				})
			}
			return a.renderSession(sess, "Account created")
		}),
	}
	cmd.Flags().StringVar(&creds.Email, "email", "", "account email")
	cmd.Flags().StringVar(&creds.Password, "password", "", "account password")
	cmd.Flags().StringVar(&creds.Username, "username", "", "display name (default: email local part)")
	return cmd
}

func newLogoutCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and clear local session data",
		Args:  cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, _ []string) error {
			sessions, err := invoke[*providers.SessionServiceHandle](a)
			if err != nil {
				return err
			}
			ctx, cancel := requestContext(cmd.Context())
			defer cancel()
			if err := sessions.SignOut(ctx); err != nil {
				return err
			}
			return a.render(map[string]any{"signed_out": true}, Table{Empty: "Signed out."})
		}),
	}
}

func newWhoamiCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: a.run(func(_ *cobra.Command, _ []string) error {
			store, err := a.requireSession()
			if err != nil {
				return err
			}
			snap := store.Snapshot()
			return a.render(whoami{
				ID:      snap.Session.UserID(),
				Email:   snap.Session.User.Email,
				Profile: snap.Profile,
			}, Table{Rows: [][]string{
				{"User", snap.Profile.DisplayName()},
				{"Email", snap.Session.User.Email},
				{"ID", snap.Session.UserID()},
				{"Points", fmt.Sprint(points(snap.Profile))},
			}})
		}),
	}
}

type whoami struct {
	ID      string          `json:"id"`
	Email   string          `json:"email,omitempty"`
	Profile *domain.Profile `json:"profile,omitempty"`
}

func points(p *domain.Profile) int {
	if p == nil {
		return 0
	}
	return p.Points
}

func (a *app) renderSession(sess *domain.Session, title string) error {
	return a.render(whoami{ID: sess.UserID(), Email: sess.User.Email}, Table{
		Title: title,
		Rows: [][]string{
			{"Email", sess.User.Email},
			{"ID", sess.UserID()},
		},
	})
}
