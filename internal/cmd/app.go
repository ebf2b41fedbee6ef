package cmd

import (
	"context"
	"io"
	"time"

	"github.com/samber/do/v2"
	"github.com/spf13/cobra"

	"github.com/goodaideas/goodaideas/internal/config"
	"github.com/goodaideas/goodaideas/internal/di"
	"github.com/goodaideas/goodaideas/internal/domain"
	domainerrors "github.com/goodaideas/goodaideas/internal/errors"
	"github.com/goodaideas/goodaideas/internal/state"
	"github.com/goodaideas/goodaideas/internal/tui"
)

// app is the state one invocation of the CLI shares between commands.
type app struct {
	flags  config.Flags
	output string

	out    io.Writer
	errOut io.Writer

	// prompt fills missing credentials.
	prompt func(*tui.CredentialsPrompt) error
	// confirm asks before destructive actions.
	confirm func(message string) (bool, error)
	// readCode asks for a provider sign-in code.
	readCode func() (string, error)
	now      func() time.Time

	injector *do.RootScope
}

func newApp(out, errOut io.Writer) *app {
	return &app{
		out:      out,
		errOut:   errOut,
		prompt:   tui.PromptCredentials,
		confirm:  func(message string) (bool, error) { return tui.Confirm(message, false) },
		readCode: tui.PromptCode,
		now:      time.Now,
	}
}

// container loads configuration and bootstraps the services on first use.
// Commands that never touch a service never open the state directory.
func (a *app) container() (*do.RootScope, error) {
	if a.injector != nil {
		return a.injector, nil
	}

	cfg, err := config.Load(a.flags)
	if err != nil {
		return nil, err
	}

	injector := di.NewContainer(cfg)
	if err := di.Bootstrap(injector); err != nil {
		_ = di.Shutdown(injector)
		return nil, err
	}
	a.injector = injector
	return injector, nil
}

// close shuts down whatever container was opened.
func (a *app) close() error {
	if a.injector == nil {
		return nil
	}
	injector := a.injector
	a.injector = nil
	return di.Shutdown(injector)
}

// invoke resolves a service from the container.
func invoke[T any](a *app) (T, error) {
	injector, err := a.container()
	if err != nil {
		var zero T
		return zero, err
	}
	return do.Invoke[T](injector)
}

func (a *app) store() (*state.Store, error) {
	return invoke[*state.Store](a)
}

// requestContext bounds a single backend call.
func requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, 30*time.Second)
}

// run wraps a command so the container is shut down however it ends.
func (a *app) run(fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		defer func() {
			if cerr := a.close(); cerr != nil && err == nil {
				err = cerr
			}
		}()
		return fn(cmd, args)
	}
}

// render writes data in the selected output format, styling tables for
// the user's settings.
func (a *app) render(data any, view Table) error {
	settings := domain.DefaultSettings()
	if a.injector != nil {
		if store, err := a.store(); err == nil {
			settings = store.Snapshot().Settings
		}
	}
	f, err := NewFormatter(a.output, a.out, settings)
	if err != nil {
		return err
	}
	return f.Format(data, view)
}

// requireSession fails unless a user is signed in.
func (a *app) requireSession() (*state.Store, error) {
	store, err := a.store()
	if err != nil {
		return nil, err
	}
	if !store.Snapshot().Authenticated() {
		return nil, domainerrors.Unauthorized("Not signed in. Run 'goodaideas login' first.")
	}
	return store, nil
}
