package cmd

import (
	"github.com/samber/do/v2"
	"github.com/spf13/cobra"

	"github.com/goodaideas/goodaideas/internal/di"
	"github.com/goodaideas/goodaideas/internal/logger"
)

func newServeCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the app shell API for a web view layer",
		Long: `Serve the JSON API, the change stream and metrics over HTTP until
interrupted.

Examples:
  goodaideas serve
  goodaideas serve --port 9000 --backend remote`,
		Args: cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, _ []string) error {
			injector, err := a.container()
			if err != nil {
				return err
			}
			srv, err := di.Serve(injector)
			if err != nil {
				return err
			}
			log := do.MustInvoke[*logger.Logger](injector)

			select {
			case <-cmd.Context().Done():
				log.Info("Shutting down app shell gracefully...")
				return nil
			case err := <-srv.Err():
				return err
			}
		}),
	}
	cmd.Flags().StringVar(&a.flags.ShellPort, "port", "", "port the app shell listens on (default 8787)")
	return cmd
}
