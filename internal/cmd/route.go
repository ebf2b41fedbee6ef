package cmd

import (
	"sort"

	"github.com/spf13/cobra"

	"github.com/goodaideas/goodaideas/internal/router"
)

func newRouteCommand(a *app) *cobra.Command {
	var guest bool

	cmd := &cobra.Command{
		Use:   "route <path>",
		Short: "Show which view a path opens for the current session",
		Long: `Resolve a view path the way the app does, including the sign-in gate.

Examples:
  goodaideas route /ideas/42
  goodaideas route /dashboard --guest`,
		Args: cobra.ExactArgs(1),
		RunE: a.run(func(_ *cobra.Command, args []string) error {
			authenticated := false
			if !guest {
				store, err := a.store()
				if err != nil {
					return err
				}
				authenticated = store.Snapshot().Authenticated()
			}

			d := router.Resolve(args[0], authenticated)
			rows := [][]string{
				{"View", string(d.View)},
				{"Status", string(d.Status)},
			}
			if d.Pattern != "" {
				rows = append(rows, []string{"Pattern", d.Pattern})
			}
			if d.Redirect != "" {
				rows = append(rows, []string{"Redirect", d.Redirect})
			}
			keys := make([]string, 0, len(d.Params))
			for k := range d.Params {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				rows = append(rows, []string{"Param " + k, d.Params[k]})
			}
			return a.render(d, Table{Rows: rows})
		}),
	}
	cmd.Flags().BoolVar(&guest, "guest", false, "resolve as a signed-out visitor without opening local state")
	return cmd
}
