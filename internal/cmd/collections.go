package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/goodaideas/goodaideas/internal/domain"
	"github.com/goodaideas/goodaideas/internal/service"
)

func newCollectionsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "collections",
		Short: "Group ideas into named collections",
	}
	cmd.AddCommand(
		newCollectionsListCommand(a),
		newCollectionsCreateCommand(a),
		newCollectionsAddCommand(a),
		newCollectionsRemoveCommand(a),
		newCollectionsDeleteCommand(a),
	)
	return cmd
}

func newCollectionsListCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List your collections",
		Args:  cobra.NoArgs,
		RunE: a.run(func(_ *cobra.Command, _ []string) error {
			if _, err := a.requireSession(); err != nil {
				return err
			}
			collections, err := invoke[*service.CollectionService](a)
			if err != nil {
				return err
			}
			list := collections.List()

			rows := make([][]string, 0, len(list))
			for _, c := range list {
				rows = append(rows, []string{c.ID, c.Name, strconv.Itoa(len(c.IdeaIDs)), c.CreatedAt.Format("2006-01-02")})
			}
			if list == nil {
				list = []domain.Collection{}
			}
			return a.render(list, Table{
				Headers: []string{"ID", "Name", "Ideas", "Created"},
				Rows:    rows,
				Empty:   "No collections yet.",
			})
		}),
	}
}

func newCollectionsCreateCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "create <name>",
		Short: "Create an empty collection",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			collections, err := invoke[*service.CollectionService](a)
			if err != nil {
				return err
			}
			ctx, cancel := requestContext(cmd.Context())
			defer cancel()
			c, err := collections.Create(ctx, args[0])
			if err != nil {
				return err
			}
			return a.renderCollection(c, "Collection created")
		}),
	}
}

func newCollectionsAddCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "add <collection-id> <idea-id>",
		Short: "Add an idea to a collection",
		Args:  cobra.ExactArgs(2),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			collections, err := invoke[*service.CollectionService](a)
			if err != nil {
				return err
			}
			ctx, cancel := requestContext(cmd.Context())
			defer cancel()
			c, err := collections.Add(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			return a.renderCollection(c, "Idea added")
		}),
	}
}

func newCollectionsRemoveCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <collection-id> <idea-id>",
		Short: "Take an idea out of a collection",
		Args:  cobra.ExactArgs(2),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			collections, err := invoke[*service.CollectionService](a)
			if err != nil {
				return err
			}
			ctx, cancel := requestContext(cmd.Context())
			defer cancel()
			c, err := collections.Remove(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			return a.renderCollection(c, "Idea removed")
		}),
	}
}

func newCollectionsDeleteCommand(a *app) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <collection-id>",
		Short: "Delete a collection",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			if !yes {
				ok, err := a.confirm(fmt.Sprintf("Delete collection %s?", args[0]))
				if err != nil {
					return err
				}
				if !ok {
					return a.render(map[string]any{"deleted": false}, Table{Empty: "Nothing deleted."})
				}
			}
			collections, err := invoke[*service.CollectionService](a)
			if err != nil {
				return err
			}
			ctx, cancel := requestContext(cmd.Context())
			defer cancel()
			if err := collections.Delete(ctx, args[0]); err != nil {
				return err
			}
			return a.render(map[string]any{"deleted": true, "id": args[0]}, Table{Empty: "Collection deleted."})
		}),
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func (a *app) renderCollection(c domain.Collection, title string) error {
	return a.render(c, Table{
		Title: title,
		Rows: [][]string{
			{"ID", c.ID},
			{"Name", c.Name},
			{"Ideas", strconv.Itoa(len(c.IdeaIDs))},
		},
	})
}
