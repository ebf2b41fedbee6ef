package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/goodaideas/goodaideas/internal/domain"
	"github.com/goodaideas/goodaideas/internal/service"
)

func newCommentsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "comments",
		Short: "Read and post comments on an idea",
	}
	cmd.AddCommand(newCommentsListCommand(a), newCommentsAddCommand(a))
	return cmd
}

func newCommentsListCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list <idea-id>",
		Short: "List comments on an idea, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			comments, err := invoke[*service.CommentService](a)
			if err != nil {
				return err
			}
			ctx, cancel := requestContext(cmd.Context())
			defer cancel()
			list, err := comments.List(ctx, args[0])
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(list))
			for _, c := range list {
				rows = append(rows, []string{c.CreatedAt.Format("2006-01-02 15:04"), authorName(c.Author), c.Content})
			}
			if list == nil {
				list = []domain.Comment{}
			}
			return a.render(list, Table{
				Headers: []string{"Posted", "Author", "Comment"},
				Rows:    rows,
				Empty:   "No comments yet.",
			})
		}),
	}
}

func newCommentsAddCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "add <idea-id> <comment>...",
		Short: "Comment on an idea",
		Long: `Comment on an idea. The remaining arguments are joined with spaces.

Examples:
  goodaideas comments add 7d0c6f5e-1b1a-4c55-9d43-1f1c2b7a9e10 Love this`,
		Args: cobra.MinimumNArgs(2),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			comments, err := invoke[*service.CommentService](a)
			if err != nil {
				return err
			}
			ctx, cancel := requestContext(cmd.Context())
			defer cancel()
			c, err := comments.Add(ctx, args[0], strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			return a.render(c, Table{
				Title: "Comment posted",
				Rows:  [][]string{{"ID", c.ID}, {"Comment", c.Content}},
			})
		}),
	}
}
