package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/goodaideas/goodaideas/internal/config"
	"github.com/goodaideas/goodaideas/internal/domain"
	domainerrors "github.com/goodaideas/goodaideas/internal/errors"
	"github.com/goodaideas/goodaideas/internal/service"
)

func newIdeasCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ideas",
		Short: "Browse, post and rate ideas",
	}
	cmd.AddCommand(
		newIdeasListCommand(a),
		newIdeasShowCommand(a),
		newIdeasCreateCommand(a),
		newIdeasRateCommand(a),
		newIdeasFavoriteCommand(a),
		newIdeasShareCommand(a),
		newIdeasVersionsCommand(a),
	)
	return cmd
}

func newIdeasListCommand(a *app) *cobra.Command {
	var (
		filter domain.IdeaFilter
		sort   string
		mine   bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List ideas",
		Long: `List ideas, newest first unless --sort says otherwise.

Examples:
  goodaideas ideas list
  goodaideas ideas list --category productivity --sort rating
  goodaideas ideas list --tag ai --tag writing --limit 5
  goodaideas ideas list --mine`,
		Args: cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, _ []string) error {
			filter.Sort = domain.IdeaSort(sort)
			if !filter.Sort.Valid() {
				return domainerrors.Validationf("unknown sort %q (supported: recent, popular, rating)", sort)
			}
			if mine {
				store, err := a.requireSession()
				if err != nil {
					return err
				}
				filter.UserID = store.Snapshot().Session.UserID()
			}

			ideas, err := invoke[*service.IdeaService](a)
			if err != nil {
				return err
			}
			ctx, cancel := requestContext(cmd.Context())
			defer cancel()
			list, err := ideas.List(ctx, filter)
			if err != nil {
				return err
			}
			return a.renderIdeas(list)
		}),
	}

	flags := cmd.Flags()
	flags.StringVar(&filter.Category, "category", "", "only ideas in this category")
	flags.StringSliceVar(&filter.Tags, "tag", nil, "only ideas with any of these tags")
	flags.StringVar(&sort, "sort", string(domain.SortRecent), "order: recent, popular or rating")
	flags.IntVar(&filter.Limit, "limit", 20, "maximum number of ideas")
	flags.BoolVar(&mine, "mine", false, "only your own ideas")
	return cmd
}

func newIdeasShowCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <idea-id>",
		Short: "Show an idea with its ratings and comment count",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			ideas, err := invoke[*service.IdeaService](a)
			if err != nil {
				return err
			}
			ctx, cancel := requestContext(cmd.Context())
			defer cancel()
			detail, err := ideas.Get(ctx, args[0])
			if err != nil {
				return err
			}

			rows := [][]string{
				{"ID", detail.ID},
				{"Author", authorName(detail.Author)},
				{"Category", detail.Category},
				{"Tags", strings.Join(detail.Tags, ", ")},
				{"Rating", fmt.Sprintf("%s (%d ratings)", formatRating(detail.AverageRating), detail.RatingCount)},
				{"Comments", strconv.Itoa(detail.CommentCount)},
				{"Favorites", strconv.Itoa(detail.FavoritesCount)},
				{"Posted", detail.CreatedAt.Format("2006-01-02 15:04")},
			}
			if detail.UserRating > 0 {
				rows = append(rows, []string{"Your rating", strconv.Itoa(detail.UserRating)})
			}
			if detail.IsFavorite {
				rows = append(rows, []string{"Favorite", "yes"})
			}
			if detail.Description != "" {
				rows = append(rows, []string{"Description", detail.Description})
			}
			return a.render(detail, Table{Title: detail.Title, Rows: rows})
		}),
	}
}

func newIdeasCreateCommand(a *app) *cobra.Command {
	var in service.CreateIdeaInput

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Share a new idea",
		Long: `Share a new idea. Requires a signed-in session.

Examples:
  goodaideas ideas create --title "Solar kettle" --category energy --tag solar
  goodaideas ideas create --title "Meeting notes bot" --description "Summarises calls"`,
		Args: cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, _ []string) error {
			if _, err := a.requireSession(); err != nil {
				return err
			}
			ideas, err := invoke[*service.IdeaService](a)
			if err != nil {
				return err
			}
			ctx, cancel := requestContext(cmd.Context())
			defer cancel()
			idea, err := ideas.Create(ctx, in)
			if err != nil {
				return err
			}
			return a.render(idea, Table{
				Title: "Your idea was shared successfully!",
				Rows: [][]string{
					{"ID", idea.ID},
					{"Title", idea.Title},
					{"Tags", strings.Join(idea.Tags, ", ")},
				},
			})
		}),
	}

	flags := cmd.Flags()
	flags.StringVar(&in.Title, "title", "", "idea title (3-120 characters)")
	flags.StringVar(&in.Description, "description", "", "longer description")
	flags.StringVar(&in.Category, "category", "", "category")
	flags.StringSliceVar(&in.Tags, "tag", nil, "tag (repeatable, at most 5)")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func newIdeasRateCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rate <idea-id> <score>",
		Short: "Rate an idea from 1 to 5",
		Args:  cobra.ExactArgs(2),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			score, err := strconv.Atoi(args[1])
			if err != nil {
				return domainerrors.Validationf("score must be a number from 1 to 5, got %q", args[1])
			}
			if _, err := a.requireSession(); err != nil {
				return err
			}
			ideas, err := invoke[*service.IdeaService](a)
			if err != nil {
				return err
			}
			ctx, cancel := requestContext(cmd.Context())
			defer cancel()
			avg, err := ideas.Rate(ctx, args[0], score)
			if err != nil {
				return err
			}
			return a.render(map[string]any{"id": args[0], "score": score, "average": avg}, Table{
				Rows: [][]string{
					{"Rated", strconv.Itoa(score)},
					{"Average", formatRating(avg)},
				},
			})
		}),
	}
}

func newIdeasFavoriteCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "favorite <idea-id>",
		Aliases: []string{"fav"},
		Short:   "Add or remove an idea from your favorites",
		Args:    cobra.ExactArgs(1),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			if _, err := a.requireSession(); err != nil {
				return err
			}
			ideas, err := invoke[*service.IdeaService](a)
			if err != nil {
				return err
			}
			ctx, cancel := requestContext(cmd.Context())
			defer cancel()
			fav, err := ideas.ToggleFavorite(ctx, args[0])
			if err != nil {
				return err
			}
			msg := "Removed from favorites."
			if fav {
				msg = "Added to favorites."
			}
			return a.render(map[string]any{"id": args[0], "favorite": fav}, Table{Empty: msg})
		}),
	}
}

func newIdeasShareCommand(a *app) *cobra.Command {
	var markdown bool

	cmd := &cobra.Command{
		Use:   "share <idea-id>",
		Short: "Print share text and links for an idea",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			cfg, err := invoke[*config.Config](a)
			if err != nil {
				return err
			}
			ideas, err := invoke[*service.IdeaService](a)
			if err != nil {
				return err
			}
			ctx, cancel := requestContext(cmd.Context())
			defer cancel()
			share, err := ideas.ShareText(ctx, args[0], cfg.PublicURL())
			if err != nil {
				return err
			}
			if markdown && a.output == FormatTable {
				_, err := fmt.Fprintln(a.out, share.Markdown)
				return err
			}
			return a.render(share, Table{Rows: [][]string{
				{"Link", share.URL},
				{"Text", share.Text},
				{"Twitter", share.Twitter},
				{"Facebook", share.Facebook},
				{"LinkedIn", share.LinkedIn},
			}})
		}),
	}
	cmd.Flags().BoolVar(&markdown, "markdown", false, "print only the markdown share text")
	return cmd
}

func (a *app) renderIdeas(list []domain.Idea) error {
	rows := make([][]string, 0, len(list))
	for _, idea := range list {
		rows = append(rows, []string{
			idea.ID,
			idea.Title,
			authorName(idea.Author),
			idea.Category,
			formatRating(idea.Rating),
			strconv.Itoa(idea.FavoritesCount),
		})
	}
	if list == nil {
		list = []domain.Idea{}
	}
	return a.render(list, Table{
		Headers: []string{"ID", "Title", "Author", "Category", "Rating", "Favorites"},
		Rows:    rows,
		Empty:   "No ideas found.",
	})
}

func newIdeasVersionsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "versions <idea-id>",
		Short: "List an idea's saved revisions, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			ideas, err := invoke[*service.IdeaService](a)
			if err != nil {
				return err
			}
			ctx, cancel := requestContext(cmd.Context())
			defer cancel()
			versions, err := ideas.Versions(ctx, args[0])
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(versions))
			for _, v := range versions {
				rows = append(rows, []string{
					strconv.Itoa(v.VersionNumber),
					v.CreatedAt.Format("2006-01-02 15:04"),
					v.Title,
					strings.Join(v.ChangeList(), "; "),
				})
			}
			if versions == nil {
				versions = []domain.IdeaVersion{}
			}
			return a.render(versions, Table{
				Headers: []string{"Version", "Saved", "Title", "Changes"},
				Rows:    rows,
				Empty:   "No earlier versions.",
			})
		}),
	}
}

func authorName(author *domain.Author) string {
	if author == nil || author.Username == "" {
		return "Anonymous"
	}
	return author.Username
}
