package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/goodaideas/goodaideas/internal/domain"
	domainerrors "github.com/goodaideas/goodaideas/internal/errors"
	"github.com/goodaideas/goodaideas/internal/search"
	"github.com/goodaideas/goodaideas/internal/service"
)

func newLeaderboardCommand(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Show the top contributors by points",
		Args:  cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, _ []string) error {
			leaderboard, err := invoke[*service.LeaderboardService](a)
			if err != nil {
				return err
			}
			ctx, cancel := requestContext(cmd.Context())
			defer cancel()
			entries, err := leaderboard.Top(ctx, limit)
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				rows = append(rows, []string{
					strconv.Itoa(e.Rank),
					e.Username,
					strconv.Itoa(e.Points),
					strconv.Itoa(e.IdeasCount),
					rankChange(e.RankChange),
				})
			}
			if entries == nil {
				entries = []domain.LeaderboardEntry{}
			}
			return a.render(entries, Table{
				Title:   "Leaderboard",
				Headers: []string{"#", "User", "Points", "Ideas", "Change"},
				Rows:    rows,
				Empty:   "Nobody has scored yet.",
			})
		}),
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "number of entries")
	return cmd
}

func newActivityCommand(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "activity",
		Short: "Show what the community has been up to",
		Args:  cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, _ []string) error {
			if _, err := a.requireSession(); err != nil {
				return err
			}
			activity, err := invoke[*service.ActivityService](a)
			if err != nil {
				return err
			}
			ctx, cancel := requestContext(cmd.Context())
			defer cancel()
			items, err := activity.Recent(ctx, limit)
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(items))
			for _, it := range items {
				rows = append(rows, []string{it.CreatedAt.Format("Jan 2, 3:04 PM"), authorName(it.Author), it.Summary()})
			}
			if items == nil {
				items = []domain.Activity{}
			}
			return a.render(items, Table{
				Title:   "Activity Feed",
				Headers: []string{"When", "Who", "What"},
				Rows:    rows,
				Empty:   "No activity yet.",
			})
		}),
	}
	cmd.Flags().IntVar(&limit, "limit", service.DefaultActivityLimit, "number of entries")
	return cmd
}

func rankChange(n int) string {
	switch {
	case n > 0:
		return fmt.Sprintf("+%d", n)
	case n < 0:
		return strconv.Itoa(n)
	default:
		return "-"
	}
}

func newChallengesCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "challenges",
		Short: "Show today's challenges and your progress",
		Args:  cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, _ []string) error {
			if _, err := a.requireSession(); err != nil {
				return err
			}
			challenges, err := invoke[*service.ChallengeService](a)
			if err != nil {
				return err
			}
			ctx, cancel := requestContext(cmd.Context())
			defer cancel()
			now := a.now()
			today, err := challenges.Today(ctx, now)
			if err != nil {
				return err
			}
			resetsIn := challenges.TimeUntilReset(now)

			rows := make([][]string, 0, len(today))
			for _, c := range today {
				done := ""
				if c.Completed {
					done = "done"
				}
				rows = append(rows, []string{
					c.Title,
					fmt.Sprintf("%d/%d", c.Progress, c.Total),
					strconv.Itoa(c.Points),
					done,
				})
			}
			return a.render(map[string]any{"challenges": today, "resets_in": resetsIn}, Table{
				Title:   "Daily challenges (resets in " + resetsIn + ")",
				Headers: []string{"Challenge", "Progress", "Points", ""},
				Rows:    rows,
			})
		}),
	}
}

func newAchievementsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "achievements",
		Short: "Show the achievements you have unlocked",
		Args:  cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, _ []string) error {
			if _, err := a.requireSession(); err != nil {
				return err
			}
			achievements, err := invoke[*service.AchievementService](a)
			if err != nil {
				return err
			}
			ctx, cancel := requestContext(cmd.Context())
			defer cancel()
			if _, err := achievements.Evaluate(ctx); err != nil {
				return err
			}
			list, err := achievements.List(ctx)
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(list))
			for _, ach := range list {
				rows = append(rows, []string{ach.Title, ach.Description, strconv.Itoa(ach.Points), ach.UnlockedAt.Format("2006-01-02")})
			}
			if list == nil {
				list = []domain.Achievement{}
			}
			return a.render(list, Table{
				Title:   "Achievements",
				Headers: []string{"Achievement", "Description", "Points", "Unlocked"},
				Rows:    rows,
				Empty:   "No achievements yet. Share an idea to get started!",
			})
		}),
	}
}

func newSearchCommand(a *app) *cobra.Command {
	var (
		params = search.DefaultParams()
		sort   string
	)

	cmd := &cobra.Command{
		Use:   "search <query>...",
		Short: "Full-text search over ideas",
		Long: `Search idea titles, descriptions, tags and authors.

Examples:
  goodaideas search solar kettle
  goodaideas search --category energy --min-rating 4 battery
  goodaideas search --sort recent --limit 5 notes`,
		Args: cobra.ArbitraryArgs,
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			params.Query = strings.Join(args, " ")
			params.Sort = search.Sort(sort)
			if !params.Sort.Valid() {
				return domainerrors.Validationf("unknown sort %q (supported: relevance, recent, popular, rating)", sort)
			}
			searchService, err := invoke[*service.SearchService](a)
			if err != nil {
				return err
			}
			ctx, cancel := requestContext(cmd.Context())
			defer cancel()
			result, err := searchService.Search(ctx, params)
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(result.Hits))
			for _, h := range result.Hits {
				rows = append(rows, []string{h.ID, h.Title, h.Author, h.Category, formatRating(h.Rating)})
			}
			return a.render(result, Table{
				Title:   fmt.Sprintf("%d results (%dms)", result.Total, result.TookMs),
				Headers: []string{"ID", "Title", "Author", "Category", "Rating"},
				Rows:    rows,
				Empty:   "No ideas match.",
			})
		}),
	}

	flags := cmd.Flags()
	flags.StringVar(&params.Category, "category", "", "only this category")
	flags.StringSliceVar(&params.Tags, "tag", nil, "any of these tags")
	flags.Float64Var(&params.MinRating, "min-rating", 0, "minimum average rating")
	flags.StringVar(&sort, "sort", string(search.SortRelevance), "order: relevance, recent, popular or rating")
	flags.IntVar(&params.Limit, "limit", params.Limit, "maximum number of results")
	flags.IntVar(&params.Offset, "offset", 0, "results to skip")
	return cmd
}
