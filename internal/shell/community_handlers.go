package shell

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/goodaideas/goodaideas/internal/domain"
	"github.com/goodaideas/goodaideas/internal/search"
)

func (s *Server) registerCommunityRoutes() {
	if s.services.Leaderboard != nil {
		huma.Register(s.api, huma.Operation{
			OperationID: "getLeaderboard",
			Method:      http.MethodGet,
			Path:        "/api/v1/leaderboard",
			Summary:     "Get leaderboard",
			Description: "Ranks users by points, with the rank change since the previous fetch",
			Tags:        []string{"Community"},
		}, s.handleGetLeaderboard)
	}

	if s.services.Challenges != nil {
		huma.Register(s.api, huma.Operation{
			OperationID: "getChallenges",
			Method:      http.MethodGet,
			Path:        "/api/v1/challenges",
			Summary:     "Get today's challenges",
			Tags:        []string{"Community"},
		}, s.handleGetChallenges)
	}

	if s.services.Activity != nil {
		huma.Register(s.api, huma.Operation{
			OperationID: "getActivity",
			Method:      http.MethodGet,
			Path:        "/api/v1/activity",
			Summary:     "Get recent activity",
			Description: "The community activity feed, newest first",
			Tags:        []string{"Community"},
		}, s.handleGetActivity)
	}

	if s.services.Search != nil {
		huma.Register(s.api, huma.Operation{
			OperationID: "searchIdeas",
			Method:      http.MethodGet,
			Path:        "/api/v1/search",
			Summary:     "Search ideas",
			Description: "Full-text search over titles, descriptions, tags and authors",
			Tags:        []string{"Search"},
		}, s.handleSearch)
	}
}

// === DTOs ===

// LeaderboardInput contains query parameters for the leaderboard.
type LeaderboardInput struct {
	Limit int `query:"limit" minimum:"0" maximum:"100" doc:"Max entries (default 10)"`
}

// LeaderboardOutput wraps leaderboard entries for Huma.
type LeaderboardOutput struct {
	Body struct {
		Entries []domain.LeaderboardEntry `json:"entries"`
	}
}

// ChallengesOutput wraps the day's challenges for Huma.
type ChallengesOutput struct {
	Body struct {
		Challenges []domain.Challenge `json:"challenges"`
		ResetsIn   string             `json:"resets_in" doc:"Time left until reset, HH:MM:SS"`
	}
}

// ActivityInput contains query parameters for the activity feed.
type ActivityInput struct {
	Limit int `query:"limit" minimum:"0" maximum:"100" doc:"Max entries (default 20)"`
}

// ActivityOutput wraps feed entries for Huma.
type ActivityOutput struct {
	Body struct {
		Activity []ActivityEntry `json:"activity"`
	}
}

// ActivityEntry is a feed entry with its rendered summary.
type ActivityEntry struct {
	domain.Activity
	Summary string `json:"summary" doc:"What the author did"`
}

// SearchInput contains query parameters for search.
type SearchInput struct {
	Query     string   `query:"q" doc:"Search query"`
	Category  string   `query:"category" doc:"Exact category"`
	Tags      []string `query:"tags" doc:"Any of these tags"`
	MinRating float64  `query:"min_rating" minimum:"0" maximum:"5" doc:"Minimum rating"`
	Sort      string   `query:"sort" enum:"relevance,recent,popular,rating" doc:"Ordering (default relevance)"`
	Limit     int      `query:"limit" minimum:"0" maximum:"100" doc:"Max hits (default 20)"`
	Offset    int      `query:"offset" minimum:"0" doc:"Hits to skip"`
}

// SearchOutput wraps a search result for Huma.
type SearchOutput struct {
	Body *search.Result
}

// === Handlers ===

func (s *Server) handleGetLeaderboard(ctx context.Context, input *LeaderboardInput) (*LeaderboardOutput, error) {
	limit := input.Limit
	if limit == 0 {
		limit = 10
	}
	entries, err := s.services.Leaderboard.Top(ctx, limit)
	if err != nil {
		return nil, apiError(err)
	}
	out := &LeaderboardOutput{}
	out.Body.Entries = entries
	if out.Body.Entries == nil {
		out.Body.Entries = []domain.LeaderboardEntry{}
	}
	return out, nil
}

func (s *Server) handleGetChallenges(ctx context.Context, _ *struct{}) (*ChallengesOutput, error) {
	now := s.now()
	challenges, err := s.services.Challenges.Today(ctx, now)
	if err != nil {
		return nil, apiError(err)
	}
	out := &ChallengesOutput{}
	out.Body.Challenges = challenges
	out.Body.ResetsIn = s.services.Challenges.TimeUntilReset(now)
	return out, nil
}

func (s *Server) handleGetActivity(ctx context.Context, input *ActivityInput) (*ActivityOutput, error) {
	items, err := s.services.Activity.Recent(ctx, input.Limit)
	if err != nil {
		return nil, apiError(err)
	}
	out := &ActivityOutput{}
	out.Body.Activity = make([]ActivityEntry, len(items))
	for i, a := range items {
		out.Body.Activity[i] = ActivityEntry{Activity: a, Summary: a.Summary()}
	}
	return out, nil
}

func (s *Server) handleSearch(ctx context.Context, input *SearchInput) (*SearchOutput, error) {
	params := search.DefaultParams()
	params.Query = input.Query
	params.Category = input.Category
	params.Tags = input.Tags
	params.MinRating = input.MinRating
	params.Offset = input.Offset
	if input.Sort != "" {
		params.Sort = search.Sort(input.Sort)
	}
	if input.Limit > 0 {
		params.Limit = input.Limit
	}

	result, err := s.services.Search.Search(ctx, params)
	if err != nil {
		return nil, apiError(err)
	}
	return &SearchOutput{Body: result}, nil
}
