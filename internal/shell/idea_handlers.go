package shell

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/goodaideas/goodaideas/internal/domain"
	"github.com/goodaideas/goodaideas/internal/moderation"
	"github.com/goodaideas/goodaideas/internal/service"
)

func (s *Server) registerIdeaRoutes() {
	if s.services.Ideas == nil {
		return
	}

	huma.Register(s.api, huma.Operation{
		OperationID: "listIdeas",
		Method:      http.MethodGet,
		Path:        "/api/v1/ideas",
		Summary:     "List ideas",
		Description: "Lists ideas, optionally filtered by category or tags",
		Tags:        []string{"Ideas"},
	}, s.handleListIdeas)

	huma.Register(s.api, huma.Operation{
		OperationID: "getIdea",
		Method:      http.MethodGet,
		Path:        "/api/v1/ideas/{id}",
		Summary:     "Get idea",
		Description: "Returns an idea with its rating, comment and favorite aggregates",
		Tags:        []string{"Ideas"},
	}, s.handleGetIdea)

	huma.Register(s.api, huma.Operation{
		OperationID:   "createIdea",
		Method:        http.MethodPost,
		Path:          "/api/v1/ideas",
		Summary:       "Create idea",
		Tags:          []string{"Ideas"},
		DefaultStatus: http.StatusCreated,
	}, s.handleCreateIdea)

	huma.Register(s.api, huma.Operation{
		OperationID: "rateIdea",
		Method:      http.MethodPost,
		Path:        "/api/v1/ideas/{id}/rating",
		Summary:     "Rate idea",
		Description: "Sets the caller's 1-5 rating and returns the new average",
		Tags:        []string{"Ideas"},
	}, s.handleRateIdea)

	huma.Register(s.api, huma.Operation{
		OperationID: "toggleFavorite",
		Method:      http.MethodPost,
		Path:        "/api/v1/ideas/{id}/favorite",
		Summary:     "Toggle favorite",
		Tags:        []string{"Ideas"},
	}, s.handleToggleFavorite)

	huma.Register(s.api, huma.Operation{
		OperationID: "shareIdea",
		Method:      http.MethodGet,
		Path:        "/api/v1/ideas/{id}/share",
		Summary:     "Get share text",
		Tags:        []string{"Ideas"},
	}, s.handleShareIdea)

	if s.services.Comments == nil {
		return
	}

	huma.Register(s.api, huma.Operation{
		OperationID: "listIdeaVersions",
		Method:      http.MethodGet,
		Path:        "/api/v1/ideas/{id}/versions",
		Summary:     "List idea versions",
		Description: "Returns the idea's saved revisions, newest first",
		Tags:        []string{"Ideas"},
	}, s.handleListVersions)

	huma.Register(s.api, huma.Operation{
		OperationID: "listComments",
		Method:      http.MethodGet,
		Path:        "/api/v1/ideas/{id}/comments",
		Summary:     "List comments",
		Tags:        []string{"Comments"},
	}, s.handleListComments)

	huma.Register(s.api, huma.Operation{
		OperationID:   "addComment",
		Method:        http.MethodPost,
		Path:          "/api/v1/ideas/{id}/comments",
		Summary:       "Add comment",
		Tags:          []string{"Comments"},
		DefaultStatus: http.StatusCreated,
	}, s.handleAddComment)
}

// === DTOs ===

// ListIdeasInput contains query parameters for listing ideas.
type ListIdeasInput struct {
	Category string   `query:"category" doc:"Exact category"`
	Tags     []string `query:"tags" doc:"Any of these tags"`
	Author   string   `query:"author" doc:"Only ideas by this user ID"`
	Sort     string   `query:"sort" enum:"recent,popular,rating" doc:"Ordering (default recent)"`
	Limit    int      `query:"limit" minimum:"0" maximum:"100" doc:"Max ideas to return (default 50)"`
}

// ListIdeasOutput wraps a list of ideas for Huma.
type ListIdeasOutput struct {
	Body ListIdeasResponse
}

// ListIdeasResponse is a page of ideas.
type ListIdeasResponse struct {
	Ideas []domain.Idea `json:"ideas"`
	Total int           `json:"total"`
}

// IdeaPathInput identifies an idea.
type IdeaPathInput struct {
	ID string `path:"id" doc:"Idea ID"`
}

// IdeaDetailOutput wraps an idea detail for Huma.
type IdeaDetailOutput struct {
	Body *domain.IdeaDetail
}

// CreateIdeaInput wraps an idea draft for Huma.
type CreateIdeaInput struct {
	Body service.CreateIdeaInput
}

// IdeaOutput wraps an idea for Huma.
type IdeaOutput struct {
	Body *domain.Idea
}

// RateIdeaInput carries a rating.
type RateIdeaInput struct {
	ID   string `path:"id" doc:"Idea ID"`
	Body struct {
		Score int `json:"score" doc:"Rating from 1 to 5"`
	}
}

// RatingOutput returns the new average.
type RatingOutput struct {
	Body struct {
		Average float64 `json:"average" doc:"Average rating after this one"`
	}
}

// FavoriteOutput reports whether the idea is now a favorite.
type FavoriteOutput struct {
	Body struct {
		Favorite bool `json:"favorite"`
	}
}

// ShareOutput wraps share text for Huma.
type ShareOutput struct {
	Body moderation.Share
}

// VersionsOutput wraps an idea's revisions for Huma.
type VersionsOutput struct {
	Body struct {
		Versions []domain.IdeaVersion `json:"versions"`
	}
}

// CommentsOutput wraps comments for Huma.
type CommentsOutput struct {
	Body struct {
		Comments []domain.Comment `json:"comments"`
	}
}

// AddCommentInput carries a new comment.
type AddCommentInput struct {
	ID   string `path:"id" doc:"Idea ID"`
	Body struct {
		Content string `json:"content" doc:"Comment text"`
	}
}

// CommentOutput wraps a comment for Huma.
type CommentOutput struct {
	Body *domain.Comment
}

// === Handlers ===

func (s *Server) handleListIdeas(ctx context.Context, input *ListIdeasInput) (*ListIdeasOutput, error) {
	ideas, err := s.services.Ideas.List(ctx, domain.IdeaFilter{
		Category: input.Category,
		Tags:     input.Tags,
		UserID:   input.Author,
		Sort:     domain.IdeaSort(input.Sort),
		Limit:    input.Limit,
	})
	if err != nil {
		return nil, apiError(err)
	}
	if ideas == nil {
		ideas = []domain.Idea{}
	}
	return &ListIdeasOutput{Body: ListIdeasResponse{Ideas: ideas, Total: len(ideas)}}, nil
}

func (s *Server) handleGetIdea(ctx context.Context, input *IdeaPathInput) (*IdeaDetailOutput, error) {
	detail, err := s.services.Ideas.Get(ctx, input.ID)
	if err != nil {
		return nil, apiError(err)
	}
	return &IdeaDetailOutput{Body: detail}, nil
}

func (s *Server) handleCreateIdea(ctx context.Context, input *CreateIdeaInput) (*IdeaOutput, error) {
	idea, err := s.services.Ideas.Create(ctx, input.Body)
	if err != nil {
		return nil, apiError(err)
	}
	return &IdeaOutput{Body: idea}, nil
}

func (s *Server) handleRateIdea(ctx context.Context, input *RateIdeaInput) (*RatingOutput, error) {
	avg, err := s.services.Ideas.Rate(ctx, input.ID, input.Body.Score)
	if err != nil {
		return nil, apiError(err)
	}
	out := &RatingOutput{}
	out.Body.Average = avg
	return out, nil
}

func (s *Server) handleToggleFavorite(ctx context.Context, input *IdeaPathInput) (*FavoriteOutput, error) {
	fav, err := s.services.Ideas.ToggleFavorite(ctx, input.ID)
	if err != nil {
		return nil, apiError(err)
	}
	out := &FavoriteOutput{}
	out.Body.Favorite = fav
	return out, nil
}

func (s *Server) handleShareIdea(ctx context.Context, input *IdeaPathInput) (*ShareOutput, error) {
	share, err := s.services.Ideas.ShareText(ctx, input.ID, s.baseURL)
	if err != nil {
		return nil, apiError(err)
	}
	return &ShareOutput{Body: share}, nil
}

func (s *Server) handleListVersions(ctx context.Context, input *IdeaPathInput) (*VersionsOutput, error) {
	versions, err := s.services.Ideas.Versions(ctx, input.ID)
	if err != nil {
		return nil, apiError(err)
	}
	out := &VersionsOutput{}
	out.Body.Versions = versions
	if out.Body.Versions == nil {
		out.Body.Versions = []domain.IdeaVersion{}
	}
	return out, nil
}

func (s *Server) handleListComments(ctx context.Context, input *IdeaPathInput) (*CommentsOutput, error) {
	comments, err := s.services.Comments.List(ctx, input.ID)
	if err != nil {
		return nil, apiError(err)
	}
	out := &CommentsOutput{}
	out.Body.Comments = comments
	if out.Body.Comments == nil {
		out.Body.Comments = []domain.Comment{}
	}
	return out, nil
}

func (s *Server) handleAddComment(ctx context.Context, input *AddCommentInput) (*CommentOutput, error) {
	c, err := s.services.Comments.Add(ctx, input.ID, input.Body.Content)
	if err != nil {
		return nil, apiError(err)
	}
	return &CommentOutput{Body: c}, nil
}
