package shell

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/goodaideas/goodaideas/internal/domain"
)

func (s *Server) registerCollectionRoutes() {
	if s.services.Collections == nil {
		return
	}

	huma.Register(s.api, huma.Operation{
		OperationID: "listCollections",
		Method:      http.MethodGet,
		Path:        "/api/v1/collections",
		Summary:     "List collections",
		Tags:        []string{"Collections"},
	}, s.handleListCollections)

	huma.Register(s.api, huma.Operation{
		OperationID:   "createCollection",
		Method:        http.MethodPost,
		Path:          "/api/v1/collections",
		Summary:       "Create collection",
		Tags:          []string{"Collections"},
		DefaultStatus: http.StatusCreated,
	}, s.handleCreateCollection)

	huma.Register(s.api, huma.Operation{
		OperationID: "addToCollection",
		Method:      http.MethodPost,
		Path:        "/api/v1/collections/{id}/ideas",
		Summary:     "Add idea to collection",
		Tags:        []string{"Collections"},
	}, s.handleAddToCollection)

	huma.Register(s.api, huma.Operation{
		OperationID: "removeFromCollection",
		Method:      http.MethodDelete,
		Path:        "/api/v1/collections/{id}/ideas/{ideaId}",
		Summary:     "Remove idea from collection",
		Tags:        []string{"Collections"},
	}, s.handleRemoveFromCollection)

	huma.Register(s.api, huma.Operation{
		OperationID:   "deleteCollection",
		Method:        http.MethodDelete,
		Path:          "/api/v1/collections/{id}",
		Summary:       "Delete collection",
		Tags:          []string{"Collections"},
		DefaultStatus: http.StatusNoContent,
	}, s.handleDeleteCollection)
}

// === DTOs ===

// CollectionsOutput wraps collections for Huma.
type CollectionsOutput struct {
	Body struct {
		Collections []domain.Collection `json:"collections"`
	}
}

// CreateCollectionInput carries a collection name.
type CreateCollectionInput struct {
	Body struct {
		Name string `json:"name" doc:"Collection name"`
	}
}

// CollectionOutput wraps a collection for Huma.
type CollectionOutput struct {
	Body domain.Collection
}

// AddToCollectionInput adds an idea to a collection.
type AddToCollectionInput struct {
	ID   string `path:"id" doc:"Collection ID"`
	Body struct {
		IdeaID string `json:"idea_id" doc:"Idea ID"`
	}
}

// RemoveFromCollectionInput removes an idea from a collection.
type RemoveFromCollectionInput struct {
	ID     string `path:"id" doc:"Collection ID"`
	IdeaID string `path:"ideaId" doc:"Idea ID"`
}

// CollectionPathInput identifies a collection.
type CollectionPathInput struct {
	ID string `path:"id" doc:"Collection ID"`
}

// === Handlers ===

func (s *Server) handleListCollections(_ context.Context, _ *struct{}) (*CollectionsOutput, error) {
	out := &CollectionsOutput{}
	out.Body.Collections = s.services.Collections.List()
	if out.Body.Collections == nil {
		out.Body.Collections = []domain.Collection{}
	}
	return out, nil
}

func (s *Server) handleCreateCollection(ctx context.Context, input *CreateCollectionInput) (*CollectionOutput, error) {
	c, err := s.services.Collections.Create(ctx, input.Body.Name)
	if err != nil {
		return nil, apiError(err)
	}
	return &CollectionOutput{Body: c}, nil
}

func (s *Server) handleAddToCollection(ctx context.Context, input *AddToCollectionInput) (*CollectionOutput, error) {
	c, err := s.services.Collections.Add(ctx, input.ID, input.Body.IdeaID)
	if err != nil {
		return nil, apiError(err)
	}
	return &CollectionOutput{Body: c}, nil
}

func (s *Server) handleRemoveFromCollection(ctx context.Context, input *RemoveFromCollectionInput) (*CollectionOutput, error) {
	c, err := s.services.Collections.Remove(ctx, input.ID, input.IdeaID)
	if err != nil {
		return nil, apiError(err)
	}
	return &CollectionOutput{Body: c}, nil
}

func (s *Server) handleDeleteCollection(ctx context.Context, input *CollectionPathInput) (*struct{}, error) {
	if err := s.services.Collections.Delete(ctx, input.ID); err != nil {
		return nil, apiError(err)
	}
	return nil, nil
}
