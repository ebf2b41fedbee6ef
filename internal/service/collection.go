package service

import (
	"context"
	"log/slog"

	"github.com/goodaideas/goodaideas/internal/backend"
	"github.com/goodaideas/goodaideas/internal/domain"
	domainerrors "github.com/goodaideas/goodaideas/internal/errors"
	"github.com/goodaideas/goodaideas/internal/state"
	"github.com/goodaideas/goodaideas/internal/wire"
)

// CollectionService edits the signed-in user's collections. Every edit is
// applied to the store first and undone there if the collaborator rejects
// it.
type CollectionService struct {
	rows   backend.Rows
	store  *state.Store
	logger *slog.Logger
}

// NewCollectionService creates a collection service.
func NewCollectionService(rows backend.Rows, store *state.Store, logger *slog.Logger) *CollectionService {
	return &CollectionService{
		rows:   rows,
		store:  store,
		logger: logger,
	}
}

// List returns the collections held by the store.
func (s *CollectionService) List() []domain.Collection {
	return s.store.Snapshot().Collections
}

// Create adds an empty collection.
func (s *CollectionService) Create(ctx context.Context, name string) (domain.Collection, error) {
	if _, err := requireUser(s.store, "Please log in to create collections"); err != nil {
		return domain.Collection{}, err
	}
	c, err := s.store.CreateCollection(name)
	if err != nil {
		return domain.Collection{}, err
	}

	if err := s.save(ctx, c); err != nil {
		if _, derr := s.store.DeleteCollection(c.ID); derr != nil {
			s.logger.Warn("failed to roll back collection", "collection_id", c.ID, "error", derr)
		}
		return domain.Collection{}, s.failed("create", c.ID, err)
	}
	return c, nil
}

// Add puts ideaID in a collection. Adding an idea already present is a
// no-op.
func (s *CollectionService) Add(ctx context.Context, collectionID, ideaID string) (domain.Collection, error) {
	return s.edit(ctx, "add", collectionID, func() (domain.Collection, bool, error) {
		return s.store.AddToCollection(collectionID, ideaID)
	})
}

// Remove takes ideaID out of a collection.
func (s *CollectionService) Remove(ctx context.Context, collectionID, ideaID string) (domain.Collection, error) {
	return s.edit(ctx, "remove", collectionID, func() (domain.Collection, bool, error) {
		return s.store.RemoveFromCollection(collectionID, ideaID)
	})
}

// Delete drops a collection.
func (s *CollectionService) Delete(ctx context.Context, collectionID string) error {
	if _, err := requireUser(s.store, "Please log in to edit collections"); err != nil {
		return err
	}
	removed, err := s.store.DeleteCollection(collectionID)
	if err != nil {
		return err
	}

	err = s.rows.Delete(ctx, state.TableCollections, []backend.Filter{backend.Eq("id", collectionID)})
	if err != nil {
		s.store.PutCollection(removed)
		return s.failed("delete", collectionID, err)
	}
	return nil
}

func (s *CollectionService) edit(ctx context.Context, op, collectionID string, apply func() (domain.Collection, bool, error)) (domain.Collection, error) {
	if _, err := requireUser(s.store, "Please log in to edit collections"); err != nil {
		return domain.Collection{}, err
	}
	prev, ok := s.store.Snapshot().Collection(collectionID)
	if !ok {
		return domain.Collection{}, domainerrors.NotFound("Collection not found")
	}

	next, changed, err := apply()
	if err != nil || !changed {
		return next, err
	}
	if err := s.save(ctx, next); err != nil {
		s.store.PutCollection(prev)
		return prev, s.failed(op, collectionID, err)
	}
	return next, nil
}

func (s *CollectionService) save(ctx context.Context, c domain.Collection) error {
	_, err := s.rows.Upsert(ctx, state.TableCollections, wire.EncodeCollection(c), "id")
	return err
}

// failed logs a rejected edit and raises an error notice.
func (s *CollectionService) failed(op, collectionID string, err error) error {
	s.logger.Error("collection update failed", "op", op, "collection_id", collectionID, "error", err)
	s.store.AddNotification(domain.NotifyError, "Failed to update collection")
	return err
}
