package state

import (
	"slices"
	"strings"

	"github.com/goodaideas/goodaideas/internal/domain"
	domainerrors "github.com/goodaideas/goodaideas/internal/errors"
	"github.com/goodaideas/goodaideas/internal/id"
)

// CreateCollection appends a new empty collection owned by the current
// session's user.
func (s *Store) CreateCollection(name string) (domain.Collection, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Collection{}, domainerrors.Validation("Collection name is required")
	}

	var c domain.Collection
	s.mutate("create_collection", func(st *Snapshot) bool {
		c = domain.Collection{
			ID:        id.NewUUID(),
			UserID:    st.Session.UserID(),
			Name:      name,
			IdeaIDs:   []string{},
			CreatedAt: s.now(),
		}
		st.Collections = append(slices.Clone(st.Collections), c)
		return true
	})
	return c, nil
}

// AddToCollection adds ideaID to a collection, keeping it an ordered set.
// It reports whether the idea was newly added.
func (s *Store) AddToCollection(collectionID, ideaID string) (domain.Collection, bool, error) {
	return s.editCollection("add_to_collection", collectionID, func(c domain.Collection) (domain.Collection, bool) {
		return c.WithIdea(ideaID)
	})
}

// RemoveFromCollection removes ideaID from a collection.
func (s *Store) RemoveFromCollection(collectionID, ideaID string) (domain.Collection, bool, error) {
	return s.editCollection("remove_from_collection", collectionID, func(c domain.Collection) (domain.Collection, bool) {
		return c.WithoutIdea(ideaID)
	})
}

// DeleteCollection drops a collection.
func (s *Store) DeleteCollection(collectionID string) (domain.Collection, error) {
	var (
		removed domain.Collection
		found   bool
	)
	s.mutate("delete_collection", func(st *Snapshot) bool {
		i := slices.IndexFunc(st.Collections, func(c domain.Collection) bool { return c.ID == collectionID })
		if i < 0 {
			return false
		}
		removed, found = st.Collections[i], true
		st.Collections = slices.Delete(slices.Clone(st.Collections), i, i+1)
		return true
	})
	if !found {
		return domain.Collection{}, domainerrors.NotFound("Collection not found")
	}
	return removed, nil
}

// PutCollection inserts or replaces a collection by id, for rolling back
// an optimistic edit or applying a confirmed row.
func (s *Store) PutCollection(c domain.Collection) {
	s.mutate("put_collection", func(st *Snapshot) bool {
		cols := slices.Clone(st.Collections)
		if i := slices.IndexFunc(cols, func(x domain.Collection) bool { return x.ID == c.ID }); i >= 0 {
			cols[i] = c
		} else {
			cols = append(cols, c)
		}
		st.Collections = cols
		return true
	})
}

// ReplaceCollections swaps in a full collection list.
func (s *Store) ReplaceCollections(cols []domain.Collection) {
	s.mutate("replace_collections", func(st *Snapshot) bool {
		st.Collections = slices.Clone(cols)
		if st.Collections == nil {
			st.Collections = []domain.Collection{}
		}
		return true
	})
}

func (s *Store) editCollection(op, collectionID string, edit func(domain.Collection) (domain.Collection, bool)) (domain.Collection, bool, error) {
	var (
		out     domain.Collection
		found   bool
		changed bool
	)
	s.mutate(op, func(st *Snapshot) bool {
		i := slices.IndexFunc(st.Collections, func(c domain.Collection) bool { return c.ID == collectionID })
		if i < 0 {
			return false
		}
		found = true
		out, changed = edit(st.Collections[i])
		if !changed {
			return false
		}
		cols := slices.Clone(st.Collections)
		cols[i] = out
		st.Collections = cols
		return true
	})
	if !found {
		return domain.Collection{}, false, domainerrors.NotFound("Collection not found")
	}
	return out, changed, nil
}
