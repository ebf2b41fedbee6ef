package domain

import (
	"slices"
	"time"
)

// Collection is a user-owned, ordered set of saved ideas.
type Collection struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	IdeaIDs   []string  `json:"idea_ids"`
	CreatedAt time.Time `json:"created_at"`
}

// Contains reports whether ideaID is in the collection.
func (c Collection) Contains(ideaID string) bool {
	return slices.Contains(c.IdeaIDs, ideaID)
}

// WithIdea returns a copy with ideaID appended, and false when it was
// already present.
func (c Collection) WithIdea(ideaID string) (Collection, bool) {
	if c.Contains(ideaID) {
		return c, false
	}
	c.IdeaIDs = append(slices.Clone(c.IdeaIDs), ideaID)
	return c, true
}

// WithoutIdea returns a copy with ideaID removed, and false when it was
// not present.
func (c Collection) WithoutIdea(ideaID string) (Collection, bool) {
	i := slices.Index(c.IdeaIDs, ideaID)
	if i < 0 {
		return c, false
	}
	c.IdeaIDs = slices.Delete(slices.Clone(c.IdeaIDs), i, i+1)
	return c, true
}
