// Package search provides offline full-text search over fetched ideas using
// Bleve, with category and tag facets and typo-tolerant title matching.
package search

import (
	"github.com/goodaideas/goodaideas/internal/domain"
)

// IdeaDocument is the shape of an idea in the index. Author names are
// denormalized so a single query covers title, body and author.
type IdeaDocument struct {
	ID          string
	Title       string
	Description string
	Author      string
	Category    string
	Tags        []string
	Rating      float64
	Favorites   int
	CreatedAt   int64 // Unix millis
}

// NewIdeaDocument builds the index document for idea.
func NewIdeaDocument(idea domain.Idea) *IdeaDocument {
	doc := &IdeaDocument{
		ID:          idea.ID,
		Title:       idea.Title,
		Description: idea.Description,
		Category:    idea.Category,
		Tags:        idea.Tags,
		Rating:      idea.Rating,
		Favorites:   idea.FavoritesCount,
		CreatedAt:   idea.CreatedAt.UnixMilli(),
	}
	if idea.Author != nil {
		doc.Author = idea.Author.Username
	}
	return doc
}

// ToMap converts the document to the lowercase field names of the mapping.
func (d *IdeaDocument) ToMap() map[string]any {
	m := map[string]any{
		"id":         d.ID,
		"title":      d.Title,
		"rating":     d.Rating,
		"favorites":  d.Favorites,
		"created_at": d.CreatedAt,
	}
	if d.Description != "" {
		m["description"] = d.Description
	}
	if d.Author != "" {
		m["author"] = d.Author
	}
	if d.Category != "" {
		m["category"] = d.Category
	}
	if len(d.Tags) > 0 {
		m["tags"] = d.Tags
	}
	return m
}
