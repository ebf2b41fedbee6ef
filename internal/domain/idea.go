package domain

import (
	"fmt"
	"slices"
	"time"
)

// IdeaSort orders idea listings.
type IdeaSort string

// Listing orders.
const (
	SortRecent  IdeaSort = "recent"
	SortPopular IdeaSort = "popular"
	SortRating  IdeaSort = "rating"
)

// Valid reports whether s is a known ordering.
func (s IdeaSort) Valid() bool {
	return s == SortRecent || s == SortPopular || s == SortRating
}

// Idea is a shared idea post.
type Idea struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	Category       string    `json:"category"`
	Tags           []string  `json:"tags"`
	Rating         float64   `json:"rating"`
	FavoritesCount int       `json:"favorites_count"`
	CommentsCount  int       `json:"comments_count"`
	ViewsCount     int       `json:"views_count"`
	CreatedAt      time.Time `json:"created_at"`
	Author         *Author   `json:"author,omitempty"`
}

// Author is the embedded author summary on ideas and comments.
type Author struct {
	Username  string `json:"username"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// IdeaDetail is an idea with the aggregates shown on its page.
type IdeaDetail struct {
	Idea
	AverageRating float64 `json:"average_rating"`
	RatingCount   int     `json:"rating_count"`
	CommentCount  int     `json:"comment_count"`
	IsFavorite    bool    `json:"is_favorite"`
	UserRating    int     `json:"user_rating,omitempty"`
}

// IdeaFilter narrows an idea listing.
type IdeaFilter struct {
	Category string
	Tags     []string
	UserID   string
	Sort     IdeaSort
	Limit    int
}

// Comment is a remark on an idea.
type Comment struct {
	ID        string    `json:"id"`
	IdeaID    string    `json:"idea_id"`
	UserID    string    `json:"user_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	Author    *Author   `json:"author,omitempty"`
}

// Rating is one user's 1-5 score of an idea.
type Rating struct {
	IdeaID string `json:"idea_id"`
	UserID string `json:"user_id"`
	Score  int    `json:"rating"`
}

// Average returns the mean score, or 0 for no ratings.
func Average(ratings []Rating) float64 {
	if len(ratings) == 0 {
		return 0
	}
	sum := 0
	for _, r := range ratings {
		sum += r.Score
	}
	return float64(sum) / float64(len(ratings))
}

// IdeaVersion is a saved revision of an idea. Changes maps each edited
// field to a description of the edit.
type IdeaVersion struct {
	ID            string         `json:"id"`
	IdeaID        string         `json:"idea_id"`
	VersionNumber int            `json:"version_number"`
	Title         string         `json:"title"`
	Description   string         `json:"description"`
	Changes       map[string]any `json:"changes,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}

// ChangeList renders Changes as sorted "field: change" lines.
func (v IdeaVersion) ChangeList() []string {
	out := make([]string, 0, len(v.Changes))
	for k, c := range v.Changes {
		out = append(out, fmt.Sprintf("%s: %v", k, c))
	}
	slices.Sort(out)
	return out
}
