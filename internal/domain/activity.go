package domain

import (
	"fmt"
	"time"
)

// ActivityType names what a feed entry records.
type ActivityType string

// Activity types.
const (
	ActivityComment     ActivityType = "comment"
	ActivityLike        ActivityType = "like"
	ActivityRating      ActivityType = "rating"
	ActivityFollow      ActivityType = "follow"
	ActivityAchievement ActivityType = "achievement"
	ActivityIdea        ActivityType = "idea"
)

// Activity is one entry of the community activity feed. Content holds
// type-specific details such as idea_title or rating.
type Activity struct {
	ID        string         `json:"id"`
	UserID    string         `json:"user_id"`
	Type      ActivityType   `json:"type"`
	Content   map[string]any `json:"content"`
	CreatedAt time.Time      `json:"created_at"`
	Author    *Author        `json:"author,omitempty"`
}

// Summary describes the activity as done by its author.
func (a Activity) Summary() string {
	switch a.Type {
	case ActivityComment:
		return fmt.Sprintf(`commented on "%s"`, a.detail("idea_title"))
	case ActivityLike:
		return fmt.Sprintf(`liked "%s"`, a.detail("idea_title"))
	case ActivityRating:
		return fmt.Sprintf(`rated "%s" %s stars`, a.detail("idea_title"), a.detail("rating"))
	case ActivityFollow:
		return "started following " + a.detail("followed_user")
	case ActivityAchievement:
		return fmt.Sprintf(`earned the "%s" achievement`, a.detail("achievement_title"))
	case ActivityIdea:
		return fmt.Sprintf(`shared a new idea: "%s"`, a.detail("idea_title"))
	default:
		return "performed an action"
	}
}

func (a Activity) detail(key string) string {
	switch v := a.Content[key].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}
