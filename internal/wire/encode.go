package wire

import (
	"time"

	"github.com/goodaideas/goodaideas/internal/backend"
	"github.com/goodaideas/goodaideas/internal/domain"
)

// EncodeRemoteSettings builds the full user_settings row for s.
func EncodeRemoteSettings(userID string, s domain.Settings, now time.Time) backend.Row {
	return backend.Row{
		"user_id":   userID,
		"theme":     string(s.Theme),
		"font_size": string(s.FontSize),
		"notifications": map[string]any{
			"email": s.Channels.Email,
			"push":  s.Channels.Push,
			"inApp": s.Channels.InApp,
		},
		"accessibility": map[string]any{
			"reduceMotion": s.Accessibility.ReduceMotion,
			"highContrast": s.Accessibility.HighContrast,
		},
		"updated_at": Timestamp(now),
	}
}

// EncodeCollection builds a collections row.
func EncodeCollection(c domain.Collection) backend.Row {
	ids := make([]any, len(c.IdeaIDs))
	for i, v := range c.IdeaIDs {
		ids[i] = v
	}
	return backend.Row{
		"id":         c.ID,
		"user_id":    c.UserID,
		"name":       c.Name,
		"idea_ids":   ids,
		"created_at": Timestamp(c.CreatedAt),
	}
}

// EncodeIdea builds the insert row for a new idea. Counters start at zero.
func EncodeIdea(i domain.Idea) backend.Row {
	tags := make([]any, len(i.Tags))
	for n, t := range i.Tags {
		tags[n] = t
	}
	return backend.Row{
		"user_id":         i.UserID,
		"title":           i.Title,
		"description":     i.Description,
		"category":        i.Category,
		"tags":            tags,
		"rating":          0,
		"favorites_count": 0,
		"comments_count":  0,
		"views_count":     0,
	}
}

// EncodeChallenge builds a daily_challenges row.
func EncodeChallenge(c domain.Challenge) backend.Row {
	row := backend.Row{
		"user_id":     c.UserID,
		"type":        string(c.Kind),
		"title":       c.Title,
		"description": c.Description,
		"points":      c.Points,
		"progress":    c.Progress,
		"total":       c.Total,
		"completed":   c.Completed,
		"date":        c.Date,
	}
	if c.ID != "" {
		row["id"] = c.ID
	}
	return row
}
