package domain

import "time"

// TeamMessage is one chat line in a team workspace.
type TeamMessage struct {
	ID        string    `json:"id"`
	TeamID    string    `json:"team_id"`
	UserID    string    `json:"user_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	Author    *Author   `json:"author,omitempty"`
}

// Key identifies the message for de-duplication.
func (m TeamMessage) Key() string { return m.ID }
