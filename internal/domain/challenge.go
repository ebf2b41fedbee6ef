package domain

import (
	"fmt"
	"time"
)

// ChallengeKind identifies a daily challenge.
type ChallengeKind string

// Daily challenge kinds.
const (
	ChallengeRate    ChallengeKind = "rate"
	ChallengeShare   ChallengeKind = "share"
	ChallengeComment ChallengeKind = "comment"
)

// Challenge is a per-day goal that awards points once completed.
type Challenge struct {
	ID          string        `json:"id"`
	UserID      string        `json:"user_id,omitempty"`
	Kind        ChallengeKind `json:"kind"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Points      int           `json:"points"`
	Progress    int           `json:"progress"`
	Total       int           `json:"total"`
	Completed   bool          `json:"completed"`
	Date        string        `json:"date"`
}

// Advance returns the challenge after one more unit of progress and
// whether this step completed it.
func (c Challenge) Advance() (Challenge, bool) {
	if c.Completed {
		return c, false
	}
	c.Progress = min(c.Progress+1, c.Total)
	if c.Progress >= c.Total {
		c.Completed = true
		return c, true
	}
	return c, false
}

// DefaultChallenges returns the three challenges offered on a day with no
// stored progress.
func DefaultChallenges(date string) []Challenge {
	return []Challenge{
		{ID: string(ChallengeRate), Kind: ChallengeRate, Title: "Rate 3 Ideas", Description: "Rate some ideas to help the community", Points: 50, Total: 3, Date: date},
		{ID: string(ChallengeShare), Kind: ChallengeShare, Title: "Share an Idea", Description: "Share your innovative AI idea", Points: 100, Total: 1, Date: date},
		{ID: string(ChallengeComment), Kind: ChallengeComment, Title: "Comment on Ideas", Description: "Engage with the community", Points: 75, Total: 5, Date: date},
	}
}

// ChallengeDate formats the calendar day challenges are keyed by.
func ChallengeDate(t time.Time) string {
	return t.Format(time.DateOnly)
}

// UntilReset formats the time left until the next local midnight as HH:MM:SS.
func UntilReset(now time.Time) string {
	y, m, d := now.Date()
	midnight := time.Date(y, m, d+1, 0, 0, 0, 0, now.Location())
	left := int(midnight.Sub(now) / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", left/3600, (left%3600)/60, left%60)
}

// Achievement is a one-time milestone.
type Achievement struct {
	ID          string    `json:"id,omitempty"`
	UserID      string    `json:"user_id,omitempty"`
	Key         string    `json:"achievement"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Points      int       `json:"points"`
	UnlockedAt  time.Time `json:"unlocked_at"`
}

// LeaderboardEntry is one row of the points ranking.
type LeaderboardEntry struct {
	Rank       int    `json:"rank"`
	UserID     string `json:"id"`
	Username   string `json:"username"`
	AvatarURL  string `json:"avatar_url,omitempty"`
	Points     int    `json:"points"`
	IdeasCount int    `json:"ideas_count"`
	// RankChange is positive when the user moved up since the previous fetch.
	RankChange int `json:"rank_change"`
}
