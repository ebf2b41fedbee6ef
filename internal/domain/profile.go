package domain

import "time"

// Profile is the public record of a user, the users row keyed by the
// session's user id.
type Profile struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	Points    int       `json:"points"`
	CreatedAt time.Time `json:"created_at"`
}

// DisplayName returns the username, or a fallback for profiles created
// before a username was chosen.
func (p *Profile) DisplayName() string {
	if p == nil || p.Username == "" {
		return "Anonymous"
	}
	return p.Username
}

// Initials returns up to two upper-case letters for avatar placeholders.
func (p *Profile) Initials() string {
	name := []rune(p.DisplayName())
	if len(name) > 2 {
		name = name[:2]
	}
	out := make([]rune, 0, len(name))
	for _, r := range name {
		if r >= 'a' && r <= 'z' {
			r -= 'a' - 'A'
		}
		out = append(out, r)
	}
	return string(out)
}
