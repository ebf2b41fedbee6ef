package domain

import "time"

// SessionUser is the identity a session proves.
type SessionUser struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
}

// Session is the credential issued by the collaborator's auth service.
// Apart from User.ID the store treats it as opaque.
type Session struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	TokenType    string      `json:"token_type"`
	ExpiresAt    time.Time   `json:"expires_at"`
	User         SessionUser `json:"user"`
}

// UserID returns the session's user id, or "" for a nil session.
func (s *Session) UserID() string {
	if s == nil {
		return ""
	}
	return s.User.ID
}

// Expired reports whether the access token has lapsed at now.
// A zero expiry never expires.
func (s *Session) Expired(now time.Time) bool {
	return s != nil && !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// SessionEventKind names a session lifecycle transition.
type SessionEventKind string

// Session transitions reported by the auth service.
const (
	SessionSignedIn  SessionEventKind = "SIGNED_IN"
	SessionSignedOut SessionEventKind = "SIGNED_OUT"
	SessionRefreshed SessionEventKind = "TOKEN_REFRESHED"
	SessionInitial   SessionEventKind = "INITIAL_SESSION"
)

// SessionEvent carries the session after a transition. Session is nil
// after sign-out.
type SessionEvent struct {
	Kind    SessionEventKind
	Session *Session
}
