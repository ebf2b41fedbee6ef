package persist

import (
	"context"
	"encoding/json/v2"
	"fmt"

	"github.com/goodaideas/goodaideas/internal/domain"
	domainerrors "github.com/goodaideas/goodaideas/internal/errors"
)

// DefaultSessionKey is where the signed-in session is kept.
const DefaultSessionKey = "goodaideas-auth"

// SessionStore keeps the backend session in a Storage. It implements
// backend.SessionStore.
type SessionStore struct {
	storage Storage
	key     string
}

// NewSessionStore stores sessions under key in storage.
func NewSessionStore(storage Storage, key string) *SessionStore {
	if key == "" {
		key = DefaultSessionKey
	}
	return &SessionStore{storage: storage, key: key}
}

// LoadSession returns the saved session, or nil when none is saved.
func (s *SessionStore) LoadSession(ctx context.Context) (*domain.Session, error) {
	data, err := s.storage.Load(ctx, s.key)
	if domainerrors.Is(err, domainerrors.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var sess *domain.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeValidation, "malformed saved session")
	}
	if sess != nil && sess.User.ID == "" {
		return nil, nil
	}
	return sess, nil
}

// SaveSession replaces the saved session. nil clears it.
func (s *SessionStore) SaveSession(ctx context.Context, sess *domain.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	return s.storage.Save(ctx, s.key, data)
}
