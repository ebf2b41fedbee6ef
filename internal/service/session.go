package service

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/goodaideas/goodaideas/internal/backend"
	"github.com/goodaideas/goodaideas/internal/domain"
	domainerrors "github.com/goodaideas/goodaideas/internal/errors"
	"github.com/goodaideas/goodaideas/internal/state"
	"github.com/goodaideas/goodaideas/internal/validation"
)

// loadTimeout bounds a data load started by a session event.
const loadTimeout = 30 * time.Second

// SessionService keeps the store's session in step with the auth service.
type SessionService struct {
	auth   backend.Auth
	store  *state.Store
	logger *slog.Logger

	mu          sync.Mutex
	unsubscribe func()
}

// NewSessionService creates a session service.
func NewSessionService(auth backend.Auth, store *state.Store, logger *slog.Logger) *SessionService {
	return &SessionService{
		auth:   auth,
		store:  store,
		logger: logger,
	}
}

// Start restores the current session, loads the user's data and follows
// later session changes until Close. A failed data load is logged; the
// session itself stays established.
func (s *SessionService) Start(ctx context.Context) error {
	sess, err := s.auth.GetSession(ctx)
	if err != nil {
		return err
	}
	s.establish(ctx, sess)

	s.mu.Lock()
	if s.unsubscribe == nil {
		s.unsubscribe = s.auth.OnSessionChange(s.handle)
	}
	s.mu.Unlock()
	return nil
}

// Close stops following session changes.
func (s *SessionService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
}

func (s *SessionService) handle(ev domain.SessionEvent) {
	switch ev.Kind {
	case domain.SessionSignedOut:
		if s.store.Snapshot().Authenticated() {
			s.logger.Info("session ended")
			s.store.Reset()
		}
	default:
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()
		s.establish(ctx, ev.Session)
	}
}

// establish installs sess and, when it belongs to a different user than
// the store held, loads that user's data. The backends raise SIGNED_IN
// from inside SignIn and SignUp, so either path may get here first.
func (s *SessionService) establish(ctx context.Context, sess *domain.Session) {
	changed := s.store.Snapshot().Session.UserID() != sess.UserID()
	s.store.SetSession(sess)
	if changed && sess != nil {
		s.load(ctx)
	}
}

// load fetches the signed-in user's data. A superseded fetch is not an
// error.
func (s *SessionService) load(ctx context.Context) {
	err := s.store.FetchUserData(ctx)
	switch {
	case err == nil, domainerrors.Is(err, domainerrors.ErrStale):
	default:
		s.logger.Warn("failed to load user data", "error", err)
	}
}

// Credentials are an email and password.
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// SignIn signs in with email and password. Auth failures are returned as
// the auth service reported them and leave the store untouched.
func (s *SessionService) SignIn(ctx context.Context, email, password string) (*domain.Session, error) {
	creds := Credentials{Email: strings.TrimSpace(email), Password: password}
	if err := validation.Default().Validate(creds); err != nil {
		return nil, err
	}

	sess, err := s.auth.SignInWithPassword(ctx, creds.Email, creds.Password)
	if err != nil {
		s.logger.Info("sign in failed", "error", err)
		return nil, err
	}
	s.establish(ctx, sess)
	return sess, nil
}

// ProviderURL returns the page where the user signs in with an external
// identity provider. The page hands back a one-time code for
// CompleteProviderSignIn.
func (s *SessionService) ProviderURL(provider string) (string, error) {
	pa, err := s.providerAuth()
	if err != nil {
		return "", err
	}
	provider = strings.ToLower(strings.TrimSpace(provider))
	if provider == "" {
		return "", domainerrors.Validation("Provider is required")
	}
	return pa.AuthorizeURL(provider)
}

// CompleteProviderSignIn trades the code from a provider sign-in for a
// session and loads the user's data.
func (s *SessionService) CompleteProviderSignIn(ctx context.Context, code string) (*domain.Session, error) {
	pa, err := s.providerAuth()
	if err != nil {
		return nil, err
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, domainerrors.Validation("Sign-in code is required")
	}

	sess, err := pa.ExchangeCode(ctx, code)
	if err != nil {
		s.logger.Info("provider sign in failed", "error", err)
		return nil, err
	}
	s.establish(ctx, sess)
	return sess, nil
}

func (s *SessionService) providerAuth() (backend.ProviderAuth, error) {
	pa, ok := s.auth.(backend.ProviderAuth)
	if !ok {
		return nil, domainerrors.Validation("Provider sign-in is not supported by this backend")
	}
	return pa, nil
}

// SignUpInput is a new account request.
type SignUpInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Username string `json:"username,omitempty" validate:"omitempty,max=64"`
}

// SignUp creates an account. Without a username the email's local part is
// used. When the project requires email confirmation no session is
// returned and the user is told to check their inbox.
func (s *SessionService) SignUp(ctx context.Context, in SignUpInput) (*domain.Session, error) {
	in.Email = strings.TrimSpace(in.Email)
	in.Username = strings.TrimSpace(in.Username)
	if in.Username == "" {
		in.Username, _, _ = strings.Cut(in.Email, "@")
	}
	if err := validation.Default().Validate(in); err != nil {
		return nil, err
	}

	sess, err := s.auth.SignUp(ctx, in.Email, in.Password, backend.ProfileHints{Username: in.Username})
	if err != nil {
		s.logger.Info("sign up failed", "error", err)
		return nil, err
	}
	if sess == nil {
		s.store.AddNotification(domain.NotifyInfo, "Check your email to confirm your account")
		return nil, nil
	}

	s.establish(ctx, sess)
	return sess, nil
}

// SignOut ends the session. On failure nothing changes.
func (s *SessionService) SignOut(ctx context.Context) error {
	return s.store.Logout(ctx)
}
