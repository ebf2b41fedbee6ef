package rest

import (
	"context"
	"encoding/json/v2"
	"maps"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/goodaideas/goodaideas/internal/backend"
	"github.com/goodaideas/goodaideas/internal/domain"
	domainerrors "github.com/goodaideas/goodaideas/internal/errors"
)

// sessionBody is the auth service's token reply. Sign-up that still needs
// email confirmation replies with the user alone, leaving the tokens empty.
type sessionBody struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at"`
	RefreshToken string `json:"refresh_token"`
	User         struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

func (c *Client) toSession(b sessionBody) *domain.Session {
	if b.AccessToken == "" {
		return nil
	}
	exp := time.Unix(b.ExpiresAt, 0)
	if b.ExpiresAt == 0 {
		exp = c.now().Add(time.Duration(b.ExpiresIn) * time.Second)
	}
	return &domain.Session{
		AccessToken:  b.AccessToken,
		RefreshToken: b.RefreshToken,
		TokenType:    b.TokenType,
		ExpiresAt:    exp,
		User:         domain.SessionUser{ID: b.User.ID, Email: b.User.Email},
	}
}

// grant posts to the token endpoint and decodes the session it issues.
func (c *Client) grant(ctx context.Context, grantType string, body any) (*domain.Session, error) {
	data, err := c.do(ctx, request{
		op:     "token:" + grantType,
		method: http.MethodPost,
		path:   "/auth/v1/token",
		query:  url.Values{"grant_type": {grantType}},
		body:   body,
		bearer: c.anonKey,
	})
	if err != nil {
		return nil, err
	}

	var b sessionBody
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "decode session")
	}
	sess := c.toSession(b)
	if sess == nil {
		return nil, domainerrors.Internal("auth service returned no session")
	}
	return sess, nil
}

// GetSession implements backend.Auth. An expired session is refreshed; one
// that can no longer be refreshed is cleared and reported as signed out.
func (c *Client) GetSession(ctx context.Context) (*domain.Session, error) {
	sess := c.currentSession(ctx)
	if sess == nil || !sess.Expired(c.now()) {
		return sess, nil
	}

	next, err := c.refresh(ctx, sess.RefreshToken)
	if err == nil {
		return next, nil
	}
	if !isAuthFailure(err) {
		return nil, err
	}
	c.logger.Info("session refresh rejected, signing out", "error", err)
	c.setSession(ctx, nil, domain.SessionSignedOut)
	return nil, nil
}

func (c *Client) currentSession(ctx context.Context) *domain.Session {
	c.mu.Lock()
	if c.loaded || c.sessions == nil {
		defer c.mu.Unlock()
		return c.current
	}
	c.mu.Unlock()

	sess, err := c.sessions.LoadSession(ctx)
	if err != nil {
		c.logger.Warn("failed to load saved session", "error", err)
		sess = nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.loaded {
		c.current, c.loaded = sess, true
		if sess != nil {
			c.tokens = c.tokenSource(sess)
		}
	}
	return c.current
}

// SignInWithPassword implements backend.Auth.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*domain.Session, error) {
	sess, err := c.grant(ctx, "password", map[string]string{
		"email":    strings.TrimSpace(email),
		"password": password,
	})
	if err != nil {
		return nil, err
	}
	c.setSession(ctx, sess, domain.SessionSignedIn)
	return sess, nil
}

// SignUp implements backend.Auth. The session is nil when the project
// requires email confirmation before the first sign-in.
func (c *Client) SignUp(ctx context.Context, email, password string, hints backend.ProfileHints) (*domain.Session, error) {
	body := map[string]any{
		"email":    strings.TrimSpace(email),
		"password": password,
		"data":     map[string]string{"username": hints.Username},
	}
	data, err := c.do(ctx, request{
		op:     "signup",
		method: http.MethodPost,
		path:   "/auth/v1/signup",
		body:   body,
		bearer: c.anonKey,
	})
	if err != nil {
		return nil, err
	}

	var b sessionBody
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "decode session")
	}
	sess := c.toSession(b)
	if sess != nil {
		c.setSession(ctx, sess, domain.SessionSignedIn)
	}
	return sess, nil
}

// SignOut implements backend.Auth. The local session is cleared even when
// the service cannot be reached.
func (c *Client) SignOut(ctx context.Context) error {
	sess := c.currentSession(ctx)
	if sess != nil {
		_, err := c.do(ctx, request{
			op:     "logout",
			method: http.MethodPost,
			path:   "/auth/v1/logout",
			bearer: sess.AccessToken,
		})
		if err != nil {
			c.logger.Warn("remote sign-out failed", "error", err)
		}
	}
	c.setSession(ctx, nil, domain.SessionSignedOut)
	return nil
}

// OnSessionChange implements backend.Auth.
func (c *Client) OnSessionChange(fn func(domain.SessionEvent)) (unsubscribe func()) {
	c.mu.Lock()
	c.nextID++
	key := c.nextID
	c.listeners[key] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.listeners, key)
		c.mu.Unlock()
	}
}

// AuthorizeURL starts an OAuth sign-in with provider and returns the URL
// to open in a browser. The PKCE verifier is kept for ExchangeCode.
func (c *Client) AuthorizeURL(provider string) (string, error) {
	if provider == "" {
		return "", domainerrors.Validation("provider is required")
	}
	verifier := oauth2.GenerateVerifier()

	c.mu.Lock()
	c.verifier = verifier
	c.mu.Unlock()

	opts := []oauth2.AuthCodeOption{
		oauth2.S256ChallengeOption(verifier),
		oauth2.SetAuthURLParam("provider", provider),
	}
	if c.oauth.RedirectURL != "" {
		opts = append(opts, oauth2.SetAuthURLParam("redirect_to", c.oauth.RedirectURL))
	}
	return c.oauth.AuthCodeURL("", opts...), nil
}

// ExchangeCode completes the sign-in started by AuthorizeURL.
func (c *Client) ExchangeCode(ctx context.Context, code string) (*domain.Session, error) {
	c.mu.Lock()
	verifier := c.verifier
	c.mu.Unlock()
	if verifier == "" {
		return nil, domainerrors.Validation("no sign-in in progress")
	}

	sess, err := c.grant(ctx, "pkce", map[string]string{
		"auth_code":     code,
		"code_verifier": verifier,
	})
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.verifier = ""
	c.mu.Unlock()
	c.setSession(ctx, sess, domain.SessionSignedIn)
	return sess, nil
}

// refresh trades refreshToken for a new session and announces it.
func (c *Client) refresh(ctx context.Context, refreshToken string) (*domain.Session, error) {
	if refreshToken == "" {
		return nil, domainerrors.Unauthorized("no refresh token")
	}
	sess, err := c.grant(ctx, "refresh_token", map[string]string{"refresh_token": refreshToken})
	if err != nil {
		if domainerrors.IsRetryable(err) {
			return nil, err
		}
		return nil, domainerrors.Wrap(err, domainerrors.CodeUnauthorized, "refresh rejected")
	}
	c.setSession(ctx, sess, domain.SessionRefreshed)
	return sess, nil
}

// accessToken returns the bearer for row and feed requests: the user's
// token when signed in, refreshed as needed, else the anon key.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.currentSession(ctx)

	c.mu.Lock()
	ts := c.tokens
	c.mu.Unlock()
	if ts == nil {
		return c.anonKey, nil
	}

	tok, err := ts.Token()
	if err == nil {
		return tok.AccessToken, nil
	}
	if !isAuthFailure(err) {
		return "", err
	}
	c.logger.Info("session refresh rejected, signing out", "error", err)
	c.setSession(ctx, nil, domain.SessionSignedOut)
	return c.anonKey, nil
}

// tokenSource caches sess's access token and refreshes it through the
// auth service once it is about to lapse.
func (c *Client) tokenSource(sess *domain.Session) oauth2.TokenSource {
	tok := &oauth2.Token{
		AccessToken:  sess.AccessToken,
		TokenType:    sess.TokenType,
		RefreshToken: sess.RefreshToken,
		Expiry:       sess.ExpiresAt,
	}
	return oauth2.ReuseTokenSource(tok, refreshSource{c: c})
}

// refreshSource is the oauth2.TokenSource behind tokenSource.
type refreshSource struct {
	c *Client
}

func (r refreshSource) Token() (*oauth2.Token, error) {
	r.c.mu.Lock()
	sess := r.c.current
	r.c.mu.Unlock()
	if sess == nil {
		return nil, domainerrors.Unauthorized("not signed in")
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.c.timeout)
	defer cancel()
	next, err := r.c.refresh(ctx, sess.RefreshToken)
	if err != nil {
		return nil, err
	}
	return &oauth2.Token{
		AccessToken:  next.AccessToken,
		TokenType:    next.TokenType,
		RefreshToken: next.RefreshToken,
		Expiry:       next.ExpiresAt,
	}, nil
}

// setSession replaces the current session, saves it and notifies
// listeners outside the lock.
func (c *Client) setSession(ctx context.Context, sess *domain.Session, kind domain.SessionEventKind) {
	c.mu.Lock()
	c.current, c.loaded = sess, true
	c.tokens = nil
	if sess != nil {
		c.tokens = c.tokenSource(sess)
	}
	fns := slices.Collect(maps.Values(c.listeners))
	c.mu.Unlock()

	if c.sessions != nil {
		if err := c.sessions.SaveSession(ctx, sess); err != nil {
			c.logger.Warn("failed to save session", "error", err)
		}
	}

	ev := domain.SessionEvent{Kind: kind, Session: sess}
	for _, fn := range fns {
		fn(ev)
	}
}
