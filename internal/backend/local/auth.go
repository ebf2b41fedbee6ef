package local

import (
	"context"
	"database/sql"
	"errors"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/goodaideas/goodaideas/internal/auth"
	"github.com/goodaideas/goodaideas/internal/backend"
	"github.com/goodaideas/goodaideas/internal/domain"
	domainerrors "github.com/goodaideas/goodaideas/internal/errors"
	"github.com/goodaideas/goodaideas/internal/id"
	"github.com/goodaideas/goodaideas/internal/validation"
)

const usersTable = "users"

var errBadCredentials = domainerrors.InvalidCredentials("Invalid login credentials")

// GetSession implements backend.Auth. An expired access token is refreshed
// transparently; a session that can no longer be refreshed is cleared and
// reported as signed out.
func (b *Backend) GetSession(ctx context.Context) (*domain.Session, error) {
	sess, err := b.currentSession(ctx)
	if err != nil || sess == nil {
		return nil, err
	}

	_, err = b.tokens.VerifyAccessToken(sess.AccessToken)
	switch {
	case err == nil:
		return sess, nil
	case domainerrors.Is(err, domainerrors.ErrTokenExpired):
		refreshed, rerr := b.refresh(ctx, sess)
		if rerr == nil {
			return refreshed, nil
		}
		b.logger.Info("session refresh failed, signing out", "error", rerr)
	default:
		b.logger.Warn("discarding unreadable session", "error", err)
	}

	b.setSession(ctx, nil, domain.SessionSignedOut)
	return nil, nil
}

func (b *Backend) currentSession(ctx context.Context) (*domain.Session, error) {
	b.mu.Lock()
	if b.loaded || b.sessions == nil {
		defer b.mu.Unlock()
		return b.current, nil
	}
	b.mu.Unlock()

	sess, err := b.sessions.LoadSession(ctx)
	if err != nil {
		b.logger.Warn("failed to load saved session", "error", err)
		sess = nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.loaded {
		b.current, b.loaded = sess, true
	}
	return b.current, nil
}

// SignInWithPassword implements backend.Auth.
func (b *Backend) SignInWithPassword(ctx context.Context, email, password string) (*domain.Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !b.attempts.Allow(email) {
		return nil, domainerrors.Transient("Too many sign-in attempts, try again shortly")
	}

	var accountID, hash string
	err := b.db.QueryRowContext(ctx,
		`SELECT id, password_hash FROM accounts WHERE email = ?`, email).Scan(&accountID, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errBadCredentials
	}
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeTransient, "sign-in failed")
	}
	if !auth.VerifyPassword(hash, password) {
		return nil, errBadCredentials
	}
	b.attempts.Forget(email)

	sess, err := b.issue(ctx, accountID, email)
	if err != nil {
		return nil, err
	}
	b.setSession(ctx, sess, domain.SessionSignedIn)
	return sess, nil
}

// SignUp implements backend.Auth. The account's public users row is
// created in the same transaction.
func (b *Backend) SignUp(ctx context.Context, email, password string, hints backend.ProfileHints) (*domain.Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := validation.Default().Var("email", email, "required,email"); err != nil {
		return nil, err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	accountID := id.NewUUID()
	now := b.timestamp()
	profile := backend.Row{
		"id":         accountID,
		"username":   strings.TrimSpace(hints.Username),
		"avatar_url": nil,
		"points":     0,
		"created_at": now,
	}

	b.writeMu.Lock()
	err = func() error {
		tx, err := b.db.BeginTx(ctx, nil)
		if err != nil {
			return domainerrors.Wrap(err, domainerrors.CodeTransient, "sign-up failed")
		}
		defer tx.Rollback() //nolint:errcheck // no-op after commit

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO accounts (id, email, password_hash, created_at) VALUES (?, ?, ?, ?)`,
			accountID, email, hash, now); err != nil {
			if strings.Contains(err.Error(), "UNIQUE constraint failed") {
				return domainerrors.Conflict("User already registered")
			}
			return domainerrors.Wrap(err, domainerrors.CodeTransient, "sign-up failed")
		}
		if err := insertRecord(ctx, tx, usersTable, profile); err != nil {
			return err
		}
		if err := tx.Commit(); err != nil {
			return domainerrors.Wrap(err, domainerrors.CodeTransient, "sign-up failed")
		}
		b.hub.publish(backend.Change{Table: usersTable, Type: backend.EventInsert, New: maps.Clone(profile)})
		return nil
	}()
	b.writeMu.Unlock()
	if err != nil {
		return nil, err
	}

	sess, err := b.issue(ctx, accountID, email)
	if err != nil {
		return nil, err
	}
	b.setSession(ctx, sess, domain.SessionSignedIn)
	return sess, nil
}

// SignOut implements backend.Auth. Signing out without a session is a
// no-op that still reports SIGNED_OUT.
func (b *Backend) SignOut(ctx context.Context) error {
	sess, err := b.currentSession(ctx)
	if err != nil {
		return err
	}
	if sess != nil && sess.RefreshToken != "" {
		if _, err := b.db.ExecContext(ctx,
			`DELETE FROM sessions WHERE refresh_token_hash = ?`, auth.HashRefreshToken(sess.RefreshToken)); err != nil {
			return domainerrors.Wrap(err, domainerrors.CodeTransient, "sign-out failed")
		}
	}
	b.setSession(ctx, nil, domain.SessionSignedOut)
	return nil
}

// OnSessionChange implements backend.Auth.
func (b *Backend) OnSessionChange(fn func(domain.SessionEvent)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	key := b.nextID
	b.listeners[key] = fn
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.listeners, key)
	}
}

// issue creates a sessions row and the matching token pair.
func (b *Backend) issue(ctx context.Context, accountID, email string) (*domain.Session, error) {
	access, exp, err := b.tokens.IssueAccessToken(accountID, email)
	if err != nil {
		return nil, err
	}
	refresh, err := auth.NewRefreshToken()
	if err != nil {
		return nil, err
	}

	now := b.now()
	if _, err := b.db.ExecContext(ctx,
		`INSERT INTO sessions (id, account_id, refresh_token_hash, expires_at, created_at) VALUES (?, ?, ?, ?, ?)`,
		id.NewUUID(), accountID, auth.HashRefreshToken(refresh),
		now.Add(b.tokens.RefreshTTL()).UTC().Format(time.RFC3339Nano), now.UTC().Format(time.RFC3339Nano),
	); err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeTransient, "create session")
	}

	return &domain.Session{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
		ExpiresAt:    exp,
		User:         domain.SessionUser{ID: accountID, Email: email},
	}, nil
}

// refresh rotates the refresh token of sess.
func (b *Backend) refresh(ctx context.Context, sess *domain.Session) (*domain.Session, error) {
	hash := auth.HashRefreshToken(sess.RefreshToken)

	var accountID, email, expires string
	err := b.db.QueryRowContext(ctx, `
		SELECT s.account_id, a.email, s.expires_at
		FROM sessions s JOIN accounts a ON a.id = s.account_id
		WHERE s.refresh_token_hash = ?`, hash).Scan(&accountID, &email, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domainerrors.Unauthorized("refresh token not found")
	}
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeTransient, "refresh failed")
	}

	exp, err := time.Parse(time.RFC3339Nano, expires)
	if err != nil || !b.now().Before(exp) {
		_, _ = b.db.ExecContext(ctx, `DELETE FROM sessions WHERE refresh_token_hash = ?`, hash)
		return nil, domainerrors.TokenExpired("refresh token expired")
	}

	if _, err := b.db.ExecContext(ctx, `DELETE FROM sessions WHERE refresh_token_hash = ?`, hash); err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeTransient, "refresh failed")
	}
	next, err := b.issue(ctx, accountID, email)
	if err != nil {
		return nil, err
	}
	b.setSession(ctx, next, domain.SessionRefreshed)
	return next, nil
}

// setSession replaces the current session, saves it and notifies
// listeners outside the lock.
func (b *Backend) setSession(ctx context.Context, sess *domain.Session, kind domain.SessionEventKind) {
	b.mu.Lock()
	b.current, b.loaded = sess, true
	fns := slices.Collect(maps.Values(b.listeners))
	b.mu.Unlock()

	if b.sessions != nil {
		if err := b.sessions.SaveSession(ctx, sess); err != nil {
			b.logger.Warn("failed to save session", "error", err)
		}
	}

	ev := domain.SessionEvent{Kind: kind, Session: sess}
	for _, fn := range fns {
		fn(ev)
	}
}
