package auth_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goodaideas/goodaideas/internal/auth"
	domainerrors "github.com/goodaideas/goodaideas/internal/errors"
)

const testKey = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := auth.HashPassword("correct horse")
	require.NoError(t, err)
	assert.Contains(t, hash, "$argon2id$")

	assert.True(t, auth.VerifyPassword(hash, "correct horse"))
	assert.False(t, auth.VerifyPassword(hash, "wrong horse"))
	assert.False(t, auth.VerifyPassword("garbage", "correct horse"))
}

func TestHashPassword_TooShort(t *testing.T) {
	_, err := auth.HashPassword("abc")
	assert.True(t, domainerrors.Is(err, domainerrors.ErrValidation))
}

func TestHashPassword_Salted(t *testing.T) {
	a, err := auth.HashPassword("same password")
	require.NoError(t, err)
	b, err := auth.HashPassword("same password")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestAccessToken(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	svc, err := auth.NewTokenService(testKey, 15*time.Minute, 24*time.Hour)
	require.NoError(t, err)
	svc.WithClock(func() time.Time { return now })

	token, exp, err := svc.IssueAccessToken("u1", "u1@example.com")
	require.NoError(t, err)
	assert.Equal(t, now.Add(15*time.Minute), exp)

	claims, err := svc.VerifyAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "u1@example.com", claims.Email)
	assert.NotEmpty(t, claims.TokenID)

	now = now.Add(time.Hour)
	_, err = svc.VerifyAccessToken(token)
	assert.True(t, domainerrors.Is(err, domainerrors.ErrTokenExpired))
}

func TestVerifyAccessToken_WrongKey(t *testing.T) {
	a, err := auth.NewTokenService(testKey, time.Minute, time.Hour)
	require.NoError(t, err)
	b, err := auth.NewTokenService("f"+testKey[1:], time.Minute, time.Hour)
	require.NoError(t, err)

	token, _, err := a.IssueAccessToken("u1", "")
	require.NoError(t, err)

	_, err = b.VerifyAccessToken(token)
	assert.True(t, domainerrors.Is(err, domainerrors.ErrUnauthorized))
}

func TestNewTokenService_BadKey(t *testing.T) {
	_, err := auth.NewTokenService("short", time.Minute, time.Hour)
	assert.Error(t, err)
}

func TestRefreshTokens(t *testing.T) {
	a, err := auth.NewRefreshToken()
	require.NoError(t, err)
	b, err := auth.NewRefreshToken()
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.Equal(t, auth.HashRefreshToken(a), auth.HashRefreshToken(a))
	assert.NotEqual(t, a, auth.HashRefreshToken(a))
}

func TestLoadOrGenerateKey(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "state")

	first, err := auth.LoadOrGenerateKey(dir)
	require.NoError(t, err)
	assert.Len(t, first, 64)

	second, err := auth.LoadOrGenerateKey(dir)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "token.key"), []byte("nope"), 0o600))
	_, err = auth.LoadOrGenerateKey(dir)
	assert.Error(t, err)
}
