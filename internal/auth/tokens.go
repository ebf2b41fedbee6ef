package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json/v2"
	"fmt"
	"time"

	"aidanwoods.dev/go-paseto"

	domainerrors "github.com/goodaideas/goodaideas/internal/errors"
	"github.com/goodaideas/goodaideas/internal/id"
)

const (
	tokenIssuer      = "goodaideas-local"
	tokenAudience    = "goodaideas-client"
	refreshTokenSize = 32
)

// Claims are the decrypted contents of an access token.
type Claims struct {
	UserID     string    `json:"user_id"`
	Email      string    `json:"email"`
	Subject    string    `json:"sub"`
	Expiration time.Time `json:"exp"`
	IssuedAt   time.Time `json:"iat"`
	TokenID    string    `json:"jti"`
}

// TokenService mints and verifies access tokens.
type TokenService struct {
	key        paseto.V4SymmetricKey
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewTokenService creates a token service from a 64-char hex key.
func NewTokenService(keyHex string, accessTTL, refreshTTL time.Duration) (*TokenService, error) {
	if len(keyHex) != keyHexLength {
		return nil, fmt.Errorf("token key must be %d hex characters, got %d", keyHexLength, len(keyHex))
	}
	raw, err := hex.DecodeString(keyHex)
	if err != nil {
		return nil, fmt.Errorf("token key: %w", err)
	}
	key, err := paseto.V4SymmetricKeyFromBytes(raw)
	if err != nil {
		return nil, fmt.Errorf("token key: %w", err)
	}
	return &TokenService{key: key, accessTTL: accessTTL, refreshTTL: refreshTTL, now: time.Now}, nil
}

// WithClock replaces the time source. Used by tests.
func (s *TokenService) WithClock(now func() time.Time) *TokenService {
	s.now = now
	return s
}

// IssueAccessToken returns a v4.local token for the user and its expiry.
func (s *TokenService) IssueAccessToken(userID, email string) (string, time.Time, error) {
	now := s.now()
	exp := now.Add(s.accessTTL)

	jti, err := id.Generate(id.PrefixToken)
	if err != nil {
		return "", time.Time{}, err
	}

	token := paseto.NewToken()
	token.SetIssuer(tokenIssuer)
	token.SetAudience(tokenAudience)
	token.SetSubject(userID)
	token.SetIssuedAt(now)
	token.SetNotBefore(now)
	token.SetExpiration(exp)
	token.SetJti(jti)
	//nolint:errcheck // Set only fails for unmarshalable values
	_ = token.Set("user_id", userID)
	//nolint:errcheck // Set only fails for unmarshalable values
	_ = token.Set("email", email)

	return token.V4Encrypt(s.key, nil), exp, nil
}

// VerifyAccessToken decrypts and checks a token. Expired tokens report
// TOKEN_EXPIRED; anything else unreadable reports UNAUTHORIZED.
func (s *TokenService) VerifyAccessToken(raw string) (*Claims, error) {
	now := s.now()

	parser := paseto.NewParserWithoutExpiryCheck()
	parser.AddRule(paseto.ForAudience(tokenAudience))
	parser.AddRule(paseto.IssuedBy(tokenIssuer))

	token, err := parser.ParseV4Local(s.key, raw, nil)
	if err != nil {
		return nil, domainerrors.Unauthorized("invalid access token").WithCause(err)
	}

	var claims Claims
	if err := json.Unmarshal(token.ClaimsJSON(), &claims); err != nil {
		return nil, domainerrors.Unauthorized("invalid access token").WithCause(err)
	}
	if !now.Before(claims.Expiration) {
		return nil, domainerrors.TokenExpired("access token expired")
	}
	return &claims, nil
}

// NewRefreshToken returns a random opaque refresh token.
func NewRefreshToken() (string, error) {
	b := make([]byte, refreshTokenSize)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate refresh token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// HashRefreshToken is the form refresh tokens are stored in.
func HashRefreshToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// AccessTTL is the access token lifetime.
func (s *TokenService) AccessTTL() time.Duration { return s.accessTTL }

// RefreshTTL is the refresh token lifetime.
func (s *TokenService) RefreshTTL() time.Duration { return s.refreshTTL }
