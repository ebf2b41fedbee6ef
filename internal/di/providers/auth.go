package providers

import (
	"github.com/samber/do/v2"

	"github.com/goodaideas/goodaideas/internal/auth"
	"github.com/goodaideas/goodaideas/internal/config"
	"github.com/goodaideas/goodaideas/internal/logger"
)

// TokenKey is the hex PASETO key of the embedded backend.
type TokenKey string

// ProvideTokenKey returns the configured key, or loads or generates one
// under the state directory.
func ProvideTokenKey(i do.Injector) (TokenKey, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if cfg.Backend.TokenKey != "" {
		return TokenKey(cfg.Backend.TokenKey), nil
	}

	key, err := auth.LoadOrGenerateKey(cfg.State.Dir)
	if err != nil {
		return "", err
	}

	log.Debug("Token key loaded",
		"access_token_duration", cfg.Backend.AccessTokenTTL,
		"refresh_token_duration", cfg.Backend.RefreshTokenTTL,
	)

	return TokenKey(key), nil
}
