package providers

import (
	"context"
	"fmt"

	"github.com/samber/do/v2"

	"github.com/goodaideas/goodaideas/internal/backend"
	"github.com/goodaideas/goodaideas/internal/backend/local"
	"github.com/goodaideas/goodaideas/internal/backend/rest"
	"github.com/goodaideas/goodaideas/internal/config"
	"github.com/goodaideas/goodaideas/internal/logger"
	"github.com/goodaideas/goodaideas/internal/persist"
	"github.com/goodaideas/goodaideas/internal/ratelimit"
	"github.com/goodaideas/goodaideas/internal/state"
)

// BackendHandle wraps the collaborator with shutdown capability.
type BackendHandle struct {
	backend.Client
	Mode string
}

// Shutdown implements do.Shutdownable.
func (h *BackendHandle) Shutdown() error {
	return h.Close()
}

// ProvideBackend connects to the hosted service or opens the embedded one.
func ProvideBackend(i do.Injector) (*BackendHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	sessions := do.MustInvoke[*persist.SessionStore](i)
	m := do.MustInvoke[*MetricsHandle](i)

	switch cfg.Backend.Mode {
	case config.BackendRemote:
		client, err := rest.New(rest.Options{
			URL:       cfg.Backend.URL,
			AnonKey:   cfg.Backend.AnonKey,
			Timeout:   cfg.Backend.Timeout,
			Limiter:   ratelimit.New(cfg.Backend.RateLimit, cfg.Backend.Burst),
			Sessions:  sessions,
			Heartbeat: cfg.Realtime.Heartbeat,
			Logger:    log.Logger,
			Metrics:   m.Collector,
		})
		if err != nil {
			return nil, err
		}
		log.Debug("Hosted backend configured", "url", cfg.Backend.URL)
		return &BackendHandle{Client: client, Mode: cfg.Backend.Mode}, nil

	case config.BackendLocal:
		key := do.MustInvoke[TokenKey](i)
		ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
		defer cancel()
		b, err := local.Open(ctx, local.Options{
			Path:       cfg.Backend.LocalPath,
			TokenKey:   string(key),
			AccessTTL:  cfg.Backend.AccessTokenTTL,
			RefreshTTL: cfg.Backend.RefreshTokenTTL,
			Sessions:   sessions,
			Logger:     log.Logger,
		})
		if err != nil {
			return nil, err
		}
		log.Debug("Embedded backend opened", "path", cfg.Backend.LocalPath)
		return &BackendHandle{Client: b, Mode: cfg.Backend.Mode}, nil

	default:
		return nil, fmt.Errorf("unknown backend mode %q", cfg.Backend.Mode)
	}
}

// ProvideStore provides the hydrated global state store.
func ProvideStore(i do.Injector) (*state.Store, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	b := do.MustInvoke[*BackendHandle](i)
	storage := do.MustInvoke[*StorageHandle](i)
	m := do.MustInvoke[*MetricsHandle](i)

	store := state.New(state.Options{
		Backend: b.Client,
		Storage: storage.Storage,
		Key:     cfg.SettingsKey(),
		Logger:  log.Logger,
		Metrics: m.Collector,
	})
	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()
	if err := store.Hydrate(ctx); err != nil {
		return nil, fmt.Errorf("hydrate store: %w", err)
	}

	return store, nil
}
