package providers

import (
	"fmt"
	"path/filepath"

	"github.com/samber/do/v2"

	"github.com/goodaideas/goodaideas/internal/config"
	"github.com/goodaideas/goodaideas/internal/logger"
	"github.com/goodaideas/goodaideas/internal/persist"
)

// StorageHandle wraps on-device storage with shutdown capability.
type StorageHandle struct {
	persist.Storage
	Driver string
}

// Shutdown implements do.Shutdownable.
func (h *StorageHandle) Shutdown() error {
	return h.Close()
}

// ProvideStorage opens the configured on-device storage.
func ProvideStorage(i do.Injector) (*StorageHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	var (
		storage persist.Storage
		err     error
	)
	switch cfg.State.Driver {
	case config.DriverFile:
		storage, err = persist.OpenFile(cfg.State.Dir, log.Logger)
	default:
		storage, err = persist.OpenBadger(filepath.Join(cfg.State.Dir, "badger"), log.Logger)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s storage: %w", cfg.State.Driver, err)
	}

	log.Debug("Client storage opened", "driver", cfg.State.Driver, "dir", cfg.State.Dir)

	return &StorageHandle{Storage: storage, Driver: cfg.State.Driver}, nil
}

// ProvideSessionStore keeps the backend session next to the settings.
func ProvideSessionStore(i do.Injector) (*persist.SessionStore, error) {
	storage := do.MustInvoke[*StorageHandle](i)
	return persist.NewSessionStore(storage.Storage, persist.DefaultSessionKey), nil
}
