package providers

import (
	"context"
	"errors"

	"github.com/samber/do/v2"

	"github.com/goodaideas/goodaideas/internal/config"
	"github.com/goodaideas/goodaideas/internal/logger"
	"github.com/goodaideas/goodaideas/internal/persist"
	"github.com/goodaideas/goodaideas/internal/state"
)

// SettingsWatcherHandle stops the settings watcher.
type SettingsWatcherHandle struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Shutdown implements do.Shutdownable.
func (h *SettingsWatcherHandle) Shutdown() error {
	h.cancel()
	<-h.done
	return nil
}

// ProvideSettingsWatcher applies settings written by other processes
// sharing the state directory. Storage that cannot report writes gets a
// watcher that does nothing.
func ProvideSettingsWatcher(i do.Injector) (*SettingsWatcherHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storage := do.MustInvoke[*StorageHandle](i)
	store := do.MustInvoke[*state.Store](i)

	ctx, cancel := context.WithCancel(context.Background())
	h := &SettingsWatcherHandle{cancel: cancel, done: make(chan struct{})}

	w, ok := storage.Storage.(persist.Watcher)
	if !ok {
		close(h.done)
		return h, nil
	}

	go func() {
		defer close(h.done)
		err := w.Watch(ctx, cfg.SettingsKey(), func(blob []byte) {
			if err := store.ReloadSettings(blob); err != nil {
				log.Warn("Ignoring settings written by another process", "error", err)
			}
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Error("Settings watcher stopped", "error", err)
		}
	}()

	log.Debug("Settings watcher started", "key", cfg.SettingsKey())

	return h, nil
}
