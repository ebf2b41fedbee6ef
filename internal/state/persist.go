package state

import (
	"context"
	"time"

	"github.com/goodaideas/goodaideas/internal/domain"
	domainerrors "github.com/goodaideas/goodaideas/internal/errors"
	"github.com/goodaideas/goodaideas/internal/persist"
)

const persistTimeout = 5 * time.Second

// persist writes the settings subtree of st. Writes are serialized and an
// older version never overwrites a newer one.
func (s *Store) persist(st Snapshot) {
	if s.storage == nil {
		return
	}

	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	if st.Version <= s.persistedVer {
		return
	}
	blob, err := persist.EncodeSettings(st.Settings)
	if err != nil {
		s.logger.Error("encode settings failed", "error", err)
		return
	}
	sum := persist.Fingerprint(blob)
	if sum == s.persistedHash {
		s.persistedVer = st.Version
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := s.storage.Save(ctx, s.key, blob); err != nil {
		s.logger.Warn("persist settings failed", "key", s.key, "error", err)
		return
	}
	s.persistedVer = st.Version
	s.persistedHash = sum
}

// Hydrate loads persisted settings. A missing blob leaves defaults; a
// malformed one is logged and ignored.
func (s *Store) Hydrate(ctx context.Context) error {
	if s.storage == nil {
		return nil
	}
	blob, err := s.storage.Load(ctx, s.key)
	if domainerrors.Is(err, domainerrors.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	settings, err := persist.DecodeSettings(blob)
	if err != nil {
		s.logger.Warn("ignoring malformed settings blob", "key", s.key, "error", err)
		return nil
	}

	s.persistMu.Lock()
	s.persistedHash = persist.Fingerprint(blob)
	s.persistMu.Unlock()

	s.applyStored(settings)
	return nil
}

// ReloadSettings applies a blob written by another process.
func (s *Store) ReloadSettings(blob []byte) error {
	settings, err := persist.DecodeSettings(blob)
	if err != nil {
		return err
	}
	s.persistMu.Lock()
	s.persistedHash = persist.Fingerprint(blob)
	s.persistMu.Unlock()

	s.applyStored(settings)
	return nil
}

func (s *Store) applyStored(settings domain.Settings) {
	s.mutate("load_settings", func(st *Snapshot) bool {
		if st.Settings == settings {
			return false
		}
		st.Settings = settings
		return true
	})
}
