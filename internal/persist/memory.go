package persist

import (
	"context"
	"slices"
	"sync"

	domainerrors "github.com/goodaideas/goodaideas/internal/errors"
)

// MemoryStorage is volatile Storage for tests and for runs with
// persistence turned off.
type MemoryStorage struct {
	mu    sync.Mutex
	blobs map[string][]byte
	saves int
	fail  error
}

// NewMemory returns empty in-memory storage.
func NewMemory() *MemoryStorage {
	return &MemoryStorage{blobs: make(map[string][]byte)}
}

// Load implements Storage.
func (m *MemoryStorage) Load(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.blobs[key]
	if !ok {
		return nil, domainerrors.NotFoundf("no stored state for %q", key)
	}
	return slices.Clone(b), nil
}

// Save implements Storage.
func (m *MemoryStorage) Save(_ context.Context, key string, blob []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.blobs[key] = slices.Clone(blob)
	m.saves++
	return nil
}

// Close implements Storage.
func (m *MemoryStorage) Close() error { return nil }

// Saves reports how many writes succeeded.
func (m *MemoryStorage) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// FailWith makes every later Save return err; nil restores normal saving.
func (m *MemoryStorage) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail = err
}
