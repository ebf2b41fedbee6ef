package persist_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goodaideas/goodaideas/internal/domain"
	domainerrors "github.com/goodaideas/goodaideas/internal/errors"
	"github.com/goodaideas/goodaideas/internal/persist"
)

func TestSettingsBlob_RoundTrip(t *testing.T) {
	want := domain.DefaultSettings()
	want.Theme = domain.ThemeDark
	want.Accessibility.HighContrast = true

	data, err := persist.EncodeSettings(want)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"version":1`)

	got, err := persist.DecodeSettings(data)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestDecodeSettings_FillsMissingFields(t *testing.T) {
	got, err := persist.DecodeSettings([]byte(`{"version":1,"state":{"settings":{"theme":"light"}}}`))
	require.NoError(t, err)

	want := domain.DefaultSettings()
	want.Theme = domain.ThemeLight
	assert.Equal(t, want, got)
}

func TestDecodeSettings_Rejects(t *testing.T) {
	for name, blob := range map[string]string{
		"not json":      `{{`,
		"future":        `{"version":9,"state":{"settings":{}}}`,
		"no settings":   `{"version":1,"state":{}}`,
		"unknown theme": `{"version":1,"state":{"settings":{"theme":"sepia"}}}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := persist.DecodeSettings([]byte(blob))
			assert.True(t, domainerrors.Is(err, domainerrors.ErrValidation), "err: %v", err)
		})
	}
}

func TestFingerprint(t *testing.T) {
	a := persist.Fingerprint([]byte("x"))
	assert.Len(t, a, 64)
	assert.Equal(t, a, persist.Fingerprint([]byte("x")))
	assert.NotEqual(t, a, persist.Fingerprint([]byte("y")))
}

func testStorages(t *testing.T) map[string]persist.Storage {
	t.Helper()

	b, err := persist.OpenBadger(filepath.Join(t.TempDir(), "badger"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })

	f, err := persist.OpenFile(t.TempDir(), nil)
	require.NoError(t, err)

	return map[string]persist.Storage{"badger": b, "file": f, "memory": persist.NewMemory()}
}

func TestStorage_LoadSave(t *testing.T) {
	ctx := context.Background()

	for name, s := range testStorages(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.Load(ctx, "goodaideas-storage")
			assert.True(t, domainerrors.Is(err, domainerrors.ErrNotFound))

			require.NoError(t, s.Save(ctx, "goodaideas-storage", []byte("one")))
			require.NoError(t, s.Save(ctx, "goodaideas-storage", []byte("two")))

			got, err := s.Load(ctx, "goodaideas-storage")
			require.NoError(t, err)
			assert.Equal(t, []byte("two"), got)
		})
	}
}

func TestFileStorage_WatchReportsForeignWrites(t *testing.T) {
	dir := t.TempDir()
	s, err := persist.OpenFile(dir, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan []byte, 4)
	done := make(chan error, 1)
	go func() { done <- s.Watch(ctx, "k", func(b []byte) { got <- b }) }()
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, s.Save(ctx, "k", []byte("mine")))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "k.json"), []byte("theirs"), 0o600))

	select {
	case b := <-got:
		assert.Equal(t, []byte("theirs"), b)
	case <-time.After(3 * time.Second):
		t.Fatal("no watch callback")
	}

	cancel()
	assert.NoError(t, <-done)
}

func TestSessionStore(t *testing.T) {
	ctx := context.Background()
	store := persist.NewSessionStore(persist.NewMemory(), "")

	got, err := store.LoadSession(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)

	sess := &domain.Session{
		AccessToken: "a", RefreshToken: "r", TokenType: "bearer",
		ExpiresAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		User:      domain.SessionUser{ID: "u1", Email: "u1@example.com"},
	}
	require.NoError(t, store.SaveSession(ctx, sess))

	got, err = store.LoadSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, sess, got)

	require.NoError(t, store.SaveSession(ctx, nil))
	got, err = store.LoadSession(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
}
