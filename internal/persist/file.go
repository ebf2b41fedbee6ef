package persist

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	domainerrors "github.com/goodaideas/goodaideas/internal/errors"
)

// settleDelay lets a burst of events for one file collapse into one read.
const settleDelay = 50 * time.Millisecond

// FileStorage keeps each blob in {dir}/{key}.json. Writes go through a
// temporary file and a rename, so readers never see a torn blob.
type FileStorage struct {
	dir    string
	logger *slog.Logger

	mu      sync.Mutex
	written map[string]string // key -> fingerprint of our last write
}

// OpenFile returns file storage rooted at dir, creating it when needed.
func OpenFile(dir string, logger *slog.Logger) (*FileStorage, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	return &FileStorage{dir: dir, logger: logger, written: make(map[string]string)}, nil
}

func (s *FileStorage) path(key string) string {
	return filepath.Join(s.dir, key+".json")
}

// Load implements Storage.
func (s *FileStorage) Load(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, domainerrors.NotFoundf("no stored state for %q", key)
	}
	if err != nil {
		return nil, fmt.Errorf("load %q: %w", key, err)
	}
	return data, nil
}

// Save implements Storage.
func (s *FileStorage) Save(ctx context.Context, key string, blob []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, key+".*.tmp")
	if err != nil {
		return fmt.Errorf("save %q: %w", key, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(blob); err != nil {
		tmp.Close()
		return fmt.Errorf("save %q: %w", key, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("save %q: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("save %q: %w", key, err)
	}

	s.mu.Lock()
	s.written[key] = Fingerprint(blob)
	s.mu.Unlock()

	if err := os.Rename(tmp.Name(), s.path(key)); err != nil {
		return fmt.Errorf("save %q: %w", key, err)
	}
	return nil
}

// Close implements Storage.
func (s *FileStorage) Close() error { return nil }

// Watch calls fn with the new blob whenever another writer replaces the
// file for key. Writes made through this FileStorage are not reported.
// Watch blocks until ctx is done.
func (s *FileStorage) Watch(ctx context.Context, key string, fn func(blob []byte)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	defer w.Close()

	// The blob is replaced by rename, so watch the directory, not the file.
	if err := w.Add(s.dir); err != nil {
		return fmt.Errorf("watch %s: %w", s.dir, err)
	}

	target := filepath.Clean(s.path(key))
	var timer *time.Timer
	fire := make(chan struct{}, 1)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target || !ev.Has(fsnotify.Create|fsnotify.Write|fsnotify.Rename) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(settleDelay, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})
		case <-fire:
			s.deliver(ctx, key, fn)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			if s.logger != nil {
				s.logger.Warn("settings watch error", "key", key, "error", err)
			}
		}
	}
}

func (s *FileStorage) deliver(ctx context.Context, key string, fn func([]byte)) {
	data, err := s.Load(ctx, key)
	if err != nil {
		return
	}
	sum := Fingerprint(data)

	s.mu.Lock()
	own := s.written[key] == sum
	if !own {
		s.written[key] = sum
	}
	s.mu.Unlock()

	if !own {
		fn(data)
	}
}
