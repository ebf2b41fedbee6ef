package persist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"

	domainerrors "github.com/goodaideas/goodaideas/internal/errors"
)

const badgerPrefix = "blob:"

// BadgerStorage stores blobs in a Badger database.
type BadgerStorage struct {
	db     *badger.DB
	logger *slog.Logger
}

// OpenBadger opens (or creates) a Badger database in dir.
func OpenBadger(dir string, logger *slog.Logger) (*BadgerStorage, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil
	opts.SyncWrites = true
	opts.CompactL0OnClose = true

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}
	if logger != nil {
		logger.Debug("client storage opened", "driver", "badger", "path", dir)
	}
	return &BadgerStorage{db: db, logger: logger}, nil
}

// Load implements Storage.
func (s *BadgerStorage) Load(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(badgerPrefix + key))
		if err != nil {
			return err
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, domainerrors.NotFoundf("no stored state for %q", key)
	}
	if err != nil {
		return nil, fmt.Errorf("load %q: %w", key, err)
	}
	return out, nil
}

// Save implements Storage.
func (s *BadgerStorage) Save(ctx context.Context, key string, blob []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(badgerPrefix+key), blob)
	})
	if err != nil {
		return fmt.Errorf("save %q: %w", key, err)
	}
	return nil
}

// Close implements Storage.
func (s *BadgerStorage) Close() error {
	return s.db.Close()
}
