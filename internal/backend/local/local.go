// Package local is an embedded collaborator backed by sqlite. It serves the
// same contract as the hosted service so the client can run offline, in
// tests, and on machines without network access.
package local

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"github.com/goodaideas/goodaideas/internal/auth"
	"github.com/goodaideas/goodaideas/internal/backend"
	"github.com/goodaideas/goodaideas/internal/domain"
	"github.com/goodaideas/goodaideas/internal/ratelimit"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Options configures an embedded backend.
type Options struct {
	// Path is the sqlite database file.
	Path string
	// TokenKey is the 64-char hex PASETO key.
	TokenKey   string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	// Sessions keeps the signed-in session across restarts. Optional.
	Sessions backend.SessionStore
	Logger   *slog.Logger
	Clock    func() time.Time
	// SignInAttempts limits password attempts per email. Defaults to one
	// attempt per second with a burst of five.
	SignInAttempts *ratelimit.KeyedRateLimiter
}

// Backend implements backend.Client over sqlite.
type Backend struct {
	db       *sql.DB
	tokens   *auth.TokenService
	hub      *hub
	logger   *slog.Logger
	now      func() time.Time
	sessions backend.SessionStore
	attempts *ratelimit.KeyedRateLimiter

	// writeMu orders writes so changes are published in commit order.
	writeMu sync.Mutex

	mu        sync.Mutex
	current   *domain.Session
	loaded    bool
	listeners map[int]func(domain.SessionEvent)
	nextID    int
	closed    bool
}

var _ backend.Client = (*Backend)(nil)

// Open opens (creating if needed) and migrates the database at opts.Path.
func Open(ctx context.Context, opts Options) (*Backend, error) {
	if opts.Path == "" {
		return nil, errors.New("local backend: database path is required")
	}
	if opts.AccessTTL <= 0 {
		opts.AccessTTL = time.Hour
	}
	if opts.RefreshTTL <= 0 {
		opts.RefreshTTL = 30 * 24 * time.Hour
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.SignInAttempts == nil {
		opts.SignInAttempts = ratelimit.New(1, 5)
	}

	tokens, err := auth.NewTokenService(opts.TokenKey, opts.AccessTTL, opts.RefreshTTL)
	if err != nil {
		return nil, err
	}
	tokens.WithClock(opts.Clock)

	db, err := sql.Open("sqlite", opts.Path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec %q: %w", p, err)
		}
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	b := &Backend{
		db:        db,
		tokens:    tokens,
		hub:       newHub(opts.Logger),
		logger:    opts.Logger,
		now:       opts.Clock,
		sessions:  opts.Sessions,
		attempts:  opts.SignInAttempts,
		listeners: make(map[int]func(domain.SessionEvent)),
	}
	opts.Logger.Info("local backend ready", "path", opts.Path)
	return b, nil
}

func runMigrations(db *sql.DB) error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("migration source: %w", err)
	}
	driver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	// m.Close would close db as well; the source holds no resources.
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// Close ends every subscription and closes the database.
func (b *Backend) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	b.hub.closeAll()
	return b.db.Close()
}

// SimulateDisconnect drops every subscription to table as if the
// connection had been lost. An empty table drops them all.
func (b *Backend) SimulateDisconnect(table string) int {
	return b.hub.disconnect(table, errConnectionLost)
}

// Subscribers is the number of live subscriptions to table.
func (b *Backend) Subscribers(table string) int {
	return b.hub.count(table)
}

func (b *Backend) timestamp() string {
	return b.now().UTC().Format(time.RFC3339Nano)
}
