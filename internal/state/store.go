// Package state holds the client's shared state: session, profile,
// settings, the notification inbox and the signed-in user's collections,
// routines and goals. Every change goes through a Store method; readers
// take immutable snapshots or subscribe to them.
package state

import (
	"context"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/goodaideas/goodaideas/internal/backend"
	"github.com/goodaideas/goodaideas/internal/domain"
	"github.com/goodaideas/goodaideas/internal/id"
	"github.com/goodaideas/goodaideas/internal/persist"
)

// DefaultKey is the storage key of the persisted settings blob.
const DefaultKey = "goodaideas-storage"

// Backend is the part of the collaborator the store talks to.
type Backend interface {
	backend.Rows
	SignOut(ctx context.Context) error
}

// Metrics receives store activity counts.
type Metrics interface {
	ObserveMutation(op string)
	ObserveStale(op string)
}

type noopMetrics struct{}

func (noopMetrics) ObserveMutation(string) {}
func (noopMetrics) ObserveStale(string)    {}

// Snapshot is an immutable view of the store. Slices it holds are never
// modified after the snapshot is taken and must be treated as read-only.
type Snapshot struct {
	Version       uint64                `json:"version"`
	Generation    uint64                `json:"generation"`
	Session       *domain.Session       `json:"session"`
	Profile       *domain.Profile       `json:"profile"`
	Settings      domain.Settings       `json:"settings"`
	Notifications domain.Inbox          `json:"notifications"`
	Collections   []domain.Collection   `json:"collections"`
	Routines      []domain.DailyRoutine `json:"dailyRoutines"`
	Goals         []domain.Goal         `json:"goals"`
}

// Authenticated reports whether a session is present.
func (s Snapshot) Authenticated() bool { return s.Session != nil }

// Collection returns the collection with the given id.
func (s Snapshot) Collection(collectionID string) (domain.Collection, bool) {
	i := slices.IndexFunc(s.Collections, func(c domain.Collection) bool { return c.ID == collectionID })
	if i < 0 {
		return domain.Collection{}, false
	}
	return s.Collections[i], true
}

func initial(settings domain.Settings) Snapshot {
	return Snapshot{
		Settings:      settings,
		Notifications: domain.Inbox{Items: []domain.Notification{}},
		Collections:   []domain.Collection{},
		Routines:      []domain.DailyRoutine{},
		Goals:         []domain.Goal{},
	}
}

// Options configures a Store.
type Options struct {
	Backend Backend
	Storage persist.Storage
	Key     string
	Logger  *slog.Logger
	Metrics Metrics
	Clock   func() time.Time
	IDs     id.Generator
}

// Store is the single owner of shared client state.
//
// Mutators are synchronous and atomic: each applies completely under the
// lock, then subscribers are called outside it, in mutation order.
// Subscribers must not call mutators synchronously.
type Store struct {
	backend Backend
	storage persist.Storage
	key     string
	logger  *slog.Logger
	metrics Metrics
	now     func() time.Time
	ids     id.Generator

	mu sync.Mutex
	st Snapshot
	// settingsTouched is when settings last changed locally; zero means
	// they still hold defaults or the persisted blob.
	settingsTouched time.Time

	deliverMu sync.Mutex

	subsMu  sync.Mutex
	subs    map[int]func(Snapshot)
	nextSub int

	persistMu     sync.Mutex
	persistedVer  uint64
	persistedHash string
}

// New creates a store holding default state.
func New(opts Options) *Store {
	s := &Store{
		backend: opts.Backend,
		storage: opts.Storage,
		key:     opts.Key,
		logger:  opts.Logger,
		metrics: opts.Metrics,
		now:     opts.Clock,
		ids:     opts.IDs,
		st:      initial(domain.DefaultSettings()),
		subs:    make(map[int]func(Snapshot)),
	}
	if s.key == "" {
		s.key = DefaultKey
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	if s.metrics == nil {
		s.metrics = noopMetrics{}
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.ids == nil {
		s.ids = id.Default
	}
	return s
}

// Snapshot returns the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st
}

// Subscribe registers fn to receive every new snapshot. The returned
// function removes the subscription. Subscribers may subscribe or
// unsubscribe from inside fn; a delivery already under way still reaches
// everyone registered when it started. fn must not change the store
// synchronously.
func (s *Store) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	s.nextSub++
	key := s.nextSub
	s.subs[key] = fn
	return func() {
		s.subsMu.Lock()
		defer s.subsMu.Unlock()
		delete(s.subs, key)
	}
}

func (s *Store) subscribers() []func(Snapshot) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	return slices.Collect(maps.Values(s.subs))
}

// mutate applies fn to a copy of the state. When fn reports a change, the
// copy becomes current, the version advances and subscribers are told.
func (s *Store) mutate(op string, fn func(st *Snapshot) bool) (Snapshot, bool) {
	s.mu.Lock()
	next := s.st
	if !fn(&next) {
		cur := s.st
		s.mu.Unlock()
		return cur, false
	}
	next.Version = s.st.Version + 1
	settingsChanged := next.Settings != s.st.Settings
	s.st = next

	// Taking deliverMu before releasing mu keeps deliveries in mutation order.
	s.deliverMu.Lock()
	s.mu.Unlock()
	for _, fn := range s.subscribers() {
		fn(next)
	}
	s.deliverMu.Unlock()

	s.metrics.ObserveMutation(op)
	if settingsChanged {
		s.persist(next)
	}
	return next, true
}

// SetSession replaces the session. Switching to a different identity
// (including to or from no session) starts a new generation, so requests
// begun under the old identity can no longer land, and drops the data
// fetched for the old identity.
func (s *Store) SetSession(session *domain.Session) {
	s.mutate("set_session", func(st *Snapshot) bool {
		if st.Session.UserID() != session.UserID() {
			st.Generation++
			st.Profile = nil
			st.Collections = []domain.Collection{}
			st.Routines = []domain.DailyRoutine{}
			st.Goals = []domain.Goal{}
		}
		st.Session = session
		return true
	})
}

// SetProfile replaces the profile.
func (s *Store) SetProfile(p *domain.Profile) {
	s.mutate("set_profile", func(st *Snapshot) bool {
		st.Profile = p
		return true
	})
}

// UpdateSettings deep-merges patch into the current settings. A patch with
// an unknown enum value is rejected and nothing changes.
func (s *Store) UpdateSettings(patch domain.SettingsPatch) (domain.Settings, error) {
	var mergeErr error
	st, _ := s.mutate("update_settings", func(st *Snapshot) bool {
		merged, err := st.Settings.Merge(patch)
		if err != nil {
			mergeErr = err
			return false
		}
		if merged == st.Settings {
			return false
		}
		st.Settings = merged
		s.settingsTouched = s.now()
		return true
	})
	return st.Settings, mergeErr
}

// RestoreSettings replaces the settings wholesale, for rolling back an
// optimistic update.
func (s *Store) RestoreSettings(settings domain.Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	s.mutate("restore_settings", func(st *Snapshot) bool {
		if st.Settings == settings {
			return false
		}
		st.Settings = settings
		s.settingsTouched = s.now()
		return true
	})
	return nil
}

// AddNotification prepends an unread notification and returns it.
func (s *Store) AddNotification(typ domain.NotificationType, message string) domain.Notification {
	nid, err := s.ids.Generate(id.PrefixNotification)
	if err != nil {
		s.logger.Warn("notification id generation failed", "error", err)
		nid = id.PrefixNotification + "-" + s.now().Format("20060102150405.000000000")
	}
	n := domain.Notification{ID: nid, Type: typ, Message: message, CreatedAt: s.now()}

	s.mutate("add_notification", func(st *Snapshot) bool {
		st.Notifications = st.Notifications.Prepend(n)
		return true
	})
	return n
}

// MarkNotificationAsRead marks the matching unread notification read. It
// reports false, changing nothing, for unknown or already-read ids.
func (s *Store) MarkNotificationAsRead(notificationID string) bool {
	_, changed := s.mutate("mark_notification_read", func(st *Snapshot) bool {
		inbox, changed := st.Notifications.MarkRead(notificationID)
		st.Notifications = inbox
		return changed
	})
	return changed
}

// MarkAllNotificationsRead marks every notification read.
func (s *Store) MarkAllNotificationsRead() {
	s.mutate("mark_all_notifications_read", func(st *Snapshot) bool {
		if st.Notifications.Unread == 0 {
			return false
		}
		st.Notifications = st.Notifications.MarkAllRead()
		return true
	})
}

// Reset restores initial state, keeping only the current theme. It always
// starts a new generation.
func (s *Store) Reset() {
	s.mutate("reset", func(st *Snapshot) bool {
		settings := domain.DefaultSettings()
		settings.Theme = st.Settings.Theme

		next := initial(settings)
		next.Generation = st.Generation + 1
		*st = next
		s.settingsTouched = time.Time{}
		return true
	})
}

// Logout ends the session with the collaborator, then resets the store.
// On failure the error is returned and nothing changes.
func (s *Store) Logout(ctx context.Context) error {
	if err := s.backend.SignOut(ctx); err != nil {
		s.logger.Error("logout failed", "error", err)
		return err
	}
	s.Reset()
	return nil
}
