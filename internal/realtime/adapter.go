package realtime

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/goodaideas/goodaideas/internal/backend"
	"github.com/goodaideas/goodaideas/internal/domain"
)

// Notifier surfaces non-blocking notices to the user.
type Notifier interface {
	AddNotification(typ domain.NotificationType, message string) domain.Notification
}

// Notices shown when a live channel drops and recovers.
const (
	NoticeConnectionLost     = "Live updates interrupted. Reconnecting…"
	NoticeConnectionRestored = "Live updates restored."
)

// Scope names one collaboration surface and the rows it follows.
type Scope struct {
	Key    string
	Filter backend.ChangeFilter
}

// Adapter owns the live channel of one surface (a chat pane, a board).
// Switching scope tears the old channel down before the new one starts, so
// two scopes are never live at once on the same adapter.
type Adapter struct {
	rt       backend.Realtime
	notifier Notifier
	opts     Options

	gen atomic.Uint64

	mu      sync.Mutex
	scope   Scope
	current *Channel
}

// NewAdapter returns an adapter with no live channel. notifier may be nil.
func NewAdapter(rt backend.Realtime, notifier Notifier, opts Options) *Adapter {
	return &Adapter{rt: rt, notifier: notifier, opts: opts.withDefaults()}
}

// Switch replaces the live channel with one for scope. handler receives
// the new scope's changes in delivery order; events still in flight from
// the previous scope are dropped.
func (a *Adapter) Switch(ctx context.Context, scope Scope, handler func(backend.Change)) *Channel {
	a.mu.Lock()
	defer a.mu.Unlock()

	gen := a.gen.Add(1)
	if a.current != nil {
		a.current.Close()
		a.current = nil
	}
	a.scope = scope

	guarded := func(ch backend.Change) {
		if a.gen.Load() != gen {
			return
		}
		handler(ch)
	}
	c := NewChannel(a.rt, scope.Filter, guarded, a.stateHook(scope), a.opts)
	a.current = c
	c.Start(ctx)
	return c
}

// Scope returns the live scope, or the zero Scope when none is live.
func (a *Adapter) Scope() Scope {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.current == nil {
		return Scope{}
	}
	return a.scope
}

// Channel returns the live channel, or nil.
func (a *Adapter) Channel() *Channel {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current
}

// Close tears down the live channel.
func (a *Adapter) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.gen.Add(1)
	if a.current != nil {
		a.current.Close()
		a.current = nil
	}
	a.scope = Scope{}
}

// stateHook turns connection loss and recovery into user notices. Only the
// first failure of an outage is reported.
func (a *Adapter) stateHook(scope Scope) func(State, error) {
	var failing bool
	return func(s State, err error) {
		switch s {
		case StateError:
			if failing {
				return
			}
			failing = true
			a.opts.Logger.Warn("realtime channel failed", "scope", scope.Key, "error", err)
			if a.notifier != nil {
				a.notifier.AddNotification(domain.NotifyConnection, NoticeConnectionLost)
			}
		case StateSubscribed:
			if !failing {
				return
			}
			failing = false
			a.opts.Logger.Info("realtime channel recovered", "scope", scope.Key)
			if a.notifier != nil {
				a.notifier.AddNotification(domain.NotifyConnection, NoticeConnectionRestored)
			}
		}
	}
}
