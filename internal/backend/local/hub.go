package local

import (
	"context"
	"log/slog"
	"sync"

	"github.com/goodaideas/goodaideas/internal/backend"
	domainerrors "github.com/goodaideas/goodaideas/internal/errors"
	"github.com/goodaideas/goodaideas/internal/id"
)

// subscriberBuffer is how many undelivered changes a subscriber may fall
// behind before it is disconnected.
const subscriberBuffer = 128

var (
	errConnectionLost = domainerrors.Transient("realtime connection lost")
	errSlowSubscriber = domainerrors.Transient("realtime subscriber fell behind")
)

// hub fans row changes out to subscriptions. Each subscription has its own
// buffered queue and delivery goroutine, so a slow handler never blocks a
// write. A subscriber whose queue overflows is disconnected rather than
// silently missing changes; the client reconnects and refetches.
type hub struct {
	mu     sync.RWMutex
	subs   map[string]*subscription
	logger *slog.Logger
	closed bool
}

func newHub(logger *slog.Logger) *hub {
	return &hub{subs: make(map[string]*subscription), logger: logger}
}

type subscription struct {
	id     string
	hub    *hub
	filter backend.ChangeFilter
	fn     func(backend.Change)
	events chan backend.Change
	errs   chan error
	done   chan struct{}
	once   sync.Once
}

func (s *subscription) Err() <-chan error { return s.errs }

func (s *subscription) Close() error {
	s.end(nil)
	return nil
}

// end unregisters the subscription, reporting err first when non-nil.
func (s *subscription) end(err error) {
	s.once.Do(func() {
		s.hub.mu.Lock()
		delete(s.hub.subs, s.id)
		s.hub.mu.Unlock()

		if err != nil {
			s.errs <- err
		}
		close(s.errs)
		close(s.done)
	})
}

func (s *subscription) pump() {
	for {
		select {
		case <-s.done:
			return
		case c := <-s.events:
			select {
			case <-s.done:
				return
			default:
			}
			s.fn(c)
		}
	}
}

func (h *hub) subscribe(filter backend.ChangeFilter, fn func(backend.Change)) (*subscription, error) {
	subID, err := id.Generate(id.PrefixSubscription)
	if err != nil {
		return nil, err
	}
	s := &subscription{
		id:     subID,
		hub:    h,
		filter: filter,
		fn:     fn,
		events: make(chan backend.Change, subscriberBuffer),
		errs:   make(chan error, 1),
		done:   make(chan struct{}),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, domainerrors.Transient("backend is closed")
	}
	h.subs[s.id] = s
	total := len(h.subs)
	h.mu.Unlock()

	go s.pump()

	h.logger.Debug("realtime subscriber added",
		slog.String("subscription", s.id),
		slog.String("table", filter.Table),
		slog.Int("total", total))
	return s, nil
}

// publish queues c for every matching subscriber without blocking.
func (h *hub) publish(c backend.Change) {
	var laggards []*subscription

	h.mu.RLock()
	for _, s := range h.subs {
		if !s.filter.Matches(c) {
			continue
		}
		select {
		case s.events <- c:
		default:
			laggards = append(laggards, s)
		}
	}
	h.mu.RUnlock()

	for _, s := range laggards {
		h.logger.Warn("disconnecting slow realtime subscriber",
			slog.String("subscription", s.id),
			slog.String("table", s.filter.Table))
		s.end(errSlowSubscriber)
	}
}

func (h *hub) matching(table string) []*subscription {
	h.mu.RLock()
	defer h.mu.RUnlock()
	var out []*subscription
	for _, s := range h.subs {
		if table == "" || s.filter.Table == table {
			out = append(out, s)
		}
	}
	return out
}

func (h *hub) disconnect(table string, err error) int {
	subs := h.matching(table)
	for _, s := range subs {
		s.end(err)
	}
	return len(subs)
}

func (h *hub) count(table string) int {
	return len(h.matching(table))
}

func (h *hub) closeAll() {
	h.mu.Lock()
	h.closed = true
	h.mu.Unlock()
	h.disconnect("", nil)
}

// Subscribe implements backend.Realtime. Only equality filters are
// supported, as on the hosted service.
func (b *Backend) Subscribe(_ context.Context, f backend.ChangeFilter, fn func(backend.Change)) (backend.Subscription, error) {
	if f.Table == "" {
		return nil, domainerrors.Validation("subscription needs a table")
	}
	if f.Filter != nil && f.Filter.Op != "" && f.Filter.Op != backend.OpEq {
		return nil, domainerrors.Validationf("realtime filter %q is not supported", f.Filter.Op)
	}
	return b.hub.subscribe(f, fn)
}
