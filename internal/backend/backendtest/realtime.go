package backendtest

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/goodaideas/goodaideas/internal/backend"
)

type subscription struct {
	fake   *Fake
	filter backend.ChangeFilter
	fn     func(backend.Change)
	errs   chan error
	once   sync.Once
}

func (s *subscription) Err() <-chan error { return s.errs }

func (s *subscription) Close() error {
	s.end(nil)
	return nil
}

// end unregisters s, reporting err first when non-nil. Only the first call
// has any effect, so errs is never written after it is closed.
func (s *subscription) end(err error) {
	s.once.Do(func() {
		s.fake.mu.Lock()
		delete(s.fake.subs, s)
		s.fake.mu.Unlock()
		if err != nil {
			s.errs <- err
		}
		close(s.errs)
	})
}

// Subscribe implements backend.Realtime.
func (f *Fake) Subscribe(ctx context.Context, filter backend.ChangeFilter, fn func(backend.Change)) (backend.Subscription, error) {
	hook, err := f.begin("subscribe:"+filter.Table, Call{Op: "subscribe", Table: filter.Table})
	defer run(hook)
	if err != nil {
		return nil, err
	}

	s := &subscription{fake: f, filter: filter, fn: fn, errs: make(chan error, 1)}
	f.mu.Lock()
	f.subs[s] = struct{}{}
	f.mu.Unlock()
	return s, nil
}

// Emit delivers c synchronously to every matching live subscription.
func (f *Fake) Emit(c backend.Change) {
	for _, s := range f.live() {
		if s.filter.Matches(c) {
			s.fn(c)
		}
	}
}

// Drop simulates connection loss on every subscription to table: each one
// reports err and is closed.
func (f *Fake) Drop(table string, err error) {
	for _, s := range f.live() {
		if s.filter.Table != table {
			continue
		}
		s.end(err)
	}
}

// Subscribers returns how many live subscriptions watch table.
func (f *Fake) Subscribers(table string) int {
	n := 0
	for _, s := range f.live() {
		if s.filter.Table == table {
			n++
		}
	}
	return n
}

func (f *Fake) live() []*subscription {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Collect(maps.Keys(f.subs))
}
