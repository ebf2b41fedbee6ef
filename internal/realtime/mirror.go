package realtime

import (
	"slices"
	"sync"
)

// Mirror is a local ordered copy of a remote append-only list. Records are
// keyed by id and applied at most once, so duplicate delivery is harmless.
type Mirror[T any] struct {
	key func(T) string

	mu       sync.Mutex
	items    []T
	seen     map[string]struct{}
	onChange func([]T)
}

// NewMirror returns an empty mirror keyed by key.
func NewMirror[T any](key func(T) string) *Mirror[T] {
	return &Mirror[T]{key: key, items: []T{}, seen: make(map[string]struct{})}
}

// OnChange registers fn to receive the list after every change. fn runs
// with the mirror locked and must not call back into it.
func (m *Mirror[T]) OnChange(fn func([]T)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChange = fn
}

// Seed places history in front of whatever live records already arrived.
// Records present in both are kept once, at their history position.
func (m *Mirror[T]) Seed(history []T) {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := make([]T, 0, len(history)+len(m.items))
	seen := make(map[string]struct{}, len(history)+len(m.items))
	for _, list := range [][]T{history, m.items} {
		for _, item := range list {
			k := m.key(item)
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			next = append(next, item)
		}
	}
	m.items, m.seen = next, seen
	m.changed()
}

// Apply appends item unless a record with the same id is present. It
// reports whether the item was appended.
func (m *Mirror[T]) Apply(item T) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := m.key(item)
	if _, dup := m.seen[k]; dup {
		return false
	}
	m.seen[k] = struct{}{}
	m.items = append(slices.Clip(m.items), item)
	m.changed()
	return true
}

// Reset empties the mirror.
func (m *Mirror[T]) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = []T{}
	m.seen = make(map[string]struct{})
	m.changed()
}

// Items returns a copy of the records in order.
func (m *Mirror[T]) Items() []T {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.items)
}

// Len returns the number of records.
func (m *Mirror[T]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

func (m *Mirror[T]) changed() {
	if m.onChange != nil {
		m.onChange(slices.Clone(m.items))
	}
}
