package state

import "sync"

// Ticket identifies one request in a scope.
type Ticket struct {
	scope string
	n     uint64
}

// Sequencer lets only the most recent request per scope publish its
// result. A request takes a ticket with Begin and checks it with Current
// (or Commit) when it resolves.
type Sequencer struct {
	mu     sync.Mutex
	latest map[string]uint64
}

// NewSequencer returns an empty sequencer.
func NewSequencer() *Sequencer {
	return &Sequencer{latest: make(map[string]uint64)}
}

// Begin issues a ticket that supersedes every earlier ticket in scope.
func (q *Sequencer) Begin(scope string) Ticket {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.latest[scope]++
	return Ticket{scope: scope, n: q.latest[scope]}
}

// Current reports whether t is still the newest ticket in its scope.
func (q *Sequencer) Current(t Ticket) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.latest[t.scope] == t.n
}

// Commit runs apply only while t is current, holding the sequencer lock so
// no newer ticket can be issued in between. It reports whether apply ran.
func (q *Sequencer) Commit(t Ticket, apply func()) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.latest[t.scope] != t.n {
		return false
	}
	apply()
	return true
}

// Invalidate supersedes every outstanding ticket in scope.
func (q *Sequencer) Invalidate(scope string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.latest[scope]++
}
