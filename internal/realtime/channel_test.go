package realtime_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goodaideas/goodaideas/internal/backend"
	"github.com/goodaideas/goodaideas/internal/backend/backendtest"
	"github.com/goodaideas/goodaideas/internal/realtime"
)

var fastOpts = realtime.Options{InitialBackoff: time.Millisecond, MaxBackoff: 5 * time.Millisecond}

type stateLog struct {
	mu     sync.Mutex
	states []realtime.State
}

func (l *stateLog) record(s realtime.State, _ error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.states = append(l.states, s)
}

func (l *stateLog) snapshot() []realtime.State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]realtime.State(nil), l.states...)
}

func waitState(t *testing.T, c *realtime.Channel, want realtime.State) {
	t.Helper()
	require.Eventually(t, func() bool {
		s, _ := c.State()
		return s == want
	}, 2*time.Second, time.Millisecond)
}

func TestChannel_Lifecycle(t *testing.T) {
	fake := backendtest.New()
	var log stateLog
	var mu sync.Mutex
	var got []backend.Change

	c := realtime.NewChannel(fake, backend.ChangeFilter{Table: "ideas", Event: backend.EventInsert}, func(ch backend.Change) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, ch)
	}, log.record, fastOpts)

	s, _ := c.State()
	assert.Equal(t, realtime.StateDisconnected, s)

	c.Start(context.Background())
	waitState(t, c, realtime.StateSubscribed)

	fake.Emit(backend.Change{Table: "ideas", Type: backend.EventInsert, New: backend.Row{"id": "i1"}})
	mu.Lock()
	assert.Len(t, got, 1)
	mu.Unlock()

	c.Close()
	s, _ = c.State()
	assert.Equal(t, realtime.StateDisconnected, s)
	assert.Zero(t, fake.Subscribers("ideas"))
	assert.Equal(t, []realtime.State{
		realtime.StateConnecting, realtime.StateSubscribed, realtime.StateDisconnected,
	}, log.snapshot())

	// Closed channels deliver nothing.
	fake.Emit(backend.Change{Table: "ideas", Type: backend.EventInsert, New: backend.Row{"id": "i2"}})
	mu.Lock()
	assert.Len(t, got, 1)
	mu.Unlock()
}

func TestChannel_ReconnectsAfterConnectionLoss(t *testing.T) {
	fake := backendtest.New()
	var log stateLog
	c := realtime.NewChannel(fake, backend.ChangeFilter{Table: "ideas"}, func(backend.Change) {}, log.record, fastOpts)
	c.Start(context.Background())
	defer c.Close()
	waitState(t, c, realtime.StateSubscribed)

	fake.Drop("ideas", errors.New("socket closed"))

	require.Eventually(t, func() bool {
		return fake.CallCount("subscribe", "ideas") >= 2 && fake.Subscribers("ideas") == 1
	}, 2*time.Second, time.Millisecond)
	waitState(t, c, realtime.StateSubscribed)
	assert.Contains(t, log.snapshot(), realtime.StateError)
}

func TestChannel_RetriesFailedSubscribe(t *testing.T) {
	fake := backendtest.New()
	fake.Fail("subscribe:ideas", errors.New("refused"))

	c := realtime.NewChannel(fake, backend.ChangeFilter{Table: "ideas"}, func(backend.Change) {}, nil, fastOpts)
	c.Start(context.Background())
	defer c.Close()

	waitState(t, c, realtime.StateSubscribed)
	assert.Equal(t, 2, fake.CallCount("subscribe", "ideas"))
}

func TestChannel_CloseWithoutStart(t *testing.T) {
	c := realtime.NewChannel(backendtest.New(), backend.ChangeFilter{Table: "ideas"}, func(backend.Change) {}, nil, fastOpts)
	c.Close()
	c.Close()
}
