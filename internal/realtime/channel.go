// Package realtime mirrors remote append-only row streams into local state.
// A Channel keeps one change-feed subscription alive, reconnecting with
// exponential backoff; a Mirror applies delivered records exactly once by
// id; an Adapter guarantees at most one live channel per surface.
package realtime

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/goodaideas/goodaideas/internal/backend"
)

// State is a channel lifecycle state.
type State string

// Channel states. A channel moves disconnected → connecting → subscribed,
// and on failure subscribed → error → connecting until it is closed.
const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateSubscribed   State = "subscribed"
	StateError        State = "error"
)

// errFeedClosed is reported when the collaborator ends a subscription
// without giving a reason.
var errFeedClosed = errors.New("change feed closed by server")

// Metrics receives channel activity.
type Metrics interface {
	ObserveChannelState(table, state string)
	ObserveReconnect(table string)
	ObserveEvent(table string, duplicate bool)
}

type noopMetrics struct{}

func (noopMetrics) ObserveChannelState(string, string) {}
func (noopMetrics) ObserveReconnect(string)            {}
func (noopMetrics) ObserveEvent(string, bool)          {}

// Options tunes channels.
type Options struct {
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Logger         *slog.Logger
	Metrics        Metrics
}

func (o Options) withDefaults() Options {
	if o.InitialBackoff <= 0 {
		o.InitialBackoff = 500 * time.Millisecond
	}
	if o.MaxBackoff <= 0 {
		o.MaxBackoff = 30 * time.Second
	}
	if o.MaxBackoff < o.InitialBackoff {
		o.MaxBackoff = o.InitialBackoff
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	if o.Metrics == nil {
		o.Metrics = noopMetrics{}
	}
	return o
}

func (o Options) backoff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = o.InitialBackoff
	b.MaxInterval = o.MaxBackoff
	b.RandomizationFactor = 0.2
	b.Multiplier = 2
	b.Reset()
	return b
}

// Channel is one logical subscription kept alive across connection loss.
type Channel struct {
	rt      backend.Realtime
	filter  backend.ChangeFilter
	handler func(backend.Change)
	onState func(State, error)
	opts    Options

	mu      sync.Mutex
	state   State
	lastErr error

	closed atomic.Bool
	cancel context.CancelFunc
	done   chan struct{}
}

// NewChannel prepares a channel; nothing connects until Start.
// handler receives changes in delivery order; onState, if set, observes
// every transition.
func NewChannel(rt backend.Realtime, filter backend.ChangeFilter, handler func(backend.Change), onState func(State, error), opts Options) *Channel {
	return &Channel{
		rt:      rt,
		filter:  filter,
		handler: handler,
		onState: onState,
		opts:    opts.withDefaults(),
		state:   StateDisconnected,
		done:    make(chan struct{}),
	}
}

// Start connects in the background. The channel runs until Close or until
// ctx is cancelled.
func (c *Channel) Start(ctx context.Context) {
	ctx, c.cancel = context.WithCancel(ctx)
	go c.run(ctx)
}

// State returns the current state and the last connection error.
func (c *Channel) State() (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state, c.lastErr
}

// Close tears the channel down and waits until no more events can be
// delivered from it.
func (c *Channel) Close() {
	if c.closed.Swap(true) {
		<-c.done
		return
	}
	if c.cancel == nil {
		close(c.done)
		return
	}
	c.cancel()
	<-c.done
}

func (c *Channel) setState(s State, err error) {
	c.mu.Lock()
	if c.state == s && err == nil {
		c.mu.Unlock()
		return
	}
	c.state = s
	c.lastErr = err
	c.mu.Unlock()

	c.opts.Metrics.ObserveChannelState(c.filter.Table, string(s))
	if c.onState != nil {
		c.onState(s, err)
	}
}

func (c *Channel) deliver(ch backend.Change) {
	if c.closed.Load() {
		return
	}
	c.handler(ch)
}

func (c *Channel) run(ctx context.Context) {
	defer close(c.done)
	defer c.setState(StateDisconnected, nil)

	b := c.opts.backoff()
	for {
		c.setState(StateConnecting, nil)
		err := c.session(ctx, b)
		if ctx.Err() != nil {
			return
		}

		c.opts.Logger.Warn("realtime connection lost",
			"channel", c.filter.Table, "error", err)
		c.setState(StateError, err)

		wait := b.NextBackOff()
		c.opts.Metrics.ObserveReconnect(c.filter.Table)
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// session subscribes once and blocks until the subscription fails or ctx
// ends.
func (c *Channel) session(ctx context.Context, b *backoff.ExponentialBackOff) error {
	sub, err := c.rt.Subscribe(ctx, c.filter, c.deliver)
	if err != nil {
		return err
	}
	defer sub.Close()

	c.setState(StateSubscribed, nil)
	b.Reset()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err, ok := <-sub.Err():
		if !ok || err == nil {
			return errFeedClosed
		}
		return err
	}
}
