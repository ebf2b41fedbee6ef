package rest

import (
	"context"
	"encoding/json/jsontext"
	"encoding/json/v2"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/net/websocket"

	"github.com/goodaideas/goodaideas/internal/backend"
	domainerrors "github.com/goodaideas/goodaideas/internal/errors"
)

// Channel protocol events.
const (
	eventJoin      = "phx_join"
	eventLeave     = "phx_leave"
	eventReply     = "phx_reply"
	eventError     = "phx_error"
	eventClose     = "phx_close"
	eventHeartbeat = "heartbeat"
	eventChanges   = "postgres_changes"

	joinRef = "1"
)

// frame is one channel protocol message.
type frame struct {
	Topic   string         `json:"topic"`
	Event   string         `json:"event"`
	Payload jsontext.Value `json:"payload"`
	Ref     string         `json:"ref"`
}

type replyPayload struct {
	Status   string `json:"status"`
	Response struct {
		Reason string `json:"reason"`
	} `json:"response"`
}

type changesPayload struct {
	Data struct {
		Table     string      `json:"table"`
		Type      string      `json:"type"`
		Record    backend.Row `json:"record"`
		OldRecord backend.Row `json:"old_record"`
	} `json:"data"`
}

type changeSpec struct {
	Event  string `json:"event"`
	Schema string `json:"schema"`
	Table  string `json:"table"`
	Filter string `json:"filter,omitempty"`
}

// Subscribe implements backend.Realtime. Each subscription owns one
// websocket and one channel on it.
func (c *Client) Subscribe(ctx context.Context, f backend.ChangeFilter, fn func(backend.Change)) (backend.Subscription, error) {
	if f.Table == "" {
		return nil, domainerrors.Validation("subscription table is required")
	}
	spec := changeSpec{Event: string(f.Event), Schema: "public", Table: f.Table}
	if spec.Event == "" {
		spec.Event = string(backend.EventAll)
	}
	if f.Filter != nil {
		if f.Filter.Op != backend.OpEq && f.Filter.Op != "" {
			return nil, domainerrors.Validationf("change feed supports eq filters only, got %q", f.Filter.Op)
		}
		spec.Filter = f.Filter.Column + "=eq." + scalar(f.Filter.Value)
	}

	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	conn, err := c.dial(ctx)
	if err != nil {
		return nil, err
	}

	s := &subscription{
		c:     c,
		conn:  conn,
		topic: "realtime:" + f.Table,
		fn:    fn,
		errs:  make(chan error, 1),
		done:  make(chan struct{}),
	}
	if spec.Filter != "" {
		s.topic += ":" + spec.Filter
	}

	if err := s.join(ctx, spec, token); err != nil {
		conn.Close()
		return nil, err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		conn.Close()
		return nil, domainerrors.Wrap(errClosed, domainerrors.CodeTransient, "subscribe")
	}
	c.subs[s] = struct{}{}
	c.mu.Unlock()

	c.logger.Debug("realtime channel joined", "topic", s.topic)
	go s.readLoop()
	go s.heartbeatLoop(c.heartbeat)
	return s, nil
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	u := *c.base
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path += "/realtime/v1/websocket"
	u.RawQuery = "apikey=" + c.anonKey + "&vsn=1.0.0"

	cfg, err := websocket.NewConfig(u.String(), c.base.String())
	if err != nil {
		return nil, fmt.Errorf("websocket config: %w", err)
	}
	cfg.Header.Set("User-Agent", userAgent)

	conn, err := cfg.DialContext(ctx)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeTransient, "realtime connection failed")
	}
	return conn, nil
}

type subscription struct {
	c     *Client
	conn  *websocket.Conn
	topic string
	fn    func(backend.Change)

	errs chan error
	done chan struct{}
	once sync.Once

	writeMu sync.Mutex
	ref     atomic.Int64
}

func (s *subscription) Err() <-chan error { return s.errs }

// Close leaves the channel and closes the socket.
func (s *subscription) Close() error {
	select {
	case <-s.done:
		return nil
	default:
	}
	_ = s.send(s.topic, eventLeave, map[string]any{})
	s.end(nil)
	return nil
}

// end tears the subscription down, reporting err first when non-nil.
// Only the first call has any effect.
func (s *subscription) end(err error) {
	s.once.Do(func() {
		s.c.mu.Lock()
		delete(s.c.subs, s)
		s.c.mu.Unlock()

		close(s.done)
		s.conn.Close()
		if err != nil {
			s.c.logger.Warn("realtime channel lost", "topic", s.topic, "error", err)
			s.errs <- err
		}
		close(s.errs)
	})
}

func (s *subscription) send(topic, event string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	data, err := json.Marshal(frame{
		Topic:   topic,
		Event:   event,
		Payload: body,
		Ref:     strconv.FormatInt(s.ref.Add(1), 10),
	})
	if err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return websocket.Message.Send(s.conn, string(data))
}

func (s *subscription) receive() (frame, error) {
	var data []byte
	if err := websocket.Message.Receive(s.conn, &data); err != nil {
		return frame{}, err
	}
	var f frame
	if err := json.Unmarshal(data, &f); err != nil {
		return frame{}, fmt.Errorf("decode frame: %w", err)
	}
	return f, nil
}

// join sends phx_join and waits for the server's reply to it.
func (s *subscription) join(ctx context.Context, spec changeSpec, token string) error {
	payload := map[string]any{
		"config": map[string]any{
			"postgres_changes": []changeSpec{spec},
		},
		"access_token": token,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	data, err := json.Marshal(frame{Topic: s.topic, Event: eventJoin, Payload: body, Ref: joinRef})
	if err != nil {
		return err
	}
	s.ref.Store(1)

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(s.c.timeout)
	}
	_ = s.conn.SetDeadline(deadline)
	defer s.conn.SetDeadline(time.Time{})

	if err := websocket.Message.Send(s.conn, string(data)); err != nil {
		return domainerrors.Wrap(err, domainerrors.CodeTransient, "join channel")
	}

	for {
		f, err := s.receive()
		if err != nil {
			return domainerrors.Wrap(err, domainerrors.CodeTransient, "join channel")
		}
		if f.Event != eventReply || f.Ref != joinRef {
			continue
		}
		var reply replyPayload
		if err := json.Unmarshal(f.Payload, &reply); err != nil {
			return domainerrors.Wrap(err, domainerrors.CodeTransient, "decode join reply")
		}
		if reply.Status != "ok" {
			return domainerrors.Transient("join rejected: " + reply.Response.Reason)
		}
		return nil
	}
}

// readLoop delivers changes in arrival order until the socket fails or the
// server closes the channel.
func (s *subscription) readLoop() {
	for {
		f, err := s.receive()
		if err != nil {
			s.end(domainerrors.Wrap(err, domainerrors.CodeTransient, "realtime connection lost"))
			return
		}

		switch f.Event {
		case eventChanges:
			var p changesPayload
			if err := json.Unmarshal(f.Payload, &p); err != nil {
				s.c.logger.Warn("dropping malformed change", "topic", s.topic, "error", err)
				continue
			}
			s.fn(backend.Change{
				Table: p.Data.Table,
				Type:  backend.EventType(p.Data.Type),
				New:   p.Data.Record,
				Old:   p.Data.OldRecord,
			})
		case eventError:
			s.end(domainerrors.Transient("realtime channel error"))
			return
		case eventClose:
			if f.Topic == s.topic {
				s.end(domainerrors.Transient("realtime channel closed by server"))
				return
			}
		}
	}
}

func (s *subscription) heartbeatLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			if err := s.send("phoenix", eventHeartbeat, map[string]any{}); err != nil {
				s.end(domainerrors.Wrap(err, domainerrors.CodeTransient, "realtime heartbeat failed"))
				return
			}
		}
	}
}
