// Package rest talks to the hosted collaborator: PostgREST-style row
// endpoints, the auth service and the websocket change feed.
package rest

import (
	"bytes"
	"context"
	"encoding/json/v2"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/goodaideas/goodaideas/internal/backend"
	"github.com/goodaideas/goodaideas/internal/domain"
	domainerrors "github.com/goodaideas/goodaideas/internal/errors"
	"github.com/goodaideas/goodaideas/internal/ratelimit"
)

const (
	defaultTimeout   = 15 * time.Second
	defaultRPS       = 10.0
	defaultBurst     = 20
	defaultHeartbeat = 25 * time.Second

	userAgent = "goodaideas/1.0"
)

// Metrics records request outcomes. The prometheus collector satisfies it.
type Metrics interface {
	ObserveRequest(op, table, code string, d time.Duration)
}

type noopMetrics struct{}

func (noopMetrics) ObserveRequest(string, string, string, time.Duration) {}

// Options configures a Client.
type Options struct {
	// URL is the project base URL, e.g. https://xyz.example.co.
	URL string
	// AnonKey is the public API key sent with every request.
	AnonKey    string
	HTTPClient *http.Client
	Timeout    time.Duration
	// Limiter throttles outbound requests per table.
	Limiter *ratelimit.KeyedRateLimiter
	// Sessions keeps the signed-in session across restarts. Optional.
	Sessions backend.SessionStore
	// RedirectURL is where the OAuth provider sends the user back to.
	RedirectURL string
	Heartbeat   time.Duration
	Logger      *slog.Logger
	Metrics     Metrics
	Clock       func() time.Time
}

// Client implements backend.Client against the hosted service.
type Client struct {
	base      *url.URL
	anonKey   string
	http      *http.Client
	timeout   time.Duration
	limiter   *ratelimit.KeyedRateLimiter
	sessions  backend.SessionStore
	oauth     *oauth2.Config
	heartbeat time.Duration
	logger    *slog.Logger
	metrics   Metrics
	now       func() time.Time

	mu        sync.Mutex
	current   *domain.Session
	tokens    oauth2.TokenSource
	loaded    bool
	listeners map[int]func(domain.SessionEvent)
	nextID    int
	verifier  string
	subs      map[*subscription]struct{}
	closed    bool
}

var (
	_ backend.Client       = (*Client)(nil)
	_ backend.ProviderAuth = (*Client)(nil)
)

// New validates opts and creates a client. No request is made.
func New(opts Options) (*Client, error) {
	if opts.URL == "" || opts.AnonKey == "" {
		return nil, domainerrors.Validation("Missing credentials: backend URL and anon key are required")
	}
	base, err := url.Parse(strings.TrimRight(opts.URL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, domainerrors.Validationf("invalid backend URL %q", opts.URL)
	}

	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: opts.Timeout}
	}
	if opts.Limiter == nil {
		opts.Limiter = ratelimit.New(defaultRPS, defaultBurst)
	}
	if opts.Heartbeat <= 0 {
		opts.Heartbeat = defaultHeartbeat
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.Metrics == nil {
		opts.Metrics = noopMetrics{}
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	c := &Client{
		base:      base,
		anonKey:   opts.AnonKey,
		http:      opts.HTTPClient,
		timeout:   opts.Timeout,
		limiter:   opts.Limiter,
		sessions:  opts.Sessions,
		heartbeat: opts.Heartbeat,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
		now:       opts.Clock,
		listeners: make(map[int]func(domain.SessionEvent)),
		subs:      make(map[*subscription]struct{}),
	}
	c.oauth = &oauth2.Config{
		ClientID:    opts.AnonKey,
		RedirectURL: opts.RedirectURL,
		Endpoint: oauth2.Endpoint{
			AuthURL:   c.endpoint("/auth/v1/authorize"),
			TokenURL:  c.endpoint("/auth/v1/token"),
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
	return c, nil
}

// Close ends every live subscription. Later requests still work; only the
// change feed is torn down.
func (c *Client) Close() error {
	c.mu.Lock()
	c.closed = true
	subs := make([]*subscription, 0, len(c.subs))
	for s := range c.subs {
		subs = append(subs, s)
	}
	c.mu.Unlock()

	for _, s := range subs {
		_ = s.Close()
	}
	return nil
}

func (c *Client) endpoint(path string) string {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + path
	return u.String()
}

// request describes one call to the collaborator.
type request struct {
	op     string
	method string
	path   string
	query  url.Values
	body   any
	header http.Header
	// table keys the rate limiter and labels metrics.
	table string
	// bearer overrides the token sent in Authorization.
	bearer string
}

// do sends req and returns the response body of a 2xx reply.
func (c *Client) do(ctx context.Context, req request) ([]byte, error) {
	start := time.Now()
	body, err := c.send(ctx, req)

	code := "OK"
	if err != nil {
		code = string(domainerrors.CodeOf(err))
	}
	c.metrics.ObserveRequest(req.op, req.table, code, time.Since(start))
	return body, err
}

func (c *Client) send(ctx context.Context, req request) ([]byte, error) {
	key := req.table
	if key == "" {
		key = req.op
	}
	if err := c.limiter.Wait(ctx, key); err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeTransient, "request cancelled")
	}

	u := c.endpoint(req.path)
	if len(req.query) > 0 {
		u += "?" + req.query.Encode()
	}

	var payload io.Reader
	if req.body != nil {
		data, err := json.Marshal(req.body)
		if err != nil {
			return nil, fmt.Errorf("encode %s body: %w", req.op, err)
		}
		payload = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, u, payload)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	bearer := req.bearer
	if bearer == "" {
		if bearer, err = c.accessToken(ctx); err != nil {
			return nil, err
		}
	}
	httpReq.Header.Set("apikey", c.anonKey)
	httpReq.Header.Set("Authorization", "Bearer "+bearer)
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", userAgent)
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	for k, vs := range req.header {
		httpReq.Header[k] = vs
	}

	c.logger.Debug("backend request", "op", req.op, "method", req.method, "path", req.path)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeTransient, "network request failed")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeTransient, "read response")
	}

	if resp.StatusCode >= http.StatusMultipleChoices {
		return nil, decodeError(resp.StatusCode, data)
	}
	return data, nil
}

// decodeError turns an error reply into a coded error. Row endpoints reply
// {code, message}; the auth service uses {error, error_description} or
// {error_code, msg}.
func decodeError(status int, body []byte) error {
	var m map[string]any
	_ = json.Unmarshal(body, &m)

	code := firstString(m, "error_code", "code", "error")
	msg := firstString(m, "message", "msg", "error_description", "error")
	if msg == "" {
		msg = strings.TrimSpace(string(body))
	}
	return (&backend.Error{Status: status, Code: code, Message: msg}).Domain()
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func decodeRows(op string, data []byte) ([]backend.Row, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	var rows []backend.Row
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "decode "+op+" response")
	}
	return rows, nil
}

func isAuthFailure(err error) bool {
	return domainerrors.Is(err, domainerrors.ErrUnauthorized) ||
		domainerrors.Is(err, domainerrors.ErrTokenExpired) ||
		domainerrors.Is(err, domainerrors.ErrInvalidCredentials)
}

var errClosed = errors.New("client closed")
