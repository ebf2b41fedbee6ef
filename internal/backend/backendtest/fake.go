// Package backendtest provides an in-memory collaborator for tests. It keeps
// rows per table, records every call, and lets a test inject failures or run
// code at the moment an operation resolves.
package backendtest

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/goodaideas/goodaideas/internal/backend"
	"github.com/goodaideas/goodaideas/internal/domain"
	domainerrors "github.com/goodaideas/goodaideas/internal/errors"
	"github.com/goodaideas/goodaideas/internal/id"
)

// Call is one recorded operation.
type Call struct {
	Op    string
	Table string
	Query backend.Query
	Rows  []backend.Row
}

// Fake implements backend.Client in memory.
type Fake struct {
	mu        sync.Mutex
	tables    map[string][]backend.Row
	accounts  map[string]string
	authCodes map[string]string
	session   *domain.Session
	failures  map[string]error
	hooks     map[string]func()
	calls     []Call
	listeners map[int]func(domain.SessionEvent)
	nextID    int
	subs      map[*subscription]struct{}
	now       func() time.Time
}

var (
	_ backend.Client       = (*Fake)(nil)
	_ backend.ProviderAuth = (*Fake)(nil)
)

// New returns an empty fake.
func New() *Fake {
	return &Fake{
		tables:    make(map[string][]backend.Row),
		accounts:  make(map[string]string),
		authCodes: make(map[string]string),
		failures:  make(map[string]error),
		hooks:     make(map[string]func()),
		listeners: make(map[int]func(domain.SessionEvent)),
		subs:      make(map[*subscription]struct{}),
		now:       time.Now,
	}
}

// Seed appends rows to table without recording a call or emitting changes.
func (f *Fake) Seed(table string, rows ...backend.Row) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range rows {
		f.tables[table] = append(f.tables[table], maps.Clone(r))
	}
}

// Rows returns a copy of every row in table.
func (f *Fake) Rows(table string) []backend.Row {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]backend.Row, 0, len(f.tables[table]))
	for _, r := range f.tables[table] {
		out = append(out, maps.Clone(r))
	}
	return out
}

// AddAccount registers credentials accepted by SignInWithPassword.
func (f *Fake) AddAccount(email, password string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accounts[email] = password
}

// SetSession sets the current session without firing events.
func (f *Fake) SetSession(s *domain.Session) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.session = s
}

// Fail makes the next operation named key return err. Keys are
// "select:<table>", "insert:<table>", "upsert:<table>", "delete:<table>",
// "subscribe:<table>", "signin", "signup", "signout" and "session".
func (f *Fake) Fail(key string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[key] = err
}

// OnResolve runs fn once, just before the operation named key returns.
func (f *Fake) OnResolve(key string, fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hooks[key] = fn
}

// Calls returns the recorded calls.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.calls)
}

// CallCount returns how many calls were recorded with op on table.
func (f *Fake) CallCount(op, table string) int {
	n := 0
	for _, c := range f.Calls() {
		if c.Op == op && c.Table == table {
			n++
		}
	}
	return n
}

// begin records the call and takes any pending failure and hook for key.
func (f *Fake) begin(key string, c Call) (func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
	err := f.failures[key]
	delete(f.failures, key)
	hook := f.hooks[key]
	delete(f.hooks, key)
	return hook, err
}

func run(hook func()) {
	if hook != nil {
		hook()
	}
}

// GetSession implements backend.Auth.
func (f *Fake) GetSession(ctx context.Context) (*domain.Session, error) {
	hook, err := f.begin("session", Call{Op: "session"})
	defer run(hook)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.session, ctx.Err()
}

// SignInWithPassword implements backend.Auth.
func (f *Fake) SignInWithPassword(ctx context.Context, email, password string) (*domain.Session, error) {
	hook, err := f.begin("signin", Call{Op: "signin"})
	defer run(hook)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	want, ok := f.accounts[email]
	f.mu.Unlock()
	if !ok || want != password {
		return nil, domainerrors.InvalidCredentials("Invalid login credentials")
	}
	return f.establish(email), nil
}

// SignUp implements backend.Auth.
func (f *Fake) SignUp(ctx context.Context, email, password string, hints backend.ProfileHints) (*domain.Session, error) {
	hook, err := f.begin("signup", Call{Op: "signup"})
	defer run(hook)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	if _, exists := f.accounts[email]; exists {
		f.mu.Unlock()
		return nil, domainerrors.Conflict("User already registered")
	}
	f.accounts[email] = password
	f.mu.Unlock()

	// The profile row exists before SIGNED_IN fires, as with the real backends.
	uid := id.NewUUID()
	f.Seed("users", backend.Row{
		"id": uid, "username": hints.Username, "points": 0,
		"created_at": f.now().UTC().Format(time.RFC3339Nano),
	})
	return f.establishAs(uid, email), nil
}

func (f *Fake) establish(email string) *domain.Session {
	return f.establishAs(id.NewUUID(), email)
}

func (f *Fake) establishAs(uid, email string) *domain.Session {
	s := &domain.Session{
		AccessToken:  id.MustGenerate(id.PrefixToken),
		RefreshToken: id.MustGenerate(id.PrefixToken),
		TokenType:    "bearer",
		ExpiresAt:    f.now().Add(time.Hour),
		User:         domain.SessionUser{ID: uid, Email: email},
	}
	f.SetSession(s)
	f.notify(domain.SessionEvent{Kind: domain.SessionSignedIn, Session: s})
	return s
}

// AddAuthCode makes ExchangeCode accept code as a provider sign-in for
// email.
func (f *Fake) AddAuthCode(code, email string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.authCodes[code] = email
}

// AuthorizeURL implements backend.ProviderAuth.
func (f *Fake) AuthorizeURL(provider string) (string, error) {
	if provider == "" {
		return "", domainerrors.Validation("provider is required")
	}
	f.mu.Lock()
	f.calls = append(f.calls, Call{Op: "authorize", Table: provider})
	f.mu.Unlock()
	return "https://auth.fake/authorize?provider=" + provider, nil
}

// ExchangeCode implements backend.ProviderAuth.
func (f *Fake) ExchangeCode(ctx context.Context, code string) (*domain.Session, error) {
	hook, err := f.begin("exchange", Call{Op: "exchange"})
	defer run(hook)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	email, ok := f.authCodes[code]
	delete(f.authCodes, code)
	f.mu.Unlock()
	if !ok {
		return nil, domainerrors.InvalidCredentials("Invalid or expired sign-in code")
	}
	return f.establish(email), nil
}

// SignOut implements backend.Auth.
func (f *Fake) SignOut(ctx context.Context) error {
	hook, err := f.begin("signout", Call{Op: "signout"})
	defer run(hook)
	if err != nil {
		return err
	}
	f.SetSession(nil)
	f.notify(domain.SessionEvent{Kind: domain.SessionSignedOut})
	return nil
}

// OnSessionChange implements backend.Auth.
func (f *Fake) OnSessionChange(fn func(domain.SessionEvent)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	key := f.nextID
	f.listeners[key] = fn
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.listeners, key)
	}
}

// notify fires ev on every session listener.
func (f *Fake) notify(ev domain.SessionEvent) {
	f.mu.Lock()
	fns := slices.Collect(maps.Values(f.listeners))
	f.mu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}

// FireSessionEvent delivers ev to listeners as if the collaborator raised it.
func (f *Fake) FireSessionEvent(ev domain.SessionEvent) {
	f.SetSession(ev.Session)
	f.notify(ev)
}

// Select implements backend.Rows.
func (f *Fake) Select(ctx context.Context, q backend.Query) ([]backend.Row, error) {
	hook, err := f.begin("select:"+q.Table, Call{Op: "select", Table: q.Table, Query: q})
	defer run(hook)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return backend.Evaluate(f.Rows(q.Table), q), nil
}

// SelectOne implements backend.Rows.
func (f *Fake) SelectOne(ctx context.Context, q backend.Query) (backend.Row, error) {
	hook, err := f.begin("select:"+q.Table, Call{Op: "select", Table: q.Table, Query: q})
	defer run(hook)
	if err != nil {
		return nil, err
	}
	rows := backend.Evaluate(f.Rows(q.Table), q)
	if len(rows) != 1 {
		return nil, backend.NotFound(q.Table)
	}
	return rows[0], nil
}

// Insert implements backend.Rows. Rows without an id get a UUID.
func (f *Fake) Insert(ctx context.Context, table string, rows []backend.Row) ([]backend.Row, error) {
	hook, err := f.begin("insert:"+table, Call{Op: "insert", Table: table, Rows: rows})
	defer run(hook)
	if err != nil {
		return nil, err
	}

	out := make([]backend.Row, 0, len(rows))
	for _, r := range rows {
		r = f.stamp(r)
		f.Seed(table, r)
		out = append(out, r)
		f.Emit(backend.Change{Table: table, Type: backend.EventInsert, New: r})
	}
	return out, nil
}

// Upsert implements backend.Rows.
func (f *Fake) Upsert(ctx context.Context, table string, row backend.Row, conflictKey string) (backend.Row, error) {
	hook, err := f.begin("upsert:"+table, Call{Op: "upsert", Table: table, Rows: []backend.Row{row}})
	defer run(hook)
	if err != nil {
		return nil, err
	}

	keys := backend.SplitConflictKey(conflictKey)
	f.mu.Lock()
	for i, existing := range f.tables[table] {
		if backend.SameKey(existing, row, keys) {
			merged := maps.Clone(existing)
			maps.Copy(merged, row)
			f.tables[table][i] = merged
			f.mu.Unlock()
			f.Emit(backend.Change{Table: table, Type: backend.EventUpdate, New: merged, Old: existing})
			return maps.Clone(merged), nil
		}
	}
	f.mu.Unlock()

	row = f.stamp(row)
	f.Seed(table, row)
	f.Emit(backend.Change{Table: table, Type: backend.EventInsert, New: row})
	return row, nil
}

// Delete implements backend.Rows.
func (f *Fake) Delete(ctx context.Context, table string, filters []backend.Filter) error {
	hook, err := f.begin("delete:"+table, Call{Op: "delete", Table: table, Query: backend.Query{Table: table, Filters: filters}})
	defer run(hook)
	if err != nil {
		return err
	}

	f.mu.Lock()
	var removed []backend.Row
	f.tables[table] = slices.DeleteFunc(f.tables[table], func(r backend.Row) bool {
		if backend.Match(r, filters) {
			removed = append(removed, r)
			return true
		}
		return false
	})
	f.mu.Unlock()

	for _, r := range removed {
		f.Emit(backend.Change{Table: table, Type: backend.EventDelete, Old: r})
	}
	return nil
}

func (f *Fake) stamp(r backend.Row) backend.Row {
	r = maps.Clone(r)
	if _, ok := r["id"]; !ok {
		r["id"] = id.NewUUID()
	}
	if _, ok := r["created_at"]; !ok {
		r["created_at"] = f.now().UTC().Format(time.RFC3339Nano)
	}
	return r
}

// Close implements backend.Client.
func (f *Fake) Close() error {
	f.mu.Lock()
	subs := slices.Collect(maps.Keys(f.subs))
	f.mu.Unlock()
	for _, s := range subs {
		_ = s.Close()
	}
	return nil
}
