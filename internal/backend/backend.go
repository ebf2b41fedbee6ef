// Package backend defines the contract the client consumes from the hosted
// collaborator: password auth with session events, schema-less row access
// and a row change feed. Implementations live in the rest and local
// subpackages; backendtest provides a scriptable fake.
package backend

import (
	"context"
	"fmt"
	"net/http"

	"github.com/goodaideas/goodaideas/internal/domain"
	domainerrors "github.com/goodaideas/goodaideas/internal/errors"
)

// Row is one untyped record as it travels over the wire.
type Row = map[string]any

// Op is a filter comparison.
type Op string

// Supported filter operators.
const (
	OpEq       Op = "eq"
	OpIn       Op = "in"
	OpContains Op = "contains"
	OpGte      Op = "gte"
	OpLte      Op = "lte"
)

// Filter restricts a query to rows whose Column compares to Value.
// For OpIn, Value is a []any or []string; for OpContains, the column holds
// an array that must contain every element of Value.
type Filter struct {
	Column string
	Op     Op
	Value  any
}

// Eq is shorthand for an equality filter.
func Eq(column string, value any) Filter {
	return Filter{Column: column, Op: OpEq, Value: value}
}

// Order sorts query results by Column.
type Order struct {
	Column string
	Desc   bool
}

// Query describes a select.
type Query struct {
	Table   string
	Columns []string
	Filters []Filter
	Order   []Order
	Limit   int
}

// ProfileHints carries sign-up metadata stored on the profile row.
type ProfileHints struct {
	Username string
}

// EventType selects which row changes a subscription receives.
type EventType string

// Change event types. EventAll matches every type.
const (
	EventInsert EventType = "INSERT"
	EventUpdate EventType = "UPDATE"
	EventDelete EventType = "DELETE"
	EventAll    EventType = "*"
)

// ChangeFilter scopes a subscription. Filter, when set, must be an
// equality filter; that is all the change feed supports.
type ChangeFilter struct {
	Table  string
	Filter *Filter
	Event  EventType
}

// Matches reports whether a change falls inside the filter.
func (f ChangeFilter) Matches(c Change) bool {
	if c.Table != f.Table {
		return false
	}
	if f.Event != "" && f.Event != EventAll && f.Event != c.Type {
		return false
	}
	if f.Filter == nil {
		return true
	}
	rec := c.New
	if c.Type == EventDelete {
		rec = c.Old
	}
	return fmt.Sprint(rec[f.Filter.Column]) == fmt.Sprint(f.Filter.Value)
}

// Change is one row change delivered by the feed.
type Change struct {
	Table string
	Type  EventType
	New   Row
	Old   Row
}

// Subscription is a live change-feed registration.
type Subscription interface {
	// Err delivers at most one error when the underlying connection is
	// lost. The channel is closed once the subscription ends.
	Err() <-chan error
	// Close ends the subscription. It is safe to call more than once.
	Close() error
}

// Auth is the collaborator's authentication surface.
type Auth interface {
	GetSession(ctx context.Context) (*domain.Session, error)
	SignInWithPassword(ctx context.Context, email, password string) (*domain.Session, error)
	SignUp(ctx context.Context, email, password string, hints ProfileHints) (*domain.Session, error)
	SignOut(ctx context.Context) error
	// OnSessionChange registers fn for every sign-in, sign-out and refresh.
	// The returned function removes the registration.
	OnSessionChange(fn func(domain.SessionEvent)) (unsubscribe func())
}

// ProviderAuth is implemented by collaborators that can sign in through an
// external identity provider. AuthorizeURL starts the flow; the code the
// provider hands back completes it in the same process.
type ProviderAuth interface {
	AuthorizeURL(provider string) (string, error)
	ExchangeCode(ctx context.Context, code string) (*domain.Session, error)
}

// Rows is schema-less row access.
type Rows interface {
	Select(ctx context.Context, q Query) ([]Row, error)
	// SelectOne returns the single matching row, or a NOT_FOUND error when
	// nothing matches.
	SelectOne(ctx context.Context, q Query) (Row, error)
	Insert(ctx context.Context, table string, rows []Row) ([]Row, error)
	Upsert(ctx context.Context, table string, row Row, conflictKey string) (Row, error)
	Delete(ctx context.Context, table string, filters []Filter) error
}

// Realtime is the change feed.
type Realtime interface {
	Subscribe(ctx context.Context, f ChangeFilter, fn func(Change)) (Subscription, error)
}

// SessionStore keeps the signed-in session across restarts, the way a
// browser client keeps it in local storage.
type SessionStore interface {
	// LoadSession returns the saved session, or nil when there is none.
	LoadSession(ctx context.Context) (*domain.Session, error)
	// SaveSession replaces the saved session; nil clears it.
	SaveSession(ctx context.Context, s *domain.Session) error
}

// Client is the full collaborator surface.
type Client interface {
	Auth
	Rows
	Realtime
	Close() error
}

// Error is a failure reported by the collaborator itself.
type Error struct {
	Status  int
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("backend %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("backend %d: %s", e.Status, e.Message)
}

// Domain converts the failure into a coded domain error.
func (e *Error) Domain() *domainerrors.Error {
	return domainerrors.FromBackend(e.Status, e.Code, e.Message).WithCause(e)
}

// NotFound is the zero-rows error returned by SelectOne.
func NotFound(table string) error {
	return (&Error{Status: http.StatusNotAcceptable, Code: "PGRST116", Message: "no rows in " + table}).Domain()
}
