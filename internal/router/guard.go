package router

import (
	"context"
	"net/http"
)

type contextKey string

const contextKeyDecision contextKey = "route_decision"

// Guard applies Resolve to HTTP requests. Redirect decisions answer 302 to
// the target, unknown paths answer 404, and rendered routes reach next with
// the decision attached to the request context.
func Guard(authenticated func(*http.Request) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d := Resolve(r.URL.Path, authenticated(r))
			switch d.Status {
			case StatusRedirect:
				http.Redirect(w, r, d.Redirect, http.StatusFound)
			case StatusNotFound:
				http.NotFound(w, r)
			default:
				ctx := context.WithValue(r.Context(), contextKeyDecision, d)
				next.ServeHTTP(w, r.WithContext(ctx))
			}
		})
	}
}

// FromContext returns the decision Guard attached to ctx.
func FromContext(ctx context.Context) (Decision, bool) {
	d, ok := ctx.Value(contextKeyDecision).(Decision)
	return d, ok
}
