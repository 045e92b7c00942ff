// internal/auth/context.go
//
// Visitor identity helpers.
//
// Authentication itself is external: an upstream auth proxy terminates
// the session and forwards the resolved identity in trusted headers.
// This package only carries that identity through the request context so
// the access evaluator and API handlers can consume it.
//
// Usage
// -----
//	// Middleware attaches the visitor parsed from headers.
//	ctx = auth.WithVisitor(ctx, v)
//
//	// Downstream code retrieves it.
//	v := auth.VisitorFromContext(ctx)

package auth

import (
	"context"
	"net/http"
	"strconv"
)

// Headers set by the upstream auth proxy.  Anonymous requests carry
// neither.
const (
	HeaderUserID = "X-Strata-User"
	HeaderEmail  = "X-Strata-Email"
)

// Visitor is the identity evaluated against a site's access settings.
// UserID is nil for anonymous visitors; Email may be set without UserID
// for invite-link visitors who verified an address but hold no account.
type Visitor struct {
	UserID *int64
	Email  string
}

// Authenticated reports whether the visitor holds a user account.
func (v Visitor) Authenticated() bool { return v.UserID != nil }

// visitorKey is unexported to avoid context-key collisions.
type visitorKey struct{}

// WithVisitor returns a new context carrying v.
func WithVisitor(ctx context.Context, v Visitor) context.Context {
	return context.WithValue(ctx, visitorKey{}, v)
}

// VisitorFromContext extracts the visitor, or the anonymous zero value if
// the middleware has not run.
func VisitorFromContext(ctx context.Context) Visitor {
	v, _ := ctx.Value(visitorKey{}).(Visitor)
	return v
}

// Middleware parses the trusted identity headers into a Visitor and
// stores it in the request context.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var v Visitor
		if raw := r.Header.Get(HeaderUserID); raw != "" {
			if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
				v.UserID = &id
			}
		}
		v.Email = r.Header.Get(HeaderEmail)
		next.ServeHTTP(w, r.WithContext(WithVisitor(r.Context(), v)))
	})
}
