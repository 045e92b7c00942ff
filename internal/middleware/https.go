// Package middleware holds small, composable HTTP wrappers.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/yanizio/strata/internal/site"
)

// HostResolver is the slice of the site resolver ForceHTTPS needs.
// *site.Resolver satisfies it.
type HostResolver interface {
	Resolve(ctx context.Context, host string) (*site.Resolution, error)
}

// ForceHTTPS issues a 308 to the HTTPS form of the same URL for plain
// HTTP requests whose host maps to a known site.  Localhost and unknown
// hosts pass through unchanged; the latter 404 downstream anyway.
func ForceHTTPS(resolver HostResolver, h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" ||
			stripPort(r.Host) == "localhost" {
			h.ServeHTTP(w, r)
			return
		}

		if _, err := resolver.Resolve(r.Context(), stripPort(r.Host)); err == nil {
			target := "https://" + r.Host + r.URL.RequestURI()
			http.Redirect(w, r, target, http.StatusPermanentRedirect)
			return
		}

		h.ServeHTTP(w, r)
	})
}

// stripPort removes the :port suffix from Host when present.
func stripPort(h string) string {
	if i := strings.IndexByte(h, ':'); i != -1 {
		return h[:i]
	}
	return h
}
