// internal/middleware/security.go
//
// Security headers for every response.
//
// Notes
// -----
//   - Headers are set before next.ServeHTTP and only when the handler has
//     not already set them, so a site's own headers win.
//   - The CSP is deliberately loose for hosted content: tenant sites load
//     their own scripts, styles, and images, so only the dangerous
//     directives (object-src, base-uri) are pinned.
package middleware

import "net/http"

// Security sets baseline security headers.
func Security(next http.Handler) http.Handler {
	const (
		hsts = "max-age=63072000; includeSubDomains"
		csp  = "object-src 'none'; base-uri 'self'"
	)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hdr := w.Header()
		if hdr.Get("Strict-Transport-Security") == "" {
			hdr.Set("Strict-Transport-Security", hsts)
		}
		if hdr.Get("Content-Security-Policy") == "" {
			hdr.Set("Content-Security-Policy", csp)
		}
		if hdr.Get("X-Content-Type-Options") == "" {
			hdr.Set("X-Content-Type-Options", "nosniff")
		}
		if hdr.Get("Referrer-Policy") == "" {
			hdr.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		}
		next.ServeHTTP(w, r)
	})
}
