// internal/requestinfo/middleware.go
//
// Enrich sits early in the chain, before hostname resolution, so the
// access log and access-control handlers see the same Info.

package requestinfo

import (
	"context"
	"net"
	"net/http"
	"strings"
)

// Enrich attaches *Info to the request context.
func Enrich(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		info := &Info{
			UA:  parseUA(r.UserAgent()),
			Geo: lookupGeo(clientIP(r)),
		}
		next.ServeHTTP(w, r.WithContext(
			context.WithValue(r.Context(), ctxKey{}, info)))
	})
}

// clientIP picks the left-most parseable address from X-Forwarded-For,
// then X-Real-Ip, then RemoteAddr.
func clientIP(r *http.Request) net.IP {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		for _, part := range strings.Split(xff, ",") {
			if ip := net.ParseIP(strings.TrimSpace(part)); ip != nil {
				return ip
			}
		}
	}
	if xrip := r.Header.Get("X-Real-Ip"); xrip != "" {
		if ip := net.ParseIP(strings.TrimSpace(xrip)); ip != nil {
			return ip
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return net.ParseIP(host)
	}
	return nil
}
