// internal/server/serve.go
//
// The tenant serving path: Host → site → access gate → active
// deployment → file.
//
// Caching headers
// ---------------
// Successful file responses carry `public, max-age=3600`; deployment IDs
// never reuse object keys, so an hour of edge caching is safe.  Custom
// 404 pages are `max-age=0` because they are exactly the responses that
// should flip the moment the missing page deploys.

package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/yanizio/strata/internal/auth"
	"github.com/yanizio/strata/internal/metrics"
	"github.com/yanizio/strata/internal/requestinfo"
	"github.com/yanizio/strata/internal/site"
	"github.com/yanizio/strata/internal/storage"
)

func (s *Server) handleServe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	host := hostOnly(r.Host)

	res, err := s.resolver.Resolve(ctx, host)
	if errors.Is(err, site.ErrNotFound) {
		writeError(w, http.StatusNotFound, "site not found")
		return
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}

	dec, err := s.access.Check(ctx, res, passwordCookie(r), auth.VisitorFromContext(ctx))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if !dec.Allowed {
		writeDenial(w, dec.Reason)
		return
	}

	depID, err := s.resolver.ActiveDeployment(ctx, res.Site.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if depID == nil {
		writeError(w, http.StatusNotFound, "site has no published deployment")
		return
	}

	f, err := s.static.Serve(ctx, res.Site.ID, *depID, r.URL.Path)
	if errors.Is(err, storage.ErrNotFound) {
		s.serveNotFound(w, r, res.Site.ID, *depID)
		return
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", f.ContentType)
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Header().Set("Content-Length", strconv.Itoa(len(f.Body)))
	if r.Method != http.MethodHead {
		w.Write(f.Body) //nolint:errcheck
	}

	metrics.FilesServedTotal.Inc()
	metrics.BytesServedTotal.Add(float64(len(f.Body)))
	logServe(r, res, f.Key, len(f.Body))
}

// serveNotFound tries the deployment's own 404.html before the generic
// JSON miss.
func (s *Server) serveNotFound(w http.ResponseWriter, r *http.Request, siteID uint64, depID string) {
	page, err := s.static.NotFoundPage(r.Context(), siteID, depID)
	if err != nil {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	w.Header().Set("Content-Type", page.ContentType)
	w.Header().Set("Cache-Control", "public, max-age=0")
	w.WriteHeader(http.StatusNotFound)
	if r.Method != http.MethodHead {
		w.Write(page.Body) //nolint:errcheck
	}
}

// logServe emits the access-log line, enriched with the request info the
// middleware collected.
func logServe(r *http.Request, res *site.Resolution, key string, size int) {
	fields := []any{
		"host", hostOnly(r.Host),
		"path", r.URL.Path,
		"site_id", res.Site.ID,
		"key", key,
		"bytes", size,
	}
	if info := requestinfo.FromContext(r.Context()); info != nil {
		fields = append(fields,
			"ip", info.Geo.IP,
			"country", info.Geo.CountryISO,
			"browser", info.UA.Browser,
			"device", info.UA.Device,
			"bot", info.UA.IsBot,
		)
	}
	zap.S().Infow("serve", fields...)
}

func passwordCookie(r *http.Request) string {
	c, err := r.Cookie(PasswordCookie)
	if err != nil {
		return ""
	}
	return c.Value
}

// hostOnly strips the :port suffix from a Host header.
func hostOnly(h string) string {
	if i := strings.LastIndexByte(h, ':'); i != -1 && !strings.Contains(h[i:], "]") {
		return h[:i]
	}
	return h
}
