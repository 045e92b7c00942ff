// internal/server/serve_test.go
//
// Serving-path tests over the router: fake row stores behind the real
// resolver and access evaluator, in-memory object store behind the real
// static resolver.

package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/yanizio/strata/internal/cache"
	"github.com/yanizio/strata/internal/site"
	"github.com/yanizio/strata/internal/static"
	"github.com/yanizio/strata/internal/storage"
)

type fakeSiteStore struct {
	bySub map[string]*site.Resolution
}

func (f *fakeSiteStore) BySubdomain(_ context.Context, sub string) (*site.Resolution, error) {
	if r, ok := f.bySub[sub]; ok {
		return r, nil
	}
	return nil, site.ErrNotFound
}

func (f *fakeSiteStore) ByDomain(context.Context, string) (*site.Resolution, error) {
	return nil, site.ErrNotFound
}

func (f *fakeSiteStore) ByID(_ context.Context, id uint64) (*site.Site, error) {
	for _, r := range f.bySub {
		if r.Site.ID == id {
			return &r.Site, nil
		}
	}
	return nil, site.ErrNotFound
}

type noMembers struct{}

func (noMembers) MemberRole(context.Context, uint64, int64) (site.Role, error) {
	return "", site.ErrNotMember
}

func (noMembers) HasValidInvite(context.Context, uint64, string, time.Time) (bool, error) {
	return false, nil
}

func newTestServer(t *testing.T, store *storage.Memory, sites map[string]*site.Resolution) http.Handler {
	t.Helper()
	resolver := site.NewResolver(&fakeSiteStore{bySub: sites}, cache.Nop{}, "strata.site")
	evaluator := site.NewEvaluator(noMembers{}, cache.Nop{})
	srv := NewHandlers(resolver, evaluator, nil, nil, static.NewResolver(store), nil)
	return srv.Router()
}

func publicSite(id uint64, sub, activeDep string) *site.Resolution {
	s := site.Site{ID: id, Subdomain: sub}
	if activeDep != "" {
		s.ActiveDeploymentID = &activeDep
	}
	return &site.Resolution{Site: s, AccessType: site.AccessPublic}
}

func putObj(t *testing.T, store *storage.Memory, key, body string) {
	t.Helper()
	if err := store.Put(context.Background(), key, strings.NewReader(body), int64(len(body)), ""); err != nil {
		t.Fatal(err)
	}
}

func TestServe_PublishedSite(t *testing.T) {
	store := storage.NewMemory()
	putObj(t, store, "sites/1/deployments/dep/index.html", "<html>home</html>")
	h := newTestServer(t, store, map[string]*site.Resolution{
		"blog": publicSite(1, "blog", "dep"),
	})

	req := httptest.NewRequest(http.MethodGet, "http://blog.strata.site/", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Content-Type"); got != "text/html; charset=utf-8" {
		t.Fatalf("content type = %q", got)
	}
	if got := rec.Header().Get("Cache-Control"); got != "public, max-age=3600" {
		t.Fatalf("cache control = %q", got)
	}
	if rec.Body.String() != "<html>home</html>" {
		t.Fatalf("body = %q", rec.Body.String())
	}
}

func TestServe_HeadOmitsBody(t *testing.T) {
	store := storage.NewMemory()
	putObj(t, store, "sites/1/deployments/dep/index.html", "<html>home</html>")
	h := newTestServer(t, store, map[string]*site.Resolution{
		"blog": publicSite(1, "blog", "dep"),
	})

	req := httptest.NewRequest(http.MethodHead, "http://blog.strata.site/", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK || rec.Body.Len() != 0 {
		t.Fatalf("status = %d, body %d bytes", rec.Code, rec.Body.Len())
	}
	if rec.Header().Get("Content-Length") != "17" {
		t.Fatalf("content length = %q", rec.Header().Get("Content-Length"))
	}
}

func TestServe_UnknownHost(t *testing.T) {
	h := newTestServer(t, storage.NewMemory(), map[string]*site.Resolution{})

	req := httptest.NewRequest(http.MethodGet, "http://ghost.strata.site/", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Fatalf("content type = %q", ct)
	}
}

func TestServe_NoPublishedDeployment(t *testing.T) {
	h := newTestServer(t, storage.NewMemory(), map[string]*site.Resolution{
		"blog": publicSite(1, "blog", ""),
	})

	req := httptest.NewRequest(http.MethodGet, "http://blog.strata.site/", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestServe_PasswordGate(t *testing.T) {
	hash, err := site.HashPassword("letmein")
	if err != nil {
		t.Fatal(err)
	}

	store := storage.NewMemory()
	putObj(t, store, "sites/1/deployments/dep/index.html", "secret page")
	res := publicSite(1, "blog", "dep")
	res.AccessType = site.AccessPassword
	res.PasswordHash = hash
	h := newTestServer(t, store, map[string]*site.Resolution{"blog": res})

	// No cookie: challenged.
	req := httptest.NewRequest(http.MethodGet, "http://blog.strata.site/", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("without cookie: status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "password_required") {
		t.Fatalf("without cookie: body = %q", rec.Body.String())
	}

	// Token cookie: served.
	req = httptest.NewRequest(http.MethodGet, "http://blog.strata.site/", nil)
	req.AddCookie(&http.Cookie{Name: PasswordCookie, Value: hash})
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || rec.Body.String() != "secret page" {
		t.Fatalf("with cookie: status = %d body = %q", rec.Code, rec.Body.String())
	}
}

func TestServe_OwnerOnlyWithoutLogin(t *testing.T) {
	res := publicSite(1, "blog", "dep")
	res.AccessType = site.AccessOwnerOnly
	h := newTestServer(t, storage.NewMemory(), map[string]*site.Resolution{"blog": res})

	req := httptest.NewRequest(http.MethodGet, "http://blog.strata.site/", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestServe_CustomNotFoundPage(t *testing.T) {
	store := storage.NewMemory()
	putObj(t, store, "sites/1/deployments/dep/index.html", "home")
	putObj(t, store, "sites/1/deployments/dep/404.html", "<html>lost?</html>")
	h := newTestServer(t, store, map[string]*site.Resolution{
		"blog": publicSite(1, "blog", "dep"),
	})

	req := httptest.NewRequest(http.MethodGet, "http://blog.strata.site/missing", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Body.String() != "<html>lost?</html>" {
		t.Fatalf("body = %q", rec.Body.String())
	}
	if got := rec.Header().Get("Cache-Control"); got != "public, max-age=0" {
		t.Fatalf("cache control = %q", got)
	}
}

func TestServe_CleanURLFallback(t *testing.T) {
	store := storage.NewMemory()
	putObj(t, store, "sites/1/deployments/dep/about.html", "about page")
	h := newTestServer(t, store, map[string]*site.Resolution{
		"blog": publicSite(1, "blog", "dep"),
	})

	req := httptest.NewRequest(http.MethodGet, "http://blog.strata.site/about", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK || rec.Body.String() != "about page" {
		t.Fatalf("status = %d body = %q", rec.Code, rec.Body.String())
	}
}

func TestHealthz(t *testing.T) {
	h := newTestServer(t, storage.NewMemory(), map[string]*site.Resolution{})

	req := httptest.NewRequest(http.MethodGet, "http://any.host/healthz", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}
