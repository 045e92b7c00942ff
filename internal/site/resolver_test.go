// internal/site/resolver_test.go
//
// Resolver tests: key choice, cache warm behavior, miss handling, and
// invalidation.  fakeStore scripts the row store and counts queries so
// the tests can observe whether the cache answered.

package site

import (
	"context"
	"testing"

	"github.com/yanizio/strata/internal/cache"
)

// fakeStore satisfies ResolutionStore.
type fakeStore struct {
	bySub    map[string]*Resolution
	byDomain map[string]*Resolution
	byID     map[uint64]*Site
	queries  int
}

func (f *fakeStore) BySubdomain(_ context.Context, sub string) (*Resolution, error) {
	f.queries++
	if r, ok := f.bySub[sub]; ok {
		return r, nil
	}
	return nil, ErrNotFound
}

func (f *fakeStore) ByDomain(_ context.Context, domain string) (*Resolution, error) {
	f.queries++
	if r, ok := f.byDomain[domain]; ok {
		return r, nil
	}
	return nil, ErrNotFound
}

func (f *fakeStore) ByID(_ context.Context, id uint64) (*Site, error) {
	f.queries++
	if f.byID != nil {
		if s, ok := f.byID[id]; ok {
			return s, nil
		}
	}
	return nil, ErrNotFound
}

func testResolution(id uint64, sub string) *Resolution {
	return &Resolution{
		Site:       Site{ID: id, Subdomain: sub},
		AccessType: AccessPublic,
	}
}

func TestResolve_PlatformSubdomain(t *testing.T) {
	store := &fakeStore{bySub: map[string]*Resolution{"acme": testResolution(1, "acme")}}
	mem := cache.NewMemory()
	r := NewResolver(store, mem, "strata.site")
	ctx := context.Background()

	res, err := r.Resolve(ctx, "acme.strata.site")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res.Site.ID != 1 {
		t.Fatalf("wrong site: %+v", res.Site)
	}

	// Second resolve must come from the cache: same answer, no new query.
	before := store.queries
	res2, err := r.Resolve(ctx, "acme.strata.site")
	if err != nil || res2.Site.ID != 1 {
		t.Fatalf("warm resolve: %+v, err %v", res2, err)
	}
	if store.queries != before {
		t.Fatalf("cache warm still queried store (%d → %d)", before, store.queries)
	}

	if _, ok := mem.Get(ctx, cache.KeySiteSubdomain("acme")); !ok {
		t.Fatal("subdomain key not cached")
	}
}

func TestResolve_CustomDomain(t *testing.T) {
	store := &fakeStore{
		bySub:    map[string]*Resolution{},
		byDomain: map[string]*Resolution{"www.acme.com": testResolution(2, "acme")},
	}
	mem := cache.NewMemory()
	r := NewResolver(store, mem, "strata.site")

	res, err := r.Resolve(context.Background(), "WWW.Acme.com")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res.Site.ID != 2 {
		t.Fatalf("wrong site: %+v", res.Site)
	}
	if _, ok := mem.Get(context.Background(), cache.KeySiteDomain("www.acme.com")); !ok {
		t.Fatal("domain key not cached")
	}
}

func TestResolve_MissNotCached(t *testing.T) {
	store := &fakeStore{}
	mem := cache.NewMemory()
	r := NewResolver(store, mem, "strata.site")
	ctx := context.Background()

	if _, err := r.Resolve(ctx, "pending.example.com"); err != ErrNotFound {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	// Negative results are never cached: the domain may be mid-setup.
	if mem.Len() != 0 {
		t.Fatalf("negative result cached, %d entries", mem.Len())
	}

	// Once the domain exists, the very next resolve must see it.
	store.byDomain = map[string]*Resolution{"pending.example.com": testResolution(3, "pending")}
	res, err := r.Resolve(ctx, "pending.example.com")
	if err != nil || res.Site.ID != 3 {
		t.Fatalf("post-setup resolve: %+v, err %v", res, err)
	}
}

func TestResolve_AfterInvalidation(t *testing.T) {
	store := &fakeStore{bySub: map[string]*Resolution{"blog": testResolution(4, "blog")}}
	mem := cache.NewMemory()
	r := NewResolver(store, mem, "strata.site")
	ctx := context.Background()

	if _, err := r.Resolve(ctx, "blog.strata.site"); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	// Subdomain changes blog → press; invalidate old and new keys.
	store.bySub = map[string]*Resolution{"press": testResolution(4, "press")}
	mem.Delete(ctx, InvalidationKeys(4, "blog", nil, "press", nil)...)

	if _, err := r.Resolve(ctx, "blog.strata.site"); err != ErrNotFound {
		t.Fatalf("old subdomain still resolves: %v", err)
	}
	res, err := r.Resolve(ctx, "press.strata.site")
	if err != nil || res.Site.Subdomain != "press" {
		t.Fatalf("new subdomain: %+v, err %v", res, err)
	}
}

func TestActiveDeployment_PointerCacheInvalidation(t *testing.T) {
	depA := "dep-a"
	store := &fakeStore{byID: map[uint64]*Site{4: {ID: 4, ActiveDeploymentID: &depA}}}
	mem := cache.NewMemory()
	r := NewResolver(store, mem, "strata.site")
	ctx := context.Background()

	got, err := r.ActiveDeployment(ctx, 4)
	if err != nil || got == nil || *got != "dep-a" {
		t.Fatalf("pointer = %v, err %v", got, err)
	}

	// Finalize of dep-b: row updated, pointer key invalidated.
	depB := "dep-b"
	store.byID[4] = &Site{ID: 4, ActiveDeploymentID: &depB}
	mem.Delete(ctx, cache.KeyActiveDeployment(4))

	got, err = r.ActiveDeployment(ctx, 4)
	if err != nil || got == nil || *got != "dep-b" {
		t.Fatalf("pointer after invalidation = %v, err %v", got, err)
	}

	// Without invalidation the cached pointer answers; no store query.
	before := store.queries
	if _, err := r.ActiveDeployment(ctx, 4); err != nil {
		t.Fatalf("cached pointer: %v", err)
	}
	if store.queries != before {
		t.Fatal("cached pointer still queried store")
	}
}

func TestInvalidationKeys_FullSet(t *testing.T) {
	old := "acme.com"
	newDom := "acme.io"
	keys := InvalidationKeys(9, "acme", &old, "acme2", &newDom)

	want := map[string]bool{
		"site:id:9":             true,
		"site:subdomain:acme":   true,
		"site:subdomain:acme2":  true,
		"site:domain:acme.com":  true,
		"site:domain:acme.io":   true,
		"access:9":              true,
		"deployment:active:9":   true,
	}
	if len(keys) != len(want) {
		t.Fatalf("keys = %v", keys)
	}
	for _, k := range keys {
		if !want[k] {
			t.Fatalf("unexpected key %q in %v", k, keys)
		}
	}
}
