// internal/site/resolver.go
//
// Hostname → site resolution with cache and singleflight.
//
// Context
// -------
// Every inbound request resolves its Host header to a Resolution before
// anything else happens.  The hot path is one cache Get; a miss falls
// through to the row store behind a singleflight barrier so a burst of
// requests for a cold host costs one query, not N.
//
// Key choice
// ----------
// Hosts under the platform base domain are keyed by their subdomain
// label (`site:subdomain:{label}`); anything else is keyed by the full
// hostname (`site:domain:{hostname}`).  Only successful lookups are
// cached – a custom domain that has not been pointed at us yet must not
// get stuck as a cached miss while the owner is setting up DNS.

package site

import (
	"context"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/yanizio/strata/internal/cache"
	"github.com/yanizio/strata/internal/metrics"
)

// ResolutionStore is the slice of Repository the resolver needs.
type ResolutionStore interface {
	BySubdomain(ctx context.Context, sub string) (*Resolution, error)
	ByDomain(ctx context.Context, domain string) (*Resolution, error)
	ByID(ctx context.Context, id uint64) (*Site, error)
}

// Resolver maps hostnames to Resolutions.
type Resolver struct {
	store      ResolutionStore
	cache      cache.Cache
	baseDomain string
	sfg        singleflight.Group
}

// NewResolver builds a Resolver for the given platform base domain
// (e.g., "strata.site").
func NewResolver(store ResolutionStore, c cache.Cache, baseDomain string) *Resolver {
	return &Resolver{
		store:      store,
		cache:      c,
		baseDomain: strings.ToLower(baseDomain),
	}
}

// Resolve returns the Resolution for hostname, or ErrNotFound.  The
// hostname must already have its port stripped.
func (r *Resolver) Resolve(ctx context.Context, hostname string) (*Resolution, error) {
	hostname = strings.ToLower(strings.TrimSuffix(hostname, "."))
	label := leadingLabel(hostname)

	key := cache.KeySiteDomain(hostname)
	if r.isPlatformHost(hostname) {
		key = cache.KeySiteSubdomain(label)
	}

	var res Resolution
	if cache.GetJSON(ctx, r.cache, key, &res) {
		metrics.CacheHitsTotal.Inc()
		metrics.SiteResolveTotal.Inc()
		return &res, nil
	}
	metrics.CacheMissesTotal.Inc()

	v, err, _ := r.sfg.Do(key, func() (any, error) {
		return r.lookup(ctx, label, hostname, key)
	})
	if err != nil {
		metrics.SiteResolveErrorsTotal.Inc()
		return nil, err
	}
	metrics.SiteResolveTotal.Inc()
	return v.(*Resolution), nil
}

// lookup queries the row store: subdomain candidate first, then exact
// custom domain.  Hits are cached; misses are not.
func (r *Resolver) lookup(ctx context.Context, label, hostname, key string) (*Resolution, error) {
	res, err := r.store.BySubdomain(ctx, label)
	if err == ErrNotFound {
		res, err = r.store.ByDomain(ctx, hostname)
	}
	if err != nil {
		return nil, err
	}
	r.cache.Set(ctx, key, res, cache.TTL)
	return res, nil
}

// ActiveDeployment returns the site's current active-deployment pointer.
// It is cached under its own key – separate from the hostname-keyed
// Resolution – so finalize and rollback can invalidate the pointer
// without waiting out the hostname entry's TTL.  A nil pointer (site has
// never published) is a valid, cacheable answer.
func (r *Resolver) ActiveDeployment(ctx context.Context, siteID uint64) (*string, error) {
	key := cache.KeyActiveDeployment(siteID)

	var cached *string
	if cache.GetJSON(ctx, r.cache, key, &cached) {
		metrics.CacheHitsTotal.Inc()
		return cached, nil
	}
	metrics.CacheMissesTotal.Inc()

	s, err := r.store.ByID(ctx, siteID)
	if err != nil {
		return nil, err
	}
	r.cache.Set(ctx, key, s.ActiveDeploymentID, cache.TTL)
	return s.ActiveDeploymentID, nil
}

// isPlatformHost reports whether hostname is the base domain itself or a
// subdomain of it.
func (r *Resolver) isPlatformHost(hostname string) bool {
	return hostname == r.baseDomain || strings.HasSuffix(hostname, "."+r.baseDomain)
}

// leadingLabel returns everything before the first dot.
func leadingLabel(hostname string) string {
	if i := strings.IndexByte(hostname, '.'); i != -1 {
		return hostname[:i]
	}
	return hostname
}

// InvalidationKeys lists every cache key a mutation to the given site
// must delete: identity keys, both hostname keys, access settings, and
// the active-deployment pointer.  oldSub and oldDomain are the values
// before the mutation; pass the current ones for non-domain mutations.
func InvalidationKeys(siteID uint64, oldSub string, oldDomain *string, newSub string, newDomain *string) []string {
	keys := []string{
		cache.KeySiteID(siteID),
		cache.KeySiteSubdomain(oldSub),
		cache.KeyAccess(siteID),
		cache.KeyActiveDeployment(siteID),
	}
	if oldDomain != nil {
		keys = append(keys, cache.KeySiteDomain(*oldDomain))
	}
	if newSub != "" && newSub != oldSub {
		keys = append(keys, cache.KeySiteSubdomain(newSub))
	}
	if newDomain != nil && (oldDomain == nil || *newDomain != *oldDomain) {
		keys = append(keys, cache.KeySiteDomain(*newDomain))
	}
	return keys
}
