// internal/cache/keys.go
//
// Canonical cache-key builders.  Key shapes are part of the platform's
// operational surface (dashboards, redis-cli debugging), so every caller
// goes through these helpers rather than hand-formatting strings.
package cache

import "strconv"

// KeySiteSubdomain keys a site resolved by platform subdomain label.
func KeySiteSubdomain(sub string) string { return "site:subdomain:" + sub }

// KeySiteDomain keys a site resolved by verified custom domain.
func KeySiteDomain(domain string) string { return "site:domain:" + domain }

// KeySiteID keys a site by numeric id.
func KeySiteID(id uint64) string { return "site:id:" + strconv.FormatUint(id, 10) }

// KeyAccess keys a site's access settings.
func KeyAccess(siteID uint64) string { return "access:" + strconv.FormatUint(siteID, 10) }

// KeyActiveDeployment keys a site's active-deployment pointer.
func KeyActiveDeployment(siteID uint64) string {
	return "deployment:active:" + strconv.FormatUint(siteID, 10)
}

// KeyMember keys a (user, site) membership role.
func KeyMember(userID int64, siteID uint64) string {
	return "member:" + strconv.FormatInt(userID, 10) + ":" + strconv.FormatUint(siteID, 10)
}
