// internal/site/service.go
//
// Mutating operations with synchronous cache invalidation.
//
// Every write that can change what the serving path observes (domains,
// access settings, membership, site deletion) must delete the affected
// cache keys before returning, so staleness is bounded by the TTL only
// when a process dies between the write and the delete.

package site

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/yanizio/strata/internal/cache"
	"github.com/yanizio/strata/internal/storage"
)

// Service wraps Repository with invalidation and object-store cleanup.
type Service struct {
	repo  *Repository
	cache cache.Cache
	store storage.ObjectStore
}

// NewService wires the service.
func NewService(repo *Repository, c cache.Cache, store storage.ObjectStore) *Service {
	return &Service{repo: repo, cache: c, store: store}
}

// Repo exposes the underlying repository for read paths.
func (s *Service) Repo() *Repository { return s.repo }

// Create provisions a site with default public access and the creator as
// owner.  Subdomains are lowercased; uniqueness is enforced by the DB.
func (s *Service) Create(ctx context.Context, name, subdomain string, createdBy int64) (*Site, error) {
	subdomain = strings.ToLower(strings.TrimSpace(subdomain))
	if subdomain == "" {
		return nil, fmt.Errorf("subdomain must not be empty")
	}
	site, err := s.repo.Insert(ctx, name, subdomain, createdBy)
	if err != nil {
		return nil, err
	}
	zap.S().Infow("site created", "site_id", site.ID, "subdomain", subdomain)
	return site, nil
}

// UpdateDomains changes the subdomain and/or custom domain and drops the
// old and new hostname keys.
func (s *Service) UpdateDomains(ctx context.Context, siteID uint64, subdomain string, customDomain *string) error {
	old, err := s.repo.ByID(ctx, siteID)
	if err != nil {
		return err
	}

	subdomain = strings.ToLower(strings.TrimSpace(subdomain))
	if customDomain != nil {
		d := strings.ToLower(strings.TrimSpace(*customDomain))
		customDomain = &d
	}

	if err := s.repo.UpdateDomains(ctx, siteID, subdomain, customDomain); err != nil {
		return err
	}

	s.cache.Delete(ctx, InvalidationKeys(siteID, old.Subdomain, old.CustomDomain, subdomain, customDomain)...)
	zap.S().Infow("site domains updated", "site_id", siteID, "subdomain", subdomain)
	return nil
}

// SetAccess changes the access mode.  For password mode the cleartext is
// hashed here; other modes clear the stored hash.
func (s *Service) SetAccess(ctx context.Context, siteID uint64, t AccessType, password *string) error {
	var hash *string
	if t == AccessPassword {
		if password == nil || *password == "" {
			return fmt.Errorf("access type password requires a password")
		}
		h, err := HashPassword(*password)
		if err != nil {
			return err
		}
		hash = &h
	}

	if err := s.repo.UpdateAccess(ctx, siteID, t, hash); err != nil {
		return err
	}
	s.invalidate(ctx, siteID)
	zap.S().Infow("site access updated", "site_id", siteID, "access_type", t)
	return nil
}

// AddMember grants or changes a role and drops the member cache key.
func (s *Service) AddMember(ctx context.Context, siteID uint64, userID int64, role Role) error {
	if role.Weight() == 0 {
		return fmt.Errorf("unknown role %q", role)
	}
	if err := s.repo.UpsertMember(ctx, siteID, userID, role); err != nil {
		return err
	}
	s.cache.Delete(ctx, cache.KeyMember(userID, siteID))
	return nil
}

// RemoveMember revokes a membership (refusing to orphan the site) and
// drops the member cache key.
func (s *Service) RemoveMember(ctx context.Context, siteID uint64, userID int64) error {
	if err := s.repo.RemoveMember(ctx, siteID, userID); err != nil {
		return err
	}
	s.cache.Delete(ctx, cache.KeyMember(userID, siteID))
	return nil
}

// CreateInvite grants visitor access to a private site.
func (s *Service) CreateInvite(ctx context.Context, siteID uint64, email string, expiresAt *time.Time) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return fmt.Errorf("invite email must not be empty")
	}
	return s.repo.CreateInvite(ctx, siteID, email, expiresAt)
}

// DeleteInvite revokes an invite.
func (s *Service) DeleteInvite(ctx context.Context, siteID uint64, email string) error {
	return s.repo.DeleteInvite(ctx, siteID, strings.ToLower(strings.TrimSpace(email)))
}

// Delete destroys the site, its rows, its stored objects, and its cache
// entries.  Row deletion commits first; a failed object sweep leaves
// orphaned blobs for an offline reaper rather than a half-deleted site.
func (s *Service) Delete(ctx context.Context, siteID uint64) error {
	old, err := s.repo.ByID(ctx, siteID)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteCascade(ctx, siteID); err != nil {
		return err
	}

	prefix := "sites/" + fmt.Sprintf("%d", siteID) + "/"
	if err := s.store.DeletePrefix(ctx, prefix); err != nil {
		zap.S().Errorw("site object sweep failed", "site_id", siteID, "err", err)
	}

	s.cache.Delete(ctx, InvalidationKeys(siteID, old.Subdomain, old.CustomDomain, "", nil)...)
	zap.S().Infow("site deleted", "site_id", siteID)
	return nil
}

// invalidate drops every key for the site's current identity.
func (s *Service) invalidate(ctx context.Context, siteID uint64) {
	cur, err := s.repo.ByID(ctx, siteID)
	if err != nil {
		// Site row gone or unreadable; drop the id-keyed entries anyway.
		s.cache.Delete(ctx,
			cache.KeySiteID(siteID),
			cache.KeyAccess(siteID),
			cache.KeyActiveDeployment(siteID))
		return
	}
	s.cache.Delete(ctx, InvalidationKeys(siteID, cur.Subdomain, cur.CustomDomain, "", nil)...)
}
