// internal/deployment/service.go
//
// Deployment operations above the repository: file writes into the
// deployment's storage prefix, finalize/rollback with cache
// invalidation, and the bulk file delete.

package deployment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"go.uber.org/zap"

	"github.com/yanizio/strata/internal/cache"
	"github.com/yanizio/strata/internal/metrics"
	"github.com/yanizio/strata/internal/storage"
)

// ErrImmutable is returned for file writes against a live or failed
// deployment.
var ErrImmutable = errors.New("deployment is no longer writable")

// Service wires the repository to the object store and cache.
type Service struct {
	repo  *Repository
	store storage.ObjectStore
	cache cache.Cache
}

// NewService wires the service.
func NewService(repo *Repository, store storage.ObjectStore, c cache.Cache) *Service {
	return &Service{repo: repo, store: store, cache: c}
}

// Repo exposes the repository for read paths.
func (s *Service) Repo() *Repository { return s.repo }

// Create allocates a pending deployment for direct uploads.
func (s *Service) Create(ctx context.Context, siteID uint64) (*Deployment, error) {
	d, err := s.repo.Create(ctx, siteID, StatusPending, nil, nil)
	if err != nil {
		return nil, err
	}
	zap.S().Infow("deployment created", "deployment_id", d.ID, "site_id", siteID)
	return d, nil
}

// MarkProcessing moves a pending deployment into processing.
func (s *Service) MarkProcessing(ctx context.Context, id string) error {
	return s.repo.MarkProcessing(ctx, id)
}

// UploadFile stores one file under the deployment prefix.  Writes are
// rejected once the deployment reached a terminal state.
func (s *Service) UploadFile(ctx context.Context, d *Deployment, relPath string, body io.Reader, size int64) error {
	if !d.Status.Mutable() {
		return ErrImmutable
	}
	rel, err := cleanRelPath(relPath)
	if err != nil {
		return err
	}
	key := storage.ObjectKey(d.SiteID, d.ID, rel)
	return s.store.Put(ctx, key, body, size, storage.ContentTypeFor(rel))
}

// Finalize publishes the deployment: live status and pointer swap in one
// transaction, then cache invalidation so the serving path picks the new
// pointer up immediately.
func (s *Service) Finalize(ctx context.Context, d *Deployment, fileCount int, totalSize int64) error {
	if err := s.repo.Finalize(ctx, d, fileCount, totalSize); err != nil {
		return err
	}
	s.invalidate(ctx, d.SiteID)
	metrics.DeploymentsFinalizedTotal.Inc()
	zap.S().Infow("deployment live",
		"deployment_id", d.ID, "site_id", d.SiteID,
		"files", fileCount, "bytes", totalSize)
	return nil
}

// MarkFailed aborts a non-terminal deployment.
func (s *Service) MarkFailed(ctx context.Context, id string) error {
	if err := s.repo.MarkFailed(ctx, id); err != nil {
		return err
	}
	metrics.DeploymentsFailedTotal.Inc()
	return nil
}

// Rollback repoints the site at targetID (which must already be live)
// and invalidates the pointer cache.
func (s *Service) Rollback(ctx context.Context, siteID uint64, targetID string) error {
	if err := s.repo.Rollback(ctx, siteID, targetID); err != nil {
		return err
	}
	s.invalidate(ctx, siteID)
	zap.S().Infow("deployment rollback", "site_id", siteID, "target", targetID)
	return nil
}

// DeleteFiles removes the named paths from a still-mutable deployment.
func (s *Service) DeleteFiles(ctx context.Context, d *Deployment, relPaths []string) error {
	if !d.Status.Mutable() {
		return ErrImmutable
	}
	keys := make([]string, 0, len(relPaths))
	for _, p := range relPaths {
		rel, err := cleanRelPath(p)
		if err != nil {
			return err
		}
		keys = append(keys, storage.ObjectKey(d.SiteID, d.ID, rel))
	}
	return s.store.Delete(ctx, keys...)
}

// invalidate drops the keys a pointer change affects.  Hostname-keyed
// resolutions embed the pointer, so the site identity keys go too; the
// hostname keys themselves refresh within the TTL, and the pointer key
// is the authoritative one the serving path re-reads.
func (s *Service) invalidate(ctx context.Context, siteID uint64) {
	s.cache.Delete(ctx,
		cache.KeySiteID(siteID),
		cache.KeyActiveDeployment(siteID),
	)
}

// cleanRelPath normalizes an upload path into a storage-relative POSIX
// path, rejecting traversal and absolute forms.
func cleanRelPath(p string) (string, error) {
	p = strings.TrimPrefix(strings.ReplaceAll(p, "\\", "/"), "/")
	cleaned := path.Clean(p)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("invalid file path %q", p)
	}
	return cleaned, nil
}
