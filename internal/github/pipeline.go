// internal/github/pipeline.go
//
// Push → deployment ingestion.
//
// Context
// -------
// A verified push event turns into a deployment in four steps: create a
// processing deployment tagged with the head commit, list the commit's
// recursive tree, stream each blob under the configured output directory
// into the deployment's storage prefix, then finalize (live status +
// pointer swap + config bookkeeping in one transaction).  Any failure
// after creation marks the deployment failed and leaves the previously
// live deployment serving – visitors never see a half-ingested site.
//
// Notes
// -----
// Blobs transfer sequentially.  Static-site trees are small (hundreds of
// files) and the retrying client already absorbs transient faults; a
// worker pool would buy little and complicate the all-or-nothing
// failure accounting.

package github

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/yanizio/strata/internal/cache"
	"github.com/yanizio/strata/internal/deployment"
	"github.com/yanizio/strata/internal/metrics"
	"github.com/yanizio/strata/internal/site"
	"github.com/yanizio/strata/internal/storage"
)

// DeploymentStore is the slice of the deployment repository the pipeline
// needs.  *deployment.Repository satisfies it.
type DeploymentStore interface {
	Create(ctx context.Context, siteID uint64, status deployment.Status, commitHash, commitMessage *string) (*deployment.Deployment, error)
	FinalizeIngest(ctx context.Context, d *deployment.Deployment, fileCount int, totalSize int64, commit string) error
	MarkFailed(ctx context.Context, id string) error
}

// Pipeline ingests pushed commits into deployments.
type Pipeline struct {
	deployments DeploymentStore
	store       storage.ObjectStore
	client      *Client
	cache       cache.Cache
}

// NewPipeline wires the pipeline.
func NewPipeline(deployments DeploymentStore, store storage.ObjectStore, client *Client, c cache.Cache) *Pipeline {
	return &Pipeline{deployments: deployments, store: store, client: client, cache: c}
}

// Run ingests one push for the given site config.  The returned
// deployment is live on nil error and failed otherwise (once created).
func (p *Pipeline) Run(ctx context.Context, cfg *site.GithubConfig, push *Push) (*deployment.Deployment, error) {
	commit := push.After
	msg := push.CommitMessage()

	var msgPtr *string
	if msg != "" {
		msgPtr = &msg
	}
	d, err := p.deployments.Create(ctx, cfg.SiteID, deployment.StatusProcessing, &commit, msgPtr)
	if err != nil {
		return nil, err
	}

	fileCount, totalSize, err := p.ingest(ctx, cfg, d, commit)
	if err != nil {
		p.fail(ctx, d, err)
		return d, err
	}

	if err := p.deployments.FinalizeIngest(ctx, d, fileCount, totalSize, commit); err != nil {
		p.fail(ctx, d, err)
		return d, err
	}

	p.cache.Delete(ctx,
		cache.KeySiteID(cfg.SiteID),
		cache.KeyActiveDeployment(cfg.SiteID),
	)
	metrics.DeploymentsFinalizedTotal.Inc()
	zap.S().Infow("ingest complete",
		"site_id", cfg.SiteID, "deployment_id", d.ID,
		"commit", commit, "files", fileCount, "bytes", totalSize)
	return d, nil
}

// ingest copies the commit's publishable files into the deployment
// prefix and returns the count and byte totals for finalize.
func (p *Pipeline) ingest(ctx context.Context, cfg *site.GithubConfig, d *deployment.Deployment, commit string) (int, int64, error) {
	tree, err := p.client.Tree(ctx, cfg.AccessToken, cfg.Repo, commit)
	if err != nil {
		return 0, 0, fmt.Errorf("listing tree: %w", err)
	}

	files := selectBlobs(tree, cfg.OutputDir)
	if len(files) == 0 {
		return 0, 0, fmt.Errorf("commit %s has no publishable files", commit)
	}

	var total int64
	for rel, entry := range files {
		body, err := p.client.Blob(ctx, cfg.AccessToken, cfg.Repo, entry.SHA)
		if err != nil {
			return 0, 0, fmt.Errorf("fetching %s: %w", rel, err)
		}
		key := storage.ObjectKey(cfg.SiteID, d.ID, rel)
		if err := p.store.Put(ctx, key, bytes.NewReader(body), int64(len(body)), storage.ContentTypeFor(rel)); err != nil {
			return 0, 0, fmt.Errorf("storing %s: %w", rel, err)
		}
		total += int64(len(body))
	}
	return len(files), total, nil
}

func (p *Pipeline) fail(ctx context.Context, d *deployment.Deployment, cause error) {
	if err := p.deployments.MarkFailed(ctx, d.ID); err != nil {
		zap.S().Errorw("marking deployment failed", "deployment_id", d.ID, "error", err)
	}
	metrics.DeploymentsFailedTotal.Inc()
	zap.S().Warnw("ingest failed",
		"site_id", d.SiteID, "deployment_id", d.ID, "error", cause)
}

// selectBlobs picks the tree's blobs under outputDir, keyed by their
// path relative to it.  When outputDir matches nothing (the repo holds
// pre-built files at its root, or the dir was misconfigured) the whole
// tree publishes as-is rather than producing an empty site.
func selectBlobs(tree []TreeEntry, outputDir string) map[string]TreeEntry {
	prefix := strings.Trim(outputDir, "/")
	if prefix != "" {
		prefix += "/"
	}

	picked := make(map[string]TreeEntry)
	for _, e := range tree {
		if e.Type != "blob" {
			continue
		}
		if prefix == "" {
			picked[e.Path] = e
			continue
		}
		if rel, ok := strings.CutPrefix(e.Path, prefix); ok {
			picked[rel] = e
		}
	}
	if len(picked) == 0 && prefix != "" {
		return selectBlobs(tree, "")
	}
	return picked
}
