// internal/deployment/repository.go
//
// sqlx persistence for the deployment lifecycle.
//
// Context
// -------
// Status guards are enforced in SQL (`WHERE status = ?` + affected-row
// checks), not by reading first, so two racing writers cannot both move
// a deployment out of the same state.  The pointer swap in Finalize is a
// single transaction: the deployment goes live and the site's
// active_deployment_id repoints all-or-nothing, which is what keeps the
// pointer from ever naming a non-live deployment.

package deployment

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/yanizio/strata/internal/storage"
)

// ErrNotFound is returned when no deployment row matches.
var ErrNotFound = errors.New("deployment not found")

// ErrBadTransition is returned when a status change violates the
// lifecycle graph, including any attempt to leave a terminal state.
var ErrBadTransition = errors.New("illegal deployment status transition")

// ErrNotLive is returned by Rollback when the target deployment is not
// live.
var ErrNotLive = errors.New("rollback target is not live")

// Repository bundles the control-plane DB handle.
type Repository struct {
	db *sqlx.DB
}

// NewRepository wraps the given pool.
func NewRepository(db *sqlx.DB) *Repository { return &Repository{db: db} }

// Create allocates a deployment row and its storage prefix.  status must
// be pending (direct upload) or processing (server-side ingest).
func (r *Repository) Create(ctx context.Context, siteID uint64, status Status, commitHash, commitMessage *string) (*Deployment, error) {
	if !status.Mutable() {
		return nil, ErrBadTransition
	}

	d := &Deployment{
		ID:            uuid.NewString(),
		SiteID:        siteID,
		Status:        status,
		CommitHash:    commitHash,
		CommitMessage: commitMessage,
		CreatedAt:     time.Now().UTC(),
	}
	d.StoragePath = storage.DeploymentPrefix(siteID, d.ID)

	const q = `
        INSERT INTO deployment
               (id, site_id, storage_path, status, file_count, total_size,
                commit_hash, commit_message, created_at)
        VALUES (?, ?, ?, ?, 0, 0, ?, ?, ?)`
	if _, err := r.db.ExecContext(ctx, q,
		d.ID, d.SiteID, d.StoragePath, d.Status,
		d.CommitHash, d.CommitMessage, d.CreatedAt); err != nil {
		return nil, err
	}
	return d, nil
}

// ByID fetches one deployment row.
func (r *Repository) ByID(ctx context.Context, id string) (*Deployment, error) {
	const q = `
        SELECT id, site_id, storage_path, status, file_count, total_size,
               commit_hash, commit_message, created_at, finished_at
        FROM   deployment
        WHERE  id = ?
        LIMIT  1`
	var d Deployment
	if err := r.db.GetContext(ctx, &d, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

// MarkProcessing moves pending → processing.
func (r *Repository) MarkProcessing(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE deployment SET status = 'processing' WHERE id = ? AND status = 'pending'`, id)
	if err != nil {
		return err
	}
	return guardAffected(res)
}

// MarkFailed moves any non-terminal state → failed.
func (r *Repository) MarkFailed(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `
        UPDATE deployment SET status = 'failed', finished_at = ?
        WHERE  id = ? AND status IN ('pending', 'processing')`,
		time.Now().UTC(), id)
	if err != nil {
		return err
	}
	return guardAffected(res)
}

// Finalize moves processing → live with final counts and repoints the
// site's active deployment, both in one transaction.
func (r *Repository) Finalize(ctx context.Context, d *Deployment, fileCount int, totalSize int64) error {
	return r.finalize(ctx, d, fileCount, totalSize, nil)
}

// FinalizeIngest is Finalize plus the GitHub config bookkeeping
// (last_deployed_commit / last_deployed_at), still one transaction.
func (r *Repository) FinalizeIngest(ctx context.Context, d *Deployment, fileCount int, totalSize int64, commit string) error {
	return r.finalize(ctx, d, fileCount, totalSize, &commit)
}

func (r *Repository) finalize(ctx context.Context, d *Deployment, fileCount int, totalSize int64, ingestCommit *string) error {
	now := time.Now().UTC()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // no-op after Commit

	res, err := tx.ExecContext(ctx, `
        UPDATE deployment
        SET    status = 'live', file_count = ?, total_size = ?, finished_at = ?
        WHERE  id = ? AND status = 'processing'`,
		fileCount, totalSize, now, d.ID)
	if err != nil {
		return err
	}
	if err := guardAffected(res); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `
        UPDATE site SET active_deployment_id = ?, updated_at = ? WHERE id = ?`,
		d.ID, now, d.SiteID); err != nil {
		return err
	}

	if ingestCommit != nil {
		if _, err := tx.ExecContext(ctx, `
        UPDATE site_github_config
        SET    last_deployed_commit = ?, last_deployed_at = ?
        WHERE  site_id = ?`,
			*ingestCommit, now, d.SiteID); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	d.Status = StatusLive
	d.FileCount = fileCount
	d.TotalSize = totalSize
	d.FinishedAt = &now
	return nil
}

// Rollback repoints the site at an already-live target deployment.  No
// deployment row is mutated, so a retry is always safe.
func (r *Repository) Rollback(ctx context.Context, siteID uint64, targetID string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	var target struct {
		SiteID uint64 `db:"site_id"`
		Status Status `db:"status"`
	}
	err = tx.GetContext(ctx, &target,
		`SELECT site_id, status FROM deployment WHERE id = ? LIMIT 1`, targetID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if target.SiteID != siteID {
		return ErrNotFound
	}
	if target.Status != StatusLive {
		return ErrNotLive
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE site SET active_deployment_id = ?, updated_at = ? WHERE id = ?`,
		targetID, time.Now().UTC(), siteID); err != nil {
		return err
	}
	return tx.Commit()
}

// guardAffected maps a zero-row status UPDATE to ErrBadTransition: the
// row either does not exist or is not in the required source state.
func guardAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrBadTransition
	}
	return nil
}
