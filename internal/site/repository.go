// internal/site/repository.go
//
// sqlx query helpers for the site, site_access, site_member,
// site_invite, and site_github_config tables.  Queries are thin and
// parameterised; caching belongs to the Resolver and Evaluator, not
// here.

package site

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// ErrNotFound is returned when a hostname, id, or config row has no
// matching site.
var ErrNotFound = errors.New("site not found")

// ErrNotMember is returned by MemberRole when the user holds no
// membership on the site.
var ErrNotMember = errors.New("not a site member")

// ErrLastOwner is returned when a removal would leave a site with no
// owner.
var ErrLastOwner = errors.New("cannot remove the last owner")

// Repository bundles the control-plane DB handle.
type Repository struct {
	db *sqlx.DB
}

// NewRepository wraps the given pool.
func NewRepository(db *sqlx.DB) *Repository { return &Repository{db: db} }

// DB exposes the underlying pool for transactional callers (deployment
// finalize shares a transaction across tables).
func (r *Repository) DB() *sqlx.DB { return r.db }

//
// Resolution lookups
//

// resolutionRow flattens the site ⋈ site_access join for one scan.
type resolutionRow struct {
	Site
	AccType AccessType     `db:"access_type"`
	PwHash  sql.NullString `db:"password_hash"`
}

const resolutionColumns = `
        s.id, s.name, s.subdomain, s.custom_domain, s.active_deployment_id,
        s.created_by, s.created_at, s.updated_at,
        a.access_type, a.password_hash`

func (row *resolutionRow) toResolution() *Resolution {
	res := &Resolution{Site: row.Site, AccessType: row.AccType}
	if row.PwHash.Valid {
		res.PasswordHash = row.PwHash.String
	}
	return res
}

// BySubdomain fetches a resolution by platform subdomain label.
func (r *Repository) BySubdomain(ctx context.Context, sub string) (*Resolution, error) {
	const q = `
        SELECT` + resolutionColumns + `
        FROM   site s
        JOIN   site_access a ON a.site_id = s.id
        WHERE  s.subdomain = ?
        LIMIT  1`
	var row resolutionRow
	if err := r.db.GetContext(ctx, &row, q, sub); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return row.toResolution(), nil
}

// ByDomain fetches a resolution by exact custom-domain match.
func (r *Repository) ByDomain(ctx context.Context, domain string) (*Resolution, error) {
	const q = `
        SELECT` + resolutionColumns + `
        FROM   site s
        JOIN   site_access a ON a.site_id = s.id
        WHERE  s.custom_domain = ?
        LIMIT  1`
	var row resolutionRow
	if err := r.db.GetContext(ctx, &row, q, domain); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return row.toResolution(), nil
}

// ByID fetches one site row.
func (r *Repository) ByID(ctx context.Context, id uint64) (*Site, error) {
	const q = `
        SELECT id, name, subdomain, custom_domain, active_deployment_id,
               created_by, created_at, updated_at
        FROM   site
        WHERE  id = ?
        LIMIT  1`
	var s Site
	if err := r.db.GetContext(ctx, &s, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

// AccessBySite fetches the 1:1 access row.
func (r *Repository) AccessBySite(ctx context.Context, siteID uint64) (*Access, error) {
	const q = `
        SELECT site_id, access_type, password_hash
        FROM   site_access
        WHERE  site_id = ?
        LIMIT  1`
	var a Access
	if err := r.db.GetContext(ctx, &a, q, siteID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

//
// Membership and invites
//

// MemberRole returns the role held by userID on siteID, or ErrNotMember.
func (r *Repository) MemberRole(ctx context.Context, siteID uint64, userID int64) (Role, error) {
	const q = `
        SELECT role
        FROM   site_member
        WHERE  site_id = ? AND user_id = ?
        LIMIT  1`
	var role Role
	if err := r.db.GetContext(ctx, &role, q, siteID, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotMember
		}
		return "", err
	}
	return role, nil
}

// HasValidInvite reports whether email holds a non-expired invite for
// the site.  A NULL expiry never expires.
func (r *Repository) HasValidInvite(ctx context.Context, siteID uint64, email string, now time.Time) (bool, error) {
	const q = `
        SELECT 1
        FROM   site_invite
        WHERE  site_id = ? AND email = ?
          AND  (expires_at IS NULL OR expires_at > ?)
        LIMIT  1`
	var dummy int
	err := r.db.GetContext(ctx, &dummy, q, siteID, email, now)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ownerCount counts owners inside a transaction so removal checks see a
// consistent view.
func ownerCount(ctx context.Context, tx *sqlx.Tx, siteID uint64) (int, error) {
	const q = `SELECT COUNT(*) FROM site_member WHERE site_id = ? AND role = 'owner'`
	var n int
	if err := tx.GetContext(ctx, &n, q, siteID); err != nil {
		return 0, err
	}
	return n, nil
}

// UpsertMember inserts or updates a (site, user) membership.
func (r *Repository) UpsertMember(ctx context.Context, siteID uint64, userID int64, role Role) error {
	const q = `
        INSERT INTO site_member (site_id, user_id, role, created_at)
        VALUES (?, ?, ?, ?)
        ON DUPLICATE KEY UPDATE role = VALUES(role)`
	_, err := r.db.ExecContext(ctx, q, siteID, userID, role, time.Now().UTC())
	return err
}

// RemoveMember deletes a membership, refusing to remove the last owner.
// The owner count and the delete run in one transaction.
func (r *Repository) RemoveMember(ctx context.Context, siteID uint64, userID int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // no-op after Commit

	var role Role
	err = tx.GetContext(ctx, &role,
		`SELECT role FROM site_member WHERE site_id = ? AND user_id = ? LIMIT 1`,
		siteID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotMember
	}
	if err != nil {
		return err
	}

	if role == RoleOwner {
		n, err := ownerCount(ctx, tx, siteID)
		if err != nil {
			return err
		}
		if n <= 1 {
			return ErrLastOwner
		}
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM site_member WHERE site_id = ? AND user_id = ?`,
		siteID, userID); err != nil {
		return err
	}
	return tx.Commit()
}

// CreateInvite records an invite; a repeat invite refreshes the expiry.
func (r *Repository) CreateInvite(ctx context.Context, siteID uint64, email string, expiresAt *time.Time) error {
	const q = `
        INSERT INTO site_invite (site_id, email, expires_at, created_at)
        VALUES (?, ?, ?, ?)
        ON DUPLICATE KEY UPDATE expires_at = VALUES(expires_at)`
	_, err := r.db.ExecContext(ctx, q, siteID, email, expiresAt, time.Now().UTC())
	return err
}

// DeleteInvite revokes an invite.
func (r *Repository) DeleteInvite(ctx context.Context, siteID uint64, email string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM site_invite WHERE site_id = ? AND email = ?`, siteID, email)
	return err
}

//
// GitHub config
//

// GithubConfigBySite fetches the 1:1 publish configuration.
func (r *Repository) GithubConfigBySite(ctx context.Context, siteID uint64) (*GithubConfig, error) {
	const q = `
        SELECT site_id, repo, branch, build_command, install_command,
               output_dir, auto_deploy, webhook_secret, access_token,
               last_deployed_commit, last_deployed_at
        FROM   site_github_config
        WHERE  site_id = ?
        LIMIT  1`
	var cfg GithubConfig
	if err := r.db.GetContext(ctx, &cfg, q, siteID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &cfg, nil
}

//
// Site mutations (invalidation lives in Service)
//

// Insert creates a site together with its default-public access row and
// the creator's owner membership, all in one transaction.
func (r *Repository) Insert(ctx context.Context, name, subdomain string, createdBy int64) (*Site, error) {
	now := time.Now().UTC()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx, `
        INSERT INTO site (name, subdomain, created_by, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?)`,
		name, subdomain, createdBy, now, now)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, `
        INSERT INTO site_access (site_id, access_type) VALUES (?, 'public')`, id); err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, `
        INSERT INTO site_member (site_id, user_id, role, created_at)
        VALUES (?, ?, 'owner', ?)`, id, createdBy, now); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &Site{
		ID:        uint64(id),
		Name:      name,
		Subdomain: subdomain,
		CreatedBy: createdBy,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// UpdateDomains rewrites the subdomain and custom domain.
func (r *Repository) UpdateDomains(ctx context.Context, siteID uint64, subdomain string, customDomain *string) error {
	res, err := r.db.ExecContext(ctx, `
        UPDATE site SET subdomain = ?, custom_domain = ?, updated_at = ?
        WHERE  id = ?`,
		subdomain, customDomain, time.Now().UTC(), siteID)
	if err != nil {
		return err
	}
	return mustAffect(res, 1)
}

// UpdateAccess rewrites the access row.  AccessType password requires a
// non-nil hash; every other type clears it.
func (r *Repository) UpdateAccess(ctx context.Context, siteID uint64, t AccessType, passwordHash *string) error {
	if !t.Valid() {
		return fmt.Errorf("unknown access type %q", t)
	}
	if t == AccessPassword && passwordHash == nil {
		return fmt.Errorf("access type password requires a password hash")
	}
	if t != AccessPassword {
		passwordHash = nil
	}
	res, err := r.db.ExecContext(ctx, `
        UPDATE site_access SET access_type = ?, password_hash = ?
        WHERE  site_id = ?`,
		t, passwordHash, siteID)
	if err != nil {
		return err
	}
	return mustAffect(res, 1)
}

// DeleteCascade removes the site and all children rows.  Object-store
// cleanup is the Service's job.
func (r *Repository) DeleteCascade(ctx context.Context, siteID uint64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	for _, q := range []string{
		`DELETE FROM site_invite WHERE site_id = ?`,
		`DELETE FROM site_member WHERE site_id = ?`,
		`DELETE FROM site_github_config WHERE site_id = ?`,
		`DELETE FROM deployment WHERE site_id = ?`,
		`DELETE FROM site_access WHERE site_id = ?`,
		`DELETE FROM site WHERE id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, q, siteID); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// mustAffect converts a zero-row UPDATE into ErrNotFound.
func mustAffect(res sql.Result, want int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n < want {
		return ErrNotFound
	}
	return nil
}
