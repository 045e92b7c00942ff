// internal/site/model.go
//
// Row types and closed enums for the site domain.
//
// Context
// -------
// A Site is one hosted property: unique platform subdomain, optional
// verified custom domain, and a nullable pointer to the deployment being
// served.  Access settings, membership, invites, and the GitHub publish
// configuration hang off the site row 1:1 or 1:N.  Destroying a site
// cascades all children.

package site

import "time"

//
// Access type (closed enum)
//

// AccessType is the closed set of visibility modes.  Adding a mode means
// touching every switch over this type; the evaluator's default branch
// turns an unhandled value into an unknown_access_type denial rather
// than an allow.
type AccessType string

const (
	AccessPublic    AccessType = "public"
	AccessPassword  AccessType = "password"
	AccessPrivate   AccessType = "private"
	AccessOwnerOnly AccessType = "owner_only"
)

// Valid reports whether t is one of the four known modes.
func (t AccessType) Valid() bool {
	switch t {
	case AccessPublic, AccessPassword, AccessPrivate, AccessOwnerOnly:
		return true
	}
	return false
}

//
// Member roles (ordered hierarchy)
//

// Role is the per-site membership level.  Weights order the hierarchy;
// comparisons go through AtLeast, never string compares.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleEditor Role = "editor"
	RoleViewer Role = "viewer"
)

var roleWeight = map[Role]int{
	RoleOwner:  4,
	RoleAdmin:  3,
	RoleEditor: 2,
	RoleViewer: 1,
}

// Weight returns the numeric rank of the role, 0 for unknown.
func (r Role) Weight() int { return roleWeight[r] }

// AtLeast reports whether r ranks at or above min.
func (r Role) AtLeast(min Role) bool { return r.Weight() >= min.Weight() }

//
// Row types
//

// Site mirrors one row in the `site` table.
type Site struct {
	ID                 uint64     `db:"id"                   json:"id"`
	Name               string     `db:"name"                 json:"name"`
	Subdomain          string     `db:"subdomain"            json:"subdomain"`
	CustomDomain       *string    `db:"custom_domain"        json:"custom_domain"`
	ActiveDeploymentID *string    `db:"active_deployment_id" json:"active_deployment_id"`
	CreatedBy          int64      `db:"created_by"           json:"created_by"`
	CreatedAt          time.Time  `db:"created_at"           json:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at"           json:"updated_at"`
}

// Access mirrors the 1:1 `site_access` row.  PasswordHash is non-nil iff
// AccessType == password; the repository enforces that invariant on
// write.
type Access struct {
	SiteID       uint64     `db:"site_id"       json:"site_id"`
	AccessType   AccessType `db:"access_type"   json:"access_type"`
	PasswordHash *string    `db:"password_hash" json:"password_hash"`
}

// Member mirrors one `site_member` row.
type Member struct {
	SiteID    uint64    `db:"site_id"    json:"site_id"`
	UserID    int64     `db:"user_id"    json:"user_id"`
	Role      Role      `db:"role"       json:"role"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Invite grants a visitor email access to a private site, optionally
// until ExpiresAt.
type Invite struct {
	SiteID    uint64     `db:"site_id"    json:"site_id"`
	Email     string     `db:"email"      json:"email"`
	ExpiresAt *time.Time `db:"expires_at" json:"expires_at"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}

// GithubConfig mirrors the 1:1 `site_github_config` row driving the
// ingest pipeline.
type GithubConfig struct {
	SiteID             uint64     `db:"site_id"              json:"site_id"`
	Repo               string     `db:"repo"                 json:"repo"` // "owner/name"
	Branch             string     `db:"branch"               json:"branch"`
	BuildCommand       string     `db:"build_command"        json:"build_command"`
	InstallCommand     string     `db:"install_command"      json:"install_command"`
	OutputDir          string     `db:"output_dir"           json:"output_dir"`
	AutoDeploy         bool       `db:"auto_deploy"          json:"auto_deploy"`
	WebhookSecret      string     `db:"webhook_secret"       json:"-"`
	AccessToken        string     `db:"access_token"         json:"-"`
	LastDeployedCommit *string    `db:"last_deployed_commit" json:"last_deployed_commit"`
	LastDeployedAt     *time.Time `db:"last_deployed_at"     json:"last_deployed_at"`
}

//
// Resolution aggregate
//

// Resolution is what the serving path needs per request: the site row
// plus its access settings, flattened so one cache entry answers both
// the hostname lookup and the access gate.  PasswordHash doubles as the
// bearer token for password-protected sites, so a Resolution must never
// be serialized into a response body.
type Resolution struct {
	Site         Site       `json:"site"`
	AccessType   AccessType `json:"access_type"`
	PasswordHash string     `json:"password_hash,omitempty"`
}
