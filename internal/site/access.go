// internal/site/access.go
//
// Access-control evaluator.
//
// Context
// -------
// Four visibility modes gate the serving path.  The decision table:
//
//	public     – always allowed.
//	password   – cookie must equal the stored password hash.
//	owner_only – any authenticated SiteMember, regardless of role.
//	private    – SiteMember, or a non-expired invite for the visitor's
//	             email.
//
// The stored bcrypt hash doubles as the bearer token: the verification
// endpoint hands it to the client as a cookie, and subsequent requests
// compare cookie and hash byte-for-byte (constant time).  Treat the hash
// as a secret, not a mere verifier.
//
// Membership and invite checks are row-store reads; the member role is
// cached under `member:{userId}:{siteId}` so repeated visits inside the
// TTL window cost nothing.

package site

import (
	"context"
	"crypto/subtle"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/yanizio/strata/internal/auth"
	"github.com/yanizio/strata/internal/cache"
	"github.com/yanizio/strata/internal/metrics"
)

//
// Decision types
//

// Reason classifies a denial for HTTP mapping and metrics.
type Reason string

const (
	ReasonPasswordRequired  Reason = "password_required"
	ReasonLoginRequired     Reason = "login_required"
	ReasonNotAMember        Reason = "not_a_member"
	ReasonNotInvited        Reason = "not_invited"
	ReasonUnknownAccessType Reason = "unknown_access_type"
)

// Decision is the evaluator's verdict.  Reason is empty when Allowed.
type Decision struct {
	Allowed bool
	Reason  Reason
}

var allowed = Decision{Allowed: true}

func denied(r Reason) Decision {
	metrics.AccessDeniedTotal.WithLabelValues(string(r)).Inc()
	return Decision{Reason: r}
}

//
// Evaluator
//

// MembershipStore is the slice of Repository the evaluator needs, kept
// narrow so tests can fake membership without a database.
type MembershipStore interface {
	MemberRole(ctx context.Context, siteID uint64, userID int64) (Role, error)
	HasValidInvite(ctx context.Context, siteID uint64, email string, now time.Time) (bool, error)
}

// Evaluator decides allow/deny for a (site, visitor) pair.
type Evaluator struct {
	store MembershipStore
	cache cache.Cache
}

// NewEvaluator wires the evaluator to its membership source and cache.
func NewEvaluator(store MembershipStore, c cache.Cache) *Evaluator {
	return &Evaluator{store: store, cache: c}
}

// Check evaluates the decision table.  I/O errors (row-store failures)
// surface as errors, never as silent denials or allows.
func (e *Evaluator) Check(ctx context.Context, res *Resolution, passwordCookie string, v auth.Visitor) (Decision, error) {
	switch res.AccessType {
	case AccessPublic:
		return allowed, nil

	case AccessPassword:
		if passwordCookie != "" && res.PasswordHash != "" &&
			subtle.ConstantTimeCompare([]byte(passwordCookie), []byte(res.PasswordHash)) == 1 {
			return allowed, nil
		}
		return denied(ReasonPasswordRequired), nil

	case AccessOwnerOnly:
		if !v.Authenticated() {
			return denied(ReasonLoginRequired), nil
		}
		isMember, err := e.isMember(ctx, res.Site.ID, *v.UserID)
		if err != nil {
			return Decision{}, err
		}
		if isMember {
			return allowed, nil
		}
		return denied(ReasonNotAMember), nil

	case AccessPrivate:
		if v.Authenticated() {
			isMember, err := e.isMember(ctx, res.Site.ID, *v.UserID)
			if err != nil {
				return Decision{}, err
			}
			if isMember {
				return allowed, nil
			}
		}
		if v.Email != "" {
			ok, err := e.store.HasValidInvite(ctx, res.Site.ID, v.Email, time.Now().UTC())
			if err != nil {
				return Decision{}, err
			}
			if ok {
				return allowed, nil
			}
		}
		return denied(ReasonNotInvited), nil

	default:
		return denied(ReasonUnknownAccessType), nil
	}
}

// isMember answers via the member cache, falling back to the store.
// Only positive results are cached; a just-added member must not wait
// out a cached negative.
func (e *Evaluator) isMember(ctx context.Context, siteID uint64, userID int64) (bool, error) {
	key := cache.KeyMember(userID, siteID)

	var role Role
	if cache.GetJSON(ctx, e.cache, key, &role) {
		return true, nil
	}

	role, err := e.store.MemberRole(ctx, siteID, userID)
	if err == ErrNotMember {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	e.cache.Set(ctx, key, role, cache.TTL)
	return true, nil
}

//
// Password helpers
//

// HashPassword bcrypt-hashes a site password for storage.
func HashPassword(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// VerifyPassword checks a cleartext password against the stored hash.
// Used only by the verification endpoint; the serving path compares the
// cookie against the hash directly.
func VerifyPassword(password, storedHash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(password)) == nil
}
