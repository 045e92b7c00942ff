// internal/server/respond.go
//
// JSON response helpers and the domain-error → HTTP status mapping.

package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/yanizio/strata/internal/auth"
	"github.com/yanizio/strata/internal/deployment"
	"github.com/yanizio/strata/internal/site"
	"github.com/yanizio/strata/internal/storage"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.S().Warnw("encoding response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeDomainError maps the domain sentinels onto HTTP statuses; any
// unrecognized error is a 500 with the detail kept server-side.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, site.ErrNotFound), errors.Is(err, deployment.ErrNotFound),
		errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, site.ErrLastOwner):
		writeError(w, http.StatusConflict, "site must retain at least one owner")
	case errors.Is(err, deployment.ErrBadTransition):
		writeError(w, http.StatusConflict, "deployment is not in the required state")
	case errors.Is(err, deployment.ErrNotLive):
		writeError(w, http.StatusConflict, "rollback target is not live")
	case errors.Is(err, deployment.ErrImmutable):
		writeError(w, http.StatusConflict, "deployment is no longer writable")
	default:
		zap.S().Errorw("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// denialStatus maps access-gate reasons to statuses: missing credentials
// are 401, present-but-insufficient ones are 403.
var denialStatus = map[site.Reason]int{
	site.ReasonPasswordRequired: http.StatusUnauthorized,
	site.ReasonLoginRequired:    http.StatusUnauthorized,
	site.ReasonNotAMember:       http.StatusForbidden,
	site.ReasonNotInvited:       http.StatusForbidden,
}

func writeDenial(w http.ResponseWriter, reason site.Reason) {
	status, ok := denialStatus[reason]
	if !ok {
		// unknown_access_type: a data problem, not a visitor problem.
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, status, map[string]string{"error": string(reason)})
}

// siteIDParam parses the {siteID} route parameter.
func siteIDParam(r *http.Request) (uint64, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "siteID"), 10, 64)
	return id, err == nil && id > 0
}

// requireRole gates a management route on site membership at or above
// min.  Anonymous callers get 401; members below the bar get 403.
func (s *Server) requireRole(min site.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			siteID, ok := siteIDParam(r)
			if !ok {
				writeError(w, http.StatusBadRequest, "invalid site id")
				return
			}
			v := auth.VisitorFromContext(r.Context())
			if !v.Authenticated() {
				writeError(w, http.StatusUnauthorized, "authentication required")
				return
			}

			role, err := s.sites.Repo().MemberRole(r.Context(), siteID, *v.UserID)
			if errors.Is(err, site.ErrNotMember) {
				writeError(w, http.StatusForbidden, "not a member of this site")
				return
			}
			if err != nil {
				writeDomainError(w, err)
				return
			}
			if !role.AtLeast(min) {
				writeError(w, http.StatusForbidden, "insufficient role")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
