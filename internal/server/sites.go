// internal/server/sites.go
//
// Site management API: provisioning, access settings, domains,
// membership, invites, and the password-verification exchange.

package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/yanizio/strata/internal/auth"
	"github.com/yanizio/strata/internal/site"
)

func (s *Server) handleCreateSite(w http.ResponseWriter, r *http.Request) {
	v := auth.VisitorFromContext(r.Context())
	if !v.Authenticated() {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req struct {
		Name      string `json:"name"`
		Subdomain string `json:"subdomain"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" || req.Subdomain == "" {
		writeError(w, http.StatusBadRequest, "name and subdomain are required")
		return
	}

	created, err := s.sites.Create(r.Context(), req.Name, req.Subdomain, *v.UserID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetSite(w http.ResponseWriter, r *http.Request) {
	siteID, _ := siteIDParam(r)
	found, err := s.sites.Repo().ByID(r.Context(), siteID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, found)
}

func (s *Server) handleDeleteSite(w http.ResponseWriter, r *http.Request) {
	siteID, _ := siteIDParam(r)
	if err := s.sites.Delete(r.Context(), siteID); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetAccess(w http.ResponseWriter, r *http.Request) {
	siteID, _ := siteIDParam(r)

	var req struct {
		AccessType site.AccessType `json:"access_type"`
		Password   *string         `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !req.AccessType.Valid() {
		writeError(w, http.StatusBadRequest, "unknown access type")
		return
	}
	if req.AccessType == site.AccessPassword && (req.Password == nil || *req.Password == "") {
		writeError(w, http.StatusBadRequest, "access type password requires a password")
		return
	}

	if err := s.sites.SetAccess(r.Context(), siteID, req.AccessType, req.Password); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUpdateDomains(w http.ResponseWriter, r *http.Request) {
	siteID, _ := siteIDParam(r)

	var req struct {
		Subdomain    string  `json:"subdomain"`
		CustomDomain *string `json:"custom_domain"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Subdomain == "" {
		writeError(w, http.StatusBadRequest, "subdomain is required")
		return
	}

	if err := s.sites.UpdateDomains(r.Context(), siteID, req.Subdomain, req.CustomDomain); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAddMember(w http.ResponseWriter, r *http.Request) {
	siteID, _ := siteIDParam(r)

	var req struct {
		UserID int64     `json:"user_id"`
		Role   site.Role `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == 0 || req.Role.Weight() == 0 {
		writeError(w, http.StatusBadRequest, "user_id and a known role are required")
		return
	}

	if err := s.sites.AddMember(r.Context(), siteID, req.UserID, req.Role); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRemoveMember(w http.ResponseWriter, r *http.Request) {
	siteID, _ := siteIDParam(r)
	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	if err := s.sites.RemoveMember(r.Context(), siteID, userID); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCreateInvite(w http.ResponseWriter, r *http.Request) {
	siteID, _ := siteIDParam(r)

	var req struct {
		Email     string     `json:"email"`
		ExpiresAt *time.Time `json:"expires_at"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" {
		writeError(w, http.StatusBadRequest, "email is required")
		return
	}

	if err := s.sites.CreateInvite(r.Context(), siteID, req.Email, req.ExpiresAt); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteInvite(w http.ResponseWriter, r *http.Request) {
	siteID, _ := siteIDParam(r)
	if err := s.sites.DeleteInvite(r.Context(), siteID, chi.URLParam(r, "email")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleVerifyPassword exchanges a cleartext site password for the
// bearer token (the stored hash), delivered both in the body and as the
// cookie the serving path reads.
func (s *Server) handleVerifyPassword(w http.ResponseWriter, r *http.Request) {
	siteID, ok := siteIDParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid site id")
		return
	}

	var req struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Password == "" {
		writeError(w, http.StatusBadRequest, "password is required")
		return
	}

	access, err := s.sites.Repo().AccessBySite(r.Context(), siteID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if access.AccessType != site.AccessPassword || access.PasswordHash == nil {
		writeError(w, http.StatusBadRequest, "site is not password protected")
		return
	}

	if !site.VerifyPassword(req.Password, *access.PasswordHash) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"valid": false})
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     PasswordCookie,
		Value:    *access.PasswordHash,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"valid": true,
		"token": *access.PasswordHash,
	})
}
