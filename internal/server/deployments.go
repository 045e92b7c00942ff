// internal/server/deployments.go
//
// Direct-upload deployment API.  The flow mirrors the ingest pipeline
// without the GitHub leg: create a pending deployment, PUT files into
// it, finalize to swap it live.  Rollback and bulk file deletion sit
// behind the admin gate.

package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/yanizio/strata/internal/deployment"
)

// deploymentForSite loads a deployment and checks it belongs to the
// route's site, so a caller cannot touch another tenant's deployment by
// guessing IDs.
func (s *Server) deploymentForSite(r *http.Request) (*deployment.Deployment, error) {
	siteID, _ := siteIDParam(r)
	d, err := s.deployments.Repo().ByID(r.Context(), chi.URLParam(r, "deploymentID"))
	if err != nil {
		return nil, err
	}
	if d.SiteID != siteID {
		return nil, deployment.ErrNotFound
	}
	return d, nil
}

func (s *Server) handleCreateDeployment(w http.ResponseWriter, r *http.Request) {
	siteID, _ := siteIDParam(r)

	if _, err := s.sites.Repo().ByID(r.Context(), siteID); err != nil {
		writeDomainError(w, err)
		return
	}
	d, err := s.deployments.Create(r.Context(), siteID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

func (s *Server) handleGetDeployment(w http.ResponseWriter, r *http.Request) {
	d, err := s.deploymentForSite(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// handleUploadFile streams the request body into the deployment at the
// wildcard path: PUT /files/assets/app.css stores assets/app.css.
func (s *Server) handleUploadFile(w http.ResponseWriter, r *http.Request) {
	d, err := s.deploymentForSite(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	rel := chi.URLParam(r, "*")
	if rel == "" {
		writeError(w, http.StatusBadRequest, "file path is required")
		return
	}

	err = s.deployments.UploadFile(r.Context(), d, rel, r.Body, r.ContentLength)
	if errors.Is(err, deployment.ErrImmutable) {
		writeDomainError(w, err)
		return
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleUploadMultipart accepts a multipart form and stores each file
// part under its filename, so a whole build directory can ship in one
// request.
func (s *Server) handleUploadMultipart(w http.ResponseWriter, r *http.Request) {
	d, err := s.deploymentForSite(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	mr, err := r.MultipartReader()
	if err != nil {
		writeError(w, http.StatusBadRequest, "multipart body required")
		return
	}

	uploaded := 0
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			writeError(w, http.StatusBadRequest, "malformed multipart body")
			return
		}
		name := part.FileName()
		if name == "" {
			continue // non-file field
		}

		err = s.deployments.UploadFile(r.Context(), d, name, part, -1)
		part.Close() //nolint:errcheck
		if errors.Is(err, deployment.ErrImmutable) {
			writeDomainError(w, err)
			return
		}
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		uploaded++
	}
	if uploaded == 0 {
		writeError(w, http.StatusBadRequest, "no file parts in request")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"uploaded": uploaded})
}

func (s *Server) handleFinalize(w http.ResponseWriter, r *http.Request) {
	d, err := s.deploymentForSite(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	var req struct {
		FileCount int   `json:"file_count"`
		TotalSize int64 `json:"total_size"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	// Direct uploads skip the explicit processing step; finalize walks
	// the full pending → processing → live path itself.
	if d.Status == deployment.StatusPending {
		if err := s.deployments.MarkProcessing(r.Context(), d.ID); err != nil {
			writeDomainError(w, err)
			return
		}
		d.Status = deployment.StatusProcessing
	}

	if err := s.deployments.Finalize(r.Context(), d, req.FileCount, req.TotalSize); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleRollback(w http.ResponseWriter, r *http.Request) {
	siteID, _ := siteIDParam(r)
	if err := s.deployments.Rollback(r.Context(), siteID, chi.URLParam(r, "deploymentID")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteFiles(w http.ResponseWriter, r *http.Request) {
	d, err := s.deploymentForSite(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	var req struct {
		Paths []string `json:"paths"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Paths) == 0 {
		writeError(w, http.StatusBadRequest, "paths are required")
		return
	}

	if err := s.deployments.DeleteFiles(r.Context(), d, req.Paths); err != nil {
		if errors.Is(err, deployment.ErrImmutable) {
			writeDomainError(w, err)
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
