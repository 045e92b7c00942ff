// internal/server/webhook.go
//
// GitHub webhook ingestion endpoint.
//
// Context
// -------
// The endpoint authenticates with the per-site webhook secret, not the
// identity headers: GitHub is the caller.  Signature failures are 401
// with no side effects.  Verified pushes that miss the gate (wrong
// branch, auto-deploy off, non-push event) acknowledge with 200 and do
// nothing, so GitHub never retries them.

package server

import (
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/yanizio/strata/internal/github"
	"github.com/yanizio/strata/internal/metrics"
	"github.com/yanizio/strata/internal/site"
)

// maxWebhookBody caps the payload read; push events are a few KB.
const maxWebhookBody = 1 << 20

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	siteID, ok := siteIDParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid site id")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable request body")
		return
	}

	cfg, err := s.sites.Repo().GithubConfigBySite(r.Context(), siteID)
	if errors.Is(err, site.ErrNotFound) {
		writeError(w, http.StatusNotFound, "site has no github configuration")
		return
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if err := github.VerifySignature(cfg.WebhookSecret, body, r.Header.Get(github.SignatureHeader)); err != nil {
		metrics.WebhookRejectedTotal.Inc()
		zap.S().Warnw("webhook signature rejected", "site_id", siteID)
		writeError(w, http.StatusUnauthorized, "invalid signature")
		return
	}

	if ev := r.Header.Get("X-GitHub-Event"); ev != "push" {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored", "reason": "event is not a push"})
		return
	}

	push, err := github.ParsePush(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "malformed push payload")
		return
	}

	switch {
	case !cfg.AutoDeploy:
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored", "reason": "auto-deploy disabled"})
		return
	case push.Branch() != cfg.Branch:
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored", "reason": "branch not configured"})
		return
	case push.After == "" || push.After == zeroSHA:
		// Branch deletion pushes carry the zero SHA.
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored", "reason": "no head commit"})
		return
	}

	metrics.WebhookAcceptedTotal.Inc()

	d, err := s.pipeline.Run(r.Context(), cfg, push)
	if err != nil {
		// The pipeline already marked the deployment failed; the previous
		// live deployment keeps serving.
		if d != nil {
			writeJSON(w, http.StatusBadGateway, map[string]any{
				"error":         "ingest failed",
				"deployment_id": d.ID,
			})
			return
		}
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

const zeroSHA = "0000000000000000000000000000000000000000"
