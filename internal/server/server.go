// internal/server/server.go
//
// HTTP surface assembly.
//
// Context
// -------
// One router serves two planes.  The management API lives under /api and
// authenticates through the trusted identity headers; everything else is
// tenant traffic: the Host header resolves to a site, the access gate
// runs, and the active deployment's files serve.  /healthz and /metrics
// sit outside both planes.

package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yanizio/strata/internal/auth"
	"github.com/yanizio/strata/internal/deployment"
	"github.com/yanizio/strata/internal/github"
	"github.com/yanizio/strata/internal/middleware"
	"github.com/yanizio/strata/internal/requestinfo"
	"github.com/yanizio/strata/internal/site"
	"github.com/yanizio/strata/internal/static"
)

// PasswordCookie carries the bearer token for password-protected sites.
const PasswordCookie = "strata_site_pw"

// Server bundles the handlers' dependencies.
type Server struct {
	resolver    *site.Resolver
	access      *site.Evaluator
	sites       *site.Service
	deployments *deployment.Service
	static      *static.Resolver
	pipeline    *github.Pipeline
}

// NewHandlers wires the handler set.
func NewHandlers(
	resolver *site.Resolver,
	access *site.Evaluator,
	sites *site.Service,
	deployments *deployment.Service,
	staticFiles *static.Resolver,
	pipeline *github.Pipeline,
) *Server {
	return &Server{
		resolver:    resolver,
		access:      access,
		sites:       sites,
		deployments: deployments,
		static:      staticFiles,
		pipeline:    pipeline,
	}
}

// Router assembles the full route tree.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(requestinfo.Enrich)
	r.Use(auth.Middleware)
	r.Use(middleware.Security)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok")) //nolint:errcheck
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(api chi.Router) {
		api.Post("/webhooks/github/{siteID}", s.handleWebhook)

		api.Post("/sites", s.handleCreateSite)
		api.Route("/sites/{siteID}", func(sr chi.Router) {
			sr.Post("/verify-password", s.handleVerifyPassword)

			sr.With(s.requireRole(site.RoleViewer)).Get("/", s.handleGetSite)
			sr.With(s.requireRole(site.RoleOwner)).Delete("/", s.handleDeleteSite)

			sr.Group(func(admin chi.Router) {
				admin.Use(s.requireRole(site.RoleAdmin))
				admin.Patch("/access", s.handleSetAccess)
				admin.Patch("/domains", s.handleUpdateDomains)
				admin.Post("/members", s.handleAddMember)
				admin.Delete("/members/{userID}", s.handleRemoveMember)
				admin.Post("/invites", s.handleCreateInvite)
				admin.Delete("/invites/{email}", s.handleDeleteInvite)
			})

			sr.Route("/deployments", func(dr chi.Router) {
				dr.With(s.requireRole(site.RoleEditor)).Post("/", s.handleCreateDeployment)
				dr.Route("/{deploymentID}", func(one chi.Router) {
					one.With(s.requireRole(site.RoleViewer)).Get("/", s.handleGetDeployment)
					one.With(s.requireRole(site.RoleEditor)).Put("/files/*", s.handleUploadFile)
					one.With(s.requireRole(site.RoleEditor)).Post("/files", s.handleUploadMultipart)
					one.With(s.requireRole(site.RoleEditor)).Post("/finalize", s.handleFinalize)
					one.With(s.requireRole(site.RoleAdmin)).Post("/rollback", s.handleRollback)
					one.With(s.requireRole(site.RoleAdmin)).Delete("/files", s.handleDeleteFiles)
				})
			})
		})
	})

	// Everything else is tenant traffic.
	r.Get("/*", s.handleServe)
	r.Head("/*", s.handleServe)
	return r
}

// New constructs an *http.Server with production timeouts.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}
