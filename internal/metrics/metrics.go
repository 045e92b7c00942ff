// Package metrics holds Prometheus instruments used across the platform.
// All collectors are registered with the global registry, so importing
// this package in main.go is enough to expose them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	SiteResolveTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "site_resolve_total",
			Help: "Cumulative number of successful hostname resolutions.",
		})

	SiteResolveErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "site_resolve_errors_total",
			Help: "Cumulative number of hostname resolution misses and errors.",
		})

	CacheHitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Cumulative number of cache hits on the serving path.",
		})

	CacheMissesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Cumulative number of cache misses on the serving path.",
		})

	AccessDeniedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "access_denied_total",
			Help: "Access denials on the serving path, labelled by reason.",
		},
		[]string{"reason"},
	)

	FilesServedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "files_served_total",
			Help: "Cumulative number of static files served with HTTP 200.",
		})

	BytesServedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bytes_served_total",
			Help: "Cumulative bytes of static file bodies served.",
		})

	DeploymentsFinalizedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "deployments_finalized_total",
			Help: "Cumulative number of deployments marked live.",
		})

	DeploymentsFailedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "deployments_failed_total",
			Help: "Cumulative number of deployments marked failed.",
		})

	WebhookAcceptedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "webhook_accepted_total",
			Help: "Cumulative number of GitHub webhooks accepted.",
		})

	WebhookRejectedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "webhook_rejected_total",
			Help: "Cumulative number of GitHub webhooks rejected (bad signature or config).",
		})
)

func init() {
	prometheus.MustRegister(
		SiteResolveTotal,
		SiteResolveErrorsTotal,
		CacheHitsTotal,
		CacheMissesTotal,
		AccessDeniedTotal,
		FilesServedTotal,
		BytesServedTotal,
		DeploymentsFinalizedTotal,
		DeploymentsFailedTotal,
		WebhookAcceptedTotal,
		WebhookRejectedTotal,
	)
}
