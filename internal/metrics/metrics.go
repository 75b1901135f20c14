// Package metrics holds Prometheus instruments used across the content
// layer.  All collectors are registered with the global registry, so
// mounting promhttp.Handler() in main.go is enough to expose them.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RepositoryErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "content_repository_errors_total",
			Help: "Repository errors by operation and kind (connectivity, input, query).",
		}, []string{"op", "kind"})

	FallbacksServedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "content_fallbacks_served_total",
			Help: "Reads answered from last-good or fixture content instead of the store.",
		}, []string{"op", "source"})

	SettingsSavesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settings_saves_total",
			Help: "Settings save attempts by outcome.",
		}, []string{"outcome"})

	MigratedRecordsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "migration_records_total",
			Help: "Local-storage records replayed by collection and outcome.",
		}, []string{"collection", "outcome"})

	InstagramFetchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "instagram_fetches_total",
			Help: "Instagram feed fetches by outcome (hit, fetched, stale, error).",
		}, []string{"outcome"})

	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "API requests by route pattern, method, and status code.",
		}, []string{"route", "method", "code"})
)

func init() {
	prometheus.MustRegister(
		RepositoryErrorsTotal,
		FallbacksServedTotal,
		SettingsSavesTotal,
		MigratedRecordsTotal,
		InstagramFetchesTotal,
		HTTPRequestsTotal,
	)
}
