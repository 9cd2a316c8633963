// Package metrics holds Prometheus instruments used across the service.
// All collectors are registered with the default registry, so mounting
// promhttp.Handler() is enough to expose them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by method, route pattern, and status code.",
		}, []string{"method", "route", "status"})

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by method and route pattern.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"})

	ConfigureTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "startup_configure_total",
			Help: "Startup configuration attempts by result (ok, error).",
		}, []string{"result"})

	RegisteredMigrations = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "registered_migrations",
			Help: "Number of migrations declared at startup.",
		})

	MailEnabled = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "mail_enabled",
			Help: "1 when the mail provider is configured, else 0.",
		})
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		ConfigureTotal,
		RegisteredMigrations,
		MailEnabled,
	)
}
