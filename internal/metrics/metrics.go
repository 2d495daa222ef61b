// -----------------------------------------------------------------------------
// Exporter Self-Metrics
// -----------------------------------------------------------------------------
//
// This package defines the Prometheus instruments describing the exporter
// itself. They are registered on the default registry, which is also what
// the collector renders, so a scrape of the telemetry path reports on the
// scrapes that came before it.
//
// Metrics:
//   - RequestsTotal: request volume per route and status code
//   - RequestDuration: latency per route
//   - CollectionFailures: failed renders of the metrics document
//   - BuildInfo: constant 1 labeled with build metadata
//
// -----------------------------------------------------------------------------

package metrics

import (
	"github.com/afreidah/jail-exporter/internal/version"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "jail_exporter"

// -----------------------------------------------------------------------------
// Metric Definitions
// -----------------------------------------------------------------------------

var (
	// RequestsTotal counts HTTP requests by route and status code.
	// Labels: handler (index, metrics, other), code (200, 404, 500, ...)
	//
	// Example Queries:
	//   - rate(jail_exporter_http_requests_total{handler="metrics"}[5m])
	//   - sum(jail_exporter_http_requests_total{code="500"})
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by handler and status code",
		},
		[]string{"handler", "code"},
	)

	// RequestDuration measures how long each request takes to serve.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"handler"},
	)

	// CollectionFailures counts renders of the metrics document that
	// failed and produced a 5xx response.
	CollectionFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "collection_failures_total",
			Help:      "Total number of failed metric collections",
		},
	)

	// BuildInfo is always 1; the labels carry the build metadata.
	BuildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "build_info",
			Help:      "Build information of the running jail-exporter (always 1)",
		},
		[]string{"version", "commit", "build_time"},
	)
)

// -----------------------------------------------------------------------------
// Metric Registration
// -----------------------------------------------------------------------------

// init registers all metrics with the default registry. MustRegister panics
// on a definition error, which surfaces at startup.
func init() {
	prometheus.MustRegister(RequestsTotal)
	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(CollectionFailures)
	prometheus.MustRegister(BuildInfo)

	BuildInfo.WithLabelValues(version.Version, version.Commit, version.BuildTime).Set(1)
}
