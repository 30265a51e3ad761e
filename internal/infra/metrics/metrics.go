// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_api_http_requests_total",
			Help: "HTTP requests served, by method, route pattern and status.",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_api_http_request_duration_seconds",
			Help:    "HTTP request latency, by method and route pattern.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// MediaInconsistencies counts detected orphans. Any increase needs an
	// operator or a reconcile run.
	MediaInconsistencies = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_api_inconsistencies_total",
			Help: "Detected mismatches between media rows and stored objects, by kind.",
		},
		[]string{"kind"},
	)

	MediaCompensations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_api_orphan_compensations_total",
			Help: "Compensating blob deletes after a failed metadata insert, by result.",
		},
		[]string{"result"},
	)

	ReconciledOrphans = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_api_reconciled_orphans_total",
			Help: "Ledger entries processed by the reconcile job, by kind and outcome.",
		},
		[]string{"kind", "outcome"},
	)
)

func Handler() http.Handler {
	return promhttp.Handler()
}
