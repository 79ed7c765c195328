// Package observability holds the Prometheus metrics for the search and
// reconciliation paths.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics.
type Metrics struct {
	registry *prometheus.Registry

	// Index metrics
	IndexUpsertsTotal prometheus.Counter
	IndexErrorsTotal  prometheus.Counter

	// Search metrics
	SearchQueriesTotal  *prometheus.CounterVec
	SearchHydrationGaps prometheus.Counter

	// Reconciliation job metrics. The batch mapper only promises
	// at-least-once delivery, so retry and failure counts live here rather
	// than being assumed from any framework.
	JobEntitiesVisitedTotal *prometheus.CounterVec
	JobBatchRetriesTotal    *prometheus.CounterVec
	JobBatchFailuresTotal   *prometheus.CounterVec
	JobDurationSeconds      *prometheus.HistogramVec
}

// NewMetrics creates and registers all metrics against a fresh registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,

		IndexUpsertsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pastebin_index_upserts_total",
			Help: "Total number of documents written to the search index",
		}),
		IndexErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pastebin_index_errors_total",
			Help: "Total number of failed index writes",
		}),

		SearchQueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pastebin_search_queries_total",
				Help: "Total number of search queries by outcome",
			},
			[]string{"status"},
		),
		SearchHydrationGaps: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pastebin_search_hydration_gaps_total",
			Help: "Search hits whose paste no longer exists in the primary store",
		}),

		JobEntitiesVisitedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pastebin_job_entities_visited_total",
				Help: "Entities visited by reconciliation jobs",
			},
			[]string{"job"},
		),
		JobBatchRetriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pastebin_job_batch_retries_total",
				Help: "Batches retried after a handler failure",
			},
			[]string{"job"},
		),
		JobBatchFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pastebin_job_batch_failures_total",
				Help: "Batches abandoned after exhausting retries",
			},
			[]string{"job"},
		),
		JobDurationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pastebin_job_duration_seconds",
				Help:    "Wall-clock duration of reconciliation job runs",
				Buckets: prometheus.ExponentialBuckets(1, 2, 12),
			},
			[]string{"job"},
		),
	}

	registry.MustRegister(
		m.IndexUpsertsTotal,
		m.IndexErrorsTotal,
		m.SearchQueriesTotal,
		m.SearchHydrationGaps,
		m.JobEntitiesVisitedTotal,
		m.JobBatchRetriesTotal,
		m.JobBatchFailuresTotal,
		m.JobDurationSeconds,
	)

	return m
}

// Handler returns an HTTP handler serving the metrics in Prometheus text
// format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
