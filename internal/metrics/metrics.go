// Package metrics registers and exposes Prometheus instrumentation for
// the query and insight paths.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the collectors shared between the HTTP handlers.
type Metrics struct {
	BrowseRequests   *prometheus.CounterVec
	InsightsRequests prometheus.Counter
	RequestDuration  *prometheus.HistogramVec
	RowsScanned      prometheus.Counter
	RowsMatched      prometheus.Counter
	ActiveSessions   prometheus.Gauge
}

// New registers the crowdinsight collectors on reg and returns them.
func New(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		BrowseRequests: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "crowdinsight",
			Name:      "browse_requests_total",
			Help:      "Total number of campaign browse requests, partitioned by sort order.",
		}, []string{"sort"}),
		InsightsRequests: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "crowdinsight",
			Name:      "insights_requests_total",
			Help:      "Total number of insight computation requests.",
		}),
		RequestDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "crowdinsight",
			Name:      "request_duration_seconds",
			Help:      "Time spent serving API requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "status"}),
		RowsScanned: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "crowdinsight",
			Name:      "rows_scanned_total",
			Help:      "Total number of dataset rows visited while answering requests.",
		}),
		RowsMatched: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "crowdinsight",
			Name:      "rows_matched_total",
			Help:      "Total number of rows that passed the active filter set.",
		}),
		ActiveSessions: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Namespace: "crowdinsight",
			Name:      "active_sessions",
			Help:      "Number of browse sessions currently tracked.",
		}),
	}
}
