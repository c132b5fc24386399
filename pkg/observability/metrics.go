// Package observability exposes prometheus instrumentation for repository
// operations. Counters are registered on the default registry; embedding
// applications can scrape them through their own /metrics endpoint.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RepositoryRequests counts repository operations by kind and outcome.
	RepositoryRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "htrmopo_repository_requests_total",
			Help: "Total repository operations performed",
		},
		[]string{"operation", "status"},
	)

	// CacheHits counts cache lookups that were served locally.
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "htrmopo_cache_hits_total",
			Help: "Total cache lookups satisfied without a refetch",
		},
		[]string{"kind"},
	)

	// CacheMisses counts cache lookups that required a fetch.
	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "htrmopo_cache_misses_total",
			Help: "Total cache lookups that fell through to the repository",
		},
		[]string{"kind"},
	)

	// BytesDownloaded counts octets received for model distribution files.
	BytesDownloaded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "htrmopo_download_bytes_total",
			Help: "Total octets downloaded for model files",
		},
	)

	// BytesUploaded counts octets pushed to the deposition bucket.
	BytesUploaded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "htrmopo_upload_bytes_total",
			Help: "Total octets uploaded to depositions",
		},
	)
)

// RecordOperation increments the operation counter with a success/error status.
func RecordOperation(operation string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	RepositoryRequests.WithLabelValues(operation, status).Inc()
}
