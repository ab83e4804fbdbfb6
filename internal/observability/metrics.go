package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrors counts Redis errors by operation type.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "localmade_redis_errors_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// StorageOperations counts blob store operations by bucket and outcome.
	StorageOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "localmade_storage_operations_total",
		Help: "Total number of blob storage operations",
	}, []string{"bucket", "operation", "outcome"})

	// DirectoryFanoutFailures counts per-profile post fetches that failed
	// during the public directory aggregation.
	DirectoryFanoutFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "localmade_directory_fanout_failures_total",
		Help: "Per-profile post fetch failures in the public directory aggregate",
	})
)
