package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthAttempts records authentication attempts by result (success|failure).
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskhive_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"result"},
	)

	// TaskOperations counts task lifecycle operations and their outcome (success|denied|error).
	TaskOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskhive_task_operations_total",
			Help: "Total number of task lifecycle operations",
		},
		[]string{"operation", "result"},
	)

	// AuditRecords counts appended audit records by action.
	AuditRecords = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskhive_audit_records_total",
			Help: "Total number of audit records appended",
		},
		[]string{"action"},
	)

	// CacheRequests counts cache lookups by outcome (hit|miss|error).
	CacheRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskhive_cache_requests_total",
			Help: "Total number of cache lookups",
		},
		[]string{"outcome"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "taskhive_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
