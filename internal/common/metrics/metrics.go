// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TransitionsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "verification_transitions_completed_total",
			Help: "Total number of workflow transitions completed",
		},
		[]string{"transition"},
	)

	TransitionsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "verification_transitions_failed_total",
			Help: "Total number of workflow transitions failed",
		},
		[]string{"transition", "error_code"},
	)

	EmailSendFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "verification_email_send_failures_total",
			Help: "Best-effort email dispatches that failed after the state transition committed",
		},
		[]string{"kind"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "verification_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "verification_http_request_duration_seconds",
			Help:    "Duration of HTTP request handling in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)
