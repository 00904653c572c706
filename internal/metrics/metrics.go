// Package metrics registers and exposes Prometheus instrumentation for the
// task processor, API gateway, and rate limiter.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	tasksProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lingoshop",
			Name:      "tasks_processed_total",
			Help:      "Tasks driven to a terminal state, by type and outcome.",
		},
		[]string{"type", "status"},
	)

	tasksRecovered = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lingoshop",
			Name:      "tasks_recovered_total",
			Help:      "Tasks repaired at startup, by recovery action.",
		},
		[]string{"action"},
	)

	gatewayRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lingoshop",
			Name:      "gateway_requests_total",
			Help:      "Storefront GraphQL requests, by outcome.",
		},
		[]string{"outcome"},
	)

	gatewayRetries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "lingoshop",
			Name:      "gateway_throttle_retries_total",
			Help:      "Gateway requests re-enqueued after a throttled response.",
		},
	)

	rateLimitWaits = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "lingoshop",
			Name:      "rate_limit_wait_seconds",
			Help:      "Time callers spent waiting for an AI provider window.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60},
		},
		[]string{"provider"},
	)

	syncPhases = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lingoshop",
			Name:      "sync_phases_total",
			Help:      "Sync phases executed, by phase and outcome.",
		},
		[]string{"phase", "outcome"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			tasksProcessed,
			tasksRecovered,
			gatewayRequests,
			gatewayRetries,
			rateLimitWaits,
			syncPhases,
		)
	})
}

// IncTaskProcessed records a task reaching a terminal status.
func IncTaskProcessed(taskType, status string) {
	tasksProcessed.WithLabelValues(taskType, status).Inc()
}

// IncTaskRecovered records a startup recovery action ("requeued" or "failed").
func IncTaskRecovered(action string) {
	tasksRecovered.WithLabelValues(action).Inc()
}

// IncGatewayRequest records a gateway request outcome ("ok", "throttled", "error").
func IncGatewayRequest(outcome string) {
	gatewayRequests.WithLabelValues(outcome).Inc()
}

// IncGatewayRetry records a throttled request going back on the queue.
func IncGatewayRetry() {
	gatewayRetries.Inc()
}

// ObserveRateLimitWait records time spent waiting on a provider window.
func ObserveRateLimitWait(provider string, d time.Duration) {
	rateLimitWaits.WithLabelValues(provider).Observe(d.Seconds())
}

// IncSyncPhase records a sync phase outcome ("ok" or "error").
func IncSyncPhase(phase, outcome string) {
	syncPhases.WithLabelValues(phase, outcome).Inc()
}
