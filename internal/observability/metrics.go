package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PollCycles = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "mototaxi", Name: "poll_cycles_total", Help: "Fetch cycles executed, by poller subject"},
		[]string{"subject"},
	)
	PollFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "mototaxi", Name: "poll_failures_total", Help: "Fetches that failed and were skipped"},
		[]string{"subject"},
	)
	StaleDrops = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "mototaxi", Name: "poll_stale_drops_total", Help: "Fetched snapshots discarded for arriving out of order"},
		[]string{"subject"},
	)
	TransitionsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "mototaxi", Name: "transitions_sent_total", Help: "Transition commands issued, by target status"},
		[]string{"target"},
	)
	TransitionsRejected = promauto.NewCounter(
		prometheus.CounterOpts{Namespace: "mototaxi", Name: "transitions_rejected_total", Help: "Transition commands the backend refused"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "mototaxi", Name: "http_requests_total", Help: "Total HTTP requests handled by the sandbox"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mototaxi",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
