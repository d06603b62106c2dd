// Package metrics registers the service's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequests counts API requests by method, route and status class
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dealdesk_http_requests_total",
		Help: "HTTP requests by method, route and status class",
	}, []string{"method", "route", "status"})

	// HTTPDuration observes request latency by route
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dealdesk_http_request_duration_seconds",
		Help:    "HTTP request latency by route",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})

	// JobRuns counts scheduler job executions by job name and result
	JobRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dealdesk_job_runs_total",
		Help: "Scheduler job executions by job and result",
	}, []string{"job", "result"})

	// EvaluatorCalls counts AI evaluator calls by operation and result
	EvaluatorCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dealdesk_evaluator_calls_total",
		Help: "AI evaluator calls by operation and result",
	}, []string{"operation", "result"})

	// StageTransitions counts deal stage transitions by target stage
	StageTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dealdesk_stage_transitions_total",
		Help: "Deal stage transitions by target stage",
	}, []string{"stage"})
)
