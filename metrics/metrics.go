// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	OutcomeAccepted = "accepted"
	OutcomeRejected = "rejected"

	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
)

var (
	// ResponsesTotal counts submissions by whether they passed validation
	ResponsesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "formify_responses_total",
		Help: "Total response submissions by outcome",
	}, []string{"outcome"})

	// FormsSavedTotal counts form definition writes
	FormsSavedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "formify_forms_saved_total",
		Help: "Total form definition writes by operation",
	}, []string{"op"})

	// HTTPRequestDuration tracks request latency
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "formify_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~2s
	}, []string{"method", "code"})
)

func ResponseSubmitted(accepted bool) {
	if accepted {
		ResponsesTotal.WithLabelValues(OutcomeAccepted).Inc()
	} else {
		ResponsesTotal.WithLabelValues(OutcomeRejected).Inc()
	}
}

func FormSaved(op string) {
	FormsSavedTotal.WithLabelValues(op).Inc()
}

func ObserveRequest(method string, code int, d time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, strconv.Itoa(code)).Observe(d.Seconds())
}
