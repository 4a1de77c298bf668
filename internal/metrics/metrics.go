package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal counts handled HTTP requests by route pattern and
	// status class ("2xx", "3xx", ...).
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "confdesk_http_requests_total",
		Help: "Handled HTTP requests by route and status class",
	}, []string{"route", "status"})

	// ConferenceOps counts conference store operations by operation and
	// outcome ("ok", "validation_failed", "not_found", "error").
	ConferenceOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "confdesk_conference_ops_total",
		Help: "Conference operations by type and outcome",
	}, []string{"op", "outcome"})

	// LoginAttempts counts login attempts by outcome ("ok", "failed").
	LoginAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "confdesk_login_attempts_total",
		Help: "Login attempts by outcome",
	}, []string{"outcome"})
)
