package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MarksRecordedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_marks_recorded_total",
			Help: "Total number of assessment marks recorded",
		},
		[]string{"component_type"},
	)

	GradesComputedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_grades_computed_total",
			Help: "Total number of final grades computed",
		},
		[]string{"grade"},
	)

	LoginAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_login_attempts_total",
			Help: "Total number of login attempts",
		},
		[]string{"outcome"},
	)

	RequestsBlockedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_requests_blocked_total",
			Help: "Requests rejected by the security pipeline",
		},
		[]string{"stage"},
	)

	SecurityEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_security_events_total",
			Help: "Security events emitted",
		},
		[]string{"risk_level"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "portal_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method", "status"},
	)
)
