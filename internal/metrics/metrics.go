// Package metrics holds the Prometheus collectors for coachdesk and an in-process
// ring buffer of recent request and query timings for the admin perf endpoint.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// InvitationsSent counts send attempts by outcome kind ("" on success is reported as "ok").
	InvitationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coachdesk_invitations_sent_total",
			Help: "Invitation send attempts by outcome",
		},
		[]string{"outcome"},
	)

	// InvitationValidations counts token validations by outcome.
	InvitationValidations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coachdesk_invitation_validations_total",
			Help: "Invitation token validations by outcome",
		},
		[]string{"outcome"},
	)

	// InvitationAcceptances counts acceptance attempts by outcome.
	InvitationAcceptances = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coachdesk_invitation_acceptances_total",
			Help: "Invitation acceptance attempts by outcome",
		},
		[]string{"outcome"},
	)

	// InvitationsExpired counts invitations flipped to expired, lazily or by the sweep.
	InvitationsExpired = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coachdesk_invitations_expired_total",
			Help: "Invitations marked expired",
		},
		[]string{"source"},
	)

	// OutboxDeliveries counts outbox delivery attempts.
	OutboxDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coachdesk_outbox_deliveries_total",
			Help: "Outbox delivery attempts by action type and result",
		},
		[]string{"action_type", "result"},
	)

	// EmailBreakerState is 0 closed, 1 half-open, 2 open.
	EmailBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "coachdesk_email_breaker_state",
			Help: "Email provider circuit breaker state (0 closed, 1 half-open, 2 open)",
		},
	)

	// HTTPRequestDuration tracks handler latency by route pattern.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "coachdesk_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"method", "route", "status"},
	)

	// DBQueryDuration tracks database call latency.
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "coachdesk_db_query_duration_seconds",
			Help:    "Database call duration in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		},
		[]string{"op"},
	)

	// RateLimited counts requests rejected by the rate limiter.
	RateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "coachdesk_http_rate_limited_total",
			Help: "Requests rejected by the per-client rate limiter",
		},
	)
)

// Outcome turns an empty error kind into "ok" so success has a label value.
func Outcome(kind string) string {
	if kind == "" {
		return "ok"
	}
	return kind
}

// ObserveQuery records a database call.
func ObserveQuery(op string, d time.Duration) {
	DBQueryDuration.WithLabelValues(op).Observe(d.Seconds())
}
