// Package metrics holds the Prometheus instruments for the booking flow.
// All collectors are registered with the global registry, so importing this
// package in main.go is enough to expose them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Label values shared by several collectors.
const (
	SourceAPI  = "api"
	SourceForm = "form"
	SourceCLI  = "cli"

	RecipientAdmin    = "admin"
	RecipientCustomer = "customer"

	OutcomeSent   = "sent"
	OutcomeFailed = "failed"
	OutcomeHit    = "hit"
	OutcomeMiss   = "miss"
	OutcomeError  = "error"
)

var (
	BookingsReceived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_requests_total",
			Help: "Booking requests that passed validation, by source.",
		}, []string{"source"})

	BookingsRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_rejected_total",
			Help: "Booking requests refused before dispatch, by reason.",
		}, []string{"reason"})

	NotificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_notifications_total",
			Help: "Outbound booking emails, by recipient and outcome.",
		}, []string{"recipient", "outcome"})

	PlaceLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "place_lookups_total",
			Help: "Address lookups, by operation and outcome.",
		}, []string{"op", "outcome"})

	SubmitSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "booking_submit_seconds",
			Help:    "Wall time of one submission round trip, by outcome.",
			Buckets: prometheus.DefBuckets,
		}, []string{"outcome"})

	RateLimited = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "http_rate_limited_total",
			Help: "Requests refused with 429 by the per-IP limiter.",
		})
)

func init() {
	prometheus.MustRegister(
		BookingsReceived,
		BookingsRejected,
		NotificationsTotal,
		PlaceLookups,
		SubmitSeconds,
		RateLimited,
	)
}
