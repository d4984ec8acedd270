// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "attendr_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		},
		[]string{"route", "method", "status_code"},
	)

	CardsGenerated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attendr_cards_generated_total",
			Help: "ID cards requested, by result",
		},
		[]string{"result"},
	)

	AttendanceEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attendr_attendance_events_total",
			Help: "Attendance scans, by event",
		},
		[]string{"event"},
	)

	NotificationsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attendr_notifications_total",
			Help: "Parent notifications, by event and outcome",
		},
		[]string{"event", "outcome"},
	)

	WebhookDeliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attendr_webhook_deliveries_total",
			Help: "Attendance webhook deliveries, by outcome",
		},
		[]string{"outcome"},
	)

	CardCacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attendr_card_cache_lookups_total",
			Help: "Rendered card cache lookups, by result",
		},
		[]string{"result"},
	)
)

var registry = prometheus.NewRegistry()

func init() {
	registry.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		HTTPRequestDuration,
		CardsGenerated,
		AttendanceEvents,
		NotificationsSent,
		WebhookDeliveries,
		CardCacheLookups,
	)
}

// Handler serves the collectors in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
