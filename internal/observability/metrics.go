package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	// Realtime metrics
	WebSocketConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections_active",
			Help: "Number of active WebSocket connections",
		},
	)

	RoomSubscriptionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_room_subscriptions_active",
			Help: "Number of active chat room memberships across all connections",
		},
	)

	ChatUpdatesEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_updates_emitted_total",
			Help: "Total number of chatUpdate events emitted",
		},
		[]string{"scope", "type"},
	)

	RelayEnvelopes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_relay_envelopes_total",
			Help: "Envelopes exchanged with the cross-instance relay",
		},
		[]string{"backend", "direction"},
	)

	// Store metrics
	StoreOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "store_operation_duration_seconds",
			Help:    "Chat store operation latency in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5},
		},
		[]string{"backend", "operation"},
	)
)

// ObserveStore records the latency of a store operation started at start.
//
//	defer observability.ObserveStore("postgres", "append_message", time.Now())
func ObserveStore(backend, operation string, start time.Time) {
	StoreOperationDuration.WithLabelValues(backend, operation).Observe(time.Since(start).Seconds())
}
