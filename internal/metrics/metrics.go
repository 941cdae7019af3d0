// Package metrics exposes Prometheus instrumentation for the chat agent:
// gateway connection state, acknowledgement latency and message throughput.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// GatewayConnected is 1 while the socket to the chat gateway is open.
	GatewayConnected = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chatdesk_gateway_connected",
		Help: "Whether the chat gateway socket is connected",
	})

	// ReconnectAttempts counts dial attempts after the first one.
	ReconnectAttempts = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chatdesk_gateway_reconnect_attempts_total",
		Help: "Total number of gateway reconnect attempts",
	})

	// AckLatency records the time between a request and its acknowledgement,
	// labeled by request event.
	AckLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "chatdesk_ack_latency_seconds",
		Help:    "Gateway acknowledgement latency in seconds",
		Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
	}, []string{"event"})

	// AckFailures counts requests that did not get an acknowledgement,
	// labeled by reason: "timeout", "connection_lost" or "cancelled".
	AckFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chatdesk_ack_failures_total",
		Help: "Total number of requests without acknowledgement",
	}, []string{"event", "reason"})

	// MessagesTotal counts chat messages, labeled by type: "sent",
	// "received", "failed" or "duplicate".
	MessagesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chatdesk_messages_total",
		Help: "Total number of chat messages processed",
	}, []string{"type"})

	// PushEvents counts events pushed by the gateway, labeled by event.
	PushEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chatdesk_push_events_total",
		Help: "Total number of gateway push events",
	}, []string{"event"})

	// RESTRequests counts REST calls, labeled by operation and outcome.
	RESTRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chatdesk_rest_requests_total",
		Help: "Total number of REST API calls",
	}, []string{"op", "outcome"})

	// PendingActions tracks optimistic actions awaiting confirmation.
	PendingActions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chatdesk_pending_actions",
		Help: "Current number of optimistic actions awaiting confirmation",
	})
)

func init() {
	prometheus.MustRegister(
		GatewayConnected,
		ReconnectAttempts,
		AckLatency,
		AckFailures,
		MessagesTotal,
		PushEvents,
		RESTRequests,
		PendingActions,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
