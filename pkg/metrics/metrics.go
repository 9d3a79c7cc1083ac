package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "banter_ws_connections",
		Help: "Currently open WebSocket connections.",
	})

	MessagesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "banter_messages_sent_total",
		Help: "Messages persisted and fanned out.",
	})

	EventsDelivered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "banter_events_delivered_total",
		Help: "Events written to client send buffers.",
	})

	EventsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "banter_events_dropped_total",
		Help: "Events dropped because a client send buffer was full.",
	})
)

// Handler returns an http.Handler for Prometheus scraping.
func Handler() http.Handler {
	return promhttp.Handler()
}
