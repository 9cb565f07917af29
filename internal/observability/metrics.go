package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce        sync.Once
	httpRequestsTotal   *prometheus.CounterVec
	httpLatencySeconds  *prometheus.HistogramVec
	httpErrorsTotal     *prometheus.CounterVec
	messagesSentTotal   *prometheus.CounterVec
	offersTotal         *prometheus.CounterVec
	realtimeConnections prometheus.Counter
	realtimeEventsTotal *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used by the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "market_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "market_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		httpErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "market_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		messagesSentTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "market_messages_sent_total",
			Help: "Total number of conversation entries persisted, by type.",
		}, []string{"type"})

		offersTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "market_offers_total",
			Help: "Total number of offer operations, by action.",
		}, []string{"action"})

		realtimeConnections = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "market_realtime_connections_total",
			Help: "Total number of accepted realtime websocket connections.",
		})

		realtimeEventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "market_realtime_events_total",
			Help: "Total number of realtime events fanned out, by event name.",
		}, []string{"event"})

		prometheus.MustRegister(
			httpRequestsTotal,
			httpLatencySeconds,
			httpErrorsTotal,
			messagesSentTotal,
			offersTotal,
			realtimeConnections,
			realtimeEventsTotal,
		)
	})
}

// HTTPRequests exposes the counter for API requests.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the latency histogram for API requests.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// HTTPErrors exposes the counter for API error responses.
func HTTPErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return httpErrorsTotal
}

// MessagesSentTotal exposes the counter for persisted conversation entries.
func MessagesSentTotal() *prometheus.CounterVec {
	RegisterMetrics()
	return messagesSentTotal
}

// OffersTotal exposes the counter for offer operations.
func OffersTotal() *prometheus.CounterVec {
	RegisterMetrics()
	return offersTotal
}

// RealtimeConnectionsTotal exposes the websocket connection counter.
func RealtimeConnectionsTotal() prometheus.Counter {
	RegisterMetrics()
	return realtimeConnections
}

// RealtimeEventsTotal exposes the realtime fan-out counter.
func RealtimeEventsTotal() *prometheus.CounterVec {
	RegisterMetrics()
	return realtimeEventsTotal
}
