package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "water_monitor_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "water_monitor_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "route"},
	)

	// Ingest metrics
	ReadingsIngestedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "water_monitor_readings_ingested_total",
			Help: "Readings processed by the ingest pipeline",
		},
		[]string{"source", "status"}, // status: accepted, rejected, failed
	)

	IngestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "water_monitor_ingest_duration_seconds",
			Help:    "Time spent evaluating a single reading",
			Buckets: prometheus.DefBuckets,
		},
	)

	WaterLevel = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "water_monitor_water_level",
			Help: "Most recently ingested water level",
		},
	)

	IngestQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "water_monitor_ingest_queue_depth",
			Help: "Readings waiting in the ingest queue",
		},
	)

	// Alert metrics
	AlertsCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "water_monitor_alerts_created_total",
			Help: "Alerts persisted, by type",
		},
		[]string{"type"},
	)

	AlertsSuppressedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "water_monitor_alerts_suppressed_total",
			Help: "Alerts skipped because an open alert is inside its cool-down",
		},
		[]string{"type"},
	)

	// Pump metrics
	PumpTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "water_monitor_pump_transitions_total",
			Help: "Pump state transitions",
		},
		[]string{"direction", "activated_by"}, // direction: on, off
	)

	PumpActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "water_monitor_pump_active",
			Help: "1 when the pump is running",
		},
	)

	// Notification metrics
	BroadcastsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "water_monitor_broadcasts_total",
			Help: "Realtime events published",
		},
		[]string{"event", "delivered"},
	)

	WebsocketClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "water_monitor_websocket_clients",
			Help: "Connected realtime subscribers",
		},
	)

	WebsocketDropsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "water_monitor_websocket_drops_total",
			Help: "Subscribers disconnected because their send queue was full",
		},
	)

	EmailsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "water_monitor_emails_total",
			Help: "Notification e-mails by outcome",
		},
		[]string{"status"}, // status: sent, failed, dropped
	)

	// Source metrics
	SourceMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "water_monitor_source_messages_total",
			Help: "Messages consumed from external reading sources",
		},
		[]string{"source", "status"},
	)
)

// BoolLabel renders a boolean as a label value.
func BoolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
