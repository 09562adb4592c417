package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters and gauges for the auto-record daemon.
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal prometheus.Counter
	errorsTotal   prometheus.Counter

	eventsTotal    *prometheus.CounterVec
	commandsIssued *prometheus.CounterVec
	commandsNoop   *prometheus.CounterVec
	commandsFailed *prometheus.CounterVec

	connectAttempts prometheus.Counter
	connectFailures prometheus.Counter

	autoStopsStarted   prometheus.Counter
	autoStopsCancelled prometheus.Counter
	autoStopsCompleted prometheus.Counter

	connectionStatus prometheus.Gauge
	streamKbits      prometheus.Gauge
	streamDropped    prometheus.Gauge
}

// New creates and registers Prometheus metrics for the daemon.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		requestsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "autorec_requests_total",
			Help: "Total number of HTTP requests received",
		}),
		errorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "autorec_errors_total",
			Help: "Total number of HTTP responses with error status (4xx or 5xx)",
		}),
		eventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "autorec_events_total",
			Help: "Game events received, by kind",
		}, []string{"kind"}),
		commandsIssued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "autorec_commands_issued_total",
			Help: "Backend commands issued, by command",
		}, []string{"command"}),
		commandsNoop: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "autorec_commands_noop_total",
			Help: "Commands skipped because their precondition was not met",
		}, []string{"command"}),
		commandsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "autorec_commands_failed_total",
			Help: "Commands that reached the backend and failed",
		}, []string{"command"}),
		connectAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "autorec_connect_attempts_total",
			Help: "Backend connect attempts started",
		}),
		connectFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "autorec_connect_failures_total",
			Help: "Backend connect attempts that failed",
		}),
		autoStopsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "autorec_auto_stops_started_total",
			Help: "Delayed-stop sequences armed",
		}),
		autoStopsCancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "autorec_auto_stops_cancelled_total",
			Help: "Delayed-stop sequences cancelled by resumed combat",
		}),
		autoStopsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "autorec_auto_stops_completed_total",
			Help: "Delayed-stop sequences that ran to completion",
		}),
		connectionStatus: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "autorec_connection_status",
			Help: "Backend connection status (0 disconnected, 1 connecting, 2 connected, 3 failed)",
		}),
		streamKbits: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "autorec_stream_kbits_per_sec",
			Help: "Last reported streaming bitrate",
		}),
		streamDropped: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "autorec_stream_dropped_frames",
			Help: "Last reported cumulative dropped frame count",
		}),
	}

	registry.MustRegister(
		m.requestsTotal,
		m.errorsTotal,
		m.eventsTotal,
		m.commandsIssued,
		m.commandsNoop,
		m.commandsFailed,
		m.connectAttempts,
		m.connectFailures,
		m.autoStopsStarted,
		m.autoStopsCancelled,
		m.autoStopsCompleted,
		m.connectionStatus,
		m.streamKbits,
		m.streamDropped,
	)

	return m
}

// IncRequests increments the total request counter.
func (m *Metrics) IncRequests() {
	m.requestsTotal.Inc()
}

// IncErrors increments the errors counter.
func (m *Metrics) IncErrors() {
	m.errorsTotal.Inc()
}

// IncEvent increments the event counter for the given kind.
func (m *Metrics) IncEvent(kind string) {
	m.eventsTotal.WithLabelValues(kind).Inc()
}

// IncCommandIssued increments the issued counter for the given command.
func (m *Metrics) IncCommandIssued(command string) {
	m.commandsIssued.WithLabelValues(command).Inc()
}

// IncCommandNoop increments the precondition-not-met counter.
func (m *Metrics) IncCommandNoop(command string) {
	m.commandsNoop.WithLabelValues(command).Inc()
}

// IncCommandFailed increments the failure counter for the given command.
func (m *Metrics) IncCommandFailed(command string) {
	m.commandsFailed.WithLabelValues(command).Inc()
}

// IncConnectAttempts increments the connect attempt counter.
func (m *Metrics) IncConnectAttempts() {
	m.connectAttempts.Inc()
}

// IncConnectFailures increments the connect failure counter.
func (m *Metrics) IncConnectFailures() {
	m.connectFailures.Inc()
}

// IncAutoStopsStarted increments the armed delayed-stop counter.
func (m *Metrics) IncAutoStopsStarted() {
	m.autoStopsStarted.Inc()
}

// IncAutoStopsCancelled increments the cancelled delayed-stop counter.
func (m *Metrics) IncAutoStopsCancelled() {
	m.autoStopsCancelled.Inc()
}

// IncAutoStopsCompleted increments the completed delayed-stop counter.
func (m *Metrics) IncAutoStopsCompleted() {
	m.autoStopsCompleted.Inc()
}

// SetConnectionStatus sets the connection status gauge.
func (m *Metrics) SetConnectionStatus(status int) {
	m.connectionStatus.Set(float64(status))
}

// ObserveStreamStats records the latest streaming health report.
func (m *Metrics) ObserveStreamStats(kbitsPerSec, droppedFrames int) {
	m.streamKbits.Set(float64(kbitsPerSec))
	m.streamDropped.Set(float64(droppedFrames))
}

// Handler returns an http.Handler that serves Prometheus metrics.
// updateGauges is called before each scrape to refresh gauge values (e.g. connection status).
func (m *Metrics) Handler(updateGauges func()) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if updateGauges != nil {
			updateGauges()
		}
		promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}
