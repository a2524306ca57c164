// Package metrics is alertcored's Prometheus surface, grounded on the
// teacher's internal/metrics package: a single struct of promauto-registered
// collectors plus thin increment/observe methods, repointed from
// price-tick/NATS counters to connection, alert, webhook, and NATS
// bridge counters.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/RavaniRoshan/Surya-Solar-sub001/internal/alert"
	"github.com/RavaniRoshan/Surya-Solar-sub001/internal/webhook"
)

// Metrics is the process-wide Prometheus collector set.
type Metrics struct {
	connectionsTotal    prometheus.Counter
	connectionsActive   prometheus.Gauge
	connectionDuration  prometheus.Histogram
	connectionsAccepted prometheus.Counter
	connectionsClosed   prometheus.Counter
	connectionsReaped   prometheus.Counter

	alertsFired      prometheus.Counter
	alertsSuppressed *prometheus.CounterVec
	alertsBySeverity *prometheus.CounterVec
	deliveryRate     prometheus.Histogram

	webhookOutcomes *prometheus.CounterVec

	errorsTotal   prometheus.Counter
	errorsByType  *prometheus.CounterVec
	lastErrorTime prometheus.Gauge

	goroutinesCount prometheus.Gauge
	memoryUsage     prometheus.Gauge
	cpuUsage        prometheus.Gauge

	natsConnectionStatus prometheus.Gauge
	natsReconnects       prometheus.Counter
	natsMessages         prometheus.Counter

	startTime time.Time
}

// New constructs and registers the Metrics collector set.
func New() *Metrics {
	return &Metrics{
		startTime: time.Now(),

		connectionsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "alertcore_connections_total",
			Help: "Total number of push connections accepted",
		}),
		connectionsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "alertcore_connections_active",
			Help: "Number of currently live push connections",
		}),
		connectionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "alertcore_connection_duration_seconds",
			Help:    "Duration of push connections",
			Buckets: prometheus.DefBuckets,
		}),
		connectionsAccepted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "alertcore_connections_accepted_total",
			Help: "Total number of accepted push connections",
		}),
		connectionsClosed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "alertcore_connections_closed_total",
			Help: "Total number of closed push connections",
		}),
		connectionsReaped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "alertcore_connections_reaped_total",
			Help: "Total number of connections evicted by the idle reaper",
		}),

		alertsFired: promauto.NewCounter(prometheus.CounterOpts{
			Name: "alertcore_alerts_fired_total",
			Help: "Total number of predictions that resulted in a fired alert",
		}),
		alertsSuppressed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "alertcore_alerts_suppressed_total",
			Help: "Total number of predictions suppressed by the hysteresis rule, by reason",
		}, []string{"reason"}),
		alertsBySeverity: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "alertcore_alerts_by_severity_total",
			Help: "Total number of fired alerts by severity",
		}, []string{"severity"}),
		deliveryRate: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "alertcore_delivery_rate",
			Help:    "Per-alert delivered/target ratio, observed when the delivery record expires",
			Buckets: []float64{0, 0.25, 0.5, 0.75, 0.9, 1.0},
		}),

		webhookOutcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "alertcore_webhook_outcomes_total",
			Help: "Total number of webhook delivery attempts by tier and outcome",
		}, []string{"tier", "outcome"}),

		errorsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "alertcore_errors_total",
			Help: "Total number of errors",
		}),
		errorsByType: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "alertcore_errors_by_type_total",
			Help: "Total number of errors by type",
		}, []string{"type"}),
		lastErrorTime: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "alertcore_last_error_timestamp",
			Help: "Timestamp of the last recorded error",
		}),

		goroutinesCount: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "alertcore_goroutines_count",
			Help: "Number of goroutines",
		}),
		memoryUsage: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "alertcore_memory_usage_bytes",
			Help: "Heap memory usage in bytes",
		}),
		cpuUsage: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "alertcore_cpu_usage_percent",
			Help: "CPU usage percentage",
		}),

		natsConnectionStatus: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "alertcore_nats_connection_status",
			Help: "NATS connection status (1=connected, 0=disconnected)",
		}),
		natsReconnects: promauto.NewCounter(prometheus.CounterOpts{
			Name: "alertcore_nats_reconnects_total",
			Help: "Total number of NATS reconnections",
		}),
		natsMessages: promauto.NewCounter(prometheus.CounterOpts{
			Name: "alertcore_nats_messages_total",
			Help: "Total number of prediction messages consumed from NATS",
		}),
	}
}

// IncrementConnections records a newly accepted connection.
func (m *Metrics) IncrementConnections() {
	m.connectionsTotal.Inc()
	m.connectionsAccepted.Inc()
	m.connectionsActive.Inc()
}

// DecrementConnections records a connection closing, with its observed duration.
func (m *Metrics) DecrementConnections(duration time.Duration) {
	m.connectionsClosed.Inc()
	m.connectionsActive.Dec()
	m.connectionDuration.Observe(duration.Seconds())
}

// RecordReap records a reaper-initiated eviction.
func (m *Metrics) RecordReap() {
	m.connectionsReaped.Inc()
}

// RecordAlertFired records a fired alert's severity.
func (m *Metrics) RecordAlertFired(sev alert.Severity) {
	m.alertsFired.Inc()
	m.alertsBySeverity.WithLabelValues(string(sev)).Inc()
}

// RecordAlertSuppressed records a prediction that did not fire, by reason.
func (m *Metrics) RecordAlertSuppressed(reason string) {
	m.alertsSuppressed.WithLabelValues(reason).Inc()
}

// RecordDeliveryRate records an alert's delivered/target ratio.
func (m *Metrics) RecordDeliveryRate(rate float64) {
	m.deliveryRate.Observe(rate)
}

// ObserveWebhook implements webhook.Recorder.
func (m *Metrics) ObserveWebhook(tier alert.Tier, outcome webhook.Outcome) {
	m.webhookOutcomes.WithLabelValues(string(tier), string(outcome)).Inc()
}

// RecordError records a categorized error occurrence.
func (m *Metrics) RecordError(errorType string) {
	m.errorsTotal.Inc()
	m.errorsByType.WithLabelValues(errorType).Inc()
	m.lastErrorTime.SetToCurrentTime()
}

// UpdateGoroutinesCount sets the current goroutine gauge.
func (m *Metrics) UpdateGoroutinesCount(count int) {
	m.goroutinesCount.Set(float64(count))
}

// UpdateMemoryUsage sets the current heap usage gauge.
func (m *Metrics) UpdateMemoryUsage(bytes uint64) {
	m.memoryUsage.Set(float64(bytes))
}

// UpdateCPUUsage sets the current CPU usage gauge.
func (m *Metrics) UpdateCPUUsage(percent float64) {
	m.cpuUsage.Set(percent)
}

// SetNATSConnected reflects NATS connection state.
func (m *Metrics) SetNATSConnected(connected bool) {
	if connected {
		m.natsConnectionStatus.Set(1)
	} else {
		m.natsConnectionStatus.Set(0)
	}
}

// IncrementNATSReconnects records a NATS reconnection event.
func (m *Metrics) IncrementNATSReconnects() {
	m.natsReconnects.Inc()
}

// IncrementNATSMessages records a consumed NATS prediction message.
func (m *Metrics) IncrementNATSMessages() {
	m.natsMessages.Inc()
}

// GetUptime returns the process uptime since Metrics construction.
func (m *Metrics) GetUptime() time.Duration {
	return time.Since(m.startTime)
}
