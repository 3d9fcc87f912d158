package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "tempest_monitor"

// Metrics holds the Prometheus counters, histograms, and gauges for the monitor.
type Metrics struct {
	PacketsReceived prometheus.Counter
	ReadErrors      prometheus.Counter
	DecodeErrors    *prometheus.CounterVec // labels: reason
	RecordsDecoded  *prometheus.CounterVec // labels: type
	EvaluateErrors  prometheus.Counter
	MonitorRunning  prometheus.Gauge

	PacketProcessingDuration prometheus.Histogram

	// Alerting metrics.
	EventsEmitted  *prometheus.CounterVec // labels: event
	Notifications  *prometheus.CounterVec // labels: sink, outcome={sent,failed}
	DevicesTracked prometheus.Gauge
	StateSaves     *prometheus.CounterVec // labels: outcome={success,error}

	TelemetryErrors prometheus.Counter
}

// NewMetrics creates and registers all monitor metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		PacketsReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "packets_received_total",
			Help:      "Total UDP datagrams read from the hub.",
		}),
		ReadErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "read_errors_total",
			Help:      "Socket read failures other than timeouts.",
		}),
		DecodeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decode_errors_total",
			Help:      "Datagrams dropped by the decoder, by reason.",
		}, []string{"reason"}),
		RecordsDecoded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_decoded_total",
			Help:      "Decoded records by packet type.",
		}, []string{"type"}),
		EvaluateErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evaluate_errors_total",
			Help:      "Records the alert engine rejected as malformed.",
		}),
		MonitorRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "monitor_running",
			Help:      "1 when the monitor loop is active, 0 when shut down.",
		}),
		PacketProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "packet_processing_duration_seconds",
			Help:      "Time from datagram receipt to notification handoff.",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
		EventsEmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Device events produced by the alert engine and offline scanner.",
		}, []string{"event"}),
		Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Notification deliveries by sink and outcome.",
		}, []string{"sink", "outcome"}),
		DevicesTracked: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "devices_tracked",
			Help:      "Devices currently held in the registry.",
		}),
		StateSaves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "state_saves_total",
			Help:      "Status file writes by outcome.",
		}, []string{"outcome"}),
		TelemetryErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "telemetry_errors_total",
			Help:      "Asynchronous InfluxDB write failures.",
		}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.PacketsReceived,
		m.ReadErrors,
		m.DecodeErrors,
		m.RecordsDecoded,
		m.EvaluateErrors,
		m.MonitorRunning,
		m.PacketProcessingDuration,
		m.EventsEmitted,
		m.Notifications,
		m.DevicesTracked,
		m.StateSaves,
		m.TelemetryErrors,
	}
}
