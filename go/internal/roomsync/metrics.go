package roomsync

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsCollector defines the interface for collecting sync engine metrics
type MetricsCollector interface {
	RecordWrite(slice string, success bool, duration time.Duration)
	RecordRemoteUpdate(slice string)
	RecordEchoSuppressed(slice string)
	RecordWriteSkipped(slice string)
	RecordSubscriptionError(slice string)
}

// NoOpMetricsCollector is a no-op implementation for when metrics aren't needed
type NoOpMetricsCollector struct{}

func (n *NoOpMetricsCollector) RecordWrite(slice string, success bool, duration time.Duration) {}
func (n *NoOpMetricsCollector) RecordRemoteUpdate(slice string)                                {}
func (n *NoOpMetricsCollector) RecordEchoSuppressed(slice string)                              {}
func (n *NoOpMetricsCollector) RecordWriteSkipped(slice string)                                {}
func (n *NoOpMetricsCollector) RecordSubscriptionError(slice string)                           {}

// PrometheusMetrics implements MetricsCollector using Prometheus
type PrometheusMetrics struct {
	writes             *prometheus.CounterVec
	writeDuration      *prometheus.HistogramVec
	remoteUpdates      *prometheus.CounterVec
	echoesSuppressed   *prometheus.CounterVec
	writesSkipped      *prometheus.CounterVec
	subscriptionErrors *prometheus.CounterVec
}

// NewPrometheusMetrics registers the sync collectors with reg.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	m := &PrometheusMetrics{
		writes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scoreboard",
			Subsystem: "roomsync",
			Name:      "writes_total",
			Help:      "Whole-slice writes issued to the remote store.",
		}, []string{"slice", "status"}),
		writeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "scoreboard",
			Subsystem: "roomsync",
			Name:      "write_duration_seconds",
			Help:      "Latency of whole-slice writes.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"slice"}),
		remoteUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scoreboard",
			Subsystem: "roomsync",
			Name:      "remote_updates_total",
			Help:      "Remote value notifications applied to local state.",
		}, []string{"slice"}),
		echoesSuppressed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scoreboard",
			Subsystem: "roomsync",
			Name:      "echoes_suppressed_total",
			Help:      "Write-backs skipped because the change came from the store.",
		}, []string{"slice"}),
		writesSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scoreboard",
			Subsystem: "roomsync",
			Name:      "writes_skipped_total",
			Help:      "Local changes not written because the slice was not hydrated.",
		}, []string{"slice"}),
		subscriptionErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scoreboard",
			Subsystem: "roomsync",
			Name:      "subscription_errors_total",
			Help:      "Errors reported by slice subscriptions.",
		}, []string{"slice"}),
	}

	reg.MustRegister(
		m.writes,
		m.writeDuration,
		m.remoteUpdates,
		m.echoesSuppressed,
		m.writesSkipped,
		m.subscriptionErrors,
	)
	return m
}

func (m *PrometheusMetrics) RecordWrite(slice string, success bool, duration time.Duration) {
	status := "success"
	if !success {
		status = "failure"
	}
	m.writes.WithLabelValues(slice, status).Inc()
	m.writeDuration.WithLabelValues(slice).Observe(duration.Seconds())
}

func (m *PrometheusMetrics) RecordRemoteUpdate(slice string) {
	m.remoteUpdates.WithLabelValues(slice).Inc()
}

func (m *PrometheusMetrics) RecordEchoSuppressed(slice string) {
	m.echoesSuppressed.WithLabelValues(slice).Inc()
}

func (m *PrometheusMetrics) RecordWriteSkipped(slice string) {
	m.writesSkipped.WithLabelValues(slice).Inc()
}

func (m *PrometheusMetrics) RecordSubscriptionError(slice string) {
	m.subscriptionErrors.WithLabelValues(slice).Inc()
}
