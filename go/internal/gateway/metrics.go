package gateway

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the gateway collectors. A nil *Metrics records nothing.
type Metrics struct {
	connections  prometheus.Gauge
	watchedRooms prometheus.Gauge
	events       *prometheus.CounterVec
	dropped      *prometheus.CounterVec
	rateLimited  prometheus.Counter
}

// NewMetrics registers the gateway collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "scoreboard",
			Subsystem: "gateway",
			Name:      "connections",
			Help:      "Open spectator websocket connections.",
		}),
		watchedRooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "scoreboard",
			Subsystem: "gateway",
			Name:      "watched_rooms",
			Help:      "Rooms with at least one spectator.",
		}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scoreboard",
			Subsystem: "gateway",
			Name:      "events_sent_total",
			Help:      "Room events queued to spectator connections.",
		}, []string{"type"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scoreboard",
			Subsystem: "gateway",
			Name:      "events_dropped_total",
			Help:      "Room events dropped because a buffer was full.",
		}, []string{"reason"}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "scoreboard",
			Subsystem: "gateway",
			Name:      "client_messages_rate_limited_total",
			Help:      "Inbound spectator messages discarded by the rate limiter.",
		}),
	}
	reg.MustRegister(m.connections, m.watchedRooms, m.events, m.dropped, m.rateLimited)
	return m
}

func (m *Metrics) connectionOpened() {
	if m != nil {
		m.connections.Inc()
	}
}

func (m *Metrics) connectionClosed() {
	if m != nil {
		m.connections.Dec()
	}
}

func (m *Metrics) roomWatched() {
	if m != nil {
		m.watchedRooms.Inc()
	}
}

func (m *Metrics) roomReleased() {
	if m != nil {
		m.watchedRooms.Dec()
	}
}

func (m *Metrics) eventSent(t EventType, n int) {
	if m != nil {
		m.events.WithLabelValues(string(t)).Add(float64(n))
	}
}

func (m *Metrics) eventDropped(reason string) {
	if m != nil {
		m.dropped.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) messageRateLimited() {
	if m != nil {
		m.rateLimited.Inc()
	}
}
