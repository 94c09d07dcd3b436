// Package metrics exposes Prometheus instrumentation for a chat session.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Drop reasons.
const (
	ReasonMalformed   = "malformed"
	ReasonUnavailable = "unavailable"
	ReasonQueueFull   = "queue_full"
)

// Metrics holds the session collectors.
type Metrics struct {
	FramesSent      *prometheus.CounterVec
	FramesReceived  *prometheus.CounterVec
	FramesDropped   *prometheus.CounterVec
	Reconnects      prometheus.Counter
	TransportErrors prometheus.Counter
	Connected       prometheus.Gauge
}

// New registers the session collectors with reg.
// Passing a fresh prometheus.NewRegistry() keeps sessions independent.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		FramesSent: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chat",
			Subsystem: "session",
			Name:      "frames_sent_total",
			Help:      "Frames written to the transport, by frame type",
		}, []string{"type"}),

		FramesReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chat",
			Subsystem: "session",
			Name:      "frames_received_total",
			Help:      "Frames decoded from the transport, by frame type",
		}, []string{"type"}),

		FramesDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chat",
			Subsystem: "session",
			Name:      "frames_dropped_total",
			Help:      "Frames dropped, by reason",
		}, []string{"reason"}),

		Reconnects: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "chat",
			Subsystem: "session",
			Name:      "reconnects_total",
			Help:      "Reconnect attempts scheduled after a lost connection",
		}),

		TransportErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "chat",
			Subsystem: "session",
			Name:      "transport_errors_total",
			Help:      "Errors reported by the transport",
		}),

		Connected: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "chat",
			Subsystem: "session",
			Name:      "connected",
			Help:      "1 while the session has a live connection",
		}),
	}
}

// SetConnected records the connection state.
func (m *Metrics) SetConnected(connected bool) {
	if connected {
		m.Connected.Set(1)
		return
	}
	m.Connected.Set(0)
}
