// Package metrics exposes prometheus collectors for the sync core.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the collectors updated by the session components. A Metrics
// built with a nil registerer still works; its collectors just are not
// exported anywhere.
type Metrics struct {
	ConnectionState   prometheus.Gauge
	ReconnectAttempts prometheus.Counter
	UnreadCount       prometheus.Gauge
	Rollbacks         prometheus.Counter
	PushEvents        *prometheus.CounterVec
}

// New creates the collectors and registers them on reg when reg is non-nil.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ConnectionState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "wayfarer_connection_state",
			Help: "Current push channel state (0 disconnected, 1 connecting, 2 connected, 3 reconnecting, 4 failed).",
		}),
		ReconnectAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wayfarer_reconnect_attempts_total",
			Help: "Push channel reconnect attempts.",
		}),
		UnreadCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "wayfarer_unread_notifications",
			Help: "Locally tracked unread notification count.",
		}),
		Rollbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wayfarer_optimistic_rollbacks_total",
			Help: "Optimistic mutations reverted after a failed remote call.",
		}),
		PushEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wayfarer_push_events_total",
			Help: "Server push events received, by event name.",
		}, []string{"event"}),
	}
	if reg != nil {
		reg.MustRegister(m.ConnectionState, m.ReconnectAttempts, m.UnreadCount, m.Rollbacks, m.PushEvents)
	}
	return m
}
