// Package metrics exposes Prometheus instrumentation for state-server
// instances, attached through the stateserver lifecycle hooks.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	stateserver "github.com/ityonemo/state-server"
	"github.com/ityonemo/state-server/graph"
)

// Collector aggregates lifecycle metrics for every instance it is
// attached to. One Collector is typically shared by all instances of a
// server type.
type Collector struct {
	events      *prometheus.CounterVec
	transitions *prometheus.CounterVec
	stops       *prometheus.CounterVec
	live        prometheus.Gauge
}

// New builds a Collector and registers its metrics with reg.
// Panics on duplicate registration, matching prometheus.MustRegister.
func New(reg prometheus.Registerer) *Collector {
	c := &Collector{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stateserver",
			Name:      "events_total",
			Help:      "Events dispatched, by event kind.",
		}, []string{"kind"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stateserver",
			Name:      "state_entries_total",
			Help:      "State entries, by destination state.",
		}, []string{"state"}),
		stops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stateserver",
			Name:      "stops_total",
			Help:      "Instance terminations, by outcome.",
		}, []string{"outcome"}),
		live: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "stateserver",
			Name:      "live_instances",
			Help:      "Currently running instances.",
		}),
	}
	reg.MustRegister(c.events, c.transitions, c.stops, c.live)
	return c
}

// Hooks returns the lifecycle hooks feeding this collector; pass them
// to stateserver.WithHooks at start.
func (c *Collector) Hooks() stateserver.Hooks {
	return stateserver.Hooks{
		OnStart: func(string) {
			c.live.Inc()
		},
		OnEvent: func(kind string) {
			c.events.WithLabelValues(kind).Inc()
		},
		OnTransition: func(_ graph.State, _ graph.Transition, to graph.State) {
			c.transitions.WithLabelValues(string(to)).Inc()
		},
		OnStop: func(reason error) {
			outcome := "normal"
			if reason != nil {
				outcome = "error"
			}
			c.stops.WithLabelValues(outcome).Inc()
			c.live.Dec()
		},
	}
}
