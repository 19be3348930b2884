// Package metrics defines the prometheus collectors of the configurator
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "mongodb_configurator"

var (
	// EventsReceived counts scaling events by action
	EventsReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_received_total",
			Help:      "Total number of scaling events received",
		},
		[]string{"action"},
	)

	// EventsIgnored counts scheduler events that were not scaling events of this application
	EventsIgnored = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_ignored_total",
			Help:      "Total number of scheduler events ignored",
		},
	)

	// EventsBuffered counts events buffered while not ready
	EventsBuffered = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_buffered_total",
			Help:      "Total number of scaling events buffered before readiness",
		},
	)

	// EventsDropped counts events dropped because the mutation queue was full
	EventsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_dropped_total",
			Help:      "Total number of scaling events dropped",
		},
	)

	// Reconfigures counts replica set mutations by action and result
	Reconfigures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconfigures_total",
			Help:      "Total number of replica set reconfigure attempts",
		},
		[]string{"action", "result"}, // result: success/error/noop/skipped
	)

	// BootstrapPhase is the current phase of the bootstrap state machine
	BootstrapPhase = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "bootstrap_phase",
			Help:      "Current bootstrap phase",
		},
	)

	// Ready is 1 once live events are applied
	Ready = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ready",
			Help:      "Whether live scaling events are applied",
		},
	)

	// Healthy is 0 once termination started
	Healthy = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "healthy",
			Help:      "Whether the liveness probe passes",
		},
	)
)

// Reconfigure results
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultNoop    = "noop"
	ResultSkipped = "skipped"
)

func init() {
	Healthy.Set(1)
}
