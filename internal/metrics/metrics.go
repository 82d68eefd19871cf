// Package metrics defines the Prometheus instrumentation of the event plane.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Dispatch metrics
	EventsDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventplane_events_dispatched_total",
			Help: "Handler invocations by event name, handler kind and outcome",
		},
		[]string{"event", "kind", "status"},
	)

	EventHandlerDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "eventplane_event_handler_duration_seconds",
			Help:    "Handler callback duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"event", "kind"},
	)

	// Background task metrics
	BgtasksStarted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "eventplane_bgtasks_started_total",
			Help: "Background tasks started",
		},
	)

	BgtasksTerminated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventplane_bgtasks_terminated_total",
			Help: "Background task terminations by task name, status and error code",
		},
		[]string{"task", "status", "error_code"},
	)

	BgtaskDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "eventplane_bgtask_duration_seconds",
			Help:    "Background task duration from start to terminal state",
			Buckets: []float64{.1, .5, 1, 5, 15, 60, 300, 1800, 7200},
		},
		[]string{"task", "status"},
	)

	// Message queue metrics
	QueueRepublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "eventplane_mq_republished_total",
			Help: "Reclaimed messages republished with a bumped retry count",
		},
	)

	QueueDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "eventplane_mq_dropped_total",
			Help: "Messages dropped at the retry cap or as undecodable",
		},
	)

	// Hub metrics
	PropagatorsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "eventplane_propagators_active",
			Help: "Propagators currently registered with the event hub",
		},
	)

	PropagatorDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "eventplane_propagator_dropped_total",
			Help: "Events dropped on full propagator queues",
		},
	)
)
