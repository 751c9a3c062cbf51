package analytics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fintrack",
			Name:      "analytics_events_total",
			Help:      "Analytics events emitted by name",
		},
		[]string{"event"},
	)

	EventsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "fintrack",
			Name:      "analytics_events_dropped_total",
			Help:      "Analytics events dropped because the buffer was full",
		},
	)

	SinkFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fintrack",
			Name:      "analytics_sink_failures_total",
			Help:      "Sink delivery failures by sink",
		},
		[]string{"sink"},
	)
)
