package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments for the event pipeline. Both
// services share the shape; unused instruments stay at zero.
type Metrics struct {
	EventsPublished  *prometheus.CounterVec
	EventsConsumed   *prometheus.CounterVec
	EventRetries     *prometheus.CounterVec
	EventsDeadLetter *prometheus.CounterVec
	HandleDuration   *prometheus.HistogramVec
	ProfilesCreated  prometheus.Counter
	UsersRegistered  prometheus.Counter
}

// New creates and registers all Prometheus metrics on the default registry.
func New(namespace string) *Metrics {
	return &Metrics{
		EventsPublished: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Domain events handed to the message channel after commit",
		}, []string{"topic"}),
		EventsConsumed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_consumed_total",
			Help:      "Delivered events by topic and outcome (ok, retry, dead_letter)",
		}, []string{"topic", "outcome"}),
		EventRetries: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "event_handler_retries_total",
			Help:      "In-process handler retries before redelivery or dead-letter",
		}, []string{"topic"}),
		EventsDeadLetter: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_dead_letter_total",
			Help:      "Events routed to a dead-letter topic",
		}, []string{"topic"}),
		HandleDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "event_handle_duration_ms",
			Help:      "Latency of a single handler invocation in milliseconds",
			Buckets:   []float64{1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000},
		}, []string{"topic"}),
		ProfilesCreated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "profiles_created_total",
			Help:      "Profiles created from registration events",
		}),
		UsersRegistered: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "users_registered_total",
			Help:      "Users registered in the identity service",
		}),
	}
}
