package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace for all eventflow metrics
const namespace = "eventflow"

// Registry is the Prometheus registry served at /metrics.
var Registry = prometheus.NewRegistry()

// Reservations counts ledger reservation attempts by outcome
// (reserved, already_reserved, error).
var Reservations = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ledger_reservations_total",
		Help:      "Idempotency ledger reservation attempts by outcome",
	},
	[]string{"outcome"},
)

// Publishes counts PublishOnce results per event type
// (queued, duplicate_ignored, reserve_failed, send_failed).
var Publishes = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "event_publishes_total",
		Help:      "Event publication attempts by event type and result",
	},
	[]string{"event_type", "result"},
)

// PublishGaps counts reservations whose broker send failed and need manual replay.
var PublishGaps = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "publish_gaps_total",
		Help:      "Reserved events that could not be sent to the broker",
	},
	[]string{"event_type"},
)

// PublishDuration tracks broker send latency.
var PublishDuration = promauto.With(Registry).NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "event_publish_duration_seconds",
		Help:      "Broker send latency in seconds",
		Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	},
	[]string{"event_type"},
)

// AuthDecisions counts auth middleware terminal states (bypassed, verified, rejected).
var AuthDecisions = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_decisions_total",
		Help:      "Auth middleware outcomes by terminal state",
	},
	[]string{"state"},
)

// Registrations counts registration flow outcomes (ok, user_exists, validation_failed, error).
var Registrations = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "registrations_total",
		Help:      "Registration attempts by outcome",
	},
	[]string{"outcome"},
)

// ConsumedEvents counts consumer results (materialized, skipped, failed).
var ConsumedEvents = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "consumed_events_total",
		Help:      "Events handled by the consumer by type and outcome",
	},
	[]string{"event_type", "outcome"},
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}
