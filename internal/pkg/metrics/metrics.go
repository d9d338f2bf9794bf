// Package metrics exposes prometheus collectors for ledger activity.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels.
const (
	OutcomeApplied     = "applied"
	OutcomeDuplicate   = "duplicate"
	OutcomeInvalid     = "invalid"
	OutcomeConflict    = "conflict"
	OutcomeUnavailable = "unavailable"
	OutcomeError       = "error"
)

// Ledger holds the ledger collectors. A nil *Ledger is a no-op.
type Ledger struct {
	mutations *prometheus.CounterVec
	points    *prometheus.CounterVec
	attempts  prometheus.Histogram
	duration  *prometheus.HistogramVec
	notifyErr prometheus.Counter
}

// NewLedger creates the collectors and registers them with reg.
func NewLedger(reg prometheus.Registerer) *Ledger {
	m := &Ledger{
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "loyalty",
			Subsystem: "ledger",
			Name:      "mutations_total",
			Help:      "Ledger mutations by entry kind and outcome.",
		}, []string{"kind", "outcome"}),
		points: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "loyalty",
			Subsystem: "ledger",
			Name:      "points_total",
			Help:      "Absolute points moved by applied mutations, by kind and direction.",
		}, []string{"kind", "direction"}),
		attempts: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "loyalty",
			Subsystem: "ledger",
			Name:      "attempts",
			Help:      "Storage attempts per mutation.",
			Buckets:   []float64{1, 2, 3, 4, 5, 8},
		}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "loyalty",
			Subsystem: "ledger",
			Name:      "mutation_duration_seconds",
			Help:      "Mutation latency including retries.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
		notifyErr: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "loyalty",
			Subsystem: "notify",
			Name:      "failures_total",
			Help:      "Award notifications that could not be delivered.",
		}),
	}

	if reg != nil {
		reg.MustRegister(m.mutations, m.points, m.attempts, m.duration, m.notifyErr)
	}
	return m
}

// ObserveMutation records the outcome of one ledger call.
func (m *Ledger) ObserveMutation(kind, outcome string, delta int64, attempts int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.mutations.WithLabelValues(kind, outcome).Inc()
	m.attempts.Observe(float64(attempts))
	m.duration.WithLabelValues(outcome).Observe(elapsed.Seconds())

	if outcome == OutcomeApplied && delta != 0 {
		direction := "credit"
		if delta < 0 {
			direction = "debit"
			delta = -delta
		}
		m.points.WithLabelValues(kind, direction).Add(float64(delta))
	}
}

// NotifyFailed counts an undelivered notification.
func (m *Ledger) NotifyFailed() {
	if m == nil {
		return
	}
	m.notifyErr.Inc()
}
