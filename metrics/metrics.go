// Package metrics exposes prometheus instruments for bracket operations.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	bracketsGenerated *prometheus.CounterVec
	matchesCompleted  *prometheus.CounterVec
	bracketResets     prometheus.Counter
	eventsCompleted   *prometheus.CounterVec
	mutationSeconds   *prometheus.HistogramVec
}

// New creates the instruments and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		bracketsGenerated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "competition_brackets_generated_total",
			Help: "Brackets generated, by whether the event was started immediately.",
		}, []string{"started"}),
		matchesCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "competition_matches_completed_total",
			Help: "Matches completed or corrected, by bracket side.",
		}, []string{"bracket", "correction"}),
		bracketResets: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "competition_bracket_resets_total",
			Help: "Tournament brackets deleted by a reset.",
		}),
		eventsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "competition_events_completed_total",
			Help: "Events completed, by event type.",
		}, []string{"type"}),
		mutationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "competition_bracket_mutation_seconds",
			Help:    "Duration of bracket-mutating transactions.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation", "outcome"}),
	}
	reg.MustRegister(m.bracketsGenerated, m.matchesCompleted, m.bracketResets, m.eventsCompleted, m.mutationSeconds)
	return m
}

func (m *Metrics) BracketGenerated(started bool) {
	if m == nil {
		return
	}
	label := "false"
	if started {
		label = "true"
	}
	m.bracketsGenerated.WithLabelValues(label).Inc()
}

func (m *Metrics) MatchCompleted(bracket string, correction bool) {
	if m == nil {
		return
	}
	label := "false"
	if correction {
		label = "true"
	}
	m.matchesCompleted.WithLabelValues(bracket, label).Inc()
}

func (m *Metrics) BracketReset() {
	if m == nil {
		return
	}
	m.bracketResets.Inc()
}

func (m *Metrics) EventCompleted(eventType string) {
	if m == nil {
		return
	}
	m.eventsCompleted.WithLabelValues(eventType).Inc()
}

// ObserveMutation records how long operation took since start.
func (m *Metrics) ObserveMutation(operation string, start time.Time, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.mutationSeconds.WithLabelValues(operation, outcome).Observe(time.Since(start).Seconds())
}
