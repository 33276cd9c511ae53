// Package monitor exposes remindd's operational metrics and health over
// HTTP.
package monitor

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the scan loop and dispatch counters. A nil *Metrics is
// valid everywhere and records nothing, so wiring metrics stays optional.
type Metrics struct {
	remindersSent       prometheus.Counter
	remindersFailed     prometheus.Counter
	unparseableSkips    prometheus.Counter
	sweepDuration       prometheus.Histogram
	sweepsOverlapped    prometheus.Counter
	persistenceFailures prometheus.Counter
}

// NewMetrics creates and registers the remindd metric set.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		remindersSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "remindd_reminders_sent_total",
			Help: "Reminder tiers successfully dispatched.",
		}),
		remindersFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "remindd_reminders_failed_total",
			Help: "Reminder dispatches that exhausted the retry budget.",
		}),
		unparseableSkips: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "remindd_unparseable_deadlines_total",
			Help: "Tasks skipped during a sweep because the deadline did not parse.",
		}),
		sweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "remindd_sweep_duration_seconds",
			Help:    "Duration of one full reminder sweep.",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
		}),
		sweepsOverlapped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "remindd_sweeps_overlapped_total",
			Help: "Ticks skipped because the previous sweep was still running.",
		}),
		persistenceFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "remindd_persistence_failures_total",
			Help: "Failed snapshot saves after marking a tier fired.",
		}),
	}
	reg.MustRegister(
		m.remindersSent,
		m.remindersFailed,
		m.unparseableSkips,
		m.sweepDuration,
		m.sweepsOverlapped,
		m.persistenceFailures,
	)
	return m
}

// ReminderSent records a successfully dispatched tier.
func (m *Metrics) ReminderSent() {
	if m == nil {
		return
	}
	m.remindersSent.Inc()
}

// ReminderFailed records a dispatch that exhausted its retries.
func (m *Metrics) ReminderFailed() {
	if m == nil {
		return
	}
	m.remindersFailed.Inc()
}

// UnparseableSkip records a task skipped for an unparseable deadline.
func (m *Metrics) UnparseableSkip() {
	if m == nil {
		return
	}
	m.unparseableSkips.Inc()
}

// SweepCompleted records the duration of a finished sweep.
func (m *Metrics) SweepCompleted(d time.Duration) {
	if m == nil {
		return
	}
	m.sweepDuration.Observe(d.Seconds())
}

// SweepOverlapped records a tick skipped by the overlap guard.
func (m *Metrics) SweepOverlapped() {
	if m == nil {
		return
	}
	m.sweepsOverlapped.Inc()
}

// PersistenceFailure records a failed snapshot save.
func (m *Metrics) PersistenceFailure() {
	if m == nil {
		return
	}
	m.persistenceFailures.Inc()
}
