// Package metrics provides Prometheus metrics for the depot ingest service
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the ingest service
type Metrics struct {
	// Deposit metrics
	DepositsStartedTotal   prometheus.Counter
	DepositsSucceededTotal prometheus.Counter
	DepositsFailedTotal    prometheus.Counter
	DepositsCancelledTotal prometheus.Counter
	DepositsActive         prometheus.Gauge

	// Stage metrics
	StageRunsTotal   *prometheus.CounterVec
	StageDuration    *prometheus.HistogramVec
	PhaseRunsTotal   *prometheus.CounterVec
	CleanupRunsTotal prometheus.Counter

	// Graph metrics
	ObjectsBuiltTotal    prometheus.Counter
	ExternalRefsTotal    prometheus.Counter
	ValidationFailsTotal *prometheus.CounterVec
	EventsEmittedTotal   *prometheus.CounterVec

	// Watcher metrics
	WatcherEventsTotal   prometheus.Counter
	WatcherDroppedTotal  prometheus.Counter
	WatcherDepositsTotal prometheus.Counter

	// Server metrics
	ServerUptimeSeconds prometheus.Gauge
	ServerStartTime     time.Time
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics() *Metrics {
	m := &Metrics{
		ServerStartTime: time.Now(),
	}

	// Deposit metrics
	m.DepositsStartedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "depot_deposits_started_total",
			Help: "Total number of deposit runs started",
		},
	)

	m.DepositsSucceededTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "depot_deposits_succeeded_total",
			Help: "Total number of deposits that completed all phases",
		},
	)

	m.DepositsFailedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "depot_deposits_failed_total",
			Help: "Total number of deposits that failed",
		},
	)

	m.DepositsCancelledTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "depot_deposits_cancelled_total",
			Help: "Total number of deposits paused by cancellation",
		},
	)

	m.DepositsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "depot_deposits_active",
			Help: "Number of deposits currently running",
		},
	)

	// Stage metrics
	m.StageRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "depot_stage_runs_total",
			Help: "Total number of stage executions",
		},
		[]string{"stage", "status"},
	)

	m.StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "depot_stage_duration_seconds",
			Help:    "Duration of stage executions in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"stage"},
	)

	m.PhaseRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "depot_phase_runs_total",
			Help: "Total number of phase executions",
		},
		[]string{"status"},
	)

	m.CleanupRunsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "depot_cleanup_runs_total",
			Help: "Total number of failure cleanups performed",
		},
	)

	// Graph metrics
	m.ObjectsBuiltTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "depot_objects_built_total",
			Help: "Total number of business objects built",
		},
	)

	m.ExternalRefsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "depot_external_refs_total",
			Help: "Total number of external references recorded",
		},
	)

	m.ValidationFailsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "depot_validation_fails_total",
			Help: "Total number of validation failures",
		},
		[]string{"stage"},
	)

	m.EventsEmittedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "depot_events_emitted_total",
			Help: "Total number of lifecycle events emitted",
		},
		[]string{"type"},
	)

	// Watcher metrics
	m.WatcherEventsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "depot_watcher_events_total",
			Help: "Total number of inbox filesystem events observed",
		},
	)

	m.WatcherDroppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "depot_watcher_dropped_total",
			Help: "Total number of inbox candidates dropped before submission",
		},
	)

	m.WatcherDepositsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "depot_watcher_deposits_total",
			Help: "Total number of deposits submitted by the inbox watcher",
		},
	)

	// Server metrics
	m.ServerUptimeSeconds = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "depot_server_uptime_seconds",
			Help: "Server uptime in seconds",
		},
	)

	// Start uptime updater
	go m.updateUptime()

	return m
}

// updateUptime periodically updates the server uptime metric
func (m *Metrics) updateUptime() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		m.ServerUptimeSeconds.Set(time.Since(m.ServerStartTime).Seconds())
	}
}

// RecordStageRun records one stage execution with its status
func (m *Metrics) RecordStageRun(stage string, status string, duration time.Duration) {
	m.StageRunsTotal.WithLabelValues(stage, status).Inc()
	m.StageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// RecordPhaseRun records one phase execution with its status
func (m *Metrics) RecordPhaseRun(status string) {
	m.PhaseRunsTotal.WithLabelValues(status).Inc()
}

// RecordEvent records one lifecycle event emission
func (m *Metrics) RecordEvent(eventType string) {
	m.EventsEmittedTotal.WithLabelValues(eventType).Inc()
}
