package monitoring

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Command outcomes used as the "outcome" label.
const (
	OutcomeOK            = "ok"
	OutcomeTimeout       = "timeout"
	OutcomeEchoMismatch  = "echo_mismatch"
	OutcomeReviewAborted = "review_aborted"
	OutcomeError         = "error"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	registry *prometheus.Registry

	SessionsActive  prometheus.Gauge
	CommandsTotal   *prometheus.CounterVec
	CommandDuration prometheus.Histogram
	OutputBytes     prometheus.Histogram
	ReviewDecisions *prometheus.CounterVec
	CwdChanges      prometheus.Counter

	snapshot Snapshot
	mu       sync.RWMutex
}

// Snapshot holds current counter values for status output
type Snapshot struct {
	Commands      int64
	Failures      int64
	TotalDuration time.Duration
}

// NewMetrics creates a new metrics collector with its own registry
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		SessionsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "zterm_sessions_active",
				Help: "Number of running shell sessions",
			},
		),
		CommandsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "zterm_commands_total",
				Help: "Total number of executed commands by outcome",
			},
			[]string{"outcome"},
		),
		CommandDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "zterm_command_duration_seconds",
				Help:    "Time from sending a command until the prompt returns",
				Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
		),
		OutputBytes: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "zterm_command_output_bytes",
				Help:    "Cleaned command output size in bytes",
				Buckets: []float64{10, 100, 1000, 10000, 100000, 1000000},
			},
		),
		ReviewDecisions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "zterm_review_decisions_total",
				Help: "Review gate decisions by action",
			},
			[]string{"action"},
		),
		CwdChanges: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "zterm_cwd_changes_total",
				Help: "Working directory changes mirrored into the wrapper process",
			},
		),
	}
}

// Registry returns the registry the metrics are registered with
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an HTTP handler exposing the metrics
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// SessionStarted increments the active session gauge
func (m *Metrics) SessionStarted() {
	if m == nil {
		return
	}
	m.SessionsActive.Inc()
}

// SessionClosed decrements the active session gauge
func (m *Metrics) SessionClosed() {
	if m == nil {
		return
	}
	m.SessionsActive.Dec()
}

// RecordCommand records one executed command
func (m *Metrics) RecordCommand(outcome string, duration time.Duration, outputBytes int) {
	if m == nil {
		return
	}
	m.CommandsTotal.WithLabelValues(outcome).Inc()
	m.CommandDuration.Observe(duration.Seconds())
	m.OutputBytes.Observe(float64(outputBytes))

	m.mu.Lock()
	m.snapshot.Commands++
	m.snapshot.TotalDuration += duration
	if outcome != OutcomeOK {
		m.snapshot.Failures++
	}
	m.mu.Unlock()
}

// RecordReview records a review gate decision
func (m *Metrics) RecordReview(action string) {
	if m == nil {
		return
	}
	m.ReviewDecisions.WithLabelValues(action).Inc()
}

// RecordCwdChange records a mirrored working directory change
func (m *Metrics) RecordCwdChange() {
	if m == nil {
		return
	}
	m.CwdChanges.Inc()
}

// Snapshot returns a copy of the current counters
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot
}
