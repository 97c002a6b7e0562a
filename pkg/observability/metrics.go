// Package observability provides Prometheus metrics for the PER loop —
// a small subset of hector's pkg/observability, with no otel tracing,
// since SPEC_FULL.md's domain stack never wires a tracing exporter.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds every Prometheus collector the controller and its
// collaborators record against.
type Metrics struct {
	registry *prometheus.Registry

	fetchRequests    *prometheus.CounterVec
	fetchDuration    *prometheus.HistogramVec
	rateLimitReasons *prometheus.CounterVec

	planRepairAttempts *prometheus.CounterVec
	planRepairOutcome  *prometheus.CounterVec

	loopIterations *prometheus.CounterVec
	loopDuration   *prometheus.HistogramVec
}

// New builds a Metrics instance registered against a fresh Prometheus
// registry, following hector's pkg/observability.NewMetrics constructor
// shape but with a fixed namespace instead of config-driven enable/disable.
func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = "ikoma"
	}

	m := &Metrics{registry: prometheus.NewRegistry()}

	m.fetchRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "fetcher", Name: "requests_total",
		Help: "Total HTTP fetch attempts, by domain and outcome.",
	}, []string{"domain", "outcome"})

	m.fetchDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace, Subsystem: "fetcher", Name: "duration_seconds",
		Help:    "HTTP fetch duration in seconds.",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
	}, []string{"domain"})

	m.rateLimitReasons = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "fetcher", Name: "rate_limited_total",
		Help: "Total requests rejected by the per-domain rate limiter.",
	}, []string{"domain"})

	m.planRepairAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "plan", Name: "repair_attempts_total",
		Help: "Total plan self-repair attempts.",
	}, []string{"run_id"})

	m.planRepairOutcome = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "plan", Name: "repair_outcome_total",
		Help: "Plan validation outcomes after any self-repair attempts (accepted, exhausted).",
	}, []string{"outcome"})

	m.loopIterations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "controller", Name: "iterations_total",
		Help: "Total PER loop iterations, by run ID.",
	}, []string{"run_id"})

	m.loopDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace, Subsystem: "controller", Name: "run_duration_seconds",
		Help:    "Total wall-clock duration of a completed run.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	}, []string{"termination_reason"})

	m.registry.MustRegister(
		m.fetchRequests, m.fetchDuration, m.rateLimitReasons,
		m.planRepairAttempts, m.planRepairOutcome,
		m.loopIterations, m.loopDuration,
	)
	return m
}

// Registry returns the underlying Prometheus registry, for mounting a
// /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// RecordFetch records one HTTP fetch attempt.
func (m *Metrics) RecordFetch(domain, outcome string, d time.Duration) {
	m.fetchRequests.WithLabelValues(domain, outcome).Inc()
	m.fetchDuration.WithLabelValues(domain).Observe(d.Seconds())
}

// RecordRateLimited records one request rejected by the domain limiter.
func (m *Metrics) RecordRateLimited(domain string) {
	m.rateLimitReasons.WithLabelValues(domain).Inc()
}

// RecordPlanRepairAttempt records one self-repair round-trip to the LLM.
func (m *Metrics) RecordPlanRepairAttempt(runID string) {
	m.planRepairAttempts.WithLabelValues(runID).Inc()
}

// RecordPlanRepairOutcome records whether a repair loop recovered a valid
// plan or exhausted its retry budget.
func (m *Metrics) RecordPlanRepairOutcome(outcome string) {
	m.planRepairOutcome.WithLabelValues(outcome).Inc()
}

// RecordIteration records one completed PER loop iteration.
func (m *Metrics) RecordIteration(runID string) {
	m.loopIterations.WithLabelValues(runID).Inc()
}

// RecordRunDuration records the total wall-clock time of a completed run.
func (m *Metrics) RecordRunDuration(terminationReason string, d time.Duration) {
	m.loopDuration.WithLabelValues(terminationReason).Observe(d.Seconds())
}
