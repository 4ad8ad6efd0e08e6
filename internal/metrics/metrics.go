// Package metrics exposes Prometheus counters for generation jobs and tool
// calls. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Variation outcomes.
const (
	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
	OutcomeTimedOut  = "timed_out"
)

// Tool call statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Metrics holds the collectors registered on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	variations   *prometheus.CounterVec
	artifacts    *prometheus.CounterVec
	polls        *prometheus.CounterVec
	toolCalls    *prometheus.CounterVec
	toolDuration *prometheus.HistogramVec
}

// New creates and registers all collectors, including the Go runtime and
// process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		variations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "veogen",
				Name:      "variations_total",
				Help:      "Generation variations by backend and terminal outcome",
			},
			[]string{"backend", "outcome"},
		),
		artifacts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "veogen",
				Name:      "artifacts_total",
				Help:      "Artifacts persisted to the output directory",
			},
			[]string{"backend"},
		),
		polls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "veogen",
				Name:      "polls_total",
				Help:      "Status polls issued to the backend",
			},
			[]string{"backend"},
		),
		toolCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "veogen",
				Name:      "tool_calls_total",
				Help:      "Tool invocations by tool and status",
			},
			[]string{"tool", "status"},
		),
		toolDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "veogen",
				Name:      "tool_duration_seconds",
				Help:      "Tool execution duration in seconds",
				Buckets:   []float64{0.1, 1, 10, 60, 300, 600, 1200},
			},
			[]string{"tool"},
		),
	}

	m.registry.MustRegister(
		m.variations,
		m.artifacts,
		m.polls,
		m.toolCalls,
		m.toolDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordVariation counts one variation reaching a terminal outcome.
func (m *Metrics) RecordVariation(backend, outcome string) {
	if m == nil {
		return
	}
	m.variations.WithLabelValues(backend, outcome).Inc()
}

// RecordArtifact counts one persisted artifact.
func (m *Metrics) RecordArtifact(backend string) {
	if m == nil {
		return
	}
	m.artifacts.WithLabelValues(backend).Inc()
}

// RecordPoll counts one backend status poll.
func (m *Metrics) RecordPoll(backend string) {
	if m == nil {
		return
	}
	m.polls.WithLabelValues(backend).Inc()
}

// RecordToolCall records a tool invocation and its duration.
func (m *Metrics) RecordToolCall(tool, status string, d time.Duration) {
	if m == nil {
		return
	}
	if status == "" {
		status = "unknown"
	}
	m.toolCalls.WithLabelValues(tool, status).Inc()
	m.toolDuration.WithLabelValues(tool).Observe(d.Seconds())
}
