package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the reasoning engine.

var (
	RuleEvaluationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "symbolica_rule_evaluation_duration_seconds",
			Help:    "Time taken to evaluate a single rule's condition within a reason() call",
			Buckets: prometheus.ExponentialBuckets(0.000001, 2, 20), // 1μs to 1s
		},
		[]string{"rule_id", "result"}, // result: fired|skipped|failed
	)

	RuleEvaluationTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "symbolica_rule_evaluation_total",
			Help: "Total number of rule evaluations across all reason() calls",
		},
		[]string{"rule_id", "result"},
	)

	ReasonCallDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "symbolica_reason_call_duration_seconds",
			Help:    "Time taken to complete one reason() call end-to-end",
			Buckets: prometheus.ExponentialBuckets(0.00001, 2, 20),
		},
	)

	ReasonCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "symbolica_reason_calls_total",
			Help: "Total number of reason() calls",
		},
		[]string{"outcome"}, // outcome: ok|truncated|cancelled|error
	)

	RuleLoadDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "symbolica_rule_load_duration_seconds",
			Help:    "Time taken to parse and compile a rule",
			Buckets: prometheus.ExponentialBuckets(0.000001, 2, 20),
		},
	)

	RuleLoadTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "symbolica_rule_load_total",
			Help: "Total number of rule compile attempts",
		},
		[]string{"status"}, // status: success|error
	)

	RulesActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "symbolica_rules_active",
			Help: "Number of rules in the currently loaded Rule Set",
		},
	)

	TemporalSamplesStored = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "symbolica_temporal_samples_stored",
			Help: "Number of samples currently retained per temporal key",
		},
		[]string{"key"},
	)

	ChainSubgoalsExplored = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "symbolica_chain_subgoals_explored",
			Help:    "Number of subgoal nodes visited per backward-chaining call",
			Buckets: prometheus.LinearBuckets(0, 5, 20),
		},
	)
)
