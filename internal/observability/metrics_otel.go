package observability

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// OpenTelemetry metrics mirroring metrics.go's Prometheus instruments,
// platform-agnostic (works with any OTLP-compatible backend).

var (
	meter = otel.Meter("symbolica.engine")

	metricsOnce sync.Once

	ruleEvaluationDuration metric.Float64Histogram
	ruleEvaluationTotal    metric.Int64Counter
	reasonCallDuration     metric.Float64Histogram
	reasonCallsTotal       metric.Int64Counter
	ruleLoadDuration       metric.Float64Histogram
	ruleLoadTotal          metric.Int64Counter
	rulesActive            metric.Int64UpDownCounter
	chainSubgoalsExplored  metric.Int64Histogram
)

// InitMetrics initializes all OpenTelemetry metric instruments. Call
// once during application startup.
func InitMetrics() error {
	var err error
	metricsOnce.Do(func() {
		ruleEvaluationDuration, err = meter.Float64Histogram(
			"symbolica.rule_evaluation_duration",
			metric.WithDescription("Time taken to evaluate a single rule's condition"),
			metric.WithUnit("s"),
		)
		if err != nil {
			return
		}

		ruleEvaluationTotal, err = meter.Int64Counter(
			"symbolica.rule_evaluation_total",
			metric.WithDescription("Total number of rule evaluations"),
		)
		if err != nil {
			return
		}

		reasonCallDuration, err = meter.Float64Histogram(
			"symbolica.reason_call_duration",
			metric.WithDescription("Time taken to complete one reason() call"),
			metric.WithUnit("s"),
		)
		if err != nil {
			return
		}

		reasonCallsTotal, err = meter.Int64Counter(
			"symbolica.reason_calls_total",
			metric.WithDescription("Total number of reason() calls"),
		)
		if err != nil {
			return
		}

		ruleLoadDuration, err = meter.Float64Histogram(
			"symbolica.rule_load_duration",
			metric.WithDescription("Time taken to parse and compile a rule"),
			metric.WithUnit("s"),
		)
		if err != nil {
			return
		}

		ruleLoadTotal, err = meter.Int64Counter(
			"symbolica.rule_load_total",
			metric.WithDescription("Total number of rule compile attempts"),
		)
		if err != nil {
			return
		}

		rulesActive, err = meter.Int64UpDownCounter(
			"symbolica.rules_active",
			metric.WithDescription("Number of rules in the currently loaded Rule Set"),
		)
		if err != nil {
			return
		}

		chainSubgoalsExplored, err = meter.Int64Histogram(
			"symbolica.chain_subgoals_explored",
			metric.WithDescription("Number of subgoal nodes visited per backward-chaining call"),
		)
	})
	return err
}

// RecordRuleEvaluation records a rule evaluation with duration and result.
func RecordRuleEvaluation(ctx context.Context, ruleID string, result string, durationSeconds float64) {
	ensureMetricsInit()
	attrs := metric.WithAttributes(
		attribute.String("rule_id", ruleID),
		attribute.String("result", result), // fired|skipped|failed
	)
	ruleEvaluationDuration.Record(ctx, durationSeconds, attrs)
	ruleEvaluationTotal.Add(ctx, 1, attrs)
}

// RecordReasonCall records one reason() call's outcome and duration.
func RecordReasonCall(ctx context.Context, outcome string, durationSeconds float64) {
	ensureMetricsInit()
	reasonCallDuration.Record(ctx, durationSeconds)
	reasonCallsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", outcome), // ok|truncated|cancelled|error
	))
}

// RecordRuleLoad records a rule compile attempt.
func RecordRuleLoad(ctx context.Context, status string, durationSeconds float64) {
	ensureMetricsInit()
	ruleLoadDuration.Record(ctx, durationSeconds)
	ruleLoadTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("status", status), // success|error
	))
}

// UpdateActiveRules updates the active rules gauge by delta.
func UpdateActiveRules(ctx context.Context, delta int64) {
	ensureMetricsInit()
	rulesActive.Add(ctx, delta)
}

// RecordChainSubgoalsExplored records the subgoal count for one
// backward-chaining call.
func RecordChainSubgoalsExplored(ctx context.Context, count int64) {
	ensureMetricsInit()
	chainSubgoalsExplored.Record(ctx, count)
}

// ensureMetricsInit lazily initializes the OTel instruments on first
// use, so callers that never explicitly invoke InitMetrics (tests, ad
// hoc CLI runs) still get a working no-op-on-error meter instead of a
// nil-instrument panic. InitMetrics remains the explicit entry point
// for callers that want to fail fast on exporter setup errors.
func ensureMetricsInit() {
	_ = InitMetrics()
}
