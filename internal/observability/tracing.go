package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Tracer is the OpenTelemetry tracer for the reasoning engine.
var Tracer = otel.Tracer("symbolica.engine")

// StartRuleEvaluationSpan creates a traced rule evaluation.
func StartRuleEvaluationSpan(ctx context.Context, ruleID string, callID string) (context.Context, trace.Span) {
	return Tracer.Start(ctx, "rule.evaluate",
		trace.WithAttributes(
			attribute.String("rule.id", ruleID),
			attribute.String("symbolica.call_id", callID),
		),
	)
}

// RecordRuleResult records a rule's evaluation outcome on span and
// Prometheus/OTel metrics.
func RecordRuleResult(ctx context.Context, span trace.Span, ruleID string, fired bool, failureKind string, duration time.Duration) {
	result := "skipped"
	switch {
	case fired:
		result = "fired"
	case failureKind != "":
		result = "failed"
	}

	span.SetAttributes(
		attribute.Bool("rule.fired", fired),
		attribute.Float64("rule.evaluation_duration_ms", float64(duration.Microseconds())/1000.0),
	)
	if failureKind != "" {
		span.SetAttributes(attribute.String("rule.failure_kind", failureKind))
	}

	RuleEvaluationDuration.WithLabelValues(ruleID, result).Observe(duration.Seconds())
	RuleEvaluationTotal.WithLabelValues(ruleID, result).Inc()

	if fired {
		span.AddEvent("rule.fired", trace.WithAttributes(attribute.String("rule.id", ruleID)))
	}
}

// StartRuleLoadSpan creates a traced rule compile operation.
func StartRuleLoadSpan(ctx context.Context, ruleID string) (context.Context, trace.Span) {
	return Tracer.Start(ctx, "rule.load", trace.WithAttributes(attribute.String("rule.id", ruleID)))
}

// RecordRuleLoadResult records rule compile success or failure.
func RecordRuleLoadResult(ctx context.Context, span trace.Span, ruleID string, err error, duration time.Duration) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
		RuleLoadTotal.WithLabelValues("error").Inc()
	} else {
		span.SetStatus(codes.Ok, "rule compiled")
		RuleLoadTotal.WithLabelValues("success").Inc()
	}
	RuleLoadDuration.Observe(duration.Seconds())
}
