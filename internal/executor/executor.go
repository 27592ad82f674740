// Package executor implements spec.md §4.4's DAG Executor: the single
// public Reason operation that walks a compiled Rule Set's topological
// order, evaluates each rule's condition against a growing write
// overlay, and drains the trigger queue, producing a deterministic
// Execution Result. Grounded on the teacher's internal/rules/engine.go
// RuleEngine (compiled-rule map, per-call evaluation loop) and
// engine_observability.go's span-per-rule-evaluation pattern.
package executor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/symbolica/symbolica/internal/depgraph"
	"github.com/symbolica/symbolica/internal/eval"
	"github.com/symbolica/symbolica/internal/observability"
	"github.com/symbolica/symbolica/internal/registry"
	"github.com/symbolica/symbolica/internal/temporal"
	"github.com/symbolica/symbolica/pkg/fact"
	"github.com/symbolica/symbolica/pkg/rule"
	"github.com/symbolica/symbolica/pkg/value"
)

var tracer = observability.Tracer

// Strategy configures how one Reason call handles the fatal-by-default
// failure kinds (spec.md §7): DivisionByZero, ArityMismatch,
// PromptUnavailable, PromptError, UnknownFunction.
type Strategy struct {
	// Permissive, when true, demotes the fatal-by-default failure kinds
	// to non-firing instead of aborting the call.
	Permissive bool
	// Deadline bounds one Reason call's wall-clock budget. Zero means no
	// deadline. Checked between rule evaluations, never mid-evaluation
	// (spec.md §5).
	Deadline time.Duration
}

// Write is one (field, value) pair an action produced, in the action's
// declared order.
type Write struct {
	Field string
	Value value.Value
}

// TraceEntry is one rule's record in the Execution Result (spec.md §3's
// Rule Trace Entry).
type TraceEntry struct {
	RuleID      string
	Fired       bool
	Condition   string
	FailureKind string            // set when Fired is false because of a demoted failure
	Bindings    fact.Map          // field -> value for every successful read during this evaluation
	Calls       []eval.CallRecord // every function call made during this evaluation
	Writes      []Write
	TriggeredBy string // parent rule id, if reached via a trigger edge
}

// Result is spec.md §3's Execution Result.
type Result struct {
	Verdict   fact.Map
	Fired     []string
	Reasoning string
	Elapsed   time.Duration
	Trace     []TraceEntry
	Truncated bool // true if the deadline cut the call short
	Cancelled bool // true if ctx was cancelled mid-call
}

// Executor runs compiled Rule Sets against Fact Maps.
type Executor struct {
	Evaluator *eval.Evaluator
	Clock     temporal.Clock
}

// New builds an Executor bound to a function registry and clock. The
// registry's Lookup satisfies eval.Registry directly.
func New(reg eval.Registry, clock temporal.Clock) *Executor {
	return &Executor{Evaluator: eval.New(reg), Clock: clock}
}

type pendingTrigger struct {
	ruleID string
}

// Reason evaluates ruleSet against facts and returns the Execution
// Result (spec.md §4.4). ctx carries cancellation; Reason checks it
// between rule evaluations, not mid-evaluation (spec.md §5).
func (x *Executor) Reason(ctx context.Context, ruleSet *rule.Set, facts fact.Map, strategy Strategy) (Result, error) {
	callID := uuid.NewString()
	ctx, span := tracer.Start(ctx, "executor.reason", trace.WithAttributes(
		attribute.String("symbolica.call_id", callID),
		attribute.Int("symbolica.rule_count", len(ruleSet.Rules)),
	))
	defer span.End()

	start := time.Now()
	observability.LogReasonStart(ctx, callID, len(ruleSet.Rules), len(facts))
	now := x.Clock.Now()
	ctx = temporal.WithFrozenNow(ctx, now)
	ctx = registry.WithPromptCache(ctx)

	var deadlineAt time.Time
	if strategy.Deadline > 0 {
		deadlineAt = start.Add(strategy.Deadline)
	}

	env := fact.NewEnv(facts)
	fired := make(map[string]bool)
	var firedOrder []string
	var traceEntries []TraceEntry
	var queue []pendingTrigger
	queued := make(map[string]bool)
	triggerParent := make(map[string]string) // rule id -> most recent rule id that triggered it

	order := depgraph.FlatOrder(ruleSet.Layers)

	truncated := false
	cancelled := false

	enqueueTriggers := func(r *rule.Rule) {
		for _, t := range r.Triggers {
			// Record the trigger parent regardless of whether t is
			// already scheduled or fired elsewhere: depgraph.Build adds
			// a trigger edge A->B unconditionally, so B is very often
			// already positioned after A in the topological order and
			// fires from the main loop, never reaching the queue at
			// all. The trace entry still needs "(triggered by A)".
			if _, ok := triggerParent[t]; !ok {
				triggerParent[t] = r.ID
			}
			if fired[t] || queued[t] {
				continue
			}
			queued[t] = true
			queue = append(queue, pendingTrigger{ruleID: t})
		}
	}

	evalOne := func(ruleID string) error {
		if fired[ruleID] {
			return nil
		}
		r, ok := ruleSet.ByID(ruleID)
		if !ok {
			return nil
		}

		entry := TraceEntry{RuleID: ruleID, Condition: r.Condition.String(), TriggeredBy: triggerParent[ruleID]}
		ruleStart := time.Now()
		ruleCtx, ruleSpan := observability.StartRuleEvaluationSpan(ctx, ruleID, callID)
		defer ruleSpan.End()
		ruleCtx, obs := eval.WithObservation(ruleCtx)
		recordObservation := func() {
			entry.Bindings = fact.Map(obs.Reads)
			entry.Calls = obs.Calls
		}

		cond, err := x.Evaluator.Eval(ruleCtx, r.Condition, env)
		if err != nil {
			kind := eval.Kind(err)
			if eval.Demotable(err, strategy.Permissive) {
				entry.FailureKind = kind
				recordObservation()
				traceEntries = append(traceEntries, entry)
				observability.RecordRuleResult(ctx, ruleSpan, ruleID, false, kind, time.Since(ruleStart))
				return nil
			}
			return fmt.Errorf("rule %s: %w", ruleID, err)
		}
		if !cond.Truthy() {
			recordObservation()
			traceEntries = append(traceEntries, entry)
			observability.RecordRuleResult(ctx, ruleSpan, ruleID, false, "", time.Since(ruleStart))
			return nil
		}

		writes := make([]Write, 0, len(r.Actions))
		for _, action := range r.Actions {
			v, err := x.Evaluator.Eval(ruleCtx, action.Template, env)
			if err != nil {
				kind := eval.Kind(err)
				if eval.Demotable(err, strategy.Permissive) {
					entry.FailureKind = kind
					recordObservation()
					traceEntries = append(traceEntries, entry)
					observability.RecordRuleResult(ctx, ruleSpan, ruleID, false, kind, time.Since(ruleStart))
					return nil
				}
				return fmt.Errorf("rule %s: action %s: %w", ruleID, action.Field, err)
			}
			env.Write(action.Field, v)
			writes = append(writes, Write{Field: action.Field, Value: v})
		}

		entry.Fired = true
		entry.Writes = writes
		recordObservation()
		traceEntries = append(traceEntries, entry)
		fired[ruleID] = true
		firedOrder = append(firedOrder, ruleID)
		observability.RecordRuleResult(ctx, ruleSpan, ruleID, true, "", time.Since(ruleStart))
		enqueueTriggers(r)
		return nil
	}

	checkBudget := func() error {
		if err := ctx.Err(); err != nil {
			cancelled = true
			return err
		}
		if !deadlineAt.IsZero() && time.Now().After(deadlineAt) {
			truncated = true
			return errTimeout
		}
		return nil
	}

runLoop:
	for _, ruleID := range order {
		if err := checkBudget(); err != nil {
			break runLoop
		}
		if err := evalOne(ruleID); err != nil {
			return Result{}, err
		}
	}

	if !truncated && !cancelled {
		for len(queue) > 0 {
			if err := checkBudget(); err != nil {
				break
			}
			head := queue[0]
			queue = queue[1:]
			if err := evalOne(head.ruleID); err != nil {
				return Result{}, err
			}
		}
	}

	elapsed := time.Since(start)
	result := Result{
		Verdict:   env.Verdict(),
		Fired:     firedOrder,
		Elapsed:   elapsed,
		Trace:     traceEntries,
		Truncated: truncated,
		Cancelled: cancelled,
	}
	result.Reasoning = renderReasoning(traceEntries)
	span.SetAttributes(
		attribute.Int("symbolica.fired_count", len(firedOrder)),
		attribute.Bool("symbolica.truncated", truncated),
		attribute.Bool("symbolica.cancelled", cancelled),
	)

	outcome := "ok"
	switch {
	case cancelled:
		outcome = "cancelled"
	case truncated:
		outcome = "truncated"
	}
	observability.RecordReasonCall(ctx, outcome, elapsed.Seconds())
	observability.LogReasonEnd(ctx, callID, len(firedOrder), truncated, cancelled, elapsed)
	return result, nil
}

var errTimeout = &timeoutError{}

type timeoutError struct{}

func (*timeoutError) Error() string { return "reason: deadline exceeded" }

// renderReasoning builds spec.md §6's stable reasoning string: one line
// per fired rule, `<id>: <condition>, set <k>=<v>, ...`, with
// `(triggered by <parent>)` appended when the rule fired via a trigger
// edge rather than the topological pass.
func renderReasoning(entries []TraceEntry) string {
	var b strings.Builder
	for _, e := range entries {
		if !e.Fired {
			continue
		}
		b.WriteString("✓ ")
		b.WriteString(e.RuleID)
		b.WriteString(": ")
		b.WriteString(e.Condition)
		if len(e.Writes) > 0 {
			b.WriteString(", set ")
			for i, w := range e.Writes {
				if i > 0 {
					b.WriteString(", ")
				}
				b.WriteString(w.Field)
				b.WriteString("=")
				b.WriteString(w.Value.String())
			}
		}
		if e.TriggeredBy != "" {
			b.WriteString(" (triggered by ")
			b.WriteString(e.TriggeredBy)
			b.WriteString(")")
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
