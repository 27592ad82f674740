// Package simulation provides property-checking invariants (spec.md
// §8's Testable Properties) run against a Simulator-driven Rule Set and
// Reason calls, plus the seeded rand, virtual clock, and fault injection
// that build the scenarios they check. Grounded on the teacher's
// invariants.go (NamedInvariant/InvariantChecker/InvariantViolation
// bookkeeping kept as-is), with the rule-persistence/span-processing
// invariant bodies replaced by checks of determinism, idempotence of
// firing, trigger reachability, and null distinction
// against executor.Reason.
package simulation

import (
	"context"
	"fmt"

	"github.com/symbolica/symbolica/internal/executor"
	"github.com/symbolica/symbolica/pkg/fact"
	"github.com/symbolica/symbolica/pkg/rule"
	"github.com/symbolica/symbolica/pkg/value"
)

var permissiveStrategy = executor.Strategy{Permissive: true}

// Invariant is a property that must always hold true.
type Invariant func(*Simulator) (bool, string)

// InvariantChecker tracks and validates system invariants.
type InvariantChecker struct {
	invariants []NamedInvariant
	violations []InvariantViolation
}

// NamedInvariant pairs an invariant with its name.
type NamedInvariant struct {
	Name      string
	Invariant Invariant
}

// InvariantViolation records when an invariant fails.
type InvariantViolation struct {
	Name          string
	Message       string
	SimulatedTime string
	Seed          int64
}

// NewInvariantChecker creates a checker with spec.md §8's default
// invariants registered.
func NewInvariantChecker() *InvariantChecker {
	ic := &InvariantChecker{
		invariants: make([]NamedInvariant, 0),
		violations: make([]InvariantViolation, 0),
	}

	ic.Register("rule_persistence", RulePersistenceInvariant)
	ic.Register("no_duplicate_rules", NoDuplicateRulesInvariant)
	ic.Register("atomic_writes", AtomicWriteInvariant)
	ic.Register("idempotent_recovery", IdempotentRecoveryInvariant)
	ic.Register("determinism", DeterminismInvariant)
	ic.Register("idempotent_firing", IdempotentFiringInvariant)
	ic.Register("trigger_reachability", TriggerReachabilityInvariant)
	ic.Register("null_distinction", NullDistinctionInvariant)

	return ic
}

// Register adds a named invariant to check.
func (ic *InvariantChecker) Register(name string, inv Invariant) {
	ic.invariants = append(ic.invariants, NamedInvariant{
		Name:      name,
		Invariant: inv,
	})
}

// CheckAll runs all registered invariants against sim.
func (ic *InvariantChecker) CheckAll(sim *Simulator) bool {
	allPass := true

	for _, named := range ic.invariants {
		pass, message := named.Invariant(sim)
		if !pass {
			allPass = false
			ic.violations = append(ic.violations, InvariantViolation{
				Name:          named.Name,
				Message:       message,
				SimulatedTime: sim.Now().String(),
				Seed:          sim.Seed(),
			})
		}
	}

	return allPass
}

// Violations returns all recorded violations.
func (ic *InvariantChecker) Violations() []InvariantViolation {
	return ic.violations
}

// Report prints invariant check results.
func (ic *InvariantChecker) Report() {
	fmt.Printf("\n=== Invariant Check Report ===\n")
	fmt.Printf("Total Checks: %d\n", len(ic.invariants))
	fmt.Printf("Violations: %d\n", len(ic.violations))

	if len(ic.violations) > 0 {
		fmt.Printf("\nViolations:\n")
		for _, v := range ic.violations {
			fmt.Printf("  ❌ %s: %s\n", v.Name, v.Message)
			fmt.Printf("     Time: %s, Seed: %d\n", v.SimulatedTime, v.Seed)
		}
	} else {
		fmt.Printf("✅ All invariants passed\n")
	}
	fmt.Printf("\n")
}

// -------------------------------------------------------------------
// Persistence invariants (spec.md §6's optional Rule Set persistence)
// -------------------------------------------------------------------

// RulePersistenceInvariant: a Rule Set's sources survive a crash and
// restart unchanged.
func RulePersistenceInvariant(sim *Simulator) (bool, string) {
	before := sim.GetRules()

	if err := sim.CrashAndRestart(); err != nil {
		return false, fmt.Sprintf("crash recovery failed: %v", err)
	}

	after := sim.GetRules()
	if len(after) != len(before) {
		return false, fmt.Sprintf("rule count changed: %d before -> %d after crash", len(before), len(after))
	}

	beforeByID := make(map[string]rule.Source, len(before))
	for _, r := range before {
		beforeByID[r.ID] = r
	}
	for _, r := range after {
		orig, ok := beforeByID[r.ID]
		if !ok {
			return false, fmt.Sprintf("rule %s appeared after crash (not present before)", r.ID)
		}
		if fmt.Sprint(orig.Condition) != fmt.Sprint(r.Condition) {
			return false, fmt.Sprintf("rule %s condition changed after crash", r.ID)
		}
	}

	return true, ""
}

// NoDuplicateRulesInvariant: no duplicate rule ids in the working set.
func NoDuplicateRulesInvariant(sim *Simulator) (bool, string) {
	seen := make(map[string]bool)
	for _, r := range sim.GetRules() {
		if seen[r.ID] {
			return false, fmt.Sprintf("duplicate rule id found: %s", r.ID)
		}
		seen[r.ID] = true
	}
	return true, ""
}

// AtomicWriteInvariant: a persisted Rule Set never contains a
// half-written (empty id or unparseable condition) rule, per
// DiskRuleSetStore's write-temp-then-rename.
func AtomicWriteInvariant(sim *Simulator) (bool, string) {
	sources, ok, err := sim.store.Load()
	if err != nil || !ok {
		// A read failure from fault injection, or nothing persisted yet,
		// is acceptable: the invariant is about what IS on disk, not
		// whether something is.
		return true, ""
	}
	for _, r := range sources {
		if r.ID == "" {
			return false, "rule with empty id found (corrupted)"
		}
		if r.Condition == nil {
			return false, fmt.Sprintf("rule %s has nil condition (corrupted)", r.ID)
		}
	}
	return true, ""
}

// IdempotentRecoveryInvariant: recovering twice in a row is safe and
// produces the same rule set both times.
func IdempotentRecoveryInvariant(sim *Simulator) (bool, string) {
	first := sim.GetRules()

	if err := sim.CrashAndRestart(); err != nil {
		return false, fmt.Sprintf("second restart failed: %v", err)
	}

	second := sim.GetRules()
	if len(first) != len(second) {
		return false, fmt.Sprintf("rule count changed on second restart: %d -> %d", len(first), len(second))
	}

	firstByID := make(map[string]rule.Source, len(first))
	for _, r := range first {
		firstByID[r.ID] = r
	}
	for _, r2 := range second {
		r1, ok := firstByID[r2.ID]
		if !ok {
			return false, fmt.Sprintf("rule %s appeared after second restart", r2.ID)
		}
		if fmt.Sprint(r1.Condition) != fmt.Sprint(r2.Condition) {
			return false, fmt.Sprintf("rule %s condition changed between restarts", r2.ID)
		}
	}

	return true, ""
}

// -------------------------------------------------------------------
// Evaluation invariants (spec.md §8's Testable Properties)
// -------------------------------------------------------------------

// DeterminismInvariant: reason(R, F) == reason(R, F) under a fixed
// clock — same verdict, same firing order, same reasoning string.
func DeterminismInvariant(sim *Simulator) (bool, string) {
	if sim.compiled == nil {
		return true, ""
	}
	facts := sim.randomFacts()
	first, err := sim.exec.Reason(context.Background(), sim.compiled, facts, permissiveStrategy)
	if err != nil {
		return false, fmt.Sprintf("first reason call failed: %v", err)
	}
	second, err := sim.exec.Reason(context.Background(), sim.compiled, facts, permissiveStrategy)
	if err != nil {
		return false, fmt.Sprintf("second reason call failed: %v", err)
	}

	if first.Reasoning != second.Reasoning {
		return false, "reasoning string differs across repeated reason calls with identical facts"
	}
	if len(first.Fired) != len(second.Fired) {
		return false, "fired count differs across repeated reason calls with identical facts"
	}
	for i := range first.Fired {
		if first.Fired[i] != second.Fired[i] {
			return false, fmt.Sprintf("firing order differs at position %d: %s vs %s", i, first.Fired[i], second.Fired[i])
		}
	}
	for k, v := range first.Verdict {
		v2, ok := second.Verdict[k]
		if !ok || !value.Equal(v, v2) {
			return false, fmt.Sprintf("verdict field %s differs across repeated reason calls", k)
		}
	}

	return true, ""
}

// IdempotentFiringInvariant: no rule appears twice in one call's fired
// list, even when reachable by both the topological pass and a trigger
// edge.
func IdempotentFiringInvariant(sim *Simulator) (bool, string) {
	if sim.compiled == nil {
		return true, ""
	}
	result, err := sim.exec.Reason(context.Background(), sim.compiled, sim.randomFacts(), permissiveStrategy)
	if err != nil {
		return false, fmt.Sprintf("reason call failed: %v", err)
	}
	seen := make(map[string]bool, len(result.Fired))
	for _, id := range result.Fired {
		if seen[id] {
			return false, fmt.Sprintf("rule %s fired more than once in a single reason call", id)
		}
		seen[id] = true
	}
	return true, ""
}

// TriggerReachabilityInvariant: for every rule A that fires, every id
// B in triggers(A) was evaluated at least once in that call (it shows
// up in the trace, fired or not).
func TriggerReachabilityInvariant(sim *Simulator) (bool, string) {
	if sim.compiled == nil {
		return true, ""
	}
	result, err := sim.exec.Reason(context.Background(), sim.compiled, sim.randomFacts(), permissiveStrategy)
	if err != nil {
		return false, fmt.Sprintf("reason call failed: %v", err)
	}

	evaluated := make(map[string]bool, len(result.Trace))
	for _, entry := range result.Trace {
		evaluated[entry.RuleID] = true
	}

	for _, firedID := range result.Fired {
		r, ok := sim.compiled.ByID(firedID)
		if !ok {
			continue
		}
		for _, triggerID := range r.Triggers {
			if !evaluated[triggerID] {
				return false, fmt.Sprintf("rule %s fired but trigger target %s was never evaluated", firedID, triggerID)
			}
		}
	}

	return true, ""
}

// NullDistinctionInvariant: a fact bound to Null is a present binding,
// distinguishable from an absent one — Lookup must report ok=true for
// it, the same way a present non-null fact does.
func NullDistinctionInvariant(sim *Simulator) (bool, string) {
	facts := fact.Map{"present_null": value.Null, "present_value": value.Int(1)}
	env := fact.NewEnv(facts)

	_, ok := env.Lookup("present_null")
	if !ok {
		return false, "a fact bound to Null was reported absent by Lookup"
	}
	_, ok = env.Lookup("absent_field")
	if ok {
		return false, "an absent field was reported present by Lookup"
	}

	return true, ""
}

// -------------------------------------------------------------------
// Helper functions
// -------------------------------------------------------------------

// CheckInvariant is a helper to check a single invariant and panic if
// it fails.
func CheckInvariant(sim *Simulator, name string, inv Invariant) {
	pass, message := inv(sim)
	if !pass {
		panic(fmt.Sprintf("invariant '%s' violated: %s (seed: %d)", name, message, sim.Seed()))
	}
}

// MustHold asserts an invariant holds, panicking if not.
func MustHold(sim *Simulator, inv Invariant, context string) {
	pass, message := inv(sim)
	if !pass {
		panic(fmt.Sprintf("invariant violated in %s: %s (seed: %d)", context, message, sim.Seed()))
	}
}
