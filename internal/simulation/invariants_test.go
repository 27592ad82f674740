package simulation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvariantChecker_Basic(t *testing.T) {
	checker := NewInvariantChecker()
	assert.Greater(t, len(checker.invariants), 0)
}

func TestInvariantChecker_CustomInvariant(t *testing.T) {
	checker := NewInvariantChecker()

	checker.Register("always_pass", func(sim *Simulator) (bool, string) {
		return true, ""
	})
	checker.Register("always_fail", func(sim *Simulator) (bool, string) {
		return false, "this invariant always fails"
	})

	sim := NewSimulator(12345)

	allPass := checker.CheckAll(sim)
	assert.False(t, allPass, "should fail due to always_fail invariant")

	violations := checker.Violations()
	assert.Greater(t, len(violations), 0)

	found := false
	for _, v := range violations {
		if v.Name == "always_fail" {
			found = true
			assert.Contains(t, v.Message, "always fails")
		}
	}
	assert.True(t, found, "should have recorded always_fail violation")
}

func TestRulePersistenceInvariant(t *testing.T) {
	sim := NewSimulator(22222)
	for i := 0; i < 10; i++ {
		sim.GenerateRule()
	}

	pass, message := RulePersistenceInvariant(sim)
	assert.True(t, pass, "invariant should pass: %s", message)
}

func TestNoDuplicateRulesInvariant(t *testing.T) {
	sim := NewSimulator(33333)
	for i := 0; i < 10; i++ {
		sim.GenerateRule()
	}

	pass, message := NoDuplicateRulesInvariant(sim)
	assert.True(t, pass, "invariant should pass: %s", message)
}

func TestAtomicWriteInvariant(t *testing.T) {
	sim := NewSimulator(44444)
	for i := 0; i < 5; i++ {
		sim.GenerateRule()
	}

	pass, message := AtomicWriteInvariant(sim)
	assert.True(t, pass, "invariant should pass: %s", message)
}

func TestIdempotentRecoveryInvariant(t *testing.T) {
	sim := NewSimulator(55555)
	for i := 0; i < 10; i++ {
		sim.GenerateRule()
	}

	require.NoError(t, sim.CrashAndRestart())

	pass, message := IdempotentRecoveryInvariant(sim)
	assert.True(t, pass, "invariant should pass: %s", message)
}

func TestDeterminismInvariant(t *testing.T) {
	sim := NewSimulator(66666)
	sim.CreateRule("score > 10")

	pass, message := DeterminismInvariant(sim)
	assert.True(t, pass, "invariant should pass: %s", message)
}

func TestIdempotentFiringInvariant(t *testing.T) {
	sim := NewSimulator(77777)
	for i := 0; i < 5; i++ {
		sim.GenerateRule()
	}

	pass, message := IdempotentFiringInvariant(sim)
	assert.True(t, pass, "invariant should pass: %s", message)
}

func TestTriggerReachabilityInvariant(t *testing.T) {
	sim := NewSimulator(88881)
	for i := 0; i < 5; i++ {
		sim.GenerateRule()
	}

	pass, message := TriggerReachabilityInvariant(sim)
	assert.True(t, pass, "invariant should pass: %s", message)
}

func TestNullDistinctionInvariant(t *testing.T) {
	pass, message := NullDistinctionInvariant(NewSimulator(1))
	assert.True(t, pass, "invariant should pass: %s", message)
}

func TestInvariantChecker_CheckAll(t *testing.T) {
	sim := NewSimulator(88888)
	for i := 0; i < 20; i++ {
		sim.GenerateRule()
	}

	checker := NewInvariantChecker()
	allPass := checker.CheckAll(sim)
	assert.True(t, allPass, "all default invariants should pass")

	violations := checker.Violations()
	assert.Equal(t, 0, len(violations), "should have no violations")
}

func TestInvariantChecker_MultipleCrashes(t *testing.T) {
	sim := NewSimulator(99999)
	for i := 0; i < 15; i++ {
		sim.GenerateRule()
	}

	for i := 0; i < 5; i++ {
		require.NoError(t, sim.CrashAndRestart())

		checker := NewInvariantChecker()
		allPass := checker.CheckAll(sim)
		assert.True(t, allPass, "invariants should pass after crash %d", i+1)
	}
}

func TestCheckInvariant_Panic(t *testing.T) {
	sim := NewSimulator(11111)

	failingInvariant := func(sim *Simulator) (bool, string) {
		return false, "test failure"
	}

	assert.Panics(t, func() {
		CheckInvariant(sim, "test", failingInvariant)
	}, "should panic on invariant failure")
}

func TestMustHold(t *testing.T) {
	sim := NewSimulator(22221)

	passingInvariant := func(sim *Simulator) (bool, string) {
		return true, ""
	}
	assert.NotPanics(t, func() {
		MustHold(sim, passingInvariant, "test context")
	})

	failingInvariant := func(sim *Simulator) (bool, string) {
		return false, "test failure"
	}
	assert.Panics(t, func() {
		MustHold(sim, failingInvariant, "test context")
	})
}

func TestInvariantViolation_Recording(t *testing.T) {
	seed := int64(33332)
	sim := NewSimulator(seed)

	checker := NewInvariantChecker()
	checker.Register("test_fail", func(sim *Simulator) (bool, string) {
		return false, "expected test failure"
	})

	allPass := checker.CheckAll(sim)
	assert.False(t, allPass)

	violations := checker.Violations()
	require.Len(t, violations, 1)

	v := violations[0]
	assert.Equal(t, "test_fail", v.Name)
	assert.Contains(t, v.Message, "expected test failure")
	assert.Equal(t, seed, v.Seed)
	assert.NotEmpty(t, v.SimulatedTime)
}

// Comprehensive invariant test: multiple crashes with rule operations.
func TestInvariants_ComprehensiveScenario(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping comprehensive test in short mode")
	}

	sim := NewSimulator(44443)
	checker := NewInvariantChecker()

	for i := 0; i < 30; i++ {
		sim.GenerateRule()
	}
	assert.True(t, checker.CheckAll(sim), "invariants should pass after creation")

	for crash := 0; crash < 10; crash++ {
		require.NoError(t, sim.CrashAndRestart(), "crash %d should not error", crash+1)

		checker = NewInvariantChecker()
		allPass := checker.CheckAll(sim)
		assert.True(t, allPass, "invariants should pass after crash %d", crash+1)

		sim.GenerateRule()
		sim.GenerateRule()
	}

	checker = NewInvariantChecker()
	allPass := checker.CheckAll(sim)
	assert.True(t, allPass, "all invariants should pass at end")

	rules := sim.GetRules()
	assert.Greater(t, len(rules), 40, "should have accumulated rules")

	checker.Report()
}

// Benchmark invariant checking.
func BenchmarkInvariantCheck(b *testing.B) {
	sim := NewSimulator(12345)
	for i := 0; i < 50; i++ {
		sim.GenerateRule()
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		checker := NewInvariantChecker()
		checker.CheckAll(sim)
	}
}
