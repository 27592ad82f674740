package simulation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFaultInjector_DiskFull(t *testing.T) {
	rand := NewDeterministicRand(11111)
	injector := NewFaultInjector(rand)
	injector.DiskFullProbability = 1.0

	assert.True(t, injector.ShouldInjectDiskFull())
	assert.Equal(t, 1, injector.Stats().DiskFullCount)

	injector.ShouldInjectDiskFull()
	assert.Equal(t, 2, injector.Stats().DiskFullCount)
}

func TestFaultInjector_Probabilities(t *testing.T) {
	rand := NewDeterministicRand(22222)
	injector := NewFaultInjector(rand)
	injector.CrashProbability = 0.5

	crashes := 0
	for i := 0; i < 1000; i++ {
		if injector.ShouldInjectCrash() {
			crashes++
		}
	}

	assert.Greater(t, crashes, 400, "too few crashes")
	assert.Less(t, crashes, 600, "too many crashes")
}

func TestFaultInjector_AggressiveMode(t *testing.T) {
	rand := NewDeterministicRand(33333)
	injector := NewFaultInjector(rand)
	defaultCrashProb := injector.CrashProbability

	injector.SetAggressiveMode()

	assert.Greater(t, injector.CrashProbability, defaultCrashProb)
	assert.Greater(t, injector.DiskFullProbability, 0.05)
}

func TestFaultInjector_Profiles(t *testing.T) {
	rand := NewDeterministicRand(44444)
	injector := NewFaultInjector(rand)

	injector.ApplyProfile(ConservativeProfile())
	assert.Equal(t, 0.01, injector.DiskFullProbability)

	injector.ApplyProfile(ChaosProfile())
	assert.Equal(t, 0.20, injector.DiskFullProbability)
	assert.Equal(t, 0.30, injector.CrashProbability)
}

func TestFaultyFileSystem_DiskFull(t *testing.T) {
	rand := NewDeterministicRand(55555)
	injector := NewFaultInjector(rand)
	injector.DiskFullProbability = 1.0

	ffs := NewFaultyFileSystem(injector)

	err := ffs.WriteFile("/test.txt", []byte("data"), 0644)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no space left on device")
}

func TestFaultyFileSystem_Corruption(t *testing.T) {
	rand := NewDeterministicRand(66666)
	injector := NewFaultInjector(rand)
	injector.CorruptionProbability = 0.0

	ffs := NewFaultyFileSystem(injector)

	original := []byte("hello world")
	err := ffs.WriteFile("/test.txt", original, 0644)
	require.NoError(t, err)

	injector.CorruptionProbability = 1.0

	data, err := ffs.ReadFile("/test.txt")
	require.NoError(t, err)
	assert.NotEqual(t, original, data, "data should be corrupted")
}

func TestFaultyFileSystem_PartialWrite(t *testing.T) {
	rand := NewDeterministicRand(77777)
	injector := NewFaultInjector(rand)
	injector.PartialWriteProbability = 1.0

	ffs := NewFaultyFileSystem(injector)

	original := make([]byte, 100)
	for i := range original {
		original[i] = byte(i)
	}

	err := ffs.WriteFile("/test.txt", original, 0644)
	require.NoError(t, err)

	data, exists := ffs.GetUnderlyingFS().GetFile("/test.txt")
	require.True(t, exists, "file should exist")
	assert.Less(t, len(data), len(original), "data should be truncated")
}

func TestSimulatorWithFaults(t *testing.T) {
	sim := NewSimulator(88888)

	for i := 0; i < 20; i++ {
		sim.GenerateRule()
	}

	rules := sim.GetRules()
	assert.Greater(t, len(rules), 10, "should have at least half the rules despite faults")
}

func TestFaultInjector_Stats(t *testing.T) {
	rand := NewDeterministicRand(99999)
	injector := NewFaultInjector(rand)
	injector.DiskFullProbability = 1.0
	injector.CorruptionProbability = 1.0
	injector.CrashProbability = 1.0

	injector.ShouldInjectDiskFull()
	injector.ShouldInjectCorruption()
	injector.ShouldInjectCorruption()
	injector.ShouldInjectCrash()
	injector.ShouldInjectCrash()
	injector.ShouldInjectCrash()

	stats := injector.Stats()
	assert.Equal(t, 1, stats.DiskFullCount)
	assert.Equal(t, 2, stats.CorruptionCount)
	assert.Equal(t, 3, stats.CrashCount)
	assert.Equal(t, 6, stats.TotalFaults)
}

func BenchmarkFaultInjector(b *testing.B) {
	rand := NewDeterministicRand(12345)
	injector := NewFaultInjector(rand)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		injector.ShouldInjectCrash()
	}
}

func TestCrashScenario_String(t *testing.T) {
	scenarios := []CrashScenario{
		CrashBeforeWrite,
		CrashDuringWrite,
		CrashAfterWrite,
		CrashBeforeRename,
		CrashDuringRename,
		CrashAfterRename,
		CrashDuringSync,
		CrashRandomPoint,
	}

	for _, scenario := range scenarios {
		name := scenario.String()
		assert.NotEmpty(t, name)
		assert.NotEqual(t, "unknown", name)
	}
}

func TestFaultInjector_Disable(t *testing.T) {
	rand := NewDeterministicRand(11112)
	injector := NewFaultInjector(rand)
	injector.CrashProbability = 1.0

	assert.True(t, injector.ShouldInjectCrash())

	injector.Enabled = false
	assert.False(t, injector.ShouldInjectCrash())

	initialCount := injector.Stats().CrashCount
	injector.ShouldInjectCrash()
	assert.Equal(t, initialCount, injector.Stats().CrashCount)
}

func TestFaultProfile_Names(t *testing.T) {
	profiles := []FaultProfile{
		ConservativeProfile(),
		AggressiveProfile(),
		ChaosProfile(),
	}

	for _, profile := range profiles {
		assert.NotEmpty(t, profile.Name)
		assert.NotEmpty(t, profile.Description)
		assert.Greater(t, profile.CrashProbability, 0.0)
		assert.Less(t, profile.CrashProbability, 1.0)
	}
}

// Integration test: a full reason-call workload running under
// aggressive storage faults.
func TestSimulation_AggressiveFaults(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping aggressive fault test in short mode")
	}

	sim := NewSimulator(77778)
	sim.fs.injector.SetAggressiveMode()

	err := sim.Run(30*time.Second, time.Second)
	require.NoError(t, err)

	rules := sim.GetRules()
	assert.Greater(t, len(rules), 0, "should have created rules despite faults")

	stats := sim.Stats()
	assert.Greater(t, stats.ReasonCalls, 0, "should have run reason calls")

	sim.Report()
}
