package simulation

import (
	"fmt"
	"os"
	"strconv"
	"testing"
	"time"
)

// TestFuzzChaosMode runs the simulator with CHAOS-level fault injection.
func TestFuzzChaosMode(t *testing.T) {
	seed := getChaosSeedFromEnv(t)
	t.Logf("[CHAOS TEST] seed=%d", seed)

	sim := NewSimulator(seed)

	injector := sim.fs.injector
	injector.ApplyProfile(ChaosProfile())

	t.Logf("[FAULT PROFILE] CHAOS")
	t.Logf("  crash: %.0f%%", injector.CrashProbability*100)
	t.Logf("  disk full: %.0f%%", injector.DiskFullProbability*100)

	for i := 0; i < 30; i++ {
		sim.GenerateRule()
	}

	rulesAfterCreation := len(sim.GetRules())
	t.Logf("[CREATION] created %d rules", rulesAfterCreation)

	crashCount := 20
	var errors []string

	for crashNum := 0; crashNum < crashCount; crashNum++ {
		if err := sim.CrashAndRestart(); err != nil {
			errors = append(errors, fmt.Sprintf("crash %d failed: %v", crashNum+1, err))
		}

		rulesNow := len(sim.GetRules())
		if rulesNow < rulesAfterCreation-10 {
			errors = append(errors, fmt.Sprintf("excessive loss: had %d, now %d", rulesAfterCreation, rulesNow))
		}
	}

	stats := injector.Stats()
	failureRate := float64(len(errors)) / float64(crashCount)

	t.Logf("[RESULT] chaos test completed")
	t.Logf("  crashes: %d", crashCount)
	t.Logf("  recoveries: %d", crashCount-len(errors))
	t.Logf("  failures: %d", len(errors))
	t.Logf("  total faults: %d", stats.TotalFaults)

	if failureRate > 0.5 {
		t.Fatalf("CHAOS_SEED=%d failed: %.0f%% failure rate", seed, failureRate*100)
	}

	t.Logf("chaos survived: %.0f%% uptime", (1-failureRate)*100)
}

func getChaosSeedFromEnv(t *testing.T) int64 {
	if seedStr := os.Getenv("CHAOS_SEED"); seedStr != "" {
		if seed, err := strconv.ParseInt(seedStr, 10, 64); err == nil {
			return seed
		}
	}
	seed := time.Now().UnixNano() % 1000000
	t.Logf("[CHAOS] random seed: %d", seed)
	return seed
}
