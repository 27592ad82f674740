package simulation

import (
	"context"
	"fmt"
	"time"

	"github.com/symbolica/symbolica/internal/executor"
	"github.com/symbolica/symbolica/internal/registry"
	"github.com/symbolica/symbolica/internal/storage"
	"github.com/symbolica/symbolica/internal/temporal"
	"github.com/symbolica/symbolica/pkg/fact"
	"github.com/symbolica/symbolica/pkg/rule"
	"github.com/symbolica/symbolica/pkg/value"
)

// Simulator drives a growing Rule Set and a stream of Reason calls
// against a virtual clock and a fault-injecting Rule Set store, so
// invariants.go's properties can be swept across many seeds instead of
// hand-written per case. Grounded on the teacher's Simulator (seeded
// rand, virtual clock, crash/restart of a rule store), re-pointed from
// span ingestion at Reason calls over generated Fact Maps.
type Simulator struct {
	seed  int64
	rand  *DeterministicRand
	clock *VirtualClock

	fs    *FaultyFileSystem
	store *storage.DiskRuleSetStore

	sources   []rule.Source
	compiled  *rule.Set
	compileOK bool

	exec *executor.Executor

	stats SimStats
}

// SimStats tallies activity across a Simulator's lifetime, the
// generated-workload analogue of the teacher's span/trace counters.
type SimStats struct {
	RulesGenerated int
	ReasonCalls    int
	RulesFired     int
	Crashes        int
}

// NewSimulator builds a Simulator seeded for reproducibility. All
// randomness, clock advancement, and fault injection flow from seed, so
// two simulators built from the same seed take identical actions.
func NewSimulator(seed int64) *Simulator {
	rnd := NewDeterministicRand(seed)
	clock := NewVirtualClock(time.Unix(1700000000, 0).UTC())

	injector := NewFaultInjector(rnd)
	fs := NewFaultyFileSystem(injector)

	store, err := storage.NewDiskRuleSetStoreWithFS("/data", fs)
	if err != nil {
		panic(fmt.Sprintf("simulation: failed to create rule set store: %v", err))
	}

	reg := registry.New(temporal.New(clock), clock, nil)

	sim := &Simulator{
		seed:  seed,
		rand:  rnd,
		clock: clock,
		fs:    fs,
		store: store,
		exec:  executor.New(reg, clock),
	}
	sim.recompile()
	return sim
}

// Seed returns the seed this Simulator was built from.
func (s *Simulator) Seed() int64 { return s.seed }

// Now returns the Simulator's current virtual time.
func (s *Simulator) Now() time.Time { return s.clock.Now() }

// Advance moves the virtual clock forward by d.
func (s *Simulator) Advance(d time.Duration) {
	s.clock.Advance(d)
}

// conditionFields, the candidate fact names GenerateRule draws
// conditions and actions from. A generated rule writes "out_" plus one
// of these names, which no generated condition reads, and carries no
// triggers, so generated rules do not feed one another.
var conditionFields = []string{"tier", "score", "amount", "flag_a", "flag_b", "region"}

// GenerateRule fabricates a pseudo-random rule.Source from the
// Simulator's seeded rand, appends it to the working set, persists the
// whole set (write-temp-then-rename, per DiskRuleSetStore), and
// recompiles. Mirrors the teacher's GenerateRule: a single call that
// both grows the rule set and exercises the persistence path.
func (s *Simulator) GenerateRule() rule.Source {
	id := fmt.Sprintf("gen_%d", s.stats.RulesGenerated)
	field := s.rand.Choice(conditionFields)
	threshold := s.rand.Intn(100)
	writeField := s.rand.Choice(conditionFields)

	src := rule.Source{
		ID:        id,
		Priority:  s.rand.Intn(1000),
		Condition: fmt.Sprintf("%s > %d", field, threshold),
		Actions: []rule.SourceAction{
			{Field: "out_" + writeField, Template: threshold},
		},
	}

	s.sources = append(s.sources, src)
	s.stats.RulesGenerated++
	_ = s.persistAndRecompile()
	return src
}

// GetRules returns the working rule set's sources (not necessarily the
// same slice that last compiled successfully under fault injection).
func (s *Simulator) GetRules() []rule.Source {
	out := make([]rule.Source, len(s.sources))
	copy(out, s.sources)
	return out
}

// persistAndRecompile saves the working sources through the (possibly
// faulty) store, then reloads and recompiles from whatever the store
// actually reports — so a fault that corrupts or truncates a write
// shows up as a real recompile failure, not a silently-ignored one.
func (s *Simulator) persistAndRecompile() error {
	if err := s.store.Save(s.sources); err != nil {
		return err
	}
	return s.recompile()
}

func (s *Simulator) recompile() error {
	sources, ok, err := s.store.Load()
	if err != nil {
		s.compileOK = false
		return err
	}
	if !ok {
		s.compiled = nil
		s.compileOK = true
		return nil
	}
	set, err := rule.CompileSet(sources)
	if err != nil {
		s.compileOK = false
		return err
	}
	s.compiled = set
	s.compileOK = true
	return nil
}

// CrashAndRestart simulates a process crash: drops the in-memory
// compiled set and reopens the store against the same (fault-injecting)
// filesystem, exactly as a restarted process would. Returns an error
// only when recovery itself fails to produce a usable Rule Set.
func (s *Simulator) CrashAndRestart() error {
	s.stats.Crashes++
	s.compiled = nil

	store, err := storage.NewDiskRuleSetStoreWithFS("/data", s.fs)
	if err != nil {
		return fmt.Errorf("reopen rule set store: %w", err)
	}
	s.store = store

	sources, ok, err := s.store.Load()
	if err != nil {
		return fmt.Errorf("recover rule set: %w", err)
	}
	if ok {
		s.sources = sources
	}
	return s.recompile()
}

// CreateRule compiles and installs a single ad hoc rule from a flat
// expression string, for invariants that want one specific rule rather
// than a generated batch.
func (s *Simulator) CreateRule(expr string) rule.Source {
	id := fmt.Sprintf("manual_%d", len(s.sources))
	src := rule.Source{
		ID:        id,
		Priority:  100,
		Condition: expr,
		Actions:   []rule.SourceAction{{Field: "matched", Template: true}},
	}
	s.sources = append(s.sources, src)
	_ = s.persistAndRecompile()
	return src
}

// randomFacts builds a Fact Map over conditionFields with random
// numeric values, the generated-workload analogue of the teacher's
// GenerateTrace.
func (s *Simulator) randomFacts() fact.Map {
	facts := make(fact.Map, len(conditionFields))
	for _, f := range conditionFields {
		facts[f] = value.Int(int64(s.rand.Intn(200)))
	}
	return facts
}

// ReasonOnce runs one Reason call against the currently compiled Rule
// Set and a freshly generated random Fact Map, tallying the result.
func (s *Simulator) ReasonOnce() (executor.Result, error) {
	if s.compiled == nil {
		return executor.Result{}, nil
	}
	s.stats.ReasonCalls++
	result, err := s.exec.Reason(context.Background(), s.compiled, s.randomFacts(), executor.Strategy{Permissive: true})
	if err != nil {
		return result, err
	}
	s.stats.RulesFired += len(result.Fired)
	return result, nil
}

// Run repeatedly generates rules and Reason calls for the given virtual
// duration, advancing the clock by step between iterations.
func (s *Simulator) Run(duration time.Duration, step time.Duration) error {
	if step <= 0 {
		step = time.Second
	}
	deadline := s.clock.Now().Add(duration)
	for s.clock.Now().Before(deadline) {
		if s.rand.Chance(0.3) {
			s.GenerateRule()
		}
		if _, err := s.ReasonOnce(); err != nil {
			return err
		}
		s.Advance(step)
	}
	return nil
}

// Stats returns a snapshot of activity counters.
func (s *Simulator) Stats() SimStats { return s.stats }

// Report prints a human-readable summary, matching the teacher's
// InvariantChecker.Report/FaultInjector.Report texture.
func (s *Simulator) Report() {
	fmt.Printf("\n=== Simulator Report (seed=%d) ===\n", s.seed)
	fmt.Printf("Rules generated: %d\n", s.stats.RulesGenerated)
	fmt.Printf("Reason calls: %d\n", s.stats.ReasonCalls)
	fmt.Printf("Rules fired: %d\n", s.stats.RulesFired)
	fmt.Printf("Crashes: %d\n", s.stats.Crashes)
	fmt.Printf("\n")
}
