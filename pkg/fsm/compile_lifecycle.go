package fsm

import (
	"fmt"
	"sync"
)

// CompileState is a Rule's position in the compile pipeline spec.md §3
// implies (parse → analyze → ready for scheduling), adapted from the
// teacher's RuleLifecycleState CRUD/persistence states to a one-way
// pipeline: a compiled Rule is immutable, so there is no Updating or
// Deleting state to model here.
type CompileState int

const (
	StateDraft CompileState = iota
	StateParsed
	StateAnalyzed
	StateReady
	StateRejected
)

func (s CompileState) String() string {
	switch s {
	case StateDraft:
		return "draft"
	case StateParsed:
		return "parsed"
	case StateAnalyzed:
		return "analyzed"
	case StateReady:
		return "ready"
	case StateRejected:
		return "rejected"
	default:
		return fmt.Sprintf("unknown(%d)", s)
	}
}

// CompileEvent drives a CompileFSM's transitions.
type CompileEvent int

const (
	EventParse CompileEvent = iota
	EventParseFailed
	EventAnalyze
	EventAnalyzeFailed
	EventActivate
)

func (e CompileEvent) String() string {
	switch e {
	case EventParse:
		return "parse"
	case EventParseFailed:
		return "parse_failed"
	case EventAnalyze:
		return "analyze"
	case EventAnalyzeFailed:
		return "analyze_failed"
	case EventActivate:
		return "activate"
	default:
		return fmt.Sprintf("unknown_event(%d)", e)
	}
}

// InvalidTransitionError indicates an illegal compile-state transition.
type InvalidTransitionError struct {
	RuleID string
	From   CompileState
	Event  CompileEvent
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("rule %s: invalid compile transition from %s via event %s",
		e.RuleID, e.From, e.Event)
}

// CompileFSM tracks one rule's progress through the compile pipeline.
// `Rejected` is terminal: a rule that fails parsing or analysis is never
// retried in place, since spec.md §3 rules are immutable once compiled —
// callers recompile a corrected rule as a new value.
type CompileFSM struct {
	mu     sync.RWMutex
	ruleID string
	state  CompileState
}

// NewCompileFSM creates an FSM for ruleID, starting in StateDraft.
func NewCompileFSM(ruleID string) *CompileFSM {
	return &CompileFSM{ruleID: ruleID, state: StateDraft}
}

// State returns the current state.
func (f *CompileFSM) State() CompileState {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.state
}

// Transition attempts to move the FSM via event, returning
// InvalidTransitionError if the current state does not accept it.
func (f *CompileFSM) Transition(event CompileEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	next, ok := validTransitions[f.state][event]
	if !ok {
		return &InvalidTransitionError{RuleID: f.ruleID, From: f.state, Event: event}
	}
	f.state = next
	return nil
}

var validTransitions = map[CompileState]map[CompileEvent]CompileState{
	StateDraft: {
		EventParse:       StateParsed,
		EventParseFailed: StateRejected,
	},
	StateParsed: {
		EventAnalyze:       StateAnalyzed,
		EventAnalyzeFailed: StateRejected,
	},
	StateAnalyzed: {
		EventActivate: StateReady,
	},
}

// Registry tracks a CompileFSM per rule id, the way the teacher's
// RuleLifecycleRegistry tracks one FSM per persisted rule.
type Registry struct {
	mu   sync.RWMutex
	fsms map[string]*CompileFSM
}

// NewRegistry creates an empty FSM registry.
func NewRegistry() *Registry {
	return &Registry{fsms: make(map[string]*CompileFSM)}
}

// Get retrieves or lazily creates the FSM for ruleID.
func (r *Registry) Get(ruleID string) *CompileFSM {
	r.mu.Lock()
	defer r.mu.Unlock()
	if f, ok := r.fsms[ruleID]; ok {
		return f
	}
	f := NewCompileFSM(ruleID)
	r.fsms[ruleID] = f
	return f
}

// Snapshot returns every tracked rule's current state.
func (r *Registry) Snapshot() map[string]CompileState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]CompileState, len(r.fsms))
	for id, f := range r.fsms {
		out[id] = f.State()
	}
	return out
}
