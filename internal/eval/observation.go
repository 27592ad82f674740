package eval

import (
	"context"

	"github.com/symbolica/symbolica/pkg/value"
)

// CallRecord is one resolved function call made during a rule
// evaluation: the name invoked and the arguments it was given.
type CallRecord struct {
	Name string
	Args []value.Value
}

// Observation is spec.md §4.2's per-evaluation observation log: every
// successful field read and every call made while evaluating one
// rule's condition and actions. The executor attaches it to that
// rule's trace entry.
type Observation struct {
	Reads map[string]value.Value
	Calls []CallRecord
}

type observationKey struct{}

// WithObservation attaches a fresh Observation to ctx, scoped to one
// rule evaluation, and returns both the new context and the recorder so
// the caller can read it back once evaluation finishes.
func WithObservation(ctx context.Context) (context.Context, *Observation) {
	obs := &Observation{Reads: make(map[string]value.Value)}
	return context.WithValue(ctx, observationKey{}, obs), obs
}

func observationFrom(ctx context.Context) *Observation {
	obs, _ := ctx.Value(observationKey{}).(*Observation)
	return obs
}

// recordRead appends a successful field read to ctx's Observation, if
// one is attached.
func recordRead(ctx context.Context, name string, v value.Value) {
	if obs := observationFrom(ctx); obs != nil {
		obs.Reads[name] = v
	}
}

// recordCall appends a successful call to ctx's Observation, if one is
// attached.
func recordCall(ctx context.Context, name string, args []value.Value) {
	if obs := observationFrom(ctx); obs != nil {
		argsCopy := make([]value.Value, len(args))
		copy(argsCopy, args)
		obs.Calls = append(obs.Calls, CallRecord{Name: name, Args: argsCopy})
	}
}
