// Package registry implements spec.md §4.3's Function Registry: a
// lookup table from function name to an arity/purity descriptor and a
// callable, pre-populated with the temporal built-ins (§4.7), null-check
// and coercion helpers, and the PROMPT hook. Host code registers
// additional functions through Register/RegisterUnsafe. Grounded on the
// teacher's CallExpr dispatch in internal/rules/evaluator.go, generalized
// from a closed switch statement to an open lookup table the way the
// osprey example wires a pre-compilation function environment for CEL.
package registry

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/symbolica/symbolica/internal/eval"
	"github.com/symbolica/symbolica/internal/temporal"
	"github.com/symbolica/symbolica/pkg/value"
)

// PromptAdapter is the host-supplied LLM backend for the PROMPT(...)
// built-in. Nil means no adapter is configured, in which case PROMPT
// always fails with eval.PromptUnavailable.
type PromptAdapter interface {
	Complete(ctx context.Context, template string, returnType string, maxTokens int) (value.Value, error)
}

// Registry is the mutable function table the Evaluator consults. The
// zero value is not usable; construct with New.
type Registry struct {
	functions map[string]eval.Descriptor
	prompt    PromptAdapter
}

// New builds a Registry with the built-in functions wired to store for
// the temporal family and adapter for PROMPT (nil is legal: PROMPT then
// always fails with PromptUnavailable, per spec.md §4.3).
func New(store *temporal.Store, clock temporal.Clock, adapter PromptAdapter) *Registry {
	r := &Registry{functions: make(map[string]eval.Descriptor), prompt: adapter}
	r.registerBuiltins(store, clock)
	return r
}

// Lookup implements eval.Registry.
func (r *Registry) Lookup(name string) (eval.Descriptor, bool) {
	d, ok := r.functions[name]
	return d, ok
}

// Register adds a pure host function. Re-registering a built-in name
// panics: built-ins are not meant to be silently shadowed.
func (r *Registry) Register(name string, minArity, maxArity int, fn func(ctx context.Context, args []value.Value) (value.Value, error)) {
	r.register(name, eval.Descriptor{MinArity: minArity, MaxArity: maxArity, Impure: false, Call: fn})
}

// RegisterUnsafe adds an impure host function (one with side effects or
// non-deterministic results, e.g. a network call). spec.md §4.3 requires
// this to be an explicit, separate registration path from Register.
func (r *Registry) RegisterUnsafe(name string, minArity, maxArity int, fn func(ctx context.Context, args []value.Value) (value.Value, error)) {
	r.register(name, eval.Descriptor{MinArity: minArity, MaxArity: maxArity, Impure: true, Call: fn})
}

func (r *Registry) register(name string, d eval.Descriptor) {
	if _, exists := r.functions[name]; exists {
		panic("registry: function " + name + " is already registered")
	}
	r.functions[name] = d
}

// IsImpure reports whether name is a registered impure function, so the
// dependency analyzer and executor can reason about suspension points
// (spec.md §5).
func (r *Registry) IsImpure(name string) bool {
	d, ok := r.functions[name]
	return ok && d.Impure
}

func (r *Registry) registerBuiltins(store *temporal.Store, clock temporal.Clock) {
	r.register("recent_avg", eval.Descriptor{MinArity: 2, MaxArity: 2, Call: temporalAggFn(clock, store.RecentAvg)})
	r.register("recent_max", eval.Descriptor{MinArity: 2, MaxArity: 2, Call: temporalAggFn(clock, store.RecentMax)})
	r.register("recent_min", eval.Descriptor{MinArity: 2, MaxArity: 2, Call: temporalAggFn(clock, store.RecentMin)})
	r.register("recent_count", eval.Descriptor{MinArity: 2, MaxArity: 2, Call: func(ctx context.Context, args []value.Value) (value.Value, error) {
		key, window, err := keyWindowArgs(args)
		if err != nil {
			return value.Null, err
		}
		return value.Int(int64(store.RecentCount(key, window, temporal.NowFromContext(ctx, clock)))), nil
	}})
	r.register("sustained_above", eval.Descriptor{MinArity: 3, MaxArity: 3, Call: sustainedFn(clock, store.SustainedAbove)})
	r.register("sustained_below", eval.Descriptor{MinArity: 3, MaxArity: 3, Call: sustainedFn(clock, store.SustainedBelow)})
	r.register("record", eval.Descriptor{MinArity: 2, MaxArity: 3, Impure: true, Call: func(ctx context.Context, args []value.Value) (value.Value, error) {
		key, ok := args[0].AsString()
		if !ok {
			return value.Null, &eval.TypeError{Op: "record", Detail: "key must be a string"}
		}
		v, ok := args[1].Float64()
		if !ok {
			return value.Null, &eval.TypeError{Op: "record", Detail: "value must be numeric"}
		}
		at := temporal.NowFromContext(ctx, clock)
		if len(args) > 2 {
			epochSeconds, ok := args[2].Float64()
			if !ok {
				return value.Null, &eval.TypeError{Op: "record", Detail: "at must be numeric (unix seconds)"}
			}
			at = time.Unix(0, int64(epochSeconds*float64(time.Second)))
		}
		store.Record(key, v, at)
		return value.Null, nil
	}})
	r.register("ttl_fact", eval.Descriptor{MinArity: 1, MaxArity: 1, Call: func(ctx context.Context, args []value.Value) (value.Value, error) {
		key, ok := args[0].AsString()
		if !ok {
			return value.Null, &eval.TypeError{Op: "ttl_fact", Detail: "key must be a string"}
		}
		v, ok := store.TTLFact(key, temporal.NowFromContext(ctx, clock))
		if !ok {
			return value.Null, nil
		}
		return value.Float(v), nil
	}})
	r.register("has_ttl_fact", eval.Descriptor{MinArity: 1, MaxArity: 1, Call: func(ctx context.Context, args []value.Value) (value.Value, error) {
		key, ok := args[0].AsString()
		if !ok {
			return value.Null, &eval.TypeError{Op: "has_ttl_fact", Detail: "key must be a string"}
		}
		return value.Bool(store.HasTTLFact(key, temporal.NowFromContext(ctx, clock))), nil
	}})

	r.register("is_null", eval.Descriptor{MinArity: 1, MaxArity: 1, Call: func(ctx context.Context, args []value.Value) (value.Value, error) {
		return value.Bool(args[0].IsNull()), nil
	}})
	r.register("coalesce", eval.Descriptor{MinArity: 1, MaxArity: -1, Call: func(ctx context.Context, args []value.Value) (value.Value, error) {
		for _, a := range args {
			if !a.IsNull() {
				return a, nil
			}
		}
		return value.Null, nil
	}})
	r.register("to_string", eval.Descriptor{MinArity: 1, MaxArity: 1, Call: func(ctx context.Context, args []value.Value) (value.Value, error) {
		return value.String(args[0].String()), nil
	}})
	r.register("to_number", eval.Descriptor{MinArity: 1, MaxArity: 1, Call: func(ctx context.Context, args []value.Value) (value.Value, error) {
		if args[0].IsNumeric() {
			return args[0], nil
		}
		s, ok := args[0].AsString()
		if !ok {
			return value.Null, &eval.TypeError{Op: "to_number", Detail: "argument must be numeric or string"}
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return value.Null, &eval.TypeError{Op: "to_number", Detail: fmt.Sprintf("cannot parse %q as a number", s)}
		}
		return value.Float(f), nil
	}})

	r.register("PROMPT", eval.Descriptor{MinArity: 1, MaxArity: 3, Impure: true, Call: r.prompFn})
}

type promptCacheKey struct{}

// WithPromptCache attaches a fresh per-call memoization table to ctx.
// spec.md §9 Open Question (b) leaves PROMPT caching within one reason()
// call as "recommended, not required"; the executor calls this once per
// Reason so repeated PROMPT calls with identical arguments in the same
// call reuse the first adapter response instead of re-invoking it.
func WithPromptCache(ctx context.Context) context.Context {
	return context.WithValue(ctx, promptCacheKey{}, &sync.Map{})
}

func promptCacheFromContext(ctx context.Context) *sync.Map {
	m, _ := ctx.Value(promptCacheKey{}).(*sync.Map)
	return m
}

func (r *Registry) prompFn(ctx context.Context, args []value.Value) (value.Value, error) {
	if r.prompt == nil {
		return value.Null, &eval.PromptUnavailable{}
	}
	template, ok := args[0].AsString()
	if !ok {
		return value.Null, &eval.TypeError{Op: "PROMPT", Detail: "template must be a string"}
	}
	returnType := "string"
	if len(args) > 1 {
		if rt, ok := args[1].AsString(); ok {
			returnType = rt
		}
	}
	maxTokens := 0
	if len(args) > 2 {
		if mt, ok := args[2].AsInt(); ok {
			maxTokens = int(mt)
		}
	}

	cache := promptCacheFromContext(ctx)
	key := fmt.Sprintf("%s\x00%s\x00%d", template, returnType, maxTokens)
	if cache != nil {
		if cached, ok := cache.Load(key); ok {
			entry := cached.(promptCacheEntry)
			return entry.value, entry.err
		}
	}

	v, err := r.prompt.Complete(ctx, template, returnType, maxTokens)
	if err != nil {
		err = &eval.PromptError{Cause: err}
		v = value.Null
	}
	if cache != nil {
		cache.Store(key, promptCacheEntry{value: v, err: err})
	}
	return v, err
}

type promptCacheEntry struct {
	value value.Value
	err   error
}

func keyWindowArgs(args []value.Value) (string, time.Duration, error) {
	key, ok := args[0].AsString()
	if !ok {
		return "", 0, &eval.TypeError{Op: "temporal", Detail: "key must be a string"}
	}
	seconds, ok := args[1].Float64()
	if !ok {
		return "", 0, &eval.TypeError{Op: "temporal", Detail: "window_seconds must be numeric"}
	}
	return key, time.Duration(seconds * float64(time.Second)), nil
}

func temporalAggFn(clock temporal.Clock, agg func(key string, window time.Duration, now time.Time) (float64, bool)) func(context.Context, []value.Value) (value.Value, error) {
	return func(ctx context.Context, args []value.Value) (value.Value, error) {
		key, window, err := keyWindowArgs(args)
		if err != nil {
			return value.Null, err
		}
		v, ok := agg(key, window, temporal.NowFromContext(ctx, clock))
		if !ok {
			return value.Null, nil
		}
		return value.Float(v), nil
	}
}

func sustainedFn(clock temporal.Clock, sustained func(key string, threshold float64, window time.Duration, now time.Time) bool) func(context.Context, []value.Value) (value.Value, error) {
	return func(ctx context.Context, args []value.Value) (value.Value, error) {
		key, ok := args[0].AsString()
		if !ok {
			return value.Null, &eval.TypeError{Op: "sustained", Detail: "key must be a string"}
		}
		threshold, ok := args[1].Float64()
		if !ok {
			return value.Null, &eval.TypeError{Op: "sustained", Detail: "threshold must be numeric"}
		}
		seconds, ok := args[2].Float64()
		if !ok {
			return value.Null, &eval.TypeError{Op: "sustained", Detail: "window_seconds must be numeric"}
		}
		window := time.Duration(seconds * float64(time.Second))
		return value.Bool(sustained(key, threshold, window, temporal.NowFromContext(ctx, clock))), nil
	}
}
