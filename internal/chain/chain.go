// Package chain implements spec.md §4.6's Backward Chainer: a static
// reachability analysis over a compiled Rule Set that answers "which
// rules could produce this goal" and "could the rule set, given these
// facts, ever reach it" without executing any action. Grounded on the
// goal/subgoal recursive search shape in other_examples'
// kevinawalsh-datalog dlengine.go (a text Datalog engine's goal-directed
// proof search), adapted from clause resolution over a literal database
// to read/write-set resolution over a rule's condition AST, with
// sourcegraph/conc fanning independent subgoal branches out concurrently
// since an OR-reduction over sibling candidates is order-independent.
package chain

import (
	"sync"

	"github.com/sourcegraph/conc/pool"

	"github.com/symbolica/symbolica/internal/ast"
	"github.com/symbolica/symbolica/pkg/fact"
	"github.com/symbolica/symbolica/pkg/rule"
	"github.com/symbolica/symbolica/pkg/value"
)

// maxDepth bounds the subgoal DFS so a rule set with many interdependent
// writers cannot recurse unboundedly (spec.md §4.6: "depth-bounded DFS").
const maxDepth = 64

// Goal is a mapping of desired output field names to desired values. A
// nil value for a field means "any value" — spec.md §4.6 permits a goal
// to be "just the set of field names".
type Goal map[string]*value.Value

// FieldGoal builds a Goal over field names with no specific target
// value, the "just the set of field names" form spec.md §4.6 allows.
func FieldGoal(fields ...string) Goal {
	g := make(Goal, len(fields))
	for _, f := range fields {
		g[f] = nil
	}
	return g
}

// RulesForGoal returns every rule whose write set intersects goal's
// fields and whose action template for that field could produce the
// requested value: a literal-to-literal match must be exact, a
// non-literal template matches conservatively (spec.md §4.6).
func RulesForGoal(set *rule.Set, goal Goal) []*rule.Rule {
	seen := make(map[string]bool)
	var out []*rule.Rule
	for field, want := range goal {
		for _, r := range set.WritersOf(field) {
			if seen[r.ID] {
				continue
			}
			if ruleCanProduce(r, field, want) {
				seen[r.ID] = true
				out = append(out, r)
			}
		}
	}
	return out
}

func ruleCanProduce(r *rule.Rule, field string, want *value.Value) bool {
	for _, a := range r.Actions {
		if a.Field != field {
			continue
		}
		if templateCanProduce(a.Template, want) {
			return true
		}
	}
	return false
}

// templateCanProduce reports whether tmpl could evaluate to want. A
// literal template must match exactly; any other template shape is
// assumed able to produce any value (conservative over-approximation,
// since the chainer never executes templates).
func templateCanProduce(tmpl ast.Node, want *value.Value) bool {
	if want == nil {
		return true
	}
	lit, ok := tmpl.(*ast.Literal)
	if !ok {
		return true
	}
	return value.Equal(lit.Value, *want)
}

// chainer carries the memo table and rule set for one CanAchieve call.
// Memoizing on (ruleID, field) both bounds repeated work and breaks
// cycles that can arise when two rules' write sets mutually satisfy
// each other's missing reads.
type chainer struct {
	set *rule.Set

	mu   sync.Mutex
	memo map[string]bool
}

// CanAchieve reports whether some rule's write set could, starting from
// facts and recursively filling in missing inputs from upstream writers,
// produce the goal (spec.md §4.6). It never evaluates a function call or
// executes an action — purely a structural possibility search.
func CanAchieve(set *rule.Set, goal Goal, facts fact.Map) bool {
	c := &chainer{set: set, memo: make(map[string]bool)}

	type job struct {
		field string
		want  *value.Value
	}
	var jobs []job
	for field, want := range goal {
		jobs = append(jobs, job{field: field, want: want})
	}

	p := pool.NewWithResults[bool]()
	for _, j := range jobs {
		j := j
		p.Go(func() bool {
			return c.canAchieveField(j.field, j.want, facts, 0)
		})
	}
	for _, achieved := range p.Wait() {
		if achieved {
			return true
		}
	}
	return false
}

func (c *chainer) canAchieveField(field string, want *value.Value, facts fact.Map, depth int) bool {
	if depth > maxDepth {
		return false
	}
	for _, r := range c.set.WritersOf(field) {
		if !ruleCanProduce(r, field, want) {
			continue
		}
		key := r.ID + "\x00" + field
		c.mu.Lock()
		if v, ok := c.memo[key]; ok {
			c.mu.Unlock()
			if v {
				return true
			}
			continue
		}
		c.memo[key] = false // provisional, guards against cycles
		c.mu.Unlock()

		if c.ruleCouldFire(r, facts, depth) {
			c.mu.Lock()
			c.memo[key] = true
			c.mu.Unlock()
			return true
		}
	}
	return false
}

// tristate is the three-valued logic spec.md §4.6 needs to treat a
// missing-field comparison as "indeterminate-true" rather than an
// outright failure.
type tristate int

const (
	triFalse tristate = iota
	triTrue
	triMaybe
)

func fromBool(b bool) tristate {
	if b {
		return triTrue
	}
	return triFalse
}

// ruleCouldFire evaluates r's condition optimistically against facts:
// a missing Ref is indeterminate-true for the comparison it feeds, and
// is independently recursed on as a subgoal for an upstream writer
// (spec.md §4.6's "recursively, the missing inputs are themselves
// treated as goals"). A function Call is never invoked — this is a
// static analysis — so it is always indeterminate.
func (c *chainer) ruleCouldFire(r *rule.Rule, facts fact.Map, depth int) bool {
	missing := make(map[string]bool)
	result := c.tristateEval(r.Condition, facts, missing)
	if result == triFalse {
		return false
	}
	for name := range missing {
		if !c.canAchieveField(name, nil, facts, depth+1) {
			return false
		}
	}
	return true
}

func (c *chainer) tristateEval(n ast.Node, facts fact.Map, missing map[string]bool) tristate {
	switch node := n.(type) {
	case *ast.Literal:
		return fromBool(node.Value.Truthy())
	case *ast.Ref:
		if v, ok := facts[node.Name]; ok {
			return fromBool(v.Truthy())
		}
		missing[node.Name] = true
		return triMaybe
	case *ast.UnaryOp:
		if node.Op == ast.OpNot {
			return negate(c.tristateEval(node.Operand, facts, missing))
		}
		return triMaybe
	case *ast.BinaryOp:
		return c.tristateBinary(node, facts, missing)
	case *ast.Call:
		for _, a := range node.Args {
			c.tristateEval(a, facts, missing) // collect any missing refs in arguments
		}
		return triMaybe
	case *ast.Index, *ast.MemberOf:
		return triMaybe
	case *ast.Conditional:
		cond := c.tristateEval(node.Cond, facts, missing)
		then := c.tristateEval(node.Then, facts, missing)
		els := c.tristateEval(node.Else, facts, missing)
		switch cond {
		case triTrue:
			return then
		case triFalse:
			return els
		default:
			if then == els {
				return then
			}
			return triMaybe
		}
	case *ast.All:
		return c.tristateAll(node.Children, facts, missing)
	case *ast.Any:
		return c.tristateAny(node.Children, facts, missing)
	case *ast.Not:
		return negate(c.tristateEval(node.Child, facts, missing))
	default:
		return triMaybe
	}
}

func (c *chainer) tristateBinary(n *ast.BinaryOp, facts fact.Map, missing map[string]bool) tristate {
	switch n.Op {
	case ast.OpAnd:
		return triAnd(c.tristateEval(n.Left, facts, missing), c.tristateEval(n.Right, facts, missing))
	case ast.OpOr:
		return triOr(c.tristateEval(n.Left, facts, missing), c.tristateEval(n.Right, facts, missing))
	case ast.OpEq, ast.OpNeq, ast.OpLt, ast.OpLte, ast.OpGt, ast.OpGte:
		leftKnown := refKnown(n.Left, facts, missing)
		rightKnown := refKnown(n.Right, facts, missing)
		if !leftKnown || !rightKnown {
			return triMaybe
		}
		left, lok := literalOrFactValue(n.Left, facts)
		right, rok := literalOrFactValue(n.Right, facts)
		if !lok || !rok {
			return triMaybe
		}
		return fromBool(compareKnown(n.Op, left, right))
	default:
		// Arithmetic inside a condition (rare, e.g. `a + b > 0`): missing
		// operands make the whole comparison indeterminate; we don't
		// attempt partial arithmetic.
		c.tristateEval(n.Left, facts, missing)
		c.tristateEval(n.Right, facts, missing)
		return triMaybe
	}
}

func (c *chainer) tristateAll(children []ast.Node, facts fact.Map, missing map[string]bool) tristate {
	result := triTrue
	for _, child := range children {
		result = triAnd(result, c.tristateEval(child, facts, missing))
	}
	return result
}

func (c *chainer) tristateAny(children []ast.Node, facts fact.Map, missing map[string]bool) tristate {
	result := triFalse
	for _, child := range children {
		result = triOr(result, c.tristateEval(child, facts, missing))
	}
	return result
}

func negate(t tristate) tristate {
	switch t {
	case triTrue:
		return triFalse
	case triFalse:
		return triTrue
	default:
		return triMaybe
	}
}

func triAnd(a, b tristate) tristate {
	if a == triFalse || b == triFalse {
		return triFalse
	}
	if a == triMaybe || b == triMaybe {
		return triMaybe
	}
	return triTrue
}

func triOr(a, b tristate) tristate {
	if a == triTrue || b == triTrue {
		return triTrue
	}
	if a == triMaybe || b == triMaybe {
		return triMaybe
	}
	return triFalse
}

// refKnown reports whether node is a Ref whose name is bound in facts,
// or not a Ref at all (a literal, always known).
func refKnown(node ast.Node, facts fact.Map, missing map[string]bool) bool {
	ref, ok := node.(*ast.Ref)
	if !ok {
		return true
	}
	if _, ok := facts[ref.Name]; ok {
		return true
	}
	missing[ref.Name] = true
	return false
}

func literalOrFactValue(node ast.Node, facts fact.Map) (value.Value, bool) {
	switch n := node.(type) {
	case *ast.Literal:
		return n.Value, true
	case *ast.Ref:
		v, ok := facts[n.Name]
		return v, ok
	default:
		return value.Null, false
	}
}

func compareKnown(op ast.BinaryOperator, left, right value.Value) bool {
	switch op {
	case ast.OpEq:
		return value.Equal(left, right)
	case ast.OpNeq:
		return !value.Equal(left, right)
	}
	cmp, err := value.Compare(left, right)
	if err != nil {
		return false
	}
	switch op {
	case ast.OpLt:
		return cmp < 0
	case ast.OpLte:
		return cmp <= 0
	case ast.OpGt:
		return cmp > 0
	case ast.OpGte:
		return cmp >= 0
	default:
		return false
	}
}
