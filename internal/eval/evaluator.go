// Package eval implements spec.md §4.2's Evaluator: AST node plus a Fact
// environment, Function Registry, and Temporal Store in, a Value or a
// typed Failure out. Grounded on the teacher's internal/rules/evaluator.go
// switch-over-node-type shape, generalized from span field access to the
// Ref/fact-environment model and the fuller operator set spec.md defines.
package eval

import (
	"context"

	"github.com/symbolica/symbolica/internal/ast"
	"github.com/symbolica/symbolica/pkg/fact"
	"github.com/symbolica/symbolica/pkg/value"
)

// Registry is the subset of the function registry the evaluator needs:
// resolving a name to a callable descriptor. internal/registry.Registry
// implements this.
type Registry interface {
	Lookup(name string) (Descriptor, bool)
}

// Descriptor is a registered function's calling contract.
type Descriptor struct {
	MinArity int
	MaxArity int // -1 means unbounded
	Impure   bool
	Call     func(ctx context.Context, args []value.Value) (value.Value, error)
}

// Evaluator evaluates AST nodes against a fact environment, a function
// registry, and (optionally) a temporal store consulted by the temporal
// built-ins registered in the registry.
type Evaluator struct {
	Registry Registry
}

// New creates an Evaluator bound to the given function registry.
func New(registry Registry) *Evaluator {
	return &Evaluator{Registry: registry}
}

// Eval evaluates node against env, returning the typed Failure on error
// (use eval.Kind to inspect it). ctx is threaded through to impure
// function calls so they observe cancellation and the per-call deadline.
// Eval itself never checks ctx.Err(): spec.md §5 checks cancellation
// between rule evaluations, not inside one, so a single condition or
// template tree always runs to completion once started.
func (e *Evaluator) Eval(ctx context.Context, node ast.Node, env *fact.Env) (value.Value, error) {
	switch n := node.(type) {
	case *ast.Literal:
		return n.Value, nil
	case *ast.Ref:
		v, ok := env.Lookup(n.Name)
		if !ok {
			return value.Null, &UndefinedField{Name: n.Name}
		}
		recordRead(ctx, n.Name, v)
		return v, nil
	case *ast.BinaryOp:
		return e.evalBinaryOp(ctx, n, env)
	case *ast.UnaryOp:
		return e.evalUnaryOp(ctx, n, env)
	case *ast.Call:
		return e.evalCall(ctx, n, env)
	case *ast.Index:
		return e.evalIndex(ctx, n, env)
	case *ast.MemberOf:
		return e.evalMemberOf(ctx, n, env)
	case *ast.Conditional:
		return e.evalConditional(ctx, n, env)
	case *ast.All:
		return e.evalAll(ctx, n, env)
	case *ast.Any:
		return e.evalAny(ctx, n, env)
	case *ast.Not:
		v, err := e.Eval(ctx, n.Child, env)
		if err != nil {
			return value.Null, err
		}
		return value.Bool(!v.Truthy()), nil
	default:
		return value.Null, &TypeError{Op: "eval", Detail: "unsupported node type"}
	}
}

// evalSafe evaluates node, collapsing UndefinedField to Null. Used only
// for the left operand of an `or` whose right operand is a literal — the
// `x or 0` idiom spec.md §4.2 carves out as an exception to the rule
// that a bare missing read is a failure.
func (e *Evaluator) evalSafe(ctx context.Context, node ast.Node, env *fact.Env) (value.Value, error) {
	v, err := e.Eval(ctx, node, env)
	if err != nil {
		if _, ok := err.(*UndefinedField); ok {
			return value.Null, nil
		}
		return value.Null, err
	}
	return v, nil
}

func (e *Evaluator) evalBinaryOp(ctx context.Context, n *ast.BinaryOp, env *fact.Env) (value.Value, error) {
	switch n.Op {
	case ast.OpAnd:
		left, err := e.Eval(ctx, n.Left, env)
		if err != nil {
			return value.Null, err
		}
		if !left.Truthy() {
			return value.Bool(false), nil
		}
		right, err := e.Eval(ctx, n.Right, env)
		if err != nil {
			return value.Null, err
		}
		return value.Bool(right.Truthy()), nil
	case ast.OpOr:
		safeRead := isSafeReadIdiom(n)
		var left value.Value
		var err error
		if safeRead {
			left, err = e.evalSafe(ctx, n.Left, env)
		} else {
			left, err = e.Eval(ctx, n.Left, env)
		}
		if err != nil {
			return value.Null, err
		}
		if left.Truthy() {
			return value.Bool(true), nil
		}
		right, err := e.Eval(ctx, n.Right, env)
		if err != nil {
			return value.Null, err
		}
		return value.Bool(right.Truthy()), nil
	}

	left, err := e.Eval(ctx, n.Left, env)
	if err != nil {
		return value.Null, err
	}
	right, err := e.Eval(ctx, n.Right, env)
	if err != nil {
		return value.Null, err
	}
	return evalBinaryValues(n.Op, left, right)
}

// isSafeReadIdiom reports whether node matches `Ref or <literal>`, the
// one shape spec.md §4.2 permits a missing read to default through.
func isSafeReadIdiom(n *ast.BinaryOp) bool {
	if n.Op != ast.OpOr {
		return false
	}
	if _, ok := n.Left.(*ast.Ref); !ok {
		return false
	}
	_, ok := n.Right.(*ast.Literal)
	return ok
}

func evalBinaryValues(op ast.BinaryOperator, left, right value.Value) (value.Value, error) {
	switch op {
	case ast.OpEq:
		return value.Bool(value.Equal(left, right)), nil
	case ast.OpNeq:
		return value.Bool(!value.Equal(left, right)), nil
	case ast.OpLt, ast.OpLte, ast.OpGt, ast.OpGte:
		cmp, err := value.Compare(left, right)
		if err != nil {
			return value.Null, &TypeError{Op: string(op), Detail: err.Error()}
		}
		switch op {
		case ast.OpLt:
			return value.Bool(cmp < 0), nil
		case ast.OpLte:
			return value.Bool(cmp <= 0), nil
		case ast.OpGt:
			return value.Bool(cmp > 0), nil
		default:
			return value.Bool(cmp >= 0), nil
		}
	case ast.OpAdd, ast.OpSub, ast.OpMul, ast.OpDiv, ast.OpMod:
		return evalArithmetic(op, left, right)
	default:
		return value.Null, &TypeError{Op: string(op), Detail: "unsupported binary operator"}
	}
}

func evalArithmetic(op ast.BinaryOperator, left, right value.Value) (value.Value, error) {
	if op == ast.OpAdd {
		if ls, ok := left.AsString(); ok {
			if rs, ok := right.AsString(); ok {
				return value.String(ls + rs), nil
			}
		}
	}
	if !left.IsNumeric() || !right.IsNumeric() {
		return value.Null, &TypeError{Op: string(op), Detail: "arithmetic requires numeric operands"}
	}
	li, lIsInt := left.AsInt()
	ri, rIsInt := right.AsInt()
	if lIsInt && rIsInt && op != ast.OpDiv {
		switch op {
		case ast.OpAdd:
			return value.Int(li + ri), nil
		case ast.OpSub:
			return value.Int(li - ri), nil
		case ast.OpMul:
			return value.Int(li * ri), nil
		case ast.OpMod:
			if ri == 0 {
				return value.Null, &DivisionByZero{}
			}
			return value.Int(li % ri), nil
		}
	}
	lf, _ := left.Float64()
	rf, _ := right.Float64()
	switch op {
	case ast.OpAdd:
		return value.Float(lf + rf), nil
	case ast.OpSub:
		return value.Float(lf - rf), nil
	case ast.OpMul:
		return value.Float(lf * rf), nil
	case ast.OpDiv:
		if rf == 0 {
			return value.Null, &DivisionByZero{}
		}
		return value.Float(lf / rf), nil
	case ast.OpMod:
		if rf == 0 {
			return value.Null, &DivisionByZero{}
		}
		return value.Float(float64(int64(lf) % int64(rf))), nil
	default:
		return value.Null, &TypeError{Op: string(op), Detail: "unsupported arithmetic operator"}
	}
}

func (e *Evaluator) evalUnaryOp(ctx context.Context, n *ast.UnaryOp, env *fact.Env) (value.Value, error) {
	v, err := e.Eval(ctx, n.Operand, env)
	if err != nil {
		return value.Null, err
	}
	switch n.Op {
	case ast.OpNot:
		return value.Bool(!v.Truthy()), nil
	case ast.OpNegate:
		if i, ok := v.AsInt(); ok {
			return value.Int(-i), nil
		}
		if f, ok := v.AsFloat(); ok {
			return value.Float(-f), nil
		}
		return value.Null, &TypeError{Op: "-", Detail: "negation requires a numeric operand"}
	default:
		return value.Null, &TypeError{Op: "unary", Detail: "unsupported unary operator"}
	}
}

func (e *Evaluator) evalCall(ctx context.Context, n *ast.Call, env *fact.Env) (value.Value, error) {
	desc, ok := e.Registry.Lookup(n.Name)
	if !ok {
		return value.Null, &UnknownFunction{Name: n.Name}
	}
	if len(n.Args) < desc.MinArity || (desc.MaxArity >= 0 && len(n.Args) > desc.MaxArity) {
		return value.Null, &ArityMismatch{Name: n.Name, Got: len(n.Args), Min: desc.MinArity, Max: desc.MaxArity}
	}
	args := make([]value.Value, len(n.Args))
	for i, a := range n.Args {
		v, err := e.Eval(ctx, a, env)
		if err != nil {
			return value.Null, err
		}
		args[i] = v
	}
	result, err := desc.Call(ctx, args)
	if err == nil {
		recordCall(ctx, n.Name, args)
	}
	return result, err
}

func (e *Evaluator) evalIndex(ctx context.Context, n *ast.Index, env *fact.Env) (value.Value, error) {
	container, err := e.Eval(ctx, n.Container, env)
	if err != nil {
		return value.Null, err
	}
	key, err := e.Eval(ctx, n.Key, env)
	if err != nil {
		return value.Null, err
	}
	if list, ok := container.AsList(); ok {
		idx, ok := key.AsInt()
		if !ok {
			return value.Null, &TypeError{Op: "index", Detail: "list index must be an integer"}
		}
		if idx < 0 || idx >= int64(len(list)) {
			return value.Null, &TypeError{Op: "index", Detail: "list index out of range"}
		}
		return list[idx], nil
	}
	if m, ok := container.AsMap(); ok {
		k, ok := key.AsString()
		if !ok {
			return value.Null, &TypeError{Op: "index", Detail: "map key must be a string"}
		}
		v, ok := m[k]
		if !ok {
			return value.Null, nil
		}
		return v, nil
	}
	return value.Null, &TypeError{Op: "index", Detail: "indexing requires a list or map"}
}

func (e *Evaluator) evalMemberOf(ctx context.Context, n *ast.MemberOf, env *fact.Env) (value.Value, error) {
	target, err := e.Eval(ctx, n.Value, env)
	if err != nil {
		return value.Null, err
	}
	list, err := e.Eval(ctx, n.List, env)
	if err != nil {
		return value.Null, err
	}
	items, ok := list.AsList()
	if !ok {
		return value.Null, &TypeError{Op: "in", Detail: "right operand of `in` must be a list"}
	}
	for _, item := range items {
		if value.Equal(target, item) {
			return value.Bool(true), nil
		}
	}
	return value.Bool(false), nil
}

func (e *Evaluator) evalConditional(ctx context.Context, n *ast.Conditional, env *fact.Env) (value.Value, error) {
	cond, err := e.Eval(ctx, n.Cond, env)
	if err != nil {
		return value.Null, err
	}
	if cond.Truthy() {
		return e.Eval(ctx, n.Then, env)
	}
	return e.Eval(ctx, n.Else, env)
}

func (e *Evaluator) evalAll(ctx context.Context, n *ast.All, env *fact.Env) (value.Value, error) {
	for _, child := range n.Children {
		v, err := e.Eval(ctx, child, env)
		if err != nil {
			return value.Null, err
		}
		if !v.Truthy() {
			return value.Bool(false), nil
		}
	}
	return value.Bool(true), nil
}

func (e *Evaluator) evalAny(ctx context.Context, n *ast.Any, env *fact.Env) (value.Value, error) {
	for _, child := range n.Children {
		v, err := e.Eval(ctx, child, env)
		if err != nil {
			return value.Null, err
		}
		if v.Truthy() {
			return value.Bool(true), nil
		}
	}
	return value.Bool(false), nil
}
