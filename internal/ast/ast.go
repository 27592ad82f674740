// Package ast defines the expression AST node variants and the typed
// failures raised while evaluating them (spec.md §4.1, §4.2).
//
// The node set mirrors the teacher's internal/rules/ast.go (BinaryExpr,
// UnaryExpr, FieldAccess, IndexAccess, Literal, CallExpr) generalized to
// a Ref-over-flat-environment model instead of span-field access, plus
// the structured combinators and the ternary/member forms spec.md adds.
package ast

import (
	"fmt"
	"strings"

	"github.com/symbolica/symbolica/pkg/value"
)

// BinaryOperator enumerates the binary operators spec.md §4.1 defines.
type BinaryOperator string

const (
	OpAdd      BinaryOperator = "+"
	OpSub      BinaryOperator = "-"
	OpMul      BinaryOperator = "*"
	OpDiv      BinaryOperator = "/"
	OpMod      BinaryOperator = "%"
	OpEq       BinaryOperator = "=="
	OpNeq      BinaryOperator = "!="
	OpLt       BinaryOperator = "<"
	OpLte      BinaryOperator = "<="
	OpGt       BinaryOperator = ">"
	OpGte      BinaryOperator = ">="
	OpAnd      BinaryOperator = "and"
	OpOr       BinaryOperator = "or"
)

// UnaryOperator enumerates the unary operators spec.md §4.1 defines.
type UnaryOperator string

const (
	OpNot    UnaryOperator = "not"
	OpNegate UnaryOperator = "-"
)

// Node is the common interface implemented by every AST node.
type Node interface {
	node()
	String() string
}

// Literal is a constant Value baked into the AST at parse time.
type Literal struct {
	Value value.Value
}

func (*Literal) node() {}
func (l *Literal) String() string { return l.Value.String() }

// Ref reads a name from the fact environment.
type Ref struct {
	Name string
}

func (*Ref) node() {}
func (r *Ref) String() string { return r.Name }

// BinaryOp applies a binary operator to two evaluated operands.
type BinaryOp struct {
	Op    BinaryOperator
	Left  Node
	Right Node
}

func (*BinaryOp) node() {}
func (b *BinaryOp) String() string {
	return fmt.Sprintf("(%s %s %s)", b.Left, b.Op, b.Right)
}

// UnaryOp applies a unary operator to one operand.
type UnaryOp struct {
	Op      UnaryOperator
	Operand Node
}

func (*UnaryOp) node() {}
func (u *UnaryOp) String() string {
	return fmt.Sprintf("(%s %s)", u.Op, u.Operand)
}

// Call invokes a registered function by name with evaluated arguments.
type Call struct {
	Name string
	Args []Node
}

func (*Call) node() {}
func (c *Call) String() string {
	parts := make([]string, len(c.Args))
	for i, a := range c.Args {
		parts[i] = a.String()
	}
	return fmt.Sprintf("%s(%s)", c.Name, strings.Join(parts, ", "))
}

// Index is both list-index and map-key access: container[key].
type Index struct {
	Container Node
	Key       Node
}

func (*Index) node() {}
func (i *Index) String() string { return fmt.Sprintf("%s[%s]", i.Container, i.Key) }

// MemberOf implements the `in` operator: value in list.
type MemberOf struct {
	Value Node
	List  Node
}

func (*MemberOf) node() {}
func (m *MemberOf) String() string { return fmt.Sprintf("%s in %s", m.Value, m.List) }

// Conditional is the ternary form: cond ? then : else.
type Conditional struct {
	Cond Node
	Then Node
	Else Node
}

func (*Conditional) node() {}
func (c *Conditional) String() string {
	return fmt.Sprintf("(%s ? %s : %s)", c.Cond, c.Then, c.Else)
}

// All is the structured {all: [...]} combinator: true iff every child is
// truthy, short-circuiting on the first falsy child.
type All struct {
	Children []Node
}

func (*All) node() {}
func (a *All) String() string {
	parts := make([]string, len(a.Children))
	for i, c := range a.Children {
		parts[i] = c.String()
	}
	return "all(" + strings.Join(parts, ", ") + ")"
}

// Any is the structured {any: [...]} combinator: true iff some child is
// truthy, short-circuiting on the first truthy child.
type Any struct {
	Children []Node
}

func (*Any) node() {}
func (a *Any) String() string {
	parts := make([]string, len(a.Children))
	for i, c := range a.Children {
		parts[i] = c.String()
	}
	return "any(" + strings.Join(parts, ", ") + ")"
}

// Not is the structured {not: ...} combinator.
type Not struct {
	Child Node
}

func (*Not) node() {}
func (n *Not) String() string { return "not(" + n.Child.String() + ")" }

// Walk calls fn for node and every descendant, depth-first. Used by the
// dependency analyzer to collect Ref and Call names.
func Walk(n Node, fn func(Node)) {
	if n == nil {
		return
	}
	fn(n)
	switch t := n.(type) {
	case *Literal, *Ref:
		// leaves
	case *BinaryOp:
		Walk(t.Left, fn)
		Walk(t.Right, fn)
	case *UnaryOp:
		Walk(t.Operand, fn)
	case *Call:
		for _, a := range t.Args {
			Walk(a, fn)
		}
	case *Index:
		Walk(t.Container, fn)
		Walk(t.Key, fn)
	case *MemberOf:
		Walk(t.Value, fn)
		Walk(t.List, fn)
	case *Conditional:
		Walk(t.Cond, fn)
		Walk(t.Then, fn)
		Walk(t.Else, fn)
	case *All:
		for _, c := range t.Children {
			Walk(c, fn)
		}
	case *Any:
		for _, c := range t.Children {
			Walk(c, fn)
		}
	case *Not:
		Walk(t.Child, fn)
	}
}
