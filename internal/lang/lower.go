package lang

import (
	"fmt"
	"strings"

	"github.com/symbolica/symbolica/internal/ast"
	"github.com/symbolica/symbolica/pkg/value"
)

// lower converts the participle parse tree into the canonical ast.Node
// the rest of the engine operates on, keeping the grammar package's
// structs private to parsing.

func lowerExpr(g *grammarExpr) (ast.Node, error) {
	cond, err := lowerOr(g.Cond)
	if err != nil {
		return nil, err
	}
	if g.Then == nil {
		return cond, nil
	}
	then, err := lowerExpr(g.Then)
	if err != nil {
		return nil, err
	}
	els, err := lowerExpr(g.Else)
	if err != nil {
		return nil, err
	}
	return &ast.Conditional{Cond: cond, Then: then, Else: els}, nil
}

func lowerOr(g *grammarOr) (ast.Node, error) {
	left, err := lowerAnd(g.Left)
	if err != nil {
		return nil, err
	}
	for _, r := range g.Rest {
		right, err := lowerAnd(r.Right)
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryOp{Op: ast.OpOr, Left: left, Right: right}
	}
	return left, nil
}

func lowerAnd(g *grammarAnd) (ast.Node, error) {
	left, err := lowerComparison(g.Left)
	if err != nil {
		return nil, err
	}
	for _, r := range g.Rest {
		right, err := lowerComparison(r.Right)
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryOp{Op: ast.OpAnd, Left: left, Right: right}
	}
	return left, nil
}

func lowerComparison(g *grammarComparison) (ast.Node, error) {
	left, err := lowerAdditive(g.Left)
	if err != nil {
		return nil, err
	}
	for _, r := range g.Rest {
		right, err := lowerAdditive(r.Right)
		if err != nil {
			return nil, err
		}
		if r.Op == "in" {
			left = &ast.MemberOf{Value: left, List: right}
			continue
		}
		left = &ast.BinaryOp{Op: ast.BinaryOperator(r.Op), Left: left, Right: right}
	}
	return left, nil
}

func lowerAdditive(g *grammarAdditive) (ast.Node, error) {
	left, err := lowerMultiplicative(g.Left)
	if err != nil {
		return nil, err
	}
	for _, r := range g.Rest {
		right, err := lowerMultiplicative(r.Right)
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryOp{Op: ast.BinaryOperator(r.Op), Left: left, Right: right}
	}
	return left, nil
}

func lowerMultiplicative(g *grammarMultiplicative) (ast.Node, error) {
	left, err := lowerUnary(g.Left)
	if err != nil {
		return nil, err
	}
	for _, r := range g.Rest {
		right, err := lowerUnary(r.Right)
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryOp{Op: ast.BinaryOperator(r.Op), Left: left, Right: right}
	}
	return left, nil
}

func lowerUnary(g *grammarUnary) (ast.Node, error) {
	operand, err := lowerPostfix(g.Operand)
	if err != nil {
		return nil, err
	}
	switch g.Op {
	case "":
		return operand, nil
	case "not":
		return &ast.UnaryOp{Op: ast.OpNot, Operand: operand}, nil
	case "-":
		return &ast.UnaryOp{Op: ast.OpNegate, Operand: operand}, nil
	default:
		return nil, fmt.Errorf("unknown unary operator %q", g.Op)
	}
}

func lowerPostfix(g *grammarPostfix) (ast.Node, error) {
	n, err := lowerPrimary(g.Primary)
	if err != nil {
		return nil, err
	}
	for _, idxExpr := range g.Indices {
		key, err := lowerExpr(idxExpr)
		if err != nil {
			return nil, err
		}
		n = &ast.Index{Container: n, Key: key}
	}
	return n, nil
}

func lowerPrimary(g *grammarPrimary) (ast.Node, error) {
	switch {
	case g.Null:
		return &ast.Literal{Value: value.Null}, nil
	case g.True:
		return &ast.Literal{Value: value.Bool(true)}, nil
	case g.False:
		return &ast.Literal{Value: value.Bool(false)}, nil
	case g.String != nil:
		s, err := unquote(*g.String)
		if err != nil {
			return nil, err
		}
		return &ast.Literal{Value: value.String(s)}, nil
	case g.Float != nil:
		return &ast.Literal{Value: value.Float(*g.Float)}, nil
	case g.Int != nil:
		return &ast.Literal{Value: value.Int(*g.Int)}, nil
	case g.List != nil:
		return lowerList(g.List)
	case g.Call != nil:
		args := make([]ast.Node, len(g.Call.Args))
		for i, a := range g.Call.Args {
			n, err := lowerExpr(a)
			if err != nil {
				return nil, err
			}
			args[i] = n
		}
		return &ast.Call{Name: g.Call.Name, Args: args}, nil
	case g.Ref != nil:
		return &ast.Ref{Name: *g.Ref}, nil
	case g.Grouped != nil:
		return lowerExpr(g.Grouped)
	default:
		return nil, fmt.Errorf("empty primary expression")
	}
}

// lowerList folds a bracketed list literal into a constant ast.Literal.
// The AST's node set (spec.md §4.1) has no runtime list-construction
// node, so list literal syntax is sugar for a literal list: every
// element must itself lower to a Literal, which covers the one place
// the grammar needs it — a literal set on the right of `in`, e.g.
// `state in ["CA", "NY"]`. A non-literal element is a parse error rather
// than a silently unsupported runtime construct.
func lowerList(g *grammarList) (ast.Node, error) {
	items := make([]value.Value, len(g.Items))
	for i, item := range g.Items {
		n, err := lowerExpr(item)
		if err != nil {
			return nil, err
		}
		lit, ok := n.(*ast.Literal)
		if !ok {
			return nil, fmt.Errorf("list literal element %d must be a constant", i)
		}
		items[i] = lit.Value
	}
	return &ast.Literal{Value: value.List(items)}, nil
}

// unquote strips the surrounding quote and resolves the only two escape
// sequences spec.md §4.1 allows: the delimiter itself and a backslash.
func unquote(raw string) (string, error) {
	if len(raw) < 2 {
		return "", fmt.Errorf("malformed string literal %q", raw)
	}
	delim := raw[0]
	body := raw[1 : len(raw)-1]

	var b strings.Builder
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c == '\\' && i+1 < len(body) {
			next := body[i+1]
			if next == delim || next == '\\' {
				b.WriteByte(next)
				i++
				continue
			}
		}
		b.WriteByte(c)
	}
	return b.String(), nil
}
