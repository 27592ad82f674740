// Package lang implements spec.md §4.1's Parser: flat expression strings,
// nested structured all/any/not map forms, and action templates, all
// lowered to internal/ast.Node. Built with participle/v2, the same
// grammar-driven approach the teacher's internal/dsl/parser.go uses for
// its span-matching DSL.
package lang

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"

	"github.com/symbolica/symbolica/internal/ast"
	"github.com/symbolica/symbolica/pkg/value"
)

// ParseError reports where and why parsing failed. Position is a byte
// offset into the original text, taken from participle's Error interface
// when the underlying failure carries one.
type ParseError struct {
	Position int
	cause    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at byte %d: %v", e.Position, e.cause)
}

func (e *ParseError) Unwrap() error { return e.cause }

func newParseError(err error) *ParseError {
	pe := &ParseError{cause: err}
	if perr, ok := err.(participle.Error); ok {
		pe.Position = perr.Position().Offset
	}
	return pe
}

// Parse parses a single flat expression string (spec.md §4.1) into an
// AST node.
func Parse(text string) (ast.Node, error) {
	tree, err := exprParser.ParseString("", text)
	if err != nil {
		return nil, newParseError(err)
	}
	return lowerExpr(tree)
}

// ParseStructured parses a condition given as a generic JSON/YAML value:
// either a flat expression string, or a map with a single key "all",
// "any", or "not" per spec.md §4.1. Every leaf string is itself parsed
// with Parse.
func ParseStructured(node interface{}) (ast.Node, error) {
	switch v := node.(type) {
	case string:
		return Parse(v)
	case map[string]interface{}:
		return parseStructuredMap(v)
	default:
		return nil, fmt.Errorf("condition must be a string or an all/any/not map, got %T", node)
	}
}

func parseStructuredMap(m map[string]interface{}) (ast.Node, error) {
	if len(m) != 1 {
		return nil, fmt.Errorf("structured condition map must have exactly one key (all, any, or not), got %d", len(m))
	}
	for key, val := range m {
		switch key {
		case "all":
			children, err := parseStructuredList(val)
			if err != nil {
				return nil, err
			}
			return &ast.All{Children: children}, nil
		case "any":
			children, err := parseStructuredList(val)
			if err != nil {
				return nil, err
			}
			return &ast.Any{Children: children}, nil
		case "not":
			child, err := ParseStructured(val)
			if err != nil {
				return nil, err
			}
			return &ast.Not{Child: child}, nil
		default:
			return nil, fmt.Errorf("unknown structured condition key %q, expected all, any, or not", key)
		}
	}
	panic("unreachable")
}

func parseStructuredList(val interface{}) ([]ast.Node, error) {
	list, ok := val.([]interface{})
	if !ok {
		return nil, fmt.Errorf("all/any value must be a list of sub-conditions, got %T", val)
	}
	out := make([]ast.Node, len(list))
	for i, item := range list {
		n, err := ParseStructured(item)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

const (
	templateOpen  = "{{"
	templateClose = "}}"
)

// ParseTemplate parses one action value (spec.md §4.1, §3): a bare
// non-string value is a literal of its inferred type; a string wrapped
// in {{ ... }} is parsed as an expression; any other string is a literal
// string.
func ParseTemplate(raw interface{}) (ast.Node, error) {
	s, ok := raw.(string)
	if !ok {
		return &ast.Literal{Value: literalFromJSON(raw)}, nil
	}
	trimmed := strings.TrimSpace(s)
	if strings.HasPrefix(trimmed, templateOpen) && strings.HasSuffix(trimmed, templateClose) {
		inner := strings.TrimSpace(trimmed[len(templateOpen) : len(trimmed)-len(templateClose)])
		return Parse(inner)
	}
	return &ast.Literal{Value: literalFromJSON(s)}, nil
}

// literalFromJSON converts a decoded JSON/YAML scalar into a Value. Maps
// and lists are converted recursively so nested literal action values
// (e.g. a literal list action) carry through correctly.
func literalFromJSON(raw interface{}) value.Value {
	switch v := raw.(type) {
	case nil:
		return value.Null
	case bool:
		return value.Bool(v)
	case string:
		return value.String(v)
	case int:
		return value.Int(int64(v))
	case int64:
		return value.Int(v)
	case float64:
		return value.Float(v)
	case []interface{}:
		items := make([]value.Value, len(v))
		for i, item := range v {
			items[i] = literalFromJSON(item)
		}
		return value.List(items)
	case map[string]interface{}:
		m := make(map[string]value.Value, len(v))
		for k, item := range v {
			m[k] = literalFromJSON(item)
		}
		return value.Map(m)
	default:
		return value.Null
	}
}
