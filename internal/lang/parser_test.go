package lang

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/symbolica/symbolica/internal/ast"
)

func TestParseLiterals(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"true", "true"},
		{"false", "false"},
		{"null", "null"},
		{"string", `"hello"`},
		{"int", "42"},
		{"float", "3.14"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := Parse(tt.input)
			require.NoError(t, err)
			_, ok := n.(*ast.Literal)
			assert.True(t, ok, "expected a Literal node, got %T", n)
		})
	}
}

func TestParsePrecedenceMatchesSpec(t *testing.T) {
	// or < and < comparison < additive < multiplicative < unary
	n, err := Parse("1 + 2 * 3 > 5 and not false or true")
	require.NoError(t, err)
	top, ok := n.(*ast.BinaryOp)
	require.True(t, ok)
	assert.Equal(t, ast.OpOr, top.Op)
}

func TestParseInLowersToMemberOf(t *testing.T) {
	n, err := Parse(`state in ["CA", "NY"]`)
	require.NoError(t, err)
	m, ok := n.(*ast.MemberOf)
	require.True(t, ok, "expected MemberOf, got %T", n)
	ref, ok := m.Value.(*ast.Ref)
	require.True(t, ok)
	assert.Equal(t, "state", ref.Name)
}

func TestParseTernary(t *testing.T) {
	n, err := Parse("x > 1 ? 10 : 20")
	require.NoError(t, err)
	_, ok := n.(*ast.Conditional)
	assert.True(t, ok)
}

func TestParseIndexAndBracketChain(t *testing.T) {
	n, err := Parse(`payload["items"][0]`)
	require.NoError(t, err)
	idx, ok := n.(*ast.Index)
	require.True(t, ok)
	_, ok = idx.Container.(*ast.Index)
	assert.True(t, ok, "expected nested Index for chained bracket access")
}

func TestParseStringEscaping(t *testing.T) {
	n, err := Parse(`"a\"b"`)
	require.NoError(t, err)
	lit, ok := n.(*ast.Literal)
	require.True(t, ok)
	s, ok := lit.Value.AsString()
	require.True(t, ok)
	assert.Equal(t, `a"b`, s)
}

func TestParseInvalidExpressionReturnsParseError(t *testing.T) {
	_, err := Parse("x +")
	require.Error(t, err)
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
}

func TestParseStructuredAllAnyNot(t *testing.T) {
	n, err := ParseStructured(map[string]interface{}{
		"all": []interface{}{"x > 1", map[string]interface{}{"not": "y == 2"}},
	})
	require.NoError(t, err)
	all, ok := n.(*ast.All)
	require.True(t, ok)
	require.Len(t, all.Children, 2)
	_, ok = all.Children[1].(*ast.Not)
	assert.True(t, ok)
}

func TestParseTemplateMarkerVsLiteral(t *testing.T) {
	n, err := ParseTemplate("{{ x + 1 }}")
	require.NoError(t, err)
	_, ok := n.(*ast.BinaryOp)
	assert.True(t, ok, "expected templated expression to parse")

	n, err = ParseTemplate("plain string")
	require.NoError(t, err)
	lit, ok := n.(*ast.Literal)
	require.True(t, ok)
	s, _ := lit.Value.AsString()
	assert.Equal(t, "plain string", s)

	n, err = ParseTemplate(true)
	require.NoError(t, err)
	lit, ok = n.(*ast.Literal)
	require.True(t, ok)
	b, _ := lit.Value.AsBool()
	assert.True(t, b)
}
