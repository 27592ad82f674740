package lang

import (
	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// Grammar for flat expression strings (spec.md §4.1), built the same way
// the teacher's internal/dsl/parser.go builds its span-matching grammar:
// a participle.Lexer plus a struct tree mirroring the precedence chain
// (ternary > or > and > comparison > additive > multiplicative > unary >
// postfix > primary), generalized here to arithmetic and the ternary
// form the teacher's span DSL never needed.

var exprLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Whitespace", Pattern: `[ \t\n\r]+`},
	{Name: "Float", Pattern: `\d+\.\d+`},
	{Name: "Int", Pattern: `\d+`},
	{Name: "String", Pattern: `"(\\.|[^"\\])*"|'(\\.|[^'\\])*'`},
	{Name: "Keyword", Pattern: `\b(and|or|not|in|true|false|null)\b`},
	{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_]*`},
	{Name: "Operator", Pattern: `==|!=|<=|>=|<|>|\+|-|\*|/|%|\?|:`},
	{Name: "Punct", Pattern: `[(),\[\]]`},
})

// grammarExpr is the top rule: a ternary conditional over an Or chain.
type grammarExpr struct {
	Cond *grammarOr   `@@`
	Then *grammarExpr `( "?" @@`
	Else *grammarExpr `":" @@ )?`
}

type grammarOr struct {
	Left *grammarAnd  `@@`
	Rest []*grammarAndAtOr `@@*`
}

type grammarAndAtOr struct {
	Right *grammarAnd `"or" @@`
}

type grammarAnd struct {
	Left *grammarComparison `@@`
	Rest []*grammarCompAtAnd `@@*`
}

type grammarCompAtAnd struct {
	Right *grammarComparison `"and" @@`
}

type grammarComparison struct {
	Left *grammarAdditive  `@@`
	Rest []*grammarCompRest `@@*`
}

type grammarCompRest struct {
	Op    string           `@("=="|"!="|"<="|">="|"<"|">"|"in")`
	Right *grammarAdditive `@@`
}

type grammarAdditive struct {
	Left *grammarMultiplicative  `@@`
	Rest []*grammarAdditiveRest `@@*`
}

type grammarAdditiveRest struct {
	Op    string                 `@("+"|"-")`
	Right *grammarMultiplicative `@@`
}

type grammarMultiplicative struct {
	Left *grammarUnary              `@@`
	Rest []*grammarMultiplicativeRest `@@*`
}

type grammarMultiplicativeRest struct {
	Op    string        `@("*"|"/"|"%")`
	Right *grammarUnary `@@`
}

type grammarUnary struct {
	Op      string          `@("not"|"-")?`
	Operand *grammarPostfix `@@`
}

type grammarPostfix struct {
	Primary *grammarPrimary `@@`
	Indices []*grammarExpr  `( "[" @@ "]" )*`
}

type grammarPrimary struct {
	Null    bool         `(  @"null"`
	True    bool         `|  @"true"`
	False   bool         `|  @"false"`
	String  *string      `|  @String`
	Float   *float64     `|  @Float`
	Int     *int64       `|  @Int`
	List    *grammarList `|  @@`
	Call    *grammarCall `|  @@`
	Ref     *string      `|  @Ident`
	Grouped *grammarExpr `|  "(" @@ ")" )`
}

type grammarCall struct {
	Name string         `@Ident "("`
	Args []*grammarExpr `( @@ ( "," @@ )* )? ")"`
}

// grammarList is a bracketed list literal: [expr, expr, ...]. Used both
// standalone and as the right operand of `in`.
type grammarList struct {
	Items []*grammarExpr `"[" ( @@ ( "," @@ )* )? "]"`
}

var exprParser = participle.MustBuild[grammarExpr](
	participle.Lexer(exprLexer),
	participle.Elide("Whitespace"),
	participle.UseLookahead(2),
)
