// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quayside Contributors

package when

import (
	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// whenLexer tokenizes predicates. Multi-character operators come before
// their single-character prefixes so "!=" is not read as "!" "=".
var whenLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "String", Pattern: `'[^']*'|"[^"]*"`},
	{Name: "Number", Pattern: `-?\d+(\.\d+)?`},
	{Name: "OpEq", Pattern: `==`},
	{Name: "OpNe", Pattern: `!=`},
	{Name: "OpAnd", Pattern: `&&`},
	{Name: "OpOr", Pattern: `\|\|`},
	{Name: "Not", Pattern: `!`},
	{Name: "Key", Pattern: `[a-zA-Z_][\w.:-]*`},
	{Name: "Punct", Pattern: `[()]`},
	{Name: "whitespace", Pattern: `\s+`},
})

// Expression is a disjunction of conjunctions.
//
// Grammar:
//
//	expr    = and ( "||" and )*
//	and     = unary ( "&&" unary )*
//	unary   = "!" unary | "(" expr ")" | operand [ ("==" | "!=") operand ]
//	operand = String | Number | Key
type Expression struct {
	Or []*AndExpr `parser:"@@ ( '||' @@ )*"`
}

// AndExpr is a conjunction.
type AndExpr struct {
	And []*Unary `parser:"@@ ( '&&' @@ )*"`
}

// Unary is a negation, a parenthesized expression, or a comparison.
type Unary struct {
	Not   *Unary      `parser:"  '!' @@"`
	Group *Expression `parser:"| '(' @@ ')'"`
	Cmp   *Comparison `parser:"| @@"`
}

// Comparison is a bare operand (tested for truthiness) or an equality test.
type Comparison struct {
	Left  *Operand `parser:"@@"`
	Op    string   `parser:"( @( '==' | '!=' )"`
	Right *Operand `parser:"  @@ )?"`
}

// Operand is a literal or a context key.
type Operand struct {
	String *string  `parser:"  @String"`
	Number *float64 `parser:"| @Number"`
	Key    string   `parser:"| @Key"`
}

func newParser() (*participle.Parser[Expression], error) {
	return participle.Build[Expression](
		participle.Lexer(whenLexer),
		participle.Unquote("String"),
	)
}
