// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quayside Contributors

// Package when parses and evaluates the boolean predicates used in
// contribution points: command enablement, menu and keybinding "when"
// clauses. Predicates reference context keys supplied by the host UI:
//
//	view == 'containers' && !containers.busy || config.docker.enabled
package when

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/samber/oops"
)

// CodeInvalid is the error code for predicates that do not parse.
const CodeInvalid = "WHEN_INVALID"

var parser *participle.Parser[Expression]

func init() {
	var err error
	parser, err = newParser()
	if err != nil {
		panic(fmt.Sprintf("failed to build when-clause parser: %v", err))
	}
}

// Context maps context keys to their current values.
type Context map[string]any

// Predicate is a compiled when-clause. The zero value and the result of
// compiling an empty string are always true.
type Predicate struct {
	source string
	expr   *Expression
}

// Compile parses source.
func Compile(source string) (*Predicate, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return &Predicate{}, nil
	}
	expr, err := parser.ParseString("", source)
	if err != nil {
		return nil, oops.Code(CodeInvalid).
			With("predicate", source).
			Wrapf(err, "parse when clause")
	}
	return &Predicate{source: source, expr: expr}, nil
}

// MustCompile is Compile that panics on error. For static predicates only.
func MustCompile(source string) *Predicate {
	p, err := Compile(source)
	if err != nil {
		panic(err)
	}
	return p
}

// String returns the source text.
func (p *Predicate) String() string {
	if p == nil {
		return ""
	}
	return p.source
}

// Eval evaluates the predicate against ctx.
func (p *Predicate) Eval(ctx Context) bool {
	if p == nil || p.expr == nil {
		return true
	}
	return evalExpr(p.expr, ctx)
}

func evalExpr(e *Expression, ctx Context) bool {
	for _, and := range e.Or {
		if evalAnd(and, ctx) {
			return true
		}
	}
	return false
}

func evalAnd(a *AndExpr, ctx Context) bool {
	for _, u := range a.And {
		if !evalUnary(u, ctx) {
			return false
		}
	}
	return true
}

func evalUnary(u *Unary, ctx Context) bool {
	switch {
	case u.Not != nil:
		return !evalUnary(u.Not, ctx)
	case u.Group != nil:
		return evalExpr(u.Group, ctx)
	default:
		return evalComparison(u.Cmp, ctx)
	}
}

func evalComparison(c *Comparison, ctx Context) bool {
	left := resolve(c.Left, ctx)
	if c.Op == "" {
		return truthy(left)
	}
	eq := equal(left, resolve(c.Right, ctx))
	if c.Op == "!=" {
		return !eq
	}
	return eq
}

func resolve(o *Operand, ctx Context) any {
	switch {
	case o.String != nil:
		return *o.String
	case o.Number != nil:
		return *o.Number
	}
	if v, ok := ctx[o.Key]; ok {
		return v
	}
	switch o.Key {
	case "true":
		return true
	case "false":
		return false
	}
	return nil
}

func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case float64:
		return x != 0
	case int:
		return x != 0
	default:
		return true
	}
}

func equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if af, ok := number(a); ok {
		if bf, ok := number(b); ok {
			return af == bf
		}
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}

func number(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case string:
		f, err := strconv.ParseFloat(x, 64)
		return f, err == nil
	}
	return 0, false
}
