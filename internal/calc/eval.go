// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package calc

import (
	"errors"
	"fmt"
)

// Default limits.
const (
	DefaultMaxLength = 256
	DefaultMaxDepth  = 32
)

// Evaluator evaluates arithmetic expressions under size limits.
// The zero value uses the defaults. An Evaluator is safe for concurrent use.
type Evaluator struct {
	// MaxLength is the maximum expression length in bytes
	MaxLength int
	// MaxDepth is the maximum nesting of parentheses, signs and powers
	MaxDepth int
}

var defaultEvaluator Evaluator

// Evaluate evaluates expr with the default limits.
func Evaluate(expr string) (Number, error) {
	return defaultEvaluator.Evaluate(expr)
}

// Parse parses expr with the default limits without evaluating it.
func Parse(expr string) (Node, error) {
	return defaultEvaluator.Parse(expr)
}

// Evaluate parses and evaluates expr.
func (e Evaluator) Evaluate(expr string) (Number, error) {
	n, err := e.Parse(expr)
	if err != nil {
		return Number{}, err
	}
	return Eval(n)
}

// Parse checks expr against the limits and grammar and returns its AST.
func (e Evaluator) Parse(expr string) (Node, error) {
	maxLen := e.MaxLength
	if maxLen <= 0 {
		maxLen = DefaultMaxLength
	}
	maxDepth := e.MaxDepth
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}

	if len(expr) > maxLen {
		return nil, errKind(ErrInputTooLarge, fmt.Sprintf("expression is %d bytes, limit is %d", len(expr), maxLen))
	}
	toks, err := lex(expr)
	if err != nil {
		return nil, err
	}
	// Rejected constructs are reported before any grammar error
	for _, t := range toks {
		if t.kind == tokForbidden {
			return nil, errAt(ErrDisallowedConstruct, t.pos, "%s is not allowed", t.construct)
		}
	}
	if len(toks) == 1 {
		return nil, errKind(ErrParse, "empty expression")
	}
	return parse(toks, maxDepth)
}

// Eval evaluates a parsed expression.
func Eval(n Node) (Number, error) {
	switch n := n.(type) {
	case *NumberLit:
		return n.Value, nil
	case *Unary:
		x, err := Eval(n.X)
		if err != nil {
			return Number{}, err
		}
		if n.Op == "-" {
			return negate(x)
		}
		return x, nil
	case *Binary:
		l, err := Eval(n.L)
		if err != nil {
			return Number{}, err
		}
		r, err := Eval(n.R)
		if err != nil {
			return Number{}, err
		}
		return apply(n.Op, l, r)
	case nil:
		return Number{}, errKind(ErrParse, "empty expression")
	default:
		return Number{}, errKind(ErrDisallowedConstruct, fmt.Sprintf("node %T", n))
	}
}

func apply(op string, l, r Number) (Number, error) {
	switch op {
	case "+":
		return add(l, r)
	case "-":
		return sub(l, r)
	case "*":
		return mul(l, r)
	case "/":
		return div(l, r)
	case "//":
		return floorDiv(l, r)
	case "%":
		return mod(l, r)
	case "**":
		return pow(l, r)
	}
	return Number{}, errKind(ErrDisallowedConstruct, "operator "+quote(op))
}

// KindOf returns the sentinel that err wraps, or nil if err did not come from
// this package.
func KindOf(err error) error {
	for _, k := range []error{ErrParse, ErrDisallowedConstruct, ErrInputTooLarge, ErrDivisionByZero, ErrOverflow, ErrUndefined} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}
