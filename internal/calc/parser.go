// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package calc

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

// =============================================================================
// AST
// =============================================================================

// Node is an element of a parsed expression. The only implementations are
// *NumberLit, *Unary and *Binary.
type Node interface {
	node()
}

// NumberLit is a numeric literal.
type NumberLit struct {
	Value Number
}

// Unary is a prefix + or -.
type Unary struct {
	Op string
	X  Node
}

// Binary is one of + - * / // % **.
type Binary struct {
	Op   string
	L, R Node
}

func (*NumberLit) node() {}
func (*Unary) node()     {}
func (*Binary) node()    {}

// =============================================================================
// PARSER
// =============================================================================
//
//	expr    := term (("+" | "-") term)*
//	term    := unary (("*" | "/" | "//" | "%") unary)*
//	unary   := ("+" | "-") unary | power
//	power   := primary ("**" unary)?
//	primary := NUMBER | "(" expr ")"

type parser struct {
	toks     []token
	pos      int
	depth    int
	maxDepth int
}

func parse(toks []token, maxDepth int) (Node, error) {
	p := &parser{toks: toks, maxDepth: maxDepth}
	n, err := p.expr()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tokEOF {
		if t.kind == tokNumber || t.kind == tokLParen {
			return nil, errAt(ErrParse, t.pos, "missing operator before %q", t.text)
		}
		return nil, errAt(ErrParse, t.pos, "unexpected %q", t.text)
	}
	return n, nil
}

func (p *parser) peek() token {
	return p.toks[p.pos]
}

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

// enter bounds the nesting of unary operators, powers and parentheses.
func (p *parser) enter(pos int) error {
	p.depth++
	if p.depth > p.maxDepth {
		return errAt(ErrInputTooLarge, pos, "expression nests deeper than %d levels", p.maxDepth)
	}
	return nil
}

func (p *parser) leave() {
	p.depth--
}

func (p *parser) expr() (Node, error) {
	left, err := p.term()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		if t.kind != tokPlus && t.kind != tokMinus {
			return left, nil
		}
		p.next()
		right, err := p.term()
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: t.text, L: left, R: right}
	}
}

func (p *parser) term() (Node, error) {
	left, err := p.unary()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		switch t.kind {
		case tokStar, tokSlash, tokFloorDiv, tokPercent:
		default:
			return left, nil
		}
		p.next()
		right, err := p.unary()
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: t.text, L: left, R: right}
	}
}

func (p *parser) unary() (Node, error) {
	t := p.peek()
	if t.kind != tokPlus && t.kind != tokMinus {
		return p.power()
	}
	p.next()
	if err := p.enter(t.pos); err != nil {
		return nil, err
	}
	defer p.leave()
	x, err := p.unary()
	if err != nil {
		return nil, err
	}
	return &Unary{Op: t.text, X: x}, nil
}

func (p *parser) power() (Node, error) {
	base, err := p.primary()
	if err != nil {
		return nil, err
	}
	t := p.peek()
	if t.kind != tokPow {
		return base, nil
	}
	p.next()
	if err := p.enter(t.pos); err != nil {
		return nil, err
	}
	defer p.leave()
	exp, err := p.unary()
	if err != nil {
		return nil, err
	}
	return &Binary{Op: "**", L: base, R: exp}, nil
}

func (p *parser) primary() (Node, error) {
	t := p.next()
	switch t.kind {
	case tokNumber:
		v, err := parseLiteral(t)
		if err != nil {
			return nil, err
		}
		return &NumberLit{Value: v}, nil
	case tokLParen:
		if err := p.enter(t.pos); err != nil {
			return nil, err
		}
		defer p.leave()
		n, err := p.expr()
		if err != nil {
			return nil, err
		}
		if c := p.next(); c.kind != tokRParen {
			return nil, errAt(ErrParse, c.pos, "expected ')'")
		}
		return n, nil
	case tokEOF:
		return nil, errAt(ErrParse, t.pos, "unexpected end of expression")
	default:
		return nil, errAt(ErrParse, t.pos, "unexpected %q", t.text)
	}
}

func parseLiteral(t token) (Number, error) {
	if !strings.ContainsAny(t.text, ".eE") {
		v, err := strconv.ParseInt(t.text, 10, 64)
		if err != nil {
			if errors.Is(err, strconv.ErrRange) {
				return Number{}, errAt(ErrOverflow, t.pos, "integer literal %s exceeds 64 bits", t.text)
			}
			return Number{}, errAt(ErrParse, t.pos, "malformed number %q", t.text)
		}
		return Int(v), nil
	}
	f, err := strconv.ParseFloat(t.text, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return Number{}, errAt(ErrParse, t.pos, "malformed number %q", t.text)
	}
	if math.IsInf(f, 0) {
		return Number{}, errAt(ErrOverflow, t.pos, "float literal %s is out of range", t.text)
	}
	return Float(f), nil
}
