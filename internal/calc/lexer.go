// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package calc

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// =============================================================================
// TOKENS
// =============================================================================

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNumber
	tokPlus
	tokMinus
	tokStar
	tokSlash
	tokFloorDiv
	tokPercent
	tokPow
	tokLParen
	tokRParen

	// Recognized only so they can be rejected by name. The grammar has no
	// production that accepts any of these.
	tokForbidden
)

type token struct {
	kind tokenKind
	pos  int
	text string
	// construct names the rejected language feature for tokForbidden
	construct string
}

// forbiddenChars maps single characters outside the grammar to the construct
// they would introduce.
var forbiddenChars = map[rune]string{
	'\'': "string literal",
	'"':  "string literal",
	'[':  "list or subscript",
	']':  "list or subscript",
	'{':  "dict or set literal",
	'}':  "dict or set literal",
	',':  "tuple or argument list",
	'.':  "attribute access",
	':':  "slice or lambda",
	'<':  "comparison operator",
	'>':  "comparison operator",
	'=':  "assignment or comparison",
	'!':  "comparison operator",
	'&':  "bitwise operator",
	'|':  "bitwise operator",
	'^':  "bitwise operator",
	'~':  "bitwise operator",
	'@':  "matrix operator or decorator",
	';':  "statement separator",
	'`':  "backtick expression",
}

// keywordConstructs refines the description of identifier tokens.
var keywordConstructs = map[string]string{
	"lambda": "lambda",
	"for":    "comprehension",
	"if":     "conditional expression",
	"and":    "boolean operator",
	"or":     "boolean operator",
	"not":    "boolean operator",
	"in":     "membership test",
	"is":     "identity test",
}

// =============================================================================
// LEXER
// =============================================================================

func lex(input string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(input) {
		r, size := utf8.DecodeRuneInString(input[i:])
		switch {
		case r == utf8.RuneError && size == 1:
			return nil, errAt(ErrParse, i, "invalid UTF-8")
		case unicode.IsSpace(r):
			i += size
		case isDigit(r) || (r == '.' && i+1 < len(input) && isDigit(rune(input[i+1]))):
			end, err := scanNumber(input, i)
			if err != nil {
				return nil, err
			}
			toks = append(toks, token{kind: tokNumber, pos: i, text: input[i:end]})
			i = end
		case r == '_' || unicode.IsLetter(r):
			end := i
			for end < len(input) {
				r2, s2 := utf8.DecodeRuneInString(input[end:])
				if r2 != '_' && !unicode.IsLetter(r2) && !unicode.IsDigit(r2) {
					break
				}
				end += s2
			}
			word := input[i:end]
			construct := "name " + quote(word)
			if kw, ok := keywordConstructs[word]; ok {
				construct = kw
			} else if rest := strings.TrimLeftFunc(input[end:], unicode.IsSpace); strings.HasPrefix(rest, "(") {
				construct = "function call " + quote(word)
			}
			toks = append(toks, token{kind: tokForbidden, pos: i, text: word, construct: construct})
			i = end
		default:
			tok, width, ok := lexOperator(input, i)
			if !ok {
				if construct, bad := forbiddenChars[r]; bad {
					tok = token{kind: tokForbidden, pos: i, text: string(r), construct: construct}
					width = size
				} else {
					return nil, errAt(ErrParse, i, "unexpected character %q", r)
				}
			}
			toks = append(toks, tok)
			i += width
		}
	}
	toks = append(toks, token{kind: tokEOF, pos: len(input)})
	return toks, nil
}

func lexOperator(input string, i int) (token, int, bool) {
	two := ""
	if i+1 < len(input) {
		two = input[i : i+2]
	}
	switch two {
	case "**":
		return token{kind: tokPow, pos: i, text: two}, 2, true
	case "//":
		return token{kind: tokFloorDiv, pos: i, text: two}, 2, true
	}
	kinds := map[byte]tokenKind{
		'+': tokPlus, '-': tokMinus, '*': tokStar, '/': tokSlash,
		'%': tokPercent, '(': tokLParen, ')': tokRParen,
	}
	if k, ok := kinds[input[i]]; ok {
		return token{kind: k, pos: i, text: input[i : i+1]}, 1, true
	}
	return token{}, 0, false
}

// scanNumber accepts decimal integers and floats: 12, 1.5, .5, 5., 1e3, 2.5E-4.
func scanNumber(input string, start int) (int, error) {
	i := start
	digits := func() int {
		n := 0
		for i < len(input) && isDigit(rune(input[i])) {
			i++
			n++
		}
		return n
	}
	intDigits := digits()
	if i < len(input) && input[i] == '.' {
		i++
		if digits() == 0 && intDigits == 0 {
			return 0, errAt(ErrParse, start, "malformed number")
		}
	}
	if i < len(input) && (input[i] == 'e' || input[i] == 'E') {
		i++
		if i < len(input) && (input[i] == '+' || input[i] == '-') {
			i++
		}
		if digits() == 0 {
			return 0, errAt(ErrParse, start, "malformed exponent")
		}
	}
	if i < len(input) && input[i] == '.' {
		return 0, errAt(ErrParse, i, "malformed number")
	}
	return i, nil
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func quote(s string) string {
	return "'" + s + "'"
}
