// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package calc

import (
	"errors"
	"fmt"
)

// Sentinel errors. Every error returned by this package wraps exactly one.
var (
	ErrParse               = errors.New("parse error")
	ErrDisallowedConstruct = errors.New("disallowed construct")
	ErrInputTooLarge       = errors.New("input too large")
	ErrDivisionByZero      = errors.New("division by zero")
	ErrOverflow            = errors.New("numeric overflow")
	ErrUndefined           = errors.New("result is not a real number")
)

// Error describes why an expression was rejected or could not be evaluated.
type Error struct {
	// Kind is one of the package sentinels
	Kind error
	// Pos is the byte offset in the input, or -1 when not tied to a position
	Pos int
	// Detail is a short human readable explanation
	Detail string
}

func (e *Error) Error() string {
	if e.Pos >= 0 {
		return fmt.Sprintf("%v at offset %d: %s", e.Kind, e.Pos, e.Detail)
	}
	if e.Detail == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%v: %s", e.Kind, e.Detail)
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func errAt(kind error, pos int, format string, args ...any) *Error {
	return &Error{Kind: kind, Pos: pos, Detail: fmt.Sprintf(format, args...)}
}

func errKind(kind error, detail string) *Error {
	return &Error{Kind: kind, Pos: -1, Detail: detail}
}
