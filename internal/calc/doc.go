// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package calc evaluates arithmetic expressions without any code execution path.
//
// Expressions are parsed by a fixed grammar that only knows numeric literals,
// parentheses, unary + and -, and the binary operators + - * / // % and **.
// Names, calls, attribute access, strings and every other construct are
// rejected while lexing, before anything is evaluated.
//
// Usage:
//
//	v, err := calc.Evaluate("(15 + 10) * 2") // 50
//	if errors.Is(err, calc.ErrDivisionByZero) { ... }
//
// Integer arithmetic is performed in int64 with overflow detection. True
// division always yields a float, floor division rounds toward negative
// infinity, and modulo takes the sign of the divisor.
package calc
