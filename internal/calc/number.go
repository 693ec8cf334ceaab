// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package calc

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// =============================================================================
// NUMBER
// =============================================================================

// Number is an evaluation result: either an int64 or a float64.
// The zero value is the integer 0.
type Number struct {
	isFloat bool
	i       int64
	f       float64
}

// Int returns an integral Number.
func Int(v int64) Number { return Number{i: v} }

// Float returns a floating-point Number.
func Float(v float64) Number { return Number{isFloat: true, f: v} }

// IsInt reports whether n is integral-typed (not merely integral-valued).
func (n Number) IsInt() bool { return !n.isFloat }

// Int64 returns the integer value and true when n is integral-typed.
func (n Number) Int64() (int64, bool) { return n.i, !n.isFloat }

// Float64 returns n as a float64.
func (n Number) Float64() float64 {
	if n.isFloat {
		return n.f
	}
	return float64(n.i)
}

// Value returns n as int64 or float64, for serialization.
func (n Number) Value() any {
	if n.isFloat {
		return n.f
	}
	return n.i
}

// String formats integers in decimal and floats in their shortest form,
// always keeping a decimal point or exponent on floats.
func (n Number) String() string {
	if !n.isFloat {
		return strconv.FormatInt(n.i, 10)
	}
	s := strconv.FormatFloat(n.f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

// MarshalJSON encodes n as a JSON number.
func (n Number) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.Value())
}

func (n Number) isZero() bool {
	if n.isFloat {
		return n.f == 0
	}
	return n.i == 0
}

// =============================================================================
// ARITHMETIC
// =============================================================================

func checkFloat(f float64) (Number, error) {
	if math.IsInf(f, 0) {
		return Number{}, errKind(ErrOverflow, "result magnitude is not representable")
	}
	if math.IsNaN(f) {
		return Number{}, errKind(ErrUndefined, "")
	}
	return Float(f), nil
}

func intOverflow(op string) error {
	return errKind(ErrOverflow, "integer "+op+" overflows 64 bits")
}

func add(a, b Number) (Number, error) {
	if a.isFloat || b.isFloat {
		return checkFloat(a.Float64() + b.Float64())
	}
	s := a.i + b.i
	if (a.i^s)&(b.i^s) < 0 {
		return Number{}, intOverflow("addition")
	}
	return Int(s), nil
}

func sub(a, b Number) (Number, error) {
	if a.isFloat || b.isFloat {
		return checkFloat(a.Float64() - b.Float64())
	}
	d := a.i - b.i
	if (a.i^b.i)&(a.i^d) < 0 {
		return Number{}, intOverflow("subtraction")
	}
	return Int(d), nil
}

func mulInt(a, b int64) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	if (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) {
		return 0, false
	}
	p := a * b
	if p/b != a {
		return 0, false
	}
	return p, true
}

func mul(a, b Number) (Number, error) {
	if a.isFloat || b.isFloat {
		return checkFloat(a.Float64() * b.Float64())
	}
	p, ok := mulInt(a.i, b.i)
	if !ok {
		return Number{}, intOverflow("multiplication")
	}
	return Int(p), nil
}

// div is true division and always yields a float.
func div(a, b Number) (Number, error) {
	if b.isZero() {
		return Number{}, errKind(ErrDivisionByZero, "")
	}
	return checkFloat(a.Float64() / b.Float64())
}

// floorDiv rounds the quotient toward negative infinity.
func floorDiv(a, b Number) (Number, error) {
	if b.isZero() {
		return Number{}, errKind(ErrDivisionByZero, "")
	}
	if a.isFloat || b.isFloat {
		return checkFloat(math.Floor(a.Float64() / b.Float64()))
	}
	if a.i == math.MinInt64 && b.i == -1 {
		return Number{}, intOverflow("floor division")
	}
	q := a.i / b.i
	if a.i%b.i != 0 && (a.i < 0) != (b.i < 0) {
		q--
	}
	return Int(q), nil
}

// mod returns a remainder carrying the sign of the divisor.
func mod(a, b Number) (Number, error) {
	if b.isZero() {
		return Number{}, errKind(ErrDivisionByZero, "")
	}
	if a.isFloat || b.isFloat {
		x, y := a.Float64(), b.Float64()
		r := math.Mod(x, y)
		if r != 0 && (r < 0) != (y < 0) {
			r += y
		}
		return checkFloat(r)
	}
	r := a.i % b.i
	if r != 0 && (r < 0) != (b.i < 0) {
		r += b.i
	}
	return Int(r), nil
}

func pow(a, b Number) (Number, error) {
	if !a.isFloat && !b.isFloat && b.i >= 0 {
		return powInt(a.i, b.i)
	}
	if a.isZero() && b.Float64() < 0 {
		return Number{}, errKind(ErrDivisionByZero, "zero raised to a negative power")
	}
	return checkFloat(math.Pow(a.Float64(), b.Float64()))
}

// powInt is exponentiation by squaring with overflow detection.
func powInt(base, exp int64) (Number, error) {
	result := int64(1)
	for exp > 0 {
		var ok bool
		if exp&1 == 1 {
			if result, ok = mulInt(result, base); !ok {
				return Number{}, intOverflow("exponentiation")
			}
		}
		exp >>= 1
		if exp > 0 {
			if base, ok = mulInt(base, base); !ok {
				return Number{}, intOverflow("exponentiation")
			}
		}
	}
	return Int(result), nil
}

func negate(a Number) (Number, error) {
	if a.isFloat {
		return Float(-a.f), nil
	}
	if a.i == math.MinInt64 {
		return Number{}, intOverflow("negation")
	}
	return Int(-a.i), nil
}
