// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package calc

import (
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// VALUES
// =============================================================================

func TestEvaluate_Values(t *testing.T) {
	tests := []struct {
		expr string
		want string
	}{
		{"(15 + 10) * 2", "50"},
		{"15 + 10 * 2", "35"},
		{"2 + 3 * 4 - 1", "13"},
		{"-2 ** 2", "-4"},
		{"(-2) ** 2", "4"},
		{"2 ** 3 ** 2", "512"},
		{"2 ** -1", "0.5"},
		{"--3", "3"},
		{"+-+4", "-4"},
		{"7 / 2", "3.5"},
		{"4 / 2", "2.0"},
		{"7 // 2", "3"},
		{"7 // -2", "-4"},
		{"-7 // 2", "-4"},
		{"-7 % 3", "2"},
		{"7 % -3", "-2"},
		{"7.5 // 2", "3.0"},
		{"-1.5 % 1", "0.5"},
		{"1.5 + 1", "2.5"},
		{".5 + 5.", "5.5"},
		{"1e3", "1000.0"},
		{"2.5E-1 * 4", "1.0"},
		{"  1 +\t2 ", "3"},
		{"9223372036854775807", "9223372036854775807"},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := Evaluate(tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestEvaluate_IntegralTyping(t *testing.T) {
	v, err := Evaluate("6 * 7")
	require.NoError(t, err)
	assert.True(t, v.IsInt())
	i, ok := v.Int64()
	assert.True(t, ok)
	assert.Equal(t, int64(42), i)

	v, err = Evaluate("84 / 2")
	require.NoError(t, err)
	assert.False(t, v.IsInt())
	assert.Equal(t, 42.0, v.Float64())
}

func TestNumber_MarshalJSON(t *testing.T) {
	b, err := json.Marshal(map[string]Number{"i": Int(3), "f": Float(0.25)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"i":3,"f":0.25}`, string(b))
}

// =============================================================================
// REJECTIONS
// =============================================================================

func TestEvaluate_DisallowedConstructs(t *testing.T) {
	tests := []struct {
		expr      string
		construct string
	}{
		{"__import__('os')", "function call '__import__'"},
		{"open('x')", "function call 'open'"},
		{"x + 1", "name 'x'"},
		{"(1).real", "attribute access"},
		{"'a' * 3", "string literal"},
		{"[1, 2]", "list or subscript"},
		{"{1: 2}", "dict or set literal"},
		{"1 < 2", "comparison operator"},
		{"1 == 1", "assignment or comparison"},
		{"1 & 3", "bitwise operator"},
		{"~1", "bitwise operator"},
		{"1 if 1 else 2", "conditional expression"},
		{"lambda: 1", "lambda"},
		{"1 and 2", "boolean operator"},
		{"1, 2", "tuple or argument list"},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			_, err := Evaluate(tt.expr)
			require.ErrorIs(t, err, ErrDisallowedConstruct)
			assert.Contains(t, err.Error(), tt.construct)
		})
	}
}

func TestEvaluate_DisallowedBeforeEvaluation(t *testing.T) {
	// The division would fail, but the name is rejected first
	_, err := Evaluate("1 / 0 + x")
	assert.ErrorIs(t, err, ErrDisallowedConstruct)
}

func TestEvaluate_ParseErrors(t *testing.T) {
	for _, expr := range []string{"", "   ", "2 +", "1 2", "(1 + 2", "1 + 2)", "*3", "1.5.2", "3e", "#", "(())"} {
		t.Run(expr, func(t *testing.T) {
			_, err := Evaluate(expr)
			require.ErrorIs(t, err, ErrParse)
			var cerr *Error
			require.True(t, errors.As(err, &cerr))
		})
	}
}

func TestEvaluate_DivisionByZero(t *testing.T) {
	for _, expr := range []string{"10 / 0", "10 // 0", "10 % 0", "1.5 / 0.0", "0 ** -1", "0.0 ** -2"} {
		t.Run(expr, func(t *testing.T) {
			_, err := Evaluate(expr)
			assert.ErrorIs(t, err, ErrDivisionByZero)
		})
	}
}

func TestEvaluate_Overflow(t *testing.T) {
	for _, expr := range []string{
		"9223372036854775807 + 1",
		"-9223372036854775807 - 2",
		"4611686018427387904 * 2",
		"2 ** 63",
		"99999999999999999999",
		"1e308 * 10",
		"1e999",
		"10.0 ** 400",
	} {
		t.Run(expr, func(t *testing.T) {
			_, err := Evaluate(expr)
			assert.ErrorIs(t, err, ErrOverflow)
		})
	}
}

func TestEvaluate_Undefined(t *testing.T) {
	_, err := Evaluate("(-8) ** 0.5")
	assert.ErrorIs(t, err, ErrUndefined)
}

// =============================================================================
// LIMITS
// =============================================================================

func TestEvaluate_LengthLimit(t *testing.T) {
	long := strings.Repeat("1+", 200) + "1"
	_, err := Evaluate(long)
	assert.ErrorIs(t, err, ErrInputTooLarge)

	e := Evaluator{MaxLength: 1000}
	v, err := e.Evaluate(long)
	require.NoError(t, err)
	assert.Equal(t, "201", v.String())
}

func TestEvaluate_DepthLimit(t *testing.T) {
	nest := func(n int) string {
		return strings.Repeat("(", n) + "1" + strings.Repeat(")", n)
	}

	_, err := Evaluate(nest(DefaultMaxDepth))
	require.NoError(t, err)

	_, err = Evaluate(nest(DefaultMaxDepth + 1))
	assert.ErrorIs(t, err, ErrInputTooLarge)

	_, err = Evaluate(strings.Repeat("-", 40) + "1")
	assert.ErrorIs(t, err, ErrInputTooLarge)

	shallow := Evaluator{MaxDepth: 2}
	_, err = shallow.Evaluate("((1))")
	require.NoError(t, err)
	_, err = shallow.Evaluate("(((1)))")
	assert.ErrorIs(t, err, ErrInputTooLarge)
}

func TestKindOf(t *testing.T) {
	_, err := Evaluate("1/0")
	assert.Equal(t, ErrDivisionByZero, KindOf(err))
	assert.Nil(t, KindOf(errors.New("other")))
}

func TestEvaluate_Concurrent(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := Evaluate("(15 + 10) * 2")
			assert.NoError(t, err)
			assert.Equal(t, "50", v.String())
		}()
	}
	wg.Wait()
}
