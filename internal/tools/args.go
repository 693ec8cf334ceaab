// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tools

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"sort"
	"strconv"
)

// Args holds validated arguments. After validation integers are int64,
// numbers float64, arrays []any and objects map[string]any.
type Args map[string]any

// String returns the string argument name, or "".
func (a Args) String(name string) string {
	s, _ := a[name].(string)
	return s
}

// Int returns the integer argument name, or 0.
func (a Args) Int(name string) int64 {
	n, _ := a[name].(int64)
	return n
}

// Float returns the number argument name, or 0.
func (a Args) Float(name string) float64 {
	f, _ := a[name].(float64)
	return f
}

// Bool returns the boolean argument name, or false.
func (a Args) Bool(name string) bool {
	b, _ := a[name].(bool)
	return b
}

// Array returns the array argument name, or nil.
func (a Args) Array(name string) []any {
	v, _ := a[name].([]any)
	return v
}

// Strings returns the string elements of the array argument name.
func (a Args) Strings(name string) []string {
	var out []string
	for _, v := range a.Array(name) {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Has reports whether name was supplied or defaulted.
func (a Args) Has(name string) bool {
	_, ok := a[name]
	return ok
}

// =============================================================================
// VALIDATION
// =============================================================================

// validateArgs checks raw against d and returns the normalized arguments with
// defaults applied. Checks run in a fixed order: unexpected arguments, then
// each declared parameter in declaration order.
func validateArgs(d Descriptor, raw map[string]any) (Args, error) {
	extras := make([]string, 0)
	for k := range raw {
		if _, ok := d.Param(k); !ok {
			extras = append(extras, k)
		}
	}
	if len(extras) > 0 {
		sort.Strings(extras)
		return nil, invalidArg(extras[0], "unexpected argument")
	}

	out := make(Args, len(d.Params))
	for _, p := range d.Params {
		v, ok := raw[p.Name]
		if !ok || v == nil {
			if p.Required {
				return nil, invalidArg(p.Name, "missing required argument")
			}
			if p.Default != nil {
				out[p.Name] = p.Default
			}
			continue
		}
		cv, err := coerce(p, v)
		if err != nil {
			return nil, err
		}
		out[p.Name] = cv
	}
	return out, nil
}

// coerce converts v to the canonical Go type for p.Type.
func coerce(p Parameter, v any) (any, error) {
	switch p.Type {
	case TypeString:
		s, ok := v.(string)
		if !ok {
			return nil, invalidArg(p.Name, "expected string, got %s", typeName(v))
		}
		if len(p.Enum) > 0 && !slices.Contains(p.Enum, s) {
			return nil, invalidArg(p.Name, "must be one of %v", p.Enum)
		}
		return s, nil

	case TypeInteger:
		n, ok := toInt(v)
		if !ok {
			return nil, invalidArg(p.Name, "expected integer, got %s", typeName(v))
		}
		return n, nil

	case TypeNumber:
		f, ok := toFloat(v)
		if !ok {
			return nil, invalidArg(p.Name, "expected number, got %s", typeName(v))
		}
		return f, nil

	case TypeBoolean:
		b, ok := v.(bool)
		if !ok {
			return nil, invalidArg(p.Name, "expected boolean, got %s", typeName(v))
		}
		return b, nil

	case TypeArray:
		switch arr := v.(type) {
		case []any:
			return arr, nil
		case []string:
			out := make([]any, len(arr))
			for i, s := range arr {
				out[i] = s
			}
			return out, nil
		}
		return nil, invalidArg(p.Name, "expected array, got %s", typeName(v))

	case TypeObject:
		m, ok := v.(map[string]any)
		if !ok {
			return nil, invalidArg(p.Name, "expected object, got %s", typeName(v))
		}
		return m, nil
	}
	return nil, invalidArg(p.Name, "unsupported parameter type %q", p.Type)
}

func toInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		if n != math.Trunc(n) || math.Abs(n) > 1<<53 {
			return 0, false
		}
		return int64(n), true
	case json.Number:
		i, err := strconv.ParseInt(n.String(), 10, 64)
		if err == nil {
			return i, true
		}
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return toInt(f)
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func typeName(v any) string {
	switch v.(type) {
	case string:
		return "string"
	case bool:
		return "boolean"
	case int, int32, int64, float32, float64, json.Number:
		return "number"
	case []any, []string:
		return "array"
	case map[string]any:
		return "object"
	}
	return fmt.Sprintf("%T", v)
}
