// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tools

import (
	"context"
	"encoding/json"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noop(context.Context, Args) (any, error) { return "ok", nil }

type testDoc struct {
	Count int `json:"count"`
}

func TestNewRegistry_Builtins(t *testing.T) {
	reg, err := NewRegistry(Builtins(Deps{})...)
	require.NoError(t, err)

	names := reg.Names()
	assert.True(t, sort.StringsAreSorted(names))
	for _, want := range []string{
		"calculate", "say_hello", "assess_german", "get_weather", "wiki_summary", "system_info",
		"add_note", "list_notes", "add_todo", "complete_todo", "list_todos", "due_todos",
		"add_reminder", "dismiss_reminder", "due_reminders", "record_visit", "record_assessment",
		"streak_info", "add_card", "review_card", "due_cards", "import_cards",
		"generate_tasks", "get_time", "get_time_in", "slugify", "sha256_string",
		"b64_encode", "b64_decode", "regex_replace", "password_generate", "unit_convert",
	} {
		assert.Contains(t, names, want)
	}
	assert.Equal(t, len(names), reg.Len())

	d, ok := reg.Lookup("get_weather")
	require.True(t, ok)
	assert.Equal(t, SideEffectCacheable, d.SideEffect)
	assert.Equal(t, 10*time.Minute, d.TTL)

	d, ok = reg.Lookup("add_todo")
	require.True(t, ok)
	assert.Equal(t, SideEffectMutating, d.SideEffect)
	assert.Equal(t, "todos", d.Document)

	descs := reg.Descriptors()
	require.Len(t, descs, reg.Len())
	assert.Equal(t, names[0], descs[0].Name)
}

func TestNewRegistry_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		entry Entry
	}{
		{"bad name", Pure(Descriptor{Name: "Bad-Name", Description: "x"}, noop)},
		{"no description", Pure(Descriptor{Name: "x"}, noop)},
		{"no implementation", Pure(Descriptor{Name: "x", Description: "x"}, nil)},
		{"cacheable without ttl", Cacheable(Descriptor{Name: "x", Description: "x"}, noop)},
		{"mutating without document", Mutating(Descriptor{Name: "x", Description: "x"},
			func(context.Context, *testDoc, Args) (any, error) { return nil, nil })},
		{"pure with document", Pure(Descriptor{Name: "x", Description: "x", Document: "notes"}, noop)},
		{"duplicate param", Pure(Descriptor{Name: "x", Description: "x", Params: []Parameter{
			{Name: "a", Type: TypeString}, {Name: "a", Type: TypeString},
		}}, noop)},
		{"unknown type", Pure(Descriptor{Name: "x", Description: "x", Params: []Parameter{
			{Name: "a", Type: "date"},
		}}, noop)},
		{"enum on integer", Pure(Descriptor{Name: "x", Description: "x", Params: []Parameter{
			{Name: "a", Type: TypeInteger, Enum: []string{"1"}},
		}}, noop)},
		{"required with default", Pure(Descriptor{Name: "x", Description: "x", Params: []Parameter{
			{Name: "a", Type: TypeString, Required: true, Default: "d"},
		}}, noop)},
		{"default of wrong type", Pure(Descriptor{Name: "x", Description: "x", Params: []Parameter{
			{Name: "a", Type: TypeBoolean, Default: "yes"},
		}}, noop)},
		{"default outside enum", Pure(Descriptor{Name: "x", Description: "x", Params: []Parameter{
			{Name: "a", Type: TypeString, Default: "c", Enum: []string{"a", "b"}},
		}}, noop)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRegistry(tt.entry)
			assert.Error(t, err)
		})
	}
}

func TestNewRegistry_Duplicate(t *testing.T) {
	e := Pure(Descriptor{Name: "echo", Description: "echo"}, noop)
	_, err := NewRegistry(e, e)
	assert.Error(t, err)
}

func TestNewRegistry_CanonicalDefaults(t *testing.T) {
	reg, err := NewRegistry(Pure(Descriptor{Name: "x", Description: "x", Params: []Parameter{
		{Name: "n", Type: TypeInteger, Default: 3},
		{Name: "f", Type: TypeNumber, Default: 1},
	}}, noop))
	require.NoError(t, err)
	d, _ := reg.Lookup("x")
	n, _ := d.Param("n")
	f, _ := d.Param("f")
	assert.Equal(t, int64(3), n.Default)
	assert.Equal(t, float64(1), f.Default)
}

func TestDescriptor_JSON(t *testing.T) {
	reg, err := NewRegistry(Builtins(Deps{})...)
	require.NoError(t, err)
	d, _ := reg.Lookup("assess_german")

	b, err := json.Marshal(d)
	require.NoError(t, err)
	var back map[string]any
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, "assess_german", back["name"])
	assert.Equal(t, "pure", back["side_effect"])
	assert.Equal(t, "Check a simple German sentence.", d.ShortDescription())
}

// =============================================================================
// VALIDATION
// =============================================================================

var validationDesc = Descriptor{
	Name: "v", Description: "v",
	Params: []Parameter{
		{Name: "s", Type: TypeString, Required: true},
		{Name: "mode", Type: TypeString, Default: "fast", Enum: []string{"fast", "slow"}},
		{Name: "n", Type: TypeInteger},
		{Name: "f", Type: TypeNumber},
		{Name: "b", Type: TypeBoolean},
		{Name: "list", Type: TypeArray},
		{Name: "obj", Type: TypeObject},
	},
}

func fieldOf(t *testing.T, err error) string {
	t.Helper()
	var te *Error
	require.ErrorAs(t, err, &te)
	assert.Equal(t, KindInvalidArguments, te.Kind)
	return te.Field
}

func TestValidateArgs_Errors(t *testing.T) {
	tests := []struct {
		name  string
		args  map[string]any
		field string
	}{
		{"missing required", map[string]any{}, "s"},
		{"nil required", map[string]any{"s": nil}, "s"},
		{"wrong type", map[string]any{"s": 5.0}, "s"},
		{"unexpected", map[string]any{"s": "x", "zzz": 1, "extra": 2}, "extra"},
		{"enum", map[string]any{"s": "x", "mode": "medium"}, "mode"},
		{"fractional integer", map[string]any{"s": "x", "n": 2.5}, "n"},
		{"string number", map[string]any{"s": "x", "f": "1.5"}, "f"},
		{"boolean", map[string]any{"s": "x", "b": "true"}, "b"},
		{"array", map[string]any{"s": "x", "list": "a,b"}, "list"},
		{"object", map[string]any{"s": "x", "obj": []any{}}, "obj"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := validateArgs(validationDesc, tt.args)
			require.Error(t, err)
			assert.Equal(t, tt.field, fieldOf(t, err))
		})
	}
}

func TestValidateArgs_Normalizes(t *testing.T) {
	args, err := validateArgs(validationDesc, map[string]any{
		"s":    "x",
		"n":    4.0,
		"f":    json.Number("2.5"),
		"b":    true,
		"list": []string{"a", "b"},
		"obj":  map[string]any{"k": "v"},
	})
	require.NoError(t, err)
	assert.Equal(t, "fast", args.String("mode"))
	assert.Equal(t, int64(4), args.Int("n"))
	assert.Equal(t, 2.5, args.Float("f"))
	assert.True(t, args.Bool("b"))
	assert.Equal(t, []string{"a", "b"}, args.Strings("list"))
	assert.True(t, args.Has("obj"))

	args, err = validateArgs(validationDesc, map[string]any{"s": "x", "n": json.Number("7")})
	require.NoError(t, err)
	assert.Equal(t, int64(7), args.Int("n"))
	assert.False(t, args.Has("f"))
}
