// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tools

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/rigrun-tools/internal/german"
)

// =============================================================================
// CLOCK
// =============================================================================

func TestGetTime(t *testing.T) {
	d := newBuiltinDispatcher(t, testDeps())

	now := invoke(t, d, "get_time", nil).Value.(TimeResult)
	assert.Equal(t, TimeResult{Zone: "UTC", Time: "2025-03-01T09:30:00Z", Weekday: "Saturday", Unix: fixedNow.Unix()}, now)

	tokyo := invoke(t, d, "get_time_in", map[string]any{"zone": "Asia/Tokyo"}).Value.(TimeResult)
	assert.Equal(t, "Asia/Tokyo", tokyo.Zone)
	assert.Equal(t, "2025-03-01T18:30:00+09:00", tokyo.Time)
	assert.Equal(t, now.Unix, tokyo.Unix)

	_, err := d.Invoke(context.Background(), "get_time_in", map[string]any{"zone": "Mars/Olympus"})
	assert.Equal(t, KindInvalidArguments, kindOf(t, err))
}

// =============================================================================
// TEXT
// =============================================================================

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"Grüße aus Köln!":    "grusse-aus-koln",
		"  Hello,   World  ": "hello-world",
		"Ünïcödé 2025":       "unicode-2025",
		"already-a-slug":     "already-a-slug",
		"--- ---":            "",
		"":                   "",
	}
	for in, want := range tests {
		assert.Equal(t, want, Slugify(in), in)
	}
}

func TestTextTools(t *testing.T) {
	d := newBuiltinDispatcher(t, testDeps())

	assert.Equal(t, "grusse-aus-koln", invoke(t, d, "slugify", map[string]any{"text": "Grüße aus Köln!"}).Value)
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad",
		invoke(t, d, "sha256_string", map[string]any{"text": "abc"}).Value)
	assert.Equal(t, "aGFsbG8=", invoke(t, d, "b64_encode", map[string]any{"text": "hallo"}).Value)
	assert.Equal(t, "hallo", invoke(t, d, "b64_decode", map[string]any{"text": " aGFsbG8= "}).Value)
	assert.Equal(t, "ada at example",
		invoke(t, d, "regex_replace", map[string]any{
			"pattern": `(\w+)@example\.com`, "replacement": "$1 at example", "text": "ada@example.com",
		}).Value)

	errs := []struct {
		tool string
		args map[string]any
	}{
		{"b64_decode", map[string]any{"text": "!!"}},
		{"b64_decode", map[string]any{"text": "/w=="}},
		{"regex_replace", map[string]any{"pattern": "(", "replacement": "", "text": "x"}},
		{"password_generate", map[string]any{"length": 4}},
		{"password_generate", map[string]any{"length": 500}},
	}
	for _, e := range errs {
		_, err := d.Invoke(context.Background(), e.tool, e.args)
		assert.Equal(t, KindInvalidArguments, kindOf(t, err), e.tool)
	}
}

func TestPasswordGenerate(t *testing.T) {
	d := newBuiltinDispatcher(t, testDeps())

	pw := invoke(t, d, "password_generate", nil).Value.(string)
	assert.Len(t, pw, 16)

	plain := invoke(t, d, "password_generate", map[string]any{"length": 40, "symbols": false}).Value.(string)
	require.Len(t, plain, 40)
	for _, r := range plain {
		assert.True(t, strings.ContainsRune(passwordLetters, r), "unexpected %q", r)
	}
	other := invoke(t, d, "password_generate", map[string]any{"length": 40, "symbols": false}).Value.(string)
	assert.NotEqual(t, plain, other)
}

// =============================================================================
// UNITS
// =============================================================================

func TestConvert(t *testing.T) {
	tests := []struct {
		value    float64
		from, to string
		want     float64
	}{
		{5, "km", "mi", 3.10685596119},
		{1, "pounds", "kg", 0.45359237},
		{100, "C", "f", 212},
		{32, "fahrenheit", "celsius", 0},
		{0, "k", "c", -273.15},
		{90, "minutes", "h", 1.5},
		{2, "gal", "l", 7.570823568},
	}
	for _, tt := range tests {
		res, err := Convert(tt.value, tt.from, tt.to)
		require.NoError(t, err, "%s -> %s", tt.from, tt.to)
		assert.InDelta(t, tt.want, res.Result, 1e-9, "%s -> %s", tt.from, tt.to)
	}

	_, err := Convert(1, "kg", "km")
	assert.Equal(t, KindInvalidArguments, kindOf(t, err))
	_, err = Convert(1, "parsec", "km")
	assert.Equal(t, KindInvalidArguments, kindOf(t, err))
}

func TestUnitConvertTool(t *testing.T) {
	d := newBuiltinDispatcher(t, testDeps())
	res := invoke(t, d, "unit_convert", map[string]any{"value": 1.0, "from": "ft", "to": "cm"}).Value.(ConvertResult)
	assert.Equal(t, "ft", res.From)
	assert.Equal(t, "cm", res.To)
	assert.InDelta(t, 30.48, res.Result, 1e-9)
}

// =============================================================================
// GERMAN EXERCISES
// =============================================================================

func TestGenerateTasksTool(t *testing.T) {
	d := newBuiltinDispatcher(t, testDeps())
	args := map[string]any{
		"sentence": "Ich lerne heute Deutsch.",
		"types":    []any{"fill_blank", "multiple_choice", "roleplay"},
		"seed":     42,
	}

	first := invoke(t, d, "generate_tasks", args).Value.([]german.Task)
	require.Len(t, first, 3)
	assert.Equal(t, german.TaskFillBlank, first[0].Type)
	assert.Equal(t, german.TaskMultipleChoice, first[1].Type)
	assert.Equal(t, german.TaskRoleplay, first[2].Type)
	assert.Contains(t, []string{"lerne", "heute", "Deutsch"}, first[0].Answer)

	again := invoke(t, d, "generate_tasks", args).Value.([]german.Task)
	assert.Equal(t, first, again, "a seed makes the word choice repeatable")

	defaults := invoke(t, d, "generate_tasks", map[string]any{"sentence": "ich habe ein haus"}).Value.([]german.Task)
	require.Len(t, defaults, 3)
	assert.Equal(t, german.TaskCorrection, defaults[0].Type)

	bad := []map[string]any{
		{"sentence": "Hallo.", "types": []any{"essay"}},
		{"sentence": "Hallo.", "types": []any{1}},
		{"sentence": "Hallo.", "count": 0},
		{"sentence": "   "},
	}
	for _, a := range bad {
		_, err := d.Invoke(context.Background(), "generate_tasks", a)
		assert.Equal(t, KindInvalidArguments, kindOf(t, err), a)
	}
}
