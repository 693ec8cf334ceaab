// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// args.go - Tool argument parsing shared by invoke and chat.

package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jeranaias/rigrun-tools/internal/tools"
	"github.com/jeranaias/rigrun-tools/internal/util"
)

// maxArgsInput bounds JSON read from stdin.
const maxArgsInput = 1 << 20

// parseToolArgs builds a tool argument map from an optional JSON object and
// repeated key=value pairs. raw "-" reads the object from stdin. Pair values
// for keys in strs stay verbatim; other values that are valid JSON are
// decoded and anything else is a string. Pairs override keys of the object.
func parseToolArgs(raw string, stdin io.Reader, pairs []string, strs map[string]bool) (map[string]any, error) {
	args := map[string]any{}

	if raw == "-" {
		if stdin == nil {
			return nil, newUsageError("arguments", "-", "stdin is not available", "")
		}
		b, err := io.ReadAll(io.LimitReader(stdin, maxArgsInput+1))
		if err != nil {
			return nil, fmt.Errorf("read arguments from stdin: %w", err)
		}
		if len(b) > maxArgsInput {
			return nil, newUsageError("arguments", "-", "stdin input exceeds 1 MiB", "")
		}
		raw = string(b)
	}

	if strings.TrimSpace(raw) != "" {
		obj, err := decodeObject(raw)
		if err != nil {
			return nil, newUsageError("arguments", util.TruncateRunes(util.OneLine(raw), 60), err.Error(), `'{"expression": "2 + 2"}'`)
		}
		args = obj
	}

	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, newUsageError("--arg", pair, "expected key=value", "--arg city=Paris")
		}
		if strs[key] {
			args[key] = value
			continue
		}
		args[key] = pairValue(value)
	}
	return args, nil
}

// stringParams names the string parameters of the tool called name, so
// --arg text=123 stays text. Unknown tools yield an empty set.
func stringParams(reg *tools.Registry, name string) map[string]bool {
	d, ok := reg.Lookup(name)
	if !ok {
		return nil
	}
	strs := make(map[string]bool, len(d.Params))
	for _, p := range d.Params {
		if p.Type == tools.TypeString {
			strs[p.Name] = true
		}
	}
	return strs
}

// decodeObject decodes a JSON object, keeping numbers exact.
func decodeObject(raw string) (map[string]any, error) {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("not valid JSON: %v", err)
	}
	if dec.More() {
		return nil, fmt.Errorf("trailing data after JSON object")
	}
	switch obj := v.(type) {
	case map[string]any:
		return obj, nil
	case nil:
		return map[string]any{}, nil
	default:
		return nil, fmt.Errorf("arguments must be a JSON object")
	}
}

// pairValue decodes s when it is a JSON value and returns it verbatim
// otherwise, so --arg city=Paris and --arg limit=5 both do what they say.
func pairValue(s string) any {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return s
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(trimmed)))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil || dec.More() {
		return s
	}
	return v
}
