// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// =============================================================================
// FINGERPRINT
// =============================================================================

// Fingerprint returns the cache key for a tool call.
//
// Argument maps that differ only in key order, surrounding whitespace, letter
// case, Unicode compatibility forms or numeric spelling (2 versus 2.0) yield
// the same fingerprint. The result has the form "<tool>:<sha256 hex>".
func Fingerprint(tool string, args map[string]any) (string, error) {
	canon, err := Canonical(args)
	if err != nil {
		return "", fmt.Errorf("fingerprint %s: %w", tool, err)
	}
	sum := sha256.Sum256(canon)
	return normalizeString(tool) + ":" + hex.EncodeToString(sum[:]), nil
}

// Canonical returns the canonical JSON encoding of args used for hashing.
func Canonical(args map[string]any) ([]byte, error) {
	v, err := canonicalize(args)
	if err != nil {
		return nil, err
	}
	// encoding/json writes map keys in sorted order
	return json.Marshal(v)
}

func normalizeString(s string) string {
	return strings.ToLower(strings.TrimSpace(norm.NFKC.String(s)))
}

func canonicalize(v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case string:
		return normalizeString(x), nil
	case bool:
		return x, nil
	case json.Number:
		return canonicalNumberString(string(x))
	case float64:
		return canonicalFloat(x)
	case float32:
		return canonicalFloat(float64(x))
	case int:
		return json.Number(strconv.FormatInt(int64(x), 10)), nil
	case int64:
		return json.Number(strconv.FormatInt(x, 10)), nil
	case int32:
		return json.Number(strconv.FormatInt(int64(x), 10)), nil
	case uint64:
		return json.Number(strconv.FormatUint(x, 10)), nil
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, val := range x {
			c, err := canonicalize(val)
			if err != nil {
				return nil, err
			}
			out[normalizeString(k)] = c
		}
		return out, nil
	case []any:
		out := make([]any, len(x))
		for i, val := range x {
			c, err := canonicalize(val)
			if err != nil {
				return nil, err
			}
			out[i] = c
		}
		return out, nil
	case []string:
		out := make([]any, len(x))
		for i, s := range x {
			out[i] = normalizeString(s)
		}
		return out, nil
	}
	return canonicalizeOther(v)
}

// canonicalizeOther routes values of other Go types through their JSON form.
func canonicalizeOther(v any) (any, error) {
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Func || rv.Kind() == reflect.Chan {
		return nil, fmt.Errorf("unsupported argument type %T", v)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("unsupported argument type %T: %w", v, err)
	}
	dec := json.NewDecoder(strings.NewReader(string(b)))
	dec.UseNumber()
	var generic any
	if err := dec.Decode(&generic); err != nil {
		return nil, err
	}
	return canonicalize(generic)
}

func canonicalNumberString(s string) (any, error) {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return json.Number(strconv.FormatInt(i, 10)), nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid number %q", s)
	}
	return canonicalFloat(f)
}

func canonicalFloat(f float64) (any, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("non-finite number %v", f)
	}
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return json.Number(strconv.FormatInt(int64(f), 10)), nil
	}
	return json.Number(strconv.FormatFloat(f, 'f', -1, 64)), nil
}
