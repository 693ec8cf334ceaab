// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tools

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/jeranaias/rigrun-tools/internal/docstore"
)

var toolNamePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// Registry is an immutable set of tools. It is safe for concurrent use.
type Registry struct {
	entries map[string]Entry
	names   []string
}

// NewRegistry validates entries and freezes them. Duplicate names and
// malformed descriptors are rejected.
func NewRegistry(entries ...Entry) (*Registry, error) {
	r := &Registry{entries: make(map[string]Entry, len(entries))}
	for _, e := range entries {
		if err := checkEntry(&e); err != nil {
			return nil, err
		}
		if _, dup := r.entries[e.Name]; dup {
			return nil, fmt.Errorf("tool %q registered twice", e.Name)
		}
		r.entries[e.Name] = e
		r.names = append(r.names, e.Name)
	}
	sort.Strings(r.names)
	return r, nil
}

// checkEntry validates e and canonicalizes parameter defaults in place.
func checkEntry(e *Entry) error {
	if !toolNamePattern.MatchString(e.Name) {
		return fmt.Errorf("invalid tool name %q", e.Name)
	}
	if e.Description == "" {
		return fmt.Errorf("tool %s: missing description", e.Name)
	}
	if e.run == nil {
		return fmt.Errorf("tool %s: missing implementation", e.Name)
	}

	switch e.SideEffect {
	case SideEffectPure:
	case SideEffectCacheable:
		if e.TTL <= 0 {
			return fmt.Errorf("tool %s: cacheable tools need a positive TTL", e.Name)
		}
	case SideEffectMutating:
		if err := docstore.ValidName(e.Document); err != nil {
			return fmt.Errorf("tool %s: %w", e.Name, err)
		}
	default:
		return fmt.Errorf("tool %s: unknown side effect %q", e.Name, e.SideEffect)
	}
	if e.SideEffect != SideEffectMutating && e.Document != "" {
		return fmt.Errorf("tool %s: only mutating tools own a document", e.Name)
	}
	if e.Timeout < 0 {
		return fmt.Errorf("tool %s: negative timeout", e.Name)
	}

	params := make([]Parameter, len(e.Params))
	seen := make(map[string]bool, len(e.Params))
	for i, p := range e.Params {
		if !toolNamePattern.MatchString(p.Name) {
			return fmt.Errorf("tool %s: invalid parameter name %q", e.Name, p.Name)
		}
		if seen[p.Name] {
			return fmt.Errorf("tool %s: duplicate parameter %q", e.Name, p.Name)
		}
		seen[p.Name] = true
		if !p.Type.valid() {
			return fmt.Errorf("tool %s: parameter %s has unknown type %q", e.Name, p.Name, p.Type)
		}
		if len(p.Enum) > 0 && p.Type != TypeString {
			return fmt.Errorf("tool %s: enum on non-string parameter %s", e.Name, p.Name)
		}
		if p.Default != nil {
			if p.Required {
				return fmt.Errorf("tool %s: required parameter %s cannot have a default", e.Name, p.Name)
			}
			v, err := coerce(p, p.Default)
			if err != nil {
				return fmt.Errorf("tool %s: bad default: %w", e.Name, err)
			}
			p.Default = v
		}
		params[i] = p
	}
	e.Params = params
	return nil
}

// Lookup returns the descriptor for name.
func (r *Registry) Lookup(name string) (Descriptor, bool) {
	e, ok := r.entries[name]
	return e.Descriptor, ok
}

func (r *Registry) entry(name string) (Entry, bool) {
	e, ok := r.entries[name]
	return e, ok
}

// Names returns the registered tool names in sorted order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.names...)
}

// Descriptors returns all descriptors sorted by name.
func (r *Registry) Descriptors() []Descriptor {
	out := make([]Descriptor, len(r.names))
	for i, n := range r.names {
		out[i] = r.entries[n].Descriptor
	}
	return out
}

// Len returns the number of tools.
func (r *Registry) Len() int {
	return len(r.names)
}

// hasMutating reports whether any tool needs a document store.
func (r *Registry) hasMutating() bool {
	for _, e := range r.entries {
		if e.SideEffect == SideEffectMutating {
			return true
		}
	}
	return false
}
