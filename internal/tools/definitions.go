// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tools

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jeranaias/rigrun-tools/internal/docstore"
)

// =============================================================================
// SIDE EFFECTS
// =============================================================================

// SideEffect decides how the dispatcher routes a tool.
type SideEffect string

const (
	// SideEffectPure tools are deterministic and run inline
	SideEffectPure SideEffect = "pure"

	// SideEffectCacheable tools are slow or remote; results are cached by
	// argument fingerprint and every call is bounded by a timeout
	SideEffectCacheable SideEffect = "cacheable"

	// SideEffectMutating tools read and rewrite one named document
	SideEffectMutating SideEffect = "mutating"
)

// =============================================================================
// PARAMETERS
// =============================================================================

// ParamType is the JSON type of a parameter.
type ParamType string

const (
	TypeString  ParamType = "string"
	TypeNumber  ParamType = "number"
	TypeInteger ParamType = "integer"
	TypeBoolean ParamType = "boolean"
	TypeArray   ParamType = "array"
	TypeObject  ParamType = "object"
)

func (t ParamType) valid() bool {
	switch t {
	case TypeString, TypeNumber, TypeInteger, TypeBoolean, TypeArray, TypeObject:
		return true
	}
	return false
}

// Parameter describes one named argument.
type Parameter struct {
	Name        string    `json:"name" yaml:"name"`
	Type        ParamType `json:"type" yaml:"type"`
	Description string    `json:"description" yaml:"description"`
	Required    bool      `json:"required" yaml:"required"`

	// Default is applied when an optional argument is absent
	Default any `json:"default,omitempty" yaml:"default,omitempty"`

	// Enum restricts a string parameter to fixed values
	Enum []string `json:"enum,omitempty" yaml:"enum,omitempty"`
}

// =============================================================================
// DESCRIPTORS
// =============================================================================

// Descriptor is the static description of a tool.
type Descriptor struct {
	Name        string      `json:"name" yaml:"name"`
	Description string      `json:"description" yaml:"description"`
	Params      []Parameter `json:"params" yaml:"params"`
	SideEffect  SideEffect  `json:"side_effect" yaml:"side_effect"`

	// TTL is how long a cacheable result stays fresh
	TTL time.Duration `json:"ttl,omitempty" yaml:"ttl,omitempty"`

	// Timeout overrides the dispatcher default for cacheable tools
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`

	// Document is the document a mutating tool owns
	Document string `json:"document,omitempty" yaml:"document,omitempty"`
}

// Param returns the parameter called name.
func (d Descriptor) Param(name string) (Parameter, bool) {
	for _, p := range d.Params {
		if p.Name == name {
			return p, true
		}
	}
	return Parameter{}, false
}

// ShortDescription returns the first line of the description.
func (d Descriptor) ShortDescription() string {
	if i := strings.IndexByte(d.Description, '\n'); i >= 0 {
		return d.Description[:i]
	}
	return d.Description
}

// =============================================================================
// ENTRIES
// =============================================================================

// Func is the body of a pure or cacheable tool.
type Func func(ctx context.Context, args Args) (any, error)

// MutateFunc is the body of a mutating tool. It may change doc in place and
// returns the tool's value. Returning docstore.ErrNoChange together with a
// value makes the call read-only.
type MutateFunc[T any] func(ctx context.Context, doc *T, args Args) (any, error)

type runFunc func(ctx context.Context, docs *docstore.Store, args Args) (any, error)

// Entry is a descriptor bound to its implementation. Build entries with
// Pure, Cacheable or Mutating; the constructor fixes the side effect.
type Entry struct {
	Descriptor
	run runFunc
}

// Pure binds a pure tool.
func Pure(d Descriptor, fn Func) Entry {
	d.SideEffect = SideEffectPure
	return Entry{Descriptor: d, run: wrapFunc(fn)}
}

// Cacheable binds a cacheable tool. d.TTL must be positive.
func Cacheable(d Descriptor, fn Func) Entry {
	d.SideEffect = SideEffectCacheable
	return Entry{Descriptor: d, run: wrapFunc(fn)}
}

// Mutating binds a tool that owns the document d.Document. Each call runs
// inside docstore.Update, so calls on the same document are serialized.
func Mutating[T any](d Descriptor, fn MutateFunc[T]) Entry {
	d.SideEffect = SideEffectMutating
	if fn == nil {
		return Entry{Descriptor: d}
	}
	name := d.Document
	return Entry{Descriptor: d, run: func(ctx context.Context, docs *docstore.Store, args Args) (any, error) {
		var out any
		_, err := docstore.Update(docs, name, func(doc *T) error {
			v, err := fn(ctx, doc, args)
			if err != nil && !errors.Is(err, docstore.ErrNoChange) {
				return err
			}
			out = v
			return err
		})
		if err != nil {
			return nil, err
		}
		return out, nil
	}}
}

func wrapFunc(fn Func) runFunc {
	if fn == nil {
		return nil
	}
	return func(ctx context.Context, _ *docstore.Store, args Args) (any, error) {
		return fn(ctx, args)
	}
}
