// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package tools is the tool dispatch layer of rigrun-tools.
//
// Tools are registered once, statically, and invoked by name with a map of
// JSON-shaped arguments. The dispatcher validates the arguments against the
// tool's parameters, applies defaults and routes the call by side effect.
//
// # Key Types
//
//   - Descriptor: Name, description, parameters and side effect of a tool
//   - Entry: Descriptor bound to an implementation (Pure, Cacheable, Mutating)
//   - Registry: Frozen set of entries built by NewRegistry
//   - Dispatcher: Validates, routes, logs and records invocations
//   - Error: Typed failure with a Kind from the fixed taxonomy
//
// # Side Effects
//
// Pure tools run inline. Cacheable tools run through a cache.Store keyed by
// the argument fingerprint, bounded by a timeout; timeouts and failures are
// never cached. Mutating tools run inside docstore.Update on the document
// they own, so calls on one document are serialized.
//
// # Usage
//
//	reg, err := tools.NewRegistry(tools.Builtins(deps)...)
//	d, err := tools.NewDispatcher(reg, tools.Options{Docs: docs})
//	res, err := d.Invoke(ctx, "calculate", map[string]any{"expression": "(15 + 10) * 2"})
package tools
