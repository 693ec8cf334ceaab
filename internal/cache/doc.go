// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cache memoizes tool results by a normalized fingerprint of the call.
//
// Fingerprint canonicalizes argument maps (NFKC, trimmed, lower-cased strings;
// integral numbers printed as integers; sorted keys) and hashes them with
// SHA-256, so that trivially different spellings of the same request share an
// entry.
//
// Store is an in-memory TTL cache. GetOrCompute runs the compute function at
// most once per fingerprint at a time, however many callers are waiting, and
// never stores failures.
//
// Usage:
//
//	store := cache.New(cache.Options{MaxEntries: 512})
//	v, cached, err := store.GetOrCompute(ctx, "get_weather", args, 10*time.Minute,
//	    func(ctx context.Context) (any, error) { return fetch(ctx, args) })
package cache
