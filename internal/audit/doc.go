// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package audit keeps a SQLite history of tool invocations.
//
// Only the argument fingerprint is stored, never the arguments themselves.
// Each row records the tool, its side-effect class, the outcome ("ok" or an
// error kind), whether the result came from the cache and how long it took.
package audit
