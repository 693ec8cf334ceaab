// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package docstore persists small named JSON documents with crash-safe writes.
//
// Each document lives at <dir>/<name>.json inside a versioned envelope:
//
//	{"schema_version": 1, "name": "todos", "updated_at": "...", "data": {...}}
//
// Files written before the envelope existed are read as schema version 0 and
// rewritten in the envelope on their next write.
//
// Writes go through util.AtomicWriter, so a crash at any point leaves either
// the previous or the new complete file on disk. Update is the only
// read-modify-write operation and is serialized per document name:
//
//	todos, err := docstore.Update(store, "todos", func(doc *model.TodoList) error {
//	    doc.Items = append(doc.Items, item)
//	    return nil
//	})
//
// A file that cannot be decoded is reported as a *CorruptError and left in
// place until Quarantine is called.
package docstore
