// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared by the rigrun-tools packages.
//
// # Key Functions
//
// File Operations:
//   - AtomicWriter: Crash-safe file writing (temp file, fsync, rename)
//   - AtomicWriteFile: Convenience wrapper with default directory permissions
//
// String Utilities:
//   - TruncateRunes: UTF-8 safe truncation with ellipsis
//   - TruncateWidth, PadRight, StringWidth: display-width aware helpers
//   - OneLine: collapse whitespace for log records
//
// # Usage
//
//	// Write a document so readers never observe a partial file
//	err := util.AtomicWriteFile(path, data, 0600)
//
//	// Fit a description into a 40-column table cell
//	cell := util.PadRight(util.TruncateWidth(desc, 40), 40)
package util
