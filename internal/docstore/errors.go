// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package docstore

import (
	"errors"
	"fmt"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrCorrupt matches every *CorruptError.
	ErrCorrupt = errors.New("corrupt document")

	// ErrNoChange is returned by an Update mutator that made no changes.
	// Update then skips the write and reports success.
	ErrNoChange = errors.New("no change")

	// ErrInvalidName is returned for document names outside [a-z][a-z0-9_]*.
	ErrInvalidName = errors.New("invalid document name")

	// ErrNotFound is returned by operations that need an existing file.
	ErrNotFound = errors.New("document not found")
)

// CorruptError reports a document file that exists but cannot be decoded.
// The file is left untouched; see Store.Quarantine.
type CorruptError struct {
	Name string
	Path string
	Err  error
}

// Error implements the error interface.
func (e *CorruptError) Error() string {
	return fmt.Sprintf("document %q (%s) is corrupt: %v", e.Name, e.Path, e.Err)
}

// Unwrap returns the decode error.
func (e *CorruptError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrCorrupt) true for any CorruptError.
func (e *CorruptError) Is(target error) bool {
	return target == ErrCorrupt
}
