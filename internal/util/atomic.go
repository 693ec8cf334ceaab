// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared by the rigrun-tools packages.
package util

import (
	"fmt"
	"os"
	"path/filepath"
)

// TempPrefix is the name prefix of in-flight temporary files. Readers that
// list a directory should skip names with this prefix.
const TempPrefix = ".tmp-"

// =============================================================================
// ATOMIC WRITER
// =============================================================================

// RELIABILITY: Atomic write with fsync prevents data loss on crash
//
// AtomicWriter writes files using the following pattern:
//  1. Write to a temporary file in the same directory
//  2. Sync the data to disk using fsync
//  3. Close the file and set its permissions
//  4. Atomically rename the temp file over the target path
//  5. Sync the parent directory so the rename itself is durable
//
// On crash, either the old file or the new complete file exists.
type AtomicWriter struct {
	// FilePerm is applied to the written file (default 0644)
	FilePerm os.FileMode

	// DirPerm is used when the parent directory must be created (default 0755)
	DirPerm os.FileMode

	// BeforeRename, when set, runs after the temp file is durable and before
	// the rename. A non-nil error aborts the write and leaves the target
	// untouched. Tests use it to simulate an interrupted commit.
	BeforeRename func(tempPath string) error
}

// Write writes data to path atomically.
func (w AtomicWriter) Write(path string, data []byte) error {
	filePerm := w.FilePerm
	if filePerm == 0 {
		filePerm = 0644
	}
	dirPerm := w.DirPerm
	if dirPerm == 0 {
		dirPerm = 0755
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to get absolute path: %w", err)
	}

	dir := filepath.Dir(absPath)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return fmt.Errorf("failed to create parent directory: %w", err)
	}

	// Same directory keeps the rename on one filesystem
	f, err := os.CreateTemp(dir, TempPrefix)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tempPath := f.Name()

	success := false
	defer func() {
		if !success {
			f.Close()
			os.Remove(tempPath)
		}
	}()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("failed to write data: %w", err)
	}

	// RELIABILITY: Sync to disk - ensures data is persisted before rename
	if err := f.Sync(); err != nil {
		return fmt.Errorf("failed to sync data to disk: %w", err)
	}

	// Close before rename - required on some systems (Windows)
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Chmod(tempPath, filePerm); err != nil {
		return fmt.Errorf("failed to set file permissions: %w", err)
	}

	if w.BeforeRename != nil {
		if err := w.BeforeRename(tempPath); err != nil {
			return fmt.Errorf("commit aborted: %w", err)
		}
	}

	if err := os.Rename(tempPath, absPath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	success = true

	syncDir(dir)
	return nil
}

// syncDir flushes directory metadata. Not every platform supports opening a
// directory for sync, so failures are ignored.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = d.Sync()
	d.Close()
}

// AtomicWriteFile writes data to a file atomically with the given permissions.
func AtomicWriteFile(path string, data []byte, perm os.FileMode) error {
	return AtomicWriter{FilePerm: perm}.Write(path, data)
}

// AtomicWriteFileWithDir is like AtomicWriteFile but also allows specifying
// the permissions for the parent directory if it needs to be created.
func AtomicWriteFileWithDir(path string, data []byte, filePerm, dirPerm os.FileMode) error {
	return AtomicWriter{FilePerm: filePerm, DirPerm: dirPerm}.Write(path, data)
}
