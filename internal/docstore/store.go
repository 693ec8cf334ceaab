// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package docstore

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jeranaias/rigrun-tools/internal/util"
)

// SchemaVersion is written into every envelope.
const SchemaVersion = 1

const fileExt = ".json"

var namePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// Defaulter is implemented by document types that need non-zero initial
// values when their file does not exist yet.
type Defaulter interface {
	Defaults()
}

// envelope is the on-disk form of a document.
type envelope struct {
	SchemaVersion int             `json:"schema_version"`
	Name          string          `json:"name"`
	UpdatedAt     time.Time       `json:"updated_at"`
	Data          json.RawMessage `json:"data"`
}

// Snapshot is the undecoded content of a document.
type Snapshot struct {
	Name string
	// Exists is false when the file is missing; the other fields are then zero
	Exists bool
	// SchemaVersion is 0 for legacy files written without an envelope
	SchemaVersion int
	UpdatedAt     time.Time
	Data          json.RawMessage
}

// Options configures a Store.
type Options struct {
	FilePerm os.FileMode
	DirPerm  os.FileMode
	// Now overrides the clock used for updated_at
	Now func() time.Time
	// BeforeRename is passed to the atomic writer, for crash tests
	BeforeRename func(tempPath string) error
}

// =============================================================================
// STORE
// =============================================================================

// Store persists named JSON documents in one directory.
//
// Every write replaces the file atomically. Update is serialized per document
// within the process. Only one process may use a directory at a time; there
// is no cross-process lock and concurrent processes are last-writer-wins.
type Store struct {
	dir    string
	writer util.AtomicWriter
	now    func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// Open creates dir if needed and returns a store rooted there.
func Open(dir string, opts Options) (*Store, error) {
	if dir == "" {
		return nil, errors.New("docstore: empty data directory")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	if opts.FilePerm == 0 {
		opts.FilePerm = 0600
	}
	if opts.DirPerm == 0 {
		opts.DirPerm = 0700
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if err := os.MkdirAll(abs, opts.DirPerm); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	return &Store{
		dir: abs,
		writer: util.AtomicWriter{
			FilePerm:     opts.FilePerm,
			DirPerm:      opts.DirPerm,
			BeforeRename: opts.BeforeRename,
		},
		now:   opts.Now,
		locks: make(map[string]*sync.Mutex),
	}, nil
}

// Dir returns the absolute data directory.
func (s *Store) Dir() string {
	return s.dir
}

// ValidName reports whether name can be used as a document name.
func ValidName(name string) error {
	if !namePattern.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// Path returns the file path of a document.
func (s *Store) Path(name string) string {
	return filepath.Join(s.dir, name+fileExt)
}

func (s *Store) lock(name string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[name]
	if !ok {
		l = &sync.Mutex{}
		s.locks[name] = l
	}
	return l
}

// =============================================================================
// READ
// =============================================================================

// ReadRaw returns the undecoded document. A missing file is not an error.
func (s *Store) ReadRaw(name string) (Snapshot, error) {
	if err := ValidName(name); err != nil {
		return Snapshot{}, err
	}
	path := s.Path(name)
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Snapshot{Name: name}, nil
		}
		return Snapshot{}, fmt.Errorf("read document %s: %w", name, err)
	}
	snap, err := decodeFile(name, b)
	if err != nil {
		return Snapshot{}, &CorruptError{Name: name, Path: path, Err: err}
	}
	return snap, nil
}

func decodeFile(name string, b []byte) (Snapshot, error) {
	if len(bytes.TrimSpace(b)) == 0 {
		return Snapshot{}, errors.New("empty file")
	}
	if !json.Valid(b) {
		return Snapshot{}, errors.New("invalid JSON")
	}

	var fields map[string]json.RawMessage
	if json.Unmarshal(b, &fields) == nil {
		_, hasVersion := fields["schema_version"]
		_, hasData := fields["data"]
		if hasVersion && hasData {
			var env envelope
			if err := json.Unmarshal(b, &env); err != nil {
				return Snapshot{}, fmt.Errorf("envelope: %w", err)
			}
			if env.SchemaVersion < 1 || env.SchemaVersion > SchemaVersion {
				return Snapshot{}, fmt.Errorf("unsupported schema version %d", env.SchemaVersion)
			}
			return Snapshot{
				Name:          name,
				Exists:        true,
				SchemaVersion: env.SchemaVersion,
				UpdatedAt:     env.UpdatedAt,
				Data:          env.Data,
			}, nil
		}
	}

	// Legacy file: the whole content is the document
	return Snapshot{Name: name, Exists: true, Data: json.RawMessage(b)}, nil
}

// Read decodes a document into T. A missing document yields the zero value
// of T, with Defaults applied when T implements Defaulter.
func Read[T any](s *Store, name string) (T, error) {
	var v T
	snap, err := s.ReadRaw(name)
	if err != nil {
		return v, err
	}
	if err := decodeInto(s, snap, &v); err != nil {
		return v, err
	}
	return v, nil
}

func decodeInto[T any](s *Store, snap Snapshot, v *T) error {
	if d, ok := any(v).(Defaulter); ok {
		d.Defaults()
	}
	if !snap.Exists || len(snap.Data) == 0 || string(snap.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(snap.Data, v); err != nil {
		return &CorruptError{Name: snap.Name, Path: s.Path(snap.Name), Err: err}
	}
	return nil
}

// Names lists stored documents in sorted order.
func (s *Store) Names() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		n := e.Name()
		if e.IsDir() || !strings.HasSuffix(n, fileExt) {
			continue
		}
		n = strings.TrimSuffix(n, fileExt)
		if namePattern.MatchString(n) {
			names = append(names, n)
		}
	}
	sort.Strings(names)
	return names, nil
}

// =============================================================================
// WRITE
// =============================================================================

// Write replaces a document with v. Readers observe either the previous or
// the new content.
func (s *Store) Write(name string, v any) error {
	if err := ValidName(name); err != nil {
		return err
	}
	l := s.lock(name)
	l.Lock()
	defer l.Unlock()
	return s.writeLocked(name, v)
}

func (s *Store) writeLocked(name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode document %s: %w", name, err)
	}
	env := envelope{
		SchemaVersion: SchemaVersion,
		Name:          name,
		UpdatedAt:     s.now().UTC(),
		Data:          data,
	}
	out, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return fmt.Errorf("encode envelope %s: %w", name, err)
	}
	if err := s.writer.Write(s.Path(name), out); err != nil {
		return fmt.Errorf("write document %s: %w", name, err)
	}
	log.Printf("DOC_WRITE | name=%s bytes=%d", name, len(out))
	return nil
}

// Update is the read-modify-write operation for documents. fn receives the
// current value (defaults if missing) and may change it in place. If fn
// returns ErrNoChange the write is skipped; any other error aborts the update
// and leaves the file untouched. The returned value is the document after fn.
func Update[T any](s *Store, name string, fn func(doc *T) error) (T, error) {
	var v T
	if err := ValidName(name); err != nil {
		return v, err
	}
	l := s.lock(name)
	l.Lock()
	defer l.Unlock()

	snap, err := s.ReadRaw(name)
	if err != nil {
		return v, err
	}
	if err := decodeInto(s, snap, &v); err != nil {
		return v, err
	}

	if err := fn(&v); err != nil {
		if errors.Is(err, ErrNoChange) {
			return v, nil
		}
		return v, err
	}
	if err := s.writeLocked(name, v); err != nil {
		return v, err
	}
	return v, nil
}

// =============================================================================
// QUARANTINE
// =============================================================================

// Quarantine renames a document file aside so the next access starts from
// defaults. It returns the new path. The caller decides when this is wanted;
// the store never does it on its own.
func (s *Store) Quarantine(name string) (string, error) {
	if err := ValidName(name); err != nil {
		return "", err
	}
	l := s.lock(name)
	l.Lock()
	defer l.Unlock()

	path := s.Path(name)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return "", err
	}
	dest := path + ".corrupt-" + s.now().UTC().Format("20060102T150405Z")
	if err := os.Rename(path, dest); err != nil {
		return "", fmt.Errorf("quarantine %s: %w", name, err)
	}
	log.Printf("DOC_QUARANTINE | name=%s dest=%s", name, filepath.Base(dest))
	return dest, nil
}
