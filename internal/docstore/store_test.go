// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testDoc struct {
	Items []string `json:"items"`
	Limit int      `json:"limit"`
}

type defaultedDoc struct {
	Counts map[string]int `json:"counts"`
	Label  string         `json:"label"`
}

func (d *defaultedDoc) Defaults() {
	d.Counts = map[string]int{}
	d.Label = "default"
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir(), Options{})
	require.NoError(t, err)
	return s
}

// =============================================================================
// READ / WRITE
// =============================================================================

func TestStore_WriteReadRoundTrip(t *testing.T) {
	s := newTestStore(t)
	in := testDoc{Items: []string{"a", "b"}, Limit: 3}
	require.NoError(t, s.Write("todos", in))

	out, err := Read[testDoc](s, "todos")
	require.NoError(t, err)
	assert.Equal(t, in, out)

	snap, err := s.ReadRaw("todos")
	require.NoError(t, err)
	assert.True(t, snap.Exists)
	assert.Equal(t, SchemaVersion, snap.SchemaVersion)
	assert.False(t, snap.UpdatedAt.IsZero())
}

func TestStore_EnvelopeOnDisk(t *testing.T) {
	fixed := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	s, err := Open(t.TempDir(), Options{Now: func() time.Time { return fixed }})
	require.NoError(t, err)
	require.NoError(t, s.Write("notes", testDoc{Items: []string{"x"}}))

	b, err := os.ReadFile(s.Path("notes"))
	require.NoError(t, err)
	var env map[string]any
	require.NoError(t, json.Unmarshal(b, &env))
	assert.Equal(t, float64(1), env["schema_version"])
	assert.Equal(t, "notes", env["name"])
	assert.Equal(t, "2025-06-01T08:00:00Z", env["updated_at"])
	assert.NotNil(t, env["data"])

	info, err := os.Stat(s.Path("notes"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestStore_MissingUsesDefaults(t *testing.T) {
	s := newTestStore(t)

	plain, err := Read[testDoc](s, "todos")
	require.NoError(t, err)
	assert.Equal(t, testDoc{}, plain)

	d, err := Read[defaultedDoc](s, "study_activity")
	require.NoError(t, err)
	assert.Equal(t, "default", d.Label)
	assert.NotNil(t, d.Counts)

	_, err = os.Stat(s.Path("study_activity"))
	assert.True(t, os.IsNotExist(err), "read must not create the file")
}

func TestStore_LegacyBareJSON(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, os.WriteFile(s.Path("todos"), []byte(`{"items":["legacy"],"limit":1}`), 0644))

	snap, err := s.ReadRaw("todos")
	require.NoError(t, err)
	assert.Equal(t, 0, snap.SchemaVersion)

	doc, err := Update(s, "todos", func(d *testDoc) error {
		d.Items = append(d.Items, "new")
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"legacy", "new"}, doc.Items)

	snap, err = s.ReadRaw("todos")
	require.NoError(t, err)
	assert.Equal(t, SchemaVersion, snap.SchemaVersion)
}

func TestStore_CorruptFile(t *testing.T) {
	s := newTestStore(t)
	for _, content := range []string{"{not json", "", `{"schema_version":9,"data":{}}`, `{"items":"wrong type"}`} {
		require.NoError(t, os.WriteFile(s.Path("todos"), []byte(content), 0644))

		_, err := Read[testDoc](s, "todos")
		require.ErrorIs(t, err, ErrCorrupt, "content %q", content)
		var cerr *CorruptError
		require.True(t, errors.As(err, &cerr))
		assert.Equal(t, "todos", cerr.Name)

		_, err = Update(s, "todos", func(d *testDoc) error { return nil })
		assert.ErrorIs(t, err, ErrCorrupt)

		b, _ := os.ReadFile(s.Path("todos"))
		assert.Equal(t, content, string(b), "corrupt file must not be repaired")
	}
}

func TestStore_Quarantine(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, os.WriteFile(s.Path("todos"), []byte("garbage"), 0644))

	dest, err := s.Quarantine("todos")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(filepath.Base(dest), "todos.json.corrupt-"))
	_, err = os.Stat(dest)
	require.NoError(t, err)

	doc, err := Read[testDoc](s, "todos")
	require.NoError(t, err)
	assert.Empty(t, doc.Items)

	_, err = s.Quarantine("todos")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_InvalidNames(t *testing.T) {
	s := newTestStore(t)
	for _, name := range []string{"", "Todos", "../etc", "a-b", "1abc", "a.b"} {
		assert.ErrorIs(t, s.Write(name, 1), ErrInvalidName, name)
		_, err := Read[int](s, name)
		assert.ErrorIs(t, err, ErrInvalidName, name)
	}
}

func TestStore_Names(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Write("todos", 1))
	require.NoError(t, s.Write("notes", 2))
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), "README.txt"), nil, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), "Bad-Name.json"), nil, 0644))

	names, err := s.Names()
	require.NoError(t, err)
	assert.Equal(t, []string{"notes", "todos"}, names)
}

// =============================================================================
// UPDATE
// =============================================================================

func TestUpdate_NoChangeSkipsWrite(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Write("todos", testDoc{Limit: 1}))
	before, err := os.Stat(s.Path("todos"))
	require.NoError(t, err)
	snapBefore, _ := s.ReadRaw("todos")

	time.Sleep(10 * time.Millisecond)
	doc, err := Update(s, "todos", func(d *testDoc) error {
		return ErrNoChange
	})
	require.NoError(t, err)
	assert.Equal(t, 1, doc.Limit)

	after, err := os.Stat(s.Path("todos"))
	require.NoError(t, err)
	assert.Equal(t, before.ModTime(), after.ModTime())
	snapAfter, _ := s.ReadRaw("todos")
	assert.Equal(t, snapBefore.UpdatedAt, snapAfter.UpdatedAt)
}

func TestUpdate_MissingDocumentNoChangeDoesNotCreate(t *testing.T) {
	s := newTestStore(t)
	_, err := Update(s, "todos", func(d *testDoc) error { return ErrNoChange })
	require.NoError(t, err)
	_, err = os.Stat(s.Path("todos"))
	assert.True(t, os.IsNotExist(err))
}

func TestUpdate_ErrorAborts(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Write("todos", testDoc{Items: []string{"keep"}}))
	boom := errors.New("validation failed")

	_, err := Update(s, "todos", func(d *testDoc) error {
		d.Items = nil
		return boom
	})
	require.ErrorIs(t, err, boom)

	doc, err := Read[testDoc](s, "todos")
	require.NoError(t, err)
	assert.Equal(t, []string{"keep"}, doc.Items)
}

func TestUpdate_SerializedPerName(t *testing.T) {
	s := newTestStore(t)
	const n = 40
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := Update(s, "counter", func(d *testDoc) error {
				d.Limit++
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	doc, err := Read[testDoc](s, "counter")
	require.NoError(t, err)
	assert.Equal(t, n, doc.Limit)
}

func TestUpdate_InterruptedWriteKeepsPrevious(t *testing.T) {
	dir := t.TempDir()
	good, err := Open(dir, Options{})
	require.NoError(t, err)
	require.NoError(t, good.Write("todos", testDoc{Items: []string{"committed"}}))

	crash := errors.New("power loss")
	crashing, err := Open(dir, Options{BeforeRename: func(string) error { return crash }})
	require.NoError(t, err)

	_, err = Update(crashing, "todos", func(d *testDoc) error {
		d.Items = append(d.Items, "lost")
		return nil
	})
	require.ErrorIs(t, err, crash)

	doc, err := Read[testDoc](good, "todos")
	require.NoError(t, err)
	assert.Equal(t, []string{"committed"}, doc.Items)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

// =============================================================================
// WATCH
// =============================================================================

func TestWatch_ReportsWrites(t *testing.T) {
	s := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := s.WatchDebounced(ctx, 20*time.Millisecond, "todos")
	require.NoError(t, err)

	require.NoError(t, s.Write("notes", 1))
	require.NoError(t, s.Write("todos", 1))
	require.NoError(t, s.Write("todos", 2))

	select {
	case c := <-ch:
		assert.Equal(t, "todos", c.Name)
	case <-time.After(3 * time.Second):
		t.Fatal("no change reported")
	}

	cancel()
	require.Eventually(t, func() bool {
		select {
		case _, ok := <-ch:
			return !ok
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWatch_InvalidName(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Watch(context.Background(), "Bad")
	assert.ErrorIs(t, err, ErrInvalidName)
}
