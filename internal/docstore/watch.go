// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package docstore

import (
	"context"
	"log"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/jeranaias/rigrun-tools/internal/util"
)

// DefaultDebounce coalesces bursts of filesystem events for one document.
const DefaultDebounce = 100 * time.Millisecond

// Change reports that a document was written, replaced or removed.
type Change struct {
	Name string
	At   time.Time
}

// Watch emits a Change for each settled modification of the named documents,
// or of every document when names is empty. The channel is closed when ctx is
// done or the underlying watcher fails.
func (s *Store) Watch(ctx context.Context, names ...string) (<-chan Change, error) {
	return s.WatchDebounced(ctx, DefaultDebounce, names...)
}

// WatchDebounced is Watch with an explicit debounce interval.
func (s *Store) WatchDebounced(ctx context.Context, debounce time.Duration, names ...string) (<-chan Change, error) {
	filter := make(map[string]bool, len(names))
	for _, n := range names {
		if err := ValidName(n); err != nil {
			return nil, err
		}
		filter[n] = true
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// Watch the directory: atomic renames replace the file's inode
	if err := w.Add(s.dir); err != nil {
		w.Close()
		return nil, err
	}

	out := make(chan Change, 16)
	dw := &docWatcher{
		watcher:  w,
		filter:   filter,
		debounce: debounce,
		out:      out,
		pending:  make(map[string]*time.Timer),
	}
	go dw.run(ctx)
	return out, nil
}

type docWatcher struct {
	watcher  *fsnotify.Watcher
	filter   map[string]bool
	debounce time.Duration
	out      chan Change

	mu      sync.Mutex
	pending map[string]*time.Timer
	closed  bool
}

func (dw *docWatcher) run(ctx context.Context) {
	defer func() {
		dw.mu.Lock()
		dw.closed = true
		for _, t := range dw.pending {
			t.Stop()
		}
		dw.mu.Unlock()
		dw.watcher.Close()
		close(dw.out)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-dw.watcher.Events:
			if !ok {
				return
			}
			if name, ok := dw.documentName(ev.Name); ok {
				dw.schedule(name)
			}
		case err, ok := <-dw.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("DOC_WATCH_ERROR | err=%v", err)
		}
	}
}

// documentName maps an event path to a watched document name.
func (dw *docWatcher) documentName(path string) (string, bool) {
	base := filepath.Base(path)
	if strings.HasPrefix(base, util.TempPrefix) || !strings.HasSuffix(base, fileExt) {
		return "", false
	}
	name := strings.TrimSuffix(base, fileExt)
	if !namePattern.MatchString(name) {
		return "", false
	}
	if len(dw.filter) > 0 && !dw.filter[name] {
		return "", false
	}
	return name, true
}

func (dw *docWatcher) schedule(name string) {
	dw.mu.Lock()
	defer dw.mu.Unlock()
	if t, ok := dw.pending[name]; ok {
		t.Reset(dw.debounce)
		return
	}
	dw.pending[name] = time.AfterFunc(dw.debounce, func() {
		dw.mu.Lock()
		delete(dw.pending, name)
		closed := dw.closed
		if !closed {
			// Drop the notification rather than block when nobody is reading
			select {
			case dw.out <- Change{Name: name, At: time.Now()}:
			default:
			}
		}
		dw.mu.Unlock()
	})
}
