// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cache

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultMaxEntries bounds the store when Options.MaxEntries is zero.
const DefaultMaxEntries = 1024

// ErrComputePanic wraps a panic raised by a ComputeFunc.
var ErrComputePanic = errors.New("compute panicked")

// ComputeFunc produces a value on a cache miss.
type ComputeFunc func(ctx context.Context) (any, error)

// Options configures a Store.
type Options struct {
	// MaxEntries is the soft bound enforced by the sweep after each store
	MaxEntries int
	// Now overrides the clock, for tests
	Now func() time.Time
}

// Stats is a snapshot of store counters.
type Stats struct {
	Hits        int64 `json:"hits"`
	Misses      int64 `json:"misses"`
	Computes    int64 `json:"computes"`
	Evictions   int64 `json:"evictions"`
	Expirations int64 `json:"expirations"`
	Entries     int   `json:"entries"`
}

type entry struct {
	value     any
	createdAt time.Time
	// expiresAt is zero for entries that never expire
	expiresAt time.Time
}

func (e *entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// Store is an in-memory, fingerprint-keyed result cache.
// It is safe for concurrent use.
type Store struct {
	mu         sync.Mutex
	entries    map[string]*entry
	maxEntries int
	now        func() time.Time
	stats      Stats

	group singleflight.Group
}

// New creates an empty store.
func New(opts Options) *Store {
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = DefaultMaxEntries
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Store{
		entries:    make(map[string]*entry),
		maxEntries: opts.MaxEntries,
		now:        opts.Now,
	}
}

// =============================================================================
// LOOKUP
// =============================================================================

// Get returns the live value stored under key.
func (s *Store) Get(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.lookupLocked(key)
	if ok {
		s.stats.Hits++
	} else {
		s.stats.Misses++
	}
	return v, ok
}

// lookupLocked drops the entry if it has expired.
func (s *Store) lookupLocked(key string) (any, bool) {
	e, ok := s.entries[key]
	if !ok {
		return nil, false
	}
	if e.expired(s.now()) {
		delete(s.entries, key)
		s.stats.Expirations++
		return nil, false
	}
	return e.value, true
}

// Set stores value under key. A ttl of zero or less never expires.
func (s *Store) Set(key string, value any, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setLocked(key, value, ttl)
}

func (s *Store) setLocked(key string, value any, ttl time.Duration) {
	now := s.now()
	e := &entry{value: value, createdAt: now}
	if ttl > 0 {
		e.expiresAt = now.Add(ttl)
	}
	s.entries[key] = e
	if len(s.entries) > s.maxEntries {
		s.sweepLocked(now)
	}
}

// =============================================================================
// COMPUTE
// =============================================================================

type computed struct {
	value  any
	cached bool
}

// GetOrCompute fingerprints the call and delegates to GetOrComputeKey.
func (s *Store) GetOrCompute(ctx context.Context, tool string, args map[string]any, ttl time.Duration, fn ComputeFunc) (any, bool, error) {
	key, err := Fingerprint(tool, args)
	if err != nil {
		return nil, false, err
	}
	return s.GetOrComputeKey(ctx, key, ttl, fn)
}

// GetOrComputeKey returns the live value for key, or runs fn and stores its
// result. Concurrent callers with the same key share a single fn call. Each
// caller stops waiting when its own ctx is done; the shared computation keeps
// running for the others. fn receives a context that carries the values of
// the first caller's ctx but not its cancellation.
//
// Errors are returned to every waiter and never stored. The boolean result
// reports whether the value came from the cache.
func (s *Store) GetOrComputeKey(ctx context.Context, key string, ttl time.Duration, fn ComputeFunc) (any, bool, error) {
	s.mu.Lock()
	if v, ok := s.lookupLocked(key); ok {
		s.stats.Hits++
		s.mu.Unlock()
		log.Printf("CACHE_HIT | key=%s", key)
		return v, true, nil
	}
	s.stats.Misses++
	s.mu.Unlock()

	computeCtx := context.WithoutCancel(ctx)
	ch := s.group.DoChan(key, func() (result any, err error) {
		// a panicking fn fails this flight only and is not stored
		defer func() {
			if r := recover(); r != nil {
				log.Printf("CACHE_COMPUTE_PANIC | key=%s panic=%v", key, r)
				result, err = nil, fmt.Errorf("%w: %v", ErrComputePanic, r)
			}
		}()

		// A caller that missed just before the previous flight finished
		// must not compute again
		s.mu.Lock()
		if v, ok := s.lookupLocked(key); ok {
			s.mu.Unlock()
			return computed{value: v, cached: true}, nil
		}
		s.stats.Computes++
		s.mu.Unlock()

		v, err := fn(computeCtx)
		if err != nil {
			return nil, err
		}
		s.Set(key, v, ttl)
		return computed{value: v}, nil
	})

	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, false, res.Err
		}
		c := res.Val.(computed)
		return c.value, c.cached, nil
	}
}

// =============================================================================
// MAINTENANCE
// =============================================================================

// sweepLocked removes expired entries, earliest expiry first, then the oldest
// live entries until the store is back within bounds.
func (s *Store) sweepLocked(now time.Time) {
	type candidate struct {
		key string
		at  time.Time
	}
	var expired, live []candidate
	for k, e := range s.entries {
		if e.expired(now) {
			expired = append(expired, candidate{k, e.expiresAt})
		} else {
			live = append(live, candidate{k, e.createdAt})
		}
	}
	sort.Slice(expired, func(i, j int) bool { return expired[i].at.Before(expired[j].at) })
	sort.SliceStable(live, func(i, j int) bool { return live[i].at.Before(live[j].at) })

	for _, group := range [][]candidate{expired, live} {
		for _, c := range group {
			if len(s.entries) <= s.maxEntries {
				return
			}
			delete(s.entries, c.key)
			s.stats.Evictions++
		}
	}
}

// Delete removes key.
func (s *Store) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
}

// Purge removes every entry and returns how many were removed.
func (s *Store) Purge() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.entries)
	s.entries = make(map[string]*entry)
	return n
}

// Len returns the number of stored entries, including expired ones not yet
// dropped.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Stats returns a snapshot of the counters.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.stats
	st.Entries = len(s.entries)
	return st
}
