// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// =============================================================================
// FINGERPRINT TESTS
// =============================================================================

func TestFingerprint_Equivalences(t *testing.T) {
	base, err := Fingerprint("get_weather", map[string]any{"city": "Berlin", "units": "metric"})
	require.NoError(t, err)
	assert.Regexp(t, `^get_weather:[0-9a-f]{64}$`, base)

	same := []map[string]any{
		{"units": "metric", "city": "Berlin"},
		{"city": "  berlin ", "units": "METRIC"},
		{"City": "Berlin", "units": "metric"},
		{"city": "Ｂｅｒｌｉｎ", "units": "metric"}, // fullwidth forms fold under NFKC
	}
	for i, args := range same {
		fp, err := Fingerprint("Get_Weather ", args)
		require.NoError(t, err)
		assert.Equal(t, base, fp, "case %d", i)
	}

	other, err := Fingerprint("get_weather", map[string]any{"city": "Paris", "units": "metric"})
	require.NoError(t, err)
	assert.NotEqual(t, base, other)

	otherTool, err := Fingerprint("wiki_summary", map[string]any{"city": "Berlin", "units": "metric"})
	require.NoError(t, err)
	assert.NotEqual(t, base, otherTool)
}

func TestFingerprint_Numbers(t *testing.T) {
	variants := []map[string]any{
		{"n": 2},
		{"n": int64(2)},
		{"n": 2.0},
		{"n": json.Number("2")},
		{"n": json.Number("2.0")},
		{"n": json.Number("2e0")},
	}
	var first string
	for i, args := range variants {
		fp, err := Fingerprint("t", args)
		require.NoError(t, err)
		if i == 0 {
			first = fp
			continue
		}
		assert.Equal(t, first, fp, "variant %d", i)
	}

	frac, err := Fingerprint("t", map[string]any{"n": 2.5})
	require.NoError(t, err)
	assert.NotEqual(t, first, frac)
}

func TestFingerprint_Nested(t *testing.T) {
	a, err := Fingerprint("t", map[string]any{"tags": []any{"A", "b"}, "opts": map[string]any{"x": 1, "y": "Z"}})
	require.NoError(t, err)
	b, err := Fingerprint("t", map[string]any{"opts": map[string]any{"y": "z", "x": 1.0}, "tags": []string{"a", "B"}})
	require.NoError(t, err)
	assert.Equal(t, a, b)

	// Order of list elements is significant
	c, err := Fingerprint("t", map[string]any{"tags": []any{"b", "a"}, "opts": map[string]any{"x": 1, "y": "z"}})
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}

func TestFingerprint_Unsupported(t *testing.T) {
	_, err := Fingerprint("t", map[string]any{"f": func() {}})
	assert.Error(t, err)
}

func TestCanonical_SortedKeys(t *testing.T) {
	b, err := Canonical(map[string]any{"b": 1, "a": "X"})
	require.NoError(t, err)
	assert.Equal(t, `{"a":"x","b":1}`, string(b))
}

// =============================================================================
// STORE TESTS
// =============================================================================

func TestStore_HitAvoidsCompute(t *testing.T) {
	s := New(Options{})
	calls := 0
	fn := func(ctx context.Context) (any, error) {
		calls++
		return "sunny", nil
	}
	args := map[string]any{"city": "Berlin"}

	v, cached, err := s.GetOrCompute(context.Background(), "get_weather", args, time.Minute, fn)
	require.NoError(t, err)
	assert.Equal(t, "sunny", v)
	assert.False(t, cached)

	v, cached, err = s.GetOrCompute(context.Background(), "get_weather", map[string]any{"city": " BERLIN"}, time.Minute, fn)
	require.NoError(t, err)
	assert.Equal(t, "sunny", v)
	assert.True(t, cached)
	assert.Equal(t, 1, calls)

	st := s.Stats()
	assert.Equal(t, int64(1), st.Hits)
	assert.Equal(t, int64(1), st.Misses)
	assert.Equal(t, int64(1), st.Computes)
	assert.Equal(t, 1, st.Entries)
}

func TestStore_TTLExpiry(t *testing.T) {
	clock := newFakeClock()
	s := New(Options{Now: clock.Now})
	calls := 0
	fn := func(ctx context.Context) (any, error) {
		calls++
		return calls, nil
	}

	v, _, err := s.GetOrComputeKey(context.Background(), "k", 10*time.Minute, fn)
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	clock.Advance(9 * time.Minute)
	v, cached, err := s.GetOrComputeKey(context.Background(), "k", 10*time.Minute, fn)
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, 1, v)

	clock.Advance(2 * time.Minute)
	_, ok := s.Get("k")
	assert.False(t, ok, "entry past its ttl must be absent")

	v, cached, err = s.GetOrComputeKey(context.Background(), "k", 10*time.Minute, fn)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, 2, v)
	assert.Equal(t, int64(1), s.Stats().Expirations)
}

func TestStore_NoExpiry(t *testing.T) {
	clock := newFakeClock()
	s := New(Options{Now: clock.Now})
	s.Set("k", "v", 0)
	clock.Advance(24 * 365 * time.Hour)
	v, ok := s.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", v)
}

func TestStore_FailuresNotCached(t *testing.T) {
	s := New(Options{})
	boom := errors.New("upstream down")
	calls := 0
	fn := func(ctx context.Context) (any, error) {
		calls++
		if calls == 1 {
			return nil, boom
		}
		return "ok", nil
	}

	_, _, err := s.GetOrComputeKey(context.Background(), "k", time.Minute, fn)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 0, s.Len())

	v, cached, err := s.GetOrComputeKey(context.Background(), "k", time.Minute, fn)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, "ok", v)
}

func TestStore_PanicBecomesErrorAndIsNotCached(t *testing.T) {
	s := New(Options{})
	release := make(chan struct{})
	var calls atomic.Int32
	fn := func(ctx context.Context) (any, error) {
		if calls.Add(1) == 1 {
			<-release
			panic("bad lookup")
		}
		return "ok", nil
	}

	const n = 4
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, errs[i] = s.GetOrComputeKey(context.Background(), "k", time.Minute, fn)
		}(i)
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	failed := 0
	for _, err := range errs {
		if err != nil {
			failed++
			assert.ErrorIs(t, err, ErrComputePanic)
			assert.ErrorContains(t, err, "bad lookup")
		}
	}
	assert.GreaterOrEqual(t, failed, 1)

	v, _, err := s.GetOrComputeKey(context.Background(), "k", time.Minute, fn)
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
}

func TestStore_SingleComputeUnderConcurrency(t *testing.T) {
	s := New(Options{})
	var calls atomic.Int32
	release := make(chan struct{})
	fn := func(ctx context.Context) (any, error) {
		calls.Add(1)
		<-release
		return "value", nil
	}

	const n = 50
	var wg sync.WaitGroup
	var started sync.WaitGroup
	results := make([]any, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		started.Add(1)
		go func(i int) {
			defer wg.Done()
			started.Done()
			results[i], _, errs[i] = s.GetOrComputeKey(context.Background(), "shared", time.Minute, fn)
		}(i)
	}
	started.Wait()
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "value", results[i])
	}
}

func TestStore_WaiterHonoursOwnContext(t *testing.T) {
	s := New(Options{})
	release := make(chan struct{})
	fn := func(ctx context.Context) (any, error) {
		<-release
		return "late", nil
	}

	done := make(chan struct{})
	var leaderVal any
	var leaderErr error
	go func() {
		defer close(done)
		leaderVal, _, leaderErr = s.GetOrComputeKey(context.Background(), "k", time.Minute, fn)
	}()
	time.Sleep(10 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, _, err := s.GetOrComputeKey(ctx, "k", time.Minute, fn)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	<-done
	require.NoError(t, leaderErr)
	assert.Equal(t, "late", leaderVal)

	v, ok := s.Get("k")
	assert.True(t, ok)
	assert.Equal(t, "late", v)
}

func TestStore_ComputeContextIgnoresCallerCancel(t *testing.T) {
	s := New(Options{})
	ctx, cancel := context.WithCancel(context.Background())
	fn := func(c context.Context) (any, error) {
		cancel()
		time.Sleep(5 * time.Millisecond)
		return c.Err(), nil
	}
	_, _, err := s.GetOrComputeKey(ctx, "k", time.Minute, fn)
	// The caller gave up but the computation finished and was stored
	if err != nil {
		assert.ErrorIs(t, err, context.Canceled)
	}
	require.Eventually(t, func() bool {
		_, ok := s.Get("k")
		return ok
	}, time.Second, 5*time.Millisecond)
	v, _ := s.Get("k")
	assert.Nil(t, v)
}

func TestStore_SweepEvictsExpiredThenOldest(t *testing.T) {
	clock := newFakeClock()
	s := New(Options{MaxEntries: 3, Now: clock.Now})

	s.Set("old", 1, 0)
	clock.Advance(time.Second)
	s.Set("short", 2, 5*time.Second)
	clock.Advance(time.Second)
	s.Set("mid", 3, 0)
	clock.Advance(10 * time.Second) // "short" is now expired

	s.Set("new1", 4, 0)
	assert.Equal(t, 3, s.Len())
	_, ok := s.Get("short")
	assert.False(t, ok, "expired entry is swept first")
	_, ok = s.Get("old")
	assert.True(t, ok)

	clock.Advance(time.Second)
	s.Set("new2", 5, 0)
	assert.Equal(t, 3, s.Len())
	_, ok = s.Get("old")
	assert.False(t, ok, "oldest live entry is swept next")
	for _, k := range []string{"mid", "new1", "new2"} {
		_, ok := s.Get(k)
		assert.True(t, ok, k)
	}
	assert.Equal(t, int64(2), s.Stats().Evictions)
}

func TestStore_Purge(t *testing.T) {
	s := New(Options{})
	for i := 0; i < 5; i++ {
		s.Set(fmt.Sprintf("k%d", i), i, time.Minute)
	}
	assert.Equal(t, 5, s.Purge())
	assert.Equal(t, 0, s.Len())
}
