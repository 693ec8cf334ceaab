// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tools

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jeranaias/rigrun-tools/internal/audit"
	"github.com/jeranaias/rigrun-tools/internal/cache"
	"github.com/jeranaias/rigrun-tools/internal/docstore"
)

// DefaultTimeout bounds cacheable tools whose descriptor sets no timeout.
const DefaultTimeout = 10 * time.Second

// recordTimeout bounds a single history write.
const recordTimeout = 2 * time.Second

// Recorder receives one entry per invocation. *audit.History implements it.
type Recorder interface {
	Record(ctx context.Context, e audit.Entry) error
}

// Options configures a Dispatcher.
type Options struct {
	// Cache stores cacheable results. A private store is created when nil.
	Cache *cache.Store

	// Docs backs mutating tools. Required when the registry has any.
	Docs *docstore.Store

	// Timeout is the default bound for cacheable tools
	Timeout time.Duration

	// Recorder, when set, receives every invocation
	Recorder Recorder

	// Now overrides the clock used for durations and history timestamps
	Now func() time.Time
}

// Result is a successful invocation.
type Result struct {
	Tool     string        `json:"tool"`
	Value    any           `json:"value"`
	Cached   bool          `json:"cached"`
	Duration time.Duration `json:"duration"`
}

// =============================================================================
// DISPATCHER
// =============================================================================

// Dispatcher validates arguments and routes calls by side effect. It is safe
// for concurrent use.
type Dispatcher struct {
	reg      *Registry
	cache    *cache.Store
	docs     *docstore.Store
	timeout  time.Duration
	recorder Recorder
	now      func() time.Time
}

// NewDispatcher returns a dispatcher over reg.
func NewDispatcher(reg *Registry, opts Options) (*Dispatcher, error) {
	if reg == nil {
		return nil, errors.New("registry is nil")
	}
	if opts.Docs == nil && reg.hasMutating() {
		return nil, errors.New("mutating tools registered without a document store")
	}
	d := &Dispatcher{
		reg:      reg,
		cache:    opts.Cache,
		docs:     opts.Docs,
		timeout:  opts.Timeout,
		recorder: opts.Recorder,
		now:      opts.Now,
	}
	if d.cache == nil {
		d.cache = cache.New(cache.Options{})
	}
	if d.timeout <= 0 {
		d.timeout = DefaultTimeout
	}
	if d.now == nil {
		d.now = time.Now
	}
	return d, nil
}

// Registry returns the dispatcher's registry.
func (d *Dispatcher) Registry() *Registry {
	return d.reg
}

// Cache returns the result cache.
func (d *Dispatcher) Cache() *cache.Store {
	return d.cache
}

// Docs returns the document store, which may be nil.
func (d *Dispatcher) Docs() *docstore.Store {
	return d.docs
}

// Invoke runs tool name with args. Every failure is an *Error.
func (d *Dispatcher) Invoke(ctx context.Context, name string, args map[string]any) (Result, error) {
	start := d.now()

	entry, ok := d.reg.entry(name)
	if !ok {
		err := &Error{Kind: KindUnknownTool, Tool: name, Message: fmt.Sprintf("unknown tool %q", name)}
		d.finish(ctx, name, "", "", start, false, err)
		return Result{}, err
	}

	fingerprint, _ := cache.Fingerprint(name, args)

	validated, err := validateArgs(entry.Descriptor, args)
	if err != nil {
		te := classify(name, err)
		d.finish(ctx, name, entry.SideEffect, fingerprint, start, false, te)
		return Result{}, te
	}

	var value any
	var cached bool
	switch entry.SideEffect {
	case SideEffectCacheable:
		value, cached, err = d.invokeCacheable(ctx, entry, validated)
	default:
		value, err = safeRun(ctx, entry, d.docs, validated)
	}

	duration := d.now().Sub(start)
	if err != nil {
		te := classify(name, err)
		d.finish(ctx, name, entry.SideEffect, fingerprint, start, cached, te)
		return Result{}, te
	}
	d.finish(ctx, name, entry.SideEffect, fingerprint, start, cached, nil)
	return Result{Tool: name, Value: value, Cached: cached, Duration: duration}, nil
}

// invokeCacheable runs entry through the cache. The timeout is applied to the
// shared computation so that a timed out call is never stored.
func (d *Dispatcher) invokeCacheable(ctx context.Context, entry Entry, args Args) (any, bool, error) {
	key, err := cache.Fingerprint(entry.Name, map[string]any(args))
	if err != nil {
		return nil, false, invalidArg("", "arguments cannot be fingerprinted: %v", err)
	}
	timeout := entry.Timeout
	if timeout <= 0 {
		timeout = d.timeout
	}

	return d.cache.GetOrComputeKey(ctx, key, entry.TTL, func(cctx context.Context) (any, error) {
		return runBounded(cctx, timeout, entry, args)
	})
}

// runBounded runs entry in a goroutine and gives up after timeout, even if the
// tool ignores its context.
func runBounded(ctx context.Context, timeout time.Duration, entry Entry, args Args) (any, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		value any
		err   error
	}
	ch := make(chan outcome, 1)
	go func() {
		v, err := safeRun(ctx, entry, nil, args)
		ch <- outcome{v, err}
	}()

	select {
	case o := <-ch:
		return o.value, o.err
	case <-ctx.Done():
		return nil, &Error{
			Kind:    KindTimeout,
			Tool:    entry.Name,
			Message: fmt.Sprintf("no result after %s", timeout),
			Err:     ctx.Err(),
		}
	}
}

// safeRun calls the tool body, converting a panic into UpstreamFailure.
func safeRun(ctx context.Context, entry Entry, docs *docstore.Store, args Args) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("TOOL_PANIC | tool=%s panic=%v", entry.Name, r)
			value = nil
			err = &Error{
				Kind:    KindUpstreamFailure,
				Tool:    entry.Name,
				Message: genericFailure,
				Err:     fmt.Errorf("panic: %v", r),
			}
		}
	}()
	return entry.run(ctx, docs, args)
}

// =============================================================================
// LOGGING AND HISTORY
// =============================================================================

func (d *Dispatcher) finish(ctx context.Context, name string, class SideEffect, fingerprint string, start time.Time, cached bool, err *Error) {
	duration := d.now().Sub(start)
	outcome := audit.OutcomeOK
	if err != nil {
		outcome = string(err.Kind)
	}
	if err != nil && err.Err != nil {
		log.Printf("TOOL_INVOKE | tool=%s class=%s outcome=%s cached=%t duration=%s cause=%v",
			name, class, outcome, cached, duration, err.Err)
	} else {
		log.Printf("TOOL_INVOKE | tool=%s class=%s outcome=%s cached=%t duration=%s",
			name, class, outcome, cached, duration)
	}

	if d.recorder == nil {
		return
	}
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()
	entry := audit.Entry{
		Tool:        name,
		Class:       string(class),
		Fingerprint: fingerprint,
		Outcome:     outcome,
		Cached:      cached,
		Duration:    duration,
		At:          start,
	}
	if rerr := d.recorder.Record(rctx, entry); rerr != nil {
		log.Printf("AUDIT_ERROR | tool=%s error=%v", name, rerr)
	}
}
