// MIT License
//
// Copyright (c) 2024-2026 Gregory Ledenev
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

// Package breaker implements a thread-safe circuit breaker with a rolling
// failure window. It is consumed by the extension engine's resilience advice
// but is usable on its own.
package breaker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/atomic"
)

// State represents the breaker state.
type State int32

const (
	// Closed lets calls through and records their outcome.
	Closed State = iota
	// Open rejects calls until the open timeout elapses.
	Open
	// HalfOpen lets a limited number of probe calls through.
	HalfOpen
)

// String returns the state display name. It satisfies fmt.Stringer.
func (s State) String() string {
	switch s {
	case Closed:
		return "Closed"
	case Open:
		return "Open"
	case HalfOpen:
		return "HalfOpen"
	default:
		return "Unknown"
	}
}

// CircuitBreaker is a thread-safe circuit breaker. The zero value is not
// usable; construct instances with New.
type CircuitBreaker struct {
	state     *atomic.Int32
	openUntil *atomic.Int64 // unix nano when Open ends

	opts    *options
	buckets *bucketWindow

	mu    sync.Mutex // guards state transitions and the half-open semaphore
	semCh chan struct{}

	lastFailure *atomic.Int64 // unix nano
	lastSuccess *atomic.Int64 // unix nano
}

// New constructs a circuit breaker. Invalid option values are adjusted to
// sensible defaults rather than reported.
func New(opts ...Option) *CircuitBreaker {
	o := defaultOptions()
	for _, fn := range opts {
		fn(o)
	}
	o.Sanitize()
	return newBreaker(o)
}

// NewWithValidation constructs a circuit breaker and returns an error when
// the provided options are invalid.
func NewWithValidation(opts ...Option) (*CircuitBreaker, error) {
	o := defaultOptions()
	for _, fn := range opts {
		fn(o)
	}
	if err := o.Validate(); err != nil {
		return nil, err
	}
	return newBreaker(o), nil
}

func newBreaker(o *options) *CircuitBreaker {
	return &CircuitBreaker{
		state:       atomic.NewInt32(int32(Closed)),
		openUntil:   atomic.NewInt64(0),
		opts:        o,
		buckets:     newBuckets(o.window, o.buckets, o.clock),
		lastFailure: atomic.NewInt64(0),
		lastSuccess: atomic.NewInt64(0),
	}
}

// State returns the current breaker state.
func (b *CircuitBreaker) State() State {
	return State(b.state.Load())
}

// TryAllow reports whether a call is permitted at this moment. Callers that
// use TryAllow directly must pair it with OnSuccess or OnFailure.
func (b *CircuitBreaker) TryAllow() bool {
	now := b.opts.clock()
	switch b.State() {
	case Closed:
		return true
	case Open:
		if now.UnixNano() < b.openUntil.Load() {
			return false
		}
		b.toHalfOpen()
	}
	// half-open probe budget
	b.ensureSem()
	select {
	case b.semCh <- struct{}{}:
		return true
	default:
		return false
	}
}

// OnSuccess records a successful call.
func (b *CircuitBreaker) OnSuccess() {
	b.buckets.addSuccess(1)
	b.lastSuccess.Store(b.opts.clock().UnixNano())
	if b.State() == HalfOpen {
		b.evaluateHalfOpen()
		return
	}
	b.evaluate()
}

// OnFailure records a failed call.
func (b *CircuitBreaker) OnFailure() {
	b.buckets.addFailure(1)
	b.lastFailure.Store(b.opts.clock().UnixNano())
	if b.State() == HalfOpen {
		b.evaluateHalfOpen()
		return
	}
	b.evaluate()
}

// Execute runs fn if the breaker allows it. When the breaker rejects the
// call, the optional fallback is consulted; without a fallback ErrOpen is
// returned. A failed or canceled fn counts as a failure.
func (b *CircuitBreaker) Execute(ctx context.Context, fn func(context.Context) (any, error), fallback ...func(context.Context, error) (any, error)) (any, error) {
	if !b.TryAllow() {
		return b.reject(ctx, ErrOpen, fallback...)
	}
	defer b.release()

	value, err := fn(ctx)
	if err != nil {
		b.OnFailure()
		return b.reject(ctx, err, fallback...)
	}
	b.OnSuccess()
	return value, nil
}

// Run executes the supplier under breaker control without a context. It is
// the minimal surface the resilience advice needs.
func (b *CircuitBreaker) Run(supplier func() (any, error)) (any, error) {
	return b.Execute(context.Background(), func(context.Context) (any, error) {
		return supplier()
	})
}

// Metrics returns a snapshot of rolling counts and state.
func (b *CircuitBreaker) Metrics() Metrics {
	windowStart, windowEnd := b.buckets.windowBounds()
	successes, failures := b.buckets.totals()
	m := Metrics{
		State:       b.State(),
		Successes:   successes,
		Failures:    failures,
		Total:       successes + failures,
		Window:      b.opts.window,
		WindowStart: windowStart,
		WindowEnd:   windowEnd,
	}
	if m.Total > 0 {
		m.FailureRate = float64(m.Failures) / float64(m.Total)
	}
	if lf := b.lastFailure.Load(); lf > 0 {
		m.LastFailure = time.Unix(0, lf)
	}
	if ls := b.lastSuccess.Load(); ls > 0 {
		m.LastSuccess = time.Unix(0, ls)
	}
	return m
}

// evaluate checks in Closed state for an Open transition.
func (b *CircuitBreaker) evaluate() {
	m := b.Metrics()
	if m.Total < uint64(b.opts.minRequests) {
		return
	}
	if m.FailureRate >= b.opts.failureRate {
		b.toOpen()
	}
}

// evaluateHalfOpen applies the stricter recovery rule: the breaker closes
// only once enough probe samples have been collected.
func (b *CircuitBreaker) evaluateHalfOpen() {
	m := b.Metrics()
	if m.Total < uint64(b.opts.minRequests) {
		return
	}
	if m.FailureRate >= b.opts.failureRate {
		b.toOpen()
		return
	}
	b.toClosed()
}

func (b *CircuitBreaker) toOpen() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state.Store(int32(Open))
	b.openUntil.Store(b.opts.clock().Add(b.opts.openTimeout).UnixNano())
	b.buckets.reset()
}

func (b *CircuitBreaker) toHalfOpen() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if State(b.state.Load()) != Open {
		return
	}
	b.state.Store(int32(HalfOpen))
	b.buckets.reset()
	b.semCh = nil
}

func (b *CircuitBreaker) toClosed() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state.Store(int32(Closed))
	b.openUntil.Store(0)
	b.buckets.reset()
	b.semCh = nil
}

func (b *CircuitBreaker) reject(ctx context.Context, err error, fallback ...func(context.Context, error) (any, error)) (any, error) {
	if len(fallback) > 0 {
		return fallback[0](ctx, err)
	}
	return nil, err
}

// release frees one half-open probe slot if present. Non-blocking and safe
// in every state.
func (b *CircuitBreaker) release() {
	b.mu.Lock()
	sem := b.semCh
	b.mu.Unlock()
	if sem != nil {
		select {
		case <-sem:
		default:
		}
	}
}

// ensureSem initializes the half-open semaphore lazily.
func (b *CircuitBreaker) ensureSem() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.semCh != nil {
		return
	}
	maxCalls := b.opts.halfOpenMaxCalls
	if maxCalls <= 0 {
		maxCalls = 1
	}
	b.semCh = make(chan struct{}, maxCalls)
}

// Metrics represents a snapshot of rolling counts and state.
type Metrics struct {
	State       State
	Successes   uint64
	Failures    uint64
	Total       uint64
	FailureRate float64
	Window      time.Duration
	WindowStart time.Time
	WindowEnd   time.Time
	LastFailure time.Time
	LastSuccess time.Time
}

// String returns human-readable metrics for debugging.
func (m Metrics) String() string {
	return fmt.Sprintf("state=%s total=%d success=%d fail=%d failRate=%.2f window=%s",
		m.State, m.Total, m.Successes, m.Failures, m.FailureRate, m.Window)
}
