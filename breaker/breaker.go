// MIT License
//
// Copyright (c) 2022-2026 GoAkt Team
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

// Package breaker implements a rolling window circuit breaker. Each state
// transition starts a new generation and outcomes reported for an older
// generation are dropped, so a slow call admitted before the breaker opened
// cannot close it again.
package breaker

import (
	"context"
	"fmt"
	"sync"
	"time"

	gerrors "github.com/actorgrid/actorgrid/errors"
)

// Fallback produces a result when the breaker rejects a call or the call fails.
type Fallback func(ctx context.Context, err error) (any, error)

// CircuitBreaker guards calls to one resource.
type CircuitBreaker struct {
	name string
	opts *options

	mu          sync.Mutex
	state       State
	generation  uint64
	openUntil   time.Time
	admitted    int
	probed      int
	window      *window
	lastFailure time.Time
	lastSuccess time.Time
}

type transition struct {
	from, to State
}

// NewCircuitBreaker creates a closed breaker. Invalid options fall back to
// their defaults.
func NewCircuitBreaker(name string, opts ...Option) *CircuitBreaker {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	o.sanitize()
	return build(name, o)
}

// NewCircuitBreakerWithValidation is NewCircuitBreaker rejecting invalid options.
func NewCircuitBreakerWithValidation(name string, opts ...Option) (*CircuitBreaker, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	if err := o.Validate(); err != nil {
		return nil, fmt.Errorf("breaker %s: %w", name, err)
	}
	return build(name, o), nil
}

func build(name string, o *options) *CircuitBreaker {
	return &CircuitBreaker{
		name:   name,
		opts:   o,
		state:  Closed,
		window: newWindow(o.window, o.buckets),
	}
}

// Name returns the name of the guarded resource.
func (b *CircuitBreaker) Name() string { return b.name }

// State returns the current state.
func (b *CircuitBreaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Execute runs fn on the calling goroutine when the breaker admits it. A
// context that is done once fn returns counts as a failure and yields a
// timeout error. A panic in fn is recovered as an ErrorTypePanic error. The
// first fallback, when given, handles rejections and failures.
func (b *CircuitBreaker) Execute(ctx context.Context, fn func(context.Context) (any, error), fallback ...Fallback) (any, error) {
	gen, err := b.admit()
	if err == nil {
		var value any
		value, err = b.call(ctx, fn)
		b.settle(gen, err == nil)
		if err == nil {
			return value, nil
		}
	}
	if len(fallback) > 0 && fallback[0] != nil {
		return fallback[0](ctx, err)
	}
	return nil, err
}

// TryAllow reports whether a call may proceed. Callers using it report the
// outcome with OnSuccess or OnFailure.
func (b *CircuitBreaker) TryAllow() bool {
	_, err := b.admit()
	return err == nil
}

// OnSuccess records a successful call.
func (b *CircuitBreaker) OnSuccess() { b.settle(b.currentGeneration(), true) }

// OnFailure records a failed call.
func (b *CircuitBreaker) OnFailure() { b.settle(b.currentGeneration(), false) }

// Reset closes the breaker and clears its window.
func (b *CircuitBreaker) Reset() {
	b.mu.Lock()
	t := b.moveTo(Closed, b.opts.clock())
	b.window.reset()
	b.mu.Unlock()
	b.notify(t)
}

// Metrics returns a snapshot of the breaker.
func (b *CircuitBreaker) Metrics() Metrics {
	b.mu.Lock()
	defer b.mu.Unlock()
	successes, failures := b.window.totals(b.opts.clock())
	m := Metrics{
		Name:        b.name,
		State:       b.state,
		Successes:   successes,
		Failures:    failures,
		Total:       successes + failures,
		Window:      b.window.period(),
		LastFailure: b.lastFailure,
		LastSuccess: b.lastSuccess,
	}
	if m.Total > 0 {
		m.FailureRate = float64(failures) / float64(m.Total)
	}
	if b.state == Open {
		m.OpenUntil = b.openUntil
	}
	return m
}

func (b *CircuitBreaker) currentGeneration() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.generation
}

func (b *CircuitBreaker) admit() (uint64, error) {
	b.mu.Lock()
	var t *transition
	if b.state == Open {
		now := b.opts.clock()
		if now.Before(b.openUntil) {
			b.mu.Unlock()
			return 0, &Error{Type: ErrorTypeOpen, Breaker: b.name}
		}
		t = b.moveTo(HalfOpen, now)
	}
	if b.state == HalfOpen {
		if b.admitted >= b.opts.halfOpenMaxCalls {
			b.mu.Unlock()
			return 0, &Error{Type: ErrorTypeOpen, Breaker: b.name}
		}
		b.admitted++
	}
	gen := b.generation
	b.mu.Unlock()
	b.notify(t)
	return gen, nil
}

func (b *CircuitBreaker) settle(gen uint64, success bool) {
	b.mu.Lock()
	if gen != b.generation {
		b.mu.Unlock()
		return
	}

	now := b.opts.clock()
	if success {
		b.lastSuccess = now
	} else {
		b.lastFailure = now
	}

	var t *transition
	switch b.state {
	case Closed:
		b.window.record(now, success)
		if b.tripped(now) {
			t = b.moveTo(Open, now)
		}
	case HalfOpen:
		if !success {
			t = b.moveTo(Open, now)
			break
		}
		b.probed++
		if b.probed >= b.opts.halfOpenMaxCalls {
			t = b.moveTo(Closed, now)
		}
	case Open:
		if !success {
			b.openUntil = now.Add(b.opts.openTimeout)
		}
	}
	b.mu.Unlock()
	b.notify(t)
}

func (b *CircuitBreaker) tripped(now time.Time) bool {
	successes, failures := b.window.totals(now)
	if b.opts.failureThreshold > 0 && failures >= uint64(b.opts.failureThreshold) {
		return true
	}
	total := successes + failures
	if b.opts.failureRate <= 0 || total < uint64(b.opts.minRequests) {
		return false
	}
	return float64(failures)/float64(total) >= b.opts.failureRate
}

// moveTo must be called with the lock held.
func (b *CircuitBreaker) moveTo(to State, now time.Time) *transition {
	if b.state == to {
		return nil
	}
	t := &transition{from: b.state, to: to}
	b.state = to
	b.generation++
	b.admitted, b.probed = 0, 0
	switch to {
	case Open:
		b.openUntil = now.Add(b.opts.openTimeout)
	case Closed:
		b.openUntil = time.Time{}
		b.window.reset()
	}
	return t
}

func (b *CircuitBreaker) notify(t *transition) {
	if t != nil && b.opts.onStateChange != nil {
		b.opts.onStateChange(b.name, t.from, t.to)
	}
}

func (b *CircuitBreaker) call(ctx context.Context, fn func(context.Context) (any, error)) (value any, err error) {
	if cerr := ctx.Err(); cerr != nil {
		return nil, &Error{Type: ErrorTypeTimeout, Breaker: b.name, Cause: cerr}
	}
	defer func() {
		if r := recover(); r != nil {
			cause, ok := r.(error)
			if !ok {
				cause = fmt.Errorf("%v", r)
			}
			value, err = nil, &Error{Type: ErrorTypePanic, Breaker: b.name, Cause: gerrors.NewPanicError(cause)}
		}
	}()

	value, err = fn(ctx)
	if err == nil && ctx.Err() != nil {
		return nil, &Error{Type: ErrorTypeTimeout, Breaker: b.name, Cause: ctx.Err()}
	}
	return value, err
}
