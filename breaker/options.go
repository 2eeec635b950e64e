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

package breaker

import (
	"time"

	"github.com/actorgrid/actorgrid/internal/validation"
)

type options struct {
	// failures in the window that trip the breaker, 0 disables the trigger
	failureThreshold int
	failureRate      float64
	// samples needed before the failure rate is considered
	minRequests      int
	openTimeout      time.Duration
	window           time.Duration
	buckets          int
	halfOpenMaxCalls int
	clock            func() time.Time
	onStateChange    func(name string, from, to State)
}

func defaultOptions() *options {
	return &options{
		failureThreshold: 5,
		failureRate:      0.5,
		minRequests:      10,
		openTimeout:      30 * time.Second,
		window:           time.Minute,
		buckets:          12,
		halfOpenMaxCalls: 1,
		clock:            time.Now,
	}
}

// Validate implements validation.Validator.
func (o *options) Validate() error {
	return validation.New(validation.AllErrors()).
		AddAssertion(o.failureThreshold >= 0, "failure threshold must not be negative").
		AddAssertion(o.failureRate >= 0 && o.failureRate <= 1, "failure rate must be within [0, 1]").
		AddAssertion(o.minRequests >= 1, "min requests must be at least 1").
		AddAssertion(o.openTimeout > 0, "open timeout must be positive").
		AddAssertion(o.halfOpenMaxCalls >= 1, "half-open calls must be at least 1").
		AddAssertion(o.clock != nil, "clock is required").
		AddAssertion(o.buckets >= 1 && o.window/time.Duration(max(o.buckets, 1)) >= time.Millisecond, "window slots must last at least 1ms").
		Validate()
}

// sanitize replaces invalid values by their defaults.
func (o *options) sanitize() {
	defaults := defaultOptions()
	if o.failureThreshold < 0 {
		o.failureThreshold = 0
	}
	if o.failureRate < 0 || o.failureRate > 1 {
		o.failureRate = defaults.failureRate
	}
	if o.minRequests < 1 {
		o.minRequests = 1
	}
	if o.openTimeout <= 0 {
		o.openTimeout = defaults.openTimeout
	}
	if o.buckets < 1 {
		o.buckets = 1
	}
	if o.window/time.Duration(o.buckets) < time.Millisecond {
		o.window, o.buckets = defaults.window, defaults.buckets
	}
	if o.halfOpenMaxCalls < 1 {
		o.halfOpenMaxCalls = 1
	}
	if o.clock == nil {
		o.clock = time.Now
	}
}

// Option configures a CircuitBreaker.
type Option func(*options)

// WithFailureThreshold trips the breaker once n failures are counted in the
// window, whatever the rate. Zero disables this trigger.
func WithFailureThreshold(n int) Option { return func(o *options) { o.failureThreshold = n } }

// WithFailureRate trips the breaker when the failure ratio reaches r, once
// WithMinRequests samples are in the window.
func WithFailureRate(r float64) Option { return func(o *options) { o.failureRate = r } }

// WithMinRequests sets the sample size gating the failure rate.
func WithMinRequests(n int) Option { return func(o *options) { o.minRequests = n } }

// WithOpenTimeout sets how long the breaker stays open after its last failure.
func WithOpenTimeout(d time.Duration) Option { return func(o *options) { o.openTimeout = d } }

// WithWindow sets the rolling period and how many slots it is split in.
func WithWindow(d time.Duration, buckets int) Option {
	return func(o *options) { o.window, o.buckets = d, buckets }
}

// WithHalfOpenMaxCalls sets the probe quota of the half-open state. The
// breaker closes when that many probes succeed.
func WithHalfOpenMaxCalls(n int) Option { return func(o *options) { o.halfOpenMaxCalls = n } }

// WithClock replaces time.Now.
func WithClock(c func() time.Time) Option { return func(o *options) { o.clock = c } }

// WithStateChangeListener is called after each transition, outside the breaker lock.
func WithStateChangeListener(fn func(name string, from, to State)) Option {
	return func(o *options) { o.onStateChange = fn }
}
