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
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gerrors "github.com/actorgrid/actorgrid/errors"
)

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1_700_000_000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

var errBoom = errors.New("boom")

func failing(calls *atomic.Int32) func(context.Context) (any, error) {
	return func(context.Context) (any, error) {
		calls.Add(1)
		return nil, errBoom
	}
}

func succeeding(calls *atomic.Int32) func(context.Context) (any, error) {
	return func(context.Context) (any, error) {
		calls.Add(1)
		return "ok", nil
	}
}

func TestCircuitBreaker(t *testing.T) {
	t.Run("With failure threshold trips and fails fast", func(t *testing.T) {
		clock := newFakeClock()
		b := NewCircuitBreaker("svc-a",
			WithFailureThreshold(5),
			WithOpenTimeout(time.Second),
			WithClock(clock.Now))

		ctx := context.Background()
		var calls atomic.Int32
		for range 4 {
			_, err := b.Execute(ctx, failing(&calls))
			require.ErrorIs(t, err, errBoom)
			require.Equal(t, Closed, b.State())
		}

		_, err := b.Execute(ctx, failing(&calls))
		require.ErrorIs(t, err, errBoom)
		require.Equal(t, Open, b.State())
		require.EqualValues(t, 5, calls.Load())

		// sixth call before the timeout never reaches the wrapped operation
		_, err = b.Execute(ctx, failing(&calls))
		require.ErrorIs(t, err, ErrOpen)
		require.EqualValues(t, 5, calls.Load())
	})
	t.Run("With failure rate gated by minimum requests", func(t *testing.T) {
		clock := newFakeClock()
		b := NewCircuitBreaker("svc-b",
			WithFailureThreshold(0),
			WithFailureRate(0.5),
			WithMinRequests(4),
			WithClock(clock.Now))

		b.OnFailure()
		b.OnFailure()
		require.Equal(t, Closed, b.State(), "below the minimum sample size")
		b.OnSuccess()
		require.Equal(t, Closed, b.State())
		b.OnSuccess()
		// 2 failures out of 4 samples
		require.Equal(t, Open, b.State())
	})
	t.Run("With half-open probe quota closing the breaker", func(t *testing.T) {
		clock := newFakeClock()
		b := NewCircuitBreaker("svc-c",
			WithFailureThreshold(1),
			WithOpenTimeout(time.Second),
			WithHalfOpenMaxCalls(2),
			WithClock(clock.Now))

		require.True(t, b.TryAllow())
		b.OnFailure()
		require.Equal(t, Open, b.State())
		require.False(t, b.TryAllow())

		clock.Advance(time.Second)
		require.True(t, b.TryAllow())
		require.Equal(t, HalfOpen, b.State())
		require.True(t, b.TryAllow())
		require.False(t, b.TryAllow(), "probe quota exhausted")

		b.OnSuccess()
		require.Equal(t, HalfOpen, b.State())
		b.OnSuccess()
		require.Equal(t, Closed, b.State())

		m := b.Metrics()
		require.Zero(t, m.Total, "counters are reset on close")
	})
	t.Run("With any half-open failure reopening", func(t *testing.T) {
		clock := newFakeClock()
		b := NewCircuitBreaker("svc-d",
			WithFailureThreshold(1),
			WithOpenTimeout(time.Second),
			WithHalfOpenMaxCalls(3),
			WithClock(clock.Now))

		b.OnFailure()
		clock.Advance(time.Second)

		var calls atomic.Int32
		_, err := b.Execute(context.Background(), succeeding(&calls))
		require.NoError(t, err)
		require.Equal(t, HalfOpen, b.State())

		_, err = b.Execute(context.Background(), failing(&calls))
		require.ErrorIs(t, err, errBoom)
		require.Equal(t, Open, b.State())

		clock.Advance(500 * time.Millisecond)
		require.False(t, b.TryAllow(), "open period restarts at the last failure")
	})
	t.Run("With fallback", func(t *testing.T) {
		b := NewCircuitBreaker("svc-e", WithFailureThreshold(1))
		b.OnFailure()

		out, err := b.Execute(context.Background(),
			func(context.Context) (any, error) { return "primary", nil },
			func(_ context.Context, err error) (any, error) {
				assert.ErrorIs(t, err, ErrOpen)
				return "fallback", nil
			})
		require.NoError(t, err)
		require.Equal(t, "fallback", out)
	})
	t.Run("With context timeout counted as failure", func(t *testing.T) {
		b := NewCircuitBreaker("svc-f", WithFailureThreshold(1))
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		_, err := b.Execute(ctx, func(ctx context.Context) (any, error) {
			<-ctx.Done()
			time.Sleep(10 * time.Millisecond)
			return nil, nil
		})
		require.ErrorIs(t, err, context.DeadlineExceeded)
		require.Equal(t, Open, b.State())
	})
	t.Run("With panic converted into an error", func(t *testing.T) {
		b := NewCircuitBreaker("svc-g")
		_, err := b.Execute(context.Background(), func(context.Context) (any, error) {
			panic("kaboom")
		})
		require.Error(t, err)
		var berr *Error
		require.ErrorAs(t, err, &berr)
		require.Equal(t, ErrorTypePanic, berr.Type)
		var perr *gerrors.PanicError
		require.ErrorAs(t, err, &perr)
	})
	t.Run("With state change listener and reset", func(t *testing.T) {
		var transitions []string
		b := NewCircuitBreaker("svc-h",
			WithFailureThreshold(1),
			WithStateChangeListener(func(name string, from, to State) {
				transitions = append(transitions, name+":"+from.String()+"->"+to.String())
			}))
		b.OnFailure()
		b.Reset()
		require.Equal(t, Closed, b.State())
		require.Equal(t, []string{"svc-h:closed->open", "svc-h:open->closed"}, transitions)
	})
}

func TestStaleOutcomes(t *testing.T) {
	b := NewCircuitBreaker("svc-a", WithFailureThreshold(1), WithOpenTimeout(time.Minute))

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		_, err := b.Execute(context.Background(), func(context.Context) (any, error) {
			close(started)
			<-release
			return nil, errBoom
		})
		done <- err
	}()

	<-started
	// the breaker opens and resets while the slow call is in flight
	b.OnFailure()
	b.Reset()
	close(release)
	require.ErrorIs(t, <-done, errBoom)
	require.Equal(t, Closed, b.State(), "an outcome of an older generation is ignored")
	require.Zero(t, b.Metrics().Total)
}

func TestRejectionNamesTheBreaker(t *testing.T) {
	b := NewCircuitBreaker("svc-a", WithFailureThreshold(1))
	b.OnFailure()

	_, err := b.Execute(context.Background(), func(context.Context) (any, error) { return nil, nil })
	require.ErrorIs(t, err, ErrOpen)
	require.NotErrorIs(t, err, ErrTimeout)
	require.Contains(t, err.Error(), "svc-a")

	data, err := json.Marshal(b.Metrics())
	require.NoError(t, err)
	require.Contains(t, string(data), `"state":"open"`)
	require.Contains(t, string(data), `"openUntil"`)
}

func TestOptionsValidation(t *testing.T) {
	_, err := NewCircuitBreakerWithValidation("x", WithFailureRate(2))
	require.Error(t, err)
	_, err = NewCircuitBreakerWithValidation("x", WithHalfOpenMaxCalls(0))
	require.Error(t, err)
	_, err = NewCircuitBreakerWithValidation("x", WithWindow(time.Millisecond, 10))
	require.Error(t, err)
	_, err = NewCircuitBreakerWithValidation("x", WithFailureThreshold(-1))
	require.Error(t, err)

	b, err := NewCircuitBreakerWithValidation("x", WithMinRequests(3), WithWindow(time.Minute, 6))
	require.NoError(t, err)
	require.Equal(t, "x", b.Name())

	// sanitize keeps invalid inputs usable
	b = NewCircuitBreaker("y", WithMinRequests(-1), WithOpenTimeout(-time.Second), WithClock(nil))
	require.Equal(t, Closed, b.State())
	require.True(t, b.TryAllow())
}

func TestGroup(t *testing.T) {
	g := NewGroup(WithFailureThreshold(1))
	a := g.Get("svc-a")
	require.Same(t, a, g.Get("svc-a"))

	a.OnFailure()
	require.Equal(t, Open, g.Get("svc-a").State())
	require.Equal(t, Closed, g.Get("svc-b").State(), "breakers are independent per resource")

	metrics := g.Metrics()
	require.Len(t, metrics, 2)
	require.Equal(t, "svc-a", metrics[0].Name)
	require.Contains(t, metrics[0].String(), "state=open")

	g.Remove("svc-a")
	require.Equal(t, Closed, g.Get("svc-a").State())
}

func TestStateString(t *testing.T) {
	require.Equal(t, "closed", Closed.String())
	require.Equal(t, "open", Open.String())
	require.Equal(t, "half-open", HalfOpen.String())
	require.Equal(t, "unknown", State(999).String())
}
