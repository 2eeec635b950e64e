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

package future

import (
	"context"
	"sync"
	"time"
)

// Future represents a value which may or may not currently be available,
// but will be available at some point in the future, or an error if that value
// could not be made available.
//
// A Future is completed exactly once: the first call to Complete or Fail wins
// and every later call is ignored.
//
// Example usage:
//
//	f := future.New(func() (string, error) { return "done", nil })
//	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
//	defer cancel()
//	result, err := f.Await(ctx)
type Future[T any] struct {
	once  sync.Once
	done  chan struct{}
	value T
	err   error
}

// New creates a Future that executes the given task asynchronously.
func New[T any](task func() (T, error)) *Future[T] {
	f := Promise[T]()
	go func() {
		value, err := task()
		if err != nil {
			f.Fail(err)
			return
		}
		f.Complete(value)
	}()
	return f
}

// Promise returns an uncompleted Future that is resolved by the caller.
func Promise[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Completed returns a Future already resolved with value.
func Completed[T any](value T) *Future[T] {
	f := Promise[T]()
	f.Complete(value)
	return f
}

// Failed returns a Future already failed with err.
func Failed[T any](err error) *Future[T] {
	f := Promise[T]()
	f.Fail(err)
	return f
}

// Complete resolves the Future with value. It reports whether this call resolved it.
func (x *Future[T]) Complete(value T) bool {
	return x.resolve(value, nil)
}

// Fail resolves the Future with err. It reports whether this call resolved it.
func (x *Future[T]) Fail(err error) bool {
	var zero T
	return x.resolve(zero, err)
}

// FailAfter fails the Future with err when it is still pending after d.
// The returned function cancels the timer.
func (x *Future[T]) FailAfter(d time.Duration, err error) (stop func() bool) {
	timer := time.AfterFunc(d, func() { x.Fail(err) })
	return timer.Stop
}

func (x *Future[T]) resolve(value T, err error) bool {
	resolved := false
	x.once.Do(func() {
		x.value = value
		x.err = err
		resolved = true
		close(x.done)
	})
	return resolved
}

// Done returns a channel closed once the Future is resolved.
func (x *Future[T]) Done() <-chan struct{} {
	return x.done
}

// IsDone reports whether the Future is resolved.
func (x *Future[T]) IsDone() bool {
	select {
	case <-x.done:
		return true
	default:
		return false
	}
}

// Await blocks until the Future is resolved or ctx is done.
// A cancelled context does not resolve the Future.
func (x *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-x.done:
		return x.value, x.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Result returns the outcome when resolved. ok is false while pending.
func (x *Future[T]) Result() (value T, err error, ok bool) {
	if !x.IsDone() {
		return value, nil, false
	}
	return x.value, x.err, true
}
