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

// Package workerpool provides a fixed size pool of goroutines draining an
// unbounded task queue. Submitting never blocks the caller.
package workerpool

import (
	"errors"
	"runtime"
	"sync"

	gods "github.com/Workiva/go-datastructures/queue"
	"go.uber.org/atomic"

	"github.com/actorgrid/actorgrid/log"
)

// ErrPoolStopped is returned when submitting to a pool that is not running.
var ErrPoolStopped = errors.New("worker pool is not running")

// WorkerPool executes submitted tasks on a fixed set of workers in submission order.
type WorkerPool struct {
	workers int
	logger  log.Logger

	tasks   *gods.Queue
	wg      sync.WaitGroup
	mu      sync.Mutex
	started *atomic.Bool
	stopped *atomic.Bool

	executed *atomic.Uint64
	busy     *atomic.Int64
}

// New creates a new worker pool with the given options.
// The default number of workers is runtime.GOMAXPROCS(0).
func New(opts ...Option) *WorkerPool {
	pool := &WorkerPool{
		workers:  runtime.GOMAXPROCS(0),
		logger:   log.DiscardLogger,
		started:  atomic.NewBool(false),
		stopped:  atomic.NewBool(false),
		executed: atomic.NewUint64(0),
		busy:     atomic.NewInt64(0),
	}

	for _, opt := range opts {
		opt(pool)
	}
	return pool
}

// Start spawns the workers. Calling Start more than once is a no-op.
func (wp *WorkerPool) Start() {
	wp.mu.Lock()
	defer wp.mu.Unlock()
	if wp.started.Load() {
		return
	}

	wp.tasks = gods.New(int64(wp.workers))
	wp.started.Store(true)
	wp.stopped.Store(false)
	for range wp.workers {
		wp.wg.Add(1)
		go wp.work()
	}
}

// Stop disposes the task queue and waits for the workers to finish the task
// they are running. Pending tasks are discarded.
func (wp *WorkerPool) Stop() {
	wp.mu.Lock()
	if !wp.started.Load() || wp.stopped.Load() {
		wp.mu.Unlock()
		return
	}
	wp.stopped.Store(true)
	wp.started.Store(false)
	wp.tasks.Dispose()
	wp.mu.Unlock()

	wp.wg.Wait()
}

// SubmitWork enqueues a task. It never blocks.
func (wp *WorkerPool) SubmitWork(task func()) error {
	if !wp.started.Load() {
		return ErrPoolStopped
	}
	if err := wp.tasks.Put(task); err != nil {
		return ErrPoolStopped
	}
	return nil
}

// Workers returns the number of workers.
func (wp *WorkerPool) Workers() int {
	return wp.workers
}

// Pending returns the number of queued tasks.
func (wp *WorkerPool) Pending() int64 {
	if !wp.started.Load() {
		return 0
	}
	return wp.tasks.Len()
}

// Busy returns the number of workers currently running a task.
func (wp *WorkerPool) Busy() int64 {
	return wp.busy.Load()
}

// Executed returns the number of tasks run since the pool was created.
func (wp *WorkerPool) Executed() uint64 {
	return wp.executed.Load()
}

func (wp *WorkerPool) work() {
	defer wp.wg.Done()
	for {
		items, err := wp.tasks.Get(1)
		if err != nil {
			// queue disposed
			return
		}
		for _, item := range items {
			if task, ok := item.(func()); ok {
				wp.run(task)
			}
		}
	}
}

func (wp *WorkerPool) run(task func()) {
	wp.busy.Inc()
	defer func() {
		wp.busy.Dec()
		wp.executed.Inc()
		if r := recover(); r != nil {
			wp.logger.Errorf("worker pool task panicked: %v", r)
		}
	}()
	task()
}
