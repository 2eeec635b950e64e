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

package actor

import (
	"github.com/actorgrid/actorgrid/internal/workerpool"
	"github.com/actorgrid/actorgrid/log"
)

// DefaultThroughput is the number of messages an actor processes per burst.
const DefaultThroughput = 50

// dispatcher maps mailbox draining onto a shared worker pool.
//
// A cell is scheduled at most once at any time (idle to busy CAS), so one
// worker drains a given mailbox. A burst stops after throughput messages and
// the cell goes back to the end of the pool queue when messages remain.
type dispatcher struct {
	pool       *workerpool.WorkerPool
	throughput int
	handle     func(c *cell, msg *Message)
	logger     log.Logger
}

func newDispatcher(pool *workerpool.WorkerPool, throughput int, handle func(c *cell, msg *Message), logger log.Logger) *dispatcher {
	if throughput <= 0 {
		throughput = DefaultThroughput
	}
	return &dispatcher{
		pool:       pool,
		throughput: throughput,
		handle:     handle,
		logger:     logger,
	}
}

// schedule submits a drain for the cell unless one is already pending or running.
// It never blocks.
func (d *dispatcher) schedule(c *cell) {
	if !c.processing.CompareAndSwap(idle, busy) {
		return
	}
	if err := d.pool.SubmitWork(func() { d.run(c) }); err != nil {
		c.processing.Store(idle)
		d.logger.Warnf("unable to schedule actor %s: %v", c.id, err)
	}
}

func (d *dispatcher) run(c *cell) {
	d.drain(c)
	c.processing.Store(idle)
	// a producer may have enqueued after the last Dequeue but before the flag
	// was released; its schedule call was a no-op, so check again.
	if c.State() == Running && !c.mailbox.IsEmpty() {
		d.schedule(c)
	}
}

// drain processes up to throughput messages while the actor is running.
func (d *dispatcher) drain(c *cell) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := 0; i < d.throughput; i++ {
		if c.State() != Running {
			return
		}
		msg := c.mailbox.Dequeue()
		if msg == nil {
			return
		}
		d.handle(c, msg)
	}
}
