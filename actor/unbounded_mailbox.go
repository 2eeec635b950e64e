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
	"runtime"
	"sync/atomic"

	gerrors "github.com/actorgrid/actorgrid/errors"
)

// link is a node of the intrusive queue. The queue always holds a stub link
// whose message has already been consumed.
type link struct {
	msg  *Message
	next atomic.Pointer[link]
}

// UnboundedMailbox is a multi-producer single-consumer FIFO queue. Producers
// only swap the tail and the consumer only moves the head, so neither side
// takes a lock. It never rejects a message until disposed.
type UnboundedMailbox struct {
	head atomic.Pointer[link]
	tail atomic.Pointer[link]

	enqueued atomic.Uint64
	dequeued atomic.Uint64
	disposed atomic.Bool
	// producers currently inside Enqueue
	linking atomic.Int64
}

var _ Mailbox = (*UnboundedMailbox)(nil)

// NewUnboundedMailbox creates an empty UnboundedMailbox.
func NewUnboundedMailbox() *UnboundedMailbox {
	stub := new(link)
	m := new(UnboundedMailbox)
	m.head.Store(stub)
	m.tail.Store(stub)
	return m
}

// Enqueue appends msg to the tail. It fails with ErrMailboxDisposed once
// Dispose was called.
func (m *UnboundedMailbox) Enqueue(msg *Message) error {
	m.linking.Add(1)
	defer m.linking.Add(-1)
	if m.disposed.Load() {
		return gerrors.ErrMailboxDisposed
	}
	l := &link{msg: msg}
	// counted before publication so Len never goes negative
	m.enqueued.Add(1)
	m.tail.Swap(l).next.Store(l)
	return nil
}

// Dequeue must only be called by the consumer.
func (m *UnboundedMailbox) Dequeue() *Message {
	next := m.head.Load().next.Load()
	if next == nil {
		return nil
	}
	msg := next.msg
	next.msg = nil
	m.head.Store(next)
	m.dequeued.Add(1)
	return msg
}

// IsEmpty reports whether the consumer would currently get nil from Dequeue.
func (m *UnboundedMailbox) IsEmpty() bool {
	return m.head.Load().next.Load() == nil
}

// Len may briefly count a message a producer has not linked yet.
func (m *UnboundedMailbox) Len() int64 {
	return int64(m.enqueued.Load() - m.dequeued.Load())
}

// Capacity returns zero, the mailbox is unbounded.
func (m *UnboundedMailbox) Capacity() int { return 0 }

// Clear must only be called by the consumer.
func (m *UnboundedMailbox) Clear() []*Message {
	var drained []*Message
	for {
		msg := m.Dequeue()
		if msg == nil {
			return drained
		}
		drained = append(drained, msg)
	}
}

// Counters returns the mailbox counters. Nothing is ever dropped.
func (m *UnboundedMailbox) Counters() MailboxCounters {
	return MailboxCounters{Enqueued: m.enqueued.Load(), Dequeued: m.dequeued.Load()}
}

// Dispose makes further Enqueue calls fail. It returns once every producer
// that got past the disposed check has linked its message, so a Clear that
// follows drains everything accepted.
func (m *UnboundedMailbox) Dispose() {
	m.disposed.Store(true)
	for m.linking.Load() != 0 {
		runtime.Gosched()
	}
}
