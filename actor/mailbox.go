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
	"fmt"
	"strings"
)

// Mailbox defines the contract for an actor's message queue.
//
// Implementations are safe for concurrent producers calling Enqueue and a
// single consumer calling Dequeue. Ordering is FIFO. Enqueue never blocks:
// bounded implementations apply their DropStrategy when full. Dequeue never
// blocks and returns nil on an empty mailbox.
type Mailbox interface {
	// Enqueue pushes a message into the mailbox.
	Enqueue(msg *Message) error
	// Dequeue fetches the next message, or nil when empty.
	Dequeue() *Message
	// IsEmpty reports whether the mailbox currently has no messages.
	IsEmpty() bool
	// Len returns the number of queued messages.
	Len() int64
	// Capacity returns the maximum size, zero meaning unbounded.
	Capacity() int
	// Clear removes and returns every queued message.
	Clear() []*Message
	// Counters returns a snapshot of the mailbox counters.
	Counters() MailboxCounters
	// Dispose makes Enqueue fail. Messages still queued can be drained with Clear.
	Dispose()
}

// MailboxCounters is a point in time view of a mailbox.
// Len always equals Enqueued minus Dequeued.
type MailboxCounters struct {
	Enqueued uint64 `json:"enqueued"`
	Dequeued uint64 `json:"dequeued"`
	Dropped  uint64 `json:"dropped"`
}

// DropStrategy decides what a full bounded mailbox does with a new message.
type DropStrategy int

const (
	// DropOldest evicts the head of the queue and accepts the new message.
	DropOldest DropStrategy = iota
	// DropNewest rejects the incoming message.
	DropNewest
	// DropAll evicts the whole queue and accepts the new message.
	DropAll
)

// String returns the configuration name of the strategy.
func (d DropStrategy) String() string {
	switch d {
	case DropOldest:
		return "DROP_OLDEST"
	case DropNewest:
		return "DROP_NEWEST"
	case DropAll:
		return "DROP_ALL"
	default:
		return fmt.Sprintf("DropStrategy(%d)", int(d))
	}
}

// ParseDropStrategy parses DROP_OLDEST, DROP_NEWEST or DROP_ALL, ignoring case.
func ParseDropStrategy(name string) (DropStrategy, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "", "DROP_OLDEST":
		return DropOldest, nil
	case "DROP_NEWEST":
		return DropNewest, nil
	case "DROP_ALL":
		return DropAll, nil
	default:
		return DropOldest, fmt.Errorf("unknown drop strategy %q", name)
	}
}

// DeadLetterSink receives messages that could not be delivered.
type DeadLetterSink interface {
	DeadLetter(msg *Message, reason error)
}

// DeadLetterFunc adapts a function to a DeadLetterSink.
type DeadLetterFunc func(msg *Message, reason error)

// DeadLetter implements DeadLetterSink.
func (f DeadLetterFunc) DeadLetter(msg *Message, reason error) {
	f(msg, reason)
}

// NewMailbox returns an unbounded mailbox when capacity is zero or less,
// and a bounded one otherwise.
func NewMailbox(capacity int, strategy DropStrategy, sink DeadLetterSink) Mailbox {
	if capacity <= 0 {
		return NewUnboundedMailbox()
	}
	return NewBoundedMailbox(capacity, strategy, sink)
}
