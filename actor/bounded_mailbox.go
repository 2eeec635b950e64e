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
	"sync"

	gods "github.com/Workiva/go-datastructures/queue"

	gerrors "github.com/actorgrid/actorgrid/errors"
)

// BoundedMailbox is a fixed capacity FIFO mailbox backed by a ring buffer.
//
// When full, Enqueue applies the configured DropStrategy and hands every
// discarded message to the dead letter sink. It never blocks.
type BoundedMailbox struct {
	mu         sync.Mutex
	underlying *gods.RingBuffer
	capacity   int
	size       int
	strategy   DropStrategy
	sink       DeadLetterSink
	disposed   bool

	enqueued uint64
	dequeued uint64
	dropped  uint64
}

// enforce compilation error
var _ Mailbox = (*BoundedMailbox)(nil)

// NewBoundedMailbox creates a bounded mailbox. The sink may be nil.
// Capacity must be positive.
func NewBoundedMailbox(capacity int, strategy DropStrategy, sink DeadLetterSink) *BoundedMailbox {
	if capacity <= 0 {
		capacity = 1
	}
	return &BoundedMailbox{
		// the ring buffer rounds its size up to a power of two,
		// the capacity is enforced here.
		underlying: gods.NewRingBuffer(uint64(capacity)),
		capacity:   capacity,
		strategy:   strategy,
		sink:       sink,
	}
}

// Enqueue inserts a message. With DropNewest on a full mailbox the message
// is dead lettered and ErrMailboxFull is returned.
func (mailbox *BoundedMailbox) Enqueue(msg *Message) error {
	mailbox.mu.Lock()
	if mailbox.disposed {
		mailbox.mu.Unlock()
		return gerrors.ErrMailboxDisposed
	}

	var evicted []*Message
	if mailbox.size >= mailbox.capacity {
		switch mailbox.strategy {
		case DropNewest:
			mailbox.dropped++
			mailbox.mu.Unlock()
			mailbox.deadLetter(msg)
			return gerrors.ErrMailboxFull
		case DropAll:
			evicted = mailbox.drainLocked()
		default:
			if head := mailbox.popLocked(); head != nil {
				evicted = append(evicted, head)
			}
		}
		mailbox.dropped += uint64(len(evicted))
	}

	if _, err := mailbox.underlying.Offer(msg); err != nil {
		mailbox.mu.Unlock()
		return gerrors.ErrMailboxDisposed
	}
	mailbox.size++
	mailbox.enqueued++
	mailbox.mu.Unlock()

	for _, m := range evicted {
		mailbox.deadLetter(m)
	}
	return nil
}

// Dequeue removes and returns the head, or nil when empty.
func (mailbox *BoundedMailbox) Dequeue() *Message {
	mailbox.mu.Lock()
	defer mailbox.mu.Unlock()
	return mailbox.popLocked()
}

// IsEmpty reports whether the mailbox has no messages.
func (mailbox *BoundedMailbox) IsEmpty() bool {
	return mailbox.Len() == 0
}

// Len returns the current number of messages.
func (mailbox *BoundedMailbox) Len() int64 {
	mailbox.mu.Lock()
	defer mailbox.mu.Unlock()
	return int64(mailbox.size)
}

// Capacity returns the configured capacity.
func (mailbox *BoundedMailbox) Capacity() int {
	return mailbox.capacity
}

// Clear removes every queued message and returns them in order.
// It still works after Dispose and then releases the ring buffer.
func (mailbox *BoundedMailbox) Clear() []*Message {
	mailbox.mu.Lock()
	defer mailbox.mu.Unlock()
	out := mailbox.drainLocked()
	if mailbox.disposed {
		mailbox.underlying.Dispose()
	}
	return out
}

// Counters returns the mailbox counters.
func (mailbox *BoundedMailbox) Counters() MailboxCounters {
	mailbox.mu.Lock()
	defer mailbox.mu.Unlock()
	return MailboxCounters{
		Enqueued: mailbox.enqueued,
		Dequeued: mailbox.dequeued,
		Dropped:  mailbox.dropped,
	}
}

// Dispose rejects further messages. Queued messages are released once
// drained by Clear.
func (mailbox *BoundedMailbox) Dispose() {
	mailbox.mu.Lock()
	defer mailbox.mu.Unlock()
	mailbox.disposed = true
	if mailbox.size == 0 {
		mailbox.underlying.Dispose()
	}
}

func (mailbox *BoundedMailbox) popLocked() *Message {
	if mailbox.size == 0 {
		return nil
	}
	item, err := mailbox.underlying.Get()
	if err != nil {
		return nil
	}
	mailbox.size--
	mailbox.dequeued++
	msg, _ := item.(*Message)
	return msg
}

func (mailbox *BoundedMailbox) drainLocked() []*Message {
	if mailbox.size == 0 {
		return nil
	}
	out := make([]*Message, 0, mailbox.size)
	for mailbox.size > 0 {
		msg := mailbox.popLocked()
		if msg == nil {
			break
		}
		out = append(out, msg)
	}
	return out
}

func (mailbox *BoundedMailbox) deadLetter(msg *Message) {
	if mailbox.sink != nil {
		mailbox.sink.DeadLetter(msg, gerrors.ErrMailboxFull)
	}
}
