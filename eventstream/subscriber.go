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

package eventstream

import (
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/google/uuid"
	"go.uber.org/atomic"
)

// DefaultBufferSize is the number of events a subscriber buffers before dropping.
const DefaultBufferSize = 1024

// Subscriber receives the events of the topics it subscribed to. Subscribers
// are only created by a Stream.
type Subscriber interface {
	ID() string
	Active() bool
	Topics() []string
	// Drain returns the events buffered so far without waiting.
	Drain() []*Message
	// Messages is closed on Shutdown.
	Messages() <-chan *Message
	// Dropped counts the events lost to a full buffer.
	Dropped() uint64
	Shutdown()

	deliver(message *Message)
}

type subscriber struct {
	id     string
	topics mapset.Set[string]

	// closing the channel and sending on it are serialized by mu
	mu      sync.RWMutex
	closed  bool
	inbox   chan *Message
	dropped *atomic.Uint64
}

var _ Subscriber = (*subscriber)(nil)

func newSubscriber(bufferSize int) *subscriber {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &subscriber{
		id:      uuid.NewString(),
		topics:  mapset.NewSet[string](),
		inbox:   make(chan *Message, bufferSize),
		dropped: atomic.NewUint64(0),
	}
}

func (s *subscriber) ID() string { return s.id }

func (s *subscriber) Active() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.closed
}

func (s *subscriber) Topics() []string { return s.topics.ToSlice() }

func (s *subscriber) Messages() <-chan *Message { return s.inbox }

func (s *subscriber) Dropped() uint64 { return s.dropped.Load() }

func (s *subscriber) Drain() []*Message {
	var out []*Message
	for range cap(s.inbox) {
		select {
		case msg, ok := <-s.inbox:
			if !ok {
				return out
			}
			out = append(out, msg)
		default:
			return out
		}
	}
	return out
}

func (s *subscriber) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.inbox)
	}
}

func (s *subscriber) deliver(message *Message) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}
	select {
	case s.inbox <- message:
	default:
		s.dropped.Inc()
	}
}
