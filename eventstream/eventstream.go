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

// Package eventstream is an in-process topic based publish/subscribe bus used
// for lifecycle, dead letter and service health events.
package eventstream

import (
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
)

// Stream routes published events to the subscribers of a topic.
type Stream interface {
	// AddSubscriber creates a subscriber with the stream buffer size unless
	// WithSubscriberBuffer overrides it.
	AddSubscriber(opts ...SubscriberOption) Subscriber
	// RemoveSubscriber unsubscribes sub from every topic and shuts it down.
	RemoveSubscriber(sub Subscriber)
	SubscribersCount(topic string) int
	Subscribe(sub Subscriber, topic string)
	Unsubscribe(sub Subscriber, topic string)
	// Publish never blocks. A subscriber with a full buffer drops the event.
	Publish(topic string, msg any)
	// Close shuts every subscriber down.
	Close()
}

// Option configures the EventsStream.
type Option func(*EventsStream)

// WithBufferSize sets how many events each subscriber buffers.
func WithBufferSize(size int) Option {
	return func(b *EventsStream) { b.bufferSize = size }
}

// SubscriberOption configures one subscriber.
type SubscriberOption func(*subscriberConfig)

type subscriberConfig struct {
	bufferSize int
}

// WithSubscriberBuffer sets the buffer of a single subscriber, for consumers
// that must not lose bursts.
func WithSubscriberBuffer(size int) SubscriberOption {
	return func(c *subscriberConfig) { c.bufferSize = size }
}

// EventsStream is the default Stream.
type EventsStream struct {
	bufferSize int

	mu      sync.RWMutex
	members map[string]*subscriber
	routes  map[string]mapset.Set[*subscriber]
}

var _ Stream = (*EventsStream)(nil)

// New creates an EventsStream.
func New(opts ...Option) *EventsStream {
	stream := &EventsStream{
		bufferSize: DefaultBufferSize,
		members:    make(map[string]*subscriber),
		routes:     make(map[string]mapset.Set[*subscriber]),
	}
	for _, opt := range opts {
		opt(stream)
	}
	return stream
}

func (b *EventsStream) AddSubscriber(opts ...SubscriberOption) Subscriber {
	config := &subscriberConfig{bufferSize: b.bufferSize}
	for _, opt := range opts {
		opt(config)
	}
	sub := newSubscriber(config.bufferSize)
	b.mu.Lock()
	b.members[sub.id] = sub
	b.mu.Unlock()
	return sub
}

func (b *EventsStream) RemoveSubscriber(sub Subscriber) {
	s := sub.(*subscriber)
	b.mu.Lock()
	for _, topic := range s.topics.ToSlice() {
		b.detach(s, topic)
	}
	delete(b.members, s.id)
	b.mu.Unlock()
	s.Shutdown()
}

func (b *EventsStream) SubscribersCount(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if route, ok := b.routes[topic]; ok {
		return route.Cardinality()
	}
	return 0
}

func (b *EventsStream) Subscribe(sub Subscriber, topic string) {
	s := sub.(*subscriber)
	if !s.Active() {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	route, ok := b.routes[topic]
	if !ok {
		route = mapset.NewThreadUnsafeSet[*subscriber]()
		b.routes[topic] = route
	}
	route.Add(s)
	s.topics.Add(topic)
}

func (b *EventsStream) Unsubscribe(sub Subscriber, topic string) {
	b.mu.Lock()
	b.detach(sub.(*subscriber), topic)
	b.mu.Unlock()
}

// detach must be called with the lock held.
func (b *EventsStream) detach(s *subscriber, topic string) {
	s.topics.Remove(topic)
	route, ok := b.routes[topic]
	if !ok {
		return
	}
	route.Remove(s)
	if route.IsEmpty() {
		delete(b.routes, topic)
	}
}

func (b *EventsStream) Publish(topic string, msg any) {
	b.mu.RLock()
	route, ok := b.routes[topic]
	if !ok {
		b.mu.RUnlock()
		return
	}
	targets := route.ToSlice()
	b.mu.RUnlock()

	message := NewMessage(topic, msg)
	for _, s := range targets {
		s.deliver(message)
	}
}

func (b *EventsStream) Close() {
	b.mu.Lock()
	members := b.members
	b.members = make(map[string]*subscriber)
	b.routes = make(map[string]mapset.Set[*subscriber])
	b.mu.Unlock()

	for _, s := range members {
		s.Shutdown()
	}
}
