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

package transport

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/atomic"

	gerrors "github.com/actorgrid/actorgrid/errors"
	"github.com/actorgrid/actorgrid/log"
)

const memorySubscriptionBuffer = 1024

// MemoryBroker is an in-process Broker. Each subscription owns a goroutine
// draining a buffered channel, so a slow handler never blocks publishers
// until its buffer is full.
type MemoryBroker struct {
	mu     sync.RWMutex
	topics map[string]map[string]*memorySubscription
	closed *atomic.Bool
	wg     sync.WaitGroup
	logger log.Logger
}

var _ Broker = (*MemoryBroker)(nil)

// NewMemoryBroker creates a MemoryBroker.
func NewMemoryBroker(logger log.Logger) *MemoryBroker {
	if logger == nil {
		logger = log.DefaultLogger
	}
	return &MemoryBroker{
		topics: make(map[string]map[string]*memorySubscription),
		closed: atomic.NewBool(false),
		logger: logger,
	}
}

// Publish implements Broker. Messages are copied so subscribers never share
// an envelope with the publisher.
func (b *MemoryBroker) Publish(ctx context.Context, topic string, msg *BrokerMessage) error {
	if b.closed.Load() {
		return gerrors.ErrBrokerClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.topics[topic] {
		select {
		case sub.queue <- msg.Clone():
		case <-sub.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Subscribe implements Broker.
func (b *MemoryBroker) Subscribe(topic string, handler Handler) (Subscription, error) {
	if b.closed.Load() {
		return nil, gerrors.ErrBrokerClosed
	}

	sub := &memorySubscription{
		id:      uuid.NewString(),
		topic:   topic,
		queue:   make(chan *BrokerMessage, memorySubscriptionBuffer),
		done:    make(chan struct{}),
		broker:  b,
		handler: handler,
	}

	b.mu.Lock()
	subs, ok := b.topics[topic]
	if !ok {
		subs = make(map[string]*memorySubscription)
		b.topics[topic] = subs
	}
	subs[sub.id] = sub
	b.mu.Unlock()

	b.wg.Add(1)
	go sub.run()
	return sub, nil
}

// Close implements Broker. It waits for running handlers to return.
func (b *MemoryBroker) Close() error {
	if b.closed.Swap(true) {
		return nil
	}
	b.mu.Lock()
	for _, subs := range b.topics {
		for _, sub := range subs {
			sub.stop()
		}
	}
	b.topics = make(map[string]map[string]*memorySubscription)
	b.mu.Unlock()
	b.wg.Wait()
	return nil
}

func (b *MemoryBroker) remove(sub *memorySubscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if subs, ok := b.topics[sub.topic]; ok {
		delete(subs, sub.id)
		if len(subs) == 0 {
			delete(b.topics, sub.topic)
		}
	}
}

type memorySubscription struct {
	id       string
	topic    string
	queue    chan *BrokerMessage
	done     chan struct{}
	stopOnce sync.Once
	broker   *MemoryBroker
	handler  Handler
}

func (s *memorySubscription) Topic() string { return s.topic }

func (s *memorySubscription) Unsubscribe() error {
	s.stop()
	s.broker.remove(s)
	return nil
}

func (s *memorySubscription) stop() {
	s.stopOnce.Do(func() { close(s.done) })
}

func (s *memorySubscription) run() {
	defer s.broker.wg.Done()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-s.done
		cancel()
	}()

	for {
		select {
		case <-s.done:
			return
		case msg := <-s.queue:
			if err := s.handler(ctx, msg); err != nil {
				s.broker.logger.Warnf("handler for topic %s failed: %v", s.topic, err)
			}
		}
	}
}
