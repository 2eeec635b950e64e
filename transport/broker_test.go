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
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gerrors "github.com/actorgrid/actorgrid/errors"
	"github.com/actorgrid/actorgrid/log"
)

// collector records the messages a handler receives.
type collector struct {
	mu       sync.Mutex
	messages []*BrokerMessage
}

func (c *collector) handle(_ context.Context, msg *BrokerMessage) error {
	c.mu.Lock()
	c.messages = append(c.messages, msg)
	c.mu.Unlock()
	return nil
}

func (c *collector) all() []*BrokerMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*BrokerMessage(nil), c.messages...)
}

func (c *collector) count() int {
	return len(c.all())
}

func TestMemoryBroker(t *testing.T) {
	ctx := context.Background()

	t.Run("fan out in publish order", func(t *testing.T) {
		broker := NewMemoryBroker(log.DiscardLogger)
		t.Cleanup(func() { _ = broker.Close() })

		first, second := new(collector), new(collector)
		_, err := broker.Subscribe("orders", first.handle)
		require.NoError(t, err)
		_, err = broker.Subscribe("orders", second.handle)
		require.NoError(t, err)

		for i := range 10 {
			msg := NewBrokerMessage("svc-a", "orders", "string", []byte{byte(i)})
			require.NoError(t, broker.Publish(ctx, "orders", msg))
		}
		require.NoError(t, broker.Publish(ctx, "nobody", NewBrokerMessage("svc-a", "nobody", "string", nil)))

		require.Eventually(t, func() bool { return first.count() == 10 && second.count() == 10 }, time.Second, 5*time.Millisecond)
		for i, msg := range first.all() {
			assert.Equal(t, []byte{byte(i)}, msg.Payload)
		}
	})

	t.Run("unsubscribe", func(t *testing.T) {
		broker := NewMemoryBroker(log.DiscardLogger)
		t.Cleanup(func() { _ = broker.Close() })

		c := new(collector)
		sub, err := broker.Subscribe("orders", c.handle)
		require.NoError(t, err)
		assert.Equal(t, "orders", sub.Topic())
		require.NoError(t, sub.Unsubscribe())
		require.NoError(t, sub.Unsubscribe())

		require.NoError(t, broker.Publish(ctx, "orders", NewBrokerMessage("svc-a", "orders", "string", nil)))
		time.Sleep(20 * time.Millisecond)
		assert.Zero(t, c.count())
	})

	t.Run("closed broker", func(t *testing.T) {
		broker := NewMemoryBroker(log.DiscardLogger)
		_, err := broker.Subscribe("orders", new(collector).handle)
		require.NoError(t, err)
		require.NoError(t, broker.Close())
		require.NoError(t, broker.Close())

		require.ErrorIs(t, broker.Publish(ctx, "orders", NewBrokerMessage("svc-a", "orders", "string", nil)), gerrors.ErrBrokerClosed)
		_, err = broker.Subscribe("orders", new(collector).handle)
		require.ErrorIs(t, err, gerrors.ErrBrokerClosed)
	})
}

func TestConsumerErrorStrategies(t *testing.T) {
	ctx := context.Background()
	errBoom := errors.New("boom")

	setup := func(t *testing.T) (*MemoryBroker, *consumer, *collector) {
		broker := NewMemoryBroker(log.DiscardLogger)
		t.Cleanup(func() { _ = broker.Close() })
		dead := new(collector)
		_, err := broker.Subscribe(DeadLetterTopic("work"), dead.handle)
		require.NoError(t, err)
		return broker, newConsumer(broker, log.DiscardLogger, 3, time.Millisecond, 5*time.Millisecond), dead
	}

	failing := func(failures int, err error) (Handler, *int) {
		calls := 0
		return func(context.Context, *BrokerMessage) error {
			calls++
			if calls <= failures {
				return err
			}
			return nil
		}, &calls
	}

	t.Run("retry until success", func(t *testing.T) {
		_, consumer, dead := setup(t)
		handler, calls := failing(2, errBoom)
		msg := NewBrokerMessage("svc-a", "work", "string", nil)

		require.NoError(t, consumer.wrap(handler)(ctx, msg))
		assert.Equal(t, 3, *calls)
		assert.Equal(t, 2, msg.RetryCount)
		time.Sleep(20 * time.Millisecond)
		assert.Zero(t, dead.count())
	})

	t.Run("retry exhausted goes to dead letters", func(t *testing.T) {
		_, consumer, dead := setup(t)
		handler, calls := failing(100, errBoom)
		msg := NewBrokerMessage("svc-a", "work", "string", nil)
		msg.MaxRetries = 2

		require.NoError(t, consumer.wrap(handler)(ctx, msg))
		assert.Equal(t, 3, *calls)
		require.Eventually(t, func() bool { return dead.count() == 1 }, time.Second, 5*time.Millisecond)
		letter := dead.all()[0]
		assert.Equal(t, "boom", letter.Header(HeaderError))
		assert.Equal(t, msg.MessageID, letter.MessageID)
		assert.EqualValues(t, 1, consumer.deadLettered.Load())
	})

	t.Run("permanent errors skip retries", func(t *testing.T) {
		_, consumer, dead := setup(t)
		handler, calls := failing(100, Permanent(errBoom))
		msg := NewBrokerMessage("svc-a", "work", "string", nil)

		require.NoError(t, consumer.wrap(handler)(ctx, msg))
		assert.Equal(t, 1, *calls)
		require.Eventually(t, func() bool { return dead.count() == 1 }, time.Second, 5*time.Millisecond)
	})

	t.Run("dlq", func(t *testing.T) {
		_, consumer, dead := setup(t)
		handler, calls := failing(100, errBoom)
		msg := NewBrokerMessage("svc-a", "work", "string", nil)
		msg.ErrorStrategy = DLQ

		require.NoError(t, consumer.wrap(handler)(ctx, msg))
		assert.Equal(t, 1, *calls)
		require.Eventually(t, func() bool { return dead.count() == 1 }, time.Second, 5*time.Millisecond)
	})

	t.Run("ignore", func(t *testing.T) {
		_, consumer, dead := setup(t)
		handler, calls := failing(100, errBoom)
		msg := NewBrokerMessage("svc-a", "work", "string", nil)
		msg.ErrorStrategy = Ignore

		require.NoError(t, consumer.wrap(handler)(ctx, msg))
		assert.Equal(t, 1, *calls)
		assert.EqualValues(t, 1, consumer.ignored.Load())
		time.Sleep(20 * time.Millisecond)
		assert.Zero(t, dead.count())
	})

	t.Run("dead letter publish failure is returned", func(t *testing.T) {
		broker, consumer, _ := setup(t)
		require.NoError(t, broker.Close())
		handler, _ := failing(100, errBoom)
		msg := NewBrokerMessage("svc-a", "work", "string", nil)
		msg.ErrorStrategy = DLQ

		err := consumer.wrap(handler)(ctx, msg)
		require.ErrorIs(t, err, errBoom)
		require.ErrorIs(t, err, gerrors.ErrBrokerClosed)
	})

	assert.Nil(t, Permanent(nil))
}
