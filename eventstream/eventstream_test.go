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
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestEventsStream(t *testing.T) {
	defer goleak.VerifyNone(t)

	t.Run("publish and iterate", func(t *testing.T) {
		stream := New()
		sub := stream.AddSubscriber()
		stream.Subscribe(sub, "t1")
		require.Equal(t, 1, stream.SubscribersCount("t1"))
		require.ElementsMatch(t, []string{"t1"}, sub.Topics())

		stream.Publish("t1", "hello")
		stream.Publish("t1", "world")
		stream.Publish("t2", "ignored")

		var payloads []any
		for _, msg := range sub.Drain() {
			require.Equal(t, "t1", msg.Topic())
			require.False(t, msg.PublishedAt().IsZero())
			payloads = append(payloads, msg.Payload())
		}
		require.Equal(t, []any{"hello", "world"}, payloads)

		// nothing buffered anymore
		require.Empty(t, sub.Drain())

		stream.Unsubscribe(sub, "t1")
		require.Zero(t, stream.SubscribersCount("t1"))
		stream.Close()
		require.False(t, sub.Active())
	})
	t.Run("live channel", func(t *testing.T) {
		stream := New()
		sub := stream.AddSubscriber()
		stream.Subscribe(sub, "t1")

		go stream.Publish("t1", 42)
		select {
		case msg := <-sub.Messages():
			require.Equal(t, 42, msg.Payload())
		case <-time.After(time.Second):
			t.Fatal("event not delivered")
		}

		stream.RemoveSubscriber(sub)
		_, ok := <-sub.Messages()
		require.False(t, ok)
		stream.Close()
	})
	t.Run("full buffer drops", func(t *testing.T) {
		stream := New(WithBufferSize(2))
		sub := stream.AddSubscriber()
		stream.Subscribe(sub, "t1")
		for i := range 5 {
			stream.Publish("t1", i)
		}
		require.EqualValues(t, 3, sub.Dropped())
		require.Len(t, sub.Drain(), 2)
		stream.Close()
	})
	t.Run("remove subscriber clears its routes", func(t *testing.T) {
		stream := New()
		sub := stream.AddSubscriber()
		stream.Subscribe(sub, "t1")
		stream.Subscribe(sub, "t2")
		other := stream.AddSubscriber()
		stream.Subscribe(other, "t2")

		stream.RemoveSubscriber(sub)
		require.Zero(t, stream.SubscribersCount("t1"))
		require.Equal(t, 1, stream.SubscribersCount("t2"))
		require.Empty(t, sub.Topics())

		stream.Publish("t2", "still routed")
		require.Len(t, other.Drain(), 1)
		stream.Close()
		require.False(t, other.Active())
	})
	t.Run("per subscriber buffer", func(t *testing.T) {
		stream := New(WithBufferSize(2))
		small := stream.AddSubscriber()
		large := stream.AddSubscriber(WithSubscriberBuffer(16))
		stream.Subscribe(small, "t1")
		stream.Subscribe(large, "t1")
		for i := range 10 {
			stream.Publish("t1", i)
		}
		require.EqualValues(t, 8, small.Dropped())
		require.Zero(t, large.Dropped())
		require.Len(t, large.Drain(), 10)
		stream.Close()
	})
	t.Run("inactive subscriber cannot subscribe", func(t *testing.T) {
		stream := New()
		sub := stream.AddSubscriber()
		sub.Shutdown()
		stream.Subscribe(sub, "t1")
		require.Zero(t, stream.SubscribersCount("t1"))
		stream.Publish("t1", "x")
		stream.Close()
	})
}
