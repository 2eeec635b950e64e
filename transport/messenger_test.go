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
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/actorgrid/actorgrid/actor"
	gerrors "github.com/actorgrid/actorgrid/errors"
	"github.com/actorgrid/actorgrid/log"
)

type received struct {
	payload  string
	senderID string
}

// node is an actor system wired to a messenger.
type node struct {
	system    *actor.System
	messenger *Messenger
	inbox     chan received
}

func newNode(t *testing.T, broker Broker, serviceID string, opts ...Option) *node {
	t.Helper()
	ctx := context.Background()

	opts = append([]Option{WithLogger(log.DiscardLogger), WithRetry(2, time.Millisecond, 5*time.Millisecond)}, opts...)
	messenger, err := NewMessenger(serviceID, broker, opts...)
	require.NoError(t, err)

	system, err := actor.NewSystem(serviceID, actor.WithLogger(log.DiscardLogger), actor.WithRemoting(messenger))
	require.NoError(t, err)

	n := &node{system: system, messenger: messenger, inbox: make(chan received, 16)}
	system.Register("Echo", actor.FuncFactory(func(map[string]any) (func(*actor.ReceiveContext, string) error, []actor.FuncOption, error) {
		return func(ctx *actor.ReceiveContext, msg string) error {
			if strings.HasPrefix(msg, "slow:") {
				time.Sleep(200 * time.Millisecond)
			}
			if !ctx.Reply("echo:" + msg) {
				n.inbox <- received{payload: msg, senderID: ctx.SenderID()}
			}
			return nil
		}, nil, nil
	}))

	require.NoError(t, system.Start(ctx))
	require.NoError(t, messenger.Start(ctx, system))
	t.Cleanup(func() {
		_ = messenger.Stop(ctx)
		_ = system.Stop(ctx)
	})
	return n
}

func TestMessenger(t *testing.T) {
	ctx := context.Background()

	t.Run("remote tell", func(t *testing.T) {
		broker := NewMemoryBroker(log.DiscardLogger)
		t.Cleanup(func() { _ = broker.Close() })
		a := newNode(t, broker, "svc-a")
		b := newNode(t, broker, "svc-b")
		_, err := b.system.Spawn(ctx, "Echo", nil, actor.WithID("echo"))
		require.NoError(t, err)

		require.NoError(t, a.messenger.RemoteTell(ctx, "svc-b", "echo", "hello", actor.WithSenderID("caller")))
		select {
		case got := <-b.inbox:
			assert.Equal(t, received{payload: "hello", senderID: "caller"}, got)
		case <-time.After(time.Second):
			t.Fatal("remote tell not delivered")
		}
	})

	t.Run("remote ask", func(t *testing.T) {
		broker := NewMemoryBroker(log.DiscardLogger)
		t.Cleanup(func() { _ = broker.Close() })
		a := newNode(t, broker, "svc-a")
		b := newNode(t, broker, "svc-b")
		_, err := b.system.Spawn(ctx, "Echo", nil, actor.WithID("echo"))
		require.NoError(t, err)

		reply, err := a.messenger.RemoteAsk(ctx, "svc-b", "echo", "ping", time.Second).Await(ctx)
		require.NoError(t, err)
		assert.Equal(t, "echo:ping", reply)
		assert.Zero(t, a.messenger.pending.Len())
	})

	t.Run("remote ask with compression", func(t *testing.T) {
		for _, compression := range []Compression{ZstdCompression, BrotliCompression} {
			broker := NewMemoryBroker(log.DiscardLogger)
			a := newNode(t, broker, "svc-a", WithCompression(compression))
			b := newNode(t, broker, "svc-b", WithCompression(compression))
			_, err := b.system.Spawn(ctx, "Echo", nil, actor.WithID("echo"))
			require.NoError(t, err)

			payload := strings.Repeat("actorgrid ", 64)
			reply, err := a.messenger.RemoteAsk(ctx, "svc-b", "echo", payload, time.Second).Await(ctx)
			require.NoError(t, err, compression)
			assert.Equal(t, "echo:"+payload, reply)
			_ = broker.Close()
		}
	})

	t.Run("remote ask to an unknown actor", func(t *testing.T) {
		broker := NewMemoryBroker(log.DiscardLogger)
		t.Cleanup(func() { _ = broker.Close() })
		a := newNode(t, broker, "svc-a")
		newNode(t, broker, "svc-b")

		_, err := a.messenger.RemoteAsk(ctx, "svc-b", "ghost", "ping", time.Second).Await(ctx)
		require.ErrorIs(t, err, gerrors.ErrActorNotFound)
	})

	t.Run("remote ask timeout", func(t *testing.T) {
		broker := NewMemoryBroker(log.DiscardLogger)
		t.Cleanup(func() { _ = broker.Close() })
		a := newNode(t, broker, "svc-a")
		b := newNode(t, broker, "svc-b")
		_, err := b.system.Spawn(ctx, "Echo", nil, actor.WithID("echo"))
		require.NoError(t, err)

		_, err = a.messenger.RemoteAsk(ctx, "svc-b", "echo", "slow:ping", 50*time.Millisecond).Await(ctx)
		require.ErrorIs(t, err, gerrors.ErrRequestTimeout)

		_, err = a.messenger.RemoteAsk(ctx, "svc-b", "echo", "ping", 0).Await(ctx)
		require.ErrorIs(t, err, gerrors.ErrInvalidTimeout)
	})

	t.Run("tell to an unknown actor is dead lettered", func(t *testing.T) {
		broker := NewMemoryBroker(log.DiscardLogger)
		t.Cleanup(func() { _ = broker.Close() })
		dead := new(collector)
		_, err := broker.Subscribe(DeadLetterTopic(TellTopic("svc-b")), dead.handle)
		require.NoError(t, err)
		a := newNode(t, broker, "svc-a")
		newNode(t, broker, "svc-b")

		require.NoError(t, a.messenger.RemoteTell(ctx, "svc-b", "ghost", "hello"))
		require.Eventually(t, func() bool { return dead.count() == 1 }, time.Second, 5*time.Millisecond)
		letter := dead.all()[0]
		assert.Equal(t, "ghost", letter.Header(HeaderTargetActor))
		assert.Contains(t, letter.Header(HeaderError), "ghost")
		assert.Zero(t, letter.RetryCount)
	})

	t.Run("stop fails pending asks", func(t *testing.T) {
		broker := NewMemoryBroker(log.DiscardLogger)
		t.Cleanup(func() { _ = broker.Close() })
		a := newNode(t, broker, "svc-a")

		pending := a.messenger.RemoteAsk(ctx, "svc-nowhere", "echo", "ping", time.Minute)
		require.NoError(t, a.messenger.Stop(ctx))
		_, err := pending.Await(ctx)
		require.ErrorIs(t, err, gerrors.ErrMessengerNotStarted)
		assert.False(t, a.messenger.Running())

		require.ErrorIs(t, a.messenger.RemoteTell(ctx, "svc-b", "echo", "hello"), gerrors.ErrMessengerNotStarted)
		_, err = a.messenger.RemoteAsk(ctx, "svc-b", "echo", "hello", time.Second).Await(ctx)
		require.ErrorIs(t, err, gerrors.ErrMessengerNotStarted)
	})

	t.Run("invalid configuration", func(t *testing.T) {
		_, err := NewMessenger("bad id", NewMemoryBroker(log.DiscardLogger))
		require.Error(t, err)
		_, err = NewMessenger("svc-a", nil)
		require.Error(t, err)
		_, err = NewMessenger("svc-a", NewMemoryBroker(log.DiscardLogger), WithCompression("lz4"))
		require.Error(t, err)
	})
}
