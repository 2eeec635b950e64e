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

package router

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/actorgrid/actorgrid/actor"
	gerrors "github.com/actorgrid/actorgrid/errors"
	"github.com/actorgrid/actorgrid/hash"
	"github.com/actorgrid/actorgrid/log"
)

type order struct {
	customer string
}

func (o order) HashKey() string { return o.customer }

// tally counts the messages handled per routee.
type tally struct {
	mu     sync.Mutex
	counts map[string]int
}

func (t *tally) add(id string) {
	t.mu.Lock()
	t.counts[id]++
	t.mu.Unlock()
}

func (t *tally) get(id string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.counts[id]
}

func (t *tally) total() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	sum := 0
	for _, n := range t.counts {
		sum += n
	}
	return sum
}

func setup(t *testing.T, n int) (*actor.System, []*actor.Ref, *tally) {
	t.Helper()
	ctx := context.Background()
	system, err := actor.NewSystem("routing", actor.WithLogger(log.DiscardLogger))
	require.NoError(t, err)
	require.NoError(t, system.Start(ctx))
	t.Cleanup(func() { _ = system.Stop(ctx) })

	counts := &tally{counts: make(map[string]int)}
	system.Register("Worker", actor.FuncFactory(func(map[string]any) (func(*actor.ReceiveContext, any) error, []actor.FuncOption, error) {
		return func(ctx *actor.ReceiveContext, _ any) error {
			counts.add(ctx.Self().ID())
			ctx.Reply(ctx.Self().ID())
			return nil
		}, nil, nil
	}))

	refs := make([]*actor.Ref, 0, n)
	for i := range n {
		ref, err := system.Spawn(ctx, "Worker", nil, actor.WithID(fmt.Sprintf("worker-%d", i)))
		require.NoError(t, err)
		refs = append(refs, ref)
	}
	return system, refs, counts
}

func TestRoundRobin(t *testing.T) {
	ctx := context.Background()
	_, refs, counts := setup(t, 3)
	router := New(NewRoundRobin(), refs...)
	assert.Equal(t, RoundRobinStrategy, router.Strategy().Kind())

	for range 9 {
		require.NoError(t, router.Route(ctx, "work"))
	}
	require.Eventually(t, func() bool { return counts.total() == 9 }, time.Second, 5*time.Millisecond)
	for _, ref := range refs {
		assert.Equal(t, 3, counts.get(ref.ID()))
	}
}

func TestRandom(t *testing.T) {
	ctx := context.Background()
	_, refs, counts := setup(t, 3)
	router := New(NewRandom(), refs...)

	for range 30 {
		require.NoError(t, router.Route(ctx, "work"))
	}
	require.Eventually(t, func() bool { return counts.total() == 30 }, time.Second, 5*time.Millisecond)
}

func TestBroadcast(t *testing.T) {
	ctx := context.Background()
	_, refs, counts := setup(t, 3)
	router := New(NewBroadcast(), refs...)

	require.NoError(t, router.Route(ctx, "work"))
	require.Eventually(t, func() bool { return counts.total() == 3 }, time.Second, 5*time.Millisecond)
	for _, ref := range refs {
		assert.Equal(t, 1, counts.get(ref.ID()))
	}

	reply, err := router.Ask(ctx, "who", time.Second).Await(ctx)
	require.NoError(t, err)
	assert.Contains(t, []string{"worker-0", "worker-1", "worker-2"}, reply)
}

func TestConsistentHash(t *testing.T) {
	_, refs, _ := setup(t, 5)
	strategy := NewConsistentHash(nil)

	owner := func(payload any, pool []*actor.Ref) string {
		selected := strategy.Select(payload, pool)
		require.Len(t, selected, 1)
		return selected[0].ID()
	}

	first := owner(order{customer: "acme"}, refs)
	for range 10 {
		assert.Equal(t, first, owner(order{customer: "acme"}, refs))
	}

	// removing another routee keeps the key in place
	var rest []*actor.Ref
	removed := false
	for _, ref := range refs {
		if !removed && ref.ID() != first {
			removed = true
			continue
		}
		rest = append(rest, ref)
	}
	assert.Equal(t, first, owner(order{customer: "acme"}, rest))

	// keys spread over the pool
	owners := make(map[string]struct{})
	for i := range 100 {
		owners[owner(fmt.Sprintf("key-%d", i), refs)] = struct{}{}
	}
	assert.Greater(t, len(owners), 1)

	byLength := NewConsistentHash(func(payload any) string { return fmt.Sprint(len(payload.(string))) })
	assert.Equal(t, byLength.Select("abc", refs), byLength.Select("xyz", refs))

	// equal scores go to the smallest id
	flat := NewConsistentHash(nil, WithHasher(hash.HasherFunc(func([]byte) uint64 { return 1 })))
	selected := flat.Select("any", refs)
	require.Len(t, selected, 1)
	assert.Equal(t, "worker-0", selected[0].ID())
}

func TestSkipInactiveRoutees(t *testing.T) {
	ctx := context.Background()
	system, refs, counts := setup(t, 2)
	router := New(NewRoundRobin(), refs...)

	require.NoError(t, system.StopActor(ctx, refs[0].ID()))
	require.Len(t, router.Active(), 1)
	for range 4 {
		require.NoError(t, router.Route(ctx, "work"))
	}
	require.Eventually(t, func() bool { return counts.get(refs[1].ID()) == 4 }, time.Second, 5*time.Millisecond)
	assert.Zero(t, counts.get(refs[0].ID()))

	require.NoError(t, system.StopActor(ctx, refs[1].ID()))
	require.ErrorIs(t, router.Route(ctx, "work"), gerrors.ErrNoRoutees)
	_, err := router.Ask(ctx, "work", time.Second).Await(ctx)
	require.ErrorIs(t, err, gerrors.ErrNoRoutees)
}

func TestPoolMembership(t *testing.T) {
	_, refs, _ := setup(t, 2)
	router := New(nil, refs[0], refs[0], nil)
	assert.Equal(t, RoundRobinStrategy, router.Strategy().Kind())
	require.Len(t, router.Routees(), 1)

	router.Add(refs...)
	require.Len(t, router.Routees(), 2)
	assert.True(t, router.Remove(refs[0].ID()))
	assert.False(t, router.Remove(refs[0].ID()))
	require.Len(t, router.Routees(), 1)
}

func TestRouterActor(t *testing.T) {
	ctx := context.Background()
	system, refs, counts := setup(t, 2)
	router := New(NewRoundRobin(), refs...)
	system.Register("Router", router.Factory())

	ref, err := system.Spawn(ctx, "Router", nil, actor.WithID("pool"))
	require.NoError(t, err)
	require.True(t, ref.IsActive())

	require.NoError(t, ref.Tell(ctx, "work"))
	require.NoError(t, ref.Tell(ctx, "work"))
	require.Eventually(t, func() bool { return counts.total() == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, counts.get(refs[0].ID()))
	assert.Equal(t, 1, counts.get(refs[1].ID()))

	reply, err := ref.Ask(ctx, "who", time.Second).Await(ctx)
	require.NoError(t, err)
	assert.Contains(t, []string{"worker-0", "worker-1"}, reply)

	require.NoError(t, system.StopActor(ctx, refs[0].ID()))
	require.Eventually(t, func() bool { return len(router.Routees()) == 1 }, time.Second, 5*time.Millisecond)
}

func TestStrategyNames(t *testing.T) {
	assert.Equal(t, "round-robin", RoundRobinStrategy.String())
	assert.Equal(t, "random", RandomStrategy.String())
	assert.Equal(t, "broadcast", BroadcastStrategy.String())
	assert.Equal(t, "consistent-hash", ConsistentHashingStrategy.String())
	assert.Equal(t, "unknown", RoutingStrategy(42).String())
}
