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
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcherThroughputFairness(t *testing.T) {
	ctx := context.Background()
	system := newTestSystem(t, WithWorkers(1), WithThroughput(2))

	var mu sync.Mutex
	var order []string
	system.Register("Tagged", func(map[string]any) (Actor, error) {
		return NewFuncActor(func(ctx *ReceiveContext, n int) error {
			mu.Lock()
			order = append(order, fmt.Sprintf("%s%d", ctx.Self().ID(), n))
			mu.Unlock()
			return nil
		}), nil
	})

	a, err := system.Spawn(ctx, "Tagged", nil, WithID("a"))
	require.NoError(t, err)
	b, err := system.Spawn(ctx, "Tagged", nil, WithID("b"))
	require.NoError(t, err)

	// hold the only worker so both actors are queued behind it
	gate := make(chan struct{})
	require.NoError(t, system.pool.SubmitWork(func() { <-gate }))

	for i := 1; i <= 4; i++ {
		require.NoError(t, a.Tell(ctx, i))
	}
	for i := 1; i <= 4; i++ {
		require.NoError(t, b.Tell(ctx, i))
	}
	close(gate)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(order) == 8
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"a1", "a2", "b1", "b2", "a3", "a4", "b3", "b4"}, order)
}

func TestDispatcherScheduleIsIdempotent(t *testing.T) {
	system := newTestSystem(t, WithWorkers(1))
	p := newProbe()
	ref := spawnWorker(t, system, p)
	c, ok := system.cell(ref.ID())
	require.True(t, ok)

	gate := make(chan struct{})
	require.NoError(t, system.pool.SubmitWork(func() { <-gate }))
	require.Eventually(t, func() bool { return system.pool.Busy() == 1 }, time.Second, 5*time.Millisecond)

	for range 5 {
		system.dispatcher.schedule(c)
	}
	assert.EqualValues(t, busy, c.processing.Load())
	assert.EqualValues(t, 1, system.pool.Pending())
	close(gate)

	require.Eventually(t, func() bool { return c.processing.Load() == idle }, time.Second, 5*time.Millisecond)
}
