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
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"

	"github.com/actorgrid/actorgrid/log"
)

const workerType = "Worker"

// command is the protocol of the test actor.
type command struct {
	value    int
	fail     error
	panic    bool
	reply    bool
	sleep    time.Duration
	shutdown bool
}

// probe observes every instance built by its factory.
type probe struct {
	mu        sync.Mutex
	values    []int
	active    *atomic.Int32
	maxActive *atomic.Int32
	starts    *atomic.Int32
	stops     *atomic.Int32

	terminated chan string
}

func newProbe() *probe {
	return &probe{
		active:     atomic.NewInt32(0),
		maxActive:  atomic.NewInt32(0),
		starts:     atomic.NewInt32(0),
		stops:      atomic.NewInt32(0),
		terminated: make(chan string, 16),
	}
}

func (p *probe) record(v int) {
	p.mu.Lock()
	p.values = append(p.values, v)
	p.mu.Unlock()
}

func (p *probe) recorded() []int {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]int, len(p.values))
	copy(out, p.values)
	return out
}

// factory builds a test actor. preStart is called with the attempt number.
func (p *probe) factory(preStart func(attempt int32) error) Factory {
	return func(map[string]any) (Actor, error) {
		processed := 0
		return NewFuncActor(func(ctx *ReceiveContext, cmd *command) error {
			current := p.active.Inc()
			defer p.active.Dec()
			for {
				highest := p.maxActive.Load()
				if current <= highest || p.maxActive.CompareAndSwap(highest, current) {
					break
				}
			}

			if cmd.sleep > 0 {
				time.Sleep(cmd.sleep)
			}
			if cmd.panic {
				panic("boom")
			}
			if cmd.fail != nil {
				return cmd.fail
			}
			processed++
			p.record(cmd.value)
			if cmd.reply {
				ctx.Reply(processed)
			}
			if cmd.shutdown {
				ctx.Shutdown()
			}
			return nil
		},
			WithPreStart(func(*Context) error {
				attempt := p.starts.Inc()
				if preStart != nil {
					return preStart(attempt)
				}
				return nil
			}),
			WithPostStop(func(*Context) error {
				p.stops.Inc()
				return nil
			}),
			WithTerminated(func(_ *ReceiveContext, terminated *Terminated) error {
				p.terminated <- terminated.ActorID()
				return nil
			}),
		), nil
	}
}

func newTestSystem(t *testing.T, opts ...Option) *System {
	t.Helper()
	opts = append([]Option{WithLogger(log.DiscardLogger)}, opts...)
	system, err := NewSystem("test", opts...)
	require.NoError(t, err)
	require.NoError(t, system.Start(context.Background()))
	t.Cleanup(func() {
		if system.Running() {
			_ = system.Stop(context.Background())
		}
	})
	return system
}

func spawnWorker(t *testing.T, system *System, p *probe, opts ...SpawnOption) *Ref {
	t.Helper()
	system.Register(workerType, p.factory(nil))
	ref, err := system.Spawn(context.Background(), workerType, nil, opts...)
	require.NoError(t, err)
	require.Equal(t, Running, ref.State())
	return ref
}
