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
	"slices"
	"sync"
	"time"

	"go.uber.org/multierr"

	"github.com/actorgrid/actorgrid/actor"
	gerrors "github.com/actorgrid/actorgrid/errors"
	"github.com/actorgrid/actorgrid/future"
)

// Router distributes messages over a pool of actor references.
//
// Only active routees (RUNNING or BLOCKED) are considered. A Router is safe
// for concurrent use.
type Router struct {
	strategy Strategy
	mu       sync.RWMutex
	routees  []*actor.Ref
}

// New creates a Router. A nil strategy defaults to RoundRobin.
func New(strategy Strategy, routees ...*actor.Ref) *Router {
	if strategy == nil {
		strategy = NewRoundRobin()
	}
	r := &Router{strategy: strategy}
	r.Add(routees...)
	return r
}

// Strategy returns the routing strategy.
func (r *Router) Strategy() Strategy { return r.strategy }

// Add appends routees. References already in the pool are ignored.
func (r *Router) Add(routees ...*actor.Ref) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, routee := range routees {
		if routee == nil {
			continue
		}
		exists := slices.ContainsFunc(r.routees, func(ref *actor.Ref) bool {
			return ref.ID() == routee.ID()
		})
		if !exists {
			r.routees = append(r.routees, routee)
		}
	}
}

// Remove drops the routee with the given id.
func (r *Router) Remove(actorID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	before := len(r.routees)
	r.routees = slices.DeleteFunc(r.routees, func(ref *actor.Ref) bool {
		return ref.ID() == actorID
	})
	return len(r.routees) != before
}

// Routees returns a snapshot of the pool.
func (r *Router) Routees() []*actor.Ref {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.routees)
}

// Active returns the routees that currently accept messages.
func (r *Router) Active() []*actor.Ref {
	r.mu.RLock()
	defer r.mu.RUnlock()
	active := make([]*actor.Ref, 0, len(r.routees))
	for _, routee := range r.routees {
		if routee.IsActive() {
			active = append(active, routee)
		}
	}
	return active
}

func (r *Router) pick(payload any) ([]*actor.Ref, error) {
	active := r.Active()
	if len(active) == 0 {
		return nil, gerrors.ErrNoRoutees
	}
	return r.strategy.Select(payload, active), nil
}

// Route tells payload to the routees chosen by the strategy.
func (r *Router) Route(ctx context.Context, payload any, opts ...actor.SendOption) error {
	targets, err := r.pick(payload)
	if err != nil {
		return err
	}
	for _, target := range targets {
		err = multierr.Append(err, target.Tell(ctx, payload, opts...))
	}
	return err
}

// Ask sends a request through the router. With several targets the first
// successful reply wins and the future fails only when every target failed.
func (r *Router) Ask(ctx context.Context, payload any, timeout time.Duration, opts ...actor.SendOption) *future.Future[any] {
	targets, err := r.pick(payload)
	if err != nil {
		return future.Failed[any](err)
	}
	if len(targets) == 1 {
		return targets[0].Ask(ctx, payload, timeout, opts...)
	}

	result := future.Promise[any]()
	var (
		mu       sync.Mutex
		failures error
		pending  = len(targets)
	)
	for _, target := range targets {
		reply := target.Ask(ctx, payload, timeout, opts...)
		go func() {
			value, err := reply.Await(ctx)
			if err == nil {
				result.Complete(value)
				return
			}
			mu.Lock()
			failures = multierr.Append(failures, err)
			pending--
			last := pending == 0
			mu.Unlock()
			if last {
				result.Fail(failures)
			}
		}()
	}
	return result
}

// Factory returns an actor factory wrapping the router. The actor forwards
// every message it receives to the chosen routees, keeping the sender and any
// pending reply, and drops routees once they terminate.
func (r *Router) Factory() actor.Factory {
	return func(map[string]any) (actor.Actor, error) {
		return &routerActor{router: r}, nil
	}
}

type routerActor struct {
	router *Router
}

var _ actor.Actor = (*routerActor)(nil)

func (x *routerActor) PreStart(ctx *actor.Context) error {
	for _, routee := range x.router.Routees() {
		if err := ctx.System().Watch(routee.ID(), ctx.Self().ID()); err != nil {
			ctx.Logger().Warnf("unable to watch routee %s: %v", routee.ID(), err)
		}
	}
	return nil
}

func (x *routerActor) Receive(ctx *actor.ReceiveContext) {
	if terminated, ok := ctx.Payload().(*actor.Terminated); ok {
		x.router.Remove(terminated.ActorID())
		return
	}

	targets, err := x.router.pick(ctx.Payload())
	if err != nil {
		ctx.Unhandled()
		return
	}
	for _, target := range targets {
		if err := ctx.Forward(target.ID()); err != nil {
			ctx.Logger().Warnf("unable to forward to routee %s: %v", target.ID(), err)
		}
	}
}

func (x *routerActor) PostStop(*actor.Context) error {
	return nil
}
