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
	"fmt"

	gerrors "github.com/actorgrid/actorgrid/errors"
)

// PreStartFunc defines the PreStart hook of a FuncActor
type PreStartFunc = func(ctx *Context) error

// PostStopFunc defines the PostStop hook of a FuncActor
type PostStopFunc = func(ctx *Context) error

// RestartFunc defines the restart hooks of a FuncActor
type RestartFunc = func(ctx *Context, cause error) error

// FuncOption configures a FuncActor.
type FuncOption interface {
	// Apply sets the Option value of a config.
	Apply(config *funcConfig)
}

var _ FuncOption = funcOption(nil)

type funcOption func(config *funcConfig)

// Apply implementation
func (f funcOption) Apply(c *funcConfig) {
	f(c)
}

type funcConfig struct {
	preStart    PreStartFunc
	postStop    PostStopFunc
	preRestart  RestartFunc
	postRestart RestartFunc
	onTerminate func(ctx *ReceiveContext, terminated *Terminated) error
}

// WithPreStart sets the PreStart hook
func WithPreStart(fn PreStartFunc) FuncOption {
	return funcOption(func(c *funcConfig) {
		c.preStart = fn
	})
}

// WithPostStop sets the PostStop hook
func WithPostStop(fn PostStopFunc) FuncOption {
	return funcOption(func(c *funcConfig) {
		c.postStop = fn
	})
}

// WithPreRestart sets the hook run on the replaced instance
func WithPreRestart(fn RestartFunc) FuncOption {
	return funcOption(func(c *funcConfig) {
		c.preRestart = fn
	})
}

// WithPostRestart sets the hook run on the fresh instance
func WithPostRestart(fn RestartFunc) FuncOption {
	return funcOption(func(c *funcConfig) {
		c.postRestart = fn
	})
}

// WithTerminated handles Terminated notifications of watched actors.
// Without it they are ignored.
func WithTerminated(fn func(ctx *ReceiveContext, terminated *Terminated) error) FuncOption {
	return funcOption(func(c *funcConfig) {
		c.onTerminate = fn
	})
}

// FuncActor builds an actor out of closures over a closed message protocol M.
//
// Payloads that are not an M are unhandled and go to dead letters,
// except Terminated which is routed to the WithTerminated hook.
type FuncActor[M any] struct {
	receive func(ctx *ReceiveContext, msg M) error
	config  *funcConfig
}

var (
	_ Actor       = (*FuncActor[any])(nil)
	_ Restartable = (*FuncActor[any])(nil)
)

// NewFuncActor creates a FuncActor.
func NewFuncActor[M any](receive func(ctx *ReceiveContext, msg M) error, opts ...FuncOption) *FuncActor[M] {
	config := new(funcConfig)
	for _, opt := range opts {
		opt.Apply(config)
	}
	return &FuncActor[M]{receive: receive, config: config}
}

// PreStart implements Actor.
func (x *FuncActor[M]) PreStart(ctx *Context) error {
	if x.config.preStart != nil {
		return x.config.preStart(ctx)
	}
	return nil
}

// Receive implements Actor.
func (x *FuncActor[M]) Receive(ctx *ReceiveContext) {
	switch msg := ctx.Payload().(type) {
	case M:
		if err := x.receive(ctx, msg); err != nil {
			ctx.Err(err)
		}
	case *Terminated:
		if x.config.onTerminate != nil {
			if err := x.config.onTerminate(ctx, msg); err != nil {
				ctx.Err(err)
			}
		}
	default:
		ctx.Unhandled()
	}
}

// PostStop implements Actor.
func (x *FuncActor[M]) PostStop(ctx *Context) error {
	if x.config.postStop != nil {
		return x.config.postStop(ctx)
	}
	return nil
}

// PreRestart implements Restartable.
func (x *FuncActor[M]) PreRestart(ctx *Context, cause error) error {
	if x.config.preRestart != nil {
		return x.config.preRestart(ctx, cause)
	}
	return x.PostStop(ctx)
}

// PostRestart implements Restartable.
func (x *FuncActor[M]) PostRestart(ctx *Context, cause error) error {
	if x.config.postRestart != nil {
		return x.config.postRestart(ctx, cause)
	}
	return x.PreStart(ctx)
}

// FuncFactory returns a Factory building a fresh FuncActor on each call.
// build runs once per instance, so closures never share state across restarts.
func FuncFactory[M any](build func(params map[string]any) (func(ctx *ReceiveContext, msg M) error, []FuncOption, error)) Factory {
	return func(params map[string]any) (Actor, error) {
		receive, opts, err := build(params)
		if err != nil {
			return nil, err
		}
		if receive == nil {
			return nil, gerrors.NewErrInvalidActorParams(fmt.Errorf("nil receive function"))
		}
		return NewFuncActor(receive, opts...), nil
	}
}
