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
	"time"

	gerrors "github.com/actorgrid/actorgrid/errors"
	"github.com/actorgrid/actorgrid/future"
	"github.com/actorgrid/actorgrid/log"
)

// Context is handed to lifecycle hooks.
type Context struct {
	ctx    context.Context
	self   *Ref
	params map[string]any
	system *System
	logger log.Logger
}

func newContext(ctx context.Context, c *cell, system *System) *Context {
	return &Context{
		ctx:    ctx,
		self:   c.ref,
		params: c.params,
		system: system,
		logger: c.logger,
	}
}

// Context returns the context of the operation running the hook.
func (x *Context) Context() context.Context { return x.ctx }

// Self returns the actor reference.
func (x *Context) Self() *Ref { return x.self }

// Params returns the spawn parameters.
func (x *Context) Params() map[string]any { return x.params }

// Logger returns a logger tagged with the actor id.
func (x *Context) Logger() log.Logger { return x.logger }

// System returns the hosting actor system.
func (x *Context) System() *System { return x.system }

// ReceiveContext carries one message through Actor.Receive.
type ReceiveContext struct {
	ctx       context.Context
	self      *Ref
	message   *Message
	system    *System
	logger    log.Logger
	err       error
	unhandled bool
	shutdown  bool
}

func newReceiveContext(ctx context.Context, c *cell, msg *Message, system *System) *ReceiveContext {
	return &ReceiveContext{
		ctx:     ctx,
		self:    c.ref,
		message: msg,
		system:  system,
		logger:  c.logger,
	}
}

// Context returns the processing context.
func (x *ReceiveContext) Context() context.Context { return x.ctx }

// Message returns the envelope.
func (x *ReceiveContext) Message() *Message { return x.message }

// Payload returns the message payload.
func (x *ReceiveContext) Payload() any { return x.message.Payload() }

// Sender returns the local sender, or nil.
func (x *ReceiveContext) Sender() *Ref { return x.message.Sender() }

// SenderID returns the sender id, which may belong to another service.
func (x *ReceiveContext) SenderID() string { return x.message.SenderID() }

// Self returns the receiving actor reference.
func (x *ReceiveContext) Self() *Ref { return x.self }

// Logger returns a logger tagged with the actor id.
func (x *ReceiveContext) Logger() log.Logger { return x.logger }

// Remote returns the injected Remoting, or nil.
func (x *ReceiveContext) Remote() Remoting { return x.system.remoting }

// Reply resolves the pending ask. It reports false when the message is not
// an ask or when the ask already completed, for instance after a timeout.
func (x *ReceiveContext) Reply(response any) bool {
	if x.message.reply == nil {
		return false
	}
	return x.message.reply.Complete(response)
}

// Err marks the message processing as failed. The system supervisor decides
// the directive and any pending ask fails with err.
func (x *ReceiveContext) Err(err error) {
	if err != nil {
		x.err = err
	}
}

// Unhandled sends the message to dead letters. It is not a failure.
func (x *ReceiveContext) Unhandled() {
	x.unhandled = true
}

// Shutdown stops the actor once the current message is processed.
func (x *ReceiveContext) Shutdown() {
	x.shutdown = true
}

// Tell sends payload to a local actor with Self as sender.
func (x *ReceiveContext) Tell(to string, payload any) error {
	return x.system.Tell(x.ctx, to, payload, WithSender(x.self))
}

// Ask sends a request to a local actor with Self as sender.
// Awaiting a request sent to Self blocks until the timeout.
func (x *ReceiveContext) Ask(to string, payload any, timeout time.Duration) *future.Future[any] {
	return x.system.Ask(x.ctx, to, payload, timeout, WithSender(x.self))
}

// Forward re-sends the current message to another actor, keeping the sender
// and any pending reply.
func (x *ReceiveContext) Forward(to string) error {
	target, ok := x.system.cell(to)
	if !ok {
		err := gerrors.NewErrActorNotFound(to)
		x.system.deadLetters.record(to, x.message, err)
		return err
	}
	return x.system.deliver(target, x.message)
}

// Watch subscribes Self to the termination of actorID.
func (x *ReceiveContext) Watch(actorID string) error {
	return x.system.Watch(actorID, x.self.ID())
}

// Unwatch removes the subscription made by Watch.
func (x *ReceiveContext) Unwatch(actorID string) error {
	return x.system.Unwatch(actorID, x.self.ID())
}

func (x *ReceiveContext) getError() error {
	return x.err
}
