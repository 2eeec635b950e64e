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

	"github.com/actorgrid/actorgrid/future"
)

// Ref is the handle used to address an actor.
//
// It stays valid after the actor stops: State then returns STOPPED and
// IsActive false.
type Ref struct {
	id        string
	actorType string
	system    *System
	cell      *cell
}

// ID returns the actor id.
func (r *Ref) ID() string { return r.id }

// Type returns the actor type.
func (r *Ref) Type() string { return r.actorType }

// State returns the current lifecycle state of the actor.
func (r *Ref) State() State {
	if r.cell == nil {
		return Stopped
	}
	return r.cell.State()
}

// IsActive reports whether the actor accepts and processes messages.
func (r *Ref) IsActive() bool {
	state := r.State()
	return state == Running || state == Blocked
}

// Tell sends a fire and forget message to the actor this reference was
// created for. Once that actor stopped it fails with ErrActorNotFound, even
// if another actor was spawned with the same id.
func (r *Ref) Tell(ctx context.Context, payload any, opts ...SendOption) error {
	return r.system.send(ctx, r.id, r.cell, NewMessage(payload, opts...))
}

// Ask sends a request and returns a future resolved with the reply. Like
// Tell it never reaches a later actor spawned with the same id.
func (r *Ref) Ask(ctx context.Context, payload any, timeout time.Duration, opts ...SendOption) *future.Future[any] {
	return r.system.ask(ctx, r.id, r.cell, payload, timeout, opts...)
}

// Equals reports whether both references address the same actor.
func (r *Ref) Equals(other *Ref) bool {
	if r == nil || other == nil {
		return r == other
	}
	return r.id == other.id && r.cell == other.cell
}

// String returns type/id.
func (r *Ref) String() string {
	return r.actorType + "/" + r.id
}
