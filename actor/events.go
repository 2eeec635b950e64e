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

import "time"

// LifecycleTopic is the event stream topic receiving LifecycleEvent and ActorEscalated.
const LifecycleTopic = "actorgrid.actors"

// LifecycleEvent is published on every actor state change.
type LifecycleEvent struct {
	ActorID   string    `json:"actorId"`
	ActorType string    `json:"actorType"`
	From      State     `json:"from"`
	To        State     `json:"to"`
	Cause     string    `json:"cause,omitempty"`
	At        time.Time `json:"at"`
}

// ActorEscalated is published when the supervisor escalates a failure.
// The actor is stopped afterwards.
type ActorEscalated struct {
	ActorID   string    `json:"actorId"`
	ActorType string    `json:"actorType"`
	Cause     string    `json:"cause"`
	Message   any       `json:"-"`
	At        time.Time `json:"at"`
}
