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

package node

import (
	"time"

	"github.com/actorgrid/actorgrid/actor"
)

// Runtime surface paths.
const (
	PathHealth      = "/runtime/health"
	PathCreateActor = "/runtime/create-actor"
	PathTell        = "/runtime/tell"
	PathAsk         = "/runtime/ask"
	PathActors      = "/runtime/actors"
)

// CreateActorRequest asks a runtime to spawn an actor.
type CreateActorRequest struct {
	ActorType          string         `json:"actorType"`
	ActorID            string         `json:"actorId,omitempty"`
	Params             map[string]any `json:"params,omitempty"`
	RequesterServiceID string         `json:"requesterServiceId,omitempty"`
}

// CreateActorResponse reports the state of a spawned actor. A failing
// PreStart yields FAILED with the cause in ErrorMessage.
type CreateActorResponse struct {
	ActorID      string      `json:"actorId"`
	ActorType    string      `json:"actorType"`
	ServiceID    string      `json:"serviceId"`
	State        actor.State `json:"state"`
	ErrorMessage string      `json:"errorMessage,omitempty"`
}

// TellRequest delivers a fire and forget message.
type TellRequest struct {
	TargetActorID string `json:"targetActorId"`
	SenderActorID string `json:"senderActorId,omitempty"`
	Message       any    `json:"message"`
}

// AskRequest delivers a request and waits for the reply.
type AskRequest struct {
	TargetActorID string `json:"targetActorId"`
	SenderActorID string `json:"senderActorId,omitempty"`
	Message       any    `json:"message"`
	TimeoutMillis int64  `json:"timeoutMs,omitempty"`
}

// AskResponse carries the reply of an ask.
type AskResponse struct {
	Reply any `json:"reply"`
}

// ActorHealth describes one local actor.
type ActorHealth struct {
	actor.ActorStats
	Active bool `json:"active"`
}

// RuntimeHealth is served by PathHealth.
type RuntimeHealth struct {
	ServiceID string            `json:"serviceId"`
	Status    string            `json:"status"`
	StartedAt time.Time         `json:"startedAt"`
	Stats     actor.SystemStats `json:"stats"`
}

// StateReport is sent to the control plane when a local actor settles in a new state.
type StateReport struct {
	ServiceID string      `json:"serviceId"`
	State     actor.State `json:"state"`
	Cause     string      `json:"cause,omitempty"`
}
