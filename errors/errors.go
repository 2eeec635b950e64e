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

// Package errors holds the sentinel errors shared by the runtime, the
// transport and the control plane. Callers match them with errors.Is.
package errors

import "errors"

// actor lifecycle and messaging
var (
	ErrDead                 = errors.New("actor is not alive")
	ErrActorNotFound        = errors.New("actor not found")
	ErrActorAlreadyExists   = errors.New("actor already exists")
	ErrInvalidState         = errors.New("invalid actor state")
	ErrUnsupportedActorType = errors.New("unsupported actor type")
	ErrInvalidActorParams   = errors.New("invalid actor parameters")
	ErrInitFailure          = errors.New("pre-start failed")
	ErrRestartFailure       = errors.New("restart failed")
	ErrUnhandled            = errors.New("unhandled message")
	ErrInvalidMessage       = errors.New("invalid message")
	// ErrRequestTimeout is returned when an ask got no reply in time.
	ErrRequestTimeout = errors.New("request timed out")
	// ErrInvalidTimeout is returned for a zero or negative ask timeout.
	ErrInvalidTimeout  = errors.New("invalid timeout")
	ErrMailboxFull     = errors.New("mailbox is full")
	ErrMailboxDisposed = errors.New("mailbox has been disposed")
	ErrNoRoutees       = errors.New("router has no active routees")
)

// actor system
var (
	ErrActorSystemNotStarted     = errors.New("actor system is not running")
	ErrActorSystemAlreadyStarted = errors.New("actor system has already started")
)

// services and the control plane
var (
	ErrServiceNotFound = errors.New("service not found")
	// ErrServiceUnavailable is returned when the owning service is marked inactive
	// or cannot be reached.
	ErrServiceUnavailable = errors.New("service is unavailable")
	ErrRemoteCall         = errors.New("remote call failed")
	ErrMonitorNotStarted  = errors.New("health monitor has not started")
)

// transport
var (
	ErrBrokerClosed        = errors.New("broker is closed")
	ErrMessengerNotStarted = errors.New("messenger has not started")
	// ErrTypeNotRegistered is returned when a payload type tag cannot be resolved.
	ErrTypeNotRegistered = errors.New("type is not registered")
)
