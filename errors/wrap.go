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

package errors

import (
	"errors"
	"fmt"
	"strings"
)

// tagged prefixes sentinel with key=value pairs, e.g. "(actor=a1) actor not found".
func tagged(sentinel error, pairs ...string) error {
	var b strings.Builder
	b.WriteByte('(')
	for i := 0; i+1 < len(pairs); i += 2 {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(pairs[i])
		b.WriteByte('=')
		b.WriteString(pairs[i+1])
	}
	b.WriteString(") ")
	return fmt.Errorf("%s%w", b.String(), sentinel)
}

func NewErrActorNotFound(actorID string) error {
	return tagged(ErrActorNotFound, "actor", actorID)
}

func NewErrActorAlreadyExists(actorID string) error {
	return tagged(ErrActorAlreadyExists, "actor", actorID)
}

// NewErrInvalidState reports the state an actor was in when an operation was refused.
func NewErrInvalidState(actorID string, state fmt.Stringer) error {
	return tagged(ErrInvalidState, "actor", actorID, "state", state.String())
}

func NewErrUnsupportedActorType(actorType string) error {
	return tagged(ErrUnsupportedActorType, "type", actorType)
}

func NewErrServiceNotFound(serviceID string) error {
	return tagged(ErrServiceNotFound, "service", serviceID)
}

func NewErrServiceUnavailable(serviceID string) error {
	return tagged(ErrServiceUnavailable, "service", serviceID)
}

func NewErrTypeNotRegistered(tag string) error {
	return tagged(ErrTypeNotRegistered, "type", tag)
}

// The constructors below join a cause to a sentinel so both match errors.Is.

func NewErrInvalidActorParams(err error) error { return errors.Join(ErrInvalidActorParams, err) }

func NewErrInitFailure(err error) error { return errors.Join(ErrInitFailure, err) }

func NewErrRestartFailure(err error) error { return errors.Join(ErrRestartFailure, err) }

func NewErrInvalidMessage(err error) error { return errors.Join(ErrInvalidMessage, err) }

func NewErrRemoteCall(err error) error { return errors.Join(ErrRemoteCall, err) }
