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

package breaker

import (
	"context"
	"fmt"
)

// ErrorType classifies breaker errors.
type ErrorType int

const (
	ErrorTypeOpen ErrorType = iota
	ErrorTypeTimeout
	ErrorTypePanic
)

// Error is returned when the breaker itself fails a call. Errors of the same
// type match with errors.Is, so a rejection of any breaker is ErrOpen.
type Error struct {
	Type    ErrorType
	Breaker string
	Cause   error
}

var (
	// ErrOpen matches rejections of an open breaker.
	ErrOpen = &Error{Type: ErrorTypeOpen}
	// ErrTimeout matches calls whose context ended before they returned.
	ErrTimeout = &Error{Type: ErrorTypeTimeout, Cause: context.DeadlineExceeded}
)

func (e *Error) Error() string {
	var reason string
	switch e.Type {
	case ErrorTypeOpen:
		reason = "circuit open"
	case ErrorTypeTimeout:
		reason = "call timed out"
	default:
		reason = "call panicked"
	}
	if e.Breaker != "" {
		reason = fmt.Sprintf("breaker %s: %s", e.Breaker, reason)
	}
	if e.Cause != nil {
		return reason + ": " + e.Cause.Error()
	}
	return reason
}

// Is reports whether target is a breaker error of the same type.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	return ok && other.Type == e.Type
}

func (e *Error) Unwrap() error { return e.Cause }
