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

// PanicError carries a value recovered from a panic.
type PanicError struct {
	cause error
}

func NewPanicError(cause error) *PanicError { return &PanicError{cause: cause} }

func (e *PanicError) Error() string { return "panic: " + e.cause.Error() }

func (e *PanicError) Unwrap() error { return e.cause }

// InternalError marks a failure of the runtime itself rather than of user code.
type InternalError struct {
	cause error
}

func NewInternalError(cause error) *InternalError { return &InternalError{cause: cause} }

func (e *InternalError) Error() string {
	if e.cause == nil {
		return "internal error"
	}
	return "internal error: " + e.cause.Error()
}

func (e *InternalError) Unwrap() error { return e.cause }

// AnyError is the type supervisors key their catch-all directive on.
type AnyError struct{}

func (*AnyError) Error() string { return "*" }
