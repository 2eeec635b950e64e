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

// Actor is the unit of sequential computation hosted by a System.
//
// Lifecycle hooks return an error instead of panicking: a non nil error
// from PreStart moves the actor to FAILED. Receive reports failures through
// ReceiveContext.Err; the system's supervisor then decides what happens.
// Panics in any hook are recovered and treated as errors.
type Actor interface {
	// PreStart runs once before the first message is delivered.
	PreStart(ctx *Context) error
	// Receive handles one message. It is never called concurrently.
	Receive(ctx *ReceiveContext)
	// PostStop runs once when the actor stops. Its error is logged only.
	PostStop(ctx *Context) error
}

// Restartable is optionally implemented by actors that need custom restart hooks.
//
// Without it, a restart calls PostStop on the old instance and PreStart
// on the new one.
type Restartable interface {
	// PreRestart runs on the instance being replaced.
	PreRestart(ctx *Context, cause error) error
	// PostRestart runs on the fresh instance.
	PostRestart(ctx *Context, cause error) error
}

// Factory builds an actor instance from spawn parameters.
// It is called on spawn and again on every restart.
type Factory func(params map[string]any) (Actor, error)
