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
	"errors"

	"github.com/actorgrid/actorgrid/actor"
)

// WorkerType is the built in echo and counter actor.
const WorkerType = "Worker"

// errWorkerFailure is returned by a Worker told "fail".
var errWorkerFailure = errors.New("worker asked to fail")

// WorkerReply answers an ask sent to a Worker.
type WorkerReply struct {
	ActorID string `json:"actorId"`
	Count   int    `json:"count"`
	Echo    any    `json:"echo"`
}

// RegisterBuiltins registers the actor types every runtime hosts.
func RegisterBuiltins(system *actor.System) {
	system.Register(WorkerType, actor.FuncFactory(newWorker))
}

// newWorker counts the messages it handles and echoes them back on ask.
// The "fail" message makes it fail so that supervision can be exercised.
// A restart builds a fresh closure, which resets the count.
func newWorker(map[string]any) (func(*actor.ReceiveContext, any) error, []actor.FuncOption, error) {
	count := 0
	receive := func(ctx *actor.ReceiveContext, msg any) error {
		if text, ok := msg.(string); ok && text == "fail" {
			return errWorkerFailure
		}
		count++
		reply := WorkerReply{ActorID: ctx.Self().ID(), Count: count, Echo: msg}
		if !ctx.Reply(reply) {
			ctx.Logger().Debugf("worker %s handled message #%d", ctx.Self().ID(), count)
		}
		return nil
	}
	return receive, nil, nil
}
