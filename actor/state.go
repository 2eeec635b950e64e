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
	"fmt"
	"strings"
)

// State is the lifecycle state of an actor.
type State int32

const (
	// Created is the state of an actor that has been constructed but not started.
	Created State = iota
	// Starting is the state while the pre-start hook runs.
	Starting
	// Running actors receive messages.
	Running
	// Blocked actors keep accepting messages into their mailbox without processing them.
	Blocked
	// Restarting is the state while the restart hooks run.
	Restarting
	// Stopping is the state while the post-stop hook runs.
	Stopping
	// Stopped is terminal.
	Stopped
	// Failed is reached when a start or restart hook fails.
	Failed
)

var stateNames = [...]string{
	Created:    "CREATED",
	Starting:   "STARTING",
	Running:    "RUNNING",
	Blocked:    "BLOCKED",
	Restarting: "RESTARTING",
	Stopping:   "STOPPING",
	Stopped:    "STOPPED",
	Failed:     "FAILED",
}

// transitions lists, per state, the states it may move to.
var transitions = map[State][]State{
	Created:    {Starting, Stopping, Failed},
	Starting:   {Running, Stopping, Failed},
	Running:    {Blocked, Restarting, Stopping},
	Blocked:    {Running, Stopping},
	Restarting: {Running, Stopping, Failed},
	Stopping:   {Stopped},
	Stopped:    {},
	Failed:     {Stopping},
}

// String returns the upper case name of the state.
func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int32(s))
	}
	return stateNames[s]
}

// CanTransitionTo reports whether the lifecycle allows moving from s to next.
func (s State) CanTransitionTo(next State) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition exists.
func (s State) IsTerminal() bool {
	return len(transitions[s]) == 0
}

// IsLive reports whether the actor holds a usable instance.
func (s State) IsLive() bool {
	switch s {
	case Starting, Running, Blocked, Restarting:
		return true
	default:
		return false
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *State) UnmarshalText(text []byte) error {
	parsed, ok := ParseState(string(text))
	if !ok {
		return fmt.Errorf("unknown actor state %q", string(text))
	}
	*s = parsed
	return nil
}

// ParseState parses a state name, ignoring case.
func ParseState(name string) (State, bool) {
	name = strings.ToUpper(strings.TrimSpace(name))
	for i, n := range stateNames {
		if n == name {
			return State(i), true
		}
	}
	return Created, false
}
