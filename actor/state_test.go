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
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateTransitions(t *testing.T) {
	assert.True(t, Created.CanTransitionTo(Starting))
	assert.True(t, Starting.CanTransitionTo(Running))
	assert.True(t, Starting.CanTransitionTo(Failed))
	assert.True(t, Running.CanTransitionTo(Blocked))
	assert.True(t, Blocked.CanTransitionTo(Running))
	assert.True(t, Running.CanTransitionTo(Restarting))
	assert.True(t, Restarting.CanTransitionTo(Running))
	assert.True(t, Restarting.CanTransitionTo(Failed))
	assert.True(t, Failed.CanTransitionTo(Stopping))
	assert.True(t, Stopping.CanTransitionTo(Stopped))

	assert.False(t, Blocked.CanTransitionTo(Restarting))
	assert.False(t, Created.CanTransitionTo(Running))
	assert.False(t, Stopped.CanTransitionTo(Running))
	assert.False(t, Failed.CanTransitionTo(Running))
	assert.True(t, Stopped.IsTerminal())
	assert.False(t, Failed.IsTerminal())
}

func TestStateText(t *testing.T) {
	for state := Created; state <= Failed; state++ {
		parsed, ok := ParseState(state.String())
		require.True(t, ok)
		assert.Equal(t, state, parsed)
	}
	parsed, ok := ParseState(" running ")
	require.True(t, ok)
	assert.Equal(t, Running, parsed)
	_, ok = ParseState("SLEEPING")
	assert.False(t, ok)
	assert.Equal(t, "State(42)", State(42).String())

	bytea, err := json.Marshal(map[string]State{"state": Blocked})
	require.NoError(t, err)
	assert.JSONEq(t, `{"state":"BLOCKED"}`, string(bytea))

	var out struct {
		State State `json:"state"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"state":"FAILED"}`), &out))
	assert.Equal(t, Failed, out.State)
	assert.Error(t, json.Unmarshal([]byte(`{"state":"NOPE"}`), &out))
}
