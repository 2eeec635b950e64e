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

package supervisor

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gerrors "github.com/actorgrid/actorgrid/errors"
)

type valueError struct{}

func (valueError) Error() string { return "value error" }

func TestSupervisorDefaults(t *testing.T) {
	s := NewSupervisor()
	require.EqualValues(t, DefaultMaxRetries, s.MaxRetries())
	require.Equal(t, DefaultWindow, s.Window())
	require.Equal(t, RestartDirective, s.Decide("a1", errors.New("boom"), "msg"))
}

func TestSupervisorWithDirective(t *testing.T) {
	s := NewSupervisor(
		WithDirective(&gerrors.InternalError{}, ResumeDirective),
		WithDirective(valueError{}, EscalateDirective))

	directive, ok := s.Directive(&gerrors.InternalError{})
	require.True(t, ok)
	require.Exactly(t, ResumeDirective, directive)

	require.Equal(t, ResumeDirective, s.Decide("a1", gerrors.NewInternalError(errors.New("x")), nil))
	require.Equal(t, EscalateDirective, s.Decide("a1", valueError{}, nil))
	require.Equal(t, RestartDirective, s.Decide("a1", errors.New("other"), nil))
}

func TestSupervisorWithAnyError(t *testing.T) {
	s := NewSupervisor(
		WithDirective(valueError{}, EscalateDirective),
		WithAnyErrorDirective(ResumeDirective))

	_, ok := s.Directive(valueError{})
	require.False(t, ok, "any error rule overrides specific rules")
	require.Equal(t, ResumeDirective, s.Decide("a1", valueError{}, nil))
}

func TestSupervisorWithDecider(t *testing.T) {
	s := NewSupervisor(WithDecider(func(_ error, message any) (Directive, bool) {
		if message == "poison" {
			return StopDirective, true
		}
		return 0, false
	}))
	require.Equal(t, StopDirective, s.Decide("a1", errors.New("x"), "poison"))
	require.Equal(t, RestartDirective, s.Decide("a1", errors.New("x"), "fine"))
}

func TestSupervisorRetryWindow(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	clock := func() time.Time { return now }

	s := NewSupervisor(WithRetry(3, time.Minute), WithClock(clock))
	for range 3 {
		require.Equal(t, RestartDirective, s.Decide("a1", errors.New("boom"), nil))
	}
	require.Equal(t, 3, s.Failures("a1"))

	// fourth failure within the window forces the fallback
	require.Equal(t, StopDirective, s.Decide("a1", errors.New("boom"), nil))
	require.Zero(t, s.Failures("a1"))

	// other actors have their own budget
	require.Equal(t, RestartDirective, s.Decide("a2", errors.New("boom"), nil))

	// failures outside the window are forgotten
	for range 3 {
		require.Equal(t, RestartDirective, s.Decide("a3", errors.New("boom"), nil))
	}
	now = now.Add(2 * time.Minute)
	require.Equal(t, RestartDirective, s.Decide("a3", errors.New("boom"), nil))
	require.Equal(t, 1, s.Failures("a3"))

	s.Forget("a3")
	require.Zero(t, s.Failures("a3"))
}

func TestSupervisorFallbackOverridesResume(t *testing.T) {
	s := NewSupervisor(
		WithAnyErrorDirective(ResumeDirective),
		WithRetry(1, time.Minute),
		WithFallbackDirective(EscalateDirective))

	require.Equal(t, ResumeDirective, s.Decide("a1", errors.New("x"), nil))
	require.Equal(t, EscalateDirective, s.Decide("a1", errors.New("x"), nil))
}

func TestSupervisorUnbounded(t *testing.T) {
	s := NewSupervisor(WithRetry(0, time.Minute), WithDefaultDirective(ResumeDirective))
	for range 50 {
		require.Equal(t, ResumeDirective, s.Decide("a1", errors.New("x"), nil))
	}
}

func TestDirectiveString(t *testing.T) {
	assert.Equal(t, "Stop", StopDirective.String())
	assert.Equal(t, "Resume", ResumeDirective.String())
	assert.Equal(t, "Restart", RestartDirective.String())
	assert.Equal(t, "Escalate", EscalateDirective.String())
	assert.Equal(t, "", Directive(-1).String())
}
