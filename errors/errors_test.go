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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type state string

func (s state) String() string { return string(s) }

func TestErrors(t *testing.T) {
	err := errors.New("something went wrong")
	internalErr := NewInternalError(err)
	require.Error(t, internalErr)
	require.EqualError(t, internalErr, "internal error: something went wrong")
	assert.ErrorIs(t, internalErr.Unwrap(), err)

	panicErr := NewPanicError(err)
	require.EqualError(t, panicErr, "panic: something went wrong")
	assert.ErrorIs(t, panicErr, err)

	anyError := &AnyError{}
	require.Equal(t, anyError.Error(), "*")
}

func TestWrappers(t *testing.T) {
	t.Run("actor not found", func(t *testing.T) {
		err := NewErrActorNotFound("a1")
		require.ErrorIs(t, err, ErrActorNotFound)
		require.EqualError(t, err, "(actor=a1) actor not found")
	})
	t.Run("invalid state", func(t *testing.T) {
		err := NewErrInvalidState("a1", state("STOPPED"))
		require.ErrorIs(t, err, ErrInvalidState)
		require.EqualError(t, err, "(actor=a1, state=STOPPED) invalid actor state")
	})
	t.Run("unsupported type", func(t *testing.T) {
		err := NewErrUnsupportedActorType("Ghost")
		require.ErrorIs(t, err, ErrUnsupportedActorType)
		require.NotErrorIs(t, err, ErrActorNotFound)
	})
	t.Run("joined errors keep the cause", func(t *testing.T) {
		cause := errors.New("boom")
		err := NewErrInitFailure(cause)
		require.ErrorIs(t, err, ErrInitFailure)
		require.ErrorIs(t, err, cause)

		err = NewErrRemoteCall(cause)
		require.ErrorIs(t, err, ErrRemoteCall)
		require.ErrorIs(t, err, cause)
	})
	t.Run("timeout is distinguishable from not found", func(t *testing.T) {
		require.NotErrorIs(t, ErrRequestTimeout, ErrActorNotFound)
	})
}
