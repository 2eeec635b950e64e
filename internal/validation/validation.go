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

// Package validation provides composable input validators.
package validation

import (
	"errors"

	"go.uber.org/multierr"
)

// Validator checks a single input.
type Validator interface {
	Validate() error
}

// Func adapts a function to Validator.
type Func func() error

func (f Func) Validate() error { return f() }

// NewBooleanValidator fails with message when ok is false.
func NewBooleanValidator(ok bool, message string) Validator {
	return Func(func() error {
		if ok {
			return nil
		}
		return errors.New(message)
	})
}

// Chain runs validators in order. Unless FailFast is set, it reports every
// violation merged in one error.
type Chain struct {
	failFast   bool
	validators []Validator
}

// ChainOption configures a Chain.
type ChainOption func(*Chain)

func FailFast() ChainOption { return func(c *Chain) { c.failFast = true } }

func AllErrors() ChainOption { return func(c *Chain) { c.failFast = false } }

func New(opts ...ChainOption) *Chain {
	c := new(Chain)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Chain) AddValidator(v Validator) *Chain {
	c.validators = append(c.validators, v)
	return c
}

// AddAssertion adds a condition that must hold, failing with message otherwise.
func (c *Chain) AddAssertion(isTrue bool, message string) *Chain {
	return c.AddValidator(NewBooleanValidator(isTrue, message))
}

// Validate runs the chain. It can be called more than once.
func (c *Chain) Validate() (err error) {
	for _, v := range c.validators {
		violation := v.Validate()
		if violation == nil {
			continue
		}
		if c.failFast {
			return violation
		}
		err = multierr.Append(err, violation)
	}
	return err
}
