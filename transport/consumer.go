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

package transport

import (
	"context"
	"errors"
	"time"

	"github.com/flowchartsman/retry"
	"go.uber.org/atomic"

	"github.com/actorgrid/actorgrid/log"
)

// permanentError marks a failure that redelivery cannot fix.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps err so that the RETRY strategy skips redelivery.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

func isPermanent(err error) bool {
	var target *permanentError
	return errors.As(err, &target)
}

// consumer applies the ErrorStrategy of a message when its handler fails.
type consumer struct {
	broker            Broker
	logger            log.Logger
	defaultMaxRetries int
	initialDelay      time.Duration
	maxDelay          time.Duration
	deadLettered      *atomic.Uint64
	ignored           *atomic.Uint64
}

func newConsumer(broker Broker, logger log.Logger, maxRetries int, initialDelay, maxDelay time.Duration) *consumer {
	return &consumer{
		broker:            broker,
		logger:            logger,
		defaultMaxRetries: maxRetries,
		initialDelay:      initialDelay,
		maxDelay:          maxDelay,
		deadLettered:      atomic.NewUint64(0),
		ignored:           atomic.NewUint64(0),
	}
}

func (c *consumer) wrap(handler Handler) Handler {
	return func(ctx context.Context, msg *BrokerMessage) error {
		err := handler(ctx, msg)
		if err == nil {
			return nil
		}
		return c.onFailure(ctx, msg, handler, err)
	}
}

func (c *consumer) onFailure(ctx context.Context, msg *BrokerMessage, handler Handler, cause error) error {
	if msg.ErrorStrategy == Ignore {
		c.ignored.Inc()
		c.logger.Warnf("ignoring failed message %s (%s): %v", msg.MessageID, msg.MessageType, cause)
		return nil
	}
	if msg.ErrorStrategy == DLQ || isPermanent(cause) {
		return c.deadLetter(ctx, msg, cause)
	}

	maxRetries := msg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = c.defaultMaxRetries
	}

	last := cause
	retrier := retry.NewRetrier(maxRetries, c.initialDelay, c.maxDelay)
	err := retrier.RunContext(ctx, func(ctx context.Context) error {
		msg.RetryCount++
		last = handler(ctx, msg)
		if last != nil && isPermanent(last) {
			return retry.Stop(last)
		}
		return last
	})
	if err == nil {
		return nil
	}
	c.logger.Warnf("message %s failed after %d retries: %v", msg.MessageID, msg.RetryCount, last)
	return c.deadLetter(ctx, msg, last)
}

func (c *consumer) deadLetter(ctx context.Context, msg *BrokerMessage, cause error) error {
	dead := msg.Clone()
	dead.SetHeader(HeaderError, cause.Error())
	topic := DeadLetterTopic(msg.Destination)
	if err := c.broker.Publish(ctx, topic, dead); err != nil {
		return errors.Join(cause, err)
	}
	c.deadLettered.Inc()
	c.logger.Warnf("message %s moved to %s: %v", msg.MessageID, topic, cause)
	return nil
}
