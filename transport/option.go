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
	"time"

	"github.com/actorgrid/actorgrid/log"
)

const (
	// DefaultMaxRetries is the number of redeliveries of a RETRY message.
	DefaultMaxRetries = 3
	// DefaultRetryInitialDelay is the first redelivery backoff.
	DefaultRetryInitialDelay = 100 * time.Millisecond
	// DefaultRetryMaxDelay caps the redelivery backoff.
	DefaultRetryMaxDelay = 2 * time.Second
	// DefaultAskTimeout bounds an inbound ask when the caller sent no timeout.
	DefaultAskTimeout = 5 * time.Second
)

// Option configures the Messenger.
type Option interface {
	// Apply sets the Option value of a config.
	Apply(messenger *Messenger)
}

var _ Option = OptionFunc(nil)

// OptionFunc implements the Option interface.
type OptionFunc func(messenger *Messenger)

// Apply applies the option
func (f OptionFunc) Apply(m *Messenger) {
	f(m)
}

// WithLogger sets the logger.
func WithLogger(logger log.Logger) Option {
	return OptionFunc(func(m *Messenger) {
		if logger != nil {
			m.logger = logger
		}
	})
}

// WithSerializer sets the payload serializer. The default is a CBORSerializer.
func WithSerializer(serializer Serializer) Option {
	return OptionFunc(func(m *Messenger) {
		if serializer != nil {
			m.serializer = serializer
		}
	})
}

// WithCompression sets the compression applied to outgoing payloads.
func WithCompression(compression Compression) Option {
	return OptionFunc(func(m *Messenger) {
		m.compression = compression
	})
}

// WithTellStrategy sets the ErrorStrategy stamped on outgoing tells.
func WithTellStrategy(strategy ErrorStrategy) Option {
	return OptionFunc(func(m *Messenger) {
		m.tellStrategy = strategy
	})
}

// WithRetry sets the redelivery budget and backoff of RETRY messages.
func WithRetry(maxRetries int, initialDelay, maxDelay time.Duration) Option {
	return OptionFunc(func(m *Messenger) {
		m.maxRetries = maxRetries
		m.retryInitialDelay = initialDelay
		m.retryMaxDelay = maxDelay
	})
}
