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
	"time"

	"github.com/actorgrid/actorgrid/eventstream"
	"github.com/actorgrid/actorgrid/internal/metric"
	"github.com/actorgrid/actorgrid/log"
	"github.com/actorgrid/actorgrid/supervisor"
)

const (
	// DefaultInitMaxRetries is the number of PreStart attempts.
	DefaultInitMaxRetries = 1
	// DefaultInitTimeout bounds the PreStart attempts.
	DefaultInitTimeout = time.Second
)

// Option is the interface that applies a System option.
type Option interface {
	// Apply sets the Option value of a config.
	Apply(system *System)
}

var _ Option = OptionFunc(nil)

// OptionFunc implements the Option interface.
type OptionFunc func(*System)

// Apply applies the option
func (f OptionFunc) Apply(s *System) {
	f(s)
}

// WithLogger sets the system logger.
func WithLogger(logger log.Logger) Option {
	return OptionFunc(func(s *System) {
		if logger != nil {
			s.logger = logger
		}
	})
}

// WithWorkers sets the size of the dispatcher worker pool.
func WithWorkers(workers int) Option {
	return OptionFunc(func(s *System) {
		s.workers = workers
	})
}

// WithThroughput sets the number of messages an actor processes per burst.
func WithThroughput(throughput int) Option {
	return OptionFunc(func(s *System) {
		s.throughput = throughput
	})
}

// WithDefaultMailbox sets the mailbox used by actors spawned without
// their own. A capacity of zero means unbounded.
func WithDefaultMailbox(capacity int, strategy DropStrategy) Option {
	return OptionFunc(func(s *System) {
		s.mailboxCapacity = capacity
		s.dropStrategy = strategy
	})
}

// WithDefaultSupervisor sets the supervisor shared by actors spawned without their own.
func WithDefaultSupervisor(sup *supervisor.Supervisor) Option {
	return OptionFunc(func(s *System) {
		if sup != nil {
			s.supervisor = sup
		}
	})
}

// WithEventStream shares an event stream with the system.
// The system does not close a stream it did not create.
func WithEventStream(stream eventstream.Stream) Option {
	return OptionFunc(func(s *System) {
		if stream != nil {
			s.events = stream
			s.ownsEvents = false
		}
	})
}

// WithRemoting injects the component relaying messages to other services.
func WithRemoting(remoting Remoting) Option {
	return OptionFunc(func(s *System) {
		s.remoting = remoting
	})
}

// WithInitMaxRetries sets how many times PreStart is attempted.
func WithInitMaxRetries(retries int) Option {
	return OptionFunc(func(s *System) {
		s.initMaxRetries = retries
	})
}

// WithInitTimeout bounds the total time spent in PreStart attempts.
func WithInitTimeout(timeout time.Duration) Option {
	return OptionFunc(func(s *System) {
		s.initTimeout = timeout
	})
}

// WithMetricProvider records system metrics with the given provider.
func WithMetricProvider(provider *metric.Provider) Option {
	return OptionFunc(func(s *System) {
		s.metricProvider = provider
	})
}

// SpawnOption configures a single spawn.
type SpawnOption func(*spawnConfig)

type spawnConfig struct {
	id              string
	mailbox         Mailbox
	mailboxCapacity *int
	dropStrategy    DropStrategy
	supervisor      *supervisor.Supervisor
}

// WithID uses the given id instead of a generated one.
func WithID(id string) SpawnOption {
	return func(c *spawnConfig) {
		c.id = id
	}
}

// WithMailbox gives the actor its own mailbox settings.
// A capacity of zero means unbounded.
func WithMailbox(capacity int, strategy DropStrategy) SpawnOption {
	return func(c *spawnConfig) {
		c.mailboxCapacity = &capacity
		c.dropStrategy = strategy
	}
}

// WithCustomMailbox gives the actor a caller built mailbox.
func WithCustomMailbox(mailbox Mailbox) SpawnOption {
	return func(c *spawnConfig) {
		c.mailbox = mailbox
	}
}

// WithSupervisor gives the actor its own supervisor.
func WithSupervisor(sup *supervisor.Supervisor) SpawnOption {
	return func(c *spawnConfig) {
		c.supervisor = sup
	}
}
