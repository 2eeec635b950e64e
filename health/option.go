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

package health

import (
	"time"

	"github.com/actorgrid/actorgrid/eventstream"
	"github.com/actorgrid/actorgrid/internal/metric"
	"github.com/actorgrid/actorgrid/log"
)

const (
	// DefaultInterval is the time between two monitoring cycles.
	DefaultInterval = 10 * time.Second
	// DefaultProbeTimeout bounds a single probe and a single actor list fetch.
	DefaultProbeTimeout = 5 * time.Second
	// DefaultHeartbeatTimeout is the heartbeat age after which a service is reported stale.
	DefaultHeartbeatTimeout = 30 * time.Second
	// DefaultMaxConcurrentProbes caps the probes running at once in a cycle.
	DefaultMaxConcurrentProbes = 16
)

// Option configures the Monitor.
type Option interface {
	// Apply sets the Option value of a config.
	Apply(monitor *Monitor)
}

var _ Option = OptionFunc(nil)

// OptionFunc implements the Option interface.
type OptionFunc func(monitor *Monitor)

// Apply applies the option
func (f OptionFunc) Apply(monitor *Monitor) {
	f(monitor)
}

// WithInterval sets the time between two cycles.
func WithInterval(interval time.Duration) Option {
	return OptionFunc(func(m *Monitor) {
		m.interval = interval
	})
}

// WithProbeTimeout sets the probe timeout.
func WithProbeTimeout(timeout time.Duration) Option {
	return OptionFunc(func(m *Monitor) {
		m.probeTimeout = timeout
	})
}

// WithHeartbeatTimeout sets the heartbeat staleness threshold.
func WithHeartbeatTimeout(timeout time.Duration) Option {
	return OptionFunc(func(m *Monitor) {
		m.heartbeatTimeout = timeout
	})
}

// WithMaxConcurrentProbes caps the number of probes running at once.
func WithMaxConcurrentProbes(limit int) Option {
	return OptionFunc(func(m *Monitor) {
		m.maxConcurrency = limit
	})
}

// WithLogger sets the logger.
func WithLogger(logger log.Logger) Option {
	return OptionFunc(func(m *Monitor) {
		if logger != nil {
			m.logger = logger
		}
	})
}

// WithEventStream sets the stream ServiceDown and ServiceRecovered are published to.
func WithEventStream(events eventstream.Stream) Option {
	return OptionFunc(func(m *Monitor) {
		m.events = events
	})
}

// WithMetricProvider sets the metric provider.
func WithMetricProvider(provider *metric.Provider) Option {
	return OptionFunc(func(m *Monitor) {
		m.metricProvider = provider
	})
}

// WithBlindRestoreFallback controls what happens on recovery when the actor
// list cannot be fetched. When enabled, the default, every STOPPED actor of
// the service is restored to RUNNING without reconciliation; actors lost by a
// service restart then show as RUNNING until the next down/up cycle. When
// disabled, the service stays down and recovery is retried on the next cycle.
func WithBlindRestoreFallback(enabled bool) Option {
	return OptionFunc(func(m *Monitor) {
		m.blindRestore = enabled
	})
}

// WithClock overrides time.Now.
func WithClock(clock func() time.Time) Option {
	return OptionFunc(func(m *Monitor) {
		if clock != nil {
			m.clock = clock
		}
	})
}
