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

package controlplane

import (
	"net/http"

	"github.com/actorgrid/actorgrid/breaker"
	"github.com/actorgrid/actorgrid/eventstream"
	"github.com/actorgrid/actorgrid/health"
	"github.com/actorgrid/actorgrid/log"
	"github.com/actorgrid/actorgrid/registry"
)

// Option is the interface that applies a configuration option.
type Option interface {
	// Apply sets the Option value of a config.
	Apply(cp *ControlPlane)
}

var _ Option = OptionFunc(nil)

// OptionFunc implements the Option interface.
type OptionFunc func(cp *ControlPlane)

// Apply applies the ControlPlane's option
func (f OptionFunc) Apply(cp *ControlPlane) {
	f(cp)
}

// WithLogger sets the logger
func WithLogger(logger log.Logger) Option {
	return OptionFunc(func(cp *ControlPlane) {
		if logger != nil {
			cp.logger = logger
		}
	})
}

// WithListenAddr serves the /api/v1 surface on addr when the control plane starts.
func WithListenAddr(addr string) Option {
	return OptionFunc(func(cp *ControlPlane) {
		cp.listenAddr = addr
	})
}

// WithStore persists both registries in store. The control plane closes it on Stop.
func WithStore(store registry.Store) Option {
	return OptionFunc(func(cp *ControlPlane) {
		cp.store = store
	})
}

// WithHTTPClient sets the client used toward the runtimes
func WithHTTPClient(client *http.Client) Option {
	return OptionFunc(func(cp *ControlPlane) {
		cp.httpClient = client
	})
}

// WithHealthPath sets the runtime path probed by the health monitor
func WithHealthPath(path string) Option {
	return OptionFunc(func(cp *ControlPlane) {
		cp.healthPath = path
	})
}

// WithBreakerOptions configures the breaker protecting each runtime.
func WithBreakerOptions(opts ...breaker.Option) Option {
	return OptionFunc(func(cp *ControlPlane) {
		cp.breakerOpts = append(cp.breakerOpts, opts...)
	})
}

// WithMonitorOptions configures the health monitor.
func WithMonitorOptions(opts ...health.Option) Option {
	return OptionFunc(func(cp *ControlPlane) {
		cp.monitorOpts = append(cp.monitorOpts, opts...)
	})
}

// WithEventStream sets the stream receiving ServiceDown and ServiceRecovered events.
func WithEventStream(events eventstream.Stream) Option {
	return OptionFunc(func(cp *ControlPlane) {
		cp.events = events
	})
}
