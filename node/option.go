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

package node

import (
	"net/http"
	"time"

	"github.com/actorgrid/actorgrid/eventstream"
	"github.com/actorgrid/actorgrid/log"
	"github.com/actorgrid/actorgrid/transport"
)

const (
	// DefaultHeartbeatInterval is the period of heartbeats toward the control plane.
	DefaultHeartbeatInterval = 10 * time.Second
	// DefaultRequestTimeout bounds one call to the control plane.
	DefaultRequestTimeout = 5 * time.Second
	// DefaultAskTimeout is used by PathAsk when the request carries no timeout.
	DefaultAskTimeout = 5 * time.Second
	// StateReportBuffer is the lifecycle event backlog kept for state reports,
	// sized for spawn bursts while reports wait on the control plane.
	StateReportBuffer = 16 * eventstream.DefaultBufferSize
)

// Option is the interface that applies a configuration option.
type Option interface {
	// Apply sets the Option value of a config.
	Apply(node *Node)
}

var _ Option = OptionFunc(nil)

// OptionFunc implements the Option interface.
type OptionFunc func(node *Node)

// Apply applies the Node's option
func (f OptionFunc) Apply(node *Node) {
	f(node)
}

// WithLogger sets the logger
func WithLogger(logger log.Logger) Option {
	return OptionFunc(func(node *Node) {
		if logger != nil {
			node.logger = logger
		}
	})
}

// WithListenAddr serves the runtime surface on addr when the node starts.
// Without it the caller mounts Handler on its own server.
func WithListenAddr(addr string) Option {
	return OptionFunc(func(node *Node) {
		node.listenAddr = addr
	})
}

// WithControlPlane enables self registration, heartbeats and state reports
// toward the control plane at url.
func WithControlPlane(url string) Option {
	return OptionFunc(func(node *Node) {
		node.controlPlaneURL = url
	})
}

// WithHeartbeatInterval sets the heartbeat period
func WithHeartbeatInterval(interval time.Duration) Option {
	return OptionFunc(func(node *Node) {
		node.heartbeatInterval = interval
	})
}

// WithHTTPClient sets the client used toward the control plane
func WithHTTPClient(client *http.Client) Option {
	return OptionFunc(func(node *Node) {
		if client != nil {
			node.client = client
		}
	})
}

// WithMessenger starts and stops the given broker messenger with the node.
func WithMessenger(messenger *transport.Messenger) Option {
	return OptionFunc(func(node *Node) {
		node.messenger = messenger
	})
}

// WithRegistrationRetry sets how many times the initial registration is attempted.
func WithRegistrationRetry(attempts int, initialDelay, maxDelay time.Duration) Option {
	return OptionFunc(func(node *Node) {
		node.registerAttempts = attempts
		node.registerInitialDelay = initialDelay
		node.registerMaxDelay = maxDelay
	})
}

// WithoutStateReports disables the forwarding of actor state changes.
func WithoutStateReports() Option {
	return OptionFunc(func(node *Node) {
		node.reportStates = false
	})
}
