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
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/flowchartsman/retry"
	"go.uber.org/atomic"
	"go.uber.org/multierr"

	"github.com/actorgrid/actorgrid/actor"
	gerrors "github.com/actorgrid/actorgrid/errors"
	"github.com/actorgrid/actorgrid/eventstream"
	ihttp "github.com/actorgrid/actorgrid/internal/http"
	"github.com/actorgrid/actorgrid/internal/ticker"
	"github.com/actorgrid/actorgrid/internal/validation"
	"github.com/actorgrid/actorgrid/log"
	"github.com/actorgrid/actorgrid/transport"
)

// Node is the runtime of one microservice: an actor system exposed over the
// /runtime surface, registered with the control plane and kept alive by
// heartbeats.
type Node struct {
	serviceID  string
	serviceURL string
	system     *actor.System
	messenger  *transport.Messenger

	listenAddr           string
	controlPlaneURL      string
	heartbeatInterval    time.Duration
	registerAttempts     int
	registerInitialDelay time.Duration
	registerMaxDelay     time.Duration
	reportStates         bool
	client               *http.Client
	logger               log.Logger

	mu           sync.Mutex
	server       *ihttp.Server
	controlPlane *controlPlaneClient
	heartbeats   *ticker.Ticker
	subscriber   eventstream.Subscriber
	reports      sync.WaitGroup
	registered   *atomic.Bool
	started      *atomic.Bool
	startedAt    time.Time
}

// New creates a Node hosting system for serviceID, reachable at serviceURL.
func New(serviceID, serviceURL string, system *actor.System, opts ...Option) (*Node, error) {
	n := &Node{
		serviceID:            serviceID,
		serviceURL:           serviceURL,
		system:               system,
		heartbeatInterval:    DefaultHeartbeatInterval,
		registerAttempts:     5,
		registerInitialDelay: 100 * time.Millisecond,
		registerMaxDelay:     2 * time.Second,
		reportStates:         true,
		client:               ihttp.NewClient(DefaultRequestTimeout),
		logger:               log.DefaultLogger,
		registered:           atomic.NewBool(false),
		started:              atomic.NewBool(false),
	}
	for _, opt := range opts {
		opt.Apply(n)
	}

	chain := validation.New(validation.AllErrors()).
		AddValidator(validation.NewIDValidator("serviceId", serviceID)).
		AddAssertion(system != nil, "actor system is required").
		AddAssertion(n.heartbeatInterval > 0, "heartbeat interval must be positive").
		AddAssertion(n.registerAttempts > 0, "registration attempts must be positive")
	if n.controlPlaneURL != "" {
		chain.AddValidator(validation.NewURLValidator(serviceURL)).
			AddValidator(validation.NewURLValidator(n.controlPlaneURL))
	}
	if err := chain.Validate(); err != nil {
		return nil, err
	}

	n.logger = n.logger.With(log.FieldService, serviceID)
	return n, nil
}

// ServiceID returns the id of the hosted service.
func (n *Node) ServiceID() string { return n.serviceID }

// System returns the hosted actor system.
func (n *Node) System() *actor.System { return n.system }

// Addr returns the address the runtime surface listens on, when served by the node.
func (n *Node) Addr() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.server == nil {
		return n.listenAddr
	}
	return n.server.Addr()
}

// Registered reports whether the control plane acknowledged the last registration.
func (n *Node) Registered() bool { return n.registered.Load() }

// Start starts the actor system, the messenger and the HTTP server, then
// registers with the control plane. An unreachable control plane is not
// fatal: the heartbeat loop keeps registering until it answers.
func (n *Node) Start(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.started.Load() {
		return nil
	}

	if err := n.system.Start(ctx); err != nil && !errors.Is(err, gerrors.ErrActorSystemAlreadyStarted) {
		return err
	}
	if n.messenger != nil {
		if err := n.messenger.Start(ctx, n.system); err != nil {
			return err
		}
	}
	if n.listenAddr != "" {
		server := ihttp.NewServer(n.listenAddr, n.Handler(), n.logger)
		if err := server.Start(ctx); err != nil {
			return multierr.Append(err, n.stopLocked(ctx))
		}
		n.server = server
	}
	n.startedAt = time.Now().UTC()
	n.started.Store(true)

	if n.controlPlaneURL != "" {
		n.controlPlane = newControlPlaneClient(n.controlPlaneURL, n.client)
		if n.reportStates {
			n.watchStates()
		}

		retrier := retry.NewRetrier(n.registerAttempts, n.registerInitialDelay, n.registerMaxDelay)
		if err := retrier.RunContext(ctx, n.register); err != nil {
			n.logger.Warnf("registration with %s failed, will retry on heartbeat: %v", n.controlPlaneURL, err)
		}
		n.heartbeats = ticker.New(n.heartbeatInterval, n.beat)
		n.heartbeats.Start()
	}

	n.logger.Infof("node %s started", n.serviceID)
	return nil
}

// Stop stops heartbeats and state reports, the HTTP server, the messenger
// and finally the actor system.
func (n *Node) Stop(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.started.Load() {
		return nil
	}
	n.started.Store(false)
	err := n.stopLocked(ctx)
	n.logger.Infof("node %s stopped", n.serviceID)
	return err
}

func (n *Node) stopLocked(ctx context.Context) error {
	var err error
	if n.heartbeats != nil {
		n.heartbeats.Stop()
		n.heartbeats = nil
	}
	if n.subscriber != nil {
		n.system.EventStream().RemoveSubscriber(n.subscriber)
		n.reports.Wait()
		n.subscriber = nil
	}
	if n.server != nil {
		err = multierr.Append(err, n.server.Shutdown(ctx))
		n.server = nil
	}
	if n.messenger != nil {
		err = multierr.Append(err, n.messenger.Stop(ctx))
	}
	if n.system.Running() {
		err = multierr.Append(err, n.system.Stop(ctx))
	}
	n.registered.Store(false)
	return err
}

func (n *Node) register(ctx context.Context) error {
	if err := n.controlPlane.register(ctx, n.serviceID, n.serviceURL); err != nil {
		// a refused registration will not succeed on retry
		if errors.Is(err, gerrors.ErrInvalidMessage) {
			return retry.Stop(err)
		}
		return err
	}
	n.registered.Store(true)
	n.logger.Infof("registered with control plane %s as %s", n.controlPlaneURL, n.serviceURL)
	return nil
}

// beat sends one heartbeat. A control plane that forgot the service answers
// 404 and the node registers again.
func (n *Node) beat(time.Time) {
	ctx, cancel := context.WithTimeout(context.Background(), DefaultRequestTimeout)
	defer cancel()

	if !n.registered.Load() {
		if err := n.register(ctx); err != nil {
			n.logger.Warnf("registration with %s failed: %v", n.controlPlaneURL, err)
		}
		return
	}

	err := n.controlPlane.heartbeat(ctx, n.serviceID)
	switch {
	case err == nil:
	case errors.Is(err, gerrors.ErrActorNotFound), errors.Is(err, gerrors.ErrServiceNotFound):
		n.registered.Store(false)
		n.logger.Warnf("control plane does not know service %s, registering again", n.serviceID)
		if err := n.register(ctx); err != nil {
			n.logger.Warnf("registration with %s failed: %v", n.controlPlaneURL, err)
		}
	default:
		n.logger.Warnf("heartbeat to %s failed: %v", n.controlPlaneURL, err)
	}
}

// watchStates forwards settled lifecycle states of local actors to the control plane.
func (n *Node) watchStates() {
	events := n.system.EventStream()
	n.subscriber = events.AddSubscriber(eventstream.WithSubscriberBuffer(StateReportBuffer))
	events.Subscribe(n.subscriber, actor.LifecycleTopic)

	messages := n.subscriber.Messages()
	n.reports.Add(1)
	go func() {
		defer n.reports.Done()
		var lost uint64
		for message := range messages {
			lost = n.checkLostReports(lost)
			event, ok := message.Payload().(actor.LifecycleEvent)
			if !ok {
				continue
			}
			switch event.To {
			case actor.Running, actor.Blocked, actor.Stopped, actor.Failed:
			default:
				continue
			}
			n.report(event)
		}
	}()
}

// checkLostReports warns when lifecycle events were dropped since the last
// check and returns the new total.
func (n *Node) checkLostReports(seen uint64) uint64 {
	dropped := n.subscriber.Dropped()
	if dropped > seen {
		n.logger.Warnf("%d actor lifecycle event(s) dropped, control plane state may be stale", dropped-seen)
	}
	return dropped
}

func (n *Node) report(event actor.LifecycleEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), DefaultRequestTimeout)
	defer cancel()
	report := StateReport{ServiceID: n.serviceID, State: event.To, Cause: event.Cause}
	err := n.controlPlane.reportState(ctx, event.ActorID, report)
	switch {
	case err == nil:
	case errors.Is(err, gerrors.ErrActorNotFound):
		// not tracked by the control plane, or not yet registered
	default:
		n.logger.Warnf("reporting state %s of actor %s failed: %v", event.To, event.ActorID, err)
	}
}
