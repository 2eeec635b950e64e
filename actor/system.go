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
	"context"
	"errors"
	"fmt"
	"runtime"
	"slices"
	"time"

	"github.com/flowchartsman/retry"
	"github.com/google/uuid"
	"go.uber.org/atomic"
	"go.uber.org/multierr"

	gerrors "github.com/actorgrid/actorgrid/errors"
	"github.com/actorgrid/actorgrid/eventstream"
	"github.com/actorgrid/actorgrid/future"
	"github.com/actorgrid/actorgrid/internal/metric"
	"github.com/actorgrid/actorgrid/internal/validation"
	"github.com/actorgrid/actorgrid/internal/workerpool"
	"github.com/actorgrid/actorgrid/internal/xsync"
	"github.com/actorgrid/actorgrid/log"
	"github.com/actorgrid/actorgrid/supervisor"
)

// System hosts actors: it owns the local registry, drives the lifecycle
// state machine and dispatches messages onto a shared worker pool.
//
// Lifecycle operations on an actor (Stop, Restart) wait for the message it is
// processing. An actor must therefore not call them on itself from Receive;
// ReceiveContext.Shutdown stops the actor once the current message is done.
type System struct {
	name string

	logger          log.Logger
	workers         int
	throughput      int
	mailboxCapacity int
	dropStrategy    DropStrategy
	supervisor      *supervisor.Supervisor
	events          eventstream.Stream
	ownsEvents      bool
	remoting        Remoting
	initMaxRetries  int
	initTimeout     time.Duration
	metricProvider  *metric.Provider

	metric      *metric.ActorSystemMetric
	pool        *workerpool.WorkerPool
	dispatcher  *dispatcher
	deadLetters *deadLetterOffice
	actors      *xsync.Map[string, *cell]
	factories   *xsync.Map[string, Factory]
	started     *atomic.Bool
	startedAt   *atomic.Time
}

// SystemStats is a snapshot of the actor system.
type SystemStats struct {
	Name        string        `json:"name"`
	Actors      int           `json:"actors"`
	DeadLetters uint64        `json:"deadLetters"`
	Workers     int           `json:"workers"`
	Pending     int64         `json:"pending"`
	Uptime      time.Duration `json:"uptime"`
}

// NewSystem creates an actor system. Call Start before spawning actors.
func NewSystem(name string, opts ...Option) (*System, error) {
	if err := validation.New(validation.FailFast()).
		AddAssertion(name != "", "actor system name is required").
		Validate(); err != nil {
		return nil, err
	}

	system := &System{
		name:           name,
		logger:         log.DefaultLogger,
		workers:        runtime.NumCPU() * 2,
		throughput:     DefaultThroughput,
		supervisor:     supervisor.NewSupervisor(),
		events:         eventstream.New(),
		ownsEvents:     true,
		initMaxRetries: DefaultInitMaxRetries,
		initTimeout:    DefaultInitTimeout,
		actors:         xsync.NewMap[string, *cell](),
		factories:      xsync.NewMap[string, Factory](),
		started:        atomic.NewBool(false),
		startedAt:      atomic.NewTime(time.Time{}),
	}

	for _, opt := range opts {
		opt.Apply(system)
	}

	if err := validation.New(validation.AllErrors()).
		AddAssertion(system.workers > 0, "workers must be positive").
		AddAssertion(system.throughput > 0, "throughput must be positive").
		AddAssertion(system.mailboxCapacity >= 0, "mailbox capacity cannot be negative").
		AddAssertion(system.initMaxRetries > 0, "init max retries must be positive").
		AddAssertion(system.initTimeout > 0, "init timeout must be positive").
		Validate(); err != nil {
		return nil, err
	}

	if system.metricProvider == nil {
		system.metricProvider = metric.New()
	}
	instruments, err := metric.NewActorSystemMetric(system.metricProvider.Meter(), name)
	if err != nil {
		return nil, err
	}
	system.metric = instruments

	system.logger = system.logger.With(log.FieldSystem, name)
	system.pool = workerpool.New(
		workerpool.WithWorkers(system.workers),
		workerpool.WithLogger(system.logger),
	)
	system.dispatcher = newDispatcher(system.pool, system.throughput, system.handle, system.logger)
	system.deadLetters = newDeadLetterOffice(system.events, system.logger, system.metric)
	return system, nil
}

// Name returns the system name.
func (s *System) Name() string { return s.name }

// Logger returns the system logger.
func (s *System) Logger() log.Logger { return s.logger }

// EventStream returns the stream receiving lifecycle events and dead letters.
func (s *System) EventStream() eventstream.Stream { return s.events }

// Running reports whether the system has started.
func (s *System) Running() bool { return s.started.Load() }

// Register binds an actor type to its factory. Registering twice replaces the factory.
func (s *System) Register(actorType string, factory Factory) {
	s.factories.Set(actorType, factory)
}

// Types returns the registered actor types, sorted.
func (s *System) Types() []string {
	types := s.factories.Keys()
	slices.Sort(types)
	return types
}

// Start starts the dispatcher.
func (s *System) Start(context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return gerrors.ErrActorSystemAlreadyStarted
	}
	s.pool.Start()
	s.startedAt.Store(time.Now().UTC())
	s.logger.Infof("actor system %s started with %d workers", s.name, s.workers)
	return nil
}

// Stop stops every actor and then the dispatcher.
// PostStop errors are aggregated in the returned error.
func (s *System) Stop(ctx context.Context) error {
	if !s.started.Load() {
		return gerrors.ErrActorSystemNotStarted
	}

	var err error
	for _, c := range s.actors.Values() {
		c.mu.Lock()
		err = multierr.Append(err, s.stopLocked(ctx, c))
		c.mu.Unlock()
	}

	s.started.Store(false)
	s.pool.Stop()
	if s.ownsEvents {
		s.events.Close()
	}
	s.logger.Infof("actor system %s stopped", s.name)
	return err
}

// Spawn creates an actor of a registered type and starts it.
//
// An unknown type or a factory error is returned to the caller. A failing
// PreStart is not: the actor is registered in the FAILED state and its
// reference is returned, so callers check Ref.State.
func (s *System) Spawn(ctx context.Context, actorType string, params map[string]any, opts ...SpawnOption) (*Ref, error) {
	if !s.started.Load() {
		return nil, gerrors.ErrActorSystemNotStarted
	}

	factory, ok := s.factories.Get(actorType)
	if !ok {
		return nil, gerrors.NewErrUnsupportedActorType(actorType)
	}

	config := &spawnConfig{dropStrategy: s.dropStrategy}
	for _, opt := range opts {
		opt(config)
	}
	if config.id == "" {
		config.id = uuid.NewString()
	}
	if err := validation.NewIDValidator("actorId", config.id).Validate(); err != nil {
		return nil, gerrors.NewErrInvalidActorParams(err)
	}
	if config.supervisor == nil {
		config.supervisor = s.supervisor
	}
	if params == nil {
		params = make(map[string]any)
	}

	if _, exists := s.actors.Get(config.id); exists {
		return nil, gerrors.NewErrActorAlreadyExists(config.id)
	}

	instance, err := s.build(factory, params)
	if err != nil {
		return nil, gerrors.NewErrInvalidActorParams(err)
	}

	mailbox := config.mailbox
	if mailbox == nil {
		capacity := s.mailboxCapacity
		if config.mailboxCapacity != nil {
			capacity = *config.mailboxCapacity
		}
		mailbox = NewMailbox(capacity, config.dropStrategy, s.deadLetters.sinkFor(config.id))
	}

	c := newCell(s, config.id, actorType, params, factory, instance, mailbox, config.supervisor)
	inserted := false
	s.actors.GetOrSet(c.id, func() *cell {
		inserted = true
		return c
	})
	if !inserted {
		mailbox.Dispose()
		return nil, gerrors.NewErrActorAlreadyExists(c.id)
	}
	s.metric.ActorAdded(ctx, actorType)

	c.mu.Lock()
	s.moveTo(c, Starting, nil)
	if err := s.preStart(ctx, c); err != nil {
		s.fail(c, gerrors.NewErrInitFailure(err))
		c.mu.Unlock()
		return c.ref, nil
	}
	s.moveTo(c, Running, nil)
	c.mu.Unlock()

	c.logger.Debugf("actor %s is running", c.id)
	if !c.mailbox.IsEmpty() {
		s.dispatcher.schedule(c)
	}
	return c.ref, nil
}

// Actor returns the reference of a registered actor.
func (s *System) Actor(actorID string) (*Ref, error) {
	c, ok := s.actors.Get(actorID)
	if !ok {
		return nil, gerrors.NewErrActorNotFound(actorID)
	}
	return c.ref, nil
}

// Actors returns the sorted ids of the actors holding a live instance.
// FAILED actors are not listed.
func (s *System) Actors() []string {
	ids := make([]string, 0, s.actors.Len())
	s.actors.Range(func(id string, c *cell) {
		if c.State().IsLive() {
			ids = append(ids, id)
		}
	})
	slices.Sort(ids)
	return ids
}

// Refs returns the references of every registered actor, including FAILED ones.
func (s *System) Refs() []*Ref {
	cells := s.actors.Values()
	refs := make([]*Ref, 0, len(cells))
	for _, c := range cells {
		refs = append(refs, c.ref)
	}
	slices.SortFunc(refs, func(a, b *Ref) int {
		switch {
		case a.id < b.id:
			return -1
		case a.id > b.id:
			return 1
		default:
			return 0
		}
	})
	return refs
}

// State returns the lifecycle state of a registered actor.
func (s *System) State(actorID string) (State, error) {
	c, ok := s.actors.Get(actorID)
	if !ok {
		return Stopped, gerrors.NewErrActorNotFound(actorID)
	}
	return c.State(), nil
}

// ActorStats returns a snapshot of a registered actor.
func (s *System) ActorStats(actorID string) (ActorStats, error) {
	c, ok := s.actors.Get(actorID)
	if !ok {
		return ActorStats{}, gerrors.NewErrActorNotFound(actorID)
	}
	return c.stats(), nil
}

// Stats returns a snapshot of the system.
func (s *System) Stats() SystemStats {
	stats := SystemStats{
		Name:        s.name,
		Actors:      s.actors.Len(),
		DeadLetters: s.deadLetters.total.Load(),
		Workers:     s.pool.Workers(),
		Pending:     s.pool.Pending(),
	}
	if started := s.startedAt.Load(); s.started.Load() && !started.IsZero() {
		stats.Uptime = time.Since(started)
	}
	return stats
}

// DeadLetters returns the number of dead letters recorded for an actor id.
func (s *System) DeadLetters(actorID string) uint64 {
	return s.deadLetters.count(actorID)
}

// Tell sends a fire and forget message.
//
// The message is queued whenever the actor is registered and not stopping,
// stopped or failed; it is processed once the actor is RUNNING.
// Undeliverable messages go to dead letters.
func (s *System) Tell(ctx context.Context, actorID string, payload any, opts ...SendOption) error {
	return s.send(ctx, actorID, nil, NewMessage(payload, opts...))
}

// Ask sends a request. The returned future is resolved by ReceiveContext.Reply,
// failed with the processing error, or failed with ErrRequestTimeout once
// timeout elapses.
func (s *System) Ask(ctx context.Context, actorID string, payload any, timeout time.Duration, opts ...SendOption) *future.Future[any] {
	return s.ask(ctx, actorID, nil, payload, timeout, opts...)
}

// ask delivers to actorID, or only to the incarnation held by target when set.
func (s *System) ask(ctx context.Context, actorID string, target *cell, payload any, timeout time.Duration, opts ...SendOption) *future.Future[any] {
	if timeout <= 0 {
		return future.Failed[any](gerrors.ErrInvalidTimeout)
	}
	reply := future.Promise[any]()
	msg := NewMessage(payload, opts...).withReply(reply)
	if err := s.send(ctx, actorID, target, msg); err != nil {
		reply.Fail(err)
		return reply
	}
	reply.FailAfter(timeout, gerrors.ErrRequestTimeout)
	return reply
}

// StopActor stops an actor: STOPPING, PostStop, STOPPED, Terminated to its
// watchers, then removal from the registry. A PostStop error is logged only.
func (s *System) StopActor(ctx context.Context, actorID string) error {
	c, ok := s.actors.Get(actorID)
	if !ok {
		return gerrors.NewErrActorNotFound(actorID)
	}
	c.mu.Lock()
	_ = s.stopLocked(ctx, c)
	c.mu.Unlock()
	return nil
}

// Restart replaces a RUNNING actor instance with a fresh one built by its
// factory. The reference is preserved, the state is not. A hook failure
// leaves the actor FAILED and is not returned.
func (s *System) Restart(ctx context.Context, actorID string, cause error) error {
	c, ok := s.actors.Get(actorID)
	if !ok {
		return gerrors.NewErrActorNotFound(actorID)
	}
	c.mu.Lock()
	err := s.restartLocked(ctx, c, cause)
	c.mu.Unlock()

	if err == nil && c.State() == Running && !c.mailbox.IsEmpty() {
		s.dispatcher.schedule(c)
	}
	return err
}

// Block pauses message delivery of a RUNNING actor. Messages keep queueing.
// It does not interrupt the message being processed.
func (s *System) Block(actorID string) error {
	c, ok := s.actors.Get(actorID)
	if !ok {
		return gerrors.NewErrActorNotFound(actorID)
	}
	if !s.swap(c, Running, Blocked) {
		state := c.State()
		c.logger.Warnf("cannot block actor %s in state %s", actorID, state)
		return gerrors.NewErrInvalidState(actorID, state)
	}
	return nil
}

// Unblock resumes message delivery of a BLOCKED actor.
func (s *System) Unblock(actorID string) error {
	c, ok := s.actors.Get(actorID)
	if !ok {
		return gerrors.NewErrActorNotFound(actorID)
	}
	if !s.swap(c, Blocked, Running) {
		state := c.State()
		c.logger.Warnf("cannot unblock actor %s in state %s", actorID, state)
		return gerrors.NewErrInvalidState(actorID, state)
	}
	if !c.mailbox.IsEmpty() {
		s.dispatcher.schedule(c)
	}
	return nil
}

func (s *System) cell(actorID string) (*cell, bool) {
	return s.actors.Get(actorID)
}

// send routes msg to the actor registered under actorID. When target is set
// the registered actor must be that very cell: an id reused by a new spawn
// does not receive messages sent through a reference to the stopped actor.
func (s *System) send(ctx context.Context, actorID string, target *cell, msg *Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !s.started.Load() {
		return gerrors.ErrActorSystemNotStarted
	}
	c, ok := s.actors.Get(actorID)
	if !ok || (target != nil && c != target) {
		err := gerrors.NewErrActorNotFound(actorID)
		s.deadLetters.record(actorID, msg, err)
		s.logger.Warnf("message %s dropped: %v", msg.ID(), err)
		return err
	}
	return s.deliver(c, msg)
}

func (s *System) deliver(c *cell, msg *Message) error {
	switch state := c.State(); state {
	case Stopping, Stopped, Failed:
		err := gerrors.NewErrInvalidState(c.id, state)
		s.deadLetters.record(c.id, msg, err)
		return err
	default:
	}

	if err := c.mailbox.Enqueue(msg); err != nil {
		if errors.Is(err, gerrors.ErrMailboxFull) {
			return fmt.Errorf("(actor=%s) %w", c.id, err)
		}
		err = fmt.Errorf("(actor=%s) %w", c.id, gerrors.ErrDead)
		s.deadLetters.record(c.id, msg, err)
		return err
	}

	if c.State() == Running {
		s.dispatcher.schedule(c)
	}
	return nil
}

// handle processes one message. It runs under c.mu.
func (s *System) handle(c *cell, msg *Message) {
	ctx := context.Background()
	rctx := newReceiveContext(ctx, c, msg, s)
	err := s.safely(func() error {
		c.actor.Receive(rctx)
		return rctx.getError()
	})

	c.processed.Inc()
	s.metric.MessageProcessed(ctx, c.actorType, err != nil)

	if err == nil {
		if rctx.unhandled {
			s.deadLetters.record(c.id, msg, gerrors.ErrUnhandled)
		}
		if rctx.shutdown {
			_ = s.stopLocked(ctx, c)
		}
		return
	}

	msg.fail(err)
	c.failures.Inc()
	s.supervise(ctx, c, msg, err)
}

// supervise applies the supervisor directive for a failed message. It runs under c.mu.
func (s *System) supervise(ctx context.Context, c *cell, msg *Message, cause error) {
	directive := c.supervisor.Decide(c.id, cause, msg.Payload())
	logger := c.logger.With(log.FieldDirective, directive.String())

	switch directive {
	case supervisor.ResumeDirective:
		logger.Warnf("actor %s resumed after failure: %v", c.id, cause)
	case supervisor.RestartDirective:
		logger.Warnf("actor %s restarting after failure: %v", c.id, cause)
		_ = s.restartLocked(ctx, c, cause)
	case supervisor.EscalateDirective:
		logger.Errorf("actor %s escalated failure: %v", c.id, cause)
		s.events.Publish(LifecycleTopic, ActorEscalated{
			ActorID:   c.id,
			ActorType: c.actorType,
			Cause:     cause.Error(),
			Message:   msg.Payload(),
			At:        time.Now().UTC(),
		})
		_ = s.stopLocked(ctx, c)
	default:
		logger.Errorf("actor %s stopping after failure: %v", c.id, cause)
		_ = s.stopLocked(ctx, c)
	}
}

func (s *System) preStart(ctx context.Context, c *cell) error {
	cctx, cancel := context.WithTimeout(ctx, s.initTimeout)
	defer cancel()

	retrier := retry.NewRetrier(s.initMaxRetries, time.Millisecond, s.initTimeout)
	return retrier.RunContext(cctx, func(ctx context.Context) error {
		return s.safely(func() error {
			return c.actor.PreStart(newContext(ctx, c, s))
		})
	})
}

// stopLocked runs the stop sequence. It runs under c.mu and returns the PostStop error.
func (s *System) stopLocked(ctx context.Context, c *cell) error {
	from := c.State()
	if !s.moveTo(c, Stopping, nil) {
		return nil
	}

	var hookErr error
	if from != Failed && from != Created {
		hookErr = s.safely(func() error {
			return c.actor.PostStop(newContext(ctx, c, s))
		})
		if hookErr != nil {
			c.logger.Errorf("actor %s post-stop failed: %v", c.id, hookErr)
		}
	}
	s.moveTo(c, Stopped, hookErr)

	// watchers are notified while the actor is still registered
	s.notifyWatchers(c)

	c.mailbox.Dispose()
	for _, msg := range c.mailbox.Clear() {
		s.deadLetters.record(c.id, msg, fmt.Errorf("(actor=%s) %w", c.id, gerrors.ErrDead))
	}

	s.actors.Delete(c.id)
	c.supervisor.Forget(c.id)
	s.metric.ActorRemoved(ctx, c.actorType)
	c.logger.Debugf("actor %s stopped", c.id)
	return hookErr
}

// restartLocked runs the restart sequence. It runs under c.mu.
func (s *System) restartLocked(ctx context.Context, c *cell, cause error) error {
	if !s.swap(c, Running, Restarting) {
		state := c.State()
		c.logger.Warnf("cannot restart actor %s in state %s", c.id, state)
		return gerrors.NewErrInvalidState(c.id, state)
	}

	hookCtx := newContext(ctx, c, s)
	if err := s.safely(func() error { return preRestart(c.actor, hookCtx, cause) }); err != nil {
		s.fail(c, gerrors.NewErrRestartFailure(err))
		return nil
	}

	instance, err := s.build(c.factory, c.params)
	if err != nil {
		s.fail(c, gerrors.NewErrRestartFailure(err))
		return nil
	}
	c.actor = instance

	if err := s.safely(func() error { return postRestart(instance, hookCtx, cause) }); err != nil {
		s.fail(c, gerrors.NewErrRestartFailure(err))
		return nil
	}

	s.moveTo(c, Running, cause)
	c.restarts.Inc()
	s.metric.ActorRestarted(ctx, c.actorType)
	c.logger.Infof("actor %s restarted", c.id)
	return nil
}

func preRestart(instance Actor, ctx *Context, cause error) error {
	if r, ok := instance.(Restartable); ok {
		return r.PreRestart(ctx, cause)
	}
	return instance.PostStop(ctx)
}

func postRestart(instance Actor, ctx *Context, cause error) error {
	if r, ok := instance.(Restartable); ok {
		return r.PostRestart(ctx, cause)
	}
	return instance.PreStart(ctx)
}

func (s *System) fail(c *cell, cause error) {
	c.lastError.Store(cause)
	s.moveTo(c, Failed, cause)
	s.metric.ActorFailed(context.Background(), c.actorType)
	c.logger.Errorf("actor %s failed: %v", c.id, cause)
}

func (s *System) build(factory Factory, params map[string]any) (instance Actor, err error) {
	err = s.safely(func() error {
		var ferr error
		instance, ferr = factory(params)
		return ferr
	})
	if err == nil && instance == nil {
		err = errors.New("factory returned a nil actor")
	}
	return instance, err
}

// moveTo applies a lifecycle transition and publishes it.
func (s *System) moveTo(c *cell, next State, cause error) bool {
	from, ok := c.transition(next)
	if !ok {
		return false
	}
	s.publishTransition(c, from, next, cause)
	return true
}

// swap moves from one exact state to another.
func (s *System) swap(c *cell, from, to State) bool {
	if !c.state.CompareAndSwap(int32(from), int32(to)) {
		return false
	}
	s.publishTransition(c, from, to, nil)
	return true
}

func (s *System) publishTransition(c *cell, from, to State, cause error) {
	event := LifecycleEvent{
		ActorID:   c.id,
		ActorType: c.actorType,
		From:      from,
		To:        to,
		At:        time.Now().UTC(),
	}
	if cause != nil {
		event.Cause = cause.Error()
	}
	s.events.Publish(LifecycleTopic, event)
}

// safely runs fn and turns a panic into a PanicError.
func (s *System) safely(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = toPanicError(r)
		}
	}()
	return fn()
}

func toPanicError(r any) error {
	if err, ok := r.(error); ok {
		var pe *gerrors.PanicError
		if errors.As(err, &pe) {
			return pe
		}
		pc, fn, line, _ := runtime.Caller(3)
		return gerrors.NewPanicError(fmt.Errorf("%w at %s[%s:%d]", err, runtime.FuncForPC(pc).Name(), fn, line))
	}
	pc, fn, line, _ := runtime.Caller(3)
	return gerrors.NewPanicError(fmt.Errorf("%v at %s[%s:%d]", r, runtime.FuncForPC(pc).Name(), fn, line))
}
