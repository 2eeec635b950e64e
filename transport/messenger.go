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
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/atomic"
	"go.uber.org/multierr"

	"github.com/actorgrid/actorgrid/actor"
	gerrors "github.com/actorgrid/actorgrid/errors"
	"github.com/actorgrid/actorgrid/future"
	"github.com/actorgrid/actorgrid/internal/validation"
	"github.com/actorgrid/actorgrid/internal/xsync"
	"github.com/actorgrid/actorgrid/log"
)

// error kinds carried in the error-kind header of a reply
const (
	kindNotFound     = "not_found"
	kindTimeout      = "timeout"
	kindInvalidState = "invalid_state"
	kindDead         = "dead"
	kindRemote       = "remote"
)

// Local is the part of the actor system inbound messages are delivered to.
type Local interface {
	Tell(ctx context.Context, actorID string, payload any, opts ...actor.SendOption) error
	Ask(ctx context.Context, actorID string, payload any, timeout time.Duration, opts ...actor.SendOption) *future.Future[any]
}

// TellTopic is the topic a service consumes tells from.
func TellTopic(serviceID string) string { return "actorgrid." + serviceID + ".tell" }

// AskTopic is the topic a service consumes asks from.
func AskTopic(serviceID string) string { return "actorgrid." + serviceID + ".ask" }

// ReplyTopic is the topic a service consumes replies to its asks from.
func ReplyTopic(serviceID string) string { return "actorgrid." + serviceID + ".reply" }

// Messenger relays tell and ask between services through a Broker. It
// implements actor.Remoting and delivers inbound messages to a Local system.
//
// A Messenger is built by the process bootstrap, handed to the actor system
// with actor.WithRemoting, then started once the system is running.
type Messenger struct {
	serviceID         string
	broker            Broker
	serializer        Serializer
	compression       Compression
	tellStrategy      ErrorStrategy
	maxRetries        int
	retryInitialDelay time.Duration
	retryMaxDelay     time.Duration
	logger            log.Logger

	codec    *codec
	consumer *consumer
	pending  *xsync.Map[string, *future.Future[any]]

	mu      sync.Mutex
	local   Local
	subs    []Subscription
	inbound sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
	started *atomic.Bool
}

var _ actor.Remoting = (*Messenger)(nil)

// NewMessenger creates a Messenger for serviceID.
func NewMessenger(serviceID string, broker Broker, opts ...Option) (*Messenger, error) {
	m := &Messenger{
		serviceID:         serviceID,
		broker:            broker,
		serializer:        NewCBORSerializer(),
		tellStrategy:      Retry,
		maxRetries:        DefaultMaxRetries,
		retryInitialDelay: DefaultRetryInitialDelay,
		retryMaxDelay:     DefaultRetryMaxDelay,
		logger:            log.DefaultLogger,
		pending:           xsync.NewMap[string, *future.Future[any]](),
		started:           atomic.NewBool(false),
	}
	for _, opt := range opts {
		opt.Apply(m)
	}

	if err := validation.New(validation.AllErrors()).
		AddValidator(validation.NewIDValidator("serviceId", serviceID)).
		AddAssertion(broker != nil, "broker is required").
		AddAssertion(m.maxRetries > 0, "max retries must be positive").
		AddAssertion(m.retryInitialDelay > 0 && m.retryMaxDelay >= m.retryInitialDelay, "invalid retry backoff").
		Validate(); err != nil {
		return nil, err
	}
	if _, err := ParseCompression(string(m.compression)); err != nil {
		return nil, err
	}

	codec, err := newCodec()
	if err != nil {
		return nil, err
	}
	m.codec = codec
	m.logger = m.logger.With(log.FieldService, serviceID)
	m.consumer = newConsumer(broker, m.logger, m.maxRetries, m.retryInitialDelay, m.retryMaxDelay)
	return m, nil
}

// ServiceID returns the id of the service the messenger speaks for.
func (m *Messenger) ServiceID() string { return m.serviceID }

// Start subscribes to the service topics and begins delivering to local.
func (m *Messenger) Start(ctx context.Context, local Local) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started.Load() {
		return nil
	}
	if local == nil {
		return errors.New("transport: local system is required")
	}

	m.local = local
	m.ctx, m.cancel = context.WithCancel(context.WithoutCancel(ctx))

	handlers := map[string]Handler{
		TellTopic(m.serviceID):  m.consumer.wrap(m.onTell),
		AskTopic(m.serviceID):   m.onAsk,
		ReplyTopic(m.serviceID): m.onReply,
	}
	for topic, handler := range handlers {
		sub, err := m.broker.Subscribe(topic, handler)
		if err != nil {
			_ = m.unsubscribeLocked()
			m.cancel()
			return fmt.Errorf("transport: subscribing to %s: %w", topic, err)
		}
		m.subs = append(m.subs, sub)
	}

	m.started.Store(true)
	m.logger.Infof("messenger started for service %s", m.serviceID)
	return nil
}

// Stop unsubscribes, waits for inbound asks in flight and fails pending
// outbound asks with ErrMessengerNotStarted.
func (m *Messenger) Stop(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.started.Load() {
		return nil
	}
	m.started.Store(false)

	err := m.unsubscribeLocked()
	m.cancel()

	done := make(chan struct{})
	go func() {
		m.inbound.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		err = multierr.Append(err, ctx.Err())
	}

	for _, id := range m.pending.Keys() {
		if promise, ok := m.pending.GetAndDelete(id); ok {
			promise.Fail(gerrors.ErrMessengerNotStarted)
		}
	}
	m.logger.Infof("messenger stopped for service %s", m.serviceID)
	return err
}

// Running reports whether the messenger is started.
func (m *Messenger) Running() bool { return m.started.Load() }

// RemoteTell implements actor.Remoting.
func (m *Messenger) RemoteTell(ctx context.Context, serviceID, actorID string, payload any, opts ...actor.SendOption) error {
	if !m.started.Load() {
		return gerrors.ErrMessengerNotStarted
	}
	msg, err := m.envelope(TellTopic(serviceID), actorID, actor.NewMessage(payload, opts...))
	if err != nil {
		return err
	}
	msg.ErrorStrategy = m.tellStrategy
	msg.MaxRetries = m.maxRetries
	if err := m.broker.Publish(ctx, msg.Destination, msg); err != nil {
		return gerrors.NewErrRemoteCall(err)
	}
	return nil
}

// RemoteAsk implements actor.Remoting. The future fails with
// ErrRequestTimeout when no reply arrives within timeout.
func (m *Messenger) RemoteAsk(ctx context.Context, serviceID, actorID string, payload any, timeout time.Duration, opts ...actor.SendOption) *future.Future[any] {
	if !m.started.Load() {
		return future.Failed[any](gerrors.ErrMessengerNotStarted)
	}
	if timeout <= 0 {
		return future.Failed[any](gerrors.ErrInvalidTimeout)
	}

	correlationID := uuid.NewString()
	opts = append(opts, actor.WithCorrelationID(correlationID))
	msg, err := m.envelope(AskTopic(serviceID), actorID, actor.NewMessage(payload, opts...))
	if err != nil {
		return future.Failed[any](err)
	}
	msg.ErrorStrategy = Ignore
	msg.SetHeader(HeaderReplyTo, ReplyTopic(m.serviceID))
	msg.SetHeader(HeaderTimeout, strconv.FormatInt(timeout.Milliseconds(), 10))

	promise := future.Promise[any]()
	m.pending.Set(correlationID, promise)
	promise.FailAfter(timeout, gerrors.ErrRequestTimeout)
	go func() {
		<-promise.Done()
		m.pending.Delete(correlationID)
	}()

	if err := m.broker.Publish(ctx, msg.Destination, msg); err != nil {
		promise.Fail(gerrors.NewErrRemoteCall(err))
	}
	return promise
}

func (m *Messenger) envelope(topic, actorID string, message *actor.Message) (*BrokerMessage, error) {
	tag, data, err := m.serializer.Serialize(message.Payload())
	if err != nil {
		return nil, gerrors.NewErrInvalidMessage(err)
	}
	data, err = m.codec.compress(m.compression, data)
	if err != nil {
		return nil, err
	}

	msg := NewBrokerMessage(m.serviceID, topic, tag, data)
	msg.MessageID = message.ID()
	msg.SetHeader(HeaderTargetActor, actorID)
	msg.SetHeader(HeaderCorrelationID, message.CorrelationID())
	if message.SenderID() != "" {
		msg.SetHeader(HeaderSenderActor, message.SenderID())
	}
	if m.compression != NoCompression {
		msg.SetHeader(HeaderContentEncoding, string(m.compression))
	}
	return msg, nil
}

func (m *Messenger) payload(msg *BrokerMessage) (any, error) {
	compression, err := ParseCompression(msg.Header(HeaderContentEncoding))
	if err != nil {
		return nil, err
	}
	data, err := m.codec.decompress(compression, msg.Payload)
	if err != nil {
		return nil, err
	}
	return m.serializer.Deserialize(msg.MessageType, data)
}

func (m *Messenger) sendOptions(msg *BrokerMessage) []actor.SendOption {
	opts := []actor.SendOption{actor.WithCorrelationID(msg.Header(HeaderCorrelationID))}
	if sender := msg.Header(HeaderSenderActor); sender != "" {
		opts = append(opts, actor.WithSenderID(sender))
	}
	return opts
}

func (m *Messenger) onTell(ctx context.Context, msg *BrokerMessage) error {
	payload, err := m.payload(msg)
	if err != nil {
		return Permanent(err)
	}
	err = m.local.Tell(ctx, msg.Header(HeaderTargetActor), payload, m.sendOptions(msg)...)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gerrors.ErrActorNotFound), errors.Is(err, gerrors.ErrInvalidState), errors.Is(err, gerrors.ErrDead):
		return Permanent(err)
	default:
		return err
	}
}

// onAsk answers on a separate goroutine so a slow actor does not hold up the
// subscription.
func (m *Messenger) onAsk(ctx context.Context, msg *BrokerMessage) error {
	replyTo := msg.Header(HeaderReplyTo)
	if replyTo == "" {
		m.logger.Warnf("dropping ask %s without reply topic", msg.MessageID)
		return nil
	}

	timeout := DefaultAskTimeout
	if ms, err := strconv.ParseInt(msg.Header(HeaderTimeout), 10, 64); err == nil && ms > 0 {
		timeout = time.Duration(ms) * time.Millisecond
	}

	payload, err := m.payload(msg)
	if err != nil {
		return m.reply(ctx, msg, nil, err)
	}

	if m.ctx.Err() != nil {
		return nil
	}
	m.inbound.Add(1)
	go func() {
		defer m.inbound.Done()
		result := m.local.Ask(m.ctx, msg.Header(HeaderTargetActor), payload, timeout, m.sendOptions(msg)...)
		value, err := result.Await(m.ctx)
		if err := m.reply(m.ctx, msg, value, err); err != nil {
			m.logger.Warnf("unable to reply to ask %s: %v", msg.MessageID, err)
		}
	}()
	return nil
}

func (m *Messenger) reply(ctx context.Context, request *BrokerMessage, value any, cause error) error {
	var (
		tag  string
		data []byte
		err  error
	)
	if cause == nil {
		tag, data, err = m.serializer.Serialize(value)
		if err != nil {
			cause = err
		}
	}
	if cause == nil {
		data, err = m.codec.compress(m.compression, data)
		if err != nil {
			cause = err
		}
	}

	reply := NewBrokerMessage(m.serviceID, request.Header(HeaderReplyTo), tag, data)
	reply.ErrorStrategy = Ignore
	reply.SetHeader(HeaderCorrelationID, request.Header(HeaderCorrelationID))
	if cause != nil {
		reply.Payload = nil
		reply.MessageType = ""
		reply.SetHeader(HeaderError, cause.Error())
		reply.SetHeader(HeaderErrorKind, errorKind(cause))
	} else if m.compression != NoCompression {
		reply.SetHeader(HeaderContentEncoding, string(m.compression))
	}
	return m.broker.Publish(ctx, reply.Destination, reply)
}

func (m *Messenger) onReply(_ context.Context, msg *BrokerMessage) error {
	promise, ok := m.pending.GetAndDelete(msg.Header(HeaderCorrelationID))
	if !ok {
		m.logger.Debugf("dropping late reply %s", msg.Header(HeaderCorrelationID))
		return nil
	}
	if text := msg.Header(HeaderError); text != "" {
		promise.Fail(remoteError(msg.Header(HeaderErrorKind), text))
		return nil
	}
	value, err := m.payload(msg)
	if err != nil {
		promise.Fail(err)
		return nil
	}
	promise.Complete(value)
	return nil
}

func (m *Messenger) unsubscribeLocked() error {
	var err error
	for _, sub := range m.subs {
		err = multierr.Append(err, sub.Unsubscribe())
	}
	m.subs = nil
	return err
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, gerrors.ErrActorNotFound):
		return kindNotFound
	case errors.Is(err, gerrors.ErrRequestTimeout), errors.Is(err, context.DeadlineExceeded):
		return kindTimeout
	case errors.Is(err, gerrors.ErrInvalidState):
		return kindInvalidState
	case errors.Is(err, gerrors.ErrDead):
		return kindDead
	default:
		return kindRemote
	}
}

// remoteError rebuilds an error that errors.Is matches against the sentinel
// the remote side failed with.
func remoteError(kind, text string) error {
	var sentinel error
	switch kind {
	case kindNotFound:
		sentinel = gerrors.ErrActorNotFound
	case kindTimeout:
		sentinel = gerrors.ErrRequestTimeout
	case kindInvalidState:
		sentinel = gerrors.ErrInvalidState
	case kindDead:
		sentinel = gerrors.ErrDead
	default:
		return gerrors.NewErrRemoteCall(errors.New(text))
	}
	return fmt.Errorf("remote: %s: %w", text, sentinel)
}
