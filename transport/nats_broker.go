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
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/atomic"

	gerrors "github.com/actorgrid/actorgrid/errors"
	"github.com/actorgrid/actorgrid/log"
)

// NATSBroker is a Broker backed by core NATS subjects.
type NATSBroker struct {
	conn       *nats.Conn
	queueGroup string
	logger     log.Logger
	closed     *atomic.Bool
}

var _ Broker = (*NATSBroker)(nil)

// NATSOption configures a NATSBroker.
type NATSOption func(*natsConfig)

type natsConfig struct {
	name           string
	queueGroup     string
	connectTimeout time.Duration
	maxReconnects  int
	logger         log.Logger
}

// WithNATSName sets the connection name reported to the server.
func WithNATSName(name string) NATSOption {
	return func(c *natsConfig) { c.name = name }
}

// WithNATSQueueGroup makes subscriptions join a queue group so that each
// message is handled by a single member of the group.
func WithNATSQueueGroup(group string) NATSOption {
	return func(c *natsConfig) { c.queueGroup = group }
}

// WithNATSConnectTimeout sets the dial timeout.
func WithNATSConnectTimeout(timeout time.Duration) NATSOption {
	return func(c *natsConfig) { c.connectTimeout = timeout }
}

// WithNATSLogger sets the logger.
func WithNATSLogger(logger log.Logger) NATSOption {
	return func(c *natsConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewNATSBroker connects to the NATS server at url.
func NewNATSBroker(url string, opts ...NATSOption) (*NATSBroker, error) {
	config := &natsConfig{
		name:           "actorgrid",
		connectTimeout: 2 * time.Second,
		maxReconnects:  -1,
		logger:         log.DefaultLogger,
	}
	for _, opt := range opts {
		opt(config)
	}

	logger := config.logger
	conn, err := nats.Connect(url,
		nats.Name(config.name),
		nats.Timeout(config.connectTimeout),
		nats.MaxReconnects(config.maxReconnects),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warnf("nats disconnected: %v", err)
			}
		}),
		nats.ReconnectHandler(func(conn *nats.Conn) {
			logger.Infof("nats reconnected to %s", conn.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("transport: connecting to nats at %s: %w", url, err)
	}

	return &NATSBroker{
		conn:       conn,
		queueGroup: config.queueGroup,
		logger:     logger,
		closed:     atomic.NewBool(false),
	}, nil
}

// Publish implements Broker.
func (b *NATSBroker) Publish(ctx context.Context, topic string, msg *BrokerMessage) error {
	if b.closed.Load() {
		return gerrors.ErrBrokerClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := Encode(msg)
	if err != nil {
		return err
	}
	return b.conn.Publish(topic, data)
}

// Subscribe implements Broker. NATS invokes the handler of one subscription
// from a single goroutine.
func (b *NATSBroker) Subscribe(topic string, handler Handler) (Subscription, error) {
	if b.closed.Load() {
		return nil, gerrors.ErrBrokerClosed
	}

	callback := func(raw *nats.Msg) {
		msg, err := Decode(raw.Data)
		if err != nil {
			b.logger.Warnf("dropping undecodable message on %s: %v", raw.Subject, err)
			return
		}
		if err := handler(context.Background(), msg); err != nil {
			b.logger.Warnf("handler for topic %s failed: %v", raw.Subject, err)
		}
	}

	var (
		sub *nats.Subscription
		err error
	)
	if b.queueGroup != "" {
		sub, err = b.conn.QueueSubscribe(topic, b.queueGroup, callback)
	} else {
		sub, err = b.conn.Subscribe(topic, callback)
	}
	if err != nil {
		return nil, err
	}
	// make sure the server knows the subscription before returning
	if err := b.conn.Flush(); err != nil {
		_ = sub.Unsubscribe()
		return nil, err
	}

	return &natsSubscription{topic: topic, sub: sub}, nil
}

// Close drains the subscriptions and closes the connection.
func (b *NATSBroker) Close() error {
	if b.closed.Swap(true) {
		return nil
	}
	err := b.conn.Drain()
	if err != nil {
		b.conn.Close()
	}
	return err
}

type natsSubscription struct {
	topic string
	sub   *nats.Subscription
	once  sync.Once
}

func (s *natsSubscription) Topic() string { return s.topic }

func (s *natsSubscription) Unsubscribe() error {
	var err error
	s.once.Do(func() {
		err = s.sub.Unsubscribe()
	})
	return err
}
