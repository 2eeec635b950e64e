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

import "context"

// Handler processes a message received from a broker.
type Handler func(ctx context.Context, msg *BrokerMessage) error

// Subscription is an active topic subscription.
type Subscription interface {
	// Topic returns the subscribed topic.
	Topic() string
	// Unsubscribe stops the delivery of messages. It is idempotent.
	Unsubscribe() error
}

// Broker is the produce/consume contract between services.
//
// Delivery is at most once: a message published while nobody is subscribed,
// or lost by the broker, is gone. Handlers of one subscription are invoked
// sequentially in publish order.
type Broker interface {
	// Publish sends msg to every subscriber of topic.
	Publish(ctx context.Context, topic string, msg *BrokerMessage) error
	// Subscribe registers handler for topic.
	Subscribe(topic string, handler Handler) (Subscription, error)
	// Close releases the broker. Further calls fail with ErrBrokerClosed.
	Close() error
}

// DeadLetterTopic returns the topic messages of topic are moved to when
// they cannot be handled.
func DeadLetterTopic(topic string) string {
	return topic + ".dlq"
}
