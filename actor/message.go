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

	"github.com/google/uuid"

	"github.com/actorgrid/actorgrid/future"
)

// Message is the envelope delivered to an actor.
// It is immutable once sent.
type Message struct {
	id            string
	correlationID string
	timestamp     time.Time
	payload       any
	sender        *Ref
	senderID      string
	reply         *future.Future[any]
}

// SendOption customizes a Message at send time.
type SendOption func(*Message)

// WithSender sets the local actor sending the message.
func WithSender(sender *Ref) SendOption {
	return func(m *Message) {
		m.sender = sender
		if sender != nil {
			m.senderID = sender.ID()
		}
	}
}

// WithSenderID sets the id of a sender that may live in another service.
func WithSenderID(senderID string) SendOption {
	return func(m *Message) {
		m.senderID = senderID
	}
}

// WithCorrelationID sets the correlation id. By default it equals the message id.
func WithCorrelationID(correlationID string) SendOption {
	return func(m *Message) {
		m.correlationID = correlationID
	}
}

// NewMessage creates a Message carrying payload.
func NewMessage(payload any, opts ...SendOption) *Message {
	id := uuid.NewString()
	msg := &Message{
		id:            id,
		correlationID: id,
		timestamp:     time.Now().UTC(),
		payload:       payload,
	}
	for _, opt := range opts {
		opt(msg)
	}
	return msg
}

// ID returns the message id.
func (m *Message) ID() string { return m.id }

// CorrelationID returns the correlation id.
func (m *Message) CorrelationID() string { return m.correlationID }

// Timestamp returns the creation time.
func (m *Message) Timestamp() time.Time { return m.timestamp }

// Payload returns the user payload.
func (m *Message) Payload() any { return m.payload }

// Sender returns the local sender, or nil.
func (m *Message) Sender() *Ref { return m.sender }

// SenderID returns the sender id, which may be empty.
func (m *Message) SenderID() string { return m.senderID }

// IsAsk reports whether the sender awaits a reply.
func (m *Message) IsAsk() bool { return m.reply != nil }

func (m *Message) withReply(reply *future.Future[any]) *Message {
	m.reply = reply
	return m
}

// fail resolves a pending ask with err.
func (m *Message) fail(err error) {
	if m.reply != nil {
		m.reply.Fail(err)
	}
}

// Terminated is delivered to watchers once a watched actor has stopped.
type Terminated struct {
	actor *Ref
}

// Actor returns the reference of the stopped actor.
func (t *Terminated) Actor() *Ref { return t.actor }

// ActorID returns the id of the stopped actor.
func (t *Terminated) ActorID() string { return t.actor.ID() }
