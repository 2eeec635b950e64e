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
	"time"

	"go.uber.org/atomic"

	"github.com/actorgrid/actorgrid/eventstream"
	"github.com/actorgrid/actorgrid/internal/metric"
	"github.com/actorgrid/actorgrid/internal/xsync"
	"github.com/actorgrid/actorgrid/log"
)

// DeadLettersTopic is the event stream topic receiving DeadLetter events.
const DeadLettersTopic = "actorgrid.deadletters"

// DeadLetter describes a message that could not be delivered.
type DeadLetter struct {
	ActorID       string    `json:"actorId"`
	MessageID     string    `json:"messageId"`
	CorrelationID string    `json:"correlationId"`
	SenderID      string    `json:"senderId,omitempty"`
	Payload       any       `json:"-"`
	Reason        string    `json:"reason"`
	At            time.Time `json:"at"`
}

// deadLetterOffice counts undeliverable messages, fails their pending asks and
// publishes them on the event stream.
type deadLetterOffice struct {
	events eventstream.Stream
	logger log.Logger
	metric *metric.ActorSystemMetric
	total  *atomic.Uint64
	counts *xsync.Map[string, *atomic.Uint64]
}

func newDeadLetterOffice(events eventstream.Stream, logger log.Logger, m *metric.ActorSystemMetric) *deadLetterOffice {
	return &deadLetterOffice{
		events: events,
		logger: logger,
		metric: m,
		total:  atomic.NewUint64(0),
		counts: xsync.NewMap[string, *atomic.Uint64](),
	}
}

// sinkFor returns the DeadLetterSink bound to an actor mailbox.
func (x *deadLetterOffice) sinkFor(actorID string) DeadLetterSink {
	return DeadLetterFunc(func(msg *Message, reason error) {
		x.record(actorID, msg, reason)
	})
}

func (x *deadLetterOffice) record(actorID string, msg *Message, reason error) {
	if msg == nil {
		return
	}
	msg.fail(reason)

	letter := DeadLetter{
		ActorID:       actorID,
		MessageID:     msg.ID(),
		CorrelationID: msg.CorrelationID(),
		SenderID:      msg.SenderID(),
		Payload:       msg.Payload(),
		At:            time.Now().UTC(),
	}
	if reason != nil {
		letter.Reason = reason.Error()
	}

	x.total.Inc()
	x.counts.GetOrSet(actorID, func() *atomic.Uint64 { return atomic.NewUint64(0) }).Inc()
	if x.metric != nil {
		x.metric.DeadLetter(context.Background(), letter.Reason)
	}
	x.logger.Debugf("dead letter for actor %s: %s", actorID, letter.Reason)
	x.events.Publish(DeadLettersTopic, letter)
}

// DeadLetter implements DeadLetterSink for messages without a known target.
func (x *deadLetterOffice) DeadLetter(msg *Message, reason error) {
	x.record("", msg, reason)
}

func (x *deadLetterOffice) count(actorID string) uint64 {
	if counter, ok := x.counts.Get(actorID); ok {
		return counter.Load()
	}
	return 0
}
