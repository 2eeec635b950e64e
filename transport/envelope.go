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

// Package transport relays actor messages between services through a broker.
package transport

import (
	"fmt"
	"strings"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
)

// ProtocolVersion is stamped on every BrokerMessage.
const ProtocolVersion = "1.0"

// Header keys carried by BrokerMessage.Headers.
const (
	HeaderTargetActor     = "target-actor"
	HeaderSenderActor     = "sender-actor"
	HeaderCorrelationID   = "correlation-id"
	HeaderReplyTo         = "reply-to"
	HeaderTimeout         = "timeout-ms"
	HeaderContentEncoding = "content-encoding"
	HeaderError           = "error"
	HeaderErrorKind       = "error-kind"
)

// ErrorStrategy tells a consumer what to do when handling a message fails.
type ErrorStrategy int

const (
	// Retry redelivers the message with backoff, then moves it to the dead letter topic.
	Retry ErrorStrategy = iota
	// Ignore drops the message after logging the failure.
	Ignore
	// DLQ moves the message to the dead letter topic at once.
	DLQ
)

// String implements fmt.Stringer.
func (s ErrorStrategy) String() string {
	switch s {
	case Retry:
		return "RETRY"
	case Ignore:
		return "IGNORE"
	case DLQ:
		return "DLQ"
	default:
		return fmt.Sprintf("ErrorStrategy(%d)", int(s))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s ErrorStrategy) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *ErrorStrategy) UnmarshalText(text []byte) error {
	parsed, err := ParseErrorStrategy(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseErrorStrategy parses RETRY, IGNORE or DLQ, case insensitively.
func ParseErrorStrategy(s string) (ErrorStrategy, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "RETRY":
		return Retry, nil
	case "IGNORE":
		return Ignore, nil
	case "DLQ":
		return DLQ, nil
	default:
		return Retry, fmt.Errorf("transport: unknown error strategy %q", s)
	}
}

// BrokerMessage is the envelope published on the broker.
type BrokerMessage struct {
	MessageID     string            `cbor:"1,keyasint" json:"messageId"`
	MessageType   string            `cbor:"2,keyasint" json:"messageType"`
	Payload       []byte            `cbor:"3,keyasint" json:"payload"`
	Headers       map[string]string `cbor:"4,keyasint,omitempty" json:"headers,omitempty"`
	Source        string            `cbor:"5,keyasint" json:"source"`
	Destination   string            `cbor:"6,keyasint" json:"destination"`
	Timestamp     time.Time         `cbor:"7,keyasint" json:"timestamp"`
	Version       string            `cbor:"8,keyasint" json:"version"`
	ErrorStrategy ErrorStrategy     `cbor:"9,keyasint" json:"errorStrategy"`
	RetryCount    int               `cbor:"10,keyasint" json:"retryCount"`
	MaxRetries    int               `cbor:"11,keyasint" json:"maxRetries"`
}

// NewBrokerMessage creates an envelope with a fresh id and the current time.
func NewBrokerMessage(source, destination, messageType string, payload []byte) *BrokerMessage {
	return &BrokerMessage{
		MessageID:   uuid.NewString(),
		MessageType: messageType,
		Payload:     payload,
		Headers:     make(map[string]string),
		Source:      source,
		Destination: destination,
		Timestamp:   time.Now().UTC(),
		Version:     ProtocolVersion,
	}
}

// Header returns a header value.
func (m *BrokerMessage) Header(key string) string {
	if m.Headers == nil {
		return ""
	}
	return m.Headers[key]
}

// SetHeader sets a header value.
func (m *BrokerMessage) SetHeader(key, value string) {
	if m.Headers == nil {
		m.Headers = make(map[string]string)
	}
	m.Headers[key] = value
}

// Clone returns a deep copy.
func (m *BrokerMessage) Clone() *BrokerMessage {
	out := *m
	out.Payload = append([]byte(nil), m.Payload...)
	out.Headers = make(map[string]string, len(m.Headers))
	for k, v := range m.Headers {
		out.Headers[k] = v
	}
	return &out
}

var (
	envelopeEncMode cbor.EncMode
	envelopeDecMode cbor.DecMode
)

func init() {
	var err error
	envelopeEncMode, err = cbor.EncOptions{Time: cbor.TimeRFC3339Nano, Sort: cbor.SortCoreDeterministic}.EncMode()
	if err != nil {
		panic(err)
	}
	envelopeDecMode, err = cbor.DecOptions{MaxNestedLevels: 16}.DecMode()
	if err != nil {
		panic(err)
	}
}

// Encode returns the wire form of an envelope.
func Encode(msg *BrokerMessage) ([]byte, error) {
	return envelopeEncMode.Marshal(msg)
}

// Decode parses the wire form of an envelope.
func Decode(data []byte) (*BrokerMessage, error) {
	msg := new(BrokerMessage)
	if err := envelopeDecMode.Unmarshal(data, msg); err != nil {
		return nil, fmt.Errorf("transport: invalid broker message: %w", err)
	}
	if msg.Version == "" || msg.MessageID == "" {
		return nil, fmt.Errorf("transport: invalid broker message: missing id or version")
	}
	return msg, nil
}
