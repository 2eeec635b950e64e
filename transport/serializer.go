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
	"errors"
	"fmt"
	"reflect"

	"github.com/fxamacker/cbor/v2"

	gerrors "github.com/actorgrid/actorgrid/errors"
	"github.com/actorgrid/actorgrid/internal/types"
)

// Serializer turns payloads into bytes and back. The type tag travels in
// BrokerMessage.MessageType.
type Serializer interface {
	Serialize(payload any) (typeTag string, data []byte, err error)
	Deserialize(typeTag string, data []byte) (any, error)
}

// ErrNilPayload is returned when serializing a nil payload.
var ErrNilPayload = errors.New("transport: payload is nil")

// CBORSerializer encodes payloads with CBOR. Payload types must be registered
// on both ends with Register.
//
// Struct payloads are decoded as pointers; other kinds (strings, numbers,
// maps, slices) are decoded as values.
type CBORSerializer struct {
	registry *types.Registry
	encMode  cbor.EncMode
	decMode  cbor.DecMode
}

var _ Serializer = (*CBORSerializer)(nil)

// NewCBORSerializer creates a serializer with string, []byte, bool, int64,
// float64 and map[string]any registered.
func NewCBORSerializer() *CBORSerializer {
	encMode, _ := cbor.EncOptions{Time: cbor.TimeRFC3339Nano}.EncMode()
	decMode, _ := cbor.DecOptions{
		MaxNestedLevels: 64,
		DefaultMapType:  reflect.TypeOf(map[string]any(nil)),
		IndefLength:     cbor.IndefLengthForbidden,
		UTF8:            cbor.UTF8DecodeInvalid,
		IntDec:          cbor.IntDecConvertSigned,
	}.DecMode()
	s := &CBORSerializer{registry: types.NewRegistry(), encMode: encMode, decMode: decMode}
	s.Register(new(string), new([]byte), new(bool), new(int64), new(float64), new(map[string]any))
	return s
}

// Register makes payload types known. Pass pointers to zero values.
func (s *CBORSerializer) Register(values ...any) {
	for _, v := range values {
		s.registry.Register(v)
	}
}

// Serialize implements Serializer.
func (s *CBORSerializer) Serialize(payload any) (string, []byte, error) {
	if payload == nil {
		return "", nil, ErrNilPayload
	}
	tag := types.TypeName(payload)
	if _, ok := s.registry.TypeOf(tag); !ok {
		return "", nil, gerrors.NewErrTypeNotRegistered(tag)
	}
	data, err := s.encMode.Marshal(payload)
	if err != nil {
		return "", nil, fmt.Errorf("transport: serializing %s: %w", tag, err)
	}
	return tag, data, nil
}

// Deserialize implements Serializer.
func (s *CBORSerializer) Deserialize(typeTag string, data []byte) (any, error) {
	rtype, ok := s.registry.TypeOf(typeTag)
	if !ok {
		return nil, gerrors.NewErrTypeNotRegistered(typeTag)
	}
	ptr := reflect.New(rtype)
	if err := s.decMode.Unmarshal(data, ptr.Interface()); err != nil {
		return nil, fmt.Errorf("transport: deserializing %s: %w", typeTag, err)
	}
	if rtype.Kind() == reflect.Struct {
		return ptr.Interface(), nil
	}
	return ptr.Elem().Interface(), nil
}
