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

package router

import (
	"github.com/actorgrid/actorgrid/actor"
)

// RoutingStrategy names a routing strategy
type RoutingStrategy int

const (
	// RoundRobinStrategy rotates over the set of routees making sure that if there are n routees,
	// then for n messages sent through the router, each actor is forwarded one message.
	RoundRobinStrategy RoutingStrategy = iota
	// RandomStrategy selects a routee at random when a message is sent through the router.
	RandomStrategy
	// BroadcastStrategy forwards every message to all the routees.
	BroadcastStrategy
	// ConsistentHashingStrategy delivers messages with the same key to the same routee as long
	// as the set of routees stays the same. When a routee leaves, only its keys move.
	ConsistentHashingStrategy
)

// String returns the strategy name
func (s RoutingStrategy) String() string {
	switch s {
	case RoundRobinStrategy:
		return "round-robin"
	case RandomStrategy:
		return "random"
	case BroadcastStrategy:
		return "broadcast"
	case ConsistentHashingStrategy:
		return "consistent-hash"
	default:
		return "unknown"
	}
}

// Strategy selects the routees of a message among the active ones.
// routees is never empty.
type Strategy interface {
	// Kind returns the strategy kind
	Kind() RoutingStrategy
	// Select returns the routees the payload is sent to
	Select(payload any, routees []*actor.Ref) []*actor.Ref
}
