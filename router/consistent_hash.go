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
	"fmt"

	"github.com/actorgrid/actorgrid/actor"
	"github.com/actorgrid/actorgrid/hash"
)

// KeyExtractor returns the hashing key of a message
type KeyExtractor func(payload any) string

// Keyed is implemented by messages that carry their own hashing key
type Keyed interface {
	HashKey() string
}

// DefaultKeyExtractor uses Keyed when implemented and the printed value otherwise
func DefaultKeyExtractor(payload any) string {
	if keyed, ok := payload.(Keyed); ok {
		return keyed.HashKey()
	}
	return fmt.Sprint(payload)
}

// ConsistentHash routes by rendezvous hashing: every routee gets a score for
// the key and the highest score wins. Removing a routee only moves the keys
// it owned.
type ConsistentHash struct {
	extractor KeyExtractor
	hasher    hash.Hasher
}

// ConsistentHashOption configures a ConsistentHash.
type ConsistentHashOption func(*ConsistentHash)

// WithHasher replaces the default XXH3 hasher.
func WithHasher(hasher hash.Hasher) ConsistentHashOption {
	return func(x *ConsistentHash) {
		if hasher != nil {
			x.hasher = hasher
		}
	}
}

var _ Strategy = (*ConsistentHash)(nil)

// NewConsistentHash creates a ConsistentHash strategy. A nil extractor
// falls back to DefaultKeyExtractor.
func NewConsistentHash(extractor KeyExtractor, opts ...ConsistentHashOption) *ConsistentHash {
	if extractor == nil {
		extractor = DefaultKeyExtractor
	}
	x := &ConsistentHash{extractor: extractor, hasher: hash.DefaultHasher()}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

// Kind implements Strategy.
func (x *ConsistentHash) Kind() RoutingStrategy { return ConsistentHashingStrategy }

// Select implements Strategy.
func (x *ConsistentHash) Select(payload any, routees []*actor.Ref) []*actor.Ref {
	key := x.extractor(payload)
	var (
		winner *actor.Ref
		best   uint64
	)
	for _, routee := range routees {
		score := x.hasher.HashCode([]byte(key + "\x00" + routee.ID()))
		if winner == nil || score > best || (score == best && routee.ID() < winner.ID()) {
			winner, best = routee, score
		}
	}
	return []*actor.Ref{winner}
}
