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

// Package xsync provides a sharded concurrent map.
package xsync

import (
	"hash/maphash"
	"sync"
)

const shardCount = 16

type shard[K comparable, V any] struct {
	sync.RWMutex
	items map[K]V
}

// Map is a concurrency-safe map split in independently locked shards.
type Map[K comparable, V any] struct {
	seed   maphash.Seed
	shards [shardCount]*shard[K, V]
}

// NewMap creates an empty Map.
func NewMap[K comparable, V any]() *Map[K, V] {
	m := &Map[K, V]{seed: maphash.MakeSeed()}
	for i := range m.shards {
		m.shards[i] = &shard[K, V]{items: make(map[K]V)}
	}
	return m
}

func (m *Map[K, V]) shardOf(k K) *shard[K, V] {
	return m.shards[maphash.Comparable(m.seed, k)%shardCount]
}

func (m *Map[K, V]) Set(k K, v V) {
	s := m.shardOf(k)
	s.Lock()
	s.items[k] = v
	s.Unlock()
}

func (m *Map[K, V]) Get(k K) (V, bool) {
	s := m.shardOf(k)
	s.RLock()
	defer s.RUnlock()
	v, ok := s.items[k]
	return v, ok
}

// GetOrSet returns the value under k, storing the result of create when k is
// absent. create runs at most once per missing key, under the shard lock.
func (m *Map[K, V]) GetOrSet(k K, create func() V) V {
	if v, ok := m.Get(k); ok {
		return v
	}
	s := m.shardOf(k)
	s.Lock()
	defer s.Unlock()
	if v, ok := s.items[k]; ok {
		return v
	}
	v := create()
	s.items[k] = v
	return v
}

// Update replaces the value under k by fn(value). It reports false when k is absent.
func (m *Map[K, V]) Update(k K, fn func(V) V) bool {
	s := m.shardOf(k)
	s.Lock()
	defer s.Unlock()
	v, ok := s.items[k]
	if ok {
		s.items[k] = fn(v)
	}
	return ok
}

func (m *Map[K, V]) Delete(k K) {
	m.GetAndDelete(k)
}

func (m *Map[K, V]) GetAndDelete(k K) (V, bool) {
	s := m.shardOf(k)
	s.Lock()
	defer s.Unlock()
	v, ok := s.items[k]
	delete(s.items, k)
	return v, ok
}

func (m *Map[K, V]) Len() int {
	n := 0
	for _, s := range m.shards {
		s.RLock()
		n += len(s.items)
		s.RUnlock()
	}
	return n
}

// Range calls f for every entry, one shard at a time. f must not write to the map.
func (m *Map[K, V]) Range(f func(K, V)) {
	for _, s := range m.shards {
		s.RLock()
		for k, v := range s.items {
			f(k, v)
		}
		s.RUnlock()
	}
}

func (m *Map[K, V]) Keys() []K {
	keys := make([]K, 0, m.Len())
	m.Range(func(k K, _ V) { keys = append(keys, k) })
	return keys
}

func (m *Map[K, V]) Values() []V {
	values := make([]V, 0, m.Len())
	m.Range(func(_ K, v V) { values = append(values, v) })
	return values
}

// Reset removes every entry.
func (m *Map[K, V]) Reset() {
	for _, s := range m.shards {
		s.Lock()
		clear(s.items)
		s.Unlock()
	}
}
