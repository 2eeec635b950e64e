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

package breaker

import (
	"sort"

	"github.com/actorgrid/actorgrid/internal/xsync"
)

// Group holds independent circuit breakers keyed by the name of the protected
// resource. Breakers are created lazily with the group options.
type Group struct {
	opts     []Option
	breakers *xsync.Map[string, *CircuitBreaker]
}

// NewGroup creates a Group whose breakers are built with the given options.
func NewGroup(opts ...Option) *Group {
	return &Group{
		opts:     opts,
		breakers: xsync.NewMap[string, *CircuitBreaker](),
	}
}

// Get returns the breaker for name, creating it on first use.
func (g *Group) Get(name string) *CircuitBreaker {
	return g.breakers.GetOrSet(name, func() *CircuitBreaker {
		return NewCircuitBreaker(name, g.opts...)
	})
}

// Remove drops the breaker for name.
func (g *Group) Remove(name string) {
	g.breakers.Delete(name)
}

// Metrics returns a snapshot of every breaker in the group ordered by name.
func (g *Group) Metrics() []Metrics {
	out := make([]Metrics, 0, g.breakers.Len())
	g.breakers.Range(func(_ string, b *CircuitBreaker) {
		out = append(out, b.Metrics())
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
