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

package health

import (
	"context"

	"github.com/actorgrid/actorgrid/registry"
)

// Prober checks whether a service is healthy. Any error means unhealthy.
type Prober interface {
	Probe(ctx context.Context, service registry.ServiceInfo) error
}

// ActorLister fetches the ids of the actors a service actually hosts.
type ActorLister interface {
	ListActors(ctx context.Context, service registry.ServiceInfo) ([]string, error)
}

// ProberFunc adapts a function to Prober.
type ProberFunc func(ctx context.Context, service registry.ServiceInfo) error

// Probe implements Prober.
func (f ProberFunc) Probe(ctx context.Context, service registry.ServiceInfo) error {
	return f(ctx, service)
}

// ActorListerFunc adapts a function to ActorLister.
type ActorListerFunc func(ctx context.Context, service registry.ServiceInfo) ([]string, error)

// ListActors implements ActorLister.
func (f ActorListerFunc) ListActors(ctx context.Context, service registry.ServiceInfo) ([]string, error) {
	return f(ctx, service)
}
