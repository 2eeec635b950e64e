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

package registry

import "context"

// Store persists registry entries. Both registries write through to it and
// reload from it on Load.
//
// Implementations must be safe for concurrent use.
type Store interface {
	// PutService creates or replaces a service.
	PutService(ctx context.Context, service ServiceInfo) error
	// DeleteService removes a service. Deleting an unknown id is not an error.
	DeleteService(ctx context.Context, serviceID string) error
	// Services returns every persisted service.
	Services(ctx context.Context) ([]ServiceInfo, error)
	// PutActor creates or replaces an actor entry.
	PutActor(ctx context.Context, entry ActorEntry) error
	// DeleteActor removes an actor entry. Deleting an unknown id is not an error.
	DeleteActor(ctx context.Context, actorID string) error
	// Actors returns every persisted actor entry.
	Actors(ctx context.Context) ([]ActorEntry, error)
	// Close releases the store.
	Close() error
}

func contextErr(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
